package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"
)

// Health reports that the console process is up.  It does not touch the
// remote API or the session.
func Health(c echo.Context) error {
    return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

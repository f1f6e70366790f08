package handler

import (
    "context"
    "errors"
    "log/slog"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/roadassist-console/internal/model"
    "github.com/iliyamo/roadassist-console/internal/service"
)

// AuthHandler serves the login view, login submission, logout and the
// current profile.
type AuthHandler struct {
    Auth    *service.Authenticator
    Session *service.SessionManager
}

func NewAuthHandler(a *service.Authenticator) *AuthHandler {
    return &AuthHandler{Auth: a, Session: a.Session()}
}

type loginReq struct {
    Username  string `json:"username" form:"username"`
    Password  string `json:"password" form:"password"`
    ReturnURL string `json:"returnUrl" form:"returnUrl"`
}

// LoginPage describes the login view.  An authenticated user is sent on to
// the return URL or their home view.
func (h *AuthHandler) LoginPage(c echo.Context) error {
    returnURL := safeReturnURL(c.QueryParam(model.ReturnURLParam))
    if h.Session.IsAuthenticated() {
        role, _ := h.Session.Role()
        return c.Redirect(http.StatusFound, destinationAfterLogin(returnURL, role))
    }
    return c.JSON(http.StatusOK, echo.Map{
        "view":      "login",
        "returnUrl": returnURL,
    })
}

// Login submits credentials to the RoadAssist API.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.ReturnURL == "" {
        req.ReturnURL = c.QueryParam(model.ReturnURLParam)
    }

    user, err := h.Auth.Login(c.Request().Context(), req.Username, req.Password)
    if err != nil {
        var ce *service.CredentialsError
        switch {
        case errors.As(err, &ce):
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": ce.Message})
        case errors.Is(err, service.ErrServiceUnavailable):
            return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "RoadAssist service unavailable, try again later"})
        case errors.Is(err, context.Canceled):
            return err
        }
        slog.Error("Login failed", "username", req.Username, "error", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
    }

    return c.JSON(http.StatusOK, echo.Map{
        "user":     user,
        "redirect": destinationAfterLogin(safeReturnURL(req.ReturnURL), user.Role),
    })
}

// Logout ends the session and returns to the login view.
func (h *AuthHandler) Logout(c echo.Context) error {
    h.Auth.Logout(c.Request().Context())
    return c.Redirect(http.StatusFound, model.LoginPath)
}

// Me returns the logged-in profile.
func (h *AuthHandler) Me(c echo.Context) error {
    user, ok := h.Session.CurrentUser()
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not logged in"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "user": user,
        "home": model.HomeFor(user.Role),
    })
}

// safeReturnURL keeps only local paths, so a crafted returnUrl cannot send
// the user off the console.
func safeReturnURL(raw string) string {
    if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
        return ""
    }
    if strings.HasPrefix(raw, model.LoginPath) || strings.HasPrefix(raw, model.LogoutPath) {
        return ""
    }
    return raw
}

func destinationAfterLogin(returnURL string, role model.Role) string {
    if returnURL != "" {
        return returnURL
    }
    return model.HomeFor(role)
}

// Package router registers the console routes on an Echo instance.
package router

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/roadassist-console/internal/handler"
    "github.com/iliyamo/roadassist-console/internal/middleware"
    "github.com/iliyamo/roadassist-console/internal/model"
)

// RegisterRoutes registers routes that need no session: the health check
// and the not-found view.  Unknown paths are sent to the not-found view.
func RegisterRoutes(e *echo.Echo) {
    e.GET("/healthz", handler.Health)
    e.GET(model.NotFoundPath, handler.NotFound)
    e.RouteNotFound("/*", func(c echo.Context) error {
        return c.Redirect(http.StatusFound, model.NotFoundPath)
    })
}

// RegisterAuth registers the login and logout views.  throttle wraps the
// login submission; pass nil to leave it unthrottled.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, g *middleware.Guard, throttle echo.MiddlewareFunc) {
    login := []echo.MiddlewareFunc{}
    if throttle != nil {
        login = append(login, throttle)
    }
    e.GET(model.LoginPath, a.LoginPage)
    e.POST(model.LoginPath, a.Login, login...)

    // Logout is idempotent and works without a session.
    e.POST(model.LogoutPath, a.Logout)

    e.GET(model.MePath, a.Me, guarded(g, model.MePath))
}

// RegisterDashboards registers the role dashboards, the root redirect and
// the access-denied view.
func RegisterDashboards(e *echo.Echo, d *handler.DashboardHandler, g *middleware.Guard) {
    e.GET("/", d.Route, guarded(g, "/"))
    e.GET(model.AccessDeniedPath, d.AccessDenied)

    for _, p := range []string{model.AdminDashboardPath, model.OperatorDashboardPath, model.DriverDashboardPath} {
        e.GET(p, d.Dashboard, guarded(g, p))
    }
}

// guarded protects a view with the roles model.ViewRoles lists for path.
// Registering a path missing from that table is a programming error.
func guarded(g *middleware.Guard, path string) echo.MiddlewareFunc {
    roles, ok := model.ViewRoles(path)
    if !ok {
        panic("router: no role table entry for " + path)
    }
    return middleware.RequireSession(g, roles...)
}

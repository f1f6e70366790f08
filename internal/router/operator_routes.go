package router

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/roadassist-console/internal/handler"
    "github.com/iliyamo/roadassist-console/internal/middleware"
    "github.com/iliyamo/roadassist-console/internal/model"
)

// RegisterOperator registers the mission and provider views under
// /operator.  Access follows model.ViewRoles for the missions and providers
// views.
func RegisterOperator(e *echo.Echo, m *handler.MissionHandler, g *middleware.Guard) {
    missions := guarded(g, model.MissionsPath)
    providers := guarded(g, model.ProvidersPath)

    // ---- Missions ----
    e.GET(model.MissionsPath, m.List, missions)
    e.GET(model.MissionsPath+"/options", m.Options, missions)
    e.GET(model.MissionsPath+"/:id", m.Get, missions)
    e.POST(model.MissionsPath, m.Create, missions)
    e.PUT(model.MissionsPath+"/:id", m.Update, missions)
    e.PATCH(model.MissionsPath+"/:id", m.Update, missions)

    // ---- Providers ----
    e.GET(model.ProvidersPath, m.Providers, providers)
}

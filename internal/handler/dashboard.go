package handler

import (
    "fmt"
    "net/http"
    "net/url"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/roadassist-console/internal/model"
    "github.com/iliyamo/roadassist-console/internal/service"
)

// Grafana dashboard that hosts the RoadAssist panels.
const (
    grafanaDashboardUID  = "fe5f05a1-8806-4da1-af4c-c1cecd98a160"
    grafanaDashboardSlug = "roadassist"
)

// Panel categories.
const (
    CategoryMetrics  = "metrics"
    CategoryMissions = "missions"
    CategoryUsers    = "users"
    CategorySystem   = "system"
)

// RefreshOptions are the auto-refresh intervals offered on dashboards.
var RefreshOptions = []model.RefreshOption{
    {Label: "5 seconds", Value: "5s"},
    {Label: "10 seconds", Value: "10s"},
    {Label: "30 seconds", Value: "30s"},
    {Label: "1 minute", Value: "1m"},
    {Label: "5 minutes", Value: "5m"},
}

// GrafanaPanels is the panel catalog served from grafanaURL.
func GrafanaPanels(grafanaURL string) []model.DashboardPanel {
    panel := func(n int, title, desc, category string) model.DashboardPanel {
        q := url.Values{}
        q.Set("orgId", "1")
        q.Set("from", "now-30d")
        q.Set("to", "now")
        q.Set("refresh", "5s")
        q.Set("panelId", fmt.Sprint(n))
        return model.DashboardPanel{
            ID:          fmt.Sprintf("roadassist-panel-%d", n),
            Title:       title,
            Description: desc,
            IframeURL:   fmt.Sprintf("%s/d-solo/%s/%s?%s", grafanaURL, grafanaDashboardUID, grafanaDashboardSlug, q.Encode()),
            Width:       450,
            Height:      300,
            Category:    category,
        }
    }
    return []model.DashboardPanel{
        panel(5, "System metrics", "Distribution of destinations and missions", CategorySystem),
        panel(3, "Urgent missions", "Missions currently flagged urgent", CategoryMetrics),
        panel(1, "Missions by priority", "Number of missions per priority", CategoryMetrics),
        panel(4, "Missions by status", "Number of missions per status", CategoryMetrics),
        panel(6, "Missions by provider", "Number of missions per provider", CategoryMetrics),
    }
}

// DashboardHandler serves the role dashboards.
type DashboardHandler struct {
    Session *service.SessionManager
    Panels  []model.DashboardPanel
}

func NewDashboardHandler(s *service.SessionManager, grafanaURL string) *DashboardHandler {
    return &DashboardHandler{Session: s, Panels: GrafanaPanels(grafanaURL)}
}

// Route sends the user to their role's home view.
func (h *DashboardHandler) Route(c echo.Context) error {
    role, _ := h.Session.Role()
    return c.Redirect(http.StatusFound, model.HomeFor(role))
}

// Dashboard returns the current role's dashboard, optionally filtered by
// ?category=.
func (h *DashboardHandler) Dashboard(c echo.Context) error {
    user, _ := h.Session.CurrentUser()
    category := c.QueryParam("category")

    panels := []model.DashboardPanel{}
    for _, p := range h.panelsFor(user.Role) {
        if category == "" || category == "all" || p.Category == category {
            panels = append(panels, p)
        }
    }
    return c.JSON(http.StatusOK, echo.Map{
        "view":           strings.ToLower(string(user.Role)) + "_dashboard",
        "user":           user,
        "panels":         panels,
        "refreshOptions": RefreshOptions,
    })
}

// Admins see every panel, operators everything but system panels, drivers
// none.
func (h *DashboardHandler) panelsFor(role model.Role) []model.DashboardPanel {
    switch role {
    case model.RoleAdmin:
        return h.Panels
    case model.RoleOperator:
        var out []model.DashboardPanel
        for _, p := range h.Panels {
            if p.Category != CategorySystem {
                out = append(out, p)
            }
        }
        return out
    }
    return nil
}

// AccessDenied is shown when a role lacks access.  It is not guarded.
func (h *DashboardHandler) AccessDenied(c echo.Context) error {
    body := echo.Map{"view": "access_denied", "error": "access denied"}
    if role, ok := h.Session.Role(); ok {
        body["home"] = model.HomeFor(role)
    }
    return c.JSON(http.StatusForbidden, body)
}

// NotFound is the target of unknown console paths.
func NotFound(c echo.Context) error {
    return c.JSON(http.StatusNotFound, echo.Map{"view": "not_found", "error": "page not found"})
}

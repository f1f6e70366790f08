package handler

import (
    "context"
    "errors"
    "log/slog"
    "net/http"
    "net/url"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/roadassist-console/internal/client"
    "github.com/iliyamo/roadassist-console/internal/model"
    "github.com/iliyamo/roadassist-console/internal/service"
)

// MissionAPI is the part of the API client the mission views use.
type MissionAPI interface {
    Missions(ctx context.Context) ([]model.Mission, error)
    Mission(ctx context.Context, id string) (*model.Mission, error)
    CreateMission(ctx context.Context, req model.MissionRequest) (*model.Mission, error)
    UpdateMission(ctx context.Context, id string, req model.MissionUpdateRequest) (*model.Mission, error)
    Providers(ctx context.Context) ([]model.Provider, error)
}

// MissionHandler serves the operator mission and provider views.
type MissionHandler struct {
    API MissionAPI
}

func NewMissionHandler(api MissionAPI) *MissionHandler { return &MissionHandler{API: api} }

// missionView adds display formatting to a mission.
type missionView struct {
    model.Mission
    PhoneDisplay string `json:"requesterPhoneDisplay"`
    PlateDisplay string `json:"vehiclePlateDisplay"`
}

func viewOf(m model.Mission) missionView {
    return missionView{
        Mission:      m,
        PhoneDisplay: service.FormatPhoneDisplay(m.RequesterPhone),
        PlateDisplay: service.FormatVehiclePlate(m.VehiclePlate),
    }
}

// List returns missions, filtered by ?status=, ?priority= and a free text ?q=
// over requester, plate and addresses.
func (h *MissionHandler) List(c echo.Context) error {
    missions, err := h.API.Missions(c.Request().Context())
    if err != nil {
        return respondAPIError(c, err)
    }
    status := model.MissionStatus(strings.ToUpper(c.QueryParam("status")))
    priority := model.MissionPriority(strings.ToUpper(c.QueryParam("priority")))
    q := strings.ToLower(strings.TrimSpace(c.QueryParam("q")))

    out := []missionView{}
    for _, m := range missions {
        if status != "" && m.Status != status {
            continue
        }
        if priority != "" && m.Priority != priority {
            continue
        }
        if q != "" && !matchesQuery(m, q) {
            continue
        }
        out = append(out, viewOf(m))
    }
    return c.JSON(http.StatusOK, out)
}

func matchesQuery(m model.Mission, q string) bool {
    for _, f := range []string{m.ID, m.RequesterName, m.VehiclePlate, m.PickupAddress, m.DestinationAddress} {
        if strings.Contains(strings.ToLower(f), q) {
            return true
        }
    }
    return false
}

// Get returns one mission.
func (h *MissionHandler) Get(c echo.Context) error {
    m, err := h.API.Mission(c.Request().Context(), c.Param("id"))
    if err != nil {
        return respondAPIError(c, err)
    }
    return c.JSON(http.StatusOK, viewOf(*m))
}

// Create validates and submits a new mission.
func (h *MissionHandler) Create(c echo.Context) error {
    var req model.MissionRequest
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if err := service.ValidateMissionRequest(req); err != nil {
        var ve *service.ValidationError
        if errors.As(err, &ve) {
            return c.JSON(http.StatusBadRequest, model.ErrorResponse{
                Code:    "VALIDATION_FAILED",
                Message: "mission request is invalid",
                Status:  http.StatusBadRequest,
                Errors:  ve.Fields,
            })
        }
        return err
    }

    m, err := h.API.CreateMission(c.Request().Context(), req)
    if err != nil {
        return respondAPIError(c, err)
    }
    slog.Info("Mission created", "id", m.ID)
    return c.JSON(http.StatusCreated, viewOf(*m))
}

// Update changes status, priority, driver or notes of a mission.
func (h *MissionHandler) Update(c echo.Context) error {
    var req model.MissionUpdateRequest
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.Status != "" && !knownStatus(req.Status) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status " + string(req.Status)})
    }
    if req.Priority != "" && !knownPriority(req.Priority) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown priority " + string(req.Priority)})
    }

    m, err := h.API.UpdateMission(c.Request().Context(), c.Param("id"), req)
    if err != nil {
        return respondAPIError(c, err)
    }
    return c.JSON(http.StatusOK, viewOf(*m))
}

// Options lists the selectable statuses, types and priorities.
func (h *MissionHandler) Options(c echo.Context) error {
    return c.JSON(http.StatusOK, echo.Map{
        "statuses":   model.MissionStatuses,
        "types":      model.MissionTypes,
        "priorities": model.MissionPriorities,
    })
}

// Providers lists assistance providers.
func (h *MissionHandler) Providers(c echo.Context) error {
    providers, err := h.API.Providers(c.Request().Context())
    if err != nil {
        return respondAPIError(c, err)
    }
    return c.JSON(http.StatusOK, providers)
}

func knownStatus(s model.MissionStatus) bool {
    if s == model.MissionCompleted {
        return true
    }
    for _, o := range model.MissionStatuses {
        if o.Code == s {
            return true
        }
    }
    return false
}

func knownPriority(p model.MissionPriority) bool {
    for _, o := range model.MissionPriorities {
        if o.Code == p {
            return true
        }
    }
    return false
}

// respondAPIError turns a failed API call into a console response.  By the
// time a 401 reaches here the transport has already tried a refresh and
// logged out, so the user is sent to the login view.
func respondAPIError(c echo.Context, err error) error {
    var apiErr *client.APIError
    switch {
    case errors.Is(err, client.ErrUnauthorized):
        q := model.ReturnURLParam + "=" + url.QueryEscape(c.Request().URL.RequestURI())
        return c.Redirect(http.StatusFound, model.LoginPath+"?"+q)
    case errors.Is(err, client.ErrForbidden):
        return c.Redirect(http.StatusFound, model.AccessDeniedPath)
    case errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError:
        return c.JSON(apiErr.Status, apiErr.Body)
    case errors.Is(err, context.Canceled):
        return err
    }
    slog.Error("RoadAssist API call failed", "path", c.Request().URL.Path, "error", err)
    return c.JSON(http.StatusBadGateway, echo.Map{"error": "RoadAssist service unavailable"})
}

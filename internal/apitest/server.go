// Package apitest runs an in-process fake of the RoadAssist REST API for
// tests.  It issues real HS256 access tokens, keeps bcrypt-hashed
// credentials, stores refresh tokens by SHA-256 hash and enforces roles on
// the /v1 routes, so the client side can be exercised end to end.
package apitest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/roadassist-console/internal/model"
	"github.com/iliyamo/roadassist-console/internal/utils"
)

// Password shared by the seeded accounts.
const Password = "secret"

type account struct {
	hash    string
	profile model.UserProfile
}

// Server is the fake API.  Counters and switches are safe for concurrent use.
type Server struct {
	*httptest.Server

	Secret    string
	AccessTTL time.Duration

	LoginCalls   atomic.Int32
	RefreshCalls atomic.Int32

	mu            sync.Mutex
	refreshDelay  time.Duration
	accounts      map[string]account
	refresh       map[string]string // refresh hash -> username
	rejectRefresh bool
	missions      map[string]model.Mission
	nextMission   int
	providers     []model.Provider
}

// NewServer starts a fake API seeded with ops1 (OPERATOR), admin (ADMIN)
// and drv1 (DRIVER), all with Password.  It is closed with t.Cleanup.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		Secret:    "apitest-secret",
		AccessTTL: 15 * time.Minute,
		accounts:  map[string]account{},
		refresh:   map[string]string{},
		missions:  map[string]model.Mission{},
		providers: []model.Provider{
			{ID: "1", Name: "AXA Assistance", Reference: "AXA"},
			{ID: "2", Name: "Mondial Assistance", Reference: "MDA"},
		},
	}
	s.AddUser(model.UserProfile{Reference: "USR-0001", Username: "ops1", Email: "ops1@roadassist.test", FullName: "Ops One", Role: model.RoleOperator, Active: true}, Password)
	s.AddUser(model.UserProfile{Reference: "USR-0002", Username: "admin", Email: "admin@roadassist.test", FullName: "Admin", Role: model.RoleAdmin, Active: true}, Password)
	s.AddUser(model.UserProfile{Reference: "USR-0003", Username: "drv1", Email: "drv1@roadassist.test", FullName: "Driver One", Role: model.RoleDriver, Active: true}, Password)
	s.AddMission(model.Mission{
		MissionType:        model.MissionType{Name: model.TypeTowing},
		Status:             model.MissionCreated,
		RequesterName:      "Jean Dupont",
		RequesterPhone:     "0612345678",
		VehicleMake:        "Renault",
		VehicleModel:       "Clio",
		VehiclePlate:       "AB-123-CD",
		Priority:           model.PriorityNormal,
		PickupAddress:      "12 rue de Rivoli, Paris",
		DestinationAddress: "Garage Central, Paris",
	})

	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

// BaseURL is the API root to hand to client.New.
func (s *Server) BaseURL() string { return s.URL + "/api" }

// AddUser registers an account.
func (s *Server) AddUser(p model.UserProfile, password string) {
	hash, err := utils.HashPassword(password, bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	s.accounts[p.Username] = account{hash: hash, profile: p}
	s.mu.Unlock()
}

// AddMission stores m, assigning an id when empty, and returns it.
func (s *Server) AddMission(m model.Mission) model.Mission {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		s.nextMission++
		m.ID = "MIS-" + strconv.Itoa(s.nextMission)
	}
	s.missions[m.ID] = m
	return m
}

// RejectRefresh makes every refresh call fail with 401.
func (s *Server) RejectRefresh(reject bool) {
	s.mu.Lock()
	s.rejectRefresh = reject
	s.mu.Unlock()
}

// SetRefreshDelay stalls every refresh call by d, so callers can overlap.
func (s *Server) SetRefreshDelay(d time.Duration) {
	s.mu.Lock()
	s.refreshDelay = d
	s.mu.Unlock()
}

// RevokeRefreshTokens forgets every issued refresh token.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	s.refresh = map[string]string{}
	s.mu.Unlock()
}

// IssueAccess mints an access token for username with the given ttl,
// which may be negative.
func (s *Server) IssueAccess(username string, ttl time.Duration) string {
	s.mu.Lock()
	acc, ok := s.accounts[username]
	s.mu.Unlock()
	if !ok {
		panic(fmt.Sprintf("apitest: unknown user %q", username))
	}
	tok, err := utils.NewAccessToken(s.Secret, acc.profile.Username, string(acc.profile.Role), ttl)
	if err != nil {
		panic(err)
	}
	return tok.Token
}

// IssueRefresh registers and returns a refresh token for username.
func (s *Server) IssueRefresh(username string) string {
	r, err := utils.NewRefreshToken(24 * time.Hour)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	s.refresh[utils.HashRefreshRaw(r.Raw)] = username
	s.mu.Unlock()
	return r.Raw
}

func (s *Server) routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	a := e.Group("/api/auth")
	a.POST("/login", s.login)
	a.POST("/refresh", s.refreshAccess)

	v1 := e.Group("/api/v1", s.bearerAuth, requireRole(model.RoleAdmin, model.RoleOperator))
	v1.GET("/missions/all", s.listMissions)
	v1.GET("/missions/:id", s.getMission)
	v1.POST("/missions", s.createMission)
	v1.PUT("/missions/:id", s.updateMission)
	v1.GET("/providers/all", s.listProviders)
	return e
}

func apiError(c echo.Context, status int, code, msg string) error {
	return c.JSON(status, model.ErrorResponse{
		Code:    code,
		Message: msg,
		Status:  status,
		Error:   http.StatusText(status),
		Path:    c.Request().URL.Path,
	})
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) login(c echo.Context) error {
	s.LoginCalls.Add(1)
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return apiError(c, http.StatusBadRequest, "BAD_REQUEST", "invalid body")
	}
	s.mu.Lock()
	acc, ok := s.accounts[strings.TrimSpace(req.Username)]
	s.mu.Unlock()
	if !ok || !utils.VerifyPassword(acc.hash, req.Password) {
		return apiError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Bad credentials")
	}
	if !acc.profile.Active {
		return apiError(c, http.StatusForbidden, "ACCOUNT_DISABLED", "Account is disabled")
	}

	access := s.IssueAccess(acc.profile.Username, s.AccessTTL)
	refresh := s.IssueRefresh(acc.profile.Username)
	return c.JSON(http.StatusOK, echo.Map{
		"token":        access,
		"refreshToken": refresh,
		"userResponse": acc.profile,
	})
}

// refreshAccess returns a new access token without rotating the refresh token.
func (s *Server) refreshAccess(c echo.Context) error {
	s.RefreshCalls.Add(1)
	s.mu.Lock()
	delay := s.refreshDelay
	s.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return apiError(c, http.StatusBadRequest, "BAD_REQUEST", "refreshToken required")
	}
	s.mu.Lock()
	username, ok := s.refresh[utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))]
	reject := s.rejectRefresh
	s.mu.Unlock()
	if !ok || reject {
		return apiError(c, http.StatusUnauthorized, "INVALID_REFRESH", "invalid refresh token")
	}
	return c.JSON(http.StatusOK, echo.Map{"token": s.IssueAccess(username, s.AccessTTL)})
}

// bearerAuth validates the Bearer access token and stores its role claim.
func (s *Server) bearerAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		auth := c.Request().Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			return apiError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
		}
		sub, role, err := utils.ParseAccessToken(s.Secret, strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			return apiError(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token")
		}
		c.Set("user_id", sub)
		c.Set("role", model.Role(role))
		return next(c)
	}
}

func requireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get("role").(model.Role)
			if !allowed[role] {
				return apiError(c, http.StatusForbidden, "FORBIDDEN", "Access denied")
			}
			return next(c)
		}
	}
}

func (s *Server) listMissions(c echo.Context) error {
	s.mu.Lock()
	out := make([]model.Mission, 0, len(s.missions))
	for i := 1; i <= s.nextMission; i++ {
		if m, ok := s.missions["MIS-"+strconv.Itoa(i)]; ok {
			out = append(out, m)
		}
	}
	s.mu.Unlock()
	return c.JSON(http.StatusOK, out)
}

func (s *Server) getMission(c echo.Context) error {
	s.mu.Lock()
	m, ok := s.missions[c.Param("id")]
	s.mu.Unlock()
	if !ok {
		return apiError(c, http.StatusNotFound, "NOT_FOUND", "mission not found")
	}
	return c.JSON(http.StatusOK, m)
}

func (s *Server) createMission(c echo.Context) error {
	var req model.MissionRequest
	if err := c.Bind(&req); err != nil {
		return apiError(c, http.StatusBadRequest, "BAD_REQUEST", "invalid body")
	}
	m := model.Mission{
		Status:             model.MissionCreated,
		RequesterName:      req.RequesterName,
		RequesterPhone:     req.RequesterPhone,
		VehicleMake:        req.VehicleMake,
		VehicleModel:       req.VehicleModel,
		VehiclePlate:       req.VehiclePlate,
		Priority:           req.Priority,
		PickupAddress:      req.PickupAddress,
		DestinationAddress: req.DestinationAddress,
		Notes:              req.Notes,
		StatusHistory: []model.MissionStatusHistory{{
			Status:    string(model.MissionCreated),
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
			CreatedBy: fmt.Sprint(c.Get("user_id")),
		}},
	}
	if len(req.MissionType) > 0 {
		m.MissionType = req.MissionType[0]
	}
	return c.JSON(http.StatusCreated, s.AddMission(m))
}

func (s *Server) updateMission(c echo.Context) error {
	var req model.MissionUpdateRequest
	if err := c.Bind(&req); err != nil {
		return apiError(c, http.StatusBadRequest, "BAD_REQUEST", "invalid body")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.missions[c.Param("id")]
	if !ok {
		return apiError(c, http.StatusNotFound, "NOT_FOUND", "mission not found")
	}
	if req.Status != "" {
		m.Status = req.Status
		m.StatusHistory = append(m.StatusHistory, model.MissionStatusHistory{
			Status:    string(req.Status),
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
			Notes:     req.Notes,
			CreatedBy: fmt.Sprint(c.Get("user_id")),
		})
	}
	if req.Priority != "" {
		m.Priority = req.Priority
	}
	if req.Notes != "" {
		m.Notes = req.Notes
	}
	s.missions[m.ID] = m
	return c.JSON(http.StatusOK, m)
}

func (s *Server) listProviders(c echo.Context) error {
	return c.JSON(http.StatusOK, s.providers)
}

package middleware

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/roadassist-console/internal/model"
	"github.com/iliyamo/roadassist-console/internal/service"
)

// SessionState is what the guard needs to know about the session.
// *service.SessionManager implements it.
type SessionState interface {
	IsAuthenticated() bool
	Role() (model.Role, bool)
}

// DecisionKind is the outcome of a guard check.
type DecisionKind int

const (
	Proceed DecisionKind = iota
	RedirectLogin
	RedirectHome
	RedirectAccessDenied
)

func (k DecisionKind) String() string {
	switch k {
	case Proceed:
		return "proceed"
	case RedirectLogin:
		return "redirect_login"
	case RedirectHome:
		return "redirect_home"
	case RedirectAccessDenied:
		return "redirect_access_denied"
	}
	return "unknown"
}

// Decision tells the caller whether to render the target or where to go
// instead.
type Decision struct {
	Kind        DecisionKind
	Destination string // path without query; empty for Proceed
	ReturnTo    string // only set for RedirectLogin
}

// Allowed reports whether the target may be rendered.
func (d Decision) Allowed() bool { return d.Kind == Proceed }

// Err returns service.ErrForbidden when the session's role was refused.
// A login redirect is not an error.
func (d Decision) Err() error {
	switch d.Kind {
	case RedirectHome, RedirectAccessDenied:
		return service.ErrForbidden
	}
	return nil
}

// Location is the full redirect target, including the returnUrl query for
// login redirects.
func (d Decision) Location() string {
	if d.Kind != RedirectLogin || d.ReturnTo == "" {
		return d.Destination
	}
	q := url.Values{}
	q.Set(model.ReturnURLParam, d.ReturnTo)
	return d.Destination + "?" + q.Encode()
}

// Guard decides whether a view may be entered.
type Guard struct {
	Session SessionState
}

// NewGuard returns a guard reading from s.
func NewGuard(s SessionState) *Guard { return &Guard{Session: s} }

// Check evaluates navigation to target.  An empty required list admits any
// authenticated user.  It has no side effects besides logging denials.
func (g *Guard) Check(target string, required ...model.Role) Decision {
	if !g.Session.IsAuthenticated() {
		return Decision{Kind: RedirectLogin, Destination: model.LoginPath, ReturnTo: target}
	}
	if len(required) == 0 {
		return Decision{Kind: Proceed}
	}

	role, _ := g.Session.Role()
	for _, r := range required {
		if r == role {
			return Decision{Kind: Proceed}
		}
	}

	home := model.HomeFor(role)
	slog.Warn("Navigation denied", "target", target, "role", role, "required", required, "redirect", home)
	if home == model.AccessDeniedPath {
		return Decision{Kind: RedirectAccessDenied, Destination: home}
	}
	return Decision{Kind: RedirectHome, Destination: home}
}

// RequireSession protects console routes with g.  Denied requests are
// answered with 302 to the decision's location.
func RequireSession(g *Guard, roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			d := g.Check(c.Request().URL.RequestURI(), roles...)
			if !d.Allowed() {
				return c.Redirect(http.StatusFound, d.Location())
			}
			return next(c)
		}
	}
}

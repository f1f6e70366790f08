package router

import (
    "context"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/roadassist-console/internal/apitest"
    "github.com/iliyamo/roadassist-console/internal/client"
    "github.com/iliyamo/roadassist-console/internal/handler"
    "github.com/iliyamo/roadassist-console/internal/middleware"
    "github.com/iliyamo/roadassist-console/internal/repository"
    "github.com/iliyamo/roadassist-console/internal/service"
)

type app struct {
    e    *echo.Echo
    auth *service.Authenticator
}

func newApp(t *testing.T) *app {
    t.Helper()
    api := apitest.NewServer(t)
    sess := service.NewSessionManager(context.Background(), repository.NewTokenRepo(repository.NewMemoryKV()))
    tr := &middleware.BearerTransport{Navigator: service.LogNavigator}
    cl := client.New(api.BaseURL(), &http.Client{Transport: tr, Timeout: 5 * time.Second})
    auth := service.NewAuthenticator(cl, sess, service.LogNavigator)
    tr.Auth = auth

    g := middleware.NewGuard(sess)
    e := echo.New()
    RegisterRoutes(e)
    RegisterAuth(e, handler.NewAuthHandler(auth), g, nil)
    RegisterDashboards(e, handler.NewDashboardHandler(sess, "http://grafana.test"), g)
    RegisterOperator(e, handler.NewMissionHandler(cl), g)
    return &app{e: e, auth: auth}
}

func (a *app) get(path string) *httptest.ResponseRecorder {
    rec := httptest.NewRecorder()
    a.e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
    return rec
}

func (a *app) login(t *testing.T, username string) {
    t.Helper()
    if _, err := a.auth.Login(context.Background(), username, apitest.Password); err != nil {
        t.Fatalf("Login(%s): %v", username, err)
    }
}

func TestRoutes_Health(t *testing.T) {
    a := newApp(t)
    if rec := a.get("/healthz"); rec.Code != http.StatusOK {
        t.Errorf("status = %d, want 200", rec.Code)
    }
}

func TestRoutes_Anonymous_RedirectedToLoginWithReturnURL(t *testing.T) {
    a := newApp(t)
    rec := a.get("/operator/missions?status=CREATED")
    if rec.Code != http.StatusFound {
        t.Fatalf("status = %d, want 302", rec.Code)
    }
    want := "/auth/login?returnUrl=%2Foperator%2Fmissions%3Fstatus%3DCREATED"
    if loc := rec.Header().Get("Location"); loc != want {
        t.Errorf("Location = %q, want %q", loc, want)
    }
}

func TestRoutes_PublicViewsNeedNoSession(t *testing.T) {
    a := newApp(t)
    for _, path := range []string{"/auth/login", "/access-denied", "/notfound"} {
        if rec := a.get(path); rec.Code == http.StatusFound {
            t.Errorf("GET %s redirected to %q", path, rec.Header().Get("Location"))
        }
    }
}

func TestRoutes_WrongRole_RedirectedHome(t *testing.T) {
    tests := []struct {
        user string
        path string
        want string
    }{
        {"ops1", "/admin/dashboard", "/operator/dashboard"},
        {"drv1", "/operator/missions", "/driver/dashboard"},
        {"drv1", "/operator/dashboard", "/driver/dashboard"},
        {"admin", "/driver/dashboard", "/admin/dashboard"},
    }
    for _, tt := range tests {
        t.Run(tt.user+tt.path, func(t *testing.T) {
            a := newApp(t)
            a.login(t, tt.user)
            rec := a.get(tt.path)
            if rec.Code != http.StatusFound || rec.Header().Get("Location") != tt.want {
                t.Errorf("got %d %q, want 302 %q", rec.Code, rec.Header().Get("Location"), tt.want)
            }
        })
    }
}

func TestRoutes_AdminReachesOperatorViews(t *testing.T) {
    a := newApp(t)
    a.login(t, "admin")
    for _, path := range []string{"/admin/dashboard", "/operator/dashboard", "/operator/missions", "/operator/providers"} {
        if rec := a.get(path); rec.Code != http.StatusOK {
            t.Errorf("GET %s = %d, want 200", path, rec.Code)
        }
    }
}

func TestRoutes_Root_SendsToHome(t *testing.T) {
    a := newApp(t)
    a.login(t, "drv1")
    if loc := a.get("/").Header().Get("Location"); loc != "/driver/dashboard" {
        t.Errorf("Location = %q, want /driver/dashboard", loc)
    }
}

func TestRoutes_UnknownPath_NotFoundView(t *testing.T) {
    a := newApp(t)
    rec := a.get("/no/such/view")
    if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/notfound" {
        t.Errorf("got %d %q, want 302 /notfound", rec.Code, rec.Header().Get("Location"))
    }
}

func TestRoutes_Logout_ThenProtectedRedirectsToLogin(t *testing.T) {
    a := newApp(t)
    a.login(t, "ops1")

    rec := httptest.NewRecorder()
    a.e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
    if rec.Code != http.StatusFound {
        t.Fatalf("logout status = %d, want 302", rec.Code)
    }
    if loc := a.get("/operator/dashboard").Header().Get("Location"); !strings.HasPrefix(loc, "/auth/login") {
        t.Errorf("Location = %q, want login", loc)
    }
}

func TestRoutes_LogoutByGet_KeepsSession(t *testing.T) {
    a := newApp(t)
    a.login(t, "ops1")

    a.get("/auth/logout")
    if rec := a.get("/operator/dashboard"); rec.Code != http.StatusOK {
        t.Errorf("dashboard after GET logout = %d, want 200", rec.Code)
    }
}

func TestRoutes_OperatorSubroutesFollowRoleTable(t *testing.T) {
    a := newApp(t)
    a.login(t, "drv1")

    for _, path := range []string{"/operator/missions", "/operator/missions/options", "/operator/providers"} {
        rec := a.get(path)
        if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/driver/dashboard" {
            t.Errorf("GET %s = %d %q, want 302 /driver/dashboard", path, rec.Code, rec.Header().Get("Location"))
        }
    }
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/iliyamo/roadassist-console/internal/apitest"
	"github.com/iliyamo/roadassist-console/internal/client"
	"github.com/iliyamo/roadassist-console/internal/model"
	"github.com/iliyamo/roadassist-console/internal/repository"
	"github.com/iliyamo/roadassist-console/internal/service"
	"github.com/iliyamo/roadassist-console/internal/utils"
)

type flow struct {
	api  *apitest.Server
	kv   *repository.MemoryKV
	sess *service.SessionManager
	auth *service.Authenticator
	cl   *client.Client
	nav  *recordNav
}

// newFlow wires the session, the authenticator and an API client whose
// transport is a BearerTransport, the same way cmd/server does.
func newFlow(t *testing.T) *flow {
	t.Helper()
	api := apitest.NewServer(t)
	kv := repository.NewMemoryKV()
	sess := service.NewSessionManager(context.Background(), repository.NewTokenRepo(kv))
	nav := &recordNav{}

	tr := &BearerTransport{Navigator: nav}
	c := client.New(api.BaseURL(), &http.Client{Transport: tr, Timeout: 5 * time.Second})
	auth := service.NewAuthenticator(c, sess, nav)
	tr.Auth = auth

	return &flow{api: api, kv: kv, sess: sess, auth: auth, cl: c, nav: nav}
}

// establishRejected logs ops1 in with an access token the API will refuse
// but a refresh token it accepts.
func (f *flow) establishRejected(t *testing.T) {
	t.Helper()
	bad, err := utils.NewAccessToken("not-the-api-secret", "ops1", string(model.RoleOperator), 15*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	user := model.UserProfile{Username: "ops1", Role: model.RoleOperator, Active: true}
	pair := model.TokenPair{AccessToken: bad.Token, RefreshToken: f.api.IssueRefresh("ops1")}
	if err := f.sess.Establish(context.Background(), f.sess.Generation(), pair, user); err != nil {
		t.Fatal(err)
	}
}

func TestSessionFlow_LoginThenCallAPI(t *testing.T) {
	f := newFlow(t)
	if _, err := f.auth.Login(context.Background(), "ops1", apitest.Password); err != nil {
		t.Fatalf("Login: %v", err)
	}

	missions, err := f.cl.Missions(context.Background())
	if err != nil {
		t.Fatalf("Missions: %v", err)
	}
	if len(missions) == 0 {
		t.Error("expected the seeded mission")
	}
	if n := f.api.RefreshCalls.Load(); n != 0 {
		t.Errorf("RefreshCalls = %d, want 0", n)
	}
}

func TestSessionFlow_RejectedToken_RefreshedTransparently(t *testing.T) {
	f := newFlow(t)
	f.establishRejected(t)
	old := f.sess.AccessToken()

	if _, err := f.cl.Providers(context.Background()); err != nil {
		t.Fatalf("Providers: %v", err)
	}
	if n := f.api.RefreshCalls.Load(); n != 1 {
		t.Errorf("RefreshCalls = %d, want 1", n)
	}
	if f.sess.AccessToken() == old {
		t.Error("access token was not replaced")
	}
	if !f.sess.IsAuthenticated() {
		t.Error("session lost")
	}
}

func TestSessionFlow_RefreshRejected_LogsOut(t *testing.T) {
	f := newFlow(t)
	f.establishRejected(t)
	f.api.RejectRefresh(true)

	_, err := f.cl.Missions(context.Background())
	if !errors.Is(err, client.ErrUnauthorized) {
		t.Fatalf("err = %v, want client.ErrUnauthorized", err)
	}
	if f.sess.IsAuthenticated() {
		t.Error("session still authenticated")
	}
	if f.kv.Len() != 0 {
		t.Errorf("store has %d entries, want 0", f.kv.Len())
	}
	if f.nav.last() != model.LoginPath {
		t.Errorf("navigated to %q, want %q", f.nav.last(), model.LoginPath)
	}
}

func TestSessionFlow_DriverForbidden_NavigatesToAccessDenied(t *testing.T) {
	f := newFlow(t)
	if _, err := f.auth.Login(context.Background(), "drv1", apitest.Password); err != nil {
		t.Fatalf("Login: %v", err)
	}

	_, err := f.cl.Missions(context.Background())
	if !errors.Is(err, client.ErrForbidden) {
		t.Fatalf("err = %v, want client.ErrForbidden", err)
	}
	if f.nav.last() != model.AccessDeniedPath {
		t.Errorf("navigated to %q, want %q", f.nav.last(), model.AccessDeniedPath)
	}
	if !f.sess.IsAuthenticated() {
		t.Error("403 must not log the driver out")
	}
}

func TestSessionFlow_BadLogin_NoRefreshAttempted(t *testing.T) {
	f := newFlow(t)
	if _, err := f.auth.Login(context.Background(), "ops1", "nope"); !errors.Is(err, service.ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
	if n := f.api.RefreshCalls.Load(); n != 0 {
		t.Errorf("RefreshCalls = %d, want 0", n)
	}
}

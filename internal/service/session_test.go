package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/roadassist-console/internal/model"
	"github.com/iliyamo/roadassist-console/internal/repository"
	"github.com/iliyamo/roadassist-console/internal/utils"
)

var testUser = model.UserProfile{
	Reference: "USR-0001",
	Username:  "ops1",
	Email:     "ops1@roadassist.test",
	FullName:  "Ops One",
	Role:      model.RoleOperator,
	Active:    true,
}

func accessToken(t *testing.T, ttl time.Duration) string {
	t.Helper()
	tok, err := utils.NewAccessToken("test-secret", testUser.Username, string(testUser.Role), ttl)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	return tok.Token
}

func newStore(t *testing.T) (*repository.TokenRepo, *repository.MemoryKV) {
	t.Helper()
	kv := repository.NewMemoryKV()
	return repository.NewTokenRepo(kv), kv
}

func seed(t *testing.T, store *repository.TokenRepo, access, refresh string) {
	t.Helper()
	if err := store.Save(context.Background(), model.TokenPair{AccessToken: access, RefreshToken: refresh}, testUser); err != nil {
		t.Fatalf("Save: %v", err)
	}
}

func TestNewSessionManager_ValidStoredSession_Restores(t *testing.T) {
	store, _ := newStore(t)
	access := accessToken(t, 15*time.Minute)
	seed(t, store, access, "refresh-1")

	m := NewSessionManager(context.Background(), store)

	if !m.IsAuthenticated() {
		t.Fatal("IsAuthenticated() = false, want true")
	}
	if m.AccessToken() != access {
		t.Errorf("AccessToken() = %q, want stored token", m.AccessToken())
	}
	u, ok := m.CurrentUser()
	if !ok || u != testUser {
		t.Errorf("CurrentUser() = %+v, %v; want %+v", u, ok, testUser)
	}
	if role, _ := m.Role(); role != model.RoleOperator {
		t.Errorf("Role() = %q, want %q", role, model.RoleOperator)
	}
	if got := m.RefreshToken(context.Background()); got != "refresh-1" {
		t.Errorf("RefreshToken() = %q, want refresh-1", got)
	}
	if err := m.RestoreErr(); err != nil {
		t.Errorf("RestoreErr() = %v, want nil", err)
	}
}

func TestNewSessionManager_EmptyStore_NoRestoreError(t *testing.T) {
	store, _ := newStore(t)
	m := NewSessionManager(context.Background(), store)
	if m.IsAuthenticated() {
		t.Error("empty store produced an authenticated session")
	}
	if err := m.RestoreErr(); err != nil {
		t.Errorf("RestoreErr() = %v, want nil", err)
	}
}

func TestNewSessionManager_ExpiredAccessToken_ClearsEverything(t *testing.T) {
	store, kv := newStore(t)
	// Expired ten minutes ago, with a refresh token still on disk.
	seed(t, store, accessToken(t, -10*time.Minute), "refresh-1")

	m := NewSessionManager(context.Background(), store)

	if m.IsAuthenticated() {
		t.Fatal("session with an expired token was restored")
	}
	if _, ok := m.CurrentUser(); ok {
		t.Error("CurrentUser() reported a user")
	}
	if kv.Len() != 0 {
		t.Errorf("store has %d entries, want 0", kv.Len())
	}
	if err := m.RestoreErr(); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("RestoreErr() = %v, want ErrTokenExpired", err)
	}
}

func TestNewSessionManager_ExpiryUsesInjectedClock(t *testing.T) {
	store, _ := newStore(t)
	seed(t, store, accessToken(t, 5*time.Minute), "refresh-1")

	later := func() time.Time { return time.Now().Add(time.Hour) }
	m := NewSessionManager(context.Background(), store, WithClock(later))
	if m.IsAuthenticated() {
		t.Error("token expired per clock but session was restored")
	}
}

func TestNewSessionManager_TokenWithoutExpiry_Restores(t *testing.T) {
	store, _ := newStore(t)
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "ops1"}).SignedString([]byte("k"))
	if err != nil {
		t.Fatal(err)
	}
	seed(t, store, raw, "refresh-1")

	if m := NewSessionManager(context.Background(), store); !m.IsAuthenticated() {
		t.Error("token without exp claim should be treated as not expired")
	}
}

func TestNewSessionManager_UndecodableToken_Clears(t *testing.T) {
	store, kv := newStore(t)
	seed(t, store, "not-a-jwt", "refresh-1")

	m := NewSessionManager(context.Background(), store)
	if m.IsAuthenticated() {
		t.Error("undecodable token was accepted")
	}
	if kv.Len() != 0 {
		t.Errorf("store has %d entries, want 0", kv.Len())
	}
	if err := m.RestoreErr(); !errors.Is(err, ErrMalformedPersistedState) {
		t.Errorf("RestoreErr() = %v, want ErrMalformedPersistedState", err)
	}
}

func TestNewSessionManager_MalformedProfile_Clears(t *testing.T) {
	store, kv := newStore(t)
	ctx := context.Background()
	_ = kv.Set(ctx, repository.KeyAccessToken, accessToken(t, 15*time.Minute))
	_ = kv.Set(ctx, repository.KeyRefreshToken, "refresh-1")
	_ = kv.Set(ctx, repository.KeyUser, "{not json")

	m := NewSessionManager(ctx, store)
	if m.IsAuthenticated() {
		t.Error("malformed profile produced an authenticated session")
	}
	if kv.Len() != 0 {
		t.Errorf("store has %d entries, want 0", kv.Len())
	}
	if err := m.RestoreErr(); !errors.Is(err, ErrMalformedPersistedState) {
		t.Errorf("RestoreErr() = %v, want ErrMalformedPersistedState", err)
	}
}

func TestNewSessionManager_TokenWithoutProfile_Clears(t *testing.T) {
	store, kv := newStore(t)
	_ = kv.Set(context.Background(), repository.KeyAccessToken, accessToken(t, 15*time.Minute))

	m := NewSessionManager(context.Background(), store)
	if m.IsAuthenticated() {
		t.Error("token without a profile produced an authenticated session")
	}
	if kv.Len() != 0 {
		t.Errorf("store has %d entries, want 0", kv.Len())
	}
	if err := m.RestoreErr(); !errors.Is(err, ErrMalformedPersistedState) {
		t.Errorf("RestoreErr() = %v, want ErrMalformedPersistedState", err)
	}
}

func TestSessionManager_Establish_PersistsAndNotifies(t *testing.T) {
	store, _ := newStore(t)
	m := NewSessionManager(context.Background(), store)

	var got []Change
	m.Subscribe(func(c Change) { got = append(got, c) })

	access := accessToken(t, 15*time.Minute)
	err := m.Establish(context.Background(), m.Generation(), model.TokenPair{AccessToken: access, RefreshToken: "r"}, testUser)
	if err != nil {
		t.Fatalf("Establish: %v", err)
	}

	snap := store.Read(context.Background())
	if snap.AccessToken != access || snap.RefreshToken != "r" || snap.User == nil || *snap.User != testUser {
		t.Errorf("store snapshot = %+v, want the established session", snap)
	}
	if len(got) != 1 || got[0].Reason != ReasonLoggedIn || !got[0].Authenticated {
		t.Fatalf("changes = %+v, want one logged_in change", got)
	}
	if got[0].User == nil || got[0].User.Username != "ops1" {
		t.Errorf("change user = %+v, want ops1", got[0].User)
	}
}

func TestSessionManager_Establish_StaleGeneration(t *testing.T) {
	store, kv := newStore(t)
	m := NewSessionManager(context.Background(), store)
	gen := m.Generation()
	_ = m.Clear(context.Background(), ReasonLoggedOut)

	err := m.Establish(context.Background(), gen, model.TokenPair{AccessToken: "a", RefreshToken: "r"}, testUser)
	if !errors.Is(err, ErrStaleSession) {
		t.Fatalf("err = %v, want ErrStaleSession", err)
	}
	if m.IsAuthenticated() || kv.Len() != 0 {
		t.Error("stale establish changed the session")
	}
}

type failingKV struct{ *repository.MemoryKV }

func (failingKV) Set(context.Context, string, string) error { return errors.New("disk full") }

func TestSessionManager_Establish_SaveFails_StaysLoggedOut(t *testing.T) {
	kv := failingKV{repository.NewMemoryKV()}
	m := NewSessionManager(context.Background(), repository.NewTokenRepo(kv))

	err := m.Establish(context.Background(), m.Generation(), model.TokenPair{AccessToken: "a", RefreshToken: "r"}, testUser)
	if err == nil {
		t.Fatal("Establish succeeded with a failing store")
	}
	if m.IsAuthenticated() {
		t.Error("session authenticated although nothing was persisted")
	}
}

// flakyKV fails writes only once fail is set.
type flakyKV struct {
	*repository.MemoryKV
	fail atomic.Bool
}

func (f *flakyKV) Set(ctx context.Context, key, value string) error {
	if f.fail.Load() {
		return errors.New("disk full")
	}
	return f.MemoryKV.Set(ctx, key, value)
}

func TestSessionManager_Establish_SaveFails_LogsOutPreviousSession(t *testing.T) {
	kv := &flakyKV{MemoryKV: repository.NewMemoryKV()}
	store := repository.NewTokenRepo(kv)
	seed(t, store, accessToken(t, 15*time.Minute), "refresh-1")

	m := NewSessionManager(context.Background(), store)
	if !m.IsAuthenticated() {
		t.Fatal("seeded session was not restored")
	}
	var got []Change
	m.Subscribe(func(c Change) { got = append(got, c) })

	kv.fail.Store(true)
	driver := model.UserProfile{Reference: "USR-0002", Username: "drv1", Role: model.RoleDriver, Active: true}
	err := m.Establish(context.Background(), m.Generation(), model.TokenPair{AccessToken: "a", RefreshToken: "r"}, driver)
	if err == nil {
		t.Fatal("Establish succeeded with a failing store")
	}

	if m.IsAuthenticated() {
		t.Error("previous session still authenticated after a failed login")
	}
	if u, ok := m.CurrentUser(); ok {
		t.Errorf("CurrentUser() = %+v, want none", u)
	}
	if m.AccessToken() != "" {
		t.Errorf("AccessToken() = %q, want empty", m.AccessToken())
	}
	if kv.Len() != 0 {
		t.Errorf("store has %d entries, want 0", kv.Len())
	}
	if len(got) != 1 || got[0].Reason != ReasonLoggedOut {
		t.Fatalf("changes = %+v, want one logged_out change", got)
	}
	if got[0].Previous == nil || got[0].Previous.Username != "ops1" {
		t.Errorf("change previous = %+v, want ops1", got[0].Previous)
	}
}

func TestSessionManager_UpdateAccessToken_KeepsRefreshAndProfile(t *testing.T) {
	store, _ := newStore(t)
	seed(t, store, accessToken(t, 15*time.Minute), "refresh-1")
	m := NewSessionManager(context.Background(), store)

	if err := m.UpdateAccessToken(context.Background(), m.Generation(), "new-access"); err != nil {
		t.Fatalf("UpdateAccessToken: %v", err)
	}
	snap := store.Read(context.Background())
	if snap.AccessToken != "new-access" {
		t.Errorf("stored access = %q, want new-access", snap.AccessToken)
	}
	if snap.RefreshToken != "refresh-1" {
		t.Errorf("stored refresh = %q, want refresh-1", snap.RefreshToken)
	}
	if snap.User == nil || *snap.User != testUser {
		t.Errorf("stored user = %+v, want %+v", snap.User, testUser)
	}
	if m.AccessToken() != "new-access" {
		t.Errorf("AccessToken() = %q, want new-access", m.AccessToken())
	}
}

func TestSessionManager_UpdateAccessToken_AfterLogout_Rejected(t *testing.T) {
	store, kv := newStore(t)
	seed(t, store, accessToken(t, 15*time.Minute), "refresh-1")
	m := NewSessionManager(context.Background(), store)
	gen := m.Generation()
	_ = m.Clear(context.Background(), ReasonLoggedOut)

	if err := m.UpdateAccessToken(context.Background(), gen, "late"); !errors.Is(err, ErrStaleSession) {
		t.Fatalf("err = %v, want ErrStaleSession", err)
	}
	if kv.Len() != 0 {
		t.Errorf("late token was persisted")
	}
}

func TestSessionManager_Clear_Idempotent(t *testing.T) {
	store, kv := newStore(t)
	seed(t, store, accessToken(t, 15*time.Minute), "refresh-1")
	m := NewSessionManager(context.Background(), store)

	var changes int
	m.Subscribe(func(Change) { changes++ })

	for i := 0; i < 2; i++ {
		if err := m.Clear(context.Background(), ReasonLoggedOut); err != nil {
			t.Fatalf("Clear #%d: %v", i+1, err)
		}
		if m.IsAuthenticated() {
			t.Fatalf("authenticated after Clear #%d", i+1)
		}
		if _, ok := m.CurrentUser(); ok {
			t.Fatalf("user present after Clear #%d", i+1)
		}
		if kv.Len() != 0 {
			t.Fatalf("store has %d entries after Clear #%d", kv.Len(), i+1)
		}
	}
	if changes != 1 {
		t.Errorf("changes = %d, want 1", changes)
	}
}

func TestSessionManager_Unsubscribe_StopsNotifications(t *testing.T) {
	store, _ := newStore(t)
	m := NewSessionManager(context.Background(), store)

	var changes int
	unsubscribe := m.Subscribe(func(Change) { changes++ })
	unsubscribe()

	_ = m.Establish(context.Background(), m.Generation(), model.TokenPair{AccessToken: "a", RefreshToken: "r"}, testUser)
	if changes != 0 {
		t.Errorf("changes = %d, want 0", changes)
	}
}

func TestSessionManager_State_ReturnsCopy(t *testing.T) {
	store, _ := newStore(t)
	seed(t, store, accessToken(t, 15*time.Minute), "refresh-1")
	m := NewSessionManager(context.Background(), store)

	st := m.State()
	st.User.Username = "mutated"
	if u, _ := m.CurrentUser(); u.Username != "ops1" {
		t.Errorf("CurrentUser().Username = %q, want ops1", u.Username)
	}
}

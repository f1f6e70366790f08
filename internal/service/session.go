package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iliyamo/roadassist-console/internal/model"
	"github.com/iliyamo/roadassist-console/internal/repository"
	"github.com/iliyamo/roadassist-console/internal/utils"
)

// TokenStore is the durable storage the session is mirrored to.
// *repository.TokenRepo implements it.
type TokenStore interface {
	Save(ctx context.Context, tokens model.TokenPair, user model.UserProfile) error
	SaveAccessToken(ctx context.Context, token string) error
	RefreshToken(ctx context.Context) string
	Read(ctx context.Context) repository.Snapshot
	Clear(ctx context.Context) error
}

// Reason explains a session transition.
type Reason string

const (
	ReasonLoggedIn      Reason = "logged_in"
	ReasonLoggedOut     Reason = "logged_out"
	ReasonExpired       Reason = "expired"
	ReasonMalformed     Reason = "malformed"
	ReasonRefreshFailed Reason = "refresh_failed"
)

// State is a read-only view of the session.
type State struct {
	Authenticated bool
	User          *model.UserProfile
}

// Change is pushed to subscribers after every transition.  Previous is the
// user before the transition, so a logout still names who left.
type Change struct {
	State
	Previous *model.UserProfile
	Reason   Reason
	At       time.Time
}

// SessionManager is the single owner of the client's session: who is
// logged in and with which tokens.  It mirrors every mutation to the token
// store and serializes writers with a mutex.  Construct one per process and
// hand it to the authenticator, guard and transport.
type SessionManager struct {
	store TokenStore
	now   func() time.Time

	mu            sync.RWMutex
	accessToken   string
	user          *model.UserProfile
	authenticated bool
	generation    uint64
	restoreErr    error

	subsMu  sync.Mutex
	subs    map[int]func(Change)
	nextSub int
}

// SessionOption customizes a SessionManager.
type SessionOption func(*SessionManager)

// WithClock replaces time.Now, used for access-token expiry checks.
func WithClock(now func() time.Time) SessionOption {
	return func(m *SessionManager) { m.now = now }
}

// NewSessionManager restores the session persisted in store.  The session
// is authenticated only if the stored access token has not expired and a
// valid user profile is present; in every other case the store is cleared
// right away.  No refresh is attempted here.
func NewSessionManager(ctx context.Context, store TokenStore, opts ...SessionOption) *SessionManager {
	m := &SessionManager{
		store: store,
		now:   time.Now,
		subs:  map[int]func(Change){},
	}
	for _, o := range opts {
		o(m)
	}
	m.restore(ctx)
	return m
}

func (m *SessionManager) restore(ctx context.Context) {
	snap := m.store.Read(ctx)
	m.restoreErr = restoreOutcome(snap, m.now())

	if m.restoreErr == nil && snap.AccessToken != "" {
		user := *snap.User
		m.accessToken = snap.AccessToken
		m.user = &user
		m.authenticated = true
		slog.Info("Session restored", "username", user.Username, "role", user.Role)
		return
	}

	if err := m.store.Clear(ctx); err != nil {
		slog.Error("Failed to clear token store", "error", err)
	}
	if m.restoreErr != nil {
		reason := ReasonMalformed
		if errors.Is(m.restoreErr, ErrTokenExpired) {
			reason = ReasonExpired
		}
		slog.Info("Stored session discarded", "reason", reason, "error", m.restoreErr)
	}
}

// restoreOutcome classifies a stored snapshot.  nil with an access token
// present means the session can be restored; nil without one means there
// was nothing to restore.
func restoreOutcome(snap repository.Snapshot, now time.Time) error {
	switch {
	case snap.Malformed:
		return ErrMalformedPersistedState
	case snap.AccessToken == "":
		return nil
	}
	if _, err := utils.TokenExpiry(snap.AccessToken); err != nil && !errors.Is(err, utils.ErrNoExpiry) {
		return fmt.Errorf("%w: undecodable access token", ErrMalformedPersistedState)
	}
	if utils.TokenExpired(snap.AccessToken, now) {
		return ErrTokenExpired
	}
	if snap.User == nil {
		return fmt.Errorf("%w: access token without profile", ErrMalformedPersistedState)
	}
	return nil
}

// RestoreErr explains why the stored session was discarded at construction:
// ErrTokenExpired or ErrMalformedPersistedState.  It is nil when the session
// was restored or the store was empty.
func (m *SessionManager) RestoreErr() error { return m.restoreErr }

// IsAuthenticated reports whether a user is logged in.
func (m *SessionManager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.authenticated
}

// CurrentUser returns a copy of the logged-in profile.
func (m *SessionManager) CurrentUser() (model.UserProfile, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return model.UserProfile{}, false
	}
	return *m.user, true
}

// Role returns the role of the logged-in user.
func (m *SessionManager) Role() (model.Role, bool) {
	u, ok := m.CurrentUser()
	return u.Role, ok
}

// AccessToken returns the current access token or "".
func (m *SessionManager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accessToken
}

// RefreshToken reads the refresh token from the token store.
func (m *SessionManager) RefreshToken(ctx context.Context) string {
	return m.store.RefreshToken(ctx)
}

// State returns the current state.
func (m *SessionManager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stateLocked()
}

func (m *SessionManager) stateLocked() State {
	s := State{Authenticated: m.authenticated}
	if m.user != nil {
		u := *m.user
		s.User = &u
	}
	return s
}

// Generation identifies the current session incarnation.  It changes on
// every login and every clear; callers capture it before a network call and
// hand it back so a late response cannot touch a newer session.
func (m *SessionManager) Generation() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.generation
}

// Establish persists tokens and user and marks the session authenticated.
// If persisting fails the store is cleared, and a session that was logged
// in before is logged out with it, so memory and store never disagree.
func (m *SessionManager) Establish(ctx context.Context, gen uint64, tokens model.TokenPair, user model.UserProfile) error {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return ErrStaleSession
	}
	if err := m.store.Save(ctx, tokens, user); err != nil {
		if m.authenticated {
			_ = m.clearLocked(ctx, ReasonLoggedOut)
		} else {
			if cerr := m.store.Clear(ctx); cerr != nil {
				slog.Error("Failed to clear token store", "error", cerr)
			}
			m.mu.Unlock()
		}
		return fmt.Errorf("persist session: %w", err)
	}
	prev := m.user
	m.accessToken = tokens.AccessToken
	m.user = &user
	m.authenticated = true
	m.generation++
	st := m.stateLocked()
	m.mu.Unlock()

	slog.Info("Logged in", "username", user.Username, "role", user.Role)
	m.notify(st, prev, ReasonLoggedIn)
	return nil
}

// UpdateAccessToken stores a refreshed access token for the session
// identified by gen.  The refresh token and profile are kept.
func (m *SessionManager) UpdateAccessToken(ctx context.Context, gen uint64, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation || !m.authenticated {
		return ErrStaleSession
	}
	if err := m.store.SaveAccessToken(ctx, token); err != nil {
		return fmt.Errorf("persist access token: %w", err)
	}
	m.accessToken = token
	slog.Debug("Access token refreshed")
	return nil
}

// Clear logs the session out unconditionally.  Calling it on a cleared
// session is a no-op apart from re-clearing the store.
func (m *SessionManager) Clear(ctx context.Context, reason Reason) error {
	m.mu.Lock()
	return m.clearLocked(ctx, reason)
}

// Invalidate clears the session only if it is still the one identified by
// gen.
func (m *SessionManager) Invalidate(ctx context.Context, gen uint64, reason Reason) error {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return ErrStaleSession
	}
	return m.clearLocked(ctx, reason)
}

// clearLocked expects m.mu held and releases it.
func (m *SessionManager) clearLocked(ctx context.Context, reason Reason) error {
	was := m.authenticated
	prev := m.user
	m.accessToken = ""
	m.user = nil
	m.authenticated = false
	m.generation++
	err := m.store.Clear(ctx)
	st := m.stateLocked()
	m.mu.Unlock()

	if err != nil {
		slog.Error("Failed to clear token store", "error", err)
	}
	if was {
		slog.Info("Session cleared", "reason", reason)
		m.notify(st, prev, reason)
	}
	return err
}

// Subscribe registers fn for every future transition and returns a function
// that removes it.  Callbacks run synchronously on the goroutine that caused
// the transition, after the session lock is released.
func (m *SessionManager) Subscribe(fn func(Change)) (unsubscribe func()) {
	m.subsMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.subsMu.Unlock()
	return func() {
		m.subsMu.Lock()
		delete(m.subs, id)
		m.subsMu.Unlock()
	}
}

func (m *SessionManager) notify(st State, prev *model.UserProfile, reason Reason) {
	m.subsMu.Lock()
	fns := make([]func(Change), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subsMu.Unlock()

	ch := Change{State: st, Previous: prev, Reason: reason, At: m.now()}
	for _, fn := range fns {
		fn(ch)
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/iliyamo/roadassist-console/internal/client"
	"github.com/iliyamo/roadassist-console/internal/model"
)

// AuthAPI is the part of the remote API that issues tokens.
// *client.Client implements it.
type AuthAPI interface {
	Login(ctx context.Context, username, password string) (client.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

// Navigator receives navigation requests that originate outside a view,
// such as "go to the login page" after a logout.
type Navigator interface {
	Navigate(destination string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(destination string)

func (f NavigatorFunc) Navigate(destination string) { f(destination) }

// LogNavigator only records navigation requests.
var LogNavigator = NavigatorFunc(func(destination string) {
	slog.Info("Navigation requested", "destination", destination)
})

// Authenticator performs login and token refresh against the API and keeps
// the session manager consistent with the outcome.
type Authenticator struct {
	api            AuthAPI
	session        *SessionManager
	nav            Navigator
	refreshTimeout time.Duration
	flight         singleflight.Group
}

// NewAuthenticator wires the API, the session and a navigator.  A nil
// navigator falls back to LogNavigator.
func NewAuthenticator(api AuthAPI, session *SessionManager, nav Navigator) *Authenticator {
	if nav == nil {
		nav = LogNavigator
	}
	return &Authenticator{api: api, session: session, nav: nav, refreshTimeout: 30 * time.Second}
}

// SetRefreshTimeout bounds the shared refresh call.  Zero disables it.
func (a *Authenticator) SetRefreshTimeout(d time.Duration) { a.refreshTimeout = d }

// Session returns the managed session.
func (a *Authenticator) Session() *SessionManager { return a.session }

// AccessToken returns the session's current access token.
func (a *Authenticator) AccessToken() string { return a.session.AccessToken() }

// Login authenticates with the API and establishes the session.  Nothing
// is written unless the whole exchange succeeds.  A response that arrives
// after ctx is done, or after the session changed, is discarded.
func (a *Authenticator) Login(ctx context.Context, username, password string) (model.UserProfile, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return model.UserProfile{}, &CredentialsError{Message: "username and password are required"}
	}

	gen := a.session.Generation()
	resp, err := a.api.Login(ctx, username, password)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return model.UserProfile{}, ctxErr
		}
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Status >= http.StatusBadRequest && apiErr.Status < http.StatusInternalServerError {
			slog.Info("Login rejected", "username", username, "status", apiErr.Status)
			return model.UserProfile{}, &CredentialsError{Message: apiErr.Message()}
		}
		slog.Error("Login failed", "username", username, "error", err)
		return model.UserProfile{}, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	if resp.Token == "" || resp.RefreshToken == "" || resp.User.Username == "" {
		return model.UserProfile{}, fmt.Errorf("%w: incomplete login response", ErrServiceUnavailable)
	}
	if err := ctx.Err(); err != nil {
		slog.Info("Discarding login response for abandoned request", "username", username)
		return model.UserProfile{}, err
	}

	pair := model.TokenPair{AccessToken: resp.Token, RefreshToken: resp.RefreshToken}
	if err := a.session.Establish(context.WithoutCancel(ctx), gen, pair, resp.User); err != nil {
		return model.UserProfile{}, err
	}
	return resp.User, nil
}

// Refresh obtains a new access token with the stored refresh token.
// Without a refresh token it returns ErrNoRefreshToken and makes no call.
// Any failure of the refresh call logs the session out and returns
// ErrRefreshFailed.  Concurrent callers share a single in-flight call; a
// caller whose ctx ends stops waiting without cancelling the shared call.
func (a *Authenticator) Refresh(ctx context.Context) (string, error) {
	refreshToken := a.session.RefreshToken(ctx)
	if refreshToken == "" {
		return "", ErrNoRefreshToken
	}

	detached := context.WithoutCancel(ctx)
	ch := a.flight.DoChan("refresh", func() (interface{}, error) {
		return a.refresh(detached, refreshToken)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (a *Authenticator) refresh(ctx context.Context, refreshToken string) (string, error) {
	gen := a.session.Generation()
	callCtx := ctx
	if a.refreshTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.refreshTimeout)
		defer cancel()
	}

	token, err := a.api.Refresh(callCtx, refreshToken)
	if err == nil && token == "" {
		err = errors.New("empty token in refresh response")
	}
	if err != nil {
		slog.Warn("Token refresh failed, logging out", "error", err)
		if cerr := a.session.Invalidate(ctx, gen, ReasonRefreshFailed); errors.Is(cerr, ErrStaleSession) {
			return "", ErrStaleSession
		}
		a.nav.Navigate(model.LoginPath)
		return "", fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	if err := a.session.UpdateAccessToken(ctx, gen, token); err != nil {
		return "", err
	}
	return token, nil
}

// Logout clears the session and the token store, then asks for the login
// view.  It is idempotent.
func (a *Authenticator) Logout(ctx context.Context) {
	_ = a.session.Clear(ctx, ReasonLoggedOut)
	a.nav.Navigate(model.LoginPath)
}

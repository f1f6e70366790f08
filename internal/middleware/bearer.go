package middleware

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/iliyamo/roadassist-console/internal/model"
	"github.com/iliyamo/roadassist-console/internal/service"
)

// Authorizer supplies and renews credentials for outbound calls.
// *service.Authenticator implements it.
type Authorizer interface {
	AccessToken() string
	Refresh(ctx context.Context) (string, error)
	Logout(ctx context.Context)
}

// BearerTransport attaches the session's access token to API requests.  On
// 401 it refreshes once and replays the request; on 403 it asks the
// navigator for the access-denied view.  Requests to the login and refresh
// endpoints are passed through untouched.
//
// Auth may be assigned after the transport is handed to an http.Client, as
// long as that happens before the first request.
type BearerTransport struct {
	Base      http.RoundTripper
	Auth      Authorizer
	Navigator service.Navigator
}

func (t *BearerTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func skipAuthorization(path string) bool {
	return strings.Contains(path, "/auth/login") || strings.Contains(path, "/auth/refresh")
}

// RoundTrip implements http.RoundTripper.
func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Auth == nil || skipAuthorization(req.URL.Path) {
		return t.base().RoundTrip(req)
	}

	body, err := bufferBody(req)
	if err != nil {
		return nil, err
	}

	token := t.Auth.AccessToken()
	resp, err := t.base().RoundTrip(withToken(req, token, body))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return t.retryUnauthorized(req, resp, token, body)
	}
	t.checkForbidden(req, resp)
	return resp, nil
}

// checkForbidden sends the user to the access-denied view on a 403.
func (t *BearerTransport) checkForbidden(req *http.Request, resp *http.Response) {
	if resp.StatusCode != http.StatusForbidden {
		return
	}
	slog.Warn("Request forbidden", "method", req.Method, "path", req.URL.Path)
	if t.Navigator != nil {
		t.Navigator.Navigate(model.AccessDeniedPath)
	}
}

// retryUnauthorized handles a 401.  If the session already holds a newer
// token than the one sent, that token is used without refreshing.
func (t *BearerTransport) retryUnauthorized(req *http.Request, resp *http.Response, sent string, body []byte) (*http.Response, error) {
	ctx := req.Context()

	token := t.Auth.AccessToken()
	if token == "" || token == sent {
		var err error
		token, err = t.Auth.Refresh(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				resp.Body.Close()
				return nil, ctxErr
			}
			if errors.Is(err, service.ErrStaleSession) {
				return resp, nil
			}
			slog.Warn("Request unauthorized and refresh failed", "path", req.URL.Path, "error", err)
			if !errors.Is(err, service.ErrRefreshFailed) {
				t.Auth.Logout(ctx)
			}
			return resp, nil
		}
	}

	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	slog.Debug("Retrying request with refreshed token", "method", req.Method, "path", req.URL.Path)
	retried, err := t.base().RoundTrip(withToken(req, token, body))
	if err != nil {
		return nil, err
	}
	// A second 401 is returned as is.
	t.checkForbidden(req, retried)
	return retried, nil
}

// bufferBody reads the request body so it can be sent twice.
func bufferBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	defer req.Body.Close()
	if req.GetBody != nil {
		rc, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	b, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	return b, nil
}

// withToken clones req with token as bearer credentials and a fresh body.
func withToken(req *http.Request, token string, body []byte) *http.Request {
	out := req.Clone(req.Context())
	if token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	} else {
		out.Header.Del("Authorization")
	}
	if body != nil {
		out.Body = io.NopCloser(bytes.NewReader(body))
		out.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
		out.ContentLength = int64(len(body))
	}
	return out
}

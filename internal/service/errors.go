package service

import "errors"

// Session and authentication failures.  Transport and decoding errors are
// normalized into these before they leave this package.
var (
	// ErrInvalidCredentials: the remote rejected a login.  The caller
	// re-prompts; it is never retried automatically.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenExpired: the access token's exp claim is in the past.
	ErrTokenExpired = errors.New("access token expired")
	// ErrRefreshFailed: the refresh endpoint rejected the refresh token or
	// could not be reached.  The session has been logged out.
	ErrRefreshFailed = errors.New("token refresh failed")
	// ErrNoRefreshToken: there is nothing to refresh with.
	ErrNoRefreshToken = errors.New("no refresh token")
	// ErrForbidden: the session is valid but its role is not allowed.
	ErrForbidden = errors.New("forbidden")
	// ErrMalformedPersistedState: the stored user profile could not be used.
	ErrMalformedPersistedState = errors.New("malformed persisted session")
	// ErrServiceUnavailable: the auth API failed for reasons other than
	// rejected credentials (network error, 5xx, unexpected body).
	ErrServiceUnavailable = errors.New("authentication service unavailable")
	// ErrStaleSession: a write was attempted on behalf of a session that has
	// since been replaced or cleared.
	ErrStaleSession = errors.New("session changed while request was in flight")
)

// CredentialsError carries the server's rejection message so the login
// view can show it.  errors.Is(err, ErrInvalidCredentials) holds.
type CredentialsError struct {
	Message string
}

func (e *CredentialsError) Error() string {
	if e.Message == "" {
		return ErrInvalidCredentials.Error()
	}
	return e.Message
}

func (e *CredentialsError) Is(target error) bool { return target == ErrInvalidCredentials }

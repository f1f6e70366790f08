package utils // package utils provides helper functions for token inspection, creation and hashing

import (
    "crypto/rand"   // secure random number generation
    "crypto/sha256" // SHA‑256 hashing for refresh tokens
    "encoding/hex"  // hex encoding and decoding functions
    "errors"
    "time" // time utilities for generating and comparing expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for reading and creating tokens
)

// ErrNoExpiry is returned by TokenExpiry when the token carries no exp claim.
var ErrNoExpiry = errors.New("token has no exp claim")

// TokenExpiry decodes the access token without verifying its signature and
// returns its embedded `exp` claim.  The client never holds the signing key,
// so the claim is read as-is; the remote API remains the authority on
// validity and answers 401 for anything it does not accept.
func TokenExpiry(token string) (time.Time, error) {
    claims := jwt.MapClaims{}
    if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
        return time.Time{}, err
    }
    exp, err := claims.GetExpirationTime()
    if err != nil {
        return time.Time{}, err
    }
    if exp == nil {
        return time.Time{}, ErrNoExpiry
    }
    return exp.Time, nil
}

// TokenExpired reports whether the access token is expired at now.  A token
// that cannot be decoded counts as expired.  A token without an exp claim
// does not expire on the client side.
func TokenExpired(token string, now time.Time) bool {
    if token == "" {
        return true
    }
    exp, err := TokenExpiry(token)
    if errors.Is(err, ErrNoExpiry) {
        return false
    }
    if err != nil {
        return true
    }
    return exp.Before(now)
}

// AccessToken represents a signed JWT access token along with its expiry.
type AccessToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// RefreshToken represents a long‑lived token used to obtain new access tokens.
type RefreshToken struct {
    Raw string    // raw token string returned to the client
    Exp time.Time // UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT for a user the way the
// RoadAssist API does: subject is the user reference, role is carried as a
// custom claim, and ttl may be negative to mint an already-expired token.
// Every token gets a random jti, so two tokens minted in the same second
// still differ.
func NewAccessToken(secret, subject, role string, ttl time.Duration) (AccessToken, error) {
    jti, err := randomHex(8)
    if err != nil {
        return AccessToken{}, err
    }
    now := time.Now().UTC()
    exp := now.Add(ttl)
    claims := jwt.MapClaims{
        "sub":  subject,
        "role": role,
        "jti":  jti,
        "exp":  exp.Unix(),
        "iat":  now.Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies an HS256 token with secret and returns its
// subject and role claims.
func ParseAccessToken(secret, raw string) (subject, role string, err error) {
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        return []byte(secret), nil
    }, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
    if err != nil {
        return "", "", err
    }
    claims, ok := tok.Claims.(jwt.MapClaims)
    if !ok || !tok.Valid {
        return "", "", jwt.ErrTokenInvalidClaims
    }
    subject, _ = claims["sub"].(string)
    role, _ = claims["role"].(string)
    return subject, role, nil
}

// NewRefreshToken returns a cryptographically secure random token and its
// expiration time.
func NewRefreshToken(ttl time.Duration) (RefreshToken, error) {
    raw, err := randomHex(48) // 48 bytes -> 96 hex chars
    if err != nil {
        return RefreshToken{}, err
    }
    return RefreshToken{Raw: raw, Exp: time.Now().UTC().Add(ttl)}, nil
}

// HashRefreshRaw returns the SHA‑256 hash of the raw refresh token as a hex
// string.
func HashRefreshRaw(raw string) string {
    sum := sha256.Sum256([]byte(raw))
    return hex.EncodeToString(sum[:])
}

func randomHex(n int) (string, error) {
    buf := make([]byte, n)
    if _, err := rand.Read(buf); err != nil {
        return "", err
    }
    return hex.EncodeToString(buf), nil
}

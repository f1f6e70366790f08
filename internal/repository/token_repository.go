package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/iliyamo/roadassist-console/internal/model"
)

// Entry names, shared by every backend.
const (
	KeyAccessToken  = "token"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"
)

// ProfileVersion tags the persisted user entry.  Entries with any other
// version are treated as malformed and dropped.
const ProfileVersion = 1

type storedProfile struct {
	Version int                `json:"version"`
	Profile *model.UserProfile `json:"profile"`
}

// Snapshot is whatever subset of the session entries is currently stored.
// Malformed is set when a user entry exists but could not be used.
type Snapshot struct {
	AccessToken  string
	RefreshToken string
	User         *model.UserProfile
	Malformed    bool
}

// TokenRepo persists the access token, refresh token and user profile of the
// current session as three independent entries.
type TokenRepo struct{ KV KV }

func NewTokenRepo(kv KV) *TokenRepo { return &TokenRepo{KV: kv} }

// Save writes all three entries.  No validation is performed.
func (r *TokenRepo) Save(ctx context.Context, tokens model.TokenPair, user model.UserProfile) error {
	raw, err := json.Marshal(storedProfile{Version: ProfileVersion, Profile: &user})
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := r.KV.Set(ctx, KeyAccessToken, tokens.AccessToken); err != nil {
		return fmt.Errorf("save %s: %w", KeyAccessToken, err)
	}
	if err := r.KV.Set(ctx, KeyRefreshToken, tokens.RefreshToken); err != nil {
		return fmt.Errorf("save %s: %w", KeyRefreshToken, err)
	}
	if err := r.KV.Set(ctx, KeyUser, string(raw)); err != nil {
		return fmt.Errorf("save %s: %w", KeyUser, err)
	}
	return nil
}

// SaveAccessToken replaces the access entry only.
func (r *TokenRepo) SaveAccessToken(ctx context.Context, token string) error {
	if err := r.KV.Set(ctx, KeyAccessToken, token); err != nil {
		return fmt.Errorf("save %s: %w", KeyAccessToken, err)
	}
	return nil
}

// RefreshToken returns the stored refresh token or "".
func (r *TokenRepo) RefreshToken(ctx context.Context) string {
	return r.get(ctx, KeyRefreshToken)
}

// Read returns the stored entries.  It never fails: backend errors are
// logged and reported as absent values.
func (r *TokenRepo) Read(ctx context.Context) Snapshot {
	snap := Snapshot{
		AccessToken:  r.get(ctx, KeyAccessToken),
		RefreshToken: r.get(ctx, KeyRefreshToken),
	}
	raw := r.get(ctx, KeyUser)
	if raw == "" {
		return snap
	}
	user, err := decodeProfile(raw)
	if err != nil {
		slog.Warn("Discarding persisted user profile", "error", err)
		snap.Malformed = true
		return snap
	}
	snap.User = user
	return snap
}

// Clear removes all three entries.  Every key is attempted even if an
// earlier delete fails; the first error is returned.
func (r *TokenRepo) Clear(ctx context.Context) error {
	var first error
	for _, k := range []string{KeyAccessToken, KeyRefreshToken, KeyUser} {
		if err := r.KV.Delete(ctx, k); err != nil && first == nil {
			first = fmt.Errorf("clear %s: %w", k, err)
		}
	}
	return first
}

func (r *TokenRepo) get(ctx context.Context, key string) string {
	v, err := r.KV.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			slog.Warn("Token store read failed", "key", key, "error", err)
		}
		return ""
	}
	return v
}

func decodeProfile(raw string) (*model.UserProfile, error) {
	var sp storedProfile
	if err := json.Unmarshal([]byte(raw), &sp); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	if sp.Version != ProfileVersion {
		return nil, fmt.Errorf("unsupported profile version %d", sp.Version)
	}
	if sp.Profile == nil || sp.Profile.Username == "" || sp.Profile.Role == "" {
		return nil, errors.New("profile missing username or role")
	}
	return sp.Profile, nil
}

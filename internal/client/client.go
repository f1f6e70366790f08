// Package client is the HTTP client for the RoadAssist REST API.
// Credentials are not handled here: the *http.Client passed to New is
// expected to carry a middleware.BearerTransport.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iliyamo/roadassist-console/internal/model"
)

// Sentinels matched by APIError.Is.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
)

// Auth endpoint paths, relative to the base URL.
const (
	LoginPath   = "/auth/login"
	RefreshPath = "/auth/refresh"
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   model.ErrorResponse
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Message())
}

// Message is the server's explanation, falling back to the status text.
func (e *APIError) Message() string {
	switch {
	case e.Body.Message != "":
		return e.Body.Message
	case e.Body.Error != "":
		return e.Body.Error
	}
	return http.StatusText(e.Status)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// Client is the API client for the RoadAssist backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for baseURL (e.g. http://localhost:8080/api).  A nil
// httpClient gets a plain client with a 30s timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// LoginResponse is the body of a successful POST /auth/login.
type LoginResponse struct {
	Token        string            `json:"token"`
	RefreshToken string            `json:"refreshToken"`
	User         model.UserProfile `json:"userResponse"`
}

// loginWire accepts both the field names the RoadAssist API sends
// (token, userResponse) and the generic ones (accessToken, userProfile).
type loginWire struct {
	Token        string             `json:"token"`
	AccessToken  string             `json:"accessToken"`
	RefreshToken string             `json:"refreshToken"`
	User         *model.UserProfile `json:"userResponse"`
	UserProfile  *model.UserProfile `json:"userProfile"`
}

func (w loginWire) normalize() LoginResponse {
	out := LoginResponse{Token: w.Token, RefreshToken: w.RefreshToken}
	if out.Token == "" {
		out.Token = w.AccessToken
	}
	switch {
	case w.User != nil:
		out.User = *w.User
	case w.UserProfile != nil:
		out.User = *w.UserProfile
	}
	return out
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	Token       string `json:"token"`
	AccessToken string `json:"accessToken"`
}

// Login exchanges credentials for a token pair and profile.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResponse, error) {
	var w loginWire
	if err := c.doJSON(ctx, http.MethodPost, LoginPath, loginRequest{Username: username, Password: password}, &w); err != nil {
		return LoginResponse{}, err
	}
	return w.normalize(), nil
}

// Refresh exchanges a refresh token for a new access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (string, error) {
	var out refreshResponse
	if err := c.doJSON(ctx, http.MethodPost, RefreshPath, refreshRequest{RefreshToken: refreshToken}, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return out.AccessToken, nil
	}
	return out.Token, nil
}

// Missions lists all missions.
func (c *Client) Missions(ctx context.Context) ([]model.Mission, error) {
	var out []model.Mission
	err := c.doJSON(ctx, http.MethodGet, "/v1/missions/all", nil, &out)
	return out, err
}

// Mission fetches one mission by id.
func (c *Client) Mission(ctx context.Context, id string) (*model.Mission, error) {
	var out model.Mission
	if err := c.doJSON(ctx, http.MethodGet, "/v1/missions/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateMission submits a new mission.
func (c *Client) CreateMission(ctx context.Context, req model.MissionRequest) (*model.Mission, error) {
	var out model.Mission
	if err := c.doJSON(ctx, http.MethodPost, "/v1/missions", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateMission changes status, priority, driver or notes of a mission.
func (c *Client) UpdateMission(ctx context.Context, id string, req model.MissionUpdateRequest) (*model.Mission, error) {
	var out model.Mission
	if err := c.doJSON(ctx, http.MethodPut, "/v1/missions/"+url.PathEscape(id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Providers lists the assistance providers.
func (c *Client) Providers(ctx context.Context) ([]model.Provider, error) {
	var out []model.Provider
	err := c.doJSON(ctx, http.MethodGet, "/v1/providers/all", nil, &out)
	return out, err
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Method: method, Path: path, Status: resp.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		_ = json.Unmarshal(raw, &apiErr.Body)
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

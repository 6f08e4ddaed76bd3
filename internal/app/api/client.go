/*
Package api provides the request/response HTTP client for the game service.

It covers the authentication endpoints and table creation. These are the only
awaited calls the client makes; everything else travels over the realtime
channel. Failures are returned as typed *errs.CustomError values, never
panics, so callers can distinguish bad credentials from transport trouble.
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"mimico/internal/app/user"
	"mimico/internal/pkg/errs"
	"mimico/internal/pkg/logx"
)

// Client is the HTTP API client. All methods are safe for concurrent use.
type Client struct {
	// baseURL is the API origin without a trailing slash.
	baseURL string

	// httpClient performs the requests, with the configured timeout.
	httpClient *http.Client

	// mu protects token.
	mu sync.RWMutex

	// token is the bearer credential attached to authenticated requests.
	token string

	// structured logger with client context.
	logger zerolog.Logger
}

// NewClient constructs an API client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	apiLogger := logx.Logger().With().
		Str("component", "api").
		Str("base_url", baseURL).
		Logger()

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     apiLogger,
	}
}

// SetToken updates the bearer credential used on subsequent requests.
// An empty string clears it.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = token
}

// LoginResponse is the body returned by a successful login.
type LoginResponse struct {
	Token    string `json:"token"`
	UserID   string `json:"userId"`
	Nickname string `json:"nickname"`
}

// Login exchanges credentials for a token and user identity.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	in := map[string]string{
		"email":    email,
		"password": password,
	}

	var out LoginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", in, &out); err != nil {
		if err.Status == http.StatusUnauthorized {
			return nil, errs.NewError(errs.ErrInvalidCredentials)
		}
		return nil, err
	}

	return &out, nil
}

// Register creates a new account. The caller typically follows up with Login.
func (c *Client) Register(ctx context.Context, nickname, email, password string) error {
	in := map[string]string{
		"nickname": nickname,
		"email":    email,
		"password": password,
	}

	if err := c.doJSON(ctx, http.MethodPost, "/auth/register", in, nil); err != nil {
		if err.Status == http.StatusConflict {
			return errs.NewError(errs.ErrUserAlreadyExists)
		}
		return err
	}

	return nil
}

// Profile is the body returned by the current-user endpoint.
type Profile struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Nickname  string    `json:"nickname"`
	AvatarURL string    `json:"avatarUrl"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"createdAt"`
}

// User converts the profile into the client's user representation.
func (p *Profile) User() user.User {
	return user.User{
		ID:       p.UserID,
		Nickname: p.Nickname,
		Email:    p.Email,
		Avatar:   p.AvatarURL,
		IsOnline: true,
	}
}

// Me fetches the profile of the user owning the current token.
func (c *Client) Me(ctx context.Context) (*Profile, error) {
	var out Profile
	if err := c.doJSON(ctx, http.MethodGet, "/auth/me", nil, &out); err != nil {
		if err.Status == http.StatusUnauthorized {
			return nil, errs.NewError(errs.ErrUnauthorized)
		}
		return nil, err
	}

	return &out, nil
}

// CreatedTable is the body returned by table creation.
type CreatedTable struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	HostID string `json:"hostId"`
	Status string `json:"status"`
}

// CreateTable allocates a new table identity on the server.
func (c *Client) CreateTable(ctx context.Context, name string) (*CreatedTable, error) {
	in := map[string]string{"name": name}

	var out CreatedTable
	if err := c.doJSON(ctx, http.MethodPost, "/tables", in, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// serverErrorBody is the error envelope the service returns on failures.
type serverErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// doJSON performs one JSON request/response round trip. A nil in skips the
// request body; a nil out discards the response body.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) *errs.CustomError {
	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			c.logger.Error().Err(err).Str("path", path).Msg("Failed to encode request body.")
			return errs.NewError(errs.ErrUnknown)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		c.logger.Error().Err(err).Str("path", path).Msg("Failed to build request.")
		return errs.NewError(errs.ErrUnknown)
	}

	req.Header.Set("Content-Type", "application/json")

	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("method", method).Str("path", path).Msg("Request failed.")
		return errs.FromServer(errs.ErrUnknown, err.Error(), 0)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return c.decodeError(res, path)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		c.logger.Error().Err(err).Str("path", path).Msg("Failed to decode response body.")
		return errs.NewError(errs.ErrUnknown)
	}

	return nil
}

// decodeError turns a non-2xx response into a *CustomError, preserving the
// server's code and message when the body carries them.
func (c *Client) decodeError(res *http.Response, path string) *errs.CustomError {
	var body serverErrorBody
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		body = serverErrorBody{}
	}

	c.logger.Warn().
		Int("status", res.StatusCode).
		Int("server_code", body.Code).
		Str("path", path).
		Msg("API request rejected.")

	code := body.Code
	if code == 0 {
		code = errs.ErrUnknown
	}

	return errs.FromServer(code, body.Message, res.StatusCode)
}

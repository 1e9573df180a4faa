// Package client is a Go SDK for the admin-core API. It manages the
// access/refresh token pair transparently: tokens are attached to every
// request, refreshed ahead of expiry, and at most one refresh is in
// flight at any time regardless of how many requests hit a stale token
// concurrently.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

// refreshLookahead is how long before access token expiry a refresh is
// attempted proactively.
const refreshLookahead = 5 * time.Minute

// State describes the session lifecycle of a client.
type State string

const (
	StateAnonymous     State = "anonymous"
	StateAuthenticated State = "authenticated"
	StateRefreshing    State = "refreshing"
)

// ErrSessionExpired is returned when the refresh token itself was rejected.
// The stored session has been purged; the caller must log in again.
var ErrSessionExpired = errors.New("session expired, login required")

// ErrNotAuthenticated is returned by authenticated operations when no
// session is stored.
var ErrNotAuthenticated = errors.New("not authenticated")

// APIError is a structured error returned by the server.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// TokenPair is the token response of login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Account is the public representation of a user account.
type Account struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	FullName    string     `json:"full_name"`
	Phone       string     `json:"phone"`
	Bio         string     `json:"bio"`
	Avatar      string     `json:"avatar"`
	IsActive    bool       `json:"is_active"`
	IsVerified  bool       `json:"is_verified"`
	IsSuperuser bool       `json:"is_superuser"`
	CreatedAt   *time.Time `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at"`
}

// RegisterParams are the inputs of Register.
type RegisterParams struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	FullName        string `json:"full_name,omitempty"`
	Phone           string `json:"phone,omitempty"`
	Bio             string `json:"bio,omitempty"`
}

// Client is a thread-safe API client. The zero value is not usable; use
// New.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      Store

	mu      sync.RWMutex
	session *Session

	refreshGroup singleflight.Group
	refreshing   atomic.Int32
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithStore replaces the default in-memory session store.
func WithStore(store Store) Option {
	return func(c *Client) {
		c.store = store
	}
}

// New creates a client for the API at baseURL and restores any persisted
// session from the store.
func New(baseURL string, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		store:      NewMemoryStore(),
	}
	for _, opt := range opts {
		opt(c)
	}

	session, err := c.store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	c.session = session

	return c, nil
}

// State reports the current session state.
func (c *Client) State() State {
	if c.refreshing.Load() > 0 {
		return StateRefreshing
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return StateAnonymous
	}
	return StateAuthenticated
}

// Register creates a new account. The account still needs email
// verification before it may use verified-only endpoints.
func (c *Client) Register(ctx context.Context, params RegisterParams) (*Account, error) {
	account := &Account{}
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/auth/register", params, account, false); err != nil {
		return nil, err
	}
	return account, nil
}

// Login authenticates with a username or email and stores the resulting
// token pair.
func (c *Client) Login(ctx context.Context, username, password string) error {
	payload := map[string]string{"username": username, "password": password}
	pair := &TokenPair{}
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/auth/login", payload, pair, false); err != nil {
		return err
	}
	return c.storeSession(pair, username)
}

// Logout tells the server goodbye and purges the stored session. The
// server keeps no token state, so the purge is what actually ends the
// session.
func (c *Client) Logout(ctx context.Context) error {
	c.mu.RLock()
	hasSession := c.session != nil
	c.mu.RUnlock()

	if hasSession {
		// Best-effort: the session is purged even if the call fails.
		_ = c.doJSON(ctx, http.MethodPost, "/api/v1/auth/logout", nil, nil, true)
	}

	return c.purgeSession()
}

// Me returns the profile of the authenticated user.
func (c *Client) Me(ctx context.Context) (*Account, error) {
	account := &Account{}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/users/me", nil, account, true); err != nil {
		return nil, err
	}
	return account, nil
}

// UpdateMe updates the mutable profile fields of the authenticated user.
func (c *Client) UpdateMe(ctx context.Context, fullName, phone, bio, avatar string) (*Account, error) {
	payload := map[string]string{"full_name": fullName, "phone": phone, "bio": bio, "avatar": avatar}
	account := &Account{}
	if err := c.doJSON(ctx, http.MethodPut, "/api/v1/users/me", payload, account, true); err != nil {
		return nil, err
	}
	return account, nil
}

// Do sends an authenticated request to an arbitrary API path and decodes
// the JSON response into out when out is non-nil. It is the escape hatch
// for endpoints without a dedicated method.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) error {
	return c.doJSON(ctx, method, path, body, out, true)
}

// doJSON performs one request. Authenticated requests get the bearer
// token attached, a proactive refresh when the access token is close to
// expiry, and one retry after a reactive refresh on 401.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}, authenticated bool) error {
	var token string
	if authenticated {
		session := c.currentSession()
		if session == nil {
			return ErrNotAuthenticated
		}

		if time.Until(session.AccessExpiresAt) < refreshLookahead {
			if err := c.refresh(ctx, false); err != nil {
				return err
			}
			session = c.currentSession()
			if session == nil {
				return ErrSessionExpired
			}
		}
		token = session.AccessToken
	}

	statusCode, apiErr, err := c.send(ctx, method, path, body, out, token)
	if err != nil {
		return err
	}

	if authenticated && statusCode == http.StatusUnauthorized {
		// The access token was rejected despite not being due for
		// refresh: refresh reactively and retry exactly once.
		if err := c.refresh(ctx, true); err != nil {
			return err
		}
		session := c.currentSession()
		if session == nil {
			return ErrSessionExpired
		}

		statusCode, apiErr, err = c.send(ctx, method, path, body, out, session.AccessToken)
		if err != nil {
			return err
		}
	}

	if apiErr != nil {
		return apiErr
	}
	return nil
}

// refresh exchanges the refresh token for a new pair. Concurrent callers
// share a single refresh request; a rejected refresh token purges the
// session and surfaces ErrSessionExpired to every waiter. Unless forced,
// a refresh that lost the race to an earlier flight is skipped.
func (c *Client) refresh(ctx context.Context, force bool) error {
	_, err, _ := c.refreshGroup.Do("refresh", func() (interface{}, error) {
		c.refreshing.Add(1)
		defer c.refreshing.Add(-1)

		session := c.currentSession()
		if session == nil {
			return nil, ErrNotAuthenticated
		}
		if !force && time.Until(session.AccessExpiresAt) >= refreshLookahead {
			return nil, nil
		}

		payload := map[string]string{"refresh_token": session.RefreshToken}
		pair := &TokenPair{}
		statusCode, apiErr, err := c.send(ctx, http.MethodPost, "/api/v1/auth/refresh", payload, pair, "")
		if err != nil {
			return nil, err
		}
		if statusCode == http.StatusUnauthorized {
			_ = c.purgeSession()
			return nil, ErrSessionExpired
		}
		if apiErr != nil {
			return nil, apiErr
		}

		return nil, c.storeSession(pair, session.Username)
	})
	return err
}

// send executes one HTTP round trip. Error status codes are decoded into
// an APIError and returned alongside the code, not turned into a Go
// error, so that doJSON can decide on a retry.
func (c *Client) send(ctx context.Context, method, path string, body, out interface{}, token string) (int, *APIError, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode, Code: "ERR-UNKNOWN", Message: http.StatusText(resp.StatusCode)}
		envelope := struct {
			Error *APIError `json:"error"`
		}{}
		if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error != nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		}
		return resp.StatusCode, apiErr, nil
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, nil, fmt.Errorf("decoding response: %w", err)
		}
	}
	return resp.StatusCode, nil, nil
}

func (c *Client) currentSession() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil
	}
	copied := *c.session
	return &copied
}

// storeSession derives the access expiry from the token claims and
// persists the session.
func (c *Client) storeSession(pair *TokenPair, username string) error {
	expiresAt := time.Now().Add(time.Duration(pair.ExpiresIn) * time.Second)
	if claims := unverifiedClaims(pair.AccessToken); claims != nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			expiresAt = exp.Time
		}
		if sub, err := claims.GetSubject(); err == nil && username == "" {
			username = sub
		}
	}

	session := &Session{
		AccessToken:     pair.AccessToken,
		RefreshToken:    pair.RefreshToken,
		AccessExpiresAt: expiresAt,
		Username:        username,
	}

	c.mu.Lock()
	c.session = session
	c.mu.Unlock()

	return c.store.Save(session)
}

func (c *Client) purgeSession() error {
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
	return c.store.Clear()
}

// unverifiedClaims decodes token claims without signature verification.
// The client never trusts these claims for anything but scheduling the
// next refresh; the server is the authority.
func unverifiedClaims(tokenString string) jwt.MapClaims {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return nil
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}
	return claims
}

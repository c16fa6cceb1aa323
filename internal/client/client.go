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
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultRefreshSkew is how close to expiry an access token is refreshed pre-emptively.
const DefaultRefreshSkew = 5 * time.Minute

// Client calls the gotodo API on behalf of one user.
type Client struct {
	baseURL string
	http    *http.Client
	store   TokenStore
	skew    time.Duration
	nowFunc func() time.Time

	refreshGroup singleflight.Group
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTokenStore replaces the default in-memory token store.
func WithTokenStore(store TokenStore) Option {
	return func(c *Client) {
		if store != nil {
			c.store = store
		}
	}
}

// WithRefreshSkew sets how long before expiry the access token is refreshed.
func WithRefreshSkew(skew time.Duration) Option {
	return func(c *Client) {
		if skew >= 0 {
			c.skew = skew
		}
	}
}

// New creates a Client for the API rooted at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		store:   NewMemoryStore(),
		skew:    DefaultRefreshSkew,
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tokens returns the stored token pair.
func (c *Client) Tokens() (Tokens, bool) {
	return c.store.Load()
}

// User is the account summary returned by login and profile.
type User struct {
	ID      string  `json:"id"`
	Email   string  `json:"email"`
	Name    *string `json:"name"`
	IsAdmin bool    `json:"isAdmin"`
}

// RegisterRequest is the registration payload.
type RegisterRequest struct {
	Username        *string `json:"username,omitempty"`
	Email           string  `json:"email"`
	Password        string  `json:"password"`
	ConfirmPassword string  `json:"confirmPassword,omitempty"`
}

type tokensPayload struct {
	AccessToken           string `json:"accessToken"`
	RefreshToken          string `json:"refreshToken"`
	AccessTokenExpiresAt  int64  `json:"accessTokenExpiresAt"`
	RefreshTokenExpiresAt int64  `json:"refreshTokenExpiresAt"`
}

func (p tokensPayload) tokens() Tokens {
	t := Tokens{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken}
	if p.AccessTokenExpiresAt > 0 {
		t.AccessExpiresAt = time.Unix(p.AccessTokenExpiresAt, 0)
	} else {
		t.AccessExpiresAt = tokenExpiry(p.AccessToken)
	}
	if p.RefreshTokenExpiresAt > 0 {
		t.RefreshExpiresAt = time.Unix(p.RefreshTokenExpiresAt, 0)
	} else {
		t.RefreshExpiresAt = tokenExpiry(p.RefreshToken)
	}
	return t
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	return c.do(ctx, http.MethodPost, "/auth/register", "", req, nil)
}

// Login authenticates and stores the issued token pair.
func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	var resp struct {
		User   User          `json:"user"`
		Tokens tokensPayload `json:"tokens"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", body, &resp); err != nil {
		return User{}, err
	}
	c.store.Save(resp.Tokens.tokens())
	return resp.User, nil
}

// Refresh rotates the stored token pair. Concurrent calls share one request.
func (c *Client) Refresh(ctx context.Context) (Tokens, error) {
	return c.refresh(ctx, "")
}

// Logout invalidates the refresh token server-side and clears the store.
// The store is cleared even when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	defer c.store.Clear()
	return c.authed(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

// Profile returns the authenticated user.
func (c *Client) Profile(ctx context.Context) (User, error) {
	var resp struct {
		User User `json:"user"`
	}
	if err := c.authed(ctx, http.MethodGet, "/auth/profile", nil, &resp); err != nil {
		return User{}, err
	}
	return resp.User, nil
}

// authed performs an authenticated call, refreshing ahead of expiry and retrying once on 401.
func (c *Client) authed(ctx context.Context, method, path string, body, out any) error {
	tokens, ok := c.store.Load()
	if !ok {
		return ErrNotAuthenticated
	}

	if c.expiring(tokens) {
		fresh, err := c.refresh(ctx, tokens.AccessToken)
		if err != nil {
			return err
		}
		tokens = fresh
	}

	err := c.do(ctx, method, path, tokens.AccessToken, body, out)
	if !errors.Is(err, ErrUnauthorized) {
		return err
	}

	fresh, refreshErr := c.refresh(ctx, tokens.AccessToken)
	if refreshErr != nil {
		return refreshErr
	}
	return c.do(ctx, method, path, fresh.AccessToken, body, out)
}

// refresh runs at most one refresh request at a time. stale is the access token
// the caller found wanting; if another caller has already replaced it, the
// replacement is returned without a new request.
func (c *Client) refresh(ctx context.Context, stale string) (Tokens, error) {
	v, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		current, ok := c.store.Load()
		if !ok || current.RefreshToken == "" {
			return Tokens{}, ErrNotAuthenticated
		}
		if stale != "" && current.AccessToken != stale && !c.expiring(current) {
			return current, nil
		}

		var resp struct {
			Tokens tokensPayload `json:"tokens"`
		}
		body := map[string]string{"refreshToken": current.RefreshToken}
		if err := c.do(context.WithoutCancel(ctx), http.MethodPost, "/auth/refresh", "", body, &resp); err != nil {
			if isRejection(err) {
				c.store.Clear()
			}
			return Tokens{}, fmt.Errorf("refresh tokens: %w", err)
		}

		fresh := resp.Tokens.tokens()
		c.store.Save(fresh)
		return fresh, nil
	})
	if err != nil {
		return Tokens{}, err
	}
	return v.(Tokens), nil
}

func (c *Client) expiring(t Tokens) bool {
	if t.AccessExpiresAt.IsZero() {
		return false
	}
	return c.nowFunc().Add(c.skew).After(t.AccessExpiresAt)
}

func (c *Client) do(ctx context.Context, method, path, accessToken string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var envelope struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&envelope); err == nil {
		apiErr.Message = envelope.Message
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/abduss/gotodo/internal/apierr"
	"github.com/abduss/gotodo/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T, cookies config.CookieConfig) (*gin.Engine, *Service, *memoryStore) {
	t.Helper()
	store := newMemoryStore()
	service := newTestService(store)

	router := gin.New()
	RegisterRoutes(router.Group(""), service, RouteConfig{Cookies: cookies})
	router.GET("/admin/ping", Gate(service, cookies), RequireAdmin(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	return router, service, store
}

func doJSON(router http.Handler, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + token}}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apierr.Body {
	t.Helper()
	var body apierr.Body
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func loginVia(t *testing.T, router http.Handler, email, password string) loginResponse {
	t.Helper()
	rec := doJSON(router, http.MethodPost, "/auth/login", map[string]string{"email": email, "password": password}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestAuthFlow(t *testing.T) {
	router, _, _ := newTestRouter(t, config.CookieConfig{})

	rec := doJSON(router, http.MethodPost, "/auth/register", map[string]string{
		"username":        "Alice",
		"email":           "a@b.com",
		"password":        "secret1",
		"confirmPassword": "secret1",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"message":"Registration successful"}`, rec.Body.String())

	login := loginVia(t, router, "a@b.com", "secret1")
	assert.Equal(t, "Login successful", login.Message)
	assert.Equal(t, "a@b.com", login.User.Email)
	require.NotNil(t, login.User.Name)
	assert.Equal(t, "Alice", *login.User.Name)
	assert.False(t, login.User.IsAdmin)
	require.NotEmpty(t, login.Tokens.AccessToken)
	require.NotEmpty(t, login.Tokens.RefreshToken)

	rec = doJSON(router, http.MethodGet, "/auth/profile", nil, bearer(login.Tokens.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var profile profileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, "Profile retrieved successfully", profile.Message)
	assert.Equal(t, login.User, profile.User)

	rec = doJSON(router, http.MethodPost, "/auth/refresh", refreshRequest{RefreshToken: login.Tokens.RefreshToken}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var refreshed refreshResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &refreshed))
	assert.Equal(t, "Tokens refreshed successfully", refreshed.Message)
	assert.NotEqual(t, login.Tokens.RefreshToken, refreshed.Tokens.RefreshToken)

	rec = doJSON(router, http.MethodPost, "/auth/refresh", refreshRequest{RefreshToken: login.Tokens.RefreshToken}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apierr.Body{Code: 401, Message: "Invalid refresh token"}, decodeError(t, rec))

	rec = doJSON(router, http.MethodPost, "/auth/logout", nil, bearer(refreshed.Tokens.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"message":"Logged out successfully"}`, rec.Body.String())

	rec = doJSON(router, http.MethodPost, "/auth/refresh", refreshRequest{RefreshToken: refreshed.Tokens.RefreshToken}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterErrors(t *testing.T) {
	router, _, _ := newTestRouter(t, config.CookieConfig{})

	rec := doJSON(router, http.MethodPost, "/auth/register", map[string]string{"email": "a@b.com"}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apierr.Body{Code: 400, Message: "Email and password are required"}, decodeError(t, rec))

	rec = doJSON(router, http.MethodPost, "/auth/register", map[string]string{"email": "a@b.com", "password": "secret1"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(router, http.MethodPost, "/auth/register", map[string]string{"email": "a@b.com", "password": "secret2"}, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, apierr.Body{Code: 409, Message: "Email already exists"}, decodeError(t, rec))

	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	bad := httptest.NewRecorder()
	router.ServeHTTP(bad, req)
	require.Equal(t, http.StatusBadRequest, bad.Code)
	assert.Equal(t, "Invalid request body", decodeError(t, bad).Message)
}

func TestLoginFailuresShareResponse(t *testing.T) {
	router, service, _ := newTestRouter(t, config.CookieConfig{})
	registerUser(t, service, "a@b.com", "secret1")

	wrong := doJSON(router, http.MethodPost, "/auth/login", map[string]string{"email": "a@b.com", "password": "nope123"}, nil)
	unknown := doJSON(router, http.MethodPost, "/auth/login", map[string]string{"email": "x@b.com", "password": "secret1"}, nil)

	require.Equal(t, http.StatusUnauthorized, wrong.Code)
	require.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())

	missing := doJSON(router, http.MethodPost, "/auth/login", nil, nil)
	assert.Equal(t, http.StatusBadRequest, missing.Code)
}

func TestRefreshRequiresToken(t *testing.T) {
	router, _, _ := newTestRouter(t, config.CookieConfig{})

	rec := doJSON(router, http.MethodPost, "/auth/refresh", refreshRequest{}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Refresh token is required", decodeError(t, rec).Message)

	rec = doJSON(router, http.MethodPost, "/auth/refresh", refreshRequest{RefreshToken: "garbage"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutErrorsOverHTTP(t *testing.T) {
	router, _, _ := newTestRouter(t, config.CookieConfig{})

	rec := doJSON(router, http.MethodPost, "/auth/logout", nil, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apierr.Body{Code: 400, Message: "Access token is required"}, decodeError(t, rec))

	rec = doJSON(router, http.MethodPost, "/auth/logout", nil, bearer("garbage"))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apierr.Body{Code: 401, Message: "Invalid access token"}, decodeError(t, rec))
}

func TestCookieMode(t *testing.T) {
	cookies := config.CookieConfig{
		Enabled:          true,
		AccessTokenName:  "todo-token",
		RefreshTokenName: "todo-refreshToken",
		AccessMaxAge:     time.Hour,
		RefreshMaxAge:    30 * 24 * time.Hour,
	}
	router, service, _ := newTestRouter(t, cookies)
	registerUser(t, service, "a@b.com", "secret1")

	rec := doJSON(router, http.MethodPost, "/auth/login", map[string]string{"email": "a@b.com", "password": "secret1"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	byName := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		byName[c.Name] = c
	}
	access, refresh := byName["todo-token"], byName["todo-refreshToken"]
	require.NotNil(t, access)
	require.NotNil(t, refresh)
	assert.True(t, access.HttpOnly)
	assert.Equal(t, 3600, access.MaxAge)
	assert.Equal(t, 30*24*3600, refresh.MaxAge)

	// Profile through the cookie alone.
	req := httptest.NewRequest(http.MethodGet, "/auth/profile", nil)
	req.AddCookie(access)
	profile := httptest.NewRecorder()
	router.ServeHTTP(profile, req)
	require.Equal(t, http.StatusOK, profile.Code, profile.Body.String())

	// Refresh with the body omitted falls back to the cookie.
	req = httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(refresh)
	refreshed := httptest.NewRecorder()
	router.ServeHTTP(refreshed, req)
	require.Equal(t, http.StatusOK, refreshed.Code, refreshed.Body.String())

	var body refreshResponse
	require.NoError(t, json.Unmarshal(refreshed.Body.Bytes(), &body))

	logout := doJSON(router, http.MethodPost, "/auth/logout", nil, bearer(body.Tokens.AccessToken))
	require.Equal(t, http.StatusOK, logout.Code)
	for _, c := range logout.Result().Cookies() {
		assert.Empty(t, c.Value, c.Name)
		assert.Negative(t, c.MaxAge, c.Name)
	}
}

func TestAuthRoutesWithoutCookieModeIgnoreCookies(t *testing.T) {
	router, service, _ := newTestRouter(t, config.CookieConfig{AccessTokenName: "todo-token"})
	registerUser(t, service, "a@b.com", "secret1")
	login := loginVia(t, router, "a@b.com", "secret1")

	req := httptest.NewRequest(http.MethodGet, "/auth/profile", nil)
	req.AddCookie(&http.Cookie{Name: "todo-token", Value: login.Tokens.AccessToken})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

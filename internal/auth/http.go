package auth

import (
	"errors"
	"io"
	"net/http"

	"github.com/abduss/gotodo/internal/apierr"
	"github.com/abduss/gotodo/internal/config"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouteConfig carries the optional collaborators of the auth endpoints.
type RouteConfig struct {
	Cookies config.CookieConfig
	Logger  *zap.Logger
	// Limiter runs ahead of the credential endpoints (register and login).
	Limiter gin.HandlerFunc
}

// RegisterRoutes mounts authentication endpoints under /auth.
func RegisterRoutes(router *gin.RouterGroup, service *Service, cfg RouteConfig) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	handler := &httpHandler{service: service, cookies: cfg.Cookies, log: log}

	limit := cfg.Limiter
	if limit == nil {
		limit = func(c *gin.Context) { c.Next() }
	}

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", limit, handler.register)
		authGroup.POST("/login", limit, handler.login)
		authGroup.POST("/refresh", handler.refresh)
		authGroup.POST("/logout", handler.logout)
		authGroup.GET("/profile", Gate(service, cfg.Cookies), handler.profile)
	}
}

type httpHandler struct {
	service *Service
	cookies config.CookieConfig
	log     *zap.Logger
}

type registerRequest struct {
	Username        *string `json:"username"`
	Email           string  `json:"email"`
	Password        string  `json:"password"`
	ConfirmPassword string  `json:"confirmPassword"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type tokensResponse struct {
	AccessToken           string `json:"accessToken"`
	RefreshToken          string `json:"refreshToken"`
	AccessTokenExpiresAt  int64  `json:"accessTokenExpiresAt"`
	RefreshTokenExpiresAt int64  `json:"refreshTokenExpiresAt"`
}

type loginResponse struct {
	Message string         `json:"message"`
	User    UserSummary    `json:"user"`
	Tokens  tokensResponse `json:"tokens"`
}

type refreshResponse struct {
	Message string         `json:"message"`
	Tokens  tokensResponse `json:"tokens"`
}

type profileResponse struct {
	Message string      `json:"message"`
	User    UserSummary `json:"user"`
}

var errInvalidBody = apierr.Validation("Invalid request body")

func (h *httpHandler) register(c *gin.Context) {
	var req registerRequest
	if err := bindJSON(c, &req); err != nil {
		apierr.Respond(c, h.log, err)
		return
	}

	_, err := h.service.Register(c.Request.Context(), RegisterInput{
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Name:            req.Username,
	})
	if err != nil {
		apierr.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, messageResponse{Message: "Registration successful"})
}

func (h *httpHandler) login(c *gin.Context) {
	var req loginRequest
	if err := bindJSON(c, &req); err != nil {
		apierr.Respond(c, h.log, err)
		return
	}

	result, err := h.service.Login(c.Request.Context(), LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		apierr.Respond(c, h.log, err)
		return
	}

	h.setTokenCookies(c, result.Tokens)
	c.JSON(http.StatusOK, loginResponse{
		Message: "Login successful",
		User:    Summarize(result.User.Identity()),
		Tokens:  marshalTokens(result.Tokens),
	})
}

func (h *httpHandler) refresh(c *gin.Context) {
	var req refreshRequest
	if err := bindJSON(c, &req); err != nil {
		apierr.Respond(c, h.log, err)
		return
	}

	token := req.RefreshToken
	if token == "" && h.cookies.Enabled {
		token, _ = c.Cookie(h.cookies.RefreshTokenName)
	}

	result, err := h.service.Refresh(c.Request.Context(), token)
	if err != nil {
		apierr.Respond(c, h.log, err)
		return
	}

	h.setTokenCookies(c, result.Tokens)
	c.JSON(http.StatusOK, refreshResponse{
		Message: "Tokens refreshed successfully",
		Tokens:  marshalTokens(result.Tokens),
	})
}

func (h *httpHandler) logout(c *gin.Context) {
	token := requestToken(c, h.cookies)

	if err := h.service.Logout(c.Request.Context(), token); err != nil {
		apierr.Respond(c, h.log, err)
		return
	}

	h.clearTokenCookies(c)
	c.JSON(http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

func (h *httpHandler) profile(c *gin.Context) {
	claims, ok := CurrentClaims(c)
	if !ok {
		apierr.Respond(c, h.log, ErrUnauthenticated)
		return
	}

	c.JSON(http.StatusOK, profileResponse{
		Message: "Profile retrieved successfully",
		User:    h.service.Profile(claims),
	})
}

func (h *httpHandler) setTokenCookies(c *gin.Context, tokens TokenPair) {
	if !h.cookies.Enabled {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookies.AccessTokenName, tokens.AccessToken, int(h.cookies.AccessMaxAge.Seconds()), "/", h.cookies.Domain, h.cookies.Secure, true)
	c.SetCookie(h.cookies.RefreshTokenName, tokens.RefreshToken, int(h.cookies.RefreshMaxAge.Seconds()), "/", h.cookies.Domain, h.cookies.Secure, true)
}

func (h *httpHandler) clearTokenCookies(c *gin.Context) {
	if !h.cookies.Enabled {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookies.AccessTokenName, "", -1, "/", h.cookies.Domain, h.cookies.Secure, true)
	c.SetCookie(h.cookies.RefreshTokenName, "", -1, "/", h.cookies.Domain, h.cookies.Secure, true)
}

// bindJSON decodes the body into dst. An empty body leaves dst zero-valued so the
// service reports which fields are missing.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return errInvalidBody
	}
	return nil
}

func marshalTokens(tokens TokenPair) tokensResponse {
	return tokensResponse{
		AccessToken:           tokens.AccessToken,
		RefreshToken:          tokens.RefreshToken,
		AccessTokenExpiresAt:  tokens.AccessTokenExpiry.Unix(),
		RefreshTokenExpiresAt: tokens.RefreshTokenExpiry.Unix(),
	}
}

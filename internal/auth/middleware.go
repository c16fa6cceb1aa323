package auth

import (
	"context"

	"github.com/abduss/gotodo/internal/apierr"
	"github.com/abduss/gotodo/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const claimsContextKey = "gotodoClaims"

type claimsKey struct{}

// Gate validates the access token ahead of protected handlers. The bearer header
// is preferred; the access cookie is consulted only in cookie mode.
func Gate(service *Service, cookies config.CookieConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := requestToken(c, cookies)
		if token == "" {
			apierr.Respond(c, nil, ErrUnauthenticated)
			return
		}

		claims, err := service.ValidateAccessToken(token)
		if err != nil {
			apierr.Respond(c, nil, ErrAccessDenied)
			return
		}

		c.Set(claimsContextKey, claims)
		c.Request = c.Request.WithContext(ContextWithClaims(c.Request.Context(), claims))

		c.Next()
	}
}

// RequireAdmin rejects authenticated users without the admin flag. It must run after Gate.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := CurrentClaims(c)
		if !ok {
			apierr.Respond(c, nil, ErrUnauthenticated)
			return
		}
		if !claims.IsAdmin {
			apierr.Respond(c, nil, ErrAdminRequired)
			return
		}
		c.Next()
	}
}

// CurrentClaims extracts the authenticated claims from the gin context.
func CurrentClaims(c *gin.Context) (Claims, bool) {
	value, exists := c.Get(claimsContextKey)
	if !exists {
		return Claims{}, false
	}
	claims, ok := value.(Claims)
	return claims, ok
}

// RequireUser fetches the authenticated user id and claims.
func RequireUser(c *gin.Context) (uuid.UUID, Claims, bool) {
	claims, ok := CurrentClaims(c)
	if !ok || claims.UserID == uuid.Nil {
		return uuid.Nil, Claims{}, false
	}
	return claims.UserID, claims, true
}

// ContextWithClaims attaches verified claims to ctx.
func ContextWithClaims(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns claims attached by the gate.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(Claims)
	return claims, ok
}

func requestToken(c *gin.Context, cookies config.CookieConfig) string {
	if header := c.GetHeader("Authorization"); header != "" {
		token, _ := ExtractBearer(header)
		return token
	}
	if cookies.Enabled {
		if token, err := c.Cookie(cookies.AccessTokenName); err == nil {
			return token
		}
	}
	return ""
}

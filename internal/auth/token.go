package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/abduss/gotodo/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	kindAccess  = "access"
	kindRefresh = "refresh"
)

type tokenClaims struct {
	jwt.RegisteredClaims
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	IsAdmin bool   `json:"is_admin"`
	Kind    string `json:"token_type"`
}

// TokenManager issues and verifies HS256 access and refresh tokens.
type TokenManager struct {
	cfg     config.AuthConfig
	nowFunc func() time.Time
	parser  *jwt.Parser
}

// NewTokenManager builds a TokenManager from explicit settings.
func NewTokenManager(cfg config.AuthConfig) *TokenManager {
	m := &TokenManager{cfg: cfg, nowFunc: time.Now}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(func() time.Time { return m.nowFunc() }),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	m.parser = jwt.NewParser(opts...)
	return m
}

// IssueAccess signs a short-lived access token for id.
func (m *TokenManager) IssueAccess(id Identity) (string, time.Time, error) {
	return m.issue(id, kindAccess, m.cfg.AccessTokenSecret, m.cfg.AccessTokenTTL)
}

// IssueRefresh signs a long-lived refresh token for id.
func (m *TokenManager) IssueRefresh(id Identity) (string, time.Time, error) {
	return m.issue(id, kindRefresh, m.cfg.RefreshTokenSecret, m.cfg.RefreshTokenTTL)
}

// IssuePair signs both tokens for id.
func (m *TokenManager) IssuePair(id Identity) (TokenPair, error) {
	access, accessExp, err := m.IssueAccess(id)
	if err != nil {
		return TokenPair{}, fmt.Errorf("generate access token: %w", err)
	}
	refresh, refreshExp, err := m.IssueRefresh(id)
	if err != nil {
		return TokenPair{}, fmt.Errorf("generate refresh token: %w", err)
	}
	return TokenPair{
		AccessToken:        access,
		AccessTokenExpiry:  accessExp,
		RefreshToken:       refresh,
		RefreshTokenExpiry: refreshExp,
	}, nil
}

// VerifyAccess checks signature, expiry, issuer and audience of an access token.
func (m *TokenManager) VerifyAccess(token string) (Claims, error) {
	return m.verify(token, kindAccess, m.cfg.AccessTokenSecret)
}

// VerifyRefresh checks signature, expiry, issuer and audience of a refresh token.
func (m *TokenManager) VerifyRefresh(token string) (Claims, error) {
	return m.verify(token, kindRefresh, m.cfg.RefreshTokenSecret)
}

// Fingerprint is the value persisted for a refresh token: an HMAC keyed by the refresh secret.
func (m *TokenManager) Fingerprint(token string) string {
	mac := hmac.New(sha256.New, []byte(m.cfg.RefreshTokenSecret))
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

// MatchesFingerprint compares token against a stored fingerprint in constant time.
func (m *TokenManager) MatchesFingerprint(token, fingerprint string) bool {
	return hmac.Equal([]byte(m.Fingerprint(token)), []byte(fingerprint))
}

func (m *TokenManager) issue(id Identity, kind, secret string, ttl time.Duration) (string, time.Time, error) {
	now := m.nowFunc()
	expiresAt := now.Add(ttl)

	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID.String(),
			Issuer:    m.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
		Email:   id.Email,
		Name:    id.Name,
		IsAdmin: id.IsAdmin,
		Kind:    kind,
	}
	if m.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.cfg.Audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	// NumericDate truncates to seconds; report what the token actually says.
	return signed, claims.ExpiresAt.Time, nil
}

func (m *TokenManager) verify(token, kind, secret string) (Claims, error) {
	if strings.TrimSpace(token) == "" {
		return Claims{}, ErrInvalidToken
	}

	var tc tokenClaims
	parsed, err := m.parser.ParseWithClaims(token, &tc, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if tc.Kind != kind {
		return Claims{}, ErrInvalidToken
	}

	userID, err := uuid.Parse(tc.Subject)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	claims := Claims{
		Identity: Identity{
			UserID:  userID,
			Email:   tc.Email,
			Name:    tc.Name,
			IsAdmin: tc.IsAdmin,
		},
		TokenID:   tc.ID,
		Issuer:    tc.Issuer,
		ExpiresAt: tc.ExpiresAt.Time,
	}
	if tc.IssuedAt != nil {
		claims.IssuedAt = tc.IssuedAt.Time
	}
	return claims, nil
}

// ExtractBearer parses "Bearer <token>". Any other shape yields false.
func ExtractBearer(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

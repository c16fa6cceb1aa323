package auth

import (
	"testing"
	"time"

	"github.com/abduss/gotodo/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		AccessTokenSecret:  "access-secret",
		RefreshTokenSecret: "refresh-secret",
		AccessTokenTTL:     time.Minute,
		RefreshTokenTTL:    time.Hour,
		Issuer:             "gotodo",
		Audience:           "gotodo-users",
		BcryptCost:         4,
	}
}

func testIdentity() Identity {
	return Identity{UserID: uuid.New(), Email: "user@example.com", Name: "User", IsAdmin: true}
}

func TestIssueAndVerifyAccess(t *testing.T) {
	m := NewTokenManager(testAuthConfig())
	id := testIdentity()

	token, exp, err := m.IssueAccess(id)
	if err != nil {
		t.Fatalf("IssueAccess returned error: %v", err)
	}
	if time.Until(exp) > time.Minute || time.Until(exp) < 50*time.Second {
		t.Fatalf("unexpected expiry %s", exp)
	}

	claims, err := m.VerifyAccess(token)
	if err != nil {
		t.Fatalf("VerifyAccess returned error: %v", err)
	}
	if claims.Identity != id {
		t.Fatalf("expected identity %+v, got %+v", id, claims.Identity)
	}
	if claims.Issuer != "gotodo" || claims.TokenID == "" {
		t.Fatalf("unexpected registered claims %+v", claims)
	}
}

func TestTokenKindsAreNotInterchangeable(t *testing.T) {
	m := NewTokenManager(testAuthConfig())
	pair, err := m.IssuePair(testIdentity())
	if err != nil {
		t.Fatalf("IssuePair returned error: %v", err)
	}

	if _, err := m.VerifyAccess(pair.RefreshToken); err != ErrInvalidToken {
		t.Fatalf("expected refresh token to fail access verification, got %v", err)
	}
	if _, err := m.VerifyRefresh(pair.AccessToken); err != ErrInvalidToken {
		t.Fatalf("expected access token to fail refresh verification, got %v", err)
	}
	if _, err := m.VerifyRefresh(pair.RefreshToken); err != nil {
		t.Fatalf("expected refresh token to verify, got %v", err)
	}
}

func TestSameKindWithSharedSecretStillRejected(t *testing.T) {
	cfg := testAuthConfig()
	cfg.RefreshTokenSecret = cfg.AccessTokenSecret
	m := NewTokenManager(cfg)

	refresh, _, err := m.IssueRefresh(testIdentity())
	if err != nil {
		t.Fatalf("IssueRefresh returned error: %v", err)
	}
	if _, err := m.VerifyAccess(refresh); err != ErrInvalidToken {
		t.Fatalf("expected token kind check to reject, got %v", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	m := NewTokenManager(testAuthConfig())
	m.nowFunc = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := m.IssueAccess(testIdentity())
	if err != nil {
		t.Fatalf("IssueAccess returned error: %v", err)
	}

	m.nowFunc = time.Now
	if _, err := m.VerifyAccess(token); err != ErrInvalidToken {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}
}

func TestVerifyRejectsForeignTokens(t *testing.T) {
	m := NewTokenManager(testAuthConfig())
	id := testIdentity()

	other := testAuthConfig()
	other.AccessTokenSecret = "someone-else"
	forged, _, err := NewTokenManager(other).IssueAccess(id)
	if err != nil {
		t.Fatalf("issue forged token: %v", err)
	}

	wrongAudience := testAuthConfig()
	wrongAudience.Audience = "another-app"
	foreign, _, err := NewTokenManager(wrongAudience).IssueAccess(id)
	if err != nil {
		t.Fatalf("issue foreign token: %v", err)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": id.UserID.String(), "exp": time.Now().Add(time.Hour).Unix(), "token_type": kindAccess,
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}

	for name, token := range map[string]string{
		"bad signature":  forged,
		"wrong audience": foreign,
		"alg none":       unsigned,
		"malformed":      "not.a.jwt",
		"empty":          "",
	} {
		if _, err := m.VerifyAccess(token); err != ErrInvalidToken {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestIssuedPairsAreUnique(t *testing.T) {
	m := NewTokenManager(testAuthConfig())
	id := testIdentity()

	first, err := m.IssuePair(id)
	if err != nil {
		t.Fatalf("IssuePair returned error: %v", err)
	}
	second, err := m.IssuePair(id)
	if err != nil {
		t.Fatalf("IssuePair returned error: %v", err)
	}
	if first.RefreshToken == second.RefreshToken || first.AccessToken == second.AccessToken {
		t.Fatalf("expected distinct tokens within the same second")
	}
}

func TestFingerprint(t *testing.T) {
	m := NewTokenManager(testAuthConfig())

	fp := m.Fingerprint("token-a")
	if fp == "token-a" || len(fp) != 64 {
		t.Fatalf("unexpected fingerprint %q", fp)
	}
	if !m.MatchesFingerprint("token-a", fp) {
		t.Fatalf("expected fingerprint to match")
	}
	if m.MatchesFingerprint("token-b", fp) {
		t.Fatalf("expected different token not to match")
	}
}

func TestExtractBearer(t *testing.T) {
	cases := map[string]struct {
		token string
		ok    bool
	}{
		"Bearer abc.def": {"abc.def", true},
		"Bearer ":        {"", false},
		"bearer abc":     {"", false},
		"Basic abc":      {"", false},
		"Bearer abc def": {"", false},
		"Bearer  abc":    {"", false},
		"abc":            {"", false},
		"":               {"", false},
		"Bearer x.y.z":   {"x.y.z", true},
	}

	for header, want := range cases {
		token, ok := ExtractBearer(header)
		if token != want.token || ok != want.ok {
			t.Fatalf("ExtractBearer(%q) = %q, %v; want %q, %v", header, token, ok, want.token, want.ok)
		}
	}
}

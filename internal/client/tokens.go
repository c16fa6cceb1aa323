package client

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Tokens is the pair held by a TokenStore.
type Tokens struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// TokenStore persists the current token pair. Implementations must be safe for concurrent use.
type TokenStore interface {
	Load() (Tokens, bool)
	Save(Tokens)
	Clear()
}

// MemoryStore keeps tokens in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens Tokens
	ok     bool
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load() (Tokens, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens, s.ok
}

func (s *MemoryStore) Save(t Tokens) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens, s.ok = t, true
}

func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens, s.ok = Tokens{}, false
}

// tokenExpiry reads the exp claim without verifying the signature; the client
// only needs it to schedule refreshes. A zero time means unknown.
func tokenExpiry(token string) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

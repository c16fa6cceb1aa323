package auth

import (
	"time"

	"github.com/google/uuid"
)

// User represents an application account.
type User struct {
	ID               uuid.UUID
	Email            string
	Name             *string
	PasswordHash     string
	IsActive         bool
	IsAdmin          bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
	LastLogin        *time.Time
	RefreshTokenHash *string
}

// SafeUser removes sensitive fields for response payloads.
func (u User) SafeUser() User {
	u.PasswordHash = ""
	u.RefreshTokenHash = nil
	return u
}

// Identity returns the claim set embedded in tokens issued for u.
func (u User) Identity() Identity {
	id := Identity{UserID: u.ID, Email: u.Email, IsAdmin: u.IsAdmin}
	if u.Name != nil {
		id.Name = *u.Name
	}
	return id
}

// Identity is the user portion of a token's claims.
type Identity struct {
	UserID  uuid.UUID
	Email   string
	Name    string
	IsAdmin bool
}

// Claims is a verified token's content.
type Claims struct {
	Identity
	TokenID   string
	Issuer    string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// TokenPair bundles access and refresh tokens.
type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

// UserSummary is the public view of a user returned by login and profile.
type UserSummary struct {
	ID      string  `json:"id"`
	Email   string  `json:"email"`
	Name    *string `json:"name"`
	IsAdmin bool    `json:"isAdmin"`
}

// Summarize converts an identity into its public view.
func Summarize(id Identity) UserSummary {
	s := UserSummary{ID: id.UserID.String(), Email: id.Email, IsAdmin: id.IsAdmin}
	if id.Name != "" {
		name := id.Name
		s.Name = &name
	}
	return s
}

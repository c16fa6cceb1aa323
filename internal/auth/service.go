package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/abduss/gotodo/internal/apierr"
	"github.com/abduss/gotodo/internal/config"
	"github.com/abduss/gotodo/internal/events"
	"github.com/abduss/gotodo/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// userStore abstracts the persistence layer.
type userStore interface {
	CreateUser(ctx context.Context, input NewUser) (User, error)
	FindUserByEmail(ctx context.Context, email string) (User, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (User, error)
	StoreRefreshToken(ctx context.Context, userID uuid.UUID, fingerprint string, loginAt *time.Time) error
	ClearRefreshToken(ctx context.Context, userID uuid.UUID) error
	SetAdmin(ctx context.Context, userID uuid.UUID, isAdmin bool) error
}

// Service encapsulates authentication use cases.
type Service struct {
	store     userStore
	tokens    *TokenManager
	cost      int
	publisher events.Publisher
	log       *zap.Logger
	nowFunc   func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// Option customizes a Service.
type Option func(*Service)

// WithPublisher sets the domain event publisher.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// NewService creates a Service with dependencies.
func NewService(store userStore, cfg config.AuthConfig, opts ...Option) *Service {
	s := &Service{
		store:     store,
		tokens:    NewTokenManager(cfg),
		cost:      cfg.BcryptCost,
		publisher: events.NopPublisher{},
		log:       zap.NewNop(),
		nowFunc:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tokens exposes the token manager used by the service.
func (s *Service) Tokens() *TokenManager {
	return s.tokens
}

// RegisterInput carries data for user registration.
type RegisterInput struct {
	Email           string
	Password        string
	ConfirmPassword string
	Name            *string
}

// LoginInput carries login credentials.
type LoginInput struct {
	Email    string
	Password string
}

// AuthResult contains user and token information.
type AuthResult struct {
	User   User
	Tokens TokenPair
}

// Register validates input and creates an active, non-admin account. No tokens are issued.
func (s *Service) Register(ctx context.Context, input RegisterInput) (User, error) {
	user, err := s.createUser(ctx, input, false)
	if err != nil {
		metrics.ObserveAuth("register", outcome(err))
		return User{}, err
	}

	metrics.ObserveAuth("register", "success")
	s.publish(ctx, events.UserRegistered, user.ID, user.Email)
	return user.SafeUser(), nil
}

// CreateAdmin creates an account with the admin flag set.
func (s *Service) CreateAdmin(ctx context.Context, input RegisterInput) (User, error) {
	user, err := s.createUser(ctx, input, true)
	if err != nil {
		return User{}, err
	}
	s.publish(ctx, events.UserRegistered, user.ID, user.Email)
	return user.SafeUser(), nil
}

// Promote grants the admin flag to an existing account.
func (s *Service) Promote(ctx context.Context, email string) (User, error) {
	user, err := s.store.FindUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return User{}, err
	}
	if err := s.store.SetAdmin(ctx, user.ID, true); err != nil {
		return User{}, err
	}
	user.IsAdmin = true
	return user.SafeUser(), nil
}

func (s *Service) createUser(ctx context.Context, input RegisterInput, admin bool) (User, error) {
	email := normalizeEmail(input.Email)
	if err := validateRegistration(email, input.Password, input.ConfirmPassword); err != nil {
		return User{}, err
	}

	if _, err := s.store.FindUserByEmail(ctx, email); err == nil {
		return User{}, ErrEmailAlreadyExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return User{}, fmt.Errorf("find user: %w", err)
	}

	hashedPassword, err := HashPassword(input.Password, s.cost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	name := input.Name
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		name = &trimmed
		if trimmed == "" {
			name = nil
		}
	}

	user, err := s.store.CreateUser(ctx, NewUser{
		Email:        email,
		Name:         name,
		PasswordHash: hashedPassword,
		IsAdmin:      admin,
	})
	if err != nil {
		if errors.Is(err, ErrEmailAlreadyExists) {
			return User{}, ErrEmailAlreadyExists
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login authenticates credentials and issues a fresh token pair.
// Unknown emails and wrong passwords produce the same error after comparable work.
func (s *Service) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	result, err := s.login(ctx, input)
	metrics.ObserveAuth("login", outcome(err))
	return result, err
}

func (s *Service) login(ctx context.Context, input LoginInput) (AuthResult, error) {
	email := normalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return AuthResult{}, ErrMissingCredentials
	}

	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			VerifyPassword(input.Password, s.dummyDigest())
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, fmt.Errorf("find user: %w", err)
	}

	if !VerifyPassword(input.Password, user.PasswordHash) || !user.IsActive {
		return AuthResult{}, ErrInvalidCredentials
	}

	loginAt := s.nowFunc().UTC()
	tokens, err := s.rotate(ctx, user, &loginAt)
	if err != nil {
		return AuthResult{}, err
	}
	user.LastLogin = &loginAt

	s.publish(ctx, events.UserLoggedIn, user.ID, user.Email)
	return AuthResult{User: user.SafeUser(), Tokens: tokens}, nil
}

// Refresh exchanges the user's current refresh token for a new pair.
// Superseded tokens are rejected even when their signature is still valid.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (AuthResult, error) {
	result, err := s.refresh(ctx, refreshToken)
	metrics.ObserveAuth("refresh", outcome(err))
	return result, err
}

func (s *Service) refresh(ctx context.Context, refreshToken string) (AuthResult, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return AuthResult{}, ErrRefreshTokenRequired
	}

	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return AuthResult{}, ErrInvalidRefreshToken
	}

	user, err := s.store.FindUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return AuthResult{}, ErrInvalidRefreshToken
		}
		return AuthResult{}, fmt.Errorf("find user: %w", err)
	}

	if !user.IsActive || user.RefreshTokenHash == nil ||
		!s.tokens.MatchesFingerprint(refreshToken, *user.RefreshTokenHash) {
		return AuthResult{}, ErrInvalidRefreshToken
	}

	tokens, err := s.rotate(ctx, user, nil)
	if err != nil {
		return AuthResult{}, err
	}

	s.publish(ctx, events.UserTokenRefreshed, user.ID, user.Email)
	return AuthResult{User: user.SafeUser(), Tokens: tokens}, nil
}

// Logout verifies the access token and clears the user's stored refresh token.
func (s *Service) Logout(ctx context.Context, accessToken string) error {
	if strings.TrimSpace(accessToken) == "" {
		return ErrAccessTokenRequired
	}

	claims, err := s.tokens.VerifyAccess(accessToken)
	if err != nil {
		metrics.ObserveAuth("logout", "rejected")
		return ErrInvalidAccessToken
	}

	if err := s.store.ClearRefreshToken(ctx, claims.UserID); err != nil {
		metrics.ObserveAuth("logout", "error")
		return fmt.Errorf("clear refresh token: %w", err)
	}

	metrics.ObserveAuth("logout", "success")
	s.publish(ctx, events.UserLoggedOut, claims.UserID, claims.Email)
	return nil
}

// ValidateAccessToken verifies the token signature and extracts user claims.
func (s *Service) ValidateAccessToken(token string) (Claims, error) {
	return s.tokens.VerifyAccess(token)
}

// Profile returns the public summary of the authenticated user.
func (s *Service) Profile(claims Claims) UserSummary {
	return Summarize(claims.Identity)
}

func (s *Service) rotate(ctx context.Context, user User, loginAt *time.Time) (TokenPair, error) {
	tokens, err := s.tokens.IssuePair(user.Identity())
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.store.StoreRefreshToken(ctx, user.ID, s.tokens.Fingerprint(tokens.RefreshToken), loginAt); err != nil {
		return TokenPair{}, fmt.Errorf("store refresh token: %w", err)
	}
	return tokens, nil
}

func (s *Service) publish(ctx context.Context, eventType string, userID uuid.UUID, email string) {
	if err := s.publisher.Publish(ctx, events.NewEvent(eventType, userID.String(), email)); err != nil {
		s.log.Warn("publish auth event", zap.String("type", eventType), zap.Error(err))
	}
}

// dummyDigest is compared against when the email is unknown so both login failures cost a bcrypt run.
func (s *Service) dummyDigest() string {
	s.dummyOnce.Do(func() {
		digest, err := HashPassword("gotodo-timing-equalizer", s.cost)
		if err == nil {
			s.dummyHash = digest
		}
	})
	return s.dummyHash
}

func validateRegistration(email, password, confirm string) error {
	if email == "" || strings.TrimSpace(password) == "" {
		return ErrMissingCredentials
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return ErrPasswordLength
	}
	if confirm != "" && confirm != password {
		return ErrPasswordMismatch
	}
	return nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrInvalidRefreshToken):
		return "rejected"
	case errors.Is(err, ErrEmailAlreadyExists):
		return "conflict"
	case apierr.Status(err) == http.StatusBadRequest:
		return "invalid"
	default:
		return "error"
	}
}

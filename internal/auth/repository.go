package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultQueryTimeout = 5 * time.Second

const userColumns = `id, email, name, password_hash, is_active, is_admin, created_at, updated_at, last_login, refresh_token`

// NewUser carries the fields set when an account is created.
type NewUser struct {
	Email        string
	Name         *string
	PasswordHash string
	IsAdmin      bool
}

// Repository provides database access for authentication concerns.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a new Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateUser persists a new active user record.
func (r *Repository) CreateUser(ctx context.Context, input NewUser) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	query := `
INSERT INTO users (email, name, password_hash, is_active, is_admin)
VALUES ($1, $2, $3, TRUE, $4)
RETURNING ` + userColumns + `;`

	user, err := scanUser(r.pool.QueryRow(ctx, query, normalizeEmail(input.Email), input.Name, input.PasswordHash, input.IsAdmin))
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrEmailAlreadyExists
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// FindUserByEmail fetches a user by normalized email.
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1;`

	user, err := scanUser(r.pool.QueryRow(ctx, query, normalizeEmail(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("find user by email: %w", err)
	}
	return user, nil
}

// FindUserByID fetches a user by identifier.
func (r *Repository) FindUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1;`

	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("find user by id: %w", err)
	}
	return user, nil
}

// StoreRefreshToken overwrites the user's single live refresh token fingerprint.
// A non-nil loginAt also records the last login time.
func (r *Repository) StoreRefreshToken(ctx context.Context, userID uuid.UUID, fingerprint string, loginAt *time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	query := `
UPDATE users
SET refresh_token = $2,
    last_login    = COALESCE($3, last_login),
    updated_at    = NOW()
WHERE id = $1;`

	tag, err := r.pool.Exec(ctx, query, userID, fingerprint, loginAt)
	if err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ClearRefreshToken removes the user's live refresh token.
func (r *Repository) ClearRefreshToken(ctx context.Context, userID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	query := `UPDATE users SET refresh_token = NULL, updated_at = NOW() WHERE id = $1;`

	if _, err := r.pool.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}

// SetAdmin grants or revokes the admin flag.
func (r *Repository) SetAdmin(ctx context.Context, userID uuid.UUID, isAdmin bool) error {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `UPDATE users SET is_admin = $2, updated_at = NOW() WHERE id = $1;`, userID, isAdmin)
	if err != nil {
		return fmt.Errorf("set admin: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (User, error) {
	var user User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.IsActive,
		&user.IsAdmin,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.LastLogin,
		&user.RefreshTokenHash,
	)
	return user, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

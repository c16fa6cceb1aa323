package auth

import (
	"errors"

	"github.com/abduss/gotodo/internal/apierr"
)

var (
	// ErrMissingCredentials is returned when email or password is blank.
	ErrMissingCredentials = apierr.Validation("Email and password are required")
	// ErrInvalidEmail is returned for an email that does not parse as an address.
	ErrInvalidEmail = apierr.Validation("Invalid email address")
	// ErrPasswordLength rejects passwords outside the accepted length range.
	ErrPasswordLength = apierr.Validation("Password must be between 6 and 72 characters")
	// ErrPasswordMismatch is returned when the confirmation differs from the password.
	ErrPasswordMismatch = apierr.Validation("Passwords must match")
	// ErrEmailAlreadyExists indicates the email is already registered.
	ErrEmailAlreadyExists = apierr.Conflict("Email already exists")
	// ErrInvalidCredentials covers both unknown emails and wrong passwords.
	ErrInvalidCredentials = apierr.Unauthorized("Email or password is incorrect")
	// ErrRefreshTokenRequired is returned when a refresh request carries no token.
	ErrRefreshTokenRequired = apierr.Validation("Refresh token is required")
	// ErrInvalidRefreshToken covers bad, expired and superseded refresh tokens.
	ErrInvalidRefreshToken = apierr.Unauthorized("Invalid refresh token")
	// ErrAccessTokenRequired is returned by logout when no bearer token is present.
	ErrAccessTokenRequired = apierr.Validation("Access token is required")
	// ErrInvalidAccessToken is returned by logout for a token that fails verification.
	ErrInvalidAccessToken = apierr.Unauthorized("Invalid access token")
	// ErrUnauthenticated is written by the request gate when no token is present.
	ErrUnauthenticated = apierr.Unauthorized("Access token is required")
	// ErrAccessDenied is written by the request gate when the token fails verification.
	ErrAccessDenied = apierr.Unauthorized("Invalid or expired access token")
	// ErrAdminRequired is written when a non-admin reaches an admin route.
	ErrAdminRequired = apierr.Forbidden("Admin access required")
	// ErrUserNotFound signals that the user could not be located.
	ErrUserNotFound = apierr.NotFound("User not found")

	// ErrInvalidToken is the single verification failure returned by TokenManager.
	ErrInvalidToken = errors.New("invalid token")
)

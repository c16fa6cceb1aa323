package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 6
	maxPasswordLength = 72 // bcrypt limit
)

// HashPassword returns a salted bcrypt digest of plaintext at the given cost.
func HashPassword(plaintext string, cost int) (string, error) {
	if plaintext == "" {
		return "", errors.New("password is empty")
	}
	if len(plaintext) > maxPasswordLength {
		return "", fmt.Errorf("password exceeds maximum length of %d bytes", maxPasswordLength)
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// VerifyPassword reports whether plaintext matches digest. A malformed digest is a mismatch.
func VerifyPassword(plaintext, digest string) bool {
	if digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

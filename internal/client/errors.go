package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized matches any *APIError carrying status 401.
	ErrUnauthorized = errors.New("client: unauthorized")
	// ErrNotAuthenticated is returned by authenticated calls when no tokens are stored.
	ErrNotAuthenticated = errors.New("client: not authenticated")
)

// APIError is a non-2xx response decoded from the service's error envelope.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gotodo api: %d %s", e.Status, e.Message)
}

// Is reports whether the error is a 401 when target is ErrUnauthorized.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

func isRejection(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500
}

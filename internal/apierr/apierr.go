// Package apierr defines the single error envelope returned by every endpoint.
package apierr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Error is an error that knows its HTTP status and client-facing message.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Body is the JSON envelope written for failures.
type Body struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// New returns an Error with the given status and message.
func New(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

func Validation(message string) *Error   { return New(http.StatusBadRequest, message) }
func Unauthorized(message string) *Error { return New(http.StatusUnauthorized, message) }
func Forbidden(message string) *Error    { return New(http.StatusForbidden, message) }
func NotFound(message string) *Error     { return New(http.StatusNotFound, message) }
func Conflict(message string) *Error     { return New(http.StatusConflict, message) }

// TooManyRequests is used by the rate limiter.
func TooManyRequests(message string) *Error { return New(http.StatusTooManyRequests, message) }

const internalMessage = "Internal server error"

// Status reports the HTTP status that Respond would write for err.
func Status(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return http.StatusInternalServerError
}

// Respond writes err as the canonical envelope and aborts the chain.
// Errors that are not *Error become a 500 and their detail is logged, not returned.
func Respond(c *gin.Context, log *zap.Logger, err error) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		c.AbortWithStatusJSON(apiErr.Status, Body{Code: apiErr.Status, Message: apiErr.Message})
		return
	}

	if log != nil {
		log.Error("unhandled request error",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, Body{Code: http.StatusInternalServerError, Message: internalMessage})
}

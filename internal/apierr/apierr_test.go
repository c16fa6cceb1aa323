package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errDuplicate = Conflict("Email already exists")

func serve(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/", func(c *gin.Context) { Respond(c, zap.NewNop(), err) })

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	return rr
}

func TestRespondUsesErrorStatus(t *testing.T) {
	rr := serve(t, fmt.Errorf("register: %w", errDuplicate))

	require.Equal(t, http.StatusConflict, rr.Code)
	var body Body
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, Body{Code: http.StatusConflict, Message: "Email already exists"}, body)
}

func TestRespondHidesInternalDetail(t *testing.T) {
	rr := serve(t, errors.New("pq: connection refused"))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	var body Body
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "Internal server error", body.Message)
	assert.Equal(t, http.StatusInternalServerError, body.Code)
}

func TestStatus(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, Status(Unauthorized("nope")))
	assert.Equal(t, http.StatusForbidden, Status(fmt.Errorf("wrapped: %w", Forbidden("no"))))
	assert.Equal(t, http.StatusInternalServerError, Status(errors.New("plain")))
}

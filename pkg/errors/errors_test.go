package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound, ErrInvalidInput, ErrUnauthorized, ErrConflict,
		ErrInternal, ErrServiceUnavail, ErrUpstream,
	}

	for i := 0; i < len(sentinels); i++ {
		for j := i + 1; j < len(sentinels); j++ {
			assert.NotEqual(t, sentinels[i], sentinels[j],
				"sentinels %d and %d should be distinct", i, j)
		}
	}
}

func TestAppError_ErrorString(t *testing.T) {
	withCause := &AppError{Code: "INTERNAL_ERROR", Message: "something broke", Err: fmt.Errorf("redis down")}
	assert.Equal(t, "INTERNAL_ERROR: something broke: redis down", withCause.Error())

	bare := &AppError{Code: "NOT_FOUND", Message: "gone"}
	assert.Equal(t, "NOT_FOUND: gone", bare.Error())
}

func TestConstructors_StatusAndSentinel(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		status   int
		sentinel error
	}{
		{"not found", NotFound("session", "abc"), http.StatusNotFound, ErrNotFound},
		{"invalid input", InvalidInput("bad"), http.StatusBadRequest, ErrInvalidInput},
		{"unauthorized", Unauthorized("who"), http.StatusUnauthorized, ErrUnauthorized},
		{"conflict", Conflict("STOCK_EXCEEDED", "full"), http.StatusConflict, ErrConflict},
		{"upstream", Upstream("catalog", errors.New("dial tcp")), http.StatusBadGateway, ErrUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.Status)
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
		})
	}
}

func TestNotFound_Message(t *testing.T) {
	err := NotFound("session", "s-1")
	assert.Equal(t, "session with id s-1 not found", err.Message)
}

func TestUpstream_KeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Upstream("students", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "students is unavailable", err.Message)
}

func TestInternal_HidesCause(t *testing.T) {
	cause := errors.New("secret detail")
	err := Internal(cause)

	assert.Equal(t, "an internal error occurred", err.Message)
	assert.ErrorIs(t, err, cause)
}

func TestHTTPStatus_WrappedSentinels(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(Wrap(ErrNotFound, "load")))
	assert.Equal(t, http.StatusConflict, HTTPStatus(fmt.Errorf("save: %w", ErrConflict)))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(ErrServiceUnavail))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(ErrUpstream))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}

func TestHTTPStatus_WrappedAppError(t *testing.T) {
	err := fmt.Errorf("handler: %w", InvalidInput("nope"))

	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
}

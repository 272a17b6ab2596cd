package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	assert.Equal(t, "Op: msg: dial tcp: refused", E(CodeUnavailable, "Op", "msg", cause).Error())
	assert.Equal(t, "Op: msg", E(CodeConflict, "Op", "msg", nil).Error())
	assert.Equal(t, "msg", E(CodeConflict, "", "msg", nil).Error())
	assert.Equal(t, "CONFLICT", E(CodeConflict, "", "", nil).Error())
}

func TestCodesThroughWrapping(t *testing.T) {
	err := fmt.Errorf("submit: %w", E(CodeSessionTransport, "HTTPClient.SubmitAnswer", "upload failed", nil))

	assert.True(t, IsCode(err, CodeSessionTransport))
	assert.False(t, IsCode(err, CodeInternal))
	assert.Equal(t, CodeSessionTransport, CodeOf(err))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
	assert.True(t, Retryable(err))
	assert.False(t, Retryable(E(CodeInvalidArgument, "", "", nil)))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[error]int{
		E(CodeInvalidArgument, "", "", nil):    http.StatusBadRequest,
		E(CodeConflict, "", "", nil):           http.StatusConflict,
		E(CodeUnavailable, "", "", nil):        http.StatusServiceUnavailable,
		E(CodeDeviceUnavailable, "", "", nil):  http.StatusInternalServerError,
		fmt.Errorf("repo: %w", ErrNotFound):    http.StatusNotFound,
		errors.New("boom"):                     http.StatusInternalServerError,
		E(CodeNotFound, "", "", ErrNotFound):   http.StatusNotFound,
		E(CodeForbidden, "", "", nil):          http.StatusForbidden,
		E(CodeUnauthorized, "", "", nil):       http.StatusUnauthorized,
		E(CodeTimeout, "", "", nil):            http.StatusGatewayTimeout,
		E(CodeSessionTransport, "", "", nil):   http.StatusBadGateway,
		E(CodeInvariantViolation, "", "", nil): http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, HTTPStatus(err), err.Error())
	}
}

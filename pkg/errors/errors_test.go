package errors

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructorsWrapSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		sentinel error
		code     string
	}{
		{"unauthorized", Unauthorized("no token"), ErrUnauthorized, "UNAUTHORIZED"},
		{"forbidden", Forbidden("denied"), ErrForbidden, "FORBIDDEN"},
		{"bad request", BadRequest("bad body"), ErrBadRequest, "BAD_REQUEST"},
		{"unavailable", Unavailable("no file"), ErrUnavailable, "UNAVAILABLE"},
		{"internal nil", InternalServer("boom", nil), ErrInternalServer, "INTERNAL_SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(tt.err, tt.sentinel))
			assert.Equal(t, tt.code, tt.err.Code)
		})
	}
}

func TestInternalServerWrapsCause(t *testing.T) {
	err := InternalServer("read failed", io.ErrUnexpectedEOF)

	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	assert.Equal(t, "read failed: unexpected EOF", err.Error())
}

func TestAppErrorMessage(t *testing.T) {
	err := &AppError{Code: "X", Message: "plain"}
	assert.Equal(t, "plain", err.Error())
}

package vehicledb

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormat(t *testing.T) {
	err := NewError(ErrCodeNotFound, "vehicle ABC-1234 not found")
	assert.Equal(t, "[NOT_FOUND] vehicle ABC-1234 not found", err.Error())

	wrapped := WrapError(ErrCodeStoreFailure, "store request failed", errors.New("boom"))
	assert.Equal(t, "[STORE_FAILURE] store request failed: boom", wrapped.Error())
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := WrapError(ErrCodeStoreFailure, "store request failed", cause)

	assert.ErrorIs(t, err, cause)
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodeConflict, ErrorCode(NewError(ErrCodeConflict, "exists")))
	assert.Equal(t, ErrCodeStoreFailure, ErrorCode(errors.New("opaque")))

	// Codes survive further wrapping
	err := fmt.Errorf("handler: %w", NewError(ErrCodeUnauthorized, "no session"))
	assert.Equal(t, ErrCodeUnauthorized, ErrorCode(err))
}

func TestErrorPredicates(t *testing.T) {
	assert.True(t, IsUnauthorized(NewError(ErrCodeUnauthorized, "x")))
	assert.True(t, IsValidation(NewError(ErrCodeValidation, "x")))
	assert.True(t, IsConflict(NewError(ErrCodeConflict, "x")))
	assert.True(t, IsNotFound(NewError(ErrCodeNotFound, "x")))
	assert.True(t, IsStoreFailure(NewError(ErrCodeStoreFailure, "x")))

	assert.False(t, IsConflict(NewError(ErrCodeNotFound, "x")))
	assert.False(t, IsNotFound(errors.New("opaque")))
}

package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	digest, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", digest)

	assert.True(t, VerifyPassword("hunter2", digest))
	assert.False(t, VerifyPassword("hunter3", digest))
	assert.False(t, VerifyPassword("hunter2", "not-a-digest"))
}

func TestHashIsSalted(t *testing.T) {
	first, err := HashPassword("same-password")
	require.NoError(t, err)
	second, err := HashPassword("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	hashed, err := HashPassword("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hashed)

	assert.NoError(t, CheckPassword(hashed, "secret123"))
	assert.ErrorIs(t, CheckPassword(hashed, "secret124"), bcrypt.ErrMismatchedHashAndPassword)
}

package hirewire_test

import (
	"testing"

	"github.com/hirewire/hirewire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := hirewire.HashPassword("securePassword123!")
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	assert.NoError(t, hirewire.ComparePasswordAndHash("securePassword123!", hash))
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	// bcrypt would happily hash "", the guard sits in front of it
	_, err := hirewire.HashPassword("")
	assert.Error(t, err)
}

func TestComparePasswordAndHash(t *testing.T) {
	hash, err := hirewire.HashPassword("testPassword123!")
	require.NoError(t, err)

	t.Run("matching password", func(t *testing.T) {
		assert.NoError(t, hirewire.ComparePasswordAndHash("testPassword123!", hash))
	})

	t.Run("wrong password", func(t *testing.T) {
		err := hirewire.ComparePasswordAndHash("wrongPassword", hash)
		assert.Equal(t, hirewire.ErrMismatchedHashAndPassword, err)
	})

	t.Run("garbage hash", func(t *testing.T) {
		assert.Error(t, hirewire.ComparePasswordAndHash("testPassword123!", "invalidhash"))
	})
}

func TestRandomPasswordHashIsUnique(t *testing.T) {
	hash1 := hirewire.RandomPasswordHash()
	hash2 := hirewire.RandomPasswordHash()

	assert.NotEmpty(t, hash1)
	assert.NotEmpty(t, hash2)
	assert.NotEqual(t, hash1, hash2)
}

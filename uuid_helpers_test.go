package hirewire_test

import (
	"testing"

	"github.com/hirewire/hirewire"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestHasUserUUID(t *testing.T) {
	t.Run("uuid subject", func(t *testing.T) {
		session := &hirewire.SessionObject{
			UserID: uuid.NewString(),
		}

		assert.True(t, hirewire.HasUserUUID(session))
	})

	t.Run("auth0 subject", func(t *testing.T) {
		session := &hirewire.SessionObject{
			UserID: "auth0|1234567890",
		}

		assert.False(t, hirewire.HasUserUUID(session))
	})

	t.Run("nil session", func(t *testing.T) {
		assert.False(t, hirewire.HasUserUUID(nil))
	})
}

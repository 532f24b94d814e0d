package hirewire_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hirewire/hirewire"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionWithData(userID string, data map[string]any) *hirewire.SessionObject {
	now := time.Now()
	return &hirewire.SessionObject{
		UserID:   userID,
		Audience: []string{"hirewire:web"},
		Issuer:   "hirewire",
		IssuedAt: &now,
		Data:     data,
	}
}

func TestSessionObjectGetters(t *testing.T) {
	userID := uuid.NewString()
	now := time.Now()
	data := map[string]any{"role": "member"}

	session := &hirewire.SessionObject{
		UserID:         userID,
		Audience:       []string{"hirewire:web"},
		Issuer:         "hirewire",
		IssuedAt:       &now,
		ExpirationDate: &now,
		Data:           data,
	}

	assert.Equal(t, userID, session.GetUserID())
	assert.Equal(t, []string{"hirewire:web"}, session.GetAudience())
	assert.Equal(t, "hirewire", session.GetIssuer())
	assert.Equal(t, &now, session.GetIssuedAt())
	assert.Equal(t, data, session.GetData())

	parsed, err := session.GetUserUUID()
	require.NoError(t, err)
	assert.Equal(t, userID, parsed.String())

	str := session.String()
	assert.Contains(t, str, userID)
	assert.Contains(t, str, "hirewire")
}

func TestSessionFromSignedToken(t *testing.T) {
	userID := uuid.NewString()
	now := time.Now()

	claims := jwt.MapClaims{
		"sub":  userID,
		"aud":  []string{"hirewire:web"},
		"iss":  "hirewire",
		"iat":  jwt.NewNumericDate(now),
		"exp":  jwt.NewNumericDate(now.Add(time.Hour)),
		"uid":  userID,
		"role": "member",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte("test-signing-key"))
	require.NoError(t, err)

	auther := hirewire.NewAuthenticator(&staticIdentityProvider{}, &staticConfig{})

	session, err := auther.SessionFromToken(tokenString)
	require.NoError(t, err)

	assert.Equal(t, userID, session.GetUserID())
	assert.Equal(t, []string{"hirewire:web"}, session.GetAudience())
	assert.Equal(t, "hirewire", session.GetIssuer())
	assert.Equal(t, "member", session.GetData()["role"])
}

// staticIdentityProvider answers every lookup with the same member identity.
type staticIdentityProvider struct{}

func (p *staticIdentityProvider) VerifyIdentity(ctx context.Context, identifier, password string) (hirewire.Identity, error) {
	return &staticIdentity{id: uuid.NewString()}, nil
}

func (p *staticIdentityProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (hirewire.Identity, error) {
	return &staticIdentity{id: identifier}, nil
}

type staticIdentity struct {
	id string
}

func (i *staticIdentity) ID() string       { return i.id }
func (i *staticIdentity) Username() string { return "grace" }
func (i *staticIdentity) Email() string    { return "grace@example.com" }
func (i *staticIdentity) Role() string     { return "member" }

// staticConfig is a plain-struct Config for tests that never change values.
type staticConfig struct{}

func (c *staticConfig) GetSigningKey() string           { return "test-signing-key" }
func (c *staticConfig) GetSigningMethod() string        { return "HS256" }
func (c *staticConfig) GetContextKey() string           { return "jwt" }
func (c *staticConfig) GetTokenExpiration() int         { return 24 }
func (c *staticConfig) GetExtendedTokenDuration() int   { return 168 }
func (c *staticConfig) GetTokenLookup() string          { return "header:Authorization" }
func (c *staticConfig) GetAuthScheme() string           { return "Bearer" }
func (c *staticConfig) GetIssuer() string               { return "hirewire" }
func (c *staticConfig) GetAudience() []string           { return []string{"hirewire:web"} }
func (c *staticConfig) GetRejectedRouteKey() string     { return "rejected_route" }
func (c *staticConfig) GetRejectedRouteDefault() string { return "/signin" }

func TestSessionResourceRoles(t *testing.T) {
	userID := uuid.NewString()

	t.Run("resource grant overrides the global role", func(t *testing.T) {
		session := sessionWithData(userID, map[string]any{
			"role":      "guest",
			"resources": map[string]any{"jobs": "admin"},
		})

		assert.True(t, session.CanCreate("jobs"))
		assert.False(t, session.CanEdit("applications"), "other resources use the global role")
	})

	t.Run("owner grant allows delete where global admin cannot", func(t *testing.T) {
		session := sessionWithData(userID, map[string]any{
			"role":      "admin",
			"resources": map[string]any{"jobs": "owner"},
		})

		assert.True(t, session.CanDelete("jobs"))
		assert.False(t, session.CanDelete("applications"))
	})

	t.Run("global role grid without resource grants", func(t *testing.T) {
		tests := []struct {
			role      string
			canRead   bool
			canEdit   bool
			canCreate bool
			canDelete bool
		}{
			{"guest", true, false, false, false},
			{"member", true, true, false, false},
			{"admin", true, true, true, false},
			{"owner", true, true, true, true},
		}

		for _, tt := range tests {
			t.Run(tt.role, func(t *testing.T) {
				session := sessionWithData(userID, map[string]any{"role": tt.role})

				assert.Equal(t, tt.canRead, session.CanRead("jobs"))
				assert.Equal(t, tt.canEdit, session.CanEdit("jobs"))
				assert.Equal(t, tt.canCreate, session.CanCreate("jobs"))
				assert.Equal(t, tt.canDelete, session.CanDelete("jobs"))
			})
		}
	})
}

func TestSessionDefaultsToGuest(t *testing.T) {
	userID := uuid.NewString()

	// nil data, empty data, and a malformed role all degrade to guest
	for name, data := range map[string]map[string]any{
		"nil data":       nil,
		"empty data":     {},
		"malformed role": {"role": 123},
	} {
		t.Run(name, func(t *testing.T) {
			session := sessionWithData(userID, data)

			assert.True(t, session.CanRead("jobs"))
			assert.False(t, session.CanEdit("jobs"))
			assert.False(t, session.CanCreate("jobs"))
			assert.False(t, session.CanDelete("jobs"))
		})
	}
}

func TestSessionMalformedResourceGrants(t *testing.T) {
	userID := uuid.NewString()

	t.Run("resources is not a map", func(t *testing.T) {
		session := sessionWithData(userID, map[string]any{
			"role":      "admin",
			"resources": "broken",
		})

		assert.True(t, session.CanCreate("jobs"), "the global role still applies")
		assert.False(t, session.CanDelete("jobs"))
	})

	t.Run("resource role is not a string", func(t *testing.T) {
		session := sessionWithData(userID, map[string]any{
			"role":      "admin",
			"resources": map[string]any{"jobs": 123},
		})

		assert.True(t, session.CanCreate("jobs"))
		assert.False(t, session.CanDelete("jobs"))
	})
}

func TestSessionRoleChecks(t *testing.T) {
	session := sessionWithData(uuid.NewString(), map[string]any{"role": "admin"})

	assert.True(t, session.HasRole("admin"))
	assert.False(t, session.HasRole("owner"))

	assert.True(t, session.IsAtLeast(hirewire.RoleMember))
	assert.True(t, session.IsAtLeast(hirewire.RoleAdmin))
	assert.False(t, session.IsAtLeast(hirewire.RoleOwner))
}

func TestSessionObjectIsRoleCapable(t *testing.T) {
	var _ hirewire.RoleCapableSession = (*hirewire.SessionObject)(nil)

	var session hirewire.RoleCapableSession = sessionWithData(uuid.NewString(), map[string]any{
		"role":      "member",
		"resources": map[string]any{"own-listings": "owner"},
	})

	assert.True(t, session.CanDelete("own-listings"))
	assert.True(t, session.HasRole("member"))
	assert.False(t, session.IsAtLeast(hirewire.RoleAdmin))
}

package hirewire

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims is the validated token payload plus permission checks.
type AuthClaims interface {
	Subject() string
	UserID() string
	Role() string
	CanRead(resource string) bool
	CanEdit(resource string) bool
	CanCreate(resource string) bool
	CanDelete(resource string) bool
	HasRole(role string) bool
	IsAtLeast(minRole string) bool
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims carries the registered JWT claims plus the extension
// fields this package signs: user id, global role, per-resource grants
// and free-form metadata.
type JWTClaims struct {
	jwt.RegisteredClaims
	UID       string            `json:"uid,omitempty"`
	UserRole  string            `json:"role,omitempty"`
	Resources map[string]string `json:"res,omitempty"`
	Metadata  map[string]any    `json:"metadata,omitempty"`
}

var _ AuthClaims = (*JWTClaims)(nil)

func (c *JWTClaims) Subject() string { return c.RegisteredClaims.Subject }

// UserID prefers the uid claim and falls back to the subject.
func (c *JWTClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

func (c *JWTClaims) Role() string { return c.UserRole }

// roleFor resolves the effective role for a resource, resource-specific
// assignments win over the global role.
func (c *JWTClaims) roleFor(resource string) UserRole {
	if resourceRole, ok := c.Resources[resource]; ok {
		return UserRole(resourceRole)
	}
	return UserRole(c.UserRole)
}

func (c *JWTClaims) CanRead(resource string) bool { return c.roleFor(resource).CanRead() }

func (c *JWTClaims) CanEdit(resource string) bool { return c.roleFor(resource).CanEdit() }

func (c *JWTClaims) CanCreate(resource string) bool { return c.roleFor(resource).CanCreate() }

func (c *JWTClaims) CanDelete(resource string) bool { return c.roleFor(resource).CanDelete() }

// HasRole matches the global role or any per-resource grant.
func (c *JWTClaims) HasRole(role string) bool {
	if c.UserRole == role {
		return true
	}
	for _, resourceRole := range c.Resources {
		if resourceRole == role {
			return true
		}
	}
	return false
}

// IsAtLeast compares the global role against the hierarchy floor.
func (c *JWTClaims) IsAtLeast(minRole string) bool {
	return UserRole(c.UserRole).IsAtLeast(UserRole(minRole))
}

func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt == nil {
		return time.Time{}
	}
	return c.RegisteredClaims.ExpiresAt.Time
}

func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt == nil {
		return time.Time{}
	}
	return c.RegisteredClaims.IssuedAt.Time
}

package hirewire

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RoleCapableSession is a session that can answer permission checks
type RoleCapableSession interface {
	Session
	RoleValidator
}

var _ Session = &SessionObject{}
var _ RoleCapableSession = &SessionObject{}

// SessionObject is the signed-in state carried through a request. It
// is built from validated token claims and never constructed directly
// by handlers.
type SessionObject struct {
	UserID         string         `json:"user_id,omitempty"`
	Audience       []string       `json:"audience,omitempty"`
	Issuer         string         `json:"issuer,omitempty"`
	IssuedAt       *time.Time     `json:"issued_at,omitempty"`
	ExpirationDate *time.Time     `json:"expiration_date,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
}

func (s *SessionObject) GetUserID() string { return s.UserID }

func (s *SessionObject) GetUserUUID() (uuid.UUID, error) { return uuid.Parse(s.UserID) }

func (s *SessionObject) GetAudience() []string { return s.Audience }

func (s *SessionObject) GetIssuer() string { return s.Issuer }

func (s *SessionObject) GetIssuedAt() *time.Time { return s.IssuedAt }

func (s *SessionObject) GetData() map[string]any { return s.Data }

// resourceRole returns the grant recorded for resource, if any. Grants
// arrive as map[string]string when minted in-process and as
// map[string]any after a JSON round trip, both shapes are accepted.
func (s *SessionObject) resourceRole(resource string) (UserRole, bool) {
	if s.Data == nil {
		return "", false
	}

	grants, ok := s.Data["resources"]
	if !ok {
		return "", false
	}

	switch m := grants.(type) {
	case map[string]string:
		if role, ok := m[resource]; ok {
			return UserRole(role), true
		}
	case map[string]any:
		role, ok := m[resource].(string)
		if ok {
			return UserRole(role), true
		}
	}

	return "", false
}

// effectiveRole resolves the role used for a permission check on a resource.
func (s *SessionObject) effectiveRole(resource string) UserRole {
	if role, ok := s.resourceRole(resource); ok {
		return role
	}
	return s.getGlobalRole()
}

func (s *SessionObject) CanRead(resource string) bool {
	return s.effectiveRole(resource).CanRead()
}

func (s *SessionObject) CanEdit(resource string) bool {
	return s.effectiveRole(resource).CanEdit()
}

func (s *SessionObject) CanCreate(resource string) bool {
	return s.effectiveRole(resource).CanCreate()
}

func (s *SessionObject) CanDelete(resource string) bool {
	return s.effectiveRole(resource).CanDelete()
}

// HasRole reports whether the session's global role is exactly role.
func (s *SessionObject) HasRole(role string) bool {
	return string(s.getGlobalRole()) == role
}

// IsAtLeast reports whether the session's global role meets minRole.
func (s *SessionObject) IsAtLeast(minRole UserRole) bool {
	return s.getGlobalRole().IsAtLeast(minRole)
}

// getGlobalRole reads the role from session data. Missing or
// unrecognized roles degrade to guest rather than failing.
func (s *SessionObject) getGlobalRole() UserRole {
	if s.Data == nil {
		return RoleGuest
	}

	raw, ok := s.Data["role"].(string)
	if !ok {
		return RoleGuest
	}

	if role, valid := ParseRole(raw); valid {
		return role
	}

	return RoleGuest
}

func (s SessionObject) String() string {
	issuedAt := "<nil>"
	if s.IssuedAt != nil {
		issuedAt = s.IssuedAt.Format(time.RFC1123)
	}
	return fmt.Sprintf(
		"user=%s aud=%v iss=%s iat=%s data=%v",
		s.UserID,
		s.Audience,
		s.Issuer,
		issuedAt,
		s.Data,
	)
}

// sessionFromAuthClaims builds the session a request sees out of
// validated token claims.
func sessionFromAuthClaims(claims AuthClaims) (*SessionObject, error) {
	if claims == nil {
		return nil, ErrUnableToParseData
	}

	data := map[string]any{
		"role": claims.Role(),
	}

	issuer := claims.Subject()
	var audience []string

	// concrete JWT claims carry extension fields the interface hides
	if jc, ok := claims.(*JWTClaims); ok {
		if len(jc.Resources) > 0 {
			data["resources"] = jc.Resources
		}
		if len(jc.Metadata) > 0 {
			data["metadata"] = jc.Metadata
		}
		audience = append(audience, jc.RegisteredClaims.Audience...)
		if jc.RegisteredClaims.Issuer != "" {
			issuer = jc.RegisteredClaims.Issuer
		}
	}

	issuedAt := claims.IssuedAt()
	expiresAt := claims.Expires()

	return &SessionObject{
		UserID:         claims.UserID(),
		Audience:       audience,
		Issuer:         issuer,
		Data:           data,
		IssuedAt:       &issuedAt,
		ExpirationDate: &expiresAt,
	}, nil
}

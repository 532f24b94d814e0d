package hirewire

import (
	"context"

	"github.com/goliatone/go-router"
)

// contextKey values are pointers so they never collide with keys from
// other packages.
type contextKey struct {
	name string
}

var (
	userCtxKey    = &contextKey{"user"}
	claimsCtxKey  = &contextKey{"claims"}
	sessionCtxKey = &contextKey{"session"}
)

// WithContext binds the user record to the context.
func WithContext(r context.Context, user *User) context.Context {
	return context.WithValue(r, userCtxKey, user)
}

// FromContext reads the user record back out of the context.
func FromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok
}

// WithClaimsContext binds validated claims to the context.
func WithClaimsContext(r context.Context, claims AuthClaims) context.Context {
	return context.WithValue(r, claimsCtxKey, claims)
}

// GetClaims reads validated claims out of the standard context.
func GetClaims(ctx context.Context) (AuthClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(AuthClaims)
	return raw, ok
}

// WithSessionContext binds the session to the context. Workflows read
// the session from here instead of any package-level state.
func WithSessionContext(r context.Context, session Session) context.Context {
	return context.WithValue(r, sessionCtxKey, session)
}

// SessionFromContext reads the session out of the standard context.
func SessionFromContext(ctx context.Context) (Session, bool) {
	raw, ok := ctx.Value(sessionCtxKey).(Session)
	return raw, ok
}

// GetRouterClaims reads validated claims from the router locals. An
// empty key falls back to the JWT middleware default.
func GetRouterClaims(ctx router.Context, key string) (AuthClaims, bool) {
	if key == "" {
		key = "user"
	}

	claims, ok := ctx.Locals(key).(AuthClaims)
	if !ok || claims == nil {
		return nil, false
	}
	return claims, true
}

// CurrentSession returns the session for the request or nil when the
// request is unauthenticated. Absence is not an error.
func CurrentSession(ctx router.Context) *SessionObject {
	claims, ok := GetRouterClaims(ctx, "")
	if !ok {
		return nil
	}

	session, err := sessionFromAuthClaims(claims)
	if err != nil {
		return nil
	}

	return session
}

// Can answers a permission check straight from the standard context.
func Can(ctx context.Context, resource, permission string) bool {
	claims, ok := GetClaims(ctx)
	if !ok {
		return false
	}
	return canWithClaims(claims, resource, permission)
}

// CanFromRouter answers a permission check from the router context.
func CanFromRouter(ctx router.Context, resource, permission string) bool {
	claims, ok := GetRouterClaims(ctx, "")
	if !ok {
		return false
	}
	return canWithClaims(claims, resource, permission)
}

func canWithClaims(claims AuthClaims, resource, permission string) bool {
	switch permission {
	case "read":
		return claims.CanRead(resource)
	case "edit":
		return claims.CanEdit(resource)
	case "create":
		return claims.CanCreate(resource)
	case "delete":
		return claims.CanDelete(resource)
	default:
		return false
	}
}

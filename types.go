package hirewire

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Session is the signed-in state a request carries once its token has
// been validated.
type Session interface {
	GetUserID() string
	GetUserUUID() (uuid.UUID, error)
	GetAudience() []string
	GetIssuer() string
	GetIssuedAt() *time.Time
	GetData() map[string]any
}

// Authenticator turns credentials into tokens and tokens back into
// sessions.
type Authenticator interface {
	Login(ctx context.Context, identifier, password string) (string, error)
	SessionFromToken(token string) (Session, error)
	IdentityFromSession(ctx context.Context, session Session) (Identity, error)
}

// TokenService issues and validates signed session tokens
type TokenService interface {
	Generate(identity Identity, resourceRoles map[string]string) (string, error)
	SignClaims(claims *JWTClaims) (string, error)
	Validate(tokenString string) (AuthClaims, error)
}

type LoginPayload interface {
	GetIdentifier() string
	GetPassword() string
	GetExtendedSession() bool
}

type HTTPAuthenticator interface {
	Login(c router.Context, payload LoginPayload) error
	Logout(c router.Context)
	StoreToken(c router.Context, token string, extended bool)
	ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc
	RequireGuest(redirect string) router.MiddlewareFunc
	SetRedirect(c router.Context)
	GetRedirect(c router.Context, def ...string) string
	GetRedirectOrDefault(c router.Context) string
	MakeClientRouteAuthErrorHandler(optionalAuth bool) func(c router.Context, err error) error
}

// Identity is the authenticated principal behind a session.
type Identity interface {
	ID() string
	Username() string
	Email() string
	Role() string
}

// Config exposes the auth settings the package reads at wiring time.
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetContextKey() string
	GetTokenExpiration() int
	GetExtendedTokenDuration() int
	GetTokenLookup() string
	GetAuthScheme() string
	GetIssuer() string
	GetAudience() []string
	GetRejectedRouteKey() string
	GetRejectedRouteDefault() string
}

// IdentityProvider is the backing store identities are verified and
// looked up against.
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error)
	FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error)
}

// PasswordAuthenticator hashes and verifies passwords.
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// defLogger is the zero-config fallback, stdout with a level prefix.
type defLogger struct{}

func (d defLogger) Error(format string, args ...any) { d.emit("ERR", format, args...) }
func (d defLogger) Warn(format string, args ...any)  { d.emit("WRN", format, args...) }
func (d defLogger) Info(format string, args ...any)  { d.emit("INF", format, args...) }
func (d defLogger) Debug(format string, args ...any) { d.emit("DBG", format, args...) }

func (defLogger) emit(level, format string, args ...any) {
	if len(format) == 0 || format[len(format)-1] != '\n' {
		format += "\n"
	}
	fmt.Printf("["+level+"] HIREWIRE "+format, args...)
}

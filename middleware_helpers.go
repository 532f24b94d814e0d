package hirewire

import (
	"context"

	"github.com/hirewire/hirewire/middleware/jwtware"
)

// ValidationListener aliases the jwtware listener so consumers can use auth helpers directly.
type ValidationListener = jwtware.ValidationListener

// ContextEnricherAdapter adapts jwtware.AuthClaims to hirewire.AuthClaims and
// stores claims plus the derived session in the standard context. Workflows
// read the session from the context they receive, nothing ambient.
func ContextEnricherAdapter(c context.Context, claims jwtware.AuthClaims) context.Context {
	authClaims, ok := claims.(AuthClaims)
	if !ok {
		return c
	}

	ctxWithClaims := WithClaimsContext(c, authClaims)

	if session, err := sessionFromAuthClaims(authClaims); err == nil {
		return WithSessionContext(ctxWithClaims, session)
	}

	return ctxWithClaims
}

// RegisterValidationListeners appends listeners to a jwtware.Config in a safe, reusable way.
func RegisterValidationListeners(cfg *jwtware.Config, listeners ...ValidationListener) {
	if cfg == nil || len(listeners) == 0 {
		return
	}
	cfg.ValidationListeners = append(cfg.ValidationListeners, listeners...)
}

// jwtwareValidator bridges a hirewire token validator into the interface the
// JWT middleware expects. Both claim interfaces share the same method set.
type jwtwareValidator struct {
	validator TokenValidator
}

func (a jwtwareValidator) Validate(tokenString string) (jwtware.AuthClaims, error) {
	claims, err := a.validator.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

package hirewire

// TokenValidator turns a raw token string into claims. Callers never
// see the signing implementation behind it.
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
}

// TokenValidatorFunc lets a plain function act as a TokenValidator.
type TokenValidatorFunc func(tokenString string) (AuthClaims, error)

func (f TokenValidatorFunc) Validate(tokenString string) (AuthClaims, error) {
	if f == nil {
		return nil, ErrUnableToDecodeSession
	}
	return f(tokenString)
}

// MultiTokenValidator runs validators in order until one accepts the
// token. A malformed-token error moves on to the next validator, any
// other error stops the chain. This keeps sessions minted under a
// rotated-out signing key valid.
type MultiTokenValidator struct {
	validators []TokenValidator
}

// NewMultiTokenValidator drops nil entries and chains the rest.
func NewMultiTokenValidator(validators ...TokenValidator) *MultiTokenValidator {
	chain := make([]TokenValidator, 0, len(validators))
	for _, v := range validators {
		if v != nil {
			chain = append(chain, v)
		}
	}
	return &MultiTokenValidator{validators: chain}
}

func (m *MultiTokenValidator) Validate(tokenString string) (AuthClaims, error) {
	var lastErr error
	for _, v := range m.validators {
		claims, err := v.Validate(tokenString)
		if err == nil {
			return claims, nil
		}
		if IsMalformedError(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrTokenMalformed
}

package hirewire

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// claimsBaseline freezes the identity claims before decorators run so
// a misbehaving decorator cannot rewrite who the token is for.
type claimsBaseline struct {
	subject     string
	issuer      string
	uid         string
	audience    []string
	issuedAt    time.Time
	hasIssuedAt bool
	expiresAt   time.Time
	hasExpires  bool
}

func baselineClaims(claims *JWTClaims) claimsBaseline {
	b := claimsBaseline{
		subject: claims.RegisteredClaims.Subject,
		issuer:  claims.RegisteredClaims.Issuer,
		uid:     claims.UID,
	}

	if len(claims.RegisteredClaims.Audience) > 0 {
		b.audience = append(b.audience, claims.RegisteredClaims.Audience...)
	}

	if iat := claims.RegisteredClaims.IssuedAt; iat != nil {
		b.issuedAt = iat.Time
		b.hasIssuedAt = true
	}

	if exp := claims.RegisteredClaims.ExpiresAt; exp != nil {
		b.expiresAt = exp.Time
		b.hasExpires = true
	}

	return b
}

// check errors when any identity claim differs from the baseline.
func (b claimsBaseline) check(claims *JWTClaims) error {
	if claims.RegisteredClaims.Subject != b.subject {
		return mutatedClaim("sub")
	}

	if claims.RegisteredClaims.Issuer != b.issuer {
		return mutatedClaim("iss")
	}

	if claims.UID != b.uid {
		return mutatedClaim("uid")
	}

	if !sameAudience(claims.RegisteredClaims.Audience, b.audience) {
		return mutatedClaim("aud")
	}

	if !sameNumericDate(claims.RegisteredClaims.IssuedAt, b.issuedAt, b.hasIssuedAt) {
		return mutatedClaim("iat")
	}

	if !sameNumericDate(claims.RegisteredClaims.ExpiresAt, b.expiresAt, b.hasExpires) {
		return mutatedClaim("exp")
	}

	return nil
}

func sameNumericDate(date *jwt.NumericDate, expected time.Time, expectedSet bool) bool {
	if !expectedSet {
		return date == nil
	}
	return date != nil && date.Time.Equal(expected)
}

func sameAudience(a jwt.ClaimStrings, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func mutatedClaim(field string) error {
	clone := ErrImmutableClaimMutation.Clone()
	if clone == nil {
		return ErrImmutableClaimMutation
	}
	clone.Message = fmt.Sprintf("immutable claim mutated: %s", field)
	clone.Source = ErrImmutableClaimMutation
	return clone.WithMetadata(map[string]any{"claim": field})
}

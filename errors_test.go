package hirewire_test

import (
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/hirewire/hirewire"
	"github.com/stretchr/testify/assert"
)

func TestIsTokenExpiredError(t *testing.T) {
	cases := map[string]struct {
		err     error
		expired bool
	}{
		"structured expired error":   {hirewire.ErrTokenExpired, true},
		"wrapped legacy string":      {errors.New("some wrapper: token is expired"), true},
		"unrelated structured error": {hirewire.ErrIdentityNotFound, false},
		"unrelated plain error":      {errors.New("invalid token"), false},
		"nil error is never expired": {nil, false},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expired, hirewire.IsTokenExpiredError(tc.err))
		})
	}
}

func TestIsMalformedError(t *testing.T) {
	cases := map[string]struct {
		err       error
		malformed bool
	}{
		"structured malformed error":   {hirewire.ErrTokenMalformed, true},
		"legacy malformed string":      {errors.New("token is malformed"), true},
		"legacy missing JWT string":    {errors.New("missing or malformed JWT"), true},
		"expired is not malformed":     {hirewire.ErrTokenExpired, false},
		"unrelated plain error":        {errors.New("invalid token"), false},
		"nil error is never malformed": {nil, false},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.malformed, hirewire.IsMalformedError(tc.err))
		})
	}
}

// Sentinel errors drive both HTTP status mapping and flash messages, so
// their categories and text codes are load bearing.
func TestSentinelErrorClassification(t *testing.T) {
	cases := []struct {
		name     string
		err      *goerrors.Error
		category goerrors.Category
		textCode string
	}{
		{"identity not found", hirewire.ErrIdentityNotFound, goerrors.CategoryAuth, ""},
		{"password mismatch", hirewire.ErrMismatchedHashAndPassword, goerrors.CategoryAuth, hirewire.TextCodePasswordMismatch},
		{"login throttled", hirewire.ErrTooManyLoginAttempts, goerrors.CategoryRateLimit, hirewire.TextCodeLoginThrottled},
		{"session not found", hirewire.ErrUnableToFindSession, goerrors.CategoryAuth, hirewire.TextCodeSessionNotFound},
		{"session decode", hirewire.ErrUnableToDecodeSession, goerrors.CategoryAuth, hirewire.TextCodeSessionDecode},
		{"claims mapping", hirewire.ErrUnableToMapClaims, goerrors.CategoryAuth, hirewire.TextCodeClaimsMapping},
		{"empty value", hirewire.ErrNoEmptyString, goerrors.CategoryBadInput, hirewire.TextCodeEmptyValue},
		{"token expired", hirewire.ErrTokenExpired, goerrors.CategoryAuth, hirewire.TextCodeTokenExpired},
		{"email taken", hirewire.ErrEmailTaken, goerrors.CategoryConflict, hirewire.TextCodeEmailTaken},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.category, tc.err.Category)
			if tc.textCode != "" {
				assert.Equal(t, tc.textCode, tc.err.TextCode)
			}
		})
	}
}

func TestDomainErrorMessages(t *testing.T) {
	assert.Equal(t, "identity not found", hirewire.ErrIdentityNotFound.Message)

	assert.Equal(t, goerrors.CategoryNotFound, hirewire.ErrJobNotFound.Category)
	assert.Equal(t, "Job not found", hirewire.ErrJobNotFound.Message)

	assert.Equal(t, goerrors.CategoryConflict, hirewire.ErrAlreadyApplied.Category)
	assert.Equal(t, "You have already applied for this job", hirewire.ErrAlreadyApplied.Message)
}

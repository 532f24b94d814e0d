package hirewire

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeIdentityNotFound  = "identity_not_found"
	TextCodeSessionNotFound   = "session_not_found"
	TextCodeSessionDecode     = "session_decode_failed"
	TextCodeClaimsMapping     = "claims_mapping_failed"
	TextCodeTokenExpired      = "token_expired"
	TextCodeTokenMalformed    = "token_malformed"
	TextCodePasswordMismatch  = "password_mismatch"
	TextCodeEmptyValue        = "empty_value"
	TextCodeLoginThrottled    = "login_throttled"
	TextCodeEmailTaken        = "email_taken"
	TextCodeJobNotFound       = "job_not_found"
	TextCodeDuplicateApply    = "duplicate_application"
	TextCodeInvalidJobType    = "invalid_job_type"
	TextCodeApplicationFailed = "application_failed"
	TextCodeImmutableClaim    = "immutable_claim_mutation"
)

// ErrIdentityNotFound is returned when no identity matches the identifier.
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryAuth).
	WithTextCode(TextCodeIdentityNotFound).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToFindSession is returned when the request carries no session cookie.
var ErrUnableToFindSession = errors.New("unable to find session", errors.CategoryAuth).
	WithTextCode(TextCodeSessionNotFound).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToDecodeSession is returned when the session JWT cannot be decoded.
var ErrUnableToDecodeSession = errors.New("unable to decode session", errors.CategoryAuth).
	WithTextCode(TextCodeSessionDecode).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToMapClaims is returned when token claims cannot be mapped.
var ErrUnableToMapClaims = errors.New("unable to map claims", errors.CategoryAuth).
	WithTextCode(TextCodeClaimsMapping).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToParseData is returned on claim payload parse failures.
var ErrUnableToParseData = errors.New("unable to parse data", errors.CategoryBadInput).
	WithTextCode(TextCodeClaimsMapping).
	WithCode(errors.CodeBadRequest)

// ErrTokenExpired is returned for expired session tokens.
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned for tokens that fail structural validation.
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrImmutableClaimMutation is returned when a claims decorator touches a
// registered or identity claim.
var ErrImmutableClaimMutation = errors.New("immutable claim mutated", errors.CategoryInternal).
	WithTextCode(TextCodeImmutableClaim).
	WithCode(errors.CodeInternal)

// ErrMismatchedHashAndPassword is returned when a password does not match its hash.
var ErrMismatchedHashAndPassword = errors.New("mismatched hash and password", errors.CategoryAuth).
	WithTextCode(TextCodePasswordMismatch).
	WithCode(errors.CodeUnauthorized)

// ErrNoEmptyString is returned when a required string value is empty.
var ErrNoEmptyString = errors.New("value should not be an empty string", errors.CategoryBadInput).
	WithTextCode(TextCodeEmptyValue).
	WithCode(errors.CodeBadRequest)

// ErrTooManyLoginAttempts is returned when an account is throttled.
var ErrTooManyLoginAttempts = errors.New("too many login attempts", errors.CategoryRateLimit).
	WithTextCode(TextCodeLoginThrottled).
	WithCode(errors.CodeForbidden)

// ErrEmailTaken is returned when registering with an email that already exists.
var ErrEmailTaken = errors.New("email already registered", errors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken).
	WithCode(errors.CodeConflict)

// ErrJobNotFound is returned when a referenced job listing does not exist.
var ErrJobNotFound = errors.New("Job not found", errors.CategoryNotFound).
	WithTextCode(TextCodeJobNotFound).
	WithCode(errors.CodeNotFound)

// ErrAlreadyApplied is returned when a user applies twice to the same job.
var ErrAlreadyApplied = errors.New("You have already applied for this job", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateApply).
	WithCode(errors.CodeConflict)

// ErrInvalidJobType is returned for job types outside the supported set.
var ErrInvalidJobType = errors.New("invalid job type", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidJobType).
	WithCode(errors.CodeBadRequest)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsConflictError reports whether err maps to a conflict status.
func IsConflictError(err error) bool {
	var rich *errors.Error
	if errors.As(err, &rich) {
		return rich.Category == errors.CategoryConflict
	}
	return false
}

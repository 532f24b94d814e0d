package social

import "github.com/goliatone/go-errors"

// Text codes carried on social sign-in failures, stable for API consumers.
const (
	TextCodeProviderNotFound  = "social_provider_not_found"
	TextCodeInvalidState      = "social_invalid_state"
	TextCodeStateExpired      = "social_state_expired"
	TextCodeTokenExchangeFail = "social_token_exchange_failed"
	TextCodeUserInfoFail      = "social_user_info_failed"
	TextCodeEmailNotVerified  = "social_email_not_verified"
	TextCodeEmailExists       = "social_email_exists"
	TextCodeSignupDisabled    = "social_signup_disabled"
	TextCodeLinkingDisabled   = "social_linking_disabled"
	TextCodeLastAuthMethod    = "social_last_auth_method"
)

// State and provider lookup failures.
var (
	// ErrProviderNotFound: the requested provider is not configured.
	ErrProviderNotFound = errors.New("social provider not found", errors.CategoryNotFound).
				WithTextCode(TextCodeProviderNotFound).
				WithCode(errors.CodeNotFound)

	// ErrInvalidState: the OAuth state failed signature or decryption checks.
	ErrInvalidState = errors.New("invalid oauth state", errors.CategoryBadInput).
			WithTextCode(TextCodeInvalidState).
			WithCode(errors.CodeBadRequest)

	// ErrStateExpired: the OAuth state outlived its TTL.
	ErrStateExpired = errors.New("oauth state expired", errors.CategoryBadInput).
			WithTextCode(TextCodeStateExpired).
			WithCode(errors.CodeBadRequest)
)

// Provider callback failures.
var (
	ErrTokenExchangeFailed = errors.New("token exchange failed", errors.CategoryAuth).
				WithTextCode(TextCodeTokenExchangeFail).
				WithCode(errors.CodeUnauthorized)

	ErrUserInfoFailed = errors.New("failed to fetch user info", errors.CategoryAuth).
				WithTextCode(TextCodeUserInfoFail).
				WithCode(errors.CodeUnauthorized)

	ErrEmailNotVerified = errors.New("email not verified", errors.CategoryAuth).
				WithTextCode(TextCodeEmailNotVerified).
				WithCode(errors.CodeForbidden)
)

// Account linking policy failures.
var (
	// ErrEmailAlreadyExists: a local account already owns the provider email.
	ErrEmailAlreadyExists = errors.New("email already exists", errors.CategoryValidation).
				WithTextCode(TextCodeEmailExists).
				WithCode(errors.CodeConflict)

	ErrSignupNotAllowed = errors.New("signup not allowed", errors.CategoryAuth).
				WithTextCode(TextCodeSignupDisabled).
				WithCode(errors.CodeForbidden)

	ErrLinkingNotAllowed = errors.New("linking not allowed", errors.CategoryAuth).
				WithTextCode(TextCodeLinkingDisabled).
				WithCode(errors.CodeForbidden)

	// ErrLastAuthMethod: unlinking would leave the user with no way to sign in.
	ErrLastAuthMethod = errors.New("cannot unlink last authentication method", errors.CategoryValidation).
				WithTextCode(TextCodeLastAuthMethod).
				WithCode(errors.CodeBadRequest)
)

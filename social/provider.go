package social

import (
	"context"
	"time"
)

// Token is a normalized OAuth2 token response.
type Token struct {
	AccessToken  string
	TokenType    string
	RefreshToken string
	ExpiresAt    time.Time
	Scopes       []string
	Raw          map[string]any
}

// SocialProfile is the provider-agnostic view of a user profile. Raw keeps
// the original payload for account records.
type SocialProfile struct {
	ProviderUserID string
	Provider       string
	Email          string
	EmailVerified  bool
	Name           string
	FirstName      string
	LastName       string
	Username       string
	AvatarURL      string
	ProfileURL     string
	Raw            map[string]any
}

// SocialProvider is implemented once per upstream identity provider.
type SocialProvider interface {
	// Name identifies the provider, e.g. "github" or "google".
	Name() string

	// AuthCodeURL builds the authorization redirect. The state parameter
	// carries the sealed OAuthState.
	AuthCodeURL(state string, opts ...AuthCodeOption) string

	// Exchange trades an authorization code for an access token.
	Exchange(ctx context.Context, code string, opts ...ExchangeOption) (*Token, error)

	// UserInfo fetches the profile behind the access token.
	UserInfo(ctx context.Context, token *Token) (*SocialProfile, error)

	// ValidateToken reports whether a stored token is still usable.
	ValidateToken(ctx context.Context, token *Token) error

	// RefreshToken refreshes an expired access token where the provider
	// supports it.
	RefreshToken(ctx context.Context, refreshToken string) (*Token, error)
}

// AuthCodeOption tunes the authorization URL.
type AuthCodeOption func(*authCodeConfig)

// WithScopes appends scopes to the provider defaults.
func WithScopes(scopes ...string) AuthCodeOption {
	return func(c *authCodeConfig) {
		c.scopes = append(c.scopes, scopes...)
	}
}

// WithPKCE attaches a PKCE code challenge to the auth request.
func WithPKCE(codeChallenge, method string) AuthCodeOption {
	return func(c *authCodeConfig) {
		c.codeChallenge = codeChallenge
		c.codeChallengeMethod = method
	}
}

// WithPrompt sets the prompt parameter, e.g. "consent" or "select_account".
func WithPrompt(prompt string) AuthCodeOption {
	return func(c *authCodeConfig) {
		c.prompt = prompt
	}
}

// ExchangeOption tunes the token exchange.
type ExchangeOption func(*exchangeConfig)

// WithCodeVerifier supplies the PKCE verifier matched to an earlier challenge.
func WithCodeVerifier(verifier string) ExchangeOption {
	return func(c *exchangeConfig) {
		c.codeVerifier = verifier
	}
}

type authCodeConfig struct {
	scopes              []string
	codeChallenge       string
	codeChallengeMethod string
	prompt              string
}

type exchangeConfig struct {
	codeVerifier string
}

// AuthCodeConfig is the resolved option set handed to provider implementations.
type AuthCodeConfig struct {
	Scopes              []string
	CodeChallenge       string
	CodeChallengeMethod string
	Prompt              string
}

// ExchangeConfig is the resolved exchange option set.
type ExchangeConfig struct {
	CodeVerifier string
}

// ApplyAuthCodeOptions folds options over the provider's default scopes.
func ApplyAuthCodeOptions(scopes []string, opts ...AuthCodeOption) AuthCodeConfig {
	cfg := authCodeConfig{scopes: append([]string(nil), scopes...)}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return AuthCodeConfig{
		Scopes:              cfg.scopes,
		CodeChallenge:       cfg.codeChallenge,
		CodeChallengeMethod: cfg.codeChallengeMethod,
		Prompt:              cfg.prompt,
	}
}

// ApplyExchangeOptions folds exchange options into their resolved form.
func ApplyExchangeOptions(opts ...ExchangeOption) ExchangeConfig {
	cfg := exchangeConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return ExchangeConfig{
		CodeVerifier: cfg.codeVerifier,
	}
}

package social

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hirewire/hirewire"
)

// SocialAuthenticator runs the OAuth dance end to end: redirect out,
// validate the callback, resolve the user and mint a session token.
type SocialAuthenticator struct {
	providers       map[string]SocialProvider
	stateManager    StateManager
	linkingStrategy LinkingStrategy
	accountRepo     SocialAccountRepository
	userRepo        hirewire.Users
	roleProvider    hirewire.ResourceRoleProvider
	tokenService    hirewire.TokenService
	activitySink    hirewire.ActivitySink
	config          SocialAuthConfig
}

// SocialAuthConfig configures the social authenticator.
type SocialAuthConfig struct {
	BaseURL              string
	CallbackPath         string
	DefaultRedirectURL   string
	StateEncryptionKey   []byte
	StateHMACKey         []byte
	StateTTL             time.Duration
	AllowSignup          bool
	AllowLinking         bool
	RequireEmailVerified bool
	DefaultRole          string
}

// SocialAuthOption configures the social authenticator.
type SocialAuthOption func(*SocialAuthenticator)

// NewSocialAuthenticator wires the authenticator. Omitted pieces fall
// back to the encrypted state manager and the default linking strategy.
func NewSocialAuthenticator(
	accountRepo SocialAccountRepository,
	userRepo hirewire.Users,
	tokenService hirewire.TokenService,
	config SocialAuthConfig,
	opts ...SocialAuthOption,
) *SocialAuthenticator {
	cfg := config
	if cfg.StateTTL == 0 {
		cfg.StateTTL = 10 * time.Minute
	}

	sa := &SocialAuthenticator{
		providers:    make(map[string]SocialProvider),
		accountRepo:  accountRepo,
		userRepo:     userRepo,
		tokenService: tokenService,
		config:       cfg,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sa)
		}
	}

	if sa.stateManager == nil {
		sa.stateManager = NewEncryptedStateManager(
			cfg.StateEncryptionKey,
			cfg.StateHMACKey,
			cfg.StateTTL,
		)
	}

	if sa.linkingStrategy == nil {
		sa.linkingStrategy = &DefaultLinkingStrategy{
			AllowSignup:          cfg.AllowSignup,
			AllowLinking:         cfg.AllowLinking,
			RequireEmailVerified: cfg.RequireEmailVerified,
			DefaultRole:          cfg.DefaultRole,
		}
	}

	return sa
}

// WithProvider registers a social provider under its own name.
func WithProvider(provider SocialProvider) SocialAuthOption {
	return func(sa *SocialAuthenticator) {
		if provider == nil {
			return
		}
		sa.providers[provider.Name()] = provider
	}
}

// WithStateManager sets a custom state manager.
func WithStateManager(sm StateManager) SocialAuthOption {
	return func(sa *SocialAuthenticator) {
		sa.stateManager = sm
	}
}

// WithLinkingStrategy sets a custom user linking strategy.
func WithLinkingStrategy(ls LinkingStrategy) SocialAuthOption {
	return func(sa *SocialAuthenticator) {
		sa.linkingStrategy = ls
	}
}

// WithResourceRoleProvider enriches minted tokens with resource grants.
func WithResourceRoleProvider(rp hirewire.ResourceRoleProvider) SocialAuthOption {
	return func(sa *SocialAuthenticator) {
		sa.roleProvider = rp
	}
}

// WithActivitySink routes sign-in activity to sink.
func WithActivitySink(sink hirewire.ActivitySink) SocialAuthOption {
	return func(sa *SocialAuthenticator) {
		sa.activitySink = sink
	}
}

// BeginAuth builds the provider redirect. The returned state token
// carries the PKCE verifier and must come back on the callback.
func (sa *SocialAuthenticator) BeginAuth(
	ctx context.Context,
	providerName string,
	opts ...BeginAuthOption,
) (*AuthRedirect, error) {
	provider, ok := sa.providers[providerName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, providerName)
	}

	if sa.stateManager == nil {
		return nil, ErrInvalidState
	}

	cfg := &beginAuthConfig{
		action:      ActionLogin,
		redirectURL: sa.config.DefaultRedirectURL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	codeVerifier, err := newCodeVerifier()
	if err != nil {
		return nil, fmt.Errorf("failed to generate code verifier: %w", err)
	}

	stateToken, err := sa.stateManager.Encode(&OAuthState{
		Nonce:        newNonce(),
		Provider:     providerName,
		CodeVerifier: codeVerifier,
		RedirectURL:  cfg.redirectURL,
		Action:       cfg.action,
		LinkUserID:   cfg.linkUserID,
		IssuedAt:     time.Now().Unix(),
		ExpiresAt:    time.Now().Add(sa.config.StateTTL).Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}

	return &AuthRedirect{
		URL:      provider.AuthCodeURL(stateToken, WithPKCE(challengeS256(codeVerifier), "S256")),
		State:    stateToken,
		Provider: providerName,
	}, nil
}

// CompleteAuth validates the callback, resolves the profile to a local
// user, persists the link and returns a signed session token.
func (sa *SocialAuthenticator) CompleteAuth(
	ctx context.Context,
	providerName string,
	code string,
	stateToken string,
) (*AuthResult, error) {
	state, err := sa.verifyState(providerName, stateToken)
	if err != nil {
		return nil, err
	}

	provider, ok := sa.providers[providerName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, providerName)
	}

	token, err := provider.Exchange(ctx, code, WithCodeVerifier(state.CodeVerifier))
	if err != nil {
		return nil, wrapProviderError(ErrTokenExchangeFailed, providerName, "exchange", err)
	}

	profile, err := provider.UserInfo(ctx, token)
	if err != nil {
		return nil, wrapProviderError(ErrUserInfoFailed, providerName, "user_info", err)
	}

	identity, result, err := sa.resolveIdentity(ctx, state, profile)
	if err != nil {
		return nil, err
	}

	if err := sa.persistLink(ctx, result.User.ID.String(), providerName, profile, token); err != nil {
		return nil, err
	}

	jwtToken, err := sa.mintToken(ctx, identity)
	if err != nil {
		return nil, err
	}

	sa.recordSocialLogin(ctx, identity.ID(), providerName, profile.ProviderUserID, state.Action, result.IsNewUser)

	return &AuthResult{
		User:        identity,
		Token:       jwtToken,
		IsNewUser:   result.IsNewUser,
		Provider:    providerName,
		Profile:     profile,
		RedirectURL: state.RedirectURL,
	}, nil
}

// verifyState decodes the callback state and rejects expired or
// cross-provider tokens.
func (sa *SocialAuthenticator) verifyState(providerName, stateToken string) (*OAuthState, error) {
	if sa.stateManager == nil {
		return nil, ErrInvalidState
	}

	state, err := sa.stateManager.Decode(stateToken)
	if err != nil {
		if errors.Is(err, ErrStateExpired) {
			return nil, ErrStateExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	if state.Provider != providerName {
		return nil, fmt.Errorf("%w: provider mismatch", ErrInvalidState)
	}

	if time.Now().Unix() > state.ExpiresAt {
		return nil, ErrStateExpired
	}

	return state, nil
}

func (sa *SocialAuthenticator) resolveIdentity(ctx context.Context, state *OAuthState, profile *SocialProfile) (hirewire.Identity, *LinkingResult, error) {
	if sa.linkingStrategy == nil {
		return nil, nil, ErrLinkingNotAllowed
	}

	result, err := sa.linkingStrategy.ResolveUser(ctx, LinkingContext{
		Profile:     profile,
		Action:      state.Action,
		LinkUserID:  state.LinkUserID,
		AccountRepo: sa.accountRepo,
		UserRepo:    sa.userRepo,
	})
	if err != nil {
		return nil, nil, err
	}
	if result == nil || result.User == nil {
		return nil, nil, hirewire.ErrIdentityNotFound
	}

	identity := hirewire.NewIdentityFromUser(result.User)
	if identity == nil {
		return nil, nil, hirewire.ErrIdentityNotFound
	}

	return identity, result, nil
}

// persistLink records or refreshes the provider account row, tokens
// included, so later sign-ins and unlink operations can find it.
func (sa *SocialAuthenticator) persistLink(ctx context.Context, userID, providerName string, profile *SocialProfile, token *Token) error {
	if sa.accountRepo == nil {
		return ErrLinkingNotAllowed
	}

	account := &SocialAccount{
		UserID:         userID,
		Provider:       providerName,
		ProviderUserID: profile.ProviderUserID,
		Email:          profile.Email,
		Name:           profile.Name,
		Username:       profile.Username,
		AvatarURL:      profile.AvatarURL,
	}
	if token != nil {
		account.AccessToken = token.AccessToken
		account.RefreshToken = token.RefreshToken
		account.ProfileData = profile.Raw
		if !token.ExpiresAt.IsZero() {
			expiresAt := token.ExpiresAt
			account.TokenExpiresAt = &expiresAt
		}
	}

	if err := sa.accountRepo.Upsert(ctx, account); err != nil {
		return fmt.Errorf("failed to save social account: %w", err)
	}

	return nil
}

func (sa *SocialAuthenticator) mintToken(ctx context.Context, identity hirewire.Identity) (string, error) {
	resourceRoles := map[string]string{}
	if sa.roleProvider != nil {
		roles, err := sa.roleProvider.FindResourceRoles(ctx, identity)
		if err != nil {
			return "", err
		}
		resourceRoles = roles
	}

	jwtToken, err := sa.tokenService.Generate(identity, resourceRoles)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	return jwtToken, nil
}

func (sa *SocialAuthenticator) recordSocialLogin(ctx context.Context, userID, providerName, providerUserID, action string, isNewUser bool) {
	if sa.activitySink == nil {
		return
	}

	_ = sa.activitySink.Record(ctx, hirewire.ActivityEvent{
		EventType:  hirewire.ActivityEventSocialLogin,
		UserID:     userID,
		Actor:      hirewire.ActorRef{Type: "social", ID: providerName},
		OccurredAt: time.Now(),
		Metadata: map[string]any{
			"provider":         providerName,
			"provider_user_id": providerUserID,
			"action":           action,
			"is_new_user":      isNewUser,
		},
	})
}

// ListProviders returns all registered providers.
func (sa *SocialAuthenticator) ListProviders() []ProviderInfo {
	var providers []ProviderInfo
	for name, p := range sa.providers {
		providers = append(providers, ProviderInfo{
			Name:    name,
			AuthURL: p.AuthCodeURL(""),
		})
	}
	return providers
}

// ProviderInfo describes an available provider.
type ProviderInfo struct {
	Name    string
	AuthURL string
}

// AuthRedirect carries the provider authorization URL.
type AuthRedirect struct {
	URL      string
	State    string
	Provider string
}

// AuthResult is the outcome of a completed social sign-in.
type AuthResult struct {
	User        hirewire.Identity
	Token       string
	IsNewUser   bool
	Provider    string
	Profile     *SocialProfile
	RedirectURL string
}

// SignInAdapter exposes BeginAuth through the narrow redirect-only surface
// the auth actions consume.
type SignInAdapter struct {
	Authenticator *SocialAuthenticator
}

// AuthorizationURL starts a login flow and yields the provider URL.
func (a SignInAdapter) AuthorizationURL(ctx context.Context, provider, redirect string) (string, error) {
	if a.Authenticator == nil {
		return "", ErrProviderNotFound
	}

	opts := []BeginAuthOption{ForAction(ActionLogin)}
	if redirect != "" {
		opts = append(opts, WithRedirectURL(redirect))
	}

	r, err := a.Authenticator.BeginAuth(ctx, provider, opts...)
	if err != nil {
		return "", err
	}

	return r.URL, nil
}

// BeginAuthOption configures the auth initiation.
type BeginAuthOption func(*beginAuthConfig)

type beginAuthConfig struct {
	action      string
	redirectURL string
	linkUserID  string
}

// ForAction sets the auth action (login, signup, link).
func ForAction(action string) BeginAuthOption {
	return func(c *beginAuthConfig) {
		c.action = action
	}
}

// WithRedirectURL sets the post-auth redirect URL.
func WithRedirectURL(url string) BeginAuthOption {
	return func(c *beginAuthConfig) {
		c.redirectURL = url
	}
}

// ForLinkingUser sets the user ID for account linking.
func ForLinkingUser(userID string) BeginAuthOption {
	return func(c *beginAuthConfig) {
		c.linkUserID = userID
		c.action = ActionLink
	}
}

// Actions.
const (
	ActionLogin  = "login"
	ActionSignup = "signup"
	ActionLink   = "link"
)

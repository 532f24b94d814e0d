package social

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/hirewire/hirewire"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// recordingStateManager hands out sequential tokens and remembers the
// last state it encoded, so tests can assert what the flow carried.
type recordingStateManager struct {
	states    map[string]*OAuthState
	lastToken string
	lastState *OAuthState
	seq       int
}

func (m *recordingStateManager) Encode(state *OAuthState) (string, error) {
	if state == nil {
		return "", ErrInvalidState
	}
	if m.states == nil {
		m.states = map[string]*OAuthState{}
	}
	m.seq++
	token := fmt.Sprintf("state-%d", m.seq)
	m.states[token] = state
	m.lastToken = token
	m.lastState = state
	return token, nil
}

func (m *recordingStateManager) Decode(token string) (*OAuthState, error) {
	state, ok := m.states[token]
	if !ok {
		return nil, ErrInvalidState
	}
	return state, nil
}

type fakeProvider struct {
	name        string
	authBase    string
	token       *Token
	profile     *SocialProfile
	exchangeErr error
	userInfoErr error
	lastState   string
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) AuthCodeURL(state string, opts ...AuthCodeOption) string {
	p.lastState = state
	return p.authBase + "?state=" + url.QueryEscape(state)
}

func (p *fakeProvider) Exchange(ctx context.Context, code string, opts ...ExchangeOption) (*Token, error) {
	if p.exchangeErr != nil {
		return nil, p.exchangeErr
	}
	return p.token, nil
}

func (p *fakeProvider) UserInfo(ctx context.Context, token *Token) (*SocialProfile, error) {
	if p.userInfoErr != nil {
		return nil, p.userInfoErr
	}
	return p.profile, nil
}

func (p *fakeProvider) ValidateToken(ctx context.Context, token *Token) error {
	return nil
}

func (p *fakeProvider) RefreshToken(ctx context.Context, refreshToken string) (*Token, error) {
	return nil, nil
}

type fakeTokenService struct {
	token string
}

func (s fakeTokenService) Generate(identity hirewire.Identity, resourceRoles map[string]string) (string, error) {
	return s.token, nil
}

func (s fakeTokenService) SignClaims(claims *hirewire.JWTClaims) (string, error) {
	return s.token, nil
}

func (s fakeTokenService) Validate(tokenString string) (hirewire.AuthClaims, error) {
	return &hirewire.JWTClaims{UID: "user", UserRole: string(hirewire.RoleMember)}, nil
}

type fakeLinkingStrategy struct {
	result *LinkingResult
	err    error
}

func (s *fakeLinkingStrategy) ResolveUser(ctx context.Context, lc LinkingContext) (*LinkingResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

// memoryAccountRepo keeps accounts per user and records writes.
type memoryAccountRepo struct {
	byUser      map[string][]*SocialAccount
	upserts     []*SocialAccount
	deleteCalls []string
}

func (r *memoryAccountRepo) FindByProviderID(ctx context.Context, provider, providerUserID string) (*SocialAccount, error) {
	for _, accounts := range r.byUser {
		for _, account := range accounts {
			if account.Provider == provider && account.ProviderUserID == providerUserID {
				return account, nil
			}
		}
	}
	return nil, errors.New("not found")
}

func (r *memoryAccountRepo) FindByUserID(ctx context.Context, userID string) ([]*SocialAccount, error) {
	return r.byUser[userID], nil
}

func (r *memoryAccountRepo) Upsert(ctx context.Context, account *SocialAccount) error {
	r.upserts = append(r.upserts, account)
	if r.byUser == nil {
		r.byUser = map[string][]*SocialAccount{}
	}
	r.byUser[account.UserID] = append(r.byUser[account.UserID], account)
	return nil
}

func (r *memoryAccountRepo) Delete(ctx context.Context, id string) error {
	r.deleteCalls = append(r.deleteCalls, id)
	return nil
}

func (r *memoryAccountRepo) DeleteByUserAndProvider(ctx context.Context, userID, provider string) error {
	r.deleteCalls = append(r.deleteCalls, userID+"|"+provider)
	return nil
}

func newSocialAuth(repo SocialAccountRepository, tokens hirewire.TokenService, opts ...SocialAuthOption) *SocialAuthenticator {
	return NewSocialAuthenticator(repo, nil, tokens, SocialAuthConfig{}, opts...)
}

func signedInContext(uid string) *router.MockContext {
	ctx := router.NewMockContext()
	ctx.LocalsMock["user"] = &hirewire.JWTClaims{UID: uid, UserRole: string(hirewire.RoleMember)}
	ctx.On("Context").Return(context.Background())
	return ctx
}

func captureRedirect(ctx *router.MockContext, into *string) {
	ctx.On("Redirect", mock.Anything, []int{http.StatusTemporaryRedirect}).Run(func(args mock.Arguments) {
		*into = args.String(0)
	}).Return(nil)
}

func TestHTTPControllerBeginAuthRedirects(t *testing.T) {
	stateManager := &recordingStateManager{}
	provider := &fakeProvider{
		name:     "github",
		authBase: "https://hirewire.example/authorize",
	}

	authenticator := newSocialAuth(nil, nil, WithStateManager(stateManager), WithProvider(provider))
	controller := NewHTTPController(authenticator, HTTPConfig{SuccessRedirect: "/fallback"})

	ctx := router.NewMockContext()
	ctx.ParamsM["provider"] = "github"
	ctx.QueriesM["redirect_url"] = "/jobs/new"
	ctx.On("Context").Return(context.Background())

	var redirectURL string
	captureRedirect(ctx, &redirectURL)

	require.NoError(t, controller.BeginAuth(ctx))
	require.NotEmpty(t, redirectURL)

	require.Equal(t, stateManager.lastToken, provider.lastState, "the state token travels to the provider")
	require.Equal(t, "/jobs/new", stateManager.lastState.RedirectURL)
	require.Equal(t, ActionLogin, stateManager.lastState.Action)
	require.Equal(t, "github", stateManager.lastState.Provider)
}

func TestHTTPControllerBeginAuthLinkRequiresSession(t *testing.T) {
	authenticator := newSocialAuth(nil, nil,
		WithStateManager(&recordingStateManager{}),
		WithProvider(&fakeProvider{name: "github"}))
	controller := NewHTTPController(authenticator, HTTPConfig{})

	ctx := router.NewMockContext()
	ctx.ParamsM["provider"] = "github"
	ctx.QueriesM["action"] = ActionLink
	ctx.On("Context").Return(context.Background())
	ctx.On("JSON", router.StatusUnauthorized, mock.Anything).Return(nil)

	require.NoError(t, controller.BeginAuth(ctx))
	ctx.AssertCalled(t, "JSON", router.StatusUnauthorized, mock.Anything)
}

func TestHTTPControllerLinkAccountReturnsRedirect(t *testing.T) {
	stateManager := &recordingStateManager{}
	provider := &fakeProvider{
		name:     "github",
		authBase: "https://hirewire.example/authorize",
	}

	authenticator := newSocialAuth(nil, nil, WithStateManager(stateManager), WithProvider(provider))
	controller := NewHTTPController(authenticator, HTTPConfig{SessionContextKey: "user"})

	ctx := signedInContext("user-1")
	ctx.ParamsM["provider"] = "github"

	var payload map[string]string
	ctx.On("JSON", router.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
		payload = args.Get(1).(map[string]string)
	}).Return(nil)

	require.NoError(t, controller.LinkAccount(ctx))
	require.Contains(t, payload["redirect_url"], "state=")
	require.Equal(t, ActionLink, stateManager.lastState.Action)
	require.Equal(t, "user-1", stateManager.lastState.LinkUserID)
}

func TestHTTPControllerCallbackSetsCookieAndRedirects(t *testing.T) {
	stateManager := &recordingStateManager{}
	accountRepo := &memoryAccountRepo{}
	provider := &fakeProvider{
		name:     "github",
		authBase: "https://hirewire.example/authorize",
		token:    &Token{AccessToken: "access-token"},
		profile: &SocialProfile{
			Provider:       "github",
			ProviderUserID: "gh-1",
			Email:          "ada@example.com",
			EmailVerified:  true,
			Name:           "Ada",
		},
	}

	user := &hirewire.User{ID: uuid.New(), Status: hirewire.UserStatusActive}
	linking := &fakeLinkingStrategy{
		result: &LinkingResult{User: user, IsNewUser: true},
	}

	authenticator := newSocialAuth(accountRepo, fakeTokenService{token: "jwt-token"},
		WithStateManager(stateManager),
		WithLinkingStrategy(linking),
		WithProvider(provider))
	controller := NewHTTPController(authenticator, HTTPConfig{
		SessionContextKey: "user",
		CookieName:        "auth_token",
		CookieSecure:      true,
		CookieHTTPOnly:    true,
		CookieSameSite:    "Lax",
		SuccessRedirect:   "/fallback",
	})

	stateToken, err := stateManager.Encode(&OAuthState{
		Provider:    "github",
		Action:      ActionLogin,
		RedirectURL: "/dashboard?tab=applications",
		IssuedAt:    time.Now().Unix(),
		ExpiresAt:   time.Now().Add(time.Hour).Unix(),
	})
	require.NoError(t, err)

	ctx := router.NewMockContext()
	ctx.ParamsM["provider"] = "github"
	ctx.QueriesM["code"] = "auth-code"
	ctx.QueriesM["state"] = stateToken
	ctx.On("Context").Return(context.Background())
	ctx.On("Cookie", mock.MatchedBy(func(c *router.Cookie) bool {
		return c.Name == "auth_token" && c.Value == "jwt-token" && c.HTTPOnly && c.Secure && c.SameSite == "Lax"
	})).Return()

	var redirectURL string
	captureRedirect(ctx, &redirectURL)

	require.NoError(t, controller.Callback(ctx))
	require.Len(t, accountRepo.upserts, 1)

	parsed, err := url.Parse(redirectURL)
	require.NoError(t, err)
	require.Equal(t, "/dashboard", parsed.Path)
	require.Equal(t, "applications", parsed.Query().Get("tab"), "the state's query survives")
	require.Equal(t, "true", parsed.Query().Get("new_user"))
}

func TestHTTPControllerCallbackProviderDenial(t *testing.T) {
	authenticator := newSocialAuth(nil, nil, WithStateManager(&recordingStateManager{}))
	controller := NewHTTPController(authenticator, HTTPConfig{
		ErrorRedirect: "/signin?error=auth_failed",
	})

	ctx := router.NewMockContext()
	ctx.ParamsM["provider"] = "github"
	ctx.QueriesM["error"] = "access_denied"
	ctx.QueriesM["error_description"] = "user cancelled"

	var redirectURL string
	captureRedirect(ctx, &redirectURL)

	require.NoError(t, controller.Callback(ctx))

	parsed, err := url.Parse(redirectURL)
	require.NoError(t, err)
	require.Equal(t, "access_denied", parsed.Query().Get("oauth_error"))
	require.Equal(t, "user cancelled", parsed.Query().Get("desc"))
	require.Equal(t, "auth_failed", parsed.Query().Get("error"), "the configured error param survives")
}

func TestHTTPControllerListAccountsHidesTokens(t *testing.T) {
	accountRepo := &memoryAccountRepo{
		byUser: map[string][]*SocialAccount{
			"user-1": {
				{
					ID:             "acc-1",
					UserID:         "user-1",
					Provider:       "github",
					ProviderUserID: "gh-1",
					Email:          "ada@example.com",
					Name:           "Ada",
					AvatarURL:      "https://example.com/ada.png",
					AccessToken:    "secret",
					RefreshToken:   "secret",
					CreatedAt:      time.Now(),
				},
			},
		},
	}

	authenticator := newSocialAuth(accountRepo, nil)
	controller := NewHTTPController(authenticator, HTTPConfig{SessionContextKey: "user"})

	ctx := signedInContext("user-1")

	var payload map[string]any
	ctx.On("JSON", router.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
		payload = args.Get(1).(map[string]any)
	}).Return(nil)

	require.NoError(t, controller.ListAccounts(ctx))

	accounts := payload["accounts"].([]map[string]any)
	require.Len(t, accounts, 1)
	require.Equal(t, "github", accounts[0]["provider"])
	require.NotContains(t, accounts[0], "access_token")
	require.NotContains(t, accounts[0], "refresh_token")
}

func TestHTTPControllerUnlinkAccountKeepsLastMethod(t *testing.T) {
	accountRepo := &memoryAccountRepo{
		byUser: map[string][]*SocialAccount{
			"user-1": {
				{ID: "acc-1", UserID: "user-1", Provider: "github", ProviderUserID: "gh-1"},
			},
		},
	}

	authenticator := newSocialAuth(accountRepo, nil)
	controller := NewHTTPController(authenticator, HTTPConfig{SessionContextKey: "user"})

	ctx := signedInContext("user-1")
	ctx.ParamsM["provider"] = "github"
	ctx.On("JSON", router.StatusBadRequest, mock.Anything).Return(nil)

	require.NoError(t, controller.UnlinkAccount(ctx))
	require.Empty(t, accountRepo.deleteCalls, "the only sign-in method stays linked")
}

func TestHTTPControllerUnlinkAccountRemovesExtraMethod(t *testing.T) {
	accountRepo := &memoryAccountRepo{
		byUser: map[string][]*SocialAccount{
			"user-1": {
				{ID: "acc-1", UserID: "user-1", Provider: "github", ProviderUserID: "gh-1"},
				{ID: "acc-2", UserID: "user-1", Provider: "google", ProviderUserID: "goog-1"},
			},
		},
	}

	authenticator := newSocialAuth(accountRepo, nil)
	controller := NewHTTPController(authenticator, HTTPConfig{SessionContextKey: "user"})

	ctx := signedInContext("user-1")
	ctx.ParamsM["provider"] = "google"
	ctx.On("JSON", router.StatusOK, mock.Anything).Return(nil)

	require.NoError(t, controller.UnlinkAccount(ctx))
	require.Equal(t, []string{"user-1|google"}, accountRepo.deleteCalls)
}

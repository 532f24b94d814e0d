// Package github implements the GitHub OAuth provider for social
// sign-in.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hirewire/hirewire/social"
)

const (
	defaultAuthURL   = "https://github.com/login/oauth/authorize"
	defaultTokenURL  = "https://github.com/login/oauth/access_token"
	defaultUserURL   = "https://api.github.com/user"
	defaultEmailsURL = "https://api.github.com/user/emails"
)

// Config carries the OAuth client settings. Endpoint URLs default to
// GitHub's and only need overriding in tests.
type Config struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	Scopes       []string

	AuthURL   string
	TokenURL  string
	UserURL   string
	EmailsURL string

	HTTPClient *http.Client
}

// DefaultScopes covers profile and email reads.
func DefaultScopes() []string {
	return []string{"user:email", "read:user"}
}

// Provider is the GitHub implementation of social.SocialProvider.
type Provider struct {
	config     Config
	httpClient *http.Client
}

func New(cfg Config) *Provider {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes()
	}
	cfg.AuthURL = orDefault(cfg.AuthURL, defaultAuthURL)
	cfg.TokenURL = orDefault(cfg.TokenURL, defaultTokenURL)
	cfg.UserURL = orDefault(cfg.UserURL, defaultUserURL)
	cfg.EmailsURL = orDefault(cfg.EmailsURL, defaultEmailsURL)

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &Provider{config: cfg, httpClient: client}
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func (p *Provider) Name() string {
	return "github"
}

func (p *Provider) AuthCodeURL(state string, opts ...social.AuthCodeOption) string {
	cfg := social.ApplyAuthCodeOptions(p.config.Scopes, opts...)
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes()
	}

	params := url.Values{}
	params.Set("client_id", p.config.ClientID)
	params.Set("redirect_uri", p.config.CallbackURL)
	params.Set("scope", strings.Join(scopes, " "))
	params.Set("state", state)

	if cfg.CodeChallenge != "" {
		method := cfg.CodeChallengeMethod
		if method == "" {
			method = "S256"
		}
		params.Set("code_challenge", cfg.CodeChallenge)
		params.Set("code_challenge_method", method)
	}

	return p.config.AuthURL + "?" + params.Encode()
}

func (p *Provider) Exchange(ctx context.Context, code string, opts ...social.ExchangeOption) (*social.Token, error) {
	cfg := social.ApplyExchangeOptions(opts...)

	form := url.Values{}
	form.Set("client_id", p.config.ClientID)
	form.Set("client_secret", p.config.ClientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", p.config.CallbackURL)
	if cfg.CodeVerifier != "" {
		form.Set("code_verifier", cfg.CodeVerifier)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	// without this header GitHub answers with form-encoded bodies
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var tokenResp githubTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, failure("exchange", resp.StatusCode, "invalid_response", "failed to decode token response", err, nil)
	}

	// GitHub reports OAuth errors with a 200 status, so check both
	if resp.StatusCode != http.StatusOK || tokenResp.Error != "" {
		return nil, failure("exchange", resp.StatusCode, tokenResp.Error, tokenResp.ErrorDesc, nil, tokenResp.errorMetadata())
	}
	if tokenResp.AccessToken == "" {
		return nil, failure("exchange", resp.StatusCode, "missing_access_token", "missing access token", nil, nil)
	}

	return &social.Token{
		AccessToken: tokenResp.AccessToken,
		TokenType:   tokenResp.TokenType,
		Scopes:      splitCommaScopes(tokenResp.Scope),
	}, nil
}

// UserInfo fetches the profile and resolves the address from the
// emails endpoint, since the profile email is often unset.
func (p *Provider) UserInfo(ctx context.Context, token *social.Token) (*social.SocialProfile, error) {
	user, err := p.fetchUser(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}

	email, emailVerified, err := p.fetchPrimaryEmail(ctx, token.AccessToken)
	if err != nil {
		email = user.Email
		emailVerified = false
	}

	return mapProfile(user, email, emailVerified), nil
}

// ValidateToken probes the user endpoint, which fails when the token
// was revoked.
func (p *Provider) ValidateToken(ctx context.Context, token *social.Token) error {
	_, err := p.fetchUser(ctx, token.AccessToken)
	return err
}

// RefreshToken always errors. GitHub OAuth tokens never expire.
func (p *Provider) RefreshToken(ctx context.Context, refreshToken string) (*social.Token, error) {
	return nil, fmt.Errorf("github: token refresh not supported")
}

// getAPI performs an authenticated GET against the REST API and
// returns the raw body on success.
func (p *Provider) getAPI(ctx context.Context, op, endpoint, accessToken string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, failure(op, resp.StatusCode, "", apiErrorMessage(body), nil, nil)
	}

	return body, resp.StatusCode, nil
}

func (p *Provider) fetchUser(ctx context.Context, accessToken string) (*githubUser, error) {
	body, status, err := p.getAPI(ctx, "user_info", p.config.UserURL, accessToken)
	if err != nil {
		return nil, err
	}

	var user githubUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, failure("user_info", status, "invalid_response", "failed to decode user response", err, nil)
	}
	return &user, nil
}

// fetchPrimaryEmail prefers the primary address and falls back to any
// verified one.
func (p *Provider) fetchPrimaryEmail(ctx context.Context, accessToken string) (string, bool, error) {
	body, status, err := p.getAPI(ctx, "emails", p.config.EmailsURL, accessToken)
	if err != nil {
		return "", false, err
	}

	var emails []githubEmail
	if err := json.Unmarshal(body, &emails); err != nil {
		return "", false, failure("emails", status, "invalid_response", "failed to decode emails response", err, nil)
	}

	for _, e := range emails {
		if e.Primary {
			return e.Email, e.Verified, nil
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email, true, nil
		}
	}

	return "", false, failure("emails", status, "email_not_found", "no valid email found", nil, nil)
}

type githubTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
	Error       string `json:"error"`
	ErrorDesc   string `json:"error_description"`
	ErrorURI    string `json:"error_uri"`
}

func (r githubTokenResponse) errorMetadata() map[string]any {
	meta := map[string]any{}
	if r.Error != "" {
		meta["error"] = r.Error
	}
	if r.ErrorDesc != "" {
		meta["error_description"] = r.ErrorDesc
	}
	if r.ErrorURI != "" {
		meta["error_uri"] = r.ErrorURI
	}
	if r.Scope != "" {
		meta["scope"] = r.Scope
	}
	return meta
}

func apiErrorMessage(body []byte) string {
	var apiErr struct {
		Message          string `json:"message"`
		DocumentationURL string `json:"documentation_url"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		return apiErr.Message
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return "github request failed"
	}
	return msg
}

func splitCommaScopes(scopes string) []string {
	if scopes == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(scopes, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func failure(operation string, status int, code, description string, err error, raw map[string]any) *social.ProviderError {
	return &social.ProviderError{
		Provider:    "github",
		Operation:   operation,
		Status:      status,
		Code:        code,
		Description: description,
		Err:         err,
		Raw:         raw,
	}
}

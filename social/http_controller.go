package social

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/goliatone/go-router"
	"github.com/hirewire/hirewire"
)

// RouteRegistrar is the slice of the router the controller mounts onto.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// HTTPConfig carries the cookie and redirect settings for the social routes.
type HTTPConfig struct {
	// PathPrefix the routes mount under (default "/auth/social")
	PathPrefix string

	// SessionContextKey is the locals key the JWT middleware stores claims under (default "user")
	SessionContextKey string

	// CookieName holds the signed token after a callback (default SessionContextKey)
	CookieName string

	CookieSecure   bool
	CookieHTTPOnly bool

	// CookieSameSite is "Lax", "Strict", or "None"
	CookieSameSite string

	// SuccessRedirect is where completed sign-ins land when the state carries no target
	SuccessRedirect string

	// ErrorRedirect receives failed flows, with the error appended as a query param
	ErrorRedirect string

	// ErrorHandler overrides the redirect-on-error behavior when set
	ErrorHandler func(ctx router.Context, err error) error
}

func (cfg HTTPConfig) withDefaults() HTTPConfig {
	if cfg.PathPrefix == "" {
		cfg.PathPrefix = "/auth/social"
	}
	if cfg.SessionContextKey == "" {
		cfg.SessionContextKey = "user"
	}
	if cfg.CookieName == "" {
		cfg.CookieName = cfg.SessionContextKey
	}
	if cfg.CookieSameSite == "" {
		cfg.CookieSameSite = "Lax"
	}
	if cfg.SuccessRedirect == "" {
		cfg.SuccessRedirect = "/dashboard"
	}
	if cfg.ErrorRedirect == "" {
		cfg.ErrorRedirect = "/signin?error=auth_failed"
	}
	return cfg
}

// HTTPController exposes the OAuth begin, callback, and account
// management endpoints over the router.
type HTTPController struct {
	authenticator *SocialAuthenticator
	config        HTTPConfig
}

func NewHTTPController(authenticator *SocialAuthenticator, cfg HTTPConfig) *HTTPController {
	return &HTTPController{
		authenticator: authenticator,
		config:        cfg.withDefaults(),
	}
}

// RegisterRoutes mounts the social auth routes. The literal paths go
// first so ":provider" does not shadow them.
func (c *HTTPController) RegisterRoutes(group RouteRegistrar) {
	group.Get("/providers", c.ListProviders)
	group.Get("/accounts", c.ListAccounts)
	group.Get("/:provider/callback", c.Callback)
	group.Post("/:provider/link", c.LinkAccount)
	group.Delete("/:provider", c.UnlinkAccount)
	group.Get("/:provider", c.BeginAuth)
}

// ListProviders answers with the names of the configured providers.
func (c *HTTPController) ListProviders(ctx router.Context) error {
	return ctx.JSON(router.StatusOK, map[string]any{
		"providers": c.authenticator.ListProviders(),
	})
}

// BeginAuth builds the provider authorization URL and redirects the
// browser to it. Linking flows require a signed-in session.
func (c *HTTPController) BeginAuth(ctx router.Context) error {
	providerName := ctx.Param("provider", "")

	redirectURL := ctx.Query("redirect_url", "")
	if redirectURL == "" {
		redirectURL = c.config.SuccessRedirect
	}

	action := ctx.Query("action", "")
	if action == "" {
		action = ActionLogin
	}

	opts := []BeginAuthOption{
		ForAction(action),
		WithRedirectURL(redirectURL),
	}

	if action == ActionLink {
		userID := c.sessionUserID(ctx)
		if userID == "" {
			return c.unauthorized(ctx, "authentication required for linking")
		}
		opts = append(opts, ForLinkingUser(userID))
	}

	redirect, err := c.authenticator.BeginAuth(ctx.Context(), providerName, opts...)
	if err != nil {
		return c.fail(ctx, err)
	}

	return ctx.Redirect(redirect.URL, http.StatusTemporaryRedirect)
}

// Callback completes the OAuth flow, stores the signed token in a
// cookie, and sends the browser to the redirect carried in the state.
func (c *HTTPController) Callback(ctx router.Context) error {
	providerName := ctx.Param("provider", "")
	code := ctx.Query("code", "")
	state := ctx.Query("state", "")

	// the provider reports user denials and config problems as query params
	if errCode := ctx.Query("error", ""); errCode != "" {
		target := withQueryParam(c.config.ErrorRedirect, "oauth_error", errCode)
		if desc := ctx.Query("error_description", ""); desc != "" {
			target = withQueryParam(target, "desc", desc)
		}
		return ctx.Redirect(target, http.StatusTemporaryRedirect)
	}

	if code == "" || state == "" {
		target := withQueryParam(c.config.ErrorRedirect, "error", "missing_params")
		return ctx.Redirect(target, http.StatusTemporaryRedirect)
	}

	result, err := c.authenticator.CompleteAuth(ctx.Context(), providerName, code, state)
	if err != nil {
		return c.fail(ctx, err)
	}

	c.writeSessionCookie(ctx, result.Token)

	target := result.RedirectURL
	if target == "" {
		target = c.config.SuccessRedirect
	}
	if result.IsNewUser {
		target = withQueryParam(target, "new_user", "true")
	}

	return ctx.Redirect(target, http.StatusTemporaryRedirect)
}

// LinkAccount starts a linking flow for the signed-in user and answers
// with the provider URL instead of redirecting, so the dashboard can
// open it from script.
func (c *HTTPController) LinkAccount(ctx router.Context) error {
	userID := c.sessionUserID(ctx)
	if userID == "" {
		return c.unauthorized(ctx, "authentication required")
	}

	providerName := ctx.Param("provider", "")

	redirect, err := c.authenticator.BeginAuth(ctx.Context(), providerName, ForLinkingUser(userID))
	if err != nil {
		return c.fail(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]string{
		"redirect_url": redirect.URL,
	})
}

// UnlinkAccount removes one linked provider. The last remaining sign-in
// method cannot be removed.
func (c *HTTPController) UnlinkAccount(ctx router.Context) error {
	userID := c.sessionUserID(ctx)
	if userID == "" {
		return c.unauthorized(ctx, "authentication required")
	}

	providerName := ctx.Param("provider", "")

	accounts, err := c.authenticator.accountRepo.FindByUserID(ctx.Context(), userID)
	if err != nil {
		return c.fail(ctx, err)
	}

	if len(accounts) <= 1 {
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"error": ErrLastAuthMethod.Error(),
		})
	}

	if err := c.authenticator.accountRepo.DeleteByUserAndProvider(ctx.Context(), userID, providerName); err != nil {
		return c.fail(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]string{
		"status": "unlinked",
	})
}

// ListAccounts answers with the signed-in user's linked accounts.
// Tokens never leave the server.
func (c *HTTPController) ListAccounts(ctx router.Context) error {
	userID := c.sessionUserID(ctx)
	if userID == "" {
		return c.unauthorized(ctx, "authentication required")
	}

	accounts, err := c.authenticator.accountRepo.FindByUserID(ctx.Context(), userID)
	if err != nil {
		return c.fail(ctx, err)
	}

	views := make([]map[string]any, 0, len(accounts))
	for _, acc := range accounts {
		views = append(views, accountView(acc))
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"accounts": views,
	})
}

func accountView(acc *SocialAccount) map[string]any {
	return map[string]any{
		"id":               acc.ID,
		"provider":         acc.Provider,
		"provider_user_id": acc.ProviderUserID,
		"email":            acc.Email,
		"name":             acc.Name,
		"avatar_url":       acc.AvatarURL,
		"created_at":       acc.CreatedAt,
	}
}

func (c *HTTPController) sessionUserID(ctx router.Context) string {
	session, err := hirewire.GetRouterSession(ctx, c.config.SessionContextKey)
	if err != nil {
		return ""
	}
	return session.GetUserID()
}

func (c *HTTPController) unauthorized(ctx router.Context, msg string) error {
	return ctx.JSON(router.StatusUnauthorized, map[string]string{
		"error": msg,
	})
}

func (c *HTTPController) writeSessionCookie(ctx router.Context, token string) {
	ctx.Cookie(&router.Cookie{
		Name:     c.config.CookieName,
		Value:    token,
		Path:     "/",
		Secure:   c.config.CookieSecure,
		HTTPOnly: c.config.CookieHTTPOnly,
		SameSite: c.config.CookieSameSite,
	})
}

func (c *HTTPController) fail(ctx router.Context, err error) error {
	if c.config.ErrorHandler != nil {
		return c.config.ErrorHandler(ctx, err)
	}
	return ctx.Redirect(withQueryParam(c.config.ErrorRedirect, "error", err.Error()), http.StatusTemporaryRedirect)
}

// withQueryParam appends key=value to rawURL, preserving any query it
// already carries.
func withQueryParam(rawURL, key, value string) string {
	if rawURL == "" {
		return ""
	}

	parsed, err := url.Parse(rawURL)
	if err == nil {
		query := parsed.Query()
		query.Set(key, value)
		parsed.RawQuery = query.Encode()
		return parsed.String()
	}

	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + url.QueryEscape(key) + "=" + url.QueryEscape(value)
}

package hirewire

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/hirewire/hirewire/middleware/jwtware"
)

// RouteAuthenticator binds the authenticator to HTTP concerns: session
// cookies, protected-route middleware and the guest gate.
type RouteAuthenticator struct {
	auth                   Authenticator
	cfg                    Config
	tokens                 TokenValidator
	listeners              []ValidationListener
	templateUser           func(jwtware.AuthClaims) (any, error)
	cookieDuration         time.Duration
	extendedCookieDuration time.Duration
	Logger                 Logger
	AuthErrorHandler       func(c router.Context, err error) error
	ErrorHandler           func(c router.Context, err error) error
}

func NewHTTPAuthenticator(auther Authenticator, cfg Config) (*RouteAuthenticator, error) {
	cookieDuration := 24 * time.Hour
	if cfg.GetTokenExpiration() > 0 {
		cookieDuration = time.Duration(cfg.GetTokenExpiration()) * time.Hour
	}

	// remember-me sessions fall back to the regular duration when no
	// extended duration is configured
	extendedCookieDuration := cookieDuration
	if cfg.GetExtendedTokenDuration() > 0 {
		extendedCookieDuration = time.Duration(cfg.GetExtendedTokenDuration()) * time.Hour
	}

	a := &RouteAuthenticator{
		cfg:                    cfg,
		auth:                   auther,
		Logger:                 defLogger{},
		cookieDuration:         cookieDuration,
		extendedCookieDuration: extendedCookieDuration,
	}

	a.tokens = NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetTokenExpiration(),
		cfg.GetIssuer(),
		jwt.ClaimStrings(cfg.GetAudience()),
		a.Logger,
	)

	a.ErrorHandler = a.defaultErrHandler
	a.AuthErrorHandler = a.defaultAuthErrHandler

	return a, nil
}

// WithTokenValidator swaps the middleware token validator, e.g. for a
// MultiTokenValidator during signing key rotation.
func (a *RouteAuthenticator) WithTokenValidator(validator TokenValidator) *RouteAuthenticator {
	if validator != nil {
		a.tokens = validator
	}
	return a
}

func (a *RouteAuthenticator) WithLogger(logger Logger) *RouteAuthenticator {
	if logger != nil {
		a.Logger = logger
	}
	return a
}

// WithValidationListeners registers listeners that run after every
// successful token validation on protected routes.
func (a *RouteAuthenticator) WithValidationListeners(listeners ...ValidationListener) *RouteAuthenticator {
	a.listeners = append(a.listeners, listeners...)
	return a
}

// WithTemplateUserProvider resolves the template user record from validated
// claims, so views see the full user instead of the raw claims.
func (a *RouteAuthenticator) WithTemplateUserProvider(provider func(AuthClaims) (any, error)) *RouteAuthenticator {
	if provider == nil {
		return a
	}
	a.templateUser = func(claims jwtware.AuthClaims) (any, error) {
		ac, ok := claims.(AuthClaims)
		if !ok {
			return claims, nil
		}
		return provider(ac)
	}
	return a
}

func (a RouteAuthenticator) GetCookieDuration() time.Duration {
	return a.cookieDuration
}

func (a RouteAuthenticator) GetExtendedCookieDuration() time.Duration {
	return a.extendedCookieDuration
}

func (a *RouteAuthenticator) ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	return jwtware.New(jwtware.Config{
		ErrorHandler: errorHandler,
		SigningKey: jwtware.SigningKey{
			Key:    []byte(cfg.GetSigningKey()),
			JWTAlg: cfg.GetSigningMethod(),
		},
		AuthScheme:          cfg.GetAuthScheme(),
		ContextKey:          cfg.GetContextKey(),
		TokenLookup:         cfg.GetTokenLookup(),
		TokenValidator:      jwtwareValidator{validator: a.tokens},
		ContextEnricher:     ContextEnricherAdapter,
		TemplateUserKey:     TemplateUserKey,
		UserProvider:        a.templateUser,
		ValidationListeners: a.listeners,
	})
}

// RequireGuest keeps authenticated users away from guest-only pages such as
// sign in and sign up. An invalid or missing session is a no-op.
func (a *RouteAuthenticator) RequireGuest(redirect string) router.MiddlewareFunc {
	if redirect == "" {
		redirect = "/dashboard"
	}

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			raw := ctx.Cookies(a.cfg.GetContextKey(), "")
			if raw == "" {
				return next(ctx)
			}

			if _, err := a.auth.SessionFromToken(raw); err != nil {
				return next(ctx)
			}

			return ctx.Redirect(redirect, http.StatusSeeOther)
		}
	}
}

func (a *RouteAuthenticator) Login(ctx router.Context, payload LoginPayload) error {
	token, err := a.auth.Login(ctx.Context(), payload.GetIdentifier(), payload.GetPassword())
	if err != nil {
		a.Logger.Error("Login error", "error", err)
		return err
	}

	a.StoreToken(ctx, token, payload.GetExtendedSession())
	return nil
}

// StoreToken writes the session cookie for an already minted token.
func (a *RouteAuthenticator) StoreToken(ctx router.Context, token string, extended bool) {
	duration := a.cookieDuration
	if extended {
		duration = a.extendedCookieDuration
	}

	a.writeCookie(ctx, a.cfg.GetContextKey(), token, time.Now().Add(duration))
}

func (a *RouteAuthenticator) Logout(ctx router.Context) {
	a.expireCookie(ctx, a.cfg.GetContextKey())
}

// MakeClientRouteAuthErrorHandler builds the error handler for pages.
// With optional set, a failed validation falls through to the handler
// chain as an anonymous request instead of erroring.
func (a *RouteAuthenticator) MakeClientRouteAuthErrorHandler(optional bool) func(router.Context, error) error {
	return func(ctx router.Context, err error) error {
		var richErr *errors.Error

		switch {
		case IsTokenExpiredError(err):
			richErr = ErrTokenExpired
		case IsMalformedError(err):
			richErr = ErrTokenMalformed
		default:
			richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
				WithCode(errors.CodeUnauthorized)
		}

		if optional {
			a.Logger.Info("Optional auth failed, proceeding", "error", richErr.Message)
			return ctx.Next()
		}

		return a.ErrorHandler(ctx, richErr)
	}
}

// GetRedirect pops the rejected-route cookie, falling back to def.
func (a *RouteAuthenticator) GetRedirect(ctx router.Context, def ...string) string {
	rejectedRoute := a.cfg.GetRejectedRouteKey()
	r := ctx.Cookies(rejectedRoute)
	if r == "" {
		return def[0]
	}
	a.expireCookie(ctx, rejectedRoute)
	return r
}

func (a *RouteAuthenticator) GetRedirectOrDefault(ctx router.Context) string {
	rejectedRoute := a.cfg.GetRejectedRouteKey()
	refererHeader := string(ctx.Referer())

	r := ctx.Cookies(rejectedRoute, refererHeader)
	if r == "" {
		r = a.cfg.GetRejectedRouteDefault()
	}
	a.expireCookie(ctx, rejectedRoute)
	return r
}

// SetRedirect remembers the rejected path so sign-in can send the user
// back afterwards.
func (a *RouteAuthenticator) SetRedirect(ctx router.Context) {
	rejectedRoute := a.cfg.GetRejectedRouteKey()

	a.Logger.Info("Setting redirect cookie", "key", rejectedRoute, "path", ctx.OriginalURL())

	a.writeCookie(ctx, rejectedRoute, ctx.OriginalURL(), time.Now().Add(5*time.Minute))
}

func (a *RouteAuthenticator) writeCookie(c router.Context, name, val string, expires time.Time) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    val,
		Expires:  expires,
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) expireCookie(c router.Context, name string) {
	a.writeCookie(c, name, "", time.Now().Add(-time.Hour*(24*365)))
}

func (a *RouteAuthenticator) defaultAuthErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuth, "An unexpected authentication error").
			WithCode(errors.CodeUnauthorized)
	}

	a.Logger.Info(
		"Authentication error, redirecting to sign in",
		"error", richErr.Message,
		"text_code", richErr.TextCode,
		"path", c.OriginalURL(),
	)

	a.SetRedirect(c)

	// GET requests get a plain 302, form posts need 303 so the browser
	// re-requests with GET
	statusCode := http.StatusSeeOther
	if c.Method() == string(router.GET) {
		statusCode = http.StatusFound
	}
	return c.Redirect("/signin", statusCode)
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Info(
		"Middleware error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	switch richErr.Category {
	case errors.CategoryAuth, errors.CategoryAuthz:
		return a.AuthErrorHandler(c, richErr)
	default:
		return c.Status(richErr.Code).Render("errors/500", router.ViewContext{
			"error": richErr,
		})
	}
}

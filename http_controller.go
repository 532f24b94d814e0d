package hirewire

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
)

type Middleware interface {
	ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc
	RequireGuest(redirect string) router.MiddlewareFunc
}

// GetRouterSession reads the session stored by the JWT middleware under the
// given locals key. Unauthenticated requests return an error, callers that
// treat absence as a plain state should use CurrentSession instead.
func GetRouterSession(c router.Context, key string) (*SessionObject, error) {
	raw := c.Locals(key)
	if raw == nil {
		return nil, ErrUnableToFindSession
	}

	claims, ok := raw.(AuthClaims)
	if claims == nil || !ok {
		return nil, ErrUnableToDecodeSession
	}

	return sessionFromAuthClaims(claims)
}

// RegisterAuthRoutes mounts the sign-in, sign-up and sign-out pages.
// The GET pages are guest-only, signed-in visitors land on /dashboard.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {
	controller := NewAuthController(opts...)

	guestOnly := controller.Auther.RequireGuest("/dashboard")

	app.Get(controller.Routes.SignIn, controller.SignInShow, guestOnly).
		SetName("sign-in.get")
	app.Post(controller.Routes.SignIn, controller.SignInPost).
		SetName("sign-in.post")

	app.Get(controller.Routes.SignUp, controller.SignUpShow, guestOnly).
		SetName("sign-up.get")
	app.Post(controller.Routes.SignUp, controller.SignUpPost).
		SetName("sign-up.post")

	app.Get(controller.Routes.SignOut, controller.SignOut).
		SetName("sign-out.get")
}

type AuthControllerRoutes struct {
	SignIn  string
	SignUp  string
	SignOut string
}

type AuthControllerViews struct {
	SignIn string
	SignUp string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Actions      *AuthActions
	Routes       *AuthControllerRoutes
	Views        *AuthControllerViews
	Auther       HTTPAuthenticator
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defLogger{},
		ErrorHandler: defaultControllerErrHandler,
		Routes: &AuthControllerRoutes{
			SignIn:  "/signin",
			SignUp:  "/signup",
			SignOut: "/signout",
		},
		Views: &AuthControllerViews{
			SignIn: "signin",
			SignUp: "signup",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing HTTPAuthenticator in auth controller...")
	}

	if c.Actions == nil {
		panic("Missing AuthActions in auth controller...")
	}

	return c
}

func (a *AuthController) WithLogger(logger Logger) *AuthController {
	if logger != nil {
		a.Logger = logger
	}
	return a
}

func (a *AuthController) SignInShow(ctx router.Context) error {
	return a.renderSignIn(ctx, router.ViewContext{
		"errors": nil,
		"record": nil,
	})
}

func (a *AuthController) renderSignIn(ctx router.Context, data router.ViewContext) error {
	return ctx.Render(a.Views.SignIn, MergeTemplateData(ctx, data))
}

// SignInRequest is the sign-in form payload.
type SignInRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
	RememberMe bool   `form:"remember_me" json:"remember_me"`
}

func (r SignInRequest) GetIdentifier() string { return r.Identifier }

func (r SignInRequest) GetPassword() string { return r.Password }

// GetExtendedSession reports whether the remember me box was checked.
func (r SignInRequest) GetExtendedSession() bool { return r.RememberMe }

func (r SignInRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Identifier, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AuthController) SignInPost(ctx router.Context) error {
	payload := new(SignInRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("sign in parse payload: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.renderSignIn(ctx, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if a.Debug {
		a.Logger.Debug("sign in payload", "payload", print.MaybePrettyJSON(payload))
	}

	result := a.Actions.SignIn(ctx.Context(), payload.Identifier, payload.Password)
	if !result.Success {
		return a.renderSignIn(ctx, router.ViewContext{
			"errors": map[string]string{
				"authentication": result.Error,
			},
			"record": payload,
		})
	}

	a.Auther.StoreToken(ctx, result.Token, payload.RememberMe)

	return ctx.Redirect(a.Auther.GetRedirect(ctx, "/dashboard"), router.StatusSeeOther)
}

func (a *AuthController) SignOut(ctx router.Context) error {
	stdCtx := ctx.Context()
	if session := CurrentSession(ctx); session != nil {
		stdCtx = WithSessionContext(stdCtx, session)
	}

	result := a.Actions.SignOut(stdCtx)
	if !result.Success {
		a.Logger.Warn("sign out", "error", result.Cause())
	}

	a.Auther.Logout(ctx)

	return ctx.Redirect("/", router.StatusSeeOther)
}

func (a *AuthController) SignUpShow(ctx router.Context) error {
	return ctx.Render(a.Views.SignUp, MergeTemplateData(ctx, router.ViewContext{
		"errors": map[string]string{},
		"record": SignUpPayload{},
	}))
}

// SignUpPayload is the sign-up form payload.
type SignUpPayload struct {
	Name            string `form:"name" json:"name"`
	Email           string `form:"email" json:"email"`
	Phone           string `form:"phone_number" json:"phone_number"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate enforces the account rules, the confirmation field has to
// match the password.
func (r SignUpPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Phone, validation.Length(10, 11), is.Digit),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(10, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) SignUpPost(ctx router.Context) error {
	payload := new(SignUpPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("sign up parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.SignUp, MergeTemplateData(ctx, router.ViewContext{
			"errors": map[string]string{"form": "Failed to parse form"},
			"record": payload,
		}))
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("sign up validate payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.SignUp, MergeTemplateData(ctx, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		}))
	}

	result := a.Actions.SignUp(ctx.Context(), SignUpInput{
		Name:     payload.Name,
		Email:    payload.Email,
		Phone:    payload.Phone,
		Password: payload.Password,
	})
	if !result.Success {
		a.Logger.Error("sign up failed: ", "error", result.Cause())
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  result.Error,
			"system_message": "Error creating account",
		}).Render(a.Views.SignUp, MergeTemplateData(ctx, router.ViewContext{
			"record": payload,
			"errors": map[string]string{"account": result.Error},
		}))
	}

	a.Auther.StoreToken(ctx, result.Token, false)

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Welcome aboard, your account is ready",
	}).Redirect("/dashboard", fiber.StatusSeeOther)
}

// ValidateStringEquals builds a rule that checks the value matches str.
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

func defaultControllerErrHandler(c router.Context, err error) error {
	return c.Render("errors/500", router.ViewContext{
		"message": err.Error(),
	})
}

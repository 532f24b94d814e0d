package hirewire

import (
	"context"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// External messages stay generic on purpose, the wrapped cause keeps the
// distinct failure kind for logs.
const (
	MsgInvalidCredentials = "Invalid email or password"
	MsgSignUpFailed       = "Failed to create account. Please try again."
	MsgSignOutFailed      = "Failed to sign out"
)

// AuthResult is the uniform outcome for every auth action. No action panics
// or re-raises, faults are folded into the result.
type AuthResult struct {
	Success     bool   `json:"success"`
	User        *User  `json:"user,omitempty"`
	Token       string `json:"-"`
	Error       string `json:"error,omitempty"`
	RedirectURL string `json:"redirect_url,omitempty"`

	cause error
}

// Cause exposes the internal error for logging and diagnostics. It is never
// rendered to the end user.
func (r AuthResult) Cause() error {
	return r.cause
}

func okResult() AuthResult {
	return AuthResult{Success: true}
}

func failResult(message string, cause error) AuthResult {
	return AuthResult{Success: false, Error: message, cause: cause}
}

// SocialSignIn starts a provider OAuth flow and yields the redirect URL.
type SocialSignIn interface {
	AuthorizationURL(ctx context.Context, provider, redirect string) (string, error)
}

// SignUpInput carries the fields collected by the sign-up form.
type SignUpInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
}

// AuthActions bundles the sign-in, sign-up, social sign-in, and sign-out
// workflows behind a single result-object policy.
type AuthActions struct {
	auther   Authenticator
	users    Users
	register *RegisterUserHandler
	social   SocialSignIn
	logger   Logger
	sink     ActivitySink
}

func NewAuthActions(auther Authenticator, repo RepositoryManager) *AuthActions {
	return &AuthActions{
		auther:   auther,
		users:    repo.Users(),
		register: NewRegisterUserHandler(repo),
		logger:   defLogger{},
		sink:     noopActivitySink{},
	}
}

func (a *AuthActions) WithLogger(logger Logger) *AuthActions {
	if logger != nil {
		a.logger = logger
	}
	return a
}

func (a *AuthActions) WithSocial(social SocialSignIn) *AuthActions {
	a.social = social
	return a
}

func (a *AuthActions) WithActivitySink(sink ActivitySink) *AuthActions {
	a.sink = normalizeActivitySink(sink)
	return a
}

// SignIn verifies credentials and mints a session token. Bad credentials and
// infrastructure faults share one external message, the cause differs.
func (a *AuthActions) SignIn(ctx context.Context, email, password string) AuthResult {
	token, err := a.auther.Login(ctx, email, password)
	if err != nil {
		a.logger.Warn("sign in failed", "email", email, "error", err)
		return failResult(MsgInvalidCredentials, err)
	}

	user, err := a.users.GetByIdentifier(ctx, email)
	if err != nil {
		a.logger.Error("sign in could not load account after login", "email", email, "error", err)
		return failResult(MsgInvalidCredentials, err)
	}

	result := okResult()
	result.User = user
	result.Token = token
	return result
}

// SignUp registers the account and signs the new user in.
func (a *AuthActions) SignUp(ctx context.Context, input SignUpInput) AuthResult {
	firstName, lastName := splitName(input.Name)

	user, err := a.register.Execute(ctx, RegisterUserMessage{
		FirstName: firstName,
		LastName:  lastName,
		Email:     input.Email,
		Phone:     input.Phone,
		Password:  input.Password,
	})
	if err != nil {
		a.logger.Warn("sign up failed", "email", input.Email, "error", err)
		return failResult(MsgSignUpFailed, err)
	}

	a.recordEvent(ctx, ActivityEventSignup, user.ID.String(), map[string]any{
		"email": user.Email,
	})

	result := a.SignIn(ctx, input.Email, input.Password)
	if !result.Success {
		// The account exists but the follow-up sign in broke, keep the
		// sign-up message so the user retries from the sign-in page.
		return failResult(MsgSignUpFailed, result.Cause())
	}

	return result
}

// SignInSocial starts the OAuth flow for the given provider. Failures are
// reported in the result, never raised.
func (a *AuthActions) SignInSocial(ctx context.Context, provider, redirect string) AuthResult {
	message := fmt.Sprintf("Failed to authenticate with %s", provider)

	if a.social == nil {
		return failResult(message, goerrors.New("social sign in is not configured", goerrors.CategoryInternal))
	}

	url, err := a.social.AuthorizationURL(ctx, provider, redirect)
	if err != nil {
		a.logger.Warn("social sign in failed", "provider", provider, "error", err)
		return failResult(message, err)
	}

	result := okResult()
	result.RedirectURL = url
	return result
}

// SignOut ends the session. Cookie removal happens at the HTTP layer, this
// records the event and reports the outcome.
func (a *AuthActions) SignOut(ctx context.Context) AuthResult {
	if err := ctx.Err(); err != nil {
		return failResult(MsgSignOutFailed, err)
	}

	userID := ""
	if session, ok := SessionFromContext(ctx); ok && session != nil {
		userID = session.GetUserID()
	}

	a.recordEvent(ctx, ActivityEventSignout, userID, nil)

	return okResult()
}

func (a *AuthActions) recordEvent(ctx context.Context, eventType ActivityEventType, userID string, metadata map[string]any) {
	sink := normalizeActivitySink(a.sink)
	if metadata == nil {
		metadata = map[string]any{}
	}

	err := sink.Record(ctx, ActivityEvent{
		EventType: eventType,
		Actor:     ActorRef{ID: userID, Type: "user"},
		UserID:    userID,
		Metadata:  metadata,
	})
	if err != nil {
		a.logger.Warn("activity sink record error", "error", err)
	}
}

func splitName(name string) (string, string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ""
	}

	first, rest, found := strings.Cut(name, " ")
	if !found {
		return first, ""
	}

	return first, strings.TrimSpace(rest)
}

package hirewire

import (
	"context"
	"reflect"
	"time"
)

// ResourceRoleProvider looks up per-resource role grants that get
// embedded in session tokens at sign-in.
type ResourceRoleProvider interface {
	FindResourceRoles(ctx context.Context, identity Identity) (map[string]string, error)
}

type noopResourceRoleProvider struct{}

func (noopResourceRoleProvider) FindResourceRoles(context.Context, Identity) (map[string]string, error) {
	return nil, nil
}

// Auther turns verified identities into signed session tokens and
// tokens back into sessions.
type Auther struct {
	provider       IdentityProvider
	roleProvider   ResourceRoleProvider
	signingKey     []byte
	issuer         string
	audience       []string
	logger         Logger
	tokenService   TokenService
	tokenValidator TokenValidator
	activitySink   ActivitySink
}

func NewAuthenticator(provider IdentityProvider, opts Config) *Auther {
	tokenService := NewTokenService(
		[]byte(opts.GetSigningKey()),
		opts.GetTokenExpiration(),
		opts.GetIssuer(),
		opts.GetAudience(),
		defLogger{},
	)

	return &Auther{
		provider:     provider,
		roleProvider: &noopResourceRoleProvider{},
		signingKey:   []byte(opts.GetSigningKey()),
		audience:     opts.GetAudience(),
		issuer:       opts.GetIssuer(),
		logger:       defLogger{},
		tokenService: tokenService,
		activitySink: noopActivitySink{},
	}
}

func (a *Auther) WithLogger(logger Logger) *Auther {
	a.logger = logger
	return a
}

// WithTokenService swaps the service that mints and validates session
// tokens.
func (a *Auther) WithTokenService(service TokenService) *Auther {
	if service != nil {
		a.tokenService = service
	}
	return a
}

// WithResourceRoleProvider sets where resource role grants come from.
func (a *Auther) WithResourceRoleProvider(provider ResourceRoleProvider) *Auther {
	a.roleProvider = provider
	return a
}

// WithClaimsDecorator installs a decorator that enriches claims before
// signing.
func (a *Auther) WithClaimsDecorator(decorator ClaimsDecorator) *Auther {
	if ts, ok := a.tokenService.(*TokenServiceImpl); ok {
		ts.WithClaimsDecorator(decorator)
	}
	return a
}

// WithActivitySink routes sign-in activity events to sink.
func (a *Auther) WithActivitySink(sink ActivitySink) *Auther {
	a.activitySink = normalizeActivitySink(sink)
	return a
}

// WithTokenValidator accepts tokens issued elsewhere, for example
// under a rotated-out signing key.
func (a *Auther) WithTokenValidator(validator TokenValidator) *Auther {
	a.tokenValidator = validator
	return a
}

// TokenService exposes the service this authenticator signs with.
func (a *Auther) TokenService() TokenService {
	return a.tokenService
}

// Login verifies the credentials and returns a signed session token.
// Every outcome, success or failure, lands in the activity sink.
func (a *Auther) Login(ctx context.Context, identifier, password string) (string, error) {
	identity, err := a.provider.VerifyIdentity(ctx, identifier, password)
	if err != nil {
		a.logger.Error("Login verify identity error", "error", err)
		a.recordLoginFailure(ctx, identifier, nil, map[string]any{"error": err.Error()})
		return "", err
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		a.logger.Error("Login identity is nil or zero value")
		a.recordLoginFailure(ctx, identifier, nil, map[string]any{"error": ErrIdentityNotFound.Error()})
		return "", ErrIdentityNotFound
	}

	if status, err := a.ensureIdentityActive(identity); err != nil {
		a.logger.Warn("Login blocked due to user status", "status", status, "error", err)
		a.recordLoginFailure(ctx, identifier, identity, map[string]any{
			"error":  err.Error(),
			"status": status,
		})
		return "", err
	}

	resourceRoles, err := a.roleProvider.FindResourceRoles(ctx, identity)
	if err != nil {
		a.logger.Error("Login failed to fetch resource roles", "error", err)
		a.recordLoginFailure(ctx, identifier, identity, map[string]any{"error": err.Error()})
		return "", err
	}

	token, err := a.tokenService.Generate(identity, resourceRoles)
	if err != nil {
		a.recordLoginFailure(ctx, identifier, identity, map[string]any{"error": err.Error()})
		return "", err
	}

	a.emitAuthEvent(ctx, ActivityEventLoginSuccess, a.actorFromIdentity(identity), identity.ID(), map[string]any{
		"identifier": identifier,
	})

	return token, nil
}

func (a *Auther) recordLoginFailure(ctx context.Context, identifier string, identity Identity, metadata map[string]any) {
	actor := ActorRef{Type: "unknown"}
	userID := ""
	if identity != nil {
		actor = a.actorFromIdentity(identity)
		userID = identity.ID()
	}

	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["identifier"] = identifier

	a.emitAuthEvent(ctx, ActivityEventLoginFailure, actor, userID, metadata)
}

// IdentityFromSession resolves the session's user back into a full
// identity.
func (a *Auther) IdentityFromSession(ctx context.Context, session Session) (Identity, error) {
	identity, err := a.provider.FindIdentityByIdentifier(ctx, session.GetUserID())
	if err != nil {
		a.logger.Error("IdentityFromSession find identity by identifier", "error", err)
		return nil, err
	}

	return identity, nil
}

func (a Auther) SessionFromToken(raw string) (Session, error) {
	validator := a.tokenValidator
	if validator == nil {
		validator = a.tokenService
	}

	claims, err := validator.Validate(raw)
	if err != nil {
		a.logger.Error("SessionFromToken validation failed", "error", err)
		return nil, err
	}

	session, err := sessionFromAuthClaims(claims)
	if err != nil {
		a.logger.Error("SessionFromToken failed to create session from claims", "error", err)
		return nil, err
	}

	return session, nil
}

func (a *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, userID string, metadata map[string]any) {
	if metadata == nil {
		metadata = map[string]any{}
	}

	event := ActivityEvent{
		EventType:  eventType,
		Actor:      actor,
		UserID:     userID,
		Metadata:   metadata,
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(a.activitySink).Record(ctx, event); err != nil {
		a.logger.Warn("activity sink record error", "error", err)
	}
}

func (a *Auther) ensureIdentityActive(identity Identity) (UserStatus, error) {
	status, ok := identityStatus(identity)
	if !ok {
		return "", nil
	}

	if status == "" {
		status = UserStatusActive
	}

	if err := statusAuthError(status); err != nil {
		return status, err
	}

	return status, nil
}

type statusAwareIdentity interface {
	Status() UserStatus
}

func identityStatus(identity Identity) (UserStatus, bool) {
	if identity == nil {
		return "", false
	}

	if sa, ok := identity.(statusAwareIdentity); ok {
		return sa.Status(), true
	}

	return "", false
}

func (a *Auther) actorFromIdentity(identity Identity) ActorRef {
	if identity == nil {
		return ActorRef{Type: "unknown"}
	}

	return ActorRef{
		ID:   identity.ID(),
		Type: "user",
	}
}

package hirewire_test

import (
	"context"

	"github.com/goliatone/go-router"
	"github.com/hirewire/hirewire"
	"github.com/stretchr/testify/mock"
)

// MockAuthenticator stands in for hirewire.Authenticator.
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Login(ctx context.Context, identifier, password string) (string, error) {
	args := m.Called(ctx, identifier, password)
	return args.String(0), args.Error(1)
}

func (m *MockAuthenticator) SessionFromToken(token string) (hirewire.Session, error) {
	args := m.Called(token)
	return args.Get(0).(hirewire.Session), args.Error(1)
}

func (m *MockAuthenticator) IdentityFromSession(ctx context.Context, session hirewire.Session) (hirewire.Identity, error) {
	args := m.Called(ctx, session)
	return args.Get(0).(hirewire.Identity), args.Error(1)
}

// MockIdentityProvider stands in for hirewire.IdentityProvider. The
// soft casts let expectations return nil identities.
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyIdentity(ctx context.Context, identifier, password string) (hirewire.Identity, error) {
	args := m.Called(ctx, identifier, password)
	identity, _ := args.Get(0).(hirewire.Identity)
	return identity, args.Error(1)
}

func (m *MockIdentityProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (hirewire.Identity, error) {
	args := m.Called(ctx, identifier)
	identity, _ := args.Get(0).(hirewire.Identity)
	return identity, args.Error(1)
}

type MockResourceRoleProvider struct {
	mock.Mock
}

func (m *MockResourceRoleProvider) FindResourceRoles(ctx context.Context, identity hirewire.Identity) (map[string]string, error) {
	args := m.Called(ctx, identity)
	roles, _ := args.Get(0).(map[string]string)
	return roles, args.Error(1)
}

type MockActivitySink struct {
	mock.Mock
}

func (m *MockActivitySink) Record(ctx context.Context, event hirewire.ActivityEvent) error {
	return m.Called(ctx, event).Error(0)
}

// MockConfig stands in for hirewire.Config.
type MockConfig struct {
	mock.Mock
}

func (m *MockConfig) GetSigningKey() string        { return m.Called().String(0) }
func (m *MockConfig) GetSigningMethod() string     { return m.Called().String(0) }
func (m *MockConfig) GetContextKey() string        { return m.Called().String(0) }
func (m *MockConfig) GetTokenExpiration() int      { return m.Called().Int(0) }
func (m *MockConfig) GetExtendedTokenDuration() int { return m.Called().Int(0) }
func (m *MockConfig) GetTokenLookup() string       { return m.Called().String(0) }
func (m *MockConfig) GetAuthScheme() string        { return m.Called().String(0) }
func (m *MockConfig) GetIssuer() string            { return m.Called().String(0) }
func (m *MockConfig) GetAudience() []string        { return m.Called().Get(0).([]string) }
func (m *MockConfig) GetRejectedRouteKey() string  { return m.Called().String(0) }
func (m *MockConfig) GetRejectedRouteDefault() string { return m.Called().String(0) }

// MockLoginPayload is a fixed-value hirewire.LoginPayload.
type MockLoginPayload struct {
	Identifier      string
	Password        string
	ExtendedSession bool
}

func (m MockLoginPayload) GetIdentifier() string    { return m.Identifier }
func (m MockLoginPayload) GetPassword() string      { return m.Password }
func (m MockLoginPayload) GetExtendedSession() bool { return m.ExtendedSession }

// MockContext mocks router.Context for handler tests. Next is tracked
// with a flag instead of an expectation so middleware tests can assert
// pass-through without arranging it.
type MockContext struct {
	mock.Mock
	NextCalled bool
}

func (m *MockContext) Next() error {
	m.NextCalled = true
	return nil
}

func (m *MockContext) Context() context.Context {
	c, ok := m.Called().Get(0).(context.Context)
	if !ok {
		panic("arg needs to be context.Context")
	}
	return c
}

func (m *MockContext) SetContext(ctx context.Context) { m.Called(ctx) }

// request data

func (m *MockContext) Path() string   { return m.Called().String(0) }
func (m *MockContext) Method() string { return m.Called().String(0) }
func (m *MockContext) Body() []byte   { return m.Called().Get(0).([]byte) }

func (m *MockContext) Param(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		return m.Called(key, defaultValue[0]).String(0)
	}
	return m.Called(key).String(0)
}

func (m *MockContext) ParamsInt(key string, defaultValue int) int {
	return m.Called(key, defaultValue).Int(0)
}

func (m *MockContext) Query(key string, defaultValue string) string {
	return m.Called(key, defaultValue).String(0)
}

func (m *MockContext) QueryInt(key string, defaultValue int) int {
	return m.Called(key, defaultValue).Int(0)
}

func (m *MockContext) Queries() map[string]string {
	return m.Called().Get(0).(map[string]string)
}

func (m *MockContext) Header(key string) string { return m.Called(key).String(0) }

func (m *MockContext) Cookies(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		return m.Called(key, defaultValue[0]).String(0)
	}
	return m.Called(key).String(0)
}

func (m *MockContext) OriginalURL() string { return m.Called().String(0) }
func (m *MockContext) Referer() string     { return m.Called().String(0) }

// response writers

func (m *MockContext) Status(code int) router.Context {
	m.Called(code)
	return m
}

func (m *MockContext) SendString(s string) error { return m.Called(s).Error(0) }
func (m *MockContext) Send(b []byte) error       { return m.Called(b).Error(0) }
func (m *MockContext) JSON(code int, val any) error {
	return m.Called(code, val).Error(0)
}
func (m *MockContext) NoContent(code int) error { return m.Called(code).Error(0) }

func (m *MockContext) Render(name string, bind any, layout ...string) error {
	if len(layout) > 0 {
		return m.Called(name, bind, layout[0]).Error(0)
	}
	return m.Called(name, bind).Error(0)
}

func (m *MockContext) Redirect(path string, status ...int) error {
	if len(status) > 0 {
		return m.Called(path, status).Error(0)
	}
	return m.Called(path).Error(0)
}

func (m *MockContext) RedirectToRoute(name string, data router.ViewContext, status ...int) error {
	if len(status) > 0 {
		return m.Called(name, data, status[0]).Error(0)
	}
	return m.Called(name, data).Error(0)
}

func (m *MockContext) RedirectBack(fallback string, status ...int) error {
	if len(status) > 0 {
		return m.Called(fallback, status).Error(0)
	}
	return m.Called(fallback).Error(0)
}

func (m *MockContext) SetHeader(key, val string) router.Context {
	m.Called(key, val)
	return m
}

func (m *MockContext) Cookie(cookie *router.Cookie) { m.Called(cookie) }

// key value state

func (m *MockContext) Get(key string, defaultValue any) any {
	return m.Called(key, defaultValue).Get(0)
}

func (m *MockContext) GetBool(key string, defaultValue bool) bool {
	return m.Called(key, defaultValue).Bool(0)
}

func (m *MockContext) GetInt(key string, def int) int {
	return m.Called(key, def).Int(0)
}

func (m *MockContext) GetString(key string, defaultValue string) string {
	return m.Called(key, defaultValue).String(0)
}

func (m *MockContext) Set(key string, val any) { m.Called(key, val) }

func (m *MockContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		m.Called(key, value[0])
		return nil
	}
	return m.Called(key).Get(0)
}

// binding

func (m *MockContext) Bind(i any) error         { return m.Called(i).Error(0) }
func (m *MockContext) BindJSON(i any) error     { return m.Called(i).Error(0) }
func (m *MockContext) BindXML(i any) error      { return m.Called(i).Error(0) }
func (m *MockContext) BindQuery(i any) error    { return m.Called(i).Error(0) }
func (m *MockContext) CookieParser(i any) error { return m.Called(i).Error(0) }

func (m *MockContext) OnNext(callback func() error) { m.Called(callback) }

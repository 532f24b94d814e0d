package hirewire_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/hirewire/hirewire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSocialSignIn struct {
	url string
	err error

	provider string
	redirect string
}

func (s *stubSocialSignIn) AuthorizationURL(ctx context.Context, provider, redirect string) (string, error) {
	s.provider = provider
	s.redirect = redirect
	return s.url, s.err
}

func newActionsFixture(users *stubActionUsers) (*hirewire.AuthActions, *MockAuthenticator, *capturingSink) {
	auther := new(MockAuthenticator)
	sink := &capturingSink{}

	repo := &stubRepoManager{users: users}
	actions := hirewire.NewAuthActions(auther, repo).WithActivitySink(sink)

	return actions, auther, sink
}

func TestAuthActionsSignIn(t *testing.T) {
	ctx := context.Background()
	user := &hirewire.User{ID: uuid.New(), Email: "ada@example.com"}

	t.Run("success carries user and token", func(t *testing.T) {
		users := &stubActionUsers{
			getByIdentifierFn: func(identifier string) (*hirewire.User, error) {
				assert.Equal(t, user.Email, identifier)
				return user, nil
			},
		}
		actions, auther, _ := newActionsFixture(users)
		auther.On("Login", ctx, user.Email, "password123").Return("session-token", nil)

		result := actions.SignIn(ctx, user.Email, "password123")

		require.True(t, result.Success)
		assert.Equal(t, "session-token", result.Token)
		assert.Same(t, user, result.User)
		assert.Empty(t, result.Error)
		assert.NoError(t, result.Cause())
		auther.AssertExpectations(t)
	})

	t.Run("bad credentials fold into the generic message", func(t *testing.T) {
		users := &stubActionUsers{}
		actions, auther, _ := newActionsFixture(users)

		loginErr := hirewire.ErrMismatchedHashAndPassword
		auther.On("Login", ctx, user.Email, "wrong").Return("", loginErr)

		result := actions.SignIn(ctx, user.Email, "wrong")

		require.False(t, result.Success)
		assert.Equal(t, hirewire.MsgInvalidCredentials, result.Error)
		assert.ErrorIs(t, result.Cause(), loginErr)
		assert.Empty(t, result.Token)
		assert.Nil(t, result.User)
	})

	t.Run("account lookup failure shares the credentials message", func(t *testing.T) {
		lookupErr := errors.New("connection reset")
		users := &stubActionUsers{
			getByIdentifierFn: func(string) (*hirewire.User, error) {
				return nil, lookupErr
			},
		}
		actions, auther, _ := newActionsFixture(users)
		auther.On("Login", ctx, user.Email, "password123").Return("session-token", nil)

		result := actions.SignIn(ctx, user.Email, "password123")

		require.False(t, result.Success)
		assert.Equal(t, hirewire.MsgInvalidCredentials, result.Error)
		assert.ErrorIs(t, result.Cause(), lookupErr)
	})
}

func TestAuthActionsSignUp(t *testing.T) {
	ctx := context.Background()

	input := hirewire.SignUpInput{
		Name:     "Ada Lovelace King",
		Email:    "ada@example.com",
		Password: "long-enough-password",
	}

	t.Run("registers, records the event, and signs in", func(t *testing.T) {
		var created *hirewire.User
		users := &stubActionUsers{
			createFn: func(record *hirewire.User) (*hirewire.User, error) {
				record.ID = uuid.New()
				created = record
				return record, nil
			},
			getByIdentifierFn: func(string) (*hirewire.User, error) {
				return created, nil
			},
		}
		actions, auther, sink := newActionsFixture(users)
		auther.On("Login", ctx, input.Email, input.Password).Return("fresh-token", nil)

		result := actions.SignUp(ctx, input)

		require.True(t, result.Success)
		assert.Equal(t, "fresh-token", result.Token)

		require.NotNil(t, created)
		assert.Equal(t, "Ada", created.FirstName)
		assert.Equal(t, "Lovelace King", created.LastName)
		assert.Equal(t, "ada", created.Username)
		assert.Equal(t, hirewire.UserStatusActive, created.Status)
		assert.NotEmpty(t, created.PasswordHash)
		assert.NotEqual(t, input.Password, created.PasswordHash)

		require.Len(t, sink.events, 1)
		assert.Equal(t, hirewire.ActivityEventSignup, sink.events[0].EventType)
		assert.Equal(t, created.ID.String(), sink.events[0].UserID)
	})

	t.Run("registration failure reports the sign up message", func(t *testing.T) {
		createErr := errors.New("UNIQUE constraint failed: users.email")
		users := &stubActionUsers{
			createFn: func(*hirewire.User) (*hirewire.User, error) {
				return nil, createErr
			},
		}
		actions, _, sink := newActionsFixture(users)

		result := actions.SignUp(ctx, input)

		require.False(t, result.Success)
		assert.Equal(t, hirewire.MsgSignUpFailed, result.Error)
		assert.ErrorIs(t, result.Cause(), createErr)
		assert.Empty(t, sink.events, "no signup event for a failed registration")
	})

	t.Run("follow-up sign in failure keeps the sign up message", func(t *testing.T) {
		loginErr := errors.New("token service unavailable")
		users := &stubActionUsers{
			createFn: func(record *hirewire.User) (*hirewire.User, error) {
				record.ID = uuid.New()
				return record, nil
			},
		}
		actions, auther, _ := newActionsFixture(users)
		auther.On("Login", ctx, input.Email, input.Password).Return("", loginErr)

		result := actions.SignUp(ctx, input)

		require.False(t, result.Success)
		assert.Equal(t, hirewire.MsgSignUpFailed, result.Error)
		assert.ErrorIs(t, result.Cause(), loginErr)
	})
}

func TestAuthActionsSignInSocial(t *testing.T) {
	ctx := context.Background()

	t.Run("yields the provider redirect", func(t *testing.T) {
		social := &stubSocialSignIn{url: "https://github.com/login/oauth/authorize?state=abc"}
		actions, _, _ := newActionsFixture(&stubActionUsers{})
		actions.WithSocial(social)

		result := actions.SignInSocial(ctx, "github", "/dashboard")

		require.True(t, result.Success)
		assert.Equal(t, social.url, result.RedirectURL)
		assert.Equal(t, "github", social.provider)
		assert.Equal(t, "/dashboard", social.redirect)
	})

	t.Run("unconfigured social sign in fails in the result", func(t *testing.T) {
		actions, _, _ := newActionsFixture(&stubActionUsers{})

		result := actions.SignInSocial(ctx, "github", "/")

		require.False(t, result.Success)
		assert.Equal(t, "Failed to authenticate with github", result.Error)
		assert.Error(t, result.Cause())
	})

	t.Run("provider error folds into the result", func(t *testing.T) {
		providerErr := errors.New("provider unreachable")
		actions, _, _ := newActionsFixture(&stubActionUsers{})
		actions.WithSocial(&stubSocialSignIn{err: providerErr})

		result := actions.SignInSocial(ctx, "google", "/")

		require.False(t, result.Success)
		assert.Equal(t, "Failed to authenticate with google", result.Error)
		assert.ErrorIs(t, result.Cause(), providerErr)
	})
}

func TestAuthActionsSignOut(t *testing.T) {
	t.Run("records the signout with the session user", func(t *testing.T) {
		actions, _, sink := newActionsFixture(&stubActionUsers{})

		userID := uuid.NewString()
		ctx := hirewire.WithSessionContext(context.Background(), &hirewire.SessionObject{UserID: userID})

		result := actions.SignOut(ctx)

		require.True(t, result.Success)
		require.Len(t, sink.events, 1)
		assert.Equal(t, hirewire.ActivityEventSignout, sink.events[0].EventType)
		assert.Equal(t, userID, sink.events[0].UserID)
	})

	t.Run("anonymous signout still succeeds", func(t *testing.T) {
		actions, _, sink := newActionsFixture(&stubActionUsers{})

		result := actions.SignOut(context.Background())

		require.True(t, result.Success)
		require.Len(t, sink.events, 1)
		assert.Empty(t, sink.events[0].UserID)
	})

	t.Run("cancelled context fails in the result", func(t *testing.T) {
		actions, _, sink := newActionsFixture(&stubActionUsers{})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result := actions.SignOut(ctx)

		require.False(t, result.Success)
		assert.Equal(t, hirewire.MsgSignOutFailed, result.Error)
		assert.ErrorIs(t, result.Cause(), context.Canceled)
		assert.Empty(t, sink.events)
	})
}

package social

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/goliatone/go-repository-bun"
	"github.com/hirewire/hirewire"
)

// LinkingStrategy decides which local user a social profile belongs to.
type LinkingStrategy interface {
	ResolveUser(ctx context.Context, lc LinkingContext) (*LinkingResult, error)
}

// LinkingContext carries everything a strategy needs for one resolution.
type LinkingContext struct {
	Profile     *SocialProfile
	Action      string
	Mode        string
	LinkUserID  string
	AccountRepo SocialAccountRepository
	UserRepo    hirewire.Users
}

// LinkingResult is the resolved user plus how it was reached.
type LinkingResult struct {
	User      *hirewire.User
	IsNewUser bool
	Linked    bool
}

// DefaultLinkingStrategy resolves in order: an existing provider link,
// an explicit link request, an email match, and finally signup.
type DefaultLinkingStrategy struct {
	AllowSignup          bool
	AllowLinking         bool
	RequireEmailVerified bool
	DefaultRole          string

	OnUserCreated   func(ctx context.Context, user *hirewire.User, profile *SocialProfile) error
	OnAccountLinked func(ctx context.Context, user *hirewire.User, profile *SocialProfile) error
}

func (s *DefaultLinkingStrategy) ResolveUser(ctx context.Context, lc LinkingContext) (*LinkingResult, error) {
	if lc.Profile == nil {
		return nil, ErrUserInfoFailed
	}
	if lc.AccountRepo == nil || lc.UserRepo == nil {
		return nil, ErrLinkingNotAllowed
	}

	if s.RequireEmailVerified && !lc.Profile.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	if result, err := s.resolveExistingLink(ctx, lc); result != nil || err != nil {
		return result, err
	}

	if lc.Action == ActionLink && lc.LinkUserID != "" {
		return s.linkToRequestedUser(ctx, lc)
	}

	if result, err := s.resolveByEmail(ctx, lc); result != nil || err != nil {
		return result, err
	}

	return s.signUp(ctx, lc)
}

// resolveExistingLink returns the user already linked to this provider
// identity, or (nil, nil) when no link exists.
func (s *DefaultLinkingStrategy) resolveExistingLink(ctx context.Context, lc LinkingContext) (*LinkingResult, error) {
	existing, err := lc.AccountRepo.FindByProviderID(ctx, lc.Profile.Provider, lc.Profile.ProviderUserID)
	if err != nil {
		if repository.IsRecordNotFound(err) || err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find linked account: %w", err)
	}
	if existing == nil {
		return nil, nil
	}

	user, err := lc.UserRepo.GetByIdentifier(ctx, existing.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find linked user: %w", err)
	}
	return &LinkingResult{User: user, IsNewUser: false}, nil
}

func (s *DefaultLinkingStrategy) linkToRequestedUser(ctx context.Context, lc LinkingContext) (*LinkingResult, error) {
	if !s.AllowLinking {
		return nil, ErrLinkingNotAllowed
	}

	user, err := lc.UserRepo.GetByIdentifier(ctx, lc.LinkUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user to link: %w", err)
	}

	if s.OnAccountLinked != nil {
		if err := s.OnAccountLinked(ctx, user, lc.Profile); err != nil {
			return nil, err
		}
	}

	return &LinkingResult{User: user, IsNewUser: false, Linked: true}, nil
}

// resolveByEmail matches the profile's email against existing users.
// A match with linking disabled is a conflict, never a silent merge.
func (s *DefaultLinkingStrategy) resolveByEmail(ctx context.Context, lc LinkingContext) (*LinkingResult, error) {
	if lc.Profile.Email == "" {
		return nil, nil
	}

	user, err := lc.UserRepo.GetByIdentifier(ctx, lc.Profile.Email)
	if err != nil {
		if repository.IsRecordNotFound(err) || err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if user == nil {
		return nil, nil
	}

	if !s.AllowLinking {
		return nil, ErrEmailAlreadyExists
	}

	if s.OnAccountLinked != nil {
		if err := s.OnAccountLinked(ctx, user, lc.Profile); err != nil {
			return nil, err
		}
	}
	return &LinkingResult{User: user, IsNewUser: false, Linked: true}, nil
}

func (s *DefaultLinkingStrategy) signUp(ctx context.Context, lc LinkingContext) (*LinkingResult, error) {
	if !s.AllowSignup {
		return nil, ErrSignupNotAllowed
	}

	created, err := lc.UserRepo.Create(ctx, s.newUserFromProfile(lc.Profile))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if s.OnUserCreated != nil {
		if err := s.OnUserCreated(ctx, created, lc.Profile); err != nil {
			return nil, err
		}
	}

	return &LinkingResult{User: created, IsNewUser: true}, nil
}

func (s *DefaultLinkingStrategy) newUserFromProfile(profile *SocialProfile) *hirewire.User {
	role := hirewire.RoleMember
	if s.DefaultRole != "" {
		if parsed, ok := hirewire.ParseRole(s.DefaultRole); ok {
			role = parsed
		}
	}

	user := &hirewire.User{
		Email:          profile.Email,
		EmailValidated: profile.EmailVerified,
		Role:           role,
		Status:         hirewire.UserStatusActive,
		ProfilePicture: profile.AvatarURL,
		Metadata: map[string]any{
			"social_provider": profile.Provider,
			"avatar_url":      profile.AvatarURL,
		},
	}

	switch {
	case profile.FirstName != "":
		user.FirstName = profile.FirstName
		user.LastName = profile.LastName
	case profile.Name != "":
		parts := strings.SplitN(profile.Name, " ", 2)
		user.FirstName = parts[0]
		if len(parts) > 1 {
			user.LastName = parts[1]
		}
	}

	switch {
	case profile.Username != "":
		user.Username = profile.Username
	case profile.Email != "":
		user.Username = strings.Split(profile.Email, "@")[0]
	case profile.ProviderUserID != "":
		user.Username = fmt.Sprintf("%s_%s", profile.Provider, profile.ProviderUserID)
	}

	return user
}

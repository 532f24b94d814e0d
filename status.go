package hirewire

import "github.com/goliatone/go-errors"

// UserStatus captures the lifecycle state of a user account.
type UserStatus string

const (
	// UserStatusPending marks accounts awaiting activation.
	UserStatusPending UserStatus = "pending"
	// UserStatusActive marks accounts that can authenticate.
	UserStatusActive UserStatus = "active"
	// UserStatusSuspended marks accounts temporarily blocked from signing in.
	UserStatusSuspended UserStatus = "suspended"
	// UserStatusDisabled marks accounts blocked until reinstated.
	UserStatusDisabled UserStatus = "disabled"
	// UserStatusArchived marks accounts retired permanently.
	UserStatusArchived UserStatus = "archived"
)

const (
	TextCodeUserPending   = "user_pending"
	TextCodeUserSuspended = "user_suspended"
	TextCodeUserDisabled  = "user_disabled"
	TextCodeUserArchived  = "user_archived"
)

// ErrUserPending is returned when a pending account attempts to sign in.
var ErrUserPending = errors.New("user account is pending activation", errors.CategoryAuth).
	WithTextCode(TextCodeUserPending).
	WithCode(errors.CodeForbidden)

// ErrUserSuspended is returned when a suspended account attempts to sign in.
var ErrUserSuspended = errors.New("user account is suspended", errors.CategoryAuth).
	WithTextCode(TextCodeUserSuspended).
	WithCode(errors.CodeForbidden)

// ErrUserDisabled is returned when a disabled account attempts to sign in.
var ErrUserDisabled = errors.New("user account is disabled", errors.CategoryAuth).
	WithTextCode(TextCodeUserDisabled).
	WithCode(errors.CodeForbidden)

// ErrUserArchived is returned when an archived account attempts to sign in.
var ErrUserArchived = errors.New("user account is archived", errors.CategoryAuth).
	WithTextCode(TextCodeUserArchived).
	WithCode(errors.CodeForbidden)

// IsValid reports whether the status is a known lifecycle state.
func (s UserStatus) IsValid() bool {
	switch s {
	case UserStatusPending, UserStatusActive, UserStatusSuspended, UserStatusDisabled, UserStatusArchived:
		return true
	}
	return false
}

// statusAuthError maps non-authenticatable statuses to their auth error.
// An empty status is treated as active for records predating the column.
func statusAuthError(status UserStatus) error {
	switch status {
	case UserStatusPending:
		return ErrUserPending
	case UserStatusSuspended:
		return ErrUserSuspended
	case UserStatusDisabled:
		return ErrUserDisabled
	case UserStatusArchived:
		return ErrUserArchived
	}
	return nil
}

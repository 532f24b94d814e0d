package hirewire

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole string

const (
	// RoleGuest is a guest role (ie. view)
	RoleGuest UserRole = "guest"
	// RoleMember is a member (i.e. view, edit)
	RoleMember UserRole = "member"
	// RoleAdmin is an admin role (i.e. view, edit, create)
	RoleAdmin UserRole = "admin"
	// RoleOwner is an owner role (i.e. view, edit, create, delete)
	RoleOwner UserRole = "owner"
)

// User is the account model
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role           UserRole       `bun:"user_role,notnull" json:"user_role,omitempty"`
	Status         UserStatus     `bun:"status,notnull,default:'active'" json:"status,omitempty"`
	FirstName      string         `bun:"first_name,notnull" json:"first_name,omitempty"`
	LastName       string         `bun:"last_name,notnull" json:"last_name,omitempty"`
	Username       string         `bun:"username,notnull,unique" json:"username,omitempty"`
	ProfilePicture string         `bun:"profile_picture" json:"profile_picture,omitempty"`
	Email          string         `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone          string         `bun:"phone_number" json:"phone_number,omitempty"`
	PasswordHash   string         `bun:"password_hash" json:"-"`
	EmailValidated bool           `bun:"is_email_verified" json:"is_email_verified,omitempty"`
	LoginAttempts  int            `bun:"login_attempts" json:"login_attempts,omitempty"`
	LoginAttemptAt *time.Time     `bun:"login_attempt_at" json:"login_attempt_at,omitempty"`
	LoggedInAt     *time.Time     `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	Metadata       map[string]any `bun:"metadata" json:"metadata,omitempty"`
	CreatedAt      *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time     `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// FullName joins first and last name, falling back to the username.
func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Username
	}
}

// EnsureStatus backfills the status for records created before the column existed.
func (u *User) EnsureStatus() {
	if u.Status == "" {
		u.Status = UserStatusActive
	}
}

// AddMetadata will append information to a metadata attribute
func (u *User) AddMetadata(key string, val any) *User {
	if u.Metadata == nil {
		u.Metadata = make(map[string]any)
	}
	u.Metadata[key] = val
	return u
}

// JobType is the employment type of a listing
type JobType string

const (
	JobTypeFullTime   JobType = "Full-time"
	JobTypePartTime   JobType = "Part-time"
	JobTypeContract   JobType = "Contract"
	JobTypeInternship JobType = "Internship"
)

// JobTypes returns the supported listing types in display order.
func JobTypes() []JobType {
	return []JobType{JobTypeFullTime, JobTypePartTime, JobTypeContract, JobTypeInternship}
}

// IsValid checks the type against the supported set
func (t JobType) IsValid() bool {
	switch t {
	case JobTypeFullTime, JobTypePartTime, JobTypeContract, JobTypeInternship:
		return true
	default:
		return false
	}
}

// Job is a listing posted by a user
type Job struct {
	bun.BaseModel `bun:"table:jobs,alias:job"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Title         string     `bun:"title,notnull" json:"title,omitempty"`
	Company       string     `bun:"company,notnull" json:"company,omitempty"`
	Location      string     `bun:"location,notnull" json:"location,omitempty"`
	Type          JobType    `bun:"job_type,notnull" json:"type,omitempty"`
	Description   string     `bun:"description,notnull" json:"description,omitempty"`
	Salary        string     `bun:"salary,nullzero" json:"salary,omitempty"`
	PostedByID    *uuid.UUID `bun:"posted_by_id,notnull" json:"posted_by_id,omitempty"`
	PostedBy      *User      `bun:"rel:belongs-to,join:posted_by_id=id" json:"posted_by,omitempty"`
	PostedAt      *time.Time `bun:"posted_at,nullzero,default:current_timestamp" json:"posted_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`

	// Populated by aggregate queries, not a column.
	ApplicationsCount int `bun:"applications_count,scanonly" json:"applications_count"`
}

// ApplicationStatus tracks an application through review
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "PENDING"
	ApplicationReviewed ApplicationStatus = "REVIEWED"
	ApplicationAccepted ApplicationStatus = "ACCEPTED"
	ApplicationRejected ApplicationStatus = "REJECTED"
)

// IsValid checks the status against the supported set
func (s ApplicationStatus) IsValid() bool {
	switch s {
	case ApplicationPending, ApplicationReviewed, ApplicationAccepted, ApplicationRejected:
		return true
	default:
		return false
	}
}

// Application records that a user applied to a job. One row per (job, user),
// enforced by a unique index.
type Application struct {
	bun.BaseModel `bun:"table:applications,alias:app"`
	ID            uuid.UUID         `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	JobID         uuid.UUID         `bun:"job_id,notnull,type:uuid" json:"job_id,omitempty"`
	Job           *Job              `bun:"rel:belongs-to,join:job_id=id" json:"job,omitempty"`
	UserID        uuid.UUID         `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	User          *User             `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Status        ApplicationStatus `bun:"status,notnull" json:"status,omitempty"`
	AppliedAt     *time.Time        `bun:"applied_at,nullzero,default:current_timestamp" json:"applied_at,omitempty"`
	CreatedAt     *time.Time        `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time        `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time        `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

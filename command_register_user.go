package hirewire

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"
)

// RegisterUserMessage carries everything needed to create an account.
// Username is optional, the email local part is used when it is empty.
type RegisterUserMessage struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
	Password  string `json:"password"`
	UseHashid bool
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// RegisterUserHandler creates accounts inside a single transaction so a
// failed insert never leaves a half-written user behind.
type RegisterUserHandler struct {
	repo RepositoryManager
}

func NewRegisterUserHandler(repo RepositoryManager) *RegisterUserHandler {
	return &RegisterUserHandler{repo: repo}
}

func (h *RegisterUserHandler) Execute(ctx context.Context, msg RegisterUserMessage) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "context cancelled during user registration")
	}
	return h.register(ctx, msg)
}

func (h *RegisterUserHandler) register(ctx context.Context, msg RegisterUserMessage) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var created *User
	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := buildUser(msg)
		if err != nil {
			return err
		}

		if created, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			// the users table carries a unique index on email
			if isUniqueViolation(err) {
				return ErrEmailTaken
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create user")
		}
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	return created, nil
}

// buildUser turns the message into a persistable record: hashed password,
// normalized phone, derived username, active status.
func buildUser(msg RegisterUserMessage) (*User, error) {
	hash, err := HashPassword(msg.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	phone, err := normalizePhone(msg.Phone)
	if err != nil {
		return nil, err
	}

	user := &User{
		FirstName:    msg.FirstName,
		LastName:     msg.LastName,
		Email:        msg.Email,
		Phone:        phone,
		Username:     deriveUsername(msg.Username, msg.Email),
		PasswordHash: hash,
		Status:       UserStatusActive,
	}

	if role, valid := ParseRole(msg.Role); valid {
		user.Role = role
	}

	if msg.UseHashid {
		if id, err := hashid.NewUUID(msg.Email); err == nil {
			user.ID = id
		}
	}

	return user, nil
}

// normalizePhone stores phone numbers in E.164. Empty input is fine, the
// field is optional.
func normalizePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}

	parsed, err := phonenumbers.Parse(raw, "US")
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryValidation, "invalid phone number").
			WithCode(goerrors.CodeBadRequest)
	}

	if !phonenumbers.IsValidNumber(parsed) {
		return "", goerrors.New("invalid phone number", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}

// deriveUsername falls back to the email local part when no explicit
// username was provided.
func deriveUsername(username, email string) string {
	if username != "" {
		return username
	}
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return ""
}

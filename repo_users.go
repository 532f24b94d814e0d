package hirewire

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the account repository. GetByIdentifier accepts an id,
// email, or username and tries them in that order.
type Users interface {
	repository.Repository[*User]

	TrackAttemptedLogin(ctx context.Context, user *User) error
	TrackAttemptedLoginTx(ctx context.Context, tx bun.IDB, user *User) error
	TrackSuccessfulLogin(ctx context.Context, user *User) error
	TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error

	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	GetOrCreate(ctx context.Context, record *User) (*User, error)
	GetOrCreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error)
	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)
	Upsert(ctx context.Context, record *User, criteria ...repository.UpdateCriteria) (*User, error)
	UpsertTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.UpdateCriteria) (*User, error)
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (r *users) Register(ctx context.Context, user *User) (*User, error) {
	return r.RegisterTx(ctx, r.db, user)
}

func (r *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	return r.CreateTx(ctx, tx, user)
}

func (r *users) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*User, error) {
	return r.GetByIdentifierTx(ctx, r.db, identifier, criteria...)
}

func (r *users) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (*User, error) {
	lookups := identifierLookups(identifier)

	for _, lookup := range lookups {
		record := &User{}
		q := tx.NewSelect().Model(record)

		for _, c := range criteria {
			q.Apply(c)
		}

		err := q.
			Where(fmt.Sprintf("?TableAlias.%s = ?", lookup.column), lookup.value).
			Limit(1).
			Scan(ctx)

		if err != nil {
			if repository.IsRecordNotFound(err) {
				continue
			}
			return nil, err
		}

		return record, nil
	}

	return nil, repository.NewRecordNotFound().
		WithMetadata(map[string]any{
			"identifier": identifier,
		})
}

func (r *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return r.CreateTx(ctx, r.db, record, criteria...)
}

func (r *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	applyUserDefaults(record)
	return r.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (r *users) TrackSuccessfulLogin(ctx context.Context, user *User) error {
	return r.TrackSuccessfulLoginTx(ctx, r.db, user)
}

// TrackSuccessfulLoginTx stamps loggedin_at and clears the attempt
// counter. Raw SQL because the ORM skips NULL and zero assignments on
// update.
func (r *users) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error {
	loggedInAt := time.Now()
	_, err := tx.NewRaw(`
		UPDATE "users" AS "usr"
		SET
			"loggedin_at" = ?,
			"login_attempt_at" = NULL,
			"login_attempts" = 0
		WHERE
			("usr".id = ?)
			AND "usr"."deleted_at" IS NULL;
	`, loggedInAt, user.ID).Exec(ctx)

	return err
}

func (r *users) TrackAttemptedLogin(ctx context.Context, user *User) error {
	return r.TrackAttemptedLoginTx(ctx, r.db, user)
}

func (r *users) TrackAttemptedLoginTx(ctx context.Context, tx bun.IDB, user *User) error {
	now := time.Now()

	record := &User{}
	record.ID = user.ID
	record.LoginAttempts = user.LoginAttempts + 1
	record.LoginAttemptAt = &now

	_, err := r.Repository.UpdateTx(ctx, tx, record, repository.UpdateByID(user.ID.String()))
	return err
}

func (r *users) Upsert(ctx context.Context, record *User, criteria ...repository.UpdateCriteria) (*User, error) {
	return r.UpsertTx(ctx, r.db, record, criteria...)
}

func (r *users) UpsertTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.UpdateCriteria) (*User, error) {
	existing, err := r.Repository.GetByIdentifierTx(ctx, tx, upsertIdentifier(record))
	if err == nil {
		record.ID = existing.ID
		return r.Repository.UpdateTx(ctx, tx, record, criteria...)
	}

	if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	return r.RegisterTx(ctx, tx, record)
}

func (r *users) GetOrCreate(ctx context.Context, record *User) (*User, error) {
	return r.GetOrCreateTx(ctx, r.db, record)
}

func (r *users) GetOrCreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	existing, err := r.Repository.GetByIdentifierTx(ctx, tx, upsertIdentifier(record))
	if err == nil {
		return existing, nil
	}

	if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	return r.CreateTx(ctx, tx, record)
}

func upsertIdentifier(record *User) string {
	if record.ID != uuid.Nil {
		return record.ID.String()
	}
	return record.Email
}

// applyUserDefaults fills the id, role, and username before insert so
// callers can pass sparse records.
func applyUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.Role == "" {
		record.Role = RoleMember
	}

	if record.Username == "" && record.Email != "" {
		record.Username = usernameFromEmail(record.Email)
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}

func usernameFromEmail(email string) string {
	local, _, found := strings.Cut(email, "@")
	if !found || local == "" {
		return email
	}
	return local
}

type userLookup struct {
	column string
	value  string
}

// identifierLookups orders the columns to try for one identifier. An
// unparseable value still gets an id lookup so the error mentions it.
func identifierLookups(identifier string) []userLookup {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return []userLookup{{column: "id", value: trimmed}}
	}

	var lookups []userLookup

	if _, err := uuid.Parse(trimmed); err == nil {
		lookups = append(lookups, userLookup{column: "id", value: trimmed})
	}

	if _, err := mail.ParseAddress(trimmed); err == nil {
		lookups = append(lookups, userLookup{column: "email", value: trimmed})
	}

	return append(lookups, userLookup{column: "username", value: trimmed})
}

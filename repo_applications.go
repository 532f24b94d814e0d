package hirewire

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Applications interface {
	repository.Repository[*Application]

	Create(ctx context.Context, record *Application, criteria ...repository.InsertCriteria) (*Application, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Application, criteria ...repository.InsertCriteria) (*Application, error)

	FindByJobAndUser(ctx context.Context, jobID, userID uuid.UUID) (*Application, error)
	FindByJobAndUserTx(ctx context.Context, tx bun.IDB, jobID, userID uuid.UUID) (*Application, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*Application, error)
	CountForJob(ctx context.Context, jobID uuid.UUID) (int, error)
}

type applications struct {
	repository.Repository[*Application]
	db *bun.DB
}

var (
	_ Applications                        = (*applications)(nil)
	_ repository.Repository[*Application] = (*applications)(nil)
)

func NewApplicationsRepository(db *bun.DB) Applications {
	repo := repository.NewRepository[*Application](db, repository.ModelHandlers[*Application]{
		NewRecord: func() *Application { return &Application{} },
		GetID: func(a *Application) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Application, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
	})

	return &applications{
		Repository: repo,
		db:         db,
	}
}

func (r *applications) Create(ctx context.Context, record *Application, criteria ...repository.InsertCriteria) (*Application, error) {
	return r.CreateTx(ctx, r.db, record, criteria...)
}

func (r *applications) CreateTx(ctx context.Context, tx bun.IDB, record *Application, criteria ...repository.InsertCriteria) (*Application, error) {
	prepareApplicationDefaults(record)
	return r.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (r *applications) FindByJobAndUser(ctx context.Context, jobID, userID uuid.UUID) (*Application, error) {
	return r.FindByJobAndUserTx(ctx, r.db, jobID, userID)
}

// FindByJobAndUserTx resolves the single application a user may have for a
// job. Not finding one is reported via record-not-found, the caller decides
// whether absence is an error.
func (r *applications) FindByJobAndUserTx(ctx context.Context, tx bun.IDB, jobID, userID uuid.UUID) (*Application, error) {
	record := &Application{}

	err := tx.NewSelect().
		Model(record).
		Where(`"app"."job_id" = ?`, jobID).
		Where(`"app"."user_id" = ?`, userID).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"job_id":  jobID.String(),
					"user_id": userID.String(),
				})
		}
		return nil, err
	}

	return record, nil
}

// ListForUser returns the user's applications, newest first, each joined
// with its job and the job's poster.
func (r *applications) ListForUser(ctx context.Context, userID uuid.UUID) ([]*Application, error) {
	records := []*Application{}

	err := r.db.NewSelect().
		Model(&records).
		Relation("Job").
		Relation("Job.PostedBy").
		Where(`"app"."user_id" = ?`, userID).
		OrderExpr(`"app"."applied_at" DESC`).
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

func (r *applications) CountForJob(ctx context.Context, jobID uuid.UUID) (int, error) {
	return r.db.NewSelect().
		Model((*Application)(nil)).
		Where(`"app"."job_id" = ?`, jobID).
		Count(ctx)
}

func prepareApplicationDefaults(record *Application) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	if record.Status == "" {
		record.Status = ApplicationPending
	}

	if record.AppliedAt == nil {
		now := time.Now()
		record.AppliedAt = &now
	}
}

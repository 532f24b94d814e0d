package hirewire

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// JobSearch holds the optional filters for listing jobs.
type JobSearch struct {
	Query    string
	Type     JobType
	Location string
}

// applicationsCountSQL computes the per-listing application count as a
// scan-only column.
var applicationsCountSQL = `(
	SELECT COUNT(*) FROM "applications" AS "app"
	WHERE "app"."job_id" = "job"."id"
	AND "app"."deleted_at" IS NULL
) AS "applications_count"`

type Jobs interface {
	repository.Repository[*Job]

	Create(ctx context.Context, record *Job, criteria ...repository.InsertCriteria) (*Job, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Job, criteria ...repository.InsertCriteria) (*Job, error)

	Search(ctx context.Context, filters JobSearch) ([]*Job, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Job, error)
	ListByPoster(ctx context.Context, userID uuid.UUID) ([]*Job, error)
	ExistsTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (bool, error)
}

type jobs struct {
	repository.Repository[*Job]
	db *bun.DB
}

var (
	_ Jobs                        = (*jobs)(nil)
	_ repository.Repository[*Job] = (*jobs)(nil)
)

func NewJobsRepository(db *bun.DB) Jobs {
	repo := repository.NewRepository[*Job](db, repository.ModelHandlers[*Job]{
		NewRecord: func() *Job { return &Job{} },
		GetID: func(j *Job) uuid.UUID {
			if j == nil {
				return uuid.Nil
			}
			return j.ID
		},
		SetID: func(j *Job, id uuid.UUID) {
			if j != nil {
				j.ID = id
			}
		},
	})

	return &jobs{
		Repository: repo,
		db:         db,
	}
}

func (r *jobs) Create(ctx context.Context, record *Job, criteria ...repository.InsertCriteria) (*Job, error) {
	return r.CreateTx(ctx, r.db, record, criteria...)
}

func (r *jobs) CreateTx(ctx context.Context, tx bun.IDB, record *Job, criteria ...repository.InsertCriteria) (*Job, error) {
	prepareJobDefaults(record)
	return r.Repository.CreateTx(ctx, tx, record, criteria...)
}

// Search lists open jobs, newest first, narrowed by the given filters.
// Free-text matches title, company, and description case-insensitively.
func (r *jobs) Search(ctx context.Context, filters JobSearch) ([]*Job, error) {
	records := []*Job{}

	q := r.db.NewSelect().
		Model(&records).
		Relation("PostedBy").
		ColumnExpr("?TableAlias.*").
		ColumnExpr(applicationsCountSQL).
		OrderExpr(`"job"."posted_at" DESC`)

	if term := strings.TrimSpace(filters.Query); term != "" {
		pattern := "%" + strings.ToLower(term) + "%"
		q = q.WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.
				Where(`LOWER("job"."title") LIKE ?`, pattern).
				WhereOr(`LOWER("job"."company") LIKE ?`, pattern).
				WhereOr(`LOWER("job"."description") LIKE ?`, pattern)
		})
	}

	if filters.Type != "" {
		q = q.Where(`"job"."job_type" = ?`, string(filters.Type))
	}

	if location := strings.TrimSpace(filters.Location); location != "" {
		q = q.Where(`LOWER("job"."location") LIKE ?`, "%"+strings.ToLower(location)+"%")
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	return records, nil
}

// FindByID loads one listing with its poster and application count. Absence
// is reported via record-not-found.
func (r *jobs) FindByID(ctx context.Context, id uuid.UUID) (*Job, error) {
	record := &Job{}

	err := r.db.NewSelect().
		Model(record).
		Relation("PostedBy").
		ColumnExpr("?TableAlias.*").
		ColumnExpr(applicationsCountSQL).
		Where(`"job"."id" = ?`, id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"job_id": id.String()})
		}
		return nil, err
	}

	return record, nil
}

// ListByPoster returns the jobs a user posted, newest first, each carrying
// its applications count.
func (r *jobs) ListByPoster(ctx context.Context, userID uuid.UUID) ([]*Job, error) {
	records := []*Job{}

	err := r.db.NewSelect().
		Model(&records).
		ColumnExpr("?TableAlias.*").
		ColumnExpr(applicationsCountSQL).
		Where(`"job"."posted_by_id" = ?`, userID).
		OrderExpr(`"job"."posted_at" DESC`).
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

// ExistsTx reports whether a listing with the given id exists.
func (r *jobs) ExistsTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (bool, error) {
	return tx.NewSelect().
		Model((*Job)(nil)).
		Where(`"job"."id" = ?`, id).
		Exists(ctx)
}

func prepareJobDefaults(record *Job) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	if record.PostedAt == nil {
		now := time.Now()
		record.PostedAt = &now
	}
}

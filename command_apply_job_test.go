package hirewire_test

import (
	"context"
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/hirewire/hirewire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyToJobHandlerCreatesApplication(t *testing.T) {
	ctx := context.Background()
	jobID := uuid.New()
	userID := uuid.New()

	var created *hirewire.Application
	repo := &stubRepoManager{
		jobs: &stubJobsRepo{
			existsFn: func(id uuid.UUID) (bool, error) {
				assert.Equal(t, jobID, id)
				return true, nil
			},
		},
		applications: &stubApplicationsRepo{
			findFn: func(uuid.UUID, uuid.UUID) (*hirewire.Application, error) {
				return nil, repository.NewRecordNotFound()
			},
			createFn: func(record *hirewire.Application) (*hirewire.Application, error) {
				record.ID = uuid.New()
				record.Status = hirewire.ApplicationPending
				created = record
				return record, nil
			},
		},
	}

	handler := hirewire.NewApplyToJobHandler(repo)

	application, err := handler.Execute(ctx, hirewire.ApplyToJobMessage{JobID: jobID, UserID: userID})
	require.NoError(t, err)
	require.NotNil(t, application)

	require.NotNil(t, created)
	assert.Equal(t, jobID, created.JobID)
	assert.Equal(t, userID, created.UserID)
	assert.Equal(t, hirewire.ApplicationPending, created.Status)
}

func TestApplyToJobHandlerJobMissing(t *testing.T) {
	repo := &stubRepoManager{
		jobs: &stubJobsRepo{
			existsFn: func(uuid.UUID) (bool, error) { return false, nil },
		},
		applications: &stubApplicationsRepo{
			findFn: func(uuid.UUID, uuid.UUID) (*hirewire.Application, error) {
				t.Fatal("missing jobs are rejected before the application lookup")
				return nil, nil
			},
		},
	}

	handler := hirewire.NewApplyToJobHandler(repo)

	_, err := handler.Execute(context.Background(), hirewire.ApplyToJobMessage{
		JobID:  uuid.New(),
		UserID: uuid.New(),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, hirewire.ErrJobNotFound)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, goerrors.CategoryNotFound, richErr.Category)
}

func TestApplyToJobHandlerDuplicateApplication(t *testing.T) {
	existing := &hirewire.Application{ID: uuid.New()}

	repo := &stubRepoManager{
		jobs: &stubJobsRepo{
			existsFn: func(uuid.UUID) (bool, error) { return true, nil },
		},
		applications: &stubApplicationsRepo{
			findFn: func(uuid.UUID, uuid.UUID) (*hirewire.Application, error) {
				return existing, nil
			},
			createFn: func(*hirewire.Application) (*hirewire.Application, error) {
				t.Fatal("a second application is never inserted")
				return nil, nil
			},
		},
	}

	handler := hirewire.NewApplyToJobHandler(repo)

	_, err := handler.Execute(context.Background(), hirewire.ApplyToJobMessage{
		JobID:  uuid.New(),
		UserID: uuid.New(),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, hirewire.ErrAlreadyApplied)
	assert.True(t, hirewire.IsConflictError(err))
}

// The unique (job_id, user_id) index is the authority on duplicates. Two
// racing submissions both pass the lookup, the loser's insert still maps to
// the duplicate error.
func TestApplyToJobHandlerUniqueIndexRace(t *testing.T) {
	repo := &stubRepoManager{
		jobs: &stubJobsRepo{
			existsFn: func(uuid.UUID) (bool, error) { return true, nil },
		},
		applications: &stubApplicationsRepo{
			findFn: func(uuid.UUID, uuid.UUID) (*hirewire.Application, error) {
				return nil, repository.NewRecordNotFound()
			},
			createFn: func(*hirewire.Application) (*hirewire.Application, error) {
				return nil, errors.New("UNIQUE constraint failed: applications.job_id, applications.user_id")
			},
		},
	}

	handler := hirewire.NewApplyToJobHandler(repo)

	_, err := handler.Execute(context.Background(), hirewire.ApplyToJobMessage{
		JobID:  uuid.New(),
		UserID: uuid.New(),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, hirewire.ErrAlreadyApplied)
	assert.True(t, hirewire.IsConflictError(err))
}

func TestApplyToJobHandlerRequiresUser(t *testing.T) {
	repo := &stubRepoManager{
		jobs:         &stubJobsRepo{},
		applications: &stubApplicationsRepo{},
	}
	handler := hirewire.NewApplyToJobHandler(repo)

	_, err := handler.Execute(context.Background(), hirewire.ApplyToJobMessage{
		JobID:  uuid.New(),
		UserID: uuid.Nil,
	})
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, goerrors.CategoryAuth, richErr.Category)
}

func TestApplyToJobHandlerLookupFailure(t *testing.T) {
	repo := &stubRepoManager{
		jobs: &stubJobsRepo{
			existsFn: func(uuid.UUID) (bool, error) { return true, nil },
		},
		applications: &stubApplicationsRepo{
			findFn: func(uuid.UUID, uuid.UUID) (*hirewire.Application, error) {
				return nil, errors.New("connection reset")
			},
		},
	}

	handler := hirewire.NewApplyToJobHandler(repo)

	_, err := handler.Execute(context.Background(), hirewire.ApplyToJobMessage{
		JobID:  uuid.New(),
		UserID: uuid.New(),
	})
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, goerrors.CategoryInternal, richErr.Category)
	assert.False(t, hirewire.IsConflictError(err))
}

func TestApplyToJobMessageType(t *testing.T) {
	assert.Equal(t, "job.apply", hirewire.ApplyToJobMessage{}.Type())
}

package hirewire

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type ApplyToJobMessage struct {
	JobID  uuid.UUID `json:"job_id"`
	UserID uuid.UUID `json:"user_id"`
}

func (e ApplyToJobMessage) Type() string { return "job.apply" }

type ApplyToJobHandler struct {
	repo RepositoryManager
}

func NewApplyToJobHandler(repo RepositoryManager) *ApplyToJobHandler {
	return &ApplyToJobHandler{repo: repo}
}

func (h *ApplyToJobHandler) Execute(ctx context.Context, event ApplyToJobMessage) (*Application, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during job application",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ApplyToJobHandler) execute(ctx context.Context, event ApplyToJobMessage) (*Application, error) {
	if event.UserID == uuid.Nil {
		return nil, goerrors.New("job application requires an authenticated user", goerrors.CategoryAuth).
			WithCode(goerrors.CodeUnauthorized)
	}

	application := &Application{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := h.repo.Jobs().ExistsTx(ctx, tx, event.JobID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not look up job listing")
		}

		if !exists {
			return ErrJobNotFound
		}

		if _, err := h.repo.Applications().FindByJobAndUserTx(ctx, tx, event.JobID, event.UserID); err == nil {
			return ErrAlreadyApplied
		} else if !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not look up existing application")
		}

		application.JobID = event.JobID
		application.UserID = event.UserID

		if application, err = h.repo.Applications().CreateTx(ctx, tx, application); err != nil {
			// The unique (job_id, user_id) index closes the window between
			// the lookup above and this insert.
			if isUniqueViolation(err) {
				return ErrAlreadyApplied
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create application")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}

		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "job application transaction failed")
	}

	return application, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

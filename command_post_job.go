package hirewire

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type PostJobMessage struct {
	Title       string    `json:"title" form:"title"`
	Company     string    `json:"company" form:"company"`
	Location    string    `json:"location" form:"location"`
	JobType     string    `json:"type" form:"type"`
	Description string    `json:"description" form:"description"`
	Salary      string    `json:"salary" form:"salary"`
	PostedByID  uuid.UUID `json:"-" form:"-"`
}

func (e PostJobMessage) Type() string { return "job.post" }

// Validate enforces listing rules server side, client checks are advisory only.
func (e PostJobMessage) Validate() error {
	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&e,
			validation.Field(&e.Title, validation.Required, validation.Length(2, 200)),
			validation.Field(&e.Company, validation.Required, validation.Length(1, 200)),
			validation.Field(&e.Location, validation.Required, validation.Length(1, 200)),
			validation.Field(&e.JobType, validation.Required, validation.By(validateJobType)),
			validation.Field(&e.Description, validation.Required, validation.Length(10, 0)),
		)
	}, "invalid job listing")
}

func validateJobType(value any) error {
	raw, _ := value.(string)
	if !JobType(raw).IsValid() {
		return ErrInvalidJobType
	}
	return nil
}

type PostJobHandler struct {
	repo RepositoryManager
}

func NewPostJobHandler(repo RepositoryManager) *PostJobHandler {
	return &PostJobHandler{repo: repo}
}

func (h *PostJobHandler) Execute(ctx context.Context, event PostJobMessage) (*Job, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during job posting",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *PostJobHandler) execute(ctx context.Context, event PostJobMessage) (*Job, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}

	if event.PostedByID == uuid.Nil {
		return nil, goerrors.New("job posting requires an authenticated user", goerrors.CategoryAuth).
			WithCode(goerrors.CodeUnauthorized)
	}

	job := &Job{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		postedBy := event.PostedByID
		job.Title = event.Title
		job.Company = event.Company
		job.Location = event.Location
		job.Type = JobType(event.JobType)
		job.Description = event.Description
		job.Salary = event.Salary
		job.PostedByID = &postedBy

		var err error
		if job, err = h.repo.Jobs().CreateTx(ctx, tx, job); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create job listing")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}

		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "job posting transaction failed")
	}

	return job, nil
}

package hirewire

import (
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
	"github.com/google/uuid"
)

func RegisterJobRoutes[T any](app router.Router[T], opts ...JobsControllerOption) {

	controller := NewJobsController(opts...)

	protected := controller.Auther.ProtectedRoute(
		controller.Config,
		controller.Auther.MakeClientRouteAuthErrorHandler(false),
	)
	optionalAuth := controller.Auther.ProtectedRoute(
		controller.Config,
		controller.Auther.MakeClientRouteAuthErrorHandler(true),
	)

	app.Get("/", controller.Home, optionalAuth).SetName("home.get")

	app.Get(controller.Routes.List, controller.List, optionalAuth).
		SetName("jobs.list")
	app.Get(controller.Routes.New, controller.PostShow, protected).
		SetName("jobs.new")
	app.Post(controller.Routes.New, controller.PostCreate, protected).
		SetName("jobs.create")
	app.Get(controller.Routes.Show, controller.Show, optionalAuth).
		SetName("jobs.show")

	app.Post(controller.Routes.APIJobs, controller.APIJobCreate, protected).
		SetName("api.jobs.create")
	app.Get(controller.Routes.APIApply, controller.APIApplicationStatus, optionalAuth).
		SetName("api.jobs.apply.get")
	app.Post(controller.Routes.APIApply, controller.APIApply, protected).
		SetName("api.jobs.apply.post")
}

type JobsControllerRoutes struct {
	List     string
	Show     string
	New      string
	APIJobs  string
	APIApply string
}

type JobsControllerViews struct {
	Home  string
	List  string
	Show  string
	New   string
	Error string
}

type JobsController struct {
	Debug    bool
	Logger   Logger
	Repo     RepositoryManager
	Routes   *JobsControllerRoutes
	Views    *JobsControllerViews
	Auther   HTTPAuthenticator
	Config   Config
	postJob  *PostJobHandler
	applyJob *ApplyToJobHandler
}

type JobsControllerOption func(*JobsController) *JobsController

func NewJobsController(opts ...JobsControllerOption) *JobsController {
	c := &JobsController{
		Logger: defLogger{},
		Routes: &JobsControllerRoutes{
			List:     "/jobs",
			Show:     "/jobs/:id",
			New:      "/jobs/post",
			APIJobs:  "/api/jobs",
			APIApply: "/api/jobs/:jobId/apply",
		},
		Views: &JobsControllerViews{
			Home:  "index",
			List:  "jobs/index",
			Show:  "jobs/show",
			New:   "jobs/new",
			Error: "errors/404",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in jobs controller...")
	}

	if c.Auther == nil {
		panic("Missing HTTPAuthenticator in jobs controller...")
	}

	if c.Config == nil {
		panic("Missing Config in jobs controller...")
	}

	c.postJob = NewPostJobHandler(c.Repo)
	c.applyJob = NewApplyToJobHandler(c.Repo)

	return c
}

func (a *JobsController) WithLogger(logger Logger) *JobsController {
	if logger != nil {
		a.Logger = logger
	}
	return a
}

func (a *JobsController) Home(ctx router.Context) error {
	jobs, err := a.Repo.Jobs().Search(ctx.Context(), JobSearch{})
	if err != nil {
		a.Logger.Error("home list jobs: ", "error", err)
		jobs = []*Job{}
	}

	if len(jobs) > 6 {
		jobs = jobs[:6]
	}

	return ctx.Render(a.Views.Home, MergeTemplateData(ctx, router.ViewContext{
		"jobs": jobs,
	}))
}

func (a *JobsController) List(ctx router.Context) error {
	filters := JobSearch{
		Query:    ctx.Query("q", ""),
		Type:     JobType(ctx.Query("type", "")),
		Location: ctx.Query("location", ""),
	}

	jobs, err := a.Repo.Jobs().Search(ctx.Context(), filters)
	if err != nil {
		a.Logger.Error("list jobs: ", "error", err)
		return ctx.Status(router.StatusInternalServerError).
			Render("errors/500", MergeTemplateData(ctx, router.ViewContext{
				"message": "Could not load job listings",
			}))
	}

	return ctx.Render(a.Views.List, MergeTemplateData(ctx, router.ViewContext{
		"jobs":   jobs,
		"search": filters,
	}))
}

func (a *JobsController) Show(ctx router.Context) error {
	id, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil {
		return ctx.Status(router.StatusNotFound).
			Render(a.Views.Error, MergeTemplateData(ctx, router.ViewContext{
				"message": ErrJobNotFound.Message,
			}))
	}

	job, err := a.Repo.Jobs().FindByID(ctx.Context(), id)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ctx.Status(router.StatusNotFound).
				Render(a.Views.Error, MergeTemplateData(ctx, router.ViewContext{
					"message": ErrJobNotFound.Message,
				}))
		}
		a.Logger.Error("show job: ", "error", err)
		return ctx.Status(router.StatusInternalServerError).
			Render("errors/500", MergeTemplateData(ctx, router.ViewContext{
				"message": "Could not load job listing",
			}))
	}

	data := router.ViewContext{
		"job":         job,
		"has_applied": false,
	}

	if session := CurrentSession(ctx); session != nil {
		if userID, err := session.GetUserUUID(); err == nil {
			if _, err := a.Repo.Applications().FindByJobAndUser(ctx.Context(), job.ID, userID); err == nil {
				data["has_applied"] = true
			}

			// the poster sees how many applications came in instead of
			// an apply button
			if job.PostedByID != nil && *job.PostedByID == userID {
				data["is_poster"] = true
				if count, err := a.Repo.Applications().CountForJob(ctx.Context(), job.ID); err == nil {
					data["applicant_count"] = count
				}
			}
		}
	}

	return ctx.Render(a.Views.Show, MergeTemplateData(ctx, data))
}

func (a *JobsController) PostShow(ctx router.Context) error {
	return ctx.Render(a.Views.New, MergeTemplateData(ctx, router.ViewContext{
		"errors": map[string]string{},
		"record": PostJobMessage{},
	}))
}

// PostCreate handles the server rendered job posting form. The JSON twin of
// this handler is APIJobCreate.
func (a *JobsController) PostCreate(ctx router.Context) error {
	session := CurrentSession(ctx)
	if session == nil {
		a.Auther.SetRedirect(ctx)
		return ctx.Redirect("/signin", router.StatusSeeOther)
	}

	payload := new(PostJobMessage)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("post job parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(router.StatusBadRequest).Render(a.Views.New, MergeTemplateData(ctx, router.ViewContext{
			"errors": map[string]string{"form": "Failed to parse form"},
			"record": payload,
		}))
	}

	userID, err := session.GetUserUUID()
	if err != nil {
		return a.Auther.MakeClientRouteAuthErrorHandler(false)(ctx, err)
	}
	payload.PostedByID = userID

	stdCtx := WithSessionContext(ctx.Context(), session)

	job, err := a.postJob.Execute(stdCtx, *payload)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) && richErr.Category == goerrors.CategoryValidation {
			return flash.WithError(ctx, router.ViewContext{
				"error_message":  richErr.Message,
				"system_message": "Error validating payload",
			}).Status(router.StatusBadRequest).Render(a.Views.New, MergeTemplateData(ctx, router.ViewContext{
				"record":     payload,
				"validation": FormatValidationErrorToMap(err),
			}))
		}

		a.Logger.Error("post job: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  "Could not publish the listing. Please try again.",
			"system_message": "Error creating job",
		}).Status(router.StatusInternalServerError).Render(a.Views.New, MergeTemplateData(ctx, router.ViewContext{
			"record": payload,
		}))
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Job listing published",
	}).Redirect("/jobs/"+job.ID.String(), router.StatusSeeOther)
}

// APIJobCreate persists a listing from a JSON body. The caller reached this
// point past the JWT middleware, so a session is present.
func (a *JobsController) APIJobCreate(ctx router.Context) error {
	session := CurrentSession(ctx)
	if session == nil {
		a.Auther.SetRedirect(ctx)
		return ctx.Redirect("/signin", router.StatusSeeOther)
	}

	payload := new(PostJobMessage)
	if err := ctx.Bind(payload); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error": "Invalid request body",
		})
	}

	userID, err := session.GetUserUUID()
	if err != nil {
		return ctx.JSON(router.StatusUnauthorized, map[string]any{
			"error": "Invalid session",
		})
	}
	payload.PostedByID = userID

	stdCtx := WithSessionContext(ctx.Context(), session)

	job, err := a.postJob.Execute(stdCtx, *payload)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) && richErr.Category == goerrors.CategoryValidation {
			return ctx.JSON(router.StatusBadRequest, map[string]any{
				"error":  richErr.Message,
				"errors": FormatValidationErrorToMap(err),
			})
		}

		a.Logger.Error("api create job: ", "error", err)
		return ctx.JSON(router.StatusInternalServerError, map[string]any{
			"error": "Internal Server Error",
		})
	}

	return ctx.JSON(router.StatusOK, job)
}

// APIApplicationStatus reports whether the current user applied to the job.
// Anonymous callers get hasApplied=false without a lookup.
func (a *JobsController) APIApplicationStatus(ctx router.Context) error {
	session := CurrentSession(ctx)
	if session == nil {
		return ctx.JSON(router.StatusOK, map[string]any{
			"hasApplied": false,
		})
	}

	jobID, err := uuid.Parse(ctx.Param("jobId", ""))
	if err != nil {
		return ctx.JSON(router.StatusOK, map[string]any{
			"hasApplied": false,
		})
	}

	userID, err := session.GetUserUUID()
	if err != nil {
		return ctx.JSON(router.StatusOK, map[string]any{
			"hasApplied": false,
		})
	}

	application, err := a.Repo.Applications().FindByJobAndUser(ctx.Context(), jobID, userID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ctx.JSON(router.StatusOK, map[string]any{
				"hasApplied": false,
			})
		}

		a.Logger.Error("api application status: ", "error", err)
		return ctx.JSON(router.StatusInternalServerError, map[string]any{
			"message": "Internal Server Error",
		})
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"hasApplied":  true,
		"application": application,
	})
}

// APIApply submits an application for the current user.
func (a *JobsController) APIApply(ctx router.Context) error {
	session := CurrentSession(ctx)
	if session == nil {
		a.Auther.SetRedirect(ctx)
		return ctx.Redirect("/signin", router.StatusSeeOther)
	}

	jobID, err := uuid.Parse(ctx.Param("jobId", ""))
	if err != nil {
		return ctx.JSON(router.StatusNotFound, map[string]any{
			"error": ErrJobNotFound.Message,
		})
	}

	userID, err := session.GetUserUUID()
	if err != nil {
		return ctx.JSON(router.StatusUnauthorized, map[string]any{
			"error": "Invalid session",
		})
	}

	stdCtx := WithSessionContext(ctx.Context(), session)

	application, err := a.applyJob.Execute(stdCtx, ApplyToJobMessage{
		JobID:  jobID,
		UserID: userID,
	})
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			switch richErr.Category {
			case goerrors.CategoryNotFound:
				return ctx.JSON(router.StatusNotFound, map[string]any{
					"error": richErr.Message,
				})
			case goerrors.CategoryConflict:
				// Duplicate submissions answer 400, matching the status the
				// apply button distinguishes from a hard failure.
				return ctx.JSON(router.StatusBadRequest, map[string]any{
					"error": richErr.Message,
				})
			}
		}

		a.Logger.Error("api apply: ", "error", err)
		return ctx.JSON(router.StatusInternalServerError, map[string]any{
			"message": "Internal Server Error",
		})
	}

	return ctx.JSON(router.StatusCreated, application)
}

package hirewire

import (
	"github.com/goliatone/go-router"
)

func RegisterDashboardRoutes[T any](app router.Router[T], opts ...DashboardControllerOption) {

	controller := NewDashboardController(opts...)

	protected := controller.Auther.ProtectedRoute(
		controller.Config,
		controller.Auther.MakeClientRouteAuthErrorHandler(false),
	)

	app.Get(controller.Route, controller.Show, protected).SetName("dashboard.get")
}

type DashboardController struct {
	Logger Logger
	Repo   RepositoryManager
	Auther HTTPAuthenticator
	Config Config
	Route  string
	View   string
}

type DashboardControllerOption func(*DashboardController) *DashboardController

func NewDashboardController(opts ...DashboardControllerOption) *DashboardController {
	c := &DashboardController{
		Logger: defLogger{},
		Route:  "/dashboard",
		View:   "dashboard",
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in dashboard controller...")
	}

	if c.Auther == nil {
		panic("Missing HTTPAuthenticator in dashboard controller...")
	}

	if c.Config == nil {
		panic("Missing Config in dashboard controller...")
	}

	return c
}

func (a *DashboardController) WithLogger(logger Logger) *DashboardController {
	if logger != nil {
		a.Logger = logger
	}
	return a
}

// Show renders the signed-in user's posted listings, each with its
// application count, next to the applications the user submitted.
func (a *DashboardController) Show(ctx router.Context) error {
	session := CurrentSession(ctx)
	if session == nil {
		a.Auther.SetRedirect(ctx)
		return ctx.Redirect("/signin", router.StatusSeeOther)
	}

	userID, err := session.GetUserUUID()
	if err != nil {
		return a.Auther.MakeClientRouteAuthErrorHandler(false)(ctx, err)
	}

	postedJobs, err := a.Repo.Jobs().ListByPoster(ctx.Context(), userID)
	if err != nil {
		a.Logger.Error("dashboard posted jobs: ", "error", err)
		return ctx.Status(router.StatusInternalServerError).
			Render("errors/500", MergeTemplateData(ctx, router.ViewContext{
				"message": "Could not load your dashboard",
			}))
	}

	applications, err := a.Repo.Applications().ListForUser(ctx.Context(), userID)
	if err != nil {
		a.Logger.Error("dashboard applications: ", "error", err)
		return ctx.Status(router.StatusInternalServerError).
			Render("errors/500", MergeTemplateData(ctx, router.ViewContext{
				"message": "Could not load your dashboard",
			}))
	}

	return ctx.Render(a.View, MergeTemplateData(ctx, router.ViewContext{
		"posted_jobs":  postedJobs,
		"applications": applications,
	}))
}

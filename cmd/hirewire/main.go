package main

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gofiber/fiber/v2"
	django "github.com/gofiber/template/django/v3"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	mflash "github.com/goliatone/go-router/middleware/flash"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	gconfig "github.com/goliatone/go-config/config"
	"github.com/hirewire/hirewire"
	"github.com/hirewire/hirewire/config"
	"github.com/hirewire/hirewire/middleware/csrf"
	"github.com/hirewire/hirewire/repository"
	"github.com/hirewire/hirewire/social"
	"github.com/hirewire/hirewire/social/providers/github"
	"github.com/hirewire/hirewire/social/providers/google"
)

type App struct {
	config  *gconfig.Container[*config.BaseConfig]
	bunDB   *bun.DB
	repo    hirewire.RepositoryManager
	auth    hirewire.Authenticator
	auther  hirewire.HTTPAuthenticator
	actions *hirewire.AuthActions
	social  *social.SocialAuthenticator
	srv     router.Server[*fiber.App]
	logger  *glog.BaseLogger
}

func (a *App) Config() *config.BaseConfig {
	return a.config.Raw()
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("hirewire"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg := gconfig.New(&config.BaseConfig{}).
		WithLogger(lgr.GetLogger("config"))

	ctx := context.Background()
	if err := cfg.Load(ctx); err != nil {
		panic(err)
	}

	fmt.Println(print.MaybeHighlightJSON(cfg.Raw()))

	app := &App{
		config: cfg,
		logger: lgr,
	}

	if err := WithPersistence(ctx, app); err != nil {
		panic(err)
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		panic(err)
	}

	if err := WithHTTPAuth(ctx, app); err != nil {
		panic(err)
	}

	RegisterRoutes(app)

	app.srv.Serve(app.Config().GetServer().GetAddress())

	WaitExitSignal()
}

func WithPersistence(ctx context.Context, app *App) error {
	pcfg := app.Config().GetPersistence()

	sqldb, err := sql.Open(sqliteshim.ShimName, pcfg.GetDSN())
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "could not open database")
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	if err := hirewire.RunMigrations(ctx, db, app.GetLogger("migrations")); err != nil {
		return err
	}

	app.bunDB = db
	return nil
}

func WithHTTPServer(_ context.Context, app *App) error {
	vcfg := app.Config().GetViews()

	templates, err := fs.Sub(hirewire.GetViewsFS(), vcfg.GetDirFS())
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "could not scope view templates")
	}

	engine := django.NewFileSystem(http.FS(templates), vcfg.GetExt())
	engine.Reload(vcfg.GetReload())
	engine.AddFuncMap(hirewire.TemplateHelpers())

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			EnablePrintRoutes: true,
			StrictRouting:     false,
			PassLocalsToViews: true,
			Views:             engine,
		}))
	})

	srv.Router().WithLogger(app.GetLogger("router"))
	srv.Router().Use(mflash.New(mflash.ConfigDefault))

	// stateless double-submit tokens, keyed off the auth signing key so
	// tokens survive restarts
	csrfKey := sha256.Sum256([]byte(app.Config().GetAuth().GetSigningKey() + ":csrf"))
	srv.Router().Use(csrf.New(csrf.Config{
		SecureKey: csrfKey[:],
		Skip:      skipCSRF,
	}))
	csrf.RegisterRoutes(srv.Router())

	assets, err := fs.Sub(hirewire.GetAssetsFS(), vcfg.GetAssetsDir())
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "could not scope static assets")
	}

	srv.Router().Static("/public", ".", router.Static{
		FS:   assets,
		Root: ".",
	})

	app.srv = srv
	return nil
}

func WithHTTPAuth(_ context.Context, app *App) error {
	acfg := app.Config().GetAuth()

	repo := hirewire.NewRepositoryManager(app.bunDB)
	if err := repo.Validate(); err != nil {
		return err
	}
	app.repo = repo

	userProvider := hirewire.NewUserProvider(userTrackerAdapter{users: repo.Users()}).
		WithLogger(app.GetLogger("auth:prv"))

	sink := activityLogSink{logger: app.GetLogger("auth:activity")}

	authenticator := hirewire.NewAuthenticator(userProvider, acfg).
		WithLogger(app.GetLogger("auth:authn")).
		WithActivitySink(sink)

	httpAuth, err := hirewire.NewHTTPAuthenticator(authenticator, acfg)
	if err != nil {
		return err
	}
	httpAuth.WithLogger(app.GetLogger("auth:http"))
	httpAuth.WithTemplateUserProvider(func(claims hirewire.AuthClaims) (any, error) {
		return repo.Users().GetByID(context.Background(), claims.UserID())
	})

	app.auth = authenticator
	app.auther = httpAuth

	socialAuth, err := WithSocialAuth(app, authenticator, repo, sink)
	if err != nil {
		return err
	}
	app.social = socialAuth

	actions := hirewire.NewAuthActions(authenticator, repo).
		WithLogger(app.GetLogger("auth:actions")).
		WithActivitySink(sink)

	if socialAuth != nil {
		actions.WithSocial(social.SignInAdapter{Authenticator: socialAuth})
	}

	app.actions = actions
	return nil
}

func WithSocialAuth(app *App, authenticator *hirewire.Auther, repo hirewire.RepositoryManager, sink hirewire.ActivitySink) (*social.SocialAuthenticator, error) {
	scfg := app.Config().GetSocial()

	opts := []social.SocialAuthOption{
		social.WithActivitySink(sink),
	}

	enabled := 0
	if p := scfg.GetGitHub(); p.Enabled() {
		opts = append(opts, social.WithProvider(github.New(github.Config{
			ClientID:     p.GetClientID(),
			ClientSecret: p.GetClientSecret(),
			Scopes:       p.GetScopes(),
			CallbackURL:  scfg.GetBaseURL() + "/auth/social/github/callback",
		})))
		enabled++
	}

	if p := scfg.GetGoogle(); p.Enabled() {
		opts = append(opts, social.WithProvider(google.New(google.Config{
			ClientID:     p.GetClientID(),
			ClientSecret: p.GetClientSecret(),
			Scopes:       p.GetScopes(),
			CallbackURL:  scfg.GetBaseURL() + "/auth/social/google/callback",
		})))
		enabled++
	}

	if enabled == 0 {
		app.GetLogger("auth:social").Info("no social providers configured, social sign in disabled")
		return nil, nil
	}

	encKey := sha256.Sum256([]byte(scfg.GetStateSigningKey() + ":enc"))
	macKey := sha256.Sum256([]byte(scfg.GetStateSigningKey() + ":mac"))

	return social.NewSocialAuthenticator(
		repository.NewSocialAccountRepository(app.bunDB),
		repo.Users(),
		authenticator.TokenService(),
		social.SocialAuthConfig{
			BaseURL:            scfg.GetBaseURL(),
			CallbackPath:       "/auth/social",
			DefaultRedirectURL: "/dashboard",
			StateEncryptionKey: encKey[:],
			StateHMACKey:       macKey[:],
			AllowSignup:        true,
			AllowLinking:       true,
			DefaultRole:        string(hirewire.RoleMember),
		},
		opts...,
	), nil
}

func RegisterRoutes(app *App) {
	acfg := app.Config().GetAuth()
	root := app.srv.Router().Group("/")

	hirewire.RegisterAuthRoutes(root, func(ac *hirewire.AuthController) *hirewire.AuthController {
		ac.Repo = app.repo
		ac.Actions = app.actions
		ac.Auther = app.auther
		ac.WithLogger(app.GetLogger("auth:ctrl"))
		return ac
	})

	hirewire.RegisterJobRoutes(root, func(c *hirewire.JobsController) *hirewire.JobsController {
		c.Repo = app.repo
		c.Auther = app.auther
		c.Config = acfg
		c.Logger = app.GetLogger("jobs:ctrl")
		return c
	})

	hirewire.RegisterDashboardRoutes(root, func(c *hirewire.DashboardController) *hirewire.DashboardController {
		c.Repo = app.repo
		c.Auther = app.auther
		c.Config = acfg
		c.Logger = app.GetLogger("dashboard:ctrl")
		return c
	})

	if app.social != nil {
		controller := social.NewHTTPController(app.social, social.HTTPConfig{
			SessionContextKey: acfg.GetContextKey(),
			CookieHTTPOnly:    true,
			CookieSecure:      true,
			CookieSameSite:    "Lax",
			SuccessRedirect:   "/dashboard",
			ErrorRedirect:     "/signin?error=auth_failed",
		})
		controller.RegisterRoutes(app.srv.Router().Group("/auth/social"))
	}
}

// skipCSRF exempts the JSON API, whose contract carries no form token.
func skipCSRF(ctx router.Context) bool {
	return strings.HasPrefix(ctx.Path(), "/api/")
}

type userTrackerAdapter struct {
	users hirewire.Users
}

func (a userTrackerAdapter) GetByIdentifier(ctx context.Context, identifier string) (*hirewire.User, error) {
	return a.users.GetByIdentifier(ctx, identifier)
}

func (a userTrackerAdapter) TrackAttemptedLogin(ctx context.Context, user *hirewire.User) error {
	return a.users.TrackAttemptedLogin(ctx, user)
}

func (a userTrackerAdapter) TrackSuccessfulLogin(ctx context.Context, user *hirewire.User) error {
	return a.users.TrackSuccessfulLogin(ctx, user)
}

type activityLogSink struct {
	logger glog.Logger
}

func (s activityLogSink) Record(_ context.Context, event hirewire.ActivityEvent) error {
	s.logger.Info("auth activity",
		"event", event.EventType,
		"user_id", event.UserID,
		"actor", event.Actor.Type,
	)
	return nil
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}

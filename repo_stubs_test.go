package hirewire_test

import (
	"context"
	"database/sql"

	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/hirewire/hirewire"
	"github.com/uptrace/bun"
)

// stubRepoManager hands out stub repositories and runs transaction bodies
// against a zero-value tx. Embedding keeps the interface satisfied without
// implementing the methods a test never touches.
type stubRepoManager struct {
	hirewire.RepositoryManager
	users        hirewire.Users
	jobs         hirewire.Jobs
	applications hirewire.Applications
}

func (s *stubRepoManager) Users() hirewire.Users               { return s.users }
func (s *stubRepoManager) Jobs() hirewire.Jobs                 { return s.jobs }
func (s *stubRepoManager) Applications() hirewire.Applications { return s.applications }

func (s *stubRepoManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return f(ctx, bun.Tx{})
	}
}

type stubJobsRepo struct {
	hirewire.Jobs
	existsFn   func(id uuid.UUID) (bool, error)
	createFn   func(record *hirewire.Job) (*hirewire.Job, error)
	findFn     func(id uuid.UUID) (*hirewire.Job, error)
	searchFn   func(filters hirewire.JobSearch) ([]*hirewire.Job, error)
	byPosterFn func(userID uuid.UUID) ([]*hirewire.Job, error)
}

func (s *stubJobsRepo) ExistsTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (bool, error) {
	return s.existsFn(id)
}

func (s *stubJobsRepo) CreateTx(ctx context.Context, tx bun.IDB, record *hirewire.Job, criteria ...repository.InsertCriteria) (*hirewire.Job, error) {
	return s.createFn(record)
}

func (s *stubJobsRepo) Create(ctx context.Context, record *hirewire.Job, criteria ...repository.InsertCriteria) (*hirewire.Job, error) {
	return s.createFn(record)
}

func (s *stubJobsRepo) FindByID(ctx context.Context, id uuid.UUID) (*hirewire.Job, error) {
	return s.findFn(id)
}

func (s *stubJobsRepo) Search(ctx context.Context, filters hirewire.JobSearch) ([]*hirewire.Job, error) {
	return s.searchFn(filters)
}

func (s *stubJobsRepo) ListByPoster(ctx context.Context, userID uuid.UUID) ([]*hirewire.Job, error) {
	return s.byPosterFn(userID)
}

type stubApplicationsRepo struct {
	hirewire.Applications
	findFn    func(jobID, userID uuid.UUID) (*hirewire.Application, error)
	createFn  func(record *hirewire.Application) (*hirewire.Application, error)
	forUserFn func(userID uuid.UUID) ([]*hirewire.Application, error)
	countFn   func(jobID uuid.UUID) (int, error)
}

func (s *stubApplicationsRepo) FindByJobAndUser(ctx context.Context, jobID, userID uuid.UUID) (*hirewire.Application, error) {
	return s.findFn(jobID, userID)
}

func (s *stubApplicationsRepo) FindByJobAndUserTx(ctx context.Context, tx bun.IDB, jobID, userID uuid.UUID) (*hirewire.Application, error) {
	return s.findFn(jobID, userID)
}

func (s *stubApplicationsRepo) Create(ctx context.Context, record *hirewire.Application, criteria ...repository.InsertCriteria) (*hirewire.Application, error) {
	return s.createFn(record)
}

func (s *stubApplicationsRepo) CreateTx(ctx context.Context, tx bun.IDB, record *hirewire.Application, criteria ...repository.InsertCriteria) (*hirewire.Application, error) {
	return s.createFn(record)
}

func (s *stubApplicationsRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]*hirewire.Application, error) {
	return s.forUserFn(userID)
}

func (s *stubApplicationsRepo) CountForJob(ctx context.Context, jobID uuid.UUID) (int, error) {
	return s.countFn(jobID)
}

type stubActionUsers struct {
	hirewire.Users
	getByIdentifierFn func(identifier string) (*hirewire.User, error)
	createFn          func(record *hirewire.User) (*hirewire.User, error)
}

func (s *stubActionUsers) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*hirewire.User, error) {
	return s.getByIdentifierFn(identifier)
}

func (s *stubActionUsers) CreateTx(ctx context.Context, tx bun.IDB, record *hirewire.User, criteria ...repository.InsertCriteria) (*hirewire.User, error) {
	return s.createFn(record)
}

// stubHTTPAuth satisfies HTTPAuthenticator for controller tests, counting
// redirect-cookie writes so handlers that bounce to sign in can be asserted.
type stubHTTPAuth struct {
	redirectsSet int
}

func (s *stubHTTPAuth) Login(c router.Context, payload hirewire.LoginPayload) error { return nil }
func (s *stubHTTPAuth) Logout(c router.Context)                                    {}
func (s *stubHTTPAuth) StoreToken(c router.Context, token string, extended bool)   {}

func (s *stubHTTPAuth) ProtectedRoute(cfg hirewire.Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return next
	}
}

func (s *stubHTTPAuth) RequireGuest(redirect string) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return next
	}
}

func (s *stubHTTPAuth) SetRedirect(c router.Context) {
	s.redirectsSet++
}

func (s *stubHTTPAuth) GetRedirect(c router.Context, def ...string) string {
	if len(def) > 0 {
		return def[0]
	}
	return ""
}

func (s *stubHTTPAuth) GetRedirectOrDefault(c router.Context) string {
	return "/signin"
}

func (s *stubHTTPAuth) MakeClientRouteAuthErrorHandler(optional bool) func(router.Context, error) error {
	return func(c router.Context, err error) error {
		return err
	}
}

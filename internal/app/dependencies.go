package app

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/tppms/tppms/internal/authz"
	"github.com/tppms/tppms/internal/config"
	"github.com/tppms/tppms/internal/event_bus"
	"github.com/tppms/tppms/internal/utils"
	"github.com/tppms/tppms/pkg/allocation"
	"github.com/tppms/tppms/pkg/bench"
	"github.com/tppms/tppms/pkg/dashboard"
	"github.com/tppms/tppms/pkg/google"
	"github.com/tppms/tppms/pkg/overallocation"
	"github.com/tppms/tppms/pkg/project"
	"github.com/tppms/tppms/pkg/session"
	"github.com/tppms/tppms/pkg/user"
	"github.com/tppms/tppms/pkg/week_calendar"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	Clock    utils.Clock
	Enforcer *authz.Enforcer
	EventBus *event_bus.EventBus

	UserService user.Service
	UserHandler *user.Handler

	SessionService *session.ServiceImpl
	SessionHandler *session.Handler

	GoogleService *google.ServiceImpl
	GoogleHandler *google.Handler

	CalendarHandler *week_calendar.Handler

	ProjectRepo    project.Repository
	ProjectService *project.ServiceImpl
	ProjectHandler *project.Handler

	AllocationRepo    allocation.Repository
	AllocationService *allocation.ServiceImpl
	AllocationHandler *allocation.Handler

	OverallocationChecker   overallocation.Checker
	OverallocationValidator *overallocation.Validator
	OverallocationService   *overallocation.ServiceImpl
	OverallocationHandler   *overallocation.Handler

	BenchService *bench.ServiceImpl
	BenchHandler *bench.Handler

	DashboardService *dashboard.ServiceImpl
	DashboardHandler *dashboard.Handler
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(db *pgxpool.Pool, cfg config.Application) (*Dependencies, error) {
	deps := &Dependencies{}

	enforcer, err := authz.NewEnforcer()
	if err != nil {
		return nil, fmt.Errorf("failed to load authorization policy: %w", err)
	}
	deps.Enforcer = enforcer
	deps.Clock = &utils.SystemClock{}
	deps.EventBus = event_bus.NewEventBus()

	deps.UserService = user.NewUserService(user.NewUserRepo(db))
	deps.UserHandler = user.NewHandler(deps.UserService)

	deps.SessionService = session.NewService(session.NewRepo(db), deps.UserService, deps.Clock, cfg.Session.Ttl())
	deps.SessionHandler = session.NewHandler(deps.SessionService)

	deps.GoogleService = google.NewService(cfg, google.NewStateRepo(db), deps.UserService, deps.SessionService, deps.Clock)
	deps.GoogleHandler = google.NewHandler(deps.GoogleService)

	deps.CalendarHandler = week_calendar.NewHandler(deps.Clock, allocation.DisplayWeeks)

	deps.ProjectRepo = project.NewRepo(db)
	deps.ProjectService = project.NewService(deps.ProjectRepo, deps.Enforcer)
	deps.ProjectHandler = project.NewHandler(deps.ProjectService)

	deps.AllocationRepo = allocation.NewRepo(db)
	gate := allocation.NewGate(deps.Clock, deps.Enforcer)
	deps.AllocationService = allocation.NewService(deps.AllocationRepo, deps.ProjectService, gate, deps.Enforcer, deps.EventBus)
	deps.AllocationHandler = allocation.NewHandler(deps.AllocationService)

	if cfg.Allocation.CheckUrl != "" {
		log.Infof("Using remote overallocation checker at %s", cfg.Allocation.CheckUrl)
		deps.OverallocationChecker = overallocation.NewRemoteChecker(cfg.Allocation.CheckUrl, cfg.Allocation.CheckTimeout(), cfg.Allocation.WeeklyLimit)
	} else {
		deps.OverallocationChecker = overallocation.NewLocalChecker(deps.AllocationRepo, cfg.Allocation.WeeklyLimit)
	}
	deps.OverallocationValidator = overallocation.NewValidator(deps.OverallocationChecker, cfg.Allocation.WeeklyLimit)
	deps.OverallocationService = overallocation.NewService(deps.OverallocationValidator, deps.AllocationService, deps.UserService, deps.EventBus)
	deps.OverallocationHandler = overallocation.NewHandler(deps.OverallocationService)

	deps.BenchService = bench.NewService(bench.NewRepo(db), deps.Enforcer, cfg.Allocation.WeeklyLimit)
	deps.BenchHandler = bench.NewHandler(deps.BenchService, bench.NewCsvRenderer())

	deps.DashboardService = dashboard.NewService(deps.UserService, deps.ProjectRepo, deps.ProjectService,
		deps.AllocationService, deps.Enforcer, deps.Clock, cfg.Allocation.WeeklyLimit)
	deps.DashboardHandler = dashboard.NewHandler(deps.DashboardService, deps.Clock)

	return deps, nil
}

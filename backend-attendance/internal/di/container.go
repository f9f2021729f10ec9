package di

import (
	"time"

	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/handler"
	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/repository"
	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/service"
	"github.com/prohmpiriya/event-attendance/pkg/database"
	"github.com/prohmpiriya/event-attendance/pkg/logger"
	"github.com/prohmpiriya/event-attendance/pkg/redis"
)

// Container holds all dependencies for the attendance service
type Container struct {
	// Infrastructure
	DB    *database.PostgresDB
	Redis *redis.Client

	// Repositories
	EventRepo        repository.EventRepository
	ParticipantRepo  repository.ParticipantRepository
	RegistrationRepo repository.RegistrationRepository

	// EventCache is set when events are served through Redis
	EventCache *repository.CachedEventRepository

	// Publishers
	JobPublisher service.JobPublisher

	// Services
	EventService        service.EventService
	RegistrationService service.RegistrationService
	AttendanceService   service.AttendanceService
	ReportService       service.ReportService

	// Handlers
	Handlers *handler.Handlers
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	// DB selects the Postgres store. When nil the in-memory store is used.
	DB *database.PostgresDB
	// Redis enables the event cache. Optional.
	Redis         *redis.Client
	EventCacheTTL time.Duration
	JobPublisher  service.JobPublisher
	Logger        *logger.Logger

	EventConfig        *service.EventServiceConfig
	RegistrationConfig *service.RegistrationServiceConfig
	AttendanceConfig   *service.AttendanceServiceConfig
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	c := &Container{
		DB:           cfg.DB,
		Redis:        cfg.Redis,
		JobPublisher: cfg.JobPublisher,
	}
	if c.JobPublisher == nil {
		c.JobPublisher = service.NewNoOpJobPublisher()
	}

	// Initialize repositories
	if c.DB != nil {
		pool := c.DB.Pool()
		c.EventRepo = repository.NewPostgresEventRepository(pool)
		c.ParticipantRepo = repository.NewPostgresParticipantRepository(pool)
		c.RegistrationRepo = repository.NewPostgresRegistrationRepository(pool)
	} else {
		store := repository.NewMemoryStore()
		c.EventRepo = store.Events()
		c.ParticipantRepo = store.Participants()
		c.RegistrationRepo = store.Registrations()
	}
	if c.Redis != nil {
		c.EventCache = repository.NewCachedEventRepository(c.EventRepo, c.Redis, cfg.EventCacheTTL, cfg.Logger)
		c.EventRepo = c.EventCache
	}

	// Initialize services
	c.EventService = service.NewEventService(c.EventRepo, c.JobPublisher, cfg.EventConfig)
	c.RegistrationService = service.NewRegistrationService(
		c.ParticipantRepo,
		c.EventRepo,
		c.RegistrationRepo,
		c.JobPublisher,
		cfg.RegistrationConfig,
	)
	c.AttendanceService = service.NewAttendanceService(c.EventRepo, c.RegistrationRepo, cfg.AttendanceConfig)
	c.ReportService = service.NewReportService(c.EventRepo, c.ParticipantRepo, c.RegistrationRepo)

	// Initialize handlers
	checkers := map[string]handler.HealthChecker{}
	if c.DB != nil {
		checkers["database"] = c.DB
	}
	if c.Redis != nil {
		checkers["redis"] = c.Redis
	}
	c.Handlers = &handler.Handlers{
		Health:      handler.NewHealthHandler(checkers),
		Event:       handler.NewEventHandler(c.EventService),
		Participant: handler.NewParticipantHandler(c.RegistrationService, c.ReportService),
		Attendance:  handler.NewAttendanceHandler(c.AttendanceService, c.ReportService),
	}

	return c
}

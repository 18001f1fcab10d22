package container

import (
	"log/slog"

	"github.com/joshua-takyi/campus-events/internal/config"
	"github.com/joshua-takyi/campus-events/internal/helpers"
	"github.com/joshua-takyi/campus-events/internal/middleware"
	"github.com/joshua-takyi/campus-events/internal/models"
	"github.com/joshua-takyi/campus-events/internal/services"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	Store  models.Store
	Images helpers.ImageStore

	ReportCaches  *services.ReportCacheRegistry
	Authenticator *middleware.Authenticator
	WriteLimiter  *middleware.WriteLimiter

	UserService       *services.UserService
	EventService      *services.EventService
	ReportService     *services.ReportService
	ModerationService *services.ModerationService
}

// NewContainer creates a new dependency injection container
func NewContainer(
	cfg *config.Config,
	logger *slog.Logger,
	store models.Store,
	images helpers.ImageStore,
	users models.UserRepo,
	verifier *helpers.TokenVerifier,
) *Container {
	resolver := services.NewDateRangeResolver(cfg.CampusLocation)
	builder := services.NewEventQueryBuilder(resolver, cfg.PublicIncludeUnderReview, cfg.MaxPageSize)
	machine := services.NewModerationStateMachine(cfg.ReportThreshold)
	caches := services.NewReportCacheRegistry(cfg.SessionCacheCapacity)

	userService := services.NewUserService(users)
	reportService := services.NewReportService(store, machine, logger)
	eventService := services.NewEventService(store, images, builder, resolver, reportService, machine, caches,
		services.EventServiceConfig{
			DefaultPageSize: cfg.DefaultPageSize,
			MaxDaysAhead:    cfg.EventMaxDaysAhead,
		}, logger)
	moderationService := services.NewModerationService(store, images, builder, machine, caches, logger)

	return &Container{
		Config:            cfg,
		Logger:            logger,
		Store:             store,
		Images:            images,
		ReportCaches:      caches,
		Authenticator:     middleware.NewAuthenticator(verifier, userService, logger, cfg.IsProduction()),
		WriteLimiter:      middleware.NewWriteLimiter(cfg.WriteRatePerMinute, cfg.WriteBurst),
		UserService:       userService,
		EventService:      eventService,
		ReportService:     reportService,
		ModerationService: moderationService,
	}
}

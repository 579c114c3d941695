// Package server contains HTTP and WebSocket handlers for the API endpoints.
package server

import (
	"context"
	"fmt"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"quill/internal/cache"
	"quill/internal/charts"
	"quill/internal/config"
	"quill/internal/database"
	"quill/internal/middleware"
	"quill/internal/notifications"
	"quill/internal/observability"
	"quill/internal/queue"
	"quill/internal/repository"
	"quill/internal/search"
	"quill/internal/service"
)

// Server holds all dependencies and provides handlers.
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	noteRepo    repository.NoteRepository
	userRepo    repository.UserRepository
	channelRepo repository.ChannelRepository
	metaRepo    repository.MetaRepository

	notifier *notifications.Notifier
	hub      *notifications.Hub
	deferred *queue.Deferred

	noteEditService *service.NoteEditService
}

// NewServer creates a new server instance with all dependencies.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	noteRepo := repository.NewNoteRepository(db)
	userRepo := repository.NewUserRepository(db)
	instanceRepo := repository.NewInstanceRepository(db)
	channelRepo := repository.NewChannelRepository(db)
	webhookRepo := repository.NewWebhookRepository(db)
	metaRepo := repository.NewMetaRepository(db)
	roleRepo := repository.NewRoleRepository(db)

	prom := middleware.InitMetrics("quill-api")

	shutdownCtx, shutdownFn := context.WithCancel(context.Background())

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: prom,
		shutdownCtx:    shutdownCtx,
		shutdownFn:     shutdownFn,
		noteRepo:       noteRepo,
		userRepo:       userRepo,
		channelRepo:    channelRepo,
		metaRepo:       metaRepo,
		notifier:       notifications.NewNotifier(redisClient),
		deferred:       queue.NewDeferred(),
	}

	if redisClient != nil {
		server.hub = notifications.NewHub()
	}

	notificationQueue := queue.NewJobQueue(redisClient, cache.QueueNotifications)
	webhookQueue := queue.NewJobQueue(redisClient, cache.QueueWebhooks)
	deliverQueue := queue.NewJobQueue(redisClient, cache.QueueDeliver)
	searchQueue := queue.NewJobQueue(redisClient, cache.QueueSearchIndex)
	scheduler := queue.NewScheduler(redisClient, cache.ScheduleKey)

	federation := service.NewFederationDispatcher(
		userRepo, deliverQueue,
		service.NewActivityBuilder(cfg.BaseURL),
		observability.GlobalLogger,
	)
	fanout := service.NewEditFanout(
		noteRepo, instanceRepo, channelRepo, webhookRepo, metaRepo,
		charts.New(redisClient),
		server.notifier,
		notifications.NewQueueSink(notificationQueue),
		scheduler,
		webhookQueue,
		search.NewQueueIndexer(searchQueue),
		federation,
		observability.GlobalLogger,
	)
	server.noteEditService = service.NewNoteEditService(
		noteRepo, userRepo, channelRepo, metaRepo, roleRepo,
		service.NewContentAnalyzer(),
		service.NewMentionResolver(userRepo, service.NewStoreRemoteResolver(userRepo)),
		fanout,
		server.deferred,
	)

	return server, nil
}

// StartBackground wires the real-time stream: redis pub/sub messages flow
// into the websocket hub until shutdown.
func (s *Server) StartBackground() error {
	if s.hub == nil {
		return nil
	}
	return s.hub.StartWiring(s.shutdownCtx, s.notifier)
}

// SetupMiddleware configures middleware for the Fiber app.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	app.Use(cors.New(cors.Config{
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		MaxAge:       86400,
	}))
}

// SetupRoutes configures all routes for the application.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Quill Metrics Dashboard",
	}))

	protected := api.Group("", middleware.AuthRequired(s.config.JWTSecret))

	notes := protected.Group("/notes")
	notes.Post("/:id/edit", middleware.RateLimit(
		s.redis, 30, time.Minute, "edit_note"), s.EditNote)

	ws := api.Group("/ws", middleware.AuthRequired(s.config.JWTSecret))
	ws.Get("/", s.WebsocketHandler())
}

// LivenessCheck handles liveness probe requests.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Shutdown stops background work and releases server resources. Pending
// deferred fan-out passes get until ctx's deadline to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownFn()

	var firstErr error
	if err := s.deferred.Shutdown(ctx); err != nil {
		firstErr = err
	}
	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if sqlDB, err := s.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

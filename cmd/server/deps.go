package main

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/agenttrace/xray/internal/config"
	"github.com/agenttrace/xray/internal/handler"
	"github.com/agenttrace/xray/internal/middleware"
	"github.com/agenttrace/xray/internal/pkg/database"
	"github.com/agenttrace/xray/internal/reasoner"
	"github.com/agenttrace/xray/internal/registry"
	"github.com/agenttrace/xray/internal/service"
	"github.com/agenttrace/xray/internal/worker"
	"github.com/agenttrace/xray/internal/workflow"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	Logger *zap.Logger

	// Redis is nil unless redis is enabled
	Redis redis.UniversalClient

	Registry   *registry.Registry
	Reasoner   reasoner.Reasoner
	Executions *service.ExecutionService

	// Exactly one of Pool and Worker is set
	Pool   *worker.TaskPool
	Worker *worker.Server

	Handlers *Handlers

	// RunRateLimit is nil when run submissions are unlimited
	RunRateLimit *middleware.RateLimitMiddleware
}

// Handlers holds HTTP handlers
type Handlers struct {
	Health     *handler.HealthHandler
	Executions *handler.ExecutionsHandler
}

// initDependencies initializes all dependencies
func initDependencies(cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if cfg.Redis.Enabled {
		client, err := database.NewRedis(context.Background(), cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		deps.Redis = client
	}

	deps.Registry = registry.New(registry.WithLogger(logger))
	deps.Reasoner = newReasoner(cfg, deps.Redis, logger)

	router, err := workflow.NewRouter(deps.Reasoner, logger)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to load workflows: %w", err)
	}

	deps.Executions = service.NewExecutionService(deps.Registry, router, logger,
		service.WithRunTimeout(cfg.Worker.RunTimeout),
	)

	switch cfg.Worker.Dispatcher {
	case "asynq":
		deps.Worker = worker.NewServer(logger, cfg, deps.Executions.Run)
		deps.Executions.SetDispatcher(worker.NewAsynqDispatcher(deps.Worker.Client(), cfg.Worker.ProcessQueue(), cfg.Worker.RunTimeout, logger))
	default:
		deps.Pool = worker.NewTaskPool(deps.Executions.Run, cfg.Worker.Concurrency, logger)
		deps.Executions.SetDispatcher(deps.Pool)
	}

	if cfg.Server.RunsPerMinute > 0 {
		rl := middleware.RunRateLimitConfig(cfg.Server.RunsPerMinute)
		rl.Skip = func(c *fiber.Ctx) bool { return c.Method() != fiber.MethodPost }
		deps.RunRateLimit = middleware.NewRateLimitMiddleware(deps.Redis, logger, rl)
	}

	deps.Handlers = &Handlers{
		Health:     handler.NewHealthHandler(deps.Redis, appVersion),
		Executions: handler.NewExecutionsHandler(deps.Executions, logger, cfg.Server.HeartbeatInterval),
	}

	return deps, nil
}

// newReasoner builds the configured backend, cached in Redis when enabled
func newReasoner(cfg *config.Config, client redis.UniversalClient, logger *zap.Logger) reasoner.Reasoner {
	if cfg.Reasoner.Backend == "offline" {
		logger.Info("using offline reasoner")
		return workflow.Offline()
	}

	var r reasoner.Reasoner = reasoner.NewOpenAI(cfg.Reasoner, logger)
	if cfg.Reasoner.CacheEnabled() && client != nil {
		r = reasoner.NewCached(r, client, cfg.Reasoner.Model, cfg.Reasoner.CacheTTL, logger)
		logger.Info("reasoner cache enabled", zap.Duration("ttl", cfg.Reasoner.CacheTTL))
	}
	return r
}

// Close releases connections. Runs must be drained first.
func (d *Dependencies) Close() {
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Warn("failed to close Redis", zap.Error(err))
		}
	}
}

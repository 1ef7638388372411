package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	json "github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/agenttrace/xray/internal/config"
	"github.com/agenttrace/xray/internal/middleware"
	"github.com/agenttrace/xray/internal/pkg/logger"
)

const appVersion = "0.1.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	log := logger.Log
	defer func() { _ = logger.Sync() }()

	sentryEnabled := cfg.Sentry.Enabled()
	if sentryEnabled {
		if err := middleware.InitSentry(cfg.Sentry, cfg.Server.Env, "xray@"+appVersion); err != nil {
			log.Error("failed to initialize Sentry", zap.Error(err))
			sentryEnabled = false
		} else {
			log.Info("Sentry initialized", zap.String("environment", cfg.Server.Env))
			defer middleware.FlushSentry(5 * time.Second)
		}
	}

	deps, err := initDependencies(cfg, log)
	if err != nil {
		log.Fatal("failed to initialize dependencies", zap.Error(err))
	}
	defer deps.Close()

	if deps.Worker != nil {
		if err := deps.Worker.Start(); err != nil {
			log.Fatal("failed to start worker", zap.Error(err))
		}
	}

	// No write timeout: execution streams stay open until the run ends
	app := fiber.New(fiber.Config{
		AppName:               "X-Ray API",
		ReadTimeout:           30 * time.Second,
		IdleTimeout:           120 * time.Second,
		DisableStartupMessage: cfg.IsProduction(),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ErrorHandler:          errorHandler(log, sentryEnabled),
	})

	app.Use(middleware.RequestID())
	app.Use(middleware.NewLoggerMiddleware(middleware.DefaultLoggerConfig(log)).Handler())
	app.Use(middleware.RecoverWithSentry(log, sentryEnabled))
	app.Use(middleware.NewCORSMiddleware(middleware.CORSConfigFromOrigins(cfg.Server.CORSOrigins)).Handler())
	app.Use(middleware.NewMetricsMiddleware(middleware.DefaultMetricsConfig()).Handler())

	registerRoutes(app, deps)

	go func() {
		log.Info("starting server", zap.String("addr", cfg.Server.Addr()), zap.String("dispatcher", cfg.Worker.Dispatcher))
		if err := app.Listen(cfg.Server.Addr()); err != nil {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	if err := app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	}

	// In-flight runs are canceled and recorded as failed
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if deps.Pool != nil {
		if err := deps.Pool.Shutdown(ctx); err != nil {
			log.Error("task pool shutdown error", zap.Error(err))
		}
	}
	if deps.Worker != nil {
		deps.Worker.Stop()
	}

	log.Info("server stopped")
}

// errorHandler renders errors that escape handlers, such as unknown routes
func errorHandler(log *zap.Logger, sentryEnabled bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal Server Error"

		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
			message = e.Message
		}

		if code >= 500 {
			log.Error("request error",
				zap.Int("status", code),
				zap.Error(err),
				zap.String("path", c.Path()),
				zap.String("method", c.Method()),
				zap.String("request_id", middleware.GetRequestID(c)),
			)
			if sentryEnabled {
				sentry.CaptureException(err)
			}
		}

		return c.Status(code).JSON(fiber.Map{"error": message})
	}
}

package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// LoggerConfig configures the logger middleware
type LoggerConfig struct {
	// Logger instance
	Logger *zap.Logger
	// Skip function
	Skip func(*fiber.Ctx) bool
}

// DefaultLoggerConfig returns default logger config
func DefaultLoggerConfig(logger *zap.Logger) LoggerConfig {
	return LoggerConfig{
		Logger: logger,
		Skip:   HealthSkipper,
	}
}

// LoggerMiddleware creates a request logging middleware
type LoggerMiddleware struct {
	config LoggerConfig
}

// NewLoggerMiddleware creates a new logger middleware
func NewLoggerMiddleware(config LoggerConfig) *LoggerMiddleware {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	return &LoggerMiddleware{
		config: config,
	}
}

// Handler returns the logger handler
func (m *LoggerMiddleware) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m.config.Skip != nil && m.config.Skip(c) {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()

		fields := []zap.Field{
			zap.String("request_id", GetRequestID(c)),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("query", string(c.Request().URI().QueryString())),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.IP()),
			zap.String("user_agent", c.Get(fiber.HeaderUserAgent)),
		}
		if executionID := c.Params("id"); executionID != "" {
			fields = append(fields, zap.String("execution_id", executionID))
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}

		// Log based on status code
		status := c.Response().StatusCode()
		switch {
		case status >= 500:
			m.config.Logger.Error("request completed", fields...)
		case status >= 400:
			m.config.Logger.Warn("request completed", fields...)
		default:
			m.config.Logger.Info("request completed", fields...)
		}

		return err
	}
}

// HealthSkipper skips probe and scrape endpoints
func HealthSkipper(c *fiber.Ctx) bool {
	switch c.Path() {
	case "/api/health", "/livez", "/readyz", "/metrics":
		return true
	}
	return false
}

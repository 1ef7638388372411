package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	redis     redis.UniversalClient
	version   string
	startTime time.Time
}

// NewHealthHandler creates a new health handler. redis may be nil when the
// service runs without Redis.
func NewHealthHandler(redis redis.UniversalClient, version string) *HealthHandler {
	return &HealthHandler{
		redis:     redis,
		version:   version,
		startTime: time.Now(),
	}
}

// HealthStatus represents health check status
type HealthStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Health handles GET /api/health
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(HealthStatus{
		Status:  "ok",
		Message: "Backend is running",
	})
}

// Liveness handles GET /livez - basic liveness probe
func (h *HealthHandler) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "alive",
	})
}

// Readiness handles GET /readyz - readiness probe
func (h *HealthHandler) Readiness(c *fiber.Ctx) error {
	if h.redis != nil {
		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()

		if err := h.redis.Ping(ctx).Err(); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "not ready",
				"reason": "redis unavailable",
			})
		}
	}

	return c.JSON(fiber.Map{
		"status": "ready",
	})
}

// Version handles GET /version
func (h *HealthHandler) Version(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"version": h.version,
		"uptime":  time.Since(h.startTime).String(),
	})
}

// RegisterRoutes registers health check routes
func (h *HealthHandler) RegisterRoutes(app *fiber.App) {
	app.Get("/api/health", h.Health)
	app.Get("/livez", h.Liveness)
	app.Get("/readyz", h.Readiness)
	app.Get("/version", h.Version)
}

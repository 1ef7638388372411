package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/agenttrace/xray/internal/pkg/id"
)

// LocalRequestID is the fiber.Ctx locals key holding the request ID
const LocalRequestID = "requestID"

// RequestIDConfig configures the request ID middleware
type RequestIDConfig struct {
	// Header is the header key for the request ID
	Header string
	// Generator generates a new request ID
	Generator id.Generator
}

// DefaultRequestIDConfig returns default request ID config
func DefaultRequestIDConfig() RequestIDConfig {
	return RequestIDConfig{
		Header:    fiber.HeaderXRequestID,
		Generator: id.NewUUID,
	}
}

// RequestID creates a request ID middleware. An incoming ID is kept.
func RequestID(config ...RequestIDConfig) fiber.Handler {
	cfg := DefaultRequestIDConfig()
	if len(config) > 0 {
		cfg = config[0]
	}
	generate := id.OrDefault(cfg.Generator)

	return func(c *fiber.Ctx) error {
		requestID := c.Get(cfg.Header)
		if requestID == "" {
			requestID = generate()
		}

		c.Set(cfg.Header, requestID)
		c.Locals(LocalRequestID, requestID)

		return c.Next()
	}
}

// GetRequestID gets the request ID from context
func GetRequestID(c *fiber.Ctx) string {
	if requestID, ok := c.Locals(LocalRequestID).(string); ok {
		return requestID
	}
	return ""
}

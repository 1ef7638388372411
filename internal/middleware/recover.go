package middleware

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/agenttrace/xray/internal/config"
)

// InitSentry initializes the Sentry SDK. It is a no-op without a DSN.
func InitSentry(cfg config.SentryConfig, environment, release string) error {
	if !cfg.Enabled() {
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      environment,
		Release:          release,
		SampleRate:       cfg.SampleRate,
		AttachStacktrace: true,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize Sentry: %w", err)
	}

	return nil
}

// FlushSentry flushes any buffered events to Sentry
func FlushSentry(timeout time.Duration) {
	sentry.Flush(timeout)
}

// RecoverWithSentry creates a recovery middleware that reports to Sentry
func RecoverWithSentry(logger *zap.Logger, sentryEnabled bool) fiber.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *fiber.Ctx) (err error) {
		var hub *sentry.Hub
		if sentryEnabled {
			hub = sentry.CurrentHub().Clone()
			setSentryRequestContext(hub, c)
			hub.Scope().SetTag("request_id", GetRequestID(c))
		}

		defer func() {
			r := recover()
			if r == nil {
				return
			}
			stack := debug.Stack()

			panicErr, ok := r.(error)
			if !ok {
				panicErr = fmt.Errorf("%v", r)
			}

			logger.Error("panic recovered",
				zap.Error(panicErr),
				zap.String("path", c.Path()),
				zap.String("method", c.Method()),
				zap.String("ip", c.IP()),
				zap.String("stack", string(stack)),
				zap.String("request_id", GetRequestID(c)),
			)

			if hub != nil {
				hub.Scope().SetExtra("stack_trace", string(stack))
				hub.Scope().SetLevel(sentry.LevelFatal)

				if eventID := hub.RecoverWithContext(c.UserContext(), r); eventID != nil {
					logger.Info("panic reported to Sentry", zap.String("event_id", string(*eventID)))
				}
				hub.Flush(2 * time.Second)
			}

			err = c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":      "Internal Server Error",
				"message":    "An unexpected error occurred",
				"request_id": GetRequestID(c),
			})
		}()

		return c.Next()
	}
}

// setSentryRequestContext sets request context on a Sentry hub from Fiber context
func setSentryRequestContext(hub *sentry.Hub, c *fiber.Ctx) {
	headers := make(map[string]string)
	c.Request().Header.VisitAll(func(key, value []byte) {
		k := string(key)
		if k != fiber.HeaderCookie {
			headers[k] = string(value)
		}
	})

	hub.Scope().SetContext("Request", map[string]interface{}{
		"url":          c.OriginalURL(),
		"method":       c.Method(),
		"headers":      headers,
		"query_string": string(c.Request().URI().QueryString()),
		"remote_addr":  c.IP(),
	})
}

package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func okHandler(c *fiber.Ctx) error { return c.SendString("ok") }

func TestRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(GetRequestID(c))
	})

	t.Run("generates an id", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		assert.Len(t, resp.Header.Get(fiber.HeaderXRequestID), 36)
	})

	t.Run("keeps an incoming id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(fiber.HeaderXRequestID, "abc-123")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, "abc-123", resp.Header.Get(fiber.HeaderXRequestID))
	})

	t.Run("custom generator", func(t *testing.T) {
		custom := fiber.New()
		custom.Use(RequestID(RequestIDConfig{
			Header:    "X-Trace",
			Generator: func() string { return "fixed" },
		}))
		custom.Get("/", okHandler)

		resp, err := custom.Test(httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		assert.Equal(t, "fixed", resp.Header.Get("X-Trace"))
	})
}

func TestLoggerMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	app := fiber.New()
	app.Use(RequestID())
	app.Use(NewLoggerMiddleware(DefaultLoggerConfig(zap.New(core))).Handler())
	app.Get("/api/executions/:id", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNotFound)
	})
	app.Get("/api/health", okHandler)

	_, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/executions/e-1", nil))
	require.NoError(t, err)
	_, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.NoError(t, err)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)

	fields := entries[0].ContextMap()
	assert.Equal(t, "e-1", fields["execution_id"])
	assert.Equal(t, int64(http.StatusNotFound), fields["status"])
	assert.NotEmpty(t, fields["request_id"])
}

func TestRecoverWithSentry(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)

	app := fiber.New()
	app.Use(RequestID())
	app.Use(RecoverWithSentry(zap.New(core), false))
	app.Get("/boom", func(c *fiber.Ctx) error {
		panic("boom")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Internal Server Error", body["error"])
	assert.Equal(t, resp.Header.Get(fiber.HeaderXRequestID), body["request_id"])

	require.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestCORS(t *testing.T) {
	app := fiber.New()
	app.Use(NewCORSMiddleware(CORSConfigFromOrigins("http://localhost:3000, *.example.com")).Handler())
	app.Get("/api/executions", okHandler)

	tests := []struct {
		name   string
		method string
		origin string
		want   string
		status int
	}{
		{"exact origin", http.MethodGet, "http://localhost:3000", "http://localhost:3000", http.StatusOK},
		{"wildcard subdomain", http.MethodGet, "https://app.example.com", "https://app.example.com", http.StatusOK},
		{"unknown origin", http.MethodGet, "https://evil.test", "", http.StatusOK},
		{"preflight", http.MethodOptions, "http://localhost:3000", "http://localhost:3000", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/executions", nil)
			req.Header.Set(fiber.HeaderOrigin, tt.origin)
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.want, resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
			if tt.method == http.MethodOptions {
				assert.Equal(t, "86400", resp.Header.Get(fiber.HeaderAccessControlMaxAge))
				assert.Contains(t, resp.Header.Get(fiber.HeaderAccessControlAllowMethods), fiber.MethodPost)
			}
		})
	}
}

func TestCORSConfigFromOrigins_Empty(t *testing.T) {
	cfg := CORSConfigFromOrigins(" , ")
	assert.Equal(t, []string{"*"}, cfg.AllowOrigins)
}

func TestMetricsMiddleware_LabelsByRoute(t *testing.T) {
	app := fiber.New()
	app.Use(NewMetricsMiddleware(DefaultMetricsConfig()).Handler())
	app.Get("/api/executions/:id", okHandler)

	counter := httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/executions/:id", "200")
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"a", "b", "c"} {
		_, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/executions/"+id, nil))
		require.NoError(t, err)
	}

	assert.Equal(t, before+3, testutil.ToFloat64(counter))
}

func newRateLimitApp(t *testing.T, max int) (*fiber.App, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := RunRateLimitConfig(max)
	cfg.Window = time.Minute

	app := fiber.New()
	app.Use(RequestID())
	app.Post("/api/executions", NewRateLimitMiddleware(client, zap.NewNop(), cfg).Handler(), okHandler)
	return app, mr
}

func TestRateLimit_BlocksAfterMax(t *testing.T) {
	app, _ := newRateLimitApp(t, 2)

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/executions", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "2", resp.Header.Get("X-RateLimit-Limit"))
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/executions", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))
	assert.Equal(t, "60", resp.Header.Get("Retry-After"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Run submission limit exceeded", body["message"])
}

func TestRateLimit_FailsOpenWithoutRedis(t *testing.T) {
	app, mr := newRateLimitApp(t, 1)
	mr.Close()

	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/executions", nil), 5000)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
}

package main

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// registerRoutes registers all HTTP routes
func registerRoutes(app *fiber.App, deps *Dependencies) {
	h := deps.Handlers

	// Probes and version
	h.Health.RegisterRoutes(app)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")
	if deps.RunRateLimit != nil {
		api.Use("/executions", deps.RunRateLimit.Handler())
	}
	h.Executions.RegisterRoutes(api)
}

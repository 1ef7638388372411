// Package handler contains the HTTP handlers of the X-Ray query surface.
//
// Routes:
//   - GET  /api/health and /livez, /readyz probes
//   - GET  /api/executions and /api/executions/:id
//   - POST /api/executions to start a detached run
//   - GET  /api/executions/:id/stream for a Server-Sent Events feed
//
// Handlers convert application errors to HTTP status codes using the
// apperrors package. All handlers are safe for concurrent use.
package handler

// Package service contains the application layer of X-Ray.
//
// ExecutionService sits between the HTTP handlers and the core packages: it
// opens executions in the registry, hands them to a Dispatcher, and runs
// them through the workflow chosen for the request. The run wrapper
// guarantees every execution it runs ends with a terminal save, even when
// the workflow returns an error or panics.
//
// # Thread Safety
//
// ExecutionService is safe for concurrent use. Each run owns its tracer;
// the registry is the only shared state.
package service

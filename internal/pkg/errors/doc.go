// Package errors provides application error types for the X-Ray HTTP surface.
//
// This package defines:
//   - AppError type with an error code and HTTP status
//   - Constructors for the codes the API returns
//   - Helpers to extract an AppError from a wrapped chain
//
// # Error Types
//
//   - NotFound: Execution does not exist (404)
//   - Validation: Invalid request body (400)
//   - NoActiveExecution: Step operation outside an open execution (409)
//   - ReasonerFailure: Language model call failed (502)
//   - Unavailable: Dispatcher cannot accept work (503)
//   - Internal: Unexpected server error (500)
//
// # Usage
//
//	return apperrors.NotFound("execution")
//	return apperrors.ReasonerFailure(err)
//
// Errors support wrapping with fmt.Errorf:
//
//	return fmt.Errorf("start run: %w", apperrors.Unavailable("queue full"))
package errors

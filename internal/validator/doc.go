// Package validator provides struct validation for request bodies and
// generated filter rules.
//
// This package wraps go-playground/validator to provide:
//   - Field names reported by their JSON tags
//   - Human-readable error messages
//   - The notblank and dotpath tags
//
// # Usage
//
//	if err := validator.Validate(req); err != nil {
//	    // err is a validator.ValidationErrors
//	}
//
// The validator instance is package-level and thread-safe.
package validator

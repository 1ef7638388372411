package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// V is the singleton validator instance
var V *validator.Validate

func init() {
	V = validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names
	V.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = V.RegisterValidation("notblank", notBlank)
	_ = V.RegisterValidation("dotpath", dotPath)
}

// notBlank rejects strings made only of whitespace
func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// dotPath accepts a.b.c style paths without empty segments
func dotPath(fl validator.FieldLevel) bool {
	path := fl.Field().String()
	if path == "" {
		return false
	}
	for _, seg := range strings.Split(path, ".") {
		if strings.TrimSpace(seg) == "" {
			return false
		}
	}
	return true
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return strings.Join(msgs, "; ")
}

// Validate validates a struct and returns ValidationErrors if invalid
func Validate(v any) error {
	if err := V.Struct(v); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

// formatValidationErrors converts validator errors to ValidationErrors
func formatValidationErrors(err error) error {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	validationErrors := make(ValidationErrors, 0, len(errs))
	for _, e := range errs {
		validationErrors = append(validationErrors, ValidationError{
			Field:   fieldPath(e.Namespace()),
			Message: getErrorMessage(e),
		})
	}
	return validationErrors
}

// fieldPath drops the top-level struct name from a namespace
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// getErrorMessage returns a human-readable error message for a validation error
func getErrorMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "notblank":
		return "must not be blank"
	case "dotpath":
		return "must be a dot-separated field path"
	case "min":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", e.Param())
		}
		return fmt.Sprintf("must contain at least %s", e.Param())
	case "max":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", e.Param())
		}
		return fmt.Sprintf("must contain at most %s", e.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	default:
		return fmt.Sprintf("failed validation: %s", e.Tag())
	}
}

// AsValidationErrors unwraps err to ValidationErrors when it carries one
func AsValidationErrors(err error) (ValidationErrors, bool) {
	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		return verrs, true
	}
	return nil, false
}

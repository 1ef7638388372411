package handler

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/agenttrace/xray/internal/pkg/errors"
	"github.com/agenttrace/xray/internal/validator"
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error   string                     `json:"error"`
	Message string                     `json:"message,omitempty"`
	Fields  validator.ValidationErrors `json:"fields,omitempty"`
}

// errorResponse creates a standardized JSON error response.
func errorResponse(c *fiber.Ctx, statusCode int, message string) error {
	return c.Status(statusCode).JSON(ErrorResponse{
		Error:   errorName(statusCode),
		Message: message,
	})
}

func errorName(statusCode int) string {
	switch statusCode {
	case fiber.StatusBadRequest:
		return "Bad Request"
	case fiber.StatusNotFound:
		return "Not found"
	case fiber.StatusConflict:
		return "Conflict"
	case fiber.StatusBadGateway:
		return "Bad Gateway"
	case fiber.StatusServiceUnavailable:
		return "Service Unavailable"
	case fiber.StatusInternalServerError:
		return "Internal Server Error"
	}
	return "Error"
}

// handleError maps an error to its JSON response
func handleError(c *fiber.Ctx, err error) error {
	if verrs, ok := validator.AsValidationErrors(err); ok {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   errorName(fiber.StatusBadRequest),
			Message: "validation failed",
			Fields:  verrs,
		})
	}
	if appErr := apperrors.GetAppError(err); appErr != nil {
		return errorResponse(c, appErr.StatusCode, appErr.Message)
	}
	return errorResponse(c, fiber.StatusInternalServerError, "internal server error")
}

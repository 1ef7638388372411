package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apperrors "github.com/agenttrace/xray/internal/pkg/errors"
	"github.com/agenttrace/xray/internal/service"
	"github.com/agenttrace/xray/internal/validator"
)

// CreateExecutionRequest is the body of POST /api/executions
type CreateExecutionRequest struct {
	Request string `json:"request" validate:"required,notblank,max=2000"`
}

// CreateExecutionResponse is returned once a run is dispatched
type CreateExecutionResponse struct {
	ExecutionID string `json:"executionId"`
}

// ExecutionsHandler handles execution endpoints
type ExecutionsHandler struct {
	executions *service.ExecutionService
	logger     *zap.Logger
	heartbeat  time.Duration
}

// NewExecutionsHandler creates a new executions handler. heartbeat is the
// interval of SSE keep-alive comments.
func NewExecutionsHandler(executions *service.ExecutionService, logger *zap.Logger, heartbeat time.Duration) *ExecutionsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	return &ExecutionsHandler{
		executions: executions,
		logger:     logger,
		heartbeat:  heartbeat,
	}
}

// List handles GET /api/executions
func (h *ExecutionsHandler) List(c *fiber.Ctx) error {
	return c.JSON(h.executions.List())
}

// Get handles GET /api/executions/:id
func (h *ExecutionsHandler) Get(c *fiber.Ctx) error {
	exec, err := h.executions.Get(c.Params("id"))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "")
		}
		return handleError(c, err)
	}
	return c.JSON(exec)
}

// Create handles POST /api/executions
func (h *ExecutionsHandler) Create(c *fiber.Ctx) error {
	var req CreateExecutionRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := validator.Validate(req); err != nil {
		return handleError(c, err)
	}

	executionID, err := h.executions.Start(c.UserContext(), req.Request)
	if err != nil {
		h.logger.Error("failed to start execution", zap.Error(err))
		return handleError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(CreateExecutionResponse{ExecutionID: executionID})
}

// RegisterRoutes registers execution routes
func (h *ExecutionsHandler) RegisterRoutes(router fiber.Router) {
	executions := router.Group("/executions")
	executions.Get("/", h.List)
	executions.Post("/", h.Create)
	executions.Get("/:id", h.Get)
	executions.Get("/:id/stream", h.Stream)
}

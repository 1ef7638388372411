package handler

import (
	"bufio"
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/agenttrace/xray/internal/domain"
	apperrors "github.com/agenttrace/xray/internal/pkg/errors"
)

// EventExecution is the SSE event name of execution snapshots
const EventExecution = "execution"

// Stream handles GET /api/executions/:id/stream. The first frame is the
// current snapshot; the stream ends after a terminal snapshot.
func (h *ExecutionsHandler) Stream(c *fiber.Ctx) error {
	executionID := c.Params("id")

	ctx, cancel := context.WithCancel(context.Background())
	updates, err := h.executions.Watch(ctx, executionID)
	if err != nil {
		cancel()
		if apperrors.IsNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "")
		}
		return handleError(c, err)
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("Transfer-Encoding", "chunked")
	c.Set("X-Accel-Buffering", "no") // Disable nginx buffering

	h.logger.Debug("SSE client connected", zap.String("execution_id", executionID))

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()

		heartbeat := time.NewTicker(h.heartbeat)
		defer heartbeat.Stop()

		for {
			select {
			case exec, ok := <-updates:
				if !ok {
					return
				}
				if err := writeExecutionEvent(w, exec); err != nil {
					h.logger.Debug("SSE client gone", zap.String("execution_id", executionID), zap.Error(err))
					return
				}

			case <-heartbeat.C:
				fmt.Fprintf(w, ": heartbeat\n\n")
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))

	return nil
}

// writeExecutionEvent writes one SSE frame carrying the full execution
func writeExecutionEvent(w *bufio.Writer, exec *domain.Execution) error {
	data, err := json.Marshal(exec)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", EventExecution, data); err != nil {
		return err
	}
	return w.Flush()
}

package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/agenttrace/xray/internal/registry"
	"github.com/agenttrace/xray/internal/service"
)

// TypeRunExecution is the task type for running a started execution
const TypeRunExecution = "xray:run"

// NewRunTask creates a run task. Runs are never retried: a failed run is
// already recorded as a failed execution.
func NewRunTask(job service.Job, timeout time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run payload: %w", err)
	}
	opts := []asynq.Option{asynq.MaxRetry(0)}
	if timeout > 0 {
		opts = append(opts, asynq.Timeout(timeout))
	}
	return asynq.NewTask(TypeRunExecution, data, opts...), nil
}

// Enqueuer is the part of *asynq.Client the dispatcher needs
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AsynqDispatcher dispatches runs through a Redis-backed asynq queue
type AsynqDispatcher struct {
	client  Enqueuer
	queue   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewAsynqDispatcher creates a new asynq dispatcher
func NewAsynqDispatcher(client Enqueuer, queue string, timeout time.Duration, logger *zap.Logger) *AsynqDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AsynqDispatcher{
		client:  client,
		queue:   queue,
		timeout: timeout,
		logger:  logger,
	}
}

// Dispatch enqueues job
func (d *AsynqDispatcher) Dispatch(ctx context.Context, job service.Job) error {
	task, err := NewRunTask(job, d.timeout)
	if err != nil {
		return err
	}
	info, err := d.client.EnqueueContext(ctx, task, asynq.Queue(d.queue))
	if err != nil {
		return fmt.Errorf("failed to enqueue run: %w", err)
	}
	d.logger.Debug("run enqueued",
		zap.String("execution_id", job.ExecutionID),
		zap.String("task_id", info.ID),
		zap.String("queue", info.Queue),
	)
	return nil
}

// RunWorker handles run tasks
type RunWorker struct {
	logger *zap.Logger
	run    RunFunc
}

// NewRunWorker creates a new run worker
func NewRunWorker(logger *zap.Logger, run RunFunc) *RunWorker {
	return &RunWorker{
		logger: logger,
		run:    run,
	}
}

// ProcessTask processes a run task
func (w *RunWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var job service.Job
	if err := json.Unmarshal(t.Payload(), &job); err != nil {
		return fmt.Errorf("failed to unmarshal run payload: %w", err)
	}
	if job.ExecutionID == "" {
		return fmt.Errorf("run payload: missing executionId")
	}

	w.logger.Info("processing run", zap.String("execution_id", job.ExecutionID))
	err := w.run(ctx, job)
	if errors.Is(err, registry.ErrNotFound) {
		w.logger.Warn("run task for an execution this process does not hold",
			zap.String("execution_id", job.ExecutionID),
		)
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	return err
}

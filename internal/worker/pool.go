package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"github.com/agenttrace/xray/internal/service"
)

// ErrPoolClosed is returned when dispatching to a pool that is shutting down
var ErrPoolClosed = errors.New("task pool closed")

// RunFunc runs one dispatched job
type RunFunc func(ctx context.Context, job service.Job) error

// TaskPool runs jobs in-process on at most Concurrency goroutines.
// Dispatch never blocks; jobs beyond the limit wait for a free slot.
type TaskPool struct {
	run    RunFunc
	logger *zap.Logger
	sem    chan struct{}
	wg     conc.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// NewTaskPool creates a new task pool
func NewTaskPool(run RunFunc, concurrency int, logger *zap.Logger) *TaskPool {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &TaskPool{
		run:    run,
		logger: logger,
		sem:    make(chan struct{}, concurrency),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Dispatch schedules job. The job runs on the pool's own context, detached
// from ctx, which usually belongs to the HTTP request that started it.
func (p *TaskPool) Dispatch(ctx context.Context, job service.Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("dispatch %s: %w", job.ExecutionID, ErrPoolClosed)
	}

	p.wg.Go(func() {
		// After shutdown the job still runs, without a slot, so its
		// execution is finalized as failed by the canceled context.
		select {
		case p.sem <- struct{}{}:
			defer func() { <-p.sem }()
		case <-p.ctx.Done():
		}

		if err := p.run(p.ctx, job); err != nil {
			p.logger.Warn("job finished with error",
				zap.String("execution_id", job.ExecutionID),
				zap.Error(err),
			)
		}
	})
	return nil
}

// Wait stops accepting jobs and blocks until every dispatched job returns
func (p *TaskPool) Wait() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	if rec := p.wg.WaitAndRecover(); rec != nil {
		p.logger.Error("task pool job panicked", zap.Error(rec.AsError()))
	}
}

// Shutdown cancels running jobs and waits for them to return, or for ctx
func (p *TaskPool) Shutdown(ctx context.Context) error {
	p.cancel()
	done := make(chan struct{})
	go func() {
		p.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

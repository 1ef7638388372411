package service

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"

	"github.com/agenttrace/xray/internal/domain"
	apperrors "github.com/agenttrace/xray/internal/pkg/errors"
	"github.com/agenttrace/xray/internal/pkg/id"
	"github.com/agenttrace/xray/internal/pkg/metrics"
	"github.com/agenttrace/xray/internal/registry"
	"github.com/agenttrace/xray/internal/tracer"
	"github.com/agenttrace/xray/internal/workflow"
)

// Names recorded by the failure path
const (
	StepExecutionFailed     = "Execution Failed"
	LabelErrorDetails       = "Error Details"
	CriterionExecutionOK    = "Execution Success"
	MetadataOriginalRequest = "originalRequest"
)

// Job identifies a started execution waiting to be run
type Job struct {
	ExecutionID string `json:"executionId"`
	Request     string `json:"request"`
}

// Dispatcher hands a started execution off to run in the background
type Dispatcher interface {
	Dispatch(ctx context.Context, job Job) error
}

// Selector picks the workflow serving a request
type Selector interface {
	Select(input string) workflow.Workflow
}

// ExecutionServiceOption configures an ExecutionService
type ExecutionServiceOption func(*ExecutionService)

// WithRunTimeout bounds a whole run; zero means no deadline
func WithRunTimeout(d time.Duration) ExecutionServiceOption {
	return func(s *ExecutionService) {
		s.runTimeout = d
	}
}

// WithIDGenerator sets the ID generator handed to every tracer
func WithIDGenerator(g id.Generator) ExecutionServiceOption {
	return func(s *ExecutionService) {
		s.ids = id.OrDefault(g)
	}
}

// ExecutionService starts, runs and queries traced executions
type ExecutionService struct {
	registry   *registry.Registry
	selector   Selector
	dispatcher Dispatcher
	logger     *zap.Logger
	runTimeout time.Duration
	ids        id.Generator
}

// NewExecutionService creates a new execution service
func NewExecutionService(reg *registry.Registry, selector Selector, logger *zap.Logger, opts ...ExecutionServiceOption) *ExecutionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ExecutionService{
		registry: reg,
		selector: selector,
		logger:   logger,
		ids:      id.NewUUID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetDispatcher sets the dispatcher used by Start. Dispatchers usually need
// the service's Run, so they are attached after construction.
func (s *ExecutionService) SetDispatcher(d Dispatcher) {
	s.dispatcher = d
}

func (s *ExecutionService) newTracer(executionID string) *tracer.Tracer {
	logger := s.logger
	if executionID != "" {
		logger = logger.With(zap.String("execution_id", executionID))
	}
	return tracer.New(s.registry, tracer.WithLogger(logger), tracer.WithIDGenerator(s.ids))
}

// Start records a pending execution for request and dispatches its run. The
// execution ID is returned as soon as the dispatcher accepts the job.
func (s *ExecutionService) Start(ctx context.Context, request string) (string, error) {
	if s.dispatcher == nil {
		return "", apperrors.Unavailable("no dispatcher configured")
	}

	tr := s.newTracer("")
	executionID := tr.StartExecution(request, map[string]any{MetadataOriginalRequest: request})
	job := Job{ExecutionID: executionID, Request: request}

	if err := s.dispatcher.Dispatch(ctx, job); err != nil {
		s.logger.Error("failed to dispatch execution",
			zap.String("execution_id", executionID),
			zap.Error(err),
		)
		s.recordFailure(tr, fmt.Errorf("dispatch: %w", err))
		tr.EndExecution()
		return "", apperrors.Unavailable("execution could not be scheduled").WithError(err)
	}

	s.logger.Info("execution dispatched", zap.String("execution_id", executionID))
	return executionID, nil
}

// Run continues a started execution through the workflow selected for its
// request. Whatever happens inside the workflow, including a panic, the
// execution is finalized: failures append a diagnostic step and mark it
// failed before EndExecution.
func (s *ExecutionService) Run(ctx context.Context, job Job) error {
	exec, ok := s.registry.Get(job.ExecutionID)
	if !ok {
		return fmt.Errorf("run %s: %w", job.ExecutionID, registry.ErrNotFound)
	}
	tr := s.newTracer(job.ExecutionID)
	if err := tr.Resume(exec); err != nil {
		return err
	}

	wf := s.selector.Select(job.Request)
	log := s.logger.With(
		zap.String("execution_id", job.ExecutionID),
		zap.String("workflow", wf.Name()),
	)
	log.Info("running execution")

	runCtx := ctx
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	started := time.Now()
	var runErr error
	var pc panics.Catcher
	pc.Try(func() { runErr = wf.Run(runCtx, job.Request, tr) })
	if rec := pc.Recovered(); rec != nil {
		runErr = fmt.Errorf("workflow panicked: %v", rec.Value)
		log.Error("workflow panicked", zap.Error(rec.AsError()))
	}

	status := domain.ExecutionStatusCompleted
	if runErr != nil {
		status = domain.ExecutionStatusFailed
		log.Error("execution failed", zap.Error(runErr))
		s.recordFailure(tr, runErr)
		s.report(job, wf.Name(), runErr)
	}
	tr.EndExecution()

	metrics.RecordExecution(wf.Name(), string(status), time.Since(started))
	log.Info("execution finished", zap.String("status", string(status)), zap.Duration("duration", time.Since(started)))
	return runErr
}

// Execute starts and runs request synchronously, returning the final
// snapshot. Failed runs return the failed execution along with the error.
func (s *ExecutionService) Execute(ctx context.Context, request string) (*domain.Execution, error) {
	tr := s.newTracer("")
	executionID := tr.StartExecution(request, map[string]any{MetadataOriginalRequest: request})

	runErr := s.Run(ctx, Job{ExecutionID: executionID, Request: request})
	exec, ok := s.registry.Get(executionID)
	if !ok {
		return nil, fmt.Errorf("execute %s: %w", executionID, registry.ErrNotFound)
	}
	return exec, runErr
}

// recordFailure appends the diagnostic step and marks the execution failed
func (s *ExecutionService) recordFailure(tr *tracer.Tracer, cause error) {
	msg := cause.Error()
	step, err := tr.StartStep(StepExecutionFailed, "custom", map[string]any{"error": msg})
	if err == nil {
		artifactID := step.AddArtifact(LabelErrorDetails, map[string]any{"message": msg})
		_ = step.EvaluateArtifact(artifactID, []domain.CriterionResult{{
			Criterion: CriterionExecutionOK,
			Passed:    false,
			Detail:    msg,
		}})
		if err := tr.EndStep(step); err != nil {
			s.logger.Warn("failed to record failure step", zap.Error(err))
		}
	}
	tr.FailExecution(msg)
}

func (s *ExecutionService) report(job Job, workflowName string, err error) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("execution_id", job.ExecutionID)
		scope.SetTag("workflow", workflowName)
		scope.SetExtra("request", job.Request)
		sentry.CaptureException(err)
	})
}

// List returns every recorded execution in insertion order
func (s *ExecutionService) List() []*domain.Execution {
	return s.registry.List()
}

// Get returns one execution
func (s *ExecutionService) Get(executionID string) (*domain.Execution, error) {
	exec, ok := s.registry.Get(executionID)
	if !ok {
		return nil, apperrors.NotFound("execution")
	}
	return exec, nil
}

// Watch streams snapshots of one execution until it ends or ctx is done
func (s *ExecutionService) Watch(ctx context.Context, executionID string) (<-chan *domain.Execution, error) {
	ch, err := s.registry.Watch(ctx, executionID)
	if err != nil {
		if apperrors.Is(err, registry.ErrNotFound) {
			return nil, apperrors.NotFound("execution")
		}
		return nil, err
	}
	return ch, nil
}

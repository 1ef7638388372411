package tracer

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/agenttrace/xray/internal/domain"
	"github.com/agenttrace/xray/internal/pkg/id"
)

// MetadataFailureReason is the metadata key FailExecution records the reason under
const MetadataFailureReason = "failureReason"

// Store receives every persisted snapshot of an execution
type Store interface {
	Save(exec *domain.Execution)
}

// Option configures a Tracer
type Option func(*Tracer)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(t *Tracer) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithIDGenerator sets the generator used for execution, step and artifact IDs
func WithIDGenerator(g id.Generator) Option {
	return func(t *Tracer) {
		t.ids = id.OrDefault(g)
	}
}

// WithClock sets the millisecond clock
func WithClock(now func() int64) Option {
	return func(t *Tracer) {
		if now != nil {
			t.now = now
		}
	}
}

// Tracer records one execution at a time into a Store
type Tracer struct {
	store  Store
	logger *zap.Logger
	ids    id.Generator
	now    func() int64

	current *domain.Execution
}

// New creates a new tracer
func New(store Store, opts ...Option) *Tracer {
	t := &Tracer{
		store:  store,
		logger: zap.NewNop(),
		ids:    id.NewUUID,
		now:    domain.NowMillis,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// StartExecution opens a new pending execution and persists it. Any
// execution still open is abandoned as-is.
func (t *Tracer) StartExecution(name string, metadata map[string]any) string {
	if t.current != nil {
		t.logger.Warn("abandoning open execution",
			zap.String("execution_id", t.current.ExecutionID),
			zap.String("status", string(t.current.Status)),
		)
	}

	var meta map[string]any
	if metadata != nil {
		meta = make(map[string]any, len(metadata))
		for k, v := range metadata {
			meta[k] = v
		}
	}

	t.current = &domain.Execution{
		ExecutionID: t.ids(),
		Name:        name,
		Metadata:    meta,
		Steps:       []domain.Step{},
		StartedAt:   t.now(),
		Status:      domain.ExecutionStatusPending,
	}
	t.logger.Debug("execution started",
		zap.String("execution_id", t.current.ExecutionID),
		zap.String("name", name),
	)
	t.persist()
	return t.current.ExecutionID
}

// Resume reopens a previously started execution so another tracer can
// continue recording it. Terminal executions cannot be resumed.
func (t *Tracer) Resume(exec *domain.Execution) error {
	if exec == nil {
		return fmt.Errorf("resume: nil execution")
	}
	if exec.Status.IsTerminal() {
		return fmt.Errorf("resume %s: execution already %s", exec.ExecutionID, exec.Status)
	}
	t.current = exec.Clone()
	t.logger.Debug("execution resumed", zap.String("execution_id", exec.ExecutionID))
	return nil
}

// ExecutionID returns the ID of the open execution, if any
func (t *Tracer) ExecutionID() (string, bool) {
	if t.current == nil {
		return "", false
	}
	return t.current.ExecutionID, true
}

// StartStep begins recording a step. The first step moves a pending
// execution to running.
func (t *Tracer) StartStep(name, stepType string, input any) (*StepRecorder, error) {
	if t.current == nil {
		return nil, fmt.Errorf("start step %q: %w", name, ErrNoActiveExecution)
	}
	if t.current.Status == domain.ExecutionStatusPending {
		t.current.Status = domain.ExecutionStatusRunning
		t.persist()
	}
	return newStepRecorder(name, stepType, input, t.ids, t.now), nil
}

// EndStep seals the recorder, appends its step to the execution and persists
func (t *Tracer) EndStep(rec *StepRecorder) error {
	if rec == nil {
		return fmt.Errorf("end step: nil recorder")
	}
	if t.current == nil {
		return fmt.Errorf("end step %q: %w", rec.Name(), ErrNoActiveExecution)
	}
	if rec.appended {
		return fmt.Errorf("end step %q: %w", rec.Name(), ErrStepAlreadyEnded)
	}

	step := rec.End()
	rec.appended = true
	t.current.Steps = append(t.current.Steps, step)
	t.logger.Debug("step ended",
		zap.String("execution_id", t.current.ExecutionID),
		zap.String("step", step.Name),
		zap.Int("artifacts", len(step.Artifacts)),
		zap.Int("evaluations", len(step.Evaluations)),
	)
	t.persist()
	return nil
}

// SetStatus overrides the execution status and persists. Transitions that
// would move backwards or leave the failed state are ignored.
func (t *Tracer) SetStatus(status domain.ExecutionStatus) {
	if t.current == nil {
		return
	}
	if !t.current.Status.CanTransitionTo(status) {
		t.logger.Debug("ignoring status transition",
			zap.String("execution_id", t.current.ExecutionID),
			zap.String("from", string(t.current.Status)),
			zap.String("to", string(status)),
		)
		return
	}
	t.current.Status = status
	t.persist()
}

// FailExecution marks the open execution failed and records the reason in
// its metadata.
func (t *Tracer) FailExecution(reason string) {
	if t.current == nil {
		return
	}
	if t.current.Metadata == nil {
		t.current.Metadata = map[string]any{}
	}
	t.current.Metadata[MetadataFailureReason] = reason
	t.current.Status = domain.ExecutionStatusFailed
	t.logger.Info("execution failed",
		zap.String("execution_id", t.current.ExecutionID),
		zap.String("reason", reason),
	)
	t.persist()
}

// EndExecution stamps the end time, completes the execution unless it
// failed, persists it and clears the open reference.
func (t *Tracer) EndExecution() {
	if t.current == nil {
		return
	}
	end := t.now()
	t.current.EndedAt = &end
	if t.current.Status != domain.ExecutionStatusFailed {
		t.current.Status = domain.ExecutionStatusCompleted
	}
	t.persist()
	t.logger.Debug("execution ended",
		zap.String("execution_id", t.current.ExecutionID),
		zap.String("status", string(t.current.Status)),
		zap.Int("steps", len(t.current.Steps)),
	)
	t.current = nil
}

func (t *Tracer) persist() {
	if t.store == nil {
		return
	}
	t.store.Save(t.current)
}

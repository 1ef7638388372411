package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agenttrace/xray/internal/domain"
	apperrors "github.com/agenttrace/xray/internal/pkg/errors"
	"github.com/agenttrace/xray/internal/registry"
	"github.com/agenttrace/xray/internal/tracer"
	"github.com/agenttrace/xray/internal/workflow"
)

type fakeWorkflow struct {
	run func(ctx context.Context, input string, tr *tracer.Tracer) error
}

func (f fakeWorkflow) Name() string { return "Fake Workflow" }

func (f fakeWorkflow) Run(ctx context.Context, input string, tr *tracer.Tracer) error {
	return f.run(ctx, input, tr)
}

type fixedSelector struct {
	wf workflow.Workflow
}

func (s fixedSelector) Select(string) workflow.Workflow { return s.wf }

// inlineDispatcher runs jobs synchronously
type inlineDispatcher struct {
	svc *ExecutionService
	err error
}

func (d *inlineDispatcher) Dispatch(ctx context.Context, job Job) error {
	if d.err != nil {
		return d.err
	}
	return d.svc.Run(ctx, job)
}

// deferredDispatcher only records the jobs it receives
type deferredDispatcher struct {
	jobs []Job
}

func (d *deferredDispatcher) Dispatch(_ context.Context, job Job) error {
	d.jobs = append(d.jobs, job)
	return nil
}

func oneStep(_ context.Context, input string, tr *tracer.Tracer) error {
	step, err := tr.StartStep("Echo", "custom", map[string]any{"input": input})
	if err != nil {
		return err
	}
	step.SetOutput(input)
	return tr.EndStep(step)
}

func newService(t *testing.T, run func(context.Context, string, *tracer.Tracer) error, opts ...ExecutionServiceOption) (*ExecutionService, *registry.Registry) {
	t.Helper()
	reg := registry.New()
	svc := NewExecutionService(reg, fixedSelector{wf: fakeWorkflow{run: run}}, zap.NewNop(), opts...)
	return svc, reg
}

func TestExecutionService_StartReturnsPendingExecution(t *testing.T) {
	svc, reg := newService(t, oneStep)
	d := &deferredDispatcher{}
	svc.SetDispatcher(d)

	id, err := svc.Start(context.Background(), "find a bottle")
	require.NoError(t, err)
	require.Len(t, d.jobs, 1)
	assert.Equal(t, Job{ExecutionID: id, Request: "find a bottle"}, d.jobs[0])

	exec, ok := reg.Get(id)
	require.True(t, ok)
	assert.Equal(t, domain.ExecutionStatusPending, exec.Status)
	assert.Equal(t, "find a bottle", exec.Name)
	assert.Equal(t, "find a bottle", exec.Metadata[MetadataOriginalRequest])
	assert.Empty(t, exec.Steps)
}

func TestExecutionService_RunCompletes(t *testing.T) {
	svc, reg := newService(t, oneStep)
	svc.SetDispatcher(&inlineDispatcher{svc: svc})

	id, err := svc.Start(context.Background(), "hello")
	require.NoError(t, err)

	exec, _ := reg.Get(id)
	assert.Equal(t, domain.ExecutionStatusCompleted, exec.Status)
	require.Len(t, exec.Steps, 1)
	assert.Equal(t, "hello", exec.Steps[0].Output)
	assert.NotNil(t, exec.EndedAt)
}

func assertFailed(t *testing.T, exec *domain.Execution, contains string) {
	t.Helper()
	assert.Equal(t, domain.ExecutionStatusFailed, exec.Status)
	assert.NotNil(t, exec.EndedAt)
	assert.Contains(t, exec.Metadata[tracer.MetadataFailureReason], contains)

	last := exec.Steps[len(exec.Steps)-1]
	assert.Equal(t, StepExecutionFailed, last.Name)
	assert.Equal(t, "custom", last.Type)
	assert.Contains(t, last.Input.(map[string]any)["error"], contains)
	require.Len(t, last.Artifacts, 1)
	assert.Equal(t, LabelErrorDetails, last.Artifacts[0].Label)
	require.Len(t, last.Evaluations, 1)
	ev := last.Evaluations[0]
	assert.Equal(t, last.Artifacts[0].ArtifactID, ev.ArtifactID)
	assert.False(t, ev.Qualified)
	assert.Equal(t, CriterionExecutionOK, ev.CriteriaResults[0].Criterion)
}

func TestExecutionService_RunRecordsWorkflowError(t *testing.T) {
	svc, _ := newService(t, func(ctx context.Context, input string, tr *tracer.Tracer) error {
		if err := oneStep(ctx, input, tr); err != nil {
			return err
		}
		return errors.New("reasoner unavailable")
	})

	exec, err := svc.Execute(context.Background(), "x")
	require.Error(t, err)
	require.NotNil(t, exec)
	require.Len(t, exec.Steps, 2)
	assertFailed(t, exec, "reasoner unavailable")
}

func TestExecutionService_RunRecoversPanic(t *testing.T) {
	svc, _ := newService(t, func(context.Context, string, *tracer.Tracer) error {
		panic("nil map write")
	})

	var exec *domain.Execution
	var err error
	require.NotPanics(t, func() {
		exec, err = svc.Execute(context.Background(), "x")
	})
	require.Error(t, err)
	require.Len(t, exec.Steps, 1)
	assertFailed(t, exec, "nil map write")
}

func TestExecutionService_RunTimeout(t *testing.T) {
	svc, _ := newService(t, func(ctx context.Context, _ string, _ *tracer.Tracer) error {
		<-ctx.Done()
		return ctx.Err()
	}, WithRunTimeout(10*time.Millisecond))

	exec, err := svc.Execute(context.Background(), "slow")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assertFailed(t, exec, "deadline exceeded")
}

func TestExecutionService_RunUnknownExecution(t *testing.T) {
	svc, _ := newService(t, oneStep)
	err := svc.Run(context.Background(), Job{ExecutionID: "missing"})
	assert.ErrorIs(t, err, registry.ErrNotFound)
}

func TestExecutionService_RunTerminalExecution(t *testing.T) {
	svc, _ := newService(t, oneStep)
	exec, err := svc.Execute(context.Background(), "once")
	require.NoError(t, err)

	err = svc.Run(context.Background(), Job{ExecutionID: exec.ExecutionID, Request: "once"})
	assert.Error(t, err)
}

func TestExecutionService_DispatchFailure(t *testing.T) {
	svc, reg := newService(t, oneStep)
	svc.SetDispatcher(&inlineDispatcher{err: errors.New("queue full")})

	id, err := svc.Start(context.Background(), "x")
	assert.Empty(t, id)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUnavailable, apperrors.GetAppError(err).Code)

	list := reg.List()
	require.Len(t, list, 1)
	assertFailed(t, list[0], "queue full")
}

func TestExecutionService_StartWithoutDispatcher(t *testing.T) {
	svc, reg := newService(t, oneStep)
	_, err := svc.Start(context.Background(), "x")
	assert.Error(t, err)
	assert.Equal(t, 0, reg.Len())
}

func TestExecutionService_Queries(t *testing.T) {
	svc, _ := newService(t, oneStep)
	svc.SetDispatcher(&inlineDispatcher{svc: svc})

	first, err := svc.Start(context.Background(), "a")
	require.NoError(t, err)
	second, err := svc.Start(context.Background(), "b")
	require.NoError(t, err)

	list := svc.List()
	require.Len(t, list, 2)
	assert.Equal(t, first, list[0].ExecutionID)
	assert.Equal(t, second, list[1].ExecutionID)

	exec, err := svc.Get(first)
	require.NoError(t, err)
	assert.Equal(t, "a", exec.Name)

	_, err = svc.Get("missing")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = svc.Watch(context.Background(), "missing")
	assert.True(t, apperrors.IsNotFound(err))

	ch, err := svc.Watch(context.Background(), second)
	require.NoError(t, err)
	snap := <-ch
	assert.Equal(t, domain.ExecutionStatusCompleted, snap.Status)
}

package tracer

import (
	"fmt"

	"github.com/agenttrace/xray/internal/domain"
	"github.com/agenttrace/xray/internal/pkg/id"
)

// StepRecorder accumulates artifacts, evaluations, output and reasoning for
// exactly one step until it is sealed.
type StepRecorder struct {
	step     domain.Step
	ids      id.Generator
	now      func() int64
	sealed   bool
	appended bool
}

func newStepRecorder(name, stepType string, input any, ids id.Generator, now func() int64) *StepRecorder {
	return &StepRecorder{
		step: domain.Step{
			StepID:      ids(),
			Name:        name,
			Type:        stepType,
			Input:       input,
			Artifacts:   []domain.Artifact{},
			Evaluations: []domain.Evaluation{},
			StartedAt:   now(),
		},
		ids: ids,
		now: now,
	}
}

// ID returns the step ID
func (r *StepRecorder) ID() string {
	return r.step.StepID
}

// Name returns the step name
func (r *StepRecorder) Name() string {
	return r.step.Name
}

// Type returns the step type tag
func (r *StepRecorder) Type() string {
	return r.step.Type
}

// AddArtifact records a labeled intermediate value and returns its ID
func (r *StepRecorder) AddArtifact(label string, data any) string {
	artifact := domain.Artifact{
		ArtifactID: r.ids(),
		Label:      label,
		Data:       data,
	}
	r.step.Artifacts = append(r.step.Artifacts, artifact)
	return artifact.ArtifactID
}

// Artifacts returns the artifacts recorded so far
func (r *StepRecorder) Artifacts() []domain.Artifact {
	out := make([]domain.Artifact, len(r.step.Artifacts))
	copy(out, r.step.Artifacts)
	return out
}

// EvaluateArtifact records a judgment about an artifact of this step. The
// artifact must have been added to this step.
func (r *StepRecorder) EvaluateArtifact(artifactID string, criteria []domain.CriterionResult) error {
	if !r.hasArtifact(artifactID) {
		return fmt.Errorf("%w: %s", ErrUnknownArtifact, artifactID)
	}
	r.step.Evaluations = append(r.step.Evaluations, domain.NewEvaluation(artifactID, criteria))
	return nil
}

// EvaluateArtifactByLabel evaluates the most recent artifact with the given label
func (r *StepRecorder) EvaluateArtifactByLabel(label string, criteria []domain.CriterionResult) error {
	for i := len(r.step.Artifacts) - 1; i >= 0; i-- {
		if r.step.Artifacts[i].Label == label {
			return r.EvaluateArtifact(r.step.Artifacts[i].ArtifactID, criteria)
		}
	}
	return fmt.Errorf("%w: no artifact labeled %q", ErrUnknownArtifact, label)
}

func (r *StepRecorder) hasArtifact(artifactID string) bool {
	for _, a := range r.step.Artifacts {
		if a.ArtifactID == artifactID {
			return true
		}
	}
	return false
}

// SetOutput sets the step output, replacing any previous value
func (r *StepRecorder) SetOutput(output any) {
	r.step.Output = output
}

// SetReasoning sets the step reasoning, replacing any previous value
func (r *StepRecorder) SetReasoning(reasoning string) {
	r.step.Reasoning = reasoning
}

// End seals the step and returns its final value. Later calls return the
// same sealed value.
func (r *StepRecorder) End() domain.Step {
	if !r.sealed {
		end := r.now()
		r.step.EndedAt = &end
		r.sealed = true
	}
	return r.step.Clone()
}

package domain

import "time"

// ExecutionStatus represents the lifecycle state of an execution
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

// IsValid checks if the status is valid
func (s ExecutionStatus) IsValid() bool {
	switch s {
	case ExecutionStatusPending, ExecutionStatusRunning, ExecutionStatusCompleted, ExecutionStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are expected
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed
}

// Rank orders statuses along pending -> running -> terminal.
// Completed and failed share a rank; failed is additionally sticky.
func (s ExecutionStatus) Rank() int {
	switch s {
	case ExecutionStatusPending:
		return 0
	case ExecutionStatusRunning:
		return 1
	case ExecutionStatusCompleted, ExecutionStatusFailed:
		return 2
	}
	return -1
}

// CanTransitionTo reports whether moving from s to next keeps the status
// monotonic. A failed execution never leaves the failed state.
func (s ExecutionStatus) CanTransitionTo(next ExecutionStatus) bool {
	if !next.IsValid() {
		return false
	}
	if s == ExecutionStatusFailed {
		return next == ExecutionStatusFailed
	}
	if next == ExecutionStatusFailed {
		return true
	}
	return next.Rank() >= s.Rank()
}

// Execution is one recorded pipeline run
type Execution struct {
	ExecutionID string          `json:"executionId"`
	Name        string          `json:"name"`
	Metadata    map[string]any  `json:"metadata,omitempty"`
	Steps       []Step          `json:"steps"`
	StartedAt   int64           `json:"startedAt"`
	EndedAt     *int64          `json:"endedAt,omitempty"`
	Status      ExecutionStatus `json:"status"`
}

// Step is one recorded stage within an execution. Type is a free-form tag.
type Step struct {
	StepID      string       `json:"stepId"`
	Name        string       `json:"name"`
	Type        string       `json:"type"`
	Input       any          `json:"input"`
	Output      any          `json:"output,omitempty"`
	Reasoning   string       `json:"reasoning,omitempty"`
	Artifacts   []Artifact   `json:"artifacts"`
	Evaluations []Evaluation `json:"evaluations"`
	StartedAt   int64        `json:"startedAt"`
	EndedAt     *int64       `json:"endedAt,omitempty"`
}

// Artifact is a labeled intermediate value attached to a step
type Artifact struct {
	ArtifactID string `json:"artifactId"`
	Label      string `json:"label"`
	Data       any    `json:"data"`
}

// CriterionResult explains one pass/fail check
type CriterionResult struct {
	Criterion string `json:"criterion"`
	Passed    bool   `json:"passed"`
	Detail    string `json:"detail"`
}

// Evaluation is a judgment about one artifact
type Evaluation struct {
	ArtifactID      string            `json:"artifactId"`
	Qualified       bool              `json:"qualified"`
	CriteriaResults []CriterionResult `json:"criteriaResults"`
}

// Qualified returns the logical AND over all criteria; an empty set qualifies.
func Qualified(criteria []CriterionResult) bool {
	for _, c := range criteria {
		if !c.Passed {
			return false
		}
	}
	return true
}

// NewEvaluation builds an evaluation with its verdict derived from criteria
func NewEvaluation(artifactID string, criteria []CriterionResult) Evaluation {
	results := make([]CriterionResult, len(criteria))
	copy(results, criteria)
	return Evaluation{
		ArtifactID:      artifactID,
		Qualified:       Qualified(results),
		CriteriaResults: results,
	}
}

// Clone deep-copies the structural parts of the execution. Opaque payloads
// (metadata values, inputs, outputs, artifact data) are shared and must be
// treated as immutable once attached.
func (e *Execution) Clone() *Execution {
	if e == nil {
		return nil
	}
	out := *e
	if e.Metadata != nil {
		out.Metadata = make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			out.Metadata[k] = v
		}
	}
	out.EndedAt = cloneMillis(e.EndedAt)
	out.Steps = make([]Step, len(e.Steps))
	for i := range e.Steps {
		out.Steps[i] = e.Steps[i].Clone()
	}
	return &out
}

// Clone deep-copies the structural parts of the step
func (s Step) Clone() Step {
	out := s
	out.EndedAt = cloneMillis(s.EndedAt)
	out.Artifacts = make([]Artifact, len(s.Artifacts))
	copy(out.Artifacts, s.Artifacts)
	out.Evaluations = make([]Evaluation, len(s.Evaluations))
	for i, ev := range s.Evaluations {
		crit := make([]CriterionResult, len(ev.CriteriaResults))
		copy(crit, ev.CriteriaResults)
		ev.CriteriaResults = crit
		out.Evaluations[i] = ev
	}
	return out
}

// NowMillis returns the current time in milliseconds since the Unix epoch
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

func cloneMillis(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQualified(t *testing.T) {
	tests := []struct {
		name     string
		criteria []CriterionResult
		expected bool
	}{
		{name: "empty criteria qualify", criteria: nil, expected: true},
		{name: "all passed", criteria: []CriterionResult{{Passed: true}, {Passed: true}}, expected: true},
		{name: "one failed", criteria: []CriterionResult{{Passed: true}, {Passed: false}}, expected: false},
		{name: "single failed", criteria: []CriterionResult{{Passed: false}}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Qualified(tt.criteria))
			assert.Equal(t, tt.expected, NewEvaluation("a1", tt.criteria).Qualified)
		})
	}
}

func TestNewEvaluation_CopiesCriteria(t *testing.T) {
	criteria := []CriterionResult{{Criterion: "Database Hit", Passed: true, Detail: "found 2"}}
	ev := NewEvaluation("a1", criteria)

	criteria[0].Passed = false
	assert.True(t, ev.CriteriaResults[0].Passed)
	assert.NotNil(t, NewEvaluation("a1", nil).CriteriaResults)
}

func TestExecutionStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to ExecutionStatus
		allowed  bool
	}{
		{ExecutionStatusPending, ExecutionStatusRunning, true},
		{ExecutionStatusPending, ExecutionStatusCompleted, true},
		{ExecutionStatusRunning, ExecutionStatusCompleted, true},
		{ExecutionStatusRunning, ExecutionStatusPending, false},
		{ExecutionStatusRunning, ExecutionStatusFailed, true},
		{ExecutionStatusCompleted, ExecutionStatusRunning, false},
		{ExecutionStatusFailed, ExecutionStatusCompleted, false},
		{ExecutionStatusFailed, ExecutionStatusRunning, false},
		{ExecutionStatusFailed, ExecutionStatusFailed, true},
		{ExecutionStatusPending, ExecutionStatus("bogus"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestExecutionStatus_IsTerminal(t *testing.T) {
	assert.False(t, ExecutionStatusPending.IsTerminal())
	assert.False(t, ExecutionStatusRunning.IsTerminal())
	assert.True(t, ExecutionStatusCompleted.IsTerminal())
	assert.True(t, ExecutionStatusFailed.IsTerminal())
}

func TestExecution_Clone(t *testing.T) {
	end := int64(20)
	orig := &Execution{
		ExecutionID: "e1",
		Name:        "find a bottle",
		Metadata:    map[string]any{"originalRequest": "find a bottle"},
		StartedAt:   10,
		EndedAt:     &end,
		Status:      ExecutionStatusCompleted,
		Steps: []Step{{
			StepID:      "s1",
			Artifacts:   []Artifact{{ArtifactID: "a1", Label: "Raw Results"}},
			Evaluations: []Evaluation{NewEvaluation("a1", []CriterionResult{{Criterion: "c", Passed: true}})},
		}},
	}

	clone := orig.Clone()
	require.Equal(t, orig, clone)

	clone.Metadata["extra"] = true
	clone.Steps[0].Artifacts[0].Label = "changed"
	clone.Steps[0].Evaluations[0].CriteriaResults[0].Passed = false
	*clone.EndedAt = 99

	assert.NotContains(t, orig.Metadata, "extra")
	assert.Equal(t, "Raw Results", orig.Steps[0].Artifacts[0].Label)
	assert.True(t, orig.Steps[0].Evaluations[0].CriteriaResults[0].Passed)
	assert.Equal(t, int64(20), *orig.EndedAt)

	var nilExec *Execution
	assert.Nil(t, nilExec.Clone())
}

func TestExecution_JSONShape(t *testing.T) {
	exec := (&Execution{
		ExecutionID: "e1",
		Name:        "empty",
		StartedAt:   1700000000000,
		Status:      ExecutionStatusPending,
	}).Clone()

	data, err := json.Marshal(exec)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Equal(t, "e1", raw["executionId"])
	assert.Equal(t, []any{}, raw["steps"])
	assert.Equal(t, float64(1700000000000), raw["startedAt"])
	assert.Equal(t, "pending", raw["status"])
	assert.NotContains(t, raw, "endedAt")
	assert.NotContains(t, raw, "metadata")
}

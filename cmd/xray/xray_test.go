package main

import (
	"bytes"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agenttrace/xray/internal/domain"
	"github.com/agenttrace/xray/internal/registry"
	"github.com/agenttrace/xray/internal/tracer"
)

func TestRecordDemo(t *testing.T) {
	reg := registry.New()
	executionID, err := recordDemo(tracer.New(reg, tracer.WithLogger(zap.NewNop())))
	require.NoError(t, err)

	exec, ok := reg.Get(executionID)
	require.True(t, ok)
	assert.Equal(t, "competitor_selection_demo", exec.Name)
	assert.Equal(t, domain.ExecutionStatusCompleted, exec.Status)
	require.Len(t, exec.Steps, 2)

	filter := exec.Steps[1]
	assert.Equal(t, "price_filter", filter.Name)
	require.Len(t, filter.Artifacts, 2)
	require.Len(t, filter.Evaluations, 2)
	assert.Equal(t, filter.Artifacts[0].ArtifactID, filter.Evaluations[0].ArtifactID)
	assert.True(t, filter.Evaluations[0].Qualified)
	assert.False(t, filter.Evaluations[1].Qualified)
	assert.Equal(t, "price_range", filter.Evaluations[1].CriteriaResults[0].Criterion)
}

func TestDemoCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"demo"})
	require.NoError(t, cmd.Execute())

	var execs []domain.Execution
	require.NoError(t, json.Unmarshal(out.Bytes(), &execs))
	require.Len(t, execs, 1)
	assert.Len(t, execs[0].Steps, 2)
}

func TestRunCommand_Offline(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"run", "--backend", "offline", "--log-level", "error", "water", "bottle", "under", "$30"})
	require.NoError(t, cmd.Execute())

	var exec domain.Execution
	require.NoError(t, json.Unmarshal(out.Bytes(), &exec))
	assert.Equal(t, "water bottle under $30", exec.Name)
	assert.Equal(t, domain.ExecutionStatusCompleted, exec.Status)
	assert.Len(t, exec.Steps, 5)
}

func TestRunCommand_RequiresRequest(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"run"})
	assert.Error(t, cmd.Execute())
}

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arvolve/arx-go-sdk/core"
)

func TestSessionAddStepIndexes(t *testing.T) {
	s := NewSession("task")
	require.NoError(t, s.AddStep(core.AgentStep{Action: core.ActionCallTool, Tool: "a"}))
	require.NoError(t, s.AddStep(core.AgentStep{Action: core.ActionCallTool, Tool: "b"}))

	assert.Equal(t, 0, s.Steps[0].Index)
	assert.Equal(t, 1, s.Steps[1].Index)
	assert.False(t, s.Steps[0].Timestamp.IsZero())
}

func TestSessionTerminalRejectsSteps(t *testing.T) {
	s := NewSession("task")
	s.Terminate(core.StatusCompleted, "done")

	err := s.AddStep(core.AgentStep{Action: core.ActionCallTool})
	assert.ErrorIs(t, err, core.ErrSessionTerminated)
}

func TestSessionFirstTerminalStatusWins(t *testing.T) {
	s := NewSession("task")
	s.Terminate(core.StatusError, "partial")
	s.Terminate(core.StatusCompleted, "full")

	assert.Equal(t, core.StatusError, s.Status)
	assert.Equal(t, "partial", s.Answer)
}

func TestSessionLastResult(t *testing.T) {
	s := NewSession("task")
	require.NoError(t, s.AddStep(core.AgentStep{Action: core.ActionCallTool, Tool: "a", Result: "first"}))
	require.NoError(t, s.AddStep(core.AgentStep{Action: core.ActionCallTool, Tool: "b", Result: "second"}))
	require.NoError(t, s.AddStep(core.AgentStep{Action: core.ActionCallTool, Tool: "c", Failed: true, Error: "boom"}))

	assert.Equal(t, "second", s.LastResult())
	assert.Equal(t, 1, s.FailedSteps())
}

func TestSessionLastResultEmpty(t *testing.T) {
	s := NewSession("task")
	assert.Equal(t, "", s.LastResult())
}

package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arvolve/arx-go-sdk/core"
	"github.com/arvolve/arx-go-sdk/rag"
)

func TestHeuristicCounter(t *testing.T) {
	c := HeuristicCounter{}
	assert.Equal(t, 0, c.Count(""))
	assert.Equal(t, 1, c.Count("abc"))
	assert.Equal(t, 1, c.Count("abcd"))
	assert.Equal(t, 2, c.Count("abcde"))
}

func TestAssembleEverythingFits(t *testing.T) {
	a := NewAssembler(10000, nil, nil)
	prompt, err := a.Assemble(&ContextInput{
		Task:  "what is the capital of France",
		Turns: []core.ConversationTurn{core.NewTurn(core.RoleUser, "hello")},
		Insights: []core.LongTermInsight{
			{ID: "i1", Text: "user is planning a trip to Europe"},
		},
		Chunks: []rag.Result{
			{Chunk: rag.Chunk{SourceID: "guide", Text: "Paris is the capital of France"}, Score: 0.9},
		},
		ToolResults: []string{"search: Paris"},
	})
	require.NoError(t, err)
	assert.Contains(t, prompt, "what is the capital of France")
	assert.Contains(t, prompt, "planning a trip")
	assert.Contains(t, prompt, "Paris is the capital")
	assert.Contains(t, prompt, "hello")
	assert.Contains(t, prompt, "search: Paris")
}

func TestAssembleDropsChunksFirst(t *testing.T) {
	filler := strings.Repeat("x ", 200)
	in := &ContextInput{
		Task: "short task",
		Turns: []core.ConversationTurn{
			core.NewTurn(core.RoleUser, "keep this turn"),
		},
		Insights: []core.LongTermInsight{{ID: "i1", Text: "keep this insight"}},
		Chunks: []rag.Result{
			{Chunk: rag.Chunk{SourceID: "s", Text: filler}, Score: 0.9},
			{Chunk: rag.Chunk{SourceID: "s", Text: filler}, Score: 0.5},
		},
	}

	// Budget too small for the chunks but fine for the rest.
	a := NewAssembler(60, nil, nil)
	prompt, err := a.Assemble(in)
	require.NoError(t, err)
	assert.NotContains(t, prompt, filler)
	assert.Contains(t, prompt, "keep this turn")
	assert.Contains(t, prompt, "keep this insight")
	assert.Contains(t, prompt, "short task")
}

func TestAssembleDropsOldestTurnsLast(t *testing.T) {
	in := &ContextInput{
		Task: "the task",
		Turns: []core.ConversationTurn{
			core.NewTurn(core.RoleUser, strings.Repeat("old ", 100)),
			core.NewTurn(core.RoleAssistant, "recent reply"),
		},
	}

	a := NewAssembler(40, nil, nil)
	prompt, err := a.Assemble(in)
	require.NoError(t, err)
	assert.NotContains(t, prompt, "old old")
	assert.Contains(t, prompt, "recent reply")
	assert.Contains(t, prompt, "the task")
}

func TestAssembleTaskNeverTruncated(t *testing.T) {
	task := strings.Repeat("mandatory ", 100)
	a := NewAssembler(20, nil, nil)

	_, err := a.Assemble(&ContextInput{Task: task})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrBudgetExceeded)
}

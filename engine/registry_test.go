package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arvolve/arx-go-sdk/core"
	"github.com/arvolve/arx-go-sdk/tools"
)

func echoTool() core.Tool {
	return core.NewFuncTool(core.ToolDefinition{
		Name:        "echo",
		Description: "Echoes its input back.",
		InputSchema: tools.ObjectSchema(map[string]interface{}{
			"text": tools.StringProperty("Text to echo."),
		}, "text"),
	}, func(ctx context.Context, params *core.ToolParams) (*core.ToolResult, error) {
		var args struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(params.Args, &args); err != nil {
			return nil, err
		}
		return &core.ToolResult{Success: true, Data: args.Text}, nil
	})
}

func failingTool(name string) core.Tool {
	return core.NewFuncTool(core.ToolDefinition{Name: name, Description: "Always fails."},
		func(ctx context.Context, params *core.ToolParams) (*core.ToolResult, error) {
			return nil, fmt.Errorf("intentional failure")
		})
}

func TestRegistryExecute(t *testing.T) {
	r := NewToolRegistry()
	require.NoError(t, r.Register(echoTool()))

	result, err := r.Execute(context.Background(), "s1", "echo", json.RawMessage(`{"text":"hi"}`))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "hi", result.Data)
}

func TestRegistryUnknownToolIsToolError(t *testing.T) {
	r := NewToolRegistry()

	_, err := r.Execute(context.Background(), "s1", "nope", nil)
	require.Error(t, err)

	var toolErr *core.ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "nope", toolErr.Tool)
}

func TestRegistryFailingToolIsToolError(t *testing.T) {
	r := NewToolRegistry()
	require.NoError(t, r.Register(failingTool("bad")))

	_, err := r.Execute(context.Background(), "s1", "bad", nil)
	var toolErr *core.ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "bad", toolErr.Tool)
	assert.Contains(t, toolErr.Message, "intentional failure")
}

func TestRegistryListSorted(t *testing.T) {
	r := NewToolRegistry()
	require.NoError(t, r.Register(failingTool("zeta")))
	require.NoError(t, r.Register(echoTool()))

	defs := r.List()
	require.Len(t, defs, 2)
	assert.Equal(t, "echo", defs[0].Name)
	assert.Equal(t, "zeta", defs[1].Name)
}

func TestRegistryRejectsEmptyName(t *testing.T) {
	r := NewToolRegistry()
	err := r.Register(failingTool(""))
	assert.Error(t, err)
}

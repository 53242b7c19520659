package core

import (
	"context"
	"encoding/json"
)

// ToolDefinition describes a named, schema-declared action the agent loop
// may invoke. InputSchema is a JSON Schema object.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]interface{}
}

// ToolParams carries the arguments of one tool invocation.
type ToolParams struct {
	// SessionID identifies the agent session making the call.
	SessionID string

	// Args is the raw JSON argument object produced by the model.
	Args json.RawMessage
}

// ToolResult is the outcome of one tool invocation.
type ToolResult struct {
	Success bool
	Data    interface{}
	Error   string
}

// Tool is a named external action with a declared argument schema.
// Implementations are registered by name and resolved by explicit lookup.
type Tool interface {
	Definition() ToolDefinition
	Execute(ctx context.Context, params *ToolParams) (*ToolResult, error)
}

// FuncTool adapts a plain function into a Tool.
type FuncTool struct {
	def ToolDefinition
	fn  func(ctx context.Context, params *ToolParams) (*ToolResult, error)
}

// NewFuncTool creates a Tool backed by fn.
func NewFuncTool(def ToolDefinition, fn func(ctx context.Context, params *ToolParams) (*ToolResult, error)) *FuncTool {
	return &FuncTool{def: def, fn: fn}
}

func (t *FuncTool) Definition() ToolDefinition {
	return t.def
}

func (t *FuncTool) Execute(ctx context.Context, params *ToolParams) (*ToolResult, error) {
	return t.fn(ctx, params)
}

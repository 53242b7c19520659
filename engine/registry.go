package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/arvolve/arx-go-sdk/core"
)

// ToolRegistry holds the tools an agent may invoke, looked up by name.
// Registration happens at setup; lookups are safe for concurrent use.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]core.Tool
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]core.Tool)}
}

// Register adds a tool. Re-registering a name replaces the previous tool.
func (r *ToolRegistry) Register(tool core.Tool) error {
	def := tool.Definition()
	if def.Name == "" {
		return fmt.Errorf("tool has empty name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[def.Name] = tool
	return nil
}

// Get returns the tool registered under name.
func (r *ToolRegistry) Get(name string) (core.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// List returns the definitions of all registered tools, sorted by name.
func (r *ToolRegistry) List() []core.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]core.ToolDefinition, 0, len(r.tools))
	for _, tool := range r.tools {
		defs = append(defs, tool.Definition())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Execute runs the named tool. Unknown names and tool failures come back as
// *core.ToolError; a tool is never allowed to crash the loop.
func (r *ToolRegistry) Execute(ctx context.Context, sessionID, name string, args json.RawMessage) (*core.ToolResult, error) {
	tool, ok := r.Get(name)
	if !ok {
		return nil, &core.ToolError{Tool: name, Message: "unknown tool"}
	}

	result, err := tool.Execute(ctx, &core.ToolParams{
		SessionID: sessionID,
		Args:      args,
	})
	if err != nil {
		return nil, &core.ToolError{Tool: name, Message: err.Error()}
	}
	if result == nil {
		return nil, &core.ToolError{Tool: name, Message: "tool returned no result"}
	}
	if !result.Success {
		return result, &core.ToolError{Tool: name, Message: result.Error}
	}
	return result, nil
}

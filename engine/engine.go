// Package engine runs the agent loop: assemble context, ask the model for a
// decision, execute tools, and terminate with a final answer or a typed
// failure status.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/arvolve/arx-go-sdk/core"
	"github.com/arvolve/arx-go-sdk/llm"
	"github.com/arvolve/arx-go-sdk/memory"
	"github.com/arvolve/arx-go-sdk/rag"
	"github.com/arvolve/arx-go-sdk/tools"
)

const (
	// DefaultMaxSteps bounds the loop when no limit is configured.
	DefaultMaxSteps = 10

	// DefaultFailureBudget is how many failed external calls and tool
	// executions a run absorbs before terminating with StatusError.
	DefaultFailureBudget = 3

	// DefaultContextBudget is the assembler token budget.
	DefaultContextBudget = 8192

	// DefaultRetrievalK is how many insights and chunks are retrieved per
	// iteration.
	DefaultRetrievalK = 5

	// DefaultCondenseThreshold is the tool result size, in tokens, above
	// which the result is condensed through the retrieval index before
	// entering context.
	DefaultCondenseThreshold = 1024
)

// Engine drives the agent loop for one task at a time.
type Engine struct {
	client   llm.CompletionClient
	registry *ToolRegistry
	memory   *memory.Store
	index    rag.Index

	opts              *llm.Options
	maxSteps          int
	failureBudget     int
	retrievalK        int
	condenseThreshold int
	assembler         *Assembler
	counter           TokenCounter
	log               *zap.Logger
}

// Option configures the engine.
type Option func(*Engine)

// WithMemory attaches session memory. Turns are appended as the run
// progresses and the final answer is persisted.
func WithMemory(m *memory.Store) Option {
	return func(e *Engine) { e.memory = m }
}

// WithIndex attaches a retrieval index, used both for reference lookup and
// for condensing oversized tool results.
func WithIndex(idx rag.Index) Option {
	return func(e *Engine) { e.index = idx }
}

// WithCompletionOptions sets the model options for every call in the loop.
func WithCompletionOptions(opts *llm.Options) Option {
	return func(e *Engine) { e.opts = opts }
}

// WithMaxSteps bounds the number of loop iterations. Zero means a run
// terminates immediately with StatusStepLimit; negative falls back to the
// default.
func WithMaxSteps(n int) Option {
	return func(e *Engine) { e.maxSteps = n }
}

// WithFailureBudget sets how many failures a run absorbs before giving up.
func WithFailureBudget(n int) Option {
	return func(e *Engine) { e.failureBudget = n }
}

// WithContextBudget sets the assembler token budget and counter.
func WithContextBudget(budget int, counter TokenCounter) Option {
	return func(e *Engine) {
		e.assembler = NewAssembler(budget, counter, e.log)
		if counter != nil {
			e.counter = counter
		}
	}
}

// WithRetrievalK sets how many insights and chunks are pulled per iteration.
func WithRetrievalK(k int) Option {
	return func(e *Engine) { e.retrievalK = k }
}

// WithCondenseThreshold sets the tool result size, in tokens, above which
// results are condensed through the index. Zero disables condensation.
func WithCondenseThreshold(n int) Option {
	return func(e *Engine) { e.condenseThreshold = n }
}

// WithLogger sets the structured logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// New creates an engine around a completion client and a tool registry.
func New(client llm.CompletionClient, registry *ToolRegistry, opts ...Option) *Engine {
	e := &Engine{
		client:            client,
		registry:          registry,
		maxSteps:          DefaultMaxSteps,
		failureBudget:     DefaultFailureBudget,
		retrievalK:        DefaultRetrievalK,
		condenseThreshold: DefaultCondenseThreshold,
		counter:           HeuristicCounter{},
		log:               zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.maxSteps < 0 {
		e.maxSteps = DefaultMaxSteps
	}
	if e.assembler == nil {
		e.assembler = NewAssembler(DefaultContextBudget, e.counter, e.log)
	}
	return e
}

// Registry returns the engine's tool registry.
func (e *Engine) Registry() *ToolRegistry { return e.registry }

// decision is the structured output the model returns each iteration.
type decision struct {
	Action  string          `json:"action"`
	Thought string          `json:"thought,omitempty"`
	Answer  string          `json:"answer,omitempty"`
	Tool    string          `json:"tool,omitempty"`
	Args    json.RawMessage `json:"args,omitempty"`
}

func decisionSchema() map[string]interface{} {
	return tools.ObjectSchema(map[string]interface{}{
		"action":  tools.StringEnumProperty("What to do next.", "final_answer", "invoke_tool"),
		"thought": tools.StringProperty("Brief reasoning for this decision."),
		"answer":  tools.StringProperty("The final answer, when action is final_answer."),
		"tool":    tools.StringProperty("The tool to invoke, when action is invoke_tool."),
		"args": map[string]interface{}{
			"type":        "object",
			"description": "Arguments for the tool, matching its input schema.",
		},
	}, "action")
}

// Run executes the loop for task until a final answer, the step limit, the
// failure budget, or cancellation terminates it. The returned session always
// carries a terminal status; the error is non-nil only for terminal
// failures (StatusError) and echoes the cause.
func (e *Engine) Run(ctx context.Context, task string) (*Session, error) {
	session := NewSession(task)
	e.appendTurn(ctx, core.NewTurn(core.RoleUser, task))

	var toolResults []string
	failures := 0

	for i := 0; i < e.maxSteps; i++ {
		if err := ctx.Err(); err != nil {
			session.Terminate(core.StatusCancelled, session.LastResult())
			e.log.Info("run cancelled", zap.String("session", session.ID), zap.Int("steps", len(session.Steps)))
			return session, nil
		}

		prompt, err := e.assembleContext(ctx, task, toolResults)
		if err != nil {
			session.Terminate(core.StatusError, session.LastResult())
			return session, fmt.Errorf("assemble context: %w", err)
		}

		dec, err := e.decide(ctx, prompt)
		if err != nil {
			var malformed *core.MalformedOutputError
			if errors.As(err, &malformed) {
				session.Terminate(core.StatusError, session.LastResult())
				return session, err
			}
			failures++
			e.log.Warn("decision failed",
				zap.Int("failures", failures),
				zap.Error(err))
			if failures > e.failureBudget {
				session.Terminate(core.StatusError, session.LastResult())
				return session, fmt.Errorf("failure budget exhausted: %w", err)
			}
			continue
		}

		if dec.Action == "final_answer" {
			session.AddStep(core.AgentStep{
				Action:  core.ActionRespond,
				Thought: dec.Thought,
				Result:  dec.Answer,
			})
			e.appendTurn(ctx, core.NewTurn(core.RoleAssistant, dec.Answer))
			session.Terminate(core.StatusCompleted, dec.Answer)
			e.log.Info("run completed",
				zap.String("session", session.ID),
				zap.Int("steps", len(session.Steps)))
			return session, nil
		}

		// invoke_tool
		result, execErr := e.registry.Execute(ctx, session.ID, dec.Tool, dec.Args)
		step := core.AgentStep{
			Action:  core.ActionCallTool,
			Thought: dec.Thought,
			Tool:    dec.Tool,
			Args:    dec.Args,
		}
		if execErr != nil {
			step.Failed = true
			step.Error = execErr.Error()
			failures++
			e.log.Warn("tool failed",
				zap.String("tool", dec.Tool),
				zap.Int("failures", failures),
				zap.Error(execErr))
			session.AddStep(step)
			toolResults = append(toolResults, fmt.Sprintf("%s failed: %s", dec.Tool, execErr.Error()))
			if failures > e.failureBudget {
				session.Terminate(core.StatusError, session.LastResult())
				return session, fmt.Errorf("failure budget exhausted: %w", execErr)
			}
			continue
		}

		rendered := renderResult(result)
		rendered = e.condenseResult(ctx, task, dec.Tool, rendered)
		step.Result = rendered
		session.AddStep(step)
		// Tool results reach the prompt through the assembler's tool-result
		// section only; turning them into memory turns as well would put the
		// same content in context twice.
		toolResults = append(toolResults, fmt.Sprintf("%s: %s", dec.Tool, rendered))
	}

	session.Terminate(core.StatusStepLimit, session.LastResult())
	e.log.Info("run hit step limit",
		zap.String("session", session.ID),
		zap.Int("max_steps", e.maxSteps))
	return session, nil
}

// decide asks the model for the next action. Non-conforming output gets one
// corrective re-prompt; a second failure is terminal.
func (e *Engine) decide(ctx context.Context, prompt string) (*decision, error) {
	schema := decisionSchema()
	full := prompt + "\n\nAvailable tools:\n" + e.renderTools() +
		"\n\nDecide the next action: answer directly with final_answer, or invoke_tool with a tool and its arguments."

	raw, err := e.client.Structured(ctx, full, schema, e.opts)
	if err != nil && errors.Is(err, core.ErrSchemaMismatch) {
		e.log.Debug("malformed decision, re-prompting", zap.Error(err))
		corrective := full + "\n\nYour previous reply did not conform to the required schema. Reply again with only a valid JSON object."
		raw, err = e.client.Structured(ctx, corrective, schema, e.opts)
		if err != nil && errors.Is(err, core.ErrSchemaMismatch) {
			return nil, &core.MalformedOutputError{Raw: string(raw), Reason: err.Error()}
		}
	}
	if err != nil {
		return nil, err
	}

	var dec decision
	if err := json.Unmarshal(raw, &dec); err != nil {
		return nil, &core.MalformedOutputError{Raw: string(raw), Reason: err.Error()}
	}
	switch dec.Action {
	case "final_answer", "invoke_tool":
	default:
		return nil, &core.MalformedOutputError{Raw: string(raw), Reason: fmt.Sprintf("unknown action %q", dec.Action)}
	}
	return &dec, nil
}

func (e *Engine) assembleContext(ctx context.Context, task string, toolResults []string) (string, error) {
	in := &ContextInput{Task: task, ToolResults: toolResults}

	if e.memory != nil {
		in.Turns = e.memory.Recent(e.memory.Len())
		insights, err := e.memory.LongTerm(ctx, task, e.retrievalK)
		if err != nil {
			e.log.Warn("insight retrieval failed", zap.Error(err))
		} else {
			in.Insights = insights
		}
	}

	if e.index != nil {
		chunks, err := e.index.Query(ctx, task, e.retrievalK)
		if err != nil {
			e.log.Warn("chunk retrieval failed", zap.Error(err))
		} else {
			in.Chunks = chunks
		}
	}

	return e.assembler.Assemble(in)
}

// condenseResult shrinks an oversized tool result by indexing it and keeping
// only the chunks most relevant to the task.
func (e *Engine) condenseResult(ctx context.Context, task, tool, result string) string {
	if e.index == nil || e.condenseThreshold <= 0 {
		return result
	}
	if e.counter.Count(result) <= e.condenseThreshold {
		return result
	}

	sourceID := fmt.Sprintf("tool:%s", tool)
	if err := e.index.Ingest(ctx, result, sourceID); err != nil {
		e.log.Warn("condense ingest failed", zap.String("tool", tool), zap.Error(err))
		return result
	}
	hits, err := e.index.Query(ctx, task, e.retrievalK)
	if err != nil || len(hits) == 0 {
		return result
	}

	var parts []string
	for _, h := range hits {
		if h.Chunk.SourceID == sourceID {
			parts = append(parts, h.Chunk.Text)
		}
	}
	if len(parts) == 0 {
		return result
	}
	condensed := strings.Join(parts, "\n...\n")
	e.log.Debug("condensed tool result",
		zap.String("tool", tool),
		zap.Int("from_tokens", e.counter.Count(result)),
		zap.Int("to_tokens", e.counter.Count(condensed)))
	return condensed
}

func (e *Engine) renderTools() string {
	defs := e.registry.List()
	if len(defs) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, def := range defs {
		fmt.Fprintf(&b, "- %s: %s\n", def.Name, def.Description)
	}
	return b.String()
}

func (e *Engine) appendTurn(ctx context.Context, turn core.ConversationTurn) {
	if e.memory == nil {
		return
	}
	if err := e.memory.AppendTurn(ctx, turn); err != nil {
		// Journal warnings only; the turn itself is in memory.
		e.log.Warn("memory append", zap.Error(err))
	}
}

func renderResult(result *core.ToolResult) string {
	if result == nil {
		return ""
	}
	switch v := result.Data.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

// SelectTools asks the model which registered tools best serve the task,
// most useful first, capped at max. Unknown names in the reply are dropped.
func (e *Engine) SelectTools(ctx context.Context, task string, max int) ([]core.ToolDefinition, error) {
	defs := e.registry.List()
	if len(defs) == 0 || max <= 0 {
		return nil, nil
	}

	schema := tools.ObjectSchema(map[string]interface{}{
		"tools": tools.ArrayProperty("Tool names, most useful first.",
			tools.StringProperty("A registered tool name.")),
	}, "tools")

	prompt := fmt.Sprintf(
		"Task:\n%s\n\nAvailable tools:\n%s\nSelect up to %d tools that best serve this task.",
		task, e.renderTools(), max)

	raw, err := e.client.Structured(ctx, prompt, schema, e.opts)
	if err != nil {
		return nil, fmt.Errorf("select tools: %w", err)
	}

	var reply struct {
		Tools []string `json:"tools"`
	}
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, fmt.Errorf("select tools: %w", err)
	}

	byName := make(map[string]core.ToolDefinition, len(defs))
	for _, def := range defs {
		byName[def.Name] = def
	}
	var out []core.ToolDefinition
	for _, name := range reply.Tools {
		if def, ok := byName[name]; ok {
			out = append(out, def)
			if len(out) == max {
				break
			}
		}
	}
	return out, nil
}

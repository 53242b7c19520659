package engine

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"

	"github.com/arvolve/arx-go-sdk/core"
	"github.com/arvolve/arx-go-sdk/rag"
)

// TokenCounter measures prompt text against the context budget.
type TokenCounter interface {
	Count(text string) int
}

// HeuristicCounter approximates tokens as len/4. Close enough for budget
// enforcement and free of model files and network access.
type HeuristicCounter struct{}

func (HeuristicCounter) Count(text string) int {
	return (len(text) + 3) / 4
}

// TiktokenCounter counts tokens with a real BPE encoding.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter creates a counter for the given encoding, e.g.
// "cl100k_base".
func NewTiktokenCounter(encoding string) (*TiktokenCounter, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %q: %w", encoding, err)
	}
	return &TiktokenCounter{enc: enc}, nil
}

func (t *TiktokenCounter) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// ContextInput is the raw material the assembler selects from. Task is the
// current user request and is always included; everything else is optional
// and dropped, lowest relevance first, when the budget is tight.
type ContextInput struct {
	Task        string
	Turns       []core.ConversationTurn // chronological, oldest first
	Insights    []core.LongTermInsight  // ranked, most relevant first
	Chunks      []rag.Result            // ranked, most relevant first
	ToolResults []string                // this session's results, oldest first
}

// Assembler builds one bounded prompt from memory, retrieval, and the
// current task.
type Assembler struct {
	budget  int
	counter TokenCounter
	log     *zap.Logger
}

// NewAssembler creates an assembler with a token budget. A nil counter
// falls back to the heuristic.
func NewAssembler(budget int, counter TokenCounter, log *zap.Logger) *Assembler {
	if counter == nil {
		counter = HeuristicCounter{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Assembler{budget: budget, counter: counter, log: log}
}

// Assemble renders the prompt. When the rendered size exceeds the budget,
// optional content is dropped in relevance order: retrieved chunks (lowest
// score first), then insights (lowest rank first), then tool results and
// conversation turns (oldest first). The task itself is never truncated; if
// it alone exceeds the budget, Assemble returns core.ErrBudgetExceeded.
func (a *Assembler) Assemble(in *ContextInput) (string, error) {
	chunks := append([]rag.Result(nil), in.Chunks...)
	insights := append([]core.LongTermInsight(nil), in.Insights...)
	toolResults := append([]string(nil), in.ToolResults...)
	turns := append([]core.ConversationTurn(nil), in.Turns...)

	for {
		prompt := render(in.Task, turns, insights, chunks, toolResults)
		if a.counter.Count(prompt) <= a.budget {
			return prompt, nil
		}

		switch {
		case len(chunks) > 0:
			chunks = chunks[:len(chunks)-1]
		case len(insights) > 0:
			insights = insights[:len(insights)-1]
		case len(toolResults) > 0:
			toolResults = toolResults[1:]
		case len(turns) > 0:
			turns = turns[1:]
		default:
			// Everything optional is gone and the task still does not fit.
			return "", fmt.Errorf("%w: task needs more than %d tokens", core.ErrBudgetExceeded, a.budget)
		}
	}
}

func render(task string, turns []core.ConversationTurn, insights []core.LongTermInsight, chunks []rag.Result, toolResults []string) string {
	var b strings.Builder

	if len(insights) > 0 {
		b.WriteString("Relevant knowledge from earlier in this relationship:\n")
		for _, ins := range insights {
			fmt.Fprintf(&b, "- %s\n", ins.Text)
		}
		b.WriteString("\n")
	}

	if len(chunks) > 0 {
		b.WriteString("Reference material:\n")
		for _, r := range chunks {
			fmt.Fprintf(&b, "[%s] %s\n", r.Chunk.SourceID, r.Chunk.Text)
		}
		b.WriteString("\n")
	}

	if len(turns) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, t := range turns {
			fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Content)
		}
		b.WriteString("\n")
	}

	if len(toolResults) > 0 {
		b.WriteString("Tool results this session:\n")
		for _, r := range toolResults {
			fmt.Fprintf(&b, "- %s\n", r)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Current request:\n%s", task)
	return b.String()
}

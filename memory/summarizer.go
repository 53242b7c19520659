package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/arvolve/arx-go-sdk/core"
	"github.com/arvolve/arx-go-sdk/llm"
)

const condensePrompt = `You are condensing part of a conversation into durable memory.
Extract the essential facts, decisions, and user preferences from the transcript
below as a short third-person summary. Keep concrete details (names, numbers,
choices); drop greetings and filler. Respond with the summary only.

Transcript:
%s`

// Summarizer condenses evicted conversation turns into a single long-term
// insight using a completion client. One call makes at most two model
// attempts: the initial one and a single retry on a recoverable failure.
type Summarizer struct {
	client llm.CompletionClient
	opts   *llm.Options
	log    *zap.Logger
}

// NewSummarizer creates a summarizer. opts may be nil for provider defaults.
func NewSummarizer(client llm.CompletionClient, opts *llm.Options, log *zap.Logger) *Summarizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Summarizer{client: client, opts: opts, log: log}
}

// Summarize condenses turns into one insight. The caller fills in Covers.
func (s *Summarizer) Summarize(ctx context.Context, turns []core.ConversationTurn) (core.LongTermInsight, error) {
	if len(turns) == 0 {
		return core.LongTermInsight{}, fmt.Errorf("no turns to summarize")
	}

	prompt := fmt.Sprintf(condensePrompt, renderTranscript(turns))

	text, err := s.client.Text(ctx, prompt, s.opts)
	if err != nil && core.Recoverable(err) {
		s.log.Debug("summarization retry", zap.Error(err))
		text, err = s.client.Text(ctx, prompt, s.opts)
	}
	if err != nil {
		return core.LongTermInsight{}, fmt.Errorf("summarize %d turns: %w", len(turns), err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return core.LongTermInsight{}, fmt.Errorf("summarize %d turns: empty summary", len(turns))
	}

	return core.LongTermInsight{
		ID:        ulid.Make().String(),
		Text:      text,
		CreatedAt: time.Now(),
	}, nil
}

func renderTranscript(turns []core.ConversationTurn) string {
	var b strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Content)
	}
	return b.String()
}

package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/arvolve/arx-go-sdk/core"
	"github.com/arvolve/arx-go-sdk/rag"
)

// ErrJournal wraps persistence failures. A non-nil error from a mutating
// Store call that satisfies errors.Is(err, ErrJournal) is a warning: the
// in-memory mutation succeeded, only the snapshot append failed. Journal
// failures are never retried automatically.
var ErrJournal = errors.New("journal append failed")

// DefaultCapacity is the short-term buffer capacity when none is configured.
const DefaultCapacity = 16

// Store owns one session's conversational memory: a bounded short-term
// buffer of verbatim turns and an append-only list of long-term insights
// condensed from evicted turns.
//
// Store has no internal locking. One session has one writer; callers must
// serialize operations against a single Store instance.
type Store struct {
	sessionID string
	capacity  int

	turns    []core.ConversationTurn
	insights []core.LongTermInsight

	// staged holds turns evicted from the buffer that are still awaiting a
	// successful summarization. They are never dropped on summarizer
	// failure; they fold into the next summarization that succeeds.
	staged     []core.ConversationTurn
	stagedFrom int
	stagedTo   int

	seq int // total turns ever appended

	summarizer *Summarizer
	journal    *Journal
	embedder   core.Embedder
	log        *zap.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithSummarizer condenses evicted turns into long-term insights. Without
// one, evicted turns stay staged and no insights are produced.
func WithSummarizer(s *Summarizer) StoreOption {
	return func(st *Store) { st.summarizer = s }
}

// WithJournal persists a snapshot entry on every mutating call.
func WithJournal(j *Journal) StoreOption {
	return func(st *Store) { st.journal = j }
}

// WithEmbedder ranks long-term insights by embedding cosine similarity
// instead of lexical word overlap.
func WithEmbedder(e core.Embedder) StoreOption {
	return func(st *Store) { st.embedder = e }
}

// WithLogger sets the structured logger.
func WithLogger(log *zap.Logger) StoreOption {
	return func(st *Store) { st.log = log }
}

// NewStore creates a memory store for one session. capacity is the maximum
// number of short-term turns held at once; values below 1 fall back to
// DefaultCapacity.
func NewStore(sessionID string, capacity int, opts ...StoreOption) *Store {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	s := &Store{
		sessionID: sessionID,
		capacity:  capacity,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SessionID returns the session this store belongs to.
func (s *Store) SessionID() string { return s.sessionID }

// Len returns the current short-term buffer size.
func (s *Store) Len() int { return len(s.turns) }

// Pending returns the number of evicted turns still awaiting summarization.
func (s *Store) Pending() int { return len(s.staged) }

// AppendTurn appends a turn to the short-term buffer, evicting and
// summarizing the oldest turns when the buffer would exceed capacity. The
// buffer never holds more than capacity turns after this call returns.
//
// A non-nil return that wraps ErrJournal is a warning, not a failure: the
// turn is in memory, only persistence misfired.
func (s *Store) AppendTurn(ctx context.Context, turn core.ConversationTurn) error {
	s.seq++
	s.turns = append(s.turns, turn)

	warn := s.journalAppend(OpTurn, &turn, nil)

	if len(s.turns) > s.capacity {
		overflow := len(s.turns) - s.capacity
		first := s.seq - len(s.turns) + 1
		if len(s.staged) == 0 {
			s.stagedFrom = first
		}
		s.stagedTo = first + overflow - 1
		s.staged = append(s.staged, s.turns[:overflow]...)
		s.turns = append([]core.ConversationTurn(nil), s.turns[overflow:]...)

		warn = errors.Join(warn, s.condense(ctx))
	}
	return warn
}

// condense runs one summarization attempt over the staged turns. Failure
// retains the staged turns; they leave staging only once a summarization
// succeeds.
func (s *Store) condense(ctx context.Context) error {
	if s.summarizer == nil || len(s.staged) == 0 {
		return nil
	}

	insight, err := s.summarizer.Summarize(ctx, s.staged)
	if err != nil {
		s.log.Warn("summarization failed, turns retained",
			zap.Int("staged", len(s.staged)),
			zap.Error(err))
		return nil
	}

	insight.Covers = core.TurnRange{From: s.stagedFrom, To: s.stagedTo}
	s.insights = append(s.insights, insight)
	s.staged = nil

	s.log.Debug("long-term insight stored",
		zap.String("id", insight.ID),
		zap.Int("covers_from", insight.Covers.From),
		zap.Int("covers_to", insight.Covers.To))

	return s.journalAppend(OpInsight, nil, &insight)
}

// Recent returns the last n turns in chronological order. n larger than the
// buffer returns the whole buffer; n <= 0 returns nil.
func (s *Store) Recent(n int) []core.ConversationTurn {
	if n <= 0 || len(s.turns) == 0 {
		return nil
	}
	if n > len(s.turns) {
		n = len(s.turns)
	}
	out := make([]core.ConversationTurn, n)
	copy(out, s.turns[len(s.turns)-n:])
	return out
}

// Insights returns a copy of the long-term insight list, oldest first.
func (s *Store) Insights() []core.LongTermInsight {
	out := make([]core.LongTermInsight, len(s.insights))
	copy(out, s.insights)
	return out
}

// LongTerm returns the top-k insights ranked by relevance to query. With an
// embedder configured the ranking is cosine similarity; otherwise a lexical
// word-overlap score. Ties rank the earlier insight first.
func (s *Store) LongTerm(ctx context.Context, query string, k int) ([]core.LongTermInsight, error) {
	if k <= 0 || len(s.insights) == 0 {
		return nil, nil
	}

	scores := s.scoreInsights(ctx, query)

	order := make([]int, len(s.insights))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if k > len(order) {
		k = len(order)
	}
	out := make([]core.LongTermInsight, 0, k)
	for _, idx := range order[:k] {
		out = append(out, s.insights[idx])
	}
	return out, nil
}

func (s *Store) scoreInsights(ctx context.Context, query string) []float64 {
	scores := make([]float64, len(s.insights))

	if s.embedder != nil {
		texts := make([]string, 0, len(s.insights)+1)
		texts = append(texts, query)
		for _, ins := range s.insights {
			texts = append(texts, ins.Text)
		}
		vecs, err := s.embedder.EmbedBatch(ctx, texts)
		if err == nil && len(vecs) == len(texts) {
			for i := range s.insights {
				scores[i] = rag.Cosine(vecs[0], vecs[i+1])
			}
			return scores
		}
		s.log.Warn("insight embedding failed, falling back to lexical ranking",
			zap.Error(err))
	}

	for i, ins := range s.insights {
		scores[i] = wordOverlap(query, ins.Text)
	}
	return scores
}

// Reset clears the buffer, the staged turns, and the insight list, and
// journals the reset so a replay arrives at the same empty state.
func (s *Store) Reset(ctx context.Context) error {
	s.turns = nil
	s.staged = nil
	s.insights = nil
	s.seq = 0
	s.stagedFrom = 0
	s.stagedTo = 0
	return s.journalAppend(OpReset, nil, nil)
}

// Load replays the session journal once, rebuilding buffer, staging, and
// insights. Call it before the first mutation on session resume.
func (s *Store) Load(ctx context.Context) error {
	if s.journal == nil {
		return nil
	}
	return s.journal.Replay(func(e Entry) error {
		switch e.Op {
		case OpTurn:
			if e.Turn == nil {
				return fmt.Errorf("turn entry %s has no turn", e.ID)
			}
			s.applyTurn(*e.Turn)
		case OpInsight:
			if e.Insight == nil {
				return fmt.Errorf("insight entry %s has no insight", e.ID)
			}
			s.insights = append(s.insights, *e.Insight)
			s.staged = nil
		case OpReset:
			s.turns = nil
			s.staged = nil
			s.insights = nil
			s.seq = 0
		default:
			return fmt.Errorf("unknown journal op %q", e.Op)
		}
		return nil
	})
}

// applyTurn replays an appended turn without summarizing or journaling.
func (s *Store) applyTurn(turn core.ConversationTurn) {
	s.seq++
	s.turns = append(s.turns, turn)
	if len(s.turns) > s.capacity {
		overflow := len(s.turns) - s.capacity
		first := s.seq - len(s.turns) + 1
		if len(s.staged) == 0 {
			s.stagedFrom = first
		}
		s.stagedTo = first + overflow - 1
		s.staged = append(s.staged, s.turns[:overflow]...)
		s.turns = append([]core.ConversationTurn(nil), s.turns[overflow:]...)
	}
}

func (s *Store) journalAppend(op Op, turn *core.ConversationTurn, insight *core.LongTermInsight) error {
	if s.journal == nil {
		return nil
	}
	if err := s.journal.Append(op, turn, insight); err != nil {
		s.log.Warn("journal append failed", zap.String("op", string(op)), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrJournal, err)
	}
	return nil
}

// wordOverlap is a Jaccard similarity over lower-cased words. It is the
// ranking fallback when no embedder is configured.
func wordOverlap(a, b string) float64 {
	wordsA := strings.Fields(strings.ToLower(a))
	wordsB := strings.Fields(strings.ToLower(b))
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	set := make(map[string]bool, len(wordsA))
	for _, w := range wordsA {
		set[w] = true
	}
	overlap := 0
	for _, w := range wordsB {
		if set[w] {
			overlap++
		}
	}

	union := len(wordsA) + len(wordsB) - overlap
	if union == 0 {
		return 0
	}
	return float64(overlap) / float64(union)
}

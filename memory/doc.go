// Package memory manages per-session conversational memory.
//
// Two tiers:
//   - Short-term: a bounded buffer of verbatim turns. When it overflows, the
//     oldest turns are evicted and condensed.
//   - Long-term: append-only insights produced by summarizing evicted turns,
//     ranked by relevance at retrieval time.
//
// A Store optionally journals every mutation to an append-only JSONL file so
// a session can resume across process restarts via Load.
//
// Store is single-writer per session: callers serialize access themselves.
package memory

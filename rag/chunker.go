package rag

import "strings"

const (
	// DefaultWindow is the chunk size in words.
	DefaultWindow = 200

	// DefaultOverlap is the fraction of each chunk shared with the next.
	DefaultOverlap = 0.15
)

// Chunker splits text into overlapping word windows. Overlap keeps a
// sentence that straddles a boundary retrievable from both sides.
type Chunker struct {
	window  int
	overlap float64
}

// NewChunker creates a chunker. Non-positive window or an overlap outside
// [0, 1) falls back to the defaults.
func NewChunker(window int, overlap float64) *Chunker {
	if window < 1 {
		window = DefaultWindow
	}
	if overlap < 0 || overlap >= 1 {
		overlap = DefaultOverlap
	}
	return &Chunker{window: window, overlap: overlap}
}

// Chunk splits text on whitespace into windows of the configured size.
// Text at or under one window comes back as a single chunk; empty or
// whitespace-only text produces none.
func (c *Chunker) Chunk(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if len(words) <= c.window {
		return []string{strings.Join(words, " ")}
	}

	step := c.window - int(float64(c.window)*c.overlap)
	if step < 1 {
		step = 1
	}

	var chunks []string
	for start := 0; start < len(words); start += step {
		end := start + c.window
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks
}

package rag

import (
	"context"
	"math"
)

// Chunk is one indexed window of a source document.
type Chunk struct {
	ID       string
	SourceID string
	Text     string
}

// Result is a retrieved chunk with its similarity score.
type Result struct {
	Chunk Chunk
	Score float64
}

// Index stores embedded chunks and retrieves them by similarity. The scan
// implementation suits up to tens of thousands of chunks; larger corpora can
// swap in chromem or an ANN backend behind the same contract.
type Index interface {
	// Ingest chunks text, embeds each chunk, and adds them under sourceID.
	Ingest(ctx context.Context, text, sourceID string) error

	// Query returns the top-k chunks by similarity to text, best first.
	// An empty index or k <= 0 yields an empty result, never an error.
	Query(ctx context.Context, text string, k int) ([]Result, error)

	// Count reports the number of indexed chunks.
	Count() int
}

// Cosine returns the cosine similarity of two vectors, 0 when either has
// zero magnitude or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

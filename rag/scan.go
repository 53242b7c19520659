package rag

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/arvolve/arx-go-sdk/core"
)

const embedBatchSize = 32

// ScanIndex is the brute-force Index: every query scores every chunk. Reads
// run concurrently, ingests serialize behind a write lock.
type ScanIndex struct {
	embedder core.Embedder
	chunker  *Chunker
	log      *zap.Logger

	mu      sync.RWMutex
	chunks  []Chunk
	vectors [][]float32
	dims    int // fixed by the first ingested chunk
}

// ScanOption configures a ScanIndex.
type ScanOption func(*ScanIndex)

// WithChunker overrides the default chunker.
func WithChunker(c *Chunker) ScanOption {
	return func(s *ScanIndex) { s.chunker = c }
}

// WithLogger sets the structured logger.
func WithLogger(log *zap.Logger) ScanOption {
	return func(s *ScanIndex) { s.log = log }
}

// NewScanIndex creates an empty index over the given embedder.
func NewScanIndex(embedder core.Embedder, opts ...ScanOption) *ScanIndex {
	s := &ScanIndex{
		embedder: embedder,
		chunker:  NewChunker(DefaultWindow, DefaultOverlap),
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest implements Index. Chunks are embedded in concurrent batches; the
// index mutation happens once, after every embedding succeeded, so a failed
// ingest leaves the index unchanged.
func (s *ScanIndex) Ingest(ctx context.Context, text, sourceID string) error {
	pieces := s.chunker.Chunk(text)
	if len(pieces) == 0 {
		return nil
	}

	vectors := make([][]float32, len(pieces))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for start := 0; start < len(pieces); start += embedBatchSize {
		start := start
		end := start + embedBatchSize
		if end > len(pieces) {
			end = len(pieces)
		}
		g.Go(func() error {
			vecs, err := s.embedder.EmbedBatch(gctx, pieces[start:end])
			if err != nil {
				return fmt.Errorf("embed chunks %d-%d: %w", start, end-1, err)
			}
			copy(vectors[start:end], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch before fixing the index dimension, so a
	// rejected ingest leaves the dimension unset.
	dims := s.dims
	if dims == 0 {
		dims = len(vectors[0])
	}
	for _, vec := range vectors {
		if len(vec) != dims {
			return fmt.Errorf("embedding dimension %d does not match index dimension %d", len(vec), dims)
		}
	}
	s.dims = dims

	for i, piece := range pieces {
		s.chunks = append(s.chunks, Chunk{
			ID:       uuid.NewString(),
			SourceID: sourceID,
			Text:     piece,
		})
		s.vectors = append(s.vectors, vectors[i])
	}

	s.log.Debug("ingested document",
		zap.String("source", sourceID),
		zap.Int("chunks", len(pieces)))
	return nil
}

// Query implements Index. Ties score-equal chunks by insertion order,
// earliest first.
func (s *ScanIndex) Query(ctx context.Context, text string, k int) ([]Result, error) {
	if k <= 0 || s.Count() == 0 {
		return nil, nil
	}

	// Embed outside the lock; a slow embedding call must not stall writers.
	queryVec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.chunks) == 0 {
		return nil, nil
	}

	order := make([]int, len(s.chunks))
	scores := make([]float64, len(s.chunks))
	for i := range s.chunks {
		order[i] = i
		scores[i] = Cosine(queryVec, s.vectors[i])
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if k > len(order) {
		k = len(order)
	}
	out := make([]Result, 0, k)
	for _, idx := range order[:k] {
		out = append(out, Result{Chunk: s.chunks[idx], Score: scores[idx]})
	}
	return out, nil
}

// Count implements Index.
func (s *ScanIndex) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

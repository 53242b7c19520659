package rag

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/arvolve/arx-go-sdk/core"
)

// ChromemIndex is an Index backed by chromem-go, an embedded pure-Go vector
// database. Same contract as ScanIndex; chromem handles the similarity
// search internally.
type ChromemIndex struct {
	col      *chromem.Collection
	embedder core.Embedder
	chunker  *Chunker
	log      *zap.Logger

	mu    sync.Mutex
	count int
}

// NewChromemIndex creates an index with its own in-memory chromem database.
func NewChromemIndex(name string, embedder core.Embedder, opts ...ScanOption) (*ChromemIndex, error) {
	db := chromem.NewDB()
	// Embeddings are supplied explicitly; chromem never calls an embedding func.
	col, err := db.CreateCollection(name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	cfg := &ScanIndex{
		chunker: NewChunker(DefaultWindow, DefaultOverlap),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &ChromemIndex{
		col:      col,
		embedder: embedder,
		chunker:  cfg.chunker,
		log:      cfg.log,
	}, nil
}

// Ingest implements Index.
func (c *ChromemIndex) Ingest(ctx context.Context, text, sourceID string) error {
	pieces := c.chunker.Chunk(text)
	if len(pieces) == 0 {
		return nil
	}

	vectors, err := c.embedder.EmbedBatch(ctx, pieces)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i, piece := range pieces {
		doc := chromem.Document{
			ID:        uuid.NewString(),
			Content:   piece,
			Embedding: vectors[i],
			Metadata:  map[string]string{"source_id": sourceID},
		}
		if err := c.col.AddDocument(ctx, doc); err != nil {
			return fmt.Errorf("add chunk: %w", err)
		}
		c.count++
	}

	c.log.Debug("ingested document",
		zap.String("source", sourceID),
		zap.Int("chunks", len(pieces)))
	return nil
}

// Query implements Index. chromem rejects nResults above the collection
// size, so k is clamped first.
func (c *ChromemIndex) Query(ctx context.Context, text string, k int) ([]Result, error) {
	if k <= 0 {
		return nil, nil
	}

	c.mu.Lock()
	size := c.count
	c.mu.Unlock()
	if size == 0 {
		return nil, nil
	}
	if k > size {
		k = size
	}

	queryVec, err := c.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := c.col.QueryEmbedding(ctx, queryVec, k, nil, nil)
	if err != nil {
		if isInsufficientDocsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	out := make([]Result, 0, len(results))
	for _, r := range results {
		out = append(out, Result{
			Chunk: Chunk{
				ID:       r.ID,
				SourceID: r.Metadata["source_id"],
				Text:     r.Content,
			},
			Score: float64(r.Similarity),
		})
	}
	return out, nil
}

// Count implements Index.
func (c *ChromemIndex) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func isInsufficientDocsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}

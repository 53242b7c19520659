package core

import "context"

// Embedder converts text to fixed-length vector embeddings. The dimension is
// fixed for the lifetime of an embedder; every vector it returns has length
// Dimensions().
//
// Shared by the memory ranking path and the retrieval index, which is why it
// lives here rather than in either package.
type Embedder interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch converts several texts in one pass. Implementations without
	// a batch endpoint may loop over Embed.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}

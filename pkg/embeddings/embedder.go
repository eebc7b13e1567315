// Package embeddings provides text embedding and vector similarity for the
// memory store. The Embedder interface is a pluggability seam: any
// model-backed implementation can be substituted as long as its output
// dimensionality matches what the backends are configured to store.
package embeddings

import "context"

// Embedder converts text into fixed-length vectors.
type Embedder interface {
	// Embed converts text into a vector embedding. Implementations must be
	// deterministic with respect to their configured model: the same text
	// yields the same vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the fixed output length of Embed.
	Dimensions() int

	// Close releases any resources held by the embedder.
	Close() error
}

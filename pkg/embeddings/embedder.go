// Package embeddings
package embeddings

import "context"

// Embedder provides text embedding capabilities. Implementations must be
// safe for concurrent use: chat queries and ingestion embed text from
// separate in-flight requests.
type Embedder interface {
	// Embed converts text into a vector embedding. Deterministic for a
	// fixed model version.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}

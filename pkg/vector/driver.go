// Package vector provides interfaces and implementations for storing and
// querying embedded document chunks.
package vector

import "context"

// Document is one embedded chunk of an ingested file, as stored in the index.
// Documents are immutable after insertion.
type Document struct {
	// ID is a unique identifier for the chunk.
	ID string

	// Text is the chunk's text content.
	Text string

	// Source is the name of the originally uploaded file this chunk was cut
	// from. Never empty for documents produced by the ingestion pipeline.
	Source string

	// Embedding is the vector representation of Text.
	Embedding []float32
}

// ScoredMatch is a similarity query result.
type ScoredMatch struct {
	Document

	// Distance between the query embedding and this document's embedding.
	// Non-negative; lower means more similar. Query results are ordered by
	// ascending Distance.
	Distance float32
}

// Driver handles storage and retrieval of embedded chunks. Implementations
// must be safe for concurrent use: ingestion upserts and chat-path queries
// run from independent in-flight requests.
type Driver interface {
	// Upsert stores documents with their embeddings. A document whose ID
	// already exists is replaced.
	Upsert(ctx context.Context, docs []Document) error

	// Query finds the topK documents most similar to the given embedding,
	// ordered by ascending distance.
	Query(ctx context.Context, embedding []float32, topK int) ([]ScoredMatch, error)

	// Delete removes documents by their IDs.
	Delete(ctx context.Context, ids []string) error

	// Close releases any resources held by the driver.
	Close() error
}

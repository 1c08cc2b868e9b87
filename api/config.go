// Package api provides the HTTP API server for document ingestion and
// retrieval-augmented chat.
package api

import (
	"github.com/cartableai/cartable/pkg/embeddings"
	"github.com/cartableai/cartable/pkg/eventstream"
	"github.com/cartableai/cartable/pkg/ingest"
	"github.com/cartableai/cartable/pkg/rag"
	"github.com/cartableai/cartable/pkg/vector"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8090")
	ListenAddr string

	// Answerer produces streaming answers for chat turns
	Answerer *rag.Pipeline

	// Ingester indexes uploaded documents
	Ingester *ingest.Pipeline

	// Embedder and VectorDriver back the raw search endpoint and the MCP
	// search tool
	Embedder     embeddings.Embedder
	VectorDriver vector.Driver

	// Publisher emits chat turn events. Optional; nil disables them.
	Publisher eventstream.Publisher
}

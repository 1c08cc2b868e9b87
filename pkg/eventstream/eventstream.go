// Package eventstream publishes domain events emitted by the ingestion and
// chat pipelines, for downstream consumers such as analytics or audit.
package eventstream

import (
	"context"
	"time"
)

// SchemaVersion is stamped on every published event.
const SchemaVersion = 1

// Event is the envelope shared by all published events.
type Event struct {
	// ID uniquely identifies the event.
	ID string `json:"id"`

	// Type discriminates the payload.
	Type string `json:"type"`

	// SchemaVersion of the envelope and payload.
	SchemaVersion int `json:"schema_version"`

	// Timestamp of emission, UTC.
	Timestamp time.Time `json:"timestamp"`

	// Payload is one of the typed event payloads below.
	Payload any `json:"payload"`
}

// Event types.
const (
	TypeDocumentIngested = "document.ingested"
	TypeTurnAnswered     = "chat.turn_answered"
)

// DocumentIngested is emitted after a document finishes ingestion.
type DocumentIngested struct {
	Source         string `json:"source"`
	Format         string `json:"format"`
	ChunksTotal    int    `json:"chunks_total"`
	ChunksInserted int    `json:"chunks_inserted"`
}

// TurnAnswered is emitted after a chat turn completes streaming.
type TurnAnswered struct {
	Intent       string `json:"intent"`
	WantsSources bool   `json:"wants_sources"`
	Failed       bool   `json:"failed"`
}

// Publisher delivers events to a stream. Implementations must tolerate
// being called from concurrent pipelines.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

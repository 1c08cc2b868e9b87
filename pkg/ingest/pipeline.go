// Package ingest loads documents, chunks their text, and indexes the chunks
// into the vector store.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cartableai/cartable/pkg/embeddings"
	"github.com/cartableai/cartable/pkg/eventstream"
	"github.com/cartableai/cartable/pkg/vector"
)

// Pipeline ingests documents into the vector store.
type Pipeline struct {
	embedder  embeddings.Embedder
	store     vector.Driver
	publisher eventstream.Publisher
	chunker   Chunker
	logger    *zap.Logger
}

// NewPipeline assembles an ingestion pipeline. publisher may be a nop
// implementation when no event stream is configured.
func NewPipeline(embedder embeddings.Embedder, store vector.Driver, publisher eventstream.Publisher, chunker Chunker, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		embedder:  embedder,
		store:     store,
		publisher: publisher,
		chunker:   chunker,
		logger:    logger,
	}
}

// Ingest loads the document at path, chunks it, and indexes each chunk under
// sourceName. Loading failures are fatal; per-chunk embedding or indexing
// failures are logged and skipped. Returns the number of chunks inserted.
func (p *Pipeline) Ingest(ctx context.Context, path, sourceName string) (int, error) {
	format, err := DetectFormat(sourceName)
	if err != nil {
		return 0, err
	}

	blocks, err := p.load(format, path)
	if err != nil {
		return 0, fmt.Errorf("loading %s: %w", sourceName, err)
	}

	chunks := p.chunker.SplitAll(blocks)

	p.logger.Info("ingesting document",
		zap.String("source", sourceName),
		zap.String("format", format.String()),
		zap.Int("blocks", len(blocks)),
		zap.Int("chunks", len(chunks)),
	)

	inserted := 0
	for i, chunk := range chunks {
		if err := p.indexChunk(ctx, chunk, sourceName); err != nil {
			p.logger.Warn("skipping failed chunk",
				zap.String("source", sourceName),
				zap.Int("chunk", i+1),
				zap.Int("total", len(chunks)),
				zap.Error(err),
			)
			continue
		}
		inserted++
	}

	p.logger.Info("ingestion complete",
		zap.String("source", sourceName),
		zap.Int("inserted", inserted),
		zap.Int("total", len(chunks)),
	)

	p.publishIngested(ctx, sourceName, format, len(chunks), inserted)

	return inserted, nil
}

func (p *Pipeline) load(format Format, path string) ([]string, error) {
	switch format {
	case FormatPDF:
		return loadPDF(path)
	case FormatWord:
		return loadWord(path)
	case FormatPresentation:
		return loadPresentation(path)
	default:
		return nil, ErrUnsupportedFormat
	}
}

func (p *Pipeline) indexChunk(ctx context.Context, text, sourceName string) error {
	embedding, err := p.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embedding chunk: %w", err)
	}

	err = p.store.Upsert(ctx, []vector.Document{{
		ID:        uuid.NewString(),
		Text:      text,
		Source:    sourceName,
		Embedding: embedding,
	}})
	if err != nil {
		return fmt.Errorf("indexing chunk: %w", err)
	}

	return nil
}

func (p *Pipeline) publishIngested(ctx context.Context, sourceName string, format Format, total, inserted int) {
	err := p.publisher.Publish(ctx, eventstream.Event{
		ID:            uuid.NewString(),
		Type:          eventstream.TypeDocumentIngested,
		SchemaVersion: eventstream.SchemaVersion,
		Timestamp:     time.Now().UTC(),
		Payload: eventstream.DocumentIngested{
			Source:         sourceName,
			Format:         format.String(),
			ChunksTotal:    total,
			ChunksInserted: inserted,
		},
	})
	if err != nil {
		p.logger.Warn("publishing ingestion event failed", zap.Error(err))
	}
}

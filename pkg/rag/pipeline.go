// Package rag implements the answer pipeline: intent classification, vector
// retrieval with a relevance gate, prompt construction, and streaming
// generation.
package rag

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cartableai/cartable/pkg/embeddings"
	"github.com/cartableai/cartable/pkg/llm"
	"github.com/cartableai/cartable/pkg/vector"
)

const (
	// DefaultThreshold is the relevance gate cutoff. Ollama embedding
	// distances typically land between 0.2 and 1.5.
	DefaultThreshold = 1.2

	// DefaultTopK is how many chunks are retrieved and kept per question.
	DefaultTopK = 4

	// Sampling temperatures. Grounded answers run colder to stay faithful
	// to the retrieved context.
	groundedTemperature = 0.2
	fallbackTemperature = 0.4
)

// MissingAPIKeyMessage is streamed as the entire answer when no generation
// API key is configured.
const MissingAPIKeyMessage = "❌ Clé API OpenRouter manquante. Renseigne chat.api_key dans la configuration."

// Options tune the retrieval stage of the pipeline.
type Options struct {
	// Threshold is the relevance gate cutoff on ascending distances.
	// Nil means DefaultThreshold; an explicit zero gates everything out.
	Threshold *float32

	// TopK is the number of chunks retrieved per question.
	// Defaults to DefaultTopK when zero.
	TopK int
}

// Pipeline answers chat questions over an ingested document corpus.
type Pipeline struct {
	llm       llm.StreamClient
	embedder  embeddings.Embedder
	store     vector.Driver
	threshold float32
	topK      int
	logger    *zap.Logger
}

// NewPipeline assembles an answer pipeline from its capabilities.
func NewPipeline(client llm.StreamClient, embedder embeddings.Embedder, store vector.Driver, opts Options, logger *zap.Logger) *Pipeline {
	threshold := float32(DefaultThreshold)
	if opts.Threshold != nil {
		threshold = *opts.Threshold
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	return &Pipeline{
		llm:       client,
		embedder:  embedder,
		store:     store,
		threshold: threshold,
		topK:      topK,
		logger:    logger,
	}
}

// Answer produces a streaming answer to question given the conversation
// history (most recent last). The returned stream is finite; the caller
// must drain Fragments and check Err, or Close to abandon.
//
// Smalltalk turns answer without retrieval. Format instructions answer with
// a static confirmation. Everything else retrieves, gates on relevance, and
// streams a grounded or fallback generation.
func (p *Pipeline) Answer(ctx context.Context, question string, history []string) *llm.Stream {
	if !p.llm.Configured() {
		return llm.NewStaticStream(MissingAPIKeyMessage)
	}

	q := strings.TrimSpace(question)

	switch Classify(q) {
	case IntentSmalltalk:
		return p.fallback(ctx, q, history)

	case IntentFormat:
		n := LineLimit(q)
		return llm.NewStaticStream(fmt.Sprintf(
			"D’accord ✅ Pose ta question, je répondrai en **%d lignes**.", n,
		))
	}

	matches, err := p.retrieve(ctx, q)
	if err != nil {
		// Retrieval failure degrades to a general-knowledge answer
		// instead of failing the turn.
		p.logger.Warn("retrieval failed, answering without context", zap.Error(err))
		return p.fallback(ctx, q, history)
	}

	kept, decision := Gate(matches, p.threshold, p.topK)
	if decision == NoContext {
		p.logger.Debug("no relevant context, falling back",
			zap.Int("candidates", len(matches)),
		)
		return p.fallback(ctx, q, history)
	}

	system, user := groundedPrompts(q, history, kept, WantsSources(q))

	p.logger.Debug("answering with document context",
		zap.Int("chunks", len(kept)),
		zap.Float32("best_distance", kept[0].Distance),
	)

	return p.generate(ctx, system, user, groundedTemperature)
}

// retrieve embeds the question and queries the vector store.
func (p *Pipeline) retrieve(ctx context.Context, question string) ([]vector.ScoredMatch, error) {
	embedding, err := p.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}

	matches, err := p.store.Query(ctx, embedding, p.topK)
	if err != nil {
		return nil, fmt.Errorf("querying vector store: %w", err)
	}

	return matches, nil
}

// fallback streams a general-knowledge answer without document context.
func (p *Pipeline) fallback(ctx context.Context, question string, history []string) *llm.Stream {
	system, user := fallbackPrompts(question, history)
	return p.generate(ctx, system, user, fallbackTemperature)
}

func (p *Pipeline) generate(ctx context.Context, system, user string, temperature float64) *llm.Stream {
	stream, err := p.llm.StreamCompletion(ctx, llm.CompletionRequest{
		SystemPrompt: system,
		UserPrompt:   user,
		Temperature:  temperature,
	})
	if err != nil {
		p.logger.Warn("starting generation failed", zap.Error(err))

		failed := llm.NewStream(nil)
		failed.Finish(err)
		return failed
	}
	return stream
}

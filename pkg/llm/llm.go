// Package llm defines the streaming generation capability consumed by the
// answer pipeline, decoupled from any concrete provider.
package llm

import (
	"context"
	"errors"
)

var (
	// ErrStream is returned by Stream.Err when the provider fails after
	// streaming has begun. Fragments delivered before the failure remain
	// valid; callers may persist the partial answer.
	ErrStream = errors.New("generation stream failed")

	// ErrMissingAPIKey is returned when a client is asked to stream without
	// credentials configured.
	ErrMissingAPIKey = errors.New("generation API key is not configured")
)

// CompletionRequest describes one streaming generation call.
type CompletionRequest struct {
	// SystemPrompt frames the model's behavior for this answer mode.
	SystemPrompt string

	// UserPrompt carries history, retrieved context, and the question.
	UserPrompt string

	// Temperature for sampling. The pipeline uses a lower temperature when
	// the answer must stay faithful to retrieved context.
	Temperature float64
}

// StreamClient is the generative-model capability. Implementations must be
// safe for concurrent use across in-flight chat turns.
type StreamClient interface {
	// StreamCompletion initiates one generation request and returns the
	// resulting fragment stream. The stream is finite and not restartable.
	StreamCompletion(ctx context.Context, req CompletionRequest) (*Stream, error)

	// Configured reports whether the client has the credentials it needs.
	Configured() bool
}

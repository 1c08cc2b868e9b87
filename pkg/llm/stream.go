package llm

import (
	"context"
	"strings"
	"sync"
)

// fragmentBuffer bounds the producer/consumer channel. Keeps a slow consumer
// from buffering an entire answer while still absorbing bursts of deltas.
const fragmentBuffer = 16

// Stream is a finite, non-restartable sequence of generated text fragments.
//
// A background producer pushes fragments into a bounded channel; the consumer
// ranges over Fragments until it closes, then checks Err. Concatenating all
// fragments in order yields the full answer text. Close abandons the stream
// and cancels the underlying provider request.
type Stream struct {
	fragments chan string

	// err is written by the producer before the fragments channel is
	// closed, and read by consumers only after the close — the channel
	// close is the synchronization point.
	err error

	cancel    context.CancelFunc
	finishing sync.Once
}

// NewStream creates a stream for a producer to feed. cancel, if non-nil, is
// invoked when the consumer abandons the stream via Close.
func NewStream(cancel context.CancelFunc) *Stream {
	return &Stream{
		fragments: make(chan string, fragmentBuffer),
		cancel:    cancel,
	}
}

// NewStaticStream returns an already-finished stream that yields the given
// fragments. Used for deterministic single-message answers (format
// confirmations, missing-configuration notices).
func NewStaticStream(fragments ...string) *Stream {
	s := &Stream{
		fragments: make(chan string, len(fragments)),
	}
	for _, f := range fragments {
		s.fragments <- f
	}
	close(s.fragments)
	return s
}

// Fragments returns the channel of text fragments, in generation order.
// The channel closes when the stream ends; check Err afterwards.
func (s *Stream) Fragments() <-chan string {
	return s.fragments
}

// Err reports how the stream ended. It is valid only after Fragments has
// closed. A nil error means the stream completed normally.
func (s *Stream) Err() error {
	return s.err
}

// Close abandons the stream. The producer's context is canceled so the
// upstream provider request is not leaked when the caller stops consuming
// (e.g. the chat transport disconnected mid-answer).
func (s *Stream) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Send delivers one fragment to the consumer. It returns false when ctx is
// done, signaling the producer to abandon the upstream request.
func (s *Stream) Send(ctx context.Context, fragment string) bool {
	select {
	case s.fragments <- fragment:
		return true
	case <-ctx.Done():
		return false
	}
}

// Finish ends the stream. A nil err means normal completion; otherwise err
// is surfaced through Err once the consumer drains the channel. Finish is
// idempotent.
func (s *Stream) Finish(err error) {
	s.finishing.Do(func() {
		s.err = err
		close(s.fragments)
	})
}

// Collect drains the stream and returns the concatenated answer text along
// with the stream's terminal error. Partial text is returned even when the
// stream ends in an error.
func (s *Stream) Collect() (string, error) {
	var sb strings.Builder
	for fragment := range s.fragments {
		sb.WriteString(fragment)
	}
	return sb.String(), s.err
}

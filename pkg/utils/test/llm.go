package testutils

import (
	"context"

	"github.com/cartableai/cartable/pkg/llm"
)

// MockStreamClient is a test generation client that replays scripted
// fragments and records the requests it receives.
type MockStreamClient struct {
	// Fragments is replayed on every StreamCompletion call.
	Fragments []string

	// StreamErr, when set, terminates the stream after the fragments.
	StreamErr error

	// Unconfigured makes Configured report false.
	Unconfigured bool

	// Requests accumulates every completion request, in order.
	Requests []llm.CompletionRequest
}

func NewMockStreamClient(fragments ...string) *MockStreamClient {
	return &MockStreamClient{
		Fragments: fragments,
	}
}

func (m *MockStreamClient) StreamCompletion(_ context.Context, req llm.CompletionRequest) (*llm.Stream, error) {
	if m.Unconfigured {
		return nil, llm.ErrMissingAPIKey
	}

	m.Requests = append(m.Requests, req)

	if m.StreamErr != nil {
		stream := llm.NewStream(nil)
		go func() {
			for _, f := range m.Fragments {
				if !stream.Send(context.Background(), f) {
					break
				}
			}
			stream.Finish(m.StreamErr)
		}()
		return stream, nil
	}

	return llm.NewStaticStream(m.Fragments...), nil
}

func (m *MockStreamClient) Configured() bool {
	return !m.Unconfigured
}

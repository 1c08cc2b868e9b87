package testutils

import (
	"context"

	"github.com/cartableai/cartable/pkg/eventstream"
)

// MockPublisher records every published event.
type MockPublisher struct {
	Events []eventstream.Event

	// FailPublish causes Publish to return an error.
	FailPublish error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(_ context.Context, event eventstream.Event) error {
	if m.FailPublish != nil {
		return m.FailPublish
	}
	m.Events = append(m.Events, event)
	return nil
}

func (m *MockPublisher) Close() error {
	return nil
}

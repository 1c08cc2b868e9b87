// Package nop provides a no-op event publisher, used when no broker is
// configured.
package nop

import (
	"context"

	"github.com/cartableai/cartable/pkg/eventstream"
)

// Publisher discards every event.
type Publisher struct{}

// NewPublisher returns a publisher that discards events.
func NewPublisher() *Publisher {
	return &Publisher{}
}

func (p *Publisher) Publish(_ context.Context, _ eventstream.Event) error {
	return nil
}

func (p *Publisher) Close() error {
	return nil
}

var _ eventstream.Publisher = (*Publisher)(nil)

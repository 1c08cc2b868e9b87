// Package kafka publishes domain events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/cartableai/cartable/pkg/eventstream"
)

// DefaultTopic is the topic events are published to when none is configured.
const DefaultTopic = "cartable-events"

// Config holds configuration for the Kafka publisher.
type Config struct {
	// Brokers is the list of broker addresses as host:port.
	Brokers []string

	// Topic to publish to. Defaults to DefaultTopic if empty.
	Topic string
}

// Publisher writes JSON-encoded events to a Kafka topic, keyed by event type
// so consumers see per-type ordering.
type Publisher struct {
	writer *kafkago.Writer
	logger *zap.Logger
}

// NewPublisher creates a Kafka event publisher.
func NewPublisher(c Config, logger *zap.Logger) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, fmt.Errorf("at least one kafka broker is required")
	}

	topic := c.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	writer := &kafkago.Writer{
		Addr:     kafkago.TCP(c.Brokers...),
		Topic:    topic,
		Balancer: &kafkago.Hash{},
	}

	logger.Info("kafka event publisher initialized",
		zap.Strings("brokers", c.Brokers),
		zap.String("topic", topic),
	)

	return &Publisher{
		writer: writer,
		logger: logger,
	}, nil
}

func (p *Publisher) Publish(ctx context.Context, event eventstream.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(event.Type),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("publishing event %s: %w", event.Type, err)
	}

	p.logger.Debug("published event",
		zap.String("type", event.Type),
		zap.String("id", event.ID),
	)

	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ eventstream.Publisher = (*Publisher)(nil)

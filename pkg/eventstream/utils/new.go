// Package eventstreamutils is the event stream utility package
package eventstreamutils

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cartableai/cartable/pkg/eventstream"
	"github.com/cartableai/cartable/pkg/eventstream/kafka"
	"github.com/cartableai/cartable/pkg/eventstream/nop"
)

type NewPublisherOpts struct {
	ProviderType string
	Brokers      []string
	Topic        string
	Logger       *zap.Logger
}

func NewPublisher(o *NewPublisherOpts) (eventstream.Publisher, error) {
	switch o.ProviderType {
	case "", "nop":
		return nop.NewPublisher(), nil
	case "kafka":
		return kafka.NewPublisher(kafka.Config{
			Brokers: o.Brokers,
			Topic:   o.Topic,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported event stream provider: %s", o.ProviderType)
	}
}

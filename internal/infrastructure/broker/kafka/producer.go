// Package kafka carries order events between the dispatch core and its
// consumers: the shipment service publishes, the driver feed consumes.
package kafka

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"github.com/matjarly/dispatch-core/internal/core/ports"
)

// Topic names for the order push channel.
const (
	TopicOrderAssigned = "orders.assigned"
	TopicOrderUpdated  = "orders.updated"
)

// Producer publishes order events keyed by driver id so a driver's events
// stay ordered within a partition.
type Producer struct {
	w *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// Publish implements ports.OrderEventPublisher.
func (p *Producer) Publish(ctx context.Context, event ports.OrderEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal order event")
	}

	topic := TopicOrderUpdated
	if event.Type == ports.EventOrderAssigned {
		topic = TopicOrderAssigned
	}

	if err := p.w.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(event.DriverID),
		Value: value,
	}); err != nil {
		return errors.Wrap(err, "kafka publish")
	}
	return nil
}

func (p *Producer) Close() error {
	return p.w.Close()
}

package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"github.com/matjarly/dispatch-core/internal/core/ports"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads order events off both order topics and hands them to a
// handler. Messages are committed only after the handler succeeds.
type Consumer struct {
	r messageReader
}

func NewConsumer(brokers []string, groupID string) *Consumer {
	return &Consumer{
		r: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           brokers,
			GroupID:           groupID,
			GroupTopics:       []string{TopicOrderAssigned, TopicOrderUpdated},
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
		}),
	}
}

func newConsumerWithReader(r messageReader) *Consumer {
	return &Consumer{r: r}
}

func (c *Consumer) Close() error {
	return c.r.Close()
}

// Consume blocks fetching order events until ctx is cancelled or the
// handler fails.
func (c *Consumer) Consume(ctx context.Context, handler func(event ports.OrderEvent) error) error {
	for {
		msg, err := c.r.FetchMessage(ctx)
		if err != nil {
			return errors.Wrap(err, "fetch message")
		}

		var event ports.OrderEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			// malformed event: commit and move on rather than wedging the group
			if err := c.r.CommitMessages(ctx, msg); err != nil {
				return errors.Wrap(err, "commit malformed message")
			}
			continue
		}

		if err := handler(event); err != nil {
			return err
		}
		if err := c.r.CommitMessages(ctx, msg); err != nil {
			return errors.Wrap(err, "commit message")
		}
	}
}

package kafka

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/matjarly/dispatch-core/internal/core/ports"
)

type fakeReader struct {
	msgs      []kafka.Message
	committed []kafka.Message
}

func (f *fakeReader) FetchMessage(_ context.Context) (kafka.Message, error) {
	if len(f.msgs) == 0 {
		return kafka.Message{}, io.EOF
	}
	m := f.msgs[0]
	f.msgs = f.msgs[1:]
	return m, nil
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeReader) Close() error { return nil }

func eventMessage(t *testing.T, event ports.OrderEvent) kafka.Message {
	t.Helper()
	value, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Key: []byte(event.DriverID), Value: value}
}

func TestConsumer_HandlesAndCommits(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{
		eventMessage(t, ports.OrderEvent{Type: ports.EventOrderAssigned, OrderID: "o1", DriverID: "d1"}),
		eventMessage(t, ports.OrderEvent{Type: ports.EventOrderUpdated, OrderID: "o2", DriverID: "d1"}),
	}}
	c := newConsumerWithReader(r)

	var seen []ports.OrderEvent
	err := c.Consume(context.Background(), func(event ports.OrderEvent) error {
		seen = append(seen, event)
		return nil
	})
	require.ErrorIs(t, err, io.EOF)

	require.Len(t, seen, 2)
	require.Equal(t, "o1", seen[0].OrderID)
	require.Equal(t, ports.EventOrderUpdated, seen[1].Type)
	require.Len(t, r.committed, 2)
}

func TestConsumer_SkipsMalformedMessages(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{
		{Value: []byte("{not json")},
		eventMessage(t, ports.OrderEvent{Type: ports.EventOrderUpdated, OrderID: "o3", DriverID: "d2"}),
	}}
	c := newConsumerWithReader(r)

	var seen []ports.OrderEvent
	err := c.Consume(context.Background(), func(event ports.OrderEvent) error {
		seen = append(seen, event)
		return nil
	})
	require.ErrorIs(t, err, io.EOF)

	require.Len(t, seen, 1)
	require.Equal(t, "o3", seen[0].OrderID)
	// malformed message still committed so the group does not wedge
	require.Len(t, r.committed, 2)
}

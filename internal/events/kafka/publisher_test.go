package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/records-ledger/internal/models/events"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := &Publisher{writer: w}
	balance := decimal.RequireFromString("849.50")

	err := p.Publish(context.Background(), "collection_changed", "proveedores/7", events.CollectionChanged{
		Table:    "proveedores",
		ParentID: 7,
		RecordID: "abc",
		Op:       events.OpAppended,
		Balance:  &balance,
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "collection_changed", msg.Topic)
	assert.Equal(t, "proveedores/7", string(msg.Key))

	var got map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, "appended", got["op"])
	assert.Equal(t, "849.5", got["balance"])

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublisher_WriterError(t *testing.T) {
	p := &Publisher{writer: &fakeWriter{err: errors.New("no brokers")}}
	err := p.Publish(context.Background(), "t", "k", struct{}{})
	assert.EqualError(t, err, "no brokers")
}

func TestPublisher_EncodeError(t *testing.T) {
	p := &Publisher{writer: &fakeWriter{}}
	err := p.Publish(context.Background(), "t", "k", make(chan int))
	assert.Error(t, err)
}

package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	interfaces "github.com/sheikh-saqib/records-ledger/internal/interfaces"
)

// Publisher writes JSON events to Kafka. The topic is chosen per message.
type Publisher struct {
	writer messageWriter // *kafka.Writer outside tests
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewPublisher(brokers []string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...), // broker addresses to bootstrap from
			Balancer:     &kafka.Hash{},         // same parent row, same partition
			RequiredAcks: kafka.RequireOne,      // leader ack is enough for change events
			BatchTimeout: 10 * time.Millisecond, // flush quickly, events are small
		},
	}
}

func (p *Publisher) Publish(ctx context.Context, topic, key string, event any) error {
	// serialize event to JSON
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka: encode event: %w", err)
	}

	// write to Kafka, honouring the caller's deadline
	return p.writer.WriteMessages(ctx,
		kafka.Message{
			Topic: topic,
			Key:   []byte(key), // table/parentID
			Value: data,
		},
	)
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops every event. It is used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, string, any) error { return nil }

var (
	_ interfaces.EventPublisher = (*Publisher)(nil)
	_ interfaces.EventPublisher = NopPublisher{}
)

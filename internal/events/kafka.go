package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/noah-isme/backend-resto/internal/common"
	dbgen "github.com/noah-isme/backend-resto/internal/db/gen"
)

// MessageWriter is the part of kafka.Writer the notifier uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier streams events to a Kafka topic keyed by aggregate id, so every event of one
// order lands on the same partition in order.
type KafkaNotifier struct {
	Writer  MessageWriter
	Timeout time.Duration
}

// Envelope is the JSON value written for each event.
type Envelope struct {
	ID          string          `json:"id"`
	Topic       string          `json:"topic"`
	AggregateID string          `json:"aggregateId"`
	OccurredAt  time.Time       `json:"occurredAt"`
	Payload     json.RawMessage `json:"payload"`
}

// NewKafkaNotifier builds a synchronous writer for topic on brokers.
func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	return &KafkaNotifier{
		Writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			BatchTimeout:           10 * time.Millisecond,
			MaxAttempts:            3,
			AllowAutoTopicCreation: true,
		},
		Timeout: 5 * time.Second,
	}
}

// Name implements Named.
func (k *KafkaNotifier) Name() string { return "kafka" }

// Notify implements Notifier.
func (k *KafkaNotifier) Notify(ctx context.Context, ev dbgen.DomainEvent) error {
	if k == nil || k.Writer == nil {
		return errors.New("kafka writer not configured")
	}
	msg, err := Message(ev)
	if err != nil {
		return err
	}
	if k.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, k.Timeout)
		defer cancel()
	}
	if err := k.Writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

// Close flushes and closes the writer.
func (k *KafkaNotifier) Close() error {
	if k == nil || k.Writer == nil {
		return nil
	}
	return k.Writer.Close()
}

// Message converts a domain event into the Kafka record written by KafkaNotifier.
func Message(ev dbgen.DomainEvent) (kafka.Message, error) {
	payload := json.RawMessage(ev.Payload)
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	value, err := json.Marshal(Envelope{
		ID:          common.UUIDString(ev.ID),
		Topic:       ev.Topic,
		AggregateID: common.UUIDString(ev.AggregateID),
		OccurredAt:  ev.OccurredAt.Time.UTC(),
		Payload:     payload,
	})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode envelope: %w", err)
	}
	return kafka.Message{
		Key:   []byte(common.UUIDString(ev.AggregateID)),
		Value: value,
		Time:  ev.OccurredAt.Time,
		Headers: []kafka.Header{
			{Key: "topic", Value: []byte(ev.Topic)},
			{Key: "event-id", Value: []byte(common.UUIDString(ev.ID))},
		},
	}, nil
}

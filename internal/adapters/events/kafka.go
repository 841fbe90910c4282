package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/alejandrodnm/blinkbet/internal/domain"
)

// MessageWriter is the part of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewWriter returns a writer for topic on the given brokers.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
}

// KafkaPublisher writes bet events as JSON, keyed by bet id so every
// transition of one bet lands on the same partition in order.
type KafkaPublisher struct {
	w       MessageWriter
	timeout time.Duration
}

// NewKafkaPublisher wraps w. timeout bounds each write; 0 means 5s.
func NewKafkaPublisher(w MessageWriter, timeout time.Duration) *KafkaPublisher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &KafkaPublisher{w: w, timeout: timeout}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev domain.BetEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("events.Publish: marshal %s: %w", ev.Type, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(ev.BetID),
		Value: b,
		Time:  ev.At,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("events.Publish: write %s %s: %w", ev.Type, ev.BetID, err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

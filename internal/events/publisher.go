// Package events publishes workflow and submission lifecycle events to
// Kafka. Publishing is best effort: callers log failures and continue,
// the service never blocks on the broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/scholarpipe/research-assistant/internal/domain"
)

// messageWriter is the subset of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config holds Kafka publisher settings.
type Config struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string
	// Topic is the topic lifecycle events are published to.
	Topic string
	// BatchSize is the maximum number of messages per batch.
	BatchSize int
	// BatchTimeout is the maximum time to wait for a batch to fill.
	BatchTimeout time.Duration
}

// envelope is the wire format for published events.
type envelope struct {
	EventID       string          `json:"event_id"`
	EventVersion  int             `json:"event_version"`
	EventType     string          `json:"event_type"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	Payload       json.RawMessage `json:"payload"`
	CreatedAt     time.Time       `json:"created_at"`
}

// KafkaPublisher publishes domain events to a Kafka topic. Messages are
// keyed by aggregate id so events for one aggregate stay ordered within
// a partition.
type KafkaPublisher struct {
	writer messageWriter
	logger zerolog.Logger
}

// NewKafkaPublisher creates a publisher writing to cfg.Topic.
func NewKafkaPublisher(cfg Config, logger zerolog.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequireAll,
	}

	return &KafkaPublisher{
		writer: writer,
		logger: logger.With().Str("component", "event_publisher").Logger(),
	}
}

// Publish sends the event to Kafka.
func (p *KafkaPublisher) Publish(ctx context.Context, event *domain.Event) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}

	msg, err := buildMessage(event)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write event %s: %w", event.EventID, err)
	}

	p.logger.Debug().
		Str("event_id", event.EventID).
		Str("event_type", event.EventType).
		Str("aggregate_id", event.AggregateID).
		Msg("event published")
	return nil
}

// Close flushes buffered messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// buildMessage serializes the event into a keyed Kafka message.
func buildMessage(event *domain.Event) (kafka.Message, error) {
	value, err := json.Marshal(envelope{
		EventID:       event.EventID,
		EventVersion:  event.EventVersion,
		EventType:     event.EventType,
		AggregateID:   event.AggregateID,
		AggregateType: event.AggregateType,
		Payload:       event.Payload,
		CreatedAt:     event.CreatedAt,
	})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	return kafka.Message{
		Key:   []byte(event.AggregateID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.EventID)},
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "aggregate_type", Value: []byte(event.AggregateType)},
		},
	}, nil
}

// NopPublisher discards all events. Used when Kafka is disabled.
type NopPublisher struct{}

// Publish implements the publisher interface and does nothing.
func (NopPublisher) Publish(ctx context.Context, event *domain.Event) error {
	return nil
}

// Close implements the publisher interface and does nothing.
func (NopPublisher) Close() error {
	return nil
}

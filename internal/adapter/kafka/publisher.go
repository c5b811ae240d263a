package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/seismic-review-service/internal/config"
	"github.com/couchcryptid/seismic-review-service/internal/review"
)

// TransitionMessage is the payload published for every durable transition.
type TransitionMessage struct {
	MessageID uuid.UUID      `json:"message_id"`
	SessionID uuid.UUID      `json:"session_id"`
	EventID   string         `json:"event_id"`
	From      string         `json:"from_state"`
	To        string         `json:"to_state"`
	Actor     string         `json:"actor"`
	At        time.Time      `json:"at"`
	Filters   review.Filters `json:"filters"`
}

// Publisher produces transition audit messages to a Kafka topic.
// It implements review.Notifier.
type Publisher struct {
	writer messageWriter
	logger *slog.Logger
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// NewPublisher creates a Kafka producer for the configured audit topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaAuditTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish writes one message for entry, keyed by event id so every transition
// of an event lands on the same partition in order.
func (p *Publisher) Publish(ctx context.Context, entry review.AuditEntry) error {
	msg, err := serializeToMessage(entry, uuid.New())
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish transition %s: %w", entry.EventID, err)
	}
	p.logger.Debug("transition published", "event_id", entry.EventID, "to", entry.To)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals an audit entry into a Kafka message.
func serializeToMessage(entry review.AuditEntry, id uuid.UUID) (kafkago.Message, error) {
	data, err := json.Marshal(TransitionMessage{
		MessageID: id,
		SessionID: entry.SessionID,
		EventID:   string(entry.EventID),
		From:      entry.From,
		To:        entry.To,
		Actor:     entry.Actor,
		At:        entry.At,
		Filters:   entry.Filters,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize transition: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(entry.EventID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "to_state", Value: []byte(entry.To)},
			{Key: "transitioned_at", Value: []byte(entry.At.Format(time.RFC3339))},
		},
	}, nil
}

package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/gridcap-etl/internal/domain"
)

// Publisher produces substation change events to a Kafka topic.
// It implements pipeline.ChangePublisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the change-feed topic.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish serializes and writes all events in a single WriteMessages call.
// Events are keyed by ID so every change to one substation lands on the same
// partition.
func (p *Publisher) Publish(ctx context.Context, events []domain.ChangeEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(events))
	for i := range events {
		msg, err := serializeToMessage(events[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d change events: %w", len(msgs), err)
	}
	p.logger.Debug("change events published", "topic", p.writer.Topic, "count", len(msgs))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a ChangeEvent into a Kafka message.
func serializeToMessage(event domain.ChangeEvent) (kafkago.Message, error) {
	data, err := event.Marshal()
	if err != nil {
		return kafkago.Message{}, err
	}
	return kafkago.Message{
		Key:   []byte(event.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(event.RunID)},
			{Key: "match", Value: []byte(event.Match)},
			{Key: "processed_at", Value: []byte(event.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}

// Package broker consumes notification events from Kafka.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/sumire/issuemail/internal/domain"
)

// Handler processes one decoded event.
type Handler func(ctx context.Context, ev domain.NotificationEvent) error

type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer reads notification events from a topic within a consumer
// group.
type KafkaConsumer struct {
	reader reader
	logger *slog.Logger
}

// NewKafkaConsumer creates a consumer for topic.
func NewKafkaConsumer(brokers []string, groupID, topic string, logger *slog.Logger) *KafkaConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
		}),
		logger: logger.With("component", "kafka_consumer", "topic", topic),
	}
}

// Consume blocks until ctx is cancelled. Every fetched message is committed
// once handled, including messages that fail to decode or whose handler
// returns an error.
func (c *KafkaConsumer) Consume(ctx context.Context, handle Handler) error {
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.ErrorContext(ctx, "kafka read error", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		c.process(ctx, m, handle)

		if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			c.logger.ErrorContext(ctx, "kafka commit error",
				"partition", m.Partition,
				"offset", m.Offset,
				"error", err,
			)
		}
	}
}

func (c *KafkaConsumer) process(ctx context.Context, m kafka.Message, handle Handler) {
	ev, err := decodeMessage(m)
	if err != nil {
		c.logger.WarnContext(ctx, "dropping undecodable event",
			"partition", m.Partition,
			"offset", m.Offset,
			"error", err,
		)
		return
	}
	if err := handle(ctx, ev); err != nil {
		c.logger.ErrorContext(ctx, "handler error",
			"event", ev.Kind,
			"entity_id", ev.SubjectEntityID,
			"error", err,
		)
	}
}

// Close closes the underlying reader.
func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}

// decodeMessage parses a JSON event. A missing kind is taken from the last
// dot-separated segment of the topic, so "tracker.issue_created" carries
// issue_created events.
func decodeMessage(m kafka.Message) (domain.NotificationEvent, error) {
	var ev domain.NotificationEvent
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		return domain.NotificationEvent{}, fmt.Errorf("decode event: %w", err)
	}
	if ev.Kind == "" {
		ev.Kind = domain.EventKind(normalizeTopic(m.Topic))
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = m.Time.UTC()
	}
	if err := ev.Validate(); err != nil {
		return domain.NotificationEvent{}, err
	}
	return ev, nil
}

func normalizeTopic(topic string) string {
	if idx := strings.LastIndex(topic, "."); idx >= 0 {
		topic = topic[idx+1:]
	}
	return strings.TrimSpace(topic)
}

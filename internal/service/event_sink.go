package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/iconidentify/upclip/internal/domain"
)

// messageWriter is the part of *kafka.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink forwards events to a Kafka topic, keyed by category.
type KafkaSink struct {
	writer messageWriter
	topic  string
}

// NewKafkaSink creates an asynchronous writer for the given brokers. Delivery
// failures are logged, never returned to the emitter.
func NewKafkaSink(brokers []string, topic string, logger *slog.Logger) *KafkaSink {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
		Async:        true,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				logger.Warn("kafka event delivery failed", "topic", topic, "messages", len(msgs), "error", err)
			}
		},
	}
	return &KafkaSink{writer: w, topic: topic}
}

// Publish implements EventSink.
func (k *KafkaSink) Publish(ctx context.Context, event domain.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Category),
		Value: value,
		Time:  event.Timestamp,
	})
}

// Close flushes pending messages.
func (k *KafkaSink) Close() error {
	return k.writer.Close()
}

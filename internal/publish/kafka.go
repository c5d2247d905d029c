// Package publish emits accepted tips to Kafka for downstream consumers.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/rewired-gh/mobatips/internal/logger"
	"github.com/rewired-gh/mobatips/internal/models"
)

// MessageWriter is the subset of *kafka.Writer used by KafkaSink.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes each tip as one JSON message keyed by its map identifier.
type KafkaSink struct {
	writer MessageWriter
	now    func() time.Time
}

// NewWriter builds a writer for the tips topic.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
		ReadTimeout:            10 * time.Second,
		WriteTimeout:           10 * time.Second,
	}
}

func NewKafkaSink(w MessageWriter) *KafkaSink {
	return &KafkaSink{writer: w, now: time.Now}
}

// Deliver implements the monitor's TipSink.
func (k *KafkaSink) Deliver(ctx context.Context, tip models.ProfessionalTip) error {
	value, err := json.Marshal(tip)
	if err != nil {
		return fmt.Errorf("failed to marshal tip: %w", err)
	}

	key := tip.MapID
	if key == "" {
		key = tip.MatchID
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  k.now(),
		Headers: []kafka.Header{
			{Key: "type", Value: []byte("tip.generated")},
			{Key: "league", Value: []byte(tip.League)},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish tip %s: %w", tip.ID, err)
	}
	logger.Debug("Published tip %s for %s", tip.ID, key)
	return nil
}

func (k *KafkaSink) Close() error {
	return k.writer.Close()
}

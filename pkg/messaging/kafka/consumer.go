package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/quantbed/tickbook/pkg/messaging"
)

// ReportHandler processes one decoded report message.
type ReportHandler func(msg *messaging.ReportMessage) error

// Consumer reads report messages from a Kafka topic and hands them to
// a handler. Decode failures are logged and skipped; handler errors
// stop consumption.
type Consumer struct {
	reader *kafka.Reader
	logger zerolog.Logger
}

// NewConsumer creates a consumer over one topic. groupID may be empty
// for a bare partition reader.
func NewConsumer(brokerAddr, topic, groupID string, logger zerolog.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: []string{brokerAddr},
			Topic:   topic,
			GroupID: groupID,
		}),
		logger: logger,
	}
}

// Consume reads messages until the context is canceled or the handler
// fails.
func (c *Consumer) Consume(ctx context.Context, handle ReportHandler) error {
	for {
		kmsg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read message: %w", err)
		}

		var msg messaging.ReportMessage
		if err := json.Unmarshal(kmsg.Value, &msg); err != nil {
			c.logger.Warn().Err(err).
				Str("key", string(kmsg.Key)).
				Int64("offset", kmsg.Offset).
				Msg("Skipping undecodable report message")
			continue
		}

		if err := handle(&msg); err != nil {
			return fmt.Errorf("handle report for order %d: %w", msg.OrderID, err)
		}
	}
}

// Close closes the Kafka reader
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// SetupConsumer starts a consumer goroutine that logs every report it
// sees. It is the default downstream when no real consumer is wired.
func SetupConsumer(ctx context.Context, brokerAddr, topic, groupID string, logger zerolog.Logger) *Consumer {
	consumer := NewConsumer(brokerAddr, topic, groupID, logger)

	go func() {
		logger.Info().Str("topic", topic).Msg("Starting Kafka consumer")
		err := consumer.Consume(ctx, func(msg *messaging.ReportMessage) error {
			logger.Info().
				Uint64("order_id", msg.OrderID).
				Str("side", msg.Side).
				Str("type", msg.Type).
				Str("disposition", msg.Disposition).
				Str("executed", msg.Executed).
				Str("remaining", msg.Remaining).
				Bool("stored", msg.Stored).
				Int("fills", len(msg.Fills)).
				Msg("Received report message")
			return nil
		})
		if err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("Kafka consumer error")
		}
	}()

	return consumer
}

// Package kafka delivers execution reports over Kafka using kafka-go.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/quantbed/tickbook/pkg/messaging"
)

// ReportSender implements messaging.ReportSender using a kafka-go
// writer. Messages are keyed by order ID so all reports for one order
// land on the same partition, in order.
type ReportSender struct {
	writer *kafka.Writer
	topic  string
}

// NewReportSender creates a Kafka report sender.
func NewReportSender(brokerAddr, topic string) (*ReportSender, error) {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokerAddr),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &ReportSender{
		writer: writer,
		topic:  topic,
	}, nil
}

// SendReport publishes one report message.
func (s *ReportSender) SendReport(ctx context.Context, msg *messaging.ReportMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal report message: %w", err)
	}

	kmsg := kafka.Message{
		Key:   []byte(msg.Key()),
		Value: data,
		Time:  time.Now(),
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.writer.WriteMessages(ctx, kmsg); err != nil {
		return fmt.Errorf("failed to send message to Kafka: %w", err)
	}
	return nil
}

// Close closes the Kafka writer
func (s *ReportSender) Close() error {
	return s.writer.Close()
}

// Ensure ReportSender implements messaging.ReportSender
var _ messaging.ReportSender = (*ReportSender)(nil)

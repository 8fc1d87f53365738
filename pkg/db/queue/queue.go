// Package queue is the durable report feed: a sarama producer writing
// JSON report messages to Kafka, with a pooled sender for hot paths and
// a partition consumer for downstream processors.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"github.com/quantbed/tickbook/pkg/messaging"
)

var (
	brokerList = []string{"localhost:9092"}
	topic      = "tickbook-reports"
)

const maxRetry = 5

// newSyncProducer is swapped out in tests.
var newSyncProducer = sarama.NewSyncProducer

// newConsumer is swapped out in tests.
var newConsumer = func(addrs []string, config *sarama.Config) (sarama.Consumer, error) {
	return sarama.NewConsumer(addrs, config)
}

// SetBrokerList overrides the Kafka broker addresses. Call before the
// first sender or consumer is created.
func SetBrokerList(brokers []string) {
	if len(brokers) > 0 {
		brokerList = brokers
	}
}

// SetTopic overrides the report topic. Call before the first sender or
// consumer is created.
func SetTopic(t string) {
	if t != "" {
		topic = t
	}
}

// QueueReportSender implements the messaging.ReportSender interface
// for sending report messages to Kafka.
type QueueReportSender struct {
	producer sarama.SyncProducer
}

// NewQueueReportSender creates a sender with its own sync producer.
func NewQueueReportSender() (*QueueReportSender, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = maxRetry
	config.Producer.Return.Successes = true

	producer, err := newSyncProducer(brokerList, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return &QueueReportSender{producer: producer}, nil
}

// SendReport sends the report message to the Kafka queue.
func (q *QueueReportSender) SendReport(_ context.Context, msg *messaging.ReportMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal report message: %w", err)
	}

	pmsg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(msg.Key()),
		Value: sarama.ByteEncoder(data),
	}

	if _, _, err := q.producer.SendMessage(pmsg); err != nil {
		return fmt.Errorf("failed to send message to Kafka: %w", err)
	}
	return nil
}

// Close closes the underlying producer.
func (q *QueueReportSender) Close() error {
	return q.producer.Close()
}

// Ensure QueueReportSender implements messaging.ReportSender
var _ messaging.ReportSender = (*QueueReportSender)(nil)

// QueueReportConsumer consumes report messages from the Kafka queue.
type QueueReportConsumer struct {
	consumer sarama.Consumer
	done     chan struct{}
}

// NewQueueReportConsumer creates a consumer against the configured
// brokers.
func NewQueueReportConsumer() (*QueueReportConsumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Return.Errors = true

	consumer, err := newConsumer(brokerList, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}
	return &QueueReportConsumer{
		consumer: consumer,
		done:     make(chan struct{}),
	}, nil
}

// ConsumeReports reads report messages from the newest offset and hands
// each to the callback. It returns when Close is called or the callback
// fails.
func (q *QueueReportConsumer) ConsumeReports(handle func(msg *messaging.ReportMessage) error) error {
	pc, err := q.consumer.ConsumePartition(topic, 0, sarama.OffsetNewest)
	if err != nil {
		return fmt.Errorf("failed to consume partition: %w", err)
	}
	defer pc.Close()

	for {
		select {
		case kmsg, ok := <-pc.Messages():
			if !ok {
				return nil
			}
			var msg messaging.ReportMessage
			if err := json.Unmarshal(kmsg.Value, &msg); err != nil {
				// Skip poison messages rather than wedging the feed.
				continue
			}
			if err := handle(&msg); err != nil {
				return err
			}
		case kerr, ok := <-pc.Errors():
			if !ok {
				return nil
			}
			return fmt.Errorf("consumer error: %w", kerr.Err)
		case <-q.done:
			return nil
		}
	}
}

// Close stops consumption and closes the underlying consumer.
func (q *QueueReportConsumer) Close() error {
	select {
	case <-q.done:
	default:
		close(q.done)
	}
	return q.consumer.Close()
}

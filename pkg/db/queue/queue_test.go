package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantbed/tickbook/pkg/messaging"
)

func testReportMessage() *messaging.ReportMessage {
	return &messaging.ReportMessage{
		OrderID:     17,
		Side:        "BUY",
		Type:        "LIMIT",
		Disposition: "PARTIALLY_FILLED",
		Price:       "102.5",
		Quantity:    "1.5",
		Executed:    "0.5",
		Remaining:   "1",
		Stored:      true,
		Fills: []messaging.FillMessage{
			{MakerID: 3, TakerID: 17, Price: "102.5", Quantity: "0.5", MakerRemaining: "0.2"},
		},
	}
}

func TestQueueReportSender_SendReport(t *testing.T) {
	mockProd := &mockProducer{}

	// Override the producer creation with our mock
	oldNewSyncProducer := newSyncProducer
	defer func() { newSyncProducer = oldNewSyncProducer }()
	newSyncProducer = func(addrs []string, config *sarama.Config) (sarama.SyncProducer, error) {
		return mockProd, nil
	}

	sender, err := NewQueueReportSender()
	require.NoError(t, err)
	defer sender.Close()

	expected := testReportMessage()
	require.NoError(t, sender.SendReport(context.Background(), expected))

	require.Len(t, mockProd.sentMessages, 1)
	msg := mockProd.sentMessages[0]
	require.Equal(t, topic, msg.Topic)

	key, err := msg.Key.Encode()
	require.NoError(t, err)
	assert.Equal(t, expected.Key(), string(key))

	var decoded messaging.ReportMessage
	require.NoError(t, json.Unmarshal(msg.Value.(sarama.ByteEncoder), &decoded))
	assert.Equal(t, *expected, decoded)
}

func TestQueueReportSender_SendReportPropagatesProducerError(t *testing.T) {
	mockProd := &mockProducer{sendErr: errors.New("broker down")}

	oldNewSyncProducer := newSyncProducer
	defer func() { newSyncProducer = oldNewSyncProducer }()
	newSyncProducer = func(addrs []string, config *sarama.Config) (sarama.SyncProducer, error) {
		return mockProd, nil
	}

	sender, err := NewQueueReportSender()
	require.NoError(t, err)
	defer sender.Close()

	err = sender.SendReport(context.Background(), testReportMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestQueueReportConsumer_ConsumeReports(t *testing.T) {
	mock := &mockConsumer{
		messages: make(chan *sarama.ConsumerMessage, 1),
		errors:   make(chan *sarama.ConsumerError, 1),
	}
	consumer := &QueueReportConsumer{
		consumer: mock,
		done:     make(chan struct{}),
	}

	expected := testReportMessage()
	raw, err := json.Marshal(expected)
	require.NoError(t, err)

	received := make(chan *messaging.ReportMessage, 1)
	go func() {
		_ = consumer.ConsumeReports(func(msg *messaging.ReportMessage) error {
			received <- msg
			return nil
		})
	}()

	mock.messages <- &sarama.ConsumerMessage{Value: raw}

	select {
	case msg := <-received:
		assert.Equal(t, *expected, *msg)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}

	require.NoError(t, consumer.Close())
}

func TestQueueReportConsumer_SkipsPoisonMessages(t *testing.T) {
	mock := &mockConsumer{
		messages: make(chan *sarama.ConsumerMessage, 2),
		errors:   make(chan *sarama.ConsumerError, 1),
	}
	consumer := &QueueReportConsumer{
		consumer: mock,
		done:     make(chan struct{}),
	}

	expected := testReportMessage()
	raw, err := json.Marshal(expected)
	require.NoError(t, err)

	received := make(chan *messaging.ReportMessage, 1)
	go func() {
		_ = consumer.ConsumeReports(func(msg *messaging.ReportMessage) error {
			received <- msg
			return nil
		})
	}()

	mock.messages <- &sarama.ConsumerMessage{Value: []byte("{garbage")}
	mock.messages <- &sarama.ConsumerMessage{Value: raw}

	select {
	case msg := <-received:
		assert.Equal(t, expected.OrderID, msg.OrderID)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}

	require.NoError(t, consumer.Close())
}

func TestSetBrokerListAndTopicIgnoreEmptyValues(t *testing.T) {
	oldBrokers, oldTopic := brokerList, topic
	defer func() { brokerList, topic = oldBrokers, oldTopic }()

	SetBrokerList(nil)
	assert.Equal(t, oldBrokers, brokerList)
	SetTopic("")
	assert.Equal(t, oldTopic, topic)

	SetBrokerList([]string{"kafka-1:9092", "kafka-2:9092"})
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, brokerList)
	SetTopic("reports-test")
	assert.Equal(t, "reports-test", topic)
}

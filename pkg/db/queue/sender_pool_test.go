package queue

import (
	"context"
	"testing"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantbed/tickbook/pkg/messaging"
)

// poolMock backs every pooled sender in this package's tests. The pool
// initializes exactly once per process, so a single shared producer is
// the only mock the pooled senders can ever wrap.
var poolMock = &mockProducer{}

func usePooledMockProducer(t *testing.T) *mockProducer {
	t.Helper()

	oldNewSyncProducer := newSyncProducer
	t.Cleanup(func() { newSyncProducer = oldNewSyncProducer })
	newSyncProducer = func(addrs []string, config *sarama.Config) (sarama.SyncProducer, error) {
		return poolMock, nil
	}

	initSenderPool()
	return poolMock
}

func TestPooledSendReportUsesPoolAndDelivers(t *testing.T) {
	mockProd := usePooledMockProducer(t)
	before := len(mockProd.sentMessages)

	msg := testReportMessage()
	require.NoError(t, SendReport(context.Background(), msg))

	require.Len(t, mockProd.sentMessages, before+1)
	sent := mockProd.sentMessages[before]
	assert.Equal(t, topic, sent.Topic)

	key, err := sent.Key.Encode()
	require.NoError(t, err)
	assert.Equal(t, msg.Key(), string(key))

	// The sender went back to the pool; the pool must still be full.
	assert.Len(t, senderPool, maxPoolSize)
}

func TestGetSenderCheckoutAndReturn(t *testing.T) {
	usePooledMockProducer(t)

	checked := make([]messaging.ReportSender, 0, maxPoolSize)
	for i := 0; i < maxPoolSize; i++ {
		sender := GetSender()
		require.NotNil(t, sender, "pool drained early at %d", i)
		checked = append(checked, sender)
	}

	// Every sender is checked out now.
	assert.Nil(t, GetSender())

	for _, sender := range checked {
		ReturnSender(sender)
	}
	assert.Len(t, senderPool, maxPoolSize)

	// Returning a sender that was never checked out closes it instead
	// of growing the pool.
	extra, err := NewQueueReportSender()
	require.NoError(t, err)
	ReturnSender(extra)
	assert.Len(t, senderPool, maxPoolSize)
}

func TestReturnSenderIgnoresNil(t *testing.T) {
	usePooledMockProducer(t)
	ReturnSender(nil)
	assert.Len(t, senderPool, maxPoolSize)
}

package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/nikolaydubina/fpdecimal"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantbed/tickbook/pkg/core"
)

// assertDecimalEqual compares decimal strings by value, since the
// rendered form may differ in trailing zeros ("1.5" vs "1.500").
func assertDecimalEqual(t *testing.T, expected, actual string) {
	t.Helper()
	e, err := fpdecimal.FromString(expected)
	require.NoError(t, err)
	a, err := fpdecimal.FromString(actual)
	require.NoError(t, err)
	assert.True(t, e.Equal(a), "expected %s, got %s", expected, actual)
}

func testCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec("0.01", "0.001")
	require.NoError(t, err)
	return c
}

func TestNewCodecRejectsBadSteps(t *testing.T) {
	_, err := NewCodec("0", "0.001")
	assert.Error(t, err)
	_, err = NewCodec("0.01", "-1")
	assert.Error(t, err)
}

func TestFromReportScalesTicksToDecimals(t *testing.T) {
	codec := testCodec(t)
	rep := &core.Report{
		OrderID:     7,
		Side:        core.Buy,
		Type:        core.TypeLimit,
		Price:       10250, // 102.50 at tick 0.01
		Quantity:    1500,  // 1.5 at lot 0.001
		Executed:    500,
		Remaining:   1000,
		Disposition: core.DispositionPartiallyFilled,
		Stored:      true,
		Fills: []core.Fill{
			{MakerID: 3, TakerID: 7, Price: 10250, Quantity: 500, MakerRemaining: 200},
		},
	}

	msg := codec.FromReport(rep)
	assert.Equal(t, uint64(7), msg.OrderID)
	assert.Equal(t, "BUY", msg.Side)
	assert.Equal(t, "LIMIT", msg.Type)
	assert.Equal(t, "PARTIALLY_FILLED", msg.Disposition)
	assertDecimalEqual(t, "102.5", msg.Price)
	assertDecimalEqual(t, "1.5", msg.Quantity)
	assertDecimalEqual(t, "0.5", msg.Executed)
	assertDecimalEqual(t, "1", msg.Remaining)
	assert.True(t, msg.Stored)
	require.Len(t, msg.Fills, 1)
	assert.Equal(t, uint64(3), msg.Fills[0].MakerID)
	assertDecimalEqual(t, "102.5", msg.Fills[0].Price)
	assertDecimalEqual(t, "0.5", msg.Fills[0].Quantity)
	assertDecimalEqual(t, "0.2", msg.Fills[0].MakerRemaining)
}

func TestFromReportOmitsPriceForMarketOrders(t *testing.T) {
	codec := testCodec(t)
	rep := &core.Report{
		OrderID:     1,
		Side:        core.Sell,
		Type:        core.TypeMarket,
		Quantity:    100,
		Remaining:   100,
		Disposition: core.DispositionRejected,
		Reason:      core.ReasonNoLiquidity,
	}

	msg := codec.FromReport(rep)
	assert.Empty(t, msg.Price)
	assert.Equal(t, core.ReasonNoLiquidity, msg.Reason)
}

func TestReportMessageKey(t *testing.T) {
	msg := &ReportMessage{OrderID: 42}
	assert.Equal(t, "42", msg.Key())
}

func TestMockSenderRecordsMessages(t *testing.T) {
	mock := NewMockReportSender()
	require.NoError(t, mock.SendReport(context.Background(), &ReportMessage{OrderID: 1}))
	require.NoError(t, mock.SendReport(context.Background(), &ReportMessage{OrderID: 2}))

	sent := mock.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, uint64(1), sent[0].OrderID)
	assert.Equal(t, uint64(2), sent[1].OrderID)
}

func TestDispatcherDeliversInOrder(t *testing.T) {
	mock := NewMockReportSender()
	d := NewDispatcher(mock, 16, zerolog.Nop())
	d.Start(context.Background())

	for i := uint64(1); i <= 5; i++ {
		require.True(t, d.Enqueue(&ReportMessage{OrderID: i}))
	}
	require.NoError(t, d.Close())

	sent := mock.Sent()
	require.Len(t, sent, 5)
	for i, msg := range sent {
		assert.Equal(t, uint64(i+1), msg.OrderID)
	}
}

func TestDispatcherDropsOnOverflowWithoutBlocking(t *testing.T) {
	mock := NewMockReportSender()
	// Never started, so nothing drains the 2-slot buffer.
	d := NewDispatcher(mock, 2, zerolog.Nop())

	assert.True(t, d.Enqueue(&ReportMessage{OrderID: 1}))
	assert.True(t, d.Enqueue(&ReportMessage{OrderID: 2}))

	done := make(chan bool, 1)
	go func() {
		done <- d.Enqueue(&ReportMessage{OrderID: 3})
	}()
	select {
	case accepted := <-done:
		assert.False(t, accepted)
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on a full buffer")
	}
	assert.Equal(t, uint64(1), d.Dropped())
}

func TestDispatcherDrainsQueueOnClose(t *testing.T) {
	mock := NewMockReportSender()
	d := NewDispatcher(mock, 64, zerolog.Nop())

	// Enqueue before starting so everything is still buffered, then
	// start and immediately close: the drain must flush all of it.
	for i := uint64(1); i <= 20; i++ {
		require.True(t, d.Enqueue(&ReportMessage{OrderID: i}))
	}
	d.Start(context.Background())
	require.NoError(t, d.Close())

	assert.Len(t, mock.Sent(), 20)
}

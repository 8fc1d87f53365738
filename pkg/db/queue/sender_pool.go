package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/quantbed/tickbook/pkg/messaging"
)

var (
	senderPool   chan messaging.ReportSender
	poolInitOnce sync.Once
	maxPoolSize  = 32
)

// initSenderPool initializes the sender pool
func initSenderPool() {
	poolInitOnce.Do(func() {
		senderPool = make(chan messaging.ReportSender, maxPoolSize)
		// Pre-populate the entire pool
		for i := 0; i < maxPoolSize; i++ {
			sender, err := NewQueueReportSender()
			if err != nil {
				fmt.Printf("Error creating sender: %v\n", err)
				continue
			}
			senderPool <- sender
		}
	})
}

// GetSender gets a sender from the pool
func GetSender() messaging.ReportSender {
	initSenderPool()

	select {
	case sender := <-senderPool:
		return sender
	default:
		// Pool exhausted; every sender is checked out or creation
		// failed at init.
		fmt.Printf("Warning: sender pool is empty\n")
		return nil
	}
}

// ReturnSender returns a sender to the pool
func ReturnSender(sender messaging.ReportSender) {
	if sender == nil {
		return
	}

	select {
	case senderPool <- sender:
	default:
		// Pool already full; this sender was not checked out from it.
		fmt.Printf("Warning: sender pool is full\n")
		_ = sender.Close()
	}
}

// SendReport sends a report message using a pooled sender.
func SendReport(ctx context.Context, msg *messaging.ReportMessage) error {
	sender := GetSender()
	if sender == nil {
		return fmt.Errorf("failed to get report sender from pool")
	}
	defer ReturnSender(sender)

	if err := sender.SendReport(ctx, msg); err != nil {
		fmt.Printf("Error sending report: %v\n", err)
		return err
	}
	return nil
}

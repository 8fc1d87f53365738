package messaging

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Dispatcher decouples report delivery from the matching path. Enqueue
// never blocks: the book hands a report off and moves on, and a slow
// transport costs dropped messages rather than matching latency. The
// drop counter is the signal that the buffer needs resizing.
type Dispatcher struct {
	sender  ReportSender
	queue   chan *ReportMessage
	logger  zerolog.Logger
	dropped atomic.Uint64

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewDispatcher builds a Dispatcher over sender with the given buffer
// size. A zero or negative buffer gets a sane default.
func NewDispatcher(sender ReportSender, buffer int, logger zerolog.Logger) *Dispatcher {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Dispatcher{
		sender: sender,
		queue:  make(chan *ReportMessage, buffer),
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start launches the delivery goroutine. Safe to call once; further
// calls are no-ops.
func (d *Dispatcher) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		d.wg.Add(1)
		go d.run(ctx)
	})
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case msg := <-d.queue:
			if err := d.sender.SendReport(ctx, msg); err != nil {
				d.logger.Error().Err(err).
					Uint64("order_id", msg.OrderID).
					Str("disposition", msg.Disposition).
					Msg("Failed to deliver report")
			}
		case <-d.done:
			// Drain what is already queued before exiting.
			for {
				select {
				case msg := <-d.queue:
					if err := d.sender.SendReport(ctx, msg); err != nil {
						d.logger.Error().Err(err).
							Uint64("order_id", msg.OrderID).
							Msg("Failed to deliver report during drain")
					}
				default:
					return
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

// Enqueue hands a message to the delivery goroutine without blocking.
// It reports false when the buffer is full and the message was dropped.
func (d *Dispatcher) Enqueue(msg *ReportMessage) bool {
	select {
	case d.queue <- msg:
		return true
	default:
		n := d.dropped.Add(1)
		d.logger.Warn().
			Uint64("order_id", msg.OrderID).
			Uint64("dropped_total", n).
			Msg("Report queue full, dropping message")
		return false
	}
}

// Dropped returns how many messages have been dropped on overflow.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// Close stops the delivery goroutine after draining the queue and
// closes the underlying sender.
func (d *Dispatcher) Close() error {
	d.stopOnce.Do(func() {
		close(d.done)
	})
	d.wg.Wait()
	return d.sender.Close()
}

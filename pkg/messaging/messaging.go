// Package messaging carries execution reports out of the matching core.
// The core stays synchronous and storage-free; everything here is the
// delivery boundary, where integer ticks become decimal strings and
// reports fan out to whatever transport is configured.
package messaging

import (
	"context"
	"strconv"

	"github.com/quantbed/tickbook/pkg/core"
	"github.com/quantbed/tickbook/pkg/scale"
)

// ReportSender defines an interface for delivering execution reports.
// This helps decouple the core package from specific transports like
// Kafka or Redis.
type ReportSender interface {
	SendReport(ctx context.Context, msg *ReportMessage) error
	Close() error
}

// ReportMessage is the wire form of an execution report. Prices and
// quantities are decimal strings; consumers never see raw ticks.
type ReportMessage struct {
	OrderID     uint64        `json:"order_id"`
	Side        string        `json:"side"`
	Type        string        `json:"type"`
	Disposition string        `json:"disposition"`
	Reason      string        `json:"reason,omitempty"`
	Price       string        `json:"price,omitempty"`
	Quantity    string        `json:"quantity"`
	Executed    string        `json:"executed"`
	Remaining   string        `json:"remaining"`
	Stored      bool          `json:"stored"`
	Fills       []FillMessage `json:"fills,omitempty"`
}

// FillMessage represents a single trade execution within a report.
type FillMessage struct {
	MakerID        uint64 `json:"maker_id"`
	TakerID        uint64 `json:"taker_id"`
	Price          string `json:"price"`
	Quantity       string `json:"quantity"`
	MakerRemaining string `json:"maker_remaining"`
}

// Codec converts core reports to wire messages. It owns the two
// scalers of the instrument: one for the price grid, one for the
// quantity grid.
type Codec struct {
	price scale.Scaler
	qty   scale.Scaler
}

// NewCodec builds a Codec from the instrument's tick and lot sizes.
func NewCodec(tickSize, lotSize string) (*Codec, error) {
	price, err := scale.NewScaler(tickSize)
	if err != nil {
		return nil, err
	}
	qty, err := scale.NewScaler(lotSize)
	if err != nil {
		return nil, err
	}
	return &Codec{price: price, qty: qty}, nil
}

// PriceScaler returns the price-grid scaler.
func (c *Codec) PriceScaler() scale.Scaler { return c.price }

// QuantityScaler returns the quantity-grid scaler.
func (c *Codec) QuantityScaler() scale.Scaler { return c.qty }

// FromReport renders a core report as a wire message.
func (c *Codec) FromReport(rep *core.Report) *ReportMessage {
	msg := &ReportMessage{
		OrderID:     uint64(rep.OrderID),
		Side:        rep.Side.String(),
		Type:        string(rep.Type),
		Disposition: string(rep.Disposition),
		Reason:      rep.Reason,
		Quantity:    c.qty.FromTicks(rep.Quantity).String(),
		Executed:    c.qty.FromTicks(rep.Executed).String(),
		Remaining:   c.qty.FromTicks(rep.Remaining).String(),
		Stored:      rep.Stored,
	}
	if rep.Price > 0 {
		msg.Price = c.price.FromTicks(rep.Price).String()
	}
	if len(rep.Fills) > 0 {
		msg.Fills = make([]FillMessage, 0, len(rep.Fills))
		for _, f := range rep.Fills {
			msg.Fills = append(msg.Fills, FillMessage{
				MakerID:        uint64(f.MakerID),
				TakerID:        uint64(f.TakerID),
				Price:          c.price.FromTicks(f.Price).String(),
				Quantity:       c.qty.FromTicks(f.Quantity).String(),
				MakerRemaining: c.qty.FromTicks(f.MakerRemaining).String(),
			})
		}
	}
	return msg
}

// Key returns the partitioning key for a message. Reports for the same
// order must stay ordered, so the order ID is the key.
func (m *ReportMessage) Key() string {
	return strconv.FormatUint(m.OrderID, 10)
}

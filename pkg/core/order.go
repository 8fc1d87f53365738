package core

import "fmt"

// Side represents buy or sell side of an order
type Side int

// Order sides
const (
	Sell Side = iota
	Buy
)

// String returns side as string
func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the side as BUY or SELL
func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes BUY or SELL
func (s *Side) UnmarshalText(text []byte) error {
	switch string(text) {
	case "BUY":
		*s = Buy
	case "SELL":
		*s = Sell
	default:
		return fmt.Errorf("%w: side %q", ErrInvalidArgument, text)
	}
	return nil
}

// Opposite returns the other side of the book
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// OrderType represents type of the order
type OrderType string

// Order types
const (
	TypeMarket OrderType = "MARKET"
	TypeLimit  OrderType = "LIMIT"
)

// OrderID is the stable external handle for an order. Handles are
// allocated from a monotonic counter and are never reused, so a freed
// arena slot can be recycled without resurrecting an old handle.
type OrderID uint64

// Ticket is a fully validated-at-the-edge order intent. Prices are
// integer ticks; decimal scaling happens outside the core (pkg/scale).
type Ticket struct {
	Type     OrderType `json:"type"`
	Side     Side      `json:"side"`
	Price    int64     `json:"price,omitempty"` // ticks, limit only
	Quantity int64     `json:"quantity"`
}

// LimitTicket builds a limit order intent
func LimitTicket(side Side, price, quantity int64) Ticket {
	return Ticket{Type: TypeLimit, Side: side, Price: price, Quantity: quantity}
}

// MarketTicket builds a market order intent
func MarketTicket(side Side, quantity int64) Ticket {
	return Ticket{Type: TypeMarket, Side: side, Quantity: quantity}
}

// Order is a single order record. Resting orders live in the book's
// arena; prev/next link the record into its price level FIFO queue and
// are arena slot indices, not pointers.
type Order struct {
	ID        OrderID
	Seq       uint64 // arrival sequence; reassigned when a modify loses queue position
	Side      Side
	Type      OrderType
	Price     int64 // ticks; meaningless for market orders
	Quantity  int64 // original quantity
	Remaining int64

	prev, next uint32
}

// PriceSize is a top-of-book view: the best price and the aggregate
// remaining quantity resting at it.
type PriceSize struct {
	Price int64
	Size  int64
}

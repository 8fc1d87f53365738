package core

import (
	"fmt"
	"strings"
)

// Default ladder geometry, matching a whole-tick market from 1 to
// 999999 ticks.
const (
	DefaultMinPrice      = 1
	DefaultMaxPrice      = 999999
	DefaultTickSize      = 1
	DefaultArenaCapacity = 1024
)

// BookOptions configures a Book. Zero values fall back to defaults.
type BookOptions struct {
	MinPrice      int64
	MaxPrice      int64
	TickSize      int64
	ArenaCapacity int
	// MaxOrders caps arena growth; 0 means unbounded. Hitting the cap
	// is fatal for the book instance (ErrCapacityExhausted).
	MaxOrders int
	// UncheckedArena disables the per-access liveness guard on the hot
	// path. Keep it off unless the workload is proven against the
	// checked build.
	UncheckedArena bool
}

// DefaultBookOptions returns the default book configuration
func DefaultBookOptions() BookOptions {
	return BookOptions{
		MinPrice:      DefaultMinPrice,
		MaxPrice:      DefaultMaxPrice,
		TickSize:      DefaultTickSize,
		ArenaCapacity: DefaultArenaCapacity,
	}
}

// Book is a single-market limit order book: one arena shared by both
// sides, a bid ladder and an ask ladder indexing into it, and a map
// from external order handles to arena slots. A Book is exclusively
// owned by one execution context; it is not safe for concurrent use.
type Book struct {
	arena *arena
	bids  *ladder
	asks  *ladder
	ids   map[OrderID]uint32

	// seq feeds both handle allocation and arrival sequence numbers;
	// one counter keeps replay ordering total.
	seq uint64
}

// NewBook creates an empty order book
func NewBook(opts BookOptions) *Book {
	if opts.TickSize <= 0 {
		opts.TickSize = DefaultTickSize
	}
	if opts.MinPrice <= 0 {
		opts.MinPrice = DefaultMinPrice
	}
	if opts.MaxPrice < opts.MinPrice {
		opts.MaxPrice = DefaultMaxPrice
	}
	if opts.ArenaCapacity <= 0 {
		opts.ArenaCapacity = DefaultArenaCapacity
	}

	arena := newArena(opts.ArenaCapacity, opts.MaxOrders, !opts.UncheckedArena)

	return &Book{
		arena: arena,
		bids:  newLadder(Buy, opts.MinPrice, opts.MaxPrice, opts.TickSize, arena),
		asks:  newLadder(Sell, opts.MinPrice, opts.MaxPrice, opts.TickSize, arena),
		ids:   make(map[OrderID]uint32),
	}
}

// Accept processes one order intent to completion and returns the
// ordered outcome batch. Validation failures reject the intent and
// leave the book exactly as it was.
func (b *Book) Accept(t Ticket) (*Report, error) {
	switch t.Type {
	case TypeMarket:
		return b.processMarket(t)
	case TypeLimit:
		return b.processLimit(t)
	default:
		rep := newReport(b.allocID(), t)
		return rep.reject(ErrInvalidArgument.Error()), ErrInvalidArgument
	}
}

func (b *Book) processLimit(t Ticket) (*Report, error) {
	id := b.allocID()
	rep := newReport(id, t)

	if t.Quantity <= 0 {
		return rep.reject(ErrInvalidQuantity.Error()), ErrInvalidQuantity
	}
	if t.Price <= 0 {
		return rep.reject(ErrInvalidPrice.Error()), ErrInvalidPrice
	}
	own := b.ladderFor(t.Side)
	if _, ok := own.indexOf(t.Price); !ok {
		return rep.reject(ErrInvalidPrice.Error()), ErrInvalidPrice
	}

	return b.limitFlow(rep, id, t.Side, t.Price, t.Quantity)
}

// limitFlow runs the already-validated limit path: match against the
// opposing ladder, then rest any remainder on the own side. It is
// shared by Accept and by cancel-and-replace modifies.
func (b *Book) limitFlow(rep *Report, id OrderID, side Side, price, quantity int64) (*Report, error) {
	remaining, err := b.fillAgainst(rep, id, side, price, false, quantity)
	if err != nil {
		return rep.reject(err.Error()), err
	}

	if remaining == 0 {
		rep.Disposition = DispositionFilled
		return rep, nil
	}

	ord := Order{
		ID:        id,
		Seq:       b.allocSeq(),
		Side:      side,
		Type:      TypeLimit,
		Price:     price,
		Quantity:  quantity,
		Remaining: remaining,
	}

	idx, err := b.arena.alloc(ord)
	if err != nil {
		return rep.reject(err.Error()), err
	}

	resting, err := b.arena.at(idx)
	if err != nil {
		return rep.reject(err.Error()), err
	}
	if err := b.ladderFor(side).push(idx, resting); err != nil {
		b.arena.release(idx)
		return rep.reject(err.Error()), err
	}

	b.ids[id] = idx
	rep.Stored = true
	rep.Disposition = DispositionRested
	return rep, nil
}

func (b *Book) processMarket(t Ticket) (*Report, error) {
	id := b.allocID()
	rep := newReport(id, t)
	rep.Price = 0 // market orders carry no price

	if t.Quantity <= 0 {
		return rep.reject(ErrInvalidQuantity.Error()), ErrInvalidQuantity
	}

	remaining, err := b.fillAgainst(rep, id, t.Side, 0, true, t.Quantity)
	if err != nil {
		return rep.reject(err.Error()), err
	}

	switch {
	case remaining == t.Quantity:
		// No opposing liquidity at all; nothing was mutated.
		return rep.reject(ReasonNoLiquidity), ErrNoLiquidity
	case remaining > 0:
		// Market remainders never rest; they are discarded.
		rep.Disposition = DispositionPartiallyFilled
		rep.Reason = ReasonNoLiquidity
	default:
		rep.Disposition = DispositionFilled
	}

	return rep, nil
}

// fillAgainst walks the opposing ladder from best price inward, filling
// the incoming quantity against level queues in FIFO order. Fills
// execute at the resting order's price. Returns the unfilled remainder.
func (b *Book) fillAgainst(rep *Report, takerID OrderID, side Side, limitPrice int64, market bool, quantity int64) (int64, error) {
	opp := b.ladderFor(side.Opposite())
	remaining := quantity

	for remaining > 0 {
		li, ok := opp.bestLevel()
		if !ok {
			break
		}

		price := opp.priceAt(li)
		if !market && !crosses(side, limitPrice, price) {
			break
		}

		level := &opp.levels[li]
		for remaining > 0 && level.head != noSlot {
			headIdx := level.head
			maker, err := b.arena.at(headIdx)
			if err != nil {
				return remaining, err
			}

			traded := remaining
			if maker.Remaining < traded {
				traded = maker.Remaining
			}

			maker.Remaining -= traded
			level.totalSize -= traded
			remaining -= traded

			rep.appendFill(Fill{
				MakerID:        maker.ID,
				TakerID:        takerID,
				Price:          price,
				Quantity:       traded,
				MakerRemaining: maker.Remaining,
			})

			if maker.Remaining == 0 {
				if err := opp.unlink(headIdx, maker, level); err != nil {
					return remaining, err
				}
				delete(b.ids, maker.ID)
				b.arena.release(headIdx)
			}
		}

		if level.isEmpty() {
			opp.advanceBest()
		}
	}

	return remaining, nil
}

// crosses reports whether an incoming limit price is matchable against
// an opposing book price.
func crosses(side Side, limitPrice, bookPrice int64) bool {
	if side == Buy {
		return limitPrice >= bookPrice
	}
	return limitPrice <= bookPrice
}

// Cancel removes a resting order, frees its arena slot and reports the
// cancellation. Unknown or already-terminal handles are rejected with
// ErrOrderNotFound and the book is untouched.
func (b *Book) Cancel(id OrderID) (*Report, error) {
	idx, ok := b.ids[id]
	if !ok {
		rep := &Report{OrderID: id, Disposition: DispositionRejected, Reason: ErrOrderNotFound.Error()}
		return rep, ErrOrderNotFound
	}

	ord, err := b.arena.at(idx)
	if err != nil {
		return &Report{OrderID: id, Disposition: DispositionRejected, Reason: err.Error()}, err
	}

	rep := &Report{
		OrderID:     id,
		Side:        ord.Side,
		Type:        ord.Type,
		Price:       ord.Price,
		Quantity:    ord.Quantity,
		Executed:    ord.Quantity - ord.Remaining,
		Remaining:   ord.Remaining,
		Disposition: DispositionCanceled,
	}

	if err := b.ladderFor(ord.Side).remove(idx, ord); err != nil {
		return rep.reject(err.Error()), err
	}

	delete(b.ids, id)
	b.arena.release(idx)
	return rep, nil
}

// Modify resizes or reprices a resting order. A pure shrink at the same
// price applies in place and keeps the order's queue position; a price
// change or a quantity increase is an atomic cancel-and-replace under a
// fresh arrival sequence number, so it loses time priority and may
// match on reinsertion. newPrice 0 keeps the current price; newQuantity
// 0 cancels. All validation happens before any mutation: a rejected
// modify leaves the order exactly as it was.
func (b *Book) Modify(id OrderID, newPrice, newQuantity int64) (*Report, error) {
	idx, ok := b.ids[id]
	if !ok {
		rep := &Report{OrderID: id, Disposition: DispositionRejected, Reason: ErrOrderNotFound.Error()}
		return rep, ErrOrderNotFound
	}

	ord, err := b.arena.at(idx)
	if err != nil {
		return &Report{OrderID: id, Disposition: DispositionRejected, Reason: err.Error()}, err
	}

	if newQuantity == 0 {
		return b.Cancel(id)
	}
	if newQuantity < 0 {
		rep := b.modifyReport(ord, DispositionRejected)
		rep.Reason = ErrInvalidQuantity.Error()
		return rep, ErrInvalidQuantity
	}

	price := newPrice
	if price == 0 {
		price = ord.Price
	}
	own := b.ladderFor(ord.Side)
	if _, ok := own.indexOf(price); !ok || price <= 0 {
		rep := b.modifyReport(ord, DispositionRejected)
		rep.Reason = ErrInvalidPrice.Error()
		return rep, ErrInvalidPrice
	}

	if price == ord.Price && newQuantity <= ord.Remaining {
		// Shrink in place; the one mutation that keeps queue position.
		li, _ := own.indexOf(ord.Price)
		own.levels[li].totalSize -= ord.Remaining - newQuantity
		ord.Remaining = newQuantity

		rep := b.modifyReport(ord, DispositionModified)
		rep.Stored = true
		return rep, nil
	}

	// Cancel-and-replace. Validation is done, so from here both halves
	// succeed: removal cannot fail on a live slot, and reinsertion
	// reuses the slot the removal just freed.
	side := ord.Side
	if err := own.remove(idx, ord); err != nil {
		rep := b.modifyReport(ord, DispositionRejected)
		rep.Reason = err.Error()
		return rep, err
	}
	delete(b.ids, id)
	b.arena.release(idx)

	rep := newReport(id, Ticket{Type: TypeLimit, Side: side, Price: price, Quantity: newQuantity})
	return b.limitFlow(rep, id, side, price, newQuantity)
}

func (b *Book) modifyReport(ord *Order, d Disposition) *Report {
	return &Report{
		OrderID:     ord.ID,
		Side:        ord.Side,
		Type:        ord.Type,
		Price:       ord.Price,
		Quantity:    ord.Quantity,
		Executed:    ord.Quantity - ord.Remaining,
		Remaining:   ord.Remaining,
		Disposition: d,
	}
}

// GetOrder returns a copy of a resting order by handle.
func (b *Book) GetOrder(id OrderID) (Order, bool) {
	idx, ok := b.ids[id]
	if !ok {
		return Order{}, false
	}
	ord, err := b.arena.at(idx)
	if err != nil {
		return Order{}, false
	}
	return *ord, true
}

// BestBid returns the top of the bid side
func (b *Book) BestBid() (PriceSize, bool) {
	return b.bids.topOfBook()
}

// BestAsk returns the top of the ask side
func (b *Book) BestAsk() (PriceSize, bool) {
	return b.asks.topOfBook()
}

// TotalLiquidity returns the aggregate resting quantity on one side.
func (b *Book) TotalLiquidity(side Side) int64 {
	return b.ladderFor(side).totalLiquidity()
}

// OpenOrders returns the number of resting orders in the book.
func (b *Book) OpenOrders() int {
	return len(b.ids)
}

func (b *Book) ladderFor(side Side) *ladder {
	if side == Buy {
		return b.bids
	}
	return b.asks
}

func (b *Book) allocID() OrderID {
	return OrderID(b.allocSeq())
}

func (b *Book) allocSeq() uint64 {
	seq := b.seq
	b.seq++
	return seq
}

// String implements fmt.Stringer interface
func (b *Book) String() string {
	snap := b.Snapshot()
	builder := strings.Builder{}

	builder.WriteString("Ask:")
	for _, lv := range snap.Asks {
		builder.WriteString(fmt.Sprintf("\n%d -> orders: %d", lv.Price, len(lv.Orders)))
	}
	builder.WriteString("\nBid:")
	for _, lv := range snap.Bids {
		builder.WriteString(fmt.Sprintf("\n%d -> orders: %d", lv.Price, len(lv.Orders)))
	}
	builder.WriteString("\n")

	return builder.String()
}

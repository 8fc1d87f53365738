package core

// OrderSnapshot is one resting order in a snapshot.
type OrderSnapshot struct {
	ID        OrderID `json:"id"`
	Seq       uint64  `json:"seq"`
	Quantity  int64   `json:"quantity"`
	Remaining int64   `json:"remaining"`
}

// LevelSnapshot is one occupied price level, orders in FIFO order.
type LevelSnapshot struct {
	Price  int64           `json:"price"`
	Size   int64           `json:"size"`
	Orders []OrderSnapshot `json:"orders"`
}

// Snapshot is a full, canonically ordered view of the book: levels in
// price-priority order, orders in arrival order within each level.
// Equal snapshots marshal to byte-identical JSON, which is what the
// replay determinism contract compares.
type Snapshot struct {
	Bids    []LevelSnapshot `json:"bids"`
	Asks    []LevelSnapshot `json:"asks"`
	NextSeq uint64          `json:"nextSeq"`
}

// Snapshot captures the current book state.
func (b *Book) Snapshot() *Snapshot {
	return &Snapshot{
		Bids:    b.bids.snapshot(),
		Asks:    b.asks.snapshot(),
		NextSeq: b.seq,
	}
}

// snapshot walks the ladder best to worst, each level head to tail.
func (l *ladder) snapshot() []LevelSnapshot {
	out := make([]LevelSnapshot, 0)

	appendLevel := func(li int) {
		level := &l.levels[li]
		if level.isEmpty() {
			return
		}

		ls := LevelSnapshot{Price: l.priceAt(li), Size: level.totalSize}
		for idx := level.head; idx != noSlot; {
			ord, err := l.arena.at(idx)
			if err != nil {
				break
			}
			ls.Orders = append(ls.Orders, OrderSnapshot{
				ID:        ord.ID,
				Seq:       ord.Seq,
				Quantity:  ord.Quantity,
				Remaining: ord.Remaining,
			})
			idx = ord.next
		}
		out = append(out, ls)
	}

	if l.side == Buy {
		for li := len(l.levels) - 1; li >= 0; li-- {
			appendLevel(li)
		}
	} else {
		for li := 0; li < len(l.levels); li++ {
			appendLevel(li)
		}
	}

	return out
}

package core

// priceLevel is one FIFO queue of resting orders sharing a price.
// head/tail are arena slot indices and totalSize is the aggregate
// remaining quantity at the level, maintained incrementally so it never
// needs recomputation.
type priceLevel struct {
	head, tail uint32
	totalSize  int64
}

func (lv *priceLevel) isEmpty() bool {
	return lv.head == noSlot
}

// ladder is one side of the book: a dense array of price levels indexed
// by (price - minPrice) / tickSize, plus the index of the current best
// occupied level. Price priority lives here; time priority lives inside
// the level queues, so the two never need a combined comparator.
type ladder struct {
	side     Side
	minPrice int64
	maxPrice int64
	tickSize int64
	levels   []priceLevel
	best     int // level index, -1 when the side is empty
	arena    *arena
}

func newLadder(side Side, minPrice, maxPrice, tickSize int64, arena *arena) *ladder {
	n := (maxPrice-minPrice)/tickSize + 1
	levels := make([]priceLevel, n)
	for i := range levels {
		levels[i] = priceLevel{head: noSlot, tail: noSlot}
	}

	return &ladder{
		side:     side,
		minPrice: minPrice,
		maxPrice: maxPrice,
		tickSize: tickSize,
		levels:   levels,
		best:     -1,
		arena:    arena,
	}
}

// indexOf maps a tick price onto its level index. The bool result is
// false when the price is off-ladder or not on a tick boundary.
func (l *ladder) indexOf(price int64) (int, bool) {
	if price < l.minPrice || price > l.maxPrice || (price-l.minPrice)%l.tickSize != 0 {
		return 0, false
	}
	return int((price - l.minPrice) / l.tickSize), true
}

func (l *ladder) priceAt(idx int) int64 {
	return l.minPrice + int64(idx)*l.tickSize
}

// better reports whether level index a outranks level index b for this
// side: highest price for bids, lowest for asks.
func (l *ladder) better(a, b int) bool {
	if l.side == Buy {
		return a > b
	}
	return a < b
}

// bestLevel returns the level index of the top of book.
func (l *ladder) bestLevel() (int, bool) {
	if l.best < 0 {
		return 0, false
	}
	return l.best, true
}

// topOfBook returns the best occupied price and its aggregate size.
func (l *ladder) topOfBook() (PriceSize, bool) {
	if l.best < 0 {
		return PriceSize{}, false
	}
	return PriceSize{Price: l.priceAt(l.best), Size: l.levels[l.best].totalSize}, true
}

// push appends the order held in slot idx to the tail of its price
// level, creating the level's queue on first touch, and promotes the
// level to best if it improves the side. O(1).
func (l *ladder) push(idx uint32, ord *Order) error {
	li, ok := l.indexOf(ord.Price)
	if !ok {
		return ErrInvalidPrice
	}

	level := &l.levels[li]
	level.totalSize += ord.Remaining

	ord.prev = level.tail
	ord.next = noSlot

	if level.tail != noSlot {
		tail, err := l.arena.at(level.tail)
		if err != nil {
			return err
		}
		tail.next = idx
	} else {
		level.head = idx
	}
	level.tail = idx

	if l.best < 0 || l.better(li, l.best) {
		l.best = li
	}

	return nil
}

// remove splices the order held in slot idx out of its level queue in
// O(1) using the order's stored links, and advances the best pointer if
// the level drained. The caller still owns the arena slot.
func (l *ladder) remove(idx uint32, ord *Order) error {
	li, ok := l.indexOf(ord.Price)
	if !ok {
		return ErrInvalidPrice
	}

	level := &l.levels[li]
	level.totalSize -= ord.Remaining

	if err := l.unlink(idx, ord, level); err != nil {
		return err
	}

	if level.isEmpty() && l.best == li {
		l.advanceBest()
	}

	return nil
}

// unlink detaches slot idx from its level queue without touching the
// level's totalSize; matching keeps the aggregate up to date itself as
// it trades quantity down.
func (l *ladder) unlink(idx uint32, ord *Order, level *priceLevel) error {
	if ord.prev != noSlot {
		prev, err := l.arena.at(ord.prev)
		if err != nil {
			return err
		}
		prev.next = ord.next
	} else {
		level.head = ord.next
	}

	if ord.next != noSlot {
		next, err := l.arena.at(ord.next)
		if err != nil {
			return err
		}
		next.prev = ord.prev
	} else {
		level.tail = ord.prev
	}

	ord.prev, ord.next = noSlot, noSlot
	return nil
}

// advanceBest scans inward from the drained best level to the next
// occupied one: downward for bids, upward for asks.
func (l *ladder) advanceBest() {
	if l.best < 0 {
		return
	}

	if l.side == Buy {
		for i := l.best - 1; i >= 0; i-- {
			if !l.levels[i].isEmpty() {
				l.best = i
				return
			}
		}
	} else {
		for i := l.best + 1; i < len(l.levels); i++ {
			if !l.levels[i].isEmpty() {
				l.best = i
				return
			}
		}
	}

	l.best = -1
}

// totalLiquidity sums the remaining quantity across all levels.
func (l *ladder) totalLiquidity() int64 {
	var total int64
	for i := range l.levels {
		total += l.levels[i].totalSize
	}
	return total
}

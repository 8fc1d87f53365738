package core

// noSlot marks an absent arena link (empty level, end of queue).
const noSlot = ^uint32(0)

type slot struct {
	order Order
	live  bool
}

// arena owns all order memory. Freed slots are recycled through a LIFO
// free list, so steady-state operation allocates nothing; growth appends
// to the backing slice and never moves or invalidates existing slot
// indices. A slot is either live (holding exactly one resting order) or
// free (listed in the free list, contents ignored).
type arena struct {
	slots    []slot
	free     []uint32
	maxSlots int // 0 means unbounded
	checked  bool
}

func newArena(capacity, maxSlots int, checked bool) *arena {
	return &arena{
		slots:    make([]slot, 0, capacity),
		free:     make([]uint32, 0, capacity),
		maxSlots: maxSlots,
		checked:  checked,
	}
}

// alloc writes ord into a recycled or newly grown slot and returns its
// index. Growth is the only allocation point in the book.
func (a *arena) alloc(ord Order) (uint32, error) {
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		a.slots[idx] = slot{order: ord, live: true}
		return idx, nil
	}

	if a.maxSlots > 0 && len(a.slots) >= a.maxSlots {
		return noSlot, ErrCapacityExhausted
	}

	a.slots = append(a.slots, slot{order: ord, live: true})
	return uint32(len(a.slots) - 1), nil
}

// at returns the order stored in slot idx. In checked mode, access to a
// freed or out-of-range slot reports ErrStaleReference; this guards an
// internal invariant, not a user error. Unchecked mode skips the guard
// and is gated behind an explicit book option.
func (a *arena) at(idx uint32) (*Order, error) {
	if a.checked {
		if int(idx) >= len(a.slots) || !a.slots[idx].live {
			return nil, ErrStaleReference
		}
	}
	return &a.slots[idx].order, nil
}

// release returns slot idx to the free list. Prior references to the
// slot are invalid from this point on.
func (a *arena) release(idx uint32) {
	a.slots[idx].live = false
	a.free = append(a.free, idx)
}

// liveCount reports how many slots currently hold a resting order.
func (a *arena) liveCount() int {
	n := 0
	for i := range a.slots {
		if a.slots[i].live {
			n++
		}
	}
	return n
}

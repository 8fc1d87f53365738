package core

import (
	"errors"
	"testing"
)

func TestArenaAllocAndAt(t *testing.T) {
	a := newArena(4, 0, true)

	idx, err := a.alloc(Order{ID: 1, Remaining: 10})
	if err != nil {
		t.Fatalf("alloc failed: %v", err)
	}

	ord, err := a.at(idx)
	if err != nil {
		t.Fatalf("at failed: %v", err)
	}
	if ord.ID != 1 || ord.Remaining != 10 {
		t.Errorf("unexpected order in slot: %+v", ord)
	}
}

func TestArenaSlotReusedAfterRelease(t *testing.T) {
	a := newArena(4, 0, true)

	first, _ := a.alloc(Order{ID: 1})
	a.release(first)

	second, err := a.alloc(Order{ID: 2})
	if err != nil {
		t.Fatalf("alloc failed: %v", err)
	}
	if second != first {
		t.Errorf("expected freed slot %d to be reused, got %d", first, second)
	}
	if len(a.free) != 0 {
		t.Errorf("free list should be empty, has %d entries", len(a.free))
	}
}

func TestArenaFreeListIsLIFO(t *testing.T) {
	a := newArena(4, 0, true)

	i0, _ := a.alloc(Order{ID: 1})
	i1, _ := a.alloc(Order{ID: 2})
	a.release(i0)
	a.release(i1)

	// Most recently freed slot comes back first.
	got, _ := a.alloc(Order{ID: 3})
	if got != i1 {
		t.Errorf("expected slot %d, got %d", i1, got)
	}
	got, _ = a.alloc(Order{ID: 4})
	if got != i0 {
		t.Errorf("expected slot %d, got %d", i0, got)
	}
}

func TestArenaStaleReference(t *testing.T) {
	a := newArena(4, 0, true)

	idx, _ := a.alloc(Order{ID: 1})
	a.release(idx)

	if _, err := a.at(idx); !errors.Is(err, ErrStaleReference) {
		t.Errorf("expected ErrStaleReference, got %v", err)
	}
	if _, err := a.at(999); !errors.Is(err, ErrStaleReference) {
		t.Errorf("expected ErrStaleReference for out-of-range index, got %v", err)
	}
}

func TestArenaUncheckedSkipsLivenessGuard(t *testing.T) {
	a := newArena(4, 0, false)

	idx, _ := a.alloc(Order{ID: 1})
	a.release(idx)

	// Unchecked mode trades the guard for throughput; the slot is
	// still addressable.
	if _, err := a.at(idx); err != nil {
		t.Errorf("unchecked access should not fail: %v", err)
	}
}

func TestArenaCapacityExhausted(t *testing.T) {
	a := newArena(2, 2, true)

	if _, err := a.alloc(Order{ID: 1}); err != nil {
		t.Fatalf("alloc failed: %v", err)
	}
	if _, err := a.alloc(Order{ID: 2}); err != nil {
		t.Fatalf("alloc failed: %v", err)
	}

	if _, err := a.alloc(Order{ID: 3}); !errors.Is(err, ErrCapacityExhausted) {
		t.Errorf("expected ErrCapacityExhausted, got %v", err)
	}

	// Releasing a slot makes room again.
	a.release(0)
	if _, err := a.alloc(Order{ID: 3}); err != nil {
		t.Errorf("alloc after release failed: %v", err)
	}
}

func TestArenaGrowthKeepsSlotIndicesStable(t *testing.T) {
	a := newArena(1, 0, true)

	var indices []uint32
	for i := 0; i < 100; i++ {
		idx, err := a.alloc(Order{ID: OrderID(i), Remaining: int64(i)})
		if err != nil {
			t.Fatalf("alloc %d failed: %v", i, err)
		}
		indices = append(indices, idx)
	}

	for i, idx := range indices {
		ord, err := a.at(idx)
		if err != nil {
			t.Fatalf("at(%d) failed: %v", idx, err)
		}
		if ord.ID != OrderID(i) {
			t.Errorf("slot %d holds order %d, want %d", idx, ord.ID, i)
		}
	}

	if a.liveCount() != 100 {
		t.Errorf("liveCount = %d, want 100", a.liveCount())
	}
}

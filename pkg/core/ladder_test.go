package core

import "testing"

func testLadder(side Side) (*ladder, *arena) {
	a := newArena(16, 0, true)
	return newLadder(side, 1, 9, 1, a), a
}

func mustPush(t *testing.T, l *ladder, a *arena, id OrderID, price, size int64) uint32 {
	t.Helper()

	idx, err := a.alloc(Order{ID: id, Side: l.side, Type: TypeLimit, Price: price, Quantity: size, Remaining: size})
	if err != nil {
		t.Fatalf("alloc failed: %v", err)
	}
	ord, _ := a.at(idx)
	if err := l.push(idx, ord); err != nil {
		t.Fatalf("push failed: %v", err)
	}
	return idx
}

func TestLadderIndexOf(t *testing.T) {
	a := newArena(4, 0, true)
	l := newLadder(Sell, 100, 200, 5, a)

	tests := []struct {
		price int64
		index int
		ok    bool
	}{
		{100, 0, true},
		{105, 1, true},
		{200, 20, true},
		{99, 0, false},
		{201, 0, false},
		{103, 0, false}, // off tick
	}

	for _, tt := range tests {
		idx, ok := l.indexOf(tt.price)
		if ok != tt.ok || (ok && idx != tt.index) {
			t.Errorf("indexOf(%d) = (%d, %v), want (%d, %v)", tt.price, idx, ok, tt.index, tt.ok)
		}
	}
}

func TestLadderPushSingleOrder(t *testing.T) {
	l, a := testLadder(Buy)
	idx := mustPush(t, l, a, 1, 3, 100)

	li, _ := l.indexOf(3)
	level := &l.levels[li]
	if level.head != idx || level.tail != idx {
		t.Errorf("level head/tail = %d/%d, want both %d", level.head, level.tail, idx)
	}
	if level.totalSize != 100 {
		t.Errorf("totalSize = %d, want 100", level.totalSize)
	}
}

func TestLadderFIFOLinksAtSamePrice(t *testing.T) {
	l, a := testLadder(Buy)
	first := mustPush(t, l, a, 1, 2, 10)
	mustPush(t, l, a, 2, 2, 20)
	last := mustPush(t, l, a, 3, 2, 30)

	li, _ := l.indexOf(2)
	level := &l.levels[li]

	if level.head != first {
		t.Errorf("head = %d, want %d", level.head, first)
	}
	if level.tail != last {
		t.Errorf("tail = %d, want %d", level.tail, last)
	}

	head, _ := a.at(level.head)
	if head.prev != noSlot {
		t.Error("head should have no prev")
	}
	tail, _ := a.at(level.tail)
	if tail.next != noSlot {
		t.Error("tail should have no next")
	}
	if level.totalSize != 60 {
		t.Errorf("totalSize = %d, want 60", level.totalSize)
	}
}

func TestLadderRemoveMiddleRelinksNeighbors(t *testing.T) {
	l, a := testLadder(Buy)
	first := mustPush(t, l, a, 1, 7, 10)
	middle := mustPush(t, l, a, 2, 7, 20)
	last := mustPush(t, l, a, 3, 7, 30)

	mid, _ := a.at(middle)
	if err := l.remove(middle, mid); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	head, _ := a.at(first)
	if head.next != last {
		t.Errorf("head.next = %d, want %d", head.next, last)
	}
	tail, _ := a.at(last)
	if tail.prev != first {
		t.Errorf("tail.prev = %d, want %d", tail.prev, first)
	}

	li, _ := l.indexOf(7)
	if l.levels[li].totalSize != 40 {
		t.Errorf("totalSize = %d, want 40", l.levels[li].totalSize)
	}
}

func TestLadderRemoveOnlyOrderEmptiesLevel(t *testing.T) {
	l, a := testLadder(Buy)
	idx := mustPush(t, l, a, 1, 4, 100)

	ord, _ := a.at(idx)
	if err := l.remove(idx, ord); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	li, _ := l.indexOf(4)
	level := &l.levels[li]
	if !level.isEmpty() || level.totalSize != 0 {
		t.Errorf("level not empty after remove: head=%d size=%d", level.head, level.totalSize)
	}
}

func TestLadderBestTracksBids(t *testing.T) {
	l, a := testLadder(Buy)

	i1 := mustPush(t, l, a, 1, 1, 10)
	if top, _ := l.topOfBook(); top.Price != 1 {
		t.Errorf("best = %d, want 1", top.Price)
	}

	i2 := mustPush(t, l, a, 2, 2, 10)
	if top, _ := l.topOfBook(); top.Price != 2 {
		t.Errorf("best = %d, want 2", top.Price)
	}

	i3 := mustPush(t, l, a, 3, 1, 10)
	if top, _ := l.topOfBook(); top.Price != 2 {
		t.Errorf("best = %d, want 2", top.Price)
	}

	ord2, _ := a.at(i2)
	l.remove(i2, ord2)
	if top, _ := l.topOfBook(); top.Price != 1 {
		t.Errorf("best = %d after removing 2, want 1", top.Price)
	}

	ord1, _ := a.at(i1)
	l.remove(i1, ord1)
	if top, _ := l.topOfBook(); top.Price != 1 {
		t.Errorf("best = %d with one order left at 1, want 1", top.Price)
	}

	ord3, _ := a.at(i3)
	l.remove(i3, ord3)
	if _, ok := l.topOfBook(); ok {
		t.Error("best should be absent on an empty side")
	}
}

func TestLadderBestTracksAsks(t *testing.T) {
	l, a := testLadder(Sell)

	mustPush(t, l, a, 1, 5, 10)
	if top, _ := l.topOfBook(); top.Price != 5 {
		t.Errorf("best = %d, want 5", top.Price)
	}

	i2 := mustPush(t, l, a, 2, 3, 10)
	if top, _ := l.topOfBook(); top.Price != 3 {
		t.Errorf("best = %d, want 3", top.Price)
	}

	mustPush(t, l, a, 3, 7, 10)
	if top, _ := l.topOfBook(); top.Price != 3 {
		t.Errorf("best = %d, want 3", top.Price)
	}

	ord2, _ := a.at(i2)
	l.remove(i2, ord2)
	if top, _ := l.topOfBook(); top.Price != 5 {
		t.Errorf("best = %d after removing 3, want 5", top.Price)
	}
}

func TestLadderTotalLiquidity(t *testing.T) {
	l, a := testLadder(Sell)
	mustPush(t, l, a, 1, 2, 10)
	mustPush(t, l, a, 2, 3, 5)
	mustPush(t, l, a, 3, 4, 20)

	if got := l.totalLiquidity(); got != 35 {
		t.Errorf("totalLiquidity = %d, want 35", got)
	}
}

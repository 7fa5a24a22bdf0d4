package pwqueue

import "testing"

type file struct {
	node Node[file]
	name string
}

func nodeOf(f *file) *Node[file] { return &f.node }

func TestPushPopFIFO(t *testing.T) {
	q := New[file](0, nodeOf)
	a, b := &file{name: "a"}, &file{name: "b"}
	q.Push(a)
	q.Push(b)
	// with no Order flag, nothing is ready until something is attached
	if q.Pop() != nil {
		t.Fatal("expected no ready files yet")
	}
	v := q.Detach(false)
	if v != a {
		t.Fatalf("detach = %v, want a", v.name)
	}
	q.Attach(v, false)
	if got := q.Pop(); got != a {
		t.Fatalf("pop = %v, want a", got.name)
	}
}

func TestBufferFlushOrdering(t *testing.T) {
	q := New[file](Buffer, nodeOf)
	a, b, c := &file{name: "a"}, &file{name: "b"}, &file{name: "c"}
	q.Push(a)
	q.Push(b)
	q.Push(c)
	q.Flush()
	var order []string
	for v := q.Detach(false); v != nil; v = q.Detach(false) {
		order = append(order, v.name)
		q.Attach(v, false)
	}
	want := []string{"a", "b", "c"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestOrderFallsThroughToWaiting(t *testing.T) {
	q := New[file](Order, nodeOf)
	a := &file{name: "a"}
	q.Push(a)
	v := q.Detach(true)
	if v == nil {
		t.Fatal("detach returned nil")
	}
	if q.Inflight() != 1 {
		t.Fatalf("inflight = %d, want 1", q.Inflight())
	}
	// still mid-flight: with Order set, Pop must not skip ahead to an
	// empty ready list and return something out of order — here
	// nothing is ready, but waiting is also empty (it was detached),
	// so Pop should return nil.
	if q.Pop() != nil {
		t.Fatal("expected nil: file is in flight, nothing ready or waiting")
	}
	q.Attach(v, true)
	if got := q.Pop(); got != a {
		t.Fatal("expected a to be ready after attach")
	}
}

func TestBalance(t *testing.T) {
	q := New[file](Balance, nodeOf)
	if !q.Balanced() {
		t.Fatal("fresh queue should be balanced")
	}
	a := &file{name: "a"}
	q.Push(a)
	q.Detach(true) // async dispatch: imbalance-- => -1, unbalanced
	if q.Balanced() {
		t.Fatal("expected unbalanced after one async dispatch")
	}
	q.NoteSynchronous() // main goroutine did one unit of sync work
	if !q.Balanced() {
		t.Fatal("expected balanced after matching synchronous note")
	}
}

func TestSortBufferThenFlush(t *testing.T) {
	q := New[file](Buffer, nodeOf)
	c, a, b := &file{name: "c"}, &file{name: "a"}, &file{name: "b"}
	q.Push(c)
	q.Push(a)
	q.Push(b)
	q.SortBuffer(func(x, y *file) bool { return x.name < y.name })
	q.Flush()
	var order []string
	for v := q.Detach(false); v != nil; v = q.Detach(false) {
		order = append(order, v.name)
		q.Attach(v, false)
	}
	want := []string{"a", "b", "c"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestStageLengths(t *testing.T) {
	q := New[file](Buffer, nodeOf)
	a, b, c := &file{name: "a"}, &file{name: "b"}, &file{name: "c"}
	q.Push(a)
	q.Push(b)
	if got := q.BufferLen(); got != 2 {
		t.Fatalf("BufferLen = %d, want 2", got)
	}
	if got := q.WaitingLen(); got != 0 {
		t.Fatalf("WaitingLen = %d, want 0", got)
	}
	q.Flush()
	if got := q.BufferLen(); got != 0 {
		t.Fatalf("BufferLen after flush = %d, want 0", got)
	}
	if got := q.WaitingLen(); got != 2 {
		t.Fatalf("WaitingLen after flush = %d, want 2", got)
	}
	q.Push(c) // buffered again, not yet flushed
	v := q.Detach(false)
	q.Attach(v, false)
	if got := q.ReadyLen(); got != 1 {
		t.Fatalf("ReadyLen = %d, want 1", got)
	}
	if got := q.BufferLen(); got != 1 {
		t.Fatalf("BufferLen = %d, want 1", got)
	}
}

func TestDrainAll(t *testing.T) {
	q := New[file](Buffer, nodeOf)
	a, b, c := &file{name: "a"}, &file{name: "b"}, &file{name: "c"}
	q.Push(a)
	q.Flush()
	q.Push(b) // stays buffered
	v := q.Detach(false)
	q.Attach(v, false) // a is ready
	q.Push(c)           // buffered again

	drained := q.DrainAll()
	if len(drained) != 3 {
		t.Fatalf("drained %d files, want 3", len(drained))
	}
	if !q.Empty() {
		t.Fatal("queue should be empty after DrainAll")
	}
}

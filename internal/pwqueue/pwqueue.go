// Package pwqueue implements the three-stage (buffer/waiting/ready)
// traversal queues from spec §4.4: the structure both dirq and fileq
// are built from. Each queued file passes through up to three singly
// linked lists (internal/list.SList — §4.1) as it moves from
// discovery, to awaiting service (sync or async), to ready for the
// main goroutine to consume.
package pwqueue

import (
	"sort"

	"github.com/gowalk/pwalk/internal/list"
)

// Flags configure a Queue's discipline at construction time.
type Flags uint8

const (
	// Buffer stages pushes on the buffer list until Flush moves them
	// to waiting, instead of landing on waiting immediately. Used
	// when siblings must be collected together, e.g. for sorting.
	Buffer Flags = 1 << iota
	// LIFO prepends rather than appends when flushing the buffer,
	// giving the queue depth-first-leaning pop order.
	LIFO
	// Order requires files to leave on the ready list in the same
	// order they joined waiting, so Pop falls through to waiting
	// whenever the ready head hasn't caught up yet.
	Order
	// Balance tracks a sync/async imbalance counter so a
	// single-worker configuration doesn't starve the main goroutine
	// draining completions before it can do its own synchronous work.
	Balance
)

// Node is the intrusive membership each file must embed to live on a
// Queue's three lists plus the synchronization bookkeeping.
type Node[T any] struct {
	bufferLink  list.SNode[T]
	waitLink    list.SNode[T]
	readyLink   list.SNode[T]
	ioqueued    bool
}

// Queue is one buffer/waiting/ready traversal queue.
type Queue[T any] struct {
	flags Flags

	buffer  *list.SList[T]
	waiting *list.SList[T]
	ready   *list.SList[T]

	ioqueuedCount int
	imbalance     int // Balance: >=0 means synchronous work has caught up

	nodeOf func(*T) *Node[T]
}

// New creates a queue with the given flags. nodeOf must return the
// same *Node[T] embedded field for a given *T every time.
func New[T any](flags Flags, nodeOf func(*T) *Node[T]) *Queue[T] {
	q := &Queue[T]{flags: flags, nodeOf: nodeOf}
	q.buffer = list.NewSList(func(v *T) *list.SNode[T] { return &nodeOf(v).bufferLink })
	q.waiting = list.NewSList(func(v *T) *list.SNode[T] { return &nodeOf(v).waitLink })
	q.ready = list.NewSList(func(v *T) *list.SNode[T] { return &nodeOf(v).readyLink })
	return q
}

// Size reports the total number of files currently on any of the
// three lists.
func (q *Queue[T]) Size() int {
	return q.buffer.Len() + q.waiting.Len() + q.ready.Len()
}

// Empty reports whether every list (and in-flight async count) is empty.
func (q *Queue[T]) Empty() bool {
	return q.Size() == 0 && q.ioqueuedCount == 0
}

// Inflight reports the number of files currently detached for async
// service (ioqueued), matching the "ioqueued count equals the number
// of in-flight async operations" invariant.
func (q *Queue[T]) Inflight() int { return q.ioqueuedCount }

// BufferLen, WaitingLen and ReadyLen report the length of each of the
// three stage lists, for a caller (e.g. metrics reporting) that wants
// per-stage queue depth rather than just the Size() total.
func (q *Queue[T]) BufferLen() int  { return q.buffer.Len() }
func (q *Queue[T]) WaitingLen() int { return q.waiting.Len() }
func (q *Queue[T]) ReadyLen() int   { return q.ready.Len() }

// Push routes v to the buffer list if Buffer is set, else straight to
// waiting.
func (q *Queue[T]) Push(v *T) {
	if q.flags&Buffer != 0 {
		q.buffer.PushBack(v)
		return
	}
	q.pushWaiting(v)
}

func (q *Queue[T]) pushWaiting(v *T) {
	if q.flags&LIFO != 0 {
		q.waiting.PushFront(v)
	} else {
		q.waiting.PushBack(v)
	}
}

// Flush drains the buffer into waiting, in the order LIFO/Order call
// for. A caller that wants sorted order (spec §4.5.6) sorts the
// buffer in place before calling Flush.
func (q *Queue[T]) Flush() {
	if q.buffer.Empty() {
		return
	}
	if q.flags&LIFO != 0 {
		// Reverse onto the front of waiting one at a time so the
		// overall effect of repeated flushes is still depth-first.
		for v := q.buffer.PopFront(); v != nil; v = q.buffer.PopFront() {
			q.waiting.PushFront(v)
		}
		return
	}
	// buffer and waiting thread through different link fields, so the
	// files are moved one at a time rather than spliced.
	for v := q.buffer.PopFront(); v != nil; v = q.buffer.PopFront() {
		q.waiting.PushBack(v)
	}
}

// SortBuffer stably sorts the files currently staged on the buffer
// list using less, letting a Sort-flagged walk (spec §4.5.6) order
// siblings before Flush moves them to waiting.
func (q *Queue[T]) SortBuffer(less func(a, b *T) bool) {
	n := q.buffer.Len()
	if n < 2 {
		return
	}
	items := make([]*T, 0, n)
	for v := q.buffer.PopFront(); v != nil; v = q.buffer.PopFront() {
		items = append(items, v)
	}
	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
	for _, v := range items {
		q.buffer.PushBack(v)
	}
}

// Detach removes the head of waiting (falling back to buffer if
// waiting is empty but a Flush hasn't happened yet) for service.
// async marks the detached file as owned exclusively by an I/O
// worker, incrementing ioqueued and, under Balance, decrementing the
// imbalance counter.
func (q *Queue[T]) Detach(async bool) *T {
	v := q.waiting.PopFront()
	if v == nil {
		v = q.buffer.PopFront()
	}
	if v == nil {
		return nil
	}
	if async {
		q.nodeOf(v).ioqueued = true
		q.ioqueuedCount++
		if q.flags&Balance != 0 {
			q.imbalance--
		}
	}
	return v
}

// Attach places v on the ready list once its (possibly async) service
// has completed. async must match the value passed to the Detach that
// produced v.
func (q *Queue[T]) Attach(v *T, async bool) {
	if async {
		q.nodeOf(v).ioqueued = false
		q.ioqueuedCount--
		if q.flags&Balance != 0 {
			q.imbalance++
		}
	}
	q.ready.PushBack(v)
}

// Pop returns the next file for the main goroutine to consume,
// preferring ready and falling through to waiting when Order is set
// (so both lists stay in lockstep). Without Order, Pop returns nil
// until some file has been attached to ready.
func (q *Queue[T]) Pop() *T {
	if v := q.ready.PopFront(); v != nil {
		return v
	}
	if q.flags&Order != 0 {
		return q.waiting.PopFront()
	}
	return nil
}

// Balanced reports whether synchronous work has caught up with
// outstanding async dispatch, per spec §9: async dispatch should only
// be issued while this is true, so a lone worker thread doesn't drown
// the main goroutine in completions it can't keep pace with.
func (q *Queue[T]) Balanced() bool {
	if q.flags&Balance == 0 {
		return true
	}
	return q.imbalance >= 0
}

// NoteSynchronous records that the main goroutine completed one unit
// of synchronous work, incrementing the imbalance counter under
// Balance (the counterpart to Detach(async=true)'s decrement).
func (q *Queue[T]) NoteSynchronous() {
	if q.flags&Balance != 0 {
		q.imbalance++
	}
}

// DrainAll removes and returns every file still queued, across all
// three lists, in an unspecified order. Used during cancellation to
// free every remaining record (spec §5 "both traversal queues are
// walked to free any remaining records").
func (q *Queue[T]) DrainAll() []*T {
	var out []*T
	for v := q.buffer.PopFront(); v != nil; v = q.buffer.PopFront() {
		out = append(out, v)
	}
	for v := q.waiting.PopFront(); v != nil; v = q.waiting.PopFront() {
		out = append(out, v)
	}
	for v := q.ready.PopFront(); v != nil; v = q.ready.PopFront() {
		out = append(out, v)
	}
	return out
}

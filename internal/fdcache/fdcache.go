// Package fdcache implements the bounded LRU pool of open directory
// file descriptors from spec §4.3: at most nopenfd FDs open at once,
// cluster-wide, with pinning to protect FDs a syscall is currently
// using as an openat/fstatat base, and a "target" insertion point
// that keeps root files warm near the front of the LRU instead of
// getting evicted first just because they were opened first.
//
// The LRU list itself is internal/list.DList (spec §4.1 intrusive
// doubly-linked list — needed here because entries must be removable
// from the middle in O(1) when pinned, which rules out a generic
// keyed cache like hashicorp/golang-lru: that library evicts by
// insertion/access recency only and has no notion of "this entry is
// temporarily unevictable"). Capacity accounting instead reuses
// golang.org/x/sync/semaphore.Weighted, sized to nopenfd, so reserve()
// is a single non-blocking TryAcquire instead of hand-rolled counting.
package fdcache

import (
	"errors"

	"golang.org/x/sync/semaphore"

	"github.com/gowalk/pwalk/internal/list"
)

// ErrExhausted is returned by Reserve when every FD is either on the
// LRU (and eviction still didn't free one — impossible unless
// capacity is zero) or pinned, matching spec §4.3's "fails ... only
// when the tail is empty and all FDs are pinned".
var ErrExhausted = errors.New("fdcache: fd budget exhausted (all open files pinned)")

// Entry is anything that can occupy one slot in the cache: a single
// open FD, directory or plain file. Callers embed Node in their own
// per-file record and pass pointers to it into the cache.
type Entry[T any] struct {
	Node  list.DNode[T]
	FD    int
	Dir   bool
	Pins  int
}

// Cache is the FD LRU with pinning. Zero value is not usable;
// construct with New.
type Cache[T any] struct {
	lru     *list.DList[T]
	sem     *semaphore.Weighted
	cap     int64
	pinned  int64 // files currently holding a reservation while pinned
	target  *T
	entryOf func(*T) *Entry[T]
	onEvict func(*T) error // closes the victim's FD; may be async
}

// New creates a cache budgeted for nopenfd file descriptors. entryOf
// must return the same *Entry[T] embedded field for a given *T every
// time. onEvict is invoked (synchronously, from inside Reserve) to
// actually close an evicted file's FD before its capacity slot is
// reused; the caller decides whether that close runs inline or is
// dispatched to the I/O queue.
func New[T any](nopenfd int, entryOf func(*T) *Entry[T], onEvict func(*T) error) *Cache[T] {
	return &Cache[T]{
		lru:     list.NewDList(func(v *T) *list.DNode[T] { return &entryOf(v).Node }),
		sem:     semaphore.NewWeighted(int64(nopenfd)),
		cap:     int64(nopenfd),
		entryOf: entryOf,
		onEvict: onEvict,
	}
}

// Capacity reports how many FD slots are neither on the LRU nor
// pinned (i.e. truly unused right now).
func (c *Cache[T]) Capacity() int64 {
	// semaphore.Weighted has no direct "available" query, so derive it
	// from what we know is checked out: LRU members plus pinned files
	// each hold one reserved unit.
	return c.cap - int64(c.lru.Len()) - c.pinned
}

// Reserve ensures at least one FD slot is available, evicting the LRU
// tail if necessary. It only fails when the LRU is empty and nothing
// can be freed (every open FD is pinned).
func (c *Cache[T]) Reserve() error {
	if c.sem.TryAcquire(1) {
		// We now hold a spare unit; release it immediately, the caller
		// acquires their own unit via Add once they actually open the
		// file. Reserve's contract is "ensure a slot exists", not "hold
		// one on the caller's behalf".
		c.sem.Release(1)
		return nil
	}
	victim := c.lru.Back()
	if victim == nil {
		return ErrExhausted
	}
	c.lru.Remove(victim)
	e := c.entryOf(victim)
	if err := c.onEvict(victim); err != nil {
		return err
	}
	e.FD = -1
	c.sem.Release(1)
	return nil
}

// Evict forces one real LRU-tail eviction regardless of what the
// semaphore's own bookkeeping reports, unlike Reserve's soft check
// (which only evicts when its TryAcquire sees zero spare capacity).
// Used when a syscall returns EMFILE despite Reserve saying a slot was
// available: the process-wide fd table is tighter than nopenfd, and
// the only way to make real room is to actually close something.
func (c *Cache[T]) Evict() error {
	victim := c.lru.Back()
	if victim == nil {
		return ErrExhausted
	}
	c.lru.Remove(victim)
	e := c.entryOf(victim)
	if err := c.onEvict(victim); err != nil {
		return err
	}
	e.FD = -1
	c.sem.Release(1)
	return nil
}

// OpenCount reports how many FD slots are currently occupied (on the
// LRU or pinned), the "currently held open" figure the traversal
// engine surfaces as a metric.
func (c *Cache[T]) OpenCount() int64 {
	return c.cap - c.Capacity()
}

// Add inserts v, which now holds an open FD, into the cache. It
// consumes one capacity unit (acquired via Reserve or implicitly
// here) and places v near the cache's nominated target so repeatedly
// reopened root directories stay warm. Root files (depth 0, signalled
// by makeTarget) become the new target, keeping them perpetually
// insulated from eviction pressure from deeper, more transient files.
func (c *Cache[T]) Add(v *T, makeTarget bool) {
	if !c.sem.TryAcquire(1) {
		// Caller skipped Reserve or raced a concurrent eviction; since
		// the traversal's main goroutine is the sole mutator of the
		// cache (spec §5), this only happens on a caller bug.
		panic("fdcache: Add called without a reserved slot")
	}
	if makeTarget || c.target == nil {
		// Anchor v at the MRU (head) end so ordinary churn, which is
		// inserted behind it below, ages toward the LRU tail without
		// ever burying the target.
		c.lru.PushFront(v)
		c.target = v
		return
	}
	c.lru.InsertAfter(v, c.target)
}

// Pin removes v from the LRU (if present) and marks it unevictable
// and unclosable. Pin/Unpin nest: a file pinned twice needs two
// Unpins before it is eligible for eviction again.
func (c *Cache[T]) Pin(v *T) {
	e := c.entryOf(v)
	if e.Pins == 0 {
		c.lru.Remove(v)
		c.pinned++
	}
	e.Pins++
}

// Unpin reverses one Pin. Once the pin count returns to zero, v is
// reinserted into the LRU near the target.
func (c *Cache[T]) Unpin(v *T) {
	e := c.entryOf(v)
	if e.Pins == 0 {
		panic("fdcache: Unpin without matching Pin")
	}
	e.Pins--
	if e.Pins == 0 {
		c.pinned--
		if c.target == v {
			c.lru.PushFront(v)
		} else {
			c.lru.InsertAfter(v, c.target)
		}
	}
}

// Remove takes v out of the cache entirely and returns its capacity
// unit to the pool, without invoking onEvict — used when the caller
// is closing v's FD itself (e.g. during GC) rather than asking the
// cache to do it via eviction.
func (c *Cache[T]) Remove(v *T) {
	e := c.entryOf(v)
	if e.Pins == 0 {
		c.lru.Remove(v)
	} else {
		c.pinned--
		e.Pins = 0
	}
	if c.target == v {
		c.target = nil
	}
	c.sem.Release(1)
}

// Len reports how many files currently sit on the LRU (open, unpinned).
func (c *Cache[T]) Len() int { return c.lru.Len() }

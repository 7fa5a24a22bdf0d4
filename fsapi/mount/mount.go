// Package mount implements fsapi.MountTable, answering the
// "might this dirent be a mount point" predicate spec §9 asks to be
// pluggable rather than hard-coded per platform. Results are cached in
// a github.com/hashicorp/golang-lru/v2 LRU — a plain, pin-free cache,
// unlike the FD cache in internal/fdcache which needs pin-awareness
// golang-lru can't express and so is hand-rolled instead.
package mount

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Predicate decides, for one name within its parent directory, whether
// it might be a mount point. A real predicate typically consults
// /proc/mounts or getfsstat(2).
type Predicate func(name string) bool

// Table answers MightBeMount by consulting Predicate, caching results
// so that repeated queries for siblings already checked this walk
// don't redo the underlying (typically syscall-backed) lookup.
type Table struct {
	predicate Predicate
	cache     *lru.Cache[string, bool]
}

// New builds a Table of the given cache capacity. A capacity of 0
// disables caching (every call reaches predicate).
func New(capacity int, predicate Predicate) *Table {
	var cache *lru.Cache[string, bool]
	if capacity > 0 {
		cache, _ = lru.New[string, bool](capacity)
	}
	return &Table{predicate: predicate, cache: cache}
}

// MightBeMount implements fsapi.MountTable.
func (t *Table) MightBeMount(name string) bool {
	if t.cache == nil {
		return t.predicate(name)
	}
	if v, ok := t.cache.Get(name); ok {
		return v
	}
	v := t.predicate(name)
	t.cache.Add(name, v)
	return v
}

// Static returns a MountTable that always answers the same fixed set
// of names, useful in tests that want deterministic mount boundaries
// without a real predicate.
func Static(capacity int, mounts map[string]bool) *Table {
	return New(capacity, func(name string) bool { return mounts[name] })
}

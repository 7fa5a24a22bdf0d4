// Package pwalk is a parallel filesystem traversal engine: it visits
// every file beneath one or more starting paths under four hard
// budgets (open file descriptors, I/O worker threads, in-flight
// directory-state memory, and cancellation), invoking a user callback
// pre- and optionally post-order, with BFS/DFS/IDS/EDS strategies,
// optional sorting, cycle detection and mount-boundary policies.
package pwalk

import (
	"github.com/gowalk/pwalk/fsapi"
	"github.com/gowalk/pwalk/internal/logging"
	"github.com/gowalk/pwalk/metrics"
)

// Visit tags whether a callback invocation is the pre- or post-order
// visit of a file.
type Visit int

const (
	Pre Visit = iota
	Post
)

func (v Visit) String() string {
	if v == Post {
		return "post"
	}
	return "pre"
}

// Action is the callback's verdict for what the engine should do next.
type Action int

const (
	// Continue descends into a directory, or simply moves on for a
	// non-directory.
	Continue Action = iota
	// Prune skips a directory's subtree entirely (ignored in Post).
	Prune
	// Stop aborts the whole walk immediately.
	Stop
)

// Record is the information delivered to the callback on every visit,
// the ftwbuf of spec §3. It is read-only for the callback except
// Visit, which the iterative/exponential-deepening wrapper in
// pwalk/deepen rewrites to Post in its final post-order pass. Every field is
// borrowed for the callback call only; persist by copy.
type Record struct {
	Path  string
	Root  string
	Depth int
	Visit Visit
	Type  fsapi.FileType
	Err   error

	// AtFD/AtName let a callback perform its own openat-style relative
	// syscall through the same parent descriptor the engine used,
	// avoiding a second absolute-path resolution.
	AtFD   int
	AtName string

	Follow fsapi.FollowMode
	Info   *fsapi.Info

	// Loopoff is set only when Type == fsapi.ErrorType and Err wraps a
	// cycle error: the byte offset in Path immediately after the
	// ancestor whose (dev,ino) matched.
	Loopoff int
}

// Callback is the user predicate. user is an opaque, type-erased
// handle threaded through unchanged (spec §9 "polymorphic callback").
type Callback func(rec *Record, user any) Action

// Flags configure optional traversal behaviour.
type Flags uint32

const (
	// StatAll forces a stat on every file regardless of whether the
	// dirent type alone would have sufficed.
	StatAll Flags = 1 << iota
	// Recover surfaces OS errors to the callback (type=ErrorType)
	// instead of aborting the walk with the first error.
	Recover
	// DetectCycles maintains (dev,ino) ancestry and synthesizes a
	// cycle error when a directory revisits an ancestor.
	DetectCycles
	// FollowRoots follows symlinks named directly as a starting path.
	FollowRoots
	// FollowAll follows every symlink encountered, not just roots.
	FollowAll
	// SkipMounts treats any directory whose device differs from its
	// parent's as pruned; non-directories are not checked.
	SkipMounts
	// PruneMounts applies the SkipMounts device check only to
	// directories entering the walk.
	PruneMounts
	// PostOrder additionally delivers a Post visit after a directory's
	// subtree is fully traversed.
	PostOrder
	// Sort delivers siblings in strcoll-equivalent order.
	Sort
	// Buffer collects a directory's children before dispatching any of
	// them, rather than streaming them as readdir yields them. Implied
	// by Sort.
	Buffer
	// Whiteouts surfaces BSD whiteout dirents as fsapi.Wht instead of
	// silently skipping them.
	Whiteouts
)

func (f Flags) has(bit Flags) bool { return f&bit != 0 }

// Strategy selects the traversal order.
type Strategy int

const (
	BFS Strategy = iota
	DFS
	IDS
	EDS
)

// Args configures one call to Walk. Built with NewArgs and the
// With* functional options, mirroring the teacher's plain-struct
// backend/local.Options convention rather than a flag/viper registry
// (the CLI parser itself is out of scope, see §1).
type Args struct {
	Paths    []string
	Callback Callback
	User     any

	Flags    Flags
	Strategy Strategy

	FS      fsapi.FS
	Mtab    fsapi.MountTable
	Logger  *logging.Logger
	Metrics *metrics.Recorder

	NOpenFD  int
	NThreads int
}

// NewArgs builds Args with the spec-mandated minimums: nopenfd=2,
// nthreads=0 (synchronous), strategy=BFS, no optional flags.
func NewArgs(paths []string, cb Callback, user any, fs fsapi.FS) *Args {
	return &Args{
		Paths:    paths,
		Callback: cb,
		User:     user,
		FS:       fs,
		NOpenFD:  2,
		NThreads: 0,
		Strategy: BFS,
	}
}

func (a *Args) WithFlags(f Flags) *Args        { a.Flags = f; return a }
func (a *Args) WithStrategy(s Strategy) *Args  { a.Strategy = s; return a }
func (a *Args) WithThreads(n int) *Args        { a.NThreads = n; return a }
func (a *Args) WithCache(nopenfd int) *Args    { a.NOpenFD = nopenfd; return a }
func (a *Args) WithMountTable(m fsapi.MountTable) *Args { a.Mtab = m; return a }
func (a *Args) WithLogger(l *logging.Logger) *Args      { a.Logger = l; return a }
func (a *Args) WithMetrics(m *metrics.Recorder) *Args   { a.Metrics = m; return a }

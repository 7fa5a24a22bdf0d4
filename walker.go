package pwalk

import (
	"os"
	"sync/atomic"
	"syscall"

	"github.com/gowalk/pwalk/fsapi"
	"github.com/gowalk/pwalk/internal/arena"
	"github.com/gowalk/pwalk/internal/fdcache"
	"github.com/gowalk/pwalk/internal/ioqueue"
	"github.com/gowalk/pwalk/internal/logging"
	"github.com/gowalk/pwalk/internal/pwqueue"
	"github.com/gowalk/pwalk/internal/sigcoord"
	"github.com/gowalk/pwalk/metrics"
)

// walker holds all traversal state for one call to Walk: the single
// owning goroutine described in spec §5 is whatever goroutine calls
// Walk and drives run() to completion.
type walker struct {
	args    *Args
	fs      fsapi.FS
	log     *logging.Logger
	metrics *metrics.Recorder

	dirq  *pwqueue.Queue[File]
	fileq *pwqueue.Queue[File]

	cache *fdcache.Cache[File]
	ioq   *ioqueue.Queue

	sig        *sigcoord.Table
	sigHandle  sigcoord.Handle
	cancelled  atomic.Bool

	pb pathBuilder

	slab *arena.Slab[File]

	firstErr    error
	cappedAtOne bool
}

func newWalker(args *Args) *walker {
	w := &walker{args: args, fs: args.FS, slab: arena.NewSlab[File](256), pb: newPathBuilder()}
	if args.Logger != nil {
		w.log = args.Logger
	} else {
		w.log = logging.Default()
	}
	w.metrics = args.Metrics

	dirFlags := pwqueue.Order
	fileFlags := pwqueue.Order
	if args.Flags.has(Sort) || args.Flags.has(Buffer) {
		dirFlags |= pwqueue.Buffer
		fileFlags |= pwqueue.Buffer
	}
	if args.Strategy == DFS {
		dirFlags |= pwqueue.LIFO
		fileFlags |= pwqueue.LIFO
	}
	if args.NThreads > 0 {
		dirFlags |= pwqueue.Balance
		fileFlags |= pwqueue.Balance
	}
	w.dirq = pwqueue.New(dirFlags, fileQNode)
	w.fileq = pwqueue.New(fileFlags, fileQNode)

	w.cache = fdcache.New(args.NOpenFD, fileFDEntry, w.evict)

	if args.NThreads > 0 {
		q, err := ioqueue.New(args.NThreads)
		if err == nil {
			w.ioq = q
		}
	}

	w.sig = sigcoord.New(os.Interrupt, syscall.SIGTERM)
	w.sigHandle = w.sig.OnSignal(os.Interrupt, func(os.Signal) { w.cancelled.Store(true) })

	return w
}

func (w *walker) evict(v *File) error {
	d, fd := v.dir, v.fd
	v.dir, v.fd = nil, -1
	if d != nil {
		return w.fs.CloseDir(d)
	}
	if fd >= 0 {
		return w.fs.Close(fd)
	}
	return nil
}

func (w *walker) destroy() {
	w.sig.Unhook(w.sigHandle)
	w.sig.Shutdown()
	if w.ioq != nil {
		w.ioq.Destroy()
	}
	w.slab.Destroy()
	w.pb.destroy()
}

func (w *walker) stopped() bool { return w.cancelled.Load() }

func (w *walker) stopAll() { w.cancelled.Store(true) }

func (w *walker) recordFirstError(err error) {
	if w.firstErr == nil {
		w.firstErr = err
	}
	w.log.Errorf("", "traversal error: %v", err)
	w.metrics.IncErrors()
}

// Walk is the engine's entry point (spec §6): it traverses every
// starting path in args, invoking args.Callback pre- (and optionally
// post-) order, honoring the FD/thread/cancellation budgets, and
// returns the first error observed (nil on a clean, uninterrupted
// completion; a callback-originated Stop with no stored error also
// returns nil).
func Walk(args *Args) error {
	w := newWalker(args)
	defer w.destroy()
	return w.run()
}

func (w *walker) run() error {
	for _, p := range w.args.Paths {
		if w.stopped() {
			break
		}
		if err := w.visitRoot(p); err != nil && err != errStopWalk {
			return err
		}
		w.pb.forget()
	}

	for !w.stopped() && !(w.dirq.Empty() && w.fileq.Empty()) {
		if err := w.step(); err != nil && err != errStopWalk {
			return err
		}
	}

	w.drainAll()
	return w.firstErr
}

func (w *walker) visitRoot(path string) error {
	f := w.allocFile(nil, path)
	if w.shouldBuffer(f, fsapi.Unknown) {
		w.fileq.Push(f)
		return nil
	}
	return w.visitNow(f, fsapi.Unknown)
}

// step implements one unit of main-loop work: §4.5 step 3 prefers a
// ready directory, falls back to a ready file, and otherwise blocks on
// the I/O queue if anything is genuinely in flight there.
func (w *walker) step() error {
	w.reportMetrics()
	w.drainReadyDirs()
	if d := w.dirq.Pop(); d != nil {
		return w.processDir(d)
	}
	if f := w.fileq.Pop(); f != nil {
		return w.visitNow(f, f.typ)
	}
	if w.drainReadyBuffers() {
		return nil
	}
	if w.ioq != nil && (w.fileq.Inflight() > 0 || w.dirq.Inflight() > 0) {
		return w.drainOneCompletion()
	}
	// Nothing ready, nothing in flight, but something is still
	// buffered waiting on a Flush: processDir flushes before returning,
	// but visitNow can push a directory onto a buffered dirq outside
	// processDir (e.g. a starting path under Sort or Buffer) — flush
	// here so the loop always makes progress.
	w.dirq.Flush()
	w.fileq.Flush()
	return nil
}

// reportMetrics refreshes the gauge instruments from current queue and
// cache state, once per main-loop iteration, so a caller scraping
// concurrently sees the budgets actually in effect rather than a
// frozen zero (SPEC_FULL's domain stack: pwalk_open_fds,
// pwalk_queue_depth, pwalk_io_queue_inflight). A nil Recorder makes
// every call below a no-op.
func (w *walker) reportMetrics() {
	w.metrics.SetOpenFDs(w.cache.OpenCount())
	w.metrics.SetQueueDepth("dir", "buffer", w.dirq.BufferLen())
	w.metrics.SetQueueDepth("dir", "waiting", w.dirq.WaitingLen())
	w.metrics.SetQueueDepth("dir", "ready", w.dirq.ReadyLen())
	w.metrics.SetQueueDepth("file", "buffer", w.fileq.BufferLen())
	w.metrics.SetQueueDepth("file", "waiting", w.fileq.WaitingLen())
	w.metrics.SetQueueDepth("file", "ready", w.fileq.ReadyLen())
	if w.ioq != nil {
		w.metrics.SetIOInflight(w.ioq.Inflight())
	} else {
		w.metrics.SetIOInflight(0)
	}
}

// drainReadyDirs dispatches directories sitting in dirq's waiting
// stage to the I/O queue for asynchronous opening, implementing §2's
// data-flow ("dirq (directories to open/read) → I/O queue (opendir) →
// main thread (readdir loop)") and §4.5 step 3a's "open it (sync if
// not already opened async)". Gated on dirq.Balanced() so a lone
// worker thread never gets buried in outstanding opens the main
// goroutine can't keep pace draining. Reservation happens here,
// synchronously, since fdcache bookkeeping is main-goroutine-only
// (spec §5); the worker goroutine only performs the raw syscall and
// stashes the result on the file record it exclusively owns while
// detached.
func (w *walker) drainReadyDirs() bool {
	if w.ioq == nil {
		return false
	}
	progressed := false
	for !w.stopped() && w.dirq.Balanced() {
		d := w.dirq.Detach(true)
		if d == nil {
			break
		}
		progressed = true
		if d.fd >= 0 || w.cache.Reserve() != nil {
			// Already open, or no room to reserve a slot for it: leave
			// it to processDir's synchronous fallback, which redoes
			// Reserve with full ENAMETOOLONG/EMFILE recovery.
			w.dirq.Attach(d, true)
			continue
		}
		dirFD, rel := w.openPath(d)
		exec := func() error {
			dh, err := w.fs.OpenDir(dirFD, rel)
			if err != nil {
				return err
			}
			d.dir = dh
			d.fd = dh.Fd()
			return nil
		}
		if err := w.ioq.Submit(ioqueue.Op{Kind: ioqueue.OpenDir, Cookie: d, Exec: exec}); err != nil {
			w.dirq.Attach(d, true)
		}
	}
	return progressed
}

// drainReadyBuffers dispatches any buffered file-queue entries that
// are sitting flushed-to-waiting but not yet serviced, per main-loop
// step 2 ("dispatch any async opendir/stat work that fits"). Returns
// true if it made progress.
func (w *walker) drainReadyBuffers() bool {
	progressed := false
	for {
		v := w.fileq.Detach(true)
		if v == nil {
			break
		}
		w.serviceBufferedFile(v)
		progressed = true
	}
	return progressed
}

func (w *walker) serviceBufferedFile(v *File) {
	if w.statRequired(v, v.typ) {
		if _, _, ok := v.cachedInfo(w.followModeFor(v, v.typ)); !ok {
			path := w.buildPath(v)
			dirFD, name := w.atBase(v, path)
			mode := w.followModeFor(v, v.typ)
			exec := func() error {
				info, err := w.fs.Stat(dirFD, name, mode)
				v.cacheInfo(mode, info, err)
				return err
			}
			if w.ioq != nil {
				if err := w.ioq.Submit(ioqueue.Op{Kind: ioqueue.Stat, Cookie: v, Exec: exec}); err == nil {
					return
				}
			}
			exec()
		}
	}
	w.fileq.Attach(v, true)
}

func (w *walker) drainOneCompletion() error {
	r, ok := w.ioq.Pop()
	if !ok {
		return nil
	}
	switch r.Op.Kind {
	case ioqueue.Stat:
		v := r.Op.Cookie.(*File)
		w.fileq.Attach(v, true)
	case ioqueue.OpenDir:
		d := r.Op.Cookie.(*File)
		if r.Err == nil {
			d.cached = true
			w.cache.Add(d, d.depth == 0)
		}
		// On failure d.fd is still -1 (Exec only sets it on success):
		// processDir's own d.fd < 0 branch picks this back up and
		// retries synchronously, with full recovery, once popped.
		w.dirq.Attach(d, true)
	case ioqueue.Close, ioqueue.CloseDir:
		if r.Err != nil {
			if f, ok := r.Op.Cookie.(*File); ok {
				w.log.Infof(f.name, "async close error: %v", r.Err)
			}
		}
	}
	return nil
}

// processDir opens d (if not already open), reads every entry via the
// pre-visit protocol, sorts and flushes any buffered children, then
// runs d's own GC step — spec §4.5 step 3.a/3.c.
func (w *walker) processDir(d *File) error {
	if d.fd < 0 {
		// Fallback path: d either was never offered to the I/O queue
		// (no workers configured) or its async open attempt failed and
		// left d.fd unset, so it's opened inline here instead, with the
		// full ENAMETOOLONG/EMFILE recovery async dispatch skips.
		w.dirq.NoteSynchronous()
		if err := w.openDir(d); err != nil {
			d.typ = fsapi.ErrorType
			path := w.buildPath(d)
			if w.args.Flags.has(Recover) {
				w.log.Infof(path, "recovered opendir error: %v", err)
			} else {
				w.recordFirstError(err)
			}
			return w.release(d)
		}
	}

	w.cache.Pin(d)
	var stopErr error
loop:
	for {
		entry, ok, err := d.dir.ReadDir()
		if err != nil {
			path := w.buildPath(d)
			if w.args.Flags.has(Recover) {
				w.log.Infof(path, "recovered readdir error: %v", err)
			} else {
				w.recordFirstError(err)
			}
			break
		}
		if !ok {
			break
		}
		if entry.Name == "." || entry.Name == ".." {
			continue
		}
		if entry.Type == fsapi.Wht && !w.args.Flags.has(Whiteouts) {
			continue
		}
		if err := w.previsit(d, entry.Name, entry.Type); err != nil {
			if err == errStopWalk {
				stopErr = err
				break loop
			}
			w.cache.Unpin(d)
			return err
		}
		if w.stopped() {
			break
		}
	}
	w.cache.Unpin(d)

	if w.args.Flags.has(Sort) {
		w.fileq.SortBuffer(lessEntry)
		w.dirq.SortBuffer(lessEntry)
	}
	w.fileq.Flush()
	w.dirq.Flush()

	if err := w.release(d); err != nil && err != errStopWalk {
		return err
	}
	return stopErr
}

// drainAll frees every record still queued, walked during shutdown or
// after a fatal/Stop condition, per spec §5's "both traversal queues
// are walked to free any remaining records".
func (w *walker) drainAll() {
	for _, f := range w.dirq.DrainAll() {
		w.closeFile(f)
		w.freeFile(f)
	}
	for _, f := range w.fileq.DrainAll() {
		w.closeFile(f)
		w.freeFile(f)
	}
	if w.ioq != nil {
		w.ioq.CancelAll()
		for w.ioq.Inflight() > 0 {
			if _, ok := w.ioq.Pop(); !ok {
				break
			}
		}
	}
}

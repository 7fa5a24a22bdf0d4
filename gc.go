package pwalk

import (
	"errors"

	"github.com/gowalk/pwalk/fsapi"
	"github.com/gowalk/pwalk/internal/ioqueue"
)

// errStopWalk is an internal sentinel propagated up the call stack
// once a callback returns Stop, never surfaced to the caller of Walk
// (which instead sees the first recorded error, if any).
var errStopWalk = errors.New("pwalk: stop requested")

// deliverPost delivers f's post-order visit, unless a prior Stop
// (from this or any other file's callback) already ended the walk —
// the testable property "from the moment Stop is returned, no further
// callbacks occur" applies to post-order delivery too.
func (w *walker) deliverPost(f *File) error {
	if w.stopped() {
		return nil
	}
	path := w.buildPath(f)
	info, _, _ := f.cachedInfo(fsapi.NoFollow)
	rec := &Record{
		Path: path, Root: f.root.name, Depth: f.depth, Visit: Post,
		Type: f.typ, Info: info,
	}
	if w.args.Callback(rec, w.args.User) == Stop {
		w.stopAll()
		return errStopWalk
	}
	return nil
}

// release drops the walk's hold on f (one reference unit) and, for
// every ancestor whose count collapses to zero as a result, delivers
// the post-order callback (if enabled), retires the path-builder
// cursor, closes any still-open fd, and frees the record back to the
// slab — spec §4.5.4 step 3. A directory whose listing has finished
// but which still has living descendants simply has its own hold
// removed without being freed, keeping its fd open (spec's "unwrap,
// optionally preserving the fd") until the last descendant collapses.
func (w *walker) release(f *File) error {
	cur := f
	var stopErr error
	for cur != nil {
		if cur.unref() > 0 {
			return stopErr
		}
		if w.args.Flags.has(PostOrder) {
			if err := w.deliverPost(cur); err != nil {
				stopErr = err
			}
		}
		if w.pb.previous == cur {
			w.pb.previous = nil
		}
		w.closeFile(cur)
		parent := cur.parent
		w.freeFile(cur)
		cur = parent
	}
	return stopErr
}

// closeFile releases any fd/dir f holds, returning its fdcache slot
// (if any) and dispatching the actual close syscall to the I/O queue
// when one is configured — safe because the cache bookkeeping above
// already ran synchronously on the main goroutine before the async
// exec closure ever touches the raw descriptor.
func (w *walker) closeFile(f *File) {
	if f.fd < 0 {
		return
	}
	if f.cached {
		w.cache.Remove(f)
		f.cached = false
	}
	d, fd := f.dir, f.fd
	f.dir, f.fd = nil, -1

	exec := func() error {
		if d != nil {
			return w.fs.CloseDir(d)
		}
		return w.fs.Close(fd)
	}
	kind := ioqueue.Close
	if d != nil {
		kind = ioqueue.CloseDir
	}
	if w.ioq != nil {
		if err := w.ioq.Submit(ioqueue.Op{Kind: kind, Cookie: f, Exec: exec}); err == nil {
			return
		}
	}
	if err := exec(); err != nil {
		w.log.Infof(f.name, "close error: %v", err)
	}
}

func (w *walker) allocFile(parent *File, name string) *File {
	f := w.slab.Alloc()
	return initFile(f, parent, name)
}

func (w *walker) freeFile(f *File) {
	w.slab.Free(f)
}

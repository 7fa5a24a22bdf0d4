package pwalk

import "github.com/gowalk/pwalk/fsapi"

// statRequired implements spec §4.5.3's rule list: when a dirent's
// type tag alone cannot be trusted, or the caller's flags demand a
// definitive answer anyway.
func (w *walker) statRequired(f *File, dtype fsapi.FileType) bool {
	flags := w.args.Flags
	if flags.has(StatAll) {
		return true
	}
	if dtype == fsapi.Unknown {
		return true
	}
	if dtype == fsapi.Lnk {
		if f.parent == nil && flags.has(FollowRoots) {
			return true
		}
		if flags.has(FollowAll) {
			return true
		}
	}
	if dtype == fsapi.Dir && (flags.has(DetectCycles) || flags.has(SkipMounts) || flags.has(PruneMounts)) {
		return true
	}
	if w.args.Mtab != nil && w.args.Mtab.MightBeMount(f.name) {
		return true
	}
	return false
}

func (w *walker) followModeFor(f *File, dtype fsapi.FileType) fsapi.FollowMode {
	if dtype != fsapi.Lnk {
		return fsapi.NoFollow
	}
	if f.parent == nil && w.args.Flags.has(FollowRoots) {
		return fsapi.TryFollow
	}
	if w.args.Flags.has(FollowAll) {
		return fsapi.TryFollow
	}
	return fsapi.NoFollow
}

// shouldBuffer implements step 1 of §4.5.3: sort and Buffer always
// stage; DFS with no worker pool stages so siblings can be LIFO-pushed
// together; otherwise an entry needing a stat that could run
// asynchronously is staged so the dispatch loop can hand it to a
// worker instead of blocking the readdir loop.
func (w *walker) shouldBuffer(f *File, dtype fsapi.FileType) bool {
	if w.args.Flags.has(Sort) || w.args.Flags.has(Buffer) {
		return true
	}
	if w.args.Strategy == DFS && w.args.NThreads == 0 {
		return true
	}
	if w.ioq != nil && w.statRequired(f, dtype) {
		return true
	}
	return false
}

// previsit is invoked once per discovered entry, including each
// starting path (parent == nil) per main-loop step 1.
func (w *walker) previsit(parent *File, name string, dtype fsapi.FileType) error {
	f := w.allocFile(parent, name)
	f.typ = dtype
	if parent != nil {
		parent.ref()
	}
	if w.shouldBuffer(f, dtype) {
		w.fileq.Push(f)
		return nil
	}
	return w.visitNow(f, dtype)
}

func (w *walker) findCycle(f *File, dev, ino uint64) *File {
	for anc := f.parent; anc != nil; anc = anc.parent {
		if anc.hasDevIno && anc.dev == dev && anc.ino == ino {
			return anc
		}
	}
	return nil
}

// visitNow constructs the callback record (init_ftwbuf) and invokes
// the user callback, implementing steps 3-4 of §4.5.3. It is called
// both directly from previsit (unbuffered entries) and for buffered
// entries once they reach the ready stage, relying on File's stat
// cache so a file stat'd ahead of time on a worker is never re-stat'd
// here.
func (w *walker) visitNow(f *File, dtype fsapi.FileType) error {
	f.typ = dtype
	path := w.buildPath(f)
	mode := w.followModeFor(f, dtype)

	var info *fsapi.Info
	var statErr error
	if w.statRequired(f, dtype) {
		if cached, cerr, ok := f.cachedInfo(mode); ok {
			info, statErr = cached, cerr
		} else {
			dirFD, name := w.atBase(f, path)
			got, err := w.fs.Stat(dirFD, name, mode)
			f.cacheInfo(mode, got, err)
			if err == nil {
				info = &got
			}
			statErr = err
		}
		if statErr == nil && info.Type != fsapi.Unknown {
			dtype = info.Type
			f.typ = dtype
		}
		// A starting path is stat'd NoFollow the first time since its
		// dirent type is unknown going in; if that reveals a symlink and
		// FollowRoots asked for it to be followed, redo the stat in
		// Follow mode before the record is built.
		if statErr == nil && f.parent == nil && dtype == fsapi.Lnk &&
			w.args.Flags.has(FollowRoots) && mode == fsapi.NoFollow {
			mode = w.followModeFor(f, dtype)
			if cached, cerr, ok := f.cachedInfo(mode); ok {
				info, statErr = cached, cerr
			} else {
				dirFD, name := w.atBase(f, path)
				got, err := w.fs.Stat(dirFD, name, mode)
				f.cacheInfo(mode, got, err)
				if err == nil {
					info = &got
				}
				statErr = err
			}
			if statErr == nil && info.Type != fsapi.Unknown {
				dtype = info.Type
				f.typ = dtype
			}
		}
	}

	var cycleErr error
	if statErr == nil && info != nil && dtype == fsapi.Dir {
		if w.args.Flags.has(DetectCycles) {
			if anc := w.findCycle(f, info.Dev, info.Ino); anc != nil {
				cycleErr = &CycleError{Path: path, Loopoff: anc.nameoff + len(anc.name)}
			}
		}
		if cycleErr == nil {
			f.setDevIno(*info)
		}
		if cycleErr == nil && f.parent != nil && f.parent.hasDevIno {
			if (w.args.Flags.has(SkipMounts) || w.args.Flags.has(PruneMounts)) && info.Dev != f.parent.dev {
				return w.release(f)
			}
		}
	}

	rec := &Record{
		Path: path, Root: f.root.name, Depth: f.depth, Visit: Pre,
		Type: dtype, Follow: mode, Info: info,
	}
	rec.AtFD, rec.AtName = w.atBase(f, path)

	switch {
	case cycleErr != nil:
		rec.Type = fsapi.ErrorType
		rec.Err = cycleErr
		if ce, ok := cycleErr.(*CycleError); ok {
			rec.Loopoff = ce.Loopoff
		}
		if !w.args.Flags.has(Recover) {
			w.recordFirstError(cycleErr)
			return w.release(f)
		}
	case statErr != nil:
		rec.Type = fsapi.ErrorType
		rec.Err = statErr
		if w.args.Flags.has(Recover) {
			w.log.Infof(path, "recovered stat error: %v", statErr)
		} else {
			w.recordFirstError(statErr)
			return w.release(f)
		}
	}

	w.metrics.IncFilesVisited()
	action := w.args.Callback(rec, w.args.User)

	switch action {
	case Stop:
		w.stopAll()
		return w.release(f)
	case Prune:
		return w.release(f)
	default:
		// A detected cycle is never descended into, Continue or not:
		// recovering from it only means the callback still gets to see
		// it, not that re-opening the same directory is safe.
		if dtype == fsapi.Dir && cycleErr == nil {
			w.dirq.Push(f)
			return nil
		}
		return w.release(f)
	}
}

// atBase picks the (dirFD, name) pair to stat/open f through: the
// immediate parent's already-open fd when available (a single short
// relative component), falling back to AtFDCWD with the full
// reconstructed path otherwise.
func (w *walker) atBase(f *File, path string) (int, string) {
	if f.parent != nil && f.parent.fd >= 0 {
		return f.parent.fd, f.name
	}
	return fsapi.AtFDCWD, path
}

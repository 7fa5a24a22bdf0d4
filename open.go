package pwalk

import (
	"errors"

	"golang.org/x/sys/unix"

	"github.com/gowalk/pwalk/fsapi"
)

// buildPath delegates to the walker's path builder.
func (w *walker) buildPath(f *File) string { return w.pb.build(f) }

func isENAMETOOLONG(err error) bool { return errors.Is(err, unix.ENAMETOOLONG) }
func isEMFILE(err error) bool       { return errors.Is(err, unix.EMFILE) }

// findOpenAncestor walks up from f collecting the chain of names not
// yet backed by an open fd, stopping at the nearest ancestor that
// already has one (or at the root if none do). Each returned name is
// a single short path component, which is exactly what makes the
// ENAMETOOLONG recovery below work: opening one component at a time
// can never itself overflow a path-length limit.
func (w *walker) findOpenAncestor(f *File) (ancestor *File, names []string) {
	cur := f
	for cur != nil && cur.fd < 0 {
		names = append(names, cur.name)
		cur = cur.parent
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return cur, names
}

// openPath returns the (dirFD, relativePath) pair the nearest open
// ancestor resolves through in a single combined openat call — the
// common, fast case.
func (w *walker) openPath(f *File) (int, string) {
	ancestor, names := w.findOpenAncestor(f)
	base := fsapi.AtFDCWD
	if ancestor != nil {
		base = ancestor.fd
	}
	if len(names) == 0 {
		return base, "."
	}
	rel := names[0]
	for _, n := range names[1:] {
		rel += "/" + n
	}
	return base, rel
}

// openComponentwise opens each intermediate ancestor one short name at
// a time instead of a single combined relative path, recovering from
// ENAMETOOLONG per spec §4.5.2. It returns an fd for f itself; the
// caller is responsible for turning it into a directory handle.
func (w *walker) openComponentwise(f *File) (int, error) {
	ancestor, names := w.findOpenAncestor(f)
	cur := fsapi.AtFDCWD
	if ancestor != nil {
		cur = ancestor.fd
	}
	var opened []int
	for _, name := range names {
		nfd, err := w.fs.OpenAt(cur, name)
		if err != nil {
			for _, o := range opened {
				w.fs.Close(o)
			}
			return -1, err
		}
		opened = append(opened, nfd)
		cur = nfd
	}
	for _, o := range opened[:len(opened)-1] {
		w.fs.Close(o)
	}
	return cur, nil
}

// openDir opens f as a directory, reserving and occupying one fdcache
// slot. It recovers from ENAMETOOLONG by re-opening component-by-
// component, and from EMFILE by forcing one extra LRU eviction and
// retrying once. Once such a retry succeeds, cappedAtOne is set and
// later EMFILE failures are returned without a retry; the cache's fd
// budget itself stays at nopenfd.
func (w *walker) openDir(f *File) error {
	if err := w.cache.Reserve(); err != nil {
		return wrapPathError("opendir", w.buildPath(f), err)
	}

	dirFD, rel := w.openPath(f)
	d, err := w.fs.OpenDir(dirFD, rel)
	if err != nil && isENAMETOOLONG(err) {
		fd, cerr := w.openComponentwise(f)
		if cerr != nil {
			return wrapPathError("opendir", w.buildPath(f), cerr)
		}
		d, err = w.fs.OpenDir(fd, ".")
		w.fs.Close(fd)
	}
	if err != nil && isEMFILE(err) && !w.cappedAtOne {
		// Reserve() already thought a slot was free (that's why we got
		// this far); the OS disagreeing means nopenfd was optimistic
		// relative to the real fd table, and asking Reserve() again
		// would just repeat the same no-op check. Force an eviction
		// instead: close whatever's on the LRU tail for real, then
		// retry once.
		if rerr := w.cache.Evict(); rerr == nil {
			if d2, err2 := w.fs.OpenDir(dirFD, rel); err2 == nil {
				d, err = d2, nil
				w.cappedAtOne = true
			}
		}
	}
	if err != nil {
		return wrapPathError("opendir", w.buildPath(f), err)
	}

	f.dir = d
	f.fd = d.Fd()
	f.cached = true
	w.cache.Add(f, f.depth == 0)
	return nil
}

package pwalk

import (
	"github.com/gowalk/pwalk/fsapi"
	"github.com/gowalk/pwalk/internal/fdcache"
	"github.com/gowalk/pwalk/internal/pwqueue"
)

// File is one record per encountered path component, the bftw_file of
// spec §3. It is allocated from a slab per walker (see walker.go) and
// freed back to that slab once its reference count collapses to zero
// during garbage collection (§4.5.4).
type File struct {
	parent *File
	root   *File
	depth  int

	name    string
	nameoff int

	refcount int32
	pincount int32

	fd  int
	dir fsapi.Dir

	typ fsapi.FileType

	// info/infoErr cache the two possible stat results, indexed by
	// fsapi.NoFollow and fsapi.Follow, so a symlink that is stat'd
	// both ways during cycle/mount checks and callback delivery never
	// pays for a second syscall.
	info    [2]*fsapi.Info
	infoErr [2]error

	dev       uint64
	ino       uint64
	hasDevIno bool

	// cached reports whether f currently occupies a reserved slot in
	// the walker's fdcache (via Add); closeFile consults this so it
	// never returns a capacity unit that was never taken.
	cached bool

	qnode pwqueue.Node[File]
	fdent fdcache.Entry[File]
}

func fileQNode(f *File) *pwqueue.Node[File]    { return &f.qnode }
func fileFDEntry(f *File) *fdcache.Entry[File] { return &f.fdent }

// initFile fills a freshly slab-allocated record. name is the dirent
// name as seen in parent (or, for a root, the starting path string
// verbatim). nameoff is computed once here following the rule in spec
// §4.5.1: a separator is inserted only when the parent's own tail does
// not already end in one (e.g. a starting path of "/").
func initFile(f *File, parent *File, name string) *File {
	f.name = name
	f.fd = -1
	if parent == nil {
		f.root = f
		f.depth = 0
		f.nameoff = 0
	} else {
		f.parent = parent
		f.root = parent.root
		f.depth = parent.depth + 1
		parentEnd := parent.nameoff + len(parent.name)
		if parentEnd > 0 && parent.name[len(parent.name)-1] != '/' {
			f.nameoff = parentEnd + 1
		} else {
			f.nameoff = parentEnd
		}
	}
	f.refcount = 1
	return f
}

// pathLen reports the full reconstructed path length for f, without
// building the string.
func (f *File) pathLen() int { return f.nameoff + len(f.name) }

func (f *File) cachedInfo(mode fsapi.FollowMode) (*fsapi.Info, error, bool) {
	idx := followIndex(mode)
	if f.info[idx] == nil && f.infoErr[idx] == nil {
		return nil, nil, false
	}
	return f.info[idx], f.infoErr[idx], true
}

func (f *File) cacheInfo(mode fsapi.FollowMode, info fsapi.Info, err error) {
	idx := followIndex(mode)
	if err != nil {
		f.infoErr[idx] = err
		return
	}
	f.info[idx] = &info
}

func followIndex(mode fsapi.FollowMode) int {
	if mode == fsapi.NoFollow {
		return 0
	}
	return 1
}

func (f *File) setDevIno(info fsapi.Info) {
	f.dev, f.ino, f.hasDevIno = info.Dev, info.Ino, true
}

// ref increments the reference count: one for the walk cursor plus one
// per living child, matching spec §3's "incoming edges from children
// + the walk cursor".
func (f *File) ref()   { f.refcount++ }
func (f *File) unref() int32 {
	f.refcount--
	return f.refcount
}

// Package fsapi defines the capability interfaces the traversal
// engine consumes (spec §6): directory open/read/close, stat with
// follow semantics, and the mount table used for cross-mount
// decisions. These are treated as external collaborators in spec.md —
// the engine never hard-codes a syscall, it calls through FS.
package fsapi

import (
	"io/fs"
	"time"
)

// FollowMode selects how Stat treats a symlink, mirroring the three
// modes spec §6 names.
type FollowMode int

const (
	NoFollow FollowMode = iota
	Follow
	TryFollow // follow if possible, fall back to the link itself on error
)

// FileType is a coarse dirent type, matching the tag set in spec §3
// (Unknown through Wht). It is a plain enumeration, independent of
// io/fs.FileMode's bits.
type FileType int

const (
	Unknown FileType = iota
	Dir
	Reg
	Lnk
	Blk
	Chr
	Fifo
	Sock
	Door
	Port
	Wht
	ErrorType // the dirent itself could not be typed; an error accompanies it
)

// DirEntry is one name yielded by ReadDir, before any stat has
// necessarily been performed.
type DirEntry struct {
	Name string
	Type FileType
}

// Info is the subset of stat(2) the engine and callback need.
type Info struct {
	Type    FileType
	Mode    fs.FileMode
	Size    int64
	ModTime time.Time
	Dev     uint64
	Ino     uint64
	Nlink   uint64
}

// Dir is an open directory handle, analogous to a DIR* / os.File used
// for reading entries.
type Dir interface {
	// ReadDir returns the next entry, or ok=false at end of directory.
	ReadDir() (entry DirEntry, ok bool, err error)
	// Fd returns the underlying descriptor, usable as the "at" base
	// for a later OpenAt/StatAt call.
	Fd() int
}

// FS is the filesystem capability surface the traversal engine
// consumes. Implementations must be safe for concurrent use by
// multiple I/O-queue workers, since OpenDir/Stat/Close calls dispatch
// onto the ioqueue pool.
type FS interface {
	// OpenDir opens name relative to dirFD (or absolute if dirFD is
	// AtFDCWD), returning a readable directory handle.
	OpenDir(dirFD int, name string) (Dir, error)
	// OpenAt opens name relative to dirFD for use as a future "at"
	// base (e.g. an intermediate directory during §4.5.2's
	// ENAMETOOLONG recovery), returning a raw descriptor.
	OpenAt(dirFD int, name string) (fd int, err error)
	// Stat stats name relative to dirFD under the given follow mode.
	Stat(dirFD int, name string, mode FollowMode) (Info, error)
	// Close closes a descriptor obtained from OpenAt or an Dir's Fd.
	Close(fd int) error
	// CloseDir closes a directory handle obtained from OpenDir.
	CloseDir(d Dir) error
}

// AtFDCWD is the sentinel dirFD meaning "name is an absolute path, or
// relative to the process's current working directory", mirroring
// the AT_FDCWD convention OpenAt-style syscalls use.
const AtFDCWD = -100

// MountTable answers cross-mount and "maybe a bind mount" questions
// for spec §4.5.5 and the open question in spec §9. A nil MountTable
// disables the mount-predicate stat requirement; SkipMounts and
// PruneMounts compare device numbers and do not consult it.
type MountTable interface {
	// MightBeMount reports whether name, as seen in its parent
	// directory, might be a mount point the dirent type alone can't
	// reveal — the platform-dependent case spec §9 asks to be made a
	// callable predicate instead of hard-coded.
	MightBeMount(name string) bool
}

// Package fakefs is an in-memory fsapi.FS for tests, built the way
// the teacher's fstest/mockfs and fstest/mockdir packages build a
// fake remote (referenced, though not retrieved in full, from
// fs/walk/walk_test.go's imports): a tree of nodes held in memory,
// addressed by path, with no real descriptors or syscalls involved so
// tests can exercise symlink cycles, ENAMETOOLONG, and permission
// errors deterministically.
package fakefs

import (
	"io/fs"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/gowalk/pwalk/fsapi"
)

// Node is one file, directory, or symlink in the fake tree.
type Node struct {
	Name     string
	Type     fsapi.FileType
	Mode     fs.FileMode
	Size     int64
	ModTime  time.Time
	Dev      uint64
	Ino      uint64
	Target   string // symlink target, only meaningful when Type == fsapi.Lnk
	Children map[string]*Node
	// StatErr, if set, is returned instead of a successful Stat of
	// this node — used to simulate EACCES/ENOENT-style failures.
	StatErr error
	// OpenErr, if set, is returned instead of a successful OpenDir.
	OpenErr error
}

func (n *Node) info() fsapi.Info {
	return fsapi.Info{Type: n.Type, Mode: n.Mode, Size: n.Size, ModTime: n.ModTime, Dev: n.Dev, Ino: n.Ino, Nlink: 1}
}

// Dir makes a fake directory. Every directory made this way has Dev 1
// and Ino 0; a test that needs distinct inodes (e.g. for cycle
// detection) sets Ino on the node itself.
func Dir(name string, children ...*Node) *Node {
	m := make(map[string]*Node, len(children))
	for _, c := range children {
		m[c.Name] = c
	}
	return &Node{Name: name, Type: fsapi.Dir, Mode: fs.ModeDir | 0755, Children: m, Dev: 1}
}

// File makes a fake regular file.
func File(name string, size int64) *Node {
	return &Node{Name: name, Type: fsapi.Reg, Mode: 0644, Size: size, Dev: 1}
}

// Symlink makes a fake symlink pointing at target.
func Symlink(name, target string) *Node {
	return &Node{Name: name, Type: fsapi.Lnk, Mode: fs.ModeSymlink | 0777, Target: target, Dev: 1}
}

// FS serves a fixed in-memory tree, allocating small sequential fds
// so every OpenDir/OpenAt/Close call can be balance-checked in tests.
type FS struct {
	mu   sync.Mutex
	root *Node
	next int
	open map[int]*dirHandle
}

// New builds an FS rooted at root (normally built with Dir).
func New(root *Node) *FS {
	return &FS{root: root, next: 3, open: make(map[int]*dirHandle)}
}

type dirHandle struct {
	fd     int
	node   *Node
	names  []string
	cursor int
}

func (d *dirHandle) Fd() int { return d.fd }

func (d *dirHandle) ReadDir() (fsapi.DirEntry, bool, error) {
	if d.cursor >= len(d.names) {
		return fsapi.DirEntry{}, false, nil
	}
	name := d.names[d.cursor]
	d.cursor++
	return fsapi.DirEntry{Name: name, Type: d.node.Children[name].Type}, true, nil
}

func (f *FS) resolve(dirFD int, name string) (*Node, error) {
	f.mu.Lock()
	var start *Node
	if dirFD == fsapi.AtFDCWD {
		start = f.root
	} else {
		h, ok := f.open[dirFD]
		if !ok {
			f.mu.Unlock()
			return nil, errors.Errorf("fakefs: bad dirFD %d", dirFD)
		}
		start = h.node
	}
	f.mu.Unlock()

	cur := start
	if name == "" || name == "." {
		return cur, nil
	}
	for _, part := range strings.Split(strings.TrimPrefix(name, "/"), "/") {
		if part == "" || part == "." {
			continue
		}
		if cur.Children == nil {
			return nil, errors.Wrapf(fs.ErrNotExist, "fakefs: %s", name)
		}
		child, ok := cur.Children[part]
		if !ok {
			return nil, errors.Wrapf(fs.ErrNotExist, "fakefs: %s", name)
		}
		cur = child
	}
	return cur, nil
}

// OpenDir implements fsapi.FS.
func (f *FS) OpenDir(dirFD int, name string) (fsapi.Dir, error) {
	n, err := f.resolve(dirFD, name)
	if err != nil {
		return nil, err
	}
	if n.OpenErr != nil {
		return nil, n.OpenErr
	}
	if n.Type != fsapi.Dir {
		return nil, errors.Errorf("fakefs: %s is not a directory", name)
	}
	names := make([]string, 0, len(n.Children))
	for name := range n.Children {
		names = append(names, name)
	}
	f.mu.Lock()
	fd := f.next
	f.next++
	h := &dirHandle{fd: fd, node: n, names: names}
	f.open[fd] = h
	f.mu.Unlock()
	return h, nil
}

// OpenAt implements fsapi.FS; the fake tree has no real descriptor
// limit, so this always succeeds for an existing node.
func (f *FS) OpenAt(dirFD int, name string) (int, error) {
	n, err := f.resolve(dirFD, name)
	if err != nil {
		return -1, err
	}
	f.mu.Lock()
	fd := f.next
	f.next++
	f.open[fd] = &dirHandle{fd: fd, node: n}
	f.mu.Unlock()
	return fd, nil
}

// Stat implements fsapi.FS, following at most one symlink hop: a link
// whose target is itself a link (including a link to itself) fails
// under Follow, much as the real Fstatat fails a symlink loop, and
// falls back to the link itself under TryFollow.
func (f *FS) Stat(dirFD int, name string, mode fsapi.FollowMode) (fsapi.Info, error) {
	n, err := f.resolve(dirFD, name)
	if err != nil {
		return fsapi.Info{}, err
	}
	if n.Type == fsapi.Lnk && mode != fsapi.NoFollow {
		target, err := f.resolve(dirFD, n.Target)
		if err == nil && target.Type == fsapi.Lnk {
			err = errors.Errorf("fakefs: %s: too many levels of symbolic links", name)
		}
		if err != nil {
			if mode == fsapi.Follow {
				return fsapi.Info{}, err
			}
			// TryFollow: fall back to the link itself.
		} else {
			n = target
		}
	}
	if n.StatErr != nil {
		return fsapi.Info{}, n.StatErr
	}
	return n.info(), nil
}

// Close implements fsapi.FS.
func (f *FS) Close(fd int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.open[fd]; !ok {
		return errors.Errorf("fakefs: close of unopened fd %d", fd)
	}
	delete(f.open, fd)
	return nil
}

// CloseDir implements fsapi.FS.
func (f *FS) CloseDir(d fsapi.Dir) error {
	h := d.(*dirHandle)
	return f.Close(h.fd)
}

// OpenCount reports the number of descriptors this FS currently
// considers open, for FD-budget assertions in tests.
func (f *FS) OpenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.open)
}

package pwalk

import "github.com/gowalk/pwalk/internal/arena"

// pathBuilder maintains the growable path buffer and "previous cursor"
// of spec §4.5.1: building the path for the current file only
// (re)writes the suffix that differs from the last path built, giving
// amortised O(1) bytes written per transition during a depth-first
// walk. The scratch buffer itself is a flex record (spec §4.1/§2.2): a
// counted byte tail whose length changes every time the walk moves
// between roots or crosses a depth that pushes it into a new size
// class, which is exactly the high-churn allocation pattern
// internal/arena.Flex exists to keep off the general-purpose
// allocator.
type pathBuilder struct {
	buf      []byte
	previous *File
	flex     *arena.Flex
}

func newPathBuilder() pathBuilder {
	return pathBuilder{flex: arena.NewFlex()}
}

// build returns the full reconstructed path for f.
func (pb *pathBuilder) build(f *File) string {
	total := f.pathLen()
	if cap(pb.buf) < total {
		grown := pb.flex.Alloc(total)
		copy(grown, pb.buf)
		if pb.buf != nil {
			pb.flex.Free(pb.buf)
		}
		pb.buf = grown
	}
	pb.buf = pb.buf[:total]

	// Walk both chains up to a common ancestor (by depth then by
	// identity), collecting every file below that ancestor on f's side
	// whose suffix must be (re)written.
	a, b := f, pb.previous
	var toWrite []*File
	for a != nil && b != nil && a.depth > b.depth {
		toWrite = append(toWrite, a)
		a = a.parent
	}
	for a != nil && b != nil && b.depth > a.depth {
		b = b.parent
	}
	for a != nil && b != nil && a != b {
		toWrite = append(toWrite, a)
		a = a.parent
		b = b.parent
	}
	if b == nil {
		// No common ancestor (first build, or a different root
		// entirely): everything from f up to its own root must be
		// written.
		toWrite = toWrite[:0]
		for cur := f; cur != nil; cur = cur.parent {
			toWrite = append(toWrite, cur)
		}
	}

	for i := len(toWrite) - 1; i >= 0; i-- {
		cur := toWrite[i]
		start := cur.nameoff
		end := start + len(cur.name)
		copy(pb.buf[start:end], cur.name)
		if cur.parent != nil && start > cur.parent.nameoff && pb.buf[start-1] != '/' {
			pb.buf[start-1] = '/'
		}
	}

	pb.previous = f
	return string(pb.buf[:total])
}

// forget clears the cursor, forcing the next build to rewrite its
// whole chain; run calls it after each starting path's pre-visit,
// since the next starting path may share no path prefix at all.
func (pb *pathBuilder) forget() { pb.previous = nil }

// destroy releases the flex arena backing pb's scratch buffer.
func (pb *pathBuilder) destroy() { pb.flex.Destroy() }

// Package list provides the intrusive singly- and doubly-linked list
// primitives the rest of the traversal engine is built from. Elements
// embed a link struct directly (no boxing, no separate node
// allocation) so that a single bftw-style record can sit on several
// lists at once using distinct link fields.
package list

// SNode is an intrusive singly-linked list link. Embed it in any
// struct that needs O(1) push-front/push-back/pop-front membership in
// one list.
type SNode[T any] struct {
	next *T
}

// SList is a singly-linked list with O(1) push-front, push-back,
// pop-front and splice. The zero value is an empty list.
type SList[T any] struct {
	head, tail *T
	link       func(*T) *SNode[T]
	size       int
}

// NewSList builds a list whose elements locate their link field via
// link. link must return the same *SNode[T] field on every call for a
// given element.
func NewSList[T any](link func(*T) *SNode[T]) *SList[T] {
	return &SList[T]{link: link}
}

// Len reports the number of elements currently linked.
func (l *SList[T]) Len() int { return l.size }

// Empty reports whether the list has no elements.
func (l *SList[T]) Empty() bool { return l.size == 0 }

// Front returns the head element, or nil if the list is empty.
func (l *SList[T]) Front() *T { return l.head }

// PushFront prepends v in O(1).
func (l *SList[T]) PushFront(v *T) {
	l.link(v).next = l.head
	l.head = v
	if l.tail == nil {
		l.tail = v
	}
	l.size++
}

// PushBack appends v in O(1).
func (l *SList[T]) PushBack(v *T) {
	l.link(v).next = nil
	if l.tail != nil {
		l.link(l.tail).next = v
	} else {
		l.head = v
	}
	l.tail = v
	l.size++
}

// PopFront removes and returns the head element, or nil if empty.
func (l *SList[T]) PopFront() *T {
	v := l.head
	if v == nil {
		return nil
	}
	l.head = l.link(v).next
	if l.head == nil {
		l.tail = nil
	}
	l.link(v).next = nil
	l.size--
	return v
}

// SpliceBack moves every element of other onto the back of l in O(1),
// leaving other empty.
func (l *SList[T]) SpliceBack(other *SList[T]) {
	if other.head == nil {
		return
	}
	if l.tail != nil {
		l.link(l.tail).next = other.head
	} else {
		l.head = other.head
	}
	l.tail = other.tail
	l.size += other.size
	other.head, other.tail, other.size = nil, nil, 0
}

// SpliceFront moves every element of other onto the front of l in
// O(1), leaving other empty.
func (l *SList[T]) SpliceFront(other *SList[T]) {
	if other.head == nil {
		return
	}
	if l.head != nil {
		l.link(other.tail).next = l.head
	} else {
		l.tail = other.tail
	}
	l.head = other.head
	l.size += other.size
	other.head, other.tail, other.size = nil, nil, 0
}

// DNode is an intrusive doubly-linked list link, giving O(1) removal
// from the middle of the list (needed by the FD cache's LRU, which
// must unlink an arbitrary file when it is pinned or promoted).
type DNode[T any] struct {
	prev, next *T
}

// DList is a doubly-linked list with O(1) PushFront/PushBack/Remove
// and O(1) MoveToFront for LRU-style reordering.
type DList[T any] struct {
	head, tail *T
	link       func(*T) *DNode[T]
	size       int
}

// NewDList builds a list whose elements locate their link field via link.
func NewDList[T any](link func(*T) *DNode[T]) *DList[T] {
	return &DList[T]{link: link}
}

func (l *DList[T]) Len() int      { return l.size }
func (l *DList[T]) Empty() bool   { return l.size == 0 }
func (l *DList[T]) Front() *T     { return l.head }
func (l *DList[T]) Back() *T      { return l.tail }

// PushFront inserts v at the head in O(1).
func (l *DList[T]) PushFront(v *T) {
	n := l.link(v)
	n.prev, n.next = nil, l.head
	if l.head != nil {
		l.link(l.head).prev = v
	} else {
		l.tail = v
	}
	l.head = v
	l.size++
}

// PushBack inserts v at the tail in O(1).
func (l *DList[T]) PushBack(v *T) {
	n := l.link(v)
	n.prev, n.next = l.tail, nil
	if l.tail != nil {
		l.link(l.tail).next = v
	} else {
		l.head = v
	}
	l.tail = v
	l.size++
}

// InsertBefore inserts v immediately before mark, or at the back if
// mark is nil.
func (l *DList[T]) InsertBefore(v, mark *T) {
	if mark == nil {
		l.PushBack(v)
		return
	}
	n := l.link(v)
	m := l.link(mark)
	n.prev, n.next = m.prev, mark
	if m.prev != nil {
		l.link(m.prev).next = v
	} else {
		l.head = v
	}
	m.prev = v
	l.size++
}

// InsertAfter inserts v immediately after mark, or at the front if
// mark is nil. Used by the FD cache to insert new files right behind
// its nominated target rather than always at an end.
func (l *DList[T]) InsertAfter(v, mark *T) {
	if mark == nil {
		l.PushFront(v)
		return
	}
	n := l.link(v)
	m := l.link(mark)
	n.prev, n.next = mark, m.next
	if m.next != nil {
		l.link(m.next).prev = v
	} else {
		l.tail = v
	}
	m.next = v
	l.size++
}

// Remove unlinks v from the list in O(1). v must currently be a
// member; removing a non-member corrupts the list.
func (l *DList[T]) Remove(v *T) {
	n := l.link(v)
	if n.prev != nil {
		l.link(n.prev).next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		l.link(n.next).prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev, n.next = nil, nil
	l.size--
}

// MoveToFront re-homes an already-linked v to the head in O(1),
// the primitive an LRU "touch" is built from.
func (l *DList[T]) MoveToFront(v *T) {
	if l.head == v {
		return
	}
	l.Remove(v)
	l.PushFront(v)
}

// PopBack removes and returns the tail element (the LRU victim), or
// nil if empty.
func (l *DList[T]) PopBack() *T {
	v := l.tail
	if v == nil {
		return nil
	}
	l.Remove(v)
	return v
}

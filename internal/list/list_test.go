package list

import "testing"

type elem struct {
	id   int
	snod SNode[elem]
	dnod DNode[elem]
}

func sLink(e *elem) *SNode[elem] { return &e.snod }
func dLink(e *elem) *DNode[elem] { return &e.dnod }

func ids(vs ...*elem) []int {
	out := make([]int, len(vs))
	for i, v := range vs {
		out[i] = v.id
	}
	return out
}

func eq(t *testing.T, got, want []int) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestSListPushPop(t *testing.T) {
	l := NewSList(sLink)
	a, b, c := &elem{id: 1}, &elem{id: 2}, &elem{id: 3}
	l.PushBack(a)
	l.PushBack(b)
	l.PushFront(c)
	if l.Len() != 3 {
		t.Fatalf("len = %d", l.Len())
	}
	eq(t, ids(l.PopFront(), l.PopFront(), l.PopFront()), []int{3, 1, 2})
	if !l.Empty() {
		t.Fatalf("expected empty")
	}
}

func TestSListSplice(t *testing.T) {
	l1 := NewSList(sLink)
	l2 := NewSList(sLink)
	a, b, c := &elem{id: 1}, &elem{id: 2}, &elem{id: 3}
	l1.PushBack(a)
	l2.PushBack(b)
	l2.PushBack(c)
	l1.SpliceBack(l2)
	if !l2.Empty() {
		t.Fatalf("source list not drained")
	}
	var out []int
	for v := l1.PopFront(); v != nil; v = l1.PopFront() {
		out = append(out, v.id)
	}
	eq(t, out, []int{1, 2, 3})
}

func TestDListLRU(t *testing.T) {
	l := NewDList(dLink)
	a, b, c := &elem{id: 1}, &elem{id: 2}, &elem{id: 3}
	l.PushBack(a)
	l.PushBack(b)
	l.PushBack(c)
	// touch a: it is already at the front, so the order is unchanged
	// and c stays the LRU tail
	l.MoveToFront(a)
	if l.Front().id != 1 || l.Back().id != 3 {
		t.Fatalf("front=%d back=%d", l.Front().id, l.Back().id)
	}
	l.Remove(b)
	if l.Len() != 2 {
		t.Fatalf("len = %d after remove", l.Len())
	}
	victim := l.PopBack()
	if victim.id != 3 {
		t.Fatalf("victim = %d, want 3", victim.id)
	}
}

func TestDListInsertBefore(t *testing.T) {
	l := NewDList(dLink)
	a, b, c := &elem{id: 1}, &elem{id: 2}, &elem{id: 3}
	l.PushBack(a)
	l.PushBack(c)
	l.InsertBefore(b, c)
	eq(t, ids(l.Front(), l.link(l.Front()).next, l.Back()), []int{1, 2, 3})
}

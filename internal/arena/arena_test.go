package arena

import "testing"

type rec struct {
	n int
}

func TestSlabAllocFree(t *testing.T) {
	s := NewSlab[rec](4)
	var ptrs []*rec
	for i := 0; i < 10; i++ {
		r := s.Alloc()
		r.n = i
		ptrs = append(ptrs, r)
	}
	if s.Len() != 10 {
		t.Fatalf("len = %d, want 10", s.Len())
	}
	s.Free(ptrs[0])
	s.Free(ptrs[1])
	if s.Len() != 8 {
		t.Fatalf("len = %d, want 8 after free", s.Len())
	}
	reused := s.Alloc()
	if reused.n != 0 {
		t.Fatalf("reused record not zeroed: %d", reused.n)
	}
	if s.Len() != 9 {
		t.Fatalf("len = %d, want 9 after realloc", s.Len())
	}
}

func TestSlabDestroy(t *testing.T) {
	s := NewSlab[rec](4)
	s.Alloc()
	s.Alloc()
	s.Destroy()
	if s.Len() != 0 {
		t.Fatalf("len = %d after destroy, want 0", s.Len())
	}
}

func TestFlexSizeClasses(t *testing.T) {
	a := NewFlex()
	short := a.Alloc(5)
	if len(short) != 5 {
		t.Fatalf("len(short) = %d, want 5", len(short))
	}
	long := a.Alloc(300)
	if len(long) != 300 {
		t.Fatalf("len(long) = %d, want 300", len(long))
	}
	huge := a.Alloc(maxSizeClass + 1)
	if len(huge) != maxSizeClass+1 {
		t.Fatalf("len(huge) = %d", len(huge))
	}
	a.Free(short)
	a.Free(long)
	again := a.Alloc(5)
	if cap(again) < 5 {
		t.Fatalf("reused buffer too small: cap=%d", cap(again))
	}
}

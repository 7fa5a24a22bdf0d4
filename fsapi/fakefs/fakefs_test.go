package fakefs

import (
	"errors"
	"testing"

	"github.com/gowalk/pwalk/fsapi"
)

func TestOpenDirReadAllEntries(t *testing.T) {
	tree := Dir("root", File("a", 1), File("b", 2), Dir("sub"))
	f := New(tree)

	d, err := f.OpenDir(fsapi.AtFDCWD, ".")
	if err != nil {
		t.Fatal(err)
	}
	seen := map[string]bool{}
	for {
		e, ok, err := d.ReadDir()
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
		seen[e.Name] = true
	}
	for _, want := range []string{"a", "b", "sub"} {
		if !seen[want] {
			t.Fatalf("missing entry %q", want)
		}
	}
	if err := f.CloseDir(d); err != nil {
		t.Fatal(err)
	}
	if f.OpenCount() != 0 {
		t.Fatalf("open count = %d, want 0", f.OpenCount())
	}
}

func TestSymlinkCycleDoesNotHang(t *testing.T) {
	tree := Dir("root", Symlink("loop", "loop"))
	f := New(tree)

	d, err := f.OpenDir(fsapi.AtFDCWD, ".")
	if err != nil {
		t.Fatal(err)
	}
	defer f.CloseDir(d)

	info, err := f.Stat(fsapi.AtFDCWD, "loop", fsapi.NoFollow)
	if err != nil {
		t.Fatal(err)
	}
	if info.Type != fsapi.Lnk {
		t.Fatalf("NoFollow stat type = %v, want Lnk", info.Type)
	}

	if _, err := f.Stat(fsapi.AtFDCWD, "loop", fsapi.Follow); err == nil {
		t.Fatal("expected error following a self-referential symlink")
	}

	info, err = f.Stat(fsapi.AtFDCWD, "loop", fsapi.TryFollow)
	if err != nil {
		t.Fatal(err)
	}
	if info.Type != fsapi.Lnk {
		t.Fatalf("TryFollow fallback type = %v, want Lnk", info.Type)
	}
}

func TestStatErrPropagates(t *testing.T) {
	bad := File("denied", 0)
	bad.StatErr = errors.New("permission denied")
	tree := Dir("root", bad)
	f := New(tree)

	if _, err := f.Stat(fsapi.AtFDCWD, "denied", fsapi.NoFollow); err == nil {
		t.Fatal("expected StatErr to propagate")
	}
}

package pwalk

import (
	"io/fs"
	"testing"

	"github.com/gowalk/pwalk/fsapi"
	"github.com/gowalk/pwalk/fsapi/fakefs"
)

type visit struct {
	path  string
	depth int
	v     Visit
	typ   fsapi.FileType
}

func collectAll(t *testing.T, fs *fakefs.FS, args *Args) []visit {
	t.Helper()
	var got []visit
	orig := args.Callback
	args.Callback = func(rec *Record, user any) Action {
		got = append(got, visit{path: rec.Path, depth: rec.Depth, v: rec.Visit, typ: rec.Type})
		return orig(rec, user)
	}
	if err := Walk(args); err != nil {
		t.Fatalf("Walk: %v", err)
	}
	return got
}

func alwaysContinue(*Record, any) Action { return Continue }

func TestBFSVisitsEveryFileOnce(t *testing.T) {
	tree := fakefs.Dir("",
		fakefs.Dir("a", fakefs.File("x", 1), fakefs.File("y", 1)),
		fakefs.Dir("b"),
		fakefs.File("c", 1),
	)
	fs := fakefs.New(tree)
	args := NewArgs([]string{"."}, alwaysContinue, nil, fs)

	got := collectAll(t, fs, args)

	want := map[string]bool{
		".": true, "./a": true, "./a/x": true, "./a/y": true,
		"./b": true, "./c": true,
	}
	if len(got) != len(want) {
		t.Fatalf("got %d visits, want %d: %+v", len(got), len(want), got)
	}
	seen := map[string]bool{}
	for _, v := range got {
		if seen[v.path] {
			t.Fatalf("path %s visited twice", v.path)
		}
		seen[v.path] = true
		if !want[v.path] {
			t.Fatalf("unexpected path %s", v.path)
		}
	}
}

func TestEmptyDirectoryYieldsNoChildren(t *testing.T) {
	tree := fakefs.Dir("", fakefs.Dir("empty"))
	fs := fakefs.New(tree)
	args := NewArgs([]string{"."}, alwaysContinue, nil, fs)

	got := collectAll(t, fs, args)
	if len(got) != 2 {
		t.Fatalf("got %d visits, want 2 (root + empty dir): %+v", len(got), got)
	}
}

func TestPruneSkipsSubtree(t *testing.T) {
	tree := fakefs.Dir("",
		fakefs.Dir("skip", fakefs.File("hidden", 1)),
		fakefs.File("visible", 1),
	)
	fs := fakefs.New(tree)
	cb := func(rec *Record, _ any) Action {
		if rec.Path == "./skip" {
			return Prune
		}
		return Continue
	}
	args := NewArgs([]string{"."}, cb, nil, fs)
	got := collectAll(t, fs, args)

	for _, v := range got {
		if v.path == "./skip/hidden" {
			t.Fatal("pruned subtree was still visited")
		}
	}
}

func TestStopHaltsFurtherCallbacks(t *testing.T) {
	tree := fakefs.Dir("",
		fakefs.File("a", 1), fakefs.File("b", 1), fakefs.File("c", 1),
	)
	fs := fakefs.New(tree)
	stopAt := "./a"
	stopped := false
	var afterStop []string
	cb := func(rec *Record, _ any) Action {
		if stopped {
			afterStop = append(afterStop, rec.Path)
		}
		if rec.Path == stopAt {
			stopped = true
			return Stop
		}
		return Continue
	}
	args := NewArgs([]string{"."}, cb, nil, fs)
	if err := Walk(args); err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(afterStop) != 0 {
		t.Fatalf("callbacks fired after Stop: %v", afterStop)
	}
}

func TestPostOrderFiresAfterChildren(t *testing.T) {
	tree := fakefs.Dir("",
		fakefs.Dir("a", fakefs.File("x", 1)),
	)
	fs := fakefs.New(tree)
	args := NewArgs([]string{"."}, alwaysContinue, nil, fs).WithFlags(PostOrder)
	got := collectAll(t, fs, args)

	idx := map[string][2]int{} // path -> [preIndex, postIndex]
	for i, v := range got {
		e := idx[v.path]
		if v.v == Pre {
			e[0] = i + 1
		} else {
			e[1] = i + 1
		}
		idx[v.path] = e
	}
	for _, p := range []string{".", "./a", "./a/x"} {
		e := idx[p]
		if e[0] == 0 || e[1] == 0 || e[0] >= e[1] {
			t.Fatalf("path %s: pre/post indices = %v, want pre before post", p, e)
		}
	}
	postA := idx["./a"][1]
	postX := idx["./a/x"][1]
	if postX >= postA {
		t.Fatalf("child post (%d) did not fire before parent post (%d)", postX, postA)
	}
}

func TestSortOrdersSiblingsLexicographically(t *testing.T) {
	tree := fakefs.Dir("",
		fakefs.File("banana", 1), fakefs.File("apple", 1), fakefs.File("cherry", 1),
	)
	fs := fakefs.New(tree)
	var order []string
	cb := func(rec *Record, _ any) Action {
		if rec.Depth == 1 {
			order = append(order, rec.Path)
		}
		return Continue
	}
	args := NewArgs([]string{"."}, cb, nil, fs).WithFlags(Sort)
	if err := Walk(args); err != nil {
		t.Fatalf("Walk: %v", err)
	}
	want := []string{"./apple", "./banana", "./cherry"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestDetectCyclesDirectoryRevisitsAncestor(t *testing.T) {
	// loop is a directory whose own entry "cycle" resolves back to
	// itself (the (dev,ino) pair an ancestor already owns), simulating
	// what a symlink or bind-mount loop looks like once stat'd.
	loop := &fakefs.Node{
		Name: "loop", Type: fsapi.Dir, Mode: fs.ModeDir | 0755,
		Dev: 1, Ino: 42, Children: map[string]*fakefs.Node{},
	}
	loop.Children["cycle"] = loop
	tree := fakefs.Dir("", loop)
	pfs := fakefs.New(tree)

	var errs []error
	cb := func(rec *Record, _ any) Action {
		if rec.Type == fsapi.ErrorType {
			errs = append(errs, rec.Err)
		}
		return Continue
	}
	args := NewArgs([]string{"."}, cb, nil, pfs).WithFlags(DetectCycles | Recover)
	if err := Walk(args); err != nil {
		t.Fatalf("Walk: %v", err)
	}
	foundCycle := false
	for _, e := range errs {
		if _, ok := e.(*CycleError); ok {
			foundCycle = true
		}
	}
	if !foundCycle {
		t.Fatalf("expected a CycleError, got errors: %v", errs)
	}
}

func TestFDBudgetNeverExceeded(t *testing.T) {
	tree := fakefs.Dir("a1",
		fakefs.Dir("a2",
			fakefs.Dir("a3",
				fakefs.Dir("a4",
					fakefs.File("leaf", 1),
				),
			),
		),
	)
	tree = fakefs.Dir("", tree)
	fs := fakefs.New(tree)

	budget := 3
	peak := 0
	cb := func(*Record, any) Action {
		if n := fs.OpenCount(); n > peak {
			peak = n
		}
		if fs.OpenCount() > budget {
			t.Fatalf("open fd count %d exceeds budget %d", fs.OpenCount(), budget)
		}
		return Continue
	}
	args := NewArgs([]string{"."}, cb, nil, fs).WithCache(budget)
	if err := Walk(args); err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if peak == 0 {
		t.Fatal("expected at least one directory to be opened")
	}
}

func TestDFSVisitsOneBranchBeforeSiblings(t *testing.T) {
	tree := fakefs.Dir("",
		fakefs.Dir("a", fakefs.Dir("a1", fakefs.File("leaf", 1))),
		fakefs.Dir("b"),
	)
	fs := fakefs.New(tree)
	var order []string
	cb := func(rec *Record, _ any) Action {
		order = append(order, rec.Path)
		return Continue
	}
	args := NewArgs([]string{"."}, cb, nil, fs).WithStrategy(DFS)
	if err := Walk(args); err != nil {
		t.Fatalf("Walk: %v", err)
	}
	pos := map[string]int{}
	for i, p := range order {
		pos[p] = i
	}
	if pos["./a/a1/leaf"] >= pos["./b"] {
		t.Fatalf("DFS should exhaust branch a before visiting sibling b: %v", order)
	}
}

// TestAsyncWorkersOpenEveryDirectory exercises the async opendir
// dispatch path (drainReadyDirs/Submit/Attach) by giving the walker
// worker threads and a tree deep enough that multiple directories sit
// in dirq's waiting stage at once. Every directory must still be
// visited exactly once, whether it was opened by a worker or fell back
// to processDir's synchronous path.
func TestAsyncWorkersOpenEveryDirectory(t *testing.T) {
	tree := fakefs.Dir("",
		fakefs.Dir("a",
			fakefs.Dir("a1", fakefs.File("leaf1", 1)),
			fakefs.Dir("a2", fakefs.File("leaf2", 1)),
		),
		fakefs.Dir("b",
			fakefs.Dir("b1", fakefs.File("leaf3", 1)),
		),
		fakefs.File("c", 1),
	)
	fs := fakefs.New(tree)
	args := NewArgs([]string{"."}, alwaysContinue, nil, fs).WithThreads(4)

	got := collectAll(t, fs, args)

	want := map[string]bool{
		".": true, "./a": true, "./a/a1": true, "./a/a1/leaf1": true,
		"./a/a2": true, "./a/a2/leaf2": true,
		"./b": true, "./b/b1": true, "./b/b1/leaf3": true,
		"./c": true,
	}
	if len(got) != len(want) {
		t.Fatalf("got %d visits, want %d: %+v", len(got), len(want), got)
	}
	seen := map[string]bool{}
	for _, v := range got {
		if seen[v.path] {
			t.Fatalf("path %s visited twice", v.path)
		}
		seen[v.path] = true
		if !want[v.path] {
			t.Fatalf("unexpected path %s", v.path)
		}
	}
}

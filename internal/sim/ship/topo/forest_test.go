package topo

import "testing"

func TestGrowJoinsOutside(t *testing.T) {
	f := New()
	first := f.Grow(10)
	if first != 1 {
		t.Fatalf("first node: got %d want 1", first)
	}
	if f.Len() != 11 {
		t.Fatalf("len: got %d want 11", f.Len())
	}
	for n := first; n < first+10; n++ {
		if !f.IsOutside(n) {
			t.Fatalf("node %d not joined to outside", n)
		}
	}
	if got := f.Size(f.Find(Outside)); got != 10 {
		t.Fatalf("outside size: got %d want 10", got)
	}
}

func TestUniteByRank(t *testing.T) {
	f := New()
	f.Reset()
	base := f.Grow(4)
	f.Reset()
	a, b, c, d := base, base+1, base+2, base+3

	r := f.Unite(a, b)
	if r != f.Find(a) || r != f.Find(b) {
		t.Fatalf("unite root mismatch")
	}
	// rank-1 tree absorbs a singleton.
	r2 := f.Unite(c, a)
	if r2 != r {
		t.Fatalf("higher-rank root should win: got %d want %d", r2, r)
	}
	if f.Unite(a, c) != r {
		t.Fatalf("re-uniting same tree should return its root")
	}
	if f.Find(d) != d {
		t.Fatalf("untouched node should stay its own root")
	}
	roots := f.Roots()
	// Outside, the abc tree and d.
	if len(roots) != 3 {
		t.Fatalf("roots: got %v want 3 roots", roots)
	}
}

func TestFindCompressesPath(t *testing.T) {
	f := New()
	base := f.Grow(64)
	f.Reset()
	for i := 0; i < 63; i++ {
		f.Unite(base+Node(i), base+Node(i+1))
	}
	root := f.Find(base + 63)
	for i := 0; i < 64; i++ {
		n := base + Node(i)
		if f.Find(n) != root {
			t.Fatalf("node %d: wrong root", n)
		}
		if n != root && f.parent[n] != root {
			t.Fatalf("node %d: path not compressed", n)
		}
	}
}

func TestTallyAndReset(t *testing.T) {
	f := New()
	base := f.Grow(3)
	f.Reset()
	f.Unite(base, base+1)
	for i := 0; i < 3; i++ {
		f.Tally(base + Node(i))
	}
	if got := f.Size(f.Find(base)); got != 2 {
		t.Fatalf("size: got %d want 2", got)
	}
	if got := f.Size(base + 2); got != 1 {
		t.Fatalf("singleton size: got %d want 1", got)
	}
	if f.IsOutside(base) {
		t.Fatalf("reset node should not be outside")
	}
}

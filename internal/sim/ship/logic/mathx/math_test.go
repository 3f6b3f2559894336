package mathx

import "testing"

func TestSplitNegativeSpace(t *testing.T) {
	cases := []struct {
		p, chunk, off int
	}{
		{0, 0, 0},
		{7, 0, 7},
		{8, 1, 0},
		{-1, -1, 7},
		{-8, -1, 0},
		{-9, -2, 7},
		{-16, -2, 0},
		{-17, -3, 7},
	}
	for _, c := range cases {
		ch, off := Split(c.p, 8)
		if ch != c.chunk || off != c.off {
			t.Fatalf("Split(%d): got (%d,%d) want (%d,%d)", c.p, ch, off, c.chunk, c.off)
		}
	}
}

func TestFloorDivMod(t *testing.T) {
	for p := -40; p <= 40; p++ {
		q := FloorDiv(p, 8)
		m := Mod(p, 8)
		if q*8+m != p {
			t.Fatalf("p=%d: q=%d m=%d do not recombine", p, q, m)
		}
		if m < 0 || m >= 8 {
			t.Fatalf("p=%d: mod out of range: %d", p, m)
		}
	}
}

func TestMinMax(t *testing.T) {
	a := Vec3i{1, -5, 3}
	b := Vec3i{-2, 4, 3}
	if got := Min(a, b); got != (Vec3i{-2, -5, 3}) {
		t.Fatalf("Min: got %+v", got)
	}
	if got := Max(a, b); got != (Vec3i{1, 4, 3}) {
		t.Fatalf("Max: got %+v", got)
	}
	if got := Manhattan(a, b); got != 12 {
		t.Fatalf("Manhattan: got %d want 12", got)
	}
}

package block

import (
	"testing"

	"shipspace.io/internal/sim/ship/logic/mathx"
)

func TestFaceOppositeAndDir(t *testing.T) {
	for f := Face(0); f < FaceCount; f++ {
		o := f.Opposite()
		if o.Opposite() != f {
			t.Fatalf("face %d: opposite not involutive", f)
		}
		if f.Dir().Add(o.Dir()) != (mathx.Vec3i{}) {
			t.Fatalf("face %d: dir %+v not opposite of %+v", f, f.Dir(), o.Dir())
		}
		if f.Axis() != o.Axis() {
			t.Fatalf("face %d: axis mismatch with opposite", f)
		}
		got, ok := FaceFromNormal(f.Dir())
		if !ok || got != f {
			t.Fatalf("FaceFromNormal(%+v): got %d,%v want %d", f.Dir(), got, ok, f)
		}
	}
	if _, ok := FaceFromNormal(mathx.Vec3i{X: 1, Y: 1}); ok {
		t.Fatalf("diagonal normal should not map to a face")
	}
}

func TestPermeability(t *testing.T) {
	cases := []struct {
		s          Surface
		air, light bool
	}{
		{SurfaceNone, true, true},
		{SurfaceWall, false, false},
		{SurfaceGrate, true, true},
		{SurfaceText, false, false},
		{SurfaceGlass, false, true},
	}
	for _, c := range cases {
		if AirPermeable(c.s) != c.air {
			t.Fatalf("%s: air got %v want %v", c.s, AirPermeable(c.s), c.air)
		}
		if LightPermeable(c.s) != c.light {
			t.Fatalf("%s: light got %v want %v", c.s, LightPermeable(c.s), c.light)
		}
		back, ok := ParseSurface(c.s.String())
		if !ok || back != c.s {
			t.Fatalf("ParseSurface(%q): got %d,%v", c.s.String(), back, ok)
		}
	}
}

func TestSurfaceMask(t *testing.T) {
	var b Block
	if b.SurfaceMask() != 0 {
		t.Fatalf("empty block mask: got %08b", b.SurfaceMask())
	}
	b.Surfs[FaceXM] = SurfaceWall
	b.Surfs[FaceZM] = SurfaceGlass
	if got := b.SurfaceMask(); got != 0b100010 {
		t.Fatalf("mask: got %08b want %08b", got, 0b100010)
	}
}

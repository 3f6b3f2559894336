package raycast

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"shipspace.io/internal/sim/ship/block"
	"shipspace.io/internal/sim/ship/logic/mathx"
	"shipspace.io/internal/sim/ship/store"
)

func worldWith(solid ...mathx.Vec3i) *store.ChunkStore {
	s := store.NewChunkStore()
	s.EnsureChunk(store.ChunkKey{})
	for _, p := range solid {
		b, _ := s.EnsureBlock(p)
		b.Type = block.Support
	}
	return s
}

func TestHitAlongX(t *testing.T) {
	w := worldWith(mathx.Vec3i{X: 3})
	rc := Cast(w, mgl32.Vec3{0.5, 0.5, 0.5}, mgl32.Vec3{1, 0, 0}, DefaultReach)
	if !rc.Hit || rc.Inside {
		t.Fatalf("expected outside hit, got %+v", rc)
	}
	if rc.Block != (mathx.Vec3i{X: 3}) || rc.Normal != (mathx.Vec3i{X: -1}) || rc.Prev != (mathx.Vec3i{X: 2}) {
		t.Fatalf("hit: got %+v", rc)
	}
	if f, ok := rc.Face(); !ok || f != block.FaceXM {
		t.Fatalf("face: got %v,%v want xm", f, ok)
	}
	if rc.Data == nil || rc.Data.Type != block.Support {
		t.Fatalf("hit block data missing")
	}
}

func TestReachLimit(t *testing.T) {
	w := worldWith(mathx.Vec3i{X: 7})
	if rc := Cast(w, mgl32.Vec3{0.5, 0.5, 0.5}, mgl32.Vec3{1, 0, 0}, DefaultReach); rc.Hit {
		t.Fatalf("block 7 steps away should be out of reach, got %+v", rc)
	}
	w = worldWith(mathx.Vec3i{X: 6})
	if rc := Cast(w, mgl32.Vec3{0.5, 0.5, 0.5}, mgl32.Vec3{1, 0, 0}, DefaultReach); !rc.Hit {
		t.Fatalf("block 6 steps away should be in reach")
	}
}

func TestStartInsideSolid(t *testing.T) {
	w := worldWith(mathx.Vec3i{X: 1}, mathx.Vec3i{X: 2})
	rc := Cast(w, mgl32.Vec3{1.5, 0.5, 0.5}, mgl32.Vec3{1, 0, 0}, DefaultReach)
	if !rc.Hit || !rc.Inside {
		t.Fatalf("expected inside hit, got %+v", rc)
	}
	if rc.Block != (mathx.Vec3i{X: 3}) || rc.Prev != (mathx.Vec3i{X: 2}) {
		t.Fatalf("inside exit: got %+v", rc)
	}
}

func TestSkipsMissingChunksFromOutside(t *testing.T) {
	w := worldWith(mathx.Vec3i{X: 1})
	rc := Cast(w, mgl32.Vec3{-3.5, 0.5, 0.5}, mgl32.Vec3{1, 0, 0}, DefaultReach)
	if !rc.Hit || rc.Block != (mathx.Vec3i{X: 1}) {
		t.Fatalf("expected hit at x=1, got %+v", rc)
	}
}

func TestNegativeDirection(t *testing.T) {
	w := worldWith(mathx.Vec3i{})
	rc := Cast(w, mgl32.Vec3{2.5, 0.5, 0.5}, mgl32.Vec3{-1, 0, 0}, DefaultReach)
	if !rc.Hit || rc.Block != (mathx.Vec3i{}) || rc.Normal != (mathx.Vec3i{X: 1}) || rc.Prev != (mathx.Vec3i{X: 1}) {
		t.Fatalf("negative ray: got %+v", rc)
	}
	// Starting exactly on a grid line leaves the start cell immediately.
	rc = Cast(w, mgl32.Vec3{2, 0.5, 0.5}, mgl32.Vec3{-1, 0, 0}, 2)
	if !rc.Hit || rc.Block != (mathx.Vec3i{}) {
		t.Fatalf("grid-line start: got %+v", rc)
	}
}

func TestTieBreaksXFirst(t *testing.T) {
	w := worldWith(mathx.Vec3i{X: 1}, mathx.Vec3i{Y: 1})
	rc := Cast(w, mgl32.Vec3{0.5, 0.5, 0.5}, mgl32.Vec3{1, 1, 0}, DefaultReach)
	if !rc.Hit || rc.Block != (mathx.Vec3i{X: 1}) || rc.Normal != (mathx.Vec3i{X: -1}) {
		t.Fatalf("tie: got %+v", rc)
	}
}

func TestNoHitAndZeroDirection(t *testing.T) {
	w := worldWith()
	if rc := Cast(w, mgl32.Vec3{0.5, 0.5, 0.5}, mgl32.Vec3{0, 0, 1}, DefaultReach); rc.Hit {
		t.Fatalf("empty world hit: %+v", rc)
	}
	if rc := Cast(w, mgl32.Vec3{0.5, 0.5, 0.5}, mgl32.Vec3{}, DefaultReach); rc.Hit {
		t.Fatalf("zero direction hit: %+v", rc)
	}
}

package ship

import (
	"bytes"
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"shipspace.io/internal/sim/ship/block"
	"shipspace.io/internal/sim/ship/entities"
)

func TestSnapshotRoundTrip(t *testing.T) {
	s, h := habitat(t)
	if err := s.UseTool(ToolPlaceEntity, center, mgl32.Vec3{0, -1, 0}, ToolOptions{Kind: entities.KindPressureSensor}); err != nil {
		t.Fatalf("place sensor: %v", err)
	}
	// A second, empty room next door.
	sealBox(s, v(10, 1, 1), v(2, 2, 2))
	for i := 0; i < 3; i++ {
		s.Tick()
	}

	snap := s.ExportSnapshot(41)
	r := New(Config{})
	if err := r.ImportSnapshot(snap); err != nil {
		t.Fatalf("import: %v", err)
	}

	if r.ID() != s.ID() {
		t.Fatalf("id: got %q want %q", r.ID(), s.ID())
	}
	if got := r.CurrentTick(); got != 42 {
		t.Fatalf("tick: got %d want 42", got)
	}
	if r.ZoneCount() != s.ZoneCount() {
		t.Fatalf("zones: got %d want %d", r.ZoneCount(), s.ZoneCount())
	}
	rh, ra, rv := r.AirBalance()
	sh, sa, sv := s.AirBalance()
	if rh != sh || ra != sa || rv != sv {
		t.Fatalf("balance: got %v/%v/%v want %v/%v/%v", rh, ra, rv, sh, sa, sv)
	}
	if got := r.Pressure(h.Min); got != 1 {
		t.Fatalf("pressure: got %v want 1", got)
	}
	if r.Entities().Len() != s.Entities().Len() {
		t.Fatalf("entities: got %d want %d", r.Entities().Len(), s.Entities().Len())
	}
	if !r.Entities().Active(h.Frobnicator) {
		t.Fatalf("frobnicator lost its power state")
	}
	if r.GetBlock(v(2, 1, 2)).SurfUsed[block.FaceYM] == 0 {
		t.Fatalf("sensor reservation not restored")
	}
	for _, k := range s.Chunks().LoadedChunkKeys() {
		a, _ := s.SerializeChunk(k)
		b, ok := r.SerializeChunk(k)
		if !ok || !bytes.Equal(a, b) {
			t.Fatalf("chunk %v differs after import", k)
		}
	}
	if !r.Connected(h.Min, h.Max) || r.Connected(h.Min, v(10, 1, 1)) {
		t.Fatalf("topology not rebuilt")
	}
	// The unscaffolded room is reported the same way on both sides.
	if got, want := len(r.Validate()), len(s.Validate()); got != want {
		t.Fatalf("violations: got %d want %d", got, want)
	}
	checkConserved(t, r)

	if err := r.ImportSnapshot(snap); err == nil {
		t.Fatalf("import into a loaded ship should fail")
	}
}

func TestImportRejectsForeignLayout(t *testing.T) {
	s, _ := habitat(t)
	snap := s.ExportSnapshot(1)
	snap.ChunkSize = 16
	if err := New(Config{}).ImportSnapshot(snap); err == nil {
		t.Fatalf("expected chunk size mismatch")
	}
	snap = s.ExportSnapshot(1)
	snap.Header.Version = 99
	if err := New(Config{}).ImportSnapshot(snap); err == nil {
		t.Fatalf("expected version mismatch")
	}
}

func TestValidateReportsBrokenSurfaces(t *testing.T) {
	s := New(Config{})
	s.AddSurface(v(1, 1, 1), block.FaceXP, block.SurfaceWall)
	vs := s.Validate()
	// Neither side is scaffolding, and the face is listed from both blocks.
	if len(vs) != 2 || vs[0].Kind != ViolationUnsupported || vs[1].Kind != ViolationUnsupported {
		t.Fatalf("unsupported: got %v", vs)
	}

	s.SetBlockType(v(1, 1, 1), block.Support)
	s.GetBlock(v(2, 1, 1)).Surfs[block.FaceXM] = block.SurfaceGlass
	vs = s.Validate()
	var inconsistent int
	for _, x := range vs {
		if x.Kind == ViolationInconsistent {
			inconsistent++
		}
	}
	if inconsistent != 2 {
		t.Fatalf("inconsistent: got %v", vs)
	}
}

func TestImportRespectsExtent(t *testing.T) {
	s := New(Config{})
	sealBox(s, v(1, 1, 1), v(20, 1, 1))
	snap := s.ExportSnapshot(3)
	if snap.MaxChunkSpan != s.Chunks().MaxSpan() {
		t.Fatalf("span: got %d want %d", snap.MaxChunkSpan, s.Chunks().MaxSpan())
	}
	if err := New(Config{MaxChunkSpan: 2}).ImportSnapshot(snap); !errors.Is(err, ErrOutOfExtent) {
		t.Fatalf("got %v want %v", err, ErrOutOfExtent)
	}
}

package ship

import (
	"math"
	"testing"

	"shipspace.io/internal/sim/ship/block"
	"shipspace.io/internal/sim/ship/logic/mathx"
)

func v(x, y, z int) mathx.Vec3i { return mathx.Vec3i{X: x, Y: y, Z: z} }

// sealBox walls every face of the box min..min+size-1 that looks out of it.
func sealBox(s *Ship, min, size mathx.Vec3i) {
	max := min.Add(size).Sub(v(1, 1, 1))
	in := func(p mathx.Vec3i) bool {
		return p.X >= min.X && p.X <= max.X && p.Y >= min.Y && p.Y <= max.Y && p.Z >= min.Z && p.Z <= max.Z
	}
	for z := min.Z; z <= max.Z; z++ {
		for y := min.Y; y <= max.Y; y++ {
			for x := min.X; x <= max.X; x++ {
				p := v(x, y, z)
				for f := block.Face(0); f < block.FaceCount; f++ {
					if !in(p.Add(f.Dir())) {
						s.AddSurface(p, f, block.SurfaceWall)
					}
				}
			}
		}
	}
}

func checkConserved(t *testing.T, s *Ship) {
	t.Helper()
	held, added, vented := s.AirBalance()
	if d := math.Abs(held + vented - added); d > 1e-9*math.Max(1, added) {
		t.Fatalf("gas not conserved: held=%v vented=%v added=%v", held, vented, added)
	}
}

type tickRecorder struct{ entries []TickLogEntry }

func (r *tickRecorder) WriteTick(e TickLogEntry) error {
	r.entries = append(r.entries, e)
	return nil
}

type auditRecorder struct{ entries []AuditEntry }

func (r *auditRecorder) WriteAudit(e AuditEntry) error {
	r.entries = append(r.entries, e)
	return nil
}

package ship

import (
	"fmt"

	"shipspace.io/internal/sim/ship/block"
	"shipspace.io/internal/sim/ship/logic/mathx"
)

type ViolationKind string

const (
	ViolationMissingFarSide ViolationKind = "missing_far_side"
	ViolationInconsistent   ViolationKind = "inconsistent_surface"
	ViolationUnsupported    ViolationKind = "unsupported_surface"
)

// Violation is one broken surface invariant found by Validate.
type Violation struct {
	Kind ViolationKind
	Pos  mathx.Vec3i
	Face block.Face
}

func (v Violation) String() string {
	switch v.Kind {
	case ViolationMissingFarSide:
		return fmt.Sprintf("%d %d %d face %d: far side is in a nonexistent chunk", v.Pos.X, v.Pos.Y, v.Pos.Z, v.Face)
	case ViolationInconsistent:
		return fmt.Sprintf("%d %d %d face %d: far side surface does not match", v.Pos.X, v.Pos.Y, v.Pos.Z, v.Face)
	case ViolationUnsupported:
		return fmt.Sprintf("%d %d %d face %d has no supporting scaffold", v.Pos.X, v.Pos.Y, v.Pos.Z, v.Face)
	}
	return fmt.Sprintf("%d %d %d face %d: %s", v.Pos.X, v.Pos.Y, v.Pos.Z, v.Face, v.Kind)
}

// Validate checks that every surface is mirrored on an existing far side and
// that a support block sits on at least one side of it. Violations are
// logged and returned; nothing is repaired.
func (s *Ship) Validate() []Violation {
	var out []Violation
	for _, ch := range s.chunks.Chunks() {
		for i := range ch.Blocks {
			bl := &ch.Blocks[i]
			pos := ch.WorldPos(i)
			for f := block.Face(0); f < block.FaceCount; f++ {
				if bl.Surfs[f] == block.SurfaceNone {
					continue
				}
				other := s.chunks.GetBlock(pos.Add(f.Dir()))
				switch {
				case other == nil:
					out = append(out, Violation{Kind: ViolationMissingFarSide, Pos: pos, Face: f})
				case other.Surfs[f.Opposite()] != bl.Surfs[f]:
					out = append(out, Violation{Kind: ViolationInconsistent, Pos: pos, Face: f})
				}
				if bl.Type != block.Support && (other == nil || other.Type != block.Support) {
					out = append(out, Violation{Kind: ViolationUnsupported, Pos: pos, Face: f})
				}
			}
		}
	}
	for _, v := range out {
		s.logger.Printf("validate(): %s", v)
	}
	if len(out) == 0 {
		s.logger.Printf("validate(): OK")
	}
	return out
}

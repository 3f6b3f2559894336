package ship

import (
	"fmt"

	"github.com/google/uuid"

	"shipspace.io/internal/sim/ship/block"
	"shipspace.io/internal/sim/ship/entities"
	"shipspace.io/internal/sim/ship/logic/mathx"
)

// Habitat describes a room built by BuildHabitat.
type Habitat struct {
	// Interior is the inclusive box of air cells inside the walls.
	Min, Max mathx.Vec3i

	Light       uuid.UUID
	Frobnicator uuid.UUID
}

func (h Habitat) Volume() int {
	d := h.Max.Sub(h.Min)
	return (d.X + 1) * (d.Y + 1) * (d.Z + 1)
}

// BuildHabitat builds a sealed room with interior min..min+size-1 inside a
// shell of support blocks, walls every interior face touching the shell,
// mounts a ceiling light and stands a frobnicator in the first corner. Both
// devices are powered and the room starts at pressure 1.
func (s *Ship) BuildHabitat(min, size mathx.Vec3i) (Habitat, error) {
	if size.X < 1 || size.Y < 1 || size.Z < 2 {
		return Habitat{}, fmt.Errorf("habitat size %v too small", size)
	}
	h := Habitat{Min: min, Max: min.Add(size).Sub(mathx.Vec3i{X: 1, Y: 1, Z: 1})}
	lo := h.Min.Sub(mathx.Vec3i{X: 1, Y: 1, Z: 1})
	hi := h.Max.Add(mathx.Vec3i{X: 1, Y: 1, Z: 1})
	if !s.InExtent(lo, hi) {
		return Habitat{}, fmt.Errorf("habitat %v..%v: %w", lo, hi, ErrOutOfExtent)
	}

	inside := func(p mathx.Vec3i) bool {
		return p.X >= h.Min.X && p.X <= h.Max.X &&
			p.Y >= h.Min.Y && p.Y <= h.Max.Y &&
			p.Z >= h.Min.Z && p.Z <= h.Max.Z
	}

	for z := lo.Z; z <= hi.Z; z++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for x := lo.X; x <= hi.X; x++ {
				p := mathx.Vec3i{X: x, Y: y, Z: z}
				s.EnsureBlock(p)
				if !inside(p) {
					s.SetBlockType(p, block.Support)
				}
			}
		}
	}

	for z := h.Min.Z; z <= h.Max.Z; z++ {
		for y := h.Min.Y; y <= h.Max.Y; y++ {
			for x := h.Min.X; x <= h.Max.X; x++ {
				p := mathx.Vec3i{X: x, Y: y, Z: z}
				for f := block.Face(0); f < block.FaceCount; f++ {
					if !inside(p.Add(f.Dir())) {
						s.AddSurface(p, f, block.SurfaceWall)
					}
				}
			}
		}
	}

	top := h.Max
	id, err := s.placeMounted(top.Add(block.FaceZP.Dir()), top, block.FaceZM, entities.KindLight)
	if err != nil {
		return h, fmt.Errorf("ceiling light: %w", err)
	}
	h.Light = id

	id, err = s.placeBlockEntity(h.Min, entities.KindFrobnicator)
	if err != nil {
		return h, fmt.Errorf("frobnicator: %w", err)
	}
	h.Frobnicator = id

	on := true
	_ = s.SetPower(h.Light, &on, nil)
	_ = s.SetPower(h.Frobnicator, &on, nil)

	vol := float64(s.RegionSize(h.Min))
	s.ProduceGas(h.Min, vol, 1.0)
	return h, nil
}

package block

import "shipspace.io/internal/sim/ship/logic/mathx"

type Type uint8

const (
	Empty Type = iota
	Support
	Entity
)

func (t Type) String() string {
	switch t {
	case Empty:
		return "empty"
	case Support:
		return "support"
	case Entity:
		return "entity"
	default:
		return "unknown"
	}
}

func ParseType(name string) (Type, bool) {
	switch name {
	case "empty":
		return Empty, true
	case "support":
		return Support, true
	case "entity":
		return Entity, true
	}
	return 0, false
}

// Surface is the type code carried by one face of a block. The codes are
// part of the chunk wire format and must not be renumbered.
type Surface uint8

const (
	SurfaceNone Surface = iota
	SurfaceWall
	SurfaceGrate
	SurfaceText
	SurfaceGlass
)

func (s Surface) String() string {
	switch s {
	case SurfaceNone:
		return "none"
	case SurfaceWall:
		return "wall"
	case SurfaceGrate:
		return "grate"
	case SurfaceText:
		return "text"
	case SurfaceGlass:
		return "glass"
	default:
		return "unknown"
	}
}

// ParseSurface maps a surface name back to its code.
func ParseSurface(name string) (Surface, bool) {
	switch name {
	case "none":
		return SurfaceNone, true
	case "wall":
		return SurfaceWall, true
	case "grate":
		return SurfaceGrate, true
	case "text":
		return SurfaceText, true
	case "glass":
		return SurfaceGlass, true
	}
	return 0, false
}

// AirPermeable reports whether gas passes through s.
func AirPermeable(s Surface) bool {
	return s == SurfaceNone || s == SurfaceGrate
}

// LightPermeable reports whether light passes through s.
func LightPermeable(s Surface) bool {
	return s == SurfaceNone || s == SurfaceGrate || s == SurfaceGlass
}

// Face indexes the six sides of a block. Opposite faces differ only in the
// low bit.
type Face uint8

const (
	FaceXP Face = iota
	FaceXM
	FaceYP
	FaceYM
	FaceZP
	FaceZM
)

const FaceCount = 6

func (f Face) Opposite() Face { return f ^ 1 }

// Positive reports whether f points along +x, +y or +z.
func (f Face) Positive() bool { return f&1 == 0 }

// Axis is 0, 1 or 2 for x, y, z.
func (f Face) Axis() int { return int(f >> 1) }

func (f Face) Valid() bool { return f < FaceCount }

var dirs = [FaceCount]mathx.Vec3i{
	{X: 1}, {X: -1},
	{Y: 1}, {Y: -1},
	{Z: 1}, {Z: -1},
}

// Dir is the unit offset to the neighbor across f.
func (f Face) Dir() mathx.Vec3i { return dirs[f] }

// FaceFromNormal returns the face whose direction equals n.
func FaceFromNormal(n mathx.Vec3i) (Face, bool) {
	for f := Face(0); f < FaceCount; f++ {
		if dirs[f] == n {
			return f, true
		}
	}
	return 0, false
}

// Block is one cell of a chunk. Surfaces are mirrored: the face shared with
// the neighbor across f is also stored as the neighbor's f.Opposite().
type Block struct {
	Type     Type
	Surfs    [FaceCount]Surface
	SurfUsed [FaceCount]uint16 // sub-face reservation bitmask per face
}

// SurfaceMask has bit i set iff face i carries a surface.
func (b *Block) SurfaceMask() uint8 {
	var m uint8
	for i, s := range b.Surfs {
		if s != SurfaceNone {
			m |= 1 << i
		}
	}
	return m
}

func (b *Block) Solid() bool { return b != nil && b.Type != Empty }

// Reset clears type, surfaces and reservations.
func (b *Block) Reset() {
	*b = Block{}
}

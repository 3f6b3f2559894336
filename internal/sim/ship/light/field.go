// Package light holds the ship's scalar light field and its relaxation.
package light

import (
	"shipspace.io/internal/sim/ship/block"
	"shipspace.io/internal/sim/ship/logic/mathx"
)

const (
	// DefaultDim is the edge length of the field in cells.
	DefaultDim = 128

	MaxLevel = 255

	DefaultAttenuation = 50
)

// BlockSource resolves world coordinates to blocks; nil means no block.
type BlockSource interface {
	GetBlock(p mathx.Vec3i) *block.Block
}

// Source is one emitter injected during recompute.
type Source struct {
	Pos       mathx.Vec3i
	Intensity float32
}

// Field is a dense dim^3 grid of levels addressed x + y*dim + z*dim*dim,
// covering world coordinates [0, dim) on each axis. Reads outside the grid
// return 0 and writes there are dropped.
type Field struct {
	data  []uint8
	dim   int
	atten int
	reach int

	dirty      bool
	mins, maxs mathx.Vec3i
}

// NewField returns a dark field. Non-positive arguments select the defaults.
func NewField(dim, atten int) *Field {
	if dim <= 0 {
		dim = DefaultDim
	}
	if atten <= 0 {
		atten = DefaultAttenuation
	}
	return &Field{
		data:  make([]uint8, dim*dim*dim),
		dim:   dim,
		atten: atten,
		reach: (MaxLevel + atten - 1) / atten,
	}
}

// Reach is how many cells a full-strength source can light, and the number
// of relaxation passes per recompute.
func (f *Field) Reach() int { return f.reach }

func (f *Field) Attenuation() int { return f.atten }

func (f *Field) Dim() int { return f.dim }

func (f *Field) offset(p mathx.Vec3i) (int, bool) {
	d := f.dim
	if p.X < 0 || p.X >= d || p.Y < 0 || p.Y >= d || p.Z < 0 || p.Z >= d {
		return 0, false
	}
	return p.X + p.Y*d + p.Z*d*d, true
}

func (f *Field) Get(p mathx.Vec3i) int {
	i, ok := f.offset(p)
	if !ok {
		return 0
	}
	return int(f.data[i])
}

// Set clamps level into [0, MaxLevel].
func (f *Field) Set(p mathx.Vec3i, level int) {
	i, ok := f.offset(p)
	if !ok {
		return
	}
	f.data[i] = uint8(mathx.ClampInt(level, 0, MaxLevel))
}

// MarkDirty grows the pending region to cover center +/- Reach.
func (f *Field) MarkDirty(center mathx.Vec3i) {
	half := mathx.Vec3i{X: f.reach, Y: f.reach, Z: f.reach}
	lo, hi := center.Sub(half), center.Add(half)
	if !f.dirty {
		f.mins, f.maxs, f.dirty = lo, hi, true
		return
	}
	f.mins = mathx.Min(f.mins, lo)
	f.maxs = mathx.Max(f.maxs, hi)
}

// Dirty returns the pending region, if any.
func (f *Field) Dirty() (mins, maxs mathx.Vec3i, ok bool) {
	return f.mins, f.maxs, f.dirty
}

func within(p, lo, hi mathx.Vec3i) bool {
	return p.X >= lo.X && p.X <= hi.X && p.Y >= lo.Y && p.Y <= hi.Y && p.Z >= lo.Z && p.Z <= hi.Z
}

// Recompute rebuilds the pending region: it is cleared, sources inside it are
// injected at 255*intensity, then Reach in-place relaxation passes run. A
// cell with no block is left alone; otherwise it takes the brightest
// neighbor minus the attenuation across each of its light-permeable faces.
// It reports whether anything was pending.
func (f *Field) Recompute(world BlockSource, sources []Source) bool {
	if !f.dirty {
		return false
	}
	lo, hi := f.mins, f.maxs

	for z := lo.Z; z <= hi.Z; z++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for x := lo.X; x <= hi.X; x++ {
				f.Set(mathx.Vec3i{X: x, Y: y, Z: z}, 0)
			}
		}
	}

	for _, s := range sources {
		if within(s.Pos, lo, hi) {
			f.Set(s.Pos, int(MaxLevel*s.Intensity))
		}
	}

	for pass := 0; pass < f.reach; pass++ {
		for z := lo.Z; z <= hi.Z; z++ {
			for y := lo.Y; y <= hi.Y; y++ {
				for x := lo.X; x <= hi.X; x++ {
					p := mathx.Vec3i{X: x, Y: y, Z: z}
					b := world.GetBlock(p)
					if b == nil {
						continue
					}
					level := f.Get(p)
					for face := block.Face(0); face < block.FaceCount; face++ {
						if !block.LightPermeable(b.Surfs[face]) {
							continue
						}
						if l := f.Get(p.Add(face.Dir())) - f.atten; l > level {
							level = l
						}
					}
					f.Set(p, level)
				}
			}
		}
	}

	f.dirty = false
	return true
}

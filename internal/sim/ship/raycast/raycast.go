// Package raycast walks the block grid along a ray to find edit targets.
package raycast

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"shipspace.io/internal/sim/ship/block"
	"shipspace.io/internal/sim/ship/logic/mathx"
)

// DefaultReach is the step budget, counted in grid-line crossings.
const DefaultReach = 6

type BlockSource interface {
	GetBlock(p mathx.Vec3i) *block.Block
}

// Hit describes the first solid/empty transition along a ray.
type Hit struct {
	Hit bool
	// Inside is set when the ray started in a solid block, in which case the
	// hit is the first non-solid block.
	Inside bool
	// Block is the cell entered by the crossing step; Data is its contents
	// and may be nil when Inside and the cell has no chunk.
	Block mathx.Vec3i
	Data  *block.Block
	// Normal points from Block back across the crossed face, and Prev is
	// Block+Normal, the last cell on the starting side.
	Normal mathx.Vec3i
	Prev   mathx.Vec3i
}

// Face is the face of Block that the ray crossed.
func (h Hit) Face() (block.Face, bool) {
	return block.FaceFromNormal(h.Normal)
}

func sign(d float32) int {
	if d > 0 {
		return 1
	}
	return -1
}

// distToBoundary is the ray parameter at the first grid line crossed along
// one axis.
func distToBoundary(s, ds float32) float32 {
	if ds == 0 {
		return math32.MaxFloat32
	}
	if ds < 0 {
		s, ds = -s, -ds
		if math32.Floor(s) == s {
			return 0
		}
	}
	return (1 - (s - math32.Floor(s))) / ds
}

func delta(ds float32) float32 {
	if ds == 0 {
		return math32.MaxFloat32
	}
	return math32.Abs(1 / ds)
}

// Cast traverses at most reach cells from origin along dir. Cells with no
// chunk are passed over while the ray is outside solid matter. Ties between
// axes advance x, then y, then z.
func Cast(world BlockSource, origin, dir mgl32.Vec3, reach int) Hit {
	var rc Hit
	if dir.LenSqr() == 0 || reach <= 0 {
		return rc
	}

	cur := mathx.Vec3i{
		X: int(math32.Floor(origin.X())),
		Y: int(math32.Floor(origin.Y())),
		Z: int(math32.Floor(origin.Z())),
	}
	rc.Inside = world.GetBlock(cur).Solid()

	step := mathx.Vec3i{X: sign(dir.X()), Y: sign(dir.Y()), Z: sign(dir.Z())}
	tMax := mgl32.Vec3{
		distToBoundary(origin.X(), dir.X()),
		distToBoundary(origin.Y(), dir.Y()),
		distToBoundary(origin.Z(), dir.Z()),
	}
	tDelta := mgl32.Vec3{delta(dir.X()), delta(dir.Y()), delta(dir.Z())}

	for i := 0; i < reach; i++ {
		var n mathx.Vec3i
		switch {
		case tMax[0] <= tMax[1] && tMax[0] <= tMax[2]:
			cur.X += step.X
			tMax[0] += tDelta[0]
			n = mathx.Vec3i{X: -step.X}
		case tMax[1] <= tMax[2]:
			cur.Y += step.Y
			tMax[1] += tDelta[1]
			n = mathx.Vec3i{Y: -step.Y}
		default:
			cur.Z += step.Z
			tMax[2] += tDelta[2]
			n = mathx.Vec3i{Z: -step.Z}
		}

		b := world.GetBlock(cur)
		if b == nil && !rc.Inside {
			continue
		}
		if rc.Inside != b.Solid() {
			rc.Hit = true
			rc.Block = cur
			rc.Data = b
			rc.Normal = n
			rc.Prev = cur.Add(n)
			return rc
		}
	}
	return rc
}

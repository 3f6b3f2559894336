package ship

import (
	"shipspace.io/internal/sim/ship/block"
	"shipspace.io/internal/sim/ship/logic/mathx"
	"shipspace.io/internal/sim/ship/store"
	"shipspace.io/internal/sim/ship/topo"
	"shipspace.io/internal/sim/ship/zone"
)

// SetSurface writes surf on face of the block at a and on the mirrored face
// of its neighbor, creating either block as needed, and updates topology and
// zones for the change in air permeability. Entities attached to either side
// are removed. It reports false for an invalid face or when either block
// lies outside the ship extent.
func (s *Ship) SetSurface(a mathx.Vec3i, face block.Face, surf block.Surface) bool {
	if !face.Valid() {
		return false
	}
	b := a.Add(face.Dir())
	if !s.InExtent(a, b) {
		return false
	}
	ba := s.EnsureBlock(a)
	bb := s.EnsureBlock(b)

	old := ba.Surfs[face]
	if old != block.SurfaceNone || bb.Surfs[face.Opposite()] != block.SurfaceNone {
		s.detachEntities(a, face)
		s.detachEntities(b, face.Opposite())
	}

	ba.Surfs[face] = surf
	bb.Surfs[face.Opposite()] = surf
	ba.SurfUsed[face] = 0
	bb.SurfUsed[face.Opposite()] = 0
	s.touch(a)
	s.touch(b)
	s.light.MarkDirty(a)
	s.light.MarkDirty(b)

	wasOpen := block.AirPermeable(old)
	nowOpen := block.AirPermeable(surf)
	switch {
	case wasOpen && !nowOpen:
		s.topologyForAddSurface(a, b, face)
	case !wasOpen && nowOpen:
		s.topologyForRemoveSurface(a, b)
	}
	return true
}

// AddSurface places a non-empty surface; see SetSurface.
func (s *Ship) AddSurface(a mathx.Vec3i, face block.Face, surf block.Surface) bool {
	if surf == block.SurfaceNone {
		return false
	}
	return s.SetSurface(a, face, surf)
}

// RemoveSurface clears the surface on face of a; see SetSurface.
func (s *Ship) RemoveSurface(a mathx.Vec3i, face block.Face) bool {
	return s.SetSurface(a, face, block.SurfaceNone)
}

// topologyForRemoveSurface handles an opening between adjacent a and b. An
// opening can only merge regions.
func (s *Ship) topologyForRemoveSurface(a, b mathx.Vec3i) {
	t := s.forest.Find(s.nodeOf(a))
	u := s.forest.Find(s.nodeOf(b))

	s.counters.FastUnifys++

	if t == u {
		return
	}

	z1 := s.zones.Remove(t)
	z2 := s.zones.Remove(u)

	size := s.forest.Size(t) + s.forest.Size(u)
	v := s.forest.Unite(t, u)
	s.forest.SetSize(v, size)

	s.airVented += s.zones.Insert(v, z1)
	s.airVented += s.zones.Insert(v, z2)
}

// topologyForAddSurface handles a seal between adjacent a and b across face.
func (s *Ship) topologyForAddSurface(a, b mathx.Vec3i, face block.Face) {
	if !face.Positive() {
		a, b = b, a
		face = face.Opposite()
	}

	if s.existsAltPath(a, b, face) {
		s.counters.FastNoSplits++
		return
	}

	hadZone := s.zones.Get(s.forest.Find(s.nodeOf(a))) != nil

	s.RebuildTopology()

	t1 := s.forest.Find(s.nodeOf(a))
	t2 := s.forest.Find(s.nodeOf(b))
	if t1 == t2 {
		s.counters.FalseSplits++
		return
	}
	if !hadZone {
		return
	}

	// The rebuild remapped the old zone onto one side. Share everything now
	// on either side in proportion to the new sizes so pressure is equal.
	var total float64
	if z := s.zones.Remove(t1); z != nil {
		total += z.Air
	}
	if z := s.zones.Remove(t2); z != nil {
		total += z.Air
	}
	s1 := float64(s.forest.Size(t1))
	s2 := float64(s.forest.Size(t2))
	air1 := total * s1 / (s1 + s2)
	s.putZone(t1, air1)
	s.putZone(t2, total-air1)
}

func (s *Ship) putZone(root topo.Node, air float64) {
	if s.forest.IsOutside(root) {
		s.airVented += air
		return
	}
	s.zones.Put(root, &zone.Info{Air: air})
}

// existsAltPath looks for a two-hop detour from a to b around the sealed
// face through a lateral neighbor. face must be positive, so b = a + face.
// A false result does not prove a split.
func (s *Ship) existsAltPath(a, b mathx.Vec3i, face block.Face) bool {
	ba := s.chunks.GetBlock(a)
	bb := s.chunks.GetBlock(b)
	for d := block.Face(0); d < block.FaceCount; d++ {
		if d.Axis() == face.Axis() {
			continue
		}
		if !block.AirPermeable(ba.Surfs[d]) || !block.AirPermeable(bb.Surfs[d]) {
			continue
		}
		c := s.chunks.GetBlock(a.Add(d.Dir()))
		if c == nil || block.AirPermeable(c.Surfs[face]) {
			return true
		}
	}
	return false
}

// RebuildTopology recomputes the whole forest from surfaces: every node is
// reset, air-permeable neighbor pairs are united (chunk-internal pairs
// first, then across chunk borders, where a missing chunk is the outside),
// sizes are tallied, and zones are re-homed at their new roots.
func (s *Ship) RebuildTopology() {
	s.counters.FullRebuilds++

	old := s.zones.Take()
	s.forest.Reset()

	chunks := s.chunks.Chunks()
	for _, ch := range chunks {
		base := topo.Node(ch.NodeBase)
		for i := range ch.Blocks {
			bl := &ch.Blocks[i]
			x, y, z := store.Local(i)
			for f := block.Face(0); f < block.FaceCount; f++ {
				if !block.AirPermeable(bl.Surfs[f]) {
					continue
				}
				d := f.Dir()
				nx, ny, nz := x+d.X, y+d.Y, z+d.Z
				if inChunk(nx, ny, nz) {
					s.forest.Unite(base+topo.Node(i), base+topo.Node(store.Index(nx, ny, nz)))
				}
			}
		}
	}

	for _, ch := range chunks {
		base := topo.Node(ch.NodeBase)
		for i := range ch.Blocks {
			x, y, z := store.Local(i)
			if !onBorder(x, y, z) {
				continue
			}
			bl := &ch.Blocks[i]
			pos := ch.WorldPos(i)
			for f := block.Face(0); f < block.FaceCount; f++ {
				if !block.AirPermeable(bl.Surfs[f]) {
					continue
				}
				d := f.Dir()
				if inChunk(x+d.X, y+d.Y, z+d.Z) {
					continue
				}
				s.forest.Unite(base+topo.Node(i), s.nodeOf(pos.Add(d)))
			}
		}
	}

	for _, ch := range chunks {
		base := topo.Node(ch.NodeBase)
		for i := range ch.Blocks {
			s.forest.Tally(base + topo.Node(i))
		}
	}

	for _, e := range old {
		s.airVented += s.zones.Insert(s.forest.Find(e.Root), e.Zone)
	}
}

func inChunk(x, y, z int) bool {
	return x >= 0 && x < store.Size && y >= 0 && y < store.Size && z >= 0 && z < store.Size
}

func onBorder(x, y, z int) bool {
	return x == 0 || y == 0 || z == 0 || x == store.Size-1 || y == store.Size-1 || z == store.Size-1
}

package ship

import (
	"shipspace.io/internal/sim/ship/logic/mathx"
	"shipspace.io/internal/sim/ship/topo"
	"shipspace.io/internal/sim/ship/zone"
)

// Zone returns the atmosphere record of the region containing p, or nil for
// unexplored air, the outside, or a missing chunk.
func (s *Ship) Zone(p mathx.Vec3i) *zone.Info {
	return s.zones.Get(s.Find(p))
}

// ZoneCount is the number of ledgered zones.
func (s *Ship) ZoneCount() int { return s.zones.Len() }

// Pressure is air per block in the region containing p.
func (s *Ship) Pressure(p mathx.Vec3i) float64 {
	root := s.Find(p)
	if s.forest.IsOutside(root) {
		return 0
	}
	z := s.zones.Get(root)
	if z == nil {
		return 0
	}
	size := s.forest.Size(root)
	if size == 0 {
		return 0
	}
	return z.Air / float64(size)
}

// ProduceGas adds up to flow units to the region containing p without
// raising it past maxPressure. Gas released into the outside counts as added
// and vented at once. It returns the amount added.
func (s *Ship) ProduceGas(p mathx.Vec3i, flow, maxPressure float64) float64 {
	root := s.Find(p)
	added, vented := s.zones.AddGas(root, s.forest.Size(root), flow, maxPressure)
	s.airAdded += added
	s.airVented += vented
	return added
}

// VentOutside drops any zone found at the outside root.
func (s *Ship) VentOutside() float64 {
	z := s.zones.Remove(s.forest.Find(topo.Outside))
	if z == nil {
		return 0
	}
	s.airVented += z.Air
	return z.Air
}

// ZoneSummary is one zone as seen by diagnostics.
type ZoneSummary struct {
	Pos      [3]int  `json:"pos"`
	Size     int     `json:"size"`
	Air      float64 `json:"air"`
	Pressure float64 `json:"pressure"`
}

// Zones lists every zone, located by its root block.
func (s *Ship) Zones() []ZoneSummary {
	out := make([]ZoneSummary, 0, s.zones.Len())
	for _, e := range s.zones.Entries() {
		ch, i := s.chunks.ChunkOfNode(int32(e.Root))
		if ch == nil {
			continue
		}
		size := s.forest.Size(e.Root)
		zs := ZoneSummary{Pos: ch.WorldPos(i).ToArray(), Size: size, Air: e.Zone.Air}
		if size > 0 {
			zs.Pressure = e.Zone.Air / float64(size)
		}
		out = append(out, zs)
	}
	return out
}

package ship

import (
	"fmt"

	"shipspace.io/internal/persistence/snapshot"
	"shipspace.io/internal/sim/ship/block"
	"shipspace.io/internal/sim/ship/entities"
	"shipspace.io/internal/sim/ship/io/chunkcodec"
	"shipspace.io/internal/sim/ship/logic/mathx"
	"shipspace.io/internal/sim/ship/store"
	"shipspace.io/internal/sim/ship/zone"
)

// LoadChunk decodes payload into the chunk at k, creating it if needed.
// Topology is not updated; call RebuildTopology once all chunks are in.
func (s *Ship) LoadChunk(k store.ChunkKey, payload []byte) error {
	c, err := chunkcodec.Deserialize(payload)
	if err != nil {
		return fmt.Errorf("chunk %d,%d,%d: %w", k.CX, k.CY, k.CZ, err)
	}
	ch := s.EnsureChunk(k)
	if ch == nil {
		return fmt.Errorf("chunk %d,%d,%d: %w", k.CX, k.CY, k.CZ, ErrOutOfExtent)
	}
	c.Apply(ch)
	s.touched[k] = struct{}{}
	return nil
}

// SerializeChunk encodes the chunk at k in wire format.
func (s *Ship) SerializeChunk(k store.ChunkKey) ([]byte, bool) {
	ch := s.chunks.Chunk(k)
	if ch == nil {
		return nil, false
	}
	return chunkcodec.Serialize(ch), true
}

func (s *Ship) ExportSnapshot(nowTick uint64) snapshot.SnapshotV1 {
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: snapshot.Version,
			ShipID:  s.cfg.ID,
			Tick:    nowTick,
		},
		TickRate:         s.cfg.TickRateHz,
		ChunkSize:        store.Size,
		LightAttenuation: s.cfg.LightAttenuation,
		LightFieldSize:   s.cfg.LightFieldSize,
		MaxReach:         s.cfg.MaxReach,
		MaxChunkSpan:     s.cfg.MaxChunkSpan,
		Counters: snapshot.CountersV1{
			FullRebuilds: s.counters.FullRebuilds,
			FastUnifys:   s.counters.FastUnifys,
			FastNoSplits: s.counters.FastNoSplits,
			FalseSplits:  s.counters.FalseSplits,
		},
		AirAdded:  s.airAdded,
		AirVented: s.airVented,
	}

	for _, k := range s.chunks.LoadedChunkKeys() {
		payload, _ := s.SerializeChunk(k)
		snap.Chunks = append(snap.Chunks, snapshot.ChunkV1{CX: k.CX, CY: k.CY, CZ: k.CZ, Payload: payload})
	}
	for _, z := range s.Zones() {
		snap.Zones = append(snap.Zones, snapshot.ZoneV1{Pos: z.Pos, Air: z.Air})
	}
	for _, st := range s.ents.Snapshot() {
		snap.Entities = append(snap.Entities, snapshot.EntityV1{
			ID:      st.ID,
			Kind:    st.Kind,
			Pos:     st.Pos,
			Face:    st.Face,
			Powered: st.Powered,
			Enabled: st.Enabled,
		})
	}
	return snap
}

// ImportSnapshot loads snap into an empty ship and sets the tick to the one
// after the snapshot. Topology is rebuilt from the restored surfaces, zones
// are re-homed by position and entity reservations are reapplied.
//
// This must be called only when the ship is stopped or from the ship loop goroutine.
func (s *Ship) ImportSnapshot(snap snapshot.SnapshotV1) error {
	if snap.Header.Version != snapshot.Version {
		return fmt.Errorf("unsupported snapshot version: %d", snap.Header.Version)
	}
	if snap.ChunkSize != store.Size {
		return fmt.Errorf("snapshot chunk_size mismatch: have=%d snap=%d", store.Size, snap.ChunkSize)
	}
	if s.chunks.Len() != 0 {
		return fmt.Errorf("import into a non-empty ship (%d chunks)", s.chunks.Len())
	}
	if snap.Header.ShipID != "" {
		s.cfg.ID = snap.Header.ShipID
	}

	for _, c := range snap.Chunks {
		if err := s.LoadChunk(store.ChunkKey{CX: c.CX, CY: c.CY, CZ: c.CZ}, c.Payload); err != nil {
			return err
		}
	}
	s.RebuildTopology()

	var lost float64
	for _, z := range snap.Zones {
		lost += s.zones.Insert(s.Find(mathx.FromArray(z.Pos)), &zone.Info{Air: z.Air})
	}

	states := make([]entities.State, 0, len(snap.Entities))
	for _, e := range snap.Entities {
		states = append(states, entities.State{
			ID:      e.ID,
			Kind:    e.Kind,
			Pos:     e.Pos,
			Face:    e.Face,
			Powered: e.Powered,
			Enabled: e.Enabled,
		})
	}
	if n := s.ents.Load(states); n != len(states) {
		s.logger.Printf("snapshot tick %d: skipped %d malformed entities", snap.Header.Tick, len(states)-n)
	}
	s.reserveEntities()

	s.counters = Counters{
		FullRebuilds: snap.Counters.FullRebuilds,
		FastUnifys:   snap.Counters.FastUnifys,
		FastNoSplits: snap.Counters.FastNoSplits,
		FalseSplits:  snap.Counters.FalseSplits,
	}
	s.airAdded = snap.AirAdded
	s.airVented = snap.AirVented + lost

	for k := range s.touched {
		delete(s.touched, k)
	}
	s.tick.Store(snap.Header.Tick + 1)
	return nil
}

// reserveEntities marks the space held by every entity after a load.
func (s *Ship) reserveEntities() {
	for _, st := range s.ents.Snapshot() {
		k, _ := entities.ParseKind(st.Kind)
		pos := mathx.FromArray(st.Pos)
		if k.Mounted() {
			if b := s.chunks.GetBlock(pos); b != nil && st.Face < block.FaceCount {
				b.SurfUsed[st.Face] = ^uint16(0)
			}
			s.light.MarkDirty(pos)
			continue
		}
		for i := 0; i < k.Height(); i++ {
			b := s.chunks.GetBlock(pos.Add(mathx.Vec3i{Z: i}))
			if b == nil {
				continue
			}
			for f := range b.SurfUsed {
				b.SurfUsed[f] = ^uint16(0)
			}
		}
	}
}

// MarkSaved records every chunk as already persisted, so the next chunk
// batch only carries chunks changed from here on.
func (s *Ship) MarkSaved() {
	for _, ch := range s.chunks.Chunks() {
		s.savedDigest[ch.Key] = ch.Digest()
	}
}

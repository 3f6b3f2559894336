package store

import (
	"sort"

	"shipspace.io/internal/sim/ship/block"
	"shipspace.io/internal/sim/ship/logic/mathx"
)

// SplitPos maps a world block coordinate to its chunk key and local offset.
func SplitPos(p mathx.Vec3i) (ChunkKey, int, int, int) {
	cx, x := mathx.Split(p.X, Size)
	cy, y := mathx.Split(p.Y, Size)
	cz, z := mathx.Split(p.Z, Size)
	return ChunkKey{CX: cx, CY: cy, CZ: cz}, x, y, z
}

func (s *ChunkStore) Chunk(k ChunkKey) *Chunk {
	if !Packable(k) {
		return nil
	}
	slot, ok := s.index.Get(PackKey(k))
	if !ok || s.chunks[slot].Key != k {
		return nil
	}
	return s.chunks[slot]
}

func (s *ChunkStore) ChunkContaining(p mathx.Vec3i) *Chunk {
	k, _, _, _ := SplitPos(p)
	return s.Chunk(k)
}

// GetBlock returns the block at p, or nil when its chunk does not exist.
func (s *ChunkStore) GetBlock(p mathx.Vec3i) *block.Block {
	k, x, y, z := SplitPos(p)
	ch := s.Chunk(k)
	if ch == nil {
		return nil
	}
	return ch.At(x, y, z)
}

// Locate returns the chunk and dense index holding p.
func (s *ChunkStore) Locate(p mathx.Vec3i) (*Chunk, int) {
	k, x, y, z := SplitPos(p)
	ch := s.Chunk(k)
	if ch == nil {
		return nil, 0
	}
	return ch, Index(x, y, z)
}

// CanHold reports whether the chunks at keys exist or could all be created
// without leaving the packable range or widening the bounding box past the
// span limit.
func (s *ChunkStore) CanHold(keys ...ChunkKey) bool {
	if len(keys) == 0 {
		return true
	}
	lo, hi := keys[0].Vec(), keys[0].Vec()
	if s.hasBounds {
		lo, hi = s.mins.Vec(), s.maxs.Vec()
	}
	grows := false
	for _, k := range keys {
		if s.Chunk(k) != nil {
			continue
		}
		if !Packable(k) {
			return false
		}
		grows = true
		lo = mathx.Min(lo, k.Vec())
		hi = mathx.Max(hi, k.Vec())
	}
	if !grows {
		return true
	}
	d := hi.Sub(lo)
	return d.X < s.maxSpan && d.Y < s.maxSpan && d.Z < s.maxSpan
}

// EnsureChunk returns the chunk at k, creating it if needed together with
// every missing chunk strictly inside the widened bounding box, so that the
// store never has enclosed holes. Newly created chunks are returned in
// creation order. It returns nil when CanHold(k) is false.
func (s *ChunkStore) EnsureChunk(k ChunkKey) (*Chunk, []*Chunk) {
	if ch := s.Chunk(k); ch != nil {
		return ch, nil
	}
	if !s.CanHold(k) {
		return nil, nil
	}
	ch := s.create(k)
	created := []*Chunk{ch}

	if !s.hasBounds {
		s.mins, s.maxs, s.hasBounds = k, k, true
		return ch, created
	}
	s.mins = KeyOf(mathx.Min(s.mins.Vec(), k.Vec()))
	s.maxs = KeyOf(mathx.Max(s.maxs.Vec(), k.Vec()))

	for cz := s.mins.CZ + 1; cz < s.maxs.CZ; cz++ {
		for cy := s.mins.CY + 1; cy < s.maxs.CY; cy++ {
			for cx := s.mins.CX + 1; cx < s.maxs.CX; cx++ {
				hole := ChunkKey{CX: cx, CY: cy, CZ: cz}
				if s.Chunk(hole) == nil {
					created = append(created, s.create(hole))
				}
			}
		}
	}
	return ch, created
}

// EnsureBlock returns the block at p, creating chunks as EnsureChunk does,
// or nil when its chunk cannot be held.
func (s *ChunkStore) EnsureBlock(p mathx.Vec3i) (*block.Block, []*Chunk) {
	k, x, y, z := SplitPos(p)
	ch, created := s.EnsureChunk(k)
	if ch == nil {
		return nil, nil
	}
	return ch.At(x, y, z), created
}

func (s *ChunkStore) create(k ChunkKey) *Chunk {
	ch := &Chunk{Key: k, dirty: true}
	s.index.Put(PackKey(k), int64(len(s.chunks)))
	s.chunks = append(s.chunks, ch)
	return ch
}

// Chunks lists chunks in creation order. The slice must not be modified.
func (s *ChunkStore) Chunks() []*Chunk { return s.chunks }

func (s *ChunkStore) Len() int { return len(s.chunks) }

// LoadedChunkKeys lists chunk keys sorted by z, then y, then x.
func (s *ChunkStore) LoadedChunkKeys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(s.chunks))
	for _, ch := range s.chunks {
		keys = append(keys, ch.Key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CZ != keys[j].CZ {
			return keys[i].CZ < keys[j].CZ
		}
		if keys[i].CY != keys[j].CY {
			return keys[i].CY < keys[j].CY
		}
		return keys[i].CX < keys[j].CX
	})
	return keys
}

// Bounds is the inclusive chunk-coordinate bounding box.
func (s *ChunkStore) Bounds() (mins, maxs ChunkKey, ok bool) {
	return s.mins, s.maxs, s.hasBounds
}

// ChunkOfNode finds the chunk owning topology node n, or nil for the
// outside node. Chunks own contiguous node runs in creation order.
func (s *ChunkStore) ChunkOfNode(n int32) (*Chunk, int) {
	i := sort.Search(len(s.chunks), func(i int) bool {
		return s.chunks[i].NodeBase+Volume > n
	})
	if i == len(s.chunks) || s.chunks[i].NodeBase > n {
		return nil, 0
	}
	return s.chunks[i], int(n - s.chunks[i].NodeBase)
}

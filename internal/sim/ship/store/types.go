package store

import (
	"github.com/brentp/intintmap"
	"github.com/cespare/xxhash/v2"

	"shipspace.io/internal/sim/ship/block"
	"shipspace.io/internal/sim/ship/logic/mathx"
)

// Size is the edge length of a chunk in blocks.
const Size = 8

// Volume is the number of blocks in a chunk.
const Volume = Size * Size * Size

type ChunkKey struct {
	CX int
	CY int
	CZ int
}

func (k ChunkKey) Vec() mathx.Vec3i { return mathx.Vec3i{X: k.CX, Y: k.CY, Z: k.CZ} }

func KeyOf(v mathx.Vec3i) ChunkKey { return ChunkKey{CX: v.X, CY: v.Y, CZ: v.Z} }

// Origin is the world coordinate of the chunk's (0,0,0) block.
func (k ChunkKey) Origin() mathx.Vec3i { return k.Vec().Scale(Size) }

type Chunk struct {
	Key    ChunkKey
	Blocks [Volume]block.Block

	// NodeBase is the first topology node owned by this chunk; block i maps
	// to node NodeBase+i.
	NodeBase int32

	dirty bool
	hash  uint64
}

// Index is the dense offset of local (x,y,z): x fastest, then y, then z.
func Index(x, y, z int) int {
	return x + y*Size + z*Size*Size
}

// Local inverts Index.
func Local(i int) (x, y, z int) {
	return i % Size, (i / Size) % Size, i / (Size * Size)
}

func (c *Chunk) At(x, y, z int) *block.Block {
	return &c.Blocks[Index(x, y, z)]
}

// WorldPos is the world coordinate of block index i.
func (c *Chunk) WorldPos(i int) mathx.Vec3i {
	x, y, z := Local(i)
	return c.Key.Origin().Add(mathx.Vec3i{X: x, Y: y, Z: z})
}

func (c *Chunk) MarkDirty() { c.dirty = true }

// Digest hashes block contents, recomputing only after MarkDirty.
func (c *Chunk) Digest() uint64 {
	if c.dirty || c.hash == 0 {
		h := xxhash.New()
		var tmp [2 + block.FaceCount]byte
		for i := range c.Blocks {
			b := &c.Blocks[i]
			tmp[0] = byte(b.Type)
			tmp[1] = b.SurfaceMask()
			for f, s := range b.Surfs {
				tmp[2+f] = byte(s)
			}
			_, _ = h.Write(tmp[:])
		}
		c.hash = h.Sum64()
		c.dirty = false
	}
	return c.hash
}

// ChunkStore holds every chunk of a ship. Chunks are kept in creation order;
// the packed-key index maps coordinates to slots.
type ChunkStore struct {
	chunks []*Chunk
	index  *intintmap.Map

	mins, maxs ChunkKey
	hasBounds  bool

	// Widest bounding box, in chunks per axis, EnsureChunk may grow to.
	maxSpan int
}

// DefaultMaxSpan caps a ship at 32 chunks (256 blocks) per axis.
const DefaultMaxSpan = 32

func NewChunkStore() *ChunkStore {
	return &ChunkStore{
		index:   intintmap.New(64, 0.6),
		maxSpan: DefaultMaxSpan,
	}
}

// SetMaxSpan changes the span limit; n <= 0 restores the default. Existing
// chunks are kept even if they no longer fit.
func (s *ChunkStore) SetMaxSpan(n int) {
	if n <= 0 {
		n = DefaultMaxSpan
	}
	s.maxSpan = n
}

func (s *ChunkStore) MaxSpan() int { return s.maxSpan }

const keyBits = 21

// KeyLimit bounds packable chunk coordinates to [-KeyLimit, KeyLimit).
const KeyLimit = 1 << (keyBits - 1)

// Packable reports whether every coordinate of k fits PackKey.
func Packable(k ChunkKey) bool {
	in := func(c int) bool { return c >= -KeyLimit && c < KeyLimit }
	return in(k.CX) && in(k.CY) && in(k.CZ)
}

// PackKey folds a chunk key into one int64. Coordinates must fit in 21
// signed bits.
func PackKey(k ChunkKey) int64 {
	const mask = 1<<keyBits - 1
	return int64(k.CX)&mask | (int64(k.CY)&mask)<<keyBits | (int64(k.CZ)&mask)<<(2*keyBits)
}

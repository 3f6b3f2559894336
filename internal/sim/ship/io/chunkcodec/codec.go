// Package chunkcodec is the chunk wire format.
//
// Blocks are written x-fastest within y within z. Each block is one type byte,
// one surface mask byte (bit i set iff face i has a surface), then one
// surface code byte per set bit in face order. Decoding rejects unknown type
// and surface codes, a set bit carrying SurfaceNone, and mask bits past the
// last face.
package chunkcodec

import (
	"errors"
	"fmt"

	"shipspace.io/internal/sim/ship/block"
	"shipspace.io/internal/sim/ship/store"
)

// ErrTruncated reports a payload that ends before all indicated bytes.
var ErrTruncated = errors.New("prematurely terminated map chunk")

// ErrMalformed reports a payload holding a byte no encoder would write.
var ErrMalformed = errors.New("malformed map chunk")

const faceMask = 1<<block.FaceCount - 1

// Serialize encodes every block of ch.
func Serialize(ch *store.Chunk) []byte {
	buf := make([]byte, 0, 2*store.Volume)
	return AppendChunk(buf, ch)
}

// AppendChunk appends the encoding of ch to buf.
func AppendChunk(buf []byte, ch *store.Chunk) []byte {
	for i := range ch.Blocks {
		b := &ch.Blocks[i]
		mask := b.SurfaceMask()
		buf = append(buf, byte(b.Type), mask)
		for f := 0; f < block.FaceCount; f++ {
			if mask&(1<<f) != 0 {
				buf = append(buf, byte(b.Surfs[f]))
			}
		}
	}
	return buf
}

// Contents is a decoded chunk payload.
type Contents struct {
	Types [store.Volume]block.Type
	Surfs [store.Volume][block.FaceCount]block.Surface
}

// Deserialize decodes a payload. Trailing bytes are ignored.
func Deserialize(data []byte) (*Contents, error) {
	c := &Contents{}
	pos := 0
	for i := 0; i < store.Volume; i++ {
		if pos+2 > len(data) {
			return nil, fmt.Errorf("block %d at byte %d: %w", i, pos, ErrTruncated)
		}
		t, mask := block.Type(data[pos]), data[pos+1]
		if t > block.Entity {
			return nil, fmt.Errorf("block %d at byte %d: type %d: %w", i, pos, t, ErrMalformed)
		}
		if mask&^faceMask != 0 {
			return nil, fmt.Errorf("block %d at byte %d: mask %#x: %w", i, pos+1, mask, ErrMalformed)
		}
		c.Types[i] = t
		pos += 2
		for f := 0; f < block.FaceCount; f++ {
			if mask&(1<<f) == 0 {
				continue
			}
			if pos+1 > len(data) {
				return nil, fmt.Errorf("block %d face %d at byte %d: %w", i, f, pos, ErrTruncated)
			}
			sf := block.Surface(data[pos])
			if sf == block.SurfaceNone || sf > block.SurfaceGlass {
				return nil, fmt.Errorf("block %d face %d at byte %d: surface %d: %w", i, f, pos, sf, ErrMalformed)
			}
			c.Surfs[i][f] = sf
			pos++
		}
	}
	return c, nil
}

// Apply overwrites ch with c, clearing sub-face reservations.
func (c *Contents) Apply(ch *store.Chunk) {
	for i := range ch.Blocks {
		ch.Blocks[i] = block.Block{Type: c.Types[i], Surfs: c.Surfs[i]}
	}
	ch.MarkDirty()
}

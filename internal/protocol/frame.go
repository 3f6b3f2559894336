package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Binary frame kinds.
const (
	FrameChunk byte = 0x01
)

// FrameHeaderLen is kind plus three big-endian int16 chunk coordinates.
const FrameHeaderLen = 7

var (
	ErrShortFrame  = errors.New("frame shorter than header")
	ErrCoordRange  = errors.New("chunk coordinate outside int16")
	ErrUnknownKind = errors.New("unknown frame kind")
)

type ChunkFrame struct {
	Key     [3]int
	Payload []byte
}

// EncodeChunkFrame lays out [kind][cx][cy][cz][payload].
func EncodeChunkFrame(key [3]int, payload []byte) ([]byte, error) {
	b := make([]byte, FrameHeaderLen, FrameHeaderLen+len(payload))
	b[0] = FrameChunk
	for i, c := range key {
		if c < math.MinInt16 || c > math.MaxInt16 {
			return nil, fmt.Errorf("axis %d = %d: %w", i, c, ErrCoordRange)
		}
		binary.BigEndian.PutUint16(b[1+2*i:], uint16(int16(c)))
	}
	return append(b, payload...), nil
}

// DecodeChunkFrame parses a frame produced by EncodeChunkFrame. The payload
// aliases b.
func DecodeChunkFrame(b []byte) (ChunkFrame, error) {
	var f ChunkFrame
	if len(b) < FrameHeaderLen {
		return f, ErrShortFrame
	}
	if b[0] != FrameChunk {
		return f, fmt.Errorf("kind %#x: %w", b[0], ErrUnknownKind)
	}
	for i := range f.Key {
		f.Key[i] = int(int16(binary.BigEndian.Uint16(b[1+2*i:])))
	}
	f.Payload = b[FrameHeaderLen:]
	return f, nil
}

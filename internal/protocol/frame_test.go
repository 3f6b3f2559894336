package protocol

import (
	"errors"
	"testing"
)

func TestChunkFrame(t *testing.T) {
	b, err := EncodeChunkFrame([3]int{-1, 300, -32768}, []byte{9, 8})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := []byte{FrameChunk, 0xff, 0xff, 0x01, 0x2c, 0x80, 0x00, 9, 8}
	if string(b) != string(want) {
		t.Fatalf("bytes: got %x want %x", b, want)
	}
	f, err := DecodeChunkFrame(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if f.Key != [3]int{-1, 300, -32768} || string(f.Payload) != "\x09\x08" {
		t.Fatalf("frame: got %+v", f)
	}
}

func TestChunkFrameErrors(t *testing.T) {
	if _, err := EncodeChunkFrame([3]int{0, 40000, 0}, nil); !errors.Is(err, ErrCoordRange) {
		t.Fatalf("range: got %v", err)
	}
	if _, err := DecodeChunkFrame([]byte{FrameChunk, 0, 0}); !errors.Is(err, ErrShortFrame) {
		t.Fatalf("short: got %v", err)
	}
	if _, err := DecodeChunkFrame([]byte{0x7f, 0, 0, 0, 0, 0, 0}); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("kind: got %v", err)
	}
}

package snapshot

import (
	"path/filepath"
	"testing"
)

func TestWriteReadSnapshot(t *testing.T) {
	dir := t.TempDir()
	snap := SnapshotV1{
		Header:   Header{Version: Version, ShipID: "ship-1", Tick: 42},
		TickRate: 10,
		Chunks:   []ChunkV1{{CX: -1, CY: 0, CZ: 2, Payload: []byte{1, 2, 3}}},
		Zones:    []ZoneV1{{Pos: [3]int{1, 2, 3}, Air: 12.5}},
		Counters: CountersV1{FullRebuilds: 3},
		AirAdded: 20,
	}
	path := filepath.Join(dir, "snaps", FileName(42))
	if err := WriteSnapshot(path, snap); err != nil {
		t.Fatalf("write: %v", err)
	}

	h, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("header: %v", err)
	}
	if h.ShipID != "ship-1" || h.Tick != 42 {
		t.Fatalf("header: got %+v", h)
	}

	got, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got.Chunks) != 1 || got.Chunks[0].CX != -1 || string(got.Chunks[0].Payload) != "\x01\x02\x03" {
		t.Fatalf("chunks: got %+v", got.Chunks)
	}
	if len(got.Zones) != 1 || got.Zones[0].Air != 12.5 || got.Counters.FullRebuilds != 3 || got.AirAdded != 20 {
		t.Fatalf("body: got %+v", got)
	}
}

func TestReadRejectsVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName(1))
	if err := WriteSnapshot(path, SnapshotV1{Header: Header{Version: 99}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadSnapshot(path); err == nil {
		t.Fatalf("expected version error")
	}
}

func TestLatest(t *testing.T) {
	dir := t.TempDir()
	if _, ok := Latest(dir); ok {
		t.Fatalf("empty dir has no latest")
	}
	for _, tick := range []uint64{600, 1200, 60} {
		if err := WriteSnapshot(filepath.Join(dir, FileName(tick)), SnapshotV1{Header: Header{Version: Version, Tick: tick}}); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	p, ok := Latest(dir)
	if !ok || filepath.Base(p) != FileName(1200) {
		t.Fatalf("latest: got %q", p)
	}
}

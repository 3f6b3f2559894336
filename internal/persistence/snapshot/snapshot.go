package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	ShipID  string `json:"ship_id"`
	Tick    uint64 `json:"tick"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	TickRate         int `json:"tick_rate_hz"`
	ChunkSize        int `json:"chunk_size"`
	LightAttenuation int `json:"light_attenuation"`
	LightFieldSize   int `json:"light_field_size"`
	MaxReach         int `json:"max_reach"`
	MaxChunkSpan     int `json:"max_chunk_span,omitempty"`

	Chunks   []ChunkV1  `json:"chunks"`
	Zones    []ZoneV1   `json:"zones"`
	Entities []EntityV1 `json:"entities,omitempty"`

	Counters  CountersV1 `json:"counters"`
	AirAdded  float64    `json:"air_added"`
	AirVented float64    `json:"air_vented"`
}

// ChunkV1 carries one chunk in wire format.
type ChunkV1 struct {
	CX      int    `json:"cx"`
	CY      int    `json:"cy"`
	CZ      int    `json:"cz"`
	Payload []byte `json:"payload"`
}

// ZoneV1 pins a zone to one block inside it; the zone's root is recovered
// after the topology is rebuilt.
type ZoneV1 struct {
	Pos [3]int  `json:"pos"`
	Air float64 `json:"air"`
}

type EntityV1 struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Pos     [3]int `json:"pos"`
	Face    uint8  `json:"face"`
	Powered bool   `json:"powered,omitempty"`
	Enabled bool   `json:"enabled,omitempty"`
}

type CountersV1 struct {
	FullRebuilds uint64 `json:"full_rebuilds"`
	FastUnifys   uint64 `json:"fast_unifys"`
	FastNoSplits uint64 `json:"fast_nosplits"`
	FalseSplits  uint64 `json:"false_splits"`
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// Header line is duplicated inside the gob body.
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("snapshot version %d: unsupported", snap.Header.Version)
	}
	return snap, nil
}

// ReadHeader decodes only the leading JSON header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil && err != io.EOF {
		return h, err
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("header: %w", err)
	}
	return h, nil
}

// Latest returns the newest snapshot file in dir by name, which sorts by
// tick for names produced by FileName.
func Latest(dir string) (string, bool) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.snap.zst"))
	if err != nil || len(matches) == 0 {
		return "", false
	}
	latest := matches[0]
	for _, m := range matches[1:] {
		if m > latest {
			latest = m
		}
	}
	return latest, true
}

// FileName is the canonical name for a snapshot taken at tick.
func FileName(tick uint64) string {
	return fmt.Sprintf("%012d.snap.zst", tick)
}

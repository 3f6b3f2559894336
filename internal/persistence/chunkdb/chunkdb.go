// Package chunkdb keeps the latest wire payload of every chunk in LevelDB,
// next to one record of ship-wide state, so changed chunks can be saved
// incrementally between full snapshots.
package chunkdb

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/df-mc/goleveldb/leveldb"
	"github.com/df-mc/goleveldb/leveldb/opt"
	"github.com/df-mc/goleveldb/leveldb/util"

	"shipspace.io/internal/persistence/snapshot"
	"shipspace.io/internal/sim/ship"
	"shipspace.io/internal/sim/ship/store"
)

const (
	prefixChunk = 'c'
	keyMeta     = "meta"
)

// meta is everything in a batch that is not a chunk payload.
type meta struct {
	ShipID    string              `json:"ship_id"`
	Tick      uint64              `json:"tick"`
	Zones     []snapshot.ZoneV1   `json:"zones"`
	Entities  []snapshot.EntityV1 `json:"entities"`
	Counters  snapshot.CountersV1 `json:"counters"`
	AirAdded  float64             `json:"air_added"`
	AirVented float64             `json:"air_vented"`
}

type DB struct {
	ldb *leveldb.DB
}

func Open(path string) (*DB, error) {
	ldb, err := leveldb.OpenFile(path, &opt.Options{
		Compression: opt.FlateCompression,
	})
	if err != nil {
		return nil, fmt.Errorf("open chunkdb %s: %w", path, err)
	}
	return &DB{ldb: ldb}, nil
}

func (db *DB) Close() error { return db.ldb.Close() }

// chunkKey is the prefix byte then each coordinate as a big-endian int32
// with the sign bit flipped, so keys sort by z, y, x.
func chunkKey(k store.ChunkKey) []byte {
	b := make([]byte, 13)
	b[0] = prefixChunk
	binary.BigEndian.PutUint32(b[1:], uint32(int32(k.CZ))^1<<31)
	binary.BigEndian.PutUint32(b[5:], uint32(int32(k.CY))^1<<31)
	binary.BigEndian.PutUint32(b[9:], uint32(int32(k.CX))^1<<31)
	return b
}

func parseChunkKey(b []byte) (store.ChunkKey, bool) {
	if len(b) != 13 || b[0] != prefixChunk {
		return store.ChunkKey{}, false
	}
	return store.ChunkKey{
		CZ: int(int32(binary.BigEndian.Uint32(b[1:]) ^ 1<<31)),
		CY: int(int32(binary.BigEndian.Uint32(b[5:]) ^ 1<<31)),
		CX: int(int32(binary.BigEndian.Uint32(b[9:]) ^ 1<<31)),
	}, true
}

// Save writes the batch atomically: its chunks plus the ship-wide record.
func (db *DB) Save(b ship.ChunkBatch) error {
	m, err := json.Marshal(meta{
		ShipID:    b.ShipID,
		Tick:      b.Tick,
		Zones:     b.Zones,
		Entities:  b.Entities,
		Counters:  b.Counters,
		AirAdded:  b.AirAdded,
		AirVented: b.AirVented,
	})
	if err != nil {
		return err
	}
	batch := new(leveldb.Batch)
	for _, c := range b.Chunks {
		batch.Put(chunkKey(c.Key), c.Payload)
	}
	batch.Put([]byte(keyMeta), m)
	if err := db.ldb.Write(batch, &opt.WriteOptions{Sync: true}); err != nil {
		return fmt.Errorf("save tick %d: %w", b.Tick, err)
	}
	return nil
}

// Load assembles a snapshot from the stored chunks and ship record. ok is
// false when nothing was ever saved.
func (db *DB) Load() (snap snapshot.SnapshotV1, ok bool, err error) {
	raw, err := db.ldb.Get([]byte(keyMeta), nil)
	switch {
	case errors.Is(err, leveldb.ErrNotFound):
		return snap, false, nil
	case err != nil:
		return snap, false, err
	}
	var m meta
	if err := json.Unmarshal(raw, &m); err != nil {
		return snap, false, fmt.Errorf("chunkdb meta: %w", err)
	}

	snap = snapshot.SnapshotV1{
		Header:    snapshot.Header{Version: snapshot.Version, ShipID: m.ShipID, Tick: m.Tick},
		ChunkSize: store.Size,
		Zones:     m.Zones,
		Entities:  m.Entities,
		Counters:  m.Counters,
		AirAdded:  m.AirAdded,
		AirVented: m.AirVented,
	}

	it := db.ldb.NewIterator(util.BytesPrefix([]byte{prefixChunk}), nil)
	defer it.Release()
	for it.Next() {
		k, valid := parseChunkKey(it.Key())
		if !valid {
			continue
		}
		payload := append([]byte(nil), it.Value()...)
		snap.Chunks = append(snap.Chunks, snapshot.ChunkV1{CX: k.CX, CY: k.CY, CZ: k.CZ, Payload: payload})
	}
	if err := it.Error(); err != nil {
		return snap, false, err
	}
	return snap, true, nil
}

// Chunk returns the stored payload of one chunk.
func (db *DB) Chunk(k store.ChunkKey) ([]byte, bool, error) {
	v, err := db.ldb.Get(chunkKey(k), nil)
	switch {
	case errors.Is(err, leveldb.ErrNotFound):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}
	return v, true, nil
}

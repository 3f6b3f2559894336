package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"shipspace.io/internal/persistence/indexdb"
	"shipspace.io/internal/persistence/snapshot"
	"shipspace.io/internal/sim/ship"
	"shipspace.io/internal/sim/tuning"
)

type runtimeIndex interface {
	ship.TickLogger
	ship.AuditLogger
	Close() error
	UpsertTuning(tune tuning.Tuning) error
	RecordSnapshot(path string, snap snapshot.SnapshotV1)
	Stats() indexdb.Stats
}

func openRuntimeIndex(shipDir string, disableDB bool) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("SHIP_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		return indexdb.OpenSQLite(filepath.Join(shipDir, "index", "ship.sqlite"))
	default:
		return nil, fmt.Errorf("unsupported SHIP_INDEX_BACKEND: %s", backend)
	}
}

type multiTickLogger struct {
	a ship.TickLogger
	b ship.TickLogger
}

func (m multiTickLogger) WriteTick(entry ship.TickLogEntry) error {
	if m.a != nil {
		_ = m.a.WriteTick(entry)
	}
	if m.b != nil {
		_ = m.b.WriteTick(entry)
	}
	return nil
}

type multiAuditLogger struct {
	a ship.AuditLogger
	b ship.AuditLogger
}

func (m multiAuditLogger) WriteAudit(entry ship.AuditEntry) error {
	if m.a != nil {
		_ = m.a.WriteAudit(entry)
	}
	if m.b != nil {
		_ = m.b.WriteAudit(entry)
	}
	return nil
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

package log

import (
	"encoding/json"
	"testing"
	"time"

	"shipspace.io/internal/sim/ship"
)

func TestWriterRotatesByHour(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, "ticks")
	clock := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		if err := w.Write(ship.TickLogEntry{Tick: uint64(i)}); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	clock = clock.Add(2 * time.Minute)
	if err := w.Write(ship.TickLogEntry{Tick: 3}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := Files(dir, "ticks")
	if err != nil {
		t.Fatalf("files: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("files: got %d want 2 (%v)", len(files), files)
	}

	var ticks []uint64
	for _, f := range files {
		err := ReadJSONL(f, func(line []byte) error {
			var e ship.TickLogEntry
			if err := json.Unmarshal(line, &e); err != nil {
				return err
			}
			ticks = append(ticks, e.Tick)
			return nil
		})
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
	}
	if len(ticks) != 4 {
		t.Fatalf("entries: got %v want 4", ticks)
	}
	for i, tk := range ticks {
		if tk != uint64(i) {
			t.Fatalf("entry %d: got tick %d", i, tk)
		}
	}
}

func TestAuditLoggerWritesEntries(t *testing.T) {
	dir := t.TempDir()
	l := NewAuditLogger(dir)
	if err := l.WriteAudit(ship.AuditEntry{Tick: 7, EditID: "e1", Op: "set_surface", Accepted: true}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	files, err := Files(dir+"/audit", "audit")
	if err != nil || len(files) != 1 {
		t.Fatalf("files: got %v err %v", files, err)
	}
	var got ship.AuditEntry
	if err := ReadJSONL(files[0], func(line []byte) error { return json.Unmarshal(line, &got) }); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Tick != 7 || got.EditID != "e1" || !got.Accepted {
		t.Fatalf("got %+v", got)
	}
}

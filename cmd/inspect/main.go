package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"

	"shipspace.io/internal/persistence/chunkdb"
	persistlog "shipspace.io/internal/persistence/log"
	"shipspace.io/internal/persistence/snapshot"
	"shipspace.io/internal/sim/ship"
)

var errStop = errors.New("stop")

func main() {
	var (
		snapPath = flag.String("snapshot", "", "path to .snap.zst")
		dbPath   = flag.String("chunkdb", "", "path to a chunks.ldb directory (used when -snapshot is empty)")
		ticksDir = flag.String("ticks", "", "dir containing ticks-*.jsonl.zst to replay on top (optional)")
		toTick   = flag.Uint64("to_tick", 0, "stop replay at tick (inclusive, optional)")
		zones    = flag.Bool("zones", false, "list every zone")
		maxSpan  = flag.Int("max_span", 0, "ship extent in chunks per axis (0 uses the snapshot's, then the default)")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[inspect] ", log.LstdFlags)

	snap, src, err := readState(*snapPath, *dbPath)
	if err != nil {
		logger.Fatalf("%v", err)
	}
	fmt.Printf("%s v%d ship=%s tick=%d chunks=%d zones=%d entities=%d\n",
		src, snap.Header.Version, snap.Header.ShipID, snap.Header.Tick,
		len(snap.Chunks), len(snap.Zones), len(snap.Entities))

	if *maxSpan > 0 {
		snap.MaxChunkSpan = *maxSpan
	}
	s := ship.New(ship.Config{
		ID:               snap.Header.ShipID,
		TickRateHz:       snap.TickRate,
		LightAttenuation: snap.LightAttenuation,
		LightFieldSize:   snap.LightFieldSize,
		MaxReach:         snap.MaxReach,
		MaxChunkSpan:     snap.MaxChunkSpan,
		Logger:           logger,
	})
	if err := s.ImportSnapshot(snap); err != nil {
		logger.Fatalf("import: %v", err)
	}

	lo, hi, ok := s.Chunks().Bounds()
	if ok {
		fmt.Printf("chunk bounds %v..%v\n", lo, hi)
	}
	if vs := s.Validate(); len(vs) == 0 {
		fmt.Println("validate ok")
	} else {
		for _, v := range vs {
			fmt.Println("violation:", v)
		}
	}
	c := s.Counters()
	fmt.Printf("counters full_rebuilds=%d fast_unifys=%d fast_nosplits=%d false_splits=%d\n",
		c.FullRebuilds, c.FastUnifys, c.FastNoSplits, c.FalseSplits)
	printBalance(s)

	if *zones {
		for _, z := range s.Zones() {
			fmt.Printf("zone %v size=%d air=%.6f pressure=%.6f\n", z.Pos, z.Size, z.Air, z.Pressure)
		}
	}

	if *ticksDir == "" {
		return
	}
	checked, err := replay(s, *ticksDir, *toTick)
	if err != nil {
		logger.Fatalf("replay: %v", err)
	}
	fmt.Printf("replay ok: checked=%d ticks (from tick=%d)\n", checked, snap.Header.Tick)
	printBalance(s)
}

func readState(snapPath, dbPath string) (snapshot.SnapshotV1, string, error) {
	switch {
	case snapPath != "":
		snap, err := snapshot.ReadSnapshot(snapPath)
		if err != nil {
			return snap, "", fmt.Errorf("read snapshot: %w", err)
		}
		return snap, "snapshot", nil
	case dbPath != "":
		db, err := chunkdb.Open(dbPath)
		if err != nil {
			return snapshot.SnapshotV1{}, "", fmt.Errorf("open chunkdb: %w", err)
		}
		defer db.Close()
		snap, ok, err := db.Load()
		if err != nil {
			return snap, "", fmt.Errorf("load chunkdb: %w", err)
		}
		if !ok {
			return snap, "", fmt.Errorf("chunkdb %s is empty", dbPath)
		}
		return snap, "chunkdb", nil
	}
	return snapshot.SnapshotV1{}, "", fmt.Errorf("missing -snapshot or -chunkdb")
}

func printBalance(s *ship.Ship) {
	held, added, vented := s.AirBalance()
	fmt.Printf("air held=%.6f added=%.6f vented=%.6f drift=%.3g\n", held, added, vented, held+vented-added)
}

// replay re-applies the logged edits tick by tick and checks the zone count
// and held gas against what the live ship logged. Entities placed after the
// loaded state get fresh ids, so power edits aimed at them are reported as
// mismatches rather than reproduced.
func replay(s *ship.Ship, dir string, toTick uint64) (uint64, error) {
	files, err := persistlog.Files(dir, "ticks")
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		return 0, fmt.Errorf("no tick files found in %s", dir)
	}

	var checked uint64
	for _, path := range files {
		err := persistlog.ReadJSONL(path, func(line []byte) error {
			var entry ship.TickLogEntry
			if err := json.Unmarshal(line, &entry); err != nil {
				return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
			}
			if entry.Tick < s.CurrentTick() {
				return nil
			}
			if toTick != 0 && entry.Tick > toTick {
				return errStop
			}
			if entry.Tick != s.CurrentTick() {
				return fmt.Errorf("tick gap: want=%d got=%d (file=%s)", s.CurrentTick(), entry.Tick, filepath.Base(path))
			}

			edits := make([]ship.EditRequest, 0, len(entry.Edits))
			for _, re := range entry.Edits {
				edits = append(edits, ship.EditRequest{SessionID: re.SessionID, Edit: re.Edit})
			}
			tick := s.StepOnce(nil, nil, edits)
			checked++

			held, _, _ := s.AirBalance()
			if got := s.ZoneCount(); got != entry.Zones {
				return fmt.Errorf("zone count mismatch at tick %d: got=%d want=%d", tick, got, entry.Zones)
			}
			if math.Abs(held-entry.AirHeld) > 1e-6 {
				return fmt.Errorf("air mismatch at tick %d: got=%.9f want=%.9f", tick, held, entry.AirHeld)
			}
			if s.Counters() != entry.Counters {
				return fmt.Errorf("counter mismatch at tick %d: got=%+v want=%+v", tick, s.Counters(), entry.Counters)
			}
			return nil
		})
		if errors.Is(err, errStop) {
			break
		}
		if err != nil {
			return checked, err
		}
	}
	return checked, nil
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"shipspace.io/internal/persistence/chunkdb"
	"shipspace.io/internal/persistence/indexdb"
	persistlog "shipspace.io/internal/persistence/log"
	"shipspace.io/internal/persistence/snapshot"
	"shipspace.io/internal/sim/ship"
	"shipspace.io/internal/sim/ship/logic/mathx"
	"shipspace.io/internal/sim/tuning"
	"shipspace.io/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		shipName   = flag.String("ship", "ship_1", "ship directory name under <data>/ships")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml or tuning.toml")
		disableDB  = flag.Bool("disable_db", false, "disable indexing (tick/audit + tuning + snapshot metadata)")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	shipDir := filepath.Join(*dataDir, "ships", *shipName)
	_ = os.MkdirAll(shipDir, 0o755)

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning %s not found, using defaults", *tuningPath)
		tune = tuning.Defaults()
	}

	s := ship.New(ship.Config{
		TickRateHz:          tune.TickRateHz,
		LightAttenuation:    tune.LightAttenuation,
		LightFieldSize:      tune.LightFieldSize,
		MaxReach:            tune.MaxReach,
		MaxChunkSpan:        tune.MaxChunkSpan,
		ProducerFlow:        tune.Producer.Flow,
		ProducerMaxPressure: tune.Producer.MaxPressure,
		SnapshotEveryTicks:  tune.SnapshotEveryTicks,
		ChunkSaveEveryTicks: tune.ChunkSaveEveryTicks,
		Logger:              logger,
	})

	cdb, err := chunkdb.Open(filepath.Join(shipDir, "chunks.ldb"))
	if err != nil {
		logger.Fatalf("open chunkdb: %v", err)
	}
	defer cdb.Close()

	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		if p, ok := snapshot.Latest(filepath.Join(shipDir, "snapshots")); ok {
			snapshotToLoad = p
		}
	}

	switch {
	case snapshotToLoad != "":
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("load snapshot: %v", err)
		}
		if err := s.ImportSnapshot(snap); err != nil {
			logger.Fatalf("import snapshot: %v", err)
		}
		logger.Printf("loaded snapshot tick=%d chunks=%d from %s", snap.Header.Tick, len(snap.Chunks), snapshotToLoad)
	default:
		snap, ok, err := cdb.Load()
		if err != nil {
			logger.Fatalf("load chunkdb: %v", err)
		}
		if ok {
			if err := s.ImportSnapshot(snap); err != nil {
				logger.Fatalf("import chunkdb: %v", err)
			}
			s.MarkSaved()
			logger.Printf("resumed from chunkdb tick=%d chunks=%d", snap.Header.Tick, len(snap.Chunks))
			break
		}
		o, sz := tune.Habitat.Origin, tune.Habitat.Size
		h, err := s.BuildHabitat(mathx.Vec3i{X: o[0], Y: o[1], Z: o[2]}, mathx.Vec3i{X: sz[0], Y: sz[1], Z: sz[2]})
		if err != nil {
			logger.Fatalf("build habitat: %v", err)
		}
		logger.Printf("fresh ship %s: habitat %v..%v volume=%d", s.ID(), h.Min, h.Max, h.Volume())
	}
	_ = s.Validate()

	idx, err := openRuntimeIndex(shipDir, *disableDB)
	if err != nil {
		logger.Fatalf("index: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertTuning(tune); err != nil {
			logger.Printf("index tuning: %v", err)
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	tickLog := persistlog.NewTickLogger(shipDir)
	auditLog := persistlog.NewAuditLogger(shipDir)
	defer tickLog.Close()
	defer auditLog.Close()
	s.SetTickLogger(multiTickLogger{a: tickLog, b: idx})
	s.SetAuditLogger(multiAuditLogger{a: auditLog, b: idx})

	// Snapshot writer.
	snapCh := make(chan snapshot.SnapshotV1, 2)
	s.SetSnapshotSink(snapCh)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-snapCh:
				path := filepath.Join(shipDir, "snapshots", snapshot.FileName(snap.Header.Tick))
				if err := snapshot.WriteSnapshot(path, snap); err != nil {
					logger.Printf("snapshot write: %v", err)
					continue
				}
				if idx != nil {
					idx.RecordSnapshot(path, snap)
				}
			}
		}
	}()

	// Chunk writer.
	chunkCh := make(chan ship.ChunkBatch, 2)
	s.SetChunkSink(chunkCh)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case b := <-chunkCh:
				if err := cdb.Save(b); err != nil {
					logger.Printf("chunkdb save tick %d: %v", b.Tick, err)
				}
			}
		}
	}()

	go func() {
		_ = s.Run(ctx)
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, s.ID(), s.Metrics(), idx)
	})

	if envBool("SHIP_ENABLE_ADMIN_HTTP", true) {
		// Local-only admin endpoints.
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			resp := struct {
				ShipID  string        `json:"ship_id"`
				Tick    uint64        `json:"tick"`
				Metrics ship.Metrics  `json:"metrics"`
				Tuning  tuning.Tuning `json:"tuning"`
			}{
				ShipID:  s.ID(),
				Tick:    s.CurrentTick(),
				Metrics: s.Metrics(),
				Tuning:  tune,
			}
			_ = json.NewEncoder(rw).Encode(resp)
		})
	} else {
		logger.Printf("admin endpoints disabled (SHIP_ENABLE_ADMIN_HTTP=false)")
	}
	if envBool("SHIP_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	mux.HandleFunc("/v1/ws", ws.NewServer(s, logger).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("ship %s listening on %s", s.ID(), *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

// writeMetrics renders m in the Prometheus text exposition format.
func writeMetrics(rw http.ResponseWriter, shipID string, m ship.Metrics, idx runtimeIndex) {
	gauge := func(name, help string) {
		fmt.Fprintf(rw, "# HELP %s %s\n", name, help)
		fmt.Fprintf(rw, "# TYPE %s gauge\n", name)
	}

	gauge("shipspace_ship_tick", "Current ship tick.")
	fmt.Fprintf(rw, "shipspace_ship_tick{ship=%q} %d\n", shipID, m.Tick)

	gauge("shipspace_ship_chunks", "Loaded chunk count.")
	fmt.Fprintf(rw, "shipspace_ship_chunks{ship=%q} %d\n", shipID, m.Chunks)

	gauge("shipspace_ship_zones", "Sealed zones holding gas.")
	fmt.Fprintf(rw, "shipspace_ship_zones{ship=%q} %d\n", shipID, m.Zones)

	gauge("shipspace_ship_entities", "Placed devices.")
	fmt.Fprintf(rw, "shipspace_ship_entities{ship=%q} %d\n", shipID, m.Entities)

	gauge("shipspace_ship_clients", "Connected clients.")
	fmt.Fprintf(rw, "shipspace_ship_clients{ship=%q} %d\n", shipID, m.Clients)

	gauge("shipspace_ship_air", "Gas ledger totals.")
	fmt.Fprintf(rw, "shipspace_ship_air{ship=%q,kind=%q} %.6f\n", shipID, "held", m.AirHeld)
	fmt.Fprintf(rw, "shipspace_ship_air{ship=%q,kind=%q} %.6f\n", shipID, "added", m.AirAdded)
	fmt.Fprintf(rw, "shipspace_ship_air{ship=%q,kind=%q} %.6f\n", shipID, "vented", m.AirVented)

	gauge("shipspace_topology_edits", "Edits by topology resolution path.")
	fmt.Fprintf(rw, "shipspace_topology_edits{ship=%q,path=%q} %d\n", shipID, "full_rebuild", m.Counters.FullRebuilds)
	fmt.Fprintf(rw, "shipspace_topology_edits{ship=%q,path=%q} %d\n", shipID, "fast_unify", m.Counters.FastUnifys)
	fmt.Fprintf(rw, "shipspace_topology_edits{ship=%q,path=%q} %d\n", shipID, "fast_nosplit", m.Counters.FastNoSplits)
	fmt.Fprintf(rw, "shipspace_topology_edits{ship=%q,path=%q} %d\n", shipID, "false_split", m.Counters.FalseSplits)

	gauge("shipspace_ship_queue_depth", "Channel backlog depth.")
	fmt.Fprintf(rw, "shipspace_ship_queue_depth{ship=%q,queue=%q} %d\n", shipID, "edits", m.QueueDepths.Edits)
	fmt.Fprintf(rw, "shipspace_ship_queue_depth{ship=%q,queue=%q} %d\n", shipID, "join", m.QueueDepths.Join)
	fmt.Fprintf(rw, "shipspace_ship_queue_depth{ship=%q,queue=%q} %d\n", shipID, "leave", m.QueueDepths.Leave)
	fmt.Fprintf(rw, "shipspace_ship_queue_depth{ship=%q,queue=%q} %d\n", shipID, "chunk_req", m.QueueDepths.ChunkReq)

	gauge("shipspace_ship_dropped_frames", "Chunk frames dropped on full client queues.")
	fmt.Fprintf(rw, "shipspace_ship_dropped_frames{ship=%q} %d\n", shipID, m.DroppedFrames)

	gauge("shipspace_ship_step_ms", "Last tick step duration in milliseconds.")
	fmt.Fprintf(rw, "shipspace_ship_step_ms{ship=%q} %.3f\n", shipID, m.StepMS)

	if idx == nil {
		return
	}
	st := idx.Stats()
	gauge("shipspace_index_queue_depth", "Index writer backlog.")
	fmt.Fprintf(rw, "shipspace_index_queue_depth %d\n", st.QueueDepth)
	gauge("shipspace_index_dropped", "Index rows dropped on a full queue.")
	fmt.Fprintf(rw, "shipspace_index_dropped{kind=%q} %d\n", "tick", st.DropTick)
	fmt.Fprintf(rw, "shipspace_index_dropped{kind=%q} %d\n", "audit", st.DropAudit)
	fmt.Fprintf(rw, "shipspace_index_dropped{kind=%q} %d\n", "snapshot", st.DropSnapshot)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

var _ runtimeIndex = (*indexdb.SQLiteIndex)(nil)

// Package ship is the world context of one voxel ship: the chunk store, the
// air topology forest, the zone ledger, the light field and the placed
// devices, kept mutually consistent under edits.
//
// A Ship is single-threaded. Every method must be called from the goroutine
// running Run, or before Run starts.
package ship

import (
	"io"
	"log"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"shipspace.io/internal/persistence/snapshot"
	"shipspace.io/internal/sim/ship/block"
	"shipspace.io/internal/sim/ship/entities"
	"shipspace.io/internal/sim/ship/light"
	"shipspace.io/internal/sim/ship/logic/mathx"
	"shipspace.io/internal/sim/ship/raycast"
	"shipspace.io/internal/sim/ship/store"
	"shipspace.io/internal/sim/ship/topo"
	"shipspace.io/internal/sim/ship/zone"
)

type Config struct {
	ID         string
	TickRateHz int

	LightAttenuation int
	LightFieldSize   int
	MaxReach         int
	// MaxChunkSpan caps the ship's bounding box in chunks per axis.
	MaxChunkSpan int

	ProducerFlow        float64
	ProducerMaxPressure float64

	// Operational parameters.
	SnapshotEveryTicks  int
	ChunkSaveEveryTicks int

	Logger *log.Logger
}

func (c *Config) applyDefaults() {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.TickRateHz <= 0 {
		c.TickRateHz = 10
	}
	if c.LightAttenuation <= 0 {
		c.LightAttenuation = light.DefaultAttenuation
	}
	if c.LightFieldSize <= 0 {
		c.LightFieldSize = light.DefaultDim
	}
	if c.MaxReach <= 0 {
		c.MaxReach = raycast.DefaultReach
	}
	if c.MaxChunkSpan <= 0 {
		c.MaxChunkSpan = store.DefaultMaxSpan
	}
	if c.ProducerFlow <= 0 {
		c.ProducerFlow = 0.1
	}
	if c.ProducerMaxPressure <= 0 {
		c.ProducerMaxPressure = 1.0
	}
	if c.SnapshotEveryTicks <= 0 {
		c.SnapshotEveryTicks = 600
	}
	if c.ChunkSaveEveryTicks <= 0 {
		c.ChunkSaveEveryTicks = 100
	}
	if c.Logger == nil {
		c.Logger = log.New(io.Discard, "", 0)
	}
}

// Counters track how edits were resolved by the topology engine.
type Counters struct {
	FullRebuilds uint64 `json:"full_rebuilds"`
	FastUnifys   uint64 `json:"fast_unifys"`
	FastNoSplits uint64 `json:"fast_nosplits"`
	FalseSplits  uint64 `json:"false_splits"`
}

type TickLogger interface {
	WriteTick(TickLogEntry) error
}

type AuditLogger interface {
	WriteAudit(AuditEntry) error
}

type Ship struct {
	cfg    Config
	logger *log.Logger

	chunks *store.ChunkStore
	forest *topo.Forest
	zones  *zone.Ledger
	light  *light.Field
	ents   *entities.Registry

	counters Counters

	// Gas bookkeeping: held + vented == added at all times.
	airAdded  float64
	airVented float64

	tick atomic.Uint64

	tickLogger   TickLogger
	auditLogger  AuditLogger
	snapshotSink chan<- snapshot.SnapshotV1
	chunkSink    chan<- ChunkBatch

	// Digest of each chunk as of its last save.
	savedDigest map[store.ChunkKey]uint64

	// Chunks touched by edits since the last broadcast.
	touched map[store.ChunkKey]struct{}

	// Runtime channels, served by Run.
	edits    chan EditRequest
	join     chan JoinRequest
	leave    chan string
	chunkReq chan ChunkRequest
	stop     chan struct{}

	clients       map[string]*client
	nextSession   uint64
	droppedFrames uint64

	metrics atomic.Value // Metrics
}

func New(cfg Config) *Ship {
	cfg.applyDefaults()
	forest := topo.New()
	s := &Ship{
		cfg:    cfg,
		logger: cfg.Logger,
		chunks: store.NewChunkStore(),
		forest: forest,
		zones:  zone.NewLedger(forest),
		light:  light.NewField(cfg.LightFieldSize, cfg.LightAttenuation),
		ents: entities.NewRegistry(entities.Tuning{
			ProducerFlow:        cfg.ProducerFlow,
			ProducerMaxPressure: cfg.ProducerMaxPressure,
		}),
		touched:     map[store.ChunkKey]struct{}{},
		savedDigest: map[store.ChunkKey]uint64{},
		edits:       make(chan EditRequest, 256),
		join:        make(chan JoinRequest, 16),
		leave:       make(chan string, 16),
		chunkReq:    make(chan ChunkRequest, 16),
		stop:        make(chan struct{}),
		clients:     map[string]*client{},
	}
	s.chunks.SetMaxSpan(cfg.MaxChunkSpan)
	s.metrics.Store(Metrics{})
	return s
}

func (s *Ship) ID() string          { return s.cfg.ID }
func (s *Ship) TickRateHz() int     { return s.cfg.TickRateHz }
func (s *Ship) CurrentTick() uint64 { return s.tick.Load() }
func (s *Ship) Counters() Counters  { return s.counters }

func (s *Ship) SetTickLogger(l TickLogger)                    { s.tickLogger = l }
func (s *Ship) SetAuditLogger(l AuditLogger)                  { s.auditLogger = l }
func (s *Ship) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { s.snapshotSink = ch }
func (s *Ship) SetChunkSink(ch chan<- ChunkBatch)             { s.chunkSink = ch }

// Chunks exposes the store for read-only inspection.
func (s *Ship) Chunks() *store.ChunkStore { return s.chunks }

func (s *Ship) Entities() *entities.Registry { return s.ents }

func (s *Ship) Light() *light.Field { return s.light }

// AirBalance reports gas held in zones, ever added, and ever vented.
func (s *Ship) AirBalance() (held, added, vented float64) {
	return s.zones.Total(), s.airAdded, s.airVented
}

// GetBlock returns the block at p, or nil if its chunk does not exist.
func (s *Ship) GetBlock(p mathx.Vec3i) *block.Block {
	return s.chunks.GetBlock(p)
}

// EnsureBlock returns the block at p, creating its chunk and any chunks
// enclosed by the widened bounds. New blocks join the outside. It returns
// nil when p lies outside the ship extent.
func (s *Ship) EnsureBlock(p mathx.Vec3i) *block.Block {
	b, created := s.chunks.EnsureBlock(p)
	s.adopt(created)
	return b
}

// InExtent reports whether blocks at every p exist or can be created
// together without growing the ship past its configured span.
func (s *Ship) InExtent(ps ...mathx.Vec3i) bool {
	keys := make([]store.ChunkKey, len(ps))
	for i, p := range ps {
		keys[i], _, _, _ = store.SplitPos(p)
	}
	return s.chunks.CanHold(keys...)
}

// EnsureChunk is EnsureBlock for a whole chunk.
func (s *Ship) EnsureChunk(k store.ChunkKey) *store.Chunk {
	ch, created := s.chunks.EnsureChunk(k)
	s.adopt(created)
	return ch
}

func (s *Ship) adopt(created []*store.Chunk) {
	for _, ch := range created {
		ch.NodeBase = int32(s.forest.Grow(store.Volume))
	}
}

// nodeOf maps a block to its topology node; blocks without a chunk are the
// outside.
func (s *Ship) nodeOf(p mathx.Vec3i) topo.Node {
	ch, i := s.chunks.Locate(p)
	if ch == nil {
		return topo.Outside
	}
	return topo.Node(ch.NodeBase) + topo.Node(i)
}

// Find is the topology root of the block at p.
func (s *Ship) Find(p mathx.Vec3i) topo.Node {
	return s.forest.Find(s.nodeOf(p))
}

// Connected reports whether a and b share air.
func (s *Ship) Connected(a, b mathx.Vec3i) bool {
	return s.Find(a) == s.Find(b)
}

// IsOutside reports whether the block at p is open to space.
func (s *Ship) IsOutside(p mathx.Vec3i) bool {
	return s.forest.IsOutside(s.nodeOf(p))
}

// RegionSize is the block count of the region containing p.
func (s *Ship) RegionSize(p mathx.Vec3i) int {
	return s.forest.Size(s.Find(p))
}

// Raycast runs the voxel raycaster over this ship with the configured
// reach.
func (s *Ship) Raycast(origin, dir mgl32.Vec3) raycast.Hit {
	return raycast.Cast(s.chunks, origin, dir, s.cfg.MaxReach)
}

// MarkLightDirty schedules the light field around p for the next tick.
func (s *Ship) MarkLightDirty(p mathx.Vec3i) {
	s.light.MarkDirty(p)
}

func (s *Ship) touch(p mathx.Vec3i) {
	if ch := s.chunks.ChunkContaining(p); ch != nil {
		ch.MarkDirty()
		s.touched[ch.Key] = struct{}{}
	}
}

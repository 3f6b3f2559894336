package ship

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"shipspace.io/internal/persistence/snapshot"
	"shipspace.io/internal/protocol"
	"shipspace.io/internal/sim/ship/io/chunkcodec"
	"shipspace.io/internal/sim/ship/store"
)

type JoinRequest struct {
	Name string
	Out  chan []byte
	Resp chan JoinResponse
}

// JoinResponse carries the WELCOME and one chunk frame per loaded chunk, to
// be sent in that order.
type JoinResponse struct {
	Welcome protocol.WelcomeMsg
	Frames  [][]byte
}

type EditRequest struct {
	SessionID string
	Edit      protocol.EditMsg
	Resp      chan protocol.EditResultMsg
}

// ChunkRequest asks for fresh frames of the listed chunks. Unknown keys are
// skipped.
type ChunkRequest struct {
	Keys [][3]int
	Resp chan [][]byte
}

// ChunkRecord is one serialized chunk headed for storage.
type ChunkRecord struct {
	Key     store.ChunkKey
	Digest  uint64
	Payload []byte
}

// ChunkBatch is an incremental save: chunks changed since the last batch
// plus the full zone, entity and gas state at Tick.
type ChunkBatch struct {
	ShipID    string
	Tick      uint64
	Chunks    []ChunkRecord
	Zones     []snapshot.ZoneV1
	Entities  []snapshot.EntityV1
	Counters  snapshot.CountersV1
	AirAdded  float64
	AirVented float64
}

type RecordedEdit struct {
	SessionID string           `json:"session_id"`
	Edit      protocol.EditMsg `json:"edit"`
}

type TickLogEntry struct {
	Tick     uint64         `json:"tick"`
	Joins    []string       `json:"joins,omitempty"`
	Leaves   []string       `json:"leaves,omitempty"`
	Edits    []RecordedEdit `json:"edits,omitempty"`
	Counters Counters       `json:"counters"`
	Zones    int            `json:"zones"`
	AirHeld  float64        `json:"air_held"`
	AirAdded float64        `json:"air_added"`
	Vented   float64        `json:"air_vented"`
	Lit      bool           `json:"light_recomputed,omitempty"`
}

type AuditEntry struct {
	Tick      uint64 `json:"tick"`
	SessionID string `json:"session_id"`
	EditID    string `json:"edit_id"`
	Op        string `json:"op"`
	Pos       [3]int `json:"pos"`
	Accepted  bool   `json:"accepted"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
}

type client struct {
	name string
	out  chan []byte
}

func (s *Ship) Edits() chan<- EditRequest          { return s.edits }
func (s *Ship) Join() chan<- JoinRequest           { return s.join }
func (s *Ship) Leave() chan<- string               { return s.leave }
func (s *Ship) ChunkRequests() chan<- ChunkRequest { return s.chunkReq }

func (s *Ship) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(s.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingEdits []EditRequest
	var pendingJoins []JoinRequest
	var pendingLeaves []string

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stop:
			return nil
		case req := <-s.join:
			pendingJoins = append(pendingJoins, req)
		case id := <-s.leave:
			pendingLeaves = append(pendingLeaves, id)
		case req := <-s.chunkReq:
			s.handleChunkRequest(req)
		case req := <-s.edits:
			pendingEdits = append(pendingEdits, req)
		case <-ticker.C:
			s.step(pendingJoins, pendingLeaves, pendingEdits)
			pendingJoins = pendingJoins[:0]
			pendingLeaves = pendingLeaves[:0]
			pendingEdits = pendingEdits[:0]
		}
	}
}

func (s *Ship) Stop() { close(s.stop) }

// StepOnce advances the ship by one tick with the same ordering as Run and
// returns the tick that was simulated.
func (s *Ship) StepOnce(joins []JoinRequest, leaves []string, edits []EditRequest) uint64 {
	t := s.tick.Load()
	s.step(joins, leaves, edits)
	return t
}

func (s *Ship) step(joins []JoinRequest, leaves []string, edits []EditRequest) {
	start := time.Now()
	nowTick := s.tick.Load()

	var recordedLeaves []string
	for _, id := range leaves {
		if _, ok := s.clients[id]; ok {
			delete(s.clients, id)
			recordedLeaves = append(recordedLeaves, id)
		}
	}
	var recordedJoins []string
	for _, req := range joins {
		resp := s.joinClient(req.Name, req.Out)
		if req.Resp != nil {
			req.Resp <- resp
		}
		recordedJoins = append(recordedJoins, resp.Welcome.SessionID)
	}

	// Edits apply in arrival order.
	recorded := make([]RecordedEdit, 0, len(edits))
	for _, req := range edits {
		res := s.applyEdit(req.SessionID, req.Edit, nowTick)
		recorded = append(recorded, RecordedEdit{SessionID: req.SessionID, Edit: req.Edit})
		if req.Resp != nil {
			select {
			case req.Resp <- res:
			default:
			}
		}
	}

	lit := s.Tick()

	s.broadcastTouched()
	if nowTick%uint64(s.cfg.TickRateHz) == 0 {
		s.broadcastStatus(nowTick)
	}

	if s.tickLogger != nil {
		held, added, vented := s.AirBalance()
		_ = s.tickLogger.WriteTick(TickLogEntry{
			Tick:     nowTick,
			Joins:    recordedJoins,
			Leaves:   recordedLeaves,
			Edits:    recorded,
			Counters: s.counters,
			Zones:    s.zones.Len(),
			AirHeld:  held,
			AirAdded: added,
			Vented:   vented,
			Lit:      lit,
		})
	}

	if s.snapshotSink != nil && nowTick != 0 && nowTick%uint64(s.cfg.SnapshotEveryTicks) == 0 {
		snap := s.ExportSnapshot(nowTick)
		select {
		case s.snapshotSink <- snap:
		default:
			s.logger.Printf("snapshot sink full, dropping tick %d", nowTick)
		}
	}
	if s.chunkSink != nil && nowTick%uint64(s.cfg.ChunkSaveEveryTicks) == 0 {
		s.flushChunks(nowTick)
	}

	s.publishMetrics(nowTick, time.Since(start))
	s.tick.Add(1)
}

func (s *Ship) joinClient(name string, out chan []byte) JoinResponse {
	if name == "" {
		name = "client"
	}
	s.nextSession++
	id := fmt.Sprintf("S%d", s.nextSession)
	if out != nil {
		s.clients[id] = &client{name: name, out: out}
	}

	keys := s.chunks.LoadedChunkKeys()
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		ShipID:          s.cfg.ID,
		SessionID:       id,
		ChunkSize:       store.Size,
		TickRateHz:      s.cfg.TickRateHz,
		Chunks:          make([][3]int, 0, len(keys)),
	}
	frames := make([][]byte, 0, len(keys))
	for _, k := range keys {
		f, err := s.chunkFrame(k)
		if err != nil {
			s.logger.Printf("join %s: chunk %v: %v", id, k, err)
			continue
		}
		welcome.Chunks = append(welcome.Chunks, k.Vec().ToArray())
		frames = append(frames, f)
	}
	s.logger.Printf("join %s (%s): %d chunks", id, name, len(frames))
	return JoinResponse{Welcome: welcome, Frames: frames}
}

func (s *Ship) chunkFrame(k store.ChunkKey) ([]byte, error) {
	ch := s.chunks.Chunk(k)
	if ch == nil {
		return nil, fmt.Errorf("chunk %v not loaded", k)
	}
	return protocol.EncodeChunkFrame(k.Vec().ToArray(), chunkcodec.Serialize(ch))
}

func (s *Ship) handleChunkRequest(req ChunkRequest) {
	var frames [][]byte
	for _, a := range req.Keys {
		f, err := s.chunkFrame(store.ChunkKey{CX: a[0], CY: a[1], CZ: a[2]})
		if err != nil {
			continue
		}
		frames = append(frames, f)
	}
	if req.Resp != nil {
		req.Resp <- frames
	}
}

// broadcastTouched sends a fresh frame of every chunk edited this tick to
// every client.
func (s *Ship) broadcastTouched() {
	if len(s.touched) == 0 {
		return
	}
	keys := make([]store.ChunkKey, 0, len(s.touched))
	for k := range s.touched {
		keys = append(keys, k)
	}
	for k := range s.touched {
		delete(s.touched, k)
	}
	if len(s.clients) == 0 {
		return
	}
	sort.Slice(keys, func(i, j int) bool { return store.PackKey(keys[i]) < store.PackKey(keys[j]) })
	for _, k := range keys {
		f, err := s.chunkFrame(k)
		if err != nil {
			continue
		}
		for _, c := range s.clients {
			if !trySend(c.out, f) {
				s.droppedFrames++
			}
		}
	}
}

func (s *Ship) broadcastStatus(nowTick uint64) {
	if len(s.clients) == 0 {
		return
	}
	b, err := json.Marshal(s.Status(nowTick))
	if err != nil {
		return
	}
	for _, c := range s.clients {
		sendLatest(c.out, b)
	}
}

// Status summarizes the ship for clients.
func (s *Ship) Status(nowTick uint64) protocol.StatusMsg {
	return protocol.StatusMsg{
		Type:            protocol.TypeStatus,
		ProtocolVersion: protocol.Version,
		Tick:            nowTick,
		Chunks:          s.chunks.Len(),
		Zones:           s.zones.Len(),
		Entities:        s.ents.Len(),
		AirHeld:         s.zones.Total(),
		Counters: protocol.TopologyCounts{
			FullRebuilds: s.counters.FullRebuilds,
			FastUnifys:   s.counters.FastUnifys,
			FastNoSplits: s.counters.FastNoSplits,
			FalseSplits:  s.counters.FalseSplits,
		},
	}
}

// flushChunks hands every chunk whose digest moved since its last save to
// the chunk sink. Digests are recorded only once the sink accepts the batch.
func (s *Ship) flushChunks(nowTick uint64) {
	var recs []ChunkRecord
	for _, ch := range s.chunks.Chunks() {
		d := ch.Digest()
		if prev, ok := s.savedDigest[ch.Key]; ok && prev == d {
			continue
		}
		recs = append(recs, ChunkRecord{Key: ch.Key, Digest: d, Payload: chunkcodec.Serialize(ch)})
	}
	if len(recs) == 0 {
		return
	}
	snap := s.ExportSnapshot(nowTick)
	batch := ChunkBatch{
		ShipID:    s.cfg.ID,
		Tick:      nowTick,
		Chunks:    recs,
		Zones:     snap.Zones,
		Entities:  snap.Entities,
		Counters:  snap.Counters,
		AirAdded:  snap.AirAdded,
		AirVented: snap.AirVented,
	}
	select {
	case s.chunkSink <- batch:
		for _, r := range recs {
			s.savedDigest[r.Key] = r.Digest
		}
	default:
		s.logger.Printf("chunk sink full, %d chunks wait for tick %d", len(recs), nowTick+uint64(s.cfg.ChunkSaveEveryTicks))
	}
}

func trySend(ch chan []byte, b []byte) bool {
	select {
	case ch <- b:
		return true
	default:
		return false
	}
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}

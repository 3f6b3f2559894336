package ship

import (
	"testing"

	"shipspace.io/internal/protocol"
	"shipspace.io/internal/sim/ship/block"
	"shipspace.io/internal/sim/ship/store"
)

func setSurfaceEdit(id string, pos [3]int, face block.Face, surf string) protocol.EditMsg {
	return protocol.EditMsg{
		Type:            protocol.TypeEdit,
		ProtocolVersion: protocol.Version,
		EditID:          id,
		Op:              protocol.OpSetSurface,
		Pos:             pos,
		Face:            int(face),
		Surface:         surf,
	}
}

func TestStepJoinAndEdits(t *testing.T) {
	s, _ := habitat(t)
	ticks := &tickRecorder{}
	audits := &auditRecorder{}
	s.SetTickLogger(ticks)
	s.SetAuditLogger(audits)

	out := make(chan []byte, 16)
	join := JoinRequest{Name: "tester", Out: out, Resp: make(chan JoinResponse, 1)}
	ok := make(chan protocol.EditResultMsg, 1)
	bad := make(chan protocol.EditResultMsg, 1)
	edits := []EditRequest{
		{SessionID: "S1", Edit: setSurfaceEdit("E1", [3]int{2, 2, 2}, block.FaceXP, "grate"), Resp: ok},
		{SessionID: "S1", Edit: setSurfaceEdit("E2", [3]int{2, 2, 2}, block.FaceXP, "marble"), Resp: bad},
	}

	tick := s.StepOnce([]JoinRequest{join}, nil, edits)
	if tick != 0 {
		t.Fatalf("tick: got %d want 0", tick)
	}
	if got := s.CurrentTick(); got != 1 {
		t.Fatalf("current tick: got %d want 1", got)
	}

	resp := <-join.Resp
	if resp.Welcome.SessionID != "S1" {
		t.Fatalf("session: got %q want S1", resp.Welcome.SessionID)
	}
	if n := s.Chunks().Len(); len(resp.Frames) != n || len(resp.Welcome.Chunks) != n {
		t.Fatalf("welcome: frames=%d chunks=%d want %d", len(resp.Frames), len(resp.Welcome.Chunks), n)
	}
	for _, f := range resp.Frames {
		if _, err := protocol.DecodeChunkFrame(f); err != nil {
			t.Fatalf("frame: %v", err)
		}
	}

	if res := <-ok; !res.Accepted || res.Code != "" {
		t.Fatalf("grate edit: got %+v", res)
	}
	if res := <-bad; res.Accepted || res.Code != protocol.ErrBadRequest {
		t.Fatalf("marble edit: got %+v want %s", res, protocol.ErrBadRequest)
	}
	if got := s.GetBlock(v(3, 2, 2)).Surfs[block.FaceXM]; got != block.SurfaceGrate {
		t.Fatalf("mirrored surface: got %v want grate", got)
	}

	if len(audits.entries) != 2 || !audits.entries[0].Accepted || audits.entries[1].Accepted {
		t.Fatalf("audit: got %+v", audits.entries)
	}
	if len(ticks.entries) != 1 {
		t.Fatalf("tick log: got %d entries want 1", len(ticks.entries))
	}
	if e := ticks.entries[0]; len(e.Joins) != 1 || len(e.Edits) != 2 || e.Zones != 1 {
		t.Fatalf("tick entry: got %+v", e)
	}

	var frames, statuses int
	for len(out) > 0 {
		msg := <-out
		if base, err := protocol.DecodeBase(msg); err == nil && base.Type == protocol.TypeStatus {
			statuses++
			continue
		}
		if _, err := protocol.DecodeChunkFrame(msg); err == nil {
			frames++
		}
	}
	if frames == 0 || statuses != 1 {
		t.Fatalf("client got frames=%d statuses=%d", frames, statuses)
	}

	m := s.Metrics()
	if m.Tick != 0 || m.Clients != 1 || m.Chunks != s.Chunks().Len() || m.Zones != 1 {
		t.Fatalf("metrics: got %+v", m)
	}
}

func TestLeaveDropsClient(t *testing.T) {
	s, _ := habitat(t)
	join := JoinRequest{Out: make(chan []byte, 16), Resp: make(chan JoinResponse, 1)}
	s.StepOnce([]JoinRequest{join}, nil, nil)
	id := (<-join.Resp).Welcome.SessionID
	s.StepOnce(nil, []string{id, "S99"}, nil)
	if got := s.Metrics().Clients; got != 0 {
		t.Fatalf("clients: got %d want 0", got)
	}
}

func TestChunkBatchesCarryOnlyChanges(t *testing.T) {
	s := New(Config{ChunkSaveEveryTicks: 1})
	sealBox(s, v(6, 0, 0), v(4, 1, 1))
	sink := make(chan ChunkBatch, 4)
	s.SetChunkSink(sink)

	s.StepOnce(nil, nil, nil)
	if len(sink) != 1 {
		t.Fatalf("first flush: got %d batches want 1", len(sink))
	}
	first := <-sink
	if got, want := len(first.Chunks), s.Chunks().Len(); got != want {
		t.Fatalf("first batch: got %d chunks want %d", got, want)
	}

	s.StepOnce(nil, nil, nil)
	if len(sink) != 0 {
		t.Fatalf("unchanged ship flushed a batch")
	}

	edit := EditRequest{SessionID: "S1", Edit: setSurfaceEdit("E1", [3]int{6, 0, 0}, block.FaceXM, "grate")}
	s.StepOnce(nil, nil, []EditRequest{edit})
	if len(sink) != 1 {
		t.Fatalf("after edit: got %d batches want 1", len(sink))
	}
	b := <-sink
	if len(b.Chunks) != 1 || b.Chunks[0].Key != (store.ChunkKey{}) {
		t.Fatalf("after edit: got %d chunks", len(b.Chunks))
	}
	if b.Tick != 2 || b.ShipID != s.ID() {
		t.Fatalf("batch header: tick=%d ship=%q", b.Tick, b.ShipID)
	}
}

func TestChunkRequest(t *testing.T) {
	s, _ := habitat(t)
	resp := make(chan [][]byte, 1)
	s.handleChunkRequest(ChunkRequest{Keys: [][3]int{{0, 0, 0}, {9, 9, 9}}, Resp: resp})
	frames := <-resp
	if len(frames) != 1 {
		t.Fatalf("frames: got %d want 1", len(frames))
	}
	f, err := protocol.DecodeChunkFrame(frames[0])
	if err != nil || f.Key != [3]int{0, 0, 0} {
		t.Fatalf("frame: key=%v err=%v", f.Key, err)
	}
}

func TestSendLatestKeepsNewest(t *testing.T) {
	ch := make(chan []byte, 1)
	sendLatest(ch, []byte("a"))
	sendLatest(ch, []byte("b"))
	if got := string(<-ch); got != "b" {
		t.Fatalf("got %q want b", got)
	}
}

func TestFarEditsRejected(t *testing.T) {
	s, _ := habitat(t)
	n := s.Chunks().Len()
	far := 1 << 24
	setBlock := func(id string, pos [3]int, typ string) protocol.EditMsg {
		return protocol.EditMsg{
			Type:            protocol.TypeEdit,
			ProtocolVersion: protocol.Version,
			EditID:          id,
			Op:              protocol.OpSetBlock,
			Pos:             pos,
			BlockType:       typ,
		}
	}
	edits := []protocol.EditMsg{
		setBlock("E1", [3]int{8000, 8000, 8000}, "support"),
		// Aliases chunk (0,0,0) in the packed chunk index.
		setBlock("E2", [3]int{far, 0, 0}, "empty"),
		setSurfaceEdit("E3", [3]int{far, 0, 0}, block.FaceXP, "wall"),
		setSurfaceEdit("E4", [3]int{-300, 2, 2}, block.FaceXP, "wall"),
	}
	reqs := make([]EditRequest, len(edits))
	resps := make([]chan protocol.EditResultMsg, len(edits))
	for i, e := range edits {
		resps[i] = make(chan protocol.EditResultMsg, 1)
		reqs[i] = EditRequest{SessionID: "S1", Edit: e, Resp: resps[i]}
	}
	s.StepOnce(nil, nil, reqs)

	for i, ch := range resps {
		if res := <-ch; res.Accepted || res.Code != protocol.ErrBadRequest {
			t.Fatalf("%s: got %+v want %s", edits[i].EditID, res, protocol.ErrBadRequest)
		}
	}
	if got := s.Chunks().Len(); got != n {
		t.Fatalf("chunks: got %d want %d", got, n)
	}
	if got := s.GetBlock(v(0, 0, 0)).Type; got != block.Support {
		t.Fatalf("near block changed by a far edit: type %v", got)
	}
	if s.GetBlock(v(far, 0, 0)) != nil {
		t.Fatalf("far block resolved to a loaded chunk")
	}
}

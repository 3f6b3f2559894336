package ws

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"shipspace.io/internal/protocol"
	"shipspace.io/internal/sim/ship"
	"shipspace.io/internal/sim/ship/block"
	"shipspace.io/internal/sim/ship/logic/mathx"
)

func startServer(t *testing.T) (*ship.Ship, string) {
	t.Helper()
	sh := ship.New(ship.Config{ID: "test-ship", TickRateHz: 100})
	sh.EnsureBlock(mathx.Vec3i{X: 1, Y: 1, Z: 1})

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = sh.Run(ctx) }()
	t.Cleanup(cancel)

	srv := httptest.NewServer(NewServer(sh, log.New(io.Discard, "", 0)).Handler())
	t.Cleanup(srv.Close)
	return sh, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	b, _ := json.Marshal(v)
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// readUntil reads messages until one of JSON type typ arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) []byte {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		_ = conn.SetReadDeadline(deadline)
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read waiting for %s: %v", typ, err)
		}
		if mt != websocket.TextMessage {
			continue
		}
		base, err := protocol.DecodeBase(msg)
		if err == nil && base.Type == typ {
			return msg
		}
	}
}

func hello(t *testing.T, conn *websocket.Conn) protocol.WelcomeMsg {
	t.Helper()
	send(t, conn, protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, ClientName: "tester"})
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	mt, msg, err := conn.ReadMessage()
	if err != nil || mt != websocket.TextMessage {
		t.Fatalf("welcome: type %d err %v", mt, err)
	}
	var w protocol.WelcomeMsg
	if err := json.Unmarshal(msg, &w); err != nil {
		t.Fatalf("welcome decode: %v", err)
	}
	for range w.Chunks {
		mt, msg, err := conn.ReadMessage()
		if err != nil || mt != websocket.BinaryMessage {
			t.Fatalf("chunk frame: type %d err %v", mt, err)
		}
		if _, err := protocol.DecodeChunkFrame(msg); err != nil {
			t.Fatalf("chunk frame decode: %v", err)
		}
	}
	return w
}

func TestHandshakeSendsWelcomeAndChunks(t *testing.T) {
	_, url := startServer(t)
	conn := dial(t, url)
	w := hello(t, conn)
	if w.ShipID != "test-ship" || w.ChunkSize != 8 || w.SessionID == "" {
		t.Fatalf("welcome: got %+v", w)
	}
	if len(w.Chunks) != 1 || w.Chunks[0] != [3]int{0, 0, 0} {
		t.Fatalf("chunks: got %v want [[0 0 0]]", w.Chunks)
	}
}

func TestEditRoundTrip(t *testing.T) {
	_, url := startServer(t)
	conn := dial(t, url)
	hello(t, conn)

	send(t, conn, protocol.EditMsg{
		Type:            protocol.TypeEdit,
		ProtocolVersion: protocol.Version,
		EditID:          "e1",
		Op:              protocol.OpSetSurface,
		Pos:             [3]int{1, 1, 1},
		Face:            int(block.FaceXP),
		Surface:         "wall",
	})
	var res protocol.EditResultMsg
	if err := json.Unmarshal(readUntil(t, conn, protocol.TypeEditResult), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.EditID != "e1" || !res.Accepted {
		t.Fatalf("result: got %+v", res)
	}

	send(t, conn, protocol.EditMsg{
		Type:            protocol.TypeEdit,
		ProtocolVersion: protocol.Version,
		EditID:          "e2",
		Op:              protocol.OpSetSurface,
		Surface:         "marble",
	})
	if err := json.Unmarshal(readUntil(t, conn, protocol.TypeEditResult), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.EditID != "e2" || res.Accepted || res.Code != protocol.ErrBadRequest {
		t.Fatalf("result: got %+v want rejection %s", res, protocol.ErrBadRequest)
	}
}

func TestEditBadVersionRejected(t *testing.T) {
	_, url := startServer(t)
	conn := dial(t, url)
	hello(t, conn)

	send(t, conn, protocol.EditMsg{Type: protocol.TypeEdit, ProtocolVersion: "0.1", EditID: "old"})
	var res protocol.EditResultMsg
	if err := json.Unmarshal(readUntil(t, conn, protocol.TypeEditResult), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Code != protocol.ErrProtoVersion {
		t.Fatalf("code: got %q want %q", res.Code, protocol.ErrProtoVersion)
	}
}

func TestChunkRequestResendsFrames(t *testing.T) {
	_, url := startServer(t)
	conn := dial(t, url)
	hello(t, conn)

	send(t, conn, protocol.ChunkReqMsg{
		Type:            protocol.TypeChunkReq,
		ProtocolVersion: protocol.Version,
		Chunks:          [][3]int{{0, 0, 0}, {9, 9, 9}},
	})
	deadline := time.Now().Add(5 * time.Second)
	for {
		_ = conn.SetReadDeadline(deadline)
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		f, err := protocol.DecodeChunkFrame(msg)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if f.Key != [3]int{0, 0, 0} {
			t.Fatalf("frame key: got %v", f.Key)
		}
		return
	}
}

func TestHandshakeRequiresHello(t *testing.T) {
	_, url := startServer(t)
	conn := dial(t, url)
	send(t, conn, protocol.EditMsg{Type: protocol.TypeEdit, ProtocolVersion: protocol.Version})
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("got %v want policy violation close", err)
	}
}

package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"shipspace.io/internal/protocol"
	"shipspace.io/internal/sim/ship"
)

// Ship is the runtime surface the transport needs. *ship.Ship satisfies it.
type Ship interface {
	Join() chan<- ship.JoinRequest
	Leave() chan<- string
	Edits() chan<- ship.EditRequest
	ChunkRequests() chan<- ship.ChunkRequest
}

type Server struct {
	ship Ship
	log  *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(sh Ship, logger *log.Logger) *Server {
	return &Server{
		ship: sh,
		log:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sessionID, out := s.handshake(conn)
		if sessionID == "" {
			return
		}
		s.log.Printf("session %s connected from %s", sessionID, r.RemoteAddr)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		results := make(chan protocol.EditResultMsg, 64)
		direct := make(chan []byte, 64)

		// Writer goroutine: the only one writing to conn after the handshake.
		go func() {
			for {
				var b []byte
				select {
				case <-ctx.Done():
					return
				case res := <-results:
					var err error
					if b, err = json.Marshal(res); err != nil {
						continue
					}
				case b = <-direct:
				case msg, ok := <-out:
					if !ok {
						return
					}
					b = msg
				}
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(messageType(b), b); err != nil {
					cancel()
					return
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				reject(results, "", protocol.ErrProtoBadRequest, "malformed json")
				continue
			}
			switch base.Type {
			case protocol.TypeEdit:
				var e protocol.EditMsg
				if err := json.Unmarshal(msg, &e); err != nil {
					reject(results, "", protocol.ErrProtoBadRequest, "malformed EDIT")
					continue
				}
				if e.ProtocolVersion != protocol.Version {
					reject(results, e.EditID, protocol.ErrProtoVersion, "bad protocol_version")
					continue
				}
				select {
				case s.ship.Edits() <- ship.EditRequest{SessionID: sessionID, Edit: e, Resp: results}:
				default:
					reject(results, e.EditID, protocol.ErrShipBusy, "edit queue full")
				}

			case protocol.TypeChunkReq:
				var cr protocol.ChunkReqMsg
				if err := json.Unmarshal(msg, &cr); err != nil {
					continue
				}
				resp := make(chan [][]byte, 1)
				s.ship.ChunkRequests() <- ship.ChunkRequest{Keys: cr.Chunks, Resp: resp}
				var frames [][]byte
				select {
				case frames = <-resp:
				case <-ctx.Done():
				}
				for _, f := range frames {
					select {
					case direct <- f:
					case <-ctx.Done():
					}
				}
			}
		}

		s.ship.Leave() <- sessionID
		s.log.Printf("session %s closed", sessionID)
	}
}

func (s *Server) handshake(conn *websocket.Conn) (sessionID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return "", nil
	}

	out = make(chan []byte, 256)
	respCh := make(chan ship.JoinResponse, 1)
	s.ship.Join() <- ship.JoinRequest{Name: hello.ClientName, Out: out, Resp: respCh}
	resp := <-respCh

	// Welcome, then the full ship as chunk frames.
	if err := writeJSON(conn, resp.Welcome); err != nil {
		return "", nil
	}
	for _, f := range resp.Frames {
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.BinaryMessage, f); err != nil {
			return "", nil
		}
	}
	return resp.Welcome.SessionID, out
}

func reject(results chan<- protocol.EditResultMsg, editID, code, msg string) {
	res := protocol.EditResultMsg{
		Type:            protocol.TypeEditResult,
		ProtocolVersion: protocol.Version,
		EditID:          editID,
		Code:            code,
		Message:         msg,
	}
	select {
	case results <- res:
	default:
	}
}

// messageType sends JSON control messages as text and chunk frames as
// binary.
func messageType(b []byte) int {
	if len(b) > 0 && b[0] == '{' {
		return websocket.TextMessage
	}
	return websocket.BinaryMessage
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorilla/websocket"

	"shipspace.io/internal/protocol"
	"shipspace.io/internal/sim/ship/io/chunkcodec"
)

// Tools the bot cycles through, one per edit.
var tools = []string{"remove_surface", "add_surface", "place_support", "remove_surface"}

func main() {
	var (
		url    = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name   = flag.String("name", "bot", "client name")
		origin = flag.String("origin", "2.5,2.5,2.5", "ray origin x,y,z (inside the demo habitat by default)")
		every  = flag.Uint64("every", 20, "send one edit per this many status ticks (0 disables edits)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)

	var o mgl32.Vec3
	if _, err := fmt.Sscanf(*origin, "%f,%f,%f", &o[0], &o[1], &o[2]); err != nil {
		logger.Fatalf("bad -origin: %v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      *name,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	var frames, bad, sent int
	for {
		select {
		case <-stop:
			logger.Printf("frames=%d bad=%d edits=%d", frames, bad, sent)
			return
		default:
		}

		mt, msg, err := conn.ReadMessage()
		if err != nil {
			logger.Printf("read: %v", err)
			return
		}
		if mt == websocket.BinaryMessage {
			frames++
			if err := checkFrame(msg); err != nil {
				bad++
				logger.Printf("frame: %v", err)
			}
			continue
		}

		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			logger.Printf("WELCOME ship=%s session=%s chunks=%d tick_rate=%d", w.ShipID, w.SessionID, len(w.Chunks), w.TickRateHz)

		case protocol.TypeStatus:
			var st protocol.StatusMsg
			if err := json.Unmarshal(msg, &st); err != nil {
				continue
			}
			logger.Printf("STATUS tick=%d zones=%d air=%.3f rebuilds=%d", st.Tick, st.Zones, st.AirHeld, st.Counters.FullRebuilds)
			if *every == 0 || st.Tick%(*every) != 0 {
				continue
			}
			e := randomEdit(r, o, st.Tick, sent)
			if err := conn.WriteJSON(e); err != nil {
				logger.Printf("send EDIT: %v", err)
				return
			}
			sent++

		case protocol.TypeEditResult:
			var res protocol.EditResultMsg
			if err := json.Unmarshal(msg, &res); err != nil {
				continue
			}
			logger.Printf("EDIT_RESULT %s accepted=%v code=%s tick=%d", res.EditID, res.Accepted, res.Code, res.ServerTick)
		}
	}
}

func checkFrame(b []byte) error {
	f, err := protocol.DecodeChunkFrame(b)
	if err != nil {
		return err
	}
	if _, err := chunkcodec.Deserialize(f.Payload); err != nil {
		return fmt.Errorf("chunk %v: %w", f.Key, err)
	}
	return nil
}

// randomEdit aims a tool along one of the six axes from o.
func randomEdit(r *rand.Rand, o mgl32.Vec3, tick uint64, n int) protocol.EditMsg {
	var dir [3]float32
	axis := r.Intn(3)
	dir[axis] = 1
	if r.Intn(2) == 0 {
		dir[axis] = -1
	}
	e := protocol.EditMsg{
		Type:            protocol.TypeEdit,
		ProtocolVersion: protocol.Version,
		EditID:          fmt.Sprintf("B_%d_%d", tick, n),
		Op:              protocol.OpTool,
		Tool:            tools[n%len(tools)],
		Origin:          [3]float32{o[0], o[1], o[2]},
		Dir:             dir,
	}
	if e.Tool == "add_surface" {
		e.Surface = "wall"
	}
	return e
}

package ship

import "time"

// Metrics is a read-only view of runtime signals. It is written by the ship
// loop and may be read from any goroutine.
type Metrics struct {
	Tick uint64 `json:"tick"`

	Chunks   int `json:"chunks"`
	Zones    int `json:"zones"`
	Entities int `json:"entities"`
	Clients  int `json:"clients"`

	AirHeld   float64 `json:"air_held"`
	AirAdded  float64 `json:"air_added"`
	AirVented float64 `json:"air_vented"`

	Counters Counters `json:"counters"`

	QueueDepths   QueueDepths `json:"queue_depths"`
	DroppedFrames uint64      `json:"dropped_frames"`

	StepMS float64 `json:"step_ms"`
}

type QueueDepths struct {
	Edits    int `json:"edits"`
	Join     int `json:"join"`
	Leave    int `json:"leave"`
	ChunkReq int `json:"chunk_req"`
}

func (s *Ship) Metrics() Metrics {
	if s == nil {
		return Metrics{}
	}
	m, ok := s.metrics.Load().(Metrics)
	if !ok {
		return Metrics{}
	}
	return m
}

func (s *Ship) publishMetrics(nowTick uint64, took time.Duration) {
	held, added, vented := s.AirBalance()
	s.metrics.Store(Metrics{
		Tick:      nowTick,
		Chunks:    s.chunks.Len(),
		Zones:     s.zones.Len(),
		Entities:  s.ents.Len(),
		Clients:   len(s.clients),
		AirHeld:   held,
		AirAdded:  added,
		AirVented: vented,
		Counters:  s.counters,
		QueueDepths: QueueDepths{
			Edits:    len(s.edits),
			Join:     len(s.join),
			Leave:    len(s.leave),
			ChunkReq: len(s.chunkReq),
		},
		DroppedFrames: s.droppedFrames,
		StepMS:        float64(took.Microseconds()) / 1000,
	})
}

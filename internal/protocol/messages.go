package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name"`
}

// WELCOME (server -> client). Chunk frames for every listed chunk follow.
type WelcomeMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	ShipID          string   `json:"ship_id"`
	SessionID       string   `json:"session_id"`
	ChunkSize       int      `json:"chunk_size"`
	TickRateHz      int      `json:"tick_rate_hz"`
	Chunks          [][3]int `json:"chunks"`
}

// Edit operations.
const (
	OpSetSurface = "set_surface"
	OpSetBlock   = "set_block"
	OpTool       = "tool"
	OpPower      = "power"
)

// EDIT (client -> server)
type EditMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	EditID          string `json:"edit_id"`
	Op              string `json:"op"`

	// set_surface / set_block
	Pos       [3]int `json:"pos,omitempty"`
	Face      int    `json:"face,omitempty"`
	Surface   string `json:"surface,omitempty"`
	BlockType string `json:"block_type,omitempty"`

	// tool
	Tool   string     `json:"tool,omitempty"`
	Origin [3]float32 `json:"origin,omitempty"`
	Dir    [3]float32 `json:"dir,omitempty"`
	Entity string     `json:"entity,omitempty"`

	// power
	EntityID string `json:"entity_id,omitempty"`
	Powered  *bool  `json:"powered,omitempty"`
	Enabled  *bool  `json:"enabled,omitempty"`
}

// EDIT_RESULT (server -> client)
type EditResultMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	EditID          string `json:"edit_id"`
	Accepted        bool   `json:"accepted"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
	ServerTick      uint64 `json:"server_tick"`
}

// CHUNK_REQ (client -> server): resend chunk frames, e.g. after a decode
// failure on the client side.
type ChunkReqMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	Chunks          [][3]int `json:"chunks"`
}

// STATUS (server -> client)
type StatusMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	Tick            uint64         `json:"tick"`
	Chunks          int            `json:"chunks"`
	Zones           int            `json:"zones"`
	Entities        int            `json:"entities"`
	AirHeld         float64        `json:"air_held"`
	Counters        TopologyCounts `json:"counters"`
}

type TopologyCounts struct {
	FullRebuilds uint64 `json:"full_rebuilds"`
	FastUnifys   uint64 `json:"fast_unifys"`
	FastNoSplits uint64 `json:"fast_nosplits"`
	FalseSplits  uint64 `json:"false_splits"`
}

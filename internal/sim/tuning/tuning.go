package tuning

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version" toml:"protocol_version"`

	TickRateHz          int `yaml:"tick_rate_hz" toml:"tick_rate_hz"`
	LightAttenuation    int `yaml:"light_attenuation" toml:"light_attenuation"`
	LightFieldSize      int `yaml:"light_field_size" toml:"light_field_size"`
	MaxReach            int `yaml:"max_reach" toml:"max_reach"`
	MaxChunkSpan        int `yaml:"max_chunk_span" toml:"max_chunk_span"`
	SnapshotEveryTicks  int `yaml:"snapshot_every_ticks" toml:"snapshot_every_ticks"`
	ChunkSaveEveryTicks int `yaml:"chunk_save_every_ticks" toml:"chunk_save_every_ticks"`

	Producer Producer `yaml:"producer" toml:"producer"`
	Habitat  Habitat  `yaml:"habitat" toml:"habitat"`
}

type Producer struct {
	Flow        float64 `yaml:"flow" toml:"flow"`
	MaxPressure float64 `yaml:"max_pressure" toml:"max_pressure"`
}

// Habitat sizes the demo room built for a fresh ship.
type Habitat struct {
	Origin []int `yaml:"origin" toml:"origin"`
	Size   []int `yaml:"size" toml:"size"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:     "1.0",
		TickRateHz:          10,
		LightAttenuation:    50,
		LightFieldSize:      128,
		MaxReach:            6,
		MaxChunkSpan:        32,
		SnapshotEveryTicks:  600,
		ChunkSaveEveryTicks: 100,
		Producer:            Producer{Flow: 0.1, MaxPressure: 1.0},
		Habitat:             Habitat{Origin: []int{1, 1, 1}, Size: []int{4, 4, 3}},
	}
}

// Load reads path; .toml files decode as TOML, anything else as YAML. Zero
// or absent values take their default.
func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	name := filepath.Base(path)
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(raw, &t); err != nil {
			return t, fmt.Errorf("%s: %w", name, err)
		}
	} else if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("%s: %w", name, err)
	}
	t.applyDefaults()
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("%s: %w", name, err)
	}
	return t, nil
}

func (t *Tuning) applyDefaults() {
	d := Defaults()
	if t.ProtocolVersion == "" {
		t.ProtocolVersion = d.ProtocolVersion
	}
	if t.TickRateHz == 0 {
		t.TickRateHz = d.TickRateHz
	}
	if t.LightAttenuation == 0 {
		t.LightAttenuation = d.LightAttenuation
	}
	if t.LightFieldSize == 0 {
		t.LightFieldSize = d.LightFieldSize
	}
	if t.MaxReach == 0 {
		t.MaxReach = d.MaxReach
	}
	if t.MaxChunkSpan == 0 {
		t.MaxChunkSpan = d.MaxChunkSpan
	}
	if t.SnapshotEveryTicks == 0 {
		t.SnapshotEveryTicks = d.SnapshotEveryTicks
	}
	if t.ChunkSaveEveryTicks == 0 {
		t.ChunkSaveEveryTicks = d.ChunkSaveEveryTicks
	}
	if t.Producer.Flow == 0 {
		t.Producer.Flow = d.Producer.Flow
	}
	if t.Producer.MaxPressure == 0 {
		t.Producer.MaxPressure = d.Producer.MaxPressure
	}
	if len(t.Habitat.Origin) == 0 {
		t.Habitat.Origin = d.Habitat.Origin
	}
	if len(t.Habitat.Size) == 0 {
		t.Habitat.Size = d.Habitat.Size
	}
}

func (t Tuning) Validate() error {
	switch {
	case t.TickRateHz <= 0:
		return fmt.Errorf("tick_rate_hz must be > 0, got %d", t.TickRateHz)
	case t.LightAttenuation <= 0:
		return fmt.Errorf("light_attenuation must be > 0, got %d", t.LightAttenuation)
	case t.LightFieldSize <= 0:
		return fmt.Errorf("light_field_size must be > 0, got %d", t.LightFieldSize)
	case t.MaxReach <= 0:
		return fmt.Errorf("max_reach must be > 0, got %d", t.MaxReach)
	case t.MaxChunkSpan <= 0:
		return fmt.Errorf("max_chunk_span must be > 0, got %d", t.MaxChunkSpan)
	case t.Producer.Flow < 0 || t.Producer.MaxPressure < 0:
		return fmt.Errorf("producer flow/max_pressure must be >= 0")
	case len(t.Habitat.Origin) != 3 || len(t.Habitat.Size) != 3:
		return fmt.Errorf("habitat origin and size need 3 values, got %d and %d", len(t.Habitat.Origin), len(t.Habitat.Size))
	}
	return nil
}

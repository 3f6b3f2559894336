// Package entities holds the placed devices of a ship and their components.
package entities

import (
	"github.com/google/uuid"

	"shipspace.io/internal/sim/ship/block"
	"shipspace.io/internal/sim/ship/light"
	"shipspace.io/internal/sim/ship/logic/mathx"
)

type Kind uint8

const (
	KindDoor Kind = iota
	KindFrobnicator
	KindLight
	KindWarningLight
	KindDisplayPanel
	KindPressureSensor
	kindCount
)

var kindNames = [kindCount]string{
	"door",
	"frobnicator",
	"light",
	"warning_light",
	"display_panel",
	"pressure_sensor",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return "unknown"
}

// Mounted kinds attach to a surface; the rest occupy whole blocks.
func (k Kind) Mounted() bool {
	switch k {
	case KindLight, KindWarningLight, KindDisplayPanel, KindPressureSensor:
		return true
	}
	return false
}

// Height is the number of blocks a block-occupying kind stacks upward.
func (k Kind) Height() int {
	if k == KindDoor {
		return 2
	}
	return 1
}

func ParseKind(s string) (Kind, bool) {
	for i, n := range kindNames {
		if n == s {
			return Kind(i), true
		}
	}
	return 0, false
}

type Entity struct {
	ID   uuid.UUID
	Kind Kind
	Pos  mathx.Vec3i
	Face block.Face
}

type Power struct {
	Powered  bool
	Required int
}

type Switch struct {
	Enabled bool
}

type Light struct {
	Intensity float32
}

// Gas produces Flow units per tick into the zone at the entity's block, up
// to MaxPressure.
type Gas struct {
	Flow        float64
	MaxPressure float64
}

// Sensor holds the last pressure read at the entity's block.
type Sensor struct {
	Pressure float64
}

// Tuning carries the per-kind numbers that come from configuration.
type Tuning struct {
	ProducerFlow        float64
	ProducerMaxPressure float64
}

type Registry struct {
	tuning Tuning

	base     *Pool[Entity]
	power    *Pool[Power]
	switches *Pool[Switch]
	lights   *Pool[Light]
	gas      *Pool[Gas]
	sensors  *Pool[Sensor]
}

func NewRegistry(t Tuning) *Registry {
	if t.ProducerFlow <= 0 {
		t.ProducerFlow = 0.1
	}
	if t.ProducerMaxPressure <= 0 {
		t.ProducerMaxPressure = 1.0
	}
	return &Registry{
		tuning:   t,
		base:     NewPool[Entity](),
		power:    NewPool[Power](),
		switches: NewPool[Switch](),
		lights:   NewPool[Light](),
		gas:      NewPool[Gas](),
		sensors:  NewPool[Sensor](),
	}
}

// Spawn places a new entity of kind k and attaches the kind's components.
// Powered devices start unpowered. The returned pointer is valid until the
// next Spawn or Destroy.
func (r *Registry) Spawn(k Kind, pos mathx.Vec3i, face block.Face) *Entity {
	return r.Restore(uuid.New(), k, pos, face)
}

// Restore is Spawn with a caller-provided id.
func (r *Registry) Restore(id uuid.UUID, k Kind, pos mathx.Vec3i, face block.Face) *Entity {
	e := r.base.Assign(id, Entity{ID: id, Kind: k, Pos: pos, Face: face})
	switch k {
	case KindDoor:
		r.power.Assign(id, Power{Required: 8})
		r.switches.Assign(id, Switch{Enabled: true})
	case KindFrobnicator:
		r.power.Assign(id, Power{Required: 12})
		r.switches.Assign(id, Switch{Enabled: true})
		r.gas.Assign(id, Gas{Flow: r.tuning.ProducerFlow, MaxPressure: r.tuning.ProducerMaxPressure})
	case KindLight:
		r.power.Assign(id, Power{Required: 6})
		r.switches.Assign(id, Switch{Enabled: true})
		r.lights.Assign(id, Light{Intensity: 1})
	case KindWarningLight:
		r.power.Assign(id, Power{Required: 6})
		r.switches.Assign(id, Switch{Enabled: false})
		r.lights.Assign(id, Light{Intensity: 1})
	case KindDisplayPanel:
		r.power.Assign(id, Power{Required: 4})
		r.switches.Assign(id, Switch{Enabled: true})
		r.lights.Assign(id, Light{Intensity: 0.15})
	case KindPressureSensor:
		r.sensors.Assign(id, Sensor{})
	}
	return e
}

func (r *Registry) Get(id uuid.UUID) (*Entity, bool) { return r.base.Get(id) }

func (r *Registry) Len() int { return r.base.Len() }

// Destroy removes id and all its components.
func (r *Registry) Destroy(id uuid.UUID) bool {
	if !r.base.Remove(id) {
		return false
	}
	r.power.Remove(id)
	r.switches.Remove(id)
	r.lights.Remove(id)
	r.gas.Remove(id)
	r.sensors.Remove(id)
	return true
}

// AttachedTo lists entities placed against face of the block at pos.
func (r *Registry) AttachedTo(pos mathx.Vec3i, face block.Face) []uuid.UUID {
	var out []uuid.UUID
	for i := 0; i < r.base.Len(); i++ {
		id, e := r.base.At(i)
		if e.Pos == pos && e.Face == face {
			out = append(out, id)
		}
	}
	return out
}

func (r *Registry) SetPowered(id uuid.UUID, on bool) bool {
	p, ok := r.power.Get(id)
	if !ok {
		return false
	}
	p.Powered = on
	return true
}

func (r *Registry) SetEnabled(id uuid.UUID, on bool) bool {
	s, ok := r.switches.Get(id)
	if !ok {
		return false
	}
	s.Enabled = on
	return true
}

// Active is powered and, if switchable, enabled.
func (r *Registry) Active(id uuid.UUID) bool {
	p, ok := r.power.Get(id)
	if !ok || !p.Powered {
		return false
	}
	if s, ok := r.switches.Get(id); ok {
		return s.Enabled
	}
	return true
}

// LightSources lists the active emitters.
func (r *Registry) LightSources() []light.Source {
	var out []light.Source
	for i := 0; i < r.lights.Len(); i++ {
		id, l := r.lights.At(i)
		if !r.Active(id) {
			continue
		}
		e, _ := r.base.Get(id)
		out = append(out, light.Source{Pos: e.Pos, Intensity: l.Intensity})
	}
	return out
}

// IsLight reports whether id carries a light component.
func (r *Registry) IsLight(id uuid.UUID) bool { return r.lights.Has(id) }

// EachProducer visits active gas producers in dense order.
func (r *Registry) EachProducer(fn func(e *Entity, g *Gas)) {
	for i := 0; i < r.gas.Len(); i++ {
		id, g := r.gas.At(i)
		if !r.Active(id) {
			continue
		}
		e, _ := r.base.Get(id)
		fn(e, g)
	}
}

func (r *Registry) EachSensor(fn func(e *Entity, s *Sensor)) {
	for i := 0; i < r.sensors.Len(); i++ {
		id, s := r.sensors.At(i)
		e, _ := r.base.Get(id)
		fn(e, s)
	}
}

// Sensor returns the sensor component of id.
func (r *Registry) Sensor(id uuid.UUID) (*Sensor, bool) { return r.sensors.Get(id) }

// Snapshot lists every entity with its mutable state.
func (r *Registry) Snapshot() []State {
	out := make([]State, 0, r.base.Len())
	for i := 0; i < r.base.Len(); i++ {
		id, e := r.base.At(i)
		st := State{ID: id.String(), Kind: e.Kind.String(), Pos: e.Pos.ToArray(), Face: uint8(e.Face)}
		if p, ok := r.power.Get(id); ok {
			st.Powered = p.Powered
		}
		if s, ok := r.switches.Get(id); ok {
			st.Enabled = s.Enabled
		}
		out = append(out, st)
	}
	return out
}

// State is the persisted form of one entity.
type State struct {
	ID      string
	Kind    string
	Pos     [3]int
	Face    uint8
	Powered bool
	Enabled bool
}

// Load restores entities from states, skipping malformed ones. It returns
// the number restored.
func (r *Registry) Load(states []State) int {
	n := 0
	for _, st := range states {
		id, err := uuid.Parse(st.ID)
		if err != nil {
			continue
		}
		k, ok := ParseKind(st.Kind)
		if !ok {
			continue
		}
		r.Restore(id, k, mathx.FromArray(st.Pos), block.Face(st.Face))
		r.SetPowered(id, st.Powered)
		r.SetEnabled(id, st.Enabled)
		n++
	}
	return n
}

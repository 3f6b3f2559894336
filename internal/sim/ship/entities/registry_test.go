package entities

import (
	"testing"

	"github.com/google/uuid"

	"shipspace.io/internal/sim/ship/block"
	"shipspace.io/internal/sim/ship/logic/mathx"
)

func TestPoolSwapRemove(t *testing.T) {
	p := NewPool[int]()
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	p.Assign(a, 1)
	p.Assign(b, 2)
	p.Assign(c, 3)
	if !p.Remove(a) {
		t.Fatalf("remove a failed")
	}
	if p.Remove(a) {
		t.Fatalf("double remove succeeded")
	}
	if p.Len() != 2 {
		t.Fatalf("len: got %d want 2", p.Len())
	}
	id, v := p.At(0)
	if id != c || *v != 3 {
		t.Fatalf("slot 0: got %v=%d want c=3", id, *v)
	}
	if v, ok := p.Get(b); !ok || *v != 2 {
		t.Fatalf("b lost after swap")
	}
}

func TestActiveRule(t *testing.T) {
	r := NewRegistry(Tuning{})
	l := r.Spawn(KindLight, mathx.Vec3i{X: 1}, block.FaceZM).ID
	w := r.Spawn(KindWarningLight, mathx.Vec3i{X: 2}, block.FaceZM).ID
	s := r.Spawn(KindPressureSensor, mathx.Vec3i{X: 3}, block.FaceZM).ID

	if r.Active(l) {
		t.Fatalf("unpowered light active")
	}
	if len(r.LightSources()) != 0 {
		t.Fatalf("no sources expected before power")
	}
	r.SetPowered(l, true)
	r.SetPowered(w, true)
	if !r.Active(l) {
		t.Fatalf("powered enabled light inactive")
	}
	if r.Active(w) {
		t.Fatalf("warning light starts disabled")
	}
	r.SetEnabled(w, true)
	if got := len(r.LightSources()); got != 2 {
		t.Fatalf("sources: got %d want 2", got)
	}
	if r.SetPowered(s, true) || r.Active(s) {
		t.Fatalf("sensor has no power component")
	}
}

func TestProducerDefaultsAndDestroy(t *testing.T) {
	r := NewRegistry(Tuning{})
	f := r.Spawn(KindFrobnicator, mathx.Vec3i{}, block.FaceZM).ID
	r.SetPowered(f, true)
	n := 0
	r.EachProducer(func(e *Entity, g *Gas) {
		n++
		if g.Flow != 0.1 || g.MaxPressure != 1.0 {
			t.Fatalf("producer tuning: got %+v", g)
		}
	})
	if n != 1 {
		t.Fatalf("producers: got %d want 1", n)
	}
	r.SetEnabled(f, false)
	r.EachProducer(func(*Entity, *Gas) { t.Fatalf("disabled producer visited") })

	if !r.Destroy(f) || r.Len() != 0 {
		t.Fatalf("destroy failed")
	}
	if r.SetEnabled(f, true) {
		t.Fatalf("components survived destroy")
	}
}

func TestSnapshotLoad(t *testing.T) {
	r := NewRegistry(Tuning{ProducerFlow: 0.5, ProducerMaxPressure: 2})
	id := r.Spawn(KindFrobnicator, mathx.Vec3i{X: -4, Y: 2, Z: 9}, block.FaceYM).ID
	r.SetPowered(id, true)
	states := r.Snapshot()

	r2 := NewRegistry(Tuning{ProducerFlow: 0.5, ProducerMaxPressure: 2})
	bad := append(states, State{ID: "nope", Kind: "light"}, State{ID: uuid.NewString(), Kind: "teapot"})
	if n := r2.Load(bad); n != 1 {
		t.Fatalf("loaded: got %d want 1", n)
	}
	e, ok := r2.Get(id)
	if !ok || e.Pos != (mathx.Vec3i{X: -4, Y: 2, Z: 9}) || e.Face != block.FaceYM || e.Kind != KindFrobnicator {
		t.Fatalf("restored entity: got %+v", e)
	}
	if !r2.Active(id) {
		t.Fatalf("powered state lost")
	}
}

func TestKindNames(t *testing.T) {
	for k := Kind(0); k < kindCount; k++ {
		got, ok := ParseKind(k.String())
		if !ok || got != k {
			t.Fatalf("kind %d does not round trip through %q", k, k.String())
		}
	}
}

func TestAttachedTo(t *testing.T) {
	r := NewRegistry(Tuning{})
	p := mathx.Vec3i{X: 1, Y: 1, Z: 1}
	a := r.Spawn(KindLight, p, block.FaceXP).ID
	r.Spawn(KindLight, p, block.FaceYP)
	got := r.AttachedTo(p, block.FaceXP)
	if len(got) != 1 || got[0] != a {
		t.Fatalf("AttachedTo: got %v want [%v]", got, a)
	}
	if !KindLight.Mounted() || KindDoor.Mounted() || KindDoor.Height() != 2 {
		t.Fatalf("kind placement table wrong")
	}
}

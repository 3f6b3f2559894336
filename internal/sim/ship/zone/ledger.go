// Package zone keeps the atmosphere record of each enclosed air pocket,
// keyed by the pocket's topology root.
package zone

import (
	"github.com/elliotchance/orderedmap/v2"

	"shipspace.io/internal/sim/ship/topo"
)

// Info is the gas held by one zone.
type Info struct {
	Air float64
}

// Roots answers whether a root is the outside. *topo.Forest satisfies it.
type Roots interface {
	IsOutside(n topo.Node) bool
}

type Entry struct {
	Root topo.Node
	Zone *Info
}

// Ledger maps topology roots to zones. Keys are always current roots of the
// forest and never the outside root; callers keep that true across unions
// and rebuilds.
type Ledger struct {
	roots Roots
	zones *orderedmap.OrderedMap[topo.Node, *Info]
}

func NewLedger(roots Roots) *Ledger {
	return &Ledger{
		roots: roots,
		zones: orderedmap.NewOrderedMap[topo.Node, *Info](),
	}
}

// Get returns the zone at root, or nil if the root is unledgered.
func (l *Ledger) Get(root topo.Node) *Info {
	z, ok := l.zones.Get(root)
	if !ok {
		return nil
	}
	return z
}

// Insert installs z at root. At the outside the gas is discarded; where a zone
// already exists the amounts are merged. The discarded amount is returned.
func (l *Ledger) Insert(root topo.Node, z *Info) (discarded float64) {
	if z == nil {
		return 0
	}
	if l.roots.IsOutside(root) {
		return z.Air
	}
	if existing, ok := l.zones.Get(root); ok {
		existing.Air += z.Air
		return 0
	}
	l.zones.Set(root, z)
	return 0
}

// Put overwrites the zone at root without merging. Used by split
// redistribution where amounts have already been computed.
func (l *Ledger) Put(root topo.Node, z *Info) {
	l.zones.Set(root, z)
}

// Remove deletes and returns the zone at root.
func (l *Ledger) Remove(root topo.Node) *Info {
	z, ok := l.zones.Get(root)
	if !ok {
		return nil
	}
	l.zones.Delete(root)
	return z
}

// Take empties the ledger and returns its entries in insertion order.
func (l *Ledger) Take() []Entry {
	out := l.Entries()
	l.zones = orderedmap.NewOrderedMap[topo.Node, *Info]()
	return out
}

// Entries lists zones in insertion order.
func (l *Ledger) Entries() []Entry {
	out := make([]Entry, 0, l.zones.Len())
	for el := l.zones.Front(); el != nil; el = el.Next() {
		out = append(out, Entry{Root: el.Key, Zone: el.Value})
	}
	return out
}

func (l *Ledger) Len() int { return l.zones.Len() }

// Total is the air held across all zones.
func (l *Ledger) Total() float64 {
	var sum float64
	for el := l.zones.Front(); el != nil; el = el.Next() {
		sum += el.Value.Air
	}
	return sum
}

// AddGas feeds up to flow units into the zone at root, creating it on demand,
// without raising its pressure past maxPressure. size is the root's block
// count. It returns what was added and what of that was discarded at the
// outside.
func (l *Ledger) AddGas(root topo.Node, size int, flow, maxPressure float64) (added, discarded float64) {
	if flow <= 0 {
		return 0, 0
	}
	if l.roots.IsOutside(root) {
		return flow, flow
	}
	z := l.Get(root)
	current := 0.0
	if z != nil {
		current = z.Air
	}
	room := maxPressure*float64(size) - current
	if room <= 0 {
		return 0, 0
	}
	amount := flow
	if amount > room {
		amount = room
	}
	if z == nil {
		l.zones.Set(root, &Info{Air: amount})
	} else {
		z.Air += amount
	}
	return amount, 0
}

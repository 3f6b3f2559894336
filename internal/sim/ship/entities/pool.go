package entities

import "github.com/google/uuid"

// Pool is a dense component store. Removal swaps the last element into the
// hole, so slots are not stable across Remove.
type Pool[T any] struct {
	ids   []uuid.UUID
	items []T
	slot  map[uuid.UUID]int
}

func NewPool[T any]() *Pool[T] {
	return &Pool[T]{slot: map[uuid.UUID]int{}}
}

// Assign attaches v to id, replacing any existing component.
func (p *Pool[T]) Assign(id uuid.UUID, v T) *T {
	if i, ok := p.slot[id]; ok {
		p.items[i] = v
		return &p.items[i]
	}
	p.slot[id] = len(p.items)
	p.ids = append(p.ids, id)
	p.items = append(p.items, v)
	return &p.items[len(p.items)-1]
}

func (p *Pool[T]) Get(id uuid.UUID) (*T, bool) {
	i, ok := p.slot[id]
	if !ok {
		return nil, false
	}
	return &p.items[i], true
}

func (p *Pool[T]) Has(id uuid.UUID) bool {
	_, ok := p.slot[id]
	return ok
}

func (p *Pool[T]) Remove(id uuid.UUID) bool {
	i, ok := p.slot[id]
	if !ok {
		return false
	}
	last := len(p.items) - 1
	if i != last {
		p.items[i] = p.items[last]
		p.ids[i] = p.ids[last]
		p.slot[p.ids[i]] = i
	}
	var zero T
	p.items[last] = zero
	p.items = p.items[:last]
	p.ids = p.ids[:last]
	delete(p.slot, id)
	return true
}

func (p *Pool[T]) Len() int { return len(p.items) }

// At returns the id and component in dense slot i.
func (p *Pool[T]) At(i int) (uuid.UUID, *T) { return p.ids[i], &p.items[i] }

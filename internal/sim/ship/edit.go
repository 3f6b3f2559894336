package ship

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"shipspace.io/internal/sim/ship/block"
	"shipspace.io/internal/sim/ship/entities"
	"shipspace.io/internal/sim/ship/logic/mathx"
)

var (
	ErrNoHit         = errors.New("nothing in reach")
	ErrInvalidTarget = errors.New("invalid target")
	ErrBlocked       = errors.New("placement blocked")
	ErrNoEntity      = errors.New("no such entity")
	ErrOutOfExtent   = errors.New("outside ship extent")
)

// SetBlockType changes the type of an existing block. Topology depends only
// on surfaces and is left alone.
func (s *Ship) SetBlockType(p mathx.Vec3i, t block.Type) bool {
	b := s.chunks.GetBlock(p)
	if b == nil {
		return false
	}
	b.Type = t
	s.touch(p)
	s.light.MarkDirty(p)
	return true
}

type Tool uint8

const (
	ToolPlaceSupport Tool = iota
	ToolRemoveSurface
	ToolAddSurface
	ToolPlaceEntity
)

var toolNames = []string{"place_support", "remove_surface", "add_surface", "place_entity"}

func (t Tool) String() string {
	if int(t) < len(toolNames) {
		return toolNames[t]
	}
	return "unknown"
}

func ParseTool(s string) (Tool, bool) {
	for i, n := range toolNames {
		if n == s {
			return Tool(i), true
		}
	}
	return 0, false
}

// ToolOptions carries the tool-specific choice: the surface for add_surface
// and the kind for place_entity.
type ToolOptions struct {
	Surface block.Surface
	Kind    entities.Kind
}

// UseTool casts a ray from origin along dir and applies tool to what it
// hits.
func (s *Ship) UseTool(tool Tool, origin, dir mgl32.Vec3, opt ToolOptions) error {
	rc := s.Raycast(origin, dir)
	if !rc.Hit {
		return ErrNoHit
	}
	// Face of the hit block that the ray crossed, pointing back at rc.Prev.
	face, ok := rc.Face()
	if !ok {
		return ErrInvalidTarget
	}

	switch tool {
	case ToolPlaceSupport:
		if rc.Inside || rc.Data == nil || rc.Data.Type != block.Support {
			return ErrInvalidTarget
		}
		// Scaffolding only extends existing scaffolding.
		if s.EnsureBlock(rc.Prev) == nil {
			return ErrOutOfExtent
		}
		s.SetBlockType(rc.Prev, block.Support)
		return nil

	case ToolRemoveSurface:
		if rc.Data == nil || rc.Data.Surfs[face] == block.SurfaceNone {
			return ErrInvalidTarget
		}
		s.RemoveSurface(rc.Block, face)
		return nil

	case ToolAddSurface:
		if rc.Inside || rc.Data == nil || opt.Surface == block.SurfaceNone {
			return ErrInvalidTarget
		}
		if rc.Data.Surfs[face] != block.SurfaceNone {
			return ErrBlocked
		}
		s.AddSurface(rc.Block, face, opt.Surface)
		return nil

	case ToolPlaceEntity:
		if opt.Kind.Mounted() {
			_, err := s.placeMounted(rc.Block, rc.Prev, face, opt.Kind)
			return err
		}
		if rc.Inside || rc.Data == nil || rc.Data.Type != block.Support {
			return ErrInvalidTarget
		}
		_, err := s.placeBlockEntity(rc.Prev, opt.Kind)
		return err
	}
	return ErrInvalidTarget
}

// placeMounted attaches a device to the near side of the surface on face of
// the block at hit.
func (s *Ship) placeMounted(hit, near mathx.Vec3i, face block.Face, k entities.Kind) (uuid.UUID, error) {
	hb := s.chunks.GetBlock(hit)
	if hb == nil || hb.Surfs[face] == block.SurfaceNone {
		return uuid.Nil, ErrInvalidTarget
	}
	nb := s.chunks.GetBlock(near)
	mount := face.Opposite()
	if nb == nil {
		return uuid.Nil, ErrInvalidTarget
	}
	if nb.SurfUsed[mount] != 0 {
		return uuid.Nil, ErrBlocked
	}
	id := s.ents.Spawn(k, near, mount).ID
	nb.SurfUsed[mount] = ^uint16(0)
	s.light.MarkDirty(near)
	return id, nil
}

// placeBlockEntity stands a device on the floor at p, occupying Height
// blocks upward.
func (s *Ship) placeBlockEntity(p mathx.Vec3i, k entities.Kind) (uuid.UUID, error) {
	cells := make([]mathx.Vec3i, k.Height())
	for i := range cells {
		cells[i] = p.Add(mathx.Vec3i{Z: i})
	}
	if !s.InExtent(cells...) {
		return uuid.Nil, ErrOutOfExtent
	}
	for _, q := range cells {
		b := s.chunks.GetBlock(q)
		if b == nil {
			continue
		}
		if b.Type != block.Empty {
			return uuid.Nil, ErrBlocked
		}
		for f := 0; f < block.FaceCount; f++ {
			if b.SurfUsed[f] != 0 {
				return uuid.Nil, ErrBlocked
			}
		}
	}
	id := s.ents.Spawn(k, p, block.FaceZM).ID
	for _, q := range cells {
		b := s.EnsureBlock(q)
		b.Type = block.Entity
		for f := range b.SurfUsed {
			b.SurfUsed[f] = ^uint16(0)
		}
		s.touch(q)
	}
	s.light.MarkDirty(p)
	return id, nil
}

// SetPower sets the external power and switch state of an entity. nil
// leaves a flag unchanged.
func (s *Ship) SetPower(id uuid.UUID, powered, enabled *bool) error {
	e, ok := s.ents.Get(id)
	if !ok {
		return ErrNoEntity
	}
	if powered != nil {
		s.ents.SetPowered(id, *powered)
	}
	if enabled != nil {
		s.ents.SetEnabled(id, *enabled)
	}
	if s.ents.IsLight(id) {
		s.light.MarkDirty(e.Pos)
	}
	return nil
}

// RemoveEntity destroys an entity and releases the space it held.
func (s *Ship) RemoveEntity(id uuid.UUID) bool {
	e, ok := s.ents.Get(id)
	if !ok {
		return false
	}
	pos, face, kind := e.Pos, e.Face, e.Kind
	if kind.Mounted() {
		if b := s.chunks.GetBlock(pos); b != nil {
			b.SurfUsed[face] = 0
		}
	} else {
		for i := 0; i < kind.Height(); i++ {
			q := pos.Add(mathx.Vec3i{Z: i})
			b := s.chunks.GetBlock(q)
			if b == nil || b.Type != block.Entity {
				continue
			}
			b.Type = block.Empty
			b.SurfUsed = [block.FaceCount]uint16{}
			s.touch(q)
		}
	}
	s.light.MarkDirty(pos)
	return s.ents.Destroy(id)
}

func (s *Ship) detachEntities(p mathx.Vec3i, face block.Face) {
	for _, id := range s.ents.AttachedTo(p, face) {
		s.RemoveEntity(id)
	}
}

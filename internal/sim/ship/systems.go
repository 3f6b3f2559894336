package ship

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"shipspace.io/internal/protocol"
	"shipspace.io/internal/sim/ship/block"
	"shipspace.io/internal/sim/ship/entities"
	"shipspace.io/internal/sim/ship/logic/mathx"
)

// Tick runs one simulation step: light recompute, outside venting, gas
// production, then sensor reads. It reports whether light was recomputed.
func (s *Ship) Tick() bool {
	lit := s.light.Recompute(s.chunks, s.ents.LightSources())

	s.VentOutside()

	s.ents.EachProducer(func(e *entities.Entity, g *entities.Gas) {
		s.ProduceGas(e.Pos, g.Flow, g.MaxPressure)
	})

	s.ents.EachSensor(func(e *entities.Entity, sn *entities.Sensor) {
		sn.Pressure = s.Pressure(e.Pos)
	})
	return lit
}

func (s *Ship) applyEdit(sessionID string, e protocol.EditMsg, nowTick uint64) protocol.EditResultMsg {
	code, msg := s.editCode(e)
	res := protocol.EditResultMsg{
		Type:            protocol.TypeEditResult,
		ProtocolVersion: protocol.Version,
		EditID:          e.EditID,
		Accepted:        code == "",
		Code:            code,
		Message:         msg,
		ServerTick:      nowTick,
	}
	if s.auditLogger != nil {
		_ = s.auditLogger.WriteAudit(AuditEntry{
			Tick:      nowTick,
			SessionID: sessionID,
			EditID:    e.EditID,
			Op:        e.Op,
			Pos:       e.Pos,
			Accepted:  res.Accepted,
			Code:      code,
			Message:   msg,
		})
	}
	return res
}

// editCode applies e and returns an empty code on success.
func (s *Ship) editCode(e protocol.EditMsg) (code, msg string) {
	switch e.Op {
	case protocol.OpSetSurface:
		surf, ok := block.ParseSurface(e.Surface)
		if !ok {
			return protocol.ErrBadRequest, "unknown surface"
		}
		if e.Face < 0 || e.Face >= block.FaceCount {
			return protocol.ErrBadRequest, "bad face"
		}
		if !s.SetSurface(mathx.FromArray(e.Pos), block.Face(e.Face), surf) {
			return protocol.ErrBadRequest, ErrOutOfExtent.Error()
		}
		return "", ""

	case protocol.OpSetBlock:
		t, ok := block.ParseType(e.BlockType)
		if !ok || t == block.Entity {
			return protocol.ErrBadRequest, "unknown block type"
		}
		p := mathx.FromArray(e.Pos)
		if b := s.GetBlock(p); b != nil && b.Type == block.Entity {
			return protocol.ErrBlocked, "block is occupied"
		}
		if s.EnsureBlock(p) == nil {
			return protocol.ErrBadRequest, ErrOutOfExtent.Error()
		}
		s.SetBlockType(p, t)
		return "", ""

	case protocol.OpTool:
		tool, ok := ParseTool(e.Tool)
		if !ok {
			return protocol.ErrBadRequest, "unknown tool"
		}
		var opt ToolOptions
		if tool == ToolAddSurface {
			if opt.Surface, ok = block.ParseSurface(e.Surface); !ok {
				return protocol.ErrBadRequest, "unknown surface"
			}
		}
		if tool == ToolPlaceEntity {
			if opt.Kind, ok = entities.ParseKind(e.Entity); !ok {
				return protocol.ErrBadRequest, "unknown entity kind"
			}
		}
		err := s.UseTool(tool, mgl32.Vec3(e.Origin), mgl32.Vec3(e.Dir), opt)
		return errorCode(err)

	case protocol.OpPower:
		id, err := uuid.Parse(e.EntityID)
		if err != nil {
			return protocol.ErrBadRequest, "bad entity_id"
		}
		return errorCode(s.SetPower(id, e.Powered, e.Enabled))
	}
	return protocol.ErrBadRequest, "unknown op"
}

func errorCode(err error) (code, msg string) {
	switch {
	case err == nil:
		return "", ""
	case errors.Is(err, ErrNoHit):
		return protocol.ErrNoHit, err.Error()
	case errors.Is(err, ErrInvalidTarget):
		return protocol.ErrInvalidTarget, err.Error()
	case errors.Is(err, ErrBlocked):
		return protocol.ErrBlocked, err.Error()
	case errors.Is(err, ErrNoEntity):
		return protocol.ErrNotFound, err.Error()
	case errors.Is(err, ErrOutOfExtent):
		return protocol.ErrBadRequest, err.Error()
	}
	return protocol.ErrInternal, err.Error()
}

package piece

import (
	"errors"
	"fmt"

	"github.com/wricardo/polyfit/game/events"
	"github.com/wricardo/polyfit/game/geometry"
)

// OnRotateRequest turns the piece 90° counter-clockwise about its anchor.
//
// A held claim is released, the offsets rotated and the claim re-acquired.
// The rotation always happens; if the rotated footprint does not fit, the
// piece is left Dragging without a claim so a later release re-validates.
func (p *Piece) OnRotateRequest() error {
	if err := p.transformAllowed("rotate"); err != nil {
		return err
	}

	held := p.board.IsPlaced(p.id)
	p.board.Remove(p.id)

	p.offsets = geometry.Rotate90(p.offsets)
	p.rotation = p.rotation.Next()

	msg := fmt.Sprintf("%s rotated to %s", p.name, p.rotation)
	if held {
		footprint := p.board.FootprintAt(p.anchor, p.offsets)
		if err := p.board.Place(p.id, footprint); err != nil {
			p.state = Dragging
			p.emit(events.PlacementRejected, fmt.Sprintf("%s lost its placement after rotating: %v", p.name, err), footprint)
		} else {
			p.emit(events.PieceRotated, msg, footprint)
			return nil
		}
	}

	p.emit(events.PieceRotated, msg, nil)
	return nil
}

// OnMirrorRequest flips the piece horizontally about its anchor. Mirroring
// is only allowed at 0° and 180°; otherwise a *TransformError is returned
// and nothing changes. For a held piece the mirror is all-or-nothing: if the
// mirrored footprint does not fit, offsets, flag and claim are restored and
// the placement error is returned.
func (p *Piece) OnMirrorRequest() error {
	if err := p.transformAllowed("mirror"); err != nil {
		return err
	}
	if !p.rotation.CanMirror() {
		err := &TransformError{Op: "mirror", Rotation: p.rotation, Reason: "only allowed at 0° or 180°"}
		p.emit(events.TransformRejected, err.Error(), nil)
		return err
	}

	held := p.board.IsPlaced(p.id)
	prevClaims := p.board.Claims(p.id)
	prevOffsets := p.offsets
	p.board.Remove(p.id)

	p.offsets = geometry.MirrorHorizontal(p.offsets)
	p.mirrored = !p.mirrored

	if held {
		footprint := p.board.FootprintAt(p.anchor, p.offsets)
		if err := p.board.Place(p.id, footprint); err != nil {
			p.offsets = prevOffsets
			p.mirrored = !p.mirrored
			if restoreErr := p.board.Place(p.id, prevClaims); restoreErr != nil {
				err = errors.Join(err, fmt.Errorf("restore prior claim: %w", restoreErr))
			}
			p.emit(events.PlacementRejected, fmt.Sprintf("%s cannot be mirrored in place: %v", p.name, err), footprint)
			return fmt.Errorf("mirror %s: %w", p.name, err)
		}
		p.emit(events.PieceMirrored, fmt.Sprintf("%s mirrored", p.name), footprint)
		return nil
	}

	p.emit(events.PieceMirrored, fmt.Sprintf("%s mirrored", p.name), nil)
	return nil
}

func (p *Piece) transformAllowed(op string) error {
	switch p.state {
	case Dragging:
		return nil
	case Idle:
		if p.opts.IdleTransforms {
			return nil
		}
	}
	err := stateError(op, p.state)
	p.emit(events.TransformRejected, err.Error(), nil)
	return err
}

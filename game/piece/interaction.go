package piece

import (
	"fmt"
	"math"

	"github.com/wricardo/polyfit/game/events"
	"github.com/wricardo/polyfit/game/geometry"
	"github.com/wricardo/polyfit/game/grid"
)

// ReleaseOutcome reports what a release did
type ReleaseOutcome string

const (
	// ReleaseSnapping means the piece is animating toward its target cell
	ReleaseSnapping ReleaseOutcome = "snapping"
	// ReleaseUnplaced means the piece was too far from the grid and stays unplaced
	ReleaseUnplaced ReleaseOutcome = "unplaced"
)

// TickOutcome reports what a tick did
type TickOutcome string

const (
	TickNone     TickOutcome = "none"
	TickMoving   TickOutcome = "moving"
	TickPlaced   TickOutcome = "placed"
	TickRejected TickOutcome = "rejected"
)

// OnPickup starts a drag. Any claim is released and the grab point between
// input and anchor is kept for subsequent drags.
func (p *Piece) OnPickup(input geometry.Vec) error {
	if p.state == Dragging {
		return stateError("pick up", p.state)
	}

	released := p.board.Claims(p.id)
	p.board.Remove(p.id)
	p.grab = p.anchor.Sub(input)
	p.state = Dragging

	p.emit(events.PiecePickedUp, fmt.Sprintf("%s picked up", p.name), released)
	return nil
}

// OnDrag moves the anchor to input plus the grab offset
func (p *Piece) OnDrag(input geometry.Vec) error {
	if p.state != Dragging {
		return stateError("drag", p.state)
	}
	p.anchor = input.Add(p.grab)
	return nil
}

// OnRelease ends a drag and applies the snap policy
func (p *Piece) OnRelease() (ReleaseOutcome, error) {
	if p.state != Dragging {
		return "", stateError("release", p.state)
	}

	target := p.board.SnapToGrid(p.anchor)
	if p.opts.Policy == SnapThreshold {
		limit := p.opts.Threshold * p.board.CellSize()
		if dist := p.anchor.Dist(p.board.CellCenter(target)); dist > limit {
			p.state = Idle
			p.emit(events.PlacementRejected,
				fmt.Sprintf("%s released %.2f from cell %s, beyond snap threshold %.2f", p.name, dist, target, limit), nil)
			return ReleaseUnplaced, nil
		}
	}

	p.target = target
	p.state = Snapping
	return ReleaseSnapping, nil
}

// Tick advances the snap animation by dt seconds. On arrival the footprint
// is validated and committed; an illegal footprint leaves the piece Idle and
// unplaced and the error wraps grid.ErrInvalidPlacement.
func (p *Piece) Tick(dt float64) (TickOutcome, error) {
	if p.state != Snapping {
		return TickNone, nil
	}

	goal := p.board.CellCenter(p.target)
	factor := 0.0
	if dt > 0 {
		factor = math.Min(1, p.opts.Speed*dt)
	}
	p.anchor = p.anchor.Lerp(goal, factor)

	if p.anchor.Dist(goal) >= p.opts.Epsilon {
		return TickMoving, nil
	}
	return p.settle(goal)
}

// Settle completes a pending snap immediately
func (p *Piece) Settle() (TickOutcome, error) {
	if p.state != Snapping {
		return TickNone, nil
	}
	return p.settle(p.board.CellCenter(p.target))
}

func (p *Piece) settle(goal geometry.Vec) (TickOutcome, error) {
	p.anchor = goal
	p.state = Idle

	footprint := p.board.FootprintAt(p.anchor, p.offsets)
	if err := p.board.Place(p.id, footprint); err != nil {
		p.emit(events.PlacementRejected, fmt.Sprintf("%s cannot be placed at %s: %v", p.name, p.target, err), footprint)
		return TickRejected, err
	}

	p.emit(events.PiecePlaced, fmt.Sprintf("%s placed at %s", p.name, p.target), footprint)
	return TickPlaced, nil
}

// PlaceAt places an Idle piece directly with its anchor on cell, keeping
// the current orientation. Nothing changes if the footprint is illegal.
func (p *Piece) PlaceAt(cell grid.Cell) error {
	if p.state != Idle {
		return stateError("place", p.state)
	}

	anchor := p.board.CellCenter(cell)
	footprint := p.board.FootprintAt(anchor, p.offsets)
	if err := p.board.Place(p.id, footprint); err != nil {
		return err
	}

	p.anchor = anchor
	p.target = cell
	p.emit(events.PiecePlaced, fmt.Sprintf("%s placed at %s", p.name, cell), footprint)
	return nil
}

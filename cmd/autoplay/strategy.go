package main

import (
	"github.com/wricardo/polyfit/game/engine"
	"github.com/wricardo/polyfit/game/geometry"
	"github.com/wricardo/polyfit/game/piece"
)

// Gesture is one pointer step of a move
type Gesture struct {
	Action string
	At     geometry.Vec
}

// planGesture returns the pointer steps that carry a piece to the hinted cell
// in the hinted orientation: pick it up by its anchor, turn it, drag the
// anchor over the target cell centre and let go.
//
// Mirroring is only allowed at 0° or 180°, so a pending mirror first rotates
// the piece onto an even quarter turn.
func planGesture(v piece.View, hint engine.Hint, state *engine.PuzzleState) []Gesture {
	steps := []Gesture{{Action: engine.ActionPickup, At: v.Anchor}}

	rotation := v.Rotation
	if v.Mirrored != hint.Orientation.Mirrored {
		if rotation%180 != 0 {
			steps = append(steps, Gesture{Action: engine.ActionRotate})
			rotation = (rotation + 90) % 360
		}
		steps = append(steps, Gesture{Action: engine.ActionMirror})
	}
	for rotation != hint.Orientation.Rotation {
		steps = append(steps, Gesture{Action: engine.ActionRotate})
		rotation = (rotation + 90) % 360
	}

	target := state.Origin.Add(geometry.V(float64(hint.Cell.X), float64(hint.Cell.Y)).Scale(cellSize(state)))
	return append(steps,
		Gesture{Action: "drag", At: target},
		Gesture{Action: engine.ActionRelease},
	)
}

func cellSize(state *engine.PuzzleState) float64 {
	if state.CellSize == 0 {
		return engine.DefaultCellSize
	}
	return state.CellSize
}

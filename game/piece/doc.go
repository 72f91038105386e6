// Package piece implements the interaction state machine of a single
// polyomino piece.
//
// A piece moves between three states:
//   - Idle: at rest, either placed (holding a grid claim) or unplaced
//   - Dragging: following pointer input, never holding a claim
//   - Snapping: animating toward a target cell, committed on arrival
//
// Entry points map one-to-one onto input events: OnPickup, OnDrag,
// OnRelease, OnRotateRequest and OnMirrorRequest. Tick advances the snap
// animation and is expected once per frame.
//
// All occupancy changes go through the Board, which *grid.Grid satisfies.
// The sequencing is always remove, validate, place, so an illegal attempt
// leaves the board untouched. Rotation may leave a held piece unplaced and
// dragging; mirroring is all-or-nothing and restores the prior claim when the
// mirrored footprint does not fit.
//
// Snap policy is configurable through Options:
//   - SnapThreshold (default) snaps only when the released anchor lies within
//     Threshold cells of the nearest cell centre
//   - SnapAlways always animates to the nearest cell and lets placement
//     validation decide on arrival
package piece

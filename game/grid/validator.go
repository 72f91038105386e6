package grid

import (
	"errors"
	"fmt"
)

// ErrInvalidPlacement is matched by every placement rejection
var ErrInvalidPlacement = errors.New("invalid placement")

// Reason explains why a footprint was rejected
type Reason string

const (
	ReasonEmpty      Reason = "empty_footprint"
	ReasonOutOfBound Reason = "out_of_bounds"
	ReasonDuplicate  Reason = "duplicate_cell"
	ReasonOccupied   Reason = "occupied"
)

// PlacementError describes the first offending cell of a rejected footprint
type PlacementError struct {
	Cell   Cell
	Reason Reason
	// Occupant is set when Reason is ReasonOccupied
	Occupant PieceID
}

func (e *PlacementError) Error() string {
	switch e.Reason {
	case ReasonEmpty:
		return "invalid placement: footprint is empty"
	case ReasonOccupied:
		return fmt.Sprintf("invalid placement: cell %s is occupied by piece %d", e.Cell, e.Occupant)
	default:
		return fmt.Sprintf("invalid placement: cell %s %s", e.Cell, e.Reason)
	}
}

// Is lets errors.Is(err, ErrInvalidPlacement) match
func (e *PlacementError) Is(target error) bool {
	return target == ErrInvalidPlacement
}

// Reader is the read-only view the validator needs
type Reader interface {
	InBounds(c Cell) bool
	Occupants(c Cell) []PieceID
}

// Check validates a footprint against bounds and current occupancy.
// Any occupant makes a cell illegal.
func Check(r Reader, footprint []Cell) error {
	return check(r, footprint, 0, false)
}

// CheckFor validates a footprint for piece id, ignoring cells id itself
// already claims.
func CheckFor(r Reader, id PieceID, footprint []Cell) error {
	return check(r, footprint, id, true)
}

func check(r Reader, footprint []Cell, self PieceID, ignoreSelf bool) error {
	if len(footprint) == 0 {
		return &PlacementError{Reason: ReasonEmpty}
	}

	seen := make(map[Cell]struct{}, len(footprint))
	for _, c := range footprint {
		if !r.InBounds(c) {
			return &PlacementError{Cell: c, Reason: ReasonOutOfBound}
		}
		if _, dup := seen[c]; dup {
			return &PlacementError{Cell: c, Reason: ReasonDuplicate}
		}
		seen[c] = struct{}{}

		for _, occupant := range r.Occupants(c) {
			if ignoreSelf && occupant == self {
				continue
			}
			return &PlacementError{Cell: c, Reason: ReasonOccupied, Occupant: occupant}
		}
	}
	return nil
}

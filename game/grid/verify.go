package grid

import (
	"errors"
	"fmt"
)

// ErrCorrupt is matched by every integrity violation Verify reports
var ErrCorrupt = errors.New("grid integrity violation")

// Verify checks the cell index against the claim index without mutating
// either. It reports every violation found, joined into one error.
func (g *Grid) Verify() error {
	var errs []error
	violation := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrCorrupt, fmt.Sprintf(format, args...)))
	}

	// Cell → piece direction
	fromCells := make(map[PieceID][]Cell)
	occupied := 0
	for i, occupants := range g.cells {
		c := Cell{X: i % g.width, Y: i / g.width}
		if len(occupants) > 0 {
			occupied++
		}
		if len(occupants) > 1 {
			violation("cell %s has %d occupants %v", c, len(occupants), occupants)
		}
		for _, id := range occupants {
			fromCells[id] = append(fromCells[id], c)
		}
	}

	// Piece → cell direction
	claimedTotal := 0
	for id, cells := range fromCells {
		claimed, ok := g.claims.Get(id)
		if !ok {
			violation("piece %d occupies %d cells but holds no claim", id, len(cells))
			continue
		}
		claimedTotal += len(claimed)
		if !sameCells(claimed, cells) {
			violation("piece %d claims %v but occupies %v", id, claimed, cells)
		}
	}
	if g.claims.Len() != len(fromCells) {
		violation("%d pieces hold claims but %d appear in cells", g.claims.Len(), len(fromCells))
	}

	// Conservation
	if claimedTotal != occupied && len(errs) == 0 {
		violation("claimed cells %d != occupied cells %d", claimedTotal, occupied)
	}
	free, occ := g.Counts()
	if free+occ != g.Area() {
		violation("free %d + occupied %d != area %d", free, occ, g.Area())
	}

	return errors.Join(errs...)
}

func sameCells(a, b []Cell) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[Cell]int, len(a))
	for _, c := range a {
		set[c]++
	}
	for _, c := range b {
		if set[c] == 0 {
			return false
		}
		set[c]--
	}
	return true
}

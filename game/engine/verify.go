package engine

import (
	"errors"
	"fmt"

	"github.com/wricardo/polyfit/game/geometry"
	"github.com/wricardo/polyfit/game/piece"
)

// orientTolerance absorbs float noise from repeated quarter turns
const orientTolerance = 1e-9

// Verify runs a read-only integrity sweep over the grid and every piece.
// It returns nil or an error joining every violation found.
func (e *PuzzleEngine) Verify() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	if err := e.grid.Verify(); err != nil {
		errs = append(errs, err)
	}

	active := 0
	for _, p := range e.pieces {
		placed := p.IsPlaced()
		if placed && p.State() != piece.Idle {
			errs = append(errs, fmt.Errorf("%s is %s but holds a claim", p.Name(), p.State()))
		}
		if p.State() != piece.Idle {
			active++
		}
		want := geometry.Orient(p.BaseOffsets(), p.Rotation(), p.Mirrored())
		if !p.Offsets().Equal(want, orientTolerance) {
			errs = append(errs, fmt.Errorf("%s offsets drifted from rotation %s mirrored=%t", p.Name(), p.Rotation(), p.Mirrored()))
		}
		if placed && !sameCellSet(e.grid.Claims(p.ID()), p.Footprint()) {
			errs = append(errs, fmt.Errorf("%s claim %v does not match its footprint %v", p.Name(), e.grid.Claims(p.ID()), p.Footprint()))
		}
	}
	if active > 1 {
		errs = append(errs, fmt.Errorf("%d pieces are active at once", active))
	}

	return errors.Join(errs...)
}

package piece

import (
	"errors"
	"fmt"

	"github.com/wricardo/polyfit/game/geometry"
)

var (
	// ErrConfiguration marks a piece that cannot be built, such as one with no cells
	ErrConfiguration = errors.New("piece configuration error")
	// ErrIllegalTransform marks a rotate or mirror the piece refused
	ErrIllegalTransform = errors.New("illegal transform")
	// ErrInvalidState marks an input event that does not apply to the current state
	ErrInvalidState = errors.New("invalid piece state")
)

// TransformError reports a refused rotate or mirror. Nothing was changed.
type TransformError struct {
	Op       string
	Rotation geometry.Rotation
	Reason   string
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("illegal transform: %s refused at %s: %s", e.Op, e.Rotation, e.Reason)
}

// Is lets errors.Is(err, ErrIllegalTransform) match
func (e *TransformError) Is(target error) bool {
	return target == ErrIllegalTransform
}

func stateError(op string, s State) error {
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidState, op, s)
}

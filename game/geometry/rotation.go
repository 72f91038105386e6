package geometry

import "fmt"

// Rotation counts 90° counter-clockwise quarter turns, 0..3
type Rotation int

const (
	Rot0 Rotation = iota
	Rot90
	Rot180
	Rot270
)

// RotationFromDegrees converts a multiple of 90 into a Rotation
func RotationFromDegrees(deg int) (Rotation, error) {
	if deg%90 != 0 {
		return Rot0, fmt.Errorf("rotation must be a multiple of 90, got %d", deg)
	}
	return Rotation(deg / 90).normalize(), nil
}

// Next returns the rotation one quarter turn further
func (r Rotation) Next() Rotation {
	return (r + 1).normalize()
}

// Degrees returns 0, 90, 180 or 270
func (r Rotation) Degrees() int {
	return int(r.normalize()) * 90
}

// CanMirror reports whether a mirror is allowed at this rotation.
// Only 0° and 180° qualify.
func (r Rotation) CanMirror() bool {
	return r.normalize()%2 == 0
}

func (r Rotation) String() string {
	return fmt.Sprintf("%d°", r.Degrees())
}

func (r Rotation) normalize() Rotation {
	return ((r % 4) + 4) % 4
}

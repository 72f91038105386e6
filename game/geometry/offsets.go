package geometry

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrNoCells is returned when a shape is defined without any cells
	ErrNoCells = errors.New("shape has no cells")
)

// Offsets are the sub-cell positions of a piece relative to its anchor,
// in cell units. Order is preserved by every transform.
type Offsets []Vec

// Point is an integer cell coordinate in a shape's local grid
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// ComputeOffsets centres a set of local cell positions on their centroid.
func ComputeOffsets(local []Vec) (Offsets, error) {
	if len(local) == 0 {
		return nil, ErrNoCells
	}

	var sum Vec
	for _, p := range local {
		sum = sum.Add(p)
	}
	centroid := sum.Scale(1 / float64(len(local)))

	offsets := make(Offsets, len(local))
	for i, p := range local {
		offsets[i] = p.Sub(centroid)
	}
	return offsets, nil
}

// Rotate90 turns offsets 90° counter-clockwise: (x, y) → (-y, x)
func Rotate90(o Offsets) Offsets {
	out := make(Offsets, len(o))
	for i, v := range o {
		out[i] = Vec{X: -v.Y, Y: v.X}
	}
	return out
}

// MirrorHorizontal flips offsets across the vertical axis: (x, y) → (-x, y)
func MirrorHorizontal(o Offsets) Offsets {
	out := make(Offsets, len(o))
	for i, v := range o {
		out[i] = Vec{X: -v.X, Y: v.Y}
	}
	return out
}

// Orient applies an optional mirror followed by r quarter turns to base.
func Orient(base Offsets, r Rotation, mirrored bool) Offsets {
	o := base.Clone()
	if mirrored {
		o = MirrorHorizontal(o)
	}
	for i := 0; i < int(r.normalize()); i++ {
		o = Rotate90(o)
	}
	return o
}

// Clone returns an independent copy
func (o Offsets) Clone() Offsets {
	if o == nil {
		return nil
	}
	out := make(Offsets, len(o))
	copy(out, o)
	return out
}

// Equal compares offsets element by element within tol
func (o Offsets) Equal(other Offsets, tol float64) bool {
	if len(o) != len(other) {
		return false
	}
	for i := range o {
		if !o[i].ApproxEqual(other[i], tol) {
			return false
		}
	}
	return true
}

// Normalized returns the shape as integer points translated so the minimum
// x and y are zero, sorted row-major. Two offset sets describe the same
// shape iff their normalized forms are equal.
func (o Offsets) Normalized() []Point {
	if len(o) == 0 {
		return nil
	}
	minX, minY := math.Inf(1), math.Inf(1)
	for _, v := range o {
		minX = math.Min(minX, v.X)
		minY = math.Min(minY, v.Y)
	}

	points := make([]Point, len(o))
	for i, v := range o {
		points[i] = Point{
			X: int(math.Round(v.X - minX)),
			Y: int(math.Round(v.Y - minY)),
		}
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].Y != points[j].Y {
			return points[i].Y < points[j].Y
		}
		return points[i].X < points[j].X
	})
	return points
}

// CellsFromRows parses ASCII shape art. '#' marks a filled cell and '.' or
// ' ' an empty one; row index is y and column index is x.
func CellsFromRows(rows []string) ([]Vec, error) {
	var cells []Vec
	for y, row := range rows {
		for x, ch := range row {
			switch ch {
			case '#':
				cells = append(cells, Vec{X: float64(x), Y: float64(y)})
			case '.', ' ':
			default:
				return nil, fmt.Errorf("invalid shape character '%c' at row %d, col %d", ch, y+1, x+1)
			}
		}
	}
	if len(cells) == 0 {
		return nil, ErrNoCells
	}
	return cells, nil
}

package geometry

import "math"

// Vec is a point or displacement in continuous world space
type Vec struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// V is shorthand for Vec{X: x, Y: y}
func V(x, y float64) Vec {
	return Vec{X: x, Y: y}
}

// Add returns v + o
func (v Vec) Add(o Vec) Vec {
	return Vec{X: v.X + o.X, Y: v.Y + o.Y}
}

// Sub returns v - o
func (v Vec) Sub(o Vec) Vec {
	return Vec{X: v.X - o.X, Y: v.Y - o.Y}
}

// Scale returns v * f
func (v Vec) Scale(f float64) Vec {
	return Vec{X: v.X * f, Y: v.Y * f}
}

// Len returns the euclidean length of v
func (v Vec) Len() float64 {
	return math.Hypot(v.X, v.Y)
}

// Dist returns the euclidean distance between v and o
func (v Vec) Dist(o Vec) float64 {
	return v.Sub(o).Len()
}

// Lerp moves v toward o by fraction t, clamped to [0, 1]
func (v Vec) Lerp(o Vec, t float64) Vec {
	if t <= 0 {
		return v
	}
	if t >= 1 {
		return o
	}
	return v.Add(o.Sub(v).Scale(t))
}

// ApproxEqual reports whether both components differ by at most tol
func (v Vec) ApproxEqual(o Vec, tol float64) bool {
	return math.Abs(v.X-o.X) <= tol && math.Abs(v.Y-o.Y) <= tol
}

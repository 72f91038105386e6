package grid

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/kamstrup/intmap"
	"github.com/wricardo/polyfit/game/geometry"
)

const (
	MinDimension = 1
	MaxDimension = 64

	// snapTolerance keeps values that should sit exactly on a half cell from
	// rounding down because of float error
	snapTolerance = 1e-6
)

var (
	ErrInvalidDimensions = errors.New("invalid grid dimensions")
	ErrInvalidCellSize   = errors.New("cell size must be positive")
)

// Cell is an integer address into the grid. Y grows downward.
type Cell struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

func (c Cell) String() string {
	return "(" + strconv.Itoa(c.X) + "," + strconv.Itoa(c.Y) + ")"
}

// Add returns c translated by d
func (c Cell) Add(d Cell) Cell {
	return Cell{X: c.X + d.X, Y: c.Y + d.Y}
}

// PieceID identifies a piece for occupancy bookkeeping
type PieceID uint32

// Grid is a fixed-size occupancy grid
type Grid struct {
	width    int
	height   int
	cellSize float64
	origin   geometry.Vec

	// cells[y*width+x] lists the pieces covering that cell, in placement order
	cells [][]PieceID

	// claims maps each placed piece to the cells it covers
	claims *intmap.Map[PieceID, []Cell]

	// registered pieces take part in the win condition
	registered []PieceID
}

// New creates an empty grid. origin is the world position of the centre of
// cell (0,0) and cellSize the world distance between adjacent cell centres.
func New(width, height int, cellSize float64, origin geometry.Vec) (*Grid, error) {
	if width < MinDimension || width > MaxDimension || height < MinDimension || height > MaxDimension {
		return nil, fmt.Errorf("%w: %dx%d (each side must be between %d and %d)",
			ErrInvalidDimensions, width, height, MinDimension, MaxDimension)
	}
	if cellSize <= 0 || math.IsNaN(cellSize) || math.IsInf(cellSize, 0) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidCellSize, cellSize)
	}

	return &Grid{
		width:    width,
		height:   height,
		cellSize: cellSize,
		origin:   origin,
		cells:    make([][]PieceID, width*height),
		claims:   intmap.New[PieceID, []Cell](32),
	}, nil
}

// Width returns the number of columns
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows
func (g *Grid) Height() int { return g.height }

// CellSize returns the world size of one cell
func (g *Grid) CellSize() float64 { return g.cellSize }

// Origin returns the world position of the centre of cell (0,0)
func (g *Grid) Origin() geometry.Vec { return g.origin }

// Area returns width*height
func (g *Grid) Area() int { return g.width * g.height }

// InBounds reports whether c lies inside the grid
func (g *Grid) InBounds(c Cell) bool {
	return c.X >= 0 && c.X < g.width && c.Y >= 0 && c.Y < g.height
}

// CellAt maps a world position to the nearest cell without clamping
func (g *Grid) CellAt(pos geometry.Vec) Cell {
	return Cell{
		X: roundHalfUp((pos.X - g.origin.X) / g.cellSize),
		Y: roundHalfUp((pos.Y - g.origin.Y) / g.cellSize),
	}
}

// SnapToGrid maps a world position to the nearest cell, clamped to bounds
func (g *Grid) SnapToGrid(pos geometry.Vec) Cell {
	c := g.CellAt(pos)
	c.X = clamp(c.X, 0, g.width-1)
	c.Y = clamp(c.Y, 0, g.height-1)
	return c
}

// CellCenter returns the world position of the centre of c
func (g *Grid) CellCenter(c Cell) geometry.Vec {
	return geometry.Vec{
		X: g.origin.X + float64(c.X)*g.cellSize,
		Y: g.origin.Y + float64(c.Y)*g.cellSize,
	}
}

// FootprintAt returns the cells covered by a piece with the given offsets
// anchored at a world position. The result may fall outside the grid.
func (g *Grid) FootprintAt(anchor geometry.Vec, offsets geometry.Offsets) []Cell {
	ax := (anchor.X - g.origin.X) / g.cellSize
	ay := (anchor.Y - g.origin.Y) / g.cellSize

	footprint := make([]Cell, len(offsets))
	for i, o := range offsets {
		footprint[i] = Cell{
			X: roundHalfUp(ax + o.X),
			Y: roundHalfUp(ay + o.Y),
		}
	}
	return footprint
}

func (g *Grid) index(c Cell) int {
	return c.Y*g.width + c.X
}

func roundHalfUp(f float64) int {
	return int(math.Floor(f + 0.5 + snapTolerance))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

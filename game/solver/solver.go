package solver

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/wricardo/polyfit/game/geometry"
	"github.com/wricardo/polyfit/game/grid"
)

var (
	// ErrNoSolution is returned when the pieces cannot cover the free cells
	ErrNoSolution = errors.New("no solution")
	// ErrAreaMismatch is returned when the piece cells do not add up to the free cells
	ErrAreaMismatch = errors.New("piece area does not match free cells")
)

// checkEvery is how many search nodes pass between context checks
const checkEvery = 1024

// Shape is a piece to fit, in its base orientation
type Shape struct {
	ID      grid.PieceID
	Offsets geometry.Offsets
}

// Problem is a grid to cover
type Problem struct {
	Width  int
	Height int
	// Filled cells are already covered and must stay free of new pieces
	Filled []grid.Cell
	Pieces []Shape
}

// Placement puts one piece with its anchor on a cell
type Placement struct {
	ID       grid.PieceID      `json:"id"`
	Anchor   grid.Cell         `json:"anchor"`
	Rotation geometry.Rotation `json:"rotation"`
	Mirrored bool              `json:"mirrored"`
	Cells    []grid.Cell       `json:"cells"`
}

// Solution is one exact cover
type Solution struct {
	Placements []Placement `json:"placements"`
	// Nodes is the number of search nodes visited
	Nodes int `json:"nodes"`
}

// Solve returns the first exact cover found
func Solve(ctx context.Context, p Problem) (*Solution, error) {
	s, err := newSearch(ctx, p, 1)
	if err != nil {
		return nil, err
	}
	s.dfs()
	if s.err != nil {
		return nil, s.err
	}
	if s.found == 0 {
		return nil, fmt.Errorf("%w: %d pieces on %dx%d", ErrNoSolution, len(p.Pieces), p.Width, p.Height)
	}

	sort.Slice(s.first, func(i, j int) bool { return s.first[i].ID < s.first[j].ID })
	return &Solution{Placements: s.first, Nodes: s.nodes}, nil
}

// Count returns the number of exact covers, stopping at limit. Pieces with
// identical shapes are distinct, so swapping them counts as a new cover.
func Count(ctx context.Context, p Problem, limit int) (int, error) {
	if limit <= 0 {
		return 0, fmt.Errorf("limit must be positive, got %d", limit)
	}
	s, err := newSearch(ctx, p, limit)
	if err != nil {
		return 0, err
	}
	s.dfs()
	return s.found, s.err
}

// Orientations returns the distinct orientations of a shape. Each footprint
// is relative to anchor cell (0,0) and sorted row-major.
func Orientations(base geometry.Offsets) []Orientation {
	var out []Orientation
	seen := make(map[string]bool)
	for _, mirrored := range []bool{false, true} {
		for r := geometry.Rot0; r <= geometry.Rot270; r++ {
			offsets := geometry.Orient(base, r, mirrored)
			key := fmt.Sprint(offsets.Normalized())
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, Orientation{
				Rotation: r,
				Mirrored: mirrored,
				Cells:    cellsAtOrigin(offsets),
			})
		}
	}
	return out
}

// Orientation is one distinct way a shape can lie on the grid
type Orientation struct {
	Rotation geometry.Rotation
	Mirrored bool
	Cells    []grid.Cell
}

var unit, _ = grid.New(1, 1, 1, geometry.Vec{})

func cellsAtOrigin(offsets geometry.Offsets) []grid.Cell {
	cells := unit.FootprintAt(geometry.Vec{}, offsets)
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Y != cells[j].Y {
			return cells[i].Y < cells[j].Y
		}
		return cells[i].X < cells[j].X
	})
	return cells
}

type search struct {
	ctx    context.Context
	width  int
	height int
	filled []bool
	ids    []grid.PieceID
	shapes [][]Orientation
	used   []bool
	stack  []Placement
	limit  int

	nodes int
	found int
	first []Placement
	err   error
}

func newSearch(ctx context.Context, p Problem, limit int) (*search, error) {
	if p.Width < grid.MinDimension || p.Height < grid.MinDimension {
		return nil, fmt.Errorf("%w: %dx%d", grid.ErrInvalidDimensions, p.Width, p.Height)
	}

	s := &search{
		ctx:    ctx,
		width:  p.Width,
		height: p.Height,
		filled: make([]bool, p.Width*p.Height),
		used:   make([]bool, len(p.Pieces)),
		limit:  limit,
	}

	free := len(s.filled)
	for _, c := range p.Filled {
		if !s.inBounds(c) {
			return nil, fmt.Errorf("filled cell %s outside %dx%d grid", c, p.Width, p.Height)
		}
		if !s.filled[s.index(c)] {
			s.filled[s.index(c)] = true
			free--
		}
	}

	area := 0
	for _, shape := range p.Pieces {
		if len(shape.Offsets) == 0 {
			return nil, fmt.Errorf("piece %d: %w", shape.ID, geometry.ErrNoCells)
		}
		area += len(shape.Offsets)
		s.ids = append(s.ids, shape.ID)
		s.shapes = append(s.shapes, Orientations(shape.Offsets))
	}
	if area != free {
		return nil, fmt.Errorf("%w: %d piece cells for %d free cells", ErrAreaMismatch, area, free)
	}
	return s, nil
}

// dfs covers the first free cell in row-major order with every unused piece
// whose first cell can sit there. It reports whether the search should stop.
func (s *search) dfs() bool {
	s.nodes++
	if s.nodes%checkEvery == 1 {
		if err := s.ctx.Err(); err != nil {
			s.err = err
			return true
		}
	}

	target, ok := s.firstFree()
	if !ok {
		s.found++
		if s.first == nil {
			s.first = append([]Placement(nil), s.stack...)
		}
		return s.found >= s.limit
	}

	for i, orientations := range s.shapes {
		if s.used[i] {
			continue
		}
		for _, o := range orientations {
			pivot := o.Cells[0]
			anchor := grid.Cell{X: target.X - pivot.X, Y: target.Y - pivot.Y}
			cells, ok := s.fit(o.Cells, anchor)
			if !ok {
				continue
			}

			s.mark(cells, true)
			s.used[i] = true
			s.stack = append(s.stack, Placement{
				ID:       s.ids[i],
				Anchor:   anchor,
				Rotation: o.Rotation,
				Mirrored: o.Mirrored,
				Cells:    cells,
			})

			stop := s.dfs()

			s.stack = s.stack[:len(s.stack)-1]
			s.used[i] = false
			s.mark(cells, false)
			if stop {
				return true
			}
		}
	}
	return false
}

func (s *search) fit(rel []grid.Cell, anchor grid.Cell) ([]grid.Cell, bool) {
	cells := make([]grid.Cell, len(rel))
	for i, c := range rel {
		abs := c.Add(anchor)
		if !s.inBounds(abs) || s.filled[s.index(abs)] {
			return nil, false
		}
		cells[i] = abs
	}
	return cells, true
}

func (s *search) mark(cells []grid.Cell, v bool) {
	for _, c := range cells {
		s.filled[s.index(c)] = v
	}
}

func (s *search) firstFree() (grid.Cell, bool) {
	for i, f := range s.filled {
		if !f {
			return grid.Cell{X: i % s.width, Y: i / s.width}, true
		}
	}
	return grid.Cell{}, false
}

func (s *search) inBounds(c grid.Cell) bool {
	return c.X >= 0 && c.X < s.width && c.Y >= 0 && c.Y < s.height
}

func (s *search) index(c grid.Cell) int {
	return c.Y*s.width + c.X
}

package solver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/polyfit/game/geometry"
	"github.com/wricardo/polyfit/game/grid"
)

func shape(t *testing.T, id grid.PieceID, rows ...string) Shape {
	t.Helper()
	cells, err := geometry.CellsFromRows(rows)
	require.NoError(t, err)
	offsets, err := geometry.ComputeOffsets(cells)
	require.NoError(t, err)
	return Shape{ID: id, Offsets: offsets}
}

func classic(t *testing.T) Problem {
	return Problem{
		Width:  5,
		Height: 5,
		Pieces: []Shape{
			shape(t, 1, "##", "#."),
			shape(t, 2, "###", "..#"),
			shape(t, 3, "##", "#.", "#."),
			shape(t, 4, ".#", "##", ".#"),
			shape(t, 5, "#", "#", "#"),
			shape(t, 6, "#", "#", "#"),
			shape(t, 7, ".#.", "###"),
		},
	}
}

// replay places every solution piece through the grid the way the engine
// would and checks the result covers the board
func replay(t *testing.T, p Problem, sol *Solution) *grid.Grid {
	t.Helper()
	g, err := grid.New(p.Width, p.Height, 1, geometry.V(0, 0))
	require.NoError(t, err)
	for i, c := range p.Filled {
		require.NoError(t, g.Place(grid.PieceID(1000+i), []grid.Cell{c}))
	}

	bases := make(map[grid.PieceID]geometry.Offsets)
	for _, s := range p.Pieces {
		bases[s.ID] = s.Offsets
		g.Register(s.ID)
	}
	for _, pl := range sol.Placements {
		offsets := geometry.Orient(bases[pl.ID], pl.Rotation, pl.Mirrored)
		footprint := g.FootprintAt(g.CellCenter(pl.Anchor), offsets)
		assert.ElementsMatch(t, pl.Cells, footprint, "piece %d", pl.ID)
		require.NoError(t, g.Place(pl.ID, footprint), "piece %d", pl.ID)
	}
	require.NoError(t, g.Verify())
	return g
}

func TestOrientations(t *testing.T) {
	tests := []struct {
		name string
		rows []string
		want int
	}{
		{"monomino", []string{"#"}, 1},
		{"domino", []string{"##"}, 2},
		{"square", []string{"##", "##"}, 1},
		{"L tromino", []string{"##", "#."}, 4},
		{"T tetromino", []string{"###", ".#."}, 4},
		{"S tetromino", []string{".##", "##."}, 4},
		{"L tetromino", []string{"#.", "#.", "##"}, 8},
		{"F pentomino", []string{".##", "##.", ".#."}, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := shape(t, 1, tt.rows...)
			got := Orientations(s.Offsets)
			assert.Len(t, got, tt.want)
			for _, o := range got {
				assert.Len(t, o.Cells, len(s.Offsets))
			}
		})
	}
}

func TestSolveClassic(t *testing.T) {
	p := classic(t)
	sol, err := Solve(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, sol.Placements, len(p.Pieces))
	assert.Positive(t, sol.Nodes)

	for i := 1; i < len(sol.Placements); i++ {
		assert.Less(t, sol.Placements[i-1].ID, sol.Placements[i].ID)
	}

	g := replay(t, p, sol)
	assert.True(t, g.IsSolved())
}

func TestSolveWithFilledCells(t *testing.T) {
	p := Problem{
		Width:  2,
		Height: 2,
		Filled: []grid.Cell{{X: 1, Y: 0}},
		Pieces: []Shape{shape(t, 1, "##", "#.")},
	}
	sol, err := Solve(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, sol.Placements, 1)
	assert.ElementsMatch(t, []grid.Cell{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}}, sol.Placements[0].Cells)
	replay(t, p, sol)
}

func TestSolveRawOffsets(t *testing.T) {
	p := Problem{
		Width:  3,
		Height: 1,
		Pieces: []Shape{
			{ID: 1, Offsets: geometry.Offsets{{X: 0, Y: 0}, {X: 1, Y: 0}}},
			{ID: 2, Offsets: geometry.Offsets{{X: 0, Y: 0}}},
		},
	}
	sol, err := Solve(context.Background(), p)
	require.NoError(t, err)
	replay(t, p, sol)
}

func TestSolveNoSolution(t *testing.T) {
	p := Problem{
		Width:  4,
		Height: 1,
		Pieces: []Shape{shape(t, 1, "##", "##")},
	}
	_, err := Solve(context.Background(), p)
	assert.ErrorIs(t, err, ErrNoSolution)
}

func TestSolveAreaMismatch(t *testing.T) {
	p := Problem{
		Width:  3,
		Height: 3,
		Pieces: []Shape{shape(t, 1, "###")},
	}
	_, err := Solve(context.Background(), p)
	assert.ErrorIs(t, err, ErrAreaMismatch)

	_, err = Count(context.Background(), p, 5)
	assert.ErrorIs(t, err, ErrAreaMismatch)
}

func TestSolveRejectsBadProblems(t *testing.T) {
	_, err := Solve(context.Background(), Problem{Width: 0, Height: 3})
	assert.ErrorIs(t, err, grid.ErrInvalidDimensions)

	_, err = Solve(context.Background(), Problem{Width: 1, Height: 1, Filled: []grid.Cell{{X: 2, Y: 0}}})
	assert.Error(t, err)

	_, err = Solve(context.Background(), Problem{Width: 1, Height: 1, Pieces: []Shape{{ID: 1}}})
	assert.ErrorIs(t, err, geometry.ErrNoCells)
}

func TestCount(t *testing.T) {
	p := Problem{
		Width:  2,
		Height: 2,
		Pieces: []Shape{shape(t, 1, "##"), shape(t, 2, "##")},
	}

	// one horizontal and one vertical arrangement, each with the pieces swapped
	n, err := Count(context.Background(), p, 100)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = Count(context.Background(), p, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = Count(context.Background(), p, 0)
	assert.Error(t, err)
}

func TestSolveHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Solve(ctx, classic(t))
	assert.ErrorIs(t, err, context.Canceled)
}

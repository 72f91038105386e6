// Package solver finds exact covers of a rectangular grid by a set of
// polyomino pieces.
//
// Each piece may take any of the eight orientations reachable through the
// rotate and mirror transforms. Placements are reported as anchor cells and
// orientations, so they can be replayed through the normal piece protocol:
//
//	sol, err := solver.Solve(ctx, solver.Problem{
//		Width:  5,
//		Height: 5,
//		Pieces: shapes,
//	})
//
// Cells that are already covered can be passed as Filled; the solver then
// completes the remaining area.
package solver

// Package grid implements the occupancy grid that records which puzzle
// pieces cover which cells.
//
// The grid is the single source of truth for occupancy. It keeps two
// indexes that must always agree:
//   - cell → ordered list of piece IDs covering that cell
//   - piece ID → list of cells the piece currently claims
//
// Pieces are referenced only by PieceID, so removing a piece can never leave
// dangling state behind. The grid never reasons about shapes; callers hand it
// footprints (absolute cell sets) computed from piece geometry.
//
// Placement legality lives in validator.go as pure functions over a Reader,
// so interaction code can ask "would this fit?" without touching state.
// Place re-runs the same check and either commits the whole footprint or
// returns an error wrapping ErrInvalidPlacement with nothing changed.
//
// Usage:
//
//	g, err := grid.New(5, 5, 1.0, geometry.V(0, 0))
//	if err != nil {
//		log.Fatal(err)
//	}
//	g.Register(1)
//	footprint := []grid.Cell{{X: 2, Y: 2}, {X: 3, Y: 2}}
//	if err := g.Place(1, footprint); err != nil {
//		// errors.Is(err, grid.ErrInvalidPlacement)
//	}
//	fmt.Println(g.IsOccupied(grid.Cell{X: 3, Y: 2})) // true
//
// Verify performs a read-only integrity sweep and is safe to run from a
// periodic audit task.
package grid

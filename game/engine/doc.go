// Package engine composes the grid, pieces and event bus into a playable
// polyomino puzzle.
//
// A PuzzleConfig, loaded from JSON or YAML, names the grid size and the
// pieces. NewEngine validates it, builds the occupancy grid and one piece
// state machine per config entry, and routes every piece notification
// through a single events.Bus.
//
// Usage:
//
//	config, err := engine.LoadConfigByName("classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	puzzle, err := engine.NewEngine(config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Drop piece A on cell (0,0) rotated a quarter turn
//	err = puzzle.Place(1, grid.Cell{X: 0, Y: 0}, &engine.Orientation{Rotation: 90})
//	state := puzzle.GetState()
//
// Rules:
//
// Only one piece moves at a time. A piece claims grid cells only once it
// has snapped and its footprint is legal; picking it up releases the
// claim. The puzzle is solved when every cell is covered and every piece
// is placed, at which point a grid_solved event is emitted once.
package engine

// Package geometry provides the shape math for polyomino pieces.
//
// A piece is described by a set of unit cells in its own local grid. The
// package turns those cells into centroid-centred offsets measured in cell
// units, and transforms offsets with two operations:
//   - Rotate90: a 90° counter-clockwise turn, (x, y) → (-y, x)
//   - MirrorHorizontal: a flip across the vertical axis, (x, y) → (-x, y)
//
// Both operations are pure and exact for the half-integer offsets produced
// by even-sized shapes, so four rotations and two mirrors are identities.
//
// Usage:
//
//	cells, err := geometry.CellsFromRows([]string{"##", "#."})
//	if err != nil {
//		log.Fatal(err)
//	}
//	offsets, err := geometry.ComputeOffsets(cells)
//	if err != nil {
//		log.Fatal(err)
//	}
//	rotated := geometry.Rotate90(offsets)
//
// Rotation tracks quarter turns. Mirroring is only permitted at 0° and 180°,
// which keeps every reachable orientation equal to Orient(base, r, mirrored).
package geometry

package grid

// CanPlace reports whether footprint is in bounds, free of duplicates and
// covers only empty cells
func (g *Grid) CanPlace(footprint []Cell) bool {
	return Check(g, footprint) == nil
}

// Place commits footprint for piece id. Cells previously claimed by id are
// released first, so the same piece never double-occupies. The footprint is
// validated while ignoring id's own claims; on failure nothing changes and
// the returned error wraps ErrInvalidPlacement.
func (g *Grid) Place(id PieceID, footprint []Cell) error {
	if err := CheckFor(g, id, footprint); err != nil {
		return err
	}

	g.Remove(id)

	claimed := make([]Cell, len(footprint))
	copy(claimed, footprint)
	for _, c := range claimed {
		i := g.index(c)
		g.cells[i] = append(g.cells[i], id)
	}
	g.claims.Put(id, claimed)
	return nil
}

// Remove clears every cell claimed by id. No-op if id holds no claim.
func (g *Grid) Remove(id PieceID) {
	claimed, ok := g.claims.Get(id)
	if !ok {
		return
	}
	for _, c := range claimed {
		i := g.index(c)
		g.cells[i] = without(g.cells[i], id)
	}
	g.claims.Del(id)
}

// IsOccupied reports whether c has any occupant. Out of bounds is free.
func (g *Grid) IsOccupied(c Cell) bool {
	if !g.InBounds(c) {
		return false
	}
	return len(g.cells[g.index(c)]) > 0
}

// Occupants returns a copy of the pieces covering c, in placement order
func (g *Grid) Occupants(c Cell) []PieceID {
	if !g.InBounds(c) {
		return nil
	}
	occupants := g.cells[g.index(c)]
	if len(occupants) == 0 {
		return nil
	}
	out := make([]PieceID, len(occupants))
	copy(out, occupants)
	return out
}

// Claims returns a copy of the cells claimed by id
func (g *Grid) Claims(id PieceID) []Cell {
	claimed, ok := g.claims.Get(id)
	if !ok {
		return nil
	}
	out := make([]Cell, len(claimed))
	copy(out, claimed)
	return out
}

// IsPlaced reports whether id currently claims cells
func (g *Grid) IsPlaced(id PieceID) bool {
	_, ok := g.claims.Get(id)
	return ok
}

// PlacedCount returns the number of pieces holding a claim
func (g *Grid) PlacedCount() int {
	return g.claims.Len()
}

// Register adds id to the set of pieces that must be placed to solve the grid
func (g *Grid) Register(id PieceID) {
	for _, r := range g.registered {
		if r == id {
			return
		}
	}
	g.registered = append(g.registered, id)
}

// Unregister removes id from the win condition and releases its claim
func (g *Grid) Unregister(id PieceID) {
	g.Remove(id)
	g.registered = without(g.registered, id)
}

// Registered returns the registered piece IDs in registration order
func (g *Grid) Registered() []PieceID {
	out := make([]PieceID, len(g.registered))
	copy(out, g.registered)
	return out
}

// IsSolved is true iff every cell has an occupant and every registered
// piece is placed
func (g *Grid) IsSolved() bool {
	for _, occupants := range g.cells {
		if len(occupants) == 0 {
			return false
		}
	}
	for _, id := range g.registered {
		if !g.IsPlaced(id) {
			return false
		}
	}
	return true
}

// Counts returns the number of free and occupied cells
func (g *Grid) Counts() (free, occupied int) {
	for _, occupants := range g.cells {
		if len(occupants) == 0 {
			free++
		} else {
			occupied++
		}
	}
	return free, occupied
}

// Clear releases every claim. Registrations are kept.
func (g *Grid) Clear() {
	for i := range g.cells {
		g.cells[i] = nil
	}
	g.claims.Clear()
}

// Snapshot returns rows of the first occupant of each cell, 0 meaning free
func (g *Grid) Snapshot() [][]PieceID {
	rows := make([][]PieceID, g.height)
	for y := 0; y < g.height; y++ {
		rows[y] = make([]PieceID, g.width)
		for x := 0; x < g.width; x++ {
			if occupants := g.cells[y*g.width+x]; len(occupants) > 0 {
				rows[y][x] = occupants[0]
			}
		}
	}
	return rows
}

func without(ids []PieceID, id PieceID) []PieceID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

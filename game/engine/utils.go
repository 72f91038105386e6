package engine

import (
	"strconv"
	"strings"

	"github.com/wricardo/polyfit/game/grid"
	"github.com/wricardo/polyfit/game/piece"
)

const glyphs = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// PieceGlyph returns the single character used to draw a piece
func PieceGlyph(id grid.PieceID) byte {
	if id == 0 {
		return '.'
	}
	if int(id) <= len(glyphs) {
		return glyphs[id-1]
	}
	return '*'
}

// RenderRows draws an occupancy snapshot, one string per row, with '.' for
// free cells
func RenderRows(occupancy [][]grid.PieceID) []string {
	rows := make([]string, len(occupancy))
	for y, row := range occupancy {
		var b strings.Builder
		for _, id := range row {
			b.WriteByte(PieceGlyph(id))
		}
		rows[y] = b.String()
	}
	return rows
}

// Piece finds a piece view by config id or number
func (s *PuzzleState) Piece(ref string) (piece.View, bool) {
	id, ok := s.Keys[ref]
	if !ok {
		n, err := strconv.Atoi(ref)
		if err != nil || n < 1 {
			return piece.View{}, false
		}
		id = grid.PieceID(n)
	}
	for _, v := range s.Pieces {
		if v.ID == id {
			return v, true
		}
	}
	return piece.View{}, false
}

func sameCellSet(a, b []grid.Cell) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[grid.Cell]int, len(a))
	for _, c := range a {
		set[c]++
	}
	for _, c := range b {
		if set[c] == 0 {
			return false
		}
		set[c]--
	}
	return true
}

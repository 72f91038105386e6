package engine

import (
	"fmt"
	"time"

	"github.com/wricardo/polyfit/game/geometry"
	"github.com/wricardo/polyfit/game/grid"
	"github.com/wricardo/polyfit/game/piece"
)

const (
	// Validation constants
	MinGridSize     = grid.MinDimension
	MaxGridSize     = grid.MaxDimension
	MaxPieces       = 256
	DefaultCellSize = 1.0
	// staging column for unplaced pieces, in cells right of the grid
	StagingGap = 2
)

// Action names recorded in the history
const (
	ActionPickup  = "pickup"
	ActionRelease = "release"
	ActionRotate  = "rotate"
	ActionMirror  = "mirror"
	ActionSnap    = "snap"
	ActionPlace   = "place"
	ActionReset   = "reset"
)

// SnapConfig tunes how released pieces find their cell
type SnapConfig struct {
	Policy    piece.SnapPolicy `json:"policy,omitempty" yaml:"policy,omitempty"`
	Threshold float64          `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Speed     float64          `json:"speed,omitempty" yaml:"speed,omitempty"`
	Epsilon   float64          `json:"epsilon,omitempty" yaml:"epsilon,omitempty"`
}

// Messages shown to players
type Messages struct {
	Welcome string `json:"welcome,omitempty" yaml:"welcome,omitempty"`
	Solved  string `json:"solved,omitempty" yaml:"solved,omitempty"`
}

// PieceConfig describes one piece of a puzzle. Exactly one of Cells and
// Shape must be given.
type PieceConfig struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	// Cells are local integer cell positions
	Cells [][2]int `json:"cells,omitempty" yaml:"cells,omitempty"`
	// Shape is ASCII art with '#' for filled cells
	Shape []string `json:"shape,omitempty" yaml:"shape,omitempty"`
	// Centered centres the cells on their centroid; defaults to true. When
	// false the cells are used as offsets from the anchor as given.
	Centered *bool `json:"centered,omitempty" yaml:"centered,omitempty"`
	// Start is the world anchor of the unplaced piece
	Start *geometry.Vec `json:"start,omitempty" yaml:"start,omitempty"`
	// PlacedAt places the piece on this cell when the puzzle starts
	PlacedAt *grid.Cell `json:"placed_at,omitempty" yaml:"placed_at,omitempty"`
}

// PuzzleConfig represents a puzzle loaded from JSON or YAML
type PuzzleConfig struct {
	Name           string        `json:"name" yaml:"name"`
	Description    string        `json:"description" yaml:"description"`
	Width          int           `json:"width" yaml:"width"`
	Height         int           `json:"height" yaml:"height"`
	CellSize       float64       `json:"cell_size,omitempty" yaml:"cell_size,omitempty"`
	Origin         geometry.Vec  `json:"origin" yaml:"origin"`
	Snap           SnapConfig    `json:"snap" yaml:"snap"`
	IdleTransforms bool          `json:"idle_transforms,omitempty" yaml:"idle_transforms,omitempty"`
	Messages       Messages      `json:"messages" yaml:"messages"`
	Pieces         []PieceConfig `json:"pieces" yaml:"pieces"`
}

// Orientation is a target rotation in degrees plus the mirror flag
type Orientation struct {
	Rotation int  `json:"rotation"`
	Mirrored bool `json:"mirrored"`
}

// ActionEntry represents a single action in the puzzle history
type ActionEntry struct {
	Number    int          `json:"action_number"`
	Action    string       `json:"action"`
	PieceID   grid.PieceID `json:"piece_id,omitempty"`
	Success   bool         `json:"success"`
	Message   string       `json:"message,omitempty"`
	Timestamp int64        `json:"timestamp"`
}

// PuzzleState represents the complete puzzle state
type PuzzleState struct {
	ConfigName    string           `json:"config_name"`
	Width         int              `json:"width"`
	Height        int              `json:"height"`
	CellSize      float64          `json:"cell_size"`
	Origin        geometry.Vec     `json:"origin"`
	Pieces        []piece.View     `json:"pieces"`
	Occupancy     [][]grid.PieceID `json:"occupancy"`
	FreeCells     int              `json:"free_cells"`
	OccupiedCells int              `json:"occupied_cells"`
	PlacedPieces  int              `json:"placed_pieces"`
	TotalPieces   int              `json:"total_pieces"`
	Solved        bool             `json:"solved"`
	SolvedAt      *time.Time       `json:"solved_at,omitempty"`
	ActivePiece   *grid.PieceID    `json:"active_piece,omitempty"`
	Message       string           `json:"message"`
	ActionHistory []ActionEntry    `json:"action_history"`
	TotalActions  int              `json:"total_actions"`

	// Keys maps config piece ids to engine piece ids
	Keys map[string]grid.PieceID `json:"keys"`

	// CurrentActions holds only the actions since the last reset while
	// ActionHistory stays cumulative.
	CurrentActions      []ActionEntry `json:"current_actions"`
	CurrentActionsCount int           `json:"current_actions_count"`

	// Rows is an ASCII rendering of the occupancy, one glyph per cell
	Rows []string `json:"rows,omitempty"`
}

// CellInfo describes a single grid cell
type CellInfo struct {
	Cell      grid.Cell      `json:"cell"`
	InBounds  bool           `json:"in_bounds"`
	Occupants []grid.PieceID `json:"occupants"`
	Center    geometry.Vec   `json:"center"`
}

// Hint suggests where one unplaced piece goes
type Hint struct {
	PieceID     grid.PieceID `json:"piece_id"`
	Key         string       `json:"key"`
	Cell        grid.Cell    `json:"cell"`
	Orientation Orientation  `json:"orientation"`
	Cells       []grid.Cell  `json:"cells"`
	Remaining   int          `json:"remaining"`
}

func (h Hint) String() string {
	mirror := ""
	if h.Orientation.Mirrored {
		mirror = ", mirrored"
	}
	return fmt.Sprintf("place %s at %s rotated %d°%s", h.Key, h.Cell, h.Orientation.Rotation, mirror)
}

package piece

import (
	"errors"
	"fmt"

	"github.com/wricardo/polyfit/game/events"
	"github.com/wricardo/polyfit/game/geometry"
	"github.com/wricardo/polyfit/game/grid"
)

// Board is the occupancy surface a piece commits to
type Board interface {
	SnapToGrid(pos geometry.Vec) grid.Cell
	CellAt(pos geometry.Vec) grid.Cell
	CellCenter(c grid.Cell) geometry.Vec
	CellSize() float64
	FootprintAt(anchor geometry.Vec, offsets geometry.Offsets) []grid.Cell
	Place(id grid.PieceID, footprint []grid.Cell) error
	Remove(id grid.PieceID)
	IsPlaced(id grid.PieceID) bool
	Claims(id grid.PieceID) []grid.Cell
}

var _ Board = (*grid.Grid)(nil)

// Config describes a piece to build
type Config struct {
	ID   grid.PieceID
	Name string
	// Offsets are used verbatim when set
	Offsets geometry.Offsets
	// Cells are centred on their centroid when Offsets is empty
	Cells    []geometry.Vec
	Anchor   geometry.Vec
	Options  Options
	Notifier events.Notifier
}

// Piece is one placeable polyomino and its interaction state
type Piece struct {
	id       grid.PieceID
	name     string
	board    Board
	notifier events.Notifier
	opts     Options

	base     geometry.Offsets
	offsets  geometry.Offsets
	rotation geometry.Rotation
	mirrored bool

	anchor geometry.Vec
	grab   geometry.Vec
	target grid.Cell
	state  State
}

// New builds an unplaced, Idle piece
func New(board Board, cfg Config) (*Piece, error) {
	if board == nil {
		return nil, fmt.Errorf("%w: piece %d has no board", ErrConfiguration, cfg.ID)
	}

	base := cfg.Offsets.Clone()
	if len(base) == 0 {
		var err error
		base, err = geometry.ComputeOffsets(cfg.Cells)
		if err != nil {
			if errors.Is(err, geometry.ErrNoCells) {
				return nil, fmt.Errorf("%w: piece %d: %v", ErrConfiguration, cfg.ID, err)
			}
			return nil, err
		}
	}

	opts := cfg.Options.WithDefaults()
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("piece %d: %w", cfg.ID, err)
	}

	name := cfg.Name
	if name == "" {
		name = fmt.Sprintf("piece-%d", cfg.ID)
	}

	return &Piece{
		id:       cfg.ID,
		name:     name,
		board:    board,
		notifier: cfg.Notifier,
		opts:     opts,
		base:     base,
		offsets:  base.Clone(),
		anchor:   cfg.Anchor,
		state:    Idle,
	}, nil
}

// ID returns the piece identity
func (p *Piece) ID() grid.PieceID { return p.id }

// Name returns the display name
func (p *Piece) Name() string { return p.name }

// State returns the interaction state
func (p *Piece) State() State { return p.state }

// Anchor returns the current world anchor
func (p *Piece) Anchor() geometry.Vec { return p.anchor }

// Grab returns the anchor minus the input position recorded at pickup
func (p *Piece) Grab() geometry.Vec { return p.grab }

// Rotation returns the current quarter-turn count
func (p *Piece) Rotation() geometry.Rotation { return p.rotation }

// Mirrored reports whether the piece is horizontally mirrored
func (p *Piece) Mirrored() bool { return p.mirrored }

// Options returns the effective options
func (p *Piece) Options() Options { return p.opts }

// Size returns the number of sub-cells
func (p *Piece) Size() int { return len(p.base) }

// Offsets returns a copy of the current offsets
func (p *Piece) Offsets() geometry.Offsets { return p.offsets.Clone() }

// BaseOffsets returns a copy of the untransformed offsets
func (p *Piece) BaseOffsets() geometry.Offsets { return p.base.Clone() }

// Target returns the snap target and whether the piece is snapping
func (p *Piece) Target() (grid.Cell, bool) {
	return p.target, p.state == Snapping
}

// IsPlaced reports whether the piece holds a grid claim
func (p *Piece) IsPlaced() bool {
	return p.board.IsPlaced(p.id)
}

// Footprint returns the cells the piece would cover at its current anchor
func (p *Piece) Footprint() []grid.Cell {
	return p.board.FootprintAt(p.anchor, p.offsets)
}

// Contains reports whether pos falls on one of the piece's sub-cells
func (p *Piece) Contains(pos geometry.Vec) bool {
	hit := p.board.CellAt(pos)
	for _, c := range p.Footprint() {
		if c == hit {
			return true
		}
	}
	return false
}

// SetNotifier replaces the notification sink; nil disables notifications
func (p *Piece) SetNotifier(n events.Notifier) {
	p.notifier = n
}

// Reset returns the piece to its base orientation, unplaced and Idle at anchor
func (p *Piece) Reset(anchor geometry.Vec) {
	p.board.Remove(p.id)
	p.offsets = p.base.Clone()
	p.rotation = geometry.Rot0
	p.mirrored = false
	p.anchor = anchor
	p.grab = geometry.Vec{}
	p.target = grid.Cell{}
	p.state = Idle
}

// View is a serialisable snapshot of a piece
type View struct {
	ID       grid.PieceID     `json:"id"`
	Name     string           `json:"name"`
	State    State            `json:"state"`
	Anchor   geometry.Vec     `json:"anchor"`
	Rotation int              `json:"rotation"`
	Mirrored bool             `json:"mirrored"`
	Placed   bool             `json:"placed"`
	Offsets  geometry.Offsets `json:"offsets"`
	Cells    []grid.Cell      `json:"cells"`
	Target   *grid.Cell       `json:"target,omitempty"`
}

// View returns a snapshot. Cells are the claimed cells when placed and the
// footprint preview otherwise.
func (p *Piece) View() View {
	v := View{
		ID:       p.id,
		Name:     p.name,
		State:    p.state,
		Anchor:   p.anchor,
		Rotation: p.rotation.Degrees(),
		Mirrored: p.mirrored,
		Placed:   p.IsPlaced(),
		Offsets:  p.offsets.Clone(),
	}
	if v.Placed {
		v.Cells = p.board.Claims(p.id)
	} else {
		v.Cells = p.Footprint()
	}
	if p.state == Snapping {
		target := p.target
		v.Target = &target
	}
	return v
}

func (p *Piece) emit(t events.Type, message string, cells []grid.Cell) {
	events.Emit(p.notifier, events.New(t, p.id, message).WithCells(cells))
}

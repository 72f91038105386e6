package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/wricardo/polyfit/game/events"
	"github.com/wricardo/polyfit/game/geometry"
	"github.com/wricardo/polyfit/game/grid"
	"github.com/wricardo/polyfit/game/piece"
	"github.com/wricardo/polyfit/game/solver"
)

var (
	ErrPieceNotFound  = errors.New("piece not found")
	ErrPieceBusy      = errors.New("another piece is being moved")
	ErrNoActivePiece  = errors.New("no piece is being dragged")
	ErrNoPieceAt      = errors.New("no piece at position")
	ErrAlreadySolved  = errors.New("puzzle is already solved")
	ErrBadOrientation = errors.New("invalid orientation")
)

// Engine provides the main interface for puzzle operations
type Engine interface {
	// Puzzle state
	GetState() *PuzzleState
	Reset() *PuzzleState
	IsSolved() bool
	HasActive() bool
	Verify() error
	GetConfig() *PuzzleConfig

	// Piece interaction
	Resolve(ref string) (grid.PieceID, error)
	Pickup(id grid.PieceID, at geometry.Vec) error
	PickupAt(at geometry.Vec) (grid.PieceID, error)
	Drag(at geometry.Vec) error
	Release() (piece.ReleaseOutcome, error)
	Rotate(id grid.PieceID) error
	Mirror(id grid.PieceID) error
	Place(id grid.PieceID, cell grid.Cell, orient *Orientation) error
	Tick(dt float64) (piece.TickOutcome, error)
	Settle() (piece.TickOutcome, error)

	// Queries
	GetPiece(id grid.PieceID) (piece.View, error)
	DescribeCell(c grid.Cell) CellInfo
	Hint(ctx context.Context) (*Hint, error)

	// Notifications
	Subscribe(fn func(events.Event)) (unsubscribe func())
	DrainEvents() []events.Event

	// History
	GetHistory() []ActionEntry
	GetLastAction() *ActionEntry
}

// PuzzleEngine implements the Engine interface. It is safe for concurrent
// use; subscribers run while the engine is locked and must not call back
// into it.
type PuzzleEngine struct {
	mu sync.Mutex

	config *PuzzleConfig
	grid   *grid.Grid
	bus    *events.Bus
	pieces []*piece.Piece
	keys   map[string]grid.PieceID
	starts []geometry.Vec

	active   *piece.Piece
	solved   bool
	solvedAt time.Time
	message  string
	pending  []events.Event

	history []ActionEntry
	current []ActionEntry
}

// NewEngine creates a new puzzle engine with the provided configuration
func NewEngine(config *PuzzleConfig) (*PuzzleEngine, error) {
	if err := ValidatePuzzleConfig(config); err != nil {
		return nil, err
	}

	g, err := grid.New(config.Width, config.Height, config.EffectiveCellSize(), config.Origin)
	if err != nil {
		return nil, err
	}

	e := &PuzzleEngine{
		config:  config,
		grid:    g,
		bus:     events.NewBus(),
		keys:    make(map[string]grid.PieceID, len(config.Pieces)),
		message: config.Messages.Welcome,
		history: []ActionEntry{},
		current: []ActionEntry{},
	}
	e.bus.Subscribe(e.collect)

	opts := config.Options()
	for i, pc := range config.Pieces {
		id := grid.PieceID(i + 1)
		offsets, err := pc.Offsets()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", piece.ErrConfiguration, err)
		}

		start := e.defaultStart(i)
		if pc.Start != nil {
			start = *pc.Start
		}

		p, err := piece.New(g, piece.Config{
			ID:       id,
			Name:     pc.ID,
			Offsets:  offsets,
			Anchor:   start,
			Options:  opts,
			Notifier: e.bus,
		})
		if err != nil {
			return nil, err
		}

		g.Register(id)
		e.pieces = append(e.pieces, p)
		e.keys[pc.ID] = id
		e.starts = append(e.starts, start)
	}

	if err := e.applyInitialPlacements(); err != nil {
		return nil, err
	}
	e.pending = nil
	e.checkSolved()

	return e, nil
}

// defaultStart stacks unplaced pieces in a column right of the grid
func (e *PuzzleEngine) defaultStart(index int) geometry.Vec {
	cs := e.grid.CellSize()
	return e.grid.Origin().Add(geometry.V(
		float64(e.grid.Width()+StagingGap)*cs,
		float64(index*3)*cs,
	))
}

func (e *PuzzleEngine) applyInitialPlacements() error {
	for i, pc := range e.config.Pieces {
		if pc.PlacedAt == nil {
			continue
		}
		if err := e.pieces[i].PlaceAt(*pc.PlacedAt); err != nil {
			return fmt.Errorf("%w: piece %q placed_at %s: %w", ErrInvalidConfig, pc.ID, *pc.PlacedAt, err)
		}
	}
	return nil
}

// collect is the engine's own bus subscriber
func (e *PuzzleEngine) collect(ev events.Event) {
	e.pending = append(e.pending, ev)
	if ev.Message != "" {
		e.message = ev.Message
	}
}

// GetState returns a snapshot of the puzzle state
func (e *PuzzleEngine) GetState() *PuzzleState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot()
}

func (e *PuzzleEngine) snapshot() *PuzzleState {
	free, occupied := e.grid.Counts()
	occupancy := e.grid.Snapshot()

	state := &PuzzleState{
		ConfigName:          e.config.Name,
		Width:               e.grid.Width(),
		Height:              e.grid.Height(),
		CellSize:            e.grid.CellSize(),
		Origin:              e.grid.Origin(),
		Pieces:              make([]piece.View, len(e.pieces)),
		Occupancy:           occupancy,
		FreeCells:           free,
		OccupiedCells:       occupied,
		PlacedPieces:        e.grid.PlacedCount(),
		TotalPieces:         len(e.pieces),
		Solved:              e.solved,
		Message:             e.message,
		ActionHistory:       append([]ActionEntry{}, e.history...),
		TotalActions:        len(e.history),
		Keys:                make(map[string]grid.PieceID, len(e.keys)),
		CurrentActions:      append([]ActionEntry{}, e.current...),
		CurrentActionsCount: len(e.current),
		Rows:                RenderRows(occupancy),
	}
	for i, p := range e.pieces {
		state.Pieces[i] = p.View()
	}
	for k, id := range e.keys {
		state.Keys[k] = id
	}
	if e.solved {
		at := e.solvedAt
		state.SolvedAt = &at
	}
	if e.active != nil && e.active.State() != piece.Idle {
		id := e.active.ID()
		state.ActivePiece = &id
	}
	return state
}

// Reset puts every piece back at its start. Cumulative history is kept.
func (e *PuzzleEngine) Reset() *PuzzleState {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, p := range e.pieces {
		p.Reset(e.starts[i])
	}
	e.grid.Clear()
	e.active = nil
	e.solved = false
	e.solvedAt = time.Time{}

	if err := e.applyInitialPlacements(); err != nil {
		fmt.Printf("Warning: reset could not restore initial placements: %v\n", err)
	}

	e.current = []ActionEntry{}
	e.record(ActionReset, 0, true, "puzzle reset")
	events.Emit(e.bus, events.New(events.PuzzleReset, 0, "puzzle reset"))
	if e.config.Messages.Welcome != "" {
		e.message = e.config.Messages.Welcome
	}
	e.checkSolved()

	return e.snapshot()
}

// IsSolved reports whether every cell is covered and every piece placed
func (e *PuzzleEngine) IsSolved() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.solved
}

// HasActive reports whether a piece is being dragged or is snapping
func (e *PuzzleEngine) HasActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active != nil && e.active.State() != piece.Idle
}

// GetConfig returns the puzzle configuration
func (e *PuzzleEngine) GetConfig() *PuzzleConfig {
	return e.config
}

// Resolve maps a config piece id or a numeric engine id to a piece id
func (e *PuzzleEngine) Resolve(ref string) (grid.PieceID, error) {
	if id, ok := e.keys[ref]; ok {
		return id, nil
	}
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(e.pieces) {
		return grid.PieceID(n), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrPieceNotFound, ref)
}

// Pickup starts dragging piece id from input position at
func (e *PuzzleEngine) Pickup(id grid.PieceID, at geometry.Vec) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pickup(id, at)
}

func (e *PuzzleEngine) pickup(id grid.PieceID, at geometry.Vec) error {
	p, err := e.lookup(id)
	if err != nil {
		return err
	}
	if err := e.claimActive(p); err != nil {
		e.record(ActionPickup, id, false, err.Error())
		return err
	}

	if err := p.OnPickup(at); err != nil {
		e.record(ActionPickup, id, false, err.Error())
		return err
	}
	e.active = p
	e.record(ActionPickup, id, true, "")
	e.checkSolved()
	return nil
}

// PickupAt picks up the top-most piece under input position at
func (e *PuzzleEngine) PickupAt(at geometry.Vec) (grid.PieceID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := len(e.pieces) - 1; i >= 0; i-- {
		if e.pieces[i].Contains(at) {
			id := e.pieces[i].ID()
			return id, e.pickup(id, at)
		}
	}
	return 0, fmt.Errorf("%w: (%.2f,%.2f)", ErrNoPieceAt, at.X, at.Y)
}

// Drag moves the dragged piece to follow input position at
func (e *PuzzleEngine) Drag(at geometry.Vec) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active == nil || e.active.State() != piece.Dragging {
		return ErrNoActivePiece
	}
	return e.active.OnDrag(at)
}

// Release drops the dragged piece
func (e *PuzzleEngine) Release() (piece.ReleaseOutcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active == nil || e.active.State() != piece.Dragging {
		return "", ErrNoActivePiece
	}
	p := e.active
	outcome, err := p.OnRelease()
	if err != nil {
		e.record(ActionRelease, p.ID(), false, err.Error())
		return "", err
	}
	if outcome == piece.ReleaseUnplaced {
		e.active = nil
	}
	e.record(ActionRelease, p.ID(), true, string(outcome))
	return outcome, nil
}

// Rotate turns piece id a quarter turn
func (e *PuzzleEngine) Rotate(id grid.PieceID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.transform(ActionRotate, id, (*piece.Piece).OnRotateRequest)
}

// Mirror flips piece id horizontally
func (e *PuzzleEngine) Mirror(id grid.PieceID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.transform(ActionMirror, id, (*piece.Piece).OnMirrorRequest)
}

func (e *PuzzleEngine) transform(action string, id grid.PieceID, op func(*piece.Piece) error) error {
	p, err := e.lookup(id)
	if err != nil {
		return err
	}
	if err := e.claimActive(p); err != nil {
		e.record(action, id, false, err.Error())
		return err
	}

	err = op(p)
	if p.State() == piece.Dragging {
		e.active = p
	}
	if err != nil {
		e.record(action, id, false, err.Error())
		return err
	}
	e.record(action, id, true, fmt.Sprintf("%s mirrored=%t", p.Rotation(), p.Mirrored()))
	e.checkSolved()
	return nil
}

// Tick advances the snapping piece by dt seconds
func (e *PuzzleEngine) Tick(dt float64) (piece.TickOutcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.finishSnap(func(p *piece.Piece) (piece.TickOutcome, error) { return p.Tick(dt) })
}

// Settle completes a pending snap immediately
func (e *PuzzleEngine) Settle() (piece.TickOutcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.finishSnap((*piece.Piece).Settle)
}

func (e *PuzzleEngine) finishSnap(step func(*piece.Piece) (piece.TickOutcome, error)) (piece.TickOutcome, error) {
	if e.active == nil || e.active.State() != piece.Snapping {
		return piece.TickNone, nil
	}
	p := e.active
	outcome, err := step(p)
	switch outcome {
	case piece.TickPlaced:
		e.active = nil
		e.record(ActionSnap, p.ID(), true, fmt.Sprintf("placed on %v", e.grid.Claims(p.ID())))
		e.checkSolved()
	case piece.TickRejected:
		e.active = nil
		e.record(ActionSnap, p.ID(), false, err.Error())
	}
	return outcome, err
}

// Place drives piece id through pickup, transforms, drag and release so it
// lands with its anchor on cell in the requested orientation, then settles
// the snap. A nil orient keeps the current orientation. If the footprint is
// illegal the piece ends Idle and unplaced, as a real drop would.
func (e *PuzzleEngine) Place(id grid.PieceID, cell grid.Cell, orient *Orientation) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := e.lookup(id)
	if err != nil {
		return err
	}
	if !e.grid.InBounds(cell) {
		err := &grid.PlacementError{Cell: cell, Reason: grid.ReasonOutOfBound}
		e.record(ActionPlace, id, false, err.Error())
		return err
	}
	if err := e.claimActive(p); err != nil {
		e.record(ActionPlace, id, false, err.Error())
		return err
	}

	rotation, mirrored := p.Rotation(), p.Mirrored()
	if orient != nil {
		r, err := geometry.RotationFromDegrees(orient.Rotation)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBadOrientation, err)
		}
		rotation, mirrored = r, orient.Mirrored
	}

	if err := e.drive(p, cell, rotation, mirrored); err != nil {
		e.record(ActionPlace, id, false, err.Error())
		e.checkSolved()
		return err
	}
	e.record(ActionPlace, id, true, fmt.Sprintf("placed at %s", cell))
	e.checkSolved()
	return nil
}

func (e *PuzzleEngine) drive(p *piece.Piece, cell grid.Cell, rotation geometry.Rotation, mirrored bool) error {
	if p.State() != piece.Dragging {
		if err := p.OnPickup(p.Anchor()); err != nil {
			return err
		}
	}
	e.active = p

	if mirrored != p.Mirrored() {
		if !p.Rotation().CanMirror() {
			if err := p.OnRotateRequest(); err != nil {
				return err
			}
		}
		if err := p.OnMirrorRequest(); err != nil {
			return err
		}
	}
	for p.Rotation() != rotation {
		if err := p.OnRotateRequest(); err != nil {
			return err
		}
	}

	if err := p.OnDrag(e.grid.CellCenter(cell).Sub(p.Grab())); err != nil {
		return err
	}
	outcome, err := p.OnRelease()
	if err != nil {
		return err
	}
	e.active = nil
	if outcome == piece.ReleaseUnplaced {
		return fmt.Errorf("%w: %s did not snap to %s", grid.ErrInvalidPlacement, p.Name(), cell)
	}
	_, err = p.Settle()
	return err
}

// claimActive enforces the single active piece rule
func (e *PuzzleEngine) claimActive(p *piece.Piece) error {
	if e.active == nil || e.active == p {
		return nil
	}
	if e.active.State() == piece.Idle {
		e.active = nil
		return nil
	}
	return fmt.Errorf("%w: %s is %s", ErrPieceBusy, e.active.Name(), e.active.State())
}

func (e *PuzzleEngine) lookup(id grid.PieceID) (*piece.Piece, error) {
	if id < 1 || int(id) > len(e.pieces) {
		return nil, fmt.Errorf("%w: %d", ErrPieceNotFound, id)
	}
	return e.pieces[id-1], nil
}

// checkSolved emits GridSolved when the puzzle becomes solved
func (e *PuzzleEngine) checkSolved() {
	solved := e.grid.IsSolved()
	switch {
	case solved && !e.solved:
		e.solved = true
		e.solvedAt = time.Now()
		msg := e.config.Messages.Solved
		if msg == "" {
			msg = fmt.Sprintf("Solved! All %d pieces placed.", len(e.pieces))
		}
		events.Emit(e.bus, events.New(events.GridSolved, 0, msg))
	case !solved && e.solved:
		e.solved = false
		e.solvedAt = time.Time{}
	}
}

// GetPiece returns a snapshot of one piece
func (e *PuzzleEngine) GetPiece(id grid.PieceID) (piece.View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := e.lookup(id)
	if err != nil {
		return piece.View{}, err
	}
	return p.View(), nil
}

// DescribeCell reports what occupies a cell
func (e *PuzzleEngine) DescribeCell(c grid.Cell) CellInfo {
	e.mu.Lock()
	defer e.mu.Unlock()

	info := CellInfo{
		Cell:      c,
		InBounds:  e.grid.InBounds(c),
		Occupants: []grid.PieceID{},
		Center:    e.grid.CellCenter(c),
	}
	if info.InBounds {
		info.Occupants = e.grid.Occupants(c)
	}
	return info
}

// Hint solves the remaining area and suggests a placement for the lowest
// numbered unplaced piece. Pieces already on the grid stay where they are.
func (e *PuzzleEngine) Hint(ctx context.Context) (*Hint, error) {
	e.mu.Lock()
	if e.solved {
		e.mu.Unlock()
		return nil, ErrAlreadySolved
	}
	problem := solver.Problem{Width: e.grid.Width(), Height: e.grid.Height()}
	for _, p := range e.pieces {
		if p.IsPlaced() {
			problem.Filled = append(problem.Filled, e.grid.Claims(p.ID())...)
			continue
		}
		problem.Pieces = append(problem.Pieces, solver.Shape{ID: p.ID(), Offsets: p.BaseOffsets()})
	}
	e.mu.Unlock()

	sol, err := solver.Solve(ctx, problem)
	if err != nil {
		return nil, err
	}

	first := sol.Placements[0]
	return &Hint{
		PieceID:     first.ID,
		Key:         e.config.Pieces[first.ID-1].ID,
		Cell:        first.Anchor,
		Orientation: Orientation{Rotation: first.Rotation.Degrees(), Mirrored: first.Mirrored},
		Cells:       first.Cells,
		Remaining:   len(sol.Placements),
	}, nil
}

// Subscribe registers fn for every puzzle event
func (e *PuzzleEngine) Subscribe(fn func(events.Event)) (unsubscribe func()) {
	return e.bus.Subscribe(fn)
}

// DrainEvents returns and clears the events emitted since the last drain
func (e *PuzzleEngine) DrainEvents() []events.Event {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := e.pending
	e.pending = nil
	return out
}

// GetHistory returns the complete action history
func (e *PuzzleEngine) GetHistory() []ActionEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]ActionEntry{}, e.history...)
}

// GetLastAction returns the last action taken, or nil if there is none
func (e *PuzzleEngine) GetLastAction() *ActionEntry {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.history) == 0 {
		return nil
	}
	last := e.history[len(e.history)-1]
	return &last
}

func (e *PuzzleEngine) record(action string, id grid.PieceID, success bool, message string) {
	entry := ActionEntry{
		Number:    len(e.history) + 1,
		Action:    action,
		PieceID:   id,
		Success:   success,
		Message:   message,
		Timestamp: time.Now().Unix(),
	}
	e.history = append(e.history, entry)
	e.current = append(e.current, entry)
}

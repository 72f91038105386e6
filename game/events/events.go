// Package events carries the notifications a puzzle emits for collaborators
// such as sound, visuals and transports. Nothing in the core depends on a
// listener being attached.
package events

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wricardo/polyfit/game/grid"
)

// Type names a notification
type Type string

const (
	PiecePickedUp     Type = "piece_picked_up"
	PiecePlaced       Type = "piece_placed"
	PieceRotated      Type = "piece_rotated"
	PieceMirrored     Type = "piece_mirrored"
	PlacementRejected Type = "placement_rejected"
	TransformRejected Type = "transform_rejected"
	GridSolved        Type = "grid_solved"
	PuzzleReset       Type = "puzzle_reset"
)

// Event is a single notification
type Event struct {
	ID        uuid.UUID    `json:"id"`
	Type      Type         `json:"type"`
	PieceID   grid.PieceID `json:"piece_id,omitempty"`
	Cells     []grid.Cell  `json:"cells,omitempty"`
	Message   string       `json:"message,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// New builds an event with a fresh ID and the current time
func New(t Type, piece grid.PieceID, message string) Event {
	return Event{
		ID:        uuid.New(),
		Type:      t,
		PieceID:   piece,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// WithCells returns a copy of e carrying cells
func (e Event) WithCells(cells []grid.Cell) Event {
	e.Cells = cells
	return e
}

// Notifier receives events
type Notifier interface {
	Notify(e Event)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(e Event)

// Notify calls f(e)
func (f NotifierFunc) Notify(e Event) { f(e) }

// Emit sends e to n if n is not nil
func Emit(n Notifier, e Event) {
	if n != nil {
		n.Notify(e)
	}
}

// Bus fans events out to subscribers. It is constructed explicitly by the
// owner of a puzzle and handed to whatever emits notifications.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[int]func(Event)
	nextID      int
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{subscribers: make(map[int]func(Event))}
}

// Subscribe registers fn and returns a function that removes it
func (b *Bus) Subscribe(fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.subscribers[id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subscribers, id)
	}
}

// Notify publishes e to every subscriber in subscription order
func (b *Bus) Notify(e Event) {
	b.mu.RLock()
	ids := make([]int, 0, len(b.subscribers))
	for id := range b.subscribers {
		ids = append(ids, id)
	}
	b.mu.RUnlock()

	sort.Ints(ids)
	for _, id := range ids {
		b.mu.RLock()
		fn, ok := b.subscribers[id]
		b.mu.RUnlock()
		if ok {
			fn(e)
		}
	}
}

// Len returns the number of subscribers
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

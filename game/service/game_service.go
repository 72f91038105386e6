package service

import (
	"context"
	"errors"
	"time"

	"github.com/wricardo/polyfit/game/engine"
	"github.com/wricardo/polyfit/game/geometry"
	"github.com/wricardo/polyfit/game/grid"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrConfigNotFound  = errors.New("configuration not found")
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrInvalidInput    = errors.New("invalid input")
)

// PuzzleService defines all puzzle-related operations
type PuzzleService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Piece Interaction
	Pickup(ctx context.Context, sessionID, pieceRef string, at geometry.Vec) (*ActionResult, error)
	PickupAt(ctx context.Context, sessionID string, at geometry.Vec) (*ActionResult, error)
	Drag(ctx context.Context, sessionID string, at geometry.Vec) (*ActionResult, error)
	Release(ctx context.Context, sessionID string) (*ActionResult, error)
	Rotate(ctx context.Context, sessionID, pieceRef string) (*ActionResult, error)
	Mirror(ctx context.Context, sessionID, pieceRef string) (*ActionResult, error)
	Place(ctx context.Context, sessionID, pieceRef string, cell grid.Cell, orient *engine.Orientation) (*ActionResult, error)
	Tick(ctx context.Context, sessionID string, dt float64) (*ActionResult, error)
	TickAll(ctx context.Context, dt float64) ([]*TickReport, error)
	Reset(ctx context.Context, sessionID string) (*engine.PuzzleState, error)

	// Puzzle State
	GetPuzzleState(ctx context.Context, sessionID string) (*engine.PuzzleState, error)
	GetHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)
	DescribeCell(ctx context.Context, sessionID string, cell grid.Cell) (*engine.CellInfo, error)
	Hint(ctx context.Context, sessionID string) (*engine.Hint, error)
	Audit(ctx context.Context) (*AuditReport, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.PuzzleConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.PuzzleConfig) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, config *engine.PuzzleConfig) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id string, config *engine.PuzzleConfig) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// ConfigManager handles puzzle configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.PuzzleConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.PuzzleConfig
	SaveConfig(name string, config *engine.PuzzleConfig) error
}

// Session represents an active puzzle session
type Session struct {
	ID             string
	Engine         *engine.PuzzleEngine
	Config         *engine.PuzzleConfig
	CreatedAt      time.Time
	LastAccessedAt time.Time
}

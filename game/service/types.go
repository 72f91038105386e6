package service

import (
	"time"

	"github.com/wricardo/polyfit/game/engine"
	"github.com/wricardo/polyfit/game/events"
	"github.com/wricardo/polyfit/game/grid"
)

// SessionInfo provides information about a puzzle session
type SessionInfo struct {
	ID             string               `json:"id"`
	ConfigName     string               `json:"config_name"`
	CreatedAt      time.Time            `json:"created_at"`
	LastAccessedAt time.Time            `json:"last_accessed_at"`
	PuzzleState    *engine.PuzzleState  `json:"puzzle_state"`
	PuzzleConfig   *engine.PuzzleConfig `json:"puzzle_config"`
}

// ActionResult contains the result of a single piece interaction.
// Recoverable failures such as an illegal transform or a rejected placement
// come back with Success false and the reason in Message.
type ActionResult struct {
	Success bool                `json:"success"`
	Action  string              `json:"action"`
	PieceID grid.PieceID        `json:"piece_id,omitempty"`
	Message string              `json:"message"`
	Outcome string              `json:"outcome,omitempty"`
	Events  []events.Event      `json:"events,omitempty"`
	State   *engine.PuzzleState `json:"state"`
	Solved  bool                `json:"solved"`
}

// TickReport describes what a frame tick did to one session
type TickReport struct {
	SessionID string              `json:"session_id"`
	Outcome   string              `json:"outcome"`
	Events    []events.Event      `json:"events,omitempty"`
	State     *engine.PuzzleState `json:"state,omitempty"`
}

// AuditReport lists integrity violations found across sessions
type AuditReport struct {
	Checked    int               `json:"checked"`
	Violations map[string]string `json:"violations,omitempty"`
	CheckedAt  time.Time         `json:"checked_at"`
}

// Healthy reports whether the audit found nothing wrong
func (r *AuditReport) Healthy() bool {
	return len(r.Violations) == 0
}

// HistoryOptions configures action history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated action history
type HistoryResponse struct {
	Actions      []engine.ActionEntry `json:"actions"`
	TotalActions int                  `json:"total_actions"`
	Page         int                  `json:"page"`
	PageSize     int                  `json:"page_size"`
	TotalPages   int                  `json:"total_pages"`
	HasNext      bool                 `json:"has_next"`
	HasPrevious  bool                 `json:"has_previous"`
}

// ConfigInfo provides information about a puzzle configuration
type ConfigInfo struct {
	Filename    string `json:"filename"`
	ConfigID    string `json:"config_id"` // The identifier to use for session creation
	Name        string `json:"name"`      // Display name
	Description string `json:"description"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Pieces      int    `json:"pieces"`
	Format      string `json:"format"`
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/polyfit/game/engine"
	"github.com/wricardo/polyfit/game/events"
	"github.com/wricardo/polyfit/game/geometry"
	"github.com/wricardo/polyfit/game/grid"
	"github.com/wricardo/polyfit/game/piece"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// puzzleServiceImpl implements the PuzzleService interface
type puzzleServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	mu       sync.RWMutex
}

// NewPuzzleService creates a new puzzle service instance
func NewPuzzleService(sessions SessionManager, configs ConfigManager) PuzzleService {
	return &puzzleServiceImpl{
		sessions: sessions,
		configs:  configs,
	}
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *puzzleServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "default"
	}
	return configName
}

func (s *puzzleServiceImpl) info(sess *Session, configID string) *SessionInfo {
	if configID == "" {
		configID = s.getConfigID(sess.Config.Name)
	}
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     configID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		PuzzleState:    sess.Engine.GetState(),
		PuzzleConfig:   sess.Config,
	}
}

// CreateSession creates a new puzzle session
func (s *puzzleServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.PuzzleConfig
	var err error
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			if errors.Is(err, ErrConfigNotFound) {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("%w: config '%s' not found. Available configs: %v", ErrConfigNotFound, configName, configIDs)
				}
				return nil, fmt.Errorf("%w: config '%s' not found. Use /api/configs to list available configurations", ErrConfigNotFound, configName)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	// Let session manager generate a proper 4-character ID
	sess, err := s.sessions.Create("", config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.Printf("[SESSION] created %s with config %q", sess.ID, config.Name)
	return s.info(sess, configName), nil
}

// GetSession retrieves session information
func (s *puzzleServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return s.info(sess, ""), nil
}

// ListSessions returns all active sessions ordered by creation time
func (s *puzzleServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})

	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.info(sess, ""))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *puzzleServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	log.Printf("[SESSION] deleted %s", sessionID)
	return nil
}

// Pickup starts dragging a piece named by its config id or number
func (s *puzzleServiceImpl) Pickup(ctx context.Context, sessionID, pieceRef string, at geometry.Vec) (*ActionResult, error) {
	return s.withPiece(sessionID, pieceRef, engine.ActionPickup, func(eng *engine.PuzzleEngine, id grid.PieceID) (string, error) {
		return "", eng.Pickup(id, at)
	})
}

// PickupAt picks up whatever piece is under the input position
func (s *puzzleServiceImpl) PickupAt(ctx context.Context, sessionID string, at geometry.Vec) (*ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	id, err := sess.Engine.PickupAt(at)
	return s.result(sess, engine.ActionPickup, id, "", err)
}

// Drag moves the dragged piece
func (s *puzzleServiceImpl) Drag(ctx context.Context, sessionID string, at geometry.Vec) (*ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	id := activePiece(sess.Engine)
	return s.result(sess, "drag", id, "", sess.Engine.Drag(at))
}

// Release drops the dragged piece. A release that starts a snap is settled
// by later ticks.
func (s *puzzleServiceImpl) Release(ctx context.Context, sessionID string) (*ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	id := activePiece(sess.Engine)
	outcome, err := sess.Engine.Release()
	return s.result(sess, engine.ActionRelease, id, string(outcome), err)
}

// Rotate turns a piece a quarter turn
func (s *puzzleServiceImpl) Rotate(ctx context.Context, sessionID, pieceRef string) (*ActionResult, error) {
	return s.withPiece(sessionID, pieceRef, engine.ActionRotate, func(eng *engine.PuzzleEngine, id grid.PieceID) (string, error) {
		return "", eng.Rotate(id)
	})
}

// Mirror flips a piece horizontally
func (s *puzzleServiceImpl) Mirror(ctx context.Context, sessionID, pieceRef string) (*ActionResult, error) {
	return s.withPiece(sessionID, pieceRef, engine.ActionMirror, func(eng *engine.PuzzleEngine, id grid.PieceID) (string, error) {
		return "", eng.Mirror(id)
	})
}

// Place moves a piece onto a cell in one call
func (s *puzzleServiceImpl) Place(ctx context.Context, sessionID, pieceRef string, cell grid.Cell, orient *engine.Orientation) (*ActionResult, error) {
	return s.withPiece(sessionID, pieceRef, engine.ActionPlace, func(eng *engine.PuzzleEngine, id grid.PieceID) (string, error) {
		if err := eng.Place(id, cell, orient); err != nil {
			return "", err
		}
		return string(piece.TickPlaced), nil
	})
}

// Tick advances a session's snapping piece by dt seconds
func (s *puzzleServiceImpl) Tick(ctx context.Context, sessionID string, dt float64) (*ActionResult, error) {
	if dt < 0 {
		return nil, fmt.Errorf("%w: dt must not be negative, got %v", ErrInvalidInput, dt)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	id := activePiece(sess.Engine)
	outcome, err := sess.Engine.Tick(dt)
	return s.result(sess, "tick", id, string(outcome), err)
}

// TickAll advances every session by dt and reports the sessions whose
// pieces moved or emitted events
func (s *puzzleServiceImpl) TickAll(ctx context.Context, dt float64) ([]*TickReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var reports []*TickReport
	for _, sess := range s.sessions.List() {
		if err := ctx.Err(); err != nil {
			return reports, err
		}

		outcome, err := sess.Engine.Tick(dt)
		if err != nil && !isRecoverable(err) {
			log.Printf("[TICK] session %s: %v", sess.ID, err)
		}
		evs := sess.Engine.DrainEvents()
		if outcome == piece.TickNone && len(evs) == 0 {
			continue
		}
		reports = append(reports, &TickReport{
			SessionID: sess.ID,
			Outcome:   string(outcome),
			Events:    evs,
			State:     sess.Engine.GetState(),
		})
	}
	return reports, nil
}

// Reset puts every piece back at its start
func (s *puzzleServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.PuzzleState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	state := sess.Engine.Reset()
	sess.Engine.DrainEvents()
	return state, nil
}

// GetPuzzleState returns the current puzzle state
func (s *puzzleServiceImpl) GetPuzzleState(ctx context.Context, sessionID string) (*engine.PuzzleState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Engine.GetState(), nil
}

// GetHistory returns paginated action history
func (s *puzzleServiceImpl) GetHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 {
		opts.Limit = DefaultHistoryLimit
	}
	if opts.Limit > MaxHistoryLimit {
		opts.Limit = MaxHistoryLimit
	}
	if opts.Order != "desc" {
		opts.Order = "asc"
	}

	history := sess.Engine.GetHistory()
	total := len(history)
	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	actions := []engine.ActionEntry{}
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			actions = append(actions, history[i])
		}
	} else if start < total {
		actions = append(actions, history[start:end]...)
	}

	return &HistoryResponse{
		Actions:      actions,
		TotalActions: total,
		Page:         opts.Page,
		PageSize:     opts.Limit,
		TotalPages:   totalPages,
		HasNext:      opts.Page < totalPages,
		HasPrevious:  opts.Page > 1,
	}, nil
}

// DescribeCell reports which pieces occupy a cell
func (s *puzzleServiceImpl) DescribeCell(ctx context.Context, sessionID string, cell grid.Cell) (*engine.CellInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	info := sess.Engine.DescribeCell(cell)
	return &info, nil
}

// Hint suggests the next placement. The search runs without holding the
// service lock.
func (s *puzzleServiceImpl) Hint(ctx context.Context, sessionID string) (*engine.Hint, error) {
	s.mu.RLock()
	sess, err := s.session(sessionID)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	return sess.Engine.Hint(ctx)
}

// Audit verifies every session without changing anything
func (s *puzzleServiceImpl) Audit(ctx context.Context) (*AuditReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report := &AuditReport{CheckedAt: time.Now()}
	for _, sess := range s.sessions.List() {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Checked++
		if err := sess.Engine.Verify(); err != nil {
			if report.Violations == nil {
				report.Violations = make(map[string]string)
			}
			report.Violations[sess.ID] = err.Error()
		}
	}
	return report, nil
}

// ListConfigs returns available puzzle configurations
func (s *puzzleServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific puzzle configuration
func (s *puzzleServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.PuzzleConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a puzzle configuration to disk
func (s *puzzleServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.PuzzleConfig) error {
	return s.configs.SaveConfig(configName, config)
}

// session looks a session up and marks it accessed. Callers hold s.mu.
func (s *puzzleServiceImpl) session(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

func (s *puzzleServiceImpl) withPiece(sessionID, pieceRef, action string, op func(*engine.PuzzleEngine, grid.PieceID) (string, error)) (*ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	id, err := sess.Engine.Resolve(strings.TrimSpace(pieceRef))
	if err != nil {
		return nil, err
	}
	outcome, err := op(sess.Engine, id)
	return s.result(sess, action, id, outcome, err)
}

// result turns an engine call into an ActionResult. Recoverable failures
// become unsuccessful results; anything else is returned as an error.
func (s *puzzleServiceImpl) result(sess *Session, action string, id grid.PieceID, outcome string, err error) (*ActionResult, error) {
	if err != nil && !isRecoverable(err) {
		return nil, err
	}

	state := sess.Engine.GetState()
	res := &ActionResult{
		Success: err == nil,
		Action:  action,
		PieceID: id,
		Outcome: outcome,
		Events:  sess.Engine.DrainEvents(),
		State:   state,
		Solved:  state.Solved,
		Message: state.Message,
	}
	if err != nil {
		res.Message = err.Error()
	}
	if solvedIn(res.Events) {
		log.Printf("[PUZZLE] session %s solved", sess.ID)
	}
	return res, nil
}

// isRecoverable reports whether err is an ordinary game failure rather than
// a bad request
func isRecoverable(err error) bool {
	return errors.Is(err, piece.ErrIllegalTransform) ||
		errors.Is(err, piece.ErrInvalidState) ||
		errors.Is(err, grid.ErrInvalidPlacement) ||
		errors.Is(err, engine.ErrNoPieceAt)
}

func activePiece(eng *engine.PuzzleEngine) grid.PieceID {
	if id := eng.GetState().ActivePiece; id != nil {
		return *id
	}
	return 0
}

func solvedIn(evs []events.Event) bool {
	for _, ev := range evs {
		if ev.Type == events.GridSolved {
			return true
		}
	}
	return false
}

package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/wricardo/polyfit/game/engine"
	"github.com/wricardo/polyfit/game/events"
	"github.com/wricardo/polyfit/game/geometry"
	"github.com/wricardo/polyfit/game/grid"
	"github.com/wricardo/polyfit/game/piece"
	"github.com/wricardo/polyfit/game/service"
)

// MockSessionManager implements service.SessionManager for testing
type MockSessionManager struct {
	sessions map[string]*service.Session
}

func NewMockSessionManager() *MockSessionManager {
	return &MockSessionManager{
		sessions: make(map[string]*service.Session),
	}
}

func (m *MockSessionManager) Create(id string, config *engine.PuzzleConfig) (*service.Session, error) {
	// Generate ID if empty (mimics real session manager behavior)
	if id == "" {
		id = fmt.Sprintf("test_%d", len(m.sessions)+1)
	}

	if _, exists := m.sessions[id]; exists {
		return nil, errors.New("session already exists")
	}

	eng, err := engine.NewEngine(config)
	if err != nil {
		return nil, err
	}

	session := &service.Session{
		ID:             id,
		Engine:         eng,
		Config:         config,
		CreatedAt:      time.Now(),
		LastAccessedAt: time.Now(),
	}

	m.sessions[id] = session
	return session, nil
}

func (m *MockSessionManager) Get(id string) (*service.Session, error) {
	session, exists := m.sessions[id]
	if !exists {
		return nil, service.ErrSessionNotFound
	}
	return session, nil
}

func (m *MockSessionManager) GetOrCreate(id string, config *engine.PuzzleConfig) (*service.Session, error) {
	if session, exists := m.sessions[id]; exists {
		return session, nil
	}
	return m.Create(id, config)
}

func (m *MockSessionManager) List() []*service.Session {
	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}

func (m *MockSessionManager) Delete(id string) error {
	if _, exists := m.sessions[id]; !exists {
		return service.ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *MockSessionManager) UpdateLastAccessed(id string) error {
	if session, exists := m.sessions[id]; exists {
		session.LastAccessedAt = time.Now()
		return nil
	}
	return service.ErrSessionNotFound
}

// MockConfigManager implements service.ConfigManager for testing
type MockConfigManager struct {
	configs map[string]*engine.PuzzleConfig
	saved   map[string]*engine.PuzzleConfig
}

func createTinyConfig() *engine.PuzzleConfig {
	return &engine.PuzzleConfig{
		Name:        "test",
		Description: "Two dominoes on a 2x2 board",
		Width:       2,
		Height:      2,
		Messages:    engine.Messages{Welcome: "Welcome to test!", Solved: "Test solved!"},
		Pieces: []engine.PieceConfig{
			{ID: "A", Shape: []string{"##"}},
			{ID: "B", Shape: []string{"##"}},
		},
	}
}

func NewMockConfigManager() *MockConfigManager {
	defaultConfig := createTinyConfig()

	return &MockConfigManager{
		configs: map[string]*engine.PuzzleConfig{
			"test":    defaultConfig,
			"classic": engine.DefaultPuzzleConfig(),
		},
		saved: make(map[string]*engine.PuzzleConfig),
	}
}

func (m *MockConfigManager) LoadConfig(name string) (*engine.PuzzleConfig, error) {
	config, exists := m.configs[name]
	if !exists {
		return nil, service.ErrConfigNotFound
	}
	return config, nil
}

func (m *MockConfigManager) ListConfigs() ([]*service.ConfigInfo, error) {
	result := make([]*service.ConfigInfo, 0, len(m.configs))
	for name, config := range m.configs {
		result = append(result, &service.ConfigInfo{
			Filename:    name + ".json",
			ConfigID:    name,
			Name:        config.Name,
			Description: config.Description,
			Width:       config.Width,
			Height:      config.Height,
			Pieces:      len(config.Pieces),
		})
	}
	return result, nil
}

func (m *MockConfigManager) GetDefault() *engine.PuzzleConfig {
	return m.configs["test"]
}

func (m *MockConfigManager) SaveConfig(name string, config *engine.PuzzleConfig) error {
	if err := engine.ValidatePuzzleConfig(config); err != nil {
		return err
	}
	m.saved[name] = config
	return nil
}

func newTestService(t *testing.T) (service.PuzzleService, string) {
	t.Helper()
	svc := service.NewPuzzleService(NewMockSessionManager(), NewMockConfigManager())
	info, err := svc.CreateSession(context.Background(), "test")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	return svc, info.ID
}

func hasEvent(evs []events.Event, typ events.Type) bool {
	for _, ev := range evs {
		if ev.Type == typ {
			return true
		}
	}
	return false
}

// Test cases
func TestPuzzleService_CreateSession(t *testing.T) {
	ctx := context.Background()
	svc := service.NewPuzzleService(NewMockSessionManager(), NewMockConfigManager())

	tests := []struct {
		name       string
		configName string
		wantErr    bool
		wantPieces int
	}{
		{
			name:       "create with default config",
			configName: "",
			wantPieces: 2,
		},
		{
			name:       "create with specific config",
			configName: "classic",
			wantPieces: 7,
		},
		{
			name:       "create with invalid config",
			configName: "nonexistent",
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := svc.CreateSession(ctx, tt.configName)
			if (err != nil) != tt.wantErr {
				t.Errorf("CreateSession() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if session == nil {
				t.Fatal("CreateSession() returned nil session")
			}
			if got := session.PuzzleState.TotalPieces; got != tt.wantPieces {
				t.Errorf("Expected %d pieces, got %d", tt.wantPieces, got)
			}
		})
	}
}

func TestPuzzleService_CreateSessionListsAvailableConfigs(t *testing.T) {
	svc := service.NewPuzzleService(NewMockSessionManager(), NewMockConfigManager())

	_, err := svc.CreateSession(context.Background(), "nonexistent")
	if !errors.Is(err, service.ErrConfigNotFound) {
		t.Fatalf("Expected ErrConfigNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "Available configs") || !strings.Contains(err.Error(), "classic") {
		t.Errorf("Expected available configs in error, got %q", err.Error())
	}
}

func TestPuzzleService_ConfigIDIsReported(t *testing.T) {
	ctx := context.Background()
	svc, id := newTestService(t)

	info, err := svc.GetSession(ctx, id)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if info.ConfigName != "test" {
		t.Errorf("Expected config id 'test', got '%s'", info.ConfigName)
	}
	if info.PuzzleState.Message != "Welcome to test!" {
		t.Errorf("Expected welcome message, got '%s'", info.PuzzleState.Message)
	}
}

func TestPuzzleService_UnknownSession(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if _, err := svc.GetSession(ctx, "nope"); !errors.Is(err, service.ErrSessionNotFound) {
		t.Errorf("GetSession: expected ErrSessionNotFound, got %v", err)
	}
	if _, err := svc.Pickup(ctx, "nope", "A", geometry.Vec{}); !errors.Is(err, service.ErrSessionNotFound) {
		t.Errorf("Pickup: expected ErrSessionNotFound, got %v", err)
	}
	if _, err := svc.Tick(ctx, "nope", 0.1); !errors.Is(err, service.ErrSessionNotFound) {
		t.Errorf("Tick: expected ErrSessionNotFound, got %v", err)
	}
	if err := svc.DeleteSession(ctx, "nope"); !errors.Is(err, service.ErrSessionNotFound) {
		t.Errorf("DeleteSession: expected ErrSessionNotFound, got %v", err)
	}
}

func TestPuzzleService_UnknownPiece(t *testing.T) {
	ctx := context.Background()
	svc, id := newTestService(t)

	_, err := svc.Rotate(ctx, id, "Z")
	if !errors.Is(err, engine.ErrPieceNotFound) {
		t.Errorf("Expected ErrPieceNotFound, got %v", err)
	}
}

func TestPuzzleService_DragReleaseTick(t *testing.T) {
	ctx := context.Background()
	svc, id := newTestService(t)

	state, _ := svc.GetPuzzleState(ctx, id)
	start := state.Pieces[0].Anchor

	res, err := svc.Pickup(ctx, id, "A", start)
	if err != nil {
		t.Fatalf("Pickup() error = %v", err)
	}
	if !res.Success || res.PieceID != 1 {
		t.Fatalf("Expected successful pickup of piece 1, got %+v", res)
	}
	if !hasEvent(res.Events, events.PiecePickedUp) {
		t.Error("Expected piece_picked_up event")
	}

	res, err = svc.Drag(ctx, id, geometry.V(0.2, 0.1))
	if err != nil || !res.Success {
		t.Fatalf("Drag() failed: %v %+v", err, res)
	}

	res, err = svc.Release(ctx, id)
	if err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if res.Outcome != string(piece.ReleaseSnapping) {
		t.Errorf("Expected snapping outcome, got %s", res.Outcome)
	}

	outcome := ""
	for i := 0; i < 200; i++ {
		res, err = svc.Tick(ctx, id, 1.0/30)
		if err != nil {
			t.Fatalf("Tick() error = %v", err)
		}
		outcome = res.Outcome
		if outcome != string(piece.TickMoving) {
			break
		}
	}
	if outcome != string(piece.TickPlaced) {
		t.Fatalf("Expected piece to be placed, got %s", outcome)
	}
	if res.State.Rows[0] != "AA" {
		t.Errorf("Expected top row 'AA', got %q", res.State.Rows[0])
	}
}

func TestPuzzleService_RecoverableFailures(t *testing.T) {
	ctx := context.Background()
	svc, id := newTestService(t)

	// Rotating an idle piece is refused but is not an error
	res, err := svc.Rotate(ctx, id, "A")
	if err != nil {
		t.Fatalf("Rotate() error = %v", err)
	}
	if res.Success {
		t.Error("Expected rotate of idle piece to fail")
	}

	// Mirror at a quarter turn is refused
	if _, err := svc.Pickup(ctx, id, "A", geometry.Vec{}); err != nil {
		t.Fatalf("Pickup() error = %v", err)
	}
	if res, _ = svc.Rotate(ctx, id, "A"); !res.Success {
		t.Fatalf("Expected rotate while dragging to succeed: %s", res.Message)
	}
	res, err = svc.Mirror(ctx, id, "A")
	if err != nil {
		t.Fatalf("Mirror() error = %v", err)
	}
	if res.Success {
		t.Error("Expected mirror at 90 degrees to fail")
	}
	if !hasEvent(res.Events, events.TransformRejected) {
		t.Error("Expected transform_rejected event")
	}

	// Another piece is busy while A is held
	if _, err := svc.Pickup(ctx, id, "B", geometry.Vec{}); !errors.Is(err, engine.ErrPieceBusy) {
		t.Errorf("Expected ErrPieceBusy, got %v", err)
	}
}

func TestPuzzleService_NoActivePiece(t *testing.T) {
	ctx := context.Background()
	svc, id := newTestService(t)

	if _, err := svc.Drag(ctx, id, geometry.Vec{}); !errors.Is(err, engine.ErrNoActivePiece) {
		t.Errorf("Drag: expected ErrNoActivePiece, got %v", err)
	}
	if _, err := svc.Release(ctx, id); !errors.Is(err, engine.ErrNoActivePiece) {
		t.Errorf("Release: expected ErrNoActivePiece, got %v", err)
	}

	res, err := svc.PickupAt(ctx, id, geometry.V(-50, -50))
	if err != nil {
		t.Fatalf("PickupAt() error = %v", err)
	}
	if res.Success {
		t.Error("Expected pickup on empty space to fail")
	}
}

func TestPuzzleService_PlaceSolves(t *testing.T) {
	ctx := context.Background()
	svc, id := newTestService(t)

	res, err := svc.Place(ctx, id, "A", grid.Cell{X: 0, Y: 0}, nil)
	if err != nil || !res.Success {
		t.Fatalf("Place(A) failed: %v %+v", err, res)
	}
	if res.Solved {
		t.Error("Puzzle should not be solved yet")
	}

	// Overlapping placement is rejected without error
	res, err = svc.Place(ctx, id, "B", grid.Cell{X: 0, Y: 0}, nil)
	if err != nil {
		t.Fatalf("Place(B) error = %v", err)
	}
	if res.Success {
		t.Error("Expected overlapping placement to fail")
	}

	res, err = svc.Place(ctx, id, "2", grid.Cell{X: 0, Y: 1}, &engine.Orientation{Rotation: 180})
	if err != nil || !res.Success {
		t.Fatalf("Place(2) failed: %v %+v", err, res)
	}
	if !res.Solved {
		t.Error("Expected puzzle to be solved")
	}
	if !hasEvent(res.Events, events.GridSolved) {
		t.Error("Expected grid_solved event")
	}
	if res.Message != "Test solved!" {
		t.Errorf("Expected solved message, got %q", res.Message)
	}

	if _, err := svc.Hint(ctx, id); !errors.Is(err, engine.ErrAlreadySolved) {
		t.Errorf("Expected ErrAlreadySolved, got %v", err)
	}
}

func TestPuzzleService_BadOrientation(t *testing.T) {
	ctx := context.Background()
	svc, id := newTestService(t)

	_, err := svc.Place(ctx, id, "A", grid.Cell{}, &engine.Orientation{Rotation: 45})
	if !errors.Is(err, engine.ErrBadOrientation) {
		t.Errorf("Expected ErrBadOrientation, got %v", err)
	}
}

func TestPuzzleService_Hint(t *testing.T) {
	ctx := context.Background()
	svc, id := newTestService(t)

	for i := 0; i < 2; i++ {
		hint, err := svc.Hint(ctx, id)
		if err != nil {
			t.Fatalf("Hint() error = %v", err)
		}
		res, err := svc.Place(ctx, id, hint.Key, hint.Cell, &hint.Orientation)
		if err != nil || !res.Success {
			t.Fatalf("Placing hint %s failed: %v %+v", hint, err, res)
		}
	}

	state, _ := svc.GetPuzzleState(ctx, id)
	if !state.Solved {
		t.Error("Expected hints to solve the puzzle")
	}
}

func TestPuzzleService_TickAll(t *testing.T) {
	ctx := context.Background()
	svc, first := newTestService(t)
	second, err := svc.CreateSession(ctx, "test")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	reports, err := svc.TickAll(ctx, 1.0/30)
	if err != nil {
		t.Fatalf("TickAll() error = %v", err)
	}
	if len(reports) != 0 {
		t.Errorf("Expected idle sessions to produce no reports, got %d", len(reports))
	}

	state, _ := svc.GetPuzzleState(ctx, first)
	svc.Pickup(ctx, first, "A", state.Pieces[0].Anchor)
	svc.Drag(ctx, first, geometry.V(0, 0))
	svc.Release(ctx, first)

	var placed bool
	for i := 0; i < 200 && !placed; i++ {
		reports, err = svc.TickAll(ctx, 1.0/30)
		if err != nil {
			t.Fatalf("TickAll() error = %v", err)
		}
		for _, r := range reports {
			if r.SessionID == second.ID {
				t.Fatal("Idle session should not be reported")
			}
			if r.Outcome == string(piece.TickPlaced) {
				placed = true
				if !hasEvent(r.Events, events.PiecePlaced) {
					t.Error("Expected piece_placed event in tick report")
				}
			}
		}
	}
	if !placed {
		t.Error("Expected TickAll to settle the released piece")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := svc.TickAll(cancelled, 0.1); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestPuzzleService_Audit(t *testing.T) {
	ctx := context.Background()
	svc, id := newTestService(t)
	svc.Place(ctx, id, "A", grid.Cell{X: 0, Y: 0}, nil)

	report, err := svc.Audit(ctx)
	if err != nil {
		t.Fatalf("Audit() error = %v", err)
	}
	if report.Checked != 1 {
		t.Errorf("Expected 1 session checked, got %d", report.Checked)
	}
	if !report.Healthy() {
		t.Errorf("Expected no violations, got %v", report.Violations)
	}
}

func TestPuzzleService_GetHistory(t *testing.T) {
	ctx := context.Background()
	svc, id := newTestService(t)

	// Generate history: pickup, rotate, rotate, rotate, rotate
	svc.Pickup(ctx, id, "A", geometry.Vec{})
	for i := 0; i < 4; i++ {
		svc.Rotate(ctx, id, "A")
	}

	tests := []struct {
		name      string
		sessionID string
		opts      service.HistoryOptions
		wantErr   bool
		wantLen   int
		wantFirst string
	}{
		{
			name:      "default options",
			sessionID: id,
			opts:      service.HistoryOptions{},
			wantLen:   5,
			wantFirst: engine.ActionPickup,
		},
		{
			name:      "with pagination",
			sessionID: id,
			opts:      service.HistoryOptions{Page: 3, Limit: 2, Order: "asc"},
			wantLen:   1,
			wantFirst: engine.ActionRotate,
		},
		{
			name:      "descending order",
			sessionID: id,
			opts:      service.HistoryOptions{Page: 1, Limit: 10, Order: "desc"},
			wantLen:   5,
			wantFirst: engine.ActionRotate,
		},
		{
			name:      "page past the end",
			sessionID: id,
			opts:      service.HistoryOptions{Page: 9, Limit: 10},
			wantLen:   0,
		},
		{
			name:      "invalid session",
			sessionID: "nonexistent",
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.GetHistory(ctx, tt.sessionID, tt.opts)
			if (err != nil) != tt.wantErr {
				t.Errorf("GetHistory() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if result.Actions == nil {
				t.Fatal("GetHistory() returned nil actions slice")
			}
			if len(result.Actions) != tt.wantLen {
				t.Fatalf("Expected %d actions, got %d", tt.wantLen, len(result.Actions))
			}
			if tt.wantLen > 0 && result.Actions[0].Action != tt.wantFirst {
				t.Errorf("Expected first action %s, got %s", tt.wantFirst, result.Actions[0].Action)
			}
			if result.TotalActions != 5 {
				t.Errorf("Expected 5 total actions, got %d", result.TotalActions)
			}
		})
	}
}

func TestPuzzleService_ListSessions(t *testing.T) {
	ctx := context.Background()
	svc := service.NewPuzzleService(NewMockSessionManager(), NewMockConfigManager())

	for i := 0; i < 3; i++ {
		_, err := svc.CreateSession(ctx, "test")
		if err != nil {
			t.Fatalf("Failed to create session %d: %v", i, err)
		}
	}

	sessionList, err := svc.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}

	if len(sessionList) != 3 {
		t.Errorf("ListSessions() returned %d sessions, want 3", len(sessionList))
	}
}

func TestPuzzleService_Reset(t *testing.T) {
	ctx := context.Background()
	svc, id := newTestService(t)

	if _, err := svc.Place(ctx, id, "A", grid.Cell{X: 0, Y: 0}, nil); err != nil {
		t.Fatalf("Failed to place: %v", err)
	}

	state, err := svc.Reset(ctx, id)
	if err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if state.OccupiedCells != 0 {
		t.Errorf("Expected empty grid after reset, got %d occupied cells", state.OccupiedCells)
	}
	if state.CurrentActionsCount != 1 {
		t.Errorf("Expected only the reset in current actions, got %d", state.CurrentActionsCount)
	}
	if state.TotalActions < 2 {
		t.Errorf("Expected cumulative history to survive reset, got %d", state.TotalActions)
	}
}

func TestPuzzleService_DescribeCell(t *testing.T) {
	ctx := context.Background()
	svc, id := newTestService(t)
	svc.Place(ctx, id, "B", grid.Cell{X: 0, Y: 1}, nil)

	info, err := svc.DescribeCell(ctx, id, grid.Cell{X: 1, Y: 1})
	if err != nil {
		t.Fatalf("DescribeCell() error = %v", err)
	}
	if len(info.Occupants) != 1 || info.Occupants[0] != 2 {
		t.Errorf("Expected cell to hold piece 2, got %v", info.Occupants)
	}
}

func TestPuzzleService_SaveConfig(t *testing.T) {
	ctx := context.Background()
	configs := NewMockConfigManager()
	svc := service.NewPuzzleService(NewMockSessionManager(), configs)

	if err := svc.SaveConfig(ctx, "copy", createTinyConfig()); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}
	if configs.saved["copy"] == nil {
		t.Error("Expected config to be saved")
	}

	bad := createTinyConfig()
	bad.Pieces = nil
	if err := svc.SaveConfig(ctx, "bad", bad); !errors.Is(err, engine.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

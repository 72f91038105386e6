package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/wricardo/polyfit/game/engine"
	"github.com/wricardo/polyfit/game/events"
	"github.com/wricardo/polyfit/game/geometry"
	"github.com/wricardo/polyfit/game/grid"
	"github.com/wricardo/polyfit/game/piece"
	"github.com/wricardo/polyfit/game/service"
	"github.com/wricardo/polyfit/game/solver"
	"github.com/wricardo/polyfit/metrics"
	"github.com/wricardo/polyfit/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.PuzzleService
	hub     *websocket.Hub
	metrics *metrics.Collector
	router  *mux.Router
}

// NewServer creates a new API server. hub may be nil; a nil collector is
// replaced by a fresh one.
func NewServer(puzzleService service.PuzzleService, hub *websocket.Hub, collector *metrics.Collector) *Server {
	if collector == nil {
		collector = metrics.NewCollector()
	}
	s := &Server{
		service: puzzleService,
		hub:     hub,
		metrics: collector,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(s.recordStatus)

	api := s.router.PathPrefix("/api").Subrouter()

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	// Unified sessions for multi-session view (must be before {id} pattern)
	api.HandleFunc("/sessions/unified", s.handleUnifiedSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Puzzle operations
	api.HandleFunc("/sessions/{id}/state", s.handleGetPuzzleState).Methods("GET")
	api.HandleFunc("/sessions/{id}/pickup", s.handlePickupAt).Methods("POST")
	api.HandleFunc("/sessions/{id}/drag", s.handleDrag).Methods("POST")
	api.HandleFunc("/sessions/{id}/release", s.handleRelease).Methods("POST")
	api.HandleFunc("/sessions/{id}/pieces/{piece}/pickup", s.handlePickup).Methods("POST")
	api.HandleFunc("/sessions/{id}/pieces/{piece}/rotate", s.handleRotate).Methods("POST")
	api.HandleFunc("/sessions/{id}/pieces/{piece}/mirror", s.handleMirror).Methods("POST")
	api.HandleFunc("/sessions/{id}/pieces/{piece}/place", s.handlePlace).Methods("POST")
	api.HandleFunc("/sessions/{id}/tick", s.handleTick).Methods("POST")
	api.HandleFunc("/sessions/{id}/reset", s.handleReset).Methods("POST")
	api.HandleFunc("/sessions/{id}/history", s.handleGetHistory).Methods("GET")
	api.HandleFunc("/sessions/{id}/hint", s.handleHint).Methods("GET")
	api.HandleFunc("/sessions/{id}/cells/{x}/{y}", s.handleDescribeCell).Methods("GET")

	// Configuration
	api.HandleFunc("/configs", s.handleListConfigs).Methods("GET")
	api.HandleFunc("/configs", s.handleCreateConfig).Methods("POST")
	api.HandleFunc("/configs/{name}", s.handleGetConfig).Methods("GET")

	// Operations
	api.HandleFunc("/audit", s.handleAudit).Methods("GET")
	api.HandleFunc("/metrics", s.metrics.Handler()).Methods("GET")
	s.router.HandleFunc("/metrics", s.metrics.PrometheusHandler()).Methods("GET")
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Static files (if needed)
	s.router.PathPrefix("/").Handler(http.FileServer(http.Dir("./static/")))
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// statusRecorder captures the response status for metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// recordStatus counts responses by status class. WebSocket upgrades are
// passed through untouched since they need the raw ResponseWriter.
func (s *Server) recordStatus(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			next.ServeHTTP(w, r)
			return
		}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.metrics.RecordHTTP(rec.status)
	})
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service errors to HTTP statuses
func respondServiceError(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrConfigNotFound),
		errors.Is(err, engine.ErrPieceNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrPieceBusy),
		errors.Is(err, engine.ErrNoActivePiece),
		errors.Is(err, engine.ErrAlreadySolved):
		return http.StatusConflict
	case errors.Is(err, engine.ErrBadOrientation),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidConfig),
		errors.Is(err, engine.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, solver.ErrNoSolution),
		errors.Is(err, solver.ErrAreaMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody decodes an optional JSON body. An empty body leaves v as is.
func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// pointRequest is an input position in world coordinates
type pointRequest struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

func (p pointRequest) vec() (geometry.Vec, bool) {
	if p.X == nil || p.Y == nil {
		return geometry.Vec{}, false
	}
	return geometry.V(*p.X, *p.Y), true
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConfigID   string `json:"config_id,omitempty"`
		ConfigName string `json:"config_name,omitempty"` // Deprecated, use config_id
	}

	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Support both new and old parameter names, but prefer config_id
	configID := req.ConfigID
	if configID == "" && req.ConfigName != "" {
		configID = req.ConfigName
	}

	session, err := s.service.CreateSession(r.Context(), configID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	s.metrics.RecordSessionCreated()

	respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	total := len(sessions)

	// Parse query parameters
	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "accessed" (default)
	order := query.Get("order")    // "asc", "desc" (default: "desc")
	limitStr := query.Get("limit") // number of sessions to return

	// Set defaults
	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	sort.Slice(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}

		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	limit := len(sessions)
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(sessions) {
			limit = l
		}
	}
	sessions = sessions[:limit]

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	session, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Puzzle Operation Handlers

func (s *Server) handleGetPuzzleState(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.GetPuzzleState(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handlePickupAt(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req pointRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	at, ok := req.vec()
	if !ok {
		respondError(w, http.StatusBadRequest, "x and y are required")
		return
	}

	result, err := s.service.PickupAt(r.Context(), sessionID, at)
	s.respondAction(w, sessionID, result, err)
}

func (s *Server) handlePickup(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID, ref := vars["id"], vars["piece"]

	var req pointRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	at, ok := req.vec()
	if !ok {
		// Without a position the piece is grabbed at its anchor
		state, err := s.service.GetPuzzleState(r.Context(), sessionID)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		view, found := state.Piece(ref)
		if !found {
			respondServiceError(w, fmt.Errorf("%w: %q", engine.ErrPieceNotFound, ref))
			return
		}
		at = view.Anchor
	}

	result, err := s.service.Pickup(r.Context(), sessionID, ref, at)
	s.respondAction(w, sessionID, result, err)
}

func (s *Server) handleDrag(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req pointRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	at, ok := req.vec()
	if !ok {
		respondError(w, http.StatusBadRequest, "x and y are required")
		return
	}

	result, err := s.service.Drag(r.Context(), sessionID, at)
	s.respondAction(w, sessionID, result, err)
}

func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	result, err := s.service.Release(r.Context(), sessionID)
	s.respondAction(w, sessionID, result, err)
}

func (s *Server) handleRotate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	result, err := s.service.Rotate(r.Context(), vars["id"], vars["piece"])
	s.respondAction(w, vars["id"], result, err)
}

func (s *Server) handleMirror(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	result, err := s.service.Mirror(r.Context(), vars["id"], vars["piece"])
	s.respondAction(w, vars["id"], result, err)
}

func (s *Server) handlePlace(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID := vars["id"]

	var req struct {
		Cell        *grid.Cell          `json:"cell"`
		Orientation *engine.Orientation `json:"orientation,omitempty"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Cell == nil {
		respondError(w, http.StatusBadRequest, "cell is required")
		return
	}

	result, err := s.service.Place(r.Context(), sessionID, vars["piece"], *req.Cell, req.Orientation)
	s.respondAction(w, sessionID, result, err)
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		DT     float64 `json:"dt"`
		Settle bool    `json:"settle,omitempty"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Settle {
		// A very large step finishes any snap in one call
		req.DT = 1e9
	}

	result, err := s.service.Tick(r.Context(), sessionID, req.DT)
	s.respondAction(w, sessionID, result, err)
}

// respondAction writes an action result, broadcasts it to WebSocket clients
// and logs a compact line
func (s *Server) respondAction(w http.ResponseWriter, sessionID string, result *service.ActionResult, err error) {
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.publish(sessionID, result)
	respondJSON(w, http.StatusOK, result)
}

// publish records, broadcasts and logs an action result
func (s *Server) publish(sessionID string, result *service.ActionResult) {
	if result.Action != "tick" || result.Outcome != string(piece.TickNone) {
		s.metrics.RecordAction(result.Action, result.Success)
	}
	if result.Solved && hasSolvedEvent(result) {
		s.metrics.RecordSolved()
	}

	if s.hub != nil {
		s.hub.BroadcastToSession(sessionID, result.State)
		s.hub.BroadcastEvents(sessionID, result.Events)
	}

	status := "FAIL"
	if result.Success {
		status = "OK"
	}
	placed, total := 0, 0
	if result.State != nil {
		placed, total = result.State.PlacedPieces, result.State.TotalPieces
	}
	fmt.Printf("[PIECE] session=%s %s piece=%d outcome=%s placed=%d/%d status=%s\n",
		sessionID, result.Action, result.PieceID, result.Outcome, placed, total, status)
}

// PublishTicks broadcasts frame tick reports. Finished snaps are recorded and
// logged like any other action; frames of a piece still in flight are only
// broadcast.
func (s *Server) PublishTicks(reports []*service.TickReport) {
	for _, r := range reports {
		if r.Outcome == string(piece.TickMoving) && len(r.Events) == 0 {
			if s.hub != nil {
				s.hub.BroadcastToSession(r.SessionID, r.State)
			}
			continue
		}
		s.publish(r.SessionID, &service.ActionResult{
			Success: r.Outcome != string(piece.TickRejected),
			Action:  "tick",
			Outcome: r.Outcome,
			Events:  r.Events,
			State:   r.State,
			Solved:  r.State != nil && r.State.Solved,
		})
	}
}

func hasSolvedEvent(result *service.ActionResult) bool {
	for _, ev := range result.Events {
		if ev.Type == events.GridSolved {
			return true
		}
	}
	return false
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.Reset(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	s.metrics.RecordAction(engine.ActionReset, true)

	if s.hub != nil {
		s.hub.BroadcastToSession(sessionID, state)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Puzzle reset successfully",
		"state":   state,
	})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	opts := service.HistoryOptions{
		Page:  1,
		Limit: service.DefaultHistoryLimit,
		Order: "desc",
	}

	query := r.URL.Query()
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			opts.Page = p
		}
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}

	if order := query.Get("order"); order == "asc" || order == "desc" {
		opts.Order = order
	}

	history, err := s.service.GetHistory(r.Context(), sessionID, opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, history)
}

func (s *Server) handleHint(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	hint, err := s.service.Hint(ctx, sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"hint":        hint,
		"description": hint.String(),
	})
}

func (s *Server) handleDescribeCell(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	x, errX := strconv.Atoi(vars["x"])
	y, errY := strconv.Atoi(vars["y"])
	if errX != nil || errY != nil {
		respondError(w, http.StatusBadRequest, "cell coordinates must be integers")
		return
	}

	info, err := s.service.DescribeCell(r.Context(), vars["id"], grid.Cell{X: x, Y: y})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

// Configuration Handlers

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.ListConfigs(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	configName := mux.Vars(r)["name"]

	config, err := s.service.LoadConfig(r.Context(), configName)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, config)
}

func (s *Server) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConfigID string `json:"config_id"`
		engine.PuzzleConfig
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "Config name is required")
		return
	}

	configID := req.ConfigID
	if configID == "" {
		configID = slug(req.Name)
	}

	if err := s.service.SaveConfig(r.Context(), configID, &req.PuzzleConfig); err != nil {
		respondError(w, statusFor(err), fmt.Sprintf("Failed to save config: %v", err))
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "Configuration saved successfully",
		"config_id": configID,
	})
}

// slug turns a display name into a config id
func slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('_')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// Unified Sessions Handler

func (s *Server) handleUnifiedSessions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var sessions []*service.SessionInfo

	if sessionIDs := query.Get("sessionIds"); sessionIDs != "" {
		ids := strings.Split(sessionIDs, ",")
		sessions = make([]*service.SessionInfo, 0, len(ids))
		for _, id := range ids {
			id = strings.TrimSpace(id)
			if id != "" {
				session, err := s.service.GetSession(r.Context(), id)
				if err == nil {
					sessions = append(sessions, session)
				}
			}
		}
	} else {
		allSessions, err := s.service.ListSessions(r.Context())
		if err != nil {
			respondServiceError(w, err)
			return
		}
		configName := query.Get("configName")
		sessions = make([]*service.SessionInfo, 0, len(allSessions))
		for _, session := range allSessions {
			if configName == "" || session.ConfigName == configName {
				sessions = append(sessions, session)
			}
		}
	}

	configName := ""
	totalPieces := 0
	if len(sessions) > 0 {
		configName = sessions[0].ConfigName
		if sessions[0].PuzzleConfig != nil {
			totalPieces = len(sessions[0].PuzzleConfig.Pieces)
		}
	}

	entries := make([]map[string]interface{}, 0, len(sessions))
	solved := 0
	for _, session := range sessions {
		if session.PuzzleState != nil && session.PuzzleState.Solved {
			solved++
		}
		entries = append(entries, map[string]interface{}{
			"session_id":    session.ID,
			"config_name":   session.ConfigName,
			"puzzle_state":  session.PuzzleState,
			"created_at":    session.CreatedAt,
			"last_accessed": session.LastAccessedAt,
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"config_name":  configName,
		"total_pieces": totalPieces,
		"solved":       solved,
		"sessions":     entries,
	})
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	report, err := s.service.Audit(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	s.metrics.RecordAudit(len(report.Violations))

	status := http.StatusOK
	if !report.Healthy() {
		status = http.StatusConflict
	}
	respondJSON(w, status, report)
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "websocket not available", http.StatusServiceUnavailable)
		return
	}

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	// Verify session exists
	session, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, session.ID)
}

// HandleInput applies a WebSocket input message. Results are broadcast to
// every client of the session; failures are returned to the sender.
func (s *Server) HandleInput(ctx context.Context, sessionID string, in websocket.InputMessage) error {
	at := geometry.V(in.X, in.Y)

	var result *service.ActionResult
	var err error
	switch in.Action {
	case engine.ActionPickup:
		if in.PieceID == "" {
			result, err = s.service.PickupAt(ctx, sessionID, at)
		} else {
			result, err = s.service.Pickup(ctx, sessionID, in.PieceID, at)
		}
	case "drag":
		result, err = s.service.Drag(ctx, sessionID, at)
	case engine.ActionRelease:
		result, err = s.service.Release(ctx, sessionID)
	case engine.ActionRotate:
		result, err = s.service.Rotate(ctx, sessionID, in.PieceID)
	case engine.ActionMirror:
		result, err = s.service.Mirror(ctx, sessionID, in.PieceID)
	case engine.ActionPlace:
		if in.Cell == nil {
			return fmt.Errorf("%w: place needs a cell", service.ErrInvalidInput)
		}
		result, err = s.service.Place(ctx, sessionID, in.PieceID, *in.Cell, in.Orientation)
	case "tick":
		result, err = s.service.Tick(ctx, sessionID, in.DT)
	case engine.ActionReset:
		state, err := s.service.Reset(ctx, sessionID)
		if err != nil {
			return err
		}
		s.metrics.RecordAction(engine.ActionReset, true)
		if s.hub != nil {
			s.hub.BroadcastToSession(sessionID, state)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown action %q", service.ErrInvalidInput, in.Action)
	}
	if err != nil {
		return err
	}

	s.publish(sessionID, result)
	if !result.Success {
		return errors.New(result.Message)
	}
	return nil
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

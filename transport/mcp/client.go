package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/polyfit/game/engine"
	"github.com/wricardo/polyfit/game/events"
	"github.com/wricardo/polyfit/game/grid"
	"github.com/wricardo/polyfit/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Polyfit",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Polyfit - MCP Interface

This is a thin client that proxies all requests to the REST API server.

OBJECTIVE:
Cover every cell of the grid with the puzzle pieces. Pieces can be rotated
and mirrored, and each cell must be covered by exactly one piece.

AVAILABLE TOOLS:
- create_session / list_sessions / get_session: manage puzzle sessions
- puzzle_state: grid drawing plus every piece's position and orientation
- place_piece: put a piece on a cell with a rotation and mirror flag (simplest way to play)
- pickup_piece, drag_piece, release_piece, tick: pointer-style dragging with snapping
- rotate_piece, mirror_piece: transform a piece that is not placed
- reset_puzzle: put every piece back at its start
- action_history: past actions
- hint: ask the solver where the next piece goes
- describe_cell: which piece covers a cell
- list_configs: available puzzles
- puzzle_instructions: full rules and coordinate conventions`),
	)

	c.registerTools()
}

func sessionProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func pieceProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Piece id from the config (e.g. \"A\") or its number (e.g. \"1\")",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new puzzle session with optional config selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "Config to use, see list_configs (optional, defaults to classic)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active puzzle sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	// Puzzle operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "puzzle_state",
		Description: "Get the current puzzle: grid drawing, piece positions and orientations",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handlePuzzleState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "pickup_piece",
		Description: "Start dragging a piece. Give piece_id, or only x/y to grab whatever piece is there.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"piece_id":   pieceProperty(),
				"x": map[string]interface{}{
					"type":        "number",
					"description": "Pointer x in world units (optional when piece_id is given)",
				},
				"y": map[string]interface{}{
					"type":        "number",
					"description": "Pointer y in world units (optional when piece_id is given)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handlePickup)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "drag_piece",
		Description: "Move the pointer while dragging; the piece follows it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"x": map[string]interface{}{
					"type":        "number",
					"description": "Pointer x in world units",
				},
				"y": map[string]interface{}{
					"type":        "number",
					"description": "Pointer y in world units",
				},
			},
			Required: []string{"session_id", "x", "y"},
		},
	}, c.handleDrag)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "release_piece",
		Description: "Drop the dragged piece. If it fits near a free cell it snaps there; call tick with settle=true to finish the snap.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"settle": map[string]interface{}{
					"type":        "boolean",
					"description": "Finish any snap right away (default true)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleRelease)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "rotate_piece",
		Description: "Rotate a piece a quarter turn counterclockwise. Placed pieces cannot be rotated.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"piece_id":   pieceProperty(),
			},
			Required: []string{"session_id", "piece_id"},
		},
	}, c.handleRotate)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "mirror_piece",
		Description: "Flip a piece horizontally. Only allowed at 0 or 180 degrees and never on placed pieces.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"piece_id":   pieceProperty(),
			},
			Required: []string{"session_id", "piece_id"},
		},
	}, c.handleMirror)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "place_piece",
		Description: "Place a piece so its anchor sits on cell (x, y), with the given rotation and mirror flag",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"piece_id":   pieceProperty(),
				"x": map[string]interface{}{
					"type":        "integer",
					"description": "Cell column (0-based)",
				},
				"y": map[string]interface{}{
					"type":        "integer",
					"description": "Cell row (0-based)",
				},
				"rotation": map[string]interface{}{
					"type":        "integer",
					"enum":        []int{0, 90, 180, 270},
					"description": "Rotation in degrees (optional, keeps the current rotation)",
				},
				"mirrored": map[string]interface{}{
					"type":        "boolean",
					"description": "Mirror the piece (optional)",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of why this placement (serves as a rubber duck to help explain your reasoning)",
				},
			},
			Required: []string{"session_id", "piece_id", "x", "y"},
		},
	}, c.handlePlace)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "tick",
		Description: "Advance snapping animation by dt seconds",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"dt": map[string]interface{}{
					"type":        "number",
					"description": "Seconds to advance",
				},
				"settle": map[string]interface{}{
					"type":        "boolean",
					"description": "Finish the snap in one step",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleTick)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_puzzle",
		Description: "Put every piece back at its start",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "action_history",
		Description: "Get action history for a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Items per page",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleActionHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "hint",
		Description: "Ask the solver where the next unplaced piece goes, given the pieces already placed",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleHint)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available puzzle configurations",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "puzzle_instructions",
		Description: "Get the rules, coordinate conventions and a suggested strategy",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handlePuzzleInstructions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "Get which pieces cover a grid cell and where its center is",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"x": map[string]interface{}{
					"type":        "integer",
					"description": "Cell column (0-based)",
				},
				"y": map[string]interface{}{
					"type":        "integer",
					"description": "Cell row (0-based)",
				},
			},
			Required: []string{"session_id", "x", "y"},
		},
	}, c.handleDescribeCell)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

func sessionPath(sessionID string, parts ...string) string {
	path := "/api/sessions/" + url.PathEscape(sessionID)
	for _, p := range parts {
		path += "/" + url.PathEscape(p)
	}
	return path
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	configID, _ := args["config_id"].(string)

	body := map[string]string{}
	if configID != "" {
		body["config_id"] = configID
	}

	var session service.SessionInfo
	err := c.apiCall("POST", "/api/sessions", body, &session)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nConfig: %s\n\n%s", session.ID, session.ConfigName, formatPuzzleState(session.PuzzleState))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	err := c.apiCall("GET", "/api/sessions", nil, &response)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		progress := ""
		if s.PuzzleState != nil {
			progress = fmt.Sprintf(", %d/%d placed", s.PuzzleState.PlacedPieces, s.PuzzleState.TotalPieces)
			if s.PuzzleState.Solved {
				progress += ", solved"
			}
		}
		result += fmt.Sprintf("- %s (Config: %s%s, Created %s, Last used %s)\n",
			s.ID, s.ConfigName, progress, humanize.Time(s.CreatedAt), humanize.Time(s.LastAccessedAt))
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var session service.SessionInfo
	err := c.apiCall("GET", sessionPath(sessionID), nil, &session)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handlePuzzleState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var state engine.PuzzleState
	err := c.apiCall("GET", sessionPath(sessionID, "state"), nil, &state)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatPuzzleState(&state)), nil
}

// action posts to a piece interaction endpoint and formats the result
func (c *Client) action(path string, body interface{}) (*mcp.CallToolResult, error) {
	var result service.ActionResult
	if err := c.apiCall("POST", path, body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatActionResult(&result)), nil
}

func (c *Client) handlePickup(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	pieceID, _ := args["piece_id"].(string)
	x, hasX := args["x"].(float64)
	y, hasY := args["y"].(float64)

	body := map[string]interface{}{}
	if hasX && hasY {
		body["x"], body["y"] = x, y
	}

	if pieceID == "" {
		if !hasX || !hasY {
			return mcp.NewToolResultError("give piece_id, or x and y of the piece to grab"), nil
		}
		return c.action(sessionPath(sessionID, "pickup"), body)
	}
	return c.action(sessionPath(sessionID, "pieces", pieceID, "pickup"), body)
}

func (c *Client) handleDrag(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	x, _ := args["x"].(float64)
	y, _ := args["y"].(float64)

	return c.action(sessionPath(sessionID, "drag"), map[string]float64{"x": x, "y": y})
}

func (c *Client) handleRelease(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	settle, ok := args["settle"].(bool)
	if !ok {
		settle = true
	}

	var released service.ActionResult
	if err := c.apiCall("POST", sessionPath(sessionID, "release"), nil, &released); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text := formatActionResult(&released)

	if settle && released.Outcome == "snapping" {
		var settled service.ActionResult
		if err := c.apiCall("POST", sessionPath(sessionID, "tick"), map[string]bool{"settle": true}, &settled); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		text = fmt.Sprintf("Released and snapped (%s)\n\n%s", settled.Outcome, formatActionResult(&settled))
	}

	return mcp.NewToolResultText(text), nil
}

func (c *Client) handleRotate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	pieceID, _ := args["piece_id"].(string)

	return c.action(sessionPath(sessionID, "pieces", pieceID, "rotate"), nil)
}

func (c *Client) handleMirror(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	pieceID, _ := args["piece_id"].(string)

	return c.action(sessionPath(sessionID, "pieces", pieceID, "mirror"), nil)
}

func (c *Client) handlePlace(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	pieceID, _ := args["piece_id"].(string)
	x, _ := args["x"].(float64)
	y, _ := args["y"].(float64)

	// Intent parameter serves as rubber duck debugging - we don't need to process it further
	_, _ = args["intent"].(string)

	body := map[string]interface{}{
		"cell": map[string]int{"x": int(x), "y": int(y)},
	}
	rotation, hasRotation := args["rotation"].(float64)
	mirrored, hasMirror := args["mirrored"].(bool)
	if hasRotation || hasMirror {
		body["orientation"] = engine.Orientation{Rotation: int(rotation), Mirrored: mirrored}
	}

	return c.action(sessionPath(sessionID, "pieces", pieceID, "place"), body)
}

func (c *Client) handleTick(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	dt, _ := args["dt"].(float64)
	settle, _ := args["settle"].(bool)

	return c.action(sessionPath(sessionID, "tick"), map[string]interface{}{"dt": dt, "settle": settle})
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var response struct {
		Message string              `json:"message"`
		State   *engine.PuzzleState `json:"state"`
	}

	err := c.apiCall("POST", sessionPath(sessionID, "reset"), nil, &response)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("%s\n\n%s", response.Message, formatPuzzleState(response.State))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleActionHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)

	params := url.Values{}
	if page, ok := args["page"].(float64); ok {
		params.Set("page", fmt.Sprint(int(page)))
	}
	if limit, ok := args["limit"].(float64); ok {
		params.Set("limit", fmt.Sprint(int(limit)))
	}

	path := sessionPath(sessionID, "history")
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	err := c.apiCall("GET", path, nil, &history)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	// Also fetch the actions since the last reset
	var state engine.PuzzleState
	if err := c.apiCall("GET", sessionPath(sessionID, "state"), nil, &state); err != nil {
		return mcp.NewToolResultText(formatHistory(&history)), nil
	}

	return mcp.NewToolResultText(formatHistory(&history) + "\n" + formatCurrentSegment(&state)), nil
}

func (c *Client) handleHint(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var response struct {
		Hint        engine.Hint `json:"hint"`
		Description string      `json:"description"`
	}
	if err := c.apiCall("GET", sessionPath(sessionID, "hint"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	h := response.Hint
	var b strings.Builder
	fmt.Fprintf(&b, "Hint: %s\n", response.Description)
	fmt.Fprintf(&b, "Call place_piece with piece_id=%s x=%d y=%d rotation=%d mirrored=%v\n",
		h.Key, h.Cell.X, h.Cell.Y, h.Orientation.Rotation, h.Orientation.Mirrored)
	fmt.Fprintf(&b, "Covers: %s\n", formatCells(h.Cells))
	fmt.Fprintf(&b, "Pieces left to place after this one: %d\n", h.Remaining-1)
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	err := c.apiCall("GET", "/api/configs", nil, &configs)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := "Available Configurations:\n\n"
	for _, config := range configs {
		result += fmt.Sprintf("• %s (config_id: %s)\n  %s\n  Grid: %dx%d, Pieces: %d, Format: %s\n\n",
			config.Name, config.ConfigID, config.Description, config.Width, config.Height, config.Pieces, config.Format)
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handlePuzzleInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `🧩 Polyfit - Complete Instructions

OBJECTIVE:
Cover every cell of the grid with the puzzle pieces. Every piece must be
used, no two pieces may overlap, and nothing may hang off the grid. The
puzzle is solved the moment the last cell is covered.

COORDINATES:
• Cells are (x, y) with x the column and y the row, both 0-based
• (0,0) is the top-left cell; y grows downward in the drawing
• Cell centers sit at world positions origin + (x, y) * cell_size
• Unplaced pieces wait in a staging column to the right of the grid

PIECES:
• Each piece is a set of unit squares arranged around its anchor
• place_piece puts the anchor on the cell you name; the piece covers the
  cells listed in puzzle_state after rotation and mirroring
• Rotation is a quarter turn counterclockwise: (x, y) → (-y, x)
• Mirroring flips horizontally: (x, y) → (-x, y)
• Mirroring is only allowed at 0° or 180°; rotate first if needed
• A placed piece cannot be rotated or mirrored. Pick it up to move it.

GRID LEGEND (puzzle_state):
• . - free cell
• A, B, C... - cell covered by that piece (A is piece 1, B piece 2...)

TWO WAYS TO PLAY:
1. Direct: place_piece with x, y, rotation and mirrored. Simplest for agents.
2. Pointer: pickup_piece → drag_piece (any number of times) →
   release_piece. On release the piece snaps to the nearest cell if it
   fits there and is close enough; otherwise it stays where it was dropped.
   rotate_piece and mirror_piece work while dragging.

RESULTS:
• Refused moves (overlap, out of bounds, mirror at 90°) are not errors:
  the result says ✗ with the reason and nothing changes
• Errors are for unknown sessions or pieces, or dragging without a piece

STRATEGY:
• Fill corners and edges first; they constrain the most
• Count the free region sizes: a region smaller than every remaining piece
  can never be filled
• Use describe_cell to check what covers a cell
• Stuck? hint asks the solver for a placement that still leads to a full
  solution given the pieces already placed. If there is none, move a piece.

VICTORY:
• puzzle_state shows "🎉 SOLVED!" when every cell is covered

Good luck!`

	return mcp.NewToolResultText(instructions), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	x, okX := args["x"].(float64)
	y, okY := args["y"].(float64)
	if !okX || !okY {
		return mcp.NewToolResultError("x and y are required"), nil
	}

	var info engine.CellInfo
	path := sessionPath(sessionID, "cells", fmt.Sprint(int(x)), fmt.Sprint(int(y)))
	if err := c.apiCall("GET", path, nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatCellInfo(&info)), nil
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nConfig: %s\nCreated: %s (%s)\n\n%s",
		session.ID, session.ConfigName,
		session.CreatedAt.Format("2006-01-02 15:04:05"), humanize.Time(session.CreatedAt),
		formatPuzzleState(session.PuzzleState))
}

func formatCells(cells []grid.Cell) string {
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

func formatPuzzleState(state *engine.PuzzleState) string {
	if state == nil {
		return "No puzzle state available"
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Puzzle: %s | Grid: %dx%d | Placed: %d/%d | Free cells: %d | Actions: %s\n\n",
		state.ConfigName, state.Width, state.Height,
		state.PlacedPieces, state.TotalPieces, state.FreeCells,
		humanize.Comma(int64(state.TotalActions)))

	// Grid with column and row numbers
	b.WriteString("   ")
	for x := 0; x < state.Width; x++ {
		b.WriteString(fmt.Sprint(x % 10))
	}
	b.WriteString("\n")
	for y, row := range state.Rows {
		fmt.Fprintf(&b, "%2d %s\n", y, row)
	}

	b.WriteString("\nPieces:\n")
	names := make(map[grid.PieceID]string, len(state.Keys))
	for key, id := range state.Keys {
		names[id] = key
	}
	for _, p := range state.Pieces {
		key := names[p.ID]
		orientation := fmt.Sprintf("rot %d°", p.Rotation)
		if p.Mirrored {
			orientation += " mirrored"
		}
		label := key
		if p.Name != "" {
			label += " " + p.Name
		}
		switch {
		case p.Placed:
			fmt.Fprintf(&b, "- %s: placed, %s, cells %s\n", label, orientation, formatCells(p.Cells))
		default:
			fmt.Fprintf(&b, "- %s: %s at (%.2f, %.2f), %s\n", label, p.State, p.Anchor.X, p.Anchor.Y, orientation)
		}
	}

	if state.ActivePiece != nil {
		fmt.Fprintf(&b, "\nDragging: %s\n", names[*state.ActivePiece])
	}

	if state.Solved {
		b.WriteString("\n🎉 SOLVED!")
	}

	if state.Message != "" {
		fmt.Fprintf(&b, "\nMessage: %s", state.Message)
	}

	return b.String()
}

func formatActionResult(result *service.ActionResult) string {
	var b strings.Builder
	if result.Success {
		fmt.Fprintf(&b, "✓ %s succeeded", result.Action)
	} else {
		fmt.Fprintf(&b, "✗ %s refused", result.Action)
	}
	if result.Outcome != "" {
		fmt.Fprintf(&b, " (%s)", result.Outcome)
	}
	b.WriteString("\n")
	if !result.Success && result.Message != "" {
		fmt.Fprintf(&b, "Reason: %s\n", result.Message)
	}

	if len(result.Events) > 0 {
		b.WriteString("Events:\n")
		for _, event := range result.Events {
			b.WriteString(formatEvent(event))
		}
	}

	b.WriteString("\n" + formatPuzzleState(result.State))
	return b.String()
}

func formatEvent(event events.Event) string {
	line := "- " + string(event.Type)
	if event.Message != "" {
		line += ": " + event.Message
	}
	if len(event.Cells) > 0 {
		line += " " + formatCells(event.Cells)
	}
	return line + "\n"
}

func formatCellInfo(info *engine.CellInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cell %s:\n━━━━━━━━━━━━━━━━━━━━━━━━\n", info.Cell)
	if !info.InBounds {
		b.WriteString("Outside the grid\n")
		return b.String()
	}
	fmt.Fprintf(&b, "Center: (%.2f, %.2f)\n", info.Center.X, info.Center.Y)
	switch len(info.Occupants) {
	case 0:
		b.WriteString("Free\n")
	case 1:
		fmt.Fprintf(&b, "Covered by piece %c (%d)\n", engine.PieceGlyph(info.Occupants[0]), info.Occupants[0])
	default:
		fmt.Fprintf(&b, "⚠️ Covered by %d pieces:", len(info.Occupants))
		for _, id := range info.Occupants {
			fmt.Fprintf(&b, " %c", engine.PieceGlyph(id))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	result := fmt.Sprintf("Action History (Page %d/%d) — Total (cumulative): %s\n\n",
		history.Page, history.TotalPages, humanize.Comma(int64(history.TotalActions)))

	for _, action := range history.Actions {
		result += formatActionLine(action)
	}

	return result
}

func formatCurrentSegment(state *engine.PuzzleState) string {
	if state == nil {
		return "Since last reset: unavailable"
	}
	header := fmt.Sprintf("Since last reset — Actions: %d\n\n", state.CurrentActionsCount)
	if len(state.CurrentActions) == 0 {
		return header + "(no actions since last reset)"
	}
	var b strings.Builder
	b.WriteString(header)
	for _, action := range state.CurrentActions {
		b.WriteString(formatActionLine(action))
	}
	return b.String()
}

func formatActionLine(action engine.ActionEntry) string {
	status := "✓"
	if !action.Success {
		status = "✗"
	}
	line := fmt.Sprintf("%d. %s", action.Number, action.Action)
	if action.PieceID != 0 {
		line += fmt.Sprintf(" %c", engine.PieceGlyph(action.PieceID))
	}
	line += " " + status
	if action.Message != "" {
		line += " " + action.Message
	}
	if action.Timestamp > 0 {
		line += " (" + humanize.Time(time.Unix(action.Timestamp, 0)) + ")"
	}
	return line + "\n"
}

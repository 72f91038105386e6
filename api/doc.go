// Package api provides the HTTP REST API for polyfit puzzles.
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create a session ({"config_id": "classic"})
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/unified - Several sessions at once (?sessionIds=a,b or ?configName=x)
//   - GET /api/sessions/{id} - Get a session
//   - DELETE /api/sessions/{id} - Delete a session
//
// Piece Interaction:
//   - POST /api/sessions/{id}/pickup - Pick up whatever piece is under {"x","y"}
//   - POST /api/sessions/{id}/pieces/{piece}/pickup - Pick up a piece by id ("A") or number ("1")
//   - POST /api/sessions/{id}/drag - Move the dragged piece to {"x","y"}
//   - POST /api/sessions/{id}/release - Drop the dragged piece
//   - POST /api/sessions/{id}/pieces/{piece}/rotate - Quarter turn
//   - POST /api/sessions/{id}/pieces/{piece}/mirror - Horizontal flip
//   - POST /api/sessions/{id}/pieces/{piece}/place - Place on {"cell": {"x","y"}, "orientation": {"rotation", "mirrored"}}
//   - POST /api/sessions/{id}/tick - Advance snapping by {"dt"} seconds, or {"settle": true}
//   - POST /api/sessions/{id}/reset - Put every piece back at its start
//
// Puzzle State:
//   - GET /api/sessions/{id}/state - Full puzzle state
//   - GET /api/sessions/{id}/history - Action history (?page&limit&order)
//   - GET /api/sessions/{id}/hint - Next placement from the solver
//   - GET /api/sessions/{id}/cells/{x}/{y} - Occupants of one cell
//
// Configuration:
//   - GET /api/configs - List configurations
//   - GET /api/configs/{name} - Get a configuration
//   - POST /api/configs - Save a configuration
//
// Operations:
//   - GET /api/audit - Integrity check of every session
//   - GET /api/metrics - JSON metrics
//   - GET /metrics - Prometheus metrics
//   - GET /health - Health check
//   - GET /ws?session={id} - WebSocket updates
//
// Error Handling:
//
// Errors are returned as {"error": "message"}. Unknown sessions, pieces and
// configs are 404, a busy or missing drag is 409, and malformed input is 400.
// A move the puzzle refuses, such as mirroring at 90 degrees or releasing
// over an occupied cell, is not an HTTP error: it returns 200 with
// "success": false and the reason in "message".
package api

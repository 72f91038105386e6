// Package mcp provides the Model Context Protocol client for Polyfit.
//
// The client is thin: every tool proxies to the REST API served by the api
// package and formats the JSON answer as text an agent can read.
//
// MCP Tools:
//
//   - create_session, list_sessions, get_session: session management
//   - puzzle_state: ASCII grid plus every piece's anchor and orientation
//   - place_piece: put a piece on a cell with a given orientation
//   - pickup_piece, drag_piece, release_piece, tick: pointer-style dragging
//   - rotate_piece, mirror_piece: transforms on pieces that are not placed
//   - reset_puzzle: return every piece to its start
//   - action_history: paginated actions plus the ones since the last reset
//   - hint: the solver's next placement for the current board
//   - describe_cell: which pieces cover one cell
//   - list_configs, puzzle_instructions
//
// Refused moves come back as ordinary results marked with ✗; only API
// errors (unknown session, unknown piece, bad input) become tool errors.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp

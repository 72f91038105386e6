// Package service provides the business logic layer for the puzzle server.
//
// The service package implements:
//   - Multi-session puzzle management
//   - Piece interaction on behalf of transports
//   - Frame ticks across every session
//   - Paginated action history and hints
//   - Read-only integrity audits
//
// Core Interfaces:
//
// PuzzleService is the main service interface providing high-level puzzle operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager manages puzzle configuration loading and validation.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the puzzle engine. Each session owns its own engine instance with
// independent state.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	puzzleService := service.NewPuzzleService(sessionMgr, configMgr)
//
//	info, err := puzzleService.CreateSession(ctx, "classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := puzzleService.Place(ctx, info.ID, "A", grid.Cell{X: 0, Y: 0}, nil)
//
// Results:
//
// Ordinary game failures, such as a rejected placement or a mirror refused
// at a quarter turn, come back as an ActionResult with Success false. Errors
// are reserved for unknown sessions or pieces, a piece that is busy and bad
// arguments.
package service

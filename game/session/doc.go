// Package session provides session management for the puzzle server.
//
// Each session owns its own puzzle engine, so several players can work on
// the same or different puzzles without seeing each other's pieces.
//
// Session Identifiers:
//
// Sessions use 4-character hex IDs generated from crypto/rand unless the
// caller supplies one. Lookups are case-insensitive.
//
// Concurrency:
//
// The manager is safe for concurrent use. Engines carry their own locks,
// so the manager only guards the session table.
//
// Usage:
//
//	manager := session.NewManager()
//
//	sess, err := manager.Create("", config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err = manager.Get(sess.ID)
//
// Cleanup:
//
// Sessions live in memory only and are dropped by CleanupExpiredSessions
// once they have been idle longer than the given age.
package session

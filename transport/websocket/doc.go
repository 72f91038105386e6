// Package websocket provides the WebSocket transport for polyfit puzzles.
//
// A central Hub keeps the connected clients grouped by session. Each client
// connection runs a read goroutine and a write goroutine; the hub goroutine
// owns registration and queued broadcasts.
//
// Message Protocol:
//
// Outgoing messages are JSON objects:
//   - {"session_id": "a1b2", "event": "state_update", "state": {...}}
//   - {"session_id": "a1b2", "event": "puzzle_event", "data": {"type": "piece_placed", ...}}
//   - {"session_id": "a1b2", "event": "error", "data": "no active piece"}
//
// Incoming messages are pointer interactions:
//
//	{"action": "drag", "piece_id": "A", "x": 6.5, "y": 2}
//	{"action": "place", "piece_id": "B", "cell": {"x": 0, "y": 1}, "orientation": {"rotation": 180}}
//
// They are passed to the InputHandler given with WithInputHandler. A handler
// error is sent back only to the client that sent the input.
//
// Usage:
//
//	hub := websocket.NewHub(websocket.WithMetrics(collector))
//	hub.SetInputHandler(apiServer.HandleInput)
//	go hub.Run()
//	defer hub.Stop()
//
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
package websocket

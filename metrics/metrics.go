// Package metrics collects counters for the puzzle server.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers server metrics. It is created by main and handed to
// whatever records into it; a nil *Collector ignores every call.
type Collector struct {
	// Frame metrics
	TickCount      int64
	TickLatencySum int64 // nanoseconds
	TickLatencyMax int64
	LastTickTime   time.Time

	// Puzzle metrics
	SessionsCreated int64
	PuzzlesSolved   int64
	AuditRuns       int64
	AuditViolations int64

	// WebSocket metrics
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSErrors            int64

	// HTTP metrics
	HTTPRequests int64
	HTTPErrors   int64

	// System
	StartTime time.Time

	actions map[string]*actionCount
	mu      sync.RWMutex
}

type actionCount struct {
	ok     int64
	failed int64
}

// NewCollector creates an empty collector
func NewCollector() *Collector {
	return &Collector{
		StartTime: time.Now(),
		actions:   make(map[string]*actionCount),
	}
}

// RecordTick records a frame tick over all sessions
func (c *Collector) RecordTick(latency time.Duration) {
	if c == nil {
		return
	}
	atomic.AddInt64(&c.TickCount, 1)
	atomic.AddInt64(&c.TickLatencySum, int64(latency))

	// Update max (non-atomic but acceptable for metrics)
	if int64(latency) > atomic.LoadInt64(&c.TickLatencyMax) {
		atomic.StoreInt64(&c.TickLatencyMax, int64(latency))
	}

	c.mu.Lock()
	c.LastTickTime = time.Now()
	c.mu.Unlock()
}

// RecordAction counts a piece interaction by name and result
func (c *Collector) RecordAction(action string, success bool) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	count, ok := c.actions[action]
	if !ok {
		count = &actionCount{}
		c.actions[action] = count
	}
	if success {
		count.ok++
	} else {
		count.failed++
	}
}

// RecordSessionCreated counts a new session
func (c *Collector) RecordSessionCreated() {
	if c == nil {
		return
	}
	atomic.AddInt64(&c.SessionsCreated, 1)
}

// RecordSolved counts a puzzle reaching the solved state
func (c *Collector) RecordSolved() {
	if c == nil {
		return
	}
	atomic.AddInt64(&c.PuzzlesSolved, 1)
}

// RecordAudit records one integrity sweep and how many sessions failed it
func (c *Collector) RecordAudit(violations int) {
	if c == nil {
		return
	}
	atomic.AddInt64(&c.AuditRuns, 1)
	atomic.AddInt64(&c.AuditViolations, int64(violations))
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int64) {
	if c == nil {
		return
	}
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage records WebSocket messages.
func (c *Collector) RecordWSMessage(incoming bool) {
	if c == nil {
		return
	}
	if incoming {
		atomic.AddInt64(&c.WSMessagesIn, 1)
	} else {
		atomic.AddInt64(&c.WSMessagesOut, 1)
	}
}

// RecordWSError records a WebSocket error.
func (c *Collector) RecordWSError() {
	if c == nil {
		return
	}
	atomic.AddInt64(&c.WSErrors, 1)
}

// RecordHTTP records an API request and whether it failed
func (c *Collector) RecordHTTP(status int) {
	if c == nil {
		return
	}
	atomic.AddInt64(&c.HTTPRequests, 1)
	if status >= 400 {
		atomic.AddInt64(&c.HTTPErrors, 1)
	}
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tickCount := atomic.LoadInt64(&c.TickCount)

	var tickAvg float64
	if tickCount > 0 {
		tickAvg = float64(atomic.LoadInt64(&c.TickLatencySum)) / float64(tickCount) / 1e6 // ms
	}

	lastTick := ""
	if !c.LastTickTime.IsZero() {
		lastTick = c.LastTickTime.Format(time.RFC3339)
	}

	actions := make(map[string]interface{}, len(c.actions))
	for name, count := range c.actions {
		actions[name] = map[string]int64{"ok": count.ok, "failed": count.failed}
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"tick": map[string]interface{}{
			"count":          tickCount,
			"avg_latency_ms": tickAvg,
			"max_latency_ms": float64(atomic.LoadInt64(&c.TickLatencyMax)) / 1e6,
			"last_tick":      lastTick,
		},

		"puzzles": map[string]interface{}{
			"sessions_created": atomic.LoadInt64(&c.SessionsCreated),
			"solved":           atomic.LoadInt64(&c.PuzzlesSolved),
			"audit_runs":       atomic.LoadInt64(&c.AuditRuns),
			"audit_violations": atomic.LoadInt64(&c.AuditViolations),
		},

		"actions": actions,

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_in":        atomic.LoadInt64(&c.WSMessagesIn),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
			"errors":             atomic.LoadInt64(&c.WSErrors),
		},

		"http": map[string]interface{}{
			"requests": atomic.LoadInt64(&c.HTTPRequests),
			"errors":   atomic.LoadInt64(&c.HTTPErrors),
		},
	}
}

// Handler returns an HTTP handler serving the snapshot as JSON.
func (c *Collector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")

		json.NewEncoder(w).Encode(c.Snapshot())
	}
}

// PrometheusHandler returns metrics in Prometheus format.
func (c *Collector) PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		fmt.Fprintf(w, "# HELP polyfit_tick_count Total frame ticks\n")
		fmt.Fprintf(w, "# TYPE polyfit_tick_count counter\n")
		fmt.Fprintf(w, "polyfit_tick_count %d\n\n", atomic.LoadInt64(&c.TickCount))

		fmt.Fprintf(w, "# HELP polyfit_tick_latency_max_ms Maximum tick latency\n")
		fmt.Fprintf(w, "# TYPE polyfit_tick_latency_max_ms gauge\n")
		fmt.Fprintf(w, "polyfit_tick_latency_max_ms %.2f\n\n", float64(atomic.LoadInt64(&c.TickLatencyMax))/1e6)

		fmt.Fprintf(w, "# HELP polyfit_sessions_created Total sessions created\n")
		fmt.Fprintf(w, "# TYPE polyfit_sessions_created counter\n")
		fmt.Fprintf(w, "polyfit_sessions_created %d\n\n", atomic.LoadInt64(&c.SessionsCreated))

		fmt.Fprintf(w, "# HELP polyfit_puzzles_solved Total puzzles solved\n")
		fmt.Fprintf(w, "# TYPE polyfit_puzzles_solved counter\n")
		fmt.Fprintf(w, "polyfit_puzzles_solved %d\n\n", atomic.LoadInt64(&c.PuzzlesSolved))

		fmt.Fprintf(w, "# HELP polyfit_audit_violations Total integrity violations found\n")
		fmt.Fprintf(w, "# TYPE polyfit_audit_violations counter\n")
		fmt.Fprintf(w, "polyfit_audit_violations %d\n\n", atomic.LoadInt64(&c.AuditViolations))

		c.mu.RLock()
		names := make([]string, 0, len(c.actions))
		for name := range c.actions {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintf(w, "# HELP polyfit_actions_total Piece interactions by result\n")
		fmt.Fprintf(w, "# TYPE polyfit_actions_total counter\n")
		for _, name := range names {
			count := c.actions[name]
			fmt.Fprintf(w, "polyfit_actions_total{action=%q,result=\"ok\"} %d\n", name, count.ok)
			fmt.Fprintf(w, "polyfit_actions_total{action=%q,result=\"failed\"} %d\n", name, count.failed)
		}
		c.mu.RUnlock()
		fmt.Fprintln(w)

		fmt.Fprintf(w, "# HELP polyfit_ws_connections Active WebSocket connections\n")
		fmt.Fprintf(w, "# TYPE polyfit_ws_connections gauge\n")
		fmt.Fprintf(w, "polyfit_ws_connections %d\n\n", atomic.LoadInt64(&c.WSConnectionsActive))

		fmt.Fprintf(w, "# HELP polyfit_ws_messages_total Total WebSocket messages\n")
		fmt.Fprintf(w, "# TYPE polyfit_ws_messages_total counter\n")
		fmt.Fprintf(w, "polyfit_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
		fmt.Fprintf(w, "polyfit_ws_messages_total{direction=\"out\"} %d\n", atomic.LoadInt64(&c.WSMessagesOut))
	}
}

package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorCounts(t *testing.T) {
	c := NewCollector()
	c.RecordTick(2 * time.Millisecond)
	c.RecordTick(4 * time.Millisecond)
	c.RecordAction("rotate", true)
	c.RecordAction("rotate", false)
	c.RecordAction("mirror", false)
	c.RecordSessionCreated()
	c.RecordSolved()
	c.RecordAudit(2)
	c.RecordWSConnection(1)
	c.RecordWSMessage(true)
	c.RecordWSMessage(false)
	c.RecordHTTP(200)
	c.RecordHTTP(404)

	snap := c.Snapshot()
	tick := snap["tick"].(map[string]interface{})
	assert.Equal(t, int64(2), tick["count"])
	assert.InDelta(t, 3.0, tick["avg_latency_ms"], 1e-9)
	assert.InDelta(t, 4.0, tick["max_latency_ms"], 1e-9)

	actions := snap["actions"].(map[string]interface{})
	assert.Equal(t, map[string]int64{"ok": 1, "failed": 1}, actions["rotate"])
	assert.Equal(t, map[string]int64{"ok": 0, "failed": 1}, actions["mirror"])

	puzzles := snap["puzzles"].(map[string]interface{})
	assert.Equal(t, int64(1), puzzles["solved"])
	assert.Equal(t, int64(2), puzzles["audit_violations"])

	httpStats := snap["http"].(map[string]interface{})
	assert.Equal(t, int64(2), httpStats["requests"])
	assert.Equal(t, int64(1), httpStats["errors"])
}

func TestNilCollectorIgnoresCalls(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordTick(time.Millisecond)
		c.RecordAction("place", true)
		c.RecordSolved()
		c.RecordWSError()
		c.RecordHTTP(500)
	})
}

func TestHandlers(t *testing.T) {
	c := NewCollector()
	c.RecordAction("place", true)

	rec := httptest.NewRecorder()
	c.Handler()(rec, httptest.NewRequest(http.MethodGet, "/api/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "uptime_seconds")
	assert.Contains(t, body, "actions")

	rec = httptest.NewRecorder()
	c.PrometheusHandler()(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	text := rec.Body.String()
	assert.True(t, strings.Contains(text, `polyfit_actions_total{action="place",result="ok"} 1`), text)
	assert.Contains(t, text, "polyfit_tick_count 0")
}

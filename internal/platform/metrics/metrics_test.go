package metrics

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_RecordTickKeepsMax(t *testing.T) {
	c := New()
	c.RecordTick(2 * time.Millisecond)
	c.RecordTick(5 * time.Millisecond)
	c.RecordTick(1 * time.Millisecond)

	assert.Equal(t, int64(3), c.TickCount)
	assert.Equal(t, int64(5*time.Millisecond), c.TickLatencyMax)

	tick := c.Snapshot()["tick"].(map[string]interface{})
	assert.InDelta(t, 8.0/3.0, tick["avg_latency_ms"], 0.001)
}

func TestCollector_SaveErrors(t *testing.T) {
	c := New()
	c.RecordSave(time.Millisecond, nil)
	c.RecordSave(time.Millisecond, errors.New("disk full"))

	saves := c.Snapshot()["saves"].(map[string]interface{})
	assert.Equal(t, int64(2), saves["written"])
	assert.Equal(t, int64(1), saves["errors"])
}

func TestCollector_GameGauges(t *testing.T) {
	c := New()
	c.SetGame(1500, 2.5)

	balance, dps := c.Game()
	assert.Equal(t, 1500.0, balance)
	assert.Equal(t, 2.5, dps)
}

func TestPrometheusHandler(t *testing.T) {
	Get().SetGame(42, 1)

	rec := httptest.NewRecorder()
	PrometheusHandler()(rec, httptest.NewRequest("GET", "/metrics/prometheus", nil))

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "empire_balance_gb 42")
	assert.Contains(t, rec.Body.String(), "empire_tick_count")
}

// Package metrics provides observability for the game server.
package metrics

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers performance metrics.
type Collector struct {
	// Tick metrics
	TickCount      int64
	TickLatencySum int64 // nanoseconds
	TickLatencyMax int64
	LastTickTime   time.Time

	// Save metrics
	SavesWritten int64
	SaveLatSum   int64
	SaveLatMax   int64
	SaveErrors   int64

	// Event metrics
	EventsWritten    int64
	EventWriteLatSum int64
	EventWriteLatMax int64
	EventWriteErrors int64

	// WebSocket metrics
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSErrors            int64
	WSDropped           int64

	// Game gauges, stored as float64 bits
	balanceBits uint64
	dpsBits     uint64
	Intents     int64

	// System
	StartTime time.Time
	mu        sync.RWMutex
}

// Global collector instance
var collector = New()

// New returns an empty collector.
func New() *Collector {
	return &Collector{StartTime: time.Now()}
}

// Get returns the global collector.
func Get() *Collector {
	return collector
}

func storeMax(addr *int64, v int64) {
	for {
		cur := atomic.LoadInt64(addr)
		if v <= cur || atomic.CompareAndSwapInt64(addr, cur, v) {
			return
		}
	}
}

// RecordTick records a tick cycle completion.
func (c *Collector) RecordTick(latency time.Duration) {
	atomic.AddInt64(&c.TickCount, 1)
	atomic.AddInt64(&c.TickLatencySum, int64(latency))
	storeMax(&c.TickLatencyMax, int64(latency))

	c.mu.Lock()
	c.LastTickTime = time.Now()
	c.mu.Unlock()
}

// RecordSave records a snapshot write.
func (c *Collector) RecordSave(latency time.Duration, err error) {
	atomic.AddInt64(&c.SavesWritten, 1)
	atomic.AddInt64(&c.SaveLatSum, int64(latency))
	storeMax(&c.SaveLatMax, int64(latency))
	if err != nil {
		atomic.AddInt64(&c.SaveErrors, 1)
	}
}

// RecordEventWrite records an event write to the database.
func (c *Collector) RecordEventWrite(latency time.Duration, err error) {
	atomic.AddInt64(&c.EventsWritten, 1)
	atomic.AddInt64(&c.EventWriteLatSum, int64(latency))
	storeMax(&c.EventWriteLatMax, int64(latency))

	if err != nil {
		atomic.AddInt64(&c.EventWriteErrors, 1)
	}
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int64) {
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage records WebSocket messages.
func (c *Collector) RecordWSMessage(incoming bool) {
	if incoming {
		atomic.AddInt64(&c.WSMessagesIn, 1)
	} else {
		atomic.AddInt64(&c.WSMessagesOut, 1)
	}
}

// RecordWSError records a WebSocket error.
func (c *Collector) RecordWSError() {
	atomic.AddInt64(&c.WSErrors, 1)
}

// RecordWSDrop records a broadcast that a slow client missed.
func (c *Collector) RecordWSDrop() {
	atomic.AddInt64(&c.WSDropped, 1)
}

// RecordIntent counts a handled player intent.
func (c *Collector) RecordIntent() {
	atomic.AddInt64(&c.Intents, 1)
}

// SetGame updates the balance and production gauges.
func (c *Collector) SetGame(balance, dps float64) {
	atomic.StoreUint64(&c.balanceBits, math.Float64bits(balance))
	atomic.StoreUint64(&c.dpsBits, math.Float64bits(dps))
}

// Game returns the last balance and production gauges.
func (c *Collector) Game() (balance, dps float64) {
	return math.Float64frombits(atomic.LoadUint64(&c.balanceBits)),
		math.Float64frombits(atomic.LoadUint64(&c.dpsBits))
}

func avgMillis(sum, count int64) float64 {
	if count == 0 {
		return 0
	}
	return float64(sum) / float64(count) / 1e6
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	lastTick := c.LastTickTime
	c.mu.RUnlock()

	tickCount := atomic.LoadInt64(&c.TickCount)
	eventsWritten := atomic.LoadInt64(&c.EventsWritten)
	saves := atomic.LoadInt64(&c.SavesWritten)
	balance, dps := c.Game()

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"tick": map[string]interface{}{
			"count":          tickCount,
			"avg_latency_ms": avgMillis(atomic.LoadInt64(&c.TickLatencySum), tickCount),
			"max_latency_ms": float64(atomic.LoadInt64(&c.TickLatencyMax)) / 1e6,
			"last_tick":      lastTick.Format(time.RFC3339),
		},

		"saves": map[string]interface{}{
			"written":        saves,
			"avg_latency_ms": avgMillis(atomic.LoadInt64(&c.SaveLatSum), saves),
			"max_latency_ms": float64(atomic.LoadInt64(&c.SaveLatMax)) / 1e6,
			"errors":         atomic.LoadInt64(&c.SaveErrors),
		},

		"events": map[string]interface{}{
			"written":          eventsWritten,
			"avg_write_lat_ms": avgMillis(atomic.LoadInt64(&c.EventWriteLatSum), eventsWritten),
			"max_write_lat_ms": float64(atomic.LoadInt64(&c.EventWriteLatMax)) / 1e6,
			"errors":           atomic.LoadInt64(&c.EventWriteErrors),
		},

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_in":        atomic.LoadInt64(&c.WSMessagesIn),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
			"errors":             atomic.LoadInt64(&c.WSErrors),
			"dropped":            atomic.LoadInt64(&c.WSDropped),
		},

		"game": map[string]interface{}{
			"balance": balance,
			"dps":     dps,
			"intents": atomic.LoadInt64(&c.Intents),
		},
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")

		snapshot := collector.Snapshot()
		json.NewEncoder(w).Encode(snapshot)
	}
}

// PrometheusHandler returns metrics in Prometheus format.
func PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		c := collector

		// Tick metrics
		fmt.Fprintf(w, "# HELP empire_tick_count Total tick cycles\n")
		fmt.Fprintf(w, "# TYPE empire_tick_count counter\n")
		fmt.Fprintf(w, "empire_tick_count %d\n\n", atomic.LoadInt64(&c.TickCount))

		fmt.Fprintf(w, "# HELP empire_tick_latency_max_ms Maximum tick latency\n")
		fmt.Fprintf(w, "# TYPE empire_tick_latency_max_ms gauge\n")
		fmt.Fprintf(w, "empire_tick_latency_max_ms %.2f\n\n", float64(atomic.LoadInt64(&c.TickLatencyMax))/1e6)

		// Save metrics
		fmt.Fprintf(w, "# HELP empire_saves_written Total snapshot writes\n")
		fmt.Fprintf(w, "# TYPE empire_saves_written counter\n")
		fmt.Fprintf(w, "empire_saves_written %d\n\n", atomic.LoadInt64(&c.SavesWritten))

		fmt.Fprintf(w, "# HELP empire_save_errors Total failed snapshot writes\n")
		fmt.Fprintf(w, "# TYPE empire_save_errors counter\n")
		fmt.Fprintf(w, "empire_save_errors %d\n\n", atomic.LoadInt64(&c.SaveErrors))

		// Event metrics
		fmt.Fprintf(w, "# HELP empire_events_written Total events written\n")
		fmt.Fprintf(w, "# TYPE empire_events_written counter\n")
		fmt.Fprintf(w, "empire_events_written %d\n\n", atomic.LoadInt64(&c.EventsWritten))

		fmt.Fprintf(w, "# HELP empire_event_write_errors Total event write errors\n")
		fmt.Fprintf(w, "# TYPE empire_event_write_errors counter\n")
		fmt.Fprintf(w, "empire_event_write_errors %d\n\n", atomic.LoadInt64(&c.EventWriteErrors))

		// WebSocket metrics
		fmt.Fprintf(w, "# HELP empire_ws_connections Active WebSocket connections\n")
		fmt.Fprintf(w, "# TYPE empire_ws_connections gauge\n")
		fmt.Fprintf(w, "empire_ws_connections %d\n\n", atomic.LoadInt64(&c.WSConnectionsActive))

		fmt.Fprintf(w, "# HELP empire_ws_messages_total Total WebSocket messages\n")
		fmt.Fprintf(w, "# TYPE empire_ws_messages_total counter\n")
		fmt.Fprintf(w, "empire_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
		fmt.Fprintf(w, "empire_ws_messages_total{direction=\"out\"} %d\n\n", atomic.LoadInt64(&c.WSMessagesOut))

		// Game gauges
		balance, dps := c.Game()
		fmt.Fprintf(w, "# HELP empire_balance_gb Spendable data\n")
		fmt.Fprintf(w, "# TYPE empire_balance_gb gauge\n")
		fmt.Fprintf(w, "empire_balance_gb %.0f\n\n", balance)

		fmt.Fprintf(w, "# HELP empire_dps Data produced per second\n")
		fmt.Fprintf(w, "# TYPE empire_dps gauge\n")
		fmt.Fprintf(w, "empire_dps %.2f\n", dps)
	}
}

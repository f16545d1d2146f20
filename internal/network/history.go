// Package network - history.go
// History endpoints: the live session log and the durable recap.
package network

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/kylechrisking/it-empire-idle/internal/events"
	"github.com/kylechrisking/it-empire-idle/internal/infra/storage"
	"github.com/kylechrisking/it-empire-idle/internal/platform/logger"
)

// HistoryHandler serves past game events.
type HistoryHandler struct {
	eventLog *events.EventLog
	recap    *storage.Recap
	slot     string
	logger   *logger.Logger
}

// NewHistoryHandler creates the history endpoints. recap may be nil.
func NewHistoryHandler(el *events.EventLog, recap *storage.Recap, slot string, log *logger.Logger) *HistoryHandler {
	return &HistoryHandler{
		eventLog: el,
		recap:    recap,
		slot:     slot,
		logger:   log,
	}
}

// Routes registers the history endpoints on r.
func (hh *HistoryHandler) Routes(r *mux.Router) {
	r.HandleFunc("/api/events", hh.HandleEvents).Methods(http.MethodGet)
	r.HandleFunc("/api/history", hh.HandleHistory).Methods(http.MethodGet)
}

// EventsResponse is the API response for the session log.
type EventsResponse struct {
	TotalEvents int                `json:"total_events"`
	FilteredBy  string             `json:"filtered_by,omitempty"`
	GeneratedAt string             `json:"generated_at"`
	Events      []events.GameEvent `json:"events"`
}

// HandleEvents returns the events of the running session.
// GET /api/events?type=ENTITY_HIRED&actor=PLAYER
func (hh *HistoryHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	eventType := r.URL.Query().Get("type")
	actor := r.URL.Query().Get("actor")

	var list []events.GameEvent
	filterDesc := ""
	switch {
	case eventType != "":
		list = hh.eventLog.GetByType(events.EventType(eventType))
		filterDesc = "type=" + eventType
	case actor != "":
		list = hh.eventLog.GetByActor(actor)
		filterDesc = "actor=" + actor
	default:
		list = hh.eventLog.Replay()
	}
	if list == nil {
		list = []events.GameEvent{}
	}

	writeJSON(w, http.StatusOK, EventsResponse{
		TotalEvents: hh.eventLog.Len(),
		FilteredBy:  filterDesc,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Events:      list,
	})
}

// HandleHistory returns the durable recap.
// GET /api/history?since=2024-01-01T00:00:00Z&limit=50
func (hh *HistoryHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if hh.recap == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "history storage not configured"})
		return
	}

	var since time.Time
	if s := r.URL.Query().Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid since, want RFC3339"})
			return
		}
		since = t
	}
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid limit"})
			return
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), intentWait)
	defer cancel()

	recap, err := hh.recap.Generate(ctx, hh.slot, since, limit)
	if err != nil {
		hh.logger.Error("History query failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "history unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"slot":   hh.slot,
		"events": recap,
	})
}

// Package network - api.go
// REST surface of the game: every player intent as an HTTP route.
package network

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/kylechrisking/it-empire-idle/internal/domain/roster"
	"github.com/kylechrisking/it-empire-idle/internal/engine"
	"github.com/kylechrisking/it-empire-idle/internal/ledger"
	"github.com/kylechrisking/it-empire-idle/internal/platform/logger"
	"github.com/kylechrisking/it-empire-idle/internal/save"
)

const maxImportBytes = 1 << 20

// API handles REST requests by forwarding them to the game loop.
type API struct {
	scheduler *engine.Scheduler
	logger    *logger.Logger
	timeout   time.Duration
}

// NewAPI creates the REST handler set.
func NewAPI(s *engine.Scheduler, log *logger.Logger) *API {
	return &API{scheduler: s, logger: log, timeout: intentWait}
}

// Routes registers every endpoint on r.
func (a *API) Routes(r *mux.Router) {
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/state", a.HandleState).Methods(http.MethodGet)
	api.HandleFunc("/click", a.intent(engine.IntentClick)).Methods(http.MethodPost)
	api.HandleFunc("/hold/start", a.intent(engine.IntentHoldStart)).Methods(http.MethodPost)
	api.HandleFunc("/hold/end", a.intent(engine.IntentHoldEnd)).Methods(http.MethodPost)
	api.HandleFunc("/employees/{role}/{id}/hire", a.intent(engine.IntentHireEmployee)).Methods(http.MethodPost)
	api.HandleFunc("/managers/{id}/hire", a.intent(engine.IntentHireManager)).Methods(http.MethodPost)
	api.HandleFunc("/upgrades/{id}/purchase", a.intent(engine.IntentPurchaseUpgrade)).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{role}/{id}/start", a.intent(engine.IntentStartTask)).Methods(http.MethodPost)
	api.HandleFunc("/save", a.intent(engine.IntentSaveNow)).Methods(http.MethodPost)
	api.HandleFunc("/reset", a.intent(engine.IntentResetAll)).Methods(http.MethodPost)
	api.HandleFunc("/import", a.intent(engine.IntentImport)).Methods(http.MethodPost)
	api.HandleFunc("/settings", a.intent(engine.IntentUpdateSettings)).Methods(http.MethodPut)
	api.HandleFunc("/export", a.HandleExport).Methods(http.MethodGet)
}

// HandleState returns the read model.
// GET /api/state
func (a *API) HandleState(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), a.timeout)
	defer cancel()

	st, err := a.scheduler.Status(ctx)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// HandleExport downloads the current snapshot.
// GET /api/export
func (a *API) HandleExport(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), a.timeout)
	defer cancel()

	out, err := a.scheduler.Handle(ctx, engine.Intent{Type: engine.IntentExport})
	if err != nil {
		a.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+save.ExportFileName+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(out.Data)
}

// intent builds a handler that forwards one intent type, taking role and id
// from the path and the payload from the body.
func (a *API) intent(t engine.IntentType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		in := engine.Intent{Type: t, Role: vars["role"], ID: vars["id"]}

		if t == engine.IntentImport || t == engine.IntentUpdateSettings {
			body, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
			if err != nil {
				a.jsonError(w, "Invalid request body", http.StatusBadRequest)
				return
			}
			in.Payload = body
		}

		ctx, cancel := context.WithTimeout(r.Context(), a.timeout)
		defer cancel()

		out, err := a.scheduler.Handle(ctx, in)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "ok",
			"intent": t,
			"amount": out.Amount,
		})
	}
}

// StatusFor maps a game error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, roster.ErrUnknownEntity), errors.Is(err, engine.ErrUnknownUpgrade):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, roster.ErrAlreadyOwned),
		errors.Is(err, roster.ErrNotOwned),
		errors.Is(err, engine.ErrFeatureLocked),
		errors.Is(err, engine.ErrMaxLevel),
		errors.Is(err, engine.ErrWrongKind):
		return http.StatusConflict
	case errors.Is(err, save.ErrCorruptSave),
		errors.Is(err, engine.ErrInvalidSettings),
		errors.Is(err, engine.ErrUnknownIntent):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrNoPersister):
		return http.StatusNotImplemented
	case errors.Is(err, engine.ErrSchedulerStopped),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) fail(w http.ResponseWriter, err error) {
	code := StatusFor(err)
	if code >= http.StatusInternalServerError {
		a.logger.Error("Request failed", "err", err)
	}
	a.jsonError(w, err.Error(), code)
}

func (a *API) jsonError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

package simulation

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aidmatch/platform/internal/application/domain"
	"github.com/aidmatch/platform/internal/shared/auth"
	"github.com/aidmatch/platform/internal/shared/errors"
	"github.com/aidmatch/platform/internal/shared/events"
	"github.com/aidmatch/platform/internal/shared/types"
)

// Handler drives simulated agency reviews over the tracker
type Handler struct {
	tracker *domain.Tracker
	bus     events.EventBus

	mu     sync.Mutex
	passes map[types.ID]int
}

// NewHandler creates a new simulation handler
func NewHandler(tracker *domain.Tracker, bus events.EventBus) *Handler {
	return &Handler{tracker: tracker, bus: bus, passes: make(map[types.ID]int)}
}

// Routes registers the simulation routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/advance", h.Advance)
	r.Get("/preview", h.Preview)

	return r
}

// Advance applies one simulated review step to every non-terminal
// application in the session.
func (h *Handler) Advance(w http.ResponseWriter, r *http.Request) {
	sessionID, err := requireSession(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	result := h.run(r.Context(), sessionID, true)

	if h.bus != nil {
		event := events.NewEvent("simulation.advanced", "simulation", map[string]any{
			"decisions": len(result.Decisions),
			"remaining": result.Remaining,
		}).WithSession(sessionID.String(), "system")
		if err := h.bus.Publish(context.Background(), event); err != nil {
			log.Printf("simulation: publish: %v", err)
		}
	}

	writeJSON(w, http.StatusOK, result)
}

// Preview reports what Advance would do without applying it
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	sessionID, err := requireSession(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.run(r.Context(), sessionID, false))
}

func (h *Handler) run(ctx context.Context, sessionID types.ID, apply bool) *RunResult {
	h.mu.Lock()
	pass := h.passes[sessionID] + 1
	if apply {
		h.passes[sessionID] = pass
	}
	h.mu.Unlock()

	result := &RunResult{
		SessionID: sessionID.String(),
		RanAt:     time.Now().UTC(),
		Decisions: []Decision{},
	}

	for _, app := range h.tracker.Applications(sessionID) {
		to, ok := nextStatus(app, pass)
		if !ok {
			continue
		}

		d := Decision{
			ApplicationID:      app.ID.String(),
			ConfirmationNumber: app.ConfirmationNumber,
			From:               app.Status,
			To:                 to,
		}
		if apply {
			if _, err := h.tracker.Transition(ctx, sessionID, app.ID, to, nil); err != nil {
				d.Note = err.Error()
			} else {
				d.Applied = true
			}
		}
		result.Decisions = append(result.Decisions, d)
	}

	for _, app := range h.tracker.Applications(sessionID) {
		if !app.Status.Terminal() {
			result.Remaining++
		}
	}
	return result
}

func requireSession(ctx context.Context) (types.ID, error) {
	s := auth.GetSession(ctx)
	if s == nil {
		return "", errors.Unauthorized("session required")
	}
	id, err := types.ParseID(s.ID)
	if err != nil {
		return "", errors.Unauthorized("invalid session")
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	if appErr, ok := err.(*errors.AppError); ok {
		w.WriteHeader(appErr.HTTPStatus)
		json.NewEncoder(w).Encode(map[string]any{
			"error":   appErr.Message,
			"code":    appErr.Code,
			"details": appErr.Details,
		})
		return
	}

	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
}

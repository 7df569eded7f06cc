package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aidmatch/platform/internal/shared/auth"
	"github.com/aidmatch/platform/internal/shared/errors"
)

// Handler exposes the delivery opt-in and stats endpoints
type Handler struct {
	dispatcher *Dispatcher
}

// NewHandler creates a new notification delivery handler
func NewHandler(dispatcher *Dispatcher) *Handler {
	return &Handler{dispatcher: dispatcher}
}

// Routes registers the delivery routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/contact", h.RegisterContact)
	r.Get("/contact", h.GetContact)
	r.Get("/stats", h.GetStats)

	return r
}

// RegisterContactRequest carries an applicant's opt-in preferences
type RegisterContactRequest struct {
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	EmailEnabled bool   `json:"email_enabled"`
	SMSEnabled   bool   `json:"sms_enabled"`
}

// RegisterContact stores delivery preferences for the session
func (h *Handler) RegisterContact(w http.ResponseWriter, r *http.Request) {
	sessionID, err := requireSession(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	var req RegisterContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	details := map[string]string{}
	if req.EmailEnabled && !strings.Contains(req.Email, "@") {
		details["email"] = "a valid email address is required to enable email delivery"
	}
	if req.SMSEnabled && req.Phone == "" {
		details["phone"] = "a phone number is required to enable SMS delivery"
	}
	if len(details) > 0 {
		writeError(w, errors.Validation("invalid contact details", details))
		return
	}

	contact := Contact{
		SessionID:    sessionID,
		Email:        req.Email,
		Phone:        req.Phone,
		EmailEnabled: req.EmailEnabled,
		SMSEnabled:   req.SMSEnabled,
		UpdatedAt:    time.Now().UTC(),
	}
	h.dispatcher.RegisterContact(contact)

	writeJSON(w, http.StatusOK, contact)
}

// GetContact returns the session's stored preferences
func (h *Handler) GetContact(w http.ResponseWriter, r *http.Request) {
	sessionID, err := requireSession(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	contact := h.dispatcher.ContactFor(sessionID)
	if contact == nil {
		writeError(w, errors.NotFound("contact", sessionID))
		return
	}
	writeJSON(w, http.StatusOK, contact)
}

// GetStats returns delivery counters since startup
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.dispatcher.Stats())
}

func requireSession(ctx context.Context) (string, error) {
	s := auth.GetSession(ctx)
	if s == nil {
		return "", errors.Unauthorized("session required")
	}
	return s.ID, nil
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

// Package api exposes the application tracker over HTTP: submission,
// status reads, agency status updates, and the notification feed.
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aidmatch/platform/internal/adapters/registry"
	"github.com/aidmatch/platform/internal/application/domain"
	assessdomain "github.com/aidmatch/platform/internal/assessment/domain"
	"github.com/aidmatch/platform/internal/eligibility"
	"github.com/aidmatch/platform/internal/profile"
	"github.com/aidmatch/platform/internal/shared/auth"
	"github.com/aidmatch/platform/internal/shared/errors"
	"github.com/aidmatch/platform/internal/shared/types"
)

// Handler provides HTTP handlers for the application module
type Handler struct {
	tracker  *domain.Tracker
	assessor *assessdomain.Assessor
	engine   *eligibility.Engine
	registry registry.Adapter
}

// NewHandler creates a new application handler. The registry adapter is
// optional; without it responses simply omit local office context.
func NewHandler(tracker *domain.Tracker, assessor *assessdomain.Assessor, engine *eligibility.Engine, reg registry.Adapter) *Handler {
	return &Handler{tracker: tracker, assessor: assessor, engine: engine, registry: reg}
}

// Routes registers the application routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.SubmitApplication)
	r.Get("/", h.ListApplications)

	r.Route("/{applicationID}", func(r chi.Router) {
		r.Get("/", h.GetApplication)
		r.Post("/status", h.UpdateStatus)
	})

	return r
}

// NotificationRoutes registers the notification feed routes
func (h *Handler) NotificationRoutes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListNotifications)
	r.Get("/unread_count", h.UnreadCount)
	r.Post("/read", h.MarkAllRead)

	return r
}

// SubmitApplicationRequest names the program to apply to and carries the
// household profile it was judged on. The server re-runs the deterministic
// evaluation, so a client cannot submit against a fabricated verdict.
type SubmitApplicationRequest struct {
	ProgramID string                   `json:"program_id"`
	Profile   profile.HouseholdProfile `json:"profile"`
}

// UpdateStatusRequest carries an agency decision. NextSteps and the
// benefit fields are optional decision context.
type UpdateStatusRequest struct {
	Status        domain.Status `json:"status"`
	NextSteps     []string      `json:"next_steps,omitempty"`
	BenefitAmount *float64      `json:"benefit_amount,omitempty"`
	BenefitPeriod string        `json:"benefit_period,omitempty"`
}

// SubmitApplication files an application for an eligible program
func (h *Handler) SubmitApplication(w http.ResponseWriter, r *http.Request) {
	var req SubmitApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	def := h.engine.Catalog().ByID(req.ProgramID)
	if def == nil {
		writeError(w, errors.NotFound("program", req.ProgramID))
		return
	}

	assessment, err := h.assessor.Assess(&req.Profile)
	if err != nil {
		writeError(w, err)
		return
	}
	report := h.engine.Evaluate(&req.Profile, assessment)
	verdict := report.Find(req.ProgramID)
	if verdict == nil {
		writeError(w, errors.NotFound("program", req.ProgramID))
		return
	}

	submit := domain.SubmitRequest{
		ProgramID:      def.ID,
		ProgramName:    def.Name,
		Category:       def.Category,
		Prefix:         def.Prefix,
		ProcessingDays: def.ProcessingDays,
		Eligible:       verdict.Eligible,
	}
	switch {
	case verdict.EstimatedMonthlyBenefit != nil:
		submit.BenefitAmount = verdict.EstimatedMonthlyBenefit
		submit.BenefitPeriod = "monthly"
	case verdict.EstimatedAnnualBenefit != nil:
		submit.BenefitAmount = verdict.EstimatedAnnualBenefit
		submit.BenefitPeriod = "annual"
	}

	sessionID, err := h.session(r)
	if err != nil {
		writeError(w, err)
		return
	}

	app, err := h.tracker.Submit(r.Context(), sessionID, submit)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := SubmitApplicationResponse{Application: app}
	h.attachRegistryContext(r.Context(), &resp, def.ID, req.Profile.ZIPCode)

	writeJSON(w, http.StatusCreated, resp)
}

// SubmitApplicationResponse carries the filed application plus advisory
// context from the state registry when it is reachable.
type SubmitApplicationResponse struct {
	Application    *domain.Application `json:"application"`
	Offices        []registry.Office   `json:"offices,omitempty"`
	RegistryNotice string              `json:"registry_notice,omitempty"`
}

// attachRegistryContext adds local offices and program load to the
// response. The registry is a legacy system; failures are logged and the
// submission succeeds without the context.
func (h *Handler) attachRegistryContext(ctx context.Context, resp *SubmitApplicationResponse, programID string, zip types.ZIPCode) {
	if h.registry == nil || !zip.IsValid() {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	offices, err := h.registry.FindOffices(ctx, zip)
	if err != nil {
		log.Printf("application: registry offices lookup: %v", err)
	} else {
		resp.Offices = offices
	}

	stats, err := h.registry.EnrollmentStats(ctx, programID, zip.Region())
	if err != nil {
		log.Printf("application: registry enrollment lookup: %v", err)
		return
	}
	if stats != nil {
		resp.RegistryNotice = stats.BacklogNotice()
	}
}

// ListApplications returns the session's applications
func (h *Handler) ListApplications(w http.ResponseWriter, r *http.Request) {
	sessionID, err := h.session(r)
	if err != nil {
		writeError(w, err)
		return
	}

	apps := h.tracker.Applications(sessionID)
	writeJSON(w, http.StatusOK, map[string]any{"data": apps, "total": len(apps)})
}

// GetApplication returns one application
func (h *Handler) GetApplication(w http.ResponseWriter, r *http.Request) {
	sessionID, err := h.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := types.ParseID(chi.URLParam(r, "applicationID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid application ID"))
		return
	}

	app, err := h.tracker.Get(sessionID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

// UpdateStatus applies an agency decision to an application
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	sessionID, err := h.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := types.ParseID(chi.URLParam(r, "applicationID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid application ID"))
		return
	}

	var details *domain.TransitionDetails
	if len(req.NextSteps) > 0 || req.BenefitAmount != nil {
		details = &domain.TransitionDetails{
			NextSteps:     req.NextSteps,
			BenefitAmount: req.BenefitAmount,
			BenefitPeriod: req.BenefitPeriod,
		}
	}

	app, err := h.tracker.Transition(r.Context(), sessionID, id, req.Status, details)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

// ListNotifications returns the session feed, newest first
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	sessionID, err := h.session(r)
	if err != nil {
		writeError(w, err)
		return
	}

	notifs := h.tracker.Notifications(sessionID)
	writeJSON(w, http.StatusOK, map[string]any{
		"data":   notifs,
		"total":  len(notifs),
		"unread": h.tracker.UnreadCount(sessionID),
	})
}

// UnreadCount returns the unread notification count
func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	sessionID, err := h.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread": h.tracker.UnreadCount(sessionID)})
}

// MarkAllRead marks the whole feed read
func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	sessionID, err := h.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	marked := h.tracker.MarkAllRead(r.Context(), sessionID)
	writeJSON(w, http.StatusOK, map[string]int{"marked": marked})
}

// session resolves the applicant session and warms the tracker from the
// store, so a returning session sees its applications after a restart.
func (h *Handler) session(r *http.Request) (types.ID, error) {
	s := auth.GetSession(r.Context())
	if s == nil {
		return "", errors.Unauthorized("session required")
	}
	id, err := types.ParseID(s.ID)
	if err != nil {
		return "", errors.Unauthorized("invalid session")
	}
	h.tracker.Hydrate(r.Context(), id)
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

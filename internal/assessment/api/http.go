// Package api exposes the assessment pipeline over HTTP: profile intake,
// poverty assessment, eligibility evaluation, and read access to stored
// assessments.
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aidmatch/platform/internal/assessment/domain"
	"github.com/aidmatch/platform/internal/eligibility"
	"github.com/aidmatch/platform/internal/oracle"
	"github.com/aidmatch/platform/internal/profile"
	"github.com/aidmatch/platform/internal/shared/auth"
	"github.com/aidmatch/platform/internal/shared/errors"
	"github.com/aidmatch/platform/internal/shared/events"
	"github.com/aidmatch/platform/internal/shared/metrics"
	"github.com/aidmatch/platform/internal/shared/types"
)

// Record is one stored assessment with its inputs and verdicts
type Record struct {
	SessionID  types.ID                       `json:"session_id"`
	Profile    *profile.HouseholdProfile      `json:"profile"`
	Assessment *domain.Assessment             `json:"assessment"`
	Report     *eligibility.EligibilityReport `json:"report"`
}

// Repository persists assessment records. Persistence is best effort:
// the applicant gets their results even when the write fails.
type Repository interface {
	Save(ctx context.Context, rec *Record) error
	FindByID(ctx context.Context, id types.ID) (*Record, error)
	ListBySession(ctx context.Context, sessionID types.ID) ([]*Record, error)
}

// Handler provides HTTP handlers for the assessment module
type Handler struct {
	assessor *domain.Assessor
	engine   *eligibility.Engine
	oracle   *oracle.Client
	repo     Repository // optional
	bus      events.EventBus
}

// NewHandler creates a new assessment handler
func NewHandler(assessor *domain.Assessor, engine *eligibility.Engine, oracleClient *oracle.Client, repo Repository, bus events.EventBus) *Handler {
	return &Handler{assessor: assessor, engine: engine, oracle: oracleClient, repo: repo, bus: bus}
}

// Routes registers the assessment routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreateAssessment)
	r.Get("/", h.ListAssessments)
	r.Get("/{assessmentID}", h.GetAssessment)

	return r
}

// AssessmentResponse is the full answer to a profile submission
type AssessmentResponse struct {
	Assessment *domain.Assessment             `json:"assessment"`
	Report     *eligibility.EligibilityReport `json:"report"`

	// Advisory carries the external scoring service's annotations when it
	// answered in time; absent otherwise. Never affects the verdicts.
	Advisory        []oracle.ProgramScore `json:"advisory,omitempty"`
	OracleAvailable bool                  `json:"oracle_available"`
}

// CreateAssessment runs the full pipeline on a submitted profile
func (h *Handler) CreateAssessment(w http.ResponseWriter, r *http.Request) {
	var p profile.HouseholdProfile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	assessment, err := h.assessor.Assess(&p)
	if err != nil {
		writeError(w, err)
		return
	}

	report := h.engine.Evaluate(&p, assessment)

	metrics.RecordAssessment(string(assessment.PovertyClassification), report.Partial)
	for _, v := range report.Verdicts {
		metrics.RecordVerdict(v.ProgramID, v.Eligible)
	}

	resp := AssessmentResponse{Assessment: assessment, Report: report}
	if h.oracle != nil && h.oracle.Enabled() {
		resp.Advisory = h.advisoryScores(r.Context(), &p, assessment, report)
		resp.OracleAvailable = resp.Advisory != nil
	}

	sessionID := sessionID(r.Context())
	if h.repo != nil {
		rec := &Record{SessionID: sessionID, Profile: &p, Assessment: assessment, Report: report}
		if err := h.repo.Save(r.Context(), rec); err != nil {
			log.Printf("assessment: persist %s: %v", assessment.ID, err)
		}
	}

	h.publish(events.NewEvent("assessment.completed", "assessment-api", map[string]any{
		"assessment_id":  assessment.ID,
		"classification": assessment.PovertyClassification,
		"eligible_count": report.EligibleCount(),
		"partial":        report.Partial,
	}).WithSession(sessionID.String(), "applicant").WithSubject(assessment.ID))

	writeJSON(w, http.StatusCreated, resp)
}

// GetAssessment returns one stored assessment
func (h *Handler) GetAssessment(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, errors.NotFound("assessment", chi.URLParam(r, "assessmentID")))
		return
	}
	id, err := types.ParseID(chi.URLParam(r, "assessmentID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid assessment ID"))
		return
	}

	rec, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ListAssessments returns the session's stored assessments, newest first
func (h *Handler) ListAssessments(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeJSON(w, http.StatusOK, map[string]any{"data": []*Record{}, "total": 0})
		return
	}

	recs, err := h.repo.ListBySession(r.Context(), sessionID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": recs, "total": len(recs)})
}

// advisoryScores asks the oracle with a short deadline so a slow or down
// service never delays the applicant's results.
func (h *Handler) advisoryScores(ctx context.Context, p *profile.HouseholdProfile, a *domain.Assessment, report *eligibility.EligibilityReport) []oracle.ProgramScore {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ids := make([]string, len(report.Verdicts))
	for i, v := range report.Verdicts {
		ids[i] = v.ProgramID
	}

	resp, err := h.oracle.Score(ctx, p, a, ids)
	if err != nil {
		log.Printf("assessment: oracle advisory skipped: %v", err)
		return nil
	}
	return resp.Scores
}

func (h *Handler) publish(event events.Event) {
	if h.bus == nil {
		return
	}
	if err := h.bus.Publish(context.Background(), event); err != nil {
		log.Printf("assessment: publish %s: %v", event.Type, err)
	}
}

// sessionID resolves the applicant session from the request context.
// Requests outside the session middleware get the zero ID.
func sessionID(ctx context.Context) types.ID {
	if s := auth.GetSession(ctx); s != nil {
		if id, err := types.ParseID(s.ID); err == nil {
			return id
		}
	}
	return types.ID("")
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

// Package domain implements the application lifecycle: the aggregate,
// its status state machine, and the per-session tracker that owns
// applications and their notifications.
package domain

import (
	"fmt"
	"time"

	apperrors "github.com/aidmatch/platform/internal/shared/errors"
	"github.com/aidmatch/platform/internal/shared/types"
)

// Status defines the review state of a submitted application
type Status string

const (
	StatusUnderReview    Status = "under_review"
	StatusApproved       Status = "approved"
	StatusWaitlisted     Status = "waitlisted"
	StatusActionRequired Status = "action_required"
	StatusDenied         Status = "denied"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusUnderReview, StatusApproved, StatusWaitlisted, StatusActionRequired, StatusDenied:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed from s
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusDenied
}

// allowedTransitions is the full status state machine. Approved and denied
// are terminal; action_required returns only to under_review once the
// applicant responds; a waitlisted application can reopen, approve, or deny.
var allowedTransitions = map[Status][]Status{
	StatusUnderReview:    {StatusApproved, StatusWaitlisted, StatusActionRequired, StatusDenied},
	StatusActionRequired: {StatusUnderReview},
	StatusWaitlisted:     {StatusUnderReview, StatusApproved, StatusDenied},
	StatusApproved:       {},
	StatusDenied:         {},
}

// CanTransition reports whether the edge from -> to is allowed
func CanTransition(from, to Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Application is the aggregate for one program application within a session
type Application struct {
	ID        types.ID `json:"id"`
	SessionID types.ID `json:"session_id"`

	ProgramID   string `json:"program_id"`
	ProgramName string `json:"program_name"`
	Category    string `json:"category"`

	Status             Status `json:"status"`
	ConfirmationNumber string `json:"confirmation_number"`

	SubmittedDate         time.Time `json:"submitted_date"`
	LastUpdated           time.Time `json:"last_updated"`
	EstimatedDecisionDate time.Time `json:"estimated_decision_date"`

	// BenefitAmount carries the estimate shown at submission time;
	// BenefitPeriod says whether it is a monthly or annual figure.
	BenefitAmount *float64 `json:"benefit_amount,omitempty"`
	BenefitPeriod string   `json:"benefit_period,omitempty"`

	NextSteps []string `json:"next_steps"`
}

// NewApplication creates an application in under_review with a fresh
// confirmation number and a decision date derived from the program's
// processing time. The ID is derived from the session and program, so
// one session can never hold two applications for the same program no
// matter which process handles the submission.
func NewApplication(sessionID types.ID, programID, programName, category, prefix string, processingDays int) *Application {
	now := time.Now().UTC()
	return &Application{
		ID:                    types.NewDeterministicID(sessionID.String(), programID),
		SessionID:             sessionID,
		ProgramID:             programID,
		ProgramName:           programName,
		Category:              category,
		Status:                StatusUnderReview,
		ConfirmationNumber:    generateConfirmationNumber(prefix, now),
		SubmittedDate:         now,
		LastUpdated:           now,
		EstimatedDecisionDate: now.Add(time.Duration(processingDays) * 24 * time.Hour),
		NextSteps:             defaultNextSteps(programName),
	}
}

// Transition moves the application to a new status. A disallowed edge
// returns an InvalidTransition error and leaves the application unmodified.
func (a *Application) Transition(to Status) error {
	if !to.Valid() {
		return apperrors.BadRequest(fmt.Sprintf("unknown application status %q", to))
	}
	if !CanTransition(a.Status, to) {
		return apperrors.InvalidTransition(string(a.Status), string(to))
	}
	a.Status = to
	a.LastUpdated = time.Now().UTC()
	return nil
}

// generateConfirmationNumber builds a PREFIX-YEAR-SEQUENCE number
// (e.g. SNAP-2026-492817). In production the sequence would come from a
// database counter.
func generateConfirmationNumber(prefix string, now time.Time) string {
	seq := time.Now().UnixNano() % 1000000
	return fmt.Sprintf("%s-%d-%06d", prefix, now.Year(), seq)
}

func defaultNextSteps(programName string) []string {
	return []string{
		fmt.Sprintf("Watch for mail or email from the %s office", programName),
		"Gather proof of income and identity for verification",
		"Respond promptly to any request for additional documents",
	}
}

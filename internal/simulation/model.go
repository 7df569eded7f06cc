// Package simulation stands in for the agencies that would review
// applications in production. It advances applications through their
// status lifecycle with a deterministic policy, so the tracker, the
// notification feed, and the audit trail can be exercised end to end.
package simulation

import (
	"crypto/sha256"
	"strconv"
	"time"

	"github.com/aidmatch/platform/internal/application/domain"
)

// Decision is one simulated agency action on an application
type Decision struct {
	ApplicationID      string        `json:"application_id"`
	ConfirmationNumber string        `json:"confirmation_number"`
	From               domain.Status `json:"from"`
	To                 domain.Status `json:"to"`
	Applied            bool          `json:"applied"`
	Note               string        `json:"note,omitempty"`
}

// RunResult summarizes one simulation pass over a session
type RunResult struct {
	SessionID string     `json:"session_id"`
	RanAt     time.Time  `json:"ran_at"`
	Decisions []Decision `json:"decisions"`
	Remaining int        `json:"remaining"`
}

// nextStatus picks the next step for an application. The choice hashes
// the confirmation number, the current status, and the pass number, so
// reruns of the same session replay the same review path while repeat
// passes still make progress.
func nextStatus(app *domain.Application, pass int) (domain.Status, bool) {
	if app.Status.Terminal() {
		return "", false
	}

	roll := deterministicRoll(app.ConfirmationNumber, string(app.Status), strconv.Itoa(pass))
	switch app.Status {
	case domain.StatusUnderReview:
		// Most reviews approve; the rest split across the other outcomes.
		switch {
		case roll < 55:
			return domain.StatusApproved, true
		case roll < 70:
			return domain.StatusActionRequired, true
		case roll < 85:
			return domain.StatusWaitlisted, true
		default:
			return domain.StatusDenied, true
		}
	case domain.StatusActionRequired:
		return domain.StatusUnderReview, true
	case domain.StatusWaitlisted:
		switch {
		case roll < 40:
			return domain.StatusApproved, true
		case roll < 80:
			return domain.StatusUnderReview, true
		default:
			return domain.StatusDenied, true
		}
	}
	return "", false
}

// deterministicRoll maps its inputs to a stable value in [0, 100)
func deterministicRoll(parts ...string) int {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
	}
	sum := h.Sum(nil)
	return int(sum[0]) % 100
}

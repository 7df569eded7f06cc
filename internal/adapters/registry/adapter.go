// Package registry defines the interface to legacy state benefit registries.
// Several counties still run enrollment records on aging SQL Server systems;
// the platform reads them for advisory context (local offices, program load)
// and never writes to them.
package registry

import (
	"context"
	"time"

	"github.com/aidmatch/platform/internal/shared/types"
)

// Adapter defines the read-only interface to a state benefits registry
type Adapter interface {
	// FindOffices returns the agency offices serving a ZIP code,
	// nearest region first.
	FindOffices(ctx context.Context, zip types.ZIPCode) ([]Office, error)

	// EnrollmentStats returns program load for a ZIP region. A nil
	// result with nil error means the registry has no data for the
	// region.
	EnrollmentStats(ctx context.Context, programID string, region string) (*EnrollmentStats, error)

	// SourceSystem identifies the backing registry
	SourceSystem() string

	// Health verifies the registry connection
	Health(ctx context.Context) error

	// Close releases the connection pool
	Close() error
}

// Office represents a local agency office that processes applications
type Office struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Agency    string `json:"agency"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZIPCode   string `json:"zip_code"`
	Phone     string `json:"phone,omitempty"`
	Programs  []string `json:"programs"`
}

// EnrollmentStats summarizes program load for a ZIP region
type EnrollmentStats struct {
	ProgramID         string    `json:"program_id"`
	Region            string    `json:"region"`
	ActiveEnrollments int       `json:"active_enrollments"`
	PendingBacklog    int       `json:"pending_backlog"`
	Capacity          int       `json:"capacity,omitempty"`
	AsOf              time.Time `json:"as_of"`
}

// Waitlisted reports whether the region is over capacity. Regions
// without a published capacity are never considered waitlisted.
func (s *EnrollmentStats) Waitlisted() bool {
	return s.Capacity > 0 && s.ActiveEnrollments >= s.Capacity
}

// BacklogNotice returns an applicant-facing note about regional load,
// or an empty string when there is nothing worth surfacing.
func (s *EnrollmentStats) BacklogNotice() string {
	switch {
	case s.Waitlisted():
		return "This program is at capacity in your area; new applications are placed on a waitlist."
	case s.PendingBacklog > 500:
		return "This program has a large application backlog in your area; processing may take longer than estimated."
	default:
		return ""
	}
}

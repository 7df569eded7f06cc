// Package eligibility implements the program catalog and the deterministic
// eligibility engine. Every judgment the reference system deferred to a
// generative scoring oracle is realized here as an auditable rule: a
// predicate over the household profile and its assessment, a benefit
// estimator, and a confidence heuristic.
package eligibility

import (
	"github.com/aidmatch/platform/internal/assessment/domain"
	"github.com/aidmatch/platform/internal/profile"
	"github.com/aidmatch/platform/internal/shared/config"
)

// RuleContext carries everything a program rule may consult
type RuleContext struct {
	Profile    *profile.HouseholdProfile
	Assessment *domain.Assessment
	Guidelines config.GuidelinesConfig
}

// BenefitEstimate is a monthly or annual dollar estimate; at most one of
// the two is populated. Both absent means the program's benefit varies or
// is non-monetary.
type BenefitEstimate struct {
	MonthlyAmount *float64 `json:"monthly_amount,omitempty"`
	AnnualAmount  *float64 `json:"annual_amount,omitempty"`
}

// ProgramDefinition is a static catalog entry. Identity is the ID, stable
// across catalog versions; the catalog is append-only in practice.
type ProgramDefinition struct {
	ID       string
	Name     string
	Category string

	// Prefix is used to build confirmation numbers for applications
	Prefix string

	ProcessingDays int

	// Rule decides eligibility and explains which criterion decided it
	Rule func(rc RuleContext) (bool, string, error)

	// Benefit estimates the dollar value for an eligible household
	Benefit func(rc RuleContext) BenefitEstimate

	// Confidence scores approval likelihood in [0,100], monotone in the
	// margin by which the household clears the qualifying threshold
	Confidence func(rc RuleContext, eligible bool) int
}

// ProgramVerdict is one program's eligibility determination
type ProgramVerdict struct {
	ProgramID     string `json:"program_id"`
	ProgramName   string `json:"program_name"`
	Category      string `json:"category"`
	Eligible      bool   `json:"eligible"`
	Indeterminate bool   `json:"indeterminate,omitempty"`
	Reason        string `json:"reason"`

	EstimatedMonthlyBenefit *float64 `json:"estimated_monthly_benefit,omitempty"`
	EstimatedAnnualBenefit  *float64 `json:"estimated_annual_benefit,omitempty"`

	ProcessingDays int `json:"processing_days"`

	// ApprovalLikelihoodPercent is informational for ineligible programs
	// and never enables an apply action on its own.
	ApprovalLikelihoodPercent int `json:"approval_likelihood_percent"`
}

// EligibilityReport is the ordered verdict list for one assessment.
// Partial is set when any program's rule faulted and was downgraded to an
// indeterminate verdict instead of aborting the report.
type EligibilityReport struct {
	Verdicts []ProgramVerdict `json:"verdicts"`
	Partial  bool             `json:"partial"`
}

// EligibleCount returns the number of eligible verdicts
func (r *EligibilityReport) EligibleCount() int {
	n := 0
	for _, v := range r.Verdicts {
		if v.Eligible {
			n++
		}
	}
	return n
}

// Find returns the verdict for a program ID, or nil
func (r *EligibilityReport) Find(programID string) *ProgramVerdict {
	for i := range r.Verdicts {
		if r.Verdicts[i].ProgramID == programID {
			return &r.Verdicts[i]
		}
	}
	return nil
}

// Package domain implements the poverty and hardship assessor: a pure
// transformation from a household profile to a poverty-level classification,
// monthly budget deficit, and derived hardship tags.
package domain

import (
	"math"
	"strings"
	"time"

	"github.com/aidmatch/platform/internal/profile"
	"github.com/aidmatch/platform/internal/shared/config"
	"github.com/aidmatch/platform/internal/shared/types"
)

// PovertyClassification bands household income relative to the federal
// poverty line. Bands are fixed, non-overlapping, and inclusive on the
// lower side: exactly 100% classifies as low, not moderate.
type PovertyClassification string

const (
	ClassificationVeryLow  PovertyClassification = "very_low" // <= 50% FPL
	ClassificationLow      PovertyClassification = "low"      // 51-100%
	ClassificationModerate PovertyClassification = "moderate" // 101-150%
	ClassificationOkay     PovertyClassification = "okay"     // > 150%
)

// DisplayPercentCap bounds the poverty percent shown to applicants. The raw
// ratio stays unclamped because program rules evaluate against it.
const DisplayPercentCap = 200

// Assessment is the derived poverty and hardship summary for one profile
type Assessment struct {
	ID types.ID `json:"id"`

	// PovertyLevelPercent is household income as a percent of the FPL,
	// clamped to [0, DisplayPercentCap] for display.
	PovertyLevelPercent float64 `json:"poverty_level_percent"`

	// RawPovertyPercent is the unclamped ratio used for rule evaluation.
	RawPovertyPercent float64 `json:"raw_poverty_percent"`

	PovertyClassification PovertyClassification `json:"poverty_classification"`

	// MonthlyDeficit is total expenses minus income; positive means shortfall.
	MonthlyDeficit float64 `json:"monthly_deficit"`

	PrimaryHardships      []string `json:"primary_hardships"`
	FamilyVulnerabilities []string `json:"family_vulnerabilities"`

	HouseholdSize  int       `json:"household_size"`
	Dependents     int       `json:"dependents"`
	IsSingleParent bool      `json:"is_single_parent"`
	WorkingStatus  string    `json:"working_status"`
	FPL            float64   `json:"fpl_annual"`
	CreatedAt      time.Time `json:"created_at"`
}

// Assessor computes assessments against configured poverty guidelines
type Assessor struct {
	guidelines config.GuidelinesConfig
}

// NewAssessor creates an assessor using the given guideline figures
func NewAssessor(guidelines config.GuidelinesConfig) *Assessor {
	return &Assessor{guidelines: guidelines}
}

// FPL returns the annual federal poverty line for a household of the given
// size: a base amount plus a fixed increment per additional member.
func (a *Assessor) FPL(householdSize int) float64 {
	if householdSize < 1 {
		householdSize = 1
	}
	return a.guidelines.FPLBase + float64(householdSize-1)*a.guidelines.FPLPerPerson
}

// Assess computes the full assessment for a profile. Pure and deterministic
// apart from the generated ID and timestamp; fails only on malformed input.
func (a *Assessor) Assess(p *profile.HouseholdProfile) (*Assessment, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	fpl := a.FPL(p.HouseholdSize)
	// Rules and classification evaluate the exact ratio; only the displayed
	// percent is rounded, so a household at 130.01% never rounds into a
	// 130%-capped program.
	rawPercent := 100 * p.AnnualIncome() / fpl

	return &Assessment{
		ID:                    types.NewID(),
		PovertyLevelPercent:   clampDisplay(math.Round(rawPercent)),
		RawPovertyPercent:     rawPercent,
		PovertyClassification: Classify(rawPercent),
		MonthlyDeficit:        p.MonthlyExpenses.Total() - p.MonthlyIncome,
		PrimaryHardships:      a.deriveHardships(p),
		FamilyVulnerabilities: append([]string(nil), p.Vulnerabilities...),
		HouseholdSize:         p.HouseholdSize,
		Dependents:            p.Dependents,
		IsSingleParent:        p.IsSingleParent,
		WorkingStatus:         string(p.EmploymentStatus),
		FPL:                   fpl,
		CreatedAt:             time.Now().UTC(),
	}, nil
}

// Classify maps a poverty percent to its band
func Classify(percent float64) PovertyClassification {
	switch {
	case percent <= 50:
		return ClassificationVeryLow
	case percent <= 100:
		return ClassificationLow
	case percent <= 150:
		return ClassificationModerate
	default:
		return ClassificationOkay
	}
}

// deriveHardships maps each selected hardship to its tag and auto-flags a
// housing cost burden whenever rent exceeds the configured share of income,
// guarding against applicants under-reporting their own situation.
func (a *Assessor) deriveHardships(p *profile.HouseholdProfile) []string {
	tags := make([]string, 0, len(p.SelectedHardships)+1)
	seen := make(map[string]bool)

	for _, h := range p.SelectedHardships {
		tag := string(h)
		if !seen[tag] {
			tags = append(tags, tag)
			seen[tag] = true
		}
	}

	if a.HousingCostBurdened(p) && !seen[string(profile.HardshipHousingCostBurden)] {
		tags = append(tags, string(profile.HardshipHousingCostBurden))
	}

	return tags
}

// HousingCostBurdened reports whether rent exceeds the burden ratio of
// income. A household with rent but no income at all is always burdened.
func (a *Assessor) HousingCostBurdened(p *profile.HouseholdProfile) bool {
	rent := p.MonthlyExpenses.RentOrMortgage
	if rent <= 0 {
		return false
	}
	if p.MonthlyIncome <= 0 {
		return true
	}
	return rent/p.MonthlyIncome > a.guidelines.HousingBurdenRatio
}

// HasVulnerabilityKeyword scans the free-text vulnerability labels for any
// of the given keywords, case-insensitively. Program rules use this for
// categorical signals the form does not collect directly (pregnancy, a
// child under five).
func (as *Assessment) HasVulnerabilityKeyword(keywords ...string) bool {
	for _, v := range as.FamilyVulnerabilities {
		lower := strings.ToLower(v)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}

func clampDisplay(percent float64) float64 {
	if percent < 0 {
		return 0
	}
	if percent > DisplayPercentCap {
		return DisplayPercentCap
	}
	return percent
}

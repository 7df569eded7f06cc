package eligibility

import (
	"fmt"
	"sort"

	"github.com/aidmatch/platform/internal/assessment/domain"
	"github.com/aidmatch/platform/internal/profile"
	"github.com/aidmatch/platform/internal/shared/config"
)

// indeterminateReason is the fixed text for verdicts downgraded after a
// rule fault. It never leaks the underlying error to the applicant.
const indeterminateReason = "insufficient data to determine eligibility"

// Engine evaluates a household against the full program catalog. It is
// stateless and safe for concurrent use.
type Engine struct {
	catalog    *Catalog
	guidelines config.GuidelinesConfig
}

func NewEngine(catalog *Catalog, guidelines config.GuidelinesConfig) *Engine {
	return &Engine{catalog: catalog, guidelines: guidelines}
}

// Catalog returns the engine's program registry
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// Evaluate produces one verdict per catalog entry. A faulting rule yields
// an indeterminate ineligible verdict for that program and marks the
// report partial; the remaining programs are still evaluated. Identical
// inputs always produce an identical report.
func (e *Engine) Evaluate(p *profile.HouseholdProfile, a *domain.Assessment) *EligibilityReport {
	rc := RuleContext{Profile: p, Assessment: a, Guidelines: e.guidelines}

	type ranked struct {
		verdict ProgramVerdict
		order   int
	}

	report := &EligibilityReport{}
	verdicts := make([]ranked, 0, e.catalog.Len())
	for i, def := range e.catalog.Programs() {
		v, err := e.evaluateProgram(def, rc)
		if err != nil {
			report.Partial = true
			v = ProgramVerdict{
				ProgramID:      def.ID,
				ProgramName:    def.Name,
				Category:       def.Category,
				Eligible:       false,
				Indeterminate:  true,
				Reason:         indeterminateReason,
				ProcessingDays: def.ProcessingDays,
			}
		}
		verdicts = append(verdicts, ranked{verdict: v, order: i})
	}

	// Eligible programs first, strongest likelihood first, catalog order
	// breaking ties. The sort is stable over catalog order by construction.
	sort.Slice(verdicts, func(i, j int) bool {
		a, b := verdicts[i], verdicts[j]
		if a.verdict.Eligible != b.verdict.Eligible {
			return a.verdict.Eligible
		}
		if a.verdict.ApprovalLikelihoodPercent != b.verdict.ApprovalLikelihoodPercent {
			return a.verdict.ApprovalLikelihoodPercent > b.verdict.ApprovalLikelihoodPercent
		}
		return a.order < b.order
	})

	report.Verdicts = make([]ProgramVerdict, len(verdicts))
	for i, r := range verdicts {
		report.Verdicts[i] = r.verdict
	}
	return report
}

// evaluateProgram runs one program's rule, benefit estimator, and
// confidence model. A panic in any of them is converted to an error so a
// single bad rule cannot take down the whole report.
func (e *Engine) evaluateProgram(def ProgramDefinition, rc RuleContext) (v ProgramVerdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("program %s rule panicked: %v", def.ID, r)
		}
	}()

	eligible, reason, err := def.Rule(rc)
	if err != nil {
		return ProgramVerdict{}, fmt.Errorf("program %s rule failed: %w", def.ID, err)
	}

	v = ProgramVerdict{
		ProgramID:                 def.ID,
		ProgramName:               def.Name,
		Category:                  def.Category,
		Eligible:                  eligible,
		Reason:                    reason,
		ProcessingDays:            def.ProcessingDays,
		ApprovalLikelihoodPercent: def.Confidence(rc, eligible),
	}
	if eligible && def.Benefit != nil {
		estimate := def.Benefit(rc)
		v.EstimatedMonthlyBenefit = estimate.MonthlyAmount
		v.EstimatedAnnualBenefit = estimate.AnnualAmount
	}
	return v, nil
}

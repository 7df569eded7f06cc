package eligibility

import (
	"fmt"
	"math"

	"github.com/aidmatch/platform/internal/profile"
)

// Catalog is the static program registry. Append-only: adding a program
// never changes the identity or evaluation order of existing entries.
type Catalog struct {
	programs []ProgramDefinition
	byID     map[string]int
}

// NewCatalog builds a catalog from definitions in insertion order
func NewCatalog(defs ...ProgramDefinition) *Catalog {
	c := &Catalog{
		programs: defs,
		byID:     make(map[string]int, len(defs)),
	}
	for i, d := range defs {
		c.byID[d.ID] = i
	}
	return c
}

// Programs returns the catalog entries in insertion order
func (c *Catalog) Programs() []ProgramDefinition {
	out := make([]ProgramDefinition, len(c.programs))
	copy(out, c.programs)
	return out
}

// ByID returns the program with the given ID, or nil
func (c *Catalog) ByID(id string) *ProgramDefinition {
	i, ok := c.byID[id]
	if !ok {
		return nil
	}
	return &c.programs[i]
}

// Len returns the number of catalog entries
func (c *Catalog) Len() int {
	return len(c.programs)
}

// Program income thresholds as a percent of the federal poverty line.
// These follow the published program criteria; boundaries are inclusive on
// the qualifying side (a household at exactly 130% still qualifies for
// food assistance).
const (
	snapIncomeLimitPercent     = 130
	wicIncomeLimitPercent      = 185
	liheapIncomeLimitPercent   = 150
	medicaidIncomeLimitPercent = 138
	hcvAMIShare                = 0.80
)

// SNAP benefit figures: maximum monthly allotment for a one-person
// household plus increment per additional member, reduced by 30% of
// countable income, with the statutory minimum benefit as the floor.
const (
	snapBaseAllotment      = 291.0
	snapPerPersonAllotment = 219.0
	snapIncomeReduction    = 0.30
	snapMinimumBenefit     = 23.0
)

const wicMonthlyVoucher = 47.0

// LIHEAP annual grant bounds derived from household utility spend
const (
	liheapSpendMultiplier = 6.0
	liheapMinimumGrant    = 300.0
	liheapMaximumGrant    = 1500.0
)

// tanfMonthlyTiers is the cash grant by household size; the last tier
// covers households of five or more.
var tanfMonthlyTiers = []float64{204, 316, 389, 448, 513}

// EITC maximum annual credit by qualifying-child count (1, 2, 3+), with a
// flat phase-out above the start-of-phase-out income.
var eitcMaxCredit = []float64{4213, 6960, 7830}

const (
	eitcPhaseOutStart = 28120.0
	eitcPhaseOutRate  = 0.21
)

const ctcPerChildAnnual = 2000.0

// wicSignalKeywords are the vulnerability phrases that indicate a
// pregnancy, postpartum status, or a child under five.
var wicSignalKeywords = []string{"pregnant", "pregnancy", "postpartum", "nursing", "infant", "newborn", "toddler", "under 5"}

var pregnancyKeywords = []string{"pregnant", "pregnancy", "postpartum"}

// DefaultCatalog returns the standard eight-program registry
func DefaultCatalog() *Catalog {
	return NewCatalog(
		ProgramDefinition{
			ID:             "snap",
			Name:           "Supplemental Nutrition Assistance Program (SNAP)",
			Category:       "Food",
			Prefix:         "SNAP",
			ProcessingDays: 21,
			Rule:           snapRule,
			Benefit:        snapBenefit,
			Confidence:     incomeThresholdConfidence(snapIncomeLimitPercent),
		},
		ProgramDefinition{
			ID:             "wic",
			Name:           "Women, Infants, and Children (WIC)",
			Category:       "Food/Health",
			Prefix:         "WIC",
			ProcessingDays: 30,
			Rule:           wicRule,
			Benefit:        fixedMonthlyBenefit(wicMonthlyVoucher),
			Confidence:     incomeThresholdConfidence(wicIncomeLimitPercent),
		},
		ProgramDefinition{
			ID:             "liheap",
			Name:           "Low Income Home Energy Assistance Program (LIHEAP)",
			Category:       "Utilities",
			Prefix:         "LIH",
			ProcessingDays: 45,
			Rule:           liheapRule,
			Benefit:        liheapBenefit,
			Confidence:     incomeThresholdConfidence(liheapIncomeLimitPercent),
		},
		ProgramDefinition{
			ID:             "hcv",
			Name:           "Housing Choice Voucher Program (Section 8)",
			Category:       "Housing",
			Prefix:         "HCV",
			ProcessingDays: 180,
			Rule:           hcvRule,
			Benefit:        variesBenefit,
			Confidence:     hcvConfidence,
		},
		ProgramDefinition{
			ID:             "tanf",
			Name:           "Temporary Assistance for Needy Families (TANF)",
			Category:       "Cash Assistance",
			Prefix:         "TANF",
			ProcessingDays: 30,
			Rule:           tanfRule,
			Benefit:        tanfBenefit,
			Confidence:     tanfConfidence,
		},
		ProgramDefinition{
			ID:             "eitc",
			Name:           "Earned Income Tax Credit (EITC)",
			Category:       "Tax Credit",
			Prefix:         "EITC",
			ProcessingDays: 0,
			Rule:           eitcRule,
			Benefit:        eitcBenefit,
			Confidence:     fixedConfidence(80, 15),
		},
		ProgramDefinition{
			ID:             "ctc",
			Name:           "Child Tax Credit",
			Category:       "Tax Credit",
			Prefix:         "CTC",
			ProcessingDays: 0,
			Rule:           ctcRule,
			Benefit:        ctcBenefit,
			Confidence:     fixedConfidence(85, 10),
		},
		ProgramDefinition{
			ID:             "medicaid",
			Name:           "Medicaid / CHIP",
			Category:       "Healthcare",
			Prefix:         "MED",
			ProcessingDays: 45,
			Rule:           medicaidRule,
			Benefit:        nonMonetaryBenefit,
			Confidence:     medicaidConfidence,
		},
	)
}

// --- Rules ---

func snapRule(rc RuleContext) (bool, string, error) {
	ratio := rc.Assessment.RawPovertyPercent
	if ratio <= snapIncomeLimitPercent {
		return true, fmt.Sprintf("household income is %.0f%% of the federal poverty line, within the %d%% SNAP gross income limit", ratio, snapIncomeLimitPercent), nil
	}
	return false, fmt.Sprintf("household income is %.0f%% of the federal poverty line, above the %d%% SNAP gross income limit", ratio, snapIncomeLimitPercent), nil
}

func wicRule(rc RuleContext) (bool, string, error) {
	ratio := rc.Assessment.RawPovertyPercent
	if ratio > wicIncomeLimitPercent {
		return false, fmt.Sprintf("household income is %.0f%% of the federal poverty line, above the %d%% WIC limit", ratio, wicIncomeLimitPercent), nil
	}
	if !wicQualifyingSignal(rc) {
		return false, "no indication of a pregnancy, postpartum status, or a child under five in the household", nil
	}
	return true, fmt.Sprintf("household income is %.0f%% of the federal poverty line, within the %d%% WIC limit, with a qualifying child or pregnancy in the household", ratio, wicIncomeLimitPercent), nil
}

// wicQualifyingSignal checks for the categorical WIC requirement. Exact
// child ages are not collected, so a dependent plus a childcare-cost
// hardship stands in for a child under five.
func wicQualifyingSignal(rc RuleContext) bool {
	if rc.Assessment.HasVulnerabilityKeyword(wicSignalKeywords...) {
		return true
	}
	return rc.Profile.Dependents > 0 && rc.Profile.HasHardship(profile.HardshipChildcareCost)
}

func liheapRule(rc RuleContext) (bool, string, error) {
	ratio := rc.Assessment.RawPovertyPercent
	if ratio > liheapIncomeLimitPercent {
		return false, fmt.Sprintf("household income is %.0f%% of the federal poverty line, above the %d%% LIHEAP limit", ratio, liheapIncomeLimitPercent), nil
	}
	if !rc.Profile.HasHardship(profile.HardshipUtilitiesArrears) {
		return false, "no utilities-related hardship was reported", nil
	}
	return true, fmt.Sprintf("household income is %.0f%% of the federal poverty line, within the %d%% LIHEAP limit, with a reported utilities hardship", ratio, liheapIncomeLimitPercent), nil
}

func hcvRule(rc RuleContext) (bool, string, error) {
	limit := hcvIncomeLimitPercent(rc)
	ratio := rc.Assessment.RawPovertyPercent
	if ratio > limit {
		return false, fmt.Sprintf("household income is %.0f%% of the federal poverty line, above the estimated 80%% of area median income (%.0f%% FPL)", ratio, limit), nil
	}
	if !housingBurdened(rc) {
		return false, fmt.Sprintf("housing costs are within %.0f%% of household income", rc.Guidelines.HousingBurdenRatio*100), nil
	}
	return true, fmt.Sprintf("household income is below the estimated 80%% of area median income and housing costs exceed %.0f%% of income", rc.Guidelines.HousingBurdenRatio*100), nil
}

// hcvIncomeLimitPercent approximates the 80%-of-AMI housing limit as a
// percent of the FPL, since no regional AMI data is collected.
func hcvIncomeLimitPercent(rc RuleContext) float64 {
	return hcvAMIShare * rc.Guidelines.AMIMultiplier * 100
}

func housingBurdened(rc RuleContext) bool {
	rent := rc.Profile.MonthlyExpenses.RentOrMortgage
	if rent <= 0 {
		return false
	}
	if rc.Profile.MonthlyIncome <= 0 {
		return true
	}
	return rent/rc.Profile.MonthlyIncome > rc.Guidelines.HousingBurdenRatio
}

func tanfRule(rc RuleContext) (bool, string, error) {
	limit := rc.Guidelines.TANFLimitPercent
	ratio := rc.Assessment.RawPovertyPercent
	if ratio > limit {
		return false, fmt.Sprintf("household income is %.0f%% of the federal poverty line, above the %.0f%% cash assistance limit", ratio, limit), nil
	}
	switch rc.Profile.EmploymentStatus {
	case profile.EmploymentUnemployed, profile.EmploymentDisabled:
		return true, fmt.Sprintf("household income is %.0f%% of the federal poverty line, within the %.0f%% cash assistance limit, and the applicant is %s", ratio, limit, rc.Profile.EmploymentStatus), nil
	default:
		return false, fmt.Sprintf("cash assistance requires unemployed or disabled status; applicant is %s", rc.Profile.EmploymentStatus), nil
	}
}

func eitcRule(rc RuleContext) (bool, string, error) {
	if rc.Profile.EmploymentStatus != profile.EmploymentEmployed {
		return false, "the earned income credit requires earned income from employment", nil
	}
	if rc.Profile.Dependents == 0 {
		return false, "no qualifying dependents were reported", nil
	}
	return true, fmt.Sprintf("applicant is employed with %d qualifying dependent(s)", rc.Profile.Dependents), nil
}

func ctcRule(rc RuleContext) (bool, string, error) {
	if rc.Profile.Dependents == 0 {
		return false, "no dependent children were reported", nil
	}
	// Ages are not collected; dependents are assumed under the cutoff.
	return true, fmt.Sprintf("%d dependent child(ren) reported, assumed under age %d", rc.Profile.Dependents, rc.Guidelines.CTCAgeCutoff), nil
}

func medicaidRule(rc RuleContext) (bool, string, error) {
	ratio := rc.Assessment.RawPovertyPercent
	if ratio <= medicaidIncomeLimitPercent {
		return true, fmt.Sprintf("household income is %.0f%% of the federal poverty line, within the %d%% Medicaid expansion limit", ratio, medicaidIncomeLimitPercent), nil
	}
	if rc.Profile.EmploymentStatus == profile.EmploymentDisabled {
		return true, "applicant reports a disability, a categorical Medicaid pathway regardless of income", nil
	}
	if rc.Assessment.HasVulnerabilityKeyword(pregnancyKeywords...) {
		return true, "household reports a pregnancy, a categorical Medicaid pathway regardless of income", nil
	}
	return false, fmt.Sprintf("household income is %.0f%% of the federal poverty line, above the %d%% Medicaid expansion limit, with no categorical pathway", ratio, medicaidIncomeLimitPercent), nil
}

// --- Benefit estimators ---

func snapBenefit(rc RuleContext) BenefitEstimate {
	max := snapBaseAllotment + snapPerPersonAllotment*float64(rc.Profile.HouseholdSize-1)
	amount := max - snapIncomeReduction*rc.Profile.MonthlyIncome
	if amount < snapMinimumBenefit {
		amount = snapMinimumBenefit
	}
	if amount > max {
		amount = max
	}
	return monthly(amount)
}

func liheapBenefit(rc RuleContext) BenefitEstimate {
	grant := liheapSpendMultiplier * rc.Profile.MonthlyExpenses.Utilities
	if grant < liheapMinimumGrant {
		grant = liheapMinimumGrant
	}
	if grant > liheapMaximumGrant {
		grant = liheapMaximumGrant
	}
	return annual(grant)
}

func tanfBenefit(rc RuleContext) BenefitEstimate {
	tier := rc.Profile.HouseholdSize
	if tier > len(tanfMonthlyTiers) {
		tier = len(tanfMonthlyTiers)
	}
	return monthly(tanfMonthlyTiers[tier-1])
}

func eitcBenefit(rc RuleContext) BenefitEstimate {
	children := rc.Profile.Dependents
	if children > len(eitcMaxCredit) {
		children = len(eitcMaxCredit)
	}
	credit := eitcMaxCredit[children-1]
	if over := rc.Profile.AnnualIncome() - eitcPhaseOutStart; over > 0 {
		credit -= eitcPhaseOutRate * over
	}
	if credit < 0 {
		credit = 0
	}
	return annual(credit)
}

func ctcBenefit(rc RuleContext) BenefitEstimate {
	return annual(ctcPerChildAnnual * float64(rc.Profile.Dependents))
}

func fixedMonthlyBenefit(amount float64) func(RuleContext) BenefitEstimate {
	return func(RuleContext) BenefitEstimate {
		return monthly(amount)
	}
}

// variesBenefit covers housing vouchers, where the subsidy depends on the
// local payment standard and cannot be estimated from the profile.
func variesBenefit(RuleContext) BenefitEstimate {
	return BenefitEstimate{}
}

func nonMonetaryBenefit(RuleContext) BenefitEstimate {
	return BenefitEstimate{}
}

func monthly(amount float64) BenefitEstimate {
	rounded := roundDollar(amount)
	return BenefitEstimate{MonthlyAmount: &rounded}
}

func annual(amount float64) BenefitEstimate {
	rounded := roundDollar(amount)
	return BenefitEstimate{AnnualAmount: &rounded}
}

// --- Confidence models ---

// incomeThresholdConfidence builds the shared monotone margin curve around
// an income threshold: the further below the cutoff, the higher the score.
func incomeThresholdConfidence(thresholdPercent float64) func(RuleContext, bool) int {
	return func(rc RuleContext, eligible bool) int {
		return marginConfidence(rc.Assessment.RawPovertyPercent, thresholdPercent, eligible)
	}
}

func hcvConfidence(rc RuleContext, eligible bool) int {
	score := marginConfidence(rc.Assessment.RawPovertyPercent, hcvIncomeLimitPercent(rc), eligible)
	// Vouchers run long waitlists even for strong candidates.
	if eligible && score > 70 {
		score = 70
	}
	return score
}

func tanfConfidence(rc RuleContext, eligible bool) int {
	return marginConfidence(rc.Assessment.RawPovertyPercent, rc.Guidelines.TANFLimitPercent, eligible)
}

func medicaidConfidence(rc RuleContext, eligible bool) int {
	if eligible && rc.Assessment.RawPovertyPercent > medicaidIncomeLimitPercent {
		// Categorical pathway: eligibility does not depend on the income margin.
		return 75
	}
	return marginConfidence(rc.Assessment.RawPovertyPercent, medicaidIncomeLimitPercent, eligible)
}

func fixedConfidence(eligibleScore, ineligibleScore int) func(RuleContext, bool) int {
	return func(_ RuleContext, eligible bool) int {
		if eligible {
			return eligibleScore
		}
		return ineligibleScore
	}
}

// marginConfidence maps the relative distance from an income threshold to
// a likelihood score. Monotone: a larger margin below the cutoff always
// scores at least as high. Ineligible scores stay at or below 30 so they
// read as informational.
func marginConfidence(ratio, threshold float64, eligible bool) int {
	margin := (threshold - ratio) / threshold
	if eligible {
		return clampScore(int(math.Round(55+40*margin)), 5, 99)
	}
	return clampScore(int(math.Round(30+30*margin)), 1, 30)
}

func clampScore(score, lo, hi int) int {
	if score < lo {
		return lo
	}
	if score > hi {
		return hi
	}
	return score
}

func roundDollar(amount float64) float64 {
	return math.Round(amount)
}

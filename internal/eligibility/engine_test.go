package eligibility

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/aidmatch/platform/internal/assessment/domain"
	"github.com/aidmatch/platform/internal/profile"
	"github.com/aidmatch/platform/internal/shared/config"
)

func testGuidelines() config.GuidelinesConfig {
	return config.GuidelinesConfig{
		FPLBase:            15060,
		FPLPerPerson:       5380,
		AMIMultiplier:      2.5,
		HousingBurdenRatio: 0.30,
		TANFLimitPercent:   50,
		CTCAgeCutoff:       17,
	}
}

func testProfile(mutate func(*profile.HouseholdProfile)) *profile.HouseholdProfile {
	p := &profile.HouseholdProfile{
		MonthlyIncome:    1200,
		HouseholdSize:    3,
		Dependents:       2,
		EmploymentStatus: profile.EmploymentUnemployed,
		ZIPCode:          "60601",
		MonthlyExpenses: profile.MonthlyExpenses{
			RentOrMortgage: 900,
			Food:           400,
			Utilities:      150,
		},
	}
	if mutate != nil {
		mutate(p)
	}
	return p
}

func evaluate(t *testing.T, p *profile.HouseholdProfile) *EligibilityReport {
	t.Helper()
	g := testGuidelines()
	a, err := domain.NewAssessor(g).Assess(p)
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	return NewEngine(DefaultCatalog(), g).Evaluate(p, a)
}

func TestEvaluateCoversWholeCatalog(t *testing.T) {
	report := evaluate(t, testProfile(nil))
	if got, want := len(report.Verdicts), DefaultCatalog().Len(); got != want {
		t.Fatalf("got %d verdicts, want %d", got, want)
	}
	seen := make(map[string]bool)
	for _, v := range report.Verdicts {
		if seen[v.ProgramID] {
			t.Errorf("duplicate verdict for %s", v.ProgramID)
		}
		seen[v.ProgramID] = true
	}
	if report.Partial {
		t.Error("report marked partial with no rule faults")
	}
}

func TestEvaluateOrdering(t *testing.T) {
	report := evaluate(t, testProfile(nil))
	sawIneligible := false
	lastLikelihood := math.MaxInt
	for i, v := range report.Verdicts {
		if !v.Eligible {
			sawIneligible = true
			continue
		}
		if sawIneligible {
			t.Fatalf("eligible verdict %s at index %d after an ineligible one", v.ProgramID, i)
		}
		if v.ApprovalLikelihoodPercent > lastLikelihood {
			t.Errorf("eligible verdicts not sorted by likelihood: %s has %d after %d",
				v.ProgramID, v.ApprovalLikelihoodPercent, lastLikelihood)
		}
		lastLikelihood = v.ApprovalLikelihoodPercent
	}
}

func TestEvaluateEqualLikelihoodsKeepCatalogOrder(t *testing.T) {
	alwaysEligible := func(RuleContext) (bool, string, error) { return true, "qualifies", nil }
	def := func(id string, score int) ProgramDefinition {
		return ProgramDefinition{
			ID:         id,
			Name:       id,
			Category:   "Test",
			Rule:       alwaysEligible,
			Confidence: fixedConfidence(score, 10),
		}
	}

	// alpha and charlie tie at 90; the catalog lists alpha first, so the
	// report must too, with the tie never floating charlie above it.
	catalog := NewCatalog(def("alpha", 90), def("bravo", 40), def("charlie", 90))

	g := testGuidelines()
	p := testProfile(nil)
	a, err := domain.NewAssessor(g).Assess(p)
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	report := NewEngine(catalog, g).Evaluate(p, a)

	var got []string
	for _, v := range report.Verdicts {
		got = append(got, v.ProgramID)
	}
	want := []string{"alpha", "charlie", "bravo"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("verdict order = %v, want %v", got, want)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	p := testProfile(nil)
	g := testGuidelines()
	a, err := domain.NewAssessor(g).Assess(p)
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	engine := NewEngine(DefaultCatalog(), g)
	first := engine.Evaluate(p, a)
	second := engine.Evaluate(p, a)
	if !reflect.DeepEqual(first, second) {
		t.Error("identical inputs produced different reports")
	}
}

func TestSNAPIncomeBoundary(t *testing.T) {
	// FPL for one person is 15060; 130% is 19578/yr, or 1631.50/mo.
	tests := []struct {
		name          string
		monthlyIncome float64
		wantEligible  bool
	}{
		{"exactly at the limit", 1631.50, true},
		{"just under", 1600, true},
		// 1631.63/mo is 130.01% of the line; a rule that rounded the
		// ratio first would wrongly admit this household.
		{"a hundredth of a percent over", 1631.63, false},
		{"above the limit", 1700, false},
		{"zero income", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testProfile(func(p *profile.HouseholdProfile) {
				p.MonthlyIncome = tt.monthlyIncome
				p.HouseholdSize = 1
				p.Dependents = 0
			})
			v := evaluate(t, p).Find("snap")
			if v == nil {
				t.Fatal("no snap verdict")
			}
			if v.Eligible != tt.wantEligible {
				t.Errorf("eligible = %v, want %v (reason: %s)", v.Eligible, tt.wantEligible, v.Reason)
			}
		})
	}
}

func TestSNAPBenefitEstimate(t *testing.T) {
	// Three-person household: 291 + 2*219 = 729 max, minus 30% of income.
	p := testProfile(nil)
	v := evaluate(t, p).Find("snap")
	if v == nil || !v.Eligible {
		t.Fatal("expected an eligible snap verdict")
	}
	if v.EstimatedMonthlyBenefit == nil {
		t.Fatal("expected a monthly benefit estimate")
	}
	if got, want := *v.EstimatedMonthlyBenefit, 729.0-0.30*1200; got != want {
		t.Errorf("benefit = %.2f, want %.2f", got, want)
	}
}

func TestSNAPMinimumBenefit(t *testing.T) {
	p := testProfile(func(p *profile.HouseholdProfile) {
		p.MonthlyIncome = 1631 // income high enough to reduce below the floor
		p.HouseholdSize = 1
		p.Dependents = 0
	})
	v := evaluate(t, p).Find("snap")
	if v == nil || !v.Eligible {
		t.Fatal("expected an eligible snap verdict")
	}
	if got := *v.EstimatedMonthlyBenefit; got != snapMinimumBenefit {
		t.Errorf("benefit = %.2f, want the %.0f minimum", got, snapMinimumBenefit)
	}
}

func TestWICQualifyingSignal(t *testing.T) {
	tests := []struct {
		name         string
		mutate       func(*profile.HouseholdProfile)
		wantEligible bool
	}{
		{
			"pregnancy vulnerability",
			func(p *profile.HouseholdProfile) {
				p.Dependents = 0
				p.Vulnerabilities = []string{"Pregnant, due in March"}
			},
			true,
		},
		{
			"infant in household",
			func(p *profile.HouseholdProfile) {
				p.Vulnerabilities = []string{"Newborn at home"}
			},
			true,
		},
		{
			"dependents with childcare hardship",
			func(p *profile.HouseholdProfile) {
				p.SelectedHardships = []profile.HardshipType{profile.HardshipChildcareCost}
			},
			true,
		},
		{
			"dependents alone are not enough",
			func(p *profile.HouseholdProfile) {},
			false,
		},
		{
			"income above the limit",
			func(p *profile.HouseholdProfile) {
				p.MonthlyIncome = 5000
				p.Vulnerabilities = []string{"Pregnant"}
			},
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := evaluate(t, testProfile(tt.mutate)).Find("wic")
			if v == nil {
				t.Fatal("no wic verdict")
			}
			if v.Eligible != tt.wantEligible {
				t.Errorf("eligible = %v, want %v (reason: %s)", v.Eligible, tt.wantEligible, v.Reason)
			}
		})
	}
}

func TestLIHEAPGrantClamps(t *testing.T) {
	tests := []struct {
		name      string
		utilities float64
		want      float64
	}{
		{"below the floor", 40, 300},
		{"within range", 150, 900},
		{"above the cap", 400, 1500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testProfile(func(p *profile.HouseholdProfile) {
				p.MonthlyExpenses.Utilities = tt.utilities
				p.SelectedHardships = []profile.HardshipType{profile.HardshipUtilitiesArrears}
			})
			v := evaluate(t, p).Find("liheap")
			if v == nil || !v.Eligible {
				t.Fatal("expected an eligible liheap verdict")
			}
			if v.EstimatedAnnualBenefit == nil {
				t.Fatal("expected an annual benefit estimate")
			}
			if got := *v.EstimatedAnnualBenefit; got != tt.want {
				t.Errorf("grant = %.2f, want %.2f", got, tt.want)
			}
		})
	}
}

func TestLIHEAPRequiresUtilitiesHardship(t *testing.T) {
	v := evaluate(t, testProfile(nil)).Find("liheap")
	if v == nil {
		t.Fatal("no liheap verdict")
	}
	if v.Eligible {
		t.Error("eligible without a utilities hardship")
	}
}

func TestHCVHousingBurden(t *testing.T) {
	tests := []struct {
		name         string
		mutate       func(*profile.HouseholdProfile)
		wantEligible bool
	}{
		{"rent above thirty percent of income", nil, true},
		{
			"zero income with rent due",
			func(p *profile.HouseholdProfile) { p.MonthlyIncome = 0 },
			true,
		},
		{
			"no housing cost",
			func(p *profile.HouseholdProfile) { p.MonthlyExpenses.RentOrMortgage = 0 },
			false,
		},
		{
			"rent within the ratio",
			func(p *profile.HouseholdProfile) {
				p.MonthlyIncome = 2000
				p.MonthlyExpenses.RentOrMortgage = 500
			},
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := evaluate(t, testProfile(tt.mutate)).Find("hcv")
			if v == nil {
				t.Fatal("no hcv verdict")
			}
			if v.Eligible != tt.wantEligible {
				t.Errorf("eligible = %v, want %v (reason: %s)", v.Eligible, tt.wantEligible, v.Reason)
			}
			if v.EstimatedMonthlyBenefit != nil || v.EstimatedAnnualBenefit != nil {
				t.Error("voucher subsidy should not carry a dollar estimate")
			}
		})
	}
}

func TestTANFTiersAndStatus(t *testing.T) {
	// Keep income near zero so every household size stays under 50% FPL.
	sizes := []struct {
		size int
		want float64
	}{
		{1, 204}, {2, 316}, {3, 389}, {4, 448}, {5, 513}, {6, 513},
	}
	for _, tt := range sizes {
		p := testProfile(func(p *profile.HouseholdProfile) {
			p.MonthlyIncome = 0
			p.HouseholdSize = tt.size
			p.Dependents = 0
		})
		v := evaluate(t, p).Find("tanf")
		if v == nil || !v.Eligible {
			t.Fatalf("size %d: expected an eligible tanf verdict", tt.size)
		}
		if got := *v.EstimatedMonthlyBenefit; got != tt.want {
			t.Errorf("size %d: grant = %.0f, want %.0f", tt.size, got, tt.want)
		}
	}

	employed := testProfile(func(p *profile.HouseholdProfile) {
		p.MonthlyIncome = 0
		p.EmploymentStatus = profile.EmploymentEmployed
	})
	if v := evaluate(t, employed).Find("tanf"); v.Eligible {
		t.Error("employed applicant should not qualify for cash assistance")
	}
}

func TestEITCPhaseOut(t *testing.T) {
	tests := []struct {
		name          string
		monthlyIncome float64
		dependents    int
		want          float64
	}{
		{"full credit at phase-out start", eitcPhaseOutStart / 12, 2, 6960},
		{"partially phased out", 3000, 2, 5305}, // 6960 - 0.21*(36000-28120)
		{"three or more children", 1000, 3, 7830},
		{"one child", 1000, 1, 4213},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testProfile(func(p *profile.HouseholdProfile) {
				p.MonthlyIncome = tt.monthlyIncome
				p.HouseholdSize = tt.dependents + 1
				p.Dependents = tt.dependents
				p.EmploymentStatus = profile.EmploymentEmployed
			})
			v := evaluate(t, p).Find("eitc")
			if v == nil || !v.Eligible {
				t.Fatal("expected an eligible eitc verdict")
			}
			if got := *v.EstimatedAnnualBenefit; got != tt.want {
				t.Errorf("credit = %.0f, want %.0f", got, tt.want)
			}
		})
	}

	unemployed := testProfile(nil)
	if v := evaluate(t, unemployed).Find("eitc"); v.Eligible {
		t.Error("credit requires earned income")
	}
}

func TestCTC(t *testing.T) {
	v := evaluate(t, testProfile(nil)).Find("ctc")
	if v == nil || !v.Eligible {
		t.Fatal("expected an eligible ctc verdict")
	}
	if got := *v.EstimatedAnnualBenefit; got != 4000 {
		t.Errorf("credit = %.0f, want 4000", got)
	}

	noKids := testProfile(func(p *profile.HouseholdProfile) { p.Dependents = 0 })
	if v := evaluate(t, noKids).Find("ctc"); v.Eligible {
		t.Error("eligible with no dependent children")
	}
}

func TestMedicaidCategoricalPathways(t *testing.T) {
	tests := []struct {
		name         string
		mutate       func(*profile.HouseholdProfile)
		wantEligible bool
	}{
		{"under the expansion limit", nil, true},
		{
			"over the limit, no pathway",
			func(p *profile.HouseholdProfile) { p.MonthlyIncome = 5000 },
			false,
		},
		{
			"over the limit but disabled",
			func(p *profile.HouseholdProfile) {
				p.MonthlyIncome = 5000
				p.EmploymentStatus = profile.EmploymentDisabled
			},
			true,
		},
		{
			"over the limit but pregnant",
			func(p *profile.HouseholdProfile) {
				p.MonthlyIncome = 5000
				p.Vulnerabilities = []string{"Pregnancy, second trimester"}
			},
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := evaluate(t, testProfile(tt.mutate)).Find("medicaid")
			if v == nil {
				t.Fatal("no medicaid verdict")
			}
			if v.Eligible != tt.wantEligible {
				t.Errorf("eligible = %v, want %v (reason: %s)", v.Eligible, tt.wantEligible, v.Reason)
			}
			if v.EstimatedMonthlyBenefit != nil || v.EstimatedAnnualBenefit != nil {
				t.Error("coverage should not carry a dollar estimate")
			}
		})
	}
}

func TestMedicaidCategoricalConfidence(t *testing.T) {
	p := testProfile(func(p *profile.HouseholdProfile) {
		p.MonthlyIncome = 5000
		p.EmploymentStatus = profile.EmploymentDisabled
	})
	v := evaluate(t, p).Find("medicaid")
	if !v.Eligible {
		t.Fatal("expected eligibility via the disability pathway")
	}
	if v.ApprovalLikelihoodPercent != 75 {
		t.Errorf("likelihood = %d, want the fixed categorical 75", v.ApprovalLikelihoodPercent)
	}
}

func TestMarginConfidence(t *testing.T) {
	// Monotone in the margin and clamped to the documented ranges.
	prev := -1
	for ratio := 130.0; ratio >= 0; ratio -= 10 {
		score := marginConfidence(ratio, 130, true)
		if score < prev {
			t.Fatalf("score decreased as margin grew: ratio %.0f scored %d after %d", ratio, score, prev)
		}
		if score < 5 || score > 99 {
			t.Fatalf("eligible score %d outside [5,99]", score)
		}
		prev = score
	}
	if got := marginConfidence(130, 130, true); got != 55 {
		t.Errorf("score at the threshold = %d, want 55", got)
	}
	if got := marginConfidence(0, 130, true); got != 95 {
		t.Errorf("score at zero income = %d, want 95", got)
	}
	if got := marginConfidence(500, 130, false); got != 1 {
		t.Errorf("far-over-limit informational score = %d, want 1", got)
	}
	for ratio := 131.0; ratio < 300; ratio += 20 {
		if score := marginConfidence(ratio, 130, false); score > 30 {
			t.Fatalf("ineligible score %d above the informational cap", score)
		}
	}
}

func TestEvaluateIsolatesFaultingRules(t *testing.T) {
	good := ProgramDefinition{
		ID:         "steady",
		Name:       "Steady Program",
		Category:   "Test",
		Rule:       func(RuleContext) (bool, string, error) { return true, "always qualifies", nil },
		Benefit:    fixedMonthlyBenefit(10),
		Confidence: fixedConfidence(90, 10),
	}
	panicking := ProgramDefinition{
		ID:       "panics",
		Name:     "Panicking Program",
		Category: "Test",
		Rule: func(RuleContext) (bool, string, error) {
			panic("nil map write")
		},
		Confidence: fixedConfidence(90, 10),
	}
	failing := ProgramDefinition{
		ID:       "fails",
		Name:     "Failing Program",
		Category: "Test",
		Rule: func(RuleContext) (bool, string, error) {
			return false, "", errors.New("upstream lookup failed")
		},
		Confidence: fixedConfidence(90, 10),
	}

	g := testGuidelines()
	p := testProfile(nil)
	a, err := domain.NewAssessor(g).Assess(p)
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	report := NewEngine(NewCatalog(good, panicking, failing), g).Evaluate(p, a)

	if !report.Partial {
		t.Error("report not marked partial after rule faults")
	}
	if len(report.Verdicts) != 3 {
		t.Fatalf("got %d verdicts, want 3", len(report.Verdicts))
	}
	for _, id := range []string{"panics", "fails"} {
		v := report.Find(id)
		if v == nil {
			t.Fatalf("no verdict for %s", id)
		}
		if v.Eligible || !v.Indeterminate {
			t.Errorf("%s: eligible=%v indeterminate=%v, want a downgraded verdict", id, v.Eligible, v.Indeterminate)
		}
		if v.Reason != indeterminateReason {
			t.Errorf("%s: reason = %q", id, v.Reason)
		}
		if v.ApprovalLikelihoodPercent != 0 {
			t.Errorf("%s: likelihood = %d, want 0", id, v.ApprovalLikelihoodPercent)
		}
	}
	if v := report.Find("steady"); v == nil || !v.Eligible {
		t.Error("healthy program affected by its neighbors' faults")
	}
}

func TestIneligibleVerdictsCarryNoBenefit(t *testing.T) {
	p := testProfile(func(p *profile.HouseholdProfile) { p.MonthlyIncome = 6000 })
	report := evaluate(t, p)
	for _, v := range report.Verdicts {
		if v.Eligible {
			continue
		}
		if v.EstimatedMonthlyBenefit != nil || v.EstimatedAnnualBenefit != nil {
			t.Errorf("%s: ineligible verdict carries a benefit estimate", v.ProgramID)
		}
	}
}

package profile

import (
	"errors"
	"testing"

	apperrors "github.com/aidmatch/platform/internal/shared/errors"
)

func valid() *HouseholdProfile {
	return &HouseholdProfile{
		MonthlyIncome:    1500,
		HouseholdSize:    2,
		Dependents:       1,
		EmploymentStatus: EmploymentEmployed,
		ZIPCode:          "94110",
		MonthlyExpenses: MonthlyExpenses{
			RentOrMortgage: 800,
			Food:           300,
		},
	}
}

func TestValidateAcceptsCompleteProfile(t *testing.T) {
	if err := valid().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateFieldErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*HouseholdProfile)
		field  string
	}{
		{"negative income", func(p *HouseholdProfile) { p.MonthlyIncome = -1 }, "monthly_income"},
		{"zero household size", func(p *HouseholdProfile) { p.HouseholdSize = 0 }, "household_size"},
		{"negative dependents", func(p *HouseholdProfile) { p.Dependents = -1 }, "dependents"},
		{"dependents not fewer than household", func(p *HouseholdProfile) { p.Dependents = 2 }, "dependents"},
		{"unknown employment status", func(p *HouseholdProfile) { p.EmploymentStatus = "gig" }, "employment_status"},
		{"unknown hardship", func(p *HouseholdProfile) { p.SelectedHardships = []HardshipType{"bad_luck"} }, "selected_hardships"},
		{"short zip code", func(p *HouseholdProfile) { p.ZIPCode = "941" }, "zip_code"},
		{"non-numeric zip code", func(p *HouseholdProfile) { p.ZIPCode = "94a10" }, "zip_code"},
		{"negative expense", func(p *HouseholdProfile) { p.MonthlyExpenses.Utilities = -5 }, "utilities"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(p)
			err := p.Validate()
			if err == nil {
				t.Fatal("expected a validation error")
			}
			var appErr *apperrors.AppError
			if !errors.As(err, &appErr) {
				t.Fatalf("error is %T, want *AppError", err)
			}
			if !errors.Is(err, apperrors.ErrValidation) {
				t.Error("error does not match the validation sentinel")
			}
			if _, ok := appErr.Details[tt.field]; !ok {
				t.Errorf("details missing field %q: %v", tt.field, appErr.Details)
			}
		})
	}
}

func TestValidateCollectsAllFieldErrorsAtOnce(t *testing.T) {
	p := valid()
	p.MonthlyIncome = -10
	p.HouseholdSize = 0
	p.ZIPCode = "x"
	err := p.Validate()
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("error is %T, want *AppError", err)
	}
	for _, field := range []string{"monthly_income", "household_size", "zip_code"} {
		if _, ok := appErr.Details[field]; !ok {
			t.Errorf("details missing field %q", field)
		}
	}
}

func TestExpensesTotal(t *testing.T) {
	e := MonthlyExpenses{
		RentOrMortgage: 900,
		Food:           400,
		Utilities:      150,
		Medical:        50,
		Transportation: 120,
		DebtPayments:   75,
		Other:          30,
	}
	if got := e.Total(); got != 1725 {
		t.Errorf("total = %.2f, want 1725", got)
	}
}

func TestHasHardship(t *testing.T) {
	p := valid()
	p.SelectedHardships = []HardshipType{HardshipFoodInsecurity}
	if !p.HasHardship(HardshipFoodInsecurity) {
		t.Error("selected hardship not found")
	}
	if p.HasHardship(HardshipMedicalDebt) {
		t.Error("unselected hardship reported as present")
	}
}

func TestAnnualIncome(t *testing.T) {
	p := valid()
	if got := p.AnnualIncome(); got != 18000 {
		t.Errorf("annual income = %.2f, want 18000", got)
	}
}

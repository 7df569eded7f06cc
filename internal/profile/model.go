// Package profile defines the household financial profile submitted by an
// applicant. A profile is immutable once submitted; everything downstream
// (assessment, eligibility, applications) derives from it.
package profile

import (
	"fmt"

	"github.com/aidmatch/platform/internal/shared/errors"
	"github.com/aidmatch/platform/internal/shared/types"
)

// EmploymentStatus describes the primary earner's work situation
type EmploymentStatus string

const (
	EmploymentEmployed   EmploymentStatus = "employed"
	EmploymentUnemployed EmploymentStatus = "unemployed"
	EmploymentDisabled   EmploymentStatus = "disabled"
	EmploymentRetired    EmploymentStatus = "retired"
)

// Valid reports whether the status is one of the known values
func (s EmploymentStatus) Valid() bool {
	switch s {
	case EmploymentEmployed, EmploymentUnemployed, EmploymentDisabled, EmploymentRetired:
		return true
	}
	return false
}

// HardshipType is a categorical label for a specific kind of financial strain
type HardshipType string

const (
	HardshipFoodInsecurity    HardshipType = "food_insecurity"
	HardshipHousingCostBurden HardshipType = "housing_cost_burden"
	HardshipMedicalDebt       HardshipType = "medical_debt"
	HardshipUtilitiesArrears  HardshipType = "utilities_arrears"
	HardshipTransportation    HardshipType = "transportation_issues"
	HardshipChildcareCost     HardshipType = "childcare_cost"
)

// Valid reports whether the hardship is one of the known values
func (h HardshipType) Valid() bool {
	switch h {
	case HardshipFoodInsecurity, HardshipHousingCostBurden, HardshipMedicalDebt,
		HardshipUtilitiesArrears, HardshipTransportation, HardshipChildcareCost:
		return true
	}
	return false
}

// MonthlyExpenses itemizes a household's recurring monthly spending
type MonthlyExpenses struct {
	RentOrMortgage float64 `json:"rent_or_mortgage"`
	Food           float64 `json:"food"`
	Utilities      float64 `json:"utilities"`
	Medical        float64 `json:"medical"`
	Transportation float64 `json:"transportation"`
	DebtPayments   float64 `json:"debt_payments"`
	Other          float64 `json:"other"`
}

// Total returns the sum of all expense categories
func (e MonthlyExpenses) Total() float64 {
	return e.RentOrMortgage + e.Food + e.Utilities + e.Medical +
		e.Transportation + e.DebtPayments + e.Other
}

// HouseholdProfile is the validated intake submitted by an applicant
type HouseholdProfile struct {
	MonthlyIncome     float64          `json:"monthly_income"`
	MonthlyExpenses   MonthlyExpenses  `json:"monthly_expenses"`
	HouseholdSize     int              `json:"household_size"`
	Dependents        int              `json:"dependents"`
	IsSingleParent    bool             `json:"is_single_parent"`
	EmploymentStatus  EmploymentStatus `json:"employment_status"`
	SelectedHardships []HardshipType   `json:"selected_hardships"`

	// Vulnerabilities are free-text labels entered by the applicant
	// ("Elderly member", "Pregnant"). Insertion order matters for display.
	Vulnerabilities []string      `json:"vulnerabilities"`
	ZIPCode         types.ZIPCode `json:"zip_code"`
}

// AnnualIncome returns the household's annualized income
func (p *HouseholdProfile) AnnualIncome() float64 {
	return p.MonthlyIncome * 12
}

// HasHardship reports whether the applicant selected the given hardship
func (p *HouseholdProfile) HasHardship(h HardshipType) bool {
	for _, selected := range p.SelectedHardships {
		if selected == h {
			return true
		}
	}
	return false
}

// Validate checks structural invariants before any computation proceeds.
// Returns a validation error with per-field details on the first pass over
// all fields, so the intake layer can re-prompt in one round trip.
func (p *HouseholdProfile) Validate() error {
	details := make(map[string]string)

	if p.MonthlyIncome < 0 {
		details["monthly_income"] = "must be zero or greater"
	}
	if p.HouseholdSize < 1 {
		details["household_size"] = "must be at least 1"
	}
	if p.Dependents < 0 {
		details["dependents"] = "must be zero or greater"
	}
	if p.HouseholdSize >= 1 && p.Dependents >= p.HouseholdSize {
		details["dependents"] = "must be fewer than household size"
	}
	if !p.EmploymentStatus.Valid() {
		details["employment_status"] = fmt.Sprintf("unknown status %q", p.EmploymentStatus)
	}
	for _, h := range p.SelectedHardships {
		if !h.Valid() {
			details["selected_hardships"] = fmt.Sprintf("unknown hardship %q", h)
			break
		}
	}
	if !p.ZIPCode.IsValid() {
		details["zip_code"] = "must be exactly 5 digits"
	}

	for field, problem := range map[string]float64{
		"rent_or_mortgage": p.MonthlyExpenses.RentOrMortgage,
		"food":             p.MonthlyExpenses.Food,
		"utilities":        p.MonthlyExpenses.Utilities,
		"medical":          p.MonthlyExpenses.Medical,
		"transportation":   p.MonthlyExpenses.Transportation,
		"debt_payments":    p.MonthlyExpenses.DebtPayments,
		"other":            p.MonthlyExpenses.Other,
	} {
		if problem < 0 {
			details["monthly_expenses."+field] = "must be zero or greater"
		}
	}

	if len(details) > 0 {
		return errors.Validation("invalid household profile", details)
	}
	return nil
}

// Package oracle is the boundary client for an external scoring service.
// The deterministic rule engine is authoritative; an oracle response only
// annotates verdicts with advisory likelihoods, and any failure at this
// boundary degrades to a report without the annotation.
package oracle

// ScoreRequest is the household summary sent to the scoring service.
// It carries no free-text beyond the vulnerability labels.
type ScoreRequest struct {
	MonthlyIncome         float64  `json:"monthly_income"`
	HouseholdSize         int      `json:"household_size"`
	Dependents            int      `json:"dependents"`
	EmploymentStatus      string   `json:"employment_status"`
	PovertyLevelPercent   float64  `json:"poverty_level_percent"`
	PovertyClassification string   `json:"poverty_classification"`
	MonthlyDeficit        float64  `json:"monthly_deficit"`
	PrimaryHardships      []string `json:"primary_hardships"`
	FamilyVulnerabilities []string `json:"family_vulnerabilities"`
	ProgramIDs            []string `json:"program_ids"`
}

// ProgramScore is one program's advisory likelihood from the oracle
type ProgramScore struct {
	ProgramID  string `json:"program_id"`
	Likelihood int    `json:"likelihood"`
	Notes      string `json:"notes,omitempty"`
}

// ScoreResponse is the oracle's full advisory answer
type ScoreResponse struct {
	Scores []ProgramScore `json:"scores"`
}

// Package infrastructure persists assessments and their eligibility
// results in PostgreSQL.
package infrastructure

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aidmatch/platform/internal/assessment/api"
	"github.com/aidmatch/platform/internal/assessment/domain"
	"github.com/aidmatch/platform/internal/eligibility"
	"github.com/aidmatch/platform/internal/profile"
	"github.com/aidmatch/platform/internal/shared/errors"
	"github.com/aidmatch/platform/internal/shared/types"
)

// PostgresRepository implements api.Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Save stores an assessment record and its per-program results in one
// transaction.
func (r *PostgresRepository) Save(ctx context.Context, rec *api.Record) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	profileJSON, err := json.Marshal(rec.Profile)
	if err != nil {
		return errors.Wrap(err, "failed to marshal profile")
	}
	assessmentJSON, err := json.Marshal(rec.Assessment)
	if err != nil {
		return errors.Wrap(err, "failed to marshal assessment")
	}
	hardshipsJSON, err := json.Marshal(rec.Assessment.PrimaryHardships)
	if err != nil {
		return errors.Wrap(err, "failed to marshal hardships")
	}
	vulnerabilitiesJSON, err := json.Marshal(rec.Assessment.FamilyVulnerabilities)
	if err != nil {
		return errors.Wrap(err, "failed to marshal vulnerabilities")
	}

	query := `
		INSERT INTO aidmatch.assessments (
			id, session_id, monthly_income, household_size, dependents, zip_code,
			profile_data, assessment_data,
			poverty_level_percent, poverty_classification, monthly_deficit,
			primary_hardships, family_vulnerabilities, partial, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)`

	_, err = tx.Exec(ctx, query,
		rec.Assessment.ID, rec.SessionID.String(),
		rec.Profile.MonthlyIncome, rec.Profile.HouseholdSize, rec.Profile.Dependents,
		rec.Profile.ZIPCode.String(),
		profileJSON, assessmentJSON,
		rec.Assessment.PovertyLevelPercent, rec.Assessment.PovertyClassification,
		rec.Assessment.MonthlyDeficit,
		hardshipsJSON, vulnerabilitiesJSON, rec.Report.Partial, rec.Assessment.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to save assessment")
	}

	resultQuery := `
		INSERT INTO aidmatch.eligibility_results (
			id, assessment_id, program_id, program_name, category,
			eligible, indeterminate, reason,
			estimated_monthly_benefit, estimated_annual_benefit,
			processing_days, approval_likelihood, display_order
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)`

	for i, v := range rec.Report.Verdicts {
		_, err = tx.Exec(ctx, resultQuery,
			types.NewID(), rec.Assessment.ID, v.ProgramID, v.ProgramName, v.Category,
			v.Eligible, v.Indeterminate, v.Reason,
			v.EstimatedMonthlyBenefit, v.EstimatedAnnualBenefit,
			v.ProcessingDays, v.ApprovalLikelihoodPercent, i,
		)
		if err != nil {
			return errors.Wrap(err, "failed to save eligibility result")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

// FindByID loads one assessment record with its results
func (r *PostgresRepository) FindByID(ctx context.Context, id types.ID) (*api.Record, error) {
	query := `
		SELECT session_id, profile_data, assessment_data, partial
		FROM aidmatch.assessments
		WHERE id = $1`

	rec, err := r.scanRecord(r.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("assessment", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find assessment")
	}

	if err := r.loadResults(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// ListBySession loads a session's assessments, newest first
func (r *PostgresRepository) ListBySession(ctx context.Context, sessionID types.ID) ([]*api.Record, error) {
	query := `
		SELECT session_id, profile_data, assessment_data, partial
		FROM aidmatch.assessments
		WHERE session_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, sessionID.String())
	if err != nil {
		return nil, errors.Wrap(err, "failed to list assessments")
	}
	defer rows.Close()

	var recs []*api.Record
	for rows.Next() {
		rec, err := r.scanRecord(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan assessment")
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read assessments")
	}

	for _, rec := range recs {
		if err := r.loadResults(ctx, rec); err != nil {
			return nil, err
		}
	}
	return recs, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func (r *PostgresRepository) scanRecord(row scannable) (*api.Record, error) {
	var (
		sessionID      string
		profileJSON    []byte
		assessmentJSON []byte
		partial        bool
	)
	if err := row.Scan(&sessionID, &profileJSON, &assessmentJSON, &partial); err != nil {
		return nil, err
	}

	rec := &api.Record{
		SessionID:  types.ID(sessionID),
		Profile:    &profile.HouseholdProfile{},
		Assessment: &domain.Assessment{},
		Report:     &eligibility.EligibilityReport{Partial: partial},
	}
	if err := json.Unmarshal(profileJSON, rec.Profile); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(assessmentJSON, rec.Assessment); err != nil {
		return nil, err
	}
	return rec, nil
}

// loadResults fills the record's verdicts in stored display order
func (r *PostgresRepository) loadResults(ctx context.Context, rec *api.Record) error {
	query := `
		SELECT program_id, program_name, category, eligible, indeterminate, reason,
			estimated_monthly_benefit, estimated_annual_benefit,
			processing_days, approval_likelihood
		FROM aidmatch.eligibility_results
		WHERE assessment_id = $1
		ORDER BY display_order`

	rows, err := r.pool.Query(ctx, query, rec.Assessment.ID)
	if err != nil {
		return errors.Wrap(err, "failed to load eligibility results")
	}
	defer rows.Close()

	for rows.Next() {
		var v eligibility.ProgramVerdict
		err := rows.Scan(
			&v.ProgramID, &v.ProgramName, &v.Category, &v.Eligible, &v.Indeterminate, &v.Reason,
			&v.EstimatedMonthlyBenefit, &v.EstimatedAnnualBenefit,
			&v.ProcessingDays, &v.ApprovalLikelihoodPercent,
		)
		if err != nil {
			return errors.Wrap(err, "failed to scan eligibility result")
		}
		rec.Report.Verdicts = append(rec.Report.Verdicts, v)
	}
	return rows.Err()
}

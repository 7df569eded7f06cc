// Package infrastructure persists applications and notifications in
// PostgreSQL.
package infrastructure

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aidmatch/platform/internal/application/domain"
	"github.com/aidmatch/platform/internal/shared/errors"
	"github.com/aidmatch/platform/internal/shared/types"
)

// PostgresRepository implements domain.Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// SaveApplication stores a newly submitted application
func (r *PostgresRepository) SaveApplication(ctx context.Context, app *domain.Application) error {
	nextStepsJSON, err := json.Marshal(app.NextSteps)
	if err != nil {
		return errors.Wrap(err, "failed to marshal next steps")
	}

	query := `
		INSERT INTO aidmatch.applications (
			id, session_id, program_id, program_name, category, status,
			confirmation_number, submitted_date, last_updated,
			estimated_decision_date, benefit_amount, benefit_period, next_steps
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)`

	_, err = r.pool.Exec(ctx, query,
		app.ID, app.SessionID.String(), app.ProgramID, app.ProgramName, app.Category,
		app.Status, app.ConfirmationNumber, app.SubmittedDate, app.LastUpdated,
		app.EstimatedDecisionDate, app.BenefitAmount, app.BenefitPeriod, nextStepsJSON,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return errors.Conflict("an application for this program already exists")
		}
		return errors.Wrap(err, "failed to save application")
	}
	return nil
}

// UpdateApplication persists a status change along with any decision
// details the transition attached (award amount, period, next steps).
func (r *PostgresRepository) UpdateApplication(ctx context.Context, app *domain.Application) error {
	nextStepsJSON, err := json.Marshal(app.NextSteps)
	if err != nil {
		return errors.Wrap(err, "failed to marshal next steps")
	}

	query := `
		UPDATE aidmatch.applications
		SET status = $2, last_updated = $3,
			benefit_amount = $4, benefit_period = $5, next_steps = $6
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query,
		app.ID, app.Status, app.LastUpdated,
		app.BenefitAmount, app.BenefitPeriod, nextStepsJSON,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update application")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("application", app.ID.String())
	}
	return nil
}

// ListApplications loads a session's applications, oldest first, matching
// the tracker's in-memory insertion order.
func (r *PostgresRepository) ListApplications(ctx context.Context, sessionID types.ID) ([]*domain.Application, error) {
	query := `
		SELECT id, session_id, program_id, program_name, category, status,
			confirmation_number, submitted_date, last_updated,
			estimated_decision_date, benefit_amount, benefit_period, next_steps
		FROM aidmatch.applications
		WHERE session_id = $1
		ORDER BY submitted_date ASC`

	rows, err := r.pool.Query(ctx, query, sessionID.String())
	if err != nil {
		return nil, errors.Wrap(err, "failed to list applications")
	}
	defer rows.Close()

	var apps []*domain.Application
	for rows.Next() {
		app := &domain.Application{}
		var sessID string
		var nextStepsJSON []byte
		err := rows.Scan(
			&app.ID, &sessID, &app.ProgramID, &app.ProgramName, &app.Category, &app.Status,
			&app.ConfirmationNumber, &app.SubmittedDate, &app.LastUpdated,
			&app.EstimatedDecisionDate, &app.BenefitAmount, &app.BenefitPeriod, &nextStepsJSON,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan application")
		}
		app.SessionID = types.ID(sessID)
		if err := json.Unmarshal(nextStepsJSON, &app.NextSteps); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal next steps")
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

// SaveNotification stores one feed entry
func (r *PostgresRepository) SaveNotification(ctx context.Context, n *domain.Notification) error {
	query := `
		INSERT INTO aidmatch.notifications (id, session_id, type, title, message, created_at, is_read)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		n.ID, n.SessionID.String(), n.Type, n.Title, n.Message, n.CreatedAt, n.IsRead,
	)
	if err != nil {
		return errors.Wrap(err, "failed to save notification")
	}
	return nil
}

// MarkNotificationsRead marks the whole session feed read
func (r *PostgresRepository) MarkNotificationsRead(ctx context.Context, sessionID types.ID) error {
	query := `UPDATE aidmatch.notifications SET is_read = TRUE WHERE session_id = $1 AND is_read = FALSE`

	if _, err := r.pool.Exec(ctx, query, sessionID.String()); err != nil {
		return errors.Wrap(err, "failed to mark notifications read")
	}
	return nil
}

// ListNotifications loads the session feed, newest first
func (r *PostgresRepository) ListNotifications(ctx context.Context, sessionID types.ID) ([]*domain.Notification, error) {
	query := `
		SELECT id, session_id, type, title, message, created_at, is_read
		FROM aidmatch.notifications
		WHERE session_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, sessionID.String())
	if err != nil {
		return nil, errors.Wrap(err, "failed to list notifications")
	}
	defer rows.Close()

	var notifs []*domain.Notification
	for rows.Next() {
		n := &domain.Notification{}
		var sessID string
		if err := rows.Scan(&n.ID, &sessID, &n.Type, &n.Title, &n.Message, &n.CreatedAt, &n.IsRead); err != nil {
			return nil, errors.Wrap(err, "failed to scan notification")
		}
		n.SessionID = types.ID(sessID)
		notifs = append(notifs, n)
	}
	return notifs, rows.Err()
}

var _ domain.Repository = (*PostgresRepository)(nil)

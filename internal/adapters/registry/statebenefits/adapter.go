// Package statebenefits implements registry.Adapter against the
// StateBenefits SQL Server database that legacy county systems export
// enrollment and office data into.
package statebenefits

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/denisenkom/go-mssqldb" // SQL Server driver

	"github.com/aidmatch/platform/internal/adapters/registry"
	"github.com/aidmatch/platform/internal/shared/config"
	"github.com/aidmatch/platform/internal/shared/errors"
	"github.com/aidmatch/platform/internal/shared/types"
)

// Adapter reads the legacy StateBenefits registry over MSSQL
type Adapter struct {
	db  *sql.DB
	cfg config.RegistryConfig
}

// New opens a connection pool to the registry and verifies it
func New(ctx context.Context, cfg config.RegistryConfig) (*Adapter, error) {
	db, err := sql.Open("sqlserver", connString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open registry database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping registry database: %w", err)
	}

	return &Adapter{db: db, cfg: cfg}, nil
}

func connString(cfg config.RegistryConfig) string {
	return fmt.Sprintf("server=%s;port=%d;database=%s;user id=%s;password=%s;encrypt=true;TrustServerCertificate=true",
		cfg.Host, cfg.Port, cfg.Database, cfg.User, cfg.Password)
}

// SourceSystem identifies the backing registry
func (a *Adapter) SourceSystem() string {
	return "statebenefits"
}

// Health verifies the registry connection
func (a *Adapter) Health(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

// Close releases the connection pool
func (a *Adapter) Close() error {
	return a.db.Close()
}

// FindOffices returns the agency offices serving a ZIP code. The registry
// keys offices by the 3-digit ZIP region; offices in the exact ZIP sort
// first.
func (a *Adapter) FindOffices(ctx context.Context, zip types.ZIPCode) ([]registry.Office, error) {
	if !zip.IsValid() {
		return nil, errors.BadRequest("invalid ZIP code")
	}

	rows, err := a.db.QueryContext(ctx, `
		SELECT OfficeID, OfficeName, AgencyName, StreetAddress, City, StateCode, ZipCode, Phone, ProgramCodes
		FROM dbo.AgencyOffices
		WHERE ZipRegion = @p1
		ORDER BY CASE WHEN ZipCode = @p2 THEN 0 ELSE 1 END, OfficeName`,
		zip.Region(), zip.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query offices: %w", err)
	}
	defer rows.Close()

	var offices []registry.Office
	for rows.Next() {
		var o registry.Office
		var phone sql.NullString
		var programCodes string
		if err := rows.Scan(&o.ID, &o.Name, &o.Agency, &o.Address, &o.City, &o.State, &o.ZIPCode, &phone, &programCodes); err != nil {
			return nil, fmt.Errorf("failed to scan office row: %w", err)
		}
		o.Phone = phone.String
		o.Programs = splitProgramCodes(programCodes)
		offices = append(offices, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read office rows: %w", err)
	}
	return offices, nil
}

// EnrollmentStats returns program load for a ZIP region
func (a *Adapter) EnrollmentStats(ctx context.Context, programID string, region string) (*registry.EnrollmentStats, error) {
	stats := &registry.EnrollmentStats{ProgramID: programID, Region: region}

	err := a.db.QueryRowContext(ctx, `
		SELECT ActiveCount, PendingCount, RegionCapacity, LastRefreshed
		FROM dbo.ProgramEnrollmentStats
		WHERE ProgramCode = @p1 AND ZipRegion = @p2`,
		programID, region).
		Scan(&stats.ActiveEnrollments, &stats.PendingBacklog, &stats.Capacity, &stats.AsOf)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query enrollment stats: %w", err)
	}
	return stats, nil
}

// splitProgramCodes parses the registry's comma-separated, inconsistently
// cased program code column into canonical lowercase IDs.
func splitProgramCodes(raw string) []string {
	parts := strings.Split(raw, ",")
	codes := make([]string, 0, len(parts))
	for _, p := range parts {
		code := strings.ToLower(strings.TrimSpace(p))
		if code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}

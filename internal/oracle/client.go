package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aidmatch/platform/internal/assessment/domain"
	"github.com/aidmatch/platform/internal/profile"
	"github.com/aidmatch/platform/internal/shared/config"
	"github.com/aidmatch/platform/internal/shared/errors"
	"github.com/aidmatch/platform/internal/shared/metrics"
)

const maxResponseBytes = 1 << 20

// Client calls the external scoring service
type Client struct {
	url        string
	enabled    bool
	httpClient *http.Client
}

// NewClient creates an oracle client from configuration. A disabled
// client is valid and answers every call with OracleUnavailable.
func NewClient(cfg config.OracleConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		url:        cfg.URL,
		enabled:    cfg.Enabled && cfg.URL != "",
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether the client will attempt calls
func (c *Client) Enabled() bool {
	return c.enabled
}

// Score requests advisory likelihoods for the given programs. Every
// failure mode returns OracleUnavailable so callers degrade uniformly.
func (c *Client) Score(ctx context.Context, p *profile.HouseholdProfile, a *domain.Assessment, programIDs []string) (*ScoreResponse, error) {
	if !c.enabled {
		return nil, errors.OracleUnavailable(fmt.Errorf("oracle disabled"))
	}

	start := time.Now()
	resp, err := c.score(ctx, p, a, programIDs)
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	metrics.RecordOracleRequest(outcome, time.Since(start))
	return resp, err
}

func (c *Client) score(ctx context.Context, p *profile.HouseholdProfile, a *domain.Assessment, programIDs []string) (*ScoreResponse, error) {
	payload, err := json.Marshal(ScoreRequest{
		MonthlyIncome:         p.MonthlyIncome,
		HouseholdSize:         p.HouseholdSize,
		Dependents:            p.Dependents,
		EmploymentStatus:      string(p.EmploymentStatus),
		PovertyLevelPercent:   a.PovertyLevelPercent,
		PovertyClassification: string(a.PovertyClassification),
		MonthlyDeficit:        a.MonthlyDeficit,
		PrimaryHardships:      a.PrimaryHardships,
		FamilyVulnerabilities: a.FamilyVulnerabilities,
		ProgramIDs:            programIDs,
	})
	if err != nil {
		return nil, errors.OracleUnavailable(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.OracleUnavailable(err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.OracleUnavailable(err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, errors.OracleUnavailable(fmt.Errorf("status %d", httpResp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.OracleUnavailable(err)
	}
	if err := validateResponse(body); err != nil {
		return nil, errors.OracleUnavailable(err)
	}

	var scoreResp ScoreResponse
	if err := json.Unmarshal(body, &scoreResp); err != nil {
		return nil, errors.OracleUnavailable(err)
	}
	return &scoreResp, nil
}

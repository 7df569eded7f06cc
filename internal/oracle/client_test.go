package oracle

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aidmatch/platform/internal/assessment/domain"
	"github.com/aidmatch/platform/internal/profile"
	"github.com/aidmatch/platform/internal/shared/config"
	apperrors "github.com/aidmatch/platform/internal/shared/errors"
)

func testInputs() (*profile.HouseholdProfile, *domain.Assessment) {
	p := &profile.HouseholdProfile{
		MonthlyIncome:    1200,
		HouseholdSize:    3,
		Dependents:       2,
		EmploymentStatus: profile.EmploymentUnemployed,
	}
	a := &domain.Assessment{
		PovertyLevelPercent:   56,
		PovertyClassification: domain.ClassificationLow,
		MonthlyDeficit:        250,
	}
	return p, a
}

func oracleClient(url string) *Client {
	return NewClient(config.OracleConfig{URL: url, Enabled: true, TimeoutSeconds: 2})
}

func TestScoreParsesValidResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"scores":[{"program_id":"snap","likelihood":82,"notes":"strong margin"}]}`))
	}))
	defer server.Close()

	p, a := testInputs()
	resp, err := oracleClient(server.URL).Score(context.Background(), p, a, []string{"snap"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Scores) != 1 || resp.Scores[0].ProgramID != "snap" || resp.Scores[0].Likelihood != 82 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestScoreRejectsContractViolations(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing scores", `{}`},
		{"likelihood out of range", `{"scores":[{"program_id":"snap","likelihood":140}]}`},
		{"likelihood not an integer", `{"scores":[{"program_id":"snap","likelihood":"high"}]}`},
		{"empty program id", `{"scores":[{"program_id":"","likelihood":50}]}`},
		{"not json at all", `certainly! here are your scores`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			p, a := testInputs()
			_, err := oracleClient(server.URL).Score(context.Background(), p, a, []string{"snap"})
			if !errors.Is(err, apperrors.ErrOracleUnavailable) {
				t.Errorf("error = %v, want the oracle unavailable sentinel", err)
			}
		})
	}
}

func TestScoreTreatsServerErrorAsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	p, a := testInputs()
	_, err := oracleClient(server.URL).Score(context.Background(), p, a, nil)
	if !errors.Is(err, apperrors.ErrOracleUnavailable) {
		t.Errorf("error = %v, want the oracle unavailable sentinel", err)
	}
}

func TestDisabledClient(t *testing.T) {
	client := NewClient(config.OracleConfig{Enabled: false})
	if client.Enabled() {
		t.Error("client reports enabled without a URL")
	}
	p, a := testInputs()
	if _, err := client.Score(context.Background(), p, a, nil); !errors.Is(err, apperrors.ErrOracleUnavailable) {
		t.Errorf("error = %v, want the oracle unavailable sentinel", err)
	}
}

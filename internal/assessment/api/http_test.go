package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aidmatch/platform/internal/assessment/domain"
	"github.com/aidmatch/platform/internal/eligibility"
	"github.com/aidmatch/platform/internal/oracle"
	"github.com/aidmatch/platform/internal/profile"
	"github.com/aidmatch/platform/internal/shared/auth"
	"github.com/aidmatch/platform/internal/shared/config"
	"github.com/aidmatch/platform/internal/shared/events"
	"github.com/aidmatch/platform/internal/shared/types"
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

// memoryRepo is a map-backed Repository for handler tests
type memoryRepo struct {
	records map[types.ID]*Record
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{records: make(map[types.ID]*Record)}
}

func (m *memoryRepo) Save(ctx context.Context, rec *Record) error {
	m.records[rec.Assessment.ID] = rec
	return nil
}

func (m *memoryRepo) FindByID(ctx context.Context, id types.ID) (*Record, error) {
	if rec, ok := m.records[id]; ok {
		return rec, nil
	}
	return nil, nil
}

func (m *memoryRepo) ListBySession(ctx context.Context, sessionID types.ID) ([]*Record, error) {
	var out []*Record
	for _, rec := range m.records {
		if rec.SessionID == sessionID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func newTestHandler(oracleClient *oracle.Client, repo Repository, bus events.EventBus) *Handler {
	guidelines := testGuidelines()
	assessor := domain.NewAssessor(guidelines)
	engine := eligibility.NewEngine(eligibility.DefaultCatalog(), guidelines)
	return NewHandler(assessor, engine, oracleClient, repo, bus)
}

func postProfile(h *Handler, sessionID types.ID, p profile.HouseholdProfile) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	json.NewEncoder(&buf).Encode(p)
	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	if !sessionID.IsZero() {
		session := &auth.Session{ID: sessionID.String()}
		req = req.WithContext(context.WithValue(req.Context(), auth.SessionContextKey, session))
	}
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

func strugglingProfile() profile.HouseholdProfile {
	return profile.HouseholdProfile{
		MonthlyIncome: 1400,
		MonthlyExpenses: profile.MonthlyExpenses{
			RentOrMortgage: 800,
			Food:           450,
			Utilities:      160,
		},
		HouseholdSize:     3,
		Dependents:        1,
		EmploymentStatus:  profile.EmploymentEmployed,
		SelectedHardships: []profile.HardshipType{profile.HardshipFoodInsecurity},
		ZIPCode:           "60623",
	}
}

func TestCreateAssessmentPipeline(t *testing.T) {
	repo := newMemoryRepo()
	bus := events.NewMemoryBus()

	var published []string
	bus.Subscribe(context.Background(), "assessment.*", "test", func(ctx context.Context, e events.Event) error {
		published = append(published, e.Type)
		return nil
	})

	h := newTestHandler(nil, repo, bus)
	sessionID := types.NewID()

	rec := postProfile(h, sessionID, strugglingProfile())
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp AssessmentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Assessment == nil || resp.Report == nil {
		t.Fatal("Expected assessment and report in the response")
	}
	// 1400*12 = 16800 against an FPL of 25820 is 65%
	if resp.Assessment.PovertyLevelPercent != 65 {
		t.Errorf("Expected 65%% FPL, got %v", resp.Assessment.PovertyLevelPercent)
	}
	if resp.Assessment.PovertyClassification != domain.ClassificationLow {
		t.Errorf("Expected low classification, got %s", resp.Assessment.PovertyClassification)
	}
	if len(resp.Report.Verdicts) != eligibility.DefaultCatalog().Len() {
		t.Errorf("Expected a verdict per program, got %d", len(resp.Report.Verdicts))
	}
	if resp.OracleAvailable {
		t.Error("Expected oracle_available=false without an oracle")
	}

	if len(repo.records) != 1 {
		t.Errorf("Expected the assessment persisted, got %d records", len(repo.records))
	}
	if len(published) != 1 || published[0] != "assessment.completed" {
		t.Errorf("Expected an assessment.completed event, got %v", published)
	}
}

func TestCreateAssessmentRejectsInvalidProfile(t *testing.T) {
	h := newTestHandler(nil, nil, nil)

	p := strugglingProfile()
	p.HouseholdSize = 0

	rec := postProfile(h, types.NewID(), p)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}

	var body struct {
		Details map[string]string `json:"details"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Details["household_size"] == "" {
		t.Error("Expected a household_size validation detail")
	}
}

func TestCreateAssessmentWithOracleAdvisory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"scores": []map[string]any{
				{"program_id": "snap", "likelihood": 72, "notes": "strong food hardship signal"},
			},
		})
	}))
	defer srv.Close()

	client := oracle.NewClient(config.OracleConfig{URL: srv.URL, Enabled: true, TimeoutSeconds: 2})
	h := newTestHandler(client, nil, nil)

	rec := postProfile(h, types.NewID(), strugglingProfile())
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp AssessmentResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp.OracleAvailable {
		t.Fatal("Expected oracle_available=true")
	}
	if len(resp.Advisory) != 1 || resp.Advisory[0].ProgramID != "snap" {
		t.Errorf("Expected the snap advisory score, got %+v", resp.Advisory)
	}
}

func TestCreateAssessmentSurvivesOracleOutage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "oracle down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := oracle.NewClient(config.OracleConfig{URL: srv.URL, Enabled: true, TimeoutSeconds: 2})
	h := newTestHandler(client, nil, nil)

	rec := postProfile(h, types.NewID(), strugglingProfile())
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201 despite oracle outage, got %d", rec.Code)
	}

	var resp AssessmentResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.OracleAvailable {
		t.Error("Expected oracle_available=false after an oracle fault")
	}
	if len(resp.Advisory) != 0 {
		t.Errorf("Expected no advisory scores, got %+v", resp.Advisory)
	}
}

func TestGetAndListAssessments(t *testing.T) {
	repo := newMemoryRepo()
	h := newTestHandler(nil, repo, nil)
	sessionID := types.NewID()

	rec := postProfile(h, sessionID, strugglingProfile())
	var created AssessmentResponse
	json.Unmarshal(rec.Body.Bytes(), &created)

	req := httptest.NewRequest(http.MethodGet, "/"+created.Assessment.ID.String(), nil)
	session := &auth.Session{ID: sessionID.String()}
	req = req.WithContext(context.WithValue(req.Context(), auth.SessionContextKey, session))
	got := httptest.NewRecorder()
	h.Routes().ServeHTTP(got, req)
	if got.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", got.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), auth.SessionContextKey, session))
	list := httptest.NewRecorder()
	h.Routes().ServeHTTP(list, req)
	if list.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", list.Code)
	}
}

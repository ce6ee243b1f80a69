package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"pathfinder/internal/risk"
)

type fakeAssessor struct {
	countries []string
	sector    string
	runs      int
}

func (f *fakeAssessor) Run(_ context.Context, countries []string) risk.Bundle {
	f.runs++
	f.countries = countries
	if len(countries) == 0 {
		return risk.Bundle{
			Climate:    risk.ClimateResult{Overall: risk.Unknown},
			Carbon:     risk.CarbonResult{Overall: risk.Unknown},
			Technology: risk.TechnologyResult{Overall: risk.Unknown},
			Error:      "No countries specified for risk assessment",
		}
	}
	return risk.Bundle{
		Climate:            risk.ClimateResult{Overall: risk.High},
		Carbon:             risk.CarbonResult{Overall: risk.Low},
		Technology:         risk.TechnologyResult{Overall: risk.Medium},
		Timestamp:          "2025-03-14",
		EvaluatedCountries: countries,
	}
}

func (f *fakeAssessor) EvaluateClimate(_ context.Context, countries []string) risk.ClimateResult {
	f.countries = countries
	return risk.ClimateResult{
		Overall:   risk.Low,
		Countries: map[string]risk.Outcome{countries[0]: risk.ClimateForecast{RiskLevel: risk.Low, TempRise: 1.2, Year: 2027}},
	}
}

func (f *fakeAssessor) EvaluateCarbon(_ context.Context, countries []string, sector string) risk.CarbonResult {
	f.countries = countries
	f.sector = sector
	return risk.CarbonResult{Overall: risk.High}
}

func (f *fakeAssessor) EvaluateTechnology(_ context.Context, countries []string) risk.TechnologyResult {
	f.countries = countries
	return risk.TechnologyResult{Overall: risk.Low}
}

type fakeLatest struct {
	data []byte
	err  error
}

func (f fakeLatest) Latest(context.Context) ([]byte, error) {
	return f.data, f.err
}

type fakeHistory struct {
	fakeLatest
	items [][]byte
	count int64
}

func (f *fakeHistory) Recent(_ context.Context, count int64) ([][]byte, error) {
	f.count = count
	return f.items, f.err
}

type fakeAdvisor struct {
	prompt string
	err    error
}

func (f *fakeAdvisor) Roadmap(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return `{"company":"Acme"}`, nil
}

func do(t *testing.T, s *Server, method, target, body string) *http.Response {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w.Result()
}

func TestHandleHealth(t *testing.T) {
	s := NewServer(&fakeAssessor{}, nil, nil, nil)

	resp := do(t, s, http.MethodGet, "/health", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("handleHealth() status = %v, want %v", resp.StatusCode, http.StatusOK)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("handleHealth() content-type = %v, want application/json", contentType)
	}

	var response map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if response["status"] != "healthy" {
		t.Errorf("handleHealth() status in body = %v, want healthy", response["status"])
	}

	if response["time"] == "" {
		t.Error("handleHealth() time should not be empty")
	}
}

func TestHandleAssessment(t *testing.T) {
	a := &fakeAssessor{}
	s := NewServer(a, nil, nil, nil)

	resp := do(t, s, http.MethodPost, "/api/risk/assessment", `{"countries":[" Kenya ","","Chile"]}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("handleAssessment() status = %v, want %v", resp.StatusCode, http.StatusOK)
	}

	if !reflect.DeepEqual(a.countries, []string{"Kenya", "Chile"}) {
		t.Errorf("Expected cleaned countries, got %v", a.countries)
	}

	var bundle map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&bundle); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	climate := bundle["climate_risk"].(map[string]any)
	if climate["overall_risk"] != "High" {
		t.Errorf("Expected climate overall High, got %v", climate["overall_risk"])
	}

	if bundle["timestamp"] != "2025-03-14" {
		t.Errorf("Expected timestamp, got %v", bundle["timestamp"])
	}
}

func TestHandleAssessment_EmptyCountries(t *testing.T) {
	s := NewServer(&fakeAssessor{}, nil, nil, nil)

	resp := do(t, s, http.MethodPost, "/api/risk/assessment", `{"countries":[]}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("handleAssessment() status = %v, want %v", resp.StatusCode, http.StatusOK)
	}

	var bundle map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&bundle); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if bundle["error"] != "No countries specified for risk assessment" {
		t.Errorf("Expected degraded bundle, got %v", bundle)
	}
}

func TestHandleAssessment_InvalidJSON(t *testing.T) {
	a := &fakeAssessor{}
	s := NewServer(a, nil, nil, nil)

	resp := do(t, s, http.MethodPost, "/api/risk/assessment", "invalid json")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("handleAssessment() status = %v, want %v", resp.StatusCode, http.StatusBadRequest)
	}

	if a.runs != 0 {
		t.Errorf("Expected no assessment for a bad request, got %d", a.runs)
	}
}

func TestHandleAssessment_InvalidMethod(t *testing.T) {
	s := NewServer(&fakeAssessor{}, nil, nil, nil)

	resp := do(t, s, http.MethodGet, "/api/risk/assessment", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %v, want %v", resp.StatusCode, http.StatusMethodNotAllowed)
	}
}

func TestHandleLatest(t *testing.T) {
	tests := []struct {
		name       string
		latest     risk.LatestReader
		wantStatus int
		wantBody   string
	}{
		{
			name:       "stored assessment",
			latest:     fakeLatest{data: []byte(`{"climate_risk":{"overall_risk":"Low"}}`)},
			wantStatus: http.StatusOK,
			wantBody:   `{"climate_risk":{"overall_risk":"Low"}}`,
		},
		{
			name:       "nothing stored",
			latest:     fakeLatest{err: risk.ErrNoAssessment},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "no reader",
			latest:     nil,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "read failure",
			latest:     fakeLatest{err: errors.New("disk gone")},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(&fakeAssessor{}, tt.latest, nil, nil)

			resp := do(t, s, http.MethodGet, "/api/risk/latest", "")
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("handleLatest() status = %v, want %v", resp.StatusCode, tt.wantStatus)
			}

			if tt.wantBody != "" {
				var buf bytes.Buffer
				buf.ReadFrom(resp.Body)
				if buf.String() != tt.wantBody {
					t.Errorf("handleLatest() body = %s, want %s", buf.String(), tt.wantBody)
				}
			}
		})
	}
}

func TestHandleHistory(t *testing.T) {
	h := &fakeHistory{items: [][]byte{[]byte(`{"timestamp": "2025-03-14"}`), []byte(`{"timestamp": "2025-03-13"}`)}}
	s := NewServer(&fakeAssessor{}, h, nil, nil)

	resp := do(t, s, http.MethodGet, "/api/risk/history?limit=2", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("handleHistory() status = %v, want %v", resp.StatusCode, http.StatusOK)
	}
	if h.count != 2 {
		t.Errorf("Expected limit 2, got %d", h.count)
	}

	var body struct {
		Count       int              `json:"count"`
		Assessments []map[string]any `json:"assessments"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body.Count != 2 || body.Assessments[0]["timestamp"] != "2025-03-14" {
		t.Errorf("Unexpected history %+v", body)
	}

	resp = do(t, s, http.MethodGet, "/api/risk/history?limit=abc", "")
	resp.Body.Close()
	if h.count != historyLimit {
		t.Errorf("Expected default limit for a bad value, got %d", h.count)
	}
}

func TestHandleHistory_Unsupported(t *testing.T) {
	s := NewServer(&fakeAssessor{}, fakeLatest{}, nil, nil)

	resp := do(t, s, http.MethodGet, "/api/risk/history", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("handleHistory() status = %v, want %v", resp.StatusCode, http.StatusNotFound)
	}
}

func TestHandleDomains(t *testing.T) {
	a := &fakeAssessor{}
	s := NewServer(a, nil, nil, nil)

	resp := do(t, s, http.MethodGet, "/api/risk/climate?country=Kenya,Chile&country=Japan", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("handleClimate() status = %v", resp.StatusCode)
	}
	if !reflect.DeepEqual(a.countries, []string{"Kenya", "Chile", "Japan"}) {
		t.Errorf("Expected three countries, got %v", a.countries)
	}

	var climate map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&climate); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	kenya := climate["country_risks"].(map[string]any)["Kenya"].(map[string]any)
	if kenya["forecast_temp_rise"] != 1.2 {
		t.Errorf("Expected forecast_temp_rise 1.2, got %v", kenya["forecast_temp_rise"])
	}

	resp = do(t, s, http.MethodGet, "/api/risk/carbon?country=Kenya&sector=Transport", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || a.sector != "Transport" {
		t.Errorf("handleCarbon() status = %v sector = %q", resp.StatusCode, a.sector)
	}

	resp = do(t, s, http.MethodGet, "/api/risk/technology?country=Kenya", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("handleTechnology() status = %v", resp.StatusCode)
	}
}

func TestHandleDomains_MissingCountry(t *testing.T) {
	s := NewServer(&fakeAssessor{}, nil, nil, nil)

	for _, path := range []string{"/api/risk/climate", "/api/risk/carbon?country=", "/api/risk/technology?country=,"} {
		resp := do(t, s, http.MethodGet, path, "")
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s status = %v, want %v", path, resp.StatusCode, http.StatusBadRequest)
		}
	}
}

func TestHandleRoadmap(t *testing.T) {
	adv := &fakeAdvisor{}
	s := NewServer(&fakeAssessor{}, nil, adv, nil)

	body := `{"company":"Acme","profile":{"executive_summary":"Cement"},"countries":["Kenya"]}`
	resp := do(t, s, http.MethodPost, "/api/roadmap", body)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("handleRoadmap() status = %v, want %v", resp.StatusCode, http.StatusOK)
	}

	var out RoadmapResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if out.Roadmap != `{"company":"Acme"}` {
		t.Errorf("Expected roadmap text, got %q", out.Roadmap)
	}
	if out.RiskAssessment.Climate.Overall != risk.High {
		t.Errorf("Expected the assessment in the response, got %+v", out.RiskAssessment)
	}
	if !strings.Contains(adv.prompt, "- Climate Risk: High") || !strings.Contains(adv.prompt, "Executive Summary: Cement") {
		t.Errorf("Prompt is missing the assessment or profile:\n%s", adv.prompt)
	}
}

func TestHandleRoadmap_Errors(t *testing.T) {
	tests := []struct {
		name       string
		advisor    *fakeAdvisor
		body       string
		wantStatus int
	}{
		{"no advisor", nil, `{"company":"Acme"}`, http.StatusServiceUnavailable},
		{"missing company", &fakeAdvisor{}, `{"countries":["Kenya"]}`, http.StatusBadRequest},
		{"invalid json", &fakeAdvisor{}, `{`, http.StatusBadRequest},
		{"advisor failure", &fakeAdvisor{err: errors.New("rate limited")}, `{"company":"Acme"}`, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s *Server
			if tt.advisor == nil {
				s = NewServer(&fakeAssessor{}, nil, nil, nil)
			} else {
				s = NewServer(&fakeAssessor{}, nil, tt.advisor, nil)
			}

			resp := do(t, s, http.MethodPost, "/api/roadmap", tt.body)
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("handleRoadmap() status = %v, want %v", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := NewServer(&fakeAssessor{}, nil, nil, nil)

	resp := do(t, s, http.MethodGet, "/metrics", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("metrics status = %v, want %v", resp.StatusCode, http.StatusOK)
	}
}

func TestStart_Shutdown(t *testing.T) {
	s := NewServer(&fakeAssessor{}, nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Start(ctx, "127.0.0.1:0") }()
	cancel()

	if err := <-done; err != nil {
		t.Errorf("Start() after cancel = %v, want nil", err)
	}
}

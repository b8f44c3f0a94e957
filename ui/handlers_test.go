package ui

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pvsignal/domain/signal"
)

func testRecords() []signal.Record {
	var records []signal.Record
	add := func(drug, event string, count int) {
		for i := 0; i < count; i++ {
			records = append(records, signal.Record{Drug: drug, Event: event})
		}
	}
	add("aspirin", "bleeding", 10)
	add("aspirin", "nausea", 90)
	add("other", "bleeding", 20)
	add("other", "nausea", 880)
	return records
}

func TestServer_Health(t *testing.T) {
	srv := NewServer(testRecords(), nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"records":1000`) {
		t.Errorf("health should report record count: %s", rec.Body.String())
	}
}

func TestServer_Analyze(t *testing.T) {
	srv := NewServer(testRecords(), nil)

	body := `{"drugs":["aspirin"],"events":["bleeding"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}

	var run struct {
		Kind    string `json:"kind"`
		Results []struct {
			Drug     string  `json:"drug"`
			A        int     `json:"a"`
			ROR      float64 `json:"ror"`
			IsSignal bool    `json:"is_signal"`
		} `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &run); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if run.Kind != "global" {
		t.Errorf("kind = %q, want global", run.Kind)
	}
	if len(run.Results) != 1 {
		t.Fatalf("expected 1 result row, got %d", len(run.Results))
	}
	if run.Results[0].A != 10 || !run.Results[0].IsSignal {
		t.Errorf("unexpected result row: %+v", run.Results[0])
	}
}

func TestServer_Analyze_BadRequests(t *testing.T) {
	srv := NewServer(testRecords(), nil)

	cases := []struct {
		name string
		path string
		body string
	}{
		{"invalid json", "/api/analyze", "{"},
		{"missing lists", "/api/analyze", "{}"},
		{"missing stratify attr", "/api/analyze/stratified", `{"drugs":["a"],"events":["x"]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tc.path, strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestServer_RunsEndpointsWithoutDatabase(t *testing.T) {
	srv := NewServer(testRecords(), nil)

	for _, path := range []string{"/api/runs", "/api/runs/some-id", "/api/runs/some-id/report"} {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: status = %d, want 503 without database", path, rec.Code)
		}
	}
}

func TestServer_AnalyzeStratified(t *testing.T) {
	records := testRecords()
	for i := range records {
		stratum := "65+"
		if i%2 == 0 {
			stratum = "18-44"
		}
		records[i].Attrs = map[string]string{"age_group": stratum}
	}
	srv := NewServer(records, nil)

	body := `{"drugs":["aspirin"],"events":["bleeding"],"stratify_attr":"age_group"}`
	req := httptest.NewRequest(http.MethodPost, "/api/analyze/stratified", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}

	var run struct {
		Kind    string `json:"kind"`
		Results []struct {
			Stratum string `json:"stratum"`
		} `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &run); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if run.Kind != "stratified" {
		t.Errorf("kind = %q, want stratified", run.Kind)
	}
	for _, row := range run.Results {
		if row.Stratum == "" {
			t.Error("stratified rows must carry a stratum")
		}
	}
}

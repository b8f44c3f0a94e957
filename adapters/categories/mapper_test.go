package categories

import (
	"os"
	"path/filepath"
	"testing"

	"pvsignal/domain/signal"
)

func testConfig() *Config {
	return &Config{
		Tier1: map[string]Rules{
			"hepatotoxicity": {
				ExactMatches: []string{"Hepatic failure"},
				Keywords:     []string{"hepatic", "liver"},
			},
			"cardiovascular": {
				ExactMatches: []string{"MYOCARDIAL INFARCTION"},
				Keywords:     []string{"cardiac"},
			},
		},
		Tier2: map[string]Rules{
			"dermatologic": {
				Keywords: []string{"rash"},
			},
		},
	}
}

func TestMapper_ExactMatchWinsOverKeyword(t *testing.T) {
	m, err := NewMapper(testConfig())
	if err != nil {
		t.Fatalf("NewMapper failed: %v", err)
	}

	// "hepatic failure" would also keyword-match cardiovascular? no, but it
	// keyword-matches hepatotoxicity; the exact table must answer first.
	if got := m.Map("hepatic failure"); got != "hepatotoxicity" {
		t.Errorf("Map(hepatic failure) = %q, want hepatotoxicity", got)
	}
	if got := m.Map("MYOCARDIAL INFARCTION"); got != "cardiovascular" {
		t.Errorf("exact match should be case-insensitive, got %q", got)
	}
}

func TestMapper_KeywordWordBoundary(t *testing.T) {
	m, err := NewMapper(testConfig())
	if err != nil {
		t.Fatalf("NewMapper failed: %v", err)
	}

	if got := m.Map("drug-induced liver injury"); got != "hepatotoxicity" {
		t.Errorf("Map(liver injury term) = %q, want hepatotoxicity", got)
	}
	if got := m.Map("cardiac arrest"); got != "cardiovascular" {
		t.Errorf("Map(cardiac arrest) = %q, want cardiovascular", got)
	}
	// "rashes" does not contain the standalone word "rash"
	if got := m.Map("rashes everywhere"); got != "" {
		t.Errorf("keyword must match whole words only, got %q", got)
	}
	if got := m.Map("maculopapular rash"); got != "dermatologic" {
		t.Errorf("tier2 keyword should map, got %q", got)
	}
}

func TestMapper_UnmappedAndEmptyTerms(t *testing.T) {
	m, err := NewMapper(testConfig())
	if err != nil {
		t.Fatalf("NewMapper failed: %v", err)
	}

	if got := m.Map("completely unrelated term"); got != "" {
		t.Errorf("unmapped term should return empty, got %q", got)
	}
	if got := m.Map(""); got != "" {
		t.Errorf("empty term should return empty, got %q", got)
	}
	if got := m.Map("   "); got != "" {
		t.Errorf("blank term should return empty, got %q", got)
	}
}

func TestMapper_MapRecords(t *testing.T) {
	m, err := NewMapper(testConfig())
	if err != nil {
		t.Fatalf("NewMapper failed: %v", err)
	}

	records := []signal.Record{
		{Drug: "aspirin", Event: "HEPATIC FAILURE"},
		{Drug: "aspirin", Event: "mystery symptom"},
	}
	mapped := m.MapRecords(records)

	if mapped[0].Event != "hepatotoxicity" {
		t.Errorf("mapped event = %q, want hepatotoxicity", mapped[0].Event)
	}
	if mapped[1].Event != "" {
		t.Errorf("unmapped event should become missing, got %q", mapped[1].Event)
	}
	// Inputs untouched
	if records[0].Event != "HEPATIC FAILURE" {
		t.Error("MapRecords mutated its input")
	}
}

func TestLoadConfig(t *testing.T) {
	content := `
tier1_core_categories:
  hepatotoxicity:
    exact_matches:
      - Hepatic failure
    keywords:
      - liver
analysis_categories:
  - hepatotoxicity
`
	path := filepath.Join(t.TempDir(), "ae_mapping.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if len(cfg.Tier1) != 1 {
		t.Errorf("expected 1 tier1 category, got %d", len(cfg.Tier1))
	}
	if len(cfg.AnalysisCategories) != 1 || cfg.AnalysisCategories[0] != "hepatotoxicity" {
		t.Errorf("analysis categories not loaded: %+v", cfg.AnalysisCategories)
	}

	m, err := NewMapper(cfg)
	if err != nil {
		t.Fatalf("NewMapper failed: %v", err)
	}
	if got := m.Map("liver laceration"); got != "hepatotoxicity" {
		t.Errorf("Map = %q, want hepatotoxicity", got)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/mapping.yaml"); err == nil {
		t.Error("expected error for missing config file")
	}
}

package report

import (
	"math"
	"strings"
	"testing"

	"pvsignal/domain/core"
	"pvsignal/domain/signal"
	"pvsignal/internal/analysis"
)

func sampleRun() analysis.Run {
	return analysis.Run{
		ID:             core.NewRunID(),
		Kind:           analysis.RunGlobal,
		Drugs:          []string{"aspirin", "ibuprofen"},
		Events:         []string{"bleeding", "rash"},
		MinCount:       5,
		MinDrugReports: 10,
		RecordCount:    1000,
		StartedAt:      core.Now(),
		FinishedAt:     core.Now(),
		Results: signal.ResultTable{
			{Drug: "aspirin", Event: "bleeding", A: 10, B: 90, C: 20, D: 880,
				ROR: 4.89, RORCILow: 2.22, RORCIHigh: 10.76, PRR: 4.44, Chi2: 50.1, PValue: 0.0001, IsSignal: true},
			{Drug: "ibuprofen", Event: "rash", A: 5, B: 45, C: 40, D: 910,
				ROR: math.NaN(), RORCILow: math.NaN(), RORCIHigh: math.NaN(), PRR: 2.1, Chi2: 4.5, PValue: 0.03},
		},
	}
}

func TestRenderer_Markdown(t *testing.T) {
	md := NewRenderer().Markdown(sampleRun())

	for _, want := range []string{
		"# Disproportionality Analysis",
		"Pairs kept: 2",
		"Signals: 1",
		"Undefined ROR (zero denominator cell): 1",
		"| aspirin | bleeding | 10 |",
		"| yes |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown report missing %q", want)
		}
	}

	// NaN metrics render as NA, never as "NaN"
	if strings.Contains(md, "NaN") {
		t.Error("markdown report should not contain raw NaN")
	}
}

func TestRenderer_Markdown_StratifiedColumn(t *testing.T) {
	run := sampleRun()
	run.Kind = analysis.RunStratified
	run.StratifyAttr = "age_group"
	for i := range run.Results {
		run.Results[i].Stratum = "65+"
	}

	md := NewRenderer().Markdown(run)
	if !strings.Contains(md, "Stratified by: age_group") {
		t.Error("report should name the stratification attribute")
	}
	if !strings.Contains(md, "| stratum |") {
		t.Error("stratified table should carry a stratum column")
	}
	if !strings.Contains(md, "| 65+ |") {
		t.Error("rows should carry their stratum value")
	}
}

func TestRenderer_HTML(t *testing.T) {
	out := string(NewRenderer().HTML(sampleRun()))

	if !strings.Contains(out, "<h1") {
		t.Error("HTML report missing heading")
	}
	if !strings.Contains(out, "<table>") {
		t.Error("HTML report should render the markdown table")
	}
	if !strings.Contains(out, "aspirin") {
		t.Error("HTML report missing data")
	}
}

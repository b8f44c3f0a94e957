package excel

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"pvsignal/domain/signal"
)

func sampleTable() signal.ResultTable {
	return signal.ResultTable{
		{Drug: "aspirin", Event: "bleeding", A: 10, B: 90, C: 20, D: 880,
			ROR: 4.89, RORCILow: 2.22, RORCIHigh: 10.76, PRR: 4.44, Chi2: 50.1, PValue: 0.0001, IsSignal: true},
		{Drug: "ibuprofen", Event: "rash", A: 5, B: 45, C: 40, D: 910,
			ROR: math.NaN(), RORCILow: math.NaN(), RORCIHigh: math.NaN(), PRR: 2.1, Chi2: 4.5, PValue: 0.03},
	}
}

func TestWriter_WriteWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.xlsx")

	if err := NewWriter().WriteWorkbook(sampleTable(), path); err != nil {
		t.Fatalf("WriteWorkbook failed: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("failed to reopen workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 1 || sheets[0] != "Results" {
		t.Fatalf("sheets = %v, want [Results]", sheets)
	}

	rows, err := f.GetRows("Results")
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "drug" || rows[0][6] != "ror" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if rows[1][0] != "aspirin" {
		t.Errorf("first data row = %v", rows[1])
	}
	// NaN metrics render as empty cells
	if len(rows[2]) > 6 && rows[2][6] != "" {
		t.Errorf("NaN ROR should render empty, got %q", rows[2][6])
	}
}

func TestWriter_WriteWorkbook_StratifiedSheets(t *testing.T) {
	table := signal.ResultTable{
		{Drug: "a", Event: "x", ROR: 3.0, Stratum: "65+"},
		{Drug: "a", Event: "y", ROR: 2.0, Stratum: "65+"},
		{Drug: "a", Event: "x", ROR: 1.5, Stratum: "18-44"},
	}
	path := filepath.Join(t.TempDir(), "stratified.xlsx")

	if err := NewWriter().WriteWorkbook(table, path); err != nil {
		t.Fatalf("WriteWorkbook failed: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("failed to reopen workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 {
		t.Fatalf("expected one sheet per stratum, got %v", sheets)
	}
	if sheets[0] != "65+" || sheets[1] != "18-44" {
		t.Errorf("sheet order should follow table order, got %v", sheets)
	}

	rows, err := f.GetRows("65+")
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}
	if len(rows) != 3 {
		t.Errorf("65+ sheet should hold 2 data rows, got %d", len(rows)-1)
	}
	header := rows[0]
	if header[len(header)-1] != "stratum" {
		t.Errorf("stratified header should end with stratum, got %v", header)
	}
}

func TestWriter_WriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")

	if err := NewWriter().WriteCSV(sampleTable(), path); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read CSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "drug,event,a,b,c,d,ror") {
		t.Errorf("unexpected CSV header: %s", lines[0])
	}
	if !strings.Contains(lines[1], "aspirin,bleeding,10,90,20,880") {
		t.Errorf("unexpected first row: %s", lines[1])
	}
	// No stratum column for an unstratified table
	if strings.Contains(lines[0], "stratum") {
		t.Errorf("unstratified CSV should have no stratum column: %s", lines[0])
	}
}

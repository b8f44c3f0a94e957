package signal

import (
	"fmt"
	"math/rand"
	"testing"
)

func TestBuildContingencyTable_Literal(t *testing.T) {
	records := []Record{
		{Drug: "A", Event: "X"},
		{Drug: "A", Event: "X"},
		{Drug: "A", Event: "Y"},
		{Drug: "B", Event: "X"},
		{Drug: "B", Event: "Z"},
	}

	table := BuildContingencyTable(records, "A", "X")
	want := ContingencyTable{A: 2, B: 1, C: 1, D: 1}
	if table != want {
		t.Errorf("BuildContingencyTable = %+v, want %+v", table, want)
	}
}

func TestBuildContingencyTable_MissingValuesExcluded(t *testing.T) {
	records := []Record{
		{Drug: "A", Event: "X"},
		{Drug: "A", Event: ""},  // missing event: excluded from B
		{Drug: "", Event: "X"},  // missing drug: excluded from C
		{Drug: "", Event: ""},   // excluded entirely
		{Drug: "B", Event: "Y"}, // D
	}

	table := BuildContingencyTable(records, "A", "X")
	want := ContingencyTable{A: 1, B: 0, C: 0, D: 1}
	if table != want {
		t.Errorf("BuildContingencyTable = %+v, want %+v", table, want)
	}

	// Cell total equals the count of records with both values present
	if table.Total() != 2 {
		t.Errorf("Total = %d, want 2", table.Total())
	}
}

func TestBuildContingencyTable_CellsSumToNonMissingCount(t *testing.T) {
	records := randomRecords(500, 12345)

	nonMissing := 0
	for _, r := range records {
		if r.Drug != "" && r.Event != "" {
			nonMissing++
		}
	}

	table := BuildContingencyTable(records, "drug_3", "event_2")
	if table.Total() != nonMissing {
		t.Errorf("cells sum to %d, want %d records with both values present", table.Total(), nonMissing)
	}
}

func TestPairIndex_MatchesNaiveBuilder(t *testing.T) {
	records := randomRecords(1000, 99)
	idx := NewPairIndex(records)

	for di := 0; di < 6; di++ {
		for ei := 0; ei < 5; ei++ {
			drug := fmt.Sprintf("drug_%d", di)
			event := fmt.Sprintf("event_%d", ei)

			naive := BuildContingencyTable(records, drug, event)
			indexed := idx.Table(drug, event)
			if naive != indexed {
				t.Errorf("pair (%s, %s): index table %+v != naive table %+v", drug, event, indexed, naive)
			}
		}
	}
}

func TestPairIndex_DrugReportsCountsMissingEvents(t *testing.T) {
	records := []Record{
		{Drug: "A", Event: "X"},
		{Drug: "A", Event: ""},
		{Drug: "A", Event: "Y"},
		{Drug: "B", Event: "X"},
	}

	idx := NewPairIndex(records)
	if got := idx.DrugReports("A"); got != 3 {
		t.Errorf("DrugReports(A) = %d, want 3 (missing-event records still count)", got)
	}
	if got := idx.DrugReports("missing"); got != 0 {
		t.Errorf("DrugReports(missing) = %d, want 0", got)
	}
}

// randomRecords generates a deterministic record set with occasional missing
// drug and event values.
func randomRecords(n int, seed int64) []Record {
	rng := rand.New(rand.NewSource(seed))
	records := make([]Record, n)
	for i := range records {
		drug := fmt.Sprintf("drug_%d", rng.Intn(6))
		event := fmt.Sprintf("event_%d", rng.Intn(5))
		if rng.Float64() < 0.1 {
			drug = ""
		}
		if rng.Float64() < 0.15 {
			event = ""
		}
		records[i] = Record{Drug: drug, Event: event}
	}
	return records
}

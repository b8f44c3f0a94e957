package signal

// BuildContingencyTable counts the four 2x2 cells for one (drug, event) pair
// with a single pass over the record set. Records with a missing drug are
// excluded from C and D; records with a missing event are excluded from B
// and D. Pure function of its inputs, O(N) per pair.
func BuildContingencyTable(records []Record, drug, event string) ContingencyTable {
	var t ContingencyTable
	for _, r := range records {
		switch {
		case r.Drug == drug && r.Event == event:
			t.A++
		case r.Drug == drug && r.Event != "" && r.Event != event:
			t.B++
		case r.Drug != "" && r.Drug != drug && r.Event == event:
			t.C++
		case r.Drug != "" && r.Drug != drug && r.Event != "" && r.Event != event:
			t.D++
		}
	}
	return t
}

// PairIndex precomputes marginal and joint counts so that the orchestrator
// can build the contingency table of any (drug, event) pair in O(1) instead
// of rescanning the record set. Tables produced through the index are
// cell-for-cell identical to BuildContingencyTable on the same records.
type PairIndex struct {
	// drugTotal counts records per drug value, regardless of event.
	drugTotal map[string]int
	// drugEventPresent counts records per drug value whose event is non-missing.
	drugEventPresent map[string]int
	// eventDrugPresent counts records per event value whose drug is non-missing.
	eventDrugPresent map[string]int
	// pair counts records per exact (drug, event) combination.
	pair map[pairKey]int
	// bothPresent counts records with both drug and event non-missing.
	bothPresent int
}

type pairKey struct {
	drug  string
	event string
}

// NewPairIndex scans the record set once and builds the count index.
func NewPairIndex(records []Record) *PairIndex {
	idx := &PairIndex{
		drugTotal:        make(map[string]int),
		drugEventPresent: make(map[string]int),
		eventDrugPresent: make(map[string]int),
		pair:             make(map[pairKey]int),
	}
	for _, r := range records {
		if r.Drug != "" {
			idx.drugTotal[r.Drug]++
		}
		if r.Drug != "" && r.Event != "" {
			idx.drugEventPresent[r.Drug]++
			idx.eventDrugPresent[r.Event]++
			idx.pair[pairKey{drug: r.Drug, event: r.Event}]++
			idx.bothPresent++
		}
	}
	return idx
}

// DrugReports returns the number of records carrying the drug, counting
// records with a missing event as well. This backs the per-drug fast path.
func (idx *PairIndex) DrugReports(drug string) int {
	return idx.drugTotal[drug]
}

// Table derives the 2x2 cells for a (drug, event) pair from the indexed
// counts. A is the joint count; B and C follow from the drug and event
// margins over records with both values present; D is the remainder.
func (idx *PairIndex) Table(drug, event string) ContingencyTable {
	a := idx.pair[pairKey{drug: drug, event: event}]
	b := idx.drugEventPresent[drug] - a
	c := idx.eventDrugPresent[event] - a
	d := idx.bothPresent - a - b - c
	return ContingencyTable{A: a, B: b, C: c, D: d}
}

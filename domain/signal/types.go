package signal

import (
	"encoding/json"
	"math"
)

// Record is one drug-event co-occurrence instance within a case. Records are
// immutable inputs owned by the caller; nothing in this package mutates them.
// An empty string marks a missing value for Drug, Event, or any attribute.
type Record struct {
	CaseID string            `json:"case_id,omitempty"`
	Drug   string            `json:"drug"`
	Event  string            `json:"event"`
	Attrs  map[string]string `json:"attrs,omitempty"`
}

// Attr returns the named stratification attribute, or "" when missing.
func (r Record) Attr(name string) string {
	if r.Attrs == nil {
		return ""
	}
	return r.Attrs[name]
}

// ContingencyTable holds the four cells of the 2x2 table for one (drug, event) pair:
//
//	A: records with this drug and this event
//	B: records with this drug and a different (non-missing) event
//	C: records with a different (non-missing) drug and this event
//	D: records with a different (non-missing) drug and a different (non-missing) event
//
// A+B+C+D equals the number of records with both drug and event non-missing;
// records missing either value are excluded from every cell.
type ContingencyTable struct {
	A int `json:"a"`
	B int `json:"b"`
	C int `json:"c"`
	D int `json:"d"`
}

// Total returns the number of records counted across all four cells.
func (t ContingencyTable) Total() int {
	return t.A + t.B + t.C + t.D
}

// MetricResult is one row of a disproportionality analysis: the contingency
// cells plus the ratio statistics for a single (drug, event) pair. Created
// once by the orchestrator and immutable thereafter.
type MetricResult struct {
	Drug      string  `json:"drug" db:"drug"`
	Event     string  `json:"event" db:"event"`
	A         int     `json:"a" db:"a"`
	B         int     `json:"b" db:"b"`
	C         int     `json:"c" db:"c"`
	D         int     `json:"d" db:"d"`
	ROR       float64 `json:"ror" db:"ror"`
	RORCILow  float64 `json:"ror_ci_low" db:"ror_ci_low"`
	RORCIHigh float64 `json:"ror_ci_high" db:"ror_ci_high"`
	PRR       float64 `json:"prr" db:"prr"`
	Chi2      float64 `json:"chi2" db:"chi2"`
	PValue    float64 `json:"p_value" db:"p_value"`
	IsSignal  bool    `json:"is_signal" db:"is_signal"`
	// Stratum is set only on rows produced by a stratified run.
	Stratum string `json:"stratum,omitempty" db:"stratum"`
}

// Table returns the contingency cells of the row.
func (m MetricResult) Table() ContingencyTable {
	return ContingencyTable{A: m.A, B: m.B, C: m.C, D: m.D}
}

// MarshalJSON encodes NaN and Inf metric values as null: the undefined-ratio
// sentinel must survive JSON, which has no NaN literal.
func (m MetricResult) MarshalJSON() ([]byte, error) {
	type jsonRow struct {
		Drug      string   `json:"drug"`
		Event     string   `json:"event"`
		A         int      `json:"a"`
		B         int      `json:"b"`
		C         int      `json:"c"`
		D         int      `json:"d"`
		ROR       *float64 `json:"ror"`
		RORCILow  *float64 `json:"ror_ci_low"`
		RORCIHigh *float64 `json:"ror_ci_high"`
		PRR       *float64 `json:"prr"`
		Chi2      *float64 `json:"chi2"`
		PValue    *float64 `json:"p_value"`
		IsSignal  bool     `json:"is_signal"`
		Stratum   string   `json:"stratum,omitempty"`
	}
	return json.Marshal(jsonRow{
		Drug: m.Drug, Event: m.Event,
		A: m.A, B: m.B, C: m.C, D: m.D,
		ROR:       finiteOrNil(m.ROR),
		RORCILow:  finiteOrNil(m.RORCILow),
		RORCIHigh: finiteOrNil(m.RORCIHigh),
		PRR:       finiteOrNil(m.PRR),
		Chi2:      finiteOrNil(m.Chi2),
		PValue:    finiteOrNil(m.PValue),
		IsSignal:  m.IsSignal,
		Stratum:   m.Stratum,
	})
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// ResultTable is an ordered collection of analysis rows, sorted by ROR
// descending with insertion order (drug-then-event iteration order) as the
// stable tie-break. Rows whose ROR is NaN sort after every finite ROR.
type ResultTable []MetricResult

// Signals returns only the rows flagged as signals, preserving order.
func (t ResultTable) Signals() ResultTable {
	out := make(ResultTable, 0, len(t))
	for _, row := range t {
		if row.IsSignal {
			out = append(out, row)
		}
	}
	return out
}

package analysis

import (
	"pvsignal/domain/core"
	"pvsignal/domain/signal"
)

// RunKind distinguishes whole-population runs from stratified ones.
type RunKind string

const (
	RunGlobal     RunKind = "global"
	RunStratified RunKind = "stratified"
)

// Run captures one completed analysis: its parameters, timing, and result
// table. Runs are what the postgres adapter persists and the report and
// excel adapters render.
type Run struct {
	ID             core.RunID         `json:"id"`
	Kind           RunKind            `json:"kind"`
	Drugs          []string           `json:"drugs"`
	Events         []string           `json:"events"`
	StratifyAttr   string             `json:"stratify_attr,omitempty"`
	MinCount       int                `json:"min_count"`
	MinDrugReports int                `json:"min_drug_reports"`
	RecordCount    int                `json:"record_count"`
	StartedAt      core.Timestamp     `json:"started_at"`
	FinishedAt     core.Timestamp     `json:"finished_at"`
	Results        signal.ResultTable `json:"results"`
}

// NewRun assembles a run envelope around a finished result table.
func NewRun(kind RunKind, opts Options, drugs, events []string, stratifyAttr string, recordCount int, startedAt core.Timestamp, results signal.ResultTable) Run {
	return Run{
		ID:             core.NewRunID(),
		Kind:           kind,
		Drugs:          drugs,
		Events:         events,
		StratifyAttr:   stratifyAttr,
		MinCount:       opts.MinCount,
		MinDrugReports: opts.MinDrugReports,
		RecordCount:    recordCount,
		StartedAt:      startedAt,
		FinishedAt:     core.Now(),
		Results:        results,
	}
}

// Summary returns the reporting summary of the run's table.
func (r Run) Summary() Summary {
	return Summarize(r.Results)
}

package analysis

import (
	"context"

	"pvsignal/domain/signal"
	"pvsignal/internal"
)

// StratifiedAnalyzer partitions the record set by one categorical attribute
// and reruns the orchestrator independently per partition. No count ever
// crosses a stratum boundary: a record contributes to exactly the stratum
// of its own attribute value, and records missing the attribute contribute
// to none.
type StratifiedAnalyzer struct {
	analyzer *Analyzer
	log      *internal.Logger
}

// NewStratifiedAnalyzer creates a stratified runner. Callers typically pass
// StratumOptions(): strata are smaller subsets and need lower filters.
func NewStratifiedAnalyzer(opts Options) *StratifiedAnalyzer {
	return &StratifiedAnalyzer{
		analyzer: NewAnalyzer(opts),
		log:      internal.DefaultLogger,
	}
}

// Run partitions records by the distinct non-missing values of stratifyAttr,
// in first-appearance order, and concatenates the non-empty per-stratum
// tables with each row tagged by its stratum value. A stratum that clears
// no pair contributes nothing.
func (s *StratifiedAnalyzer) Run(ctx context.Context, records []signal.Record, drugs, events []string, stratifyAttr string) (signal.ResultTable, error) {
	strata, partitions := partitionByAttr(records, stratifyAttr)

	combined := make(signal.ResultTable, 0)
	for _, stratum := range strata {
		table, err := s.analyzer.Run(ctx, partitions[stratum], drugs, events)
		if err != nil {
			return nil, err
		}
		if len(table) == 0 {
			continue
		}
		for i := range table {
			table[i].Stratum = stratum
		}
		combined = append(combined, table...)
		s.log.Debug("stratum %s=%s: %d rows", stratifyAttr, stratum, len(table))
	}

	return combined, nil
}

// partitionByAttr splits records by attribute value, keeping first-appearance
// order of the values. Records with a missing attribute are dropped; the
// resulting partitions are pairwise disjoint and their union is the record
// set restricted to non-missing attribute values.
func partitionByAttr(records []signal.Record, attr string) ([]string, map[string][]signal.Record) {
	var order []string
	partitions := make(map[string][]signal.Record)
	for _, r := range records {
		v := r.Attr(attr)
		if v == "" {
			continue
		}
		if _, seen := partitions[v]; !seen {
			order = append(order, v)
		}
		partitions[v] = append(partitions[v], r)
	}
	return order, partitions
}

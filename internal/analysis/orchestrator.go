package analysis

import (
	"context"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"pvsignal/domain/signal"
	"pvsignal/internal"
)

// Options controls the minimum-count filters and worker fan-out of a run.
// Signal thresholds are not here: they are fixed constants of the detector.
type Options struct {
	// MinCount is the minimum a-cell (drug-event co-occurrence) count.
	MinCount int
	// MinDrugReports is the minimum total report count for a drug.
	MinDrugReports int
	// Workers bounds concurrent per-drug evaluation; 0 means one per CPU.
	Workers int
}

// DefaultOptions returns the filters used for whole-population runs.
func DefaultOptions() Options {
	return Options{MinCount: 5, MinDrugReports: 10}
}

// StratumOptions returns the lower filters used within strata, which are
// smaller subsets of the record set.
func StratumOptions() Options {
	return Options{MinCount: 3, MinDrugReports: 5}
}

// Analyzer evaluates every (drug, event) pair of the target lists against a
// record set and assembles the sorted result table.
type Analyzer struct {
	opts Options
	log  *internal.Logger
}

// NewAnalyzer creates an analyzer with the given filter options.
func NewAnalyzer(opts Options) *Analyzer {
	return &Analyzer{opts: opts, log: internal.DefaultLogger}
}

// Run screens the Cartesian product of drugs and events. Drugs below the
// report minimum are skipped before any pair is evaluated; pairs below the
// co-occurrence or drug-report minimums are silently excluded. An empty
// table is a valid outcome, not an error. The only error source is context
// cancellation.
//
// Pair evaluation fans out per drug: each worker owns one drug's result
// slot, so no mutable state is shared, and the single global sort runs
// after the merge. Output is deterministic for identical inputs.
func (a *Analyzer) Run(ctx context.Context, records []signal.Record, drugs, events []string) (signal.ResultTable, error) {
	idx := signal.NewPairIndex(records)

	slots := make([]signal.ResultTable, len(drugs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers())

	for i, drug := range drugs {
		i, drug := i, drug
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			slots[i] = a.evaluateDrug(idx, drug, events)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	table := make(signal.ResultTable, 0)
	for _, slot := range slots {
		table = append(table, slot...)
	}
	sortByROR(table)

	a.log.Info("analysis complete: %d drugs x %d events, %d pairs kept, %d signals",
		len(drugs), len(events), len(table), len(table.Signals()))
	return table, nil
}

// evaluateDrug builds and scores every event pair for one drug. Returns nil
// when the drug fails the fast-path report minimum.
func (a *Analyzer) evaluateDrug(idx *signal.PairIndex, drug string, events []string) signal.ResultTable {
	if idx.DrugReports(drug) < a.opts.MinDrugReports {
		a.log.Debug("skipping drug %s: %d reports below minimum %d",
			drug, idx.DrugReports(drug), a.opts.MinDrugReports)
		return nil
	}

	var rows signal.ResultTable
	for _, event := range events {
		t := idx.Table(drug, event)

		if t.A < a.opts.MinCount {
			continue
		}
		// Re-validate at pair granularity: b counts only records with a
		// non-missing event, so a+b can fall below the drug total.
		if t.A+t.B < a.opts.MinDrugReports {
			continue
		}

		ror, ciLow, ciHigh := signal.ComputeROR(t.A, t.B, t.C, t.D)
		prr, chi2 := signal.ComputePRR(t.A, t.B, t.C, t.D)

		row := signal.MetricResult{
			Drug:      drug,
			Event:     event,
			A:         t.A,
			B:         t.B,
			C:         t.C,
			D:         t.D,
			ROR:       ror,
			RORCILow:  ciLow,
			RORCIHigh: ciHigh,
			PRR:       prr,
			Chi2:      chi2,
			PValue:    signal.ChiSquarePValue(chi2),
		}
		row.IsSignal = signal.DetectSignal(row)
		rows = append(rows, row)
	}
	return rows
}

func (a *Analyzer) workers() int {
	if a.opts.Workers > 0 {
		return a.opts.Workers
	}
	return runtime.NumCPU()
}

// sortByROR orders rows by ROR descending. The sort is stable, so ties keep
// drug-then-event iteration order; NaN RORs sort after every finite value.
func sortByROR(table signal.ResultTable) {
	sort.SliceStable(table, func(i, j int) bool {
		ri, rj := table[i].ROR, table[j].ROR
		if math.IsNaN(ri) {
			return false
		}
		if math.IsNaN(rj) {
			return true
		}
		return ri > rj
	})
}

package analysis

import (
	"math"

	"github.com/montanaflynn/stats"

	"pvsignal/domain/signal"
)

// Summary condenses a result table for reporting: how many pairs survived
// the filters, how many were flagged, and the distribution of finite RORs.
type Summary struct {
	Pairs          int     `json:"pairs"`
	Signals        int     `json:"signals"`
	UndefinedPairs int     `json:"undefined_pairs"` // NaN ROR (zero denominator cell)
	RORMean        float64 `json:"ror_mean"`
	RORMedian      float64 `json:"ror_median"`
	RORMax         float64 `json:"ror_max"`
	RORP90         float64 `json:"ror_p90"`
}

// Summarize computes summary statistics over the finite RORs of a table.
// Distribution fields are NaN when no row has a finite ROR.
func Summarize(table signal.ResultTable) Summary {
	s := Summary{Pairs: len(table)}

	finite := make([]float64, 0, len(table))
	for _, row := range table {
		if row.IsSignal {
			s.Signals++
		}
		if math.IsNaN(row.ROR) || math.IsInf(row.ROR, 0) {
			s.UndefinedPairs++
			continue
		}
		finite = append(finite, row.ROR)
	}

	s.RORMean = statOrNaN(stats.Mean, finite)
	s.RORMedian = statOrNaN(stats.Median, finite)
	s.RORMax = statOrNaN(stats.Max, finite)
	s.RORP90 = percentileOrNaN(finite, 90)

	return s
}

func statOrNaN(fn func(stats.Float64Data) (float64, error), data []float64) float64 {
	v, err := fn(data)
	if err != nil {
		return math.NaN()
	}
	return v
}

func percentileOrNaN(data []float64, p float64) float64 {
	v, err := stats.Percentile(data, p)
	if err != nil {
		return math.NaN()
	}
	return v
}

package signal

import (
	"math"
	"testing"
)

func TestDetectSignal(t *testing.T) {
	cases := []struct {
		name string
		m    MetricResult
		want bool
	}{
		{
			name: "ror rule fires",
			m:    MetricResult{A: 2, ROR: 3.5, RORCILow: 1.2, PRR: 1.0, Chi2: 0.5},
			want: true,
		},
		{
			name: "ror above threshold but ci includes null",
			m:    MetricResult{A: 2, ROR: 3.5, RORCILow: 0.9, PRR: 1.0, Chi2: 0.5},
			want: false,
		},
		{
			name: "prr rule fires",
			m:    MetricResult{A: 3, ROR: 1.5, RORCILow: 0.8, PRR: 2.5, Chi2: 5.0},
			want: true,
		},
		{
			name: "prr rule blocked by co-report minimum",
			m:    MetricResult{A: 2, ROR: 1.5, RORCILow: 0.8, PRR: 2.5, Chi2: 5.0},
			want: false,
		},
		{
			name: "prr rule blocked by chi2",
			m:    MetricResult{A: 5, ROR: 1.5, RORCILow: 0.8, PRR: 2.5, Chi2: 3.9},
			want: false,
		},
		{
			name: "either rule suffices",
			m:    MetricResult{A: 10, ROR: 4.0, RORCILow: 2.0, PRR: 3.8, Chi2: 22.0},
			want: true,
		},
		{
			name: "nan metrics never signal",
			m:    MetricResult{A: 10, ROR: math.NaN(), RORCILow: math.NaN(), PRR: math.NaN(), Chi2: math.NaN()},
			want: false,
		},
		{
			name: "zero co-occurrence never signals",
			m:    MetricResult{A: 0, ROR: 0, RORCILow: 0, PRR: 0, Chi2: 0},
			want: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetectSignal(tc.m); got != tc.want {
				t.Errorf("DetectSignal(%+v) = %v, want %v", tc.m, got, tc.want)
			}
		})
	}
}

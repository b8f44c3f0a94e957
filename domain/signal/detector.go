package signal

// Signal-detection thresholds, fixed by pharmacovigilance convention.
// Callers wanting different cutoffs wrap the detector rather than tuning it.
const (
	// RORThreshold is the minimum reporting odds ratio.
	RORThreshold = 2.0
	// RORCILowThreshold requires the CI lower bound to exclude the null.
	RORCILowThreshold = 1.0
	// PRRThreshold is the minimum proportional reporting ratio.
	PRRThreshold = 2.0
	// Chi2Threshold is the minimum chi-square statistic for the PRR rule.
	Chi2Threshold = 4.0
	// MinCoReports is the minimum a-cell count for the PRR rule.
	MinCoReports = 3
)

// DetectSignal applies the dual ROR/PRR decision rule: a pair is a signal
// when either sub-rule holds. NaN metric values fail every comparison, so
// degenerate pairs are never flagged.
func DetectSignal(m MetricResult) bool {
	rorRule := m.ROR > RORThreshold && m.RORCILow > RORCILowThreshold
	prrRule := m.PRR > PRRThreshold && m.Chi2 > Chi2Threshold && m.A >= MinCoReports
	return rorRule || prrRule
}

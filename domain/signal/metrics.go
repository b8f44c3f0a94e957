package signal

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// z-value for a two-sided 95% confidence interval
const ci95Z = 1.96

// ComputeROR computes the Reporting Odds Ratio with its 95% confidence
// interval from the four contingency cells.
//
//	ROR = (a*d) / (b*c)
//	SE(ln ROR) = sqrt(1/a + 1/b + 1/c + 1/d)
//	CI = exp(ln ROR +/- 1.96*SE)
//
// Degenerate cells are represented as data, never as errors:
//   - b == 0 or c == 0: the ratio is undefined, all three outputs are NaN.
//   - a == 0: exactly zero co-occurrence, all three outputs are 0.
//   - d == 0: the standard error is undefined, all three outputs are NaN.
func ComputeROR(a, b, c, d int) (ror, ciLow, ciHigh float64) {
	if b == 0 || c == 0 {
		return math.NaN(), math.NaN(), math.NaN()
	}
	if a == 0 {
		return 0, 0, 0
	}
	if d == 0 {
		return math.NaN(), math.NaN(), math.NaN()
	}

	ror = (float64(a) * float64(d)) / (float64(b) * float64(c))

	seLogROR := math.Sqrt(1/float64(a) + 1/float64(b) + 1/float64(c) + 1/float64(d))
	logROR := math.Log(ror)
	ciLow = math.Exp(logROR - ci95Z*seLogROR)
	ciHigh = math.Exp(logROR + ci95Z*seLogROR)

	return ror, ciLow, ciHigh
}

// ComputePRR computes the Proportional Reporting Ratio and the chi-square
// statistic of the 2x2 table under independence.
//
//	PRR = (a/(a+b)) / (c/(c+d))
//	chi2 = sum over cells of (observed-expected)^2/expected
//
// Degenerate margins follow the same data-not-error policy as ComputeROR:
//   - (a+b) == 0 or (c+d) == 0: both outputs are NaN.
//   - a == 0: both outputs are 0.
//
// A zero expected cell (possible only when a margin of the table is empty
// beyond the guards above) propagates through IEEE division as NaN or Inf.
func ComputePRR(a, b, c, d int) (prr, chi2 float64) {
	if a+b == 0 || c+d == 0 {
		return math.NaN(), math.NaN()
	}
	if a == 0 {
		return 0, 0
	}

	fa, fb, fc, fd := float64(a), float64(b), float64(c), float64(d)
	prr = (fa / (fa + fb)) / (fc / (fc + fd))

	n := fa + fb + fc + fd
	expectedA := (fa + fb) * (fa + fc) / n
	expectedB := (fa + fb) * (fb + fd) / n
	expectedC := (fc + fd) * (fa + fc) / n
	expectedD := (fc + fd) * (fb + fd) / n

	chi2 = math.Pow(fa-expectedA, 2)/expectedA +
		math.Pow(fb-expectedB, 2)/expectedB +
		math.Pow(fc-expectedC, 2)/expectedC +
		math.Pow(fd-expectedD, 2)/expectedD

	return prr, chi2
}

// ChiSquarePValue returns the upper-tail probability of chi2 under the
// 1-degree-of-freedom chi-square distribution, i.e. the p-value of the
// 2x2 independence test. NaN in yields NaN out.
func ChiSquarePValue(chi2 float64) float64 {
	if math.IsNaN(chi2) {
		return math.NaN()
	}
	if chi2 <= 0 {
		return 1.0
	}
	chiDist := distuv.ChiSquared{K: 1}
	return chiDist.Survival(chi2)
}

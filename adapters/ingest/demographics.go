package ingest

import (
	"math"
	"strconv"
	"strings"

	"pvsignal/domain/signal"
)

// Demographic attribute names consumed and produced by Enrich.
const (
	AttrAge      = "age"
	AttrAgeUnit  = "age_cod"
	AttrAgeGroup = "age_group"
	AttrSex      = "sex"
)

// AgeUnknown labels records whose age could not be resolved. It is a real
// stratum value, not a missing one: unknown-age cases are analyzed together.
const AgeUnknown = "Unknown"

// AgeToYears converts a raw age and its unit code to years. Unit codes
// follow the spontaneous-report convention: YR years, DEC decades, MON
// months, DY days. An unknown or empty unit is treated as years. Returns
// NaN for unparseable, negative, or implausible (>150) ages.
func AgeToYears(age, unit string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(age), 64)
	if err != nil {
		return math.NaN()
	}

	switch strings.ToUpper(strings.TrimSpace(unit)) {
	case "YR", "":
		// years already
	case "DEC":
		v *= 10
	case "MON":
		v /= 12
	case "DY":
		v /= 365
	default:
		// unknown unit, assume years
	}

	if v < 0 || v > 150 {
		return math.NaN()
	}
	return v
}

// AgeGroup bins an age in years into the analysis strata. The bin edges are
// right-inclusive: 18 falls in "<18", 45 in "18-44", and so on.
func AgeGroup(years float64) string {
	switch {
	case math.IsNaN(years):
		return AgeUnknown
	case years <= 18:
		return "<18"
	case years <= 45:
		return "18-44"
	case years <= 65:
		return "45-64"
	case years <= 75:
		return "65-74"
	default:
		return "75+"
	}
}

// NormalizeSex standardizes the sex attribute to M, F, or UNK.
func NormalizeSex(sex string) string {
	s := strings.ToUpper(strings.TrimSpace(sex))
	switch s {
	case "M", "F":
		return s
	default:
		return "UNK"
	}
}

// Enrich derives the stratification attributes from raw demographic columns:
// age_group from age/age_cod and a normalized sex. Returns a new record
// slice; input records and their attribute maps are not modified.
func Enrich(records []signal.Record) []signal.Record {
	out := make([]signal.Record, len(records))
	for i, r := range records {
		attrs := make(map[string]string, len(r.Attrs)+2)
		for k, v := range r.Attrs {
			attrs[k] = v
		}

		attrs[AttrAgeGroup] = AgeGroup(AgeToYears(r.Attr(AttrAge), r.Attr(AttrAgeUnit)))
		attrs[AttrSex] = NormalizeSex(r.Attr(AttrSex))

		r.Attrs = attrs
		out[i] = r
	}
	return out
}

package ingest

import (
	"sort"
)

// Dedupe resolves follow-up reports: when several rows share a case ID, only
// the row with the latest report date survives. Rows without a case ID are
// passed through untouched, and relative order of surviving rows follows the
// input. The input slice is not modified.
func Dedupe(rows []Row) []Row {
	// Latest date per case; ties keep the later row, matching a descending
	// date sort that prefers the most recent follow-up.
	type winner struct {
		pos int
	}
	latest := make(map[string]winner)

	ordered := make([]int, 0, len(rows))
	for i, row := range rows {
		id := row.Record.CaseID
		if id == "" {
			ordered = append(ordered, i)
			continue
		}
		w, seen := latest[id]
		if !seen || !rows[i].ReportDate.Before(rows[w.pos].ReportDate) {
			latest[id] = winner{pos: i}
		}
	}

	for _, w := range latest {
		ordered = append(ordered, w.pos)
	}
	sort.Ints(ordered)

	out := make([]Row, 0, len(ordered))
	for _, i := range ordered {
		out = append(out, rows[i])
	}
	return out
}

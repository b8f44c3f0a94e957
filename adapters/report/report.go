// Package report renders a run into a human-readable summary: markdown for
// the terminal or version control, HTML for the browser.
package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"pvsignal/domain/signal"
	"pvsignal/internal/analysis"
)

// topRows caps the detail table in the report; the full table belongs in the
// excel/CSV export, not the narrative summary.
const topRows = 25

// Renderer builds run reports.
type Renderer struct{}

// NewRenderer creates a new report renderer
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Markdown renders the run as a markdown document: parameters, summary
// statistics of the ROR distribution, and the top rows by ROR.
func (r *Renderer) Markdown(run analysis.Run) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Disproportionality Analysis %s\n\n", run.ID)
	fmt.Fprintf(&b, "- Kind: %s\n", run.Kind)
	if run.StratifyAttr != "" {
		fmt.Fprintf(&b, "- Stratified by: %s\n", run.StratifyAttr)
	}
	fmt.Fprintf(&b, "- Records: %d\n", run.RecordCount)
	fmt.Fprintf(&b, "- Drugs tested: %d, events tested: %d\n", len(run.Drugs), len(run.Events))
	fmt.Fprintf(&b, "- Filters: min co-occurrences %d, min drug reports %d\n", run.MinCount, run.MinDrugReports)
	fmt.Fprintf(&b, "- Started: %s, finished: %s\n\n",
		run.StartedAt.Time().Format("2006-01-02 15:04:05"),
		run.FinishedAt.Time().Format("2006-01-02 15:04:05"))

	s := run.Summary()
	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- Pairs kept: %d\n", s.Pairs)
	fmt.Fprintf(&b, "- Signals: %d\n", s.Signals)
	fmt.Fprintf(&b, "- Undefined ROR (zero denominator cell): %d\n", s.UndefinedPairs)
	if !math.IsNaN(s.RORMedian) {
		fmt.Fprintf(&b, "- ROR median %.2f, mean %.2f, p90 %.2f, max %.2f\n",
			s.RORMedian, s.RORMean, s.RORP90, s.RORMax)
	}
	b.WriteString("\n")

	if len(run.Results) > 0 {
		fmt.Fprintf(&b, "## Top pairs by ROR\n\n")
		writeTable(&b, run.Results, run.Kind == analysis.RunStratified)
	}

	return b.String()
}

// HTML renders the markdown report to a standalone HTML fragment.
func (r *Renderer) HTML(run analysis.Run) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	doc := p.Parse([]byte(r.Markdown(run)))

	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags,
	})
	return markdown.Render(doc, renderer)
}

func writeTable(b *strings.Builder, table signal.ResultTable, stratified bool) {
	header := "| drug | event | a | ror | 95% CI | prr | chi2 | p | signal |"
	rule := "|---|---|---|---|---|---|---|---|---|"
	if stratified {
		header = "| stratum " + header
		rule = "|---" + rule
	}
	b.WriteString(header + "\n")
	b.WriteString(rule + "\n")

	n := len(table)
	if n > topRows {
		n = topRows
	}
	for _, row := range table[:n] {
		line := fmt.Sprintf("| %s | %s | %d | %s | %s to %s | %s | %s | %s | %s |",
			row.Drug, row.Event, row.A,
			num(row.ROR), num(row.RORCILow), num(row.RORCIHigh),
			num(row.PRR), num(row.Chi2), num(row.PValue),
			signalMark(row.IsSignal))
		if stratified {
			line = fmt.Sprintf("| %s %s", row.Stratum, line)
		}
		b.WriteString(line + "\n")
	}
	if len(table) > topRows {
		fmt.Fprintf(b, "\n_%d further rows omitted._\n", len(table)-topRows)
	}
	b.WriteString("\n")
}

func num(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "NA"
	}
	if v != 0 && math.Abs(v) < 0.001 {
		return fmt.Sprintf("%.2e", v)
	}
	return fmt.Sprintf("%.3f", v)
}

func signalMark(isSignal bool) string {
	if isSignal {
		return "yes"
	}
	return "no"
}

// Package excel exports result tables for downstream review. Ranking and
// visualization live with the consumers; this adapter only renders rows.
package excel

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"pvsignal/domain/signal"
	"pvsignal/internal/errors"
)

// resultColumns is the output contract's column order.
var resultColumns = []string{
	"drug", "event", "a", "b", "c", "d",
	"ror", "ror_ci_low", "ror_ci_high", "prr", "chi2", "p_value", "is_signal",
}

const stratumColumn = "stratum"

// Writer renders result tables to XLSX workbooks and CSV files.
type Writer struct{}

// NewWriter creates a new result writer
func NewWriter() *Writer {
	return &Writer{}
}

// WriteWorkbook saves the table as an XLSX workbook. Stratified tables get
// one sheet per stratum, in table order; unstratified tables a single
// Results sheet. NaN metrics render as empty cells.
func (w *Writer) WriteWorkbook(table signal.ResultTable, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheets := splitByStratum(table)

	for i, sheet := range sheets {
		name := sheet.name
		if i == 0 {
			// Rename the default sheet instead of leaving it empty
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return errors.WithCode(err, errors.CodeExport, "failed to name sheet")
			}
		} else {
			if _, err := f.NewSheet(name); err != nil {
				return errors.WithCode(err, errors.CodeExport, "failed to add sheet")
			}
		}
		if err := w.writeSheet(f, name, sheet.rows, sheet.stratified); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return errors.WithCode(err, errors.CodeExport, "failed to save workbook")
	}
	return nil
}

func (w *Writer) writeSheet(f *excelize.File, sheet string, rows signal.ResultTable, stratified bool) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return errors.WithCode(err, errors.CodeExport, "failed to create header style")
	}

	columns := headerFor(stratified)
	for col, h := range columns {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return errors.WithCode(err, errors.CodeExport, "failed to write header")
		}
	}
	endCell, _ := excelize.CoordinatesToCellName(len(columns), 1)
	if err := f.SetCellStyle(sheet, "A1", endCell, headerStyle); err != nil {
		return errors.WithCode(err, errors.CodeExport, "failed to style header")
	}

	for i, row := range rows {
		for col, value := range cellValues(row, stratified) {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return errors.Wrapf(err, "failed to write row %d", i+1)
			}
		}
	}
	return nil
}

// WriteCSV saves the table as a CSV file. The stratum column appears only
// when the table carries stratified rows; NaN metrics render as empty.
func (w *Writer) WriteCSV(table signal.ResultTable, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.WithCode(err, errors.CodeExport, "failed to create CSV file")
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	defer writer.Flush()

	stratified := isStratified(table)
	if err := writer.Write(headerFor(stratified)); err != nil {
		return errors.WithCode(err, errors.CodeExport, "failed to write CSV header")
	}

	for i, row := range table {
		fields := make([]string, 0, len(resultColumns)+1)
		for _, v := range cellValues(row, stratified) {
			fields = append(fields, formatCSV(v))
		}
		if err := writer.Write(fields); err != nil {
			return errors.Wrapf(err, "failed to write CSV row %d", i+1)
		}
	}
	return nil
}

type sheetGroup struct {
	name       string
	rows       signal.ResultTable
	stratified bool
}

// splitByStratum groups stratified rows into per-stratum sheets, keeping
// first-appearance stratum order. Unstratified tables yield one sheet.
func splitByStratum(table signal.ResultTable) []sheetGroup {
	if !isStratified(table) {
		return []sheetGroup{{name: "Results", rows: table}}
	}

	var order []string
	groups := make(map[string]signal.ResultTable)
	for _, row := range table {
		if _, seen := groups[row.Stratum]; !seen {
			order = append(order, row.Stratum)
		}
		groups[row.Stratum] = append(groups[row.Stratum], row)
	}

	sheets := make([]sheetGroup, 0, len(order))
	for _, stratum := range order {
		sheets = append(sheets, sheetGroup{
			name:       sheetName(stratum),
			rows:       groups[stratum],
			stratified: true,
		})
	}
	return sheets
}

func isStratified(table signal.ResultTable) bool {
	for _, row := range table {
		if row.Stratum != "" {
			return true
		}
	}
	return false
}

func headerFor(stratified bool) []string {
	if !stratified {
		return resultColumns
	}
	return append(append([]string{}, resultColumns...), stratumColumn)
}

func cellValues(row signal.MetricResult, stratified bool) []interface{} {
	values := []interface{}{
		row.Drug, row.Event, row.A, row.B, row.C, row.D,
		metricCell(row.ROR), metricCell(row.RORCILow), metricCell(row.RORCIHigh),
		metricCell(row.PRR), metricCell(row.Chi2), metricCell(row.PValue),
		row.IsSignal,
	}
	if stratified {
		values = append(values, row.Stratum)
	}
	return values
}

// metricCell maps the NaN sentinel to an empty cell.
func metricCell(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return v
}

func formatCSV(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// sheetName sanitizes a stratum value into a legal sheet name.
func sheetName(stratum string) string {
	name := stratum
	for _, bad := range []string{"/", "\\", "?", "*", "[", "]", ":"} {
		name = strings.ReplaceAll(name, bad, "_")
	}
	if len(name) > 31 {
		name = name[:31]
	}
	if name == "" {
		name = "Results"
	}
	return name
}

package ingest

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"pvsignal/domain/signal"
	"pvsignal/internal/errors"
)

// Expected column names of a harmonized record table. Harmonization across
// historical report-format variants happens upstream; this reader does no
// column-name sniffing.
const (
	ColCaseID     = "caseid"
	ColDrug       = "drug"
	ColEvent      = "event"
	ColReportDate = "report_dt"
)

// Report date layouts accepted by the reader: FAERS-style compact dates and
// ISO dates.
var dateLayouts = []string{"20060102", "2006-01-02"}

// Row is one record row together with its report date, which exists only to
// drive follow-up deduplication and is not part of the analysis record.
type Row struct {
	Record     signal.Record
	ReportDate time.Time // zero when the table carries no usable date
}

// Records strips the ingestion envelope, returning the bare record set.
func Records(rows []Row) []signal.Record {
	records := make([]signal.Record, len(rows))
	for i, row := range rows {
		records[i] = row.Record
	}
	return records
}

// Reader loads a harmonized record table from a CSV or XLSX file. Any column
// beyond caseid/drug/event/report_dt is kept as a record attribute, which is
// where stratification inputs such as age and sex arrive.
type Reader struct {
	filePath string
	fileType string // "xlsx" or "csv"
}

// NewReader creates a reader for the given file, picking the format from the
// file extension.
func NewReader(filePath string) *Reader {
	fileType := "xlsx"
	if strings.ToLower(filepath.Ext(filePath)) == ".csv" {
		fileType = "csv"
	}
	return &Reader{filePath: filePath, fileType: fileType}
}

// Read loads the table into rows. The first row must be the header.
func (r *Reader) Read() ([]Row, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, errors.Newf(errors.CodeIngest, "record file not found: %s", r.filePath)
	}

	var raw [][]string
	var err error
	switch r.fileType {
	case "csv":
		raw, err = r.readCSV()
	default:
		raw, err = r.readXLSX()
	}
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errors.New(errors.CodeIngest, "record table has no header row")
	}

	return r.buildRows(raw[0], raw[1:]), nil
}

func (r *Reader) readCSV() ([][]string, error) {
	f, err := os.Open(r.filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open CSV file %s", r.filePath)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // tolerate ragged rows, missing cells become ""
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse CSV file %s", r.filePath)
	}
	return rows, nil
}

func (r *Reader) readXLSX() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open XLSX file %s", r.filePath)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New(errors.CodeIngest, "XLSX file has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read sheet %s", sheets[0])
	}
	return rows, nil
}

func (r *Reader) buildRows(header []string, data [][]string) []Row {
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = strings.ToLower(strings.TrimSpace(h))
	}

	rows := make([]Row, 0, len(data))
	for _, cells := range data {
		var row Row
		for i, col := range cols {
			value := ""
			if i < len(cells) {
				value = strings.TrimSpace(cells[i])
			}
			switch col {
			case ColCaseID:
				row.Record.CaseID = value
			case ColDrug:
				row.Record.Drug = value
			case ColEvent:
				row.Record.Event = value
			case ColReportDate:
				row.ReportDate = parseReportDate(value)
			case "":
				// unnamed column, ignore
			default:
				if value != "" {
					if row.Record.Attrs == nil {
						row.Record.Attrs = make(map[string]string)
					}
					row.Record.Attrs[col] = value
				}
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func parseReportDate(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

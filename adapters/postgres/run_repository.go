package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"pvsignal/domain/core"
	"pvsignal/domain/signal"
	"pvsignal/internal/analysis"
	"pvsignal/internal/errors"
)

// Connect opens a postgres connection pool and verifies it.
func Connect(ctx context.Context, url string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", url)
	if err != nil {
		return nil, errors.WithCode(err, errors.CodeStorage, "failed to open database")
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, errors.WithCode(err, errors.CodeStorage, "failed to ping database")
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS analysis_runs (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	drugs JSONB NOT NULL,
	events JSONB NOT NULL,
	stratify_attr TEXT NOT NULL DEFAULT '',
	min_count INT NOT NULL,
	min_drug_reports INT NOT NULL,
	record_count INT NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS analysis_results (
	run_id TEXT NOT NULL REFERENCES analysis_runs(id) ON DELETE CASCADE,
	position INT NOT NULL,
	drug TEXT NOT NULL,
	event TEXT NOT NULL,
	a INT NOT NULL,
	b INT NOT NULL,
	c INT NOT NULL,
	d INT NOT NULL,
	ror DOUBLE PRECISION,
	ror_ci_low DOUBLE PRECISION,
	ror_ci_high DOUBLE PRECISION,
	prr DOUBLE PRECISION,
	chi2 DOUBLE PRECISION,
	p_value DOUBLE PRECISION,
	is_signal BOOLEAN NOT NULL,
	stratum TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, position)
);
`

// RunRepository persists analysis runs and their result tables. NaN metric
// values map to SQL NULL on write and back to NaN on read; result row order
// is preserved through an explicit position column.
type RunRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *sqlx.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Migrate creates the repository's tables when missing.
func (r *RunRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return errors.WithCode(err, errors.CodeStorage, "failed to migrate run tables")
	}
	return nil
}

// Create inserts a run and all of its result rows in one transaction.
func (r *RunRepository) Create(ctx context.Context, run analysis.Run) error {
	drugsJSON, err := json.Marshal(run.Drugs)
	if err != nil {
		return errors.Wrap(err, "failed to marshal drug list")
	}
	eventsJSON, err := json.Marshal(run.Events)
	if err != nil {
		return errors.Wrap(err, "failed to marshal event list")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.WithCode(err, errors.CodeStorage, "failed to begin transaction")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO analysis_runs (
		id, kind, drugs, events, stratify_attr, min_count, min_drug_reports,
		record_count, started_at, finished_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		run.ID.String(), string(run.Kind), drugsJSON, eventsJSON, run.StratifyAttr,
		run.MinCount, run.MinDrugReports, run.RecordCount,
		run.StartedAt.Time(), run.FinishedAt.Time(),
	)
	if err != nil {
		return errors.WithCode(err, errors.CodeStorage, "failed to insert run")
	}

	stmt, err := tx.PreparexContext(ctx, `INSERT INTO analysis_results (
		run_id, position, drug, event, a, b, c, d,
		ror, ror_ci_low, ror_ci_high, prr, chi2, p_value, is_signal, stratum
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`)
	if err != nil {
		return errors.WithCode(err, errors.CodeStorage, "failed to prepare result insert")
	}
	defer stmt.Close()

	for i, row := range run.Results {
		_, err := stmt.ExecContext(ctx,
			run.ID.String(), i, row.Drug, row.Event, row.A, row.B, row.C, row.D,
			nullFloat(row.ROR), nullFloat(row.RORCILow), nullFloat(row.RORCIHigh),
			nullFloat(row.PRR), nullFloat(row.Chi2), nullFloat(row.PValue),
			row.IsSignal, row.Stratum,
		)
		if err != nil {
			return errors.Wrapf(err, "failed to insert result row %d", i)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.WithCode(err, errors.CodeStorage, "failed to commit run")
	}
	return nil
}

// GetByID loads a run and its full result table.
func (r *RunRepository) GetByID(ctx context.Context, id core.RunID) (*analysis.Run, error) {
	var rec struct {
		ID             string    `db:"id"`
		Kind           string    `db:"kind"`
		Drugs          []byte    `db:"drugs"`
		Events         []byte    `db:"events"`
		StratifyAttr   string    `db:"stratify_attr"`
		MinCount       int       `db:"min_count"`
		MinDrugReports int       `db:"min_drug_reports"`
		RecordCount    int       `db:"record_count"`
		StartedAt      sql.NullTime `db:"started_at"`
		FinishedAt     sql.NullTime `db:"finished_at"`
	}

	err := r.db.GetContext(ctx, &rec,
		`SELECT id, kind, drugs, events, stratify_attr, min_count, min_drug_reports,
			record_count, started_at, finished_at
		 FROM analysis_runs WHERE id = $1`, id.String())
	if err == sql.ErrNoRows {
		return nil, errors.Newf(errors.CodeStorage, "run not found: %s", id)
	}
	if err != nil {
		return nil, errors.WithCode(err, errors.CodeStorage, "failed to load run")
	}

	run := analysis.Run{
		ID:             core.RunID(rec.ID),
		Kind:           analysis.RunKind(rec.Kind),
		StratifyAttr:   rec.StratifyAttr,
		MinCount:       rec.MinCount,
		MinDrugReports: rec.MinDrugReports,
		RecordCount:    rec.RecordCount,
		StartedAt:      core.NewTimestamp(rec.StartedAt.Time),
		FinishedAt:     core.NewTimestamp(rec.FinishedAt.Time),
	}
	if err := json.Unmarshal(rec.Drugs, &run.Drugs); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal drug list")
	}
	if err := json.Unmarshal(rec.Events, &run.Events); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal event list")
	}

	results, err := r.loadResults(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Results = results

	return &run, nil
}

func (r *RunRepository) loadResults(ctx context.Context, id core.RunID) (signal.ResultTable, error) {
	rows, err := r.db.QueryxContext(ctx,
		`SELECT drug, event, a, b, c, d, ror, ror_ci_low, ror_ci_high,
			prr, chi2, p_value, is_signal, stratum
		 FROM analysis_results WHERE run_id = $1 ORDER BY position`, id.String())
	if err != nil {
		return nil, errors.WithCode(err, errors.CodeStorage, "failed to load results")
	}
	defer rows.Close()

	var table signal.ResultTable
	for rows.Next() {
		var row signal.MetricResult
		var ror, ciLow, ciHigh, prr, chi2, pValue sql.NullFloat64
		err := rows.Scan(&row.Drug, &row.Event, &row.A, &row.B, &row.C, &row.D,
			&ror, &ciLow, &ciHigh, &prr, &chi2, &pValue, &row.IsSignal, &row.Stratum)
		if err != nil {
			return nil, errors.WithCode(err, errors.CodeStorage, "failed to scan result row")
		}
		row.ROR = floatOrNaN(ror)
		row.RORCILow = floatOrNaN(ciLow)
		row.RORCIHigh = floatOrNaN(ciHigh)
		row.PRR = floatOrNaN(prr)
		row.Chi2 = floatOrNaN(chi2)
		row.PValue = floatOrNaN(pValue)
		table = append(table, row)
	}
	return table, rows.Err()
}

// RunSummary is one row of the run listing.
type RunSummary struct {
	ID          string `db:"id" json:"id"`
	Kind        string `db:"kind" json:"kind"`
	RecordCount int    `db:"record_count" json:"record_count"`
	ResultCount int    `db:"result_count" json:"result_count"`
	StartedAt   sql.NullTime `db:"started_at" json:"started_at"`
}

// List returns recent runs, newest first.
func (r *RunRepository) List(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []RunSummary
	err := r.db.SelectContext(ctx, &out,
		`SELECT r.id, r.kind, r.record_count, r.started_at,
			(SELECT COUNT(*) FROM analysis_results res WHERE res.run_id = r.id) AS result_count
		 FROM analysis_runs r ORDER BY r.started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, errors.WithCode(err, errors.CodeStorage, "failed to list runs")
	}
	return out, nil
}

// nullFloat converts NaN and Inf metric values to SQL NULL.
func nullFloat(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

// floatOrNaN restores the NaN sentinel from SQL NULL.
func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

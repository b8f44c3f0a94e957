package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"pvsignal/adapters/categories"
	"pvsignal/adapters/excel"
	"pvsignal/adapters/ingest"
	"pvsignal/adapters/postgres"
	"pvsignal/adapters/report"
	"pvsignal/domain/core"
	"pvsignal/domain/signal"
	"pvsignal/internal"
	"pvsignal/internal/analysis"
	"pvsignal/internal/config"
)

var logger = internal.DefaultLogger

func main() {
	// .env is optional; environment variables win either way
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "pvsignal",
		Short: "Disproportionality signal detection over spontaneous adverse-event reports",
	}

	rootCmd.AddCommand(
		newAnalyzeCmd(),
		newStratifiedCmd(),
		newServeCmd(),
		newRunsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// datasetFlags are shared by the analyze and stratified commands.
type datasetFlags struct {
	recordsFile  string
	categoryFile string
	drugs        []string
	events       []string
	noDedupe     bool
}

func (f *datasetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.recordsFile, "records", "", "harmonized record table (.csv or .xlsx)")
	cmd.Flags().StringVar(&f.categoryFile, "categories", "", "adverse-event category mapping (.yaml); when set, record events are mapped from preferred terms to categories")
	cmd.Flags().StringSliceVar(&f.drugs, "drugs", nil, "drug identifiers to test")
	cmd.Flags().StringSliceVar(&f.events, "events", nil, "event identifiers to test (defaults to the mapping's analysis categories)")
	cmd.Flags().BoolVar(&f.noDedupe, "no-dedupe", false, "skip follow-up deduplication by case ID")
}

// loadDataset runs the ingestion pipeline: read, dedupe follow-ups, derive
// demographics, map event terms to categories.
func (f *datasetFlags) loadDataset(cfg *config.Config) ([]signal.Record, []string, error) {
	recordsFile := f.recordsFile
	if recordsFile == "" {
		recordsFile = cfg.Paths.RecordsFile
	}
	if recordsFile == "" {
		return nil, nil, fmt.Errorf("no record table: pass --records or set RECORDS_FILE")
	}

	rows, err := ingest.NewReader(recordsFile).Read()
	if err != nil {
		return nil, nil, err
	}
	logger.Info("loaded %d rows from %s", len(rows), recordsFile)

	if !f.noDedupe {
		before := len(rows)
		rows = ingest.Dedupe(rows)
		logger.Info("deduplicated follow-ups: %d -> %d rows", before, len(rows))
	}

	records := ingest.Enrich(ingest.Records(rows))

	events := f.events
	categoryFile := f.categoryFile
	if categoryFile == "" {
		categoryFile = cfg.Paths.CategoryFile
	}
	if categoryFile != "" {
		mappingCfg, err := categories.LoadConfig(categoryFile)
		if err != nil {
			return nil, nil, err
		}
		mapper, err := categories.NewMapper(mappingCfg)
		if err != nil {
			return nil, nil, err
		}
		records = mapper.MapRecords(records)
		if len(events) == 0 {
			events = mapper.AnalysisCategories(mappingCfg)
		}
	}

	return records, events, nil
}

func newAnalyzeCmd() *cobra.Command {
	var ds datasetFlags
	var out outputFlags
	var minCount, minDrugReports, workers int

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run whole-population disproportionality analysis",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			records, events, err := ds.loadDataset(cfg)
			if err != nil {
				return err
			}
			if len(ds.drugs) == 0 || len(events) == 0 {
				return fmt.Errorf("both --drugs and --events (or a category mapping) are required")
			}

			// flags win over MIN_COUNT / MIN_DRUG_REPORTS / ANALYSIS_WORKERS
			opts := analysis.Options{
				MinCount:       cfg.Analysis.MinCount,
				MinDrugReports: cfg.Analysis.MinDrugReports,
				Workers:        cfg.Analysis.Workers,
			}
			if cmd.Flags().Changed("min-count") {
				opts.MinCount = minCount
			}
			if cmd.Flags().Changed("min-drug-reports") {
				opts.MinDrugReports = minDrugReports
			}
			if cmd.Flags().Changed("workers") {
				opts.Workers = workers
			}
			startedAt := core.Now()
			table, err := analysis.NewAnalyzer(opts).Run(cmd.Context(), records, ds.drugs, events)
			if err != nil {
				return err
			}

			run := analysis.NewRun(analysis.RunGlobal, opts, ds.drugs, events, "", len(records), startedAt, table)
			return out.emit(cmd.Context(), cfg, run)
		},
	}

	ds.register(cmd)
	out.register(cmd)
	cmd.Flags().IntVar(&minCount, "min-count", 5, "minimum drug-event co-occurrences per pair")
	cmd.Flags().IntVar(&minDrugReports, "min-drug-reports", 10, "minimum total reports per drug")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent drug workers (0 = one per CPU)")
	return cmd
}

func newStratifiedCmd() *cobra.Command {
	var ds datasetFlags
	var out outputFlags
	var stratifyAttr string
	var minCount, minDrugReports, workers int

	cmd := &cobra.Command{
		Use:   "stratified",
		Short: "Run disproportionality analysis per stratum of a record attribute",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			records, events, err := ds.loadDataset(cfg)
			if err != nil {
				return err
			}
			if len(ds.drugs) == 0 || len(events) == 0 {
				return fmt.Errorf("both --drugs and --events (or a category mapping) are required")
			}

			opts := analysis.Options{MinCount: minCount, MinDrugReports: minDrugReports, Workers: workers}
			startedAt := core.Now()
			table, err := analysis.NewStratifiedAnalyzer(opts).Run(cmd.Context(), records, ds.drugs, events, stratifyAttr)
			if err != nil {
				return err
			}

			run := analysis.NewRun(analysis.RunStratified, opts, ds.drugs, events, stratifyAttr, len(records), startedAt, table)
			return out.emit(cmd.Context(), cfg, run)
		},
	}

	ds.register(cmd)
	out.register(cmd)
	cmd.Flags().StringVar(&stratifyAttr, "by", ingest.AttrAgeGroup, "stratification attribute")
	cmd.Flags().IntVar(&minCount, "min-count", 3, "minimum drug-event co-occurrences per pair")
	cmd.Flags().IntVar(&minDrugReports, "min-drug-reports", 5, "minimum total reports per drug")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent drug workers (0 = one per CPU)")
	return cmd
}

func newServeCmd() *cobra.Command {
	var ds datasetFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analyzer over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveAPI(cmd.Context(), &ds)
		},
	}
	ds.register(cmd)
	return cmd
}

func newRunsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List persisted analysis runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return fmt.Errorf("DATABASE_URL is not set")
			}

			db, err := postgres.Connect(cmd.Context(), cfg.Database.URL)
			if err != nil {
				return err
			}
			defer db.Close()

			runs, err := postgres.NewRunRepository(db).List(cmd.Context(), 50)
			if err != nil {
				return err
			}
			for _, r := range runs {
				fmt.Printf("%s  %-10s  %d records  %d rows  %s\n",
					r.ID, r.Kind, r.RecordCount, r.ResultCount, r.StartedAt.Time.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

// outputFlags selects where a finished run goes: workbook, CSV, markdown
// report, stdout summary, and optionally the database.
type outputFlags struct {
	xlsxPath   string
	csvPath    string
	reportPath string
	save       bool
}

func (f *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.xlsxPath, "out-xlsx", "", "write the result table to this XLSX workbook")
	cmd.Flags().StringVar(&f.csvPath, "out-csv", "", "write the result table to this CSV file")
	cmd.Flags().StringVar(&f.reportPath, "out-report", "", "write a markdown report to this file")
	cmd.Flags().BoolVar(&f.save, "save", false, "persist the run to the database")
}

func (f *outputFlags) emit(ctx context.Context, cfg *config.Config, run analysis.Run) error {
	s := run.Summary()
	logger.Info("run %s: %d pairs, %d signals", run.ID, s.Pairs, s.Signals)

	writer := excel.NewWriter()
	if f.xlsxPath != "" {
		if err := ensureDir(f.xlsxPath); err != nil {
			return err
		}
		if err := writer.WriteWorkbook(run.Results, f.xlsxPath); err != nil {
			return err
		}
		logger.Info("wrote workbook %s", f.xlsxPath)
	}
	if f.csvPath != "" {
		if err := ensureDir(f.csvPath); err != nil {
			return err
		}
		if err := writer.WriteCSV(run.Results, f.csvPath); err != nil {
			return err
		}
		logger.Info("wrote CSV %s", f.csvPath)
	}
	if f.reportPath != "" {
		if err := ensureDir(f.reportPath); err != nil {
			return err
		}
		md := report.NewRenderer().Markdown(run)
		if err := os.WriteFile(f.reportPath, []byte(md), 0o644); err != nil {
			return err
		}
		logger.Info("wrote report %s", f.reportPath)
	}

	if f.save {
		if cfg.Database.URL == "" {
			return fmt.Errorf("--save requires DATABASE_URL")
		}
		db, err := postgres.Connect(ctx, cfg.Database.URL)
		if err != nil {
			return err
		}
		defer db.Close()

		repo := postgres.NewRunRepository(db)
		if err := repo.Migrate(ctx); err != nil {
			return err
		}
		if err := repo.Create(ctx, run); err != nil {
			return err
		}
		logger.Info("persisted run %s", run.ID)
	}

	// Default visibility when nothing else was requested
	if f.xlsxPath == "" && f.csvPath == "" && f.reportPath == "" {
		fmt.Print(report.NewRenderer().Markdown(run))
	}
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"pvsignal/adapters/categories"
	"pvsignal/adapters/ingest"
	"pvsignal/adapters/postgres"
	"pvsignal/domain/signal"
	"pvsignal/internal"
	"pvsignal/internal/config"
	"pvsignal/ui"
)

// Environment-driven server binary. Everything comes from the config layer:
// RECORDS_FILE, CATEGORY_FILE, DATABASE_URL, PORT.
func main() {
	_ = godotenv.Load()
	log := internal.DefaultLogger

	cfg, err := config.Load()
	if err != nil {
		log.Error("config: %v", err)
		os.Exit(1)
	}
	if cfg.Paths.RecordsFile == "" {
		log.Error("RECORDS_FILE is required")
		os.Exit(1)
	}

	records, err := loadRecords(cfg)
	if err != nil {
		log.Error("ingest: %v", err)
		os.Exit(1)
	}
	log.Info("loaded %d records from %s", len(records), cfg.Paths.RecordsFile)

	ctx := context.Background()
	var repo *postgres.RunRepository
	if cfg.Database.URL != "" {
		db, err := postgres.Connect(ctx, cfg.Database.URL)
		if err != nil {
			log.Error("database: %v", err)
			os.Exit(1)
		}
		defer db.Close()

		repo = postgres.NewRunRepository(db)
		if err := repo.Migrate(ctx); err != nil {
			log.Error("migrate: %v", err)
			os.Exit(1)
		}
	} else {
		log.Warn("DATABASE_URL not set, run persistence disabled")
	}

	if err := ui.NewServer(records, repo).ListenAndServe(cfg.Server.Port); err != nil {
		log.Error("server: %v", err)
		os.Exit(1)
	}
}

func loadRecords(cfg *config.Config) ([]signal.Record, error) {
	rows, err := ingest.NewReader(cfg.Paths.RecordsFile).Read()
	if err != nil {
		return nil, err
	}
	rows = ingest.Dedupe(rows)
	records := ingest.Enrich(ingest.Records(rows))

	if cfg.Paths.CategoryFile != "" {
		mappingCfg, err := categories.LoadConfig(cfg.Paths.CategoryFile)
		if err != nil {
			return nil, err
		}
		mapper, err := categories.NewMapper(mappingCfg)
		if err != nil {
			return nil, err
		}
		records = mapper.MapRecords(records)
	}
	return records, nil
}

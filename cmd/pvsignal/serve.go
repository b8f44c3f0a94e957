package main

import (
	"context"

	"pvsignal/adapters/postgres"
	"pvsignal/internal/config"
	"pvsignal/ui"
)

// serveAPI loads the dataset once and serves the analyzer over HTTP.
// The database is optional; without it the run endpoints answer 503.
func serveAPI(ctx context.Context, ds *datasetFlags) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	records, _, err := ds.loadDataset(cfg)
	if err != nil {
		return err
	}

	var repo *postgres.RunRepository
	if cfg.Database.URL != "" {
		db, err := postgres.Connect(ctx, cfg.Database.URL)
		if err != nil {
			return err
		}
		defer db.Close()

		repo = postgres.NewRunRepository(db)
		if err := repo.Migrate(ctx); err != nil {
			return err
		}
	} else {
		logger.Warn("DATABASE_URL not set, run persistence disabled")
	}

	return ui.NewServer(records, repo).ListenAndServe(cfg.Server.Port)
}

package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/docs-extractor/constants"
	"github.com/joseph-ayodele/docs-extractor/internal/common"
	"github.com/joseph-ayodele/docs-extractor/internal/repository"
	"github.com/joseph-ayodele/docs-extractor/internal/results"
)

// ConnectStore opens the configured result store. The memory driver needs no
// database; sqlite and postgres write every change through and reload on start.
func ConnectStore(ctx context.Context, cfg common.StoreConfig, logger *slog.Logger) (*results.Store, *repository.DB, error) {
	if cfg.Driver == "" || cfg.Driver == "memory" {
		logger.Info("store.memory")
		return results.NewStore(logger), nil, nil
	}

	logger.Info("connecting to database", "driver", cfg.Driver)
	db, err := repository.Open(ctx, repository.Config{
		Driver:           cfg.Driver,
		DSN:              cfg.DSN,
		MaxConns:         cfg.MaxConns,
		MinConns:         cfg.MinConns,
		MaxConnLifetime:  cfg.MaxConnLifetime,
		MaxConnIdleTime:  cfg.MaxConnIdleTime,
		DialTimeout:      cfg.DialTimeout,
		StatementTimeout: cfg.StatementTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close(logger)
		return nil, nil, err
	}

	repo := repository.NewResultRepository(db, logger)
	existing, err := repo.List(ctx)
	if err != nil {
		db.Close(logger)
		return nil, nil, err
	}
	store := results.NewStore(logger, results.WithPersister(repo))
	store.Load(existing)

	// Load moved interrupted results back to pending; write that through.
	reset := 0
	for _, r := range existing {
		if r.Status != constants.StatusProcessing {
			continue
		}
		cur, err := store.Get(r.ID)
		if err != nil {
			continue
		}
		if err := repo.Save(ctx, cur); err != nil {
			logger.Warn("store.reset.persist_failed", "id", r.ID, "error", err)
			continue
		}
		reset++
	}
	logger.Info("successfully connected to database", "results", len(existing), "reset_to_pending", reset)
	return store, db, nil
}

// PingDB pings the database to ensure it's responsive
func PingDB(ctx context.Context, db *repository.DB, logger *slog.Logger, timeout time.Duration) error {
	if db == nil {
		return nil
	}
	logger.Debug("pinging database")
	if err := db.HealthCheck(ctx, timeout); err != nil {
		logger.Error("database ping failed", "error", err)
		return err
	}
	logger.Debug("database ping successful")
	return nil
}

// CloseDB closes the database connections gracefully
func CloseDB(db *repository.DB, logger *slog.Logger) {
	if db == nil {
		return
	}
	db.Close(logger)
	logger.Info("database connections closed")
}

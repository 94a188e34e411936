package main

import (
	"context"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"

	"github.com/nutes/frontdesk/internal/config"
	"github.com/nutes/frontdesk/internal/domain/anamnesis"
	"github.com/nutes/frontdesk/internal/domain/cohort"
	"github.com/nutes/frontdesk/internal/platform/cache"
	"github.com/nutes/frontdesk/internal/platform/db"
	"github.com/nutes/frontdesk/internal/platform/store"
	"github.com/nutes/frontdesk/internal/platform/store/mongostore"
	"github.com/nutes/frontdesk/internal/platform/store/pgstore"
)

const applicationName = "frontdesk"

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// loadConfig loads and validates the configuration and builds the logger.
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, newLogger(""), err
	}
	logger := newLogger(cfg.Env)
	if err := cfg.Validate(); err != nil {
		return nil, logger, err
	}
	return cfg, logger, nil
}

// newStore returns the process-wide record store for the configured driver.
// Nothing is dialled until the first call.
func newStore(cfg *config.Config, logger zerolog.Logger) *store.Lazy {
	var open store.Opener
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		open = func(ctx context.Context) (store.Store, error) {
			pool, err := db.NewPool(ctx, db.PoolOptions{
				URL:             cfg.DatabaseURL,
				MaxConns:        cfg.DBMaxConns,
				MinConns:        cfg.DBMinConns,
				ApplicationName: applicationName,
			})
			if err != nil {
				return nil, err
			}
			logger.Info().Msg("connected to postgres")
			return pgstore.New(pool), nil
		}
	case config.DriverMemory:
		open = func(context.Context) (store.Store, error) {
			logger.Warn().Msg("using in-memory record store; data is lost on exit")
			return store.NewMemory(), nil
		}
	default:
		open = func(ctx context.Context) (store.Store, error) {
			s, err := mongostore.Open(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
			if err != nil {
				return nil, err
			}
			return s, nil
		}
	}
	return store.NewLazy(open)
}

// newSnapshots returns the dashboard cache, or nil when caching is off.
func newSnapshots(cfg *config.Config, logger zerolog.Logger) (*cache.Snapshots, error) {
	if !cfg.CacheEnabled() {
		return nil, nil
	}
	client, err := cache.NewRedisClient(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return cache.NewSnapshots(cache.NewRedisKVStore(client), cfg.DashboardCacheTTL, logger), nil
}

// dashboards builds both dashboard services over one store.
func dashboards(cfg *config.Config, records store.Store) (*anamnesis.Service, *cohort.Service, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}
	return anamnesis.NewService(records, loc), cohort.NewService(records, cfg.MinimumWage), nil
}

func closeStore(s store.Store, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Close(ctx); err != nil {
		logger.Error().Err(err).Msg("closing record store")
	}
}

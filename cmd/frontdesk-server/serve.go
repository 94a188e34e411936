package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nutes/frontdesk/internal/config"
	"github.com/nutes/frontdesk/internal/domain/anamnesis"
	"github.com/nutes/frontdesk/internal/domain/cohort"
	"github.com/nutes/frontdesk/internal/domain/intake"
	"github.com/nutes/frontdesk/internal/platform/cache"
	"github.com/nutes/frontdesk/internal/platform/clinic"
	"github.com/nutes/frontdesk/internal/platform/events"
	"github.com/nutes/frontdesk/internal/platform/middleware"
	"github.com/nutes/frontdesk/internal/platform/store"
)

const version = "0.1.0"

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// deps are the collaborators the HTTP surface needs.
type deps struct {
	records   store.Store
	snapshots *cache.Snapshots
	clinic    intake.Clinic
	publisher events.Publisher
}

func newServer(cfg *config.Config, d deps, logger zerolog.Logger) (*echo.Echo, error) {
	anamnesisSvc, cohortSvc, err := dashboards(cfg, d.records)
	if err != nil {
		return nil, err
	}
	loc, _ := cfg.Location()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost},
		AllowHeaders:  []string{"Content-Type", "X-Request-ID"},
		ExposeHeaders: []string{echo.HeaderContentDisposition, "X-Request-ID"},
	}))
	e.Use(echomw.BodyLimit("1M"))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/store", store.HealthHandler(cfg.StoreDriver, d.records))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	anamnesis.NewHandler(anamnesisSvc, d.snapshots, logger).RegisterRoutes(apiV1)
	cohort.NewHandler(cohortSvc, d.snapshots, logger).RegisterRoutes(apiV1)
	intakeSvc := intake.NewService(d.records, d.clinic, d.publisher, loc, logger)
	intake.NewHandler(intakeSvc, logger).RegisterRoutes(apiV1)

	return e, nil
}

func newClinic(cfg *config.Config, logger zerolog.Logger) intake.Clinic {
	if cfg.ClinicAPIURL == "" {
		logger.Warn().Msg("CLINIC_API_URL not set; intake will not reach the clinic system")
		return nil
	}
	return clinic.New(clinic.Options{
		BaseURL: cfg.ClinicAPIURL,
		Token:   cfg.ClinicAPIToken,
		Timeout: cfg.ClinicAPITimeout,
	}, logger)
}

func newPublisher(cfg *config.Config) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		return events.Nop{}
	}
	return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaIntakeTopic)
}

func runServer() error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	records := newStore(cfg, logger)
	defer closeStore(records, logger)

	snapshots, err := newSnapshots(cfg, logger)
	if err != nil {
		return err
	}
	publisher := newPublisher(cfg)
	defer publisher.Close()

	e, err := newServer(cfg, deps{
		records:   records,
		snapshots: snapshots,
		clinic:    newClinic(cfg, logger),
		publisher: publisher,
	}, logger)
	if err != nil {
		return err
	}

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("store", cfg.StoreDriver).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/application"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/config"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/infra/api"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/infra/api/apiv1"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/infra/logging"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/infra/metrics"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (in-memory store, log-only mail)")
	migrate := flag.Bool("migrate", false, "apply pending migrations on startup")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Metrics ----
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Wiring ----
	var opts []application.Option
	if *migrate {
		opts = append(opts, application.WithMigrations())
	}
	c, err := application.Build(ctx, cfg, logger, opts...)
	if err != nil {
		logger.Fatal().Err(err).Msg("build application")
	}
	defer c.Close()

	// ---- HTTP ----
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", metrics.Handler())
	apiv1.RegisterAPIV1(r, apiv1.NewServer(apiv1.Deps{
		Issuance:          c.Issuance,
		Redemption:        c.Redemption,
		Admin:             c.Admin,
		QR:                c.QR,
		Clock:             c.Clock,
		DefaultExpireDays: cfg.Codes.DefaultExpireDays,
	}, logger), api.BearerKey(cfg.HTTP.APIKey))

	server := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler: api.Chain(r,
			api.TraceID(),
			api.Recover(logger),
			api.RequestLog(logger),
			api.Timeout(cfg.HTTP.RequestTimeout),
		),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			stop()
		}
	}()

	// ---- Workers ----
	var wg sync.WaitGroup
	for _, run := range c.Workers() {
		wg.Add(1)
		go func(run func(context.Context) error) {
			defer wg.Done()
			if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("worker stopped")
			}
		}(run)
	}

	// ---- Graceful shutdown ----
	<-ctx.Done()
	logger.Info().Msg("shutdown requested")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	wg.Wait()
}

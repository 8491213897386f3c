package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/otienodev/kodi/internal/config"
	"github.com/otienodev/kodi/internal/database"
	kodiHttp "github.com/otienodev/kodi/internal/http"
	billingHandler "github.com/otienodev/kodi/internal/http/billing"
	mpesaHandler "github.com/otienodev/kodi/internal/http/mpesa"
	tenantHandler "github.com/otienodev/kodi/internal/http/tenant"
	"github.com/otienodev/kodi/internal/ledger"
	ledgerStore "github.com/otienodev/kodi/internal/ledger/store"
	"github.com/otienodev/kodi/internal/metrics"
	"github.com/otienodev/kodi/internal/schedule"
	"github.com/otienodev/kodi/internal/tenant"
	tenantStore "github.com/otienodev/kodi/internal/tenant/store"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	loc, err := time.LoadLocation(cfg.Billing.Timezone)
	if err != nil {
		return fmt.Errorf("failed to load billing timezone %q: %w", cfg.Billing.Timezone, err)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	var (
		m              *metrics.Metrics
		metricsHandler http.Handler
		recorder       ledger.Recorder
	)
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		m = metrics.New(reg)
		recorder = m
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	tenants := tenantStore.New(db)

	var (
		tenantService = tenant.NewService(tenants)
		ledgerService = ledger.NewService(ledgerStore.New(db), tenants, ledger.Config{
			Timezone: loc,
			DueDay:   cfg.Billing.DueDay,
		}, recorder)
	)

	var (
		tenantH  = tenantHandler.NewHandler(tenantService)
		billingH = billingHandler.NewHandler(ledgerService)
		mpesaH   = mpesaHandler.NewHandler(ledgerService, tenantService, m, loc)
	)

	router := kodiHttp.New(cfg.Server.CORSOrigins, tenantH, billingH, mpesaH, metricsHandler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		slog.Info("starting server", "addr", server.Addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen and serve: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.Timeout)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})

	if cfg.Schedule.Enabled {
		scheduler, err := schedule.New(cfg.Schedule.Cron, cfg.Schedule.Timeout, func(ctx context.Context) {
			res, err := ledgerService.GenerateMonthly(ctx)
			if err != nil {
				slog.Error("scheduled generation failed", "error", err)
				return
			}
			slog.Info("scheduled generation complete",
				"month", res.Month,
				"generated", res.Generated,
				"skipped", res.Skipped,
				"failed", res.Failed,
				"overdue", res.Overdue,
			)
		})
		if err != nil {
			return fmt.Errorf("failed to build schedule: %w", err)
		}

		group.Go(func() error {
			scheduler.Start()
			slog.Info("scheduler started", "cron", cfg.Schedule.Cron)

			<-ctx.Done()
			scheduler.Stop()
			return nil
		})
	}

	return group.Wait()
}

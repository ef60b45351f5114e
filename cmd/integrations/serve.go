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

	integrations "github.com/goliatone/go-integrations"
	"github.com/goliatone/go-integrations/adapters/gocommand"
	"github.com/goliatone/go-integrations/adapters/gojob"
	"github.com/goliatone/go-integrations/adapters/gologger"
	promrecorder "github.com/goliatone/go-integrations/adapters/prometheus"
	"github.com/goliatone/go-integrations/httpapi"
	"github.com/goliatone/go-integrations/settings"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(envFiles *[]string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := settings.Load(*envFiles...)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg settings.Settings) error {
	logger := gologger.NewJSON(os.Stderr, cfg.LogLevel)
	loggers := gologger.NewProvider(logger)

	providers, err := cfg.Providers()
	if err != nil {
		return err
	}
	if len(providers) == 0 {
		logger.Warn("no providers configured; set client id and secret for hubspot, airtable or notion")
	}

	handle, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Driver(), err)
	}
	defer func() {
		if err := handle.close(); err != nil {
			logger.Error("close store failed", "error", err)
		}
	}()

	opts := []integrations.Option{
		integrations.WithLoggerProvider(loggers),
		integrations.WithConfigLoader(cfg.RawLoader()),
		integrations.WithMetricsRecorder(promrecorder.NewRecorder(prometheus.DefaultRegisterer,
			promrecorder.WithErrorHandler(func(err error) {
				logger.Warn("metrics registration failed", "error", err)
			}),
		)),
		integrations.WithProviders(providers...),
	}
	if handle.store != nil {
		opts = append(opts, integrations.WithEphemeralStore(handle.store))
	}
	service, err := integrations.New(cfg.ServiceConfig(), opts...)
	if err != nil {
		return err
	}
	facade, err := integrations.NewFacade(service)
	if err != nil {
		return err
	}

	registry := gocommand.NewRegistryAdapter(nil)
	subscriptions, err := gocommand.RegisterFacade(registry, facade)
	if err != nil {
		return err
	}
	defer func() {
		for _, subscription := range subscriptions {
			subscription.Unsubscribe()
		}
	}()
	if err := registry.Initialize(); err != nil {
		return err
	}

	api, err := httpapi.New(facade,
		httpapi.WithLogger(loggers.GetLogger("http")),
		httpapi.WithCORSOrigins(cfg.CORSOrigins...),
		httpapi.WithMetricsHandler(promhttp.Handler()),
	)
	if err != nil {
		return err
	}

	if handle.purger != nil {
		startPurge(ctx, handle.purger, loggers.GetLogger("purge"))
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("integrations listening",
			"addr", cfg.HTTPAddr,
			"store", cfg.Driver(),
			"providers", service.Providers(),
		)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// startPurge schedules expired-row purges through a go-job queue: the
// scheduler enqueues one message per window and the worker runs it.
func startPurge(ctx context.Context, purger gojob.Purger, logger glog.Logger) {
	q := gojob.NewMemoryQueue(0)
	scheduler := gojob.NewScheduler(q, gojob.WithSchedulerLogger(logger))
	w := gojob.NewPurgeWorker(q, purger, gojob.WithWorkerLogger(logger))
	go scheduler.Run(ctx)
	go func() {
		if err := w.Run(ctx); err != nil {
			logger.Error("purge worker stopped", "error", err)
		}
	}()
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"itinerary/internal/api"
	"itinerary/internal/buildinfo"
	"itinerary/internal/config"
	"itinerary/internal/events"
	"itinerary/internal/logging"
	"itinerary/internal/metrics"
	"itinerary/internal/watch"
	"itinerary/internal/webhooks"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "itinerary-api",
	Short:         "Serve store search, itinerary planning and intent parsing over HTTP",
	Version:       buildinfo.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context())
	},
}

func main() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config (missing file means defaults)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := config.ApplyEnv(cfg, os.LookupEnv); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	metrics.RegisterDefault()

	srv, err := api.NewServer(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to init server: %w", err)
	}
	defer func() { _ = srv.Close() }()

	// a feed that cannot be ingested at startup is fatal
	res, err := srv.Reloader.Bootstrap(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	logger.Info("catalog ready",
		zap.String("source", res.Catalog.Source),
		zap.Int("stores", res.Catalog.Size),
		zap.String("version", res.Catalog.Version))

	if cfg.Catalog.Watch {
		fw, err := watch.New(cfg.Catalog.Feed, cfg.WatchDebounce(), func(ctx context.Context) error {
			_, err := srv.Reloader.ReloadFile(ctx)
			return err
		}, logger.Named("watch"))
		if err != nil {
			return err
		}
		if err := fw.Start(ctx); err != nil {
			return fmt.Errorf("watch %s: %w", cfg.Catalog.Feed, err)
		}
		defer fw.Stop()
	}

	if len(cfg.Webhooks.Targets) > 0 {
		targets := make([]webhooks.Target, len(cfg.Webhooks.Targets))
		for i, t := range cfg.Webhooks.Targets {
			targets[i] = webhooks.Target{URL: t.URL, Secret: t.Secret}
		}
		worker := webhooks.NewWorker(targets, cfg.Webhooks.MaxAttempts, logger.Named("webhooks"))
		ch := srv.Broker.Subscribe(events.TopicCatalog)
		defer srv.Broker.Unsubscribe(events.TopicCatalog, ch)
		go worker.Run(ctx, ch)
	}

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		// requests outlive the signal so Shutdown can drain them
		BaseContext: func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	httpSrv.RegisterOnShutdown(srv.StopStreams)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("API listening", zap.String("addr", cfg.Addr()), zap.String("version", buildinfo.Version))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

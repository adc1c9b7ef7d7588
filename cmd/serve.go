package main

import (
	"context"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	transit "github.com/lodzlive/transit"
	"github.com/lodzlive/transit/api"
	"github.com/lodzlive/transit/config"
	"github.com/lodzlive/transit/metrics"
	"github.com/lodzlive/transit/static"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Polls the feeds and serves the live dataset over HTTP",
	Args:  cobra.NoArgs,
	RunE:  serve,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	stops, err := static.LoadStops(cfg.Static.StopsPath)
	if err != nil {
		return err
	}
	class, err := static.NewClassification()
	if err != nil {
		return err
	}

	if err := transit.EnsureStateFile(cfg.Static.DisabledLinesPath); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := metrics.NewCollector()
	store := transit.NewStore()
	poller := &transit.Poller{
		VehiclePositionsURL: cfg.Feeds.VehiclePositionsURL,
		TripUpdatesURL:      cfg.Feeds.TripUpdatesURL,
		AlertsURL:           cfg.Feeds.AlertsURL,
		Interval:            cfg.Poll.Interval.Std(),
		Fetcher: &transit.HTTPFetcher{
			Timeout: cfg.Poll.FetchTimeout.Std(),
			MaxSize: cfg.Poll.FeedMaxSize,
		},
		Store:          store,
		Stops:          stops,
		Classification: class,
		Logger:         logger,
		Metrics:        collector,
	}

	// The disabled-lines state is re-read on its own cadence so edits
	// land without a restart.
	var disabledMu sync.RWMutex
	disabled := transit.LoadDisabledLines(cfg.Static.DisabledLinesPath, logger)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		poller.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(cfg.Poll.AdvisoryInterval.Std())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fresh := transit.LoadDisabledLines(cfg.Static.DisabledLinesPath, logger)
				disabledMu.Lock()
				disabled = fresh
				disabledMu.Unlock()
			}
		}
	}()

	srv := api.NewServer(store, func() map[string]bool {
		disabledMu.RLock()
		defer disabledMu.RUnlock()
		return disabled
	}, logger, api.WithMetricsHandler(collector.Handler()))

	httpServer := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: srv.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", "addr", cfg.Server.ListenAddr)
	err = httpServer.ListenAndServe()
	stop()
	wg.Wait()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

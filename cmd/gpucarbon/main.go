package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/gpucarbon/internal/api"
	"codeberg.org/mutker/gpucarbon/internal/carbon"
	"codeberg.org/mutker/gpucarbon/internal/config"
	"codeberg.org/mutker/gpucarbon/internal/emissions"
	"codeberg.org/mutker/gpucarbon/internal/gpu"
	"codeberg.org/mutker/gpucarbon/internal/history"
	"codeberg.org/mutker/gpucarbon/internal/logger"
	"codeberg.org/mutker/gpucarbon/internal/recorder"
)

const shutdownTimeout = 10 * time.Second

var cfg *config.Config

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.LogLevel, logger.IsService()); err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug().Msg("Config loaded")
}

func main() {
	monitor := gpu.NewMonitor()
	defer func() {
		if err := monitor.Shutdown(); err != nil {
			logger.Error().Err(err).Msg("Failed to shut down GPU monitor")
		}
	}()

	var client *carbon.Client
	if cfg.APIKey != "" {
		client = carbon.NewClient(cfg.APIKey, time.Duration(cfg.FetchTimeout)*time.Second)
	} else {
		logger.Warn().Msg("No Electricity Maps API key configured, using mocked intensity data")
	}
	source := carbon.NewProvider(client, time.Duration(cfg.CacheDuration)*time.Second)

	engine := emissions.NewEngine(cfg.Threshold)
	ring := history.NewRing(cfg.HistorySize)

	recCfg := recorder.DefaultConfig()
	recCfg.Enabled = cfg.Recorder
	if cfg.Database != "" {
		recCfg.DBPath = cfg.Database
	}
	rec, err := recorder.NewService(recCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize telemetry recorder")
	}
	defer func() {
		if err := rec.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close telemetry recorder")
		}
	}()

	apiServer := api.NewServer(monitor, source, engine, ring, rec, carbon.MapRegionCode(cfg.Region))

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	errChan := make(chan error, 1)
	go func() {
		logger.Info().
			Str("listen", cfg.Listen).
			Str("region", cfg.Region).
			Bool("simulated", monitor.IsSimulated()).
			Msg("Starting dashboard backend")
		errChan <- srv.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("HTTP server failed")
		}
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Failed to shut down HTTP server")
		}
	}

	logger.Info().Msg("Exiting...")
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

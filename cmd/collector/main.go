// Command collector runs the demo-cpb16 telemetry pipeline: poll the PLC,
// aggregate readings into working/result records, and write them to
// InfluxDB.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ryo2357/demo-cpb16-collector/internal/aggregator"
	"github.com/ryo2357/demo-cpb16-collector/internal/notify"
	"github.com/ryo2357/demo-cpb16-collector/internal/obslog"
	"github.com/ryo2357/demo-cpb16-collector/internal/poller"
	"github.com/ryo2357/demo-cpb16-collector/internal/runner"
	"github.com/ryo2357/demo-cpb16-collector/internal/sink"
	"github.com/ryo2357/demo-cpb16-collector/pkg/config"
)

func main() {
	logger := obslog.Init()
	logger.Info().Msg("starting demo-cpb16 collector")

	cfg := config.Load(logger, "config.toml")
	obslog.SetLevel(logger, cfg.LogLevel)

	logger.Info().
		Str("plc_address", cfg.PLCAddress).
		Int("window_size", cfg.WindowSize).
		Int("batch_size", cfg.BatchSize).
		Msg("configuration loaded")

	snk := sink.New(cfg.InfluxHost, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket, *logger)
	defer snk.Close()

	notifier, err := notify.Connect(cfg.NATSURL, *logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to nats")
	}
	defer notifier.Close()

	p := poller.New(poller.Config{
		Address:           cfg.PLCAddress,
		IOTimeout:         cfg.IOTimeout,
		MonitorIntervalMS: cfg.MonitorIntervalMS,
		StopIntervalMS:    cfg.StopIntervalMS,
	}, *logger)

	agg := aggregator.New(aggregator.Config{
		WindowSize: cfg.WindowSize,
		BatchSize:  cfg.BatchSize,
	}, *logger)

	run := runner.New(p, agg, snk, notifier, cfg.ReconnectBackoff, *logger)

	metricsServer := &http.Server{Addr: cfg.MetricsAddress, Handler: promhttp.Handler()}
	go func() {
		logger.Info().Str("address", cfg.MetricsAddress).Msg("starting metrics server")
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()

	healthServer := &http.Server{Addr: cfg.HealthAddress, Handler: http.HandlerFunc(healthCheckHandler(run))}
	go func() {
		logger.Info().Str("address", cfg.HealthAddress).Msg("starting health check server")
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("health check server error")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- run.Start(ctx)
	}()

	select {
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
		// Wait for the runner to flush the final partial batch to the sink
		// before the deferred sink Close runs.
		<-errChan
	case err := <-errChan:
		if err != nil {
			logger.Error().Err(err).Msg("runner exited with error")
		}
	}

	logger.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("metrics server shutdown error")
	}
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("health server shutdown error")
	}

	logger.Info().Msg("shutdown complete")
}

func healthCheckHandler(run *runner.Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !run.Healthy() {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, "unhealthy\n")
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "healthy\n")
	}
}

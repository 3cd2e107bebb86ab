// Command dummymaker exercises internal/sink in isolation: it generates
// synthetic Working records (no Result records) on a fixed cadence and writes them
// straight to InfluxDB, independently of the poller and aggregator. It
// exists to verify a sink deployment without a PLC attached.
package main

import (
	"context"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ryo2357/demo-cpb16-collector/internal/obslog"
	"github.com/ryo2357/demo-cpb16-collector/internal/sink"
	"github.com/ryo2357/demo-cpb16-collector/pkg/models"
)

const (
	generateInterval = 50 * time.Millisecond
	batchSize        = 50
)

func main() {
	logger := obslog.Init()
	logger.Info().Msg("starting dummymaker")

	host := requireEnv(*logger, "INFLUXDB_HOST")
	token := requireEnv(*logger, "INFLUXDB_TOKEN")
	org := requireEnv(*logger, "INFLUXDB_ORG")
	bucket := requireEnv(*logger, "INFLUXDB_BUCKET")

	snk := sink.New(host, token, org, bucket, *logger)
	defer snk.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info().Msg("received shutdown signal")
		cancel()
	}()

	runGenerator(ctx, snk, *logger)
	logger.Info().Msg("dummymaker stopped")
}

func runGenerator(ctx context.Context, snk *sink.Sink, logger zerolog.Logger) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	production, defect := 0.0, 0.0

	var batch models.Batch
	ticker := time.NewTicker(generateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if len(batch.Records) > 0 {
				_ = snk.Write(context.Background(), batch)
			}
			return
		case now := <-ticker.C:
			production += walk(rng)
			defect += walk(rng)

			rec := models.Record{
				Kind: models.KindWorking,
				Working: models.WorkingRecord{
					WindowEnd:       now,
					WorkingID:       1,
					WorkSeconds:     int64(generateInterval.Seconds()),
					ProductionDelta: int(production),
					DefectDelta:     int(defect),
				},
			}

			if batch.Add(rec, batchSize) {
				if err := snk.Write(ctx, batch); err != nil {
					logger.Error().Err(err).Msg("dummymaker write failed")
				}
				batch = models.Batch{}
			}
		}
	}
}

func walk(rng *rand.Rand) float64 {
	return float64(rng.Intn(201)-100) / 10.0
}

func requireEnv(logger zerolog.Logger, name string) string {
	v := os.Getenv(name)
	if v == "" {
		logger.Fatal().Str("name", name).Msg("missing required environment variable")
	}
	return v
}

// Package runner is the lifecycle orchestrator: it wires the poller,
// aggregator, and sink together, reconnects the poller on disconnect, and
// drains/flushes the pipeline on shutdown.
package runner

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/ryo2357/demo-cpb16-collector/internal/aggregator"
	"github.com/ryo2357/demo-cpb16-collector/internal/notify"
	"github.com/ryo2357/demo-cpb16-collector/internal/poller"
	"github.com/ryo2357/demo-cpb16-collector/internal/sink"
	"github.com/ryo2357/demo-cpb16-collector/pkg/models"
)

// defaultReconnectBackoff is the fixed delay between a disconnect and the
// next connection attempt when New is given no positive backoff. Retries
// are uncapped — this collector only stops retrying when its context is
// canceled.
const defaultReconnectBackoff = 20 * time.Second

var reconnectsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "demo_cpb16_runner_reconnects_total",
	Help: "Total poller reconnect attempts after a disconnect.",
})

// Runner owns one poller/aggregator/sink pipeline for the life of the
// process.
type Runner struct {
	poller     *poller.Poller
	aggregator *aggregator.Aggregator
	sink       *sink.Sink
	notifier   *notify.Notifier
	backoff    time.Duration
	logger     zerolog.Logger

	mu      sync.RWMutex
	healthy bool
}

// New builds a Runner from its already-constructed dependencies.
func New(p *poller.Poller, agg *aggregator.Aggregator, snk *sink.Sink, notifier *notify.Notifier, backoff time.Duration, logger zerolog.Logger) *Runner {
	if backoff <= 0 {
		backoff = defaultReconnectBackoff
	}
	return &Runner{
		poller:     p,
		aggregator: agg,
		sink:       snk,
		notifier:   notifier,
		backoff:    backoff,
		logger:     logger.With().Str("component", "runner").Logger(),
	}
}

// Start runs the pipeline until ctx is canceled. The aggregator and sink
// are started once and live for the whole call; only the poller is
// restarted across reconnects, so aggregation state (ChunkState) survives
// a PLC disconnect.
func (r *Runner) Start(ctx context.Context) error {
	obsCh := make(chan models.Observation, 32)
	batchCh := r.aggregator.Run(ctx, obsCh)

	sinkDone := make(chan struct{})
	go func() {
		defer close(sinkDone)
		r.runSink(ctx, batchCh)
	}()

	r.setHealthy(true)
	r.notifier.Publish(notify.KindConnected, "collection starting")

	pollErr := r.pollLoop(ctx, obsCh)

	close(obsCh)
	<-sinkDone

	r.setHealthy(false)
	return pollErr
}

// pollLoop runs the poller, reconnecting with a fixed backoff after every
// disconnect, until ctx is canceled.
func (r *Runner) pollLoop(ctx context.Context, obsCh chan<- models.Observation) error {
	disconnectCh := make(chan struct{}, 1)

	for {
		if ctx.Err() != nil {
			return nil
		}

		err := r.poller.Run(ctx, obsCh, disconnectCh)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			// Poller returned without an error and without ctx being
			// canceled: treat as a clean stop request.
			return nil
		}

		reconnectsTotal.Inc()
		r.notifier.Publish(notify.KindDisconnected, err.Error())
		r.logger.Warn().Err(err).Dur("backoff", r.backoff).Msg("plc disconnected, retrying")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(r.backoff):
		}
	}
}

// runSink drains batchCh into the sink until it closes (signaling the
// aggregator has flushed and exited).
func (r *Runner) runSink(ctx context.Context, batchCh <-chan models.Batch) {
	for batch := range batchCh {
		if err := r.sink.Write(context.WithoutCancel(ctx), batch); err != nil {
			r.logger.Error().Err(err).Int("records", len(batch.Records)).Msg("sink write failed")
		}
	}
}

func (r *Runner) setHealthy(healthy bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.healthy = healthy
}

// Healthy reports whether the pipeline is currently running.
func (r *Runner) Healthy() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.healthy && r.sink.Healthy()
}

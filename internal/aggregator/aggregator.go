// Package aggregator folds a stream of PLC observations into Working and
// Result records, batching them for the sink.
package aggregator

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/ryo2357/demo-cpb16-collector/pkg/models"
)

// Config tunes window and batch sizing.
type Config struct {
	WindowSize int
	BatchSize  int
}

var (
	recordsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "demo_cpb16_aggregator_records_total",
		Help: "Total Working and Result records produced.",
	})
	batchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "demo_cpb16_aggregator_batches_total",
		Help: "Total batches flushed to the sink channel.",
	})
)

// Aggregator consumes Observations and produces Batches. It holds no
// network resources, so it is never restarted across poller reconnects —
// the same obs channel keeps feeding it.
type Aggregator struct {
	cfg    Config
	logger zerolog.Logger

	lastStatus models.MachineStatus
	chunk      models.ChunkState
}

// New builds an Aggregator starting from the Stopping state, matching the
// PLC's own power-on default.
func New(cfg Config, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		cfg:        cfg,
		logger:     logger.With().Str("component", "aggregator").Logger(),
		lastStatus: models.StatusStopping,
	}
}

// Run consumes obsCh until it is closed, emitting Batches on the returned
// channel. On obsCh closing or ctx being canceled, any partial batch is
// flushed before the output channel is closed; runner.Start relies on this
// when it closes obsCh at shutdown.
func (a *Aggregator) Run(ctx context.Context, obsCh <-chan models.Observation) <-chan models.Batch {
	out := make(chan models.Batch, 32)

	go func() {
		defer close(out)

		var batch models.Batch
		for {
			select {
			case <-ctx.Done():
				a.flushPartial(&batch, out)
				return
			case obs, ok := <-obsCh:
				if !ok {
					a.flushPartial(&batch, out)
					return
				}
				a.dispatch(obs, &batch, out)
			}
		}
	}()

	return out
}

// dispatch routes obs through the four last-status x incoming-status
// cells, matching the original collector's transition table.
func (a *Aggregator) dispatch(obs models.Observation, batch *models.Batch, out chan<- models.Batch) {
	switch a.lastStatus {
	case models.StatusRunning:
		switch obs.Status {
		case models.StatusRunning:
			a.receiveInRunning(obs, batch, out)
		case models.StatusStopping:
			a.receiveToStopping(obs, batch, out)
		}
	case models.StatusStopping:
		switch obs.Status {
		case models.StatusRunning:
			a.receiveToRunning(obs, batch, out)
		case models.StatusStopping:
			a.receiveInStopping(obs, batch, out)
		}
	}
}

func (a *Aggregator) receiveInRunning(obs models.Observation, batch *models.Batch, out chan<- models.Batch) {
	if rec := pushRunning(&a.chunk, obs, a.cfg.WindowSize); rec != nil {
		a.addRecord(models.Record{Kind: models.KindWorking, Working: *rec}, batch, out)
	}
}

func (a *Aggregator) receiveInStopping(obs models.Observation, batch *models.Batch, out chan<- models.Batch) {
	if rec := pushStopping(&a.chunk, obs, a.cfg.WindowSize); rec != nil {
		a.addRecord(models.Record{Kind: models.KindWorking, Working: *rec}, batch, out)
	}
}

func (a *Aggregator) receiveToStopping(obs models.Observation, batch *models.Batch, out chan<- models.Batch) {
	a.lastStatus = models.StatusStopping
	// No ResultRecord on Running->Stopping: job completion is only
	// recognized on the opposite transition, once the closed job's
	// counters are available in the next Stopping->Running reply.
	a.receiveInStopping(obs, batch, out)
}

func (a *Aggregator) receiveToRunning(obs models.Observation, batch *models.Batch, out chan<- models.Batch) {
	a.lastStatus = models.StatusRunning

	if obs.HasLastJob {
		result := models.ResultRecord{
			JobEndTime:      obs.ReceiveTime,
			WorkingID:       obs.WorkingID,
			ProductionCount: obs.LastJob.LastProductionCount,
			DefectCount:     obs.LastJob.LastDefectCount,
			StartTime:       obs.LastJob.LastStartTime,
			EndTime:         obs.LastJob.LastEndTime,
		}
		a.addRecord(models.Record{Kind: models.KindResult, Result: result}, batch, out)
	} else {
		a.logger.Debug().Msg("transition to running with no prior job data, skipping result record")
	}

	a.chunk.Reset(obs)
	a.receiveInRunning(obs, batch, out)
}

func (a *Aggregator) addRecord(rec models.Record, batch *models.Batch, out chan<- models.Batch) {
	recordsTotal.Inc()
	if batch.Add(rec, a.cfg.BatchSize) {
		a.flush(batch, out)
	}
}

func (a *Aggregator) flush(batch *models.Batch, out chan<- models.Batch) {
	batchesTotal.Inc()
	out <- *batch
	*batch = models.Batch{}
}

func (a *Aggregator) flushPartial(batch *models.Batch, out chan<- models.Batch) {
	if len(batch.Records) > 0 {
		a.flush(batch, out)
	}
}

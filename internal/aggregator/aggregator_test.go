package aggregator

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/ryo2357/demo-cpb16-collector/pkg/models"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func obsAt(t time.Time, status models.MachineStatus, production, defect int) models.Observation {
	return models.Observation{ReceiveTime: t, Status: status, ProductionCount: production, DefectCount: defect, WorkingID: 1}
}

// drain reads every batch sent before ctx is canceled / the channel closes.
func drain(ch <-chan models.Batch) []models.Batch {
	var batches []models.Batch
	for b := range ch {
		batches = append(batches, b)
	}
	return batches
}

func TestAggregator_RunningWindowEmitsWorkingRecord(t *testing.T) {
	agg := New(Config{WindowSize: 3, BatchSize: 10}, testLogger())

	obsCh := make(chan models.Observation)
	ctx, cancel := context.WithCancel(context.Background())
	batchCh := agg.Run(ctx, obsCh)

	base := time.Now()
	obsCh <- obsAt(base, models.StatusRunning, 10, 0)
	obsCh <- obsAt(base.Add(time.Second), models.StatusRunning, 14, 1)
	obsCh <- obsAt(base.Add(2*time.Second), models.StatusRunning, 20, 1)

	close(obsCh)
	batches := drain(batchCh)
	cancel()

	require.Len(t, batches, 1)
	require.Len(t, batches[0].Records, 1)
	rec := batches[0].Records[0]
	require.Equal(t, models.KindWorking, rec.Kind)
	require.True(t, rec.Working.IsWorking)
	// The first obs is a Stopping->Running transition, which resets the
	// chunk's cursors from that same obs (LastProductionCount=10) before
	// the first push — so the window telescopes from 10, not from zero.
	require.Equal(t, 10, rec.Working.ProductionDelta)
	require.Equal(t, 1, rec.Working.DefectDelta)
	require.Equal(t, int64(3), rec.Working.WorkSeconds)
}

func TestAggregator_StoppingToRunning_EmitsResultThenResetsChunk(t *testing.T) {
	agg := New(Config{WindowSize: 100, BatchSize: 10}, testLogger())
	obsCh := make(chan models.Observation)
	ctx, cancel := context.WithCancel(context.Background())
	batchCh := agg.Run(ctx, obsCh)

	base := time.Now()
	start := base.Add(-2 * time.Hour)
	end := base.Add(-1 * time.Hour)

	transition := obsAt(base, models.StatusRunning, 5, 0)
	transition.HasLastJob = true
	transition.LastJob = models.LastJob{
		LastProductionCount: 42,
		LastDefectCount:     3,
		LastStartTime:       start,
		LastEndTime:         end,
	}

	obsCh <- transition
	close(obsCh)
	batches := drain(batchCh)
	cancel()

	require.Len(t, batches, 1)
	require.Len(t, batches[0].Records, 1)
	rec := batches[0].Records[0]
	require.Equal(t, models.KindResult, rec.Kind)
	require.Equal(t, 42, rec.Result.ProductionCount)
	require.Equal(t, 3, rec.Result.DefectCount)
	require.Equal(t, start, rec.Result.StartTime)
	require.Equal(t, end, rec.Result.EndTime)
}

func TestAggregator_StoppingToRunning_NoPriorJobSkipsResultRecord(t *testing.T) {
	agg := New(Config{WindowSize: 1, BatchSize: 10}, testLogger())
	obsCh := make(chan models.Observation)
	ctx, cancel := context.WithCancel(context.Background())
	batchCh := agg.Run(ctx, obsCh)

	obsCh <- obsAt(time.Now(), models.StatusRunning, 0, 0)
	close(obsCh)
	batches := drain(batchCh)
	cancel()

	require.Len(t, batches, 1)
	require.Len(t, batches[0].Records, 1)
	require.Equal(t, models.KindWorking, batches[0].Records[0].Kind)
}

func TestAggregator_StoppingWindow_EmitsWorkingRecordWithIsWorkingFalse(t *testing.T) {
	agg := New(Config{WindowSize: 1, BatchSize: 10}, testLogger())
	obsCh := make(chan models.Observation)
	ctx, cancel := context.WithCancel(context.Background())
	batchCh := agg.Run(ctx, obsCh)

	obsCh <- obsAt(time.Now(), models.StatusStopping, 0, 0)
	close(obsCh)
	batches := drain(batchCh)
	cancel()

	require.Len(t, batches, 1)
	require.Len(t, batches[0].Records, 1)
	rec := batches[0].Records[0]
	require.Equal(t, models.KindWorking, rec.Kind)
	require.False(t, rec.Working.IsWorking)
}

func TestAggregator_RunningToStopping_EmitsNoResultRecord(t *testing.T) {
	agg := New(Config{WindowSize: 100, BatchSize: 10}, testLogger())
	obsCh := make(chan models.Observation)
	ctx, cancel := context.WithCancel(context.Background())
	batchCh := agg.Run(ctx, obsCh)

	base := time.Now()
	obsCh <- obsAt(base, models.StatusRunning, 0, 0)
	obsCh <- obsAt(base.Add(time.Second), models.StatusStopping, 0, 0)
	close(obsCh)
	batches := drain(batchCh)
	cancel()

	for _, b := range batches {
		for _, rec := range b.Records {
			require.NotEqual(t, models.KindResult, rec.Kind, "no ResultRecord should be emitted on Running->Stopping")
		}
	}
}

func TestAggregator_FlushesPartialBatchOnChannelClose(t *testing.T) {
	agg := New(Config{WindowSize: 1, BatchSize: 6}, testLogger())
	obsCh := make(chan models.Observation)
	ctx, cancel := context.WithCancel(context.Background())
	batchCh := agg.Run(ctx, obsCh)

	obsCh <- obsAt(time.Now(), models.StatusStopping, 0, 0)
	obsCh <- obsAt(time.Now(), models.StatusStopping, 0, 0)
	close(obsCh)

	batches := drain(batchCh)
	cancel()

	require.Len(t, batches, 1)
	require.Len(t, batches[0].Records, 2, "a partial batch below BatchSize must still flush at shutdown")
}

func TestAggregator_BatchFlushesExactlyAtBatchSize(t *testing.T) {
	agg := New(Config{WindowSize: 1, BatchSize: 2}, testLogger())
	obsCh := make(chan models.Observation)
	ctx, cancel := context.WithCancel(context.Background())
	batchCh := agg.Run(ctx, obsCh)

	base := time.Now()
	for i := 0; i < 4; i++ {
		obsCh <- obsAt(base.Add(time.Duration(i)*time.Second), models.StatusStopping, 0, 0)
	}
	close(obsCh)

	batches := drain(batchCh)
	cancel()

	require.Len(t, batches, 2)
	require.Len(t, batches[0].Records, 2)
	require.Len(t, batches[1].Records, 2)
}

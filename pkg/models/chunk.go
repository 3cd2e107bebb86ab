package models

import "time"

// ChunkState tracks the aggregation engine's running window: how many
// observations it has folded in since the last flush, how many seconds the
// window covers (one per observation, running or stopping), and the
// production/defect cursors
// used to compute per-window deltas.
type ChunkState struct {
	Count                  int
	WorkSecondsAccumulated int64
	ProductionDelta        int
	DefectDelta            int
	LastProductionCount    int
	LastDefectCount        int
}

// Reset reseeds the cursors from obs and clears the accumulators. Called on
// every window-size boundary and on every Stopping->Running transition.
func (c *ChunkState) Reset(obs Observation) {
	c.Count = 0
	c.WorkSecondsAccumulated = 0
	c.ProductionDelta = 0
	c.DefectDelta = 0
	c.LastProductionCount = obs.ProductionCount
	c.LastDefectCount = obs.DefectCount
}

// WorkedSeconds computes the integer number of whole seconds between start
// and end, matching the original collector's truncating division.
func WorkedSeconds(start, end time.Time) int64 {
	return (end.UnixNano() - start.UnixNano()) / 1_000_000_000
}

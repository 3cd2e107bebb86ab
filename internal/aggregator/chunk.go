package aggregator

import "github.com/ryo2357/demo-cpb16-collector/pkg/models"

// pushRunning folds one running-state observation into chunk, returning a
// WorkingRecord when the window has reached windowSize observations.
func pushRunning(chunk *models.ChunkState, obs models.Observation, windowSize int) *models.WorkingRecord {
	chunk.Count++
	chunk.WorkSecondsAccumulated++
	chunk.ProductionDelta += obs.ProductionCount - chunk.LastProductionCount
	chunk.DefectDelta += obs.DefectCount - chunk.LastDefectCount
	chunk.LastProductionCount = obs.ProductionCount
	chunk.LastDefectCount = obs.DefectCount

	if chunk.Count < windowSize {
		return nil
	}
	rec := finishWindow(chunk, obs)
	return &rec
}

// pushStopping folds one stopping-state observation into chunk. Production
// and defect counters are flat while stopped, so only the window count and
// elapsed seconds advance.
func pushStopping(chunk *models.ChunkState, obs models.Observation, windowSize int) *models.WorkingRecord {
	chunk.Count++
	chunk.WorkSecondsAccumulated++

	if chunk.Count < windowSize {
		return nil
	}
	rec := finishWindow(chunk, obs)
	return &rec
}

func finishWindow(chunk *models.ChunkState, obs models.Observation) models.WorkingRecord {
	rec := models.WorkingRecord{
		WindowEnd:       obs.ReceiveTime,
		WorkingID:       obs.WorkingID,
		IsWorking:       obs.Status == models.StatusRunning,
		WorkSeconds:     chunk.WorkSecondsAccumulated,
		ProductionDelta: chunk.ProductionDelta,
		DefectDelta:     chunk.DefectDelta,
	}
	chunk.Reset(obs)
	return rec
}

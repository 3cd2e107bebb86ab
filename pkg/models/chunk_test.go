package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestChunkState_Reset(t *testing.T) {
	c := ChunkState{Count: 5, WorkSecondsAccumulated: 5, ProductionDelta: 10, DefectDelta: 2,
		LastProductionCount: 100, LastDefectCount: 3}

	obs := Observation{ProductionCount: 150, DefectCount: 7}
	c.Reset(obs)

	require.Equal(t, 0, c.Count)
	require.Equal(t, int64(0), c.WorkSecondsAccumulated)
	require.Equal(t, 0, c.ProductionDelta)
	require.Equal(t, 0, c.DefectDelta)
	require.Equal(t, 150, c.LastProductionCount)
	require.Equal(t, 7, c.LastDefectCount)
}

func TestWorkedSeconds_TruncatingDivision(t *testing.T) {
	start := time.Unix(1000, 0)
	end := start.Add(90*time.Second + 500*time.Millisecond)

	require.Equal(t, int64(90), WorkedSeconds(start, end))
}

func TestBatch_AddFlushesAtSize(t *testing.T) {
	var b Batch
	require.False(t, b.Add(Record{Kind: KindWorking}, 2))
	require.True(t, b.Add(Record{Kind: KindWorking}, 2))
	require.Len(t, b.Records, 2)
}

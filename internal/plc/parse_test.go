package plc

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ryo2357/demo-cpb16-collector/pkg/models"
)

// Every DM register field is a fixed-width 5-digit string; 25 fields plus
// 24 single-space separators gives the exact 149-byte reply length.
func buildReply(status, workingID, production, defect, lastProduction, lastDefect string,
	currentStart, prevStart, prevEnd [6]string, pastData string) string {
	fields := []string{status, workingID, production, defect, lastProduction, lastDefect}
	fields = append(fields, currentStart[:]...)
	fields = append(fields, prevStart[:]...)
	fields = append(fields, prevEnd[:]...)
	fields = append(fields, pastData)
	return strings.Join(fields, " ")
}

func TestDecodeStatus(t *testing.T) {
	require.Equal(t, models.StatusRunning, decodeStatus("00001"))
	require.Equal(t, models.StatusStopping, decodeStatus("00000"))
	require.Equal(t, models.StatusStopping, decodeStatus("99999"))
}

func TestParseObservation_FullRunningReply(t *testing.T) {
	start := [6]string{"00024", "00003", "00015", "00008", "00000", "00000"}
	prevStart := [6]string{"00024", "00003", "00014", "00008", "00000", "00000"}
	prevEnd := [6]string{"00024", "00003", "00014", "00017", "00030", "00000"}

	payload := buildReply("00001", "00007", "00123", "00004", "00099", "00002",
		start, prevStart, prevEnd, "00001")
	require.Len(t, payload, responseLength)

	snap, err := newSnapshot(time.Now(), payload)
	require.NoError(t, err)

	obs, err := ParseObservation(snap)
	require.NoError(t, err)

	require.Equal(t, models.StatusRunning, obs.Status)
	require.Equal(t, 7, obs.WorkingID)
	require.Equal(t, 123, obs.ProductionCount)
	require.Equal(t, 4, obs.DefectCount)
	require.True(t, obs.HasStartTime)
	require.Equal(t, 2024, obs.StartTime.Year())
	require.Equal(t, time.March, obs.StartTime.Month())
	require.Equal(t, 15, obs.StartTime.Day())
	require.Equal(t, 8, obs.StartTime.Hour())

	require.True(t, obs.HasLastJob)
	require.Equal(t, 99, obs.LastJob.LastProductionCount)
	require.Equal(t, 2, obs.LastJob.LastDefectCount)
	require.Equal(t, 14, obs.LastJob.LastStartTime.Day())
	require.Equal(t, 17, obs.LastJob.LastEndTime.Hour())
}

func TestParseObservation_StoppingNoPastData(t *testing.T) {
	zero := [6]string{"00000", "00000", "00000", "00000", "00000", "00000"}
	payload := buildReply("00000", "00001", "00000", "00000", "00000", "00000",
		zero, zero, zero, "00000")
	require.Len(t, payload, responseLength)

	snap, err := newSnapshot(time.Now(), payload)
	require.NoError(t, err)

	obs, err := ParseObservation(snap)
	require.NoError(t, err)

	require.Equal(t, models.StatusStopping, obs.Status)
	require.False(t, obs.HasStartTime)
	require.False(t, obs.HasLastJob)
}

func TestNewSnapshot_RejectsWrongLength(t *testing.T) {
	_, err := newSnapshot(time.Now(), "too short")
	require.Error(t, err)
}

func TestParseObservation_RejectsWrongFieldCount(t *testing.T) {
	// Right length, wrong shape: no spaces at all, so it splits into one field.
	payload := strings.Repeat("0", responseLength)
	snap, err := newSnapshot(time.Now(), payload)
	require.NoError(t, err)

	_, err = ParseObservation(snap)
	require.Error(t, err)
}

func TestParseObservation_RejectsInvalidCivilTime(t *testing.T) {
	// Month 13 doesn't exist; time.Date would otherwise silently roll it
	// into next January rather than reporting a parse error.
	badStart := [6]string{"00024", "00013", "00015", "00008", "00000", "00000"}
	zero := [6]string{"00000", "00000", "00000", "00000", "00000", "00000"}
	payload := buildReply("00001", "00007", "00123", "00004", "00000", "00000",
		badStart, zero, zero, "00000")
	require.Len(t, payload, responseLength)

	snap, err := newSnapshot(time.Now(), payload)
	require.NoError(t, err)

	_, err = ParseObservation(snap)
	require.Error(t, err)
}

package plc

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ryo2357/demo-cpb16-collector/pkg/models"
)

// Snapshot is a length-validated monitor-readout reply, tagged with the
// instant it arrived. ParseObservation turns it into a models.Observation.
type Snapshot struct {
	ReceiveTime time.Time
	Payload     string
}

// newSnapshot validates payload's length before wrapping it, matching the
// original collector's length check ahead of any field parsing.
func newSnapshot(receiveTime time.Time, payload string) (Snapshot, error) {
	if len(payload) != responseLength {
		return Snapshot{}, fmt.Errorf("plc: reply length %d, want %d: %q", len(payload), responseLength, payload)
	}
	return Snapshot{ReceiveTime: receiveTime, Payload: payload}, nil
}

// ParseObservation decodes a Snapshot's 25 space-separated fields into an
// Observation, following the exact DM10..DM44 field layout the monitor-set
// command registered.
func ParseObservation(snap Snapshot) (models.Observation, error) {
	fields := strings.Split(snap.Payload, " ")
	if len(fields) != dataLength {
		return models.Observation{}, fmt.Errorf("plc: reply has %d fields, want %d", len(fields), dataLength)
	}

	status := decodeStatus(fields[0])

	workingID, err := atoi(fields[1])
	if err != nil {
		return models.Observation{}, fmt.Errorf("plc: working id: %w", err)
	}
	productionCount, err := atoi(fields[2])
	if err != nil {
		return models.Observation{}, fmt.Errorf("plc: production count: %w", err)
	}
	defectCount, err := atoi(fields[3])
	if err != nil {
		return models.Observation{}, fmt.Errorf("plc: defect count: %w", err)
	}

	obs := models.Observation{
		ReceiveTime:     snap.ReceiveTime,
		Status:          status,
		WorkingID:       workingID,
		ProductionCount: productionCount,
		DefectCount:     defectCount,
	}

	if status == models.StatusRunning {
		start, err := parseDatetime(fields[6:12])
		if err != nil {
			return models.Observation{}, fmt.Errorf("plc: start time: %w", err)
		}
		obs.StartTime = start
		obs.HasStartTime = true
	}

	if fields[24] == "00001" {
		lastProduction, err := atoi(fields[4])
		if err != nil {
			return models.Observation{}, fmt.Errorf("plc: last production count: %w", err)
		}
		lastDefect, err := atoi(fields[5])
		if err != nil {
			return models.Observation{}, fmt.Errorf("plc: last defect count: %w", err)
		}
		lastStart, err := parseDatetime(fields[12:18])
		if err != nil {
			return models.Observation{}, fmt.Errorf("plc: last start time: %w", err)
		}
		lastEnd, err := parseDatetime(fields[18:24])
		if err != nil {
			return models.Observation{}, fmt.Errorf("plc: last end time: %w", err)
		}
		obs.HasLastJob = true
		obs.LastJob = models.LastJob{
			LastProductionCount: lastProduction,
			LastDefectCount:     lastDefect,
			LastStartTime:       lastStart,
			LastEndTime:         lastEnd,
		}
	}

	return obs, nil
}

// decodeStatus follows the original collector's fallback-to-Stopping
// behavior on any reply other than the two recognized values.
func decodeStatus(field string) models.MachineStatus {
	if field == "00001" {
		return models.StatusRunning
	}
	return models.StatusStopping
}

// parseDatetime assembles a local time from six numeric fields in
// year/month/day/hour/minute/second order. The PLC's year field is an
// offset from 2000.
func parseDatetime(fields []string) (time.Time, error) {
	year, err := atoi(fields[0])
	if err != nil {
		return time.Time{}, err
	}
	month, err := atoi(fields[1])
	if err != nil {
		return time.Time{}, err
	}
	day, err := atoi(fields[2])
	if err != nil {
		return time.Time{}, err
	}
	hour, err := atoi(fields[3])
	if err != nil {
		return time.Time{}, err
	}
	minute, err := atoi(fields[4])
	if err != nil {
		return time.Time{}, err
	}
	second, err := atoi(fields[5])
	if err != nil {
		return time.Time{}, err
	}

	t := time.Date(year+2000, time.Month(month), day, hour, minute, second, 0, time.Local)
	// time.Date normalizes out-of-range components instead of rejecting
	// them (month 13 rolls into next January, day 32 into next month); a
	// corrupted-but-numeric reply must be a parse error, not a silently
	// shifted date, so reject anything that didn't round-trip.
	if t.Year() != year+2000 || int(t.Month()) != month || t.Day() != day ||
		t.Hour() != hour || t.Minute() != minute || t.Second() != second {
		return time.Time{}, fmt.Errorf("plc: invalid civil time %d-%02d-%02d %02d:%02d:%02d", year+2000, month, day, hour, minute, second)
	}
	return t, nil
}

func formatClockFields(year, month, day, hour, minute, second, weekday int) string {
	return fmt.Sprintf("%02d %02d %02d %02d %02d %02d %d", year%100, month, day, hour, minute, second, weekday)
}

func atoi(s string) (int, error) {
	return strconv.Atoi(s)
}

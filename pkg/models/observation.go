// Package models holds the plain data types shared across the collector:
// the parsed PLC reading, the aggregated work records, and the batch the
// sink writes. Beyond a few small helpers (MachineStatus.String,
// ChunkState.Reset, Batch.Add, WorkedSeconds) these types carry no
// behavior — translation to and from wire formats lives in the packages
// that own those wires (internal/plc, internal/sink).
package models

import "time"

// MachineStatus is the coarse operating state reported by the PLC.
type MachineStatus int

const (
	StatusStopping MachineStatus = iota
	StatusRunning
)

func (s MachineStatus) String() string {
	if s == StatusRunning {
		return "running"
	}
	return "stopping"
}

// LastJob carries the previous job's closing counters and timestamps, as
// reported alongside the current job's live counters in a PLC reply whose
// past-data flag is set (see Observation.HasLastJob).
type LastJob struct {
	LastProductionCount int
	LastDefectCount     int
	LastStartTime       time.Time
	LastEndTime          time.Time
}

// Observation is one parsed PLC monitor-readout reply.
type Observation struct {
	ReceiveTime      time.Time
	Status           MachineStatus
	WorkingID        int
	ProductionCount  int
	DefectCount      int
	StartTime        time.Time // zero value when the machine has not started a job
	HasStartTime     bool
	LastJob          LastJob
	HasLastJob       bool
}

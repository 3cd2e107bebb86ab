package models

import "time"

// WorkingRecord summarizes one completed aggregation window: whether the
// machine was running at its end (IsWorking), how many seconds it covers,
// and how much production and defect count accrued over that window.
type WorkingRecord struct {
	WindowEnd       time.Time
	WorkingID       int
	IsWorking       bool
	WorkSeconds     int64
	ProductionDelta int
	DefectDelta     int
}

// ResultRecord summarizes a completed job, emitted when the machine
// transitions from Stopping to Running (never the reverse — see
// DESIGN.md's Open Question decisions).
type ResultRecord struct {
	JobEndTime      time.Time
	WorkingID       int
	ProductionCount int
	DefectCount     int
	StartTime       time.Time
	EndTime         time.Time
}

// Kind distinguishes the two record shapes a Batch carries.
type Kind int

const (
	KindWorking Kind = iota
	KindResult
)

// Record is a tagged union of WorkingRecord and ResultRecord; exactly one
// of Working or Result is populated, selected by Kind.
type Record struct {
	Kind    Kind
	Working WorkingRecord
	Result  ResultRecord
}

// Batch is a bounded group of records flushed to the sink together, either
// because it reached BatchSize or because the pipeline is shutting down.
type Batch struct {
	Records []Record
}

// Add appends a record, returning true when the batch has reached size and
// should be flushed.
func (b *Batch) Add(r Record, size int) bool {
	b.Records = append(b.Records, r)
	return len(b.Records) >= size
}

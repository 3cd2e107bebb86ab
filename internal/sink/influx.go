// Package sink writes aggregated Batches to InfluxDB, the collector's
// time-series backend.
package sink

import (
	"context"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"

	"github.com/ryo2357/demo-cpb16-collector/pkg/models"
)

const measurement = "demo_cpb16"

// Sink writes Batches to an InfluxDB bucket using the blocking write API —
// a write error is logged, not retried, matching the teacher's
// log-and-swallow publish idiom.
type Sink struct {
	client influxdb2.Client
	write  api.WriteAPIBlocking
	logger zerolog.Logger
	closed bool
}

// New connects to InfluxDB at host and returns a Sink that writes into
// org/bucket. It does not verify connectivity; the first write surfaces any
// connection error.
func New(host, token, org, bucket string, logger zerolog.Logger) *Sink {
	client := influxdb2.NewClient(host, token)
	return &Sink{
		client: client,
		write:  client.WriteAPIBlocking(org, bucket),
		logger: logger.With().Str("component", "sink").Logger(),
	}
}

// Write converts batch into line-protocol points and writes them, tagged
// info_type=working or info_type=result per record kind, timestamped per
// record. The first write error is returned after every point in the
// batch has been attempted, matching the "log and continue, never retry"
// error policy.
func (s *Sink) Write(ctx context.Context, batch models.Batch) error {
	var firstErr error
	for _, rec := range batch.Records {
		p := toPoint(rec)
		if err := s.write.WritePoint(ctx, p); err != nil {
			s.logger.Error().Err(err).Str("kind", kindName(rec.Kind)).Msg("failed to write point")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// toPoint converts one Record into an InfluxDB point, following the field
// layout the original collector wrote: working_id/working_second/
// production/defect for Working records, working_id/start_time/end_time/
// worked_second/production_count/defect_count for Result records.
func toPoint(rec models.Record) *write.Point {
	switch rec.Kind {
	case models.KindWorking:
		w := rec.Working
		return influxdb2.NewPoint(measurement,
			map[string]string{"info_type": "working"},
			map[string]interface{}{
				"is_working":     w.IsWorking,
				"working_id":     w.WorkingID,
				"working_second": w.WorkSeconds,
				"production":     int64(w.ProductionDelta),
				"defect":         int64(w.DefectDelta),
			},
			w.WindowEnd,
		)
	default:
		r := rec.Result
		return influxdb2.NewPoint(measurement,
			map[string]string{"info_type": "result"},
			map[string]interface{}{
				"is_working":       true,
				"working_id":       r.WorkingID,
				"start_time":       r.StartTime.UnixNano(),
				"end_time":         r.EndTime.UnixNano(),
				"worked_second":    models.WorkedSeconds(r.StartTime, r.EndTime),
				"production_count": int64(r.ProductionCount),
				"defect_count":     int64(r.DefectCount),
			},
			r.JobEndTime,
		)
	}
}

func kindName(k models.Kind) string {
	if k == models.KindWorking {
		return "working"
	}
	return "result"
}

// Healthy reports whether Close has not yet been called. InfluxDB's
// blocking client has no persistent connection to probe.
func (s *Sink) Healthy() bool {
	return !s.closed
}

// Close releases the underlying HTTP client.
func (s *Sink) Close() {
	s.closed = true
	s.client.Close()
}

// Package poller owns the PLC TCP session and the adaptive polling loop:
// one Observation per tick, at a cadence that depends on the machine's
// last reported status.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/ryo2357/demo-cpb16-collector/internal/plc"
	"github.com/ryo2357/demo-cpb16-collector/pkg/models"
)

// Config configures the poller for the lifetime of the process. Run may be
// called again after it returns to reconnect with a fresh session; the
// Poller value (and its metrics) persist across reconnects.
type Config struct {
	Address           string
	IOTimeout         time.Duration
	MonitorIntervalMS int
	StopIntervalMS    int
}

var (
	currentIntervalMS = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "demo_cpb16_poller_interval_ms",
		Help: "Current polling interval in milliseconds.",
	})
	machineRunningGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "demo_cpb16_poller_machine_running",
		Help: "1 when the poller's last observation reported the machine running, 0 otherwise.",
	})
	pollErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "demo_cpb16_poller_errors_total",
		Help: "Total I/O or parse errors encountered while polling.",
	})
	ticksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "demo_cpb16_poller_ticks_total",
		Help: "Total snapshots successfully read and forwarded.",
	})
)

// Poller drives a single PLC connection: it dials, registers the monitor
// set, then loops reading snapshots at an interval that adapts to the
// machine's reported status.
type Poller struct {
	cfg    Config
	logger zerolog.Logger

	mu            sync.RWMutex
	currentStatus models.MachineStatus
	connected     bool
}

// New builds a Poller.
func New(cfg Config, logger zerolog.Logger) *Poller {
	return &Poller{
		cfg:           cfg,
		logger:        logger.With().Str("component", "poller").Logger(),
		currentStatus: models.StatusStopping,
	}
}

// Run dials the PLC and polls until ctx is canceled (the stop-signal path)
// or a read fails (the disconnect path, signaled on disconnectCh). A read
// failure is an I/O error or timeout, or a reply of the wrong length; a
// reply of the right length whose fields fail to parse is logged and
// dropped, and polling continues. Run always returns promptly after
// signaling either path;
// it never blocks retrying on its own — that is internal/runner's job.
func (p *Poller) Run(ctx context.Context, obsCh chan<- models.Observation, disconnectCh chan<- struct{}) error {
	session, err := plc.Dial(p.cfg.Address, p.cfg.IOTimeout)
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to connect to plc")
		return err
	}
	defer session.Close()

	p.setConnected(true)
	defer p.setConnected(false)

	interval := time.Duration(p.cfg.StopIntervalMS) * time.Millisecond
	currentIntervalMS.Set(float64(interval.Milliseconds()))

	nextTick := time.Now()

	for {
		now := time.Now()
		var wait time.Duration
		if nextTick.After(now) {
			wait = nextTick.Sub(now)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}

		snap, err := session.ReadSnapshot()
		if err != nil {
			pollErrorsTotal.Inc()
			p.logger.Warn().Err(err).Msg("poll failed, disconnecting")
			select {
			case disconnectCh <- struct{}{}:
			default:
			}
			return err
		}

		obs, err := p.parseSnapshot(snap)
		if err != nil {
			pollErrorsTotal.Inc()
			p.logger.Warn().Err(err).Msg("dropping unparseable snapshot")
			newInterval := p.intervalFor(p.Status())
			if newInterval != interval {
				interval = newInterval
				currentIntervalMS.Set(float64(interval.Milliseconds()))
			}
			if now.After(nextTick) {
				nextTick = time.Now().Add(interval)
			} else {
				nextTick = nextTick.Add(interval)
			}
			continue
		}

		ticksTotal.Inc()

		select {
		case obsCh <- obs:
		case <-ctx.Done():
			return nil
		}

		newInterval := p.intervalFor(obs.Status)
		if newInterval != interval {
			interval = newInterval
			currentIntervalMS.Set(float64(interval.Milliseconds()))
		}

		// A miss (the tick already elapsed) recomputes the next tick from
		// now rather than accumulating drift across stalls.
		if now.After(nextTick) {
			nextTick = time.Now().Add(interval)
		} else {
			nextTick = nextTick.Add(interval)
		}
	}
}

func (p *Poller) parseSnapshot(snap plc.Snapshot) (models.Observation, error) {
	obs, err := plc.ParseObservation(snap)
	if err != nil {
		return models.Observation{}, err
	}

	p.mu.Lock()
	p.currentStatus = obs.Status
	p.mu.Unlock()
	if obs.Status == models.StatusRunning {
		machineRunningGauge.Set(1)
	} else {
		machineRunningGauge.Set(0)
	}

	return obs, nil
}

func (p *Poller) intervalFor(status models.MachineStatus) time.Duration {
	if status == models.StatusRunning {
		return time.Duration(p.cfg.MonitorIntervalMS) * time.Millisecond
	}
	return time.Duration(p.cfg.StopIntervalMS) * time.Millisecond
}

func (p *Poller) setConnected(connected bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = connected
}

// Healthy reports whether the poller currently holds an open session.
func (p *Poller) Healthy() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected
}

// Status returns the machine status from the most recently read snapshot.
func (p *Poller) Status() models.MachineStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.currentStatus
}

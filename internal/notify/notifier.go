// Package notify publishes lifecycle events (connect, disconnect, fatal)
// over NATS core pub/sub, strictly for observability — it never carries
// Observation or Batch data.
package notify

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

const subject = "demo_cpb16.lifecycle"

// Event is one lifecycle transition, published as a JSON-encoded NATS
// message.
type Event struct {
	Kind   string    `json:"kind"`
	Time   time.Time `json:"time"`
	Detail string    `json:"detail,omitempty"`
}

const (
	KindConnected    = "connected"
	KindDisconnected = "disconnected"
	KindFatal        = "fatal"
)

// Notifier wraps a NATS connection. A nil *Notifier is valid and makes
// Publish a no-op, matching the optional NATS_URL configuration.
type Notifier struct {
	nc     *nats.Conn
	logger zerolog.Logger
}

// Connect dials natsURL with unlimited reconnects, matching the teacher's
// NATS connection options. Returns nil, nil when natsURL is empty.
func Connect(natsURL string, logger zerolog.Logger) (*Notifier, error) {
	if natsURL == "" {
		return nil, nil
	}

	log := logger.With().Str("component", "notify").Logger()

	nc, err := nats.Connect(natsURL,
		nats.Name("demo-cpb16-collector"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Error().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info().Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, err
	}

	return &Notifier{nc: nc, logger: log}, nil
}

// Publish sends one lifecycle event. Publish errors are logged, not
// returned — a lost lifecycle notification must never interrupt the
// collection pipeline.
func (n *Notifier) Publish(kind, detail string) {
	if n == nil || n.nc == nil {
		return
	}

	evt := Event{Kind: kind, Time: time.Now(), Detail: detail}
	data, err := json.Marshal(evt)
	if err != nil {
		n.logger.Error().Err(err).Msg("failed to marshal lifecycle event")
		return
	}
	if err := n.nc.Publish(subject, data); err != nil {
		n.logger.Error().Err(err).Str("kind", kind).Msg("failed to publish lifecycle event")
	}
}

// Close closes the NATS connection, if any.
func (n *Notifier) Close() {
	if n != nil && n.nc != nil {
		n.nc.Close()
	}
}

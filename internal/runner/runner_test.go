package runner

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/ryo2357/demo-cpb16-collector/internal/aggregator"
	"github.com/ryo2357/demo-cpb16-collector/internal/poller"
)

func TestNew_DefaultsBackoffWhenZero(t *testing.T) {
	p := poller.New(poller.Config{Address: "127.0.0.1:0"}, zerolog.Nop())
	agg := aggregator.New(aggregator.Config{WindowSize: 1, BatchSize: 1}, zerolog.Nop())

	r := New(p, agg, nil, nil, 0, zerolog.Nop())
	require.Equal(t, defaultReconnectBackoff, r.backoff)
}

func TestNew_KeepsExplicitBackoff(t *testing.T) {
	p := poller.New(poller.Config{Address: "127.0.0.1:0"}, zerolog.Nop())
	agg := aggregator.New(aggregator.Config{WindowSize: 1, BatchSize: 1}, zerolog.Nop())

	r := New(p, agg, nil, nil, 5*time.Second, zerolog.Nop())
	require.Equal(t, 5*time.Second, r.backoff)
}

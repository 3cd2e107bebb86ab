// Package config loads the collector's tunables from a TOML file with
// environment-variable overrides, plus the deployment secrets that are
// read directly from the environment with no file-backed default.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
)

// Config holds every tunable the collector needs to run one collection
// cycle plus the process-level HTTP listener addresses.
type Config struct {
	// PLCAddress is the TCP address of the packaging-line PLC, e.g. "10.0.0.5:8501".
	PLCAddress string

	// InfluxHost, InfluxOrg, InfluxToken, InfluxBucket are the InfluxDB
	// connection secrets. All four are required; there is no default.
	InfluxHost   string
	InfluxOrg    string
	InfluxToken  string
	InfluxBucket string

	// NATSURL is optional; lifecycle notifications are disabled when empty.
	NATSURL string

	WindowSize             int
	BatchSize              int
	MonitorIntervalMS      int
	StopIntervalMS         int
	IOTimeout              time.Duration
	ReconnectBackoff       time.Duration
	MetricsAddress         string
	HealthAddress          string
	LogLevel               string
}

const (
	envPLCAddress   = "DemoCpb16StatusConfigAddress"
	envInfluxHost   = "INFLUXDB_HOST"
	envInfluxOrg    = "INFLUXDB_ORG"
	envInfluxToken  = "INFLUXDB_TOKEN"
	envInfluxBucket = "INFLUXDB_BUCKET"
	envNATSURL      = "NATS_URL"
)

// Load reads configPath (a TOML file of defaults), applies COLLECTOR_*
// environment overrides on top of it, then pulls the required deployment
// secrets straight from the environment. It fails loudly (via logger.Fatal)
// on a missing config file or a missing required secret, matching the
// teacher's InitConfig behavior.
func Load(logger *zerolog.Logger, configPath string) *Config {
	ko := koanf.New(".")

	if err := ko.Load(file.Provider(configPath), toml.Parser()); err != nil {
		logger.Fatal().Err(err).Str("path", configPath).Msg("failed to load config file")
	}

	if err := ko.Load(env.Provider("COLLECTOR_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "COLLECTOR_")
		return strings.Replace(strings.ToLower(s), "_", ".", 1)
	}), nil); err != nil {
		logger.Warn().Err(err).Msg("failed to load environment overrides")
	}

	cfg := &Config{
		WindowSize:        ko.Int("window.size"),
		BatchSize:         ko.Int("batch.size"),
		MonitorIntervalMS: ko.Int("interval.monitor_ms"),
		StopIntervalMS:    ko.Int("interval.stop_ms"),
		IOTimeout:         durationOrDefault(ko, "io.timeout", 5*time.Second),
		ReconnectBackoff:  durationOrDefault(ko, "reconnect.backoff", 20*time.Second),
		MetricsAddress:    ko.String("server.metrics_address"),
		HealthAddress:     ko.String("server.health_address"),
		LogLevel:          ko.String("logging.level"),
	}

	applyDefaults(cfg)

	var err error
	cfg.PLCAddress, err = requireEnv(envPLCAddress)
	if err != nil {
		logger.Fatal().Err(err).Msg("missing required configuration")
	}
	cfg.InfluxHost, err = requireEnv(envInfluxHost)
	if err != nil {
		logger.Fatal().Err(err).Msg("missing required configuration")
	}
	cfg.InfluxOrg, err = requireEnv(envInfluxOrg)
	if err != nil {
		logger.Fatal().Err(err).Msg("missing required configuration")
	}
	cfg.InfluxToken, err = requireEnv(envInfluxToken)
	if err != nil {
		logger.Fatal().Err(err).Msg("missing required configuration")
	}
	cfg.InfluxBucket, err = requireEnv(envInfluxBucket)
	if err != nil {
		logger.Fatal().Err(err).Msg("missing required configuration")
	}

	cfg.NATSURL = os.Getenv(envNATSURL)

	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.WindowSize == 0 {
		cfg.WindowSize = 10
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 6
	}
	if cfg.MonitorIntervalMS == 0 {
		cfg.MonitorIntervalMS = 1000
	}
	if cfg.StopIntervalMS == 0 {
		cfg.StopIntervalMS = 1000
	}
	if cfg.MetricsAddress == "" {
		cfg.MetricsAddress = ":9090"
	}
	if cfg.HealthAddress == "" {
		cfg.HealthAddress = ":9091"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

func durationOrDefault(ko *koanf.Koanf, key string, def time.Duration) time.Duration {
	ms := ko.Int(key + "_ms")
	if ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}

func requireEnv(name string) (string, error) {
	v := os.Getenv(name)
	if v == "" {
		return "", fmt.Errorf("required environment variable %s is not set", name)
	}
	return v, nil
}

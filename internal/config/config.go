// Package config loads cmd/vivctl's own configuration. The protocol engine
// in internal/vivproto takes no configuration of its own; everything here
// is demo-binary wiring (simulator seed, log level, status endpoint).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds cmd/vivctl's settings, with defaults filled in by Default
// and selectively overridden by whatever fields are present in a loaded
// TOML file.
type Config struct {
	LogLevel string

	// SimulatorSeed seeds the in-memory device simulator's directory
	// contents so demo runs are reproducible.
	SimulatorSeed int64

	// DeviceClockSkew is added to the simulator's notion of "now" when it
	// reports its clock, to exercise set-time against a drifted device.
	DeviceClockSkew time.Duration

	// StatusListenAddr is the address the status/metrics HTTP endpoint
	// binds to.
	StatusListenAddr string
}

// Default returns cmd/vivctl's baseline configuration.
func Default() Config {
	return Config{
		LogLevel:         "info",
		SimulatorSeed:    1,
		DeviceClockSkew:  0,
		StatusListenAddr: "127.0.0.1:9110",
	}
}

type fileConfig struct {
	LogLevel         string `toml:"log_level"`
	SimulatorSeed    int64  `toml:"simulator_seed"`
	DeviceClockSkew  string `toml:"device_clock_skew"`
	StatusListenAddr string `toml:"status_listen_addr"`
}

// Load reads path and applies any fields it defines over Default's
// baseline. A field absent from the file leaves the default untouched,
// following the teacher's override-over-defaults pattern.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load vivctl config: %w", err)
	}

	if meta.IsDefined("log_level") {
		level := strings.TrimSpace(raw.LogLevel)
		if level != "" {
			cfg.LogLevel = level
		}
	}

	if meta.IsDefined("simulator_seed") {
		cfg.SimulatorSeed = raw.SimulatorSeed
	}

	if meta.IsDefined("device_clock_skew") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.DeviceClockSkew))
		if err != nil {
			return Config{}, fmt.Errorf("parse device_clock_skew: %w", err)
		}
		cfg.DeviceClockSkew = d
	}

	if meta.IsDefined("status_listen_addr") {
		addr := strings.TrimSpace(raw.StatusListenAddr)
		if addr != "" {
			cfg.StatusListenAddr = addr
		}
	}

	return cfg, nil
}

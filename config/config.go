// Package config loads process-wide defaults for operator parameters a
// query's JSON chain description may omit, the way a long-running
// service loads its TOML configuration sections.
package config

import (
	"time"

	"github.com/BurntSushi/toml"
)

// SamplerConfig holds defaults for the reservoir node.
type SamplerConfig struct {
	DefaultReservoirSize uint32 `toml:"default-reservoir-size"`
}

// HeavyHittersConfig holds defaults for the Space-Saving nodes.
type HeavyHittersConfig struct {
	DefaultError   float64 `toml:"default-error"`
	DefaultPortion float64 `toml:"default-portion"`
}

// GroupByConfig holds the default bucket width for queries that don't
// specify a group-by statement explicitly. DefaultWidth is kept as the
// raw TOML string ("10s", "500ms") rather than time.Duration: BurntSushi/toml
// has no native decoding for time.Duration and would otherwise fail on
// this field or silently leave it zero.
type GroupByConfig struct {
	DefaultWidth string `toml:"default-width"`
}

// Duration parses DefaultWidth the way a value read from the wire
// would be, once a query actually needs it.
func (c GroupByConfig) Duration() (time.Duration, error) {
	return time.ParseDuration(c.DefaultWidth)
}

// Config is the root of the TOML configuration file.
type Config struct {
	Sampler      SamplerConfig      `toml:"sampler"`
	HeavyHitters HeavyHittersConfig `toml:"heavy-hitters"`
	GroupBy      GroupByConfig      `toml:"group-by"`
}

// Default returns a Config with conservative built-in defaults, used
// when no file is supplied.
func Default() Config {
	return Config{
		Sampler:      SamplerConfig{DefaultReservoirSize: 1000},
		HeavyHitters: HeavyHittersConfig{DefaultError: 0.01, DefaultPortion: 0.1},
		GroupBy:      GroupByConfig{DefaultWidth: "10s"},
	}
}

// Load parses a TOML configuration file at path, falling back to
// Default for any section entirely absent from the file.
func Load(path string) (Config, error) {
	cfg := Default()
	_, err := toml.DecodeFile(path, &cfg)
	return cfg, err
}

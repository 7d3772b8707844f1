// Package config holds the settings of one priosim invocation.
//
// Values are layered: Default, then a YAML file, then the environment, then
// command-line flags. Each layer only overrides what it sets.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/daviddao/priosim/internal/logging"
	"github.com/daviddao/priosim/pkg/sched"
)

// Environment variables read by ApplyEnv and the CLI.
const (
	EnvDB     = "PRIOSIM_DB"
	EnvConfig = "PRIOSIM_CONFIG"
)

// Output formats.
const (
	FormatText  = "text"
	FormatTable = "table"
	FormatJSON  = "json"
)

// Default aging parameters, used when aging is switched on without values.
const (
	DefaultAgingInterval  = 5
	DefaultAgingIncrement = 1
)

// Aging configures priority aging.
type Aging struct {
	Enabled   bool `yaml:"enabled"`
	Interval  int  `yaml:"interval"`
	Increment int  `yaml:"increment"`
}

// Config is the full run configuration.
type Config struct {
	Preemptive bool   `yaml:"preemptive"`
	Aging      Aging  `yaml:"aging"`
	Input      string `yaml:"input"`
	Quiet      bool   `yaml:"quiet"`
	Format     string `yaml:"format"`
	DBPath     string `yaml:"db"`
	OTelOut    string `yaml:"otel_out"`
	LogLevel   string `yaml:"log_level"`
	LogFormat  string `yaml:"log_format"`
}

// Default returns preemptive scheduling without aging, text output and no
// recording.
func Default() Config {
	return Config{
		Preemptive: true,
		Aging: Aging{
			Interval:  DefaultAgingInterval,
			Increment: DefaultAgingIncrement,
		},
		Format:    FormatText,
		LogLevel:  "warn",
		LogFormat: logging.FormatText,
	}
}

// Parse decodes YAML from r on top of c. Keys absent from the document keep
// their current values.
func (c *Config) Parse(r io.Reader) error {
	if err := yaml.NewDecoder(r).Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// LoadFile returns Default overlaid with the YAML file at path.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()
	if err := cfg.Parse(f); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment. getenv is usually
// os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvDB); v != "" {
		c.DBPath = v
	}
}

// Validate checks the fields that do not depend on the workload.
func (c Config) Validate() error {
	switch c.Format {
	case FormatText, FormatTable, FormatJSON:
	default:
		return fmt.Errorf("%w: unknown format %q (want text, table or json)", sched.ErrInvalidConfig, c.Format)
	}
	if c.Aging.Enabled {
		if c.Aging.Interval <= 0 {
			return fmt.Errorf("%w: aging interval %d must be positive", sched.ErrInvalidConfig, c.Aging.Interval)
		}
		if c.Aging.Increment < 0 {
			return fmt.Errorf("%w: aging increment %d must not be negative", sched.ErrInvalidConfig, c.Aging.Increment)
		}
	}
	if err := logging.CheckFormat(c.LogFormat); err != nil {
		return fmt.Errorf("%w: %v", sched.ErrInvalidConfig, err)
	}
	return nil
}

// Options converts the scheduling fields to engine options.
func (c Config) Options(logger *slog.Logger) sched.Options {
	return sched.Options{
		Preemptive:     c.Preemptive,
		AgingEnabled:   c.Aging.Enabled,
		AgingInterval:  c.Aging.Interval,
		AgingIncrement: c.Aging.Increment,
		Logger:         logger,
	}
}

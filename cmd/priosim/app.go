package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/spf13/cobra"

	"github.com/daviddao/priosim/internal/logging"
	"github.com/daviddao/priosim/pkg/config"
	"github.com/daviddao/priosim/pkg/store"
)

// app holds shared state for the root command and its subcommands.
type app struct {
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string

	flags  rootFlags
	cfg    config.Config
	logger *slog.Logger
	store  store.RunStore
}

// rootFlags are the raw flag values; resolveConfig layers them over the
// config file and environment.
type rootFlags struct {
	preemptive    bool
	nonPreemptive bool
	aging         []int
	input         string
	quiet         bool
	format        string
	db            string
	otelOut       string
	configPath    string
	logLevel      string
	logFormat     string
	debug         bool
}

// usageError marks a command-line mistake; the caller prints usage.
type usageError struct {
	cmd *cobra.Command
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func newApp(stdout, stderr io.Writer, getenv func(string) string) *app {
	return &app{
		stdout: stdout,
		stderr: stderr,
		getenv: getenv,
		cfg:    config.Default(),
		logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)})),
	}
}

// Close releases the database connection, if one was opened.
func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
		a.store = nil
	}
}

// setup resolves the configuration and logger for cmd. It runs before
// every command.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := a.resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := logging.Setup(a.stderr, cfg.LogLevel, cfg.LogFormat, false)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

// resolveConfig layers defaults, the config file, the environment and the
// flags that were set explicitly, in that order.
func (a *app) resolveConfig(cmd *cobra.Command) (config.Config, error) {
	fl := cmd.Flags()

	path := a.flags.configPath
	if !fl.Changed("config") {
		path = a.getenv(config.EnvConfig)
	}
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.LoadFile(path); err != nil {
			return cfg, err
		}
	}
	cfg.ApplyEnv(a.getenv)

	if fl.Changed("preemptive") {
		cfg.Preemptive = a.flags.preemptive
	}
	if fl.Changed("non-preemptive") {
		cfg.Preemptive = !a.flags.nonPreemptive
	}
	if fl.Changed("aging") {
		if len(a.flags.aging) != 2 {
			return cfg, &usageError{cmd, fmt.Errorf("--aging takes <interval> <increment>, got %d value(s)", len(a.flags.aging))}
		}
		cfg.Aging = config.Aging{Enabled: true, Interval: a.flags.aging[0], Increment: a.flags.aging[1]}
	}
	if fl.Changed("input") {
		cfg.Input = a.flags.input
	}
	if fl.Changed("quiet") {
		cfg.Quiet = a.flags.quiet
	}
	if fl.Changed("format") {
		cfg.Format = a.flags.format
	}
	if fl.Changed("db") {
		cfg.DBPath = a.flags.db
	}
	if fl.Changed("otel-out") {
		cfg.OTelOut = a.flags.otelOut
	}
	if fl.Changed("log-level") {
		cfg.LogLevel = a.flags.logLevel
	}
	if fl.Changed("log-format") {
		cfg.LogFormat = a.flags.logFormat
	}
	if a.flags.debug {
		cfg.LogLevel = "debug"
	}
	return cfg, cfg.Validate()
}

// openStore opens the configured run database once per invocation.
func (a *app) openStore() (store.RunStore, error) {
	if a.store != nil {
		return a.store, nil
	}
	if a.cfg.DBPath == "" {
		return nil, errors.New("no run database: pass --db or set " + config.EnvDB)
	}
	s, err := store.New(a.cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("cannot open database %q: %w", a.cfg.DBPath, err)
	}
	a.store = s
	return s, nil
}

// printJSON writes v to w as indented JSON.
func printJSON(w io.Writer, v interface{}) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

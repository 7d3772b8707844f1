package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/daviddao/priosim/pkg/config"
	"github.com/daviddao/priosim/pkg/model"
	"github.com/daviddao/priosim/pkg/sched"
	"github.com/daviddao/priosim/pkg/trace"
	"github.com/daviddao/priosim/pkg/workload"
)

const longHelp = `priosim runs a tick-by-tick priority scheduling simulation of a batch of
processes on one CPU. A higher priority number runs first; ties go to the
earlier arrival, then the smaller PID. Without --input the built-in
five-process sample is used.

Input file format: each line => PID ARRIVAL BURST PRIORITY
Blank lines and lines starting with '#' are ignored. Files ending in .yaml
or .yml hold "processes: [{pid, arrival, burst, priority}]".

Environment:
  PRIOSIM_DB       record runs in this SQLite database
  PRIOSIM_CONFIG   YAML config file (same keys as --config)`

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:     "priosim [--preemptive|--non-preemptive] [--aging <interval> <increment>] [--input <file>] [--quiet]",
		Short:   "Priority CPU scheduling simulator",
		Long:    longHelp,
		Version: version,
		Args:    cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.simulate(cmd.Context())
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{cmd, err}
	})

	f := root.Flags()
	f.BoolVar(&a.flags.preemptive, "preemptive", true, "Preempt when a ready process strictly outranks the running one (default)")
	f.BoolVar(&a.flags.nonPreemptive, "non-preemptive", false, "Run each dispatched process to completion")
	f.IntSliceVar(&a.flags.aging, "aging", nil, "Enable aging: every <interval> ticks raise waiting priorities by <increment>")
	f.StringVar(&a.flags.input, "input", "", "Workload file (text or YAML)")
	f.BoolVar(&a.flags.quiet, "quiet", false, "Suppress all output")
	f.StringVar(&a.flags.format, "format", config.FormatText, "Output format (text, table, json)")
	f.StringVar(&a.flags.otelOut, "otel-out", "", "Write an OpenTelemetry trace of the run to this file")
	root.MarkFlagsMutuallyExclusive("preemptive", "non-preemptive")

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.db, "db", "", "SQLite database for recorded runs (or "+config.EnvDB+")")
	pf.StringVar(&a.flags.configPath, "config", "", "YAML config file (or "+config.EnvConfig+")")
	pf.StringVar(&a.flags.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	pf.StringVar(&a.flags.logFormat, "log-format", "text", "Log format (text, json)")
	pf.BoolVar(&a.flags.debug, "debug", false, "Enable debug logging")

	root.AddCommand(
		newHistoryCmd(a),
		newShowCmd(a),
		newDeleteCmd(a),
		newSampleCmd(a),
	)
	return root
}

// loadWorkload returns the configured workload and a label for it.
func (a *app) loadWorkload() ([]model.Process, string, error) {
	if a.cfg.Input == "" {
		return workload.Sample(), workload.SampleSource, nil
	}
	procs, err := workload.Load(a.cfg.Input)
	if err != nil {
		return nil, "", err
	}
	a.logger.Debug("workload loaded", "path", a.cfg.Input, "processes", len(procs))
	return procs, a.cfg.Input, nil
}

// outputSink picks the stdout renderer for the configured format.
func (a *app) outputSink() trace.Sink {
	if a.cfg.Quiet {
		return trace.Nop{}
	}
	switch a.cfg.Format {
	case config.FormatTable:
		return trace.NewTable(a.stdout)
	case config.FormatJSON:
		return trace.NewJSON(a.stdout)
	default:
		return trace.NewText(a.stdout)
	}
}

// simulate runs the configured workload and records it when a database is
// configured.
func (a *app) simulate(ctx context.Context) error {
	procs, source, err := a.loadWorkload()
	if err != nil {
		return err
	}
	engine, err := sched.New(procs, a.cfg.Options(a.logger))
	if err != nil {
		return err
	}

	rec := trace.NewRecorder()
	sinks := []trace.Sink{a.outputSink(), rec, trace.NewLog(a.logger)}

	var flushOTel func() error
	if a.cfg.OTelOut != "" {
		otelSink, flush, err := a.openOTel(ctx)
		if err != nil {
			return err
		}
		sinks = append(sinks, otelSink)
		flushOTel = flush
	}

	report := engine.Run(trace.Multi(sinks...))

	if flushOTel != nil {
		if err := flushOTel(); err != nil {
			return fmt.Errorf("otel: %w", err)
		}
	}
	if a.cfg.DBPath != "" {
		return a.record(source, report, rec.Ticks)
	}
	return nil
}

// openOTel returns a sink exporting to cfg.OTelOut and a function that
// flushes the exporter and closes the file.
func (a *app) openOTel(ctx context.Context) (trace.Sink, func() error, error) {
	f, err := os.Create(a.cfg.OTelOut)
	if err != nil {
		return nil, nil, fmt.Errorf("otel: %w", err)
	}
	tp, err := trace.NewStdoutProvider(f, "priosim", version)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("otel: %w", err)
	}
	flush := func() error {
		shutdownErr := tp.Shutdown(ctx)
		closeErr := f.Close()
		if shutdownErr != nil {
			return shutdownErr
		}
		return closeErr
	}
	return trace.NewOTel(ctx, tp), flush, nil
}

func (a *app) record(source string, report model.Report, ticks []model.TickRecord) error {
	s, err := a.openStore()
	if err != nil {
		return err
	}
	run := model.NewRun(source, report, ticks)
	if err := s.SaveRun(run); err != nil {
		return err
	}
	a.logger.Info("run recorded", "id", run.ID, "db", a.cfg.DBPath)
	if !a.cfg.Quiet {
		fmt.Fprintf(a.stderr, "recorded run %s\n", run.ID)
	}
	return nil
}

// writeResults renders a finished report in the configured format.
func writeResults(w io.Writer, format string, report model.Report) {
	if format == config.FormatTable {
		trace.WriteTable(w, report)
		return
	}
	trace.WriteResults(w, report)
}

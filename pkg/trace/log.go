package trace

import (
	"context"
	"io"
	"log/slog"
	"math"

	"github.com/daviddao/priosim/pkg/model"
)

// Log writes the trace as structured log records. Ticks are logged at
// Debug, the run banner and summary at Info.
type Log struct {
	logger *slog.Logger
}

// NewLog returns a Log sink. A nil logger discards everything.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))
	}
	return &Log{logger: logger.With("component", "trace")}
}

func (l *Log) Start(p model.Policy) {
	l.logger.Info("simulation started",
		"mode", p.Mode(),
		"aging", p.AgingLabel(),
		"aging_interval", p.AgingInterval,
		"aging_increment", p.AgingIncrement)
}

func (l *Log) Tick(rec model.TickRecord) {
	if !l.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	attrs := []any{"tick", rec.Time}
	if rec.Idle {
		attrs = append(attrs, "idle", true)
	} else {
		attrs = append(attrs, "pid", rec.PID)
	}
	if rec.Preempted {
		attrs = append(attrs, "preempted_pid", rec.PreemptedPID)
	}
	l.logger.Debug("tick", attrs...)
}

func (l *Log) Finish(report model.Report) {
	l.logger.Info("simulation report",
		"processes", len(report.Results),
		"ticks", report.TotalTicks,
		"idle_ticks", report.IdleTicks,
		"preemptions", report.Preemptions,
		"utilization", report.CPUUtilization)
}

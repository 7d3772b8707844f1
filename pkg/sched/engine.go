// Package sched is the scheduling engine: a single-CPU, tick-driven
// priority scheduler over a fixed process table.
//
// Every tick runs the same phases in the same order:
//
//  1. admit processes whose arrival is the current tick;
//  2. age the ready queue, if aging is enabled and the tick is due;
//  3. dispatch: fill an idle CPU, or preempt when the top of the ready
//     queue strictly outranks the running process;
//  4. report the tick to the sink;
//  5. execute one unit of work on the running process;
//  6. advance the clock.
//
// Admitting before aging keeps a process that arrives on an aging tick at
// its base priority. Aging before dispatch lets a boost preempt on the same
// tick. Dispatching before execution makes a newly chosen process consume
// the tick it was chosen on, so a process that finishes during tick t has
// finish time t+1.
//
// The engine is single-threaded and deterministic: identical input yields
// identical traces.
package sched

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/daviddao/priosim/pkg/clock"
	"github.com/daviddao/priosim/pkg/model"
	"github.com/daviddao/priosim/pkg/readyq"
	"github.com/daviddao/priosim/pkg/trace"
)

// ErrInvalidConfig is wrapped by every error New returns.
var ErrInvalidConfig = errors.New("invalid configuration")

// Options is the scheduling discipline.
type Options struct {
	Preemptive     bool
	AgingEnabled   bool
	AgingInterval  int
	AgingIncrement int

	// Logger receives debug events for admissions, aging, dispatch and
	// completion. Nil discards them.
	Logger *slog.Logger
}

// Policy returns the model form of the options.
func (o Options) Policy() model.Policy {
	return model.Policy{
		Preemptive:     o.Preemptive,
		AgingEnabled:   o.AgingEnabled,
		AgingInterval:  o.AgingInterval,
		AgingIncrement: o.AgingIncrement,
	}
}

// Engine owns the process table, the ready queue and the clock.
type Engine struct {
	procs     []model.Process
	opts      Options
	rq        *readyq.Queue
	clk       clock.Clock
	completed int
	current   int // index into procs, or model.Unset when idle
	logger    *slog.Logger

	idleTicks   int
	dispatches  int
	preemptions int
}

// Validate checks a process table and options without building an engine.
func Validate(procs []model.Process, opts Options) error {
	if len(procs) == 0 {
		return fmt.Errorf("%w: no processes", ErrInvalidConfig)
	}
	seen := make(map[int]bool, len(procs))
	for _, p := range procs {
		if p.Burst <= 0 {
			return fmt.Errorf("%w: pid %d: burst time %d must be positive", ErrInvalidConfig, p.PID, p.Burst)
		}
		if p.Arrival < 0 {
			return fmt.Errorf("%w: pid %d: arrival time %d must not be negative", ErrInvalidConfig, p.PID, p.Arrival)
		}
		if seen[p.PID] {
			return fmt.Errorf("%w: duplicate pid %d", ErrInvalidConfig, p.PID)
		}
		seen[p.PID] = true
	}
	if opts.AgingEnabled {
		if opts.AgingInterval <= 0 {
			return fmt.Errorf("%w: aging interval %d must be positive", ErrInvalidConfig, opts.AgingInterval)
		}
		if opts.AgingIncrement < 0 {
			return fmt.Errorf("%w: aging increment %d must not be negative", ErrInvalidConfig, opts.AgingIncrement)
		}
	}
	return nil
}

// New validates the input and returns an engine at tick 0. The engine
// keeps its own copy of procs; the caller's slice is never modified.
func New(procs []model.Process, opts Options) (*Engine, error) {
	if err := Validate(procs, opts); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))
	}
	e := &Engine{
		procs:   make([]model.Process, len(procs)),
		opts:    opts,
		current: model.Unset,
		logger:  logger.With("component", "sched"),
	}
	copy(e.procs, procs)
	for i := range e.procs {
		e.procs[i].Reset()
	}
	e.rq = readyq.New(e.key, len(e.procs))
	return e, nil
}

func (e *Engine) key(i int) clock.Key {
	p := &e.procs[i]
	return clock.Key{Priority: p.EffectivePriority, Arrival: p.Arrival, PID: p.PID}
}

// Run advances the simulation to completion and returns the report.
// A nil sink is treated as trace.Nop.
func (e *Engine) Run(sink trace.Sink) model.Report {
	if sink == nil {
		sink = trace.Nop{}
	}
	sink.Start(e.opts.Policy())
	for !e.Done() {
		e.step(sink)
	}
	report := e.Report()
	e.logger.Info("simulation finished",
		"processes", len(e.procs),
		"ticks", report.TotalTicks,
		"avg_waiting", report.AvgWaiting,
		"avg_turnaround", report.AvgTurnaround)
	sink.Finish(report)
	return report
}

// Step runs a single tick. It returns false without doing anything once
// every process has completed. Step does not call sink.Start or
// sink.Finish.
func (e *Engine) Step(sink trace.Sink) (model.TickRecord, bool) {
	if e.Done() {
		return model.TickRecord{}, false
	}
	if sink == nil {
		sink = trace.Nop{}
	}
	return e.step(sink), true
}

func (e *Engine) step(sink trace.Sink) model.TickRecord {
	now := e.clk.Now()

	e.admitArrivals(now)
	e.ageWaiting(now)
	rec := e.dispatch(now)

	sink.Tick(rec)

	e.execute(now)
	e.clk.Advance()
	return rec
}

// admitArrivals pushes every process arriving at now into the ready queue
// at its base priority.
func (e *Engine) admitArrivals(now int) {
	for i := range e.procs {
		p := &e.procs[i]
		if p.Arrival != now {
			continue
		}
		p.EffectivePriority = p.BasePriority
		p.LastReadyTime = now
		e.rq.Push(i)
		e.logger.Debug("admitted", "tick", now, "pid", p.PID, "priority", p.BasePriority)
	}
}

// ageWaiting boosts every ready-queue resident that was already waiting
// before this tick. Processes admitted during this tick keep their base
// priority; the running process is not in the queue and is never aged.
func (e *Engine) ageWaiting(now int) {
	if !e.opts.AgingEnabled || !e.clk.Due(e.opts.AgingInterval) || e.rq.Empty() {
		return
	}
	boosted := 0
	e.rq.Each(func(i int) {
		p := &e.procs[i]
		if p.LastReadyTime == now {
			return
		}
		p.EffectivePriority += e.opts.AgingIncrement
		boosted++
	})
	e.rq.Reheapify()
	e.logger.Debug("aged ready queue", "tick", now, "boosted", boosted, "increment", e.opts.AgingIncrement)
}

func (e *Engine) dispatch(now int) model.TickRecord {
	rec := model.TickRecord{Time: now}

	switch {
	case e.current == model.Unset:
		if next, ok := e.rq.Pop(); ok {
			e.assign(next, now)
			rec.Dispatched = true
		}
	case e.opts.Preemptive:
		top, ok := e.rq.Peek()
		if !ok || !clock.Outranks(e.key(top), e.key(e.current)) {
			break
		}
		prev := &e.procs[e.current]
		prev.LastReadyTime = now
		e.rq.Push(e.current)
		e.preemptions++
		rec.Preempted = true
		rec.PreemptedPID = prev.PID

		next, _ := e.rq.Pop()
		if next != top {
			panic(fmt.Sprintf("sched: ready queue yielded index %d, peeked %d", next, top))
		}
		e.logger.Debug("preempted", "tick", now, "pid", prev.PID, "by", e.procs[next].PID)
		e.assign(next, now)
		rec.Dispatched = true
	}

	if e.current == model.Unset {
		rec.Idle = true
	} else {
		rec.PID = e.procs[e.current].PID
	}
	return rec
}

// assign gives the CPU to index i and closes its current stay in the
// ready queue.
func (e *Engine) assign(i, now int) {
	p := &e.procs[i]
	if !p.Started {
		p.Started = true
		p.StartTime = now
	}
	p.WaitingTime += now - p.LastReadyTime
	e.current = i
	e.dispatches++
	e.logger.Debug("dispatched", "tick", now, "pid", p.PID, "priority", p.EffectivePriority, "remaining", p.Remaining)
}

func (e *Engine) execute(now int) {
	if e.current == model.Unset {
		e.idleTicks++
		return
	}
	p := &e.procs[e.current]
	p.Remaining--
	if p.Remaining > 0 {
		return
	}
	p.FinishTime = now + 1
	e.completed++
	e.current = model.Unset
	e.logger.Debug("completed", "tick", now, "pid", p.PID, "finish", p.FinishTime, "wait", p.WaitingTime)
}

// Done reports whether every process has completed.
func (e *Engine) Done() bool { return e.completed == len(e.procs) }

// Time returns the current tick.
func (e *Engine) Time() int { return e.clk.Now() }

// Current returns the index of the running process, or false when the CPU
// is idle.
func (e *Engine) Current() (int, bool) {
	if e.current == model.Unset {
		return 0, false
	}
	return e.current, true
}

// Processes returns a copy of the process table.
func (e *Engine) Processes() []model.Process {
	out := make([]model.Process, len(e.procs))
	copy(out, e.procs)
	return out
}

// Queued returns a copy of the ready-queue indices.
func (e *Engine) Queued() []int { return e.rq.Indices() }

// Top returns the index at the head of the ready queue.
func (e *Engine) Top() (int, bool) { return e.rq.Peek() }

// Outranks reports whether process index i ranks strictly ahead of j
// under their current effective priorities.
func (e *Engine) Outranks(i, j int) bool { return clock.Outranks(e.key(i), e.key(j)) }

// StateOf returns the lifecycle state of process index i at the current
// tick boundary.
func (e *Engine) StateOf(i int) model.State {
	p := &e.procs[i]
	switch {
	case p.Completed():
		return model.StateCompleted
	case i == e.current:
		return model.StateRunning
	case e.rq.Contains(i):
		return model.StateReady
	default:
		return model.StatePending
	}
}

// Report summarizes the run so far. Averages are over every process, so
// they are only meaningful once Done.
func (e *Engine) Report() model.Report {
	report := model.Report{
		Policy:      e.opts.Policy(),
		Results:     make([]model.Result, len(e.procs)),
		TotalTicks:  e.clk.Now(),
		IdleTicks:   e.idleTicks,
		Dispatches:  e.dispatches,
		Preemptions: e.preemptions,
	}
	var totalWait, totalTurn int
	for i, p := range e.procs {
		r := model.ResultOf(p)
		report.Results[i] = r
		totalWait += r.Wait
		totalTurn += r.Turnaround
	}
	n := float64(len(e.procs))
	report.AvgWaiting = float64(totalWait) / n
	report.AvgTurnaround = float64(totalTurn) / n
	if report.TotalTicks > 0 {
		report.CPUUtilization = float64(report.TotalTicks-report.IdleTicks) / float64(report.TotalTicks)
	}
	return report
}

// Package trace defines the observer side of a simulation.
//
// The engine calls a Sink three ways: once before the first tick (Start),
// once per tick after dispatch (Tick), and once after the last process
// completes (Finish). Sinks only observe. Nothing a sink does feeds back
// into scheduling, so a quiet run and a verbose run make identical choices.
package trace

import "github.com/daviddao/priosim/pkg/model"

// Sink observes a simulation run.
type Sink interface {
	Start(policy model.Policy)
	Tick(rec model.TickRecord)
	Finish(report model.Report)
}

// Nop is the quiet sink.
type Nop struct{}

func (Nop) Start(model.Policy)    {}
func (Nop) Tick(model.TickRecord) {}
func (Nop) Finish(model.Report)   {}

// Multi fans every call out to each sink in order. Nil sinks are skipped.
func Multi(sinks ...Sink) Sink {
	var out multi
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

type multi []Sink

func (m multi) Start(p model.Policy) {
	for _, s := range m {
		s.Start(p)
	}
}

func (m multi) Tick(r model.TickRecord) {
	for _, s := range m {
		s.Tick(r)
	}
}

func (m multi) Finish(r model.Report) {
	for _, s := range m {
		s.Finish(r)
	}
}

// Recorder keeps everything it observes in memory.
type Recorder struct {
	Policy model.Policy
	Ticks  []model.TickRecord
	Report model.Report
	Done   bool
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Start(p model.Policy) {
	r.Policy = p
	r.Ticks = r.Ticks[:0]
	r.Done = false
}

func (r *Recorder) Tick(rec model.TickRecord) { r.Ticks = append(r.Ticks, rec) }

func (r *Recorder) Finish(rep model.Report) {
	r.Report = rep
	r.Done = true
}

// Timeline returns the running pid per tick, with model.Unset for idle ticks.
func (r *Recorder) Timeline() []int {
	out := make([]int, len(r.Ticks))
	for i, t := range r.Ticks {
		if t.Idle {
			out[i] = model.Unset
		} else {
			out[i] = t.PID
		}
	}
	return out
}

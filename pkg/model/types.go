// Package model defines the core domain types for priosim.
//
// priosim simulates priority scheduling of a fixed batch of processes on a
// single CPU. Time is a logical tick: one tick is one unit of CPU work, and
// nothing in the simulation is tied to the wall clock.
//
// A Process carries two groups of fields:
//
//   - configuration (PID, Arrival, Burst, BasePriority), supplied by the
//     caller and never changed by the engine;
//   - accounting (Remaining, EffectivePriority, StartTime, ...), owned by the
//     engine from construction until the run ends.
//
// Tick fields that have no value yet hold Unset.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Unset marks a tick field with no value: a process that has not started,
// has not finished, or has never entered the ready queue.
const Unset = -1

// Process is one entry of the process table.
type Process struct {
	PID          int `json:"pid" yaml:"pid"`
	Arrival      int `json:"arrival" yaml:"arrival"`
	Burst        int `json:"burst" yaml:"burst"`
	BasePriority int `json:"priority" yaml:"priority"`

	Remaining         int  `json:"remaining" yaml:"-"`
	EffectivePriority int  `json:"effective_priority" yaml:"-"`
	Started           bool `json:"started" yaml:"-"`
	StartTime         int  `json:"start_time" yaml:"-"`
	FinishTime        int  `json:"finish_time" yaml:"-"`
	LastReadyTime     int  `json:"last_ready_time" yaml:"-"`
	WaitingTime       int  `json:"waiting_time" yaml:"-"`
}

// NewProcess returns a process with its configuration set and its
// accounting fields initialized.
func NewProcess(pid, arrival, burst, priority int) Process {
	p := Process{PID: pid, Arrival: arrival, Burst: burst, BasePriority: priority}
	p.Reset()
	return p
}

// Reset restores the accounting fields to their pre-run values.
func (p *Process) Reset() {
	p.Remaining = p.Burst
	p.EffectivePriority = p.BasePriority
	p.Started = false
	p.StartTime = Unset
	p.FinishTime = Unset
	p.LastReadyTime = Unset
	p.WaitingTime = 0
}

// Executed returns the number of ticks the process has spent on the CPU.
func (p Process) Executed() int { return p.Burst - p.Remaining }

// Completed reports whether the process has consumed its whole burst.
func (p Process) Completed() bool { return p.Started && p.Remaining == 0 }

// Turnaround returns FinishTime - Arrival, or Unset if not finished.
func (p Process) Turnaround() int {
	if p.FinishTime == Unset {
		return Unset
	}
	return p.FinishTime - p.Arrival
}

// State is the lifecycle position of a process at a given tick.
type State string

const (
	StatePending   State = "pending" // not yet arrived
	StateReady     State = "ready"
	StateRunning   State = "running"
	StateCompleted State = "completed"
)

// Policy is the scheduling discipline of a run.
type Policy struct {
	Preemptive     bool `json:"preemptive"`
	AgingEnabled   bool `json:"aging_enabled"`
	AgingInterval  int  `json:"aging_interval"`
	AgingIncrement int  `json:"aging_increment"`
}

// Mode returns "preemptive" or "non-preemptive".
func (p Policy) Mode() string {
	if p.Preemptive {
		return "preemptive"
	}
	return "non-preemptive"
}

// AgingLabel returns "on" or "off".
func (p Policy) AgingLabel() string {
	if p.AgingEnabled {
		return "on"
	}
	return "off"
}

// TickRecord describes who held the CPU during one tick. It is produced
// after dispatch and before the tick's work is executed.
type TickRecord struct {
	Time         int  `json:"time"`
	PID          int  `json:"pid"`
	Idle         bool `json:"idle,omitempty"`
	Dispatched   bool `json:"dispatched,omitempty"`
	PreemptedPID int  `json:"preempted_pid,omitempty"`
	Preempted    bool `json:"preempted,omitempty"`
}

// Result is the end-of-run accounting for one process.
type Result struct {
	PID        int `json:"pid"`
	Arrival    int `json:"arrival"`
	Burst      int `json:"burst"`
	Priority   int `json:"priority"`
	Start      int `json:"start"`
	Finish     int `json:"finish"`
	Wait       int `json:"wait"`
	Turnaround int `json:"turnaround"`
}

// ResultOf summarizes a finished process.
func ResultOf(p Process) Result {
	return Result{
		PID:        p.PID,
		Arrival:    p.Arrival,
		Burst:      p.Burst,
		Priority:   p.BasePriority,
		Start:      p.StartTime,
		Finish:     p.FinishTime,
		Wait:       p.WaitingTime,
		Turnaround: p.Turnaround(),
	}
}

// Report is the end-of-run summary. Results are in process table order.
type Report struct {
	Policy         Policy   `json:"policy"`
	Results        []Result `json:"results"`
	AvgWaiting     float64  `json:"avg_waiting"`
	AvgTurnaround  float64  `json:"avg_turnaround"`
	TotalTicks     int      `json:"total_ticks"`
	IdleTicks      int      `json:"idle_ticks"`
	Dispatches     int      `json:"dispatches"`
	Preemptions    int      `json:"preemptions"`
	CPUUtilization float64  `json:"cpu_utilization"`
}

// Run is a recorded simulation: its report plus the full tick trace.
type Run struct {
	ID        string       `json:"id"`
	Source    string       `json:"source"`
	CreatedAt time.Time    `json:"created_at"`
	Report    Report       `json:"report"`
	Trace     []TickRecord `json:"trace,omitempty"`
}

// NewRun stamps a report and trace with a fresh ID and creation time.
func NewRun(source string, report Report, trace []TickRecord) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Source:    source,
		CreatedAt: time.Now().UTC(),
		Report:    report,
		Trace:     trace,
	}
}

// Package clock provides the logical clock that drives a simulation and the
// deterministic total order used to rank ready processes.
//
// The clock counts ticks starting at 0. It only moves forward through
// Advance, once per simulated tick, so every phase of a tick observes the
// same Now.
//
// Ranking uses a three-level key. A process outranks another if it has:
//
//	higher effective priority, or
//	equal priority and earlier arrival, or
//	equal priority and arrival and a smaller pid.
//
// With unique pids this is a strict total order, so every run over the same
// input makes the same choices.
//
// Clock is not goroutine-safe; a simulation is single-threaded.
package clock

// Clock is a logical tick counter.
type Clock struct {
	now int
}

// Now returns the current tick.
func (c *Clock) Now() int { return c.now }

// Advance moves the clock to the next tick and returns it.
func (c *Clock) Advance() int {
	c.now++
	return c.now
}

// Set positions the clock at tick t.
func (c *Clock) Set(t int) { c.now = t }

// Due reports whether a periodic action with the given interval fires on
// the current tick. Tick 0 never fires, and a non-positive interval never
// fires.
func (c *Clock) Due(interval int) bool {
	return interval > 0 && c.now > 0 && c.now%interval == 0
}

// Key is the ranking key of a ready process.
type Key struct {
	Priority int
	Arrival  int
	PID      int
}

// Compare returns 1 if a outranks b, -1 if b outranks a, and 0 only when
// the keys are identical.
func Compare(a, b Key) int {
	switch {
	case a.Priority != b.Priority:
		if a.Priority > b.Priority {
			return 1
		}
		return -1
	case a.Arrival != b.Arrival:
		if a.Arrival < b.Arrival {
			return 1
		}
		return -1
	case a.PID != b.PID:
		if a.PID < b.PID {
			return 1
		}
		return -1
	}
	return 0
}

// Outranks reports whether a ranks strictly ahead of b.
func Outranks(a, b Key) bool { return Compare(a, b) > 0 }

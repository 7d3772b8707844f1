package store

import "github.com/daviddao/priosim/pkg/model"

// RunStore is what the CLI needs from the run database. *Store implements
// it; tests can substitute an in-memory fake.
type RunStore interface {
	Close() error

	// SaveRun records a finished run.
	SaveRun(run *model.Run) error

	// GetRun looks a run up by ID or unique ID prefix.
	GetRun(id string, withTrace bool) (*model.Run, error)

	// ListRuns returns recent runs, newest first.
	ListRuns(limit int) ([]Summary, error)

	// ListTicks returns a run's trace in tick order.
	ListTicks(runID string) ([]model.TickRecord, error)

	// CountRuns returns the number of recorded runs.
	CountRuns() int64

	// DeleteRun removes a run.
	DeleteRun(id string) error
}

var _ RunStore = (*Store)(nil)

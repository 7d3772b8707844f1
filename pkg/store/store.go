// Package store records finished simulation runs in SQLite.
//
// A run is one row in runs (policy and summary), one row per process in
// results, and one row per tick in ticks. Runs are written in a single
// transaction and never updated afterwards.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/daviddao/priosim/pkg/model"

	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned when no run matches an ID.
var ErrRunNotFound = errors.New("run not found")

// ErrAmbiguousID is returned when an ID prefix matches more than one run.
var ErrAmbiguousID = errors.New("ambiguous run id")

// timeLayout is fixed-width so that created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store manages all SQLite operations with WAL mode for concurrent access.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database and initializes the schema.
func New(path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id              TEXT PRIMARY KEY,
		source          TEXT NOT NULL,
		created_at      TEXT NOT NULL,
		preemptive      INTEGER NOT NULL,
		aging_enabled   INTEGER NOT NULL,
		aging_interval  INTEGER NOT NULL,
		aging_increment INTEGER NOT NULL,
		processes       INTEGER NOT NULL,
		total_ticks     INTEGER NOT NULL,
		idle_ticks      INTEGER NOT NULL,
		dispatches      INTEGER NOT NULL,
		preemptions     INTEGER NOT NULL,
		avg_waiting     REAL NOT NULL,
		avg_turnaround  REAL NOT NULL,
		utilization     REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);

	CREATE TABLE IF NOT EXISTS results (
		run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		ordinal    INTEGER NOT NULL,
		pid        INTEGER NOT NULL,
		arrival    INTEGER NOT NULL,
		burst      INTEGER NOT NULL,
		priority   INTEGER NOT NULL,
		start      INTEGER NOT NULL,
		finish     INTEGER NOT NULL,
		wait       INTEGER NOT NULL,
		turnaround INTEGER NOT NULL,
		PRIMARY KEY (run_id, ordinal)
	);

	CREATE TABLE IF NOT EXISTS ticks (
		run_id        TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		tick          INTEGER NOT NULL,
		pid           INTEGER NOT NULL,
		idle          INTEGER NOT NULL,
		dispatched    INTEGER NOT NULL,
		preempted_pid INTEGER NOT NULL,
		preempted     INTEGER NOT NULL,
		PRIMARY KEY (run_id, tick)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ---------------------------------------------------------------------------
// Runs
// ---------------------------------------------------------------------------

// SaveRun writes a run with its results and trace. The whole write is one
// transaction, retried as a unit on contention.
func (s *Store) SaveRun(run *model.Run) error {
	if run == nil || run.ID == "" {
		return errors.New("save run: missing id")
	}
	err := retryOnContention(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

		if err := insertRun(tx, run); err != nil {
			return err
		}
		if err := insertResults(tx, run.ID, run.Report.Results); err != nil {
			return err
		}
		if err := insertTicks(tx, run.ID, run.Trace); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return nil
}

func insertRun(tx *sql.Tx, run *model.Run) error {
	r, p := run.Report, run.Report.Policy
	_, err := tx.Exec(
		`INSERT INTO runs (id, source, created_at, preemptive, aging_enabled, aging_interval,
		                   aging_increment, processes, total_ticks, idle_ticks, dispatches,
		                   preemptions, avg_waiting, avg_turnaround, utilization)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.CreatedAt.UTC().Format(timeLayout),
		boolToInt(p.Preemptive), boolToInt(p.AgingEnabled), p.AgingInterval, p.AgingIncrement,
		len(r.Results), r.TotalTicks, r.IdleTicks, r.Dispatches, r.Preemptions,
		r.AvgWaiting, r.AvgTurnaround, r.CPUUtilization,
	)
	return err
}

func insertResults(tx *sql.Tx, runID string, results []model.Result) error {
	stmt, err := tx.Prepare(
		`INSERT INTO results (run_id, ordinal, pid, arrival, burst, priority, start, finish, wait, turnaround)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, r := range results {
		if _, err := stmt.Exec(runID, i, r.PID, r.Arrival, r.Burst, r.Priority,
			r.Start, r.Finish, r.Wait, r.Turnaround); err != nil {
			return fmt.Errorf("insert result pid %d: %w", r.PID, err)
		}
	}
	return nil
}

func insertTicks(tx *sql.Tx, runID string, trace []model.TickRecord) error {
	stmt, err := tx.Prepare(
		`INSERT INTO ticks (run_id, tick, pid, idle, dispatched, preempted_pid, preempted)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, t := range trace {
		if _, err := stmt.Exec(runID, t.Time, t.PID, boolToInt(t.Idle), boolToInt(t.Dispatched),
			t.PreemptedPID, boolToInt(t.Preempted)); err != nil {
			return fmt.Errorf("insert tick %d: %w", t.Time, err)
		}
	}
	return nil
}

const runColumns = `id, source, created_at, preemptive, aging_enabled, aging_interval,
	aging_increment, total_ticks, idle_ticks, dispatches, preemptions,
	avg_waiting, avg_turnaround, utilization, processes`

// GetRun returns the run whose ID is id or starts with id, with its
// results. The trace is loaded only when withTrace is set.
func (s *Store) GetRun(id string, withTrace bool) (*model.Run, error) {
	if id == "" {
		return nil, ErrRunNotFound
	}
	rows, err := s.db.Query(
		`SELECT `+runColumns+` FROM runs
		 WHERE id = ? OR id LIKE ? ESCAPE '\'
		 ORDER BY (id = ?) DESC LIMIT 2`,
		id, escapeLike(id)+"%", id,
	)
	if err != nil {
		return nil, err
	}
	runs, _, err := scanRuns(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}
	switch {
	case len(runs) == 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case len(runs) > 1 && runs[0].ID != id:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousID, id)
	}
	run := runs[0]

	run.Report.Results, err = s.listResults(run.ID)
	if err != nil {
		return nil, err
	}
	if withTrace {
		run.Trace, err = s.ListTicks(run.ID)
		if err != nil {
			return nil, err
		}
	}
	return &run, nil
}

// Summary is a run as listed by ListRuns: the report without per-process
// results.
type Summary struct {
	model.Run
	Processes int `json:"processes"`
}

// ListRuns returns up to limit runs, newest first. limit <= 0 means 20.
func (s *Store) ListRuns(limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	runs, counts, err := scanRuns(rows)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, len(runs))
	for i := range runs {
		out[i] = Summary{Run: runs[i], Processes: counts[i]}
	}
	return out, nil
}

// CountRuns returns the number of recorded runs.
func (s *Store) CountRuns() int64 {
	var n int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		return 0
	}
	return n
}

// DeleteRun removes a run and everything recorded with it.
func (s *Store) DeleteRun(id string) error {
	var affected int64
	err := retryOnContention(func() error {
		res, err := s.db.Exec(`DELETE FROM runs WHERE id = ?`, id)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// ListTicks returns the recorded trace of a run in tick order.
func (s *Store) ListTicks(runID string) ([]model.TickRecord, error) {
	rows, err := s.db.Query(
		`SELECT tick, pid, idle, dispatched, preempted_pid, preempted
		 FROM ticks WHERE run_id = ? ORDER BY tick ASC`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ticks []model.TickRecord
	for rows.Next() {
		var t model.TickRecord
		var idle, dispatched, preempted int
		if err := rows.Scan(&t.Time, &t.PID, &idle, &dispatched, &t.PreemptedPID, &preempted); err != nil {
			return nil, err
		}
		t.Idle = idle != 0
		t.Dispatched = dispatched != 0
		t.Preempted = preempted != 0
		ticks = append(ticks, t)
	}
	return ticks, rows.Err()
}

func (s *Store) listResults(runID string) ([]model.Result, error) {
	rows, err := s.db.Query(
		`SELECT pid, arrival, burst, priority, start, finish, wait, turnaround
		 FROM results WHERE run_id = ? ORDER BY ordinal ASC`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.Result
	for rows.Next() {
		var r model.Result
		if err := rows.Scan(&r.PID, &r.Arrival, &r.Burst, &r.Priority,
			&r.Start, &r.Finish, &r.Wait, &r.Turnaround); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// scanRuns reads rows selected with runColumns. It also returns the stored
// process count of each run, since listings do not load results.
func scanRuns(rows *sql.Rows) ([]model.Run, []int, error) {
	var runs []model.Run
	var counts []int
	for rows.Next() {
		var r model.Run
		var createdStr string
		var preemptive, aging, procs int
		p := &r.Report.Policy
		if err := rows.Scan(&r.ID, &r.Source, &createdStr, &preemptive, &aging,
			&p.AgingInterval, &p.AgingIncrement, &r.Report.TotalTicks, &r.Report.IdleTicks,
			&r.Report.Dispatches, &r.Report.Preemptions, &r.Report.AvgWaiting,
			&r.Report.AvgTurnaround, &r.Report.CPUUtilization, &procs); err != nil {
			return nil, nil, err
		}
		p.Preemptive = preemptive != 0
		p.AgingEnabled = aging != 0
		var parseErr error
		r.CreatedAt, parseErr = time.Parse(timeLayout, createdStr)
		if parseErr != nil {
			return nil, nil, fmt.Errorf("parse created_at for run %s: %w", r.ID, parseErr)
		}
		runs = append(runs, r)
		counts = append(counts, procs)
	}
	return runs, counts, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/daviddao/priosim/pkg/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("New(%q): %v", dbPath, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testRun builds a two-process run created offset seconds after a fixed
// instant.
func testRun(id string, offset int) *model.Run {
	report := model.Report{
		Policy: model.Policy{Preemptive: true, AgingEnabled: true, AgingInterval: 5, AgingIncrement: 1},
		Results: []model.Result{
			{PID: 2, Arrival: 1, Burst: 1, Priority: 5, Start: 1, Finish: 2, Wait: 0, Turnaround: 1},
			{PID: 1, Arrival: 0, Burst: 3, Priority: 1, Start: 0, Finish: 4, Wait: 1, Turnaround: 4},
		},
		AvgWaiting:     0.5,
		AvgTurnaround:  2.5,
		TotalTicks:     4,
		Dispatches:     3,
		Preemptions:    1,
		CPUUtilization: 1,
	}
	trace := []model.TickRecord{
		{Time: 0, PID: 1, Dispatched: true},
		{Time: 1, PID: 2, Dispatched: true, Preempted: true, PreemptedPID: 1},
		{Time: 2, PID: 1, Dispatched: true},
		{Time: 3, PID: 1},
	}
	return &model.Run{
		ID:        id,
		Source:    "sample",
		CreatedAt: time.Date(2026, 3, 1, 12, 0, offset, 1500, time.UTC),
		Report:    report,
		Trace:     trace,
	}
}

// --- Run tests ---

func TestSaveRun_GetRunRoundTrip(t *testing.T) {
	s := newTestStore(t)
	want := testRun("run-a", 0)
	if err := s.SaveRun(want); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := s.GetRun("run-a", true)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, want.CreatedAt)
	}
	got.CreatedAt = want.CreatedAt
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch\n got: %+v\nwant: %+v", got, want)
	}
}

func TestGetRun_WithoutTrace(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveRun(testRun("run-a", 0)); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetRun("run-a", false)
	if err != nil {
		t.Fatal(err)
	}
	if got.Trace != nil {
		t.Errorf("trace loaded without withTrace: %d ticks", len(got.Trace))
	}
	if len(got.Report.Results) != 2 || got.Report.Results[0].PID != 2 {
		t.Errorf("results not in table order: %+v", got.Report.Results)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	s := newTestStore(t)
	for _, id := range []string{"", "missing"} {
		if _, err := s.GetRun(id, false); !errors.Is(err, ErrRunNotFound) {
			t.Errorf("GetRun(%q): got %v, want ErrRunNotFound", id, err)
		}
	}
}

func TestGetRun_Prefix(t *testing.T) {
	s := newTestStore(t)
	for i, id := range []string{"abc-1", "abc-2", "abd"} {
		if err := s.SaveRun(testRun(id, i)); err != nil {
			t.Fatal(err)
		}
	}

	if got, err := s.GetRun("abd", false); err != nil || got.ID != "abd" {
		t.Errorf("exact: got %v, %v", got, err)
	}
	if got, err := s.GetRun("abc-2", false); err != nil || got.ID != "abc-2" {
		t.Errorf("exact among prefixes: got %v, %v", got, err)
	}
	if _, err := s.GetRun("abc", false); !errors.Is(err, ErrAmbiguousID) {
		t.Errorf("ambiguous prefix: got %v", err)
	}
	if _, err := s.GetRun("ab_", false); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("LIKE wildcard should be literal: got %v", err)
	}
}

func TestSaveRun_DuplicateID(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveRun(testRun("dup", 0)); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveRun(testRun("dup", 1)); err == nil {
		t.Fatal("expected error saving duplicate run id")
	}
	if n := s.CountRuns(); n != 1 {
		t.Errorf("CountRuns = %d after failed save, want 1", n)
	}
	ticks, err := s.ListTicks("dup")
	if err != nil || len(ticks) != 4 {
		t.Errorf("failed save must not leave extra ticks: %d, %v", len(ticks), err)
	}
}

func TestSaveRun_MissingID(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveRun(&model.Run{}); err == nil {
		t.Fatal("expected error for run without id")
	}
	if err := s.SaveRun(nil); err == nil {
		t.Fatal("expected error for nil run")
	}
}

func TestListRuns_NewestFirst(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 5; i++ {
		if err := s.SaveRun(testRun(fmt.Sprintf("run-%d", i), i)); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := s.ListRuns(3)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("got %d runs, want 3", len(runs))
	}
	for i, want := range []string{"run-4", "run-3", "run-2"} {
		if runs[i].ID != want {
			t.Errorf("runs[%d] = %s, want %s", i, runs[i].ID, want)
		}
	}
	r := runs[0]
	if r.Processes != 2 || r.Report.Results != nil {
		t.Errorf("summary should carry the count, not results: %+v", r)
	}
	if !r.Report.Policy.AgingEnabled || r.Report.Policy.AgingInterval != 5 || r.Report.AvgTurnaround != 2.5 {
		t.Errorf("summary fields lost: %+v", r.Report)
	}

	all, err := s.ListRuns(0)
	if err != nil || len(all) != 5 {
		t.Errorf("ListRuns(0) = %d runs, err %v", len(all), err)
	}
}

func TestListTicks_Order(t *testing.T) {
	s := newTestStore(t)
	run := testRun("run-a", 0)
	if err := s.SaveRun(run); err != nil {
		t.Fatal(err)
	}
	ticks, err := s.ListTicks("run-a")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ticks, run.Trace) {
		t.Errorf("ticks = %+v, want %+v", ticks, run.Trace)
	}

	none, err := s.ListTicks("missing")
	if err != nil || len(none) != 0 {
		t.Errorf("unknown run: %v, %v", none, err)
	}
}

func TestDeleteRun_Cascades(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveRun(testRun("gone", 0)); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteRun("gone"); err != nil {
		t.Fatalf("DeleteRun: %v", err)
	}
	if ticks, _ := s.ListTicks("gone"); len(ticks) != 0 {
		t.Errorf("ticks survived delete: %d", len(ticks))
	}
	if err := s.DeleteRun("gone"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("second delete: got %v", err)
	}
}

func TestReopen_KeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SaveRun(testRun("kept", 0)); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s2, err := New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	if n := s2.CountRuns(); n != 1 {
		t.Errorf("CountRuns after reopen = %d, want 1", n)
	}
}

func TestSaveRun_Concurrent(t *testing.T) {
	s := newTestStore(t)
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- s.SaveRun(testRun(fmt.Sprintf("c-%02d", i), i))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("concurrent SaveRun: %v", err)
		}
	}
	if n := s.CountRuns(); n != 16 {
		t.Errorf("CountRuns = %d, want 16", n)
	}
}

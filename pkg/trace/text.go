package trace

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/daviddao/priosim/pkg/model"
)

// Text writes the classic human-readable trace:
//
//	Priority Scheduling (preemptive, aging=off)
//	Time | Running PID
//	------------------
//	   0 | 1
//	   1 | idle
//
// followed by a per-process results block and the averages.
type Text struct {
	w io.Writer
}

// NewText returns a Text sink writing to w.
func NewText(w io.Writer) *Text { return &Text{w: w} }

func (t *Text) Start(p model.Policy)       { WriteHeader(t.w, p) }
func (t *Text) Tick(rec model.TickRecord)  { WriteTick(t.w, rec) }
func (t *Text) Finish(report model.Report) { WriteResults(t.w, report) }

// WriteHeader writes the run banner and the trace column header.
func WriteHeader(w io.Writer, p model.Policy) {
	fmt.Fprintf(w, "Priority Scheduling (%s, aging=%s)\n", p.Mode(), p.AgingLabel())
	fmt.Fprintln(w, "Time | Running PID")
	fmt.Fprintln(w, "------------------")
}

// WriteTick writes one trace row.
func WriteTick(w io.Writer, rec model.TickRecord) {
	if rec.Idle {
		fmt.Fprintf(w, "%4d | idle\n", rec.Time)
		return
	}
	fmt.Fprintf(w, "%4d | %d\n", rec.Time, rec.PID)
}

// WriteResults writes the per-process lines and the averages.
func WriteResults(w io.Writer, report model.Report) {
	fmt.Fprintln(w, "\nResults:")
	for _, r := range report.Results {
		fmt.Fprintf(w, "PID %d: start=%d finish=%d wait=%d turnaround=%d priority=%d\n",
			r.PID, r.Start, r.Finish, r.Wait, r.Turnaround, r.Priority)
	}
	fmt.Fprintf(w, "\nAvg waiting=%.2f, Avg turnaround=%.2f\n", report.AvgWaiting, report.AvgTurnaround)
}

// Table writes the same trace as Text but renders the results as a table.
type Table struct {
	Text
}

// NewTable returns a Table sink writing to w.
func NewTable(w io.Writer) *Table { return &Table{Text{w: w}} }

func (t *Table) Finish(report model.Report) { WriteTable(t.w, report) }

// WriteTable renders the results table with an averages footer.
func WriteTable(w io.Writer, report model.Report) {
	fmt.Fprintln(w)
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"PID", "Priority", "Arrival", "Burst", "Start", "Finish", "Wait", "Turnaround"})
	rows := make([][]string, 0, len(report.Results))
	for _, r := range report.Results {
		rows = append(rows, []string{
			strconv.Itoa(r.PID),
			strconv.Itoa(r.Priority),
			strconv.Itoa(r.Arrival),
			strconv.Itoa(r.Burst),
			strconv.Itoa(r.Start),
			strconv.Itoa(r.Finish),
			strconv.Itoa(r.Wait),
			strconv.Itoa(r.Turnaround),
		})
	}
	table.AppendBulk(rows)
	table.SetFooter([]string{"", "", "", "", "", "Average",
		fmt.Sprintf("%.2f", report.AvgWaiting),
		fmt.Sprintf("%.2f", report.AvgTurnaround)})
	table.Render()
	fmt.Fprintf(w, "ticks=%d idle=%d dispatches=%d preemptions=%d utilization=%.2f\n",
		report.TotalTicks, report.IdleTicks, report.Dispatches, report.Preemptions, report.CPUUtilization)
}

// JSON buffers the trace and writes one indented document on Finish.
type JSON struct {
	w      io.Writer
	policy model.Policy
	ticks  []model.TickRecord
}

// NewJSON returns a JSON sink writing to w.
func NewJSON(w io.Writer) *JSON { return &JSON{w: w} }

func (j *JSON) Start(p model.Policy) {
	j.policy = p
	j.ticks = nil
}

func (j *JSON) Tick(rec model.TickRecord) { j.ticks = append(j.ticks, rec) }

func (j *JSON) Finish(report model.Report) {
	enc := json.NewEncoder(j.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(map[string]interface{}{
		"policy": j.policy,
		"trace":  j.ticks,
		"report": report,
	})
}

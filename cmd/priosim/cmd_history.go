package main

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			runs, err := s.ListRuns(limit)
			if err != nil {
				return fmt.Errorf("history: %w", err)
			}

			if jsonOut {
				printJSON(a.stdout, map[string]interface{}{"runs": runs, "count": len(runs), "total": s.CountRuns()})
				return nil
			}
			if len(runs) == 0 {
				fmt.Fprintln(a.stdout, "no runs recorded")
				return nil
			}
			table := tablewriter.NewWriter(a.stdout)
			table.SetHeader([]string{"ID", "Created", "Source", "Mode", "Aging", "Procs", "Ticks", "Avg Wait", "Avg Turnaround"})
			for _, r := range runs {
				p := r.Report.Policy
				aging := p.AgingLabel()
				if p.AgingEnabled {
					aging = fmt.Sprintf("%d/%d", p.AgingInterval, p.AgingIncrement)
				}
				table.Append([]string{
					shortID(r.ID),
					r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					r.Source,
					p.Mode(),
					aging,
					strconv.Itoa(r.Processes),
					strconv.Itoa(r.Report.TotalTicks),
					fmt.Sprintf("%.2f", r.Report.AvgWaiting),
					fmt.Sprintf("%.2f", r.Report.AvgTurnaround),
				})
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Max runs to list")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "JSON output")
	return cmd
}

// shortID is the display form of a run ID; show accepts it as a prefix.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

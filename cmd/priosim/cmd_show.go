package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daviddao/priosim/pkg/config"
	"github.com/daviddao/priosim/pkg/trace"
)

func newShowCmd(a *app) *cobra.Command {
	var withTrace, jsonOut, tableOut bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print a recorded run (ID or unique prefix)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			run, err := s.GetRun(args[0], withTrace)
			if err != nil {
				return fmt.Errorf("show: %w", err)
			}

			if jsonOut {
				printJSON(a.stdout, run)
				return nil
			}
			fmt.Fprintf(a.stdout, "Run %s (%s, %s)\n", run.ID, run.Source,
				run.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			if withTrace {
				trace.WriteHeader(a.stdout, run.Report.Policy)
				for _, t := range run.Trace {
					trace.WriteTick(a.stdout, t)
				}
			} else {
				fmt.Fprintf(a.stdout, "Priority Scheduling (%s, aging=%s)\n",
					run.Report.Policy.Mode(), run.Report.Policy.AgingLabel())
			}
			format := a.cfg.Format
			if tableOut {
				format = config.FormatTable
			}
			writeResults(a.stdout, format, run.Report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&withTrace, "trace", false, "Include the tick-by-tick trace")
	cmd.Flags().BoolVar(&tableOut, "table", false, "Render results as a table")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "JSON output")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a recorded run (ID or unique prefix)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			run, err := s.GetRun(args[0], false)
			if err != nil {
				return fmt.Errorf("delete: %w", err)
			}
			if err := s.DeleteRun(run.ID); err != nil {
				return fmt.Errorf("delete: %w", err)
			}
			fmt.Fprintf(a.stdout, "deleted run %s\n", run.ID)
			return nil
		},
	}
}

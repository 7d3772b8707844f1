package main

import (
	"github.com/spf13/cobra"

	"github.com/daviddao/priosim/pkg/workload"
)

func newSampleCmd(a *app) *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Print the built-in workload as an input file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if asYAML {
				return workload.WriteYAML(a.stdout, workload.Sample())
			}
			return workload.Write(a.stdout, workload.Sample())
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "YAML instead of the text format")
	return cmd
}

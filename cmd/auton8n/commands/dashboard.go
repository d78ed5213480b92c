package commands

import (
	"github.com/spf13/cobra"

	"github.com/auton8n-git/auton8n/pkg/report"
)

func newDashboardCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show collection statistics",
		Long: `Analyze every workflow and render a terminal dashboard: verdicts, top
categories and integrations, complexity and trigger distributions, node
statistics, common integration pairs and deprecated node types.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			batch, err := a.run(cmd.Context(), runOptions{command: "dashboard"})
			if err != nil {
				return err
			}

			if a.json {
				return a.printJSON(batch.Summary)
			}
			return report.WriteDashboard(a.out, batch.Summary)
		},
	}

	return cmd
}

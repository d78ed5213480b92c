package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/auton8n-git/auton8n/pkg/engine"
	"github.com/auton8n-git/auton8n/pkg/query"
)

func newExportCommand(opts *rootOptions) *cobra.Command {
	var (
		where  string
		format string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export analysis results, optionally filtered",
		Long: `Analyze every workflow and print the results that match a Starlark
filter expression.

The expression sees, per workflow: ref, name, workflow_id, description,
verdict, category, tier, complexity, trigger, active, valid,
has_credentials, node_count, integrations, node_types, tags, issues,
deprecated and advisories.`,
		Example: `  # Production-ready Slack workflows
  auton8n export --where 'verdict == "production_ready" and "slack" in integrations'

  # Large webhook workflows, refs only
  auton8n export --where 'trigger == "Webhook" and node_count > 20' --format refs`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "refs" {
				return fmt.Errorf("invalid format %q (must be 'json' or 'refs')", format)
			}

			filter, err := query.Compile(where)
			if err != nil {
				return err
			}

			a, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			batch, err := a.run(cmd.Context(), runOptions{command: "export"})
			if err != nil {
				return err
			}

			selected, err := filter.Select(cmd.Context(), batch.Results)
			if err != nil {
				return err
			}
			a.logger.Debug().
				Str("where", filter.String()).
				Int("matched", len(selected)).
				Int("total", len(batch.Results)).
				Msg("Filter applied")

			if format == "refs" {
				for _, ref := range refs(selected) {
					fmt.Fprintln(a.out, ref)
				}
				return nil
			}
			if selected == nil {
				selected = []*engine.Result{}
			}
			return a.printJSON(selected)
		},
	}

	cmd.Flags().StringVar(&where, "where", "True", "Starlark filter expression")
	cmd.Flags().StringVar(&format, "format", "json", "output format (json, refs)")

	return cmd
}

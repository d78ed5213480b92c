package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/auton8n-git/auton8n/pkg/engine"
	"github.com/auton8n-git/auton8n/pkg/report"
)

func newClassifyCommand(opts *rootOptions) *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Sort workflows into per-verdict import lists",
		Long: `Classify every workflow by usability verdict and write one list per
verdict to the output directory, together with a README describing the
buckets and an import_workflows.sh helper for the n8n CLI.

Verdicts, most severe first:
  corrupted           cannot be parsed
  security_risk       uses command execution nodes
  cloud_incompatible  uses local file system nodes
  needs_trigger       has no trigger, or has structural defects
  production_ready    ready to import`,
		Example: `  # Write lists to ./workflow_lists
  auton8n classify --output ./workflow_lists

  # Prefix refs with the path the importing host sees
  auton8n classify --prefix /srv/n8n/workflows`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			batch, err := a.run(cmd.Context(), runOptions{command: "classify"})
			if err != nil {
				return err
			}

			if prefix == "" {
				prefix = a.cfg.ListPrefix
			}
			buckets, err := report.WriteBuckets(a.cfg.Output, batch.Results, prefix)
			if err != nil {
				return err
			}

			if a.json {
				if err := a.printJSON(buckets); err != nil {
					return err
				}
			} else {
				a.printVerdicts(batch.Summary)
				fmt.Fprintf(a.out, "\nLists written to %s\n", a.cfg.Output)
				for _, v := range engine.Verdicts {
					fmt.Fprintf(a.out, "  %s (%d)\n", report.FileName(v), len(buckets[v]))
				}
			}

			return a.checkFailOn(batch)
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "path prepended to every ref in the lists")

	return cmd
}

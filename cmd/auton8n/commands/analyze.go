package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/auton8n-git/auton8n/pkg/report"
)

// Analysis file names written by analyze.
const (
	analysisReportFile = "workflow_analysis_report.txt"
	analysisJSONFile   = "workflow_analysis.json"
)

func newAnalyzeCommand(opts *rootOptions) *cobra.Command {
	var (
		uncategorized bool
		top           int
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Write the workflow analysis report",
		Long: `Analyze every workflow and write a text report and a JSON export, both
grouped by category, to the output directory.

With --uncategorized, list instead the integrations of workflows no
category rule matched; these are candidates for new table entries.`,
		Example: `  # Write workflow_analysis_report.txt and workflow_analysis.json
  auton8n analyze

  # Find integrations missing from the reference tables
  auton8n analyze --uncategorized --top 20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			batch, err := a.run(cmd.Context(), runOptions{command: "analyze"})
			if err != nil {
				return err
			}

			if uncategorized {
				gaps := report.FindGaps(batch.Results, top)
				if a.json {
					return a.printJSON(gaps)
				}
				return gaps.WriteText(a.out)
			}

			analysis := report.BuildAnalysis(batch)
			if err := os.MkdirAll(a.cfg.Output, 0o755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
			if err := writeFile(filepath.Join(a.cfg.Output, analysisReportFile), analysis.WriteText); err != nil {
				return err
			}
			if err := writeFile(filepath.Join(a.cfg.Output, analysisJSONFile), analysis.WriteJSON); err != nil {
				return err
			}

			if a.json {
				return a.printJSON(analysis.Statistics)
			}
			a.printVerdicts(batch.Summary)
			fmt.Fprintf(a.out, "\nReport: %s\nExport: %s\n",
				filepath.Join(a.cfg.Output, analysisReportFile),
				filepath.Join(a.cfg.Output, analysisJSONFile))
			return a.checkFailOn(batch)
		},
	}

	cmd.Flags().BoolVar(&uncategorized, "uncategorized", false, "list integrations of uncategorized workflows")
	cmd.Flags().IntVar(&top, "top", 30, "number of integrations to list with --uncategorized (0 = all)")

	return cmd
}

// writeFile creates path and fills it with render.
func writeFile(path string, render func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := render(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

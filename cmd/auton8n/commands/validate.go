package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/auton8n-git/auton8n/pkg/report"
)

// Report file names written by validate.
const (
	validationReportFile = "workflow_validation_report.json"
	problematicFile      = "problematic_workflows.txt"
)

func newValidateCommand(opts *rootOptions) *cobra.Command {
	var noFiles bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate workflow structure",
		Long: `Validate every workflow under the workflows directory.

This command checks:
  - JSON syntax
  - required top-level fields (nodes, connections)
  - required node fields (type, name, position, parameters)
  - duplicate node names
  - deprecated and risky node types

The validation report and the list of problematic workflows are written
to the output directory.`,
		Example: `  # Validate the configured workflows directory
  auton8n validate

  # Validate another directory and fail on unusable workflows
  auton8n validate --workflows ./export --fail-on corrupted`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			batch, err := a.run(cmd.Context(), runOptions{command: "validate"})
			if err != nil {
				return err
			}

			rep := report.BuildValidation(batch.Results, a.holder.Get(), batch.CompletedAt)

			if !noFiles {
				if err := writeValidationFiles(a.cfg.Output, rep); err != nil {
					return err
				}
				a.logger.Info().Str("dir", a.cfg.Output).Msg("Validation report written")
			}

			if a.json {
				if err := rep.WriteJSON(a.out); err != nil {
					return err
				}
			} else if err := rep.WriteText(a.out); err != nil {
				return err
			}

			return a.checkFailOn(batch)
		},
	}

	cmd.Flags().BoolVar(&noFiles, "no-files", false, "print the report without writing report files")

	return cmd
}

func writeValidationFiles(dir string, rep *report.ValidationReport) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := writeFile(filepath.Join(dir, validationReportFile), rep.WriteJSON); err != nil {
		return err
	}
	if !rep.HasProblems() {
		return nil
	}
	return writeFile(filepath.Join(dir, problematicFile), rep.WriteProblematic)
}

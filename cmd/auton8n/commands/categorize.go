package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/auton8n-git/auton8n/pkg/engine"
)

func newCategorizeCommand(opts *rootOptions) *cobra.Command {
	var (
		recategorize bool
		dryRun       bool
		backup       bool
	)

	cmd := &cobra.Command{
		Use:   "categorize",
		Short: "Assign categories and write metadata back into workflows",
		Long: `Resolve a category for every workflow from its integrations and write
the metadata block (category, integrations, description, complexity,
trigger type, verdict) back into each file.

Categories already present are kept unless --recategorize is given.
Resolution tries, in order: override substrings, the canonical table, and
fuzzy matching against canonical keys.`,
		Example: `  # Categorize and write back, keeping a .bak of each file
  auton8n categorize --backup

  # Show what would change without writing
  auton8n categorize --dry-run --recategorize`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := opts.loader.Viper()
			if cmd.Flags().Changed("recategorize") {
				v.Set("recategorize", recategorize)
			}
			if cmd.Flags().Changed("backup") {
				v.Set("backup", backup)
			}

			a, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			batch, err := a.run(cmd.Context(), runOptions{command: "categorize", writeBack: !dryRun})
			if err != nil {
				return err
			}

			s := batch.Summary
			if a.json {
				return a.printJSON(s)
			}

			fmt.Fprintf(a.out, "Categorized %d of %d loaded workflows (%.1f%%)\n",
				s.Categorized(), s.Loaded(), percent(s.Categorized(), s.Loaded()))
			for _, t := range []engine.Tier{engine.TierPrior, engine.TierOverride, engine.TierCanonical, engine.TierFuzzy, engine.TierNone} {
				fmt.Fprintf(a.out, "  %-10s %6d\n", t, s.ByTier[t])
			}
			fmt.Fprintln(a.out, "\nCategories:")
			for _, c := range s.TopCategories(0) {
				fmt.Fprintf(a.out, "  %-40s %6d\n", c.Key, c.Count)
			}
			if dryRun {
				fmt.Fprintln(a.out, "\nDry run: no files were modified")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&recategorize, "recategorize", false, "replace categories already present")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "do not write metadata back")
	cmd.Flags().BoolVar(&backup, "backup", false, "keep a one-time .json.bak copy of each modified file")

	return cmd
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) * 100 / float64(total)
}

package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/auton8n-git/auton8n/pkg/catalog"
	"github.com/auton8n-git/auton8n/pkg/engine"
)

func newTablesCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "Inspect the reference tables",
		Long: `Inspect the reference tables used for integration extraction, category
resolution and compatibility classification: the canonical category
table, override rules, the stop-list, deprecated node types and trigger
keywords. A tables file given with --tables is merged over the built-in
tables.`,
	}

	cmd.AddCommand(newTablesShowCommand(opts))
	cmd.AddCommand(newTablesCheckCommand(opts))
	cmd.AddCommand(newTablesResolveCommand(opts))

	return cmd
}

func newTablesShowCommand(opts *rootOptions) *cobra.Command {
	var dump bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show table sizes and categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			tables := a.holder.Get()
			if dump {
				src := catalog.Source{
					Canonical:       tables.Canonical(),
					Overrides:       tables.Overrides(),
					StopList:        tables.StopList(),
					Deprecated:      tables.DeprecatedEntries(),
					TriggerKeywords: tables.TriggerKeywords(),
				}
				enc := yaml.NewEncoder(a.out)
				enc.SetIndent(2)
				if err := enc.Encode(src); err != nil {
					return fmt.Errorf("failed to encode tables: %w", err)
				}
				return enc.Close()
			}

			stats := tables.Stats()
			if a.json {
				return a.printJSON(struct {
					Origin     string        `json:"origin"`
					Stats      catalog.Stats `json:"stats"`
					Categories []string      `json:"categories"`
				}{tables.Origin(), stats, tables.Categories()})
			}

			fmt.Fprintf(a.out, "Origin: %s\n\n", tables.Origin())
			fmt.Fprintf(a.out, "  canonical entries  %5d\n", stats.Canonical)
			fmt.Fprintf(a.out, "  override rules     %5d\n", stats.Overrides)
			fmt.Fprintf(a.out, "  stop-list          %5d\n", stats.StopList)
			fmt.Fprintf(a.out, "  deprecated types   %5d\n", stats.Deprecated)
			fmt.Fprintf(a.out, "  trigger keywords   %5d\n", stats.Triggers)
			fmt.Fprintf(a.out, "\nCategories (%d):\n", stats.Categories)
			for _, c := range tables.Categories() {
				fmt.Fprintf(a.out, "  %s\n", c)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dump, "dump", false, "print the merged tables as YAML")

	return cmd
}

func newTablesCheckCommand(opts *rootOptions) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report table entries that can never match or shadow others",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			findings := a.holder.Get().Lint()
			if a.json {
				if findings == nil {
					findings = []catalog.Finding{}
				}
				if err := a.printJSON(findings); err != nil {
					return err
				}
			} else {
				for _, f := range findings {
					fmt.Fprintln(a.out, f.String())
				}
				fmt.Fprintf(a.out, "%d finding(s)\n", len(findings))
			}

			if strict && len(findings) > 0 {
				return engine.NewConfigError("reference tables have findings", fmt.Errorf("%d finding(s)", len(findings)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when there are findings")

	return cmd
}

func newTablesResolveCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <identifier>...",
		Short: "Show how identifiers resolve to a category",
		Example: `  auton8n tables resolve slack
  auton8n tables resolve slak googlesheets`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			resolver := engine.NewResolver(a.holder.Get())
			results := make([]engine.Resolution, 0, len(args)+1)
			for _, id := range args {
				results = append(results, resolver.Resolve([]string{id}))
			}
			combined := resolver.Resolve(args)

			if a.json {
				return a.printJSON(struct {
					Identifiers []engine.Resolution `json:"identifiers"`
					Combined    engine.Resolution   `json:"combined"`
				}{results, combined})
			}

			for i, id := range args {
				printResolution(a, id, results[i])
			}
			if len(args) > 1 {
				printResolution(a, "(all)", combined)
			}
			return nil
		},
	}
}

func printResolution(a *app, id string, r engine.Resolution) {
	if !r.Resolved() {
		fmt.Fprintf(a.out, "%-20s -> %s (no match)\n", id, r.Category)
		return
	}
	fmt.Fprintf(a.out, "%-20s -> %s (%s, key %q, score %.2f)\n", id, r.Category, r.Tier, r.Key, r.Score)
}

package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/auton8n-git/auton8n/pkg/config"
)

// rootOptions holds the global flags and the configuration loader shared by
// every subcommand.
type rootOptions struct {
	loader     *config.Loader
	configPath string
	verbose    bool
	jsonOutput bool
	version    string
}

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	opts := &rootOptions{
		loader:  config.NewLoader(),
		version: version,
	}

	rootCmd := &cobra.Command{
		Use:   "auton8n",
		Short: "auton8n - n8n workflow classification engine",
		Long: `auton8n classifies collections of n8n workflow exports.

For every workflow it:
  - extracts the third-party integrations used by its nodes
  - resolves a topical category from the integrations
  - validates the workflow structure
  - assigns a usability verdict (production_ready, needs_trigger,
    cloud_incompatible, security_risk, corrupted)

Results can be written back into the workflow files, exported as
per-verdict import lists and reports, or indexed into SQLite for search.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "config file path")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose output")
	flags.BoolVar(&opts.jsonOutput, "json", false, "output in JSON format")

	flags.String("workflows", "", "workflows directory")
	flags.String("tables", "", "reference tables file (YAML, JSON or CUE)")
	flags.String("database", "", "SQLite index path")
	flags.String("output", "", "output directory for reports and lists")
	flags.Int("workers", 0, "worker pool size (0 = one per CPU)")
	flags.StringSlice("fail-on", nil, "exit non-zero when any workflow gets one of these verdicts")
	flags.Bool("policies", false, "evaluate advisory policies")

	v := opts.loader.Viper()
	for key, flag := range map[string]string{
		"workflows":        "workflows",
		"tables":           "tables",
		"database":         "database",
		"output":           "output",
		"workers":          "workers",
		"fail_on":          "fail-on",
		"policies.enabled": "policies",
	} {
		// The flags are defined above, so Lookup never returns nil.
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}

	rootCmd.AddCommand(newValidateCommand(opts))
	rootCmd.AddCommand(newClassifyCommand(opts))
	rootCmd.AddCommand(newCategorizeCommand(opts))
	rootCmd.AddCommand(newAnalyzeCommand(opts))
	rootCmd.AddCommand(newDashboardCommand(opts))
	rootCmd.AddCommand(newExportCommand(opts))
	rootCmd.AddCommand(newDBCommand(opts))
	rootCmd.AddCommand(newTablesCommand(opts))
	rootCmd.AddCommand(newPoliciesCommand(opts))
	rootCmd.AddCommand(newWatchCommand(opts))

	return rootCmd
}

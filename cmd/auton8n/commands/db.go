package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/auton8n-git/auton8n/pkg/engine"
	"github.com/auton8n-git/auton8n/pkg/stores"
)

func newDBCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the SQLite workflow index",
		Long: `Manage the SQLite index of classified workflows.

The index holds one row per workflow with its category, verdict, trigger
type and complexity, the validation issues of each workflow, a full-text
search table, and a history of classification runs.`,
	}

	cmd.AddCommand(newDBRebuildCommand(opts))
	cmd.AddCommand(newDBSyncCommand(opts))
	cmd.AddCommand(newDBSearchCommand(opts))
	cmd.AddCommand(newDBShowCommand(opts))
	cmd.AddCommand(newDBListCommand(opts))
	cmd.AddCommand(newDBStatsCommand(opts))
	cmd.AddCommand(newDBRunsCommand(opts))

	return cmd
}

// withIndex runs fn with an opened index and closes it afterwards.
func withIndex(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app, index *stores.SQLiteStore) error) error {
	a, err := opts.setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	index, err := a.openIndex(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := index.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to close index")
		}
	}()

	return fn(ctx, a, index)
}

// indexRun analyzes every workflow into the index under a recorded run, then
// drops rows of workflows that no longer exist.
func indexRun(ctx context.Context, a *app, index *stores.SQLiteStore, command string) (*engine.Batch, error) {
	run, err := index.CreateRun(ctx, command, a.cfg.Workflows)
	if err != nil {
		return nil, err
	}
	logger := a.logger.With().Str("run_id", run.ID).Logger()
	logger.Info().Str("root", a.cfg.Workflows).Msg("Indexing workflows")

	batch, runErr := a.run(ctx, runOptions{command: command, sink: index.ResultSink(run.ID)})

	var summary *engine.Summary
	if batch != nil {
		summary = batch.Summary
	}
	// The run row is finished even when ctx was cancelled.
	if err := index.CompleteRun(context.WithoutCancel(ctx), run.ID, summary, runErr); err != nil {
		logger.Error().Err(err).Msg("Failed to record run completion")
	}
	if runErr != nil {
		return batch, runErr
	}

	pruned, err := index.Prune(ctx, refs(batch.Results))
	if err != nil {
		return batch, err
	}
	logger.Info().
		Int("indexed", len(batch.Results)).
		Int64("pruned", pruned).
		Msg("Index updated")

	return batch, nil
}

func newDBRebuildCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Drop and rebuild the index from the workflows directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withIndex(cmd, opts, func(ctx context.Context, a *app, index *stores.SQLiteStore) error {
				if err := index.Reset(ctx); err != nil {
					return err
				}
				batch, err := indexRun(ctx, a, index, "db rebuild")
				if err != nil {
					return err
				}
				return printIndexStats(ctx, a, index, batch)
			})
		},
	}
}

func newDBSyncCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Update the index in place from the workflows directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withIndex(cmd, opts, func(ctx context.Context, a *app, index *stores.SQLiteStore) error {
				batch, err := indexRun(ctx, a, index, "db sync")
				if err != nil {
					return err
				}
				return printIndexStats(ctx, a, index, batch)
			})
		},
	}
}

func printIndexStats(ctx context.Context, a *app, index *stores.SQLiteStore, batch *engine.Batch) error {
	stats, err := index.Stats(ctx)
	if err != nil {
		return err
	}
	if a.json {
		return a.printJSON(stats)
	}
	a.printVerdicts(batch.Summary)
	fmt.Fprintf(a.out, "\nIndex: %d workflows, %d issues, %d runs\n", stats.Workflows, stats.Issues, stats.Runs)
	return nil
}

func newDBSearchCommand(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Full-text search over names, descriptions, integrations and categories",
		Example: `  auton8n db search slack
  auton8n db search "google sheets" --limit 50`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withIndex(cmd, opts, func(ctx context.Context, a *app, index *stores.SQLiteStore) error {
				hits, err := index.Search(ctx, args[0], limit)
				if err != nil {
					return err
				}
				if a.json {
					return a.printJSON(hits)
				}
				if len(hits) == 0 {
					fmt.Fprintln(a.out, "No matches")
					return nil
				}
				for _, h := range hits {
					fmt.Fprintf(a.out, "%s  [%s] %s\n    %s\n", h.Ref, h.Verdict, h.Category, h.Snippet)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of results")

	return cmd
}

func newDBShowCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <ref>",
		Short: "Show one indexed workflow and its issues",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withIndex(cmd, opts, func(ctx context.Context, a *app, index *stores.SQLiteStore) error {
				wf, err := index.GetWorkflow(ctx, args[0])
				if err != nil {
					return err
				}
				issues, err := index.ListIssues(ctx, wf.Ref)
				if err != nil {
					return err
				}

				if a.json {
					return a.printJSON(struct {
						*stores.Workflow
						Issues []*stores.Issue `json:"issues"`
					}{wf, issues})
				}

				fmt.Fprintf(a.out, "%s (%s)\n", wf.Ref, wf.Name)
				fmt.Fprintf(a.out, "  verdict:      %s\n", wf.Verdict)
				fmt.Fprintf(a.out, "  category:     %s (%s)\n", wf.Category, wf.Tier)
				fmt.Fprintf(a.out, "  trigger:      %s\n", wf.TriggerType)
				fmt.Fprintf(a.out, "  complexity:   %s (%d nodes)\n", wf.Complexity, wf.NodeCount)
				fmt.Fprintf(a.out, "  integrations: %v\n", wf.Integrations)
				fmt.Fprintf(a.out, "  description:  %s\n", wf.Description)
				for _, i := range issues {
					fmt.Fprintf(a.out, "  [%s] %s: %s\n", i.Severity, i.Kind, i.Message)
				}
				return nil
			})
		},
	}
}

func newDBListCommand(opts *rootOptions) *cobra.Command {
	var filter stores.Filter

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List indexed workflows",
		Example: `  auton8n db list --verdict security_risk
  auton8n db list --category "AI Agent Development" --limit 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withIndex(cmd, opts, func(ctx context.Context, a *app, index *stores.SQLiteStore) error {
				workflows, err := index.ListWorkflows(ctx, filter)
				if err != nil {
					return err
				}
				if a.json {
					return a.printJSON(workflows)
				}
				for _, wf := range workflows {
					fmt.Fprintf(a.out, "%-50s %-20s %s\n", wf.Ref, wf.Verdict, wf.Category)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&filter.Category, "category", "", "filter by category")
	cmd.Flags().StringVar(&filter.Verdict, "verdict", "", "filter by verdict")
	cmd.Flags().StringVar(&filter.TriggerType, "trigger", "", "filter by trigger type")
	cmd.Flags().StringVar(&filter.Complexity, "complexity", "", "filter by complexity")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "maximum number of rows (0 = all)")
	cmd.Flags().IntVar(&filter.Offset, "offset", 0, "rows to skip")

	return cmd
}

func newDBStatsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withIndex(cmd, opts, func(ctx context.Context, a *app, index *stores.SQLiteStore) error {
				stats, err := index.Stats(ctx)
				if err != nil {
					return err
				}
				if a.json {
					return a.printJSON(stats)
				}
				fmt.Fprintf(a.out, "Workflows: %d\nIssues:    %d\nRuns:      %d\n", stats.Workflows, stats.Issues, stats.Runs)
				fmt.Fprintln(a.out, "\nBy verdict:")
				for _, c := range engine.Ranked(stats.ByVerdict, 0) {
					fmt.Fprintf(a.out, "  %-40s %6d\n", c.Key, c.Count)
				}
				fmt.Fprintln(a.out, "\nBy category:")
				for _, c := range engine.Ranked(stats.ByCategory, 0) {
					fmt.Fprintf(a.out, "  %-40s %6d\n", c.Key, c.Count)
				}
				return nil
			})
		},
	}
}

func newDBRunsCommand(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent indexing runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withIndex(cmd, opts, func(ctx context.Context, a *app, index *stores.SQLiteStore) error {
				runs, err := index.ListRuns(ctx, limit, 0)
				if err != nil {
					return err
				}
				if a.json {
					return a.printJSON(runs)
				}
				for _, r := range runs {
					fmt.Fprintf(a.out, "%s  %-10s %-10s %s  total=%d failures=%d\n",
						r.ID, r.Command, r.Status, r.StartedAt.Format("2006-01-02 15:04:05"), r.Total, r.Failures)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of runs")

	return cmd
}

package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/auton8n-git/auton8n/pkg/catalog"
	"github.com/auton8n-git/auton8n/pkg/engine"
	"github.com/auton8n-git/auton8n/pkg/stores"
	"github.com/auton8n-git/auton8n/pkg/workflow"
)

func newWatchCommand(opts *rootOptions) *cobra.Command {
	var (
		metricsAddr string
		withIndex   bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-classify workflows as they change",
		Long: `Classify every workflow once, then keep watching the workflows directory
and re-classify each record that is created or modified.

When a tables file is configured it is watched too: a change swaps the
tables atomically and re-classifies the whole collection. Custom policy
directories are reloaded the same way. Metadata is written back only when
write_back is enabled in the configuration.`,
		Example: `  # Keep the index current and expose Prometheus metrics
  auton8n watch --index --metrics-addr :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if metricsAddr != "" {
				v := opts.loader.Viper()
				v.Set("metrics.enabled", true)
				v.Set("metrics.listen_address", metricsAddr)
			}

			a, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			w := &watchLoop{app: a}

			if withIndex {
				index, err := a.openIndex(ctx)
				if err != nil {
					return err
				}
				defer func() {
					if err := index.Close(); err != nil {
						a.logger.Warn().Err(err).Msg("Failed to close index")
					}
				}()
				w.index = index
			}

			return w.run(ctx)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().BoolVar(&withIndex, "index", false, "keep the SQLite index in sync")

	return cmd
}

// watchLoop re-runs classification on record, table and policy changes.
type watchLoop struct {
	app     *app
	index   *stores.SQLiteStore
	advisor engine.AdvisoryEvaluator
}

func (w *watchLoop) run(ctx context.Context) error {
	a := w.app

	if err := a.tel.Metrics.StartMetricsServer(ctx, a.logger); err != nil {
		return err
	}

	pol, err := a.policyEngine(ctx, "watch")
	if err != nil {
		return err
	}
	if pol != nil {
		w.advisor = pol
		if len(a.cfg.Policies.Paths) > 0 {
			if err := pol.Watch(ctx, a.cfg.Policies.Paths); err != nil {
				return fmt.Errorf("failed to watch policies: %w", err)
			}
		}
	}

	if err := w.batch(ctx, nil); err != nil {
		return err
	}

	errc := make(chan error, 2)
	changes := make(chan []string, 1)
	go func() {
		errc <- workflow.NewWatcher(a.records, a.logger).Run(ctx, changes)
	}()

	reloads := make(chan struct{}, 1)
	if a.cfg.Tables != "" {
		tw := catalog.NewWatcher(a.cfg.Tables, a.holder, a.logger, func(*catalog.Tables) {
			a.tel.Metrics.RecordTableReload(nil)
			select {
			case reloads <- struct{}{}:
			default:
			}
		})
		go func() {
			errc <- tw.Run(ctx)
		}()
	}

	a.logger.Info().Str("root", a.records.Root()).Msg("Watching workflows")

	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-errc:
			if err != nil {
				return err
			}

		case <-reloads:
			if err := w.batch(ctx, nil); err != nil {
				return err
			}

		case changed := <-changes:
			present, removed := w.split(changed)
			if len(present) > 0 {
				if err := w.batch(ctx, present); err != nil {
					return err
				}
			}
			if removed > 0 {
				w.prune(ctx)
			}
		}
	}
}

// batch runs one classification pass over refs, or over every record when
// refs is nil. Cancellation ends the loop quietly.
func (w *watchLoop) batch(ctx context.Context, refs []string) error {
	a := w.app
	ro := runOptions{
		command:   "watch",
		writeBack: a.cfg.WriteBack,
		advisor:   w.advisor,
		refs:      refs,
	}

	var runID string
	if w.index != nil {
		run, err := w.index.CreateRun(ctx, "watch", a.cfg.Workflows)
		if err != nil {
			return err
		}
		runID = run.ID
		ro.sink = w.index.ResultSink(run.ID)
	}

	batch, err := a.run(ctx, ro)

	if w.index != nil {
		var summary *engine.Summary
		if batch != nil {
			summary = batch.Summary
		}
		if cerr := w.index.CompleteRun(context.WithoutCancel(ctx), runID, summary, err); cerr != nil {
			a.logger.Error().Err(cerr).Msg("Failed to record run completion")
		}
	}

	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	s := batch.Summary
	a.logger.Info().
		Int("records", s.Total).
		Int("failures", len(s.Failures)).
		Int("ready", s.ByVerdict[engine.VerdictProductionReady]).
		Msg("Batch classified")
	return nil
}

// split separates refs that still exist from refs that were removed.
func (w *watchLoop) split(refs []string) ([]string, int) {
	present := make([]string, 0, len(refs))
	removed := 0
	for _, ref := range refs {
		path, err := w.app.records.Path(ref)
		if err != nil {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			removed++
			continue
		}
		present = append(present, ref)
	}
	return present, removed
}

// prune drops index rows of records that no longer exist.
func (w *watchLoop) prune(ctx context.Context) {
	if w.index == nil {
		return
	}
	a := w.app
	keep, err := a.records.List(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Failed to list workflows")
		return
	}
	n, err := w.index.Prune(ctx, keep)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Failed to prune index")
		return
	}
	a.logger.Info().Int64("pruned", n).Msg("Index pruned")
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/auton8n-git/auton8n/pkg/catalog"
	"github.com/auton8n-git/auton8n/pkg/config"
	"github.com/auton8n-git/auton8n/pkg/engine"
	"github.com/auton8n-git/auton8n/pkg/policy"
	"github.com/auton8n-git/auton8n/pkg/stores"
	"github.com/auton8n-git/auton8n/pkg/telemetry"
	"github.com/auton8n-git/auton8n/pkg/workflow"
)

// Exit codes returned by the binary.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitConfig   = 2
	ExitVerdicts = 3
)

// FailOnError reports verdicts listed in --fail-on that occurred in a batch.
type FailOnError struct {
	Counts map[engine.Verdict]int
}

func (e *FailOnError) Error() string {
	parts := make([]string, 0, len(e.Counts))
	for _, v := range engine.Verdicts {
		if n, ok := e.Counts[v]; ok {
			parts = append(parts, fmt.Sprintf("%s=%d", v, n))
		}
	}
	return "fail-on verdicts present: " + strings.Join(parts, ", ")
}

// ExitCode maps a command error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var failOn *FailOnError
	switch {
	case errors.As(err, &failOn):
		return ExitVerdicts
	case engine.IsConfig(err):
		return ExitConfig
	default:
		return ExitFailure
	}
}

// app is the per-invocation wiring shared by the subcommands.
type app struct {
	cfg     *config.Config
	tel     *telemetry.Telemetry
	logger  zerolog.Logger
	holder  *catalog.Holder
	records *workflow.FileStore
	out     io.Writer
	json    bool
}

// setup loads the configuration and builds telemetry, tables and the record
// store. Configuration and table errors are classified as config errors.
func (o *rootOptions) setup(cmd *cobra.Command) (*app, error) {
	cfg, err := o.loader.Load(o.configPath)
	if err != nil {
		return nil, engine.NewConfigError("failed to load configuration", err)
	}
	if o.verbose {
		cfg.Logging.Level = "debug"
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	tel, err := telemetry.NewTelemetry(cfg.Telemetry(o.version))
	if err != nil {
		return nil, engine.NewConfigError("failed to initialize telemetry", err)
	}
	logger := tel.Logger.Zerolog()

	tables, err := catalog.Load(cfg.Tables)
	if err != nil {
		return nil, engine.NewConfigError("failed to load reference tables", err)
	}
	stats := tables.Stats()
	logger.Debug().
		Str("origin", tables.Origin()).
		Int("canonical", stats.Canonical).
		Int("overrides", stats.Overrides).
		Int("stop_list", stats.StopList).
		Int("deprecated", stats.Deprecated).
		Msg("Reference tables loaded")

	return &app{
		cfg:     cfg,
		tel:     tel,
		logger:  logger,
		holder:  catalog.NewHolder(tables),
		records: workflow.NewFileStore(cfg.Workflows, workflow.WithBackup(cfg.Backup)),
		out:     cmd.OutOrStdout(),
		json:    o.jsonOutput,
	}, nil
}

// close flushes telemetry.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.tel.Shutdown(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to flush telemetry")
	}
}

// policyEngine builds the advisory policy engine, or nil when policies are
// disabled.
func (a *app) policyEngine(ctx context.Context, operation string) (*policy.Engine, error) {
	if !a.cfg.Policies.Enabled {
		return nil, nil
	}

	eng, err := policy.NewEngine(a.logger,
		policy.WithMaxNodes(a.cfg.Policies.MaxNodes),
		policy.WithOperation(operation),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create policy engine: %w", err)
	}
	if len(a.cfg.Policies.Paths) > 0 {
		if err := eng.LoadPolicies(ctx, a.cfg.Policies.Paths); err != nil {
			return nil, engine.NewConfigError("failed to load policies", err)
		}
	}
	for _, name := range a.cfg.Policies.Disabled {
		if err := eng.DisablePolicy(name); err != nil {
			return nil, engine.NewConfigError("failed to disable policy", err)
		}
	}
	return eng, nil
}

// openIndex opens and migrates the SQLite index.
func (a *app) openIndex(ctx context.Context) (*stores.SQLiteStore, error) {
	store, err := stores.Open(ctx, stores.Config{Path: a.cfg.Database})
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	return store, nil
}

// runOptions tune a single batch run.
type runOptions struct {
	command string

	// writeBack saves updated metadata into the workflow files. Only
	// categorize and watch set it.
	writeBack bool

	sink engine.ResultSink

	// advisor replaces the policy engine built from the configuration.
	advisor engine.AdvisoryEvaluator

	// refs restricts the run to these records. Nil means every record.
	refs []string
}

// run analyzes the records under the workflows directory with the current
// tables.
func (a *app) run(ctx context.Context, ro runOptions) (*engine.Batch, error) {
	rc := a.cfg.RunnerConfig()
	rc.WriteBack = ro.writeBack

	opts := []engine.RunnerOption{
		engine.WithObserver(a.tel.Metrics),
		engine.WithTracer(a.tel.Tracer.Tracer()),
	}

	if ro.advisor != nil {
		opts = append(opts, engine.WithAdvisor(ro.advisor))
	} else {
		advisor, err := a.policyEngine(ctx, ro.command)
		if err != nil {
			return nil, err
		}
		if advisor != nil {
			opts = append(opts, engine.WithAdvisor(advisor))
		}
	}
	if ro.sink != nil {
		opts = append(opts, engine.WithSink(ro.sink))
	}

	op := telemetry.StartOperation(a.tel.WithContext(ctx), "command."+ro.command,
		telemetry.AttrCommand.String(ro.command))

	analyzer := engine.NewAnalyzer(a.holder.Get())
	runner := engine.NewRunner(analyzer, a.records, op.Logger.Zerolog(), rc, opts...)

	var (
		batch *engine.Batch
		err   error
	)
	if ro.refs != nil {
		batch, err = runner.Run(op.Ctx, ro.refs)
	} else {
		batch, err = runner.RunAll(op.Ctx, a.records)
	}
	op.End(err)
	if err != nil {
		return batch, err
	}
	logger := op.Logger.Zerolog()
	logger.Debug().Dur("duration", op.Timer.Duration()).Msg("Batch finished")

	a.logFailures(batch)
	return batch, nil
}

// logFailures logs each accumulated per-record failure once.
func (a *app) logFailures(batch *engine.Batch) {
	for _, f := range batch.Summary.Failures {
		a.logger.Warn().Str("ref", f.Ref).Err(f.Err).Msg("Record failed")
	}
}

// checkFailOn returns a FailOnError when the batch holds any configured
// fail-on verdict.
func (a *app) checkFailOn(batch *engine.Batch) error {
	verdicts, err := a.cfg.FailVerdicts()
	if err != nil {
		return engine.NewConfigError("invalid fail-on verdict", err)
	}

	counts := map[engine.Verdict]int{}
	for _, v := range verdicts {
		if n := batch.Summary.ByVerdict[v]; n > 0 {
			counts[v] = n
		}
	}
	if len(counts) == 0 {
		return nil
	}
	return &FailOnError{Counts: counts}
}

// printJSON writes v as indented JSON.
func (a *app) printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(a.out, string(data))
	return err
}

// printVerdicts writes the verdict breakdown of a summary.
func (a *app) printVerdicts(s *engine.Summary) {
	fmt.Fprintf(a.out, "Processed %d workflows (%d loaded, %d failures)\n", s.Total, s.Loaded(), len(s.Failures))
	for _, v := range engine.Verdicts {
		fmt.Fprintf(a.out, "  %-20s %6d  %5.1f%%\n", v, s.ByVerdict[v], s.Percent(s.ByVerdict[v]))
	}
}

// refs returns the refs of results, sorted.
func refs(results []*engine.Result) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Ref)
	}
	sort.Strings(out)
	return out
}

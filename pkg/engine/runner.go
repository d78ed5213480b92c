package engine

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// progressEvery is how often, in records, batch progress is logged.
const progressEvery = 100

// RunnerConfig controls a batch run.
type RunnerConfig struct {
	// Workers is the worker pool size. Zero means runtime.NumCPU().
	Workers int

	// WriteBack saves the updated metadata block of every loaded record.
	WriteBack bool

	// Recategorize resolves categories even for records that already have one.
	Recategorize bool
}

// Runner analyzes a set of records with a bounded worker pool. Per-record
// failures never stop the batch.
type Runner struct {
	analyzer *Analyzer
	store    RecordStore
	logger   zerolog.Logger
	config   RunnerConfig
	observer Observer
	advisor  AdvisoryEvaluator
	sink     ResultSink
	tracer   trace.Tracer
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithObserver registers a metrics observer.
func WithObserver(o Observer) RunnerOption {
	return func(r *Runner) {
		r.observer = o
	}
}

// WithAdvisor registers an advisory evaluator, such as the policy engine.
func WithAdvisor(a AdvisoryEvaluator) RunnerOption {
	return func(r *Runner) {
		r.advisor = a
	}
}

// WithSink registers a result sink, such as the SQLite index.
func WithSink(s ResultSink) RunnerOption {
	return func(r *Runner) {
		r.sink = s
	}
}

// WithTracer sets the tracer used for batch and record spans.
func WithTracer(t trace.Tracer) RunnerOption {
	return func(r *Runner) {
		r.tracer = t
	}
}

// NewRunner creates a batch runner.
func NewRunner(analyzer *Analyzer, store RecordStore, logger zerolog.Logger, cfg RunnerConfig, opts ...RunnerOption) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	r := &Runner{
		analyzer: analyzer,
		store:    store,
		logger:   logger.With().Str("component", "runner").Logger(),
		config:   cfg,
		tracer:   otel.Tracer("github.com/auton8n-git/auton8n/pkg/engine"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Batch is the outcome of a run.
type Batch struct {
	// Results are sorted by ref.
	Results []*Result

	// Summary aggregates Results and carries the accumulated failures.
	Summary *Summary

	StartedAt   time.Time
	CompletedAt time.Time
}

// RunAll lists every record of lister and runs them.
func (r *Runner) RunAll(ctx context.Context, lister Lister) (*Batch, error) {
	refs, err := lister.List(ctx)
	if err != nil {
		return nil, NewIOError("failed to list workflows", err).WithOperation(OpListStore)
	}
	return r.Run(ctx, refs)
}

// Run analyzes refs. When ctx is cancelled no new records are started and the
// partial batch is returned together with the context error.
func (r *Runner) Run(ctx context.Context, refs []string) (*Batch, error) {
	ctx, span := r.tracer.Start(ctx, "batch.run", trace.WithAttributes(
		attribute.Int("batch.size", len(refs)),
		attribute.Bool("batch.write_back", r.config.WriteBack),
	))
	defer span.End()

	batch := &Batch{StartedAt: time.Now()}

	workerCount := r.config.Workers
	if len(refs) < workerCount {
		workerCount = len(refs)
	}

	workQueue := make(chan string, len(refs))
	for _, ref := range refs {
		workQueue <- ref
	}
	close(workQueue)

	type outcome struct {
		result   *Result
		failures []Failure
	}
	outcomes := make(chan outcome, len(refs))

	var processed atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for ref := range workQueue {
				select {
				case <-ctx.Done():
					return
				default:
				}

				res, failures := r.process(ctx, ref)
				outcomes <- outcome{result: res, failures: failures}

				if n := processed.Add(1); n%progressEvery == 0 {
					r.logger.Info().
						Int64("processed", n).
						Int("total", len(refs)).
						Msg("Batch progress")
				}
			}
		}()
	}

	wg.Wait()
	close(outcomes)

	var failures []Failure
	for o := range outcomes {
		batch.Results = append(batch.Results, o.result)
		failures = append(failures, o.failures...)
	}

	sort.Slice(batch.Results, func(i, j int) bool {
		return batch.Results[i].Ref < batch.Results[j].Ref
	})
	sort.SliceStable(failures, func(i, j int) bool {
		return failures[i].Ref < failures[j].Ref
	})

	batch.Summary = Summarize(batch.Results, failures)
	batch.CompletedAt = time.Now()
	duration := batch.CompletedAt.Sub(batch.StartedAt)

	if r.observer != nil {
		r.observer.BatchCompleted(batch.Summary, duration)
	}

	span.SetAttributes(
		attribute.Int("batch.processed", len(batch.Results)),
		attribute.Int("batch.failures", len(failures)),
	)

	r.logger.Info().
		Int("records", len(batch.Results)).
		Int("failures", len(failures)).
		Dur("duration", duration).
		Msg("Batch completed")

	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return batch, err
	}
	span.SetStatus(codes.Ok, "")
	return batch, nil
}

// process handles a single record: load, analyze, advise, write back, index.
func (r *Runner) process(ctx context.Context, ref string) (*Result, []Failure) {
	ctx, span := r.tracer.Start(ctx, "record.analyze", trace.WithAttributes(
		attribute.String("record.ref", ref),
	))
	defer span.End()

	var failures []Failure
	logger := r.logger.With().Str("ref", ref).Logger()

	rec, err := r.store.Load(ctx, ref)
	if err != nil {
		res := r.analyzer.AnalyzeError(ref, err)
		if !IsParse(res.Err) {
			failures = append(failures, Failure{Ref: ref, Err: res.Err})
		}
		logger.Warn().Err(err).Str("verdict", string(res.Verdict)).Msg("Workflow could not be loaded")
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		r.finish(ctx, res, &failures)
		return res, failures
	}

	res := r.analyzer.Analyze(rec, r.config.Recategorize)

	if r.advisor != nil {
		advisories, err := r.advisor.Advise(ctx, rec, res)
		if err != nil {
			logger.Warn().Err(err).Msg("Advisory evaluation failed")
		}
		res.Advisories = advisories
	}

	if r.config.WriteBack {
		meta := r.analyzer.UpdatedMeta(rec, res)
		if err := r.store.Save(ctx, ref, meta); err != nil {
			werr := NewIOError("failed to write back metadata", err).
				WithRef(ref).
				WithOperation(OpSave).
				WithCode(ErrCodeWriteFailed)
			failures = append(failures, Failure{Ref: ref, Err: werr})
			if r.observer != nil {
				r.observer.WriteBackFailed(ref, err)
			}
			logger.Error().Err(err).Msg("Write-back failed")
			span.RecordError(err)
		}
	}

	span.SetAttributes(
		attribute.String("record.verdict", string(res.Verdict)),
		attribute.String("record.category", res.Category),
		attribute.Int("record.issues", len(res.Report.Issues)),
	)

	logger.Debug().
		Str("verdict", string(res.Verdict)).
		Str("category", res.Category).
		Str("tier", string(res.Resolution.Tier)).
		Int("issues", len(res.Report.Issues)).
		Msg("Workflow analyzed")

	r.finish(ctx, res, &failures)
	return res, failures
}

func (r *Runner) finish(ctx context.Context, res *Result, failures *[]Failure) {
	if r.sink != nil {
		if err := r.sink.Put(ctx, res); err != nil {
			*failures = append(*failures, Failure{
				Ref: res.Ref,
				Err: NewIOError("failed to index result", err).WithRef(res.Ref).WithOperation("index"),
			})
			r.logger.Error().Err(err).Str("ref", res.Ref).Msg("Indexing failed")
		}
	}
	if r.observer != nil {
		r.observer.RecordAnalyzed(res)
	}
}

package engine

import (
	"context"
	"time"

	"github.com/auton8n-git/auton8n/pkg/workflow"
)

// RecordStore is the persistence collaborator. The engine never handles file
// paths, backups or schemas itself.
type RecordStore interface {
	// Load returns the record for ref, or an error wrapping
	// *workflow.ParseError when the document cannot be read as a record.
	Load(ctx context.Context, ref string) (*workflow.Record, error)

	// Save writes an updated metadata block for ref.
	Save(ctx context.Context, ref string, meta workflow.Meta) error
}

// Lister enumerates record references.
type Lister interface {
	List(ctx context.Context) ([]string, error)
}

// Matcher is one tier of category resolution. Implementations must be pure
// functions of their input and the tables they were built from.
type Matcher interface {
	// Tier names the strategy.
	Tier() Tier

	// Match returns the category for a single identifier.
	Match(id string) (Resolution, bool)
}

// AdvisoryEvaluator produces non-binding findings for a record, such as
// policy checks.
type AdvisoryEvaluator interface {
	Advise(ctx context.Context, rec *workflow.Record, result *Result) ([]Advisory, error)
}

// Observer receives per-record and per-batch notifications, for metrics.
type Observer interface {
	RecordAnalyzed(result *Result)
	WriteBackFailed(ref string, err error)
	BatchCompleted(summary *Summary, duration time.Duration)
}

// ResultSink receives finished results, for example to index them.
type ResultSink interface {
	Put(ctx context.Context, result *Result) error
}

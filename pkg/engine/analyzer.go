package engine

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/auton8n-git/auton8n/pkg/catalog"
	"github.com/auton8n-git/auton8n/pkg/workflow"
)

// Complexity score weights and bucket bounds.
const (
	complexityNodeWeight        = 0.6
	complexityIntegrationWeight = 0.4
	complexityLowBelow          = 5
	complexityMediumBelow       = 15
)

// Analyzer runs the pure per-record pass: extraction, category resolution,
// validation and classification. It performs no I/O.
type Analyzer struct {
	tables     *catalog.Tables
	extractor  *Extractor
	resolver   *Resolver
	validator  *Validator
	classifier *Classifier
	clock      func() time.Time
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithResolver replaces the category resolver.
func WithResolver(r *Resolver) AnalyzerOption {
	return func(a *Analyzer) {
		a.resolver = r
	}
}

// WithClock sets the time source used for analyzed_at stamps.
func WithClock(clock func() time.Time) AnalyzerOption {
	return func(a *Analyzer) {
		a.clock = clock
	}
}

// NewAnalyzer creates an analyzer over tables.
func NewAnalyzer(tables *catalog.Tables, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		tables:     tables,
		extractor:  NewExtractor(tables),
		resolver:   NewResolver(tables),
		validator:  NewValidator(tables),
		classifier: NewClassifier(tables),
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Tables returns the tables the analyzer was built with.
func (a *Analyzer) Tables() *catalog.Tables {
	return a.tables
}

// Analyze classifies a loaded record. A prior non-default category is kept
// unless recategorize is set.
func (a *Analyzer) Analyze(rec *workflow.Record, recategorize bool) *Result {
	start := time.Now()

	ids := a.extractor.ExtractAll(rec)
	resolution := a.resolver.Categorize(rec.Meta.Category, ids, recategorize)
	report := a.validator.Validate(rec)
	verdict := a.classifier.ClassifyRecord(rec, report)

	nodeTypes := rec.NodeTypes()
	nodeCount := len(rec.Nodes())
	complexity := ComplexityOf(nodeCount, len(ids))
	trigger := TriggerTypeOf(nodeTypes)

	return &Result{
		Ref:            rec.Ref,
		Name:           rec.Name,
		WorkflowID:     rec.ID,
		Active:         rec.Active,
		Tags:           rec.Tags,
		Verdict:        verdict,
		Category:       resolution.Category,
		Resolution:     resolution,
		Integrations:   ids,
		NodeTypes:      nodeTypes,
		NodeCount:      nodeCount,
		Complexity:     complexity,
		TriggerType:    trigger,
		Description:    Describe(ids, nodeCount, trigger, complexity),
		HasCredentials: rec.HasCredentials(),
		Report:         report,
		Duration:       time.Since(start),
	}
}

// AnalyzeError builds the result for a record that could not be loaded.
// Parse failures are Corrupted; the error is attached either way.
func (a *Analyzer) AnalyzeError(ref string, err error) *Result {
	classified := ClassifyLoadError(ref, err)
	verdict, _ := a.classifier.Classify(Evidence{Loaded: false})
	return &Result{
		Ref:          ref,
		Verdict:      verdict,
		Category:     workflow.DefaultCategory,
		Resolution:   Resolution{Category: workflow.DefaultCategory, Tier: TierNone},
		Integrations: []string{},
		Err:          classified,
	}
}

// UpdatedMeta returns the metadata block to write back for a result. Keys the
// engine does not own are preserved. The analyzed_at stamp only moves when
// another owned key changes, so re-running on unchanged input writes nothing.
func (a *Analyzer) UpdatedMeta(rec *workflow.Record, res *Result) workflow.Meta {
	prior := rec.Meta
	meta := prior
	meta.Category = res.Category
	meta.Integrations = res.Integrations
	meta.Description = res.Description
	meta.Complexity = string(res.Complexity)
	meta.TriggerType = string(res.TriggerType)
	meta.Verdict = string(res.Verdict)

	unchanged := prior.Category == meta.Category &&
		slices.Equal(prior.Integrations, meta.Integrations) &&
		prior.Description == meta.Description &&
		prior.Complexity == meta.Complexity &&
		prior.TriggerType == meta.TriggerType &&
		prior.Verdict == meta.Verdict
	if !unchanged || prior.AnalyzedAt == "" {
		meta.AnalyzedAt = a.clock().UTC().Format(time.RFC3339)
	}
	return meta
}

// ComplexityOf buckets a workflow by node and integration count.
func ComplexityOf(nodes, integrations int) Complexity {
	score := complexityNodeWeight*float64(nodes) + complexityIntegrationWeight*float64(integrations)
	switch {
	case score < complexityLowBelow:
		return ComplexityLow
	case score < complexityMediumBelow:
		return ComplexityMedium
	default:
		return ComplexityHigh
	}
}

// TriggerTypeOf derives how a workflow is started from its node types.
func TriggerTypeOf(nodeTypes []string) TriggerType {
	all := strings.ToLower(strings.Join(nodeTypes, " "))
	switch {
	case strings.Contains(all, "webhook"):
		return TriggerWebhook
	case strings.Contains(all, "cron"), strings.Contains(all, "schedule"):
		return TriggerScheduled
	default:
		return TriggerManual
	}
}

// Describe generates the one-line workflow description.
func Describe(ids []string, nodeCount int, trigger TriggerType, complexity Complexity) string {
	var b strings.Builder
	if len(ids) > 0 {
		names := make([]string, len(ids))
		for i, id := range ids {
			names[i] = DisplayName(id)
		}
		fmt.Fprintf(&b, "Workflow using %s", strings.Join(names, " and "))
	} else {
		b.WriteString("N8n automation workflow")
	}
	fmt.Fprintf(&b, " with %d nodes", nodeCount)
	if trigger != TriggerManual && trigger != "" {
		fmt.Fprintf(&b, ", triggered via %s", trigger)
	}
	fmt.Fprintf(&b, ". Complexity: %s", complexity)
	return b.String()
}

// DisplayName capitalizes an identifier for human readable output.
func DisplayName(id string) string {
	if id == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(id)
	return string(unicode.ToUpper(r)) + id[size:]
}

package engine

import (
	"github.com/auton8n-git/auton8n/pkg/catalog"
	"github.com/auton8n-git/auton8n/pkg/workflow"
)

// Evidence is what the classifier decides on.
type Evidence struct {
	// Loaded is false when the record could not be parsed.
	Loaded bool

	// Report is the validator output for a loaded record.
	Report Report

	// HasTrigger reports whether any node type is an entry point.
	HasTrigger bool
}

// Rule assigns a verdict when its condition holds.
type Rule struct {
	Name    string
	Verdict Verdict
	Applies func(Evidence) bool
}

// DefaultRules is the verdict precedence, most severe first. The first rule
// that applies decides.
var DefaultRules = []Rule{
	{
		Name:    "unparseable",
		Verdict: VerdictCorrupted,
		Applies: func(ev Evidence) bool { return !ev.Loaded },
	},
	{
		Name:    "command_execution",
		Verdict: VerdictSecurityRisk,
		Applies: func(ev Evidence) bool { return ev.Report.HasDeprecatedKind(catalog.KindCommandExecution) },
	},
	{
		Name:    "local_filesystem",
		Verdict: VerdictCloudIncompatible,
		Applies: func(ev Evidence) bool { return ev.Report.HasDeprecatedKind(catalog.KindFilesystem) },
	},
	{
		Name:    "no_trigger",
		Verdict: VerdictNeedsTrigger,
		Applies: func(ev Evidence) bool { return !ev.HasTrigger },
	},
	{
		Name:    "structural_issues",
		Verdict: VerdictNeedsTrigger,
		Applies: func(ev Evidence) bool { return !ev.Report.Valid() },
	},
	{
		Name:    "ready",
		Verdict: VerdictProductionReady,
		Applies: func(Evidence) bool { return true },
	},
}

// Classifier assigns exactly one verdict per record.
type Classifier struct {
	tables *catalog.Tables
	rules  []Rule
}

// NewClassifier creates a classifier with the default rule list.
func NewClassifier(tables *catalog.Tables) *Classifier {
	return &Classifier{tables: tables, rules: DefaultRules}
}

// Rules returns the rule list in evaluation order.
func (c *Classifier) Rules() []Rule {
	return append([]Rule(nil), c.rules...)
}

// Classify returns the verdict of the first applicable rule and its name.
func (c *Classifier) Classify(ev Evidence) (Verdict, string) {
	for _, r := range c.rules {
		if r.Applies(ev) {
			return r.Verdict, r.Name
		}
	}
	return VerdictProductionReady, "ready"
}

// HasTrigger reports whether any node of rec is an entry point.
func (c *Classifier) HasTrigger(rec *workflow.Record) bool {
	for _, t := range rec.NodeTypes() {
		if c.tables.IsTrigger(t) {
			return true
		}
	}
	return false
}

// ClassifyRecord classifies a loaded record given its validation report.
func (c *Classifier) ClassifyRecord(rec *workflow.Record, report Report) Verdict {
	v, _ := c.Classify(Evidence{
		Loaded:     true,
		Report:     report,
		HasTrigger: c.HasTrigger(rec),
	})
	return v
}

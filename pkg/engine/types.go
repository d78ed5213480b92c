package engine

import (
	"fmt"
	"time"

	"github.com/auton8n-git/auton8n/pkg/catalog"
)

// RecordLevel is the node index used for issues that concern the record as a
// whole rather than a single node.
const RecordLevel = -1

// Issue is a single validation finding.
type Issue struct {
	Kind      IssueKind `json:"kind"`
	NodeIndex int       `json:"node_index"`
	NodeName  string    `json:"node_name,omitempty"`
	Field     string    `json:"field,omitempty"`
	Message   string    `json:"message"`
	Reason    string    `json:"reason,omitempty"`
}

// String renders the issue for text reports.
func (i Issue) String() string {
	if i.NodeIndex == RecordLevel {
		return fmt.Sprintf("%s: %s", i.Kind, i.Message)
	}
	if i.NodeName != "" {
		return fmt.Sprintf("%s: node %d (%s): %s", i.Kind, i.NodeIndex, i.NodeName, i.Message)
	}
	return fmt.Sprintf("%s: node %d: %s", i.Kind, i.NodeIndex, i.Message)
}

// DeprecatedNode is one occurrence of a flagged node type in a record.
type DeprecatedNode struct {
	NodeIndex int                     `json:"node_index"`
	NodeName  string                  `json:"node_name,omitempty"`
	Type      string                  `json:"type"`
	Kind      catalog.DeprecationKind `json:"kind"`
	Reason    string                  `json:"reason"`
}

// Issue converts the occurrence into a DeprecatedNode issue.
func (d DeprecatedNode) Issue() Issue {
	return Issue{
		Kind:      IssueDeprecatedNode,
		NodeIndex: d.NodeIndex,
		NodeName:  d.NodeName,
		Field:     "type",
		Message:   fmt.Sprintf("deprecated node type %s", d.Type),
		Reason:    d.Reason,
	}
}

// Report is the output of the structural validator.
type Report struct {
	// Issues are the structural defects, in rule order.
	Issues []Issue `json:"issues,omitempty"`

	// Deprecated lists flagged node types, independent of validity.
	Deprecated []DeprecatedNode `json:"deprecated,omitempty"`

	// Warnings are advisory findings that do not affect validity.
	Warnings []Issue `json:"warnings,omitempty"`
}

// Valid reports whether the record has no structural issues.
func (r Report) Valid() bool {
	return len(r.Issues) == 0
}

// Count returns the number of structural issues of the given kind.
func (r Report) Count(kind IssueKind) int {
	n := 0
	for _, i := range r.Issues {
		if i.Kind == kind {
			n++
		}
	}
	return n
}

// HasDeprecatedKind reports whether any deprecated occurrence has kind k.
func (r Report) HasDeprecatedKind(k catalog.DeprecationKind) bool {
	for _, d := range r.Deprecated {
		if d.Kind == k {
			return true
		}
	}
	return false
}

// All returns structural issues, deprecated occurrences and warnings as one
// list, in that order.
func (r Report) All() []Issue {
	all := make([]Issue, 0, len(r.Issues)+len(r.Deprecated)+len(r.Warnings))
	all = append(all, r.Issues...)
	for _, d := range r.Deprecated {
		all = append(all, d.Issue())
	}
	all = append(all, r.Warnings...)
	return all
}

// Resolution is the outcome of category resolution for a record.
type Resolution struct {
	// Category is the resolved label, or the default category on a miss.
	Category string `json:"category"`

	// Identifier is the identifier that produced the match, if any.
	Identifier string `json:"identifier,omitempty"`

	// Tier is the strategy that matched.
	Tier Tier `json:"tier"`

	// Key is the table key that matched.
	Key string `json:"key,omitempty"`

	// Score is the similarity score for fuzzy matches, 1 otherwise.
	Score float64 `json:"score,omitempty"`
}

// Resolved reports whether a category was found.
func (r Resolution) Resolved() bool {
	return r.Tier != TierNone
}

// Result is the analysis of one workflow record.
type Result struct {
	Ref            string        `json:"ref"`
	Name           string        `json:"name,omitempty"`
	WorkflowID     string        `json:"workflow_id,omitempty"`
	Active         bool          `json:"active"`
	Tags           []string      `json:"tags,omitempty"`
	Verdict        Verdict       `json:"verdict"`
	Category       string        `json:"category"`
	Resolution     Resolution    `json:"resolution"`
	Integrations   []string      `json:"integrations"`
	NodeTypes      []string      `json:"node_types,omitempty"`
	NodeCount      int           `json:"node_count"`
	Complexity     Complexity    `json:"complexity,omitempty"`
	TriggerType    TriggerType   `json:"trigger_type,omitempty"`
	Description    string        `json:"description,omitempty"`
	HasCredentials bool          `json:"has_credentials"`
	Report         Report        `json:"report"`
	Advisories     []Advisory    `json:"advisories,omitempty"`
	Err            *Error        `json:"error,omitempty"`
	Duration       time.Duration `json:"duration_ns"`
}

// Valid reports whether the record loaded and has no structural issues.
func (r *Result) Valid() bool {
	return r.Verdict != VerdictCorrupted && r.Report.Valid()
}

// Advisory is a non-binding finding from policy evaluation. Advisories never
// change the verdict.
type Advisory struct {
	Policy    string `json:"policy"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
	NodeIndex int    `json:"node_index"`
}

// Failure is a per-record error accumulated during a batch.
type Failure struct {
	Ref string `json:"ref"`
	Err *Error `json:"error"`
}

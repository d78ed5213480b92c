package policy

import (
	"time"
)

// Severity represents the severity level of a policy violation.
type Severity string

const (
	// SeverityInfo is for informational messages.
	SeverityInfo Severity = "info"

	// SeverityWarning is for findings that should be reviewed before import.
	SeverityWarning Severity = "warning"

	// SeverityError is for findings that should be fixed before import.
	SeverityError Severity = "error"

	// SeverityCritical is for findings that must be addressed immediately.
	SeverityCritical Severity = "critical"
)

// Rank orders severities from info (0) to critical (3). Unknown severities
// rank as info.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityError:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}

// Policy represents a policy rule with its Rego code.
type Policy struct {
	// Name is the unique name of the policy.
	Name string `json:"name"`

	// Description provides a human-readable description.
	Description string `json:"description"`

	// Rego contains the Rego policy code. The module must define a "deny"
	// set in its package.
	Rego string `json:"rego"`

	// Severity is the default severity for violations that do not carry one.
	Severity Severity `json:"severity"`

	// Enabled indicates if the policy is active.
	Enabled bool `json:"enabled"`

	// Builtin marks policies shipped with the binary.
	Builtin bool `json:"builtin"`

	// Tags are labels for organizing policies.
	Tags []string `json:"tags,omitempty"`

	// Source is the file the policy was loaded from, if any.
	Source string `json:"source,omitempty"`
}

// PolicyViolation represents a single policy violation.
type PolicyViolation struct {
	// Policy is the name of the policy that was violated.
	Policy string `json:"policy"`

	// Ref is the workflow the violation was found in.
	Ref string `json:"ref,omitempty"`

	// Message is a human-readable violation message.
	Message string `json:"message"`

	// Severity is the violation severity level.
	Severity Severity `json:"severity"`

	// NodeIndex is the offending node, or -1 for whole-workflow findings.
	NodeIndex int `json:"node_index"`
}

// PolicyInput is the document policies evaluate as "input".
type PolicyInput struct {
	// Workflow is the complete workflow document as decoded JSON.
	Workflow map[string]interface{} `json:"workflow"`

	// Result is the classification outcome, when available.
	Result *ResultInput `json:"result,omitempty"`

	// Context provides additional evaluation context.
	Context *PolicyContext `json:"context"`
}

// ResultInput exposes the classification outcome to policies.
type ResultInput struct {
	Verdict        string   `json:"verdict"`
	Category       string   `json:"category"`
	Integrations   []string `json:"integrations"`
	NodeCount      int      `json:"node_count"`
	TriggerType    string   `json:"trigger_type"`
	Complexity     string   `json:"complexity"`
	HasCredentials bool     `json:"has_credentials"`
}

// PolicyContext provides context information for policy evaluation.
type PolicyContext struct {
	// Ref is the store reference of the workflow.
	Ref string `json:"ref"`

	// Timestamp is when the evaluation is occurring.
	Timestamp time.Time `json:"timestamp"`

	// Operation is the command performing the evaluation (e.g. "classify").
	Operation string `json:"operation,omitempty"`
}

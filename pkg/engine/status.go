package engine

import (
	"encoding/json"
	"fmt"
)

// Verdict is the deployability classification of a workflow record.
type Verdict string

const (
	// VerdictProductionReady indicates a structurally valid record with a
	// trigger and no risky node types.
	VerdictProductionReady Verdict = "production_ready"

	// VerdictNeedsTrigger indicates a record without an entry point, or a
	// loadable record with structural defects.
	VerdictNeedsTrigger Verdict = "needs_trigger"

	// VerdictCloudIncompatible indicates a record using local file system nodes.
	VerdictCloudIncompatible Verdict = "cloud_incompatible"

	// VerdictSecurityRisk indicates a record using command execution nodes.
	VerdictSecurityRisk Verdict = "security_risk"

	// VerdictCorrupted indicates a record that could not be loaded at all.
	VerdictCorrupted Verdict = "corrupted"
)

// Verdicts lists every verdict in precedence order, most severe first.
var Verdicts = []Verdict{
	VerdictCorrupted,
	VerdictSecurityRisk,
	VerdictCloudIncompatible,
	VerdictNeedsTrigger,
	VerdictProductionReady,
}

// Validate checks if the verdict is valid.
func (v Verdict) Validate() error {
	switch v {
	case VerdictProductionReady, VerdictNeedsTrigger, VerdictCloudIncompatible,
		VerdictSecurityRisk, VerdictCorrupted:
		return nil
	default:
		return fmt.Errorf("invalid verdict: %s", v)
	}
}

// Description returns the one-line meaning of the verdict.
func (v Verdict) Description() string {
	switch v {
	case VerdictProductionReady:
		return "Workflows ready to import and run in production"
	case VerdictNeedsTrigger:
		return "Workflows that need a trigger node (or structural fixes) before they can run automatically"
	case VerdictCloudIncompatible:
		return "Workflows using local file system nodes; they only run on self-hosted instances"
	case VerdictSecurityRisk:
		return "Workflows using command execution nodes; not recommended"
	case VerdictCorrupted:
		return "Workflows that cannot be parsed; they cannot be used"
	default:
		return ""
	}
}

// Recommendation returns the suggested operator action for the verdict.
func (v Verdict) Recommendation() string {
	switch v {
	case VerdictProductionReady:
		return "Import directly"
	case VerdictNeedsTrigger:
		return "Add a trigger node and fix reported issues before deploying"
	case VerdictCloudIncompatible:
		return "Refactor for cloud storage or run on a self-hosted instance"
	case VerdictSecurityRisk:
		return "Replace command execution with a Code node or API calls"
	case VerdictCorrupted:
		return "Delete or re-export from the source instance"
	default:
		return ""
	}
}

// MarshalJSON implements custom JSON marshaling for type-safe enum serialization.
func (v Verdict) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(v))
}

// UnmarshalJSON implements custom JSON unmarshaling with validation.
func (v *Verdict) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*v = Verdict(str)
	return v.Validate()
}

// ParseVerdict converts a string to a Verdict.
func ParseVerdict(s string) (Verdict, error) {
	v := Verdict(s)
	return v, v.Validate()
}

// IssueKind tags a validation finding.
type IssueKind string

const (
	IssueMissingField   IssueKind = "missing_field"
	IssueWrongFieldType IssueKind = "wrong_field_type"
	IssueDuplicateName  IssueKind = "duplicate_name"
	IssueEmptyNodeSet   IssueKind = "empty_node_set"
	IssueDeprecatedNode IssueKind = "deprecated_node"
	IssueNoConnections  IssueKind = "no_connections"
)

// Validate checks if the issue kind is valid.
func (k IssueKind) Validate() error {
	switch k {
	case IssueMissingField, IssueWrongFieldType, IssueDuplicateName,
		IssueEmptyNodeSet, IssueDeprecatedNode, IssueNoConnections:
		return nil
	default:
		return fmt.Errorf("invalid issue kind: %s", k)
	}
}

// Structural reports whether issues of this kind make a record invalid.
func (k IssueKind) Structural() bool {
	return k != IssueDeprecatedNode && k != IssueNoConnections
}

// Tier names the resolution strategy that produced a category.
type Tier string

const (
	TierNone      Tier = "none"
	TierPrior     Tier = "prior"
	TierOverride  Tier = "override"
	TierCanonical Tier = "canonical"
	TierFuzzy     Tier = "fuzzy"
)

// Complexity buckets the size of a workflow.
type Complexity string

const (
	ComplexityLow    Complexity = "Low"
	ComplexityMedium Complexity = "Medium"
	ComplexityHigh   Complexity = "High"
)

// TriggerType describes how a workflow is started.
type TriggerType string

const (
	TriggerWebhook   TriggerType = "Webhook"
	TriggerScheduled TriggerType = "Scheduled"
	TriggerManual    TriggerType = "Manual"
)

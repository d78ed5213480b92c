package engine

import (
	"fmt"

	"github.com/auton8n-git/auton8n/pkg/catalog"
	"github.com/auton8n-git/auton8n/pkg/workflow"
)

// requiredTopLevel lists the top-level fields in check order.
var requiredTopLevel = []string{workflow.FieldNodes, workflow.FieldConnections}

// requiredNodeFields lists the per-node fields in check order.
var requiredNodeFields = []string{
	workflow.NodeFieldType,
	workflow.NodeFieldName,
	workflow.NodeFieldPosition,
	workflow.NodeFieldParameters,
}

// stringNodeFields must hold strings when present.
var stringNodeFields = map[string]bool{
	workflow.NodeFieldType: true,
	workflow.NodeFieldName: true,
}

// Validator checks records against the required workflow shape.
type Validator struct {
	tables *catalog.Tables
}

// NewValidator creates a validator using the deprecated node table of tables.
func NewValidator(tables *catalog.Tables) *Validator {
	return &Validator{tables: tables}
}

// Validate checks a record. Rules run in order:
//
//  1. "nodes" and "connections" are present; the first one missing is
//     reported and nothing else is checked.
//  2. "nodes" is a sequence, and it is not empty; otherwise stop.
//  3. Every node is an object with type, name, position and parameters.
//  4. Node names are unique; each repeat after the first is reported.
//  5. "connections" is a mapping.
//
// Deprecated node types are recorded whatever the outcome of the rules above.
// A multi-node record with an empty connection mapping gets a NoConnections
// warning, which does not affect validity.
func (v *Validator) Validate(rec *workflow.Record) Report {
	var report Report
	report.Deprecated = v.deprecated(rec)

	for _, field := range requiredTopLevel {
		if !rec.HasField(field) {
			report.Issues = append(report.Issues, Issue{
				Kind:      IssueMissingField,
				NodeIndex: RecordLevel,
				Field:     field,
				Message:   fmt.Sprintf("required field %q is missing", field),
			})
			return report
		}
	}

	if kind := rec.FieldKind(workflow.FieldNodes); kind != workflow.KindArray {
		report.Issues = append(report.Issues, Issue{
			Kind:      IssueWrongFieldType,
			NodeIndex: RecordLevel,
			Field:     workflow.FieldNodes,
			Message:   fmt.Sprintf("field %q must be an array, got %s", workflow.FieldNodes, kind),
		})
		return report
	}

	nodes := rec.Nodes()
	if len(nodes) == 0 {
		report.Issues = append(report.Issues, Issue{
			Kind:      IssueEmptyNodeSet,
			NodeIndex: RecordLevel,
			Field:     workflow.FieldNodes,
			Message:   "workflow has no nodes",
		})
		return report
	}

	for _, n := range nodes {
		report.Issues = append(report.Issues, checkNode(n)...)
	}

	firstByName := make(map[string]int, len(nodes))
	for _, n := range nodes {
		if n.Malformed || n.Name == "" {
			continue
		}
		first, seen := firstByName[n.Name]
		if !seen {
			firstByName[n.Name] = n.Index
			continue
		}
		report.Issues = append(report.Issues, Issue{
			Kind:      IssueDuplicateName,
			NodeIndex: n.Index,
			NodeName:  n.Name,
			Field:     workflow.NodeFieldName,
			Message:   fmt.Sprintf("name %q already used by node %d", n.Name, first),
		})
	}

	if kind := rec.FieldKind(workflow.FieldConnections); kind != workflow.KindObject {
		report.Issues = append(report.Issues, Issue{
			Kind:      IssueWrongFieldType,
			NodeIndex: RecordLevel,
			Field:     workflow.FieldConnections,
			Message:   fmt.Sprintf("field %q must be an object, got %s", workflow.FieldConnections, kind),
		})
	} else if len(nodes) > 1 && rec.ConnectionCount() == 0 {
		report.Warnings = append(report.Warnings, Issue{
			Kind:      IssueNoConnections,
			NodeIndex: RecordLevel,
			Field:     workflow.FieldConnections,
			Message:   fmt.Sprintf("%d nodes but no connections", len(nodes)),
		})
	}

	return report
}

func checkNode(n workflow.Node) []Issue {
	if n.Malformed {
		return []Issue{{
			Kind:      IssueWrongFieldType,
			NodeIndex: n.Index,
			Message:   "node must be an object",
		}}
	}

	var issues []Issue
	for _, field := range requiredNodeFields {
		kind := n.FieldKind(field)
		switch {
		case kind == workflow.KindMissing || kind == workflow.KindNull:
			issues = append(issues, missingNodeField(n, field))
		case stringNodeFields[field] && kind != workflow.KindString:
			issues = append(issues, Issue{
				Kind:      IssueWrongFieldType,
				NodeIndex: n.Index,
				NodeName:  n.Name,
				Field:     field,
				Message:   fmt.Sprintf("field %q must be a string, got %s", field, kind),
			})
		case !n.Has(field):
			issues = append(issues, missingNodeField(n, field))
		}
	}
	return issues
}

func missingNodeField(n workflow.Node, field string) Issue {
	return Issue{
		Kind:      IssueMissingField,
		NodeIndex: n.Index,
		NodeName:  n.Name,
		Field:     field,
		Message:   fmt.Sprintf("required field %q is missing", field),
	}
}

func (v *Validator) deprecated(rec *workflow.Record) []DeprecatedNode {
	var out []DeprecatedNode
	for _, n := range rec.Nodes() {
		if n.Malformed || n.Type == "" {
			continue
		}
		d, ok := v.tables.Deprecated(n.Type)
		if !ok {
			continue
		}
		out = append(out, DeprecatedNode{
			NodeIndex: n.Index,
			NodeName:  n.Name,
			Type:      n.Type,
			Kind:      d.Kind,
			Reason:    d.Reason,
		})
	}
	return out
}

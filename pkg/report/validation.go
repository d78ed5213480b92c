package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/auton8n-git/auton8n/pkg/catalog"
	"github.com/auton8n-git/auton8n/pkg/engine"
)

// Warning types reported next to the structural validation.
const (
	WarningNoTrigger     = "no_trigger"
	WarningNoConnections = "no_connections"
)

// ValidationReport groups a batch the way an import pipeline consumes it:
// importable records, records that are not JSON, records with structural
// defects, empty records, deprecated node occurrences and warnings.
type ValidationReport struct {
	GeneratedAt           time.Time         `json:"generated_at"`
	Valid                 []string          `json:"valid"`
	InvalidJSON           []InvalidEntry    `json:"invalid_json"`
	MissingRequiredFields []IssueEntry      `json:"missing_required_fields"`
	EmptyNodes            []EmptyEntry      `json:"empty_nodes"`
	DeprecatedNodes       []DeprecatedEntry `json:"deprecated_nodes"`
	Warnings              []WarningEntry    `json:"warnings"`
}

// InvalidEntry is a record that could not be parsed.
type InvalidEntry struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// IssueEntry is a record with structural issues.
type IssueEntry struct {
	File   string   `json:"file"`
	Issues []string `json:"issues"`
}

// EmptyEntry is a record without nodes.
type EmptyEntry struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

// DeprecatedEntry is one deprecated node occurrence.
type DeprecatedEntry struct {
	File     string `json:"file"`
	NodeType string `json:"node_type"`
	Reason   string `json:"reason"`
	NodeName string `json:"node_name"`
}

// WarningEntry is one advisory finding.
type WarningEntry struct {
	File    string `json:"file"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// BuildValidation sorts results into a ValidationReport. Results are
// expected in ref order, as a Batch holds them. Tables decide which node
// types count as triggers for the no_trigger warning.
func BuildValidation(results []*engine.Result, tables *catalog.Tables, generatedAt time.Time) *ValidationReport {
	rep := &ValidationReport{
		GeneratedAt:           generatedAt,
		Valid:                 []string{},
		InvalidJSON:           []InvalidEntry{},
		MissingRequiredFields: []IssueEntry{},
		EmptyNodes:            []EmptyEntry{},
		DeprecatedNodes:       []DeprecatedEntry{},
		Warnings:              []WarningEntry{},
	}

	for _, r := range results {
		if r.Err != nil {
			rep.InvalidJSON = append(rep.InvalidJSON, InvalidEntry{File: r.Ref, Error: errorText(r.Err)})
			continue
		}

		for _, d := range r.Report.Deprecated {
			name := d.NodeName
			if name == "" {
				name = "unnamed"
			}
			rep.DeprecatedNodes = append(rep.DeprecatedNodes, DeprecatedEntry{
				File:     r.Ref,
				NodeType: d.Type,
				Reason:   d.Reason,
				NodeName: name,
			})
		}

		switch {
		case r.Report.Count(engine.IssueEmptyNodeSet) > 0:
			rep.EmptyNodes = append(rep.EmptyNodes, EmptyEntry{File: r.Ref, Message: "Workflow has no nodes"})
			continue
		case !r.Report.Valid():
			issues := make([]string, 0, len(r.Report.Issues))
			for _, i := range r.Report.Issues {
				issues = append(issues, i.Message)
			}
			rep.MissingRequiredFields = append(rep.MissingRequiredFields, IssueEntry{File: r.Ref, Issues: issues})
			continue
		}

		if !hasTrigger(tables, r.NodeTypes) {
			rep.Warnings = append(rep.Warnings, WarningEntry{
				File:    r.Ref,
				Type:    WarningNoTrigger,
				Message: "Workflow has no trigger node - may not execute automatically",
			})
		}
		for _, w := range r.Report.Warnings {
			rep.Warnings = append(rep.Warnings, WarningEntry{File: r.Ref, Type: string(w.Kind), Message: w.Message})
		}

		rep.Valid = append(rep.Valid, r.Ref)
	}

	return rep
}

func hasTrigger(tables *catalog.Tables, nodeTypes []string) bool {
	for _, t := range nodeTypes {
		if tables.IsTrigger(t) {
			return true
		}
	}
	return false
}

func errorText(err *engine.Error) string {
	if err.Err != nil {
		return err.Err.Error()
	}
	return err.Message
}

// Total is the number of records in the report.
func (r *ValidationReport) Total() int {
	return len(r.Valid) + len(r.InvalidJSON) + len(r.MissingRequiredFields) + len(r.EmptyNodes)
}

// SuccessRate is the percentage of valid records.
func (r *ValidationReport) SuccessRate() float64 {
	if r.Total() == 0 {
		return 0
	}
	return float64(len(r.Valid)) * 100 / float64(r.Total())
}

// HasProblems reports whether any record is unusable or empty.
func (r *ValidationReport) HasProblems() bool {
	return len(r.InvalidJSON) > 0 || len(r.MissingRequiredFields) > 0 || len(r.EmptyNodes) > 0
}

// WriteJSON writes the report as indented JSON.
func (r *ValidationReport) WriteJSON(w io.Writer) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode validation report: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// WriteProblematic writes the problematic_workflows.txt list.
func (r *ValidationReport) WriteProblematic(w io.Writer) error {
	var b strings.Builder
	b.WriteString("# PROBLEMATIC N8N WORKFLOWS\n")
	b.WriteString("# These workflows cannot be used or may have issues\n\n")

	if len(r.InvalidJSON) > 0 {
		b.WriteString("\n## INVALID JSON (Cannot import):\n")
		for _, e := range r.InvalidJSON {
			b.WriteString(e.File + "\n")
		}
	}
	if len(r.MissingRequiredFields) > 0 {
		b.WriteString("\n## MISSING REQUIRED FIELDS:\n")
		for _, e := range r.MissingRequiredFields {
			b.WriteString(e.File + "\n")
		}
	}
	if len(r.EmptyNodes) > 0 {
		b.WriteString("\n## EMPTY WORKFLOWS:\n")
		for _, e := range r.EmptyNodes {
			b.WriteString(e.File + "\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// listLimit caps the examples printed per section of the text report.
const listLimit = 10

// WriteText writes a human-readable validation summary.
func (r *ValidationReport) WriteText(w io.Writer) error {
	var b strings.Builder
	rule := strings.Repeat("=", 80)

	fmt.Fprintf(&b, "%s\nN8N WORKFLOW VALIDATION REPORT\n%s\n\n", rule, rule)
	fmt.Fprintf(&b, "Valid workflows:          %d\n", len(r.Valid))
	fmt.Fprintf(&b, "Invalid JSON:             %d\n", len(r.InvalidJSON))
	fmt.Fprintf(&b, "Missing required fields:  %d\n", len(r.MissingRequiredFields))
	fmt.Fprintf(&b, "Empty workflows:          %d\n", len(r.EmptyNodes))
	fmt.Fprintf(&b, "Warnings:                 %d\n", len(r.Warnings))
	fmt.Fprintf(&b, "Deprecated nodes found:   %d\n", len(r.DeprecatedNodes))
	fmt.Fprintf(&b, "\nTotal processed: %d\n", r.Total())
	fmt.Fprintf(&b, "Success rate: %.1f%%\n", r.SuccessRate())

	section := func(title string) {
		fmt.Fprintf(&b, "\n%s\n%s\n%s\n", rule, title, rule)
	}
	more := func(n int) {
		if n > listLimit {
			fmt.Fprintf(&b, "\n... and %d more\n", n-listLimit)
		}
	}

	if len(r.InvalidJSON) > 0 {
		section("INVALID JSON FILES (Cannot be imported)")
		for i, e := range r.InvalidJSON {
			if i == listLimit {
				break
			}
			fmt.Fprintf(&b, "\n%s\n   Error: %s\n", e.File, e.Error)
		}
		more(len(r.InvalidJSON))
	}

	if len(r.MissingRequiredFields) > 0 {
		section("MISSING REQUIRED FIELDS (May not work)")
		for i, e := range r.MissingRequiredFields {
			if i == listLimit {
				break
			}
			fmt.Fprintf(&b, "\n%s\n", e.File)
			for _, issue := range e.Issues {
				fmt.Fprintf(&b, "   - %s\n", issue)
			}
		}
		more(len(r.MissingRequiredFields))
	}

	if len(r.EmptyNodes) > 0 {
		section("EMPTY WORKFLOWS (No nodes defined)")
		for i, e := range r.EmptyNodes {
			if i == listLimit {
				break
			}
			fmt.Fprintf(&b, "   - %s\n", e.File)
		}
		more(len(r.EmptyNodes))
	}

	if len(r.DeprecatedNodes) > 0 {
		section("DEPRECATED/PROBLEMATIC NODES")
		byType := map[string][]DeprecatedEntry{}
		for _, d := range r.DeprecatedNodes {
			byType[d.NodeType] = append(byType[d.NodeType], d)
		}
		types := make([]string, 0, len(byType))
		for t := range byType {
			types = append(types, t)
		}
		sort.Strings(types)
		for _, t := range types {
			entries := byType[t]
			fmt.Fprintf(&b, "\n%s\n   Reason: %s\n   Found in %d workflow(s):\n", t, entries[0].Reason, len(entries))
			for i, e := range entries {
				if i == 5 {
					fmt.Fprintf(&b, "   ... and %d more\n", len(entries)-5)
					break
				}
				fmt.Fprintf(&b, "   - %s\n", e.File)
			}
		}
	}

	if len(r.Warnings) > 0 {
		section("WARNINGS (Workflows may have issues)")
		byType := map[string][]WarningEntry{}
		for _, wn := range r.Warnings {
			byType[wn.Type] = append(byType[wn.Type], wn)
		}
		types := make([]string, 0, len(byType))
		for t := range byType {
			types = append(types, t)
		}
		sort.Strings(types)
		for _, t := range types {
			entries := byType[t]
			fmt.Fprintf(&b, "\n%s: %d workflow(s)\n   %s\n   Examples:\n", strings.ToUpper(t), len(entries), entries[0].Message)
			for i, e := range entries {
				if i == 5 {
					fmt.Fprintf(&b, "   ... and %d more\n", len(entries)-5)
					break
				}
				fmt.Fprintf(&b, "   - %s\n", e.File)
			}
		}
	}

	fmt.Fprintf(&b, "\n%s\nVALIDATION COMPLETE\n%s\n", rule, rule)

	_, err := io.WriteString(w, b.String())
	return err
}

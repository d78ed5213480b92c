package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"

	"github.com/auton8n-git/auton8n/pkg/engine"
)

// TopIntegrationsLimit is how many integrations the analysis report lists.
const TopIntegrationsLimit = 30

// Analysis is the JSON export of a batch.
type Analysis struct {
	GeneratedAt time.Time                  `json:"generated_at"`
	Statistics  AnalysisStatistics         `json:"statistics"`
	Workflows   map[string][]AnalysisEntry `json:"workflows"`
}

// AnalysisStatistics are the batch totals of an Analysis.
type AnalysisStatistics struct {
	Total         int            `json:"total"`
	Processed     int            `json:"processed"`
	Errors        int            `json:"errors"`
	ByCategory    map[string]int `json:"by_category"`
	ByIntegration map[string]int `json:"by_integration"`
	ByVerdict     map[string]int `json:"by_verdict"`
}

// AnalysisEntry describes one analyzed record.
type AnalysisEntry struct {
	Filename     string             `json:"filename"`
	Name         string             `json:"name,omitempty"`
	Description  string             `json:"description"`
	NodeCount    int                `json:"node_count"`
	Integrations []string           `json:"integrations"`
	TriggerType  engine.TriggerType `json:"trigger_type"`
	Complexity   engine.Complexity  `json:"complexity"`
	Verdict      engine.Verdict     `json:"verdict"`
}

// BuildAnalysis groups the loaded records of a batch by category.
// Corrupted records only count as errors.
func BuildAnalysis(batch *engine.Batch) *Analysis {
	s := batch.Summary
	a := &Analysis{
		GeneratedAt: batch.CompletedAt,
		Statistics: AnalysisStatistics{
			Total:         s.Total,
			Processed:     s.Loaded(),
			Errors:        s.ByVerdict[engine.VerdictCorrupted],
			ByCategory:    map[string]int{},
			ByIntegration: s.ByIntegration,
			ByVerdict:     map[string]int{},
		},
		Workflows: map[string][]AnalysisEntry{},
	}
	for v, n := range s.ByVerdict {
		a.Statistics.ByVerdict[string(v)] = n
	}

	for _, r := range batch.Results {
		if r.Verdict == engine.VerdictCorrupted {
			continue
		}
		a.Statistics.ByCategory[r.Category]++
		integrations := r.Integrations
		if integrations == nil {
			integrations = []string{}
		}
		a.Workflows[r.Category] = append(a.Workflows[r.Category], AnalysisEntry{
			Filename:     r.Ref,
			Name:         r.Name,
			Description:  r.Description,
			NodeCount:    r.NodeCount,
			Integrations: integrations,
			TriggerType:  r.TriggerType,
			Complexity:   r.Complexity,
			Verdict:      r.Verdict,
		})
	}
	return a
}

// WriteJSON writes the analysis as indented JSON.
func (a *Analysis) WriteJSON(w io.Writer) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode analysis: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// WriteText writes the analysis as a plain-text report.
func (a *Analysis) WriteText(w io.Writer) error {
	var b strings.Builder
	rule := strings.Repeat("=", 80)
	thin := strings.Repeat("-", 80)

	fmt.Fprintf(&b, "%s\nN8N WORKFLOW ANALYSIS REPORT\n%s\n\n", rule, rule)
	fmt.Fprintf(&b, "Generated: %s\n\n", a.GeneratedAt.Format("2006-01-02 15:04:05"))

	fmt.Fprintf(&b, "STATISTICS\n%s\n", thin)
	fmt.Fprintf(&b, "Total workflows: %d\n", a.Statistics.Total)
	fmt.Fprintf(&b, "Successfully processed: %d\n", a.Statistics.Processed)
	fmt.Fprintf(&b, "Errors: %d\n\n", a.Statistics.Errors)

	fmt.Fprintf(&b, "BREAKDOWN BY CATEGORY\n%s\n", thin)
	for _, c := range engine.Ranked(a.Statistics.ByCategory, 0) {
		fmt.Fprintf(&b, "%s %4d workflows\n", dotted(c.Key, 40), c.Count)
	}

	fmt.Fprintf(&b, "\nTOP %d INTEGRATIONS\n%s\n", TopIntegrationsLimit, thin)
	for _, c := range engine.Ranked(a.Statistics.ByIntegration, TopIntegrationsLimit) {
		fmt.Fprintf(&b, "%s %4d workflows\n", dotted(c.Key, 40), c.Count)
	}

	fmt.Fprintf(&b, "\n\n%s\nWORKFLOWS BY CATEGORY\n%s\n", rule, rule)
	categories := make([]string, 0, len(a.Workflows))
	for c := range a.Workflows {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	for _, c := range categories {
		entries := a.Workflows[c]
		fmt.Fprintf(&b, "\n\n%s (%d workflows)\n%s\n", strings.ToUpper(c), len(entries), thin)
		for _, e := range entries {
			fmt.Fprintf(&b, "\n  %s\n", e.Filename)
			fmt.Fprintf(&b, "     %s\n", e.Description)
			fmt.Fprintf(&b, "     Nodes: %d, Complexity: %s\n", e.NodeCount, e.Complexity)
			if len(e.Integrations) > 0 {
				fmt.Fprintf(&b, "     Integrations: %s\n", strings.Join(e.Integrations, ", "))
			}
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// dotted pads s with dots to width runes.
func dotted(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return s + " " + strings.Repeat(".", width-n-1)
}

// Gaps describes loaded records no category rule matched.
type Gaps struct {
	// Records is the number of uncategorized records.
	Records int `json:"records"`

	// WithoutIntegrations counts uncategorized records with no identifiers.
	WithoutIntegrations int `json:"without_integrations"`

	// Integrations ranks the identifiers of uncategorized records; they are
	// candidates for new table entries.
	Integrations []engine.Count `json:"integrations"`
}

// FindGaps collects the uncategorized records of results.
func FindGaps(results []*engine.Result, n int) *Gaps {
	g := &Gaps{Integrations: []engine.Count{}}
	tally := map[string]int{}
	for _, r := range results {
		if r.Verdict == engine.VerdictCorrupted || r.Resolution.Resolved() {
			continue
		}
		g.Records++
		if len(r.Integrations) == 0 {
			g.WithoutIntegrations++
		}
		for _, id := range r.Integrations {
			tally[id]++
		}
	}
	g.Integrations = append(g.Integrations, engine.Ranked(tally, n)...)
	return g
}

// WriteText writes the gaps as a plain-text list.
func (g *Gaps) WriteText(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Uncategorized workflows: %d\n", g.Records)
	fmt.Fprintf(&b, "Without integrations:    %d\n", g.WithoutIntegrations)
	if len(g.Integrations) > 0 {
		b.WriteString("\nUnmatched integrations:\n")
		for _, c := range g.Integrations {
			fmt.Fprintf(&b, "  %s %4d workflows\n", dotted(c.Key, 40), c.Count)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

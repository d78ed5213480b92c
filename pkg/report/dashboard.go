package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/auton8n-git/auton8n/pkg/engine"
)

// Dashboard section sizes.
const (
	dashboardCategories   = 10
	dashboardIntegrations = 15
	dashboardPairs        = 10
	dashboardDeprecated   = 10
	barWidth              = 30
)

// Theme defines the colors and styles of the dashboard.
type Theme struct {
	// Color palette
	Primary lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Danger  lipgloss.Color
	Muted   lipgloss.Color

	PanelStyle lipgloss.Style
	TitleStyle lipgloss.Style
	LabelStyle lipgloss.Style
	BarStyle   lipgloss.Style
	MutedStyle lipgloss.Style

	// Verdict styles
	VerdictReady   lipgloss.Style
	VerdictWarning lipgloss.Style
	VerdictDanger  lipgloss.Style
}

// NewTheme returns the default theme bound to a renderer. The renderer
// decides whether colors are emitted for its output.
func NewTheme(r *lipgloss.Renderer) *Theme {
	theme := &Theme{
		Primary: lipgloss.Color("#7AA2F7"),
		Success: lipgloss.Color("#9ECE6A"),
		Warning: lipgloss.Color("#E0AF68"),
		Danger:  lipgloss.Color("#F7768E"),
		Muted:   lipgloss.Color("#565F89"),
	}

	theme.PanelStyle = r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Muted).
		Padding(0, 1)

	theme.TitleStyle = r.NewStyle().
		Foreground(theme.Primary).
		Bold(true)

	theme.LabelStyle = r.NewStyle().
		Width(32)

	theme.BarStyle = r.NewStyle().
		Foreground(theme.Primary)

	theme.MutedStyle = r.NewStyle().
		Foreground(theme.Muted)

	theme.VerdictReady = r.NewStyle().
		Foreground(theme.Success).
		Bold(true)

	theme.VerdictWarning = r.NewStyle().
		Foreground(theme.Warning)

	theme.VerdictDanger = r.NewStyle().
		Foreground(theme.Danger).
		Bold(true)

	return theme
}

// VerdictStyle returns the style for a verdict.
func (t *Theme) VerdictStyle(v engine.Verdict) lipgloss.Style {
	switch v {
	case engine.VerdictProductionReady:
		return t.VerdictReady
	case engine.VerdictNeedsTrigger, engine.VerdictCloudIncompatible:
		return t.VerdictWarning
	default:
		return t.VerdictDanger
	}
}

// WriteDashboard renders the summary dashboard to w.
func WriteDashboard(w io.Writer, s *engine.Summary) error {
	theme := NewTheme(lipgloss.NewRenderer(w))
	_, err := io.WriteString(w, theme.Dashboard(s)+"\n")
	return err
}

// Dashboard renders every dashboard panel, stacked vertically.
func (t *Theme) Dashboard(s *engine.Summary) string {
	panels := []string{
		t.panel("N8N WORKFLOW DASHBOARD", t.overview(s)),
		t.panel("VERDICTS", t.verdicts(s)),
		t.panel(fmt.Sprintf("TOP %d CATEGORIES", dashboardCategories), t.ranked(s, s.TopCategories(dashboardCategories), true)),
		t.panel(fmt.Sprintf("TOP %d INTEGRATIONS", dashboardIntegrations), t.ranked(s, s.TopIntegrations(dashboardIntegrations), false)),
		t.panel("COMPLEXITY", t.complexity(s)),
		t.panel("TRIGGERS", t.triggers(s)),
		t.panel("NODE STATISTICS", t.nodes(s)),
	}
	if len(s.Pairs) > 0 {
		panels = append(panels, t.panel("COMMON INTEGRATION PAIRS", t.ranked(s, s.TopPairs(dashboardPairs), false)))
	}
	if len(s.ByDeprecated) > 0 {
		panels = append(panels, t.panel("DEPRECATED NODE TYPES", t.ranked(s, s.TopDeprecated(dashboardDeprecated), false)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, panels...)
}

func (t *Theme) panel(title, body string) string {
	return t.PanelStyle.Render(t.TitleStyle.Render(title) + "\n\n" + body)
}

func (t *Theme) row(label, value string) string {
	return t.LabelStyle.Render(label) + value
}

func (t *Theme) overview(s *engine.Summary) string {
	lines := []string{
		t.row("Total workflows", fmt.Sprintf("%d", s.Total)),
		t.row("Loaded", fmt.Sprintf("%d (%.1f%%)", s.Loaded(), s.Percent(s.Loaded()))),
		t.row("Structurally valid", fmt.Sprintf("%d (%.1f%%)", s.Valid, s.Percent(s.Valid))),
		t.row("Categorized", fmt.Sprintf("%d (%.1f%%)", s.Categorized(), s.Percent(s.Categorized()))),
		t.row("Active", fmt.Sprintf("%d", s.Active)),
		t.row("With credentials", fmt.Sprintf("%d", s.WithCredentials)),
		t.row("Unique integrations", fmt.Sprintf("%d", len(s.ByIntegration))),
		t.row("Failures", fmt.Sprintf("%d", len(s.Failures))),
	}
	return strings.Join(lines, "\n")
}

func (t *Theme) verdicts(s *engine.Summary) string {
	lines := make([]string, 0, len(engine.Verdicts))
	for _, v := range engine.Verdicts {
		n := s.ByVerdict[v]
		label := t.LabelStyle.Render(t.VerdictStyle(v).Render(string(v)))
		lines = append(lines, label+fmt.Sprintf("%5d  %5.1f%%", n, s.Percent(n)))
	}
	return strings.Join(lines, "\n")
}

func (t *Theme) ranked(s *engine.Summary, counts []engine.Count, withPercent bool) string {
	if len(counts) == 0 {
		return t.MutedStyle.Render("none")
	}
	peak := counts[0].Count
	lines := make([]string, 0, len(counts))
	for _, c := range counts {
		value := fmt.Sprintf("%5d", c.Count)
		if withPercent {
			value += fmt.Sprintf("  %5.1f%%", s.Percent(c.Count))
		}
		lines = append(lines, t.row(truncate(c.Key, 31), value+"  "+t.bar(c.Count, peak)))
	}
	return strings.Join(lines, "\n")
}

func (t *Theme) complexity(s *engine.Summary) string {
	loaded := s.Loaded()
	lines := make([]string, 0, 3)
	for _, c := range []engine.Complexity{engine.ComplexityLow, engine.ComplexityMedium, engine.ComplexityHigh} {
		n := s.ByComplexity[c]
		lines = append(lines, t.row(string(c), fmt.Sprintf("%5d  %5.1f%%  %s", n, percentOf(n, loaded), t.bar(n, loaded))))
	}
	return strings.Join(lines, "\n")
}

func (t *Theme) triggers(s *engine.Summary) string {
	loaded := s.Loaded()
	lines := make([]string, 0, 3)
	for _, tr := range []engine.TriggerType{engine.TriggerWebhook, engine.TriggerScheduled, engine.TriggerManual} {
		n := s.ByTrigger[tr]
		lines = append(lines, t.row(string(tr), fmt.Sprintf("%5d  %5.1f%%  %s", n, percentOf(n, loaded), t.bar(n, loaded))))
	}
	return strings.Join(lines, "\n")
}

func (t *Theme) nodes(s *engine.Summary) string {
	lines := []string{
		t.row("Total nodes", fmt.Sprintf("%d", s.Nodes.Total)),
		t.row("Minimum", fmt.Sprintf("%d", s.Nodes.Min)),
		t.row("Maximum", fmt.Sprintf("%d", s.Nodes.Max)),
		t.row("Average", fmt.Sprintf("%.1f", s.Nodes.Mean)),
		t.row("Median", fmt.Sprintf("%.1f", s.Nodes.Median)),
	}
	return strings.Join(lines, "\n")
}

// bar draws n relative to total as a fixed-width block bar.
func (t *Theme) bar(n, total int) string {
	if total <= 0 {
		return ""
	}
	filled := n * barWidth / total
	if n > 0 && filled == 0 {
		filled = 1
	}
	return t.BarStyle.Render(strings.Repeat("█", filled)) + t.MutedStyle.Render(strings.Repeat("░", barWidth-filled))
}

func percentOf(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) * 100 / float64(total)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

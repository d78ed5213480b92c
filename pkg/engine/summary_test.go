package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	results := []*Result{
		{
			Ref: "a.json", Verdict: VerdictProductionReady, Category: labelMessaging,
			Resolution: Resolution{Tier: TierCanonical}, Integrations: []string{"slack", "gmail"},
			NodeCount: 3, Complexity: ComplexityLow, TriggerType: TriggerWebhook, Active: true,
			HasCredentials: true,
		},
		{
			Ref: "b.json", Verdict: VerdictSecurityRisk, Category: labelMessaging,
			Resolution: Resolution{Tier: TierFuzzy}, Integrations: []string{"gmail", "slack", "openai"},
			NodeCount: 9, Complexity: ComplexityMedium, TriggerType: TriggerManual,
			Report: Report{
				Issues:     []Issue{{Kind: IssueDuplicateName, NodeIndex: 2}},
				Deprecated: []DeprecatedNode{{Type: "n8n-nodes-base.executeCommand"}},
				Warnings:   []Issue{{Kind: IssueNoConnections, NodeIndex: RecordLevel}},
			},
		},
		{
			Ref: "c.json", Verdict: VerdictNeedsTrigger, Category: "Uncategorized",
			Resolution: Resolution{Tier: TierNone}, Integrations: []string{},
			NodeCount: 4, Complexity: ComplexityLow, TriggerType: TriggerManual,
		},
		{
			Ref: "d.json", Verdict: VerdictCorrupted, Category: "Uncategorized",
			Resolution: Resolution{Tier: TierNone}, Integrations: []string{},
		},
	}
	failures := []Failure{{Ref: "a.json", Err: NewIOError("boom", nil)}}

	s := Summarize(results, failures)

	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 3, s.Loaded())
	assert.Equal(t, 2, s.Valid)
	assert.Equal(t, 1, s.Active)
	assert.Equal(t, 1, s.WithCredentials)
	assert.Equal(t, 2, s.Categorized())
	assert.Equal(t, 2, s.ByCategory["Uncategorized"])
	assert.Equal(t, 1, s.ByVerdict[VerdictCorrupted])
	assert.Equal(t, 2, s.ByIntegration["slack"])
	assert.Equal(t, 1, s.ByIssueKind[IssueDuplicateName])
	assert.Equal(t, 1, s.ByIssueKind[IssueDeprecatedNode])
	assert.Equal(t, 1, s.ByIssueKind[IssueNoConnections])
	assert.Equal(t, 1, s.ByDeprecated["n8n-nodes-base.executeCommand"])
	assert.Equal(t, 2, s.ByComplexity[ComplexityLow])
	assert.Equal(t, 2, s.ByTrigger[TriggerManual])
	assert.Equal(t, 2, s.Pairs["gmail + slack"])
	assert.Equal(t, 1, s.Pairs["openai + slack"])
	assert.Len(t, s.Failures, 1)
	assert.InDelta(t, 25.0, s.Percent(s.ByVerdict[VerdictCorrupted]), 1e-9)

	assert.Equal(t, NodeStats{Total: 16, Min: 3, Max: 9, Mean: 16.0 / 3.0, Median: 4}, s.Nodes)

	top := s.TopCategories(1)
	require.Len(t, top, 1)
	// Ties are broken by key.
	assert.Equal(t, Count{Key: labelMessaging, Count: 2}, top[0])

	assert.Equal(t, []Count{{"gmail", 2}, {"slack", 2}, {"openai", 1}}, s.TopIntegrations(0))
	assert.Equal(t, Count{Key: "gmail + slack", Count: 2}, s.TopPairs(5)[0])
}

func TestSummaryMedianEven(t *testing.T) {
	s := NewSummary()
	for _, n := range []int{10, 2, 6, 4} {
		s.Add(&Result{Verdict: VerdictNeedsTrigger, NodeCount: n})
	}
	assert.Equal(t, 2, s.Nodes.Min)
	assert.Equal(t, 10, s.Nodes.Max)
	assert.InDelta(t, 5.0, s.Nodes.Median, 1e-9)
	assert.InDelta(t, 5.5, s.Nodes.Mean, 1e-9)
}

func TestSummaryEmpty(t *testing.T) {
	s := Summarize(nil, nil)
	assert.Zero(t, s.Total)
	assert.Zero(t, s.Percent(3))
	assert.Empty(t, s.TopCategories(10))
}

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auton8n-git/auton8n/pkg/workflow"
)

func TestResolveTiers(t *testing.T) {
	r := NewResolver(fixtureTables(t))

	tests := []struct {
		name     string
		ids      []string
		category string
		tier     Tier
		key      string
	}{
		{"override substring", []string{"lmchatopenai"}, labelAI, TierOverride, "lmchat"},
		{"override before canonical", []string{"googlesheets"}, labelData, TierOverride, "sheets"},
		{"canonical exact", []string{"gmail"}, labelMessaging, TierCanonical, "gmail"},
		{"fuzzy", []string{"slak"}, labelMessaging, TierFuzzy, "slack"},
		{"first identifier that resolves wins", []string{"mattermost", "gmail", "slack"}, labelMessaging, TierCanonical, "gmail"},
		{"nothing resolves", []string{"mattermost"}, workflow.DefaultCategory, TierNone, ""},
		{"no identifiers", nil, workflow.DefaultCategory, TierNone, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Resolve(tt.ids)
			assert.Equal(t, tt.category, res.Category)
			assert.Equal(t, tt.tier, res.Tier)
			assert.Equal(t, tt.key, res.Key)
		})
	}
}

func TestResolveSkipsStopListedIdentifiers(t *testing.T) {
	r := NewResolver(fixtureTables(t))

	// "webhook" is a canonical key, but it is stop-listed.
	res := r.Resolve([]string{"webhook"})
	assert.Equal(t, workflow.DefaultCategory, res.Category)
	assert.False(t, res.Resolved())

	res = r.Resolve([]string{"webhook", "set", "slack"})
	assert.Equal(t, labelMessaging, res.Category)
	assert.Equal(t, "slack", res.Identifier)
}

func TestResolveFuzzyNeverPicksStopListedKey(t *testing.T) {
	r := NewResolver(fixtureTables(t))

	// Closest canonical key is the stop-listed "webhook".
	res := r.Resolve([]string{"webhooks"})
	assert.Equal(t, workflow.DefaultCategory, res.Category)
}

func TestResolveFuzzyThreshold(t *testing.T) {
	tables := fixtureTables(t)
	constant := func(score float64) SimilarityFunc {
		return func(string, string) float64 { return score }
	}

	r := NewResolver(tables, WithSimilarity(constant(0.70), FuzzyThreshold))
	res := r.Resolve([]string{"zzz"})
	assert.Equal(t, TierNone, res.Tier, "a score of exactly the threshold must not match")

	r = NewResolver(tables, WithSimilarity(constant(0.71), FuzzyThreshold))
	res = r.Resolve([]string{"zzz"})
	assert.Equal(t, TierFuzzy, res.Tier)
	assert.Equal(t, "slack", res.Key, "ties go to the first key in table order")
	assert.InDelta(t, 0.71, res.Score, 1e-9)
}

func TestResolveFuzzyRealScores(t *testing.T) {
	r := NewResolver(fixtureTables(t))

	res := r.Resolve([]string{"slak"})
	require.Equal(t, TierFuzzy, res.Tier)
	assert.InDelta(t, 8.0/9.0, res.Score, 1e-9)

	// "gmal" scores 8/9 against gmail; "openia" scores 5/6 against openai.
	assert.Equal(t, labelMessaging, r.Resolve([]string{"gmal"}).Category)
	assert.Equal(t, labelAI, r.Resolve([]string{"openia"}).Category)
}

func TestResolveIsIdempotent(t *testing.T) {
	r := NewResolver(fixtureTables(t))
	ids := []string{"mattermost", "slak", "gmail"}

	first := r.Resolve(ids)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, r.Resolve(ids))
	}
}

func TestResolveCustomTierOrder(t *testing.T) {
	tables := fixtureTables(t)
	r := NewResolver(tables, WithMatchers(NewCanonicalMatcher(tables), NewOverrideMatcher(tables)))

	res := r.Resolve([]string{"googlesheets"})
	assert.Equal(t, TierCanonical, res.Tier)
	assert.Equal(t, "googlesheets", res.Key)
}

func TestCategorize(t *testing.T) {
	r := NewResolver(fixtureTables(t))

	res := r.Categorize("Marketing & Advertising Automation", []string{"slack"}, false)
	assert.Equal(t, "Marketing & Advertising Automation", res.Category)
	assert.Equal(t, TierPrior, res.Tier)

	res = r.Categorize("Marketing & Advertising Automation", []string{"slack"}, true)
	assert.Equal(t, labelMessaging, res.Category)

	res = r.Categorize(workflow.DefaultCategory, []string{"slack"}, false)
	assert.Equal(t, labelMessaging, res.Category)

	res = r.Categorize("  ", []string{"gmail"}, false)
	assert.Equal(t, TierCanonical, res.Tier)
}

func TestResolveDefaultTables(t *testing.T) {
	r := NewResolver(defaultTables(t))

	res := r.Resolve([]string{"slack"})
	assert.Equal(t, labelMessaging, res.Category)

	res = r.Resolve([]string{"slak"})
	assert.Equal(t, labelMessaging, res.Category)
	assert.Equal(t, TierFuzzy, res.Tier)
}

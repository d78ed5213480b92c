package engine

import (
	"strings"

	"github.com/auton8n-git/auton8n/pkg/catalog"
	"github.com/auton8n-git/auton8n/pkg/workflow"
)

// FuzzyThreshold is the similarity a fuzzy match must strictly exceed.
const FuzzyThreshold = 0.7

// OverrideMatcher matches curated keys as substrings of the identifier, in
// table order.
type OverrideMatcher struct {
	entries []catalog.Entry
}

// NewOverrideMatcher creates the override tier. Stop-listed keys are dropped.
func NewOverrideMatcher(tables *catalog.Tables) *OverrideMatcher {
	return &OverrideMatcher{entries: activeEntries(tables, tables.Overrides())}
}

// Tier implements Matcher.
func (m *OverrideMatcher) Tier() Tier { return TierOverride }

// Match implements Matcher.
func (m *OverrideMatcher) Match(id string) (Resolution, bool) {
	for _, e := range m.entries {
		if strings.Contains(id, e.Key) {
			return Resolution{Category: e.Category, Identifier: id, Tier: TierOverride, Key: e.Key, Score: 1}, true
		}
	}
	return Resolution{}, false
}

// CanonicalMatcher matches the identifier exactly against the canonical table.
type CanonicalMatcher struct {
	tables *catalog.Tables
}

// NewCanonicalMatcher creates the canonical tier.
func NewCanonicalMatcher(tables *catalog.Tables) *CanonicalMatcher {
	return &CanonicalMatcher{tables: tables}
}

// Tier implements Matcher.
func (m *CanonicalMatcher) Tier() Tier { return TierCanonical }

// Match implements Matcher.
func (m *CanonicalMatcher) Match(id string) (Resolution, bool) {
	if m.tables.Stopped(id) {
		return Resolution{}, false
	}
	label, ok := m.tables.Lookup(id)
	if !ok {
		return Resolution{}, false
	}
	return Resolution{Category: label, Identifier: id, Tier: TierCanonical, Key: id, Score: 1}, true
}

// FuzzyMatcher scores the identifier against every canonical key and accepts
// the best candidate when its score strictly exceeds the threshold. Ties go
// to the earliest key in table order.
type FuzzyMatcher struct {
	entries    []catalog.Entry
	threshold  float64
	similarity SimilarityFunc
}

// NewFuzzyMatcher creates the fuzzy tier. A nil similarity uses Similarity.
func NewFuzzyMatcher(tables *catalog.Tables, threshold float64, similarity SimilarityFunc) *FuzzyMatcher {
	if similarity == nil {
		similarity = Similarity
	}
	return &FuzzyMatcher{
		entries:    activeEntries(tables, tables.Canonical()),
		threshold:  threshold,
		similarity: similarity,
	}
}

// Tier implements Matcher.
func (m *FuzzyMatcher) Tier() Tier { return TierFuzzy }

// Match implements Matcher.
func (m *FuzzyMatcher) Match(id string) (Resolution, bool) {
	best := m.threshold
	var match catalog.Entry
	found := false
	for _, e := range m.entries {
		if score := m.similarity(id, e.Key); score > best {
			best = score
			match = e
			found = true
		}
	}
	if !found {
		return Resolution{}, false
	}
	return Resolution{Category: match.Category, Identifier: id, Tier: TierFuzzy, Key: match.Key, Score: best}, true
}

func activeEntries(tables *catalog.Tables, entries []catalog.Entry) []catalog.Entry {
	out := entries[:0]
	for _, e := range entries {
		if !tables.Stopped(e.Key) {
			out = append(out, e)
		}
	}
	return out
}

// Resolver maps identifiers to a category by trying each tier in order.
type Resolver struct {
	tables   *catalog.Tables
	matchers []Matcher
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithMatchers replaces the tier list. Tiers are tried in the given order.
func WithMatchers(matchers ...Matcher) ResolverOption {
	return func(r *Resolver) {
		r.matchers = matchers
	}
}

// WithSimilarity replaces the fuzzy tier's scoring function and threshold.
func WithSimilarity(fn SimilarityFunc, threshold float64) ResolverOption {
	return func(r *Resolver) {
		for i, m := range r.matchers {
			if m.Tier() == TierFuzzy {
				r.matchers[i] = NewFuzzyMatcher(r.tables, threshold, fn)
			}
		}
	}
}

// NewResolver creates a resolver with the override, canonical and fuzzy tiers.
func NewResolver(tables *catalog.Tables, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		tables: tables,
		matchers: []Matcher{
			NewOverrideMatcher(tables),
			NewCanonicalMatcher(tables),
			NewFuzzyMatcher(tables, FuzzyThreshold, Similarity),
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the category for a record's identifiers. Identifiers are
// tried in order, each through every tier, and the first success wins.
// Stop-listed identifiers are skipped. When nothing matches the result is the
// default category with TierNone.
func (r *Resolver) Resolve(ids []string) Resolution {
	for _, raw := range ids {
		id := catalog.Normalize(raw)
		if id == "" || r.tables.Stopped(id) {
			continue
		}
		for _, m := range r.matchers {
			if res, ok := m.Match(id); ok {
				return res
			}
		}
	}
	return Resolution{Category: workflow.DefaultCategory, Tier: TierNone}
}

// Categorize keeps a prior non-default category unless recategorize is set,
// otherwise resolves ids.
func (r *Resolver) Categorize(prior string, ids []string, recategorize bool) Resolution {
	prior = strings.TrimSpace(prior)
	if !recategorize && prior != "" && prior != workflow.DefaultCategory {
		return Resolution{Category: prior, Tier: TierPrior}
	}
	return r.Resolve(ids)
}

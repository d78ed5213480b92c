package engine

import (
	"sort"
	"strings"
)

// NodeStats describes the node-count distribution of loaded records.
type NodeStats struct {
	Total  int     `json:"total"`
	Min    int     `json:"min"`
	Max    int     `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
}

// Count is one entry of a ranked tally.
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Summary aggregates the results of a batch.
type Summary struct {
	Total           int                 `json:"total"`
	Valid           int                 `json:"valid"`
	Active          int                 `json:"active"`
	WithCredentials int                 `json:"with_credentials"`
	ByVerdict       map[Verdict]int     `json:"by_verdict"`
	ByCategory      map[string]int      `json:"by_category"`
	ByTier          map[Tier]int        `json:"by_tier"`
	ByIntegration   map[string]int      `json:"by_integration"`
	ByIssueKind     map[IssueKind]int   `json:"by_issue_kind"`
	ByComplexity    map[Complexity]int  `json:"by_complexity"`
	ByTrigger       map[TriggerType]int `json:"by_trigger"`
	ByDeprecated    map[string]int      `json:"by_deprecated_type"`
	Pairs           map[string]int      `json:"integration_pairs"`
	Nodes           NodeStats           `json:"nodes"`
	Failures        []Failure           `json:"failures,omitempty"`

	nodeCounts []int
}

// NewSummary returns an empty summary.
func NewSummary() *Summary {
	return &Summary{
		ByVerdict:     make(map[Verdict]int),
		ByCategory:    make(map[string]int),
		ByTier:        make(map[Tier]int),
		ByIntegration: make(map[string]int),
		ByIssueKind:   make(map[IssueKind]int),
		ByComplexity:  make(map[Complexity]int),
		ByTrigger:     make(map[TriggerType]int),
		ByDeprecated:  make(map[string]int),
		Pairs:         make(map[string]int),
	}
}

// Summarize aggregates results and attaches failures.
func Summarize(results []*Result, failures []Failure) *Summary {
	s := NewSummary()
	for _, r := range results {
		s.Add(r)
	}
	s.Failures = append(s.Failures, failures...)
	return s
}

// Add folds one result into the summary. It is not safe for concurrent use.
func (s *Summary) Add(r *Result) {
	s.Total++
	s.ByVerdict[r.Verdict]++
	s.ByCategory[r.Category]++
	s.ByTier[r.Resolution.Tier]++

	for _, issue := range r.Report.Issues {
		s.ByIssueKind[issue.Kind]++
	}
	for _, w := range r.Report.Warnings {
		s.ByIssueKind[w.Kind]++
	}
	for _, d := range r.Report.Deprecated {
		s.ByIssueKind[IssueDeprecatedNode]++
		s.ByDeprecated[d.Type]++
	}

	if r.Verdict == VerdictCorrupted {
		return
	}

	if r.Valid() {
		s.Valid++
	}
	if r.Active {
		s.Active++
	}
	if r.HasCredentials {
		s.WithCredentials++
	}
	s.ByComplexity[r.Complexity]++
	s.ByTrigger[r.TriggerType]++

	for _, id := range r.Integrations {
		s.ByIntegration[id]++
	}
	ids := append([]string(nil), r.Integrations...)
	sort.Strings(ids)
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			s.Pairs[ids[i]+" + "+ids[j]]++
		}
	}

	s.addNodeCount(r.NodeCount)
}

func (s *Summary) addNodeCount(n int) {
	if len(s.nodeCounts) == 0 || n < s.Nodes.Min {
		s.Nodes.Min = n
	}
	if n > s.Nodes.Max {
		s.Nodes.Max = n
	}
	s.Nodes.Total += n

	i := sort.SearchInts(s.nodeCounts, n)
	s.nodeCounts = append(s.nodeCounts, 0)
	copy(s.nodeCounts[i+1:], s.nodeCounts[i:])
	s.nodeCounts[i] = n

	count := len(s.nodeCounts)
	s.Nodes.Mean = float64(s.Nodes.Total) / float64(count)
	if count%2 == 1 {
		s.Nodes.Median = float64(s.nodeCounts[count/2])
	} else {
		s.Nodes.Median = float64(s.nodeCounts[count/2-1]+s.nodeCounts[count/2]) / 2
	}
}

// Loaded returns the number of records that could be parsed.
func (s *Summary) Loaded() int {
	return s.Total - s.ByVerdict[VerdictCorrupted]
}

// Categorized returns the number of records with a non-default category.
func (s *Summary) Categorized() int {
	n := 0
	for _, t := range []Tier{TierPrior, TierOverride, TierCanonical, TierFuzzy} {
		n += s.ByTier[t]
	}
	return n
}

// Percent returns n as a percentage of the total, or 0 for an empty batch.
func (s *Summary) Percent(n int) float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(n) * 100 / float64(s.Total)
}

// TopCategories returns the n most common categories; n <= 0 returns all.
func (s *Summary) TopCategories(n int) []Count {
	return Ranked(s.ByCategory, n)
}

// TopIntegrations returns the n most used integrations.
func (s *Summary) TopIntegrations(n int) []Count {
	return Ranked(s.ByIntegration, n)
}

// TopPairs returns the n most common integration pairs.
func (s *Summary) TopPairs(n int) []Count {
	return Ranked(s.Pairs, n)
}

// TopDeprecated returns the n most common deprecated node types.
func (s *Summary) TopDeprecated(n int) []Count {
	return Ranked(s.ByDeprecated, n)
}

// Ranked sorts a tally by count, highest first, then by key. n <= 0 keeps
// every entry.
func Ranked[K ~string](tally map[K]int, n int) []Count {
	out := make([]Count, 0, len(tally))
	for k, c := range tally {
		out = append(out, Count{Key: string(k), Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return strings.Compare(out[i].Key, out[j].Key) < 0
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

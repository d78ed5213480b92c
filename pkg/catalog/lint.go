package catalog

import (
	"fmt"
	"strings"
)

// Finding is a consistency problem in a set of tables. Findings do not make
// the tables unusable.
type Finding struct {
	Table   string `json:"table"`
	Key     string `json:"key"`
	Message string `json:"message"`
}

func (f Finding) String() string {
	return fmt.Sprintf("%s[%s]: %s", f.Table, f.Key, f.Message)
}

// Lint reports entries that can never take effect or that are likely to
// shadow others.
func (t *Tables) Lint() []Finding {
	var findings []Finding

	for _, e := range t.canonical {
		if t.Stopped(e.Key) {
			findings = append(findings, Finding{
				Table:   "canonical",
				Key:     e.Key,
				Message: "key is stop-listed and will never match",
			})
		}
	}

	for i, e := range t.overrides {
		if t.Stopped(e.Key) {
			findings = append(findings, Finding{
				Table:   "overrides",
				Key:     e.Key,
				Message: "key is stop-listed and will never match",
			})
		}
		for _, earlier := range t.overrides[:i] {
			if strings.Contains(e.Key, earlier.Key) {
				findings = append(findings, Finding{
					Table:   "overrides",
					Key:     e.Key,
					Message: fmt.Sprintf("shadowed by earlier override %q", earlier.Key),
				})
				break
			}
		}
		if label, ok := t.canonicalIndex[e.Key]; ok && label != e.Category {
			findings = append(findings, Finding{
				Table:   "overrides",
				Key:     e.Key,
				Message: fmt.Sprintf("disagrees with canonical category %q", label),
			})
		}
	}

	for i, e := range t.canonical {
		for _, earlier := range t.canonical[:i] {
			if !t.Stopped(earlier.Key) && strings.Contains(e.Key, earlier.Key) {
				findings = append(findings, Finding{
					Table:   "canonical",
					Key:     e.Key,
					Message: fmt.Sprintf("node text containing it also contains earlier key %q", earlier.Key),
				})
				break
			}
		}
	}

	return findings
}

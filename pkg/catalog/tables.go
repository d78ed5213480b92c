package catalog

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Tables is the immutable set of reference tables shared by every component
// of a run. Build it once and pass it by pointer; it is safe for concurrent
// use because nothing mutates it after Build returns.
type Tables struct {
	canonical      []Entry
	canonicalIndex map[string]string
	overrides      []Entry
	stop           map[string]struct{}
	stopList       []string
	deprecated     map[string]DeprecatedEntry
	deprecatedList []DeprecatedEntry
	triggers       []string
	triggerTypes   map[string]struct{}
	categories     []string
	origin         string
}

var validate = validator.New()

// Normalize lower-cases and trims an identifier or key.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Build validates src and freezes it into Tables. Keys are normalized; when a
// key appears more than once the first occurrence wins.
func Build(src Source) (*Tables, error) {
	if err := validate.Struct(src); err != nil {
		return nil, fmt.Errorf("invalid tables: %w", err)
	}

	t := &Tables{
		canonicalIndex: make(map[string]string, len(src.Canonical)),
		stop:           make(map[string]struct{}, len(src.StopList)),
		deprecated:     make(map[string]DeprecatedEntry, len(src.Deprecated)),
		triggerTypes:   make(map[string]struct{}, len(src.TriggerTypes)),
	}

	seenCategory := make(map[string]struct{})
	addCategory := func(label string) {
		if _, ok := seenCategory[label]; ok {
			return
		}
		seenCategory[label] = struct{}{}
		t.categories = append(t.categories, label)
	}

	for _, e := range src.Canonical {
		key := Normalize(e.Key)
		if key == "" {
			return nil, fmt.Errorf("invalid tables: canonical entry for %q has a blank key", e.Category)
		}
		if _, dup := t.canonicalIndex[key]; dup {
			continue
		}
		label := strings.TrimSpace(e.Category)
		t.canonicalIndex[key] = label
		t.canonical = append(t.canonical, Entry{Key: key, Category: label})
		addCategory(label)
	}

	seenOverride := make(map[string]struct{}, len(src.Overrides))
	for _, e := range src.Overrides {
		key := Normalize(e.Key)
		if key == "" {
			return nil, fmt.Errorf("invalid tables: override entry for %q has a blank key", e.Category)
		}
		if _, dup := seenOverride[key]; dup {
			continue
		}
		seenOverride[key] = struct{}{}
		label := strings.TrimSpace(e.Category)
		t.overrides = append(t.overrides, Entry{Key: key, Category: label})
		addCategory(label)
	}

	for _, s := range src.StopList {
		key := Normalize(s)
		if key == "" {
			continue
		}
		if _, dup := t.stop[key]; dup {
			continue
		}
		t.stop[key] = struct{}{}
		t.stopList = append(t.stopList, key)
	}

	for _, d := range src.Deprecated {
		key := Normalize(d.Type)
		if _, dup := t.deprecated[key]; dup {
			continue
		}
		d.Type = strings.TrimSpace(d.Type)
		t.deprecated[key] = d
		t.deprecatedList = append(t.deprecatedList, d)
	}

	seenTrigger := make(map[string]struct{}, len(src.TriggerKeywords))
	for _, k := range src.TriggerKeywords {
		key := Normalize(k)
		if key == "" {
			continue
		}
		if _, dup := seenTrigger[key]; dup {
			continue
		}
		seenTrigger[key] = struct{}{}
		t.triggers = append(t.triggers, key)
	}

	for _, tt := range src.TriggerTypes {
		if key := Normalize(tt); key != "" {
			t.triggerTypes[key] = struct{}{}
		}
	}

	return t, nil
}

// Canonical returns the ordered canonical table.
func (t *Tables) Canonical() []Entry {
	return append([]Entry(nil), t.canonical...)
}

// Overrides returns the ordered override table.
func (t *Tables) Overrides() []Entry {
	return append([]Entry(nil), t.overrides...)
}

// StopList returns the stop-listed identifiers in declaration order.
func (t *Tables) StopList() []string {
	return append([]string(nil), t.stopList...)
}

// DeprecatedEntries returns the deprecated node table in declaration order.
func (t *Tables) DeprecatedEntries() []DeprecatedEntry {
	return append([]DeprecatedEntry(nil), t.deprecatedList...)
}

// TriggerKeywords returns the trigger keywords in declaration order.
func (t *Tables) TriggerKeywords() []string {
	return append([]string(nil), t.triggers...)
}

// Categories returns every category label the tables can produce, in first
// appearance order.
func (t *Tables) Categories() []string {
	return append([]string(nil), t.categories...)
}

// Origin describes where the tables were loaded from.
func (t *Tables) Origin() string {
	return t.origin
}

// Lookup returns the canonical category for an exact key.
func (t *Tables) Lookup(key string) (string, bool) {
	label, ok := t.canonicalIndex[Normalize(key)]
	return label, ok
}

// Stopped reports whether id is on the stop-list.
func (t *Tables) Stopped(id string) bool {
	_, ok := t.stop[Normalize(id)]
	return ok
}

// Deprecated returns the deprecation entry for a node type.
func (t *Tables) Deprecated(nodeType string) (DeprecatedEntry, bool) {
	d, ok := t.deprecated[Normalize(nodeType)]
	return d, ok
}

// IsTrigger reports whether a node type is an entry point: it contains a
// trigger keyword or is listed as a trigger type.
func (t *Tables) IsTrigger(nodeType string) bool {
	norm := Normalize(nodeType)
	if norm == "" {
		return false
	}
	if _, ok := t.triggerTypes[norm]; ok {
		return true
	}
	for _, k := range t.triggers {
		if strings.Contains(norm, k) {
			return true
		}
	}
	return false
}

// Stats summarizes table sizes for logging and display.
type Stats struct {
	Canonical  int `json:"canonical"`
	Overrides  int `json:"overrides"`
	StopList   int `json:"stop_list"`
	Deprecated int `json:"deprecated"`
	Triggers   int `json:"trigger_keywords"`
	Categories int `json:"categories"`
}

// Stats returns the table sizes.
func (t *Tables) Stats() Stats {
	return Stats{
		Canonical:  len(t.canonical),
		Overrides:  len(t.overrides),
		StopList:   len(t.stopList),
		Deprecated: len(t.deprecatedList),
		Triggers:   len(t.triggers) + len(t.triggerTypes),
		Categories: len(t.categories),
	}
}

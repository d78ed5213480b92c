package engine

import (
	"strings"
	"unicode/utf8"

	"github.com/auton8n-git/auton8n/pkg/catalog"
	"github.com/auton8n-git/auton8n/pkg/workflow"
)

// minNovelIdentifier is the rune count a namespaced type suffix must exceed to be
// accepted as an identifier that is not in the canonical table.
const minNovelIdentifier = 2

// Extractor derives integration identifiers from nodes.
type Extractor struct {
	tables    *catalog.Tables
	canonical []catalog.Entry
}

// NewExtractor creates an extractor over the given tables.
func NewExtractor(tables *catalog.Tables) *Extractor {
	return &Extractor{tables: tables, canonical: tables.Canonical()}
}

// Extract returns the identifier for a node, if any. The lower-cased type and
// name are scanned for canonical keys in table order; the first key found is
// the identifier. Failing that, the suffix of a namespaced type
// ("<namespace>.<suffix>") is used when it is long enough. Stop-listed
// identifiers are never returned.
func (e *Extractor) Extract(nodeType, nodeName string) (string, bool) {
	text := strings.ToLower(nodeType + " " + nodeName)

	for _, entry := range e.canonical {
		if e.tables.Stopped(entry.Key) {
			continue
		}
		if strings.Contains(text, entry.Key) {
			return entry.Key, true
		}
	}

	dot := strings.LastIndex(nodeType, ".")
	if dot < 0 {
		return "", false
	}
	suffix := catalog.Normalize(nodeType[dot+1:])
	if utf8.RuneCountInString(suffix) <= minNovelIdentifier {
		return "", false
	}
	if e.tables.Stopped(suffix) {
		return "", false
	}
	return suffix, true
}

// ExtractNode is Extract applied to a parsed node. Malformed nodes yield nothing.
func (e *Extractor) ExtractNode(n workflow.Node) (string, bool) {
	if n.Malformed {
		return "", false
	}
	return e.Extract(n.Type, n.Name)
}

// ExtractAll returns the identifiers of a record's nodes in node order, with
// duplicates removed.
func (e *Extractor) ExtractAll(rec *workflow.Record) []string {
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, n := range rec.Nodes() {
		id, ok := e.ExtractNode(n)
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// Package catalog holds the reference tables that drive classification: the
// canonical identifier to category table, the curated override table, the
// internal-node stop-list, the deprecated node table and the trigger keywords.
//
// Tables are built once from the embedded defaults, optionally merged with a
// YAML, JSON or CUE file, and are immutable afterwards. Components receive a
// *Tables explicitly; there is no package-level lookup state. Long running
// processes that want to pick up edits use a Holder together with a Watcher,
// which swaps in freshly built tables on change.
package catalog

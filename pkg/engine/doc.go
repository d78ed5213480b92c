// Package engine classifies workflow records.
//
// # Overview
//
// Every record goes through the same pure pass, implemented by Analyzer:
//
//  1. Extract - derive integration identifiers from node types and names (Extractor)
//  2. Resolve - map identifiers to a category label (Resolver)
//  3. Validate - check the record's structure (Validator)
//  4. Classify - assign one usability verdict (Classifier)
//
// Extraction feeds resolution; validation feeds classification. Both halves
// attach to the same Result. The pass performs no I/O: records come from a
// RecordStore and write-back is applied afterwards by the Runner.
//
// # Category resolution
//
// Resolution tries each identifier in order against a list of Matcher tiers.
// The default tiers are the curated override table (substring match), the
// canonical table (exact match) and a fuzzy fallback that accepts the best
// canonical key whose similarity strictly exceeds FuzzyThreshold. Stop-listed
// identifiers and keys never take part. A record whose identifiers all miss
// is given workflow.DefaultCategory.
//
// # Verdicts
//
// The classifier evaluates DefaultRules top-down and the first rule that
// applies decides:
//
//   - corrupted: the record could not be parsed
//   - security_risk: a node executes commands on the host
//   - cloud_incompatible: a node touches the local file system
//   - needs_trigger: no entry point node, or structural defects
//   - production_ready: everything else
//
// A record with any structural issue is never production_ready.
//
// # Batches
//
// Runner processes many records with a bounded worker pool. A failure on one
// record never stops the batch: parse failures become corrupted results and
// write-back or indexing errors are collected in Summary.Failures.
//
// # Thread Safety
//
// Analyzer, Extractor, Resolver, Validator and Classifier are immutable after
// construction and safe for concurrent use. Summary is not.
package engine

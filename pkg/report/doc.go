// Package report renders the outputs of a classification batch: the
// validation report and problematic list, the per-verdict bucket lists
// with their README and import script, the analysis text and JSON exports,
// and the terminal dashboard.
//
// Renderers are pure functions of engine results and write to an
// io.Writer; only WriteBuckets touches the file system.
package report

// Package query filters classification results with Starlark expressions.
//
//	f, err := query.Compile(`verdict == "production_ready" and node_count > 10`)
//	ready, err := f.Select(ctx, batch.Results)
//
// Expressions are sandboxed: they cannot load modules, print, or run for
// more than a bounded number of steps.
package query

// Package stores provides the SQLite workflow index for auton8n.
//
// The index records one row per classified workflow (category, verdict,
// integrations, complexity), its validation findings, a full-text search
// document, and the classification runs that produced them. Schema changes
// are applied from embedded migrations on Migrate.
//
// The index is derived data: it can always be rebuilt from the workflow
// files, and nothing in the classification pass reads it back.
//
//	store, err := stores.Open(ctx, stores.Config{Path: "auton8n.db"})
//	run, err := store.CreateRun(ctx, "classify", root)
//	runner := engine.NewRunner(analyzer, files, logger, cfg,
//	    engine.WithSink(store.ResultSink(run.ID)))
package stores

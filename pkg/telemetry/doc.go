// Package telemetry provides observability instrumentation for auton8n.
//
// The package integrates structured logging (zerolog), distributed tracing
// (OpenTelemetry) and metrics (Prometheus).
//
// # Usage
//
// Initialize telemetry at application startup:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.ServiceVersion = "1.0.0"
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
//	ctx = tel.WithContext(ctx)
//
// # Structured Logging
//
// Library packages take a zerolog.Logger; obtain one for a component with
//
//	logger := tel.Logger.NewComponentLogger("runner").Zerolog()
//
// # Tracing
//
// Exporters are "stdout" for local debugging, "otlp" for an OTLP gRPC
// collector, and "none" to generate spans without exporting them. The batch
// runner starts one span per batch and one per record.
//
// # Metrics
//
// Metrics implements engine.Observer, so it can be handed to the batch runner
// directly:
//
//	runner := engine.NewRunner(analyzer, store, logger, cfg,
//	    engine.WithObserver(tel.Metrics))
//
// Exposed series include:
//
//   - auton8n_records_processed_total{verdict}
//   - auton8n_records_categorized_total{category,tier}
//   - auton8n_record_duration_seconds
//   - auton8n_issues_total{kind}
//   - auton8n_parse_errors_total
//   - auton8n_writeback_errors_total
//   - auton8n_batches_completed_total, auton8n_batch_duration_seconds
//   - auton8n_table_reloads_total{status}
//
// The watch command serves them on the configured listen address.
package telemetry

package telemetry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/auton8n-git/auton8n/pkg/engine"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"default", func(*Config) {}, ""},
		{"development", func(c *Config) { *c = *DevelopmentConfig() }, ""},
		{"missing service", func(c *Config) { c.ServiceName = "" }, "service name"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "invalid log level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "invalid log format"},
		{"bad exporter", func(c *Config) { c.Tracing.Enabled = true; c.Tracing.Exporter = "jaeger" }, "invalid trace exporter"},
		{"disabled tracing ignores exporter", func(c *Config) { c.Tracing.Exporter = "jaeger" }, ""},
		{"bad sampling", func(c *Config) { c.Tracing.SamplingRate = 2 }, "sampling rate"},
		{"missing metrics path", func(c *Config) { c.Metrics.Path = "" }, "metrics path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, LoggingConfig{Level: "debug", Format: "json"})

	logger.NewComponentLogger("runner").WithRef("a.json").WithRunID("run-1").Info("Workflow analyzed")
	logger.Debug("count=3")

	out := buf.String()
	assert.Contains(t, out, `"component":"runner"`)
	assert.Contains(t, out, `"ref":"a.json"`)
	assert.Contains(t, out, `"run_id":"run-1"`)
	assert.Contains(t, out, `"message":"Workflow analyzed"`)
	assert.Contains(t, out, `count=3`)
}

func TestLoggerLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, LoggingConfig{Level: "warn", Format: "json"})

	logger.Info("hidden")
	logger.WithError(errors.New("boom")).Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"error":"boom"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("nonsense"))
}

func TestLoggerContext(t *testing.T) {
	logger := NewNopLogger()
	ctx := logger.WithContext(context.Background())
	assert.Same(t, logger, FromContext(ctx))
	assert.NotNil(t, FromContext(context.Background()))
}

func TestDisabledTracer(t *testing.T) {
	tracer, err := NewTracer(TracingConfig{Enabled: false}, "auton8n", "test", "test")
	require.NoError(t, err)

	ctx, span := tracer.StartSpan(context.Background(), "command.classify", AttrCommand.String("classify"))
	defer span.End()
	assert.Empty(t, TraceID(ctx))
	assert.NoError(t, tracer.Shutdown(context.Background()))
}

func TestTracerWithoutExporter(t *testing.T) {
	tracer, err := NewTracer(TracingConfig{Enabled: true, Exporter: "none", SamplingRate: 1}, "auton8n", "test", "test")
	require.NoError(t, err)
	defer tracer.Shutdown(context.Background())

	ctx, span := tracer.StartSpan(context.Background(), "batch.run")
	assert.NotEmpty(t, TraceID(ctx))
	RecordError(span, errors.New("x"))
	span.End()
}

func TestRecordErrorClassifies(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer provider.Shutdown(context.Background())

	_, span := provider.Tracer("test").Start(context.Background(), "command.categorize")
	RecordError(span, fmt.Errorf("setup: %w", engine.NewConfigError("bad tables", nil).WithCode("TABLES")))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)

	attrs := map[attribute.Key]string{}
	for _, kv := range ended[0].Attributes() {
		attrs[kv.Key] = kv.Value.AsString()
	}
	assert.Equal(t, "config", attrs[AttrErrorClass])
	assert.Equal(t, "TABLES", attrs[AttrErrorCode])
}

func TestStartOperation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Output = "stderr"
	tel, err := NewTelemetry(cfg)
	require.NoError(t, err)
	defer tel.Shutdown(context.Background())

	op := StartOperation(tel.WithContext(context.Background()), "classify")
	require.NotNil(t, op.Span)
	assert.Same(t, tel, FromTelemetryContext(op.Ctx))
	op.End(nil)

	bare := StartOperation(context.Background(), "classify")
	assert.Nil(t, bare.Span)
	bare.End(errors.New("ignored"))
}

package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/marmos91/botkit/internal/logger"
)

// useRecorder installs an in-memory tracer for the duration of the test.
func useRecorder(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	prev, wasEnabled := Tracer(), IsEnabled()
	setTracer(tp.Tracer("test"), true)
	t.Cleanup(func() {
		setTracer(prev, wasEnabled)
		_ = tp.Shutdown(context.Background())
	})
	return exp
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "botkit", cfg.ServiceName)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
	assert.False(t, cfg.Profiling.Enabled)
	assert.NotEmpty(t, cfg.Profiling.ProfileTypes)
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()

	shutdown, err := Init(ctx, DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(ctx))
	assert.False(t, IsEnabled())
}

func TestInitProfilingDisabled(t *testing.T) {
	shutdown, err := InitProfiling(ProfilingConfig{})
	require.NoError(t, err)
	assert.NoError(t, shutdown())
	assert.False(t, IsProfilingEnabled())
}

func TestParseProfileType(t *testing.T) {
	_, err := parseProfileType("cpu")
	assert.NoError(t, err)
	_, err = parseProfileType("heap")
	assert.Error(t, err)
}

func TestInitProfilingRejectsUnknownType(t *testing.T) {
	_, err := InitProfiling(ProfilingConfig{Enabled: true, ProfileTypes: []string{"cpu", "heap"}})
	require.Error(t, err)
	assert.False(t, IsProfilingEnabled())
}

func TestNoopHelpers(t *testing.T) {
	ctx := context.Background()

	require.NotPanics(t, func() {
		RecordError(ctx, nil)
		RecordError(ctx, errors.New("boom"))
		SetAttributes(ctx, Module("bot"))
	})
	assert.Equal(t, "", TraceID(ctx))
	assert.Equal(t, "", SpanID(ctx))
	assert.Equal(t, ctx, WithLogContext(ctx))
}

func TestStartModuleSpan(t *testing.T) {
	exp := useRecorder(t)

	_, span := StartModuleSpan(context.Background(), SpanModuleStart, "database", Phase("start"))
	Finish(span, nil)

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, SpanModuleStart, spans[0].Name)
	assert.Contains(t, spans[0].Attributes, Module("database"))
	assert.Contains(t, spans[0].Attributes, Phase("start"))
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
}

func TestStartJobSpanIsRoot(t *testing.T) {
	exp := useRecorder(t)

	parentCtx, parent := StartSpan(context.Background(), "parent")
	_, child := StartJobSpan(parentCtx, "remind-users")
	Finish(child, errors.New("failed"))
	parent.End()

	spans := exp.GetSpans()
	require.Len(t, spans, 2)
	job := spans[0]
	assert.Equal(t, SpanJobRun, job.Name)
	assert.False(t, job.Parent.IsValid())
	assert.Equal(t, codes.Error, job.Status.Code)
	assert.Len(t, job.Events, 1)
}

func TestStartClientSpan(t *testing.T) {
	exp := useRecorder(t)

	_, span := StartClientSpan(context.Background(), SpanBotCall, BotMethod("sendMessage"), ChatID(7))
	span.End()

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, trace.SpanKindClient, spans[0].SpanKind)
}

func TestModuleSpanCarriesTraceIntoLogs(t *testing.T) {
	useRecorder(t)

	ctx := logger.WithModule(context.Background(), "bot")
	ctx, span := StartModuleSpan(ctx, SpanModuleConfigure, "bot")
	defer span.End()

	lc := logger.FromContext(ctx)
	require.NotNil(t, lc)
	assert.Equal(t, "bot", lc.Module)
	assert.Equal(t, TraceID(ctx), lc.TraceID)
}

func TestSamplerFor(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), samplerFor(1.5).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), samplerFor(0).Description())
	assert.Contains(t, samplerFor(0.25).Description(), "TraceIDRatioBased")
}

func TestWithLogContext(t *testing.T) {
	useRecorder(t)

	ctx := logger.WithModule(context.Background(), "scheduler")
	ctx, span := StartSpan(ctx, "op")
	defer span.End()

	ctx = WithLogContext(ctx)
	lc := logger.FromContext(ctx)
	require.NotNil(t, lc)
	assert.Equal(t, "scheduler", lc.Module)
	assert.Equal(t, TraceID(ctx), lc.TraceID)
	assert.Equal(t, SpanID(ctx), lc.SpanID)
	assert.NotEmpty(t, lc.TraceID)
}

func TestAttributeHelpers(t *testing.T) {
	assert.Equal(t, AttrJob, string(Job("sync-items").Key))
	assert.Equal(t, "run-1", RunID("run-1").Value.AsString())
	assert.Equal(t, int64(3), Recipients(3).Value.AsInt64())
	assert.Equal(t, "exports", Bucket("exports").Value.AsString())
	assert.Equal(t, "a/b.json", StorageKey("a/b.json").Value.AsString())
}

package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys attached to botkit spans.
const (
	// ========================================================================
	// Lifecycle
	// ========================================================================
	AttrModule      = "botkit.module"
	AttrPhase       = "botkit.phase" // configure, start, shutdown
	AttrModuleCount = "botkit.module_count"
	AttrReason      = "botkit.reason"

	// ========================================================================
	// Scheduling & dispatch
	// ========================================================================
	AttrJob        = "botkit.job"
	AttrRunID      = "botkit.run_id"
	AttrRecipients = "botkit.recipients"
	AttrDelivered  = "botkit.delivered"
	AttrFailed     = "botkit.failed"
	AttrAborted    = "botkit.aborted"
	AttrLateness   = "botkit.lateness_ms"

	// ========================================================================
	// Bot
	// ========================================================================
	AttrBotMethod = "bot.method"
	AttrChatID    = "bot.chat_id"
	AttrUpdateID  = "bot.update_id"
	AttrCommand   = "bot.command"

	// ========================================================================
	// Storage
	// ========================================================================
	AttrBucket = "storage.bucket"
	AttrKey    = "storage.key"
)

// Span names.
const (
	SpanLifecycleConfigure = "lifecycle.configure"
	SpanLifecycleStart     = "lifecycle.start"
	SpanLifecycleShutdown  = "lifecycle.shutdown"
	SpanModuleConfigure    = "module.configure"
	SpanModuleStart        = "module.start"
	SpanModuleShutdown     = "module.shutdown"

	SpanJobRun      = "scheduler.job"
	SpanDispatchRun = "dispatch.run"

	SpanBotCall   = "bot.call"
	SpanBotUpdate = "bot.update"

	SpanObjectPut = "objectstore.put"

	SpanAPIRequest = "apiclient.request"
)

func Module(name string) attribute.KeyValue {
	return attribute.String(AttrModule, name)
}

func Phase(phase string) attribute.KeyValue {
	return attribute.String(AttrPhase, phase)
}

func Job(name string) attribute.KeyValue {
	return attribute.String(AttrJob, name)
}

func RunID(id string) attribute.KeyValue {
	return attribute.String(AttrRunID, id)
}

func Recipients(n int) attribute.KeyValue {
	return attribute.Int(AttrRecipients, n)
}

func ChatID(id int64) attribute.KeyValue {
	return attribute.Int64(AttrChatID, id)
}

func BotMethod(method string) attribute.KeyValue {
	return attribute.String(AttrBotMethod, method)
}

func Bucket(name string) attribute.KeyValue {
	return attribute.String(AttrBucket, name)
}

func StorageKey(key string) attribute.KeyValue {
	return attribute.String(AttrKey, key)
}

// StartModuleSpan starts a span for one lifecycle phase of a module. The
// returned context logs with the span's trace id.
func StartModuleSpan(ctx context.Context, spanName, module string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{Module(module)}, attrs...)
	ctx, span := StartSpan(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(allAttrs...),
	)
	return WithLogContext(ctx), span
}

// StartJobSpan starts the root span of a scheduled job execution.
func StartJobSpan(ctx context.Context, job string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{Job(job)}, attrs...)
	ctx, span := StartSpan(ctx, SpanJobRun,
		trace.WithNewRoot(),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(allAttrs...),
	)
	return WithLogContext(ctx), span
}

// StartClientSpan starts a span around an outbound call (bot API, object store).
func StartClientSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

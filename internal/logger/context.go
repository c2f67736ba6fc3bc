package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds operation-scoped logging context
type LogContext struct {
	TraceID   string    // OpenTelemetry trace ID
	SpanID    string    // OpenTelemetry span ID
	Module    string    // Owning module (database, bot, scheduler, ...)
	Job       string    // Scheduled job name
	RunID     string    // Dispatcher run identifier
	RequestID string    // HTTP request identifier
	StartTime time.Time // For duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// WithModule returns a context whose LogContext carries the module name.
// Fields already present on the parent LogContext are preserved.
func WithModule(ctx context.Context, module string) context.Context {
	lc := FromContext(ctx).clone()
	lc.Module = module
	return WithContext(ctx, lc)
}

// WithJob returns a context whose LogContext carries the job name.
func WithJob(ctx context.Context, job string) context.Context {
	lc := FromContext(ctx).clone()
	lc.Job = job
	if lc.StartTime.IsZero() {
		lc.StartTime = time.Now()
	}
	return WithContext(ctx, lc)
}

// WithRunID returns a context whose LogContext carries the dispatcher run id.
func WithRunID(ctx context.Context, runID string) context.Context {
	lc := FromContext(ctx).clone()
	lc.RunID = runID
	return WithContext(ctx, lc)
}

// clone returns a copy of the LogContext, or an empty one for nil.
func (lc *LogContext) clone() *LogContext {
	if lc == nil {
		return &LogContext{}
	}
	cp := *lc
	return &cp
}

// Duration returns the elapsed time since StartTime.
func (lc *LogContext) Duration() time.Duration {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return time.Since(lc.StartTime)
}

// fields returns the non-empty fields as slog key/value pairs.
func (lc *LogContext) fields() []any {
	out := make([]any, 0, 12)
	for _, kv := range [...]struct{ key, val string }{
		{KeyTraceID, lc.TraceID},
		{KeySpanID, lc.SpanID},
		{KeyModule, lc.Module},
		{KeyJob, lc.Job},
		{KeyRunID, lc.RunID},
		{KeyRequestID, lc.RequestID},
	} {
		if kv.val != "" {
			out = append(out, kv.key, kv.val)
		}
	}
	return out
}

package logger

import (
	"log/slog"
	"time"
)

// Standard field keys for structured logging.
// Use these keys consistently so lifecycle and dispatch logs can be queried together.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Lifecycle
	// ========================================================================
	KeyModule = "module" // Module name: database, bot, server, ...
	KeyPhase  = "phase"  // Lifecycle phase: configure, start, shutdown
	KeyState  = "state"  // Orchestrator state
	KeyTask   = "task"   // Supervised task name
	KeyReason = "reason" // Termination reason

	// ========================================================================
	// Scheduling & Dispatch
	// ========================================================================
	KeyJob        = "job"         // Scheduled job name
	KeyRunID      = "run_id"      // Dispatcher run identifier
	KeyRecipient  = "recipient"   // Recipient (chat) identifier
	KeyAttempt    = "attempt"     // Delivery attempt number (1-based)
	KeyResult     = "result"      // Per-recipient dispatch result
	KeyClass      = "class"       // Failure classification
	KeyDelivered  = "delivered"   // Number of delivered notifications
	KeyFailed     = "failed"      // Number of failed notifications
	KeyRecipients = "recipients"  // Number of recipients in a run
	KeyBackoff    = "backoff"     // Wait before the next attempt
	KeyScheduled  = "scheduled"   // Scheduled fire time
	KeyLateness   = "lateness"    // Delay between scheduled and actual fire time
	KeyUpdateID   = "update_id"   // Bot update identifier
	KeyCommand    = "command"     // Bot command
	KeyChatID     = "chat_id"     // Chat identifier
	KeyRequestID  = "request_id"  // HTTP request identifier
	KeyClientIP   = "client_ip"   // HTTP client address
	KeyUsername   = "username"    // Admin or bot username
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
)

// Err returns an error attribute, or an empty attribute for nil errors.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Module returns a module name attribute.
func Module(name string) slog.Attr {
	return slog.String(KeyModule, name)
}

// Job returns a scheduled job name attribute.
func Job(name string) slog.Attr {
	return slog.String(KeyJob, name)
}

// Recipient returns a recipient identifier attribute.
func Recipient(id int64) slog.Attr {
	return slog.Int64(KeyRecipient, id)
}

// DurationMs returns a duration attribute expressed in milliseconds.
func DurationMs(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMs, float64(d.Microseconds())/1000.0)
}

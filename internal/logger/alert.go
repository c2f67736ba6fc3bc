package logger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"unicode/utf8"
)

// MaxAlertLength is the longest alert text forwarded to an Alerter.
// Longer messages are truncated.
const MaxAlertLength = 4096

// alertQueueSize bounds the number of alerts waiting for delivery.
// Records arriving while the queue is full are dropped.
const alertQueueSize = 64

// Alerter delivers high-severity log records to maintainers.
type Alerter interface {
	Alert(ctx context.Context, text string) error
}

type suppressKey struct{}

// SuppressAlerts marks ctx so that records logged with it are never forwarded
// to the Alerter. Alerter implementations must log their own failures with such
// a context.
func SuppressAlerts(ctx context.Context) context.Context {
	return context.WithValue(ctx, suppressKey{}, true)
}

func alertsSuppressed(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	v, _ := ctx.Value(suppressKey{}).(bool)
	return v
}

type alertSink struct {
	alerter Alerter
	level   slog.Level
	queue   chan string
	done    chan struct{}

	// mu guards closed and the close of queue
	mu     sync.Mutex
	closed bool
}

var (
	sinkMu sync.RWMutex
	sink   *alertSink
)

// StartAlerts forwards every record at or above level to a. Delivery happens
// on a single background goroutine. The returned stop function drains the queue
// and detaches the alerter; it is safe to call more than once.
func StartAlerts(a Alerter, level string) (stop func()) {
	s := &alertSink{
		alerter: a,
		level:   toSlogLevel(ParseLevel(level)),
		queue:   make(chan string, alertQueueSize),
		done:    make(chan struct{}),
	}

	sinkMu.Lock()
	prev := sink
	sink = s
	sinkMu.Unlock()
	if prev != nil {
		prev.close()
	}

	go s.run()

	var once sync.Once
	return func() {
		once.Do(func() {
			sinkMu.Lock()
			if sink == s {
				sink = nil
			}
			sinkMu.Unlock()
			s.close()
		})
	}
}

func (s *alertSink) run() {
	defer close(s.done)
	ctx := SuppressAlerts(context.Background())
	for text := range s.queue {
		if err := s.alerter.Alert(ctx, text); err != nil {
			WarnCtx(ctx, "Failed to deliver log alert", KeyError, err)
		}
	}
}

func (s *alertSink) close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	<-s.done
}

// offer queues text without blocking. It reports false when the text was
// dropped: the queue is full or the sink is closed.
func (s *alertSink) offer(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.queue <- text:
		return true
	default:
		return false
	}
}

// alertHandler wraps the output handler and tees qualifying records to the
// active alert sink.
type alertHandler struct {
	next  slog.Handler
	attrs []slog.Attr
}

func (h *alertHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *alertHandler) Handle(ctx context.Context, r slog.Record) error {
	err := h.next.Handle(ctx, r)

	sinkMu.RLock()
	s := sink
	sinkMu.RUnlock()
	if s != nil && r.Level >= s.level && !alertsSuppressed(ctx) {
		s.offer(formatAlert(r, h.attrs))
	}
	return err
}

func (h *alertHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &alertHandler{
		next:  h.next.WithAttrs(attrs),
		attrs: append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *alertHandler) WithGroup(name string) slog.Handler {
	return &alertHandler{next: h.next.WithGroup(name), attrs: h.attrs}
}

// formatAlert renders a record as plain text suitable for a chat message.
func formatAlert(r slog.Record, attrs []slog.Attr) string {
	buf := fmt.Appendf(nil, "[%s] [%s] %s", r.Time.Format("2006-01-02 15:04:05"), r.Level.String(), r.Message)
	for _, a := range attrs {
		buf = fmt.Appendf(buf, " %s=%s", a.Key, formatValue(a.Value.Resolve()))
	}
	r.Attrs(func(a slog.Attr) bool {
		if !a.Equal(slog.Attr{}) {
			buf = fmt.Appendf(buf, " %s=%s", a.Key, formatValue(a.Value.Resolve()))
		}
		return true
	})
	return truncate(string(buf), MaxAlertLength)
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}

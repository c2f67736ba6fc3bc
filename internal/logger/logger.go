package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents log levels
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < LevelDebug || l > LevelError {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// Config holds logger configuration
type Config struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // text, json
	Output string // stdout, stderr, or file path
}

// destination is where records go and how they look.
type destination struct {
	w      io.Writer
	file   *os.File // owned log file, closed when replaced
	color  bool
	format string
}

var (
	// level is shared by every handler built below, so changing it needs no
	// rebuild.
	level slog.LevelVar

	mu      sync.RWMutex
	dest    = destination{w: os.Stdout, format: "text"}
	slogger *slog.Logger
)

func init() {
	dest.color = isTerminal(os.Stdout.Fd())
	rebuild()
}

// lookupLevel maps a level name to a Level.
func lookupLevel(name string) (Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	}
	return LevelInfo, false
}

// ParseLevel converts a level name to a Level. Unknown names map to LevelInfo.
func ParseLevel(name string) Level {
	l, _ := lookupLevel(name)
	return l
}

func toSlogLevel(l Level) slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GetLevel returns the current minimum level.
func GetLevel() Level {
	switch l := level.Level(); {
	case l <= slog.LevelDebug:
		return LevelDebug
	case l <= slog.LevelInfo:
		return LevelInfo
	case l <= slog.LevelWarn:
		return LevelWarn
	default:
		return LevelError
	}
}

// rebuild swaps in a handler for the current destination.
func rebuild() {
	mu.Lock()
	defer mu.Unlock()

	opts := &slog.HandlerOptions{Level: &level}
	var base slog.Handler
	if dest.format == "json" {
		base = slog.NewJSONHandler(dest.w, opts)
	} else {
		base = NewColorTextHandler(dest.w, opts, dest.color)
	}
	slogger = slog.New(&alertHandler{next: base})
}

// setDestination replaces the output writer, closing a log file opened by a
// previous Init.
func setDestination(w io.Writer, file *os.File, color bool) {
	mu.Lock()
	prev := dest.file
	dest.w, dest.file, dest.color = w, file, color
	mu.Unlock()

	rebuild()
	if prev != nil && prev != file {
		_ = prev.Close()
	}
}

// Init initializes the logger with the given configuration.
// Output can be "stdout", "stderr", or a file path.
func Init(cfg Config) error {
	switch out := strings.TrimSpace(cfg.Output); strings.ToLower(out) {
	case "":
	case "stdout":
		setDestination(os.Stdout, nil, isTerminal(os.Stdout.Fd()))
	case "stderr":
		setDestination(os.Stderr, nil, isTerminal(os.Stderr.Fd()))
	default:
		f, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file %q: %w", out, err)
		}
		setDestination(f, f, false)
	}

	SetLevel(cfg.Level)
	SetFormat(cfg.Format)
	return nil
}

// InitWithWriter initializes the logger with a custom io.Writer.
// This is primarily useful for testing.
func InitWithWriter(w io.Writer, levelName, format string, enableColor bool) {
	setDestination(w, nil, enableColor)
	SetLevel(levelName)
	SetFormat(format)
}

// SetLevel sets the minimum log level. Unknown names are ignored.
func SetLevel(name string) {
	if l, ok := lookupLevel(name); ok {
		level.Set(toSlogLevel(l))
	}
}

// SetFormat sets the output format (text or json). Other values are ignored.
func SetFormat(format string) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "text" && format != "json" {
		return
	}
	mu.Lock()
	changed := dest.format != format
	dest.format = format
	mu.Unlock()
	if changed {
		rebuild()
	}
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return slogger
}

// log is the single entry point behind the level functions. Context fields
// go first so they lead the rendered line.
func log(ctx context.Context, l slog.Level, msg string, args []any) {
	if l < level.Level() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	} else if lc := FromContext(ctx); lc != nil {
		args = append(lc.fields(), args...)
	}
	current().Log(ctx, l, msg, args...)
}

// Debug logs at debug level with structured fields
// Usage: Debug("message", "key1", value1, "key2", value2)
func Debug(msg string, args ...any) { log(nil, slog.LevelDebug, msg, args) }

func Info(msg string, args ...any) { log(nil, slog.LevelInfo, msg, args) }

func Warn(msg string, args ...any) { log(nil, slog.LevelWarn, msg, args) }

func Error(msg string, args ...any) { log(nil, slog.LevelError, msg, args) }

// DebugCtx logs at debug level, adding the LogContext fields carried by ctx
// (trace_id, module, job, run_id...).
func DebugCtx(ctx context.Context, msg string, args ...any) {
	log(ctx, slog.LevelDebug, msg, args)
}

func InfoCtx(ctx context.Context, msg string, args ...any) {
	log(ctx, slog.LevelInfo, msg, args)
}

func WarnCtx(ctx context.Context, msg string, args ...any) {
	log(ctx, slog.LevelWarn, msg, args)
}

func ErrorCtx(ctx context.Context, msg string, args ...any) {
	log(ctx, slog.LevelError, msg, args)
}

// With returns a new slog.Logger with additional attributes
func With(args ...any) *slog.Logger {
	return current().With(args...)
}

// Slog returns the underlying slog.Logger, for libraries that accept one.
func Slog() *slog.Logger {
	return current()
}

// Duration returns duration since start time in milliseconds
func Duration(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

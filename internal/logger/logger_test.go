package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Test Helper Functions
// ============================================================================

// captureOutput redirects logger output to a buffer and returns a function
// restoring the previous destination, level and format.
func captureOutput() (*bytes.Buffer, func()) {
	buf := new(bytes.Buffer)

	mu.RLock()
	saved := dest
	mu.RUnlock()
	savedLevel := level.Level()

	setDestination(buf, nil, false)

	return buf, func() {
		mu.Lock()
		dest = saved
		mu.Unlock()
		rebuild()
		level.Set(savedLevel)
	}
}

type recordingAlerter struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (r *recordingAlerter) Alert(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
	return r.err
}

func (r *recordingAlerter) Texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.texts...)
}

// ============================================================================
// Level Filtering Tests
// ============================================================================

func TestLevelFiltering(t *testing.T) {
	t.Run("DebugLevelShowsAllMessages", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("DEBUG")

		Debug("debug message")
		Info("info message")
		Warn("warn message")
		Error("error message")

		out := buf.String()
		for _, want := range []string{"DEBUG", "INFO", "WARN", "ERROR", "debug message", "error message"} {
			assert.Contains(t, out, want)
		}
	})

	t.Run("WarnLevelFiltersDebugAndInfo", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("WARN")

		Debug("debug message")
		Info("info message")
		Warn("warn message")

		out := buf.String()
		assert.NotContains(t, out, "debug message")
		assert.NotContains(t, out, "info message")
		assert.Contains(t, out, "warn message")
	})

	t.Run("ErrorAlwaysLogged", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("ERROR")
		Warn("warn message")
		Error("error message")

		assert.NotContains(t, buf.String(), "warn message")
		assert.Contains(t, buf.String(), "error message")
	})
}

func TestSetLevel(t *testing.T) {
	t.Run("SetLevelIsCaseInsensitive", func(t *testing.T) {
		_, cleanup := captureOutput()
		defer cleanup()

		SetLevel("debug")
		assert.Equal(t, LevelDebug, GetLevel())
		SetLevel("Warn")
		assert.Equal(t, LevelWarn, GetLevel())
	})

	t.Run("SetLevelIgnoresInvalidValues", func(t *testing.T) {
		_, cleanup := captureOutput()
		defer cleanup()

		SetLevel("ERROR")
		SetLevel("LOUD")
		assert.Equal(t, LevelError, GetLevel())
	})
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel("WARNING"))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel("bogus"))
	assert.Equal(t, "UNKNOWN", Level(99).String())
}

// ============================================================================
// Text Handler Tests
// ============================================================================

func TestTextFormatting(t *testing.T) {
	t.Run("FormatsTimestampLevelAndFields", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()
		SetLevel("INFO")

		Info("user reminded", KeyRecipient, int64(42), KeyAttempt, 2)

		line := buf.String()
		assert.Regexp(t, `^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\] \[INFO\] user reminded`, line)
		assert.Contains(t, line, "recipient=42")
		assert.Contains(t, line, "attempt=2")
	})

	t.Run("ModuleRenderedAsPrefix", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()
		SetLevel("INFO")

		Info("Module started", KeyModule, "scheduler")

		line := buf.String()
		assert.Contains(t, line, "[INFO] [scheduler] Module started")
		assert.NotContains(t, line, "module=")
	})

	t.Run("QuotesValuesWithSpaces", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()
		SetLevel("INFO")

		Info("failed", KeyError, errors.New("chat not found"))

		assert.Contains(t, buf.String(), `error="chat not found"`)
	})

	t.Run("GroupsFlattenToDottedKeys", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()
		SetLevel("INFO")

		With("component", "api").WithGroup("http").Info("request", "status", 200)

		line := buf.String()
		assert.Contains(t, line, "component=api")
		assert.Contains(t, line, "http.status=200")
	})
}

func TestJSONFormat(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("INFO")
	SetFormat("json")

	Info("json message", KeyJob, "remind-users", KeyDelivered, 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "json message", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "remind-users", entry[KeyJob])
	assert.EqualValues(t, 3, entry[KeyDelivered])
	assert.NotEmpty(t, entry["time"])
}

func TestFormatSwitching(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()
	SetLevel("INFO")

	SetFormat("text")
	Info("as text")
	SetFormat("yaml")
	Info("still text")

	out := buf.String()
	assert.Contains(t, out, "[INFO] as text")
	assert.Contains(t, out, "[INFO] still text")
}

// ============================================================================
// Context Tests
// ============================================================================

func TestContextLogging(t *testing.T) {
	t.Run("LogContextInjectsFields", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()
		SetLevel("DEBUG")

		ctx := WithModule(context.Background(), "bot")
		ctx = WithJob(ctx, "remind-users")
		ctx = WithRunID(ctx, "run-1")

		InfoCtx(ctx, "dispatch finished", KeyDelivered, 5)

		line := buf.String()
		assert.Contains(t, line, "[bot] dispatch finished")
		assert.Contains(t, line, "job=remind-users")
		assert.Contains(t, line, "run_id=run-1")
		assert.Contains(t, line, "delivered=5")
	})

	t.Run("ContextWithoutLogContextHandled", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()
		SetLevel("INFO")

		WarnCtx(context.Background(), "plain warning")
		assert.Contains(t, buf.String(), "plain warning")
	})

	t.Run("DerivedContextsDoNotMutateParent", func(t *testing.T) {
		parent := WithModule(context.Background(), "scheduler")
		child := WithJob(parent, "sync-items")

		assert.Equal(t, "", FromContext(parent).Job)
		assert.Equal(t, "sync-items", FromContext(child).Job)
		assert.Equal(t, "scheduler", FromContext(child).Module)
	})

	t.Run("DurationFromJobStart", func(t *testing.T) {
		ctx := WithJob(context.Background(), "remind-users")
		time.Sleep(5 * time.Millisecond)
		assert.GreaterOrEqual(t, FromContext(ctx).Duration(), 5*time.Millisecond)

		var nilCtx *LogContext
		assert.Zero(t, nilCtx.Duration())
	})
}

func TestFieldHelpers(t *testing.T) {
	assert.True(t, Err(nil).Equal(Err(nil)))
	assert.Equal(t, "", Err(nil).Key)

	attr := Err(errors.New("boom"))
	assert.Equal(t, KeyError, attr.Key)
	assert.Equal(t, "boom", attr.Value.String())

	assert.Equal(t, int64(7), Recipient(7).Value.Int64())
	assert.Equal(t, 1.5, DurationMs(1500*time.Microsecond).Value.Float64())
	assert.Equal(t, "database", Module("database").Value.String())
}

// ============================================================================
// Alert Sink Tests
// ============================================================================

func TestAlerts(t *testing.T) {
	t.Run("ForwardsRecordsAtOrAboveLevel", func(t *testing.T) {
		_, cleanup := captureOutput()
		defer cleanup()
		SetLevel("DEBUG")

		rec := &recordingAlerter{}
		stop := StartAlerts(rec, "WARN")

		Info("routine")
		Warn("disk almost full", "free_mb", 12)
		Error("database unreachable")
		stop()

		texts := rec.Texts()
		require.Len(t, texts, 2)
		assert.Contains(t, texts[0], "[WARN] disk almost full")
		assert.Contains(t, texts[0], "free_mb=12")
		assert.Contains(t, texts[1], "[ERROR] database unreachable")
	})

	t.Run("SuppressedContextNotForwarded", func(t *testing.T) {
		_, cleanup := captureOutput()
		defer cleanup()

		rec := &recordingAlerter{}
		stop := StartAlerts(rec, "WARN")
		ErrorCtx(SuppressAlerts(context.Background()), "alert transport failed")
		stop()

		assert.Empty(t, rec.Texts())
	})

	t.Run("AlerterFailureDoesNotRecurse", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		rec := &recordingAlerter{err: errors.New("telegram down")}
		stop := StartAlerts(rec, "WARN")
		Error("first")
		stop()

		assert.Len(t, rec.Texts(), 1)
		assert.Contains(t, buf.String(), "Failed to deliver log alert")
	})

	t.Run("StopIsIdempotent", func(t *testing.T) {
		stop := StartAlerts(&recordingAlerter{}, "ERROR")
		stop()
		assert.NotPanics(t, stop)
		assert.NotPanics(t, func() { Error("after stop") })
	})

	t.Run("OfferAfterCloseIsDropped", func(t *testing.T) {
		rec := &recordingAlerter{}
		s := &alertSink{
			alerter: rec,
			queue:   make(chan string, 1),
			done:    make(chan struct{}),
		}
		go s.run()

		assert.True(t, s.offer("before"))
		s.close()
		assert.False(t, s.offer("after"))
		assert.NotPanics(t, s.close)
		assert.Equal(t, []string{"before"}, rec.Texts())
	})

	t.Run("OfferRacingStop", func(t *testing.T) {
		_, cleanup := captureOutput()
		defer cleanup()

		stop := StartAlerts(&recordingAlerter{}, "ERROR")
		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range 50 {
					Error("racing")
				}
			}()
		}
		stop()
		wg.Wait()
	})

	t.Run("LongMessagesTruncated", func(t *testing.T) {
		_, cleanup := captureOutput()
		defer cleanup()

		rec := &recordingAlerter{}
		stop := StartAlerts(rec, "ERROR")
		Error(strings.Repeat("x", 2*MaxAlertLength))
		stop()

		texts := rec.Texts()
		require.Len(t, texts, 1)
		assert.Equal(t, MaxAlertLength, len([]rune(texts[0])))
	})
}

// ============================================================================
// Concurrency and Init
// ============================================================================

func TestConcurrentLogging(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()
	SetLevel("INFO")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				Info("concurrent", "worker", n, "iter", j)
			}
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 200)
}

func TestInit(t *testing.T) {
	t.Run("InitWithWriter", func(t *testing.T) {
		_, cleanup := captureOutput()
		defer cleanup()

		var buf bytes.Buffer
		InitWithWriter(&buf, "DEBUG", "text", false)
		Debug("hello")
		assert.Contains(t, buf.String(), "[DEBUG] hello")
	})

	t.Run("InitWithFile", func(t *testing.T) {
		_, cleanup := captureOutput()
		defer cleanup()

		path := t.TempDir() + "/botkit.log"
		require.NoError(t, Init(Config{Level: "INFO", Format: "json", Output: path}))
		Info("to file")
	})

	t.Run("InitWithBadPath", func(t *testing.T) {
		_, cleanup := captureOutput()
		defer cleanup()

		err := Init(Config{Output: "/nonexistent-dir/x/y.log"})
		assert.Error(t, err)
	})
}

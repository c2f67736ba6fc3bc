package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/marmos91/botkit/internal/logger"
)

// slowQueryThreshold marks queries logged at WARN.
const slowQueryThreshold = 200 * time.Millisecond

// queryLogger adapts GORM's logger interface to the application logger.
type queryLogger struct {
	level gormlogger.LogLevel
}

func newQueryLogger() gormlogger.Interface {
	return &queryLogger{level: gormlogger.Info}
}

func (l *queryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	return &queryLogger{level: level}
}

func (l *queryLogger) Info(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Info {
		logger.DebugCtx(ctx, "gorm", "detail", formatArgs(msg, args))
	}
}

func (l *queryLogger) Warn(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Warn {
		logger.WarnCtx(ctx, "gorm", "detail", formatArgs(msg, args))
	}
}

func (l *queryLogger) Error(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Error {
		logger.ErrorCtx(ctx, "gorm", "detail", formatArgs(msg, args))
	}
}

func (l *queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		logger.WarnCtx(ctx, "Query failed", "sql", sql, "rows", rows, logger.DurationMs(elapsed), logger.KeyError, err)
	case elapsed > slowQueryThreshold:
		logger.WarnCtx(ctx, "Slow query", "sql", sql, "rows", rows, logger.DurationMs(elapsed))
	default:
		logger.DebugCtx(ctx, "Query", "sql", sql, "rows", rows, logger.DurationMs(elapsed))
	}
}

func formatArgs(msg string, args []any) string {
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}

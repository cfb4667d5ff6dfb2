package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/foodhall-backend/pkg/logger"
)

const defaultSlowQuery = 200 * time.Millisecond

// queryLogger sends gorm's own output through the service logger. Only slow
// statements and real failures are reported; missing rows are expected.
type queryLogger struct {
	logg      *logger.Logger
	slow      time.Duration
	level     gormlogger.LogLevel
	maxSQLLen int
}

func newQueryLogger(logg *logger.Logger, slow time.Duration) gormlogger.Interface {
	if logg == nil {
		return gormlogger.Discard
	}
	if slow <= 0 {
		slow = defaultSlowQuery
	}
	return &queryLogger{logg: logg, slow: slow, level: gormlogger.Warn, maxSQLLen: 512}
}

func (l *queryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *queryLogger) Info(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Info {
		l.logg.Debug(l.logg.WithField(ctx, "component", "gorm"), fmt.Sprintf(msg, args...))
	}
}

func (l *queryLogger) Warn(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Warn {
		l.logg.Warn(l.logg.WithField(ctx, "component", "gorm"), fmt.Sprintf(msg, args...))
	}
}

func (l *queryLogger) Error(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Error {
		l.logg.Error(l.logg.WithField(ctx, "component", "gorm"), fmt.Sprintf(msg, args...), nil)
	}
}

func (l *queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	slow := elapsed >= l.slow
	if !failed && !slow {
		return
	}

	sql, rows := fc()
	if len(sql) > l.maxSQLLen {
		sql = sql[:l.maxSQLLen] + "..."
	}
	logCtx := l.logg.WithFields(ctx, map[string]any{
		"component":  "gorm",
		"sql":        sql,
		"rows":       rows,
		"elapsed_ms": elapsed.Milliseconds(),
	})
	if failed && l.level >= gormlogger.Error {
		l.logg.Warn(l.logg.WithField(logCtx, "error", err.Error()), "query failed")
		return
	}
	if slow && l.level >= gormlogger.Warn {
		l.logg.Warn(logCtx, "slow query")
	}
}

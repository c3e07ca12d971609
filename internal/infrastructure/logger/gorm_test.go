package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newObservedGorm(level string, slow time.Duration) (*GormLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level, slow), recorded
}

func query(sql string, rows int64) func() (string, int64) {
	return func() (string, int64) { return sql, rows }
}

func TestGormLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Info, GormLevel("debug"))
	assert.Equal(t, gormlogger.Warn, GormLevel("info"))
	assert.Equal(t, gormlogger.Warn, GormLevel("warn"))
	assert.Equal(t, gormlogger.Error, GormLevel("error"))
	assert.Equal(t, gormlogger.Silent, GormLevel("silent"))
}

func TestGormLogger_Trace(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-5")

	t.Run("error", func(t *testing.T) {
		l, recorded := newObservedGorm("info", time.Second)
		l.Trace(ctx, time.Now(), query("INSERT INTO payments", 0), errors.New("duplicate key"))

		logs := recorded.FilterMessage("sql error").All()
		assert.Len(t, logs, 1)
		assert.Equal(t, "req-5", logs[0].ContextMap()["request_id"])
		assert.Equal(t, "INSERT INTO payments", logs[0].ContextMap()["sql"])
	})

	t.Run("record not found is silent", func(t *testing.T) {
		l, recorded := newObservedGorm("debug", time.Second)
		l.Trace(ctx, time.Now(), query("SELECT", 0), gormlogger.ErrRecordNotFound)
		assert.Equal(t, 0, recorded.FilterMessage("sql error").Len())
	})

	t.Run("slow", func(t *testing.T) {
		l, recorded := newObservedGorm("info", 10*time.Millisecond)
		l.Trace(ctx, time.Now().Add(-50*time.Millisecond), query("SELECT * FROM tenancies", 1), nil)
		assert.Equal(t, 1, recorded.FilterMessage("slow sql").Len())
	})

	t.Run("statements only at debug", func(t *testing.T) {
		l, recorded := newObservedGorm("info", time.Second)
		l.Trace(ctx, time.Now(), query("SELECT 1", 1), nil)
		assert.Equal(t, 0, recorded.Len())

		l, recorded = newObservedGorm("debug", time.Second)
		l.Trace(ctx, time.Now(), query("SELECT 1", 1), nil)
		assert.Equal(t, 1, recorded.FilterMessage("sql").Len())
	})

	t.Run("silent", func(t *testing.T) {
		l, recorded := newObservedGorm("silent", time.Second)
		l.Trace(ctx, time.Now(), query("SELECT 1", 1), errors.New("x"))
		assert.Equal(t, 0, recorded.Len())
	})
}

func TestGormLogger_LogModeCopies(t *testing.T) {
	l, recorded := newObservedGorm("info", time.Second)
	quiet := l.LogMode(gormlogger.Silent)

	quiet.Error(context.Background(), "hidden %d", 1)
	l.Error(context.Background(), "visible %d", 2)

	assert.Equal(t, 1, recorded.Len())
	assert.Equal(t, "visible 2", recorded.All()[0].Message)
}

package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/crudkit/sampleapi/internal/currentuser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	Replace(zap.New(core))
	return logs
}

func TestLogErrorTagsPrincipal(t *testing.T) {
	logs := observe(t)
	ctx := currentuser.With(context.Background(), currentuser.Principal{ID: 42, Authenticated: true})

	LogError(ctx, errors.New("boom"), "write failed", "path", "/api/sample/")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "write failed", entry.Message)
	fields := entry.ContextMap()
	assert.Equal(t, "boom", fields["error"])
	assert.EqualValues(t, 42, fields["user_id"])
	assert.Equal(t, "/api/sample/", fields["path"])
}

func TestLogErrorIgnoresNil(t *testing.T) {
	logs := observe(t)
	LogError(context.Background(), nil, "nothing")
	assert.Equal(t, 0, logs.Len())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("nonsense"))
}

func TestGormLoggerReportsSlowQueries(t *testing.T) {
	logs := observe(t)
	gl := NewGormLogger(time.Millisecond)

	gl.Trace(context.Background(), time.Now().Add(-time.Second), func() (string, int64) {
		return "SELECT 1", 1
	}, nil)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "slow sql", logs.All()[0].Message)
}

func TestGormLoggerSilent(t *testing.T) {
	logs := observe(t)
	gl := NewGormLogger(time.Millisecond).LogMode(gormlogger.Silent)

	gl.Trace(context.Background(), time.Now().Add(-time.Second), func() (string, int64) {
		return "SELECT 1", 1
	}, errors.New("boom"))

	assert.Equal(t, 0, logs.Len())
}

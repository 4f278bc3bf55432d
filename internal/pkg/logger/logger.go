package logger

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/crudkit/sampleapi/internal/currentuser"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	globalLogger *zap.SugaredLogger
	mu           sync.RWMutex
	once         sync.Once
)

// Options controls the global logger. File is optional; when set, records
// are also written there and rotated.
type Options struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func Init(level string) {
	InitWithOptions(Options{Level: level})
}

func InitWithOptions(opts Options) {
	once.Do(func() {
		Replace(build(opts))
	})
}

func build(opts Options) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.MessageKey = "message"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	level := zap.NewAtomicLevelAt(parseLevel(opts.Level))
	encoder := zapcore.NewJSONEncoder(encCfg)

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level),
	}
	if opts.File != "" {
		// 文件输出按大小滚动
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(rotator), level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Replace swaps the global logger. Tests use it with an observer core.
func Replace(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	globalLogger = l.Sugar()
}

// Get returns the global logger instance
func Get() *zap.SugaredLogger {
	mu.RLock()
	l := globalLogger
	mu.RUnlock()
	if l == nil {
		Init("info")
		mu.RLock()
		l = globalLogger
		mu.RUnlock()
	}
	return l
}

// Helper functions for quick logging
func Info(msg string, args ...any) {
	Get().Infow(msg, args...)
}

func Error(msg string, args ...any) {
	Get().Errorw(msg, args...)
}

func Warn(msg string, args ...any) {
	Get().Warnw(msg, args...)
}

func Debug(msg string, args ...any) {
	Get().Debugw(msg, args...)
}

func With(args ...any) *zap.SugaredLogger {
	return Get().With(args...)
}

func Sync() {
	_ = Get().Sync()
}

// LogError logs err at error level, tagged with the request principal when
// there is one.
func LogError(ctx context.Context, err error, msg string, args ...any) {
	if err == nil {
		return
	}
	args = append(args, "error", err.Error())
	if id := currentuser.ID(ctx); id != nil {
		args = append(args, "user_id", *id)
	}
	Get().Errorw(msg, args...)
}

// Package logger configures zap and exposes the small structured logging
// interface the rest of postdesk depends on.
package logger

import (
	"os"
	"strings"

	"github.com/samvad-hq/postdesk/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// S is the process logger, set by Init.
var S *zap.SugaredLogger

// Logger logs one structured object under key next to the message.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

// Init builds the process logger. Output goes to stderr so stdout only
// carries command output.
func Init(cfg *config.Config) (*zap.SugaredLogger, error) {
	core := newCore(cfg.LogFormat, ParseLevel(cfg.LogLevel), zapcore.Lock(os.Stderr))
	S = zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)).
		Sugar().
		With("app", cfg.AppName, "env", cfg.Env)
	return S, nil
}

// newCore encodes as JSON unless format is "console".
func newCore(format string, level zapcore.Level, out zapcore.WriteSyncer) zapcore.Core {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	enc := zapcore.NewJSONEncoder(encCfg)
	if format == "console" {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}
	return zapcore.NewCore(enc, out, level)
}

// ParseLevel maps a level name to a zap level. Unknown names are info.
func ParseLevel(name string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
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

// Close flushes S.
func Close() error {
	if S == nil {
		return nil
	}
	return S.Sync()
}

// New adapts a sugared logger to Logger. Nil gives a NopLogger.
func New(s *zap.SugaredLogger) Logger {
	if s == nil {
		return NopLogger{}
	}
	return zapLogger{l: s.Desugar().WithOptions(zap.AddCallerSkip(1))}
}

type zapLogger struct {
	l *zap.Logger
}

func (z zapLogger) InfoObj(msg, key string, obj interface{})  { z.l.Info(msg, zap.Any(key, obj)) }
func (z zapLogger) DebugObj(msg, key string, obj interface{}) { z.l.Debug(msg, zap.Any(key, obj)) }
func (z zapLogger) WarnObj(msg, key string, obj interface{})  { z.l.Warn(msg, zap.Any(key, obj)) }
func (z zapLogger) ErrorObj(msg, key string, obj interface{}) { z.l.Error(msg, zap.Any(key, obj)) }

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) InfoObj(string, string, interface{})  {}
func (NopLogger) DebugObj(string, string, interface{}) {}
func (NopLogger) WarnObj(string, string, interface{})  {}
func (NopLogger) ErrorObj(string, string, interface{}) {}

// Ensure returns log, or a NopLogger when log is nil.
func Ensure(log Logger) Logger {
	if log == nil {
		return NopLogger{}
	}
	return log
}

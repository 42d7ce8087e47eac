package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ppra-watch/tender-sentinel/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Package-level logger to be used across packages after Init.
var S *zap.SugaredLogger

var runLogFile *os.File

// Init initializes a zap SugaredLogger using settings from config.
// Output goes to stdout and, when a run log directory is configured, to a
// timestamped run log file so every run leaves a durable operational trace.
func Init(cfg *config.Config) (Logger, error) {
	var level zapcore.Level
	switch cfg.LogLevel {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn", "warning":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderCfg)

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.AddSync(zapcore.Lock(os.Stdout)), level),
	}

	if cfg.RunLogDir != "" {
		file, err := openRunLog(cfg.RunLogDir)
		if err != nil {
			return nil, err
		}
		runLogFile = file
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(file), level))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	sugar := logger.Sugar()
	S = sugar
	return &zapLogger{s: sugar}, nil
}

// zapLogger adapts the package zap logger to the Logger interface.
type zapLogger struct {
	s *zap.SugaredLogger
}

func (z *zapLogger) InfoObj(msg, key string, obj interface{}) {
	z.s.Desugar().Info(msg, zap.Any(key, obj))
}

func (z *zapLogger) DebugObj(msg, key string, obj interface{}) {
	z.s.Desugar().Debug(msg, zap.Any(key, obj))
}

func (z *zapLogger) WarnObj(msg, key string, obj interface{}) {
	z.s.Desugar().Warn(msg, zap.Any(key, obj))
}

func (z *zapLogger) ErrorObj(msg, key string, obj interface{}) {
	z.s.Desugar().Error(msg, zap.Any(key, obj))
}

// openRunLog creates the per-run log file named after the run start time.
func openRunLog(dir string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run log directory: %w", err)
	}
	name := fmt.Sprintf("run-%s.log", time.Now().Format("20060102-150405"))
	file, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open run log file: %w", err)
	}
	return file, nil
}

// Close flushes any buffered loggers and the run log file.
func Close() error {
	if runLogFile != nil {
		defer runLogFile.Close()
	}
	if S == nil {
		return nil
	}
	return S.Sync()
}

// Minimal object logging helpers -------------------------------------------------
// These are tiny wrappers that log the given object as a structured field named
// `key` and do not attempt to parse arbitrary kv arrays.
func InfoObj(msg, key string, obj interface{}) {
	if S == nil {
		return
	}
	S.Desugar().Info(msg, zap.Any(key, obj))
}

func DebugObj(msg, key string, obj interface{}) {
	if S == nil {
		return
	}
	S.Desugar().Debug(msg, zap.Any(key, obj))
}

func WarnObj(msg, key string, obj interface{}) {
	if S == nil {
		return
	}
	S.Desugar().Warn(msg, zap.Any(key, obj))
}

func ErrorObj(msg, key string, obj interface{}) {
	if S == nil {
		return
	}
	S.Desugar().Error(msg, zap.Any(key, obj))
}

// Logger is the logging surface packages depend on instead of *zap.SugaredLogger,
// so tests can inject a nop implementation.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

// NopLogger discards everything.
type NopLogger struct{}

func (*NopLogger) InfoObj(string, string, interface{})  {}
func (*NopLogger) DebugObj(string, string, interface{}) {}
func (*NopLogger) WarnObj(string, string, interface{})  {}
func (*NopLogger) ErrorObj(string, string, interface{}) {}

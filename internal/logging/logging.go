// Package logging wraps a global zap sugared logger used across the service.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var sugar *zap.SugaredLogger

func init() {
	// Usable before Init runs (tests, early startup).
	l, _ := zap.NewDevelopment()
	sugar = l.Sugar()
}

// Init replaces the global logger according to config. format is "json" or
// "console".
func Init(level, format string) {
	lvl := zapcore.InfoLevel
	if err := lvl.Set(level); err != nil {
		lvl = zapcore.InfoLevel
	}

	var cfg zap.Config
	if format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return
	}
	sugar = l.Sugar()
}

// Sync flushes buffered log entries. Call on shutdown.
func Sync() {
	_ = sugar.Sync()
}

func Debugf(template string, args ...any) { sugar.Debugf(template, args...) }
func Infof(template string, args ...any)  { sugar.Infof(template, args...) }
func Warnf(template string, args ...any)  { sugar.Warnf(template, args...) }
func Errorf(template string, args ...any) { sugar.Errorf(template, args...) }
func Fatalf(template string, args ...any) { sugar.Fatalf(template, args...) }

func Info(args ...any)  { sugar.Info(args...) }
func Warn(args ...any)  { sugar.Warn(args...) }
func Error(args ...any) { sugar.Error(args...) }

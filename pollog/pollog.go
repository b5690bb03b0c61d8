/*
NAME
  pollog.go

DESCRIPTION
  pollog provides the structured logger used across the pollux pipeline. It
  wraps zap, with an optional lumberjack-backed rotating file sink, behind
  the same narrow Logger interface revid's packages depend on.

AUTHORS
  pollux contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package pollog provides structured logging for the pollux pipeline.
package pollog

import (
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log levels, matching the severities pollux operations log at.
const (
	Debug int8 = iota
	Info
	Warning
	Error
)

// Logger is the minimal logging interface pollux packages depend on, so
// that callers may plug in their own structured logger.
type Logger interface {
	SetLevel(int8)
	Log(level int8, message string, params ...interface{})

	Debug(msg string, params ...interface{})
	Info(msg string, params ...interface{})
	Warning(msg string, params ...interface{})
	Error(msg string, params ...interface{})
}

// ZapLogger is a Logger backed by zap.SugaredLogger.
type ZapLogger struct {
	sugar *zap.SugaredLogger
	level zap.AtomicLevel
}

// Config configures a rotating log file sink, as used by cmd/pollux-decode
// and cmd/pollux-encode. A zero Config logs to stderr only.
type Config struct {
	Path       string // File path; empty disables file logging.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New returns a ZapLogger at the given starting level, optionally also
// writing to a rotating file described by cfg.
func New(level int8, cfg Config) *ZapLogger {
	al := zap.NewAtomicLevelAt(toZapLevel(level))

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	enc := zapcore.NewConsoleEncoder(encCfg)

	cores := []zapcore.Core{zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(os.Stderr)), al)}
	if cfg.Path != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(rotator), al))
	}

	logger := zap.New(zapcore.NewTee(cores...))
	return &ZapLogger{sugar: logger.Sugar(), level: al}
}

// SetLevel adjusts the minimum level the logger emits at runtime.
func (l *ZapLogger) SetLevel(level int8) { l.level.SetLevel(toZapLevel(level)) }

// Log emits a message at the given level with structured key/value params.
func (l *ZapLogger) Log(level int8, message string, params ...interface{}) {
	switch level {
	case Debug:
		l.sugar.Debugw(message, params...)
	case Info:
		l.sugar.Infow(message, params...)
	case Warning:
		l.sugar.Warnw(message, params...)
	default:
		l.sugar.Errorw(message, params...)
	}
}

func (l *ZapLogger) Debug(msg string, params ...interface{})   { l.Log(Debug, msg, params...) }
func (l *ZapLogger) Info(msg string, params ...interface{})    { l.Log(Info, msg, params...) }
func (l *ZapLogger) Warning(msg string, params ...interface{}) { l.Log(Warning, msg, params...) }
func (l *ZapLogger) Error(msg string, params ...interface{})   { l.Log(Error, msg, params...) }

// Sync flushes any buffered log entries.
func (l *ZapLogger) Sync() error { return l.sugar.Sync() }

func toZapLevel(level int8) zapcore.Level {
	switch level {
	case Debug:
		return zapcore.DebugLevel
	case Info:
		return zapcore.InfoLevel
	case Warning:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

// noop is a Logger that discards everything, used as a safe default when a
// caller does not provide one.
type noop struct{}

func (noop) SetLevel(int8)                    {}
func (noop) Log(int8, string, ...interface{}) {}
func (noop) Debug(string, ...interface{})     {}
func (noop) Info(string, ...interface{})      {}
func (noop) Warning(string, ...interface{})   {}
func (noop) Error(string, ...interface{})     {}

// Noop returns a Logger that discards all output.
func Noop() Logger { return noop{} }

package ecs

import "go.uber.org/zap"

// Logger captures structured log output from the world and scheduler.
// Key/value pairs follow the sugared convention: alternating string keys
// and arbitrary values.
type Logger interface {
	With(key string, value any) Logger
	Debug(msg string, keyvals ...any)
	Info(msg string, keyvals ...any)
	Error(msg string, keyvals ...any)
}

// NewNopLogger returns a logger that discards everything. It is the
// default wherever no logger is configured.
func NewNopLogger() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) With(string, any) Logger { return nopLogger{} }
func (nopLogger) Debug(string, ...any)    {}
func (nopLogger) Info(string, ...any)     {}
func (nopLogger) Error(string, ...any)    {}

// NewZapLogger adapts a zap logger to the Logger contract.
func NewZapLogger(l *zap.Logger) Logger {
	return zapLogger{sugar: l.Sugar()}
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

func (z zapLogger) With(key string, value any) Logger {
	return zapLogger{sugar: z.sugar.With(key, value)}
}

func (z zapLogger) Debug(msg string, keyvals ...any) {
	z.sugar.Debugw(msg, keyvals...)
}

func (z zapLogger) Info(msg string, keyvals ...any) {
	z.sugar.Infow(msg, keyvals...)
}

func (z zapLogger) Error(msg string, keyvals ...any) {
	z.sugar.Errorw(msg, keyvals...)
}

var _ Logger = nopLogger{}
var _ Logger = zapLogger{}

// Package zaplog adapts go.uber.org/zap to the core.Logger interface.
package zaplog

import (
	"go.uber.org/zap"

	"github.com/Swind/go-dispatch-queue/core"
)

// Logger forwards core.Logger calls to a zap.Logger.
type Logger struct {
	l *zap.Logger
}

var _ core.Logger = (*Logger)(nil)

// New wraps a zap.Logger. A nil logger falls back to zap.NewNop().
func New(l *zap.Logger) *Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &Logger{l: l}
}

// Debug logs a debug message.
func (z *Logger) Debug(msg string, fields ...core.Field) {
	z.l.Debug(msg, zapFields(fields)...)
}

// Info logs an info message.
func (z *Logger) Info(msg string, fields ...core.Field) {
	z.l.Info(msg, zapFields(fields)...)
}

// Warn logs a warning message.
func (z *Logger) Warn(msg string, fields ...core.Field) {
	z.l.Warn(msg, zapFields(fields)...)
}

// Error logs an error message.
func (z *Logger) Error(msg string, fields ...core.Field) {
	z.l.Error(msg, zapFields(fields)...)
}

func zapFields(fields []core.Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

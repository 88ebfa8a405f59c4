// Package tracing adapts the host trace sink into the framework's logger.
//
// Every line is stamped with the caller identity ("caller|message"). Errors
// are rendered through explicit Detail records, so nothing here depends on
// the sandbox allowing deep introspection of error values.
package tracing

import (
	"fmt"

	"github.com/thinkcrm/plugincore/internal/xrm"
)

// Level marks the severity of a trace line.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// Logger writes caller-stamped lines to a host trace sink. The zero value
// and a nil *Logger discard everything.
type Logger struct {
	sink   xrm.TracingService
	caller string
}

// New wraps sink. A nil sink is allowed.
func New(sink xrm.TracingService, caller string) *Logger {
	return &Logger{sink: sink, caller: caller}
}

// WithCaller returns a logger writing to the same sink under a new caller.
func (l *Logger) WithCaller(caller string) *Logger {
	if l == nil {
		return &Logger{caller: caller}
	}
	return &Logger{sink: l.sink, caller: caller}
}

// Caller returns the identity stamped on each line.
func (l *Logger) Caller() string {
	if l == nil {
		return ""
	}
	return l.caller
}

// Write emits a plain line.
func (l *Logger) Write(format string, args ...any) {
	l.emit(format, args)
}

// Log emits a line prefixed with its level.
func (l *Logger) Log(level Level, format string, args ...any) {
	l.emit("["+level.String()+"] "+format, args)
}

func (l *Logger) Debug(format string, args ...any) { l.Log(LevelDebug, format, args...) }
func (l *Logger) Info(format string, args ...any)  { l.Log(LevelInfo, format, args...) }
func (l *Logger) Warn(format string, args ...any)  { l.Log(LevelWarn, format, args...) }
func (l *Logger) Error(format string, args ...any) { l.Log(LevelError, format, args...) }

// WriteError renders the full detail of err, causes included.
func (l *Logger) WriteError(err error) {
	if err == nil {
		l.Write("WriteError called with a nil error")
		return
	}
	l.Write("%s", Render(Describe(err)))
}

// WriteAndReturn writes a line and hands v back, for inline capture in
// return statements.
func WriteAndReturn[T any](l *Logger, v T, format string, args ...any) T {
	l.Write(format, args...)
	return v
}

func (l *Logger) emit(format string, args []any) {
	if l == nil || l.sink == nil {
		return
	}
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	if l.caller != "" {
		msg = l.caller + "|" + msg
	}
	l.sink.Trace("%s", msg)
}

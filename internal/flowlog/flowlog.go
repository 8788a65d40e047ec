// Package flowlog provides the debug tracing used by the executor and
// the temporal linker. Tracing is off by default so the interpreter hot
// path stays silent and allocation-free; callers opt in per component.
package flowlog

import (
	"io"
	"log/slog"
	"os"
)

// Level controls debug tracing (development only).
type Level int

const (
	// Off emits nothing (default).
	Off Level = iota
	// Paths traces scope/verb entry and exit.
	Paths
	// Detailed additionally traces dispatch phases, outputs, and timing.
	Detailed
)

// Logger wraps slog behind the Level gate.
type Logger struct {
	level Level
	log   *slog.Logger
}

// New builds a logger writing to w at the given level. A nil writer
// defaults to stderr.
func New(level Level, w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{
		level: level,
		log:   slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})),
	}
}

// Discard returns a logger that emits nothing.
func Discard() *Logger { return &Logger{level: Off} }

// Enabled reports whether the logger emits at the given level.
func (l *Logger) Enabled(level Level) bool {
	return l != nil && l.log != nil && l.level >= level
}

// Path traces a scope/verb entry-exit event.
func (l *Logger) Path(msg string, args ...any) {
	if l.Enabled(Paths) {
		l.log.Debug(msg, args...)
	}
}

// Detail traces a dispatch-phase or output event.
func (l *Logger) Detail(msg string, args ...any) {
	if l.Enabled(Detailed) {
		l.log.Debug(msg, args...)
	}
}

// Package qlog provides the recovery core's logging seam: a bespoke, cheap
// interface over the standard library's log.Logger rather than a
// third-party structured-logging dependency, following utils.Logger's
// idiom of a Debug() bool gate checked before formatting.
package qlog

import (
	"log"
	"os"
)

// Logger is the injectable logging seam used throughout the recovery core.
type Logger interface {
	Debug() bool
	Debugf(format string, args ...any)
	Errorf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug() bool           { return false }
func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Errorf(string, ...any) {}

// Nop discards everything. It's the default logger when none is supplied.
var Nop Logger = nopLogger{}

type stdLogger struct {
	logger *log.Logger
	debug  bool
}

// NewStdLogger wraps the standard library logger, writing to stderr with
// the given prefix. Debug-level messages are suppressed.
func NewStdLogger(prefix string) Logger {
	return &stdLogger{logger: log.New(os.Stderr, prefix, log.LstdFlags)}
}

// NewDebugStdLogger is like NewStdLogger but also emits Debugf messages.
func NewDebugStdLogger(prefix string) Logger {
	return &stdLogger{logger: log.New(os.Stderr, prefix, log.LstdFlags), debug: true}
}

func (l *stdLogger) Debug() bool { return l.debug }

func (l *stdLogger) Debugf(format string, args ...any) {
	if l.debug {
		l.logger.Printf(format, args...)
	}
}

func (l *stdLogger) Errorf(format string, args ...any) {
	l.logger.Printf("ERROR: "+format, args...)
}

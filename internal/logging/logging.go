// Package logging provides the engine's leveled, path-tagged logging
// convention, modeled on the teacher's fs.Errorf/fs.Infof/fs.Debugf
// helpers (called throughout backend/local/local.go, e.g.
// `fs.Errorf(dir, "%v", err)` and `fs.Debugf(fi.Name(), "...")`): a
// remote/path string folded in as a structured field rather than
// interpolated into the message, backed by
// github.com/sirupsen/logrus.
package logging

import "github.com/sirupsen/logrus"

// Logger is the narrow surface the traversal engine logs through. A
// nil *Logger logs through the package default (see Default); callers
// embedding the engine in a larger service can construct their own
// with New and pass it through pwalk.Args.
type Logger struct {
	entry *logrus.Entry
}

// New wraps an existing logrus.Logger. Passing nil uses
// logrus.StandardLogger().
func New(base *logrus.Logger) *Logger {
	if base == nil {
		base = logrus.StandardLogger()
	}
	return &Logger{entry: logrus.NewEntry(base)}
}

func (l *Logger) path(path string) *logrus.Entry {
	if l == nil {
		l = Default()
	}
	return l.entry.WithField("path", path)
}

// Debugf logs a per-file diagnostic (open/close/evict/gc bookkeeping)
// that is only interesting while developing or tracing the engine.
func (l *Logger) Debugf(path, format string, args ...any) {
	l.path(path).Debugf(format, args...)
}

// Infof logs a recovered OS error: one the traversal continues past
// because Recover is set.
func (l *Logger) Infof(path, format string, args ...any) {
	l.path(path).Infof(format, args...)
}

// Errorf logs an error that becomes (or already is) the traversal's
// terminal error.
func (l *Logger) Errorf(path, format string, args ...any) {
	l.path(path).Errorf(format, args...)
}

var defaultLogger = New(nil)

// Default returns the package-level default logger.
func Default() *Logger { return defaultLogger }

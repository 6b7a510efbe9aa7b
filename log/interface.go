package log

import (
	"github.com/sirupsen/logrus"
)

// Logger wraps a logrus entry so field-scoped loggers can be passed
// around without exposing logrus in every package's API.
type Logger struct {
	entry *logrus.Entry
}

func (l *Logger) Trace(args ...interface{}) {
	l.entry.Trace(args...)
}

func (l *Logger) Tracef(msg string, args ...interface{}) {
	l.entry.Tracef(msg, args...)
}

func (l *Logger) Debug(args ...interface{}) {
	l.entry.Debug(args...)
}

func (l *Logger) Debugf(msg string, args ...interface{}) {
	l.entry.Debugf(msg, args...)
}

func (l *Logger) Info(args ...interface{}) {
	l.entry.Info(args...)
}

func (l *Logger) Infof(msg string, args ...interface{}) {
	l.entry.Infof(msg, args...)
}

func (l *Logger) Warn(args ...interface{}) {
	l.entry.Warn(args...)
}

func (l *Logger) Warnf(msg string, args ...interface{}) {
	l.entry.Warnf(msg, args...)
}

func (l *Logger) Error(args ...interface{}) {
	l.entry.Error(args...)
}

func (l *Logger) Errorf(msg string, args ...interface{}) {
	l.entry.Errorf(msg, args...)
}

func (l *Logger) Fatal(args ...interface{}) {
	l.entry.Fatal(args...)
}

func (l *Logger) Fatalf(msg string, args ...interface{}) {
	l.entry.Fatalf(msg, args...)
}

func (l *Logger) WithField(key string, val interface{}) *Logger {
	return &Logger{entry: l.entry.WithField(key, val)}
}

func (l *Logger) WithFields(fields Fields) *Logger {
	return &Logger{entry: l.entry.WithFields(fields)}
}

// SetLevel adjusts the underlying logger's verbosity at runtime.
func (l *Logger) SetLevel(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = defaultLogLevel
	}
	l.entry.Logger.SetLevel(lvl)
}

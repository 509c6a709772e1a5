// Package logging holds the printf-style logging contract the rest of the
// tree depends on, so packages never import a concrete logger directly.
package logging

import (
	"reflect"

	"rex/internal/utils"
)

// Logger is the four-level contract every constructor accepts. Tests pass
// Nop(); binaries pass a component logger.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// NewComponentLogger returns the application logger scoped to one component.
func NewComponentLogger(component string) Logger {
	return utils.NewComponentLogger(component)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return nopLogger{}
}

// IsNil reports whether logger is unusable: a nil interface or a typed nil
// pointer. Implementations in this tree are structs or pointers, so a
// pointer check covers the typed case.
func IsNil(logger Logger) bool {
	if logger == nil {
		return true
	}
	v := reflect.ValueOf(logger)
	return v.Kind() == reflect.Ptr && v.IsNil()
}

// OrNop makes optional loggers safe to call: nil in, Nop out.
func OrNop(logger Logger) Logger {
	if IsNil(logger) {
		return Nop()
	}
	return logger
}

type multiLogger struct {
	loggers []Logger
}

// Multi fans every call out to each usable logger, in argument order.
// Nested Multi results are flattened; zero usable loggers collapse to Nop
// and a single one is returned as-is.
func Multi(loggers ...Logger) Logger {
	var flat []Logger
	for _, logger := range loggers {
		if IsNil(logger) {
			continue
		}
		if l, ok := logger.(*multiLogger); ok {
			flat = append(flat, l.loggers...)
			continue
		}
		flat = append(flat, logger)
	}
	switch len(flat) {
	case 0:
		return Nop()
	case 1:
		return flat[0]
	}
	return &multiLogger{loggers: flat}
}

func (m *multiLogger) Debug(format string, args ...any) {
	for _, l := range m.loggers {
		l.Debug(format, args...)
	}
}

func (m *multiLogger) Info(format string, args ...any) {
	for _, l := range m.loggers {
		l.Info(format, args...)
	}
}

func (m *multiLogger) Warn(format string, args ...any) {
	for _, l := range m.loggers {
		l.Warn(format, args...)
	}
}

func (m *multiLogger) Error(format string, args ...any) {
	for _, l := range m.loggers {
		l.Error(format, args...)
	}
}

// Package logger provides component-scoped structured logging for the
// whole service, backed by zerolog.
package logger

import (
	"os"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
)

var log atomic.Pointer[zerolog.Logger]

func init() {
	l := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger().Level(zerolog.InfoLevel)
	log.Store(&l)
}

// SetLevel sets the global log level ("debug", "info", "warn", "error").
func SetLevel(level string) {
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	l := log.Load().Level(parsed)
	log.Store(&l)
}

// SetJSON switches output from the console writer to raw JSON lines.
func SetJSON(enabled bool) {
	if !enabled {
		return
	}
	l := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(log.Load().GetLevel())
	log.Store(&l)
}

func emit(ev *zerolog.Event, component, msg string, fields map[string]any) {
	ev = ev.Str("component", component)
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

// DebugCF logs a debug message for a component with fields.
func DebugCF(component, msg string, fields map[string]any) {
	emit(log.Load().Debug(), component, msg, fields)
}

// InfoCF logs an info message for a component with fields.
func InfoCF(component, msg string, fields map[string]any) {
	emit(log.Load().Info(), component, msg, fields)
}

// WarnCF logs a warning for a component with fields.
func WarnCF(component, msg string, fields map[string]any) {
	emit(log.Load().Warn(), component, msg, fields)
}

// ErrorCF logs an error for a component with fields.
func ErrorCF(component, msg string, fields map[string]any) {
	emit(log.Load().Error(), component, msg, fields)
}

// InfoC logs an info message for a component without fields.
func InfoC(component, msg string) { InfoCF(component, msg, nil) }

// WarnC logs a warning for a component without fields.
func WarnC(component, msg string) { WarnCF(component, msg, nil) }

// ErrorC logs an error for a component without fields.
func ErrorC(component, msg string) { ErrorCF(component, msg, nil) }

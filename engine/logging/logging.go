// Package logging holds the package-wide structured logger shared by the renderer packages.
//
// By default nothing is logged. Call SetLogger to enable output.
package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler discards every record. Enabled reports false so callers skip formatting.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger installs l as the logger used by the renderer, the render goroutine and the engine loop.
// Passing nil restores the silent default. Safe for concurrent use.
//
// Levels:
//   - slog.LevelDebug: per-frame diagnostics (draw counts, slot indices)
//   - slog.LevelInfo: lifecycle events (render goroutine started/stopped)
//   - slog.LevelWarn: rejected submissions
//   - slog.LevelError: fatal errors, logged right before the panic propagates
//
// Parameters:
//   - l: the logger to install, or nil
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger. Never nil.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// Nop returns a logger that discards everything. Useful as a per-component default.
func Nop() *slog.Logger {
	return newNopLogger()
}

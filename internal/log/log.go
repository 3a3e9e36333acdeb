// SPDX-License-Identifier: Unlicense OR MIT

// Package log holds the logger shared by the renderer packages.
package log

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler discards all records. Enabled reports false so callers
// skip formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var logger atomic.Pointer[slog.Logger]

func init() {
	logger.Store(defaultLogger())
}

// Set replaces the shared logger. A nil logger restores the
// platform default.
func Set(l *slog.Logger) {
	if l == nil {
		l = defaultLogger()
	}
	logger.Store(l)
}

// L returns the shared logger. It is safe for concurrent use.
func L() *slog.Logger {
	return logger.Load()
}

func nopLogger() *slog.Logger {
	return slog.New(nopHandler{})
}

// SPDX-License-Identifier: Unlicense OR MIT

package log

/*
#cgo LDFLAGS: -llog

#include <stdlib.h>
#include <android/log.h>
*/
import "C"

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"unsafe"
)

const tag = "Renderer"

// logcatHandler formats records as text and writes them
// to the Android log with a priority matching the level.
type logcatHandler struct {
	mu    *sync.Mutex
	buf   *bytes.Buffer
	inner slog.Handler
}

func defaultLogger() *slog.Logger {
	buf := new(bytes.Buffer)
	// Logcat already records timestamps.
	inner := slog.NewTextHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && (a.Key == slog.TimeKey || a.Key == slog.LevelKey) {
				return slog.Attr{}
			}
			return a
		},
	})
	return slog.New(&logcatHandler{mu: new(sync.Mutex), buf: buf, inner: inner})
}

func (h *logcatHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.inner.Enabled(ctx, l)
}

func (h *logcatHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buf.Reset()
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}
	line := bytes.TrimRight(h.buf.Bytes(), "\n")
	// 1023 is the truncation limit from android/log.h.
	if len(line) > 1023 {
		line = line[:1023]
	}
	ctag := C.CString(tag)
	defer C.free(unsafe.Pointer(ctag))
	cmsg := C.CString(string(line))
	defer C.free(unsafe.Pointer(cmsg))
	C.__android_log_write(C.int(priority(r.Level)), ctag, cmsg)
	return nil
}

func (h *logcatHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &logcatHandler{mu: h.mu, buf: h.buf, inner: h.inner.WithAttrs(attrs)}
}

func (h *logcatHandler) WithGroup(name string) slog.Handler {
	return &logcatHandler{mu: h.mu, buf: h.buf, inner: h.inner.WithGroup(name)}
}

func priority(l slog.Level) C.int {
	switch {
	case l >= slog.LevelError:
		return C.ANDROID_LOG_ERROR
	case l >= slog.LevelWarn:
		return C.ANDROID_LOG_WARN
	case l >= slog.LevelInfo:
		return C.ANDROID_LOG_INFO
	default:
		return C.ANDROID_LOG_DEBUG
	}
}

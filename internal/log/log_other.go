// SPDX-License-Identifier: Unlicense OR MIT

//go:build !android

package log

import "log/slog"

func defaultLogger() *slog.Logger {
	return nopLogger()
}

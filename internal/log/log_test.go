// SPDX-License-Identifier: Unlicense OR MIT

package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestSet(t *testing.T) {
	defer Set(nil)

	var buf bytes.Buffer
	Set(slog.New(slog.NewTextHandler(&buf, nil)))
	L().Info("context created", "samples", 4)
	if !strings.Contains(buf.String(), "samples=4") {
		t.Errorf("log output %q missing attribute", buf.String())
	}

	Set(nil)
	if L() == nil {
		t.Fatal("Set(nil) left a nil logger")
	}
}

func TestNopHandler(t *testing.T) {
	l := nopLogger()
	if l.Enabled(context.Background(), slog.LevelError) {
		t.Error("nop logger reports enabled")
	}
}

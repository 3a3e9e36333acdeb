// SPDX-License-Identifier: Unlicense OR MIT

//go:build android || (linux && egl)

package renderer

import (
	"celestia.space/render/internal/egl"
	"celestia.space/render/internal/gl"
	"celestia.space/render/internal/pacing"
)

type eglDriver struct {
	disp   *egl.NativeDisplay
	f      *gl.GLES
	timing Timing
}

// NewNativeDriver returns the EGL driver of the default display,
// presenting through timing. A nil timing paces swaps with the
// system clock.
func NewNativeDriver(timing Timing) Driver {
	if timing == nil {
		timing = pacing.NewTicker(0)
	}
	return &eglDriver{
		disp:   egl.NewNativeDisplay(),
		f:      gl.NewGLES(),
		timing: timing,
	}
}

func nativeDriver() (Driver, error) {
	return NewNativeDriver(nil), nil
}

func (d *eglDriver) Display() egl.Display    { return d.disp }
func (d *eglDriver) Functions() gl.Functions { return d.f }
func (d *eglDriver) Timing() Timing          { return d.timing }

// SPDX-License-Identifier: Unlicense OR MIT

package headless

import (
	"image"
	"sync"
	"sync/atomic"
)

var windowHandles atomic.Uintptr

// Window is an in-memory native window. Presented frames land in its
// front buffer.
type Window struct {
	handle uintptr

	mu       sync.Mutex
	size     image.Point
	front    *image.RGBA
	presents int
	releases int
	format   int32
	fail     bool
	owner    *Platform
}

// NewWindow returns a window of the given size in pixels.
func NewWindow(width, height int) *Window {
	return &Window{
		handle: windowHandles.Add(1),
		size:   image.Pt(width, height),
	}
}

func (w *Window) NativeHandle() uintptr {
	return w.handle
}

// Release drops the reference held by the renderer.
func (w *Window) Release() {
	w.mu.Lock()
	w.releases++
	owner := w.owner
	w.mu.Unlock()
	if owner != nil {
		owner.windowReleased(w)
	}
}

// Released reports whether Release was called.
func (w *Window) Released() bool {
	return w.Releases() > 0
}

// Releases returns the number of Release calls.
func (w *Window) Releases() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.releases
}

func (w *Window) Size() image.Point {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size
}

// Resize changes the size of the window, as the window system does
// when the display is rotated. Surfaces follow on their next frame.
func (w *Window) Resize(width, height int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.size = image.Pt(width, height)
}

// Screenshot returns a copy of the last presented frame, or nil if
// nothing was presented.
func (w *Window) Screenshot() *image.RGBA {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.front == nil {
		return nil
	}
	img := image.NewRGBA(w.front.Rect)
	copy(img.Pix, w.front.Pix)
	return img
}

// Presents returns the number of frames presented to the window.
func (w *Window) Presents() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.presents
}

// Format returns the buffer format last applied to the window.
func (w *Window) Format() int32 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.format
}

// FailSurfaces makes surface creation for the window fail.
func (w *Window) FailSurfaces(fail bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.fail = fail
}

func (w *Window) present(back *image.RGBA) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.front == nil || w.front.Rect != back.Rect {
		w.front = image.NewRGBA(back.Rect)
	}
	copy(w.front.Pix, back.Pix)
	w.presents++
}

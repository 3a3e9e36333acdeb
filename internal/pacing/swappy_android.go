// SPDX-License-Identifier: Unlicense OR MIT

//go:build android && swappy

package pacing

/*
#cgo LDFLAGS: -lswappy_static -landroid -lEGL

#include <jni.h>
#include <android/native_window.h>
#include <EGL/egl.h>
#include <swappy/swappyGL.h>
#include <swappy/swappyGL_extra.h>

static bool celestia_swappyInit(uintptr_t env, uintptr_t activity) {
	return SwappyGL_init((JNIEnv *)env, (jobject)activity);
}
*/
import "C"

import (
	"errors"
	"time"
	"unsafe"

	"celestia.space/render/internal/surface"
)

// Swappy is the Android Frame Pacing library.
type Swappy struct{}

var _ Timing = (*Swappy)(nil)

// NewSwappy initializes frame pacing for the activity. env is the
// JNIEnv of the calling thread.
func NewSwappy(env, activity uintptr) (*Swappy, error) {
	if !C.celestia_swappyInit(C.uintptr_t(env), C.uintptr_t(activity)) {
		return nil, errors.New("pacing: SwappyGL_init failed")
	}
	// Swappy adjusts the swap interval to the measured frame time by
	// default; the frame rate option is authoritative instead.
	C.SwappyGL_setAutoSwapInterval(C.bool(false))
	return new(Swappy), nil
}

func (s *Swappy) SetSwapInterval(d time.Duration) {
	C.SwappyGL_setSwapIntervalNS(C.uint64_t(d.Nanoseconds()))
}

func (s *Swappy) RefreshPeriod() time.Duration {
	return time.Duration(C.SwappyGL_getRefreshPeriodNanos())
}

func (s *Swappy) SetWindow(w surface.Window) {
	if w == nil {
		return
	}
	C.SwappyGL_setWindow((*C.ANativeWindow)(unsafe.Pointer(w.NativeHandle())))
}

type eglTarget interface {
	EGLHandles() (display, surface uintptr)
}

func (s *Swappy) Swap(t Target) error {
	et, ok := t.(eglTarget)
	if !ok {
		return t.SwapBuffers()
	}
	disp, surf := et.EGLHandles()
	if !C.SwappyGL_swap(C.EGLDisplay(unsafe.Pointer(disp)), C.EGLSurface(unsafe.Pointer(surf))) {
		return errors.New("SwappyGL_swap failed")
	}
	return nil
}

// Destroy shuts down frame pacing.
func (s *Swappy) Destroy() {
	C.SwappyGL_destroy()
}

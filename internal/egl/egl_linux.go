// SPDX-License-Identifier: Unlicense OR MIT

//go:build linux && !android && egl

package egl

/*
#include <EGL/egl.h>
*/
import "C"

func nativeWindow(h uintptr) C.EGLNativeWindowType {
	return C.EGLNativeWindowType(h)
}

// X11 windows take their visual at creation time.
func setBuffersGeometry(win C.EGLNativeWindowType, format EGLint) {}

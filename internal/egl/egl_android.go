// SPDX-License-Identifier: Unlicense OR MIT

package egl

/*
#cgo LDFLAGS: -landroid

#include <android/native_window.h>
#include <EGL/egl.h>
*/
import "C"

import "unsafe"

func nativeWindow(h uintptr) C.EGLNativeWindowType {
	return C.EGLNativeWindowType(unsafe.Pointer(h))
}

func setBuffersGeometry(win C.EGLNativeWindowType, format EGLint) {
	C.ANativeWindow_setBuffersGeometry((*C.ANativeWindow)(unsafe.Pointer(win)), 0, 0, C.int32_t(format))
}

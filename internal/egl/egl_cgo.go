// SPDX-License-Identifier: Unlicense OR MIT

//go:build android || (linux && egl)

package egl

/*
#cgo LDFLAGS: -lEGL

#include <EGL/egl.h>
*/
import "C"

import (
	"fmt"
	"unsafe"

	"celestia.space/render/internal/surface"
)

// NativeDisplay implements Display with the system EGL library.
type NativeDisplay struct {
	disp C.EGLDisplay
}

var _ Display = (*NativeDisplay)(nil)

func NewNativeDisplay() *NativeDisplay {
	return new(NativeDisplay)
}

func eglError() error {
	return fmt.Errorf("0x%x", int(C.eglGetError()))
}

func (d *NativeDisplay) Initialize() (int, int, error) {
	d.disp = C.eglGetDisplay(C.EGLNativeDisplayType(nil))
	if d.disp == nil {
		return 0, 0, fmt.Errorf("eglGetDisplay(EGL_DEFAULT_DISPLAY) failed: %v", eglError())
	}
	var major, minor C.EGLint
	if C.eglInitialize(d.disp, &major, &minor) != C.EGL_TRUE {
		return 0, 0, fmt.Errorf("eglInitialize failed: %v", eglError())
	}
	return int(major), int(minor), nil
}

func (d *NativeDisplay) QueryString(name EGLint) string {
	return C.GoString(C.eglQueryString(d.disp, C.EGLint(name)))
}

func (d *NativeDisplay) ChooseConfig(attribs []EGLint) (EGLConfig, error) {
	var (
		cfg  C.EGLConfig
		ncfg C.EGLint
	)
	if C.eglChooseConfig(d.disp, (*C.EGLint)(unsafe.Pointer(&attribs[0])), &cfg, 1, &ncfg) != C.EGL_TRUE {
		return NoConfig, fmt.Errorf("eglChooseConfig failed: %v", eglError())
	}
	if ncfg == 0 {
		return NoConfig, nil
	}
	return EGLConfig(uintptr(unsafe.Pointer(cfg))), nil
}

func (d *NativeDisplay) ConfigAttrib(cfg EGLConfig, attr EGLint) (EGLint, error) {
	var val C.EGLint
	if C.eglGetConfigAttrib(d.disp, eglConfig(cfg), C.EGLint(attr), &val) != C.EGL_TRUE {
		return 0, fmt.Errorf("eglGetConfigAttrib failed: %v", eglError())
	}
	return EGLint(val), nil
}

func (d *NativeDisplay) CreateContext(cfg EGLConfig, attribs []EGLint) (EGLContext, error) {
	ctx := C.eglCreateContext(d.disp, eglConfig(cfg), nil, (*C.EGLint)(unsafe.Pointer(&attribs[0])))
	if ctx == nil {
		return NoContext, fmt.Errorf("eglCreateContext failed: %v", eglError())
	}
	return EGLContext(uintptr(unsafe.Pointer(ctx))), nil
}

func (d *NativeDisplay) CreateWindowSurface(cfg EGLConfig, win surface.Window, format EGLint) (EGLSurface, error) {
	nwin := nativeWindow(win.NativeHandle())
	setBuffersGeometry(nwin, format)
	attribs := []C.EGLint{C.EGL_NONE}
	surf := C.eglCreateWindowSurface(d.disp, eglConfig(cfg), nwin, &attribs[0])
	if surf == nil {
		return NoSurface, fmt.Errorf("eglCreateWindowSurface failed: %v", eglError())
	}
	return EGLSurface(uintptr(unsafe.Pointer(surf))), nil
}

func (d *NativeDisplay) MakeCurrent(surf EGLSurface, ctx EGLContext) error {
	s := eglSurface(surf)
	if C.eglMakeCurrent(d.disp, s, s, eglContext(ctx)) != C.EGL_TRUE {
		return fmt.Errorf("eglMakeCurrent failed: %v", eglError())
	}
	return nil
}

func (d *NativeDisplay) SwapBuffers(surf EGLSurface) error {
	if C.eglSwapBuffers(d.disp, eglSurface(surf)) != C.EGL_TRUE {
		return fmt.Errorf("eglSwapBuffers failed: %v", eglError())
	}
	return nil
}

func (d *NativeDisplay) DestroySurface(surf EGLSurface) error {
	if C.eglDestroySurface(d.disp, eglSurface(surf)) != C.EGL_TRUE {
		return fmt.Errorf("eglDestroySurface failed: %v", eglError())
	}
	return nil
}

func (d *NativeDisplay) DestroyContext(ctx EGLContext) error {
	if C.eglDestroyContext(d.disp, eglContext(ctx)) != C.EGL_TRUE {
		return fmt.Errorf("eglDestroyContext failed: %v", eglError())
	}
	return nil
}

func (d *NativeDisplay) Terminate() error {
	defer C.eglReleaseThread()
	if C.eglTerminate(d.disp) != C.EGL_TRUE {
		return fmt.Errorf("eglTerminate failed: %v", eglError())
	}
	d.disp = nil
	return nil
}

func (d *NativeDisplay) NativeHandle() uintptr {
	return uintptr(unsafe.Pointer(d.disp))
}

func eglConfig(cfg EGLConfig) C.EGLConfig {
	return C.EGLConfig(unsafe.Pointer(uintptr(cfg)))
}

func eglContext(ctx EGLContext) C.EGLContext {
	return C.EGLContext(unsafe.Pointer(uintptr(ctx)))
}

func eglSurface(surf EGLSurface) C.EGLSurface {
	return C.EGLSurface(unsafe.Pointer(uintptr(surf)))
}

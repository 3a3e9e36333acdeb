// SPDX-License-Identifier: Unlicense OR MIT

package headless

import (
	"image"

	"celestia.space/render/internal/egl"
	"celestia.space/render/internal/surface"
)

// display implements egl.Display.
type display Platform

var _ egl.Display = (*display)(nil)

func (d *display) Initialize() (int, int, error) {
	p := (*Platform)(d)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.faults.Initialize {
		return 0, 0, &Error{Op: "eglInitialize", Code: eglNotInitialized}
	}
	p.initialized = true
	return 1, 5, nil
}

func (d *display) QueryString(name egl.EGLint) string {
	p := (*Platform)(d)
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized || name != egl.EXTENSIONS {
		return ""
	}
	if p.opts.Surfaceless {
		return "EGL_KHR_create_context EGL_KHR_surfaceless_context"
	}
	return "EGL_KHR_create_context"
}

func (d *display) ChooseConfig(attribs []egl.EGLint) (egl.EGLConfig, error) {
	p := (*Platform)(d)
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized {
		return egl.NoConfig, &Error{Op: "eglChooseConfig", Code: eglNotInitialized}
	}
	if p.faults.ChooseConfig {
		return egl.NoConfig, &Error{Op: "eglChooseConfig", Code: eglBadAccess}
	}
	samples := 0
	for i := 0; i+1 < len(attribs) && attribs[i] != egl.NONE; i += 2 {
		if attribs[i] == egl.SAMPLES {
			samples = int(attribs[i+1])
		}
	}
	if samples == 0 {
		return configSingle, nil
	}
	if p.faults.Multisample {
		return egl.NoConfig, &Error{Op: "eglChooseConfig", Code: eglBadMatch}
	}
	if p.opts.Samples < samples {
		return egl.NoConfig, nil
	}
	return configMultisample, nil
}

func (d *display) ConfigAttrib(cfg egl.EGLConfig, attr egl.EGLint) (egl.EGLint, error) {
	p := (*Platform)(d)
	p.mu.Lock()
	defer p.mu.Unlock()
	if cfg != configSingle && cfg != configMultisample {
		return 0, &Error{Op: "eglGetConfigAttrib", Code: eglBadConfig}
	}
	switch attr {
	case egl.NATIVE_VISUAL_ID:
		return windowFormatRGBA8888, nil
	case egl.SAMPLES:
		if cfg == configMultisample {
			return egl.EGLint(p.opts.Samples), nil
		}
		return 0, nil
	case egl.DEPTH_SIZE:
		return 16, nil
	case egl.RED_SIZE, egl.GREEN_SIZE, egl.BLUE_SIZE:
		return 8, nil
	}
	return 0, &Error{Op: "eglGetConfigAttrib", Code: eglBadMatch}
}

func (d *display) CreateContext(cfg egl.EGLConfig, attribs []egl.EGLint) (egl.EGLContext, error) {
	p := (*Platform)(d)
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized {
		return egl.NoContext, &Error{Op: "eglCreateContext", Code: eglNotInitialized}
	}
	if p.faults.CreateContext {
		return egl.NoContext, &Error{Op: "eglCreateContext", Code: eglBadAlloc}
	}
	if cfg != configSingle && cfg != configMultisample {
		return egl.NoContext, &Error{Op: "eglCreateContext", Code: eglBadConfig}
	}
	ctx := egl.EGLContext(p.newID())
	p.contexts[ctx] = struct{}{}
	p.stats.ContextsCreated++
	return ctx, nil
}

func (d *display) CreateWindowSurface(cfg egl.EGLConfig, win surface.Window, format egl.EGLint) (egl.EGLSurface, error) {
	p := (*Platform)(d)
	w, ok := win.(*Window)
	if !ok {
		return egl.NoSurface, &Error{Op: "eglCreateWindowSurface", Code: eglBadNativeWindow}
	}
	w.mu.Lock()
	fail, released, size := w.fail, w.releases > 0, w.size
	if !fail && !released {
		w.format = format
		w.owner = p
	}
	w.mu.Unlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized {
		return egl.NoSurface, &Error{Op: "eglCreateWindowSurface", Code: eglNotInitialized}
	}
	if released {
		p.stats.UseAfterRelease++
		return egl.NoSurface, &Error{Op: "eglCreateWindowSurface", Code: eglBadNativeWindow}
	}
	if fail {
		return egl.NoSurface, &Error{Op: "eglCreateWindowSurface", Code: eglBadNativeWindow}
	}
	for _, s := range p.surfaces {
		if s.win == w {
			// A native window can back a single surface.
			return egl.NoSurface, &Error{Op: "eglCreateWindowSurface", Code: eglBadAlloc}
		}
	}
	surf := egl.EGLSurface(p.newID())
	p.surfaces[surf] = &eglSurface{win: w, back: image.NewRGBA(image.Rectangle{Max: size})}
	p.stats.SurfacesCreated++
	return surf, nil
}

func (d *display) MakeCurrent(surf egl.EGLSurface, ctx egl.EGLContext) error {
	p := (*Platform)(d)
	p.mu.Lock()
	defer p.mu.Unlock()
	if ctx == egl.NoContext {
		if surf != egl.NoSurface {
			return &Error{Op: "eglMakeCurrent", Code: eglBadMatch}
		}
		p.currentCtx, p.currentSurf = egl.NoContext, egl.NoSurface
		return nil
	}
	if _, ok := p.contexts[ctx]; !ok {
		return &Error{Op: "eglMakeCurrent", Code: eglBadContext}
	}
	if surf == egl.NoSurface {
		if !p.opts.Surfaceless {
			return &Error{Op: "eglMakeCurrent", Code: eglBadMatch}
		}
	} else if _, ok := p.surfaces[surf]; !ok {
		return &Error{Op: "eglMakeCurrent", Code: eglBadSurface}
	}
	p.currentCtx, p.currentSurf = ctx, surf
	return nil
}

func (d *display) SwapBuffers(surf egl.EGLSurface) error {
	p := (*Platform)(d)
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.surfaces[surf]
	if !ok {
		p.stats.FailedSwaps++
		return &Error{Op: "eglSwapBuffers", Code: eglBadSurface}
	}
	if p.faults.Swap {
		p.stats.FailedSwaps++
		return &Error{Op: "eglSwapBuffers", Code: eglBadSurface}
	}
	if s.win.Released() {
		p.stats.UseAfterRelease++
	}
	s.win.present(s.back)
	p.stats.Swaps++
	return nil
}

func (d *display) DestroySurface(surf egl.EGLSurface) error {
	p := (*Platform)(d)
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.surfaces[surf]; !ok {
		return &Error{Op: "eglDestroySurface", Code: eglBadSurface}
	}
	delete(p.surfaces, surf)
	if p.currentSurf == surf {
		p.currentSurf = egl.NoSurface
	}
	return nil
}

func (d *display) DestroyContext(ctx egl.EGLContext) error {
	p := (*Platform)(d)
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.contexts[ctx]; !ok {
		return &Error{Op: "eglDestroyContext", Code: eglBadContext}
	}
	delete(p.contexts, ctx)
	if p.currentCtx == ctx {
		p.currentCtx, p.currentSurf = egl.NoContext, egl.NoSurface
	}
	if len(p.contexts) == 0 {
		// The last context takes the shared GL objects with it.
		p.stats.Leaked += p.gl.reset()
	}
	return nil
}

func (d *display) Terminate() error {
	p := (*Platform)(d)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.Leaked += len(p.contexts) + len(p.surfaces) + p.gl.reset()
	clear(p.contexts)
	clear(p.surfaces)
	p.currentCtx, p.currentSurf = egl.NoContext, egl.NoSurface
	p.initialized = false
	return nil
}

func (d *display) NativeHandle() uintptr {
	return uintptr(1)
}

// defaultFramebuffer returns the image the default framebuffer renders to,
// resizing the back buffer to follow its window.
func (p *Platform) defaultFramebuffer() *image.RGBA {
	s, ok := p.surfaces[p.currentSurf]
	if !ok {
		return nil
	}
	if size := s.win.Size(); s.back.Rect.Size() != size {
		s.back = image.NewRGBA(image.Rectangle{Max: size})
	}
	return s.back
}

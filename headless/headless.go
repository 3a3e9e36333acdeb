// SPDX-License-Identifier: Unlicense OR MIT

// Package headless implements a software rendering platform: an EGL
// display, a GL ES 2 driver and a presentation timing service backed
// by in-memory images. It runs anywhere and records enough state to
// verify what a renderer did with its resources.
//
// The GL driver only rasterizes what a compositor needs: clears and
// full viewport textured quads.
package headless

import (
	"fmt"
	"image"
	"sync"
	"time"

	"celestia.space/render/internal/egl"
	"celestia.space/render/internal/gl"
	"celestia.space/render/internal/pacing"
)

// Options configures a Platform.
type Options struct {
	// Samples is the sample count of the multisampled configuration.
	// Zero means the display has no multisampled configuration.
	Samples int
	// Surfaceless enables EGL_KHR_surfaceless_context.
	Surfaceless bool
	// RefreshPeriod is the simulated display refresh period. Zero
	// means 60Hz.
	RefreshPeriod time.Duration
}

// Faults injects failures into the platform.
type Faults struct {
	// Initialize fails eglInitialize.
	Initialize bool
	// ChooseConfig fails every eglChooseConfig.
	ChooseConfig bool
	// Multisample fails eglChooseConfig for multisampled configurations
	// only.
	Multisample bool
	// CreateContext fails eglCreateContext.
	CreateContext bool
	// Swap fails eglSwapBuffers.
	Swap bool
	// IncompleteFramebuffer makes every framebuffer object incomplete.
	IncompleteFramebuffer bool
}

// Stats is a snapshot of the platform's resource accounting.
type Stats struct {
	// Live EGL objects.
	Contexts int
	Surfaces int
	// Live GL objects.
	Textures      int
	Framebuffers  int
	Renderbuffers int
	Programs      int
	Shaders       int
	Buffers       int

	ContextsCreated     int
	SurfacesCreated     int
	FramebuffersCreated int
	FramebuffersDeleted int
	Swaps               int
	FailedSwaps         int
	Draws               int
	// DepthTestedDraws counts draws issued with depth testing enabled.
	DepthTestedDraws int
	// StrayCalls counts GL calls made without a current context.
	StrayCalls int
	// UseAfterRelease counts windows released while a surface still
	// referenced them, and surfaces created for released windows.
	UseAfterRelease int
	// Leaked counts objects still alive when their context or display
	// was destroyed.
	Leaked int
	// Current reports whether a context is current.
	Current bool
}

// LiveObjects returns the number of live EGL and GL objects.
func (s Stats) LiveObjects() int {
	return s.Contexts + s.Surfaces + s.Textures + s.Framebuffers +
		s.Renderbuffers + s.Programs + s.Shaders + s.Buffers
}

// Error is an EGL error.
type Error struct {
	Op   string
	Code egl.EGLint
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed: 0x%x", e.Op, e.Code)
}

const (
	eglNotInitialized  = 0x3001
	eglBadAccess       = 0x3002
	eglBadAlloc        = 0x3003
	eglBadConfig       = 0x3005
	eglBadContext      = 0x3006
	eglBadMatch        = 0x3009
	eglBadNativeWindow = 0x300b
	eglBadSurface      = 0x300d
)

// windowFormatRGBA8888 is the native visual id of every configuration.
const windowFormatRGBA8888 = 1

const (
	configSingle egl.EGLConfig = 1 + iota
	configMultisample
)

// Platform is a software display with its GL driver and timing
// service. Its methods are safe for concurrent use.
type Platform struct {
	mu     sync.Mutex
	opts   Options
	faults Faults
	ticker *pacing.Ticker

	initialized bool
	nextID      uint
	contexts    map[egl.EGLContext]struct{}
	surfaces    map[egl.EGLSurface]*eglSurface
	currentCtx  egl.EGLContext
	currentSurf egl.EGLSurface

	gl    glState
	stats Stats
}

type eglSurface struct {
	win  *Window
	back *image.RGBA
}

func New(opts Options) *Platform {
	return &Platform{
		opts:     opts,
		ticker:   pacing.NewTicker(opts.RefreshPeriod),
		contexts: make(map[egl.EGLContext]struct{}),
		surfaces: make(map[egl.EGLSurface]*eglSurface),
		gl:       newGLState(),
	}
}

// Display returns the platform's EGL display.
func (p *Platform) Display() egl.Display {
	return (*display)(p)
}

// Functions returns the platform's GL driver.
func (p *Platform) Functions() gl.Functions {
	return (*functions)(p)
}

// Timing returns the platform's presentation timing service.
func (p *Platform) Timing() pacing.Timing {
	return p.ticker
}

// SwapInterval returns the swap interval last requested from the
// timing service.
func (p *Platform) SwapInterval() time.Duration {
	return p.ticker.SwapInterval()
}

func (p *Platform) SetFaults(f Faults) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.faults = f
}

func (p *Platform) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.stats
	s.Contexts = len(p.contexts)
	s.Surfaces = len(p.surfaces)
	s.Textures = len(p.gl.textures)
	s.Framebuffers = len(p.gl.framebuffers)
	s.Renderbuffers = len(p.gl.renderbuffers)
	s.Programs = len(p.gl.programs)
	s.Shaders = len(p.gl.shaders)
	s.Buffers = len(p.gl.buffers)
	s.Current = p.currentCtx != egl.NoContext
	return s
}

func (p *Platform) newID() uint {
	p.nextID++
	return p.nextID
}

// windowReleased is called by a Window when its owner releases it.
func (p *Platform) windowReleased(w *Window) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.surfaces {
		if s.win == w {
			p.stats.UseAfterRelease++
			return
		}
	}
}

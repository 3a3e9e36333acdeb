// SPDX-License-Identifier: Unlicense OR MIT

// Package egl manages the rendering context of a renderer and the
// window surfaces created for its slots.
//
// A Context is owned by the render thread. None of its methods may be
// called from any other thread.
package egl

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/slices"

	"celestia.space/render/internal/gl"
	"celestia.space/render/internal/log"
	"celestia.space/render/internal/surface"
)

type (
	EGLint     = int32
	EGLConfig  uintptr
	EGLContext uintptr
	EGLSurface uintptr
)

const (
	NoConfig  EGLConfig  = 0
	NoContext EGLContext = 0
	NoSurface EGLSurface = 0
)

const (
	BLUE_SIZE              = 0x3022
	CONTEXT_CLIENT_VERSION = 0x3098
	DEPTH_SIZE             = 0x3025
	EXTENSIONS             = 0x3055
	GREEN_SIZE             = 0x3023
	NATIVE_VISUAL_ID       = 0x302e
	NONE                   = 0x3038
	OPENGL_ES2_BIT         = 0x4
	RED_SIZE               = 0x3024
	RENDERABLE_TYPE        = 0x3040
	SAMPLE_BUFFERS         = 0x3032
	SAMPLES                = 0x3031
	SURFACE_TYPE           = 0x3033
	WINDOW_BIT             = 0x4
)

var (
	// ErrNoConfig is returned when no framebuffer configuration
	// matches the required attributes.
	ErrNoConfig = errors.New("egl: no matching framebuffer configuration")
	// ErrNoSurface is returned when presenting to an empty slot.
	ErrNoSurface = errors.New("egl: slot has no surface")
)

// Display is the set of EGL entry points for a single EGLDisplay.
// Errors carry the EGL error code.
type Display interface {
	// Initialize connects to the default display.
	Initialize() (major, minor int, err error)
	QueryString(name EGLint) string
	// ChooseConfig returns the best matching configuration, or
	// NoConfig and a nil error if none matches.
	ChooseConfig(attribs []EGLint) (EGLConfig, error)
	ConfigAttrib(cfg EGLConfig, attr EGLint) (EGLint, error)
	CreateContext(cfg EGLConfig, attribs []EGLint) (EGLContext, error)
	// CreateWindowSurface creates a surface for win, after applying
	// the native visual format of the configuration to it.
	CreateWindowSurface(cfg EGLConfig, win surface.Window, format EGLint) (EGLSurface, error)
	MakeCurrent(surf EGLSurface, ctx EGLContext) error
	SwapBuffers(surf EGLSurface) error
	DestroySurface(surf EGLSurface) error
	DestroyContext(ctx EGLContext) error
	Terminate() error
	// NativeHandle returns the EGLDisplay handle.
	NativeHandle() uintptr
}

// Context is the graphics context manager: it negotiates a
// configuration, creates the rendering context once and keeps one
// window surface per slot.
type Context struct {
	disp        Display
	c           gl.Functions
	multisample bool

	initialized bool
	config      EGLConfig
	ctx         EGLContext
	format      EGLint
	samples     int
	surfaceless bool

	surfaces [surface.NumSlots]slotSurface
	current  EGLSurface
}

type slotSurface struct {
	win  surface.Window
	surf EGLSurface
}

var (
	baseAttribs = []EGLint{
		RENDERABLE_TYPE, OPENGL_ES2_BIT,
		SURFACE_TYPE, WINDOW_BIT,
		BLUE_SIZE, 8,
		GREEN_SIZE, 8,
		RED_SIZE, 8,
		DEPTH_SIZE, 16,
	}
	multisampleAttribs = []EGLint{
		SAMPLES, 4,
		SAMPLE_BUFFERS, 1,
	}
)

// NewContext returns a manager for disp. No EGL call is made until
// Initialize. If multisample is set, multisampled configurations are
// preferred.
func NewContext(disp Display, f gl.Functions, multisample bool) *Context {
	return &Context{disp: disp, c: f, multisample: multisample}
}

// Functions returns the GL functions bound to the context.
func (c *Context) Functions() gl.Functions {
	return c.c
}

// Initialize creates the rendering context if it doesn't exist, then
// recreates the surface of every slot from windows, destroying stale
// surfaces first. A nil window leaves its slot empty.
//
// A context failure tears down all state. A surface failure leaves
// only that slot empty; the errors of all failed slots are joined.
func (c *Context) Initialize(windows [surface.NumSlots]surface.Window) error {
	if c.ctx == NoContext {
		if err := c.createContext(); err != nil {
			c.Destroy()
			return err
		}
	}
	var errs []error
	for i, win := range windows {
		s := surface.Slot(i)
		c.destroySurface(s)
		if win == nil {
			continue
		}
		surf, err := c.disp.CreateWindowSurface(c.config, win, c.format)
		if err != nil {
			log.L().Error("window surface creation failed", "slot", s, "err", err)
			errs = append(errs, fmt.Errorf("%v surface: %w", s, err))
			continue
		}
		c.surfaces[s] = slotSurface{win: win, surf: surf}
	}
	if !c.HasSurface() {
		c.release()
		return errors.Join(errs...)
	}
	if err := c.MakeCurrent(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c *Context) createContext() error {
	log.L().Info("initializing context", "multisample", c.multisample)
	major, minor, err := c.disp.Initialize()
	if err != nil {
		return err
	}
	c.initialized = true
	exts := strings.Fields(c.disp.QueryString(EXTENSIONS))
	c.surfaceless = slices.Contains(exts, "EGL_KHR_surfaceless_context")

	cfg := NoConfig
	if c.multisample {
		attribs := append(append(append([]EGLint{}, baseAttribs...), multisampleAttribs...), NONE)
		cfg, err = c.disp.ChooseConfig(attribs)
		if err != nil || cfg == NoConfig {
			// Fall back to a single sampled configuration.
			log.L().Info("multisampled configuration unavailable", "err", err)
			cfg = NoConfig
		}
	}
	if cfg == NoConfig {
		cfg, err = c.disp.ChooseConfig(append(append([]EGLint{}, baseAttribs...), NONE))
		if err != nil {
			return err
		}
	}
	if cfg == NoConfig {
		return ErrNoConfig
	}
	format, err := c.disp.ConfigAttrib(cfg, NATIVE_VISUAL_ID)
	if err != nil {
		return fmt.Errorf("eglGetConfigAttrib for EGL_NATIVE_VISUAL_ID: %w", err)
	}
	samples, err := c.disp.ConfigAttrib(cfg, SAMPLES)
	if err != nil {
		samples = 0
	}
	ctx, err := c.disp.CreateContext(cfg, []EGLint{CONTEXT_CLIENT_VERSION, 3, NONE})
	if err != nil {
		// Fall back to OpenGL ES 2.
		ctx, err = c.disp.CreateContext(cfg, []EGLint{CONTEXT_CLIENT_VERSION, 2, NONE})
		if err != nil {
			return err
		}
	}
	c.config = cfg
	c.format = format
	c.samples = int(samples)
	c.ctx = ctx
	log.L().Info("context created", "egl", fmt.Sprintf("%d.%d", major, minor), "samples", c.samples)
	return nil
}

// Destroy releases the surfaces, the context and the display
// connection, and resets the negotiated configuration. It is safe to
// call more than once.
func (c *Context) Destroy() {
	if c.initialized {
		log.L().Info("destroying context")
		for i := range c.surfaces {
			c.destroySurface(surface.Slot(i))
		}
		c.release()
		if c.ctx != NoContext {
			if err := c.disp.DestroyContext(c.ctx); err != nil {
				log.L().Error("context destruction failed", "err", err)
			}
		}
		if err := c.disp.Terminate(); err != nil {
			log.L().Error("display termination failed", "err", err)
		}
	}
	c.initialized = false
	c.ctx = NoContext
	c.config = NoConfig
	c.format = 0
	c.samples = 0
	c.surfaceless = false
	c.current = NoSurface
}

func (c *Context) destroySurface(s surface.Slot) {
	ss := &c.surfaces[s]
	if ss.surf == NoSurface {
		*ss = slotSurface{}
		return
	}
	if c.current == ss.surf {
		// Make sure any in-flight GL commands are complete.
		c.c.Finish()
		c.release()
	}
	if err := c.disp.DestroySurface(ss.surf); err != nil {
		log.L().Error("surface destruction failed", "slot", s, "err", err)
	}
	*ss = slotSurface{}
}

// release unbinds the context from the thread.
func (c *Context) release() {
	if !c.initialized {
		return
	}
	c.disp.MakeCurrent(NoSurface, NoContext)
	c.current = NoSurface
}

// Valid reports whether the slot has a live surface.
func (c *Context) Valid(s surface.Slot) bool {
	return c.surfaces[s].surf != NoSurface
}

// HasSurface reports whether any slot has a live surface.
func (c *Context) HasSurface() bool {
	for _, ss := range c.surfaces {
		if ss.surf != NoSurface {
			return true
		}
	}
	return false
}

// Dual reports whether both slots have live surfaces.
func (c *Context) Dual() bool {
	return c.Valid(surface.Primary) && c.Valid(surface.Presentation)
}

// HasContext reports whether the rendering context exists.
func (c *Context) HasContext() bool {
	return c.ctx != NoContext
}

// Samples returns the multisample count of the negotiated
// configuration.
func (c *Context) Samples() int {
	return c.samples
}

// Authoritative returns the slot that immediate rendering targets:
// the presentation slot if it has a surface, the primary slot
// otherwise.
func (c *Context) Authoritative() (surface.Slot, bool) {
	switch {
	case c.Valid(surface.Presentation):
		return surface.Presentation, true
	case c.Valid(surface.Primary):
		return surface.Primary, true
	}
	return 0, false
}

// MakeCurrent binds the context to the authoritative surface. It is a
// no-op if no slot has a surface.
func (c *Context) MakeCurrent() error {
	s, ok := c.Authoritative()
	if !ok {
		return nil
	}
	return c.MakeCurrentSlot(s)
}

// MakeCurrentSlot binds the context to the surface of s. It is a
// no-op if s has no surface.
func (c *Context) MakeCurrentSlot(s surface.Slot) error {
	surf := c.surfaces[s].surf
	if surf == NoSurface {
		return nil
	}
	if surf == c.current {
		return nil
	}
	if err := c.disp.MakeCurrent(surf, c.ctx); err != nil {
		c.current = NoSurface
		return fmt.Errorf("%v: %w", s, err)
	}
	c.current = surf
	return nil
}

// MakeCurrentAny binds the context to the authoritative surface, or
// without a surface if none exists and the display supports it. It
// reports whether the context is current.
func (c *Context) MakeCurrentAny() bool {
	if c.ctx == NoContext {
		return false
	}
	if c.HasSurface() {
		return c.MakeCurrent() == nil
	}
	if !c.surfaceless {
		return false
	}
	return c.disp.MakeCurrent(NoSurface, c.ctx) == nil
}

// Target returns the presentation target of the slot.
func (c *Context) Target(s surface.Slot) Target {
	return Target{disp: c.disp, surf: c.surfaces[s].surf}
}

// Target presents the back buffer of a single surface.
type Target struct {
	disp Display
	surf EGLSurface
}

func (t Target) SwapBuffers() error {
	if t.surf == NoSurface {
		return ErrNoSurface
	}
	return t.disp.SwapBuffers(t.surf)
}

// EGLHandles returns the display and surface handles, for timing
// services that swap on their own.
func (t Target) EGLHandles() (display, surface uintptr) {
	return t.disp.NativeHandle(), uintptr(t.surf)
}

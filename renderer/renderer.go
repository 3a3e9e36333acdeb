// SPDX-License-Identifier: Unlicense OR MIT

/*
Package renderer drives a rendering engine from a dedicated render
thread.

The render thread owns the graphics context and the window surfaces
of up to two slots: the primary display and an optional presentation
display such as an external monitor. When both slots have a surface,
every frame is rendered once offscreen and mirrored to both.

Commands are issued from the application thread and picked up by the
render thread on its next iteration. Surface and size changes are
coalesced: only the latest values are observed. No GPU call is ever
made from the calling thread.

	r, err := renderer.New(renderer.Options{})
	...
	r.Start()
	r.SetSurface(renderer.Primary, win)
	r.SetSize(renderer.Primary, 1080, 1920)
	r.SetEngine(engine)
	...
	r.Stop()
*/
package renderer

import (
	"errors"
	"image"
	"log/slog"
	"sync"

	"celestia.space/render/internal/compositor"
	"celestia.space/render/internal/egl"
	"celestia.space/render/internal/gl"
	"celestia.space/render/internal/log"
	"celestia.space/render/internal/pacing"
	"celestia.space/render/internal/surface"
)

// Slot identifies an output target.
type Slot = surface.Slot

const (
	Primary      = surface.Primary
	Presentation = surface.Presentation
)

// Window is a native window handle, such as an ANativeWindow. The
// renderer releases every window it was given once its surface is
// destroyed.
type Window = surface.Window

// FrameRate is a frame rate policy.
type FrameRate = pacing.FrameRate

const (
	FrameRateMax = pacing.FrameRateMax
	FrameRate60  = pacing.FrameRate60
	FrameRate30  = pacing.FrameRate30
	FrameRate20  = pacing.FrameRate20
)

// Timing is the presentation timing service of a Driver. It receives
// the swap interval of the frame rate policy and presents every frame.
type Timing = pacing.Timing

// Target is a surface presented through Timing.Swap.
type Target = pacing.Target

// Engine is the simulation driven by the renderer. Its methods are
// called on the render thread with the graphics context current.
type Engine interface {
	// Tick advances the simulation to the next frame.
	Tick()
	// Draw renders the frame to the bound framebuffer.
	Draw()
	// Resize notifies the engine of a new render size in pixels.
	Resize(width, height int)
}

// Driver provides the platform bindings of a renderer.
type Driver interface {
	Display() egl.Display
	Functions() gl.Functions
	Timing() Timing
}

// Callbacks are invoked on the render thread.
type Callbacks struct {
	// AttachThread is called once when the render thread starts,
	// before any other callback. An error ends the thread.
	AttachThread func() error
	// DetachThread is called once when the render thread exits.
	DetachThread func()
	// EngineStarted is called at most once, when the first surface is
	// ready, with the negotiated multisample count. Returning false
	// stops rendering for good.
	EngineStarted func(samples int) bool
	// FlushTasks replaces the flush of the queue filled by
	// EnqueueTask. It is called on every iteration while pending
	// tasks are flagged, so it must lower the flag with
	// SetHasPendingTasks(false).
	FlushTasks func()
}

// Options configure a Renderer.
type Options struct {
	// Driver is the platform. The default is the native EGL driver.
	Driver Driver
	// Multisample prefers a multisampled framebuffer configuration.
	Multisample bool
	// FrameRate is the initial frame rate policy.
	FrameRate FrameRate
	Callbacks Callbacks
}

// State is the state of the render thread.
type State uint8

const (
	// Idle is the state before Start.
	Idle State = iota
	Running
	// Paused means the render thread is parked until Resume.
	Paused
	// ExitRequested means Stop was called and the thread is winding
	// down.
	ExitRequested
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case ExitRequested:
		return "exit requested"
	case Terminated:
		return "terminated"
	default:
		panic("invalid State")
	}
}

type message uint8

const (
	msgNone message = iota
	msgSurfaceChanged
	msgExitRequested
)

var (
	// ErrStarted is returned by Start if the renderer was started
	// before. A renderer runs at most once.
	ErrStarted = errors.New("renderer: already started")
	// ErrNoDriver is returned by New when the platform has no native
	// driver and Options.Driver is nil.
	ErrNoDriver = errors.New("renderer: no native driver on this platform")
)

// Renderer owns a render thread. Its methods may be called from any
// goroutine unless noted otherwise.
type Renderer struct {
	callbacks   Callbacks
	multisample bool
	pacer       *pacing.Pacer
	// wake unparks an idle render thread.
	wake chan struct{}
	done chan struct{}

	mu sync.Mutex
	// cond is signaled when suspended is cleared.
	cond         *sync.Cond
	state        State
	msg          message
	suspended    bool
	pendingTasks bool
	engine       Engine
	surfaces     surface.Registry

	taskMu sync.Mutex
	tasks  []func()

	// Render thread only.
	ctx        *egl.Context
	comp       *compositor.Compositor
	gl         gl.Functions
	started    bool
	dual       bool
	lastSize   image.Point
	frameCount uint64
}

// New returns a renderer. The render thread is created by Start.
func New(opts Options) (*Renderer, error) {
	d := opts.Driver
	if d == nil {
		nd, err := nativeDriver()
		if err != nil {
			return nil, err
		}
		d = nd
	}
	f := d.Functions()
	r := &Renderer{
		callbacks:   opts.Callbacks,
		multisample: opts.Multisample,
		pacer:       pacing.New(d.Timing()),
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
		ctx:         egl.NewContext(d.Display(), f, opts.Multisample),
		comp:        compositor.New(f),
		gl:          f,
	}
	r.cond = sync.NewCond(&r.mu)
	r.pacer.SetFrameRate(opts.FrameRate)
	return r, nil
}

// SetLogger directs the log records of every renderer to l. A nil
// logger restores the platform default, which is logcat on Android
// and silence elsewhere.
func SetLogger(l *slog.Logger) {
	log.Set(l)
}

// Start spawns the render thread.
func (r *Renderer) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != Idle {
		return ErrStarted
	}
	r.state = Running
	go r.run()
	return nil
}

// StartConditionally starts the render thread unless it was started
// before. It reports whether the thread was started by this call.
func (r *Renderer) StartConditionally() bool {
	return r.Start() == nil
}

// Stop asks the render thread to exit and waits until it has
// released every graphics resource. A paused thread is resumed to
// exit. Stop is a no-op if the renderer isn't running. It must not be
// called on the render thread.
func (r *Renderer) Stop() {
	r.mu.Lock()
	switch r.state {
	case Idle, Terminated:
		r.mu.Unlock()
		return
	case Running, Paused:
		r.state = ExitRequested
	}
	r.msg = msgExitRequested
	r.suspended = false
	r.cond.Broadcast()
	r.mu.Unlock()
	r.signal()
	<-r.done
}

// Close stops the render thread if it runs and releases the windows
// the renderer still holds. It is safe to call more than once.
func (r *Renderer) Close() {
	r.Stop()
	r.mu.Lock()
	ws := r.surfaces.Clear()
	r.mu.Unlock()
	for _, w := range ws {
		w.Release()
	}
}

// Pause parks the render thread. The graphics context and surfaces
// are kept; no frame is ticked, drawn or presented until Resume.
func (r *Renderer) Pause() {
	r.mu.Lock()
	if r.msg != msgExitRequested {
		r.suspended = true
	}
	r.mu.Unlock()
	r.signal()
}

// Resume undoes Pause.
func (r *Renderer) Resume() {
	r.mu.Lock()
	r.suspended = false
	r.cond.Broadcast()
	r.mu.Unlock()
	r.signal()
}

// SetSurface binds w to the slot, or empties the slot if w is nil.
// The surface of the previous window is destroyed by the render
// thread before that window is released.
//
// The renderer takes over one reference to w, released exactly once.
// Passing the window already bound to the slot is a no-op for
// ownership: the caller must not acquire another reference for it.
func (r *Renderer) SetSurface(s Slot, w Window) {
	r.mu.Lock()
	r.surfaces.Set(s, w)
	if r.msg != msgExitRequested {
		r.msg = msgSurfaceChanged
	}
	r.mu.Unlock()
	r.signal()
}

// SetSize records the render size of the slot in pixels. The size is
// applied on the next frame.
func (r *Renderer) SetSize(s Slot, width, height int) {
	r.mu.Lock()
	r.surfaces.SetSize(s, width, height)
	r.mu.Unlock()
	r.signal()
}

// SetEngine binds the engine to draw, or unbinds it if e is nil.
func (r *Renderer) SetEngine(e Engine) {
	r.mu.Lock()
	r.engine = e
	r.mu.Unlock()
	r.signal()
}

// SetFrameRateOption selects the frame rate policy, effective from
// the next presented frame.
func (r *Renderer) SetFrameRateOption(fr FrameRate) {
	r.pacer.SetFrameRate(fr)
}

// FrameRate returns the current frame rate policy.
func (r *Renderer) FrameRate() FrameRate {
	return r.pacer.FrameRate()
}

// SetHasPendingTasks flags whether the task flush must run on the
// next iteration of the render thread.
func (r *Renderer) SetHasPendingTasks(pending bool) {
	r.mu.Lock()
	r.pendingTasks = pending
	r.mu.Unlock()
	if pending {
		r.signal()
	}
}

// State returns the state of the render thread.
func (r *Renderer) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// MakeContextCurrent binds the graphics context to the presentation
// surface if it exists, to the primary surface otherwise. It must be
// called on the render thread, from a task or an engine method.
func (r *Renderer) MakeContextCurrent() error {
	return r.ctx.MakeCurrent()
}

func (r *Renderer) signal() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

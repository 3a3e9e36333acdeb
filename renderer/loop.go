// SPDX-License-Identifier: Unlicense OR MIT

package renderer

import (
	"image"
	"log/slog"
	"runtime"

	"celestia.space/render/internal/compositor"
	"celestia.space/render/internal/gl"
	"celestia.space/render/internal/log"
	"celestia.space/render/internal/surface"
)

// frameState is what an iteration of the render loop copies out of
// the shared state.
type frameState struct {
	msg     message
	windows surface.Snapshot
	retired []Window
	tasks   bool
	engine  Engine
}

func (st *frameState) sizes() [surface.NumSlots]image.Point {
	return st.windows.Sizes
}

func (r *Renderer) run() {
	// GL operations must happen on a single OS thread.
	runtime.LockOSThread()
	// Don't UnlockOSThread to avoid reuse by the Go runtime.
	defer close(r.done)
	defer r.setState(Terminated)

	lg := log.L().With("tid", threadID())
	if cb := r.callbacks.AttachThread; cb != nil {
		if err := cb(); err != nil {
			lg.Error("render thread attach failed", "err", err)
			r.teardown()
			return
		}
	}
	lg.Info("render thread started", "multisample", r.multisample)
	r.loop(lg)
	r.teardown()
	if cb := r.callbacks.DetachThread; cb != nil {
		cb()
	}
	lg.Info("render thread exited", "frames", r.frameCount)
}

func (r *Renderer) loop(lg *slog.Logger) {
	for {
		if !r.started && r.ctx.HasSurface() {
			if !r.startEngine() {
				lg.Error("engine start rejected, rendering stopped")
				return
			}
		}
		st := r.next()
		switch st.msg {
		case msgExitRequested:
			return
		case msgSurfaceChanged:
			r.reinitialize(lg, st)
		}
		// Tasks are GL work and wait for the engine to start.
		flushed := st.tasks && r.started
		if flushed {
			r.flushTasks()
		}
		if r.dual && !r.ctx.Dual() {
			r.leaveDual()
		}
		drawn := false
		if r.started && r.ctx.HasSurface() && st.engine != nil {
			drawn = r.frame(lg, st)
		}
		if !drawn && !flushed && st.msg == msgNone {
			// Nothing to do until the next command.
			<-r.wake
		}
	}
}

// next waits while the renderer is paused, then takes the pending
// message and copies the state needed for the iteration.
func (r *Renderer) next() frameState {
	r.mu.Lock()
	defer r.mu.Unlock()
	for r.suspended && r.msg != msgExitRequested {
		r.state = Paused
		r.cond.Wait()
	}
	if r.state == Paused {
		r.state = Running
	}
	st := frameState{
		msg:    r.msg,
		tasks:  r.pendingTasks,
		engine: r.engine,
	}
	r.msg = msgNone
	st.windows = r.surfaces.Snapshot()
	if st.msg == msgSurfaceChanged {
		st.retired = r.surfaces.TakeRetired()
	}
	return st
}

func (r *Renderer) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

func (r *Renderer) startEngine() bool {
	r.started = true
	cb := r.callbacks.EngineStarted
	r.callbacks.EngineStarted = nil
	if cb == nil {
		return true
	}
	return cb(r.ctx.Samples())
}

// reinitialize recreates the context and the surfaces for the
// windows bound when the message was taken, then releases the windows
// whose surfaces were destroyed.
func (r *Renderer) reinitialize(lg *slog.Logger, st frameState) {
	w := st.windows
	both := w.Valid(surface.Primary) && w.Valid(surface.Presentation)
	if r.dual && !both {
		// Clean up while a surface is still current.
		r.leaveDual()
	}
	if !w.Valid(surface.Primary) && !w.Valid(surface.Presentation) && r.ctx.MakeCurrentAny() {
		r.comp.Release()
	}
	if err := r.ctx.Initialize(w.Windows); err != nil {
		lg.Error("surface initialization failed", "err", err)
	}
	if !r.ctx.HasContext() {
		r.resetDual()
		r.lastSize = image.Point{}
	}
	if s, ok := r.ctx.Authoritative(); ok {
		r.pacer.SetWindow(w.Windows[s])
	}
	for _, win := range st.retired {
		win.Release()
	}
	lg.Debug("surfaces changed",
		"primary", r.ctx.Valid(surface.Primary),
		"presentation", r.ctx.Valid(surface.Presentation))
}

func (r *Renderer) leaveDual() {
	if !r.ctx.MakeCurrentAny() {
		log.L().Warn("offscreen buffers released without a current context")
	}
	r.comp.CleanupBuffers()
	r.dual = false
	log.L().Debug("dual surface mode left")
}

// resetDual forgets the offscreen buffers of a destroyed context.
func (r *Renderer) resetDual() {
	r.comp = compositor.New(r.gl)
	r.dual = false
}

// frame renders and presents one frame. It reports whether the engine
// was run.
func (r *Renderer) frame(lg *slog.Logger, st frameState) bool {
	sizes := st.sizes()
	dual := r.ctx.Dual()
	if dual && !r.dual {
		lg.Debug("dual surface mode entered")
	}
	r.dual = dual
	var ok bool
	if dual {
		ok = r.frameDual(lg, st.engine, sizes)
	} else {
		ok = r.frameSingle(lg, st.engine, sizes)
	}
	if ok {
		r.frameCount++
	}
	return ok
}

// frameDual renders the frame once at the size of the presentation
// slot and mirrors it to both surfaces.
func (r *Renderer) frameDual(lg *slog.Logger, e Engine, sizes [surface.NumSlots]image.Point) bool {
	size := sizes[surface.Presentation]
	if size.X <= 0 || size.Y <= 0 {
		lg.Debug("presentation size unknown, frame skipped")
		return false
	}
	if err := r.ctx.MakeCurrentSlot(surface.Presentation); err != nil {
		lg.Error("make current failed", "err", err)
		return false
	}
	if err := r.comp.SetupBuffers(size.X, size.Y); err != nil {
		lg.Error("offscreen buffer setup failed", "err", err)
		return false
	}
	r.resizeIfNeeded(lg, e, size)
	if err := r.comp.Bind(); err != nil {
		lg.Error("offscreen bind failed", "err", err)
		return false
	}
	e.Tick()
	e.Draw()
	for _, s := range []surface.Slot{surface.Primary, surface.Presentation} {
		if err := r.ctx.MakeCurrentSlot(s); err != nil {
			lg.Error("make current failed", "slot", s, "err", err)
			continue
		}
		if err := r.comp.DrawTextureToScreen(r.comp.Texture(), sizes[s]); err != nil {
			lg.Error("blit failed", "slot", s, "err", err)
			continue
		}
		r.present(lg, s)
	}
	return true
}

func (r *Renderer) frameSingle(lg *slog.Logger, e Engine, sizes [surface.NumSlots]image.Point) bool {
	s, _ := r.ctx.Authoritative()
	if err := r.ctx.MakeCurrentSlot(s); err != nil {
		lg.Error("make current failed", "slot", s, "err", err)
		return false
	}
	size := sizes[s]
	r.resizeIfNeeded(lg, e, size)
	r.gl.BindFramebuffer(gl.FRAMEBUFFER, gl.Framebuffer{})
	r.gl.Viewport(0, 0, size.X, size.Y)
	e.Tick()
	e.Draw()
	r.present(lg, s)
	return true
}

func (r *Renderer) present(lg *slog.Logger, s surface.Slot) {
	if err := r.pacer.Swap(r.ctx.Target(s)); err != nil {
		lg.Error("swap buffers failed", "slot", s, "err", err)
	}
}

// resizeIfNeeded notifies the engine when the render size differs
// from the size of the last frame.
func (r *Renderer) resizeIfNeeded(lg *slog.Logger, e Engine, size image.Point) {
	if size == r.lastSize {
		return
	}
	lg.Debug("resize", "width", size.X, "height", size.Y)
	e.Resize(size.X, size.Y)
	r.lastSize = size
}

// teardown releases every graphics resource and every window.
func (r *Renderer) teardown() {
	if r.ctx.MakeCurrentAny() {
		r.comp.Release()
	}
	r.ctx.Destroy()
	r.resetDual()
	r.lastSize = image.Point{}
	r.mu.Lock()
	ws := r.surfaces.Clear()
	r.mu.Unlock()
	for _, w := range ws {
		w.Release()
	}
}

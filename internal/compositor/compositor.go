// SPDX-License-Identifier: Unlicense OR MIT

// Package compositor mirrors one rendered frame onto several
// surfaces. The frame is rendered once into an offscreen color
// target, which is then drawn as a full screen quad into each surface.
package compositor

import (
	"errors"
	"fmt"
	"image"

	"gioui.org/shader"

	"celestia.space/render/internal/gl"
)

// Compositor owns the offscreen buffer and the blit program. It must
// be used on the thread that owns the GL context.
type Compositor struct {
	c             gl.Functions
	width, height int
	frameBuffer   gl.Framebuffer
	colorTex      gl.Texture
	depthBuffer   gl.Renderbuffer

	blitReady bool
	prog      gl.Program
	quad      gl.Buffer
}

func New(f gl.Functions) *Compositor {
	return &Compositor{c: f}
}

// Active reports whether the offscreen buffer exists.
func (c *Compositor) Active() bool {
	return c.frameBuffer.Valid()
}

// Size returns the size of the offscreen buffer.
func (c *Compositor) Size() image.Point {
	return image.Point{X: c.width, Y: c.height}
}

// Texture returns the color target of the offscreen buffer.
func (c *Compositor) Texture() gl.Texture {
	return c.colorTex
}

// SetupBuffers makes sure the offscreen buffer exists with the given
// size, recreating it if the size changed. The buffer is single
// sampled: it is resampled when drawn to the surfaces anyway.
func (c *Compositor) SetupBuffers(width, height int) error {
	if c.Active() && width == c.width && height == c.height {
		return nil
	}
	c.CleanupBuffers()
	if width <= 0 || height <= 0 {
		return fmt.Errorf("compositor: invalid offscreen size %dx%d", width, height)
	}
	f := c.c
	c.frameBuffer = f.CreateFramebuffer()
	c.colorTex = f.CreateTexture()
	c.depthBuffer = f.CreateRenderbuffer()
	c.width, c.height = width, height

	f.BindTexture(gl.TEXTURE_2D, c.colorTex)
	f.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	f.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	f.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	f.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	f.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, width, height, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	f.BindTexture(gl.TEXTURE_2D, gl.Texture{})

	currentRB := gl.Renderbuffer(gl.GetBinding(f, gl.RENDERBUFFER_BINDING))
	f.BindRenderbuffer(gl.RENDERBUFFER, c.depthBuffer)
	f.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH_COMPONENT16, width, height)
	f.BindRenderbuffer(gl.RENDERBUFFER, currentRB)

	currentFBO := gl.Framebuffer(gl.GetBinding(f, gl.FRAMEBUFFER_BINDING))
	f.BindFramebuffer(gl.FRAMEBUFFER, c.frameBuffer)
	f.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, c.colorTex, 0)
	f.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.RENDERBUFFER, c.depthBuffer)
	st := f.CheckFramebufferStatus(gl.FRAMEBUFFER)
	f.BindFramebuffer(gl.FRAMEBUFFER, currentFBO)
	if st != gl.FRAMEBUFFER_COMPLETE {
		err := fmt.Errorf("compositor: offscreen framebuffer incomplete (%dx%d), status: %#x error: %#x", width, height, st, f.GetError())
		c.CleanupBuffers()
		return err
	}
	return nil
}

// Bind directs rendering to the offscreen buffer.
func (c *Compositor) Bind() error {
	if !c.Active() {
		return errors.New("compositor: no offscreen buffer")
	}
	c.c.BindFramebuffer(gl.FRAMEBUFFER, c.frameBuffer)
	c.c.Viewport(0, 0, c.width, c.height)
	return nil
}

// DrawTextureToScreen draws tex unmodified over the whole default
// framebuffer of the current surface, whose size is viewport. Depth
// testing is off during the draw and restored afterwards.
func (c *Compositor) DrawTextureToScreen(tex gl.Texture, viewport image.Point) error {
	if err := c.setupBlit(); err != nil {
		return err
	}
	f := c.c
	f.BindFramebuffer(gl.FRAMEBUFFER, gl.Framebuffer{})
	f.Viewport(0, 0, viewport.X, viewport.Y)
	depthTest := f.IsEnabled(gl.DEPTH_TEST)
	if depthTest {
		f.Disable(gl.DEPTH_TEST)
	}
	f.UseProgram(c.prog)
	f.ActiveTexture(gl.TEXTURE0)
	f.BindTexture(gl.TEXTURE_2D, tex)
	f.BindBuffer(gl.ARRAY_BUFFER, c.quad)
	f.VertexAttribPointer(0 /* pos */, 2, gl.FLOAT, false, 4*4, 0)
	f.VertexAttribPointer(1 /* uv */, 2, gl.FLOAT, false, 4*4, 4*2)
	f.EnableVertexAttribArray(0)
	f.EnableVertexAttribArray(1)
	f.DrawArrays(gl.TRIANGLE_STRIP, 0, 4)
	f.DisableVertexAttribArray(0)
	f.DisableVertexAttribArray(1)
	f.BindBuffer(gl.ARRAY_BUFFER, gl.Buffer{})
	f.BindTexture(gl.TEXTURE_2D, gl.Texture{})
	f.UseProgram(gl.Program{})
	if depthTest {
		f.Enable(gl.DEPTH_TEST)
	}
	return nil
}

func (c *Compositor) setupBlit() error {
	if c.blitReady {
		return nil
	}
	prog, err := newProgram(c.c, blitVert, blitFrag)
	if err != nil {
		return err
	}
	c.prog = prog
	c.quad = c.c.CreateBuffer()
	c.c.BindBuffer(gl.ARRAY_BUFFER, c.quad)
	c.c.BufferData(gl.ARRAY_BUFFER,
		gl.BytesView([]float32{
			-1, +1, 0, 1,
			+1, +1, 1, 1,
			-1, -1, 0, 0,
			+1, -1, 1, 0,
		}),
		gl.STATIC_DRAW)
	c.c.BindBuffer(gl.ARRAY_BUFFER, gl.Buffer{})
	c.blitReady = true
	return nil
}

func newProgram(f gl.Functions, vert, frag shader.Sources) (gl.Program, error) {
	attr := make([]string, len(vert.Inputs))
	for _, inp := range vert.Inputs {
		attr[inp.Location] = inp.Name
	}
	prog, err := gl.CreateProgram(f, vert.GLSL100ES, frag.GLSL100ES, attr)
	if err != nil {
		return gl.Program{}, fmt.Errorf("compositor: %s: %w", frag.Name, err)
	}
	f.UseProgram(prog)
	for _, tex := range frag.Textures {
		u, err := gl.GetUniformLocation(f, prog, tex.Name)
		if err != nil {
			f.UseProgram(gl.Program{})
			f.DeleteProgram(prog)
			return gl.Program{}, fmt.Errorf("compositor: %s: %w", frag.Name, err)
		}
		f.Uniform1i(u, tex.Binding)
	}
	f.UseProgram(gl.Program{})
	return prog, nil
}

// CleanupBuffers releases the offscreen buffer. The blit program is
// kept for reuse.
func (c *Compositor) CleanupBuffers() {
	if c.frameBuffer.Valid() {
		c.c.DeleteFramebuffer(c.frameBuffer)
	}
	if c.colorTex.Valid() {
		c.c.DeleteTexture(c.colorTex)
	}
	if c.depthBuffer.Valid() {
		c.c.DeleteRenderbuffer(c.depthBuffer)
	}
	c.frameBuffer = gl.Framebuffer{}
	c.colorTex = gl.Texture{}
	c.depthBuffer = gl.Renderbuffer{}
	c.width, c.height = 0, 0
}

// Release frees every GL object of the compositor.
func (c *Compositor) Release() {
	c.CleanupBuffers()
	if c.blitReady {
		c.c.DeleteBuffer(c.quad)
		c.c.DeleteProgram(c.prog)
		c.quad = gl.Buffer{}
		c.prog = gl.Program{}
		c.blitReady = false
	}
}

// SPDX-License-Identifier: Unlicense OR MIT

package headless

import (
	"errors"
	"image/color"
	"testing"

	"golang.org/x/image/colornames"

	"celestia.space/render/internal/egl"
	"celestia.space/render/internal/gl"
)

const (
	testVert = `#version 100
attribute vec2 pos;
attribute vec2 uv;
varying vec2 vUV;
void main() {
    gl_Position = vec4(pos, 0, 1);
    vUV = uv;
}
`
	testFrag = `#version 100
precision mediump float;
uniform sampler2D tex;
varying vec2 vUV;
void main() {
    gl_FragColor = texture2D(tex, vUV);
}
`
)

type fixture struct {
	p    *Platform
	d    egl.Display
	f    gl.Functions
	ctx  egl.EGLContext
	win  *Window
	surf egl.EGLSurface
}

func newFixture(t *testing.T, opts Options, w, h int) *fixture {
	t.Helper()
	p := New(opts)
	d := p.Display()
	if _, _, err := d.Initialize(); err != nil {
		t.Fatal(err)
	}
	cfg, err := d.ChooseConfig([]egl.EGLint{egl.RED_SIZE, 8, egl.NONE})
	if err != nil || cfg == egl.NoConfig {
		t.Fatalf("ChooseConfig: %v %v", cfg, err)
	}
	ctx, err := d.CreateContext(cfg, []egl.EGLint{egl.CONTEXT_CLIENT_VERSION, 3, egl.NONE})
	if err != nil {
		t.Fatal(err)
	}
	win := NewWindow(w, h)
	surf, err := d.CreateWindowSurface(cfg, win, windowFormatRGBA8888)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.MakeCurrent(surf, ctx); err != nil {
		t.Fatal(err)
	}
	return &fixture{p: p, d: d, f: p.Functions(), ctx: ctx, win: win, surf: surf}
}

func TestClearAndSwap(t *testing.T) {
	fx := newFixture(t, Options{}, 4, 3)
	if img := fx.win.Screenshot(); img != nil {
		t.Fatal("screenshot before the first swap")
	}
	fx.f.ClearColor(1, 0, 0, 1)
	fx.f.Clear(gl.COLOR_BUFFER_BIT)
	if err := fx.d.SwapBuffers(fx.surf); err != nil {
		t.Fatal(err)
	}
	img := fx.win.Screenshot()
	if img == nil {
		t.Fatal("no frame presented")
	}
	if got, want := img.Rect.Size(), fx.win.Size(); got != want {
		t.Errorf("frame size %v, want %v", got, want)
	}
	if got := img.RGBAAt(3, 2); got != (color.RGBA{R: 0xff, A: 0xff}) {
		t.Errorf("pixel %v, want opaque red", got)
	}
	if n := fx.win.Presents(); n != 1 {
		t.Errorf("%d presents, want 1", n)
	}
	if fx.win.Format() != windowFormatRGBA8888 {
		t.Errorf("window format %d was not applied", fx.win.Format())
	}
}

func TestTexturedQuad(t *testing.T) {
	fx := newFixture(t, Options{}, 4, 4)
	f := fx.f
	prog, err := gl.CreateProgram(f, testVert, testFrag, []string{"pos", "uv"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := gl.GetUniformLocation(f, prog, "tex"); err != nil {
		t.Fatal(err)
	}
	if _, err := gl.GetUniformLocation(f, prog, "missing"); err == nil {
		t.Error("found a uniform that isn't declared")
	}
	// A 1x2 texture: bottom row blue, top row red.
	tex := f.CreateTexture()
	f.BindTexture(gl.TEXTURE_2D, tex)
	f.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	f.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, 1, 2, gl.RGBA, gl.UNSIGNED_BYTE, []byte{
		0, 0, 0xff, 0xff,
		0xff, 0, 0, 0xff,
	})
	buf := f.CreateBuffer()
	f.BindBuffer(gl.ARRAY_BUFFER, buf)
	f.BufferData(gl.ARRAY_BUFFER, gl.BytesView([]float32{-1, 1, 0, 1, 1, 1, 1, 1, -1, -1, 0, 0, 1, -1, 1, 0}), gl.STATIC_DRAW)
	f.VertexAttribPointer(0, 2, gl.FLOAT, false, 16, 0)
	f.VertexAttribPointer(1, 2, gl.FLOAT, false, 16, 8)
	f.EnableVertexAttribArray(0)
	f.EnableVertexAttribArray(1)
	f.UseProgram(prog)
	f.Viewport(0, 0, 4, 4)
	f.DrawArrays(gl.TRIANGLE_STRIP, 0, 4)
	if e := f.GetError(); e != gl.NO_ERROR {
		t.Fatalf("GL error %#x", e)
	}
	pix := make([]byte, 4*4*4)
	f.ReadPixels(0, 0, 4, 4, gl.RGBA, gl.UNSIGNED_BYTE, pix)
	if got := (color.RGBA{pix[0], pix[1], pix[2], pix[3]}); got != (color.RGBA{B: 0xff, A: 0xff}) {
		t.Errorf("bottom left %v, want blue", got)
	}
	if err := fx.d.SwapBuffers(fx.surf); err != nil {
		t.Fatal(err)
	}
	img := fx.win.Screenshot()
	if got := img.RGBAAt(0, 0); got != (color.RGBA{R: 0xff, A: 0xff}) {
		t.Errorf("top left %v, want red", got)
	}
	if got := img.RGBAAt(3, 3); got != (color.RGBA{B: 0xff, A: 0xff}) {
		t.Errorf("bottom right %v, want blue", got)
	}
	if s := fx.p.Stats(); s.Draws != 1 || s.DepthTestedDraws != 0 {
		t.Errorf("stats %+v, want one draw without depth test", s)
	}
}

func TestStrayCalls(t *testing.T) {
	fx := newFixture(t, Options{}, 2, 2)
	if err := fx.d.MakeCurrent(egl.NoSurface, egl.NoContext); err != nil {
		t.Fatal(err)
	}
	if tex := fx.f.CreateTexture(); tex.Valid() {
		t.Error("texture created without a current context")
	}
	fx.f.Clear(gl.COLOR_BUFFER_BIT)
	if s := fx.p.Stats(); s.StrayCalls != 2 || s.Current {
		t.Errorf("stats %+v, want 2 stray calls and no current context", s)
	}
}

func TestSurfaceless(t *testing.T) {
	for _, ext := range []bool{false, true} {
		fx := newFixture(t, Options{Surfaceless: ext}, 2, 2)
		err := fx.d.MakeCurrent(egl.NoSurface, fx.ctx)
		if got := err == nil; got != ext {
			t.Errorf("surfaceless %v: MakeCurrent error %v", ext, err)
		}
	}
}

func TestMultisampleConfig(t *testing.T) {
	attribs := []egl.EGLint{egl.SAMPLES, 4, egl.SAMPLE_BUFFERS, 1, egl.NONE}
	tests := []struct {
		opts   Options
		faults Faults
		want   egl.EGLConfig
		err    bool
	}{
		{opts: Options{Samples: 4}, want: configMultisample},
		{opts: Options{}, want: egl.NoConfig},
		{opts: Options{Samples: 4}, faults: Faults{Multisample: true}, want: egl.NoConfig, err: true},
	}
	for _, test := range tests {
		p := New(test.opts)
		p.SetFaults(test.faults)
		d := p.Display()
		d.Initialize()
		cfg, err := d.ChooseConfig(attribs)
		if cfg != test.want || (err != nil) != test.err {
			t.Errorf("%+v %+v: got %v, %v", test.opts, test.faults, cfg, err)
		}
		if cfg != egl.NoConfig {
			if n, _ := d.ConfigAttrib(cfg, egl.SAMPLES); int(n) != test.opts.Samples {
				t.Errorf("%d samples, want %d", n, test.opts.Samples)
			}
		}
	}
}

func TestReleaseWhileBound(t *testing.T) {
	fx := newFixture(t, Options{}, 2, 2)
	fx.win.Release()
	if s := fx.p.Stats(); s.UseAfterRelease != 1 {
		t.Errorf("%d uses after release, want 1", s.UseAfterRelease)
	}
	other := NewWindow(2, 2)
	if err := fx.d.DestroySurface(fx.surf); err != nil {
		t.Fatal(err)
	}
	other.Release()
	if s := fx.p.Stats(); s.UseAfterRelease != 1 || s.Surfaces != 0 {
		t.Errorf("stats %+v after destroying the surface", s)
	}
}

func TestSwapFault(t *testing.T) {
	fx := newFixture(t, Options{}, 2, 2)
	fx.p.SetFaults(Faults{Swap: true})
	err := fx.d.SwapBuffers(fx.surf)
	var eglErr *Error
	if !errors.As(err, &eglErr) || eglErr.Code != eglBadSurface {
		t.Fatalf("got %v, want EGL_BAD_SURFACE", err)
	}
	if s := fx.p.Stats(); s.FailedSwaps != 1 || s.Swaps != 0 {
		t.Errorf("stats %+v", s)
	}
}

func TestWindowResize(t *testing.T) {
	fx := newFixture(t, Options{}, 2, 2)
	fx.win.Resize(6, 1)
	c := colornames.Teal
	fx.f.ClearColor(float32(c.R)/255, float32(c.G)/255, float32(c.B)/255, 1)
	fx.f.Clear(gl.COLOR_BUFFER_BIT)
	fx.d.SwapBuffers(fx.surf)
	img := fx.win.Screenshot()
	if got := img.Rect.Size(); got.X != 6 || got.Y != 1 {
		t.Fatalf("frame size %v, want 6x1", got)
	}
	if got := img.RGBAAt(5, 0); got != c {
		t.Errorf("pixel %v, want %v", got, c)
	}
}

func TestTeardownAccounting(t *testing.T) {
	fx := newFixture(t, Options{}, 2, 2)
	fx.f.CreateTexture()
	fx.d.MakeCurrent(egl.NoSurface, egl.NoContext)
	fx.d.DestroySurface(fx.surf)
	fx.d.DestroyContext(fx.ctx)
	fx.d.Terminate()
	s := fx.p.Stats()
	if s.LiveObjects() != 0 {
		t.Errorf("%d live objects after terminate", s.LiveObjects())
	}
	if s.Leaked != 1 {
		t.Errorf("%d leaked objects, want 1", s.Leaked)
	}
}

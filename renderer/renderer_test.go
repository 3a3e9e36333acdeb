// SPDX-License-Identifier: Unlicense OR MIT

package renderer

import (
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/draw"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/image/colornames"

	"celestia.space/render/headless"
	"celestia.space/render/internal/gl"
)

// testEngine fills the bound framebuffer with a solid color.
type testEngine struct {
	f gl.Functions

	mu      sync.Mutex
	col     color.RGBA
	ticks   int
	draws   int
	resizes []image.Point
}

func newEngine(p *headless.Platform, col color.RGBA) *testEngine {
	return &testEngine{f: p.Functions(), col: col}
}

func (e *testEngine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ticks++
}

func (e *testEngine) Draw() {
	e.mu.Lock()
	c := e.col
	e.draws++
	e.mu.Unlock()
	e.f.ClearColor(float32(c.R)/255, float32(c.G)/255, float32(c.B)/255, float32(c.A)/255)
	e.f.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

func (e *testEngine) Resize(width, height int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resizes = append(e.resizes, image.Pt(width, height))
}

func (e *testEngine) Ticks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ticks
}

func (e *testEngine) Resizes() []image.Point {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.resizes)
}

func newPlatform(opts headless.Options) *headless.Platform {
	if opts.RefreshPeriod == 0 {
		opts.RefreshPeriod = time.Millisecond
	}
	return headless.New(opts)
}

func newRenderer(t *testing.T, p *headless.Platform, opts Options) *Renderer {
	t.Helper()
	opts.Driver = p
	r, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(r.Close)
	return r
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func solid(size image.Point, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rectangle{Max: size})
	draw.Draw(img, img.Rect, image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func checksum(img *image.RGBA) uint32 {
	return crc32.ChecksumIEEE(img.Pix)
}

func TestSingleSurface(t *testing.T) {
	p := newPlatform(headless.Options{})
	r := newRenderer(t, p, Options{})
	e := newEngine(p, colornames.Cornflowerblue)
	w := headless.NewWindow(8, 6)
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	r.SetSize(Primary, 8, 6)
	r.SetSurface(Primary, w)
	r.SetEngine(e)
	waitFor(t, "two presented frames", func() bool { return w.Presents() >= 2 })
	if got, want := checksum(w.Screenshot()), checksum(solid(image.Pt(8, 6), colornames.Cornflowerblue)); got != want {
		t.Errorf("frame checksum %#x, want %#x", got, want)
	}
	if got := e.Resizes(); len(got) != 1 || got[0] != image.Pt(8, 6) {
		t.Errorf("resizes %v, want [(8,6)]", got)
	}
	if s := p.Stats(); s.FramebuffersCreated != 0 || s.StrayCalls != 0 {
		t.Errorf("stats %+v, want no offscreen buffer and no stray calls", s)
	}
}

func TestDualSurfaceMirrors(t *testing.T) {
	p := newPlatform(headless.Options{})
	r := newRenderer(t, p, Options{})
	col := colornames.Orange
	e := newEngine(p, col)
	primary := headless.NewWindow(800, 600)
	pres := headless.NewWindow(1920, 1080)
	r.SetSize(Primary, 800, 600)
	r.SetSize(Presentation, 1920, 1080)
	r.SetSurface(Primary, primary)
	r.SetSurface(Presentation, pres)
	r.SetEngine(e)
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "mirrored frames", func() bool {
		return primary.Presents() >= 2 && pres.Presents() >= 2
	})
	r.Stop()
	if got := e.Resizes(); len(got) != 1 || got[0] != image.Pt(1920, 1080) {
		t.Errorf("engine rendered at %v, want the presentation size only", got)
	}
	for _, w := range []*headless.Window{primary, pres} {
		img := w.Screenshot()
		if got, want := img.Rect.Size(), w.Size(); got != want {
			t.Errorf("frame size %v, want %v", got, want)
		}
		if got, want := checksum(img), checksum(solid(w.Size(), col)); got != want {
			t.Errorf("%v window: checksum %#x, want %#x", w.Size(), got, want)
		}
	}
	s := p.Stats()
	if s.FramebuffersCreated != 1 {
		t.Errorf("%d offscreen buffers created, want 1", s.FramebuffersCreated)
	}
	if s.DepthTestedDraws != 0 {
		t.Errorf("%d blits with depth testing", s.DepthTestedDraws)
	}
}

func TestDualExitCleansUpOnce(t *testing.T) {
	p := newPlatform(headless.Options{})
	r := newRenderer(t, p, Options{})
	e := newEngine(p, colornames.Green)
	primary := headless.NewWindow(16, 8)
	pres := headless.NewWindow(32, 16)
	r.SetSize(Primary, 16, 8)
	r.SetSize(Presentation, 32, 16)
	r.SetSurface(Primary, primary)
	r.SetSurface(Presentation, pres)
	r.SetEngine(e)
	r.Start()
	waitFor(t, "dual frames", func() bool { return pres.Presents() >= 2 })

	r.SetSurface(Presentation, nil)
	waitFor(t, "presentation window release", pres.Released)
	n := primary.Presents()
	waitFor(t, "single surface frames", func() bool { return primary.Presents() >= n+3 })
	s := p.Stats()
	if s.FramebuffersCreated != 1 || s.FramebuffersDeleted != 1 || s.Framebuffers != 0 {
		t.Errorf("stats %+v, want the offscreen buffer created and deleted once", s)
	}
	if s.UseAfterRelease != 0 {
		t.Error("window released before its surface was destroyed")
	}
	if got := e.Resizes(); got[len(got)-1] != image.Pt(16, 8) {
		t.Errorf("resizes %v, want the primary size last", got)
	}
	if got, want := checksum(primary.Screenshot()), checksum(solid(image.Pt(16, 8), colornames.Green)); got != want {
		t.Errorf("primary checksum %#x, want %#x", got, want)
	}
}

func TestPauseResume(t *testing.T) {
	p := newPlatform(headless.Options{})
	r := newRenderer(t, p, Options{})
	e := newEngine(p, colornames.Red)
	w := headless.NewWindow(4, 4)
	r.Start()
	r.SetSize(Primary, 4, 4)
	r.SetSurface(Primary, w)
	r.SetEngine(e)
	waitFor(t, "frames", func() bool { return w.Presents() >= 2 })

	r.Pause()
	waitFor(t, "pause", func() bool { return r.State() == Paused })
	before := p.Stats()
	ticks, presents := e.Ticks(), w.Presents()
	time.Sleep(50 * time.Millisecond)
	if e.Ticks() != ticks || w.Presents() != presents {
		t.Fatalf("rendered while paused: %d ticks, %d presents", e.Ticks()-ticks, w.Presents()-presents)
	}
	r.Resume()
	waitFor(t, "frames after resume", func() bool { return w.Presents() >= presents+2 })
	after := p.Stats()
	if after.SurfacesCreated != before.SurfacesCreated || after.ContextsCreated != before.ContextsCreated {
		t.Errorf("pause recreated resources: before %+v, after %+v", before, after)
	}
	if r.State() != Running {
		t.Errorf("state %v after resume", r.State())
	}
}

func TestStopReleasesEverything(t *testing.T) {
	p := newPlatform(headless.Options{Surfaceless: true})
	var attached, detached atomic.Int32
	r := newRenderer(t, p, Options{
		Callbacks: Callbacks{
			AttachThread: func() error { attached.Add(1); return nil },
			DetachThread: func() { detached.Add(1) },
		},
	})
	e := newEngine(p, colornames.Blue)
	primary, pres := headless.NewWindow(8, 8), headless.NewWindow(12, 6)
	r.SetSize(Primary, 8, 8)
	r.SetSize(Presentation, 12, 6)
	r.SetSurface(Primary, primary)
	r.SetSurface(Presentation, pres)
	r.SetEngine(e)
	r.Start()
	waitFor(t, "dual frames", func() bool { return pres.Presents() >= 2 })
	r.Pause()
	waitFor(t, "pause", func() bool { return r.State() == Paused })

	r.Stop()
	if st := r.State(); st != Terminated {
		t.Fatalf("state %v after Stop", st)
	}
	s := p.Stats()
	if s.LiveObjects() != 0 || s.Leaked != 0 || s.Current {
		t.Errorf("stats %+v after Stop, want no live or leaked objects", s)
	}
	if s.UseAfterRelease != 0 || s.StrayCalls != 0 {
		t.Errorf("stats %+v, want no misuse", s)
	}
	for _, w := range []*headless.Window{primary, pres} {
		if n := w.Releases(); n != 1 {
			t.Errorf("window released %d times, want 1", n)
		}
	}
	if attached.Load() != 1 || detached.Load() != 1 {
		t.Errorf("attached %d, detached %d times", attached.Load(), detached.Load())
	}
	// Stop and Close are idempotent.
	r.Stop()
	r.Close()
	if n := primary.Releases(); n != 1 {
		t.Errorf("window released %d times after Close", n)
	}
}

func TestSurfaceCoalescing(t *testing.T) {
	p := newPlatform(headless.Options{})
	r := newRenderer(t, p, Options{})
	e := newEngine(p, colornames.White)
	first, second := headless.NewWindow(2, 2), headless.NewWindow(4, 4)
	r.SetSurface(Primary, first)
	r.SetSize(Primary, 2, 2)
	r.SetSurface(Primary, second)
	r.SetSize(Primary, 4, 4)
	r.SetEngine(e)
	r.Start()
	waitFor(t, "frames", func() bool { return second.Presents() >= 1 })
	if n := p.Stats().SurfacesCreated; n != 1 {
		t.Errorf("%d surfaces created, want only the latest", n)
	}
	if first.Presents() != 0 || first.Releases() != 1 {
		t.Errorf("replaced window: %d presents, %d releases", first.Presents(), first.Releases())
	}
	if got := e.Resizes(); len(got) != 1 || got[0] != image.Pt(4, 4) {
		t.Errorf("resizes %v, want [(4,4)]", got)
	}
}

func TestRebindSameWindow(t *testing.T) {
	p := newPlatform(headless.Options{})
	r := newRenderer(t, p, Options{})
	w := headless.NewWindow(4, 4)
	r.SetSize(Primary, 4, 4)
	r.SetSurface(Primary, w)
	r.SetEngine(newEngine(p, colornames.Gold))
	r.Start()
	waitFor(t, "frames", func() bool { return w.Presents() >= 1 })
	r.SetSurface(Primary, w)
	n := w.Presents()
	waitFor(t, "frames after rebinding", func() bool { return w.Presents() > n+1 })
	if w.Released() {
		t.Fatal("rebound window released while bound")
	}
	r.Stop()
	if n := w.Releases(); n != 1 {
		t.Errorf("window released %d times, want 1", n)
	}
	if s := p.Stats(); s.UseAfterRelease != 0 || s.Surfaces != 0 {
		t.Errorf("stats %+v, want no use after release and no live surface", s)
	}
}

func TestResizeIsCoalesced(t *testing.T) {
	p := newPlatform(headless.Options{})
	r := newRenderer(t, p, Options{})
	e := newEngine(p, colornames.Black)
	w := headless.NewWindow(10, 10)
	r.SetSize(Primary, 10, 10)
	r.SetSurface(Primary, w)
	r.SetEngine(e)
	r.Start()
	waitFor(t, "frames", func() bool { return w.Presents() >= 5 })
	r.SetSize(Primary, 10, 10)
	n := w.Presents()
	waitFor(t, "frames", func() bool { return w.Presents() >= n+3 })
	if got := e.Resizes(); len(got) != 1 {
		t.Fatalf("resizes %v, want a single notification", got)
	}
	r.SetSize(Primary, 20, 5)
	waitFor(t, "resize", func() bool { return len(e.Resizes()) == 2 })
	if got := e.Resizes()[1]; got != image.Pt(20, 5) {
		t.Errorf("resized to %v, want (20,5)", got)
	}
}

func TestFrameRateOption(t *testing.T) {
	refresh := 11 * time.Millisecond
	p := newPlatform(headless.Options{RefreshPeriod: refresh})
	r := newRenderer(t, p, Options{FrameRate: FrameRate30})
	if got := p.SwapInterval(); got != 33333333*time.Nanosecond {
		t.Errorf("initial interval %v, want 33.333333ms", got)
	}
	tests := []struct {
		rate FrameRate
		want time.Duration
	}{
		{FrameRate20, 50000000 * time.Nanosecond},
		{FrameRate60, 16666667 * time.Nanosecond},
		{FrameRateMax, refresh},
		{FrameRate(42), refresh},
	}
	for _, test := range tests {
		r.SetFrameRateOption(test.rate)
		if got := p.SwapInterval(); got != test.want {
			t.Errorf("%v: swap interval %v, want %v", test.rate, got, test.want)
		}
		if r.FrameRate() != test.rate {
			t.Errorf("frame rate %v, want %v", r.FrameRate(), test.rate)
		}
	}
}

func TestEngineStartRejected(t *testing.T) {
	p := newPlatform(headless.Options{Samples: 4})
	var calls atomic.Int32
	var samples atomic.Int32
	r := newRenderer(t, p, Options{
		Multisample: true,
		Callbacks: Callbacks{
			EngineStarted: func(n int) bool {
				calls.Add(1)
				samples.Store(int32(n))
				return false
			},
		},
	})
	e := newEngine(p, colornames.Red)
	w := headless.NewWindow(4, 4)
	r.SetSurface(Primary, w)
	r.SetEngine(e)
	r.Start()
	waitFor(t, "termination", func() bool { return r.State() == Terminated })
	if calls.Load() != 1 || samples.Load() != 4 {
		t.Errorf("EngineStarted called %d times with %d samples", calls.Load(), samples.Load())
	}
	if e.Ticks() != 0 || w.Presents() != 0 {
		t.Error("rendered after the engine start was rejected")
	}
	if n := p.Stats().LiveObjects(); n != 0 || !w.Released() {
		t.Errorf("%d live objects, window released: %v", n, w.Released())
	}
}

func TestEngineStartedOnce(t *testing.T) {
	p := newPlatform(headless.Options{})
	var calls atomic.Int32
	r := newRenderer(t, p, Options{
		Callbacks: Callbacks{
			EngineStarted: func(int) bool { calls.Add(1); return true },
		},
	})
	r.Start()
	r.SetEngine(newEngine(p, colornames.Red))
	for i := 0; i < 3; i++ {
		w := headless.NewWindow(4, 4)
		r.SetSize(Primary, 4, 4)
		r.SetSurface(Primary, w)
		waitFor(t, "frame", func() bool { return w.Presents() >= 1 })
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("EngineStarted called %d times", n)
	}
}

func TestInitializationRetry(t *testing.T) {
	p := newPlatform(headless.Options{})
	p.SetFaults(headless.Faults{CreateContext: true})
	r := newRenderer(t, p, Options{})
	w := headless.NewWindow(4, 4)
	r.SetSize(Primary, 4, 4)
	r.SetEngine(newEngine(p, colornames.Red))
	r.Start()
	r.SetSurface(Primary, w)
	time.Sleep(20 * time.Millisecond)
	if w.Presents() != 0 || r.State() != Running {
		t.Fatalf("state %v, %d presents with a failing context", r.State(), w.Presents())
	}
	p.SetFaults(headless.Faults{})
	r.SetSurface(Primary, w)
	waitFor(t, "frames after recovery", func() bool { return w.Presents() >= 1 })
}

func TestSwapFailureIsNotFatal(t *testing.T) {
	p := newPlatform(headless.Options{})
	p.SetFaults(headless.Faults{Swap: true})
	r := newRenderer(t, p, Options{})
	e := newEngine(p, colornames.Red)
	w := headless.NewWindow(4, 4)
	r.SetSize(Primary, 4, 4)
	r.SetSurface(Primary, w)
	r.SetEngine(e)
	r.Start()
	waitFor(t, "failed swaps", func() bool { return p.Stats().FailedSwaps >= 3 })
	if e.Ticks() < 3 {
		t.Errorf("%d ticks, want the loop to keep running", e.Ticks())
	}
	p.SetFaults(headless.Faults{})
	waitFor(t, "frames", func() bool { return w.Presents() >= 1 })
}

func TestTasks(t *testing.T) {
	p := newPlatform(headless.Options{})
	r := newRenderer(t, p, Options{})
	w := headless.NewWindow(4, 4)
	r.SetSurface(Primary, w)
	r.Start()
	var mu sync.Mutex
	var order []int
	var currentErr error
	for i := 1; i <= 3; i++ {
		i := i
		r.EnqueueTask(func() {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, i)
		})
	}
	done := make(chan struct{})
	r.EnqueueTask(func() {
		currentErr = r.MakeContextCurrent()
		close(done)
	})
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("tasks didn't run")
	}
	mu.Lock()
	defer mu.Unlock()
	if !slices.Equal(order, []int{1, 2, 3}) {
		t.Errorf("tasks ran in order %v", order)
	}
	if currentErr != nil {
		t.Errorf("MakeContextCurrent: %v", currentErr)
	}
}

func TestTasksWaitForEngineStart(t *testing.T) {
	p := newPlatform(headless.Options{})
	var started atomic.Bool
	r := newRenderer(t, p, Options{
		Callbacks: Callbacks{
			EngineStarted: func(int) bool { started.Store(true); return true },
		},
	})
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	var ran, startedFirst atomic.Bool
	var glErr atomic.Uint32
	done := make(chan struct{})
	r.EnqueueTask(func() {
		startedFirst.Store(started.Load())
		glErr.Store(uint32(p.Functions().GetError()))
		ran.Store(true)
		close(done)
	})
	time.Sleep(50 * time.Millisecond)
	if ran.Load() {
		t.Fatal("task ran without a surface")
	}
	r.SetSize(Primary, 4, 4)
	r.SetSurface(Primary, headless.NewWindow(4, 4))
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("task didn't run after the engine started")
	}
	if !startedFirst.Load() {
		t.Error("task ran before EngineStarted")
	}
	if e := gl.Enum(glErr.Load()); e != gl.NO_ERROR {
		t.Errorf("GL error %#x in task", e)
	}
	if n := p.Stats().StrayCalls; n != 0 {
		t.Errorf("%d GL calls without a current context", n)
	}
}

func TestFlushTasksCallback(t *testing.T) {
	p := newPlatform(headless.Options{})
	var calls atomic.Int32
	var r *Renderer
	r = newRenderer(t, p, Options{
		Callbacks: Callbacks{
			FlushTasks: func() {
				calls.Add(1)
				r.SetHasPendingTasks(false)
			},
		},
	})
	r.SetSurface(Primary, headless.NewWindow(4, 4))
	r.Start()
	r.SetHasPendingTasks(true)
	waitFor(t, "flush", func() bool { return calls.Load() == 1 })
	time.Sleep(20 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("flushed %d times for one request", n)
	}
}

func TestStartTwice(t *testing.T) {
	p := newPlatform(headless.Options{})
	r := newRenderer(t, p, Options{})
	if st := r.State(); st != Idle {
		t.Errorf("state %v before Start", st)
	}
	if !r.StartConditionally() {
		t.Error("StartConditionally didn't start")
	}
	if err := r.Start(); !errors.Is(err, ErrStarted) {
		t.Errorf("second Start: %v", err)
	}
	if r.StartConditionally() {
		t.Error("StartConditionally started twice")
	}
	r.Stop()
	if err := r.Start(); !errors.Is(err, ErrStarted) {
		t.Errorf("Start after Stop: %v", err)
	}
}

func TestCloseWithoutStart(t *testing.T) {
	p := newPlatform(headless.Options{})
	r := newRenderer(t, p, Options{})
	w := headless.NewWindow(4, 4)
	r.SetSurface(Primary, w)
	r.Close()
	if !w.Released() {
		t.Error("Close didn't release the window")
	}
	if n := p.Stats().ContextsCreated; n != 0 {
		t.Errorf("%d contexts created without a render thread", n)
	}
}

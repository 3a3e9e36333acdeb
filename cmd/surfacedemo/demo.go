// SPDX-License-Identifier: Unlicense OR MIT

package main

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"golang.org/x/image/colornames"

	"celestia.space/render/headless"
	"celestia.space/render/internal/gl"
	"celestia.space/render/internal/pacing"
	"celestia.space/render/renderer"
)

type demo struct {
	cfg      config
	platform *headless.Platform
	r        *renderer.Renderer
	engine   *cycler

	primary, presentation *headless.Window
}

func newDemo(cfg config) (*demo, error) {
	p := headless.New(headless.Options{Samples: cfg.Samples, Surfaceless: true})
	r, err := renderer.New(renderer.Options{
		Driver:      p,
		Multisample: cfg.Multisample,
		FrameRate:   cfg.FrameRate,
		Callbacks: renderer.Callbacks{
			EngineStarted: func(samples int) bool {
				slog.Info("engine started", "samples", samples)
				return true
			},
		},
	})
	if err != nil {
		return nil, err
	}
	return &demo{
		cfg:          cfg,
		platform:     p,
		r:            r,
		engine:       &cycler{f: p.Functions()},
		primary:      headless.NewWindow(cfg.Primary[0], cfg.Primary[1]),
		presentation: headless.NewWindow(cfg.Presentation[0], cfg.Presentation[1]),
	}, nil
}

func (d *demo) close() {
	d.r.Close()
}

// reload applies a changed frame rate from the config file.
func (d *demo) reload(v *viper.Viper, e fsnotify.Event) {
	fr, err := pacing.ParseFrameRate(v.GetString("frame_rate"))
	if err != nil {
		slog.Warn("config reload ignored", "file", e.Name, "err", err)
		return
	}
	if fr != d.r.FrameRate() {
		slog.Info("frame rate changed", "rate", fr)
		d.r.SetFrameRateOption(fr)
	}
}

func (d *demo) run(ctx context.Context) error {
	r := d.r
	if err := r.Start(); err != nil {
		return err
	}
	r.SetEngine(d.engine)
	steps := []struct {
		name string
		do   func()
		win  *headless.Window
	}{
		{"attach primary", func() {
			r.SetSize(renderer.Primary, d.cfg.Primary[0], d.cfg.Primary[1])
			r.SetSurface(renderer.Primary, d.primary)
		}, d.primary},
		{"mirror to presentation", func() {
			r.SetSize(renderer.Presentation, d.cfg.Presentation[0], d.cfg.Presentation[1])
			r.SetSurface(renderer.Presentation, d.presentation)
		}, d.presentation},
		{"resize presentation", func() {
			w, h := d.cfg.Presentation[1], d.cfg.Presentation[0]
			d.presentation.Resize(w, h)
			r.SetSize(renderer.Presentation, w, h)
		}, d.presentation},
		{"pause and resume", func() {
			r.Pause()
			time.Sleep(50 * time.Millisecond)
			r.Resume()
		}, d.presentation},
		{"snapshot", func() {
			r.EnqueueTask(func() {
				if err := r.MakeContextCurrent(); err != nil {
					slog.Error("make current failed", "err", err)
				}
			})
		}, d.presentation},
	}
	for _, s := range steps {
		slog.Info("step", "name", s.name)
		s.do()
		if err := d.waitFrames(ctx, s.win, d.cfg.Frames); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	if err := d.writeSnapshots(); err != nil {
		return err
	}
	slog.Info("step", "name", "detach presentation")
	r.SetSurface(renderer.Presentation, nil)
	if err := d.waitFrames(ctx, d.primary, d.cfg.Frames); err != nil {
		return err
	}
	r.Stop()
	s := d.platform.Stats()
	slog.Info("stopped", "frames", d.engine.frames(), "swaps", s.Swaps, "live objects", s.LiveObjects(), "leaked", s.Leaked)
	if s.LiveObjects() != 0 || s.Leaked != 0 {
		return fmt.Errorf("%d graphics objects left after stop, %d leaked", s.LiveObjects(), s.Leaked)
	}
	return nil
}

func (d *demo) waitFrames(ctx context.Context, w *headless.Window, n int) error {
	target := w.Presents() + n
	t := time.NewTicker(time.Millisecond)
	defer t.Stop()
	for w.Presents() < target {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}

func (d *demo) writeSnapshots() error {
	if err := os.MkdirAll(d.cfg.Out, 0o755); err != nil {
		return err
	}
	for name, w := range map[string]*headless.Window{
		"primary.png":      d.primary,
		"presentation.png": d.presentation,
	} {
		img := w.Screenshot()
		if img == nil {
			return fmt.Errorf("%s: nothing presented", name)
		}
		if err := writePNG(filepath.Join(d.cfg.Out, name), img); err != nil {
			return err
		}
	}
	return nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

var palette = []color.RGBA{
	colornames.Midnightblue,
	colornames.Steelblue,
	colornames.Goldenrod,
	colornames.Firebrick,
}

// cycler is an engine that clears each frame to the next color of
// the palette.
type cycler struct {
	f gl.Functions

	mu    sync.Mutex
	ticks int
	size  image.Point
}

func (c *cycler) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks++
}

func (c *cycler) Draw() {
	c.mu.Lock()
	col := palette[(c.ticks/10)%len(palette)]
	c.mu.Unlock()
	c.f.ClearColor(float32(col.R)/255, float32(col.G)/255, float32(col.B)/255, 1)
	c.f.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

func (c *cycler) Resize(width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.size = image.Pt(width, height)
	slog.Debug("engine resized", "width", width, "height", height)
}

func (c *cycler) frames() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

// SPDX-License-Identifier: Unlicense OR MIT

// Command surfacedemo runs the renderer on the headless platform
// through a scripted sequence of surface changes and writes the frames
// presented to each window as PNG files.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"celestia.space/render/internal/pacing"
	"celestia.space/render/renderer"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "surfacedemo",
		Short: "Drive the renderer through attach, mirror, resize, pause and detach",
		Long: `surfacedemo renders a color cycling engine into in-memory windows.

It attaches a primary window, mirrors it to a presentation window,
resizes, pauses and detaches, then writes the last frame of each window
to the output directory.

Settings come from flags, SURFACEDEMO_* environment variables and an
optional config file. A changed frame_rate in the config file is applied
while the demo runs.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.LogLevel}))
			slog.SetDefault(logger)
			renderer.SetLogger(logger)
			return runDemo(cmd.Context(), v, cfg)
		},
	}
	f := cmd.Flags()
	f.String("config", "", "config file (YAML or TOML)")
	f.String("out", ".", "output directory for the PNG snapshots")
	f.String("frame-rate", "60fps", "frame rate policy: max, 60fps, 30fps or 20fps")
	f.Bool("multisample", true, "prefer a multisampled configuration")
	f.Int("samples", 4, "multisample count offered by the headless display")
	f.String("primary", "360x640", "primary window size")
	f.String("presentation", "1280x720", "presentation window size")
	f.Int("frames", 30, "frames to present in each step of the scenario")
	f.String("log-level", "info", "log level: debug, info, warn or error")
	for _, name := range []string{"config", "out", "frame-rate", "multisample", "samples", "primary", "presentation", "frames", "log-level"} {
		v.BindPFlag(strings.ReplaceAll(name, "-", "_"), f.Lookup(name))
	}
	v.SetEnvPrefix("SURFACEDEMO")
	v.AutomaticEnv()
	return cmd
}

type config struct {
	Out          string
	FrameRate    renderer.FrameRate
	Multisample  bool
	Samples      int
	Primary      [2]int
	Presentation [2]int
	Frames       int
	LogLevel     slog.Level
}

func loadConfig(v *viper.Viper) (config, error) {
	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return config{}, fmt.Errorf("read config: %w", err)
		}
	}
	cfg := config{
		Out:         v.GetString("out"),
		Multisample: v.GetBool("multisample"),
		Samples:     v.GetInt("samples"),
		Frames:      v.GetInt("frames"),
	}
	var err error
	if cfg.FrameRate, err = pacing.ParseFrameRate(v.GetString("frame_rate")); err != nil {
		return config{}, err
	}
	if cfg.Primary, err = parseSize(v.GetString("primary")); err != nil {
		return config{}, err
	}
	if cfg.Presentation, err = parseSize(v.GetString("presentation")); err != nil {
		return config{}, err
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString("log_level"))); err != nil {
		return config{}, fmt.Errorf("log level: %w", err)
	}
	if cfg.Frames <= 0 {
		return config{}, fmt.Errorf("frames must be positive, got %d", cfg.Frames)
	}
	return cfg, nil
}

func parseSize(s string) ([2]int, error) {
	var sz [2]int
	if _, err := fmt.Sscanf(s, "%dx%d", &sz[0], &sz[1]); err != nil || sz[0] <= 0 || sz[1] <= 0 {
		return sz, fmt.Errorf("invalid size %q, want WIDTHxHEIGHT", s)
	}
	return sz, nil
}

func runDemo(ctx context.Context, v *viper.Viper, cfg config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	d, err := newDemo(cfg)
	if err != nil {
		return err
	}
	defer d.close()

	if v.ConfigFileUsed() != "" {
		changes := make(chan fsnotify.Event, 1)
		v.OnConfigChange(func(e fsnotify.Event) {
			select {
			case changes <- e:
			default:
			}
		})
		v.WatchConfig()
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case e := <-changes:
					d.reload(v, e)
				}
			}
		})
	}
	g.Go(func() error {
		defer stop()
		return d.run(ctx)
	})
	return g.Wait()
}

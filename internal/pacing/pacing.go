// SPDX-License-Identifier: Unlicense OR MIT

// Package pacing turns a frame rate policy into swap interval
// requests for the platform's presentation timing service.
package pacing

import (
	"fmt"
	"sync/atomic"
	"time"

	"celestia.space/render/internal/surface"
)

// FrameRate is a frame rate policy. The values match the host
// application's constants.
type FrameRate int32

const (
	// FrameRateMax presents at the display's native refresh rate.
	FrameRateMax FrameRate = iota
	FrameRate60
	FrameRate30
	FrameRate20
)

const (
	Interval60 = 16666667 * time.Nanosecond
	Interval30 = 33333333 * time.Nanosecond
	Interval20 = 50000000 * time.Nanosecond
)

func (r FrameRate) String() string {
	switch r {
	case FrameRateMax:
		return "max"
	case FrameRate60:
		return "60fps"
	case FrameRate30:
		return "30fps"
	case FrameRate20:
		return "20fps"
	default:
		return fmt.Sprintf("FrameRate(%d)", int32(r))
	}
}

// ParseFrameRate parses the String form of a frame rate.
func ParseFrameRate(s string) (FrameRate, error) {
	for r := FrameRateMax; r <= FrameRate20; r++ {
		if r.String() == s {
			return r, nil
		}
	}
	return FrameRateMax, fmt.Errorf("pacing: unknown frame rate %q", s)
}

// SwapInterval returns the interval between presented frames for r.
// FrameRateMax and unknown values map to refresh, the native refresh
// period of the display.
func SwapInterval(r FrameRate, refresh time.Duration) time.Duration {
	switch r {
	case FrameRate60:
		return Interval60
	case FrameRate30:
		return Interval30
	case FrameRate20:
		return Interval20
	default:
		return refresh
	}
}

// Target is a surface that can be presented.
type Target interface {
	SwapBuffers() error
}

// Timing is a presentation timing service.
type Timing interface {
	// SetSwapInterval requests a minimum interval between presented
	// frames. It may be called from any thread.
	SetSwapInterval(d time.Duration)
	// RefreshPeriod returns the display's native refresh period.
	RefreshPeriod() time.Duration
	// SetWindow tells the service which window is presented.
	SetWindow(w surface.Window)
	// Swap presents t, waiting as needed to honor the swap interval.
	Swap(t Target) error
}

// Pacer applies frame rate policies to a Timing service.
type Pacer struct {
	timing Timing
	rate   atomic.Int32
}

func New(t Timing) *Pacer {
	return &Pacer{timing: t}
}

// SetFrameRate requests frame rate r, effective from the next
// presented frame. It doesn't block.
func (p *Pacer) SetFrameRate(r FrameRate) {
	p.rate.Store(int32(r))
	p.timing.SetSwapInterval(SwapInterval(r, p.timing.RefreshPeriod()))
}

func (p *Pacer) FrameRate() FrameRate {
	return FrameRate(p.rate.Load())
}

func (p *Pacer) SetWindow(w surface.Window) {
	p.timing.SetWindow(w)
}

// Swap presents t through the timing service.
func (p *Pacer) Swap(t Target) error {
	return p.timing.Swap(t)
}

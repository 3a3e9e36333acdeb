// SPDX-License-Identifier: Unlicense OR MIT

package pacing

import (
	"sync/atomic"
	"time"

	"celestia.space/render/internal/surface"
)

// DefaultRefreshPeriod is the refresh period assumed when the
// display doesn't report one.
const DefaultRefreshPeriod = Interval60

// Ticker is a Timing service that paces swaps with the system clock,
// for platforms without a presentation timing service. Each target is
// paced on its own so that mirrored surfaces presented in the same
// frame don't wait on each other.
type Ticker struct {
	refresh  time.Duration
	interval atomic.Int64

	// Render thread only.
	last map[Target]time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

var _ Timing = (*Ticker)(nil)

func NewTicker(refresh time.Duration) *Ticker {
	if refresh <= 0 {
		refresh = DefaultRefreshPeriod
	}
	t := &Ticker{
		refresh: refresh,
		last:    make(map[Target]time.Time),
		now:     time.Now,
		sleep:   time.Sleep,
	}
	t.interval.Store(int64(refresh))
	return t
}

func (t *Ticker) SetSwapInterval(d time.Duration) {
	t.interval.Store(int64(d))
}

// SwapInterval returns the requested swap interval.
func (t *Ticker) SwapInterval() time.Duration {
	return time.Duration(t.interval.Load())
}

func (t *Ticker) RefreshPeriod() time.Duration {
	return t.refresh
}

func (t *Ticker) SetWindow(w surface.Window) {}

func (t *Ticker) Swap(target Target) error {
	iv := time.Duration(t.interval.Load())
	if last, ok := t.last[target]; ok && iv > 0 {
		if d := last.Add(iv).Sub(t.now()); d > 0 {
			t.sleep(d)
		}
	}
	err := target.SwapBuffers()
	now := t.now()
	if len(t.last) > 8 {
		// Forget targets that are no longer presented.
		for k, v := range t.last {
			if now.Sub(v) > time.Second {
				delete(t.last, k)
			}
		}
	}
	t.last[target] = now
	return err
}

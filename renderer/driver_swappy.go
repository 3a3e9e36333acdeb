// SPDX-License-Identifier: Unlicense OR MIT

//go:build android && swappy

package renderer

import "celestia.space/render/internal/pacing"

// SwappyDriver is the native driver with frames paced by the Android
// Frame Pacing library. FrameRateMax follows the refresh period
// Swappy measures for the display.
type SwappyDriver struct {
	Driver
	swappy *pacing.Swappy
}

// NewSwappyDriver initializes frame pacing for activity, a jobject
// reference to the Activity. env is the JNIEnv of the calling thread.
func NewSwappyDriver(env, activity uintptr) (*SwappyDriver, error) {
	s, err := pacing.NewSwappy(env, activity)
	if err != nil {
		return nil, err
	}
	return &SwappyDriver{Driver: NewNativeDriver(s), swappy: s}, nil
}

// Destroy shuts down frame pacing. It must be called after every
// renderer using d has stopped.
func (d *SwappyDriver) Destroy() {
	d.swappy.Destroy()
}

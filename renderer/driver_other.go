// SPDX-License-Identifier: Unlicense OR MIT

//go:build !android && !(linux && egl)

package renderer

func nativeDriver() (Driver, error) {
	return nil, ErrNoDriver
}

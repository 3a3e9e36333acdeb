// SPDX-License-Identifier: Unlicense OR MIT

//go:build !linux

package renderer

func threadID() int {
	return 0
}

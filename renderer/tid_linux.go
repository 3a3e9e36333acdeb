// SPDX-License-Identifier: Unlicense OR MIT

package renderer

import "golang.org/x/sys/unix"

func threadID() int {
	return unix.Gettid()
}

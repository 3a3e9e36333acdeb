// SPDX-License-Identifier: Unlicense OR MIT

// Package surface tracks the logical output targets of a renderer:
// the window handle bound to each slot and the size requested for it.
//
// A Registry carries no lock of its own. Its owner guards it with the
// lock shared between the application thread and the render thread.
package surface

import (
	"fmt"
	"image"
)

// Slot identifies a logical output target.
type Slot uint8

const (
	// Primary is the main on-screen target.
	Primary Slot = iota
	// Presentation is the optional mirrored target, such as an
	// external display.
	Presentation

	NumSlots = 2
)

func (s Slot) String() string {
	switch s {
	case Primary:
		return "primary"
	case Presentation:
		return "presentation"
	default:
		return fmt.Sprintf("Slot(%d)", uint8(s))
	}
}

// Window is a native window handle. The window is owned by the UI
// layer; the registry holds a reference until Release is called.
type Window interface {
	// NativeHandle returns the platform handle, an ANativeWindow
	// pointer on Android.
	NativeHandle() uintptr
	// Release drops the reference held on the window.
	Release()
}

type slot struct {
	window Window
	size   image.Point
}

// Registry holds the application-side state of every slot.
type Registry struct {
	slots   [NumSlots]slot
	retired []Window
}

// Snapshot is a copy of the registry state taken under the lock.
type Snapshot struct {
	Windows [NumSlots]Window
	Sizes   [NumSlots]image.Point
}

// Valid reports whether the slot has a window bound.
func (s *Snapshot) Valid(sl Slot) bool {
	return s.Windows[sl] != nil
}

// Set binds w, possibly nil, to the slot. Any previously bound
// window is retired: it stays referenced until the render thread
// has destroyed the surface created for it and calls TakeRetired.
//
// Binding a window transfers one reference to the registry. Binding
// the window already bound to the slot transfers none.
func (r *Registry) Set(s Slot, w Window) {
	old := r.slots[s].window
	r.slots[s].window = w
	if old != nil && old != w {
		r.retired = append(r.retired, old)
	}
}

// SetSize records the requested size of the slot. It doesn't by
// itself schedule any work; the render thread picks up the latest
// size on its next iteration.
func (r *Registry) SetSize(s Slot, width, height int) {
	r.slots[s].size = image.Point{X: width, Y: height}
}

func (r *Registry) Window(s Slot) Window {
	return r.slots[s].window
}

func (r *Registry) Size(s Slot) image.Point {
	return r.slots[s].size
}

// Snapshot copies the bound windows and requested sizes.
func (r *Registry) Snapshot() Snapshot {
	var snap Snapshot
	for i := range r.slots {
		snap.Windows[i] = r.slots[i].window
		snap.Sizes[i] = r.slots[i].size
	}
	return snap
}

// TakeRetired returns and forgets the windows replaced since the
// last call, in the order they were replaced.
func (r *Registry) TakeRetired() []Window {
	ws := r.retired
	r.retired = nil
	return ws
}

// Clear unbinds every slot and returns all windows the registry
// still references, retired ones first.
func (r *Registry) Clear() []Window {
	ws := r.TakeRetired()
	for i := range r.slots {
		if w := r.slots[i].window; w != nil {
			ws = append(ws, w)
		}
		r.slots[i] = slot{}
	}
	return ws
}

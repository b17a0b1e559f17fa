// Package display abstracts the e-paper panel behind a single interface with a
// hardware implementation and a simulated one that writes PNG files.
package display

import (
	"image"
)

// Display is the panel the refresh loop draws on.
type Display interface {
	Name() string
	// Bounds is the landscape frame size the renderer should produce.
	Bounds() image.Rectangle
	// Init prepares the panel for a full update.
	Init() error
	// Clear paints the whole panel white.
	Clear() error
	// Show pushes a full frame to the panel.
	Show(img image.Image) error
	// Sleep puts the panel into deep sleep. It is not woken again.
	Sleep() error
	// OneShot reports whether the display only ever takes a single frame.
	OneShot() bool
}

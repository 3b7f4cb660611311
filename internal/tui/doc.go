// Package tui renders bondkit output in the terminal.
//
// Static output uses lipgloss panels and asciigraph energy plots. The live
// view is a Bubble Tea program that integrates a system step by step and
// draws the molecule on a Braille [Canvas] projected onto the x-y plane.
// [CanvasToSVG] and [SeriesToSVG] write the same drawings as SVG files.
//
// # Key Bindings
//
//	Space - Pause/Resume
//	R     - Reset to the initial state
//	+/-   - More or fewer MD steps per frame
//	Q     - Quit
package tui

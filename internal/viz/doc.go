// Package viz draws tracks, driven paths and controller state in the
// terminal.
//
//   - [Canvas]: braille canvas, 2x4 dots per cell
//   - [Viewport]: world metres to canvas dots
//   - [Live]: bubbletea view of a closed-loop run with the MPC plan overlaid
//
// # Key Bindings
//
//	Space - Pause/Resume
//	F     - Toggle follow camera
//	Q     - Quit
package viz

// Package viz draws charts to image files and live views to the terminal.
//
//   - [Renderer]: the chart interface the analyzer writes through
//   - [PlotRenderer]: PNG (or SVG/PDF by extension) output via gonum/plot
//   - [Camera]: rotation and orthographic projection for 3D trajectories
//   - [Preview]: asciigraph line chart for quick looks in the terminal
//   - [Monitor]: Bubble Tea view of a running pipeline
//   - [Canvas]: Braille-based pixel canvas used by the monitor
//
// # Monitor keys
//
//	Q / Esc / Ctrl+C - stop the run
//	T                - cycle color themes
//	X / Y            - rotate the 3D camera
package viz

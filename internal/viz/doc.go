// Package viz renders simulation output in the terminal.
//
//   - [PositionPlot]: asciigraph line chart of position against time
//   - [RenderHistogram]: lipgloss bar chart of a first-passage histogram
//   - [Progress]: Bubble Tea view that follows an ensemble run
package viz

/*
Package canvas builds sandbox programs for visual artifacts.

Two modes share one drawing surface. The p5 mode exposes a p5-style global
sketch API (createCanvas, background, fill, rect, ellipse, a frame-bounded
setup/draw loop); the raw mode exposes the minimal primitive set (clear,
fill, stroke, rect, circle, line) over the 2D surface. Mode selection honors
an explicit mode field and otherwise falls back to detecting setup/draw
identifiers in the source.

Both modes run inside a standard runtime realm, so console output and errors
travel the same message path as code artifacts, and the hard deadline kill
bounds runaway draw loops. The rendered surface exports as PNG; an export
failure is reported on the Export, never as an execution error.
*/
package canvas

// Package ws streams live sandbox output to clients: realm messages are
// relayed as they arrive, followed by the terminal result and, for canvas
// runs, the rendered frame.
package ws

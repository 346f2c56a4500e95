// Package http exposes the REST surface: artifact parsing, run dispatch,
// instance lifecycle, SQL session operations, and the outbound probe.
package http

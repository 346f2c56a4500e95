// Package runner binds artifact types to their execution engines: code and
// canvas artifacts to sandbox realms, sql artifacts to per-instance
// databases, api artifacts to the host-side prober.
package runner

// Package service routes parsed artifacts to type-specific runners. Each
// runner owns the sessions for its artifact family (sandbox realms, database
// handles, probe client) and reports a uniform result shape.
package service

// Package id provides prefixed identifier generation. Prefixes make IDs
// self-describing in logs: inst_* for artifact instances, run_* for sandbox
// runs, req_* for API requests.
package id

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	InstancePrefix = "inst"
	RunPrefix      = "run"
	RequestPrefix  = "req"
)

// New generates a prefixed identifier.
func New(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString())
}

// NewInstanceID identifies an artifact instance.
func NewInstanceID() string { return New(InstancePrefix) }

// NewRunID identifies a single sandbox run.
func NewRunID() string { return New(RunPrefix) }

// NewRequestID identifies an API request.
func NewRequestID() string { return New(RequestPrefix) }

// Valid reports whether an ID carries the given prefix and a parseable UUID.
func Valid(s, prefix string) bool {
	rest, ok := strings.CutPrefix(s, prefix+"_")
	if !ok {
		return false
	}
	_, err := uuid.Parse(rest)
	return err == nil
}

package runtime

import (
	"time"

	"github.com/dop251/goja"
)

// State enumerates the controller lifecycle.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateErrored   State = "errored"
	StateTimedOut  State = "timed_out"
	StateStopped   State = "stopped"
)

// Terminal reports whether the state ends a run.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateErrored, StateTimedOut, StateStopped:
		return true
	}
	return false
}

// Config defines sandbox execution limits.
type Config struct {
	Timeout        time.Duration // Hard deadline per run
	MaxSourceBytes int           // Reject larger programs up front
	MaxLogEntries  int           // Console entries kept per run
}

// DefaultConfig returns production execution limits.
func DefaultConfig() Config {
	return Config{
		Timeout:        10 * time.Second,
		MaxSourceBytes: 256 * 1024,
		MaxLogEntries:  1000,
	}
}

// LogEntry is one captured console call.
type LogEntry struct {
	Kind Kind     `json:"kind"`
	Args []string `json:"args"`
}

// ExecutionResult aggregates everything a run produced. It is append-only
// while the run is live and replaced wholesale when the run ends.
type ExecutionResult struct {
	Logs       []LogEntry `json:"logs"`
	Error      string     `json:"error,omitempty"`
	DurationMs int64      `json:"duration_ms"`
	State      State      `json:"state"`
}

// Program is a ready-to-run sandbox program: the assembled source plus
// optional hooks that provision realm globals and drive a post-eval phase.
type Program struct {
	Source string

	// Setup installs extra globals before the source is evaluated.
	// The post function delivers messages to the host; it returns false
	// once the realm has been killed.
	Setup func(vm *goja.Runtime, post func(Message) bool) error

	// After runs once the source evaluated without error. Canvas programs
	// use it to drive the setup/draw loop and export the surface.
	After func(vm *goja.Runtime, post func(Message) bool) error
}

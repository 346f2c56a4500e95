package runtime

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/threadline/artifactd/internal/infrastructure/logging"
)

var (
	// ErrNotRunning is returned by Stop when no execution is in progress.
	ErrNotRunning = errors.New("no execution in progress")

	// ErrSourceTooLarge is returned when a program exceeds the size limit.
	ErrSourceTooLarge = errors.New("program source exceeds size limit")
)

// resultHistory bounds how many finished runs are retained per instance.
const resultHistory = 10

// Controller drives executions for a single artifact instance. It enforces
// the lifecycle Idle -> Running -> {Completed, Errored, TimedOut, Stopped}
// and guarantees at most one live realm at a time: starting a run while one
// is active performs an implicit stop first.
type Controller struct {
	cfg    Config
	logger *logging.Logger

	mu      sync.Mutex
	state   State
	session *session
	history []*ExecutionResult

	// observe is invoked once per finished run (metrics hook).
	observe func(result *ExecutionResult)
}

// session owns one live realm, its deadline timer and the aggregation
// goroutine. Torn down as a unit on every exit path.
type session struct {
	realm    *realm
	handle   *Handle
	stopping chan struct{}
	stopOnce sync.Once
}

// Handle exposes a live run to callers: a subscription to its message
// stream, completion signal, and the final result.
type Handle struct {
	// Messages receives every realm message in posting order. The channel
	// is closed when the run ends.
	Messages <-chan Message

	messages chan Message
	done     chan struct{}

	mu     sync.Mutex
	result *ExecutionResult
}

// Done is closed when the run reaches a terminal state.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the run ends and returns the final result.
func (h *Handle) Wait() *ExecutionResult {
	<-h.done
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result
}

// Result returns the final result, or nil while the run is live.
func (h *Handle) Result() *ExecutionResult {
	select {
	case <-h.done:
	default:
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result
}

// NewController creates a controller with the given limits.
func NewController(cfg Config, logger *logging.Logger) *Controller {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Controller{
		cfg:    cfg,
		logger: logger,
		state:  StateIdle,
	}
}

// WithObserver registers a hook invoked once per finished run.
func (c *Controller) WithObserver(fn func(*ExecutionResult)) *Controller {
	c.observe = fn
	return c
}

// Result returns the most recently finished run's result, or nil if no run
// has finished yet.
func (c *Controller) Result() *ExecutionResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.history) == 0 {
		return nil
	}
	return c.history[len(c.history)-1]
}

// History returns the retained results for this instance, oldest first.
func (c *Controller) History() []*ExecutionResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*ExecutionResult, len(c.history))
	copy(out, c.history)
	return out
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Run starts a new execution. Valid from Idle or any terminal state; if a
// run is active it is stopped first. The returned handle streams messages
// and resolves to the final result.
func (c *Controller) Run(prog Program) (*Handle, error) {
	if len(prog.Source) > c.cfg.MaxSourceBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrSourceTooLarge, len(prog.Source))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateRunning && c.session != nil {
		c.stopSessionLocked(c.session)
	}

	rlm, err := newRealm(prog, c.cfg.MaxLogEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create realm: %w", err)
	}

	handle := &Handle{
		messages: make(chan Message, c.cfg.MaxLogEntries+16),
		done:     make(chan struct{}),
	}
	handle.Messages = handle.messages

	s := &session{
		realm:    rlm,
		handle:   handle,
		stopping: make(chan struct{}),
	}
	c.session = s
	c.state = StateRunning

	go rlm.run(prog)
	go c.aggregate(s)

	return handle, nil
}

// Stop aborts the active run. Valid only from Running. The realm is killed
// outright rather than asked to finish, so pending guest work terminates.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRunning || c.session == nil {
		return ErrNotRunning
	}
	c.stopSessionLocked(c.session)
	return nil
}

// Close tears down the controller on component unmount. Idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil && c.state == StateRunning {
		c.stopSessionLocked(c.session)
	}
	c.session = nil
	c.state = StateIdle
}

// stopSessionLocked signals the session's aggregator to finalize as Stopped.
// Callers hold c.mu.
func (c *Controller) stopSessionLocked(s *session) {
	s.stopOnce.Do(func() {
		close(s.stopping)
	})
	s.realm.kill()
}

// aggregate consumes realm messages for one session, enforces the deadline,
// and produces the final result. It is the only writer of the session's
// result and the only goroutine that transitions the controller out of
// Running for this session.
func (c *Controller) aggregate(s *session) {
	start := time.Now()
	deadline := time.NewTimer(c.cfg.Timeout)
	defer deadline.Stop()

	var logs []LogEntry

	finalize := func(state State, errMsg string) {
		s.realm.kill()

		result := &ExecutionResult{
			Logs:       logs,
			Error:      errMsg,
			DurationMs: time.Since(start).Milliseconds(),
			State:      state,
		}

		s.handle.mu.Lock()
		s.handle.result = result
		s.handle.mu.Unlock()

		c.mu.Lock()
		// A superseded session must not clobber its replacement's state.
		if c.session == s {
			c.state = state
		}
		c.history = append(c.history, result)
		if len(c.history) > resultHistory {
			c.history = c.history[len(c.history)-resultHistory:]
		}
		c.mu.Unlock()

		close(s.handle.done)
		close(s.handle.messages)

		if c.observe != nil {
			c.observe(result)
		}
		c.logger.Debug("run finished",
			zap.String("state", string(state)),
			zap.Int("logs", len(logs)),
			zap.Int64("duration_ms", result.DurationMs),
		)
	}

	for {
		select {
		case m := <-s.realm.out:
			c.forward(s, m)
			switch msg := m.(type) {
			case LogMessage:
				logs = append(logs, LogEntry{Kind: msg.Kind, Args: msg.Args})
			case StatusMessage:
				// Lifecycle signal only; nothing to aggregate.
			case ErrorMessage:
				finalize(StateErrored, msg.Err)
				return
			case DoneMessage:
				finalize(StateCompleted, "")
				return
			}

		case <-deadline.C:
			finalize(StateTimedOut, fmt.Sprintf(
				"Execution timed out (%d second limit)", int(c.cfg.Timeout.Seconds())))
			return

		case <-s.stopping:
			finalize(StateStopped, "Execution stopped")
			return
		}
	}
}

// forward mirrors a message onto the handle's subscription without blocking
// the aggregation loop; a slow subscriber loses messages rather than
// stalling the deadline.
func (c *Controller) forward(s *session, m Message) {
	select {
	case s.handle.messages <- m:
	default:
	}
}

package runtime

import (
	"sync"

	"github.com/threadline/artifactd/internal/infrastructure/logging"
)

// Manager owns one Controller per artifact instance. Controllers are created
// lazily on first run and destroyed deterministically on close, never left
// to the garbage collector while a realm may be live.
type Manager struct {
	cfg     Config
	logger  *logging.Logger
	observe func(*ExecutionResult)

	mu          sync.Mutex
	controllers map[string]*Controller
}

// NewManager creates an instance manager.
func NewManager(cfg Config, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		cfg:         cfg,
		logger:      logger,
		controllers: make(map[string]*Controller),
	}
}

// WithObserver registers a per-run hook applied to new controllers.
func (m *Manager) WithObserver(fn func(*ExecutionResult)) *Manager {
	m.observe = fn
	return m
}

// Controller returns the controller for an instance, creating it on first use.
func (m *Manager) Controller(instanceID string) *Controller {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.controllers[instanceID]; ok {
		return c
	}
	c := NewController(m.cfg, m.logger)
	if m.observe != nil {
		c.WithObserver(m.observe)
	}
	m.controllers[instanceID] = c
	return c
}

// Lookup returns an instance's controller without creating one.
func (m *Manager) Lookup(instanceID string) (*Controller, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.controllers[instanceID]
	return c, ok
}

// Stop aborts the active run for an instance, if any.
func (m *Manager) Stop(instanceID string) error {
	m.mu.Lock()
	c, ok := m.controllers[instanceID]
	m.mu.Unlock()

	if !ok {
		return ErrNotRunning
	}
	return c.Stop()
}

// Release tears down one instance's controller.
func (m *Manager) Release(instanceID string) {
	m.mu.Lock()
	c, ok := m.controllers[instanceID]
	delete(m.controllers, instanceID)
	m.mu.Unlock()

	if ok {
		c.Close()
	}
}

// Close tears down every controller.
func (m *Manager) Close() {
	m.mu.Lock()
	controllers := m.controllers
	m.controllers = make(map[string]*Controller)
	m.mu.Unlock()

	for _, c := range controllers {
		c.Close()
	}
}

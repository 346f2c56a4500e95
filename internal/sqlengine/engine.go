package sqlengine

import (
	"errors"
	"sync"
	"time"

	// Bundles the SQLite WASM module so no runtime download is needed.
	_ "github.com/ncruces/go-sqlite3/embed"

	"go.uber.org/zap"

	"github.com/threadline/artifactd/internal/infrastructure/logging"
)

// ErrNoSession is returned for operations on an instance with no live session.
var ErrNoSession = errors.New("no database session for instance")

// Config defines SQL engine limits.
type Config struct {
	MaxRows int           // Rows returned per SELECT before truncation
	MaxIdle time.Duration // Sessions idle longer than this are reclaimable
}

// DefaultConfig returns production engine limits.
func DefaultConfig() Config {
	return Config{
		MaxRows: 1000,
		MaxIdle: 30 * time.Minute,
	}
}

// Engine manages one database session per artifact instance. Sessions are
// created lazily on first expansion, survive across executes, and are torn
// down only on explicit reset, close, or idle reaping, never implicitly.
type Engine struct {
	cfg    Config
	logger *logging.Logger

	// observe is invoked with +1/-1 as sessions open and close (gauge hook).
	observe func(delta int)

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewEngine creates a session manager.
func NewEngine(cfg Config, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = DefaultConfig().MaxRows
	}
	return &Engine{
		cfg:      cfg,
		logger:   logger.Named("sqlengine"),
		sessions: make(map[string]*Session),
	}
}

// WithObserver registers a hook invoked as sessions open (+1) and close (-1).
func (e *Engine) WithObserver(fn func(delta int)) *Engine {
	e.observe = fn
	return e
}

func (e *Engine) observeSessions(delta int) {
	if e.observe != nil && delta != 0 {
		e.observe(delta)
	}
}

// Session returns the live session for an instance, creating and seeding it
// on first use. Schema and seed only apply at creation and reset; an
// existing session keeps its accumulated state.
func (e *Engine) Session(instanceID, schema, seed string) (*Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if s, ok := e.sessions[instanceID]; ok {
		return s, nil
	}

	s, err := newSession(schema, seed, e.cfg.MaxRows, e.logger)
	if err != nil {
		return nil, err
	}
	e.sessions[instanceID] = s
	e.observeSessions(1)
	e.logger.Debug("session opened", zap.String("instance", instanceID))
	return s, nil
}

// Get returns an existing session without creating one.
func (e *Engine) Get(instanceID string) (*Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[instanceID]
	return s, ok
}

// Reset reloads an instance's database from schema and seed.
func (e *Engine) Reset(instanceID string) error {
	e.mu.Lock()
	s, ok := e.sessions[instanceID]
	e.mu.Unlock()

	if !ok {
		return ErrNoSession
	}
	return s.Reset()
}

// Release closes and forgets one instance's session.
func (e *Engine) Release(instanceID string) error {
	e.mu.Lock()
	s, ok := e.sessions[instanceID]
	delete(e.sessions, instanceID)
	e.mu.Unlock()

	if !ok {
		return ErrNoSession
	}
	e.observeSessions(-1)
	return s.Close()
}

// ReapIdle closes sessions idle beyond the configured threshold and returns
// how many were reclaimed.
func (e *Engine) ReapIdle() int {
	if e.cfg.MaxIdle <= 0 {
		return 0
	}
	cutoff := time.Now().Add(-e.cfg.MaxIdle)

	e.mu.Lock()
	var stale []*Session
	for id, s := range e.sessions {
		if s.LastUsed().Before(cutoff) {
			stale = append(stale, s)
			delete(e.sessions, id)
		}
	}
	e.mu.Unlock()

	for _, s := range stale {
		if err := s.Close(); err != nil {
			e.logger.Warn("failed to close idle session", zap.Error(err))
		}
	}
	e.observeSessions(-len(stale))
	return len(stale)
}

// Close tears down every session.
func (e *Engine) Close() {
	e.mu.Lock()
	sessions := e.sessions
	e.sessions = make(map[string]*Session)
	e.mu.Unlock()

	for _, s := range sessions {
		if err := s.Close(); err != nil {
			e.logger.Warn("failed to close session", zap.Error(err))
		}
	}
	e.observeSessions(-len(sessions))
}

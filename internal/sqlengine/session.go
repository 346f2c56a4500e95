package sqlengine

import (
	"fmt"
	"sync"
	"time"

	"github.com/ncruces/go-sqlite3"
	"go.uber.org/zap"

	"github.com/threadline/artifactd/internal/infrastructure/logging"
)

// Session owns one in-memory WASM SQLite database for the lifetime of an
// expanded artifact view. State persists across Execute calls; Reset tears
// the database down and reloads it from schema and seed.
type Session struct {
	mu       sync.Mutex
	conn     *sqlite3.Conn
	schema   string
	seed     string
	tables   []string
	maxRows  int
	lastUsed time.Time
	logger   *logging.Logger
}

func newSession(schema, seed string, maxRows int, logger *logging.Logger) (*Session, error) {
	s := &Session{
		schema:  schema,
		seed:    seed,
		maxRows: maxRows,
		logger:  logger,
	}
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

// open provisions the database and applies schema and seed. Each is applied
// independently: a broken schema does not keep the seed from being tried.
func (s *Session) open() error {
	conn, err := sqlite3.Open(":memory:")
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	s.conn = conn
	s.lastUsed = time.Now()

	if s.schema != "" {
		if err := conn.Exec(s.schema); err != nil {
			s.logger.Warn("schema execution failed", zap.Error(err))
		}
	}
	if s.seed != "" {
		if err := conn.Exec(s.seed); err != nil {
			s.logger.Warn("seed execution failed", zap.Error(err))
		}
	}

	s.refreshTablesLocked()
	return nil
}

// Execute splits a script on ';' and runs each non-empty statement
// independently, so a batch partially succeeds or fails per statement.
// The table list is refreshed after every batch.
func (s *Session) Execute(script string) *BatchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()

	start := time.Now()
	batch := &BatchResult{}

	for _, stmt := range splitStatements(script) {
		batch.Statements = append(batch.Statements, s.runStatementLocked(stmt))
	}

	s.refreshTablesLocked()
	batch.Tables = append([]string{}, s.tables...)
	batch.DurationMs = time.Since(start).Milliseconds()
	return batch
}

// Tables returns the cached table list.
func (s *Session) Tables() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.tables...)
}

// Reset discards all state and reloads from schema and seed.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			s.logger.Warn("failed to close database on reset", zap.Error(err))
		}
		s.conn = nil
	}
	return s.open()
}

// Close releases the database handle. The session is unusable afterwards.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// LastUsed reports when the session last executed a batch.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// refreshTablesLocked rebuilds the derived table cache from sqlite_master.
// Callers hold s.mu.
func (s *Session) refreshTablesLocked() {
	s.tables = s.tables[:0]
	if s.conn == nil {
		return
	}

	stmt, _, err := s.conn.Prepare(
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		s.logger.Warn("table introspection failed", zap.Error(err))
		return
	}
	defer stmt.Close()

	for stmt.Step() {
		s.tables = append(s.tables, stmt.ColumnText(0))
	}
	if err := stmt.Err(); err != nil {
		s.logger.Warn("table introspection failed", zap.Error(err))
	}
}

package sqlengine

import (
	"strings"
	"time"

	"github.com/ncruces/go-sqlite3"
)

// StatementResult records the outcome of one statement in a batch. Results
// are independent: one failure does not abort the statements after it.
type StatementResult struct {
	Statement  string   `json:"statement"`
	Success    bool     `json:"success"`
	Columns    []string `json:"columns,omitempty"`
	Rows       [][]any  `json:"rows,omitempty"`
	Truncated  bool     `json:"truncated,omitempty"`
	Error      string   `json:"error,omitempty"`
	DurationMs int64    `json:"duration_ms"`
}

// BatchResult is the outcome of one Execute call.
type BatchResult struct {
	Statements []StatementResult `json:"statements"`
	Tables     []string          `json:"tables"`
	DurationMs int64             `json:"duration_ms"`
}

// splitStatements performs the naive ';' split the engine is specified to
// use. Semicolons inside string literals are not honored; multi-statement
// scripts that need them should run as separate batches.
func splitStatements(script string) []string {
	parts := strings.Split(script, ";")
	stmts := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			stmts = append(stmts, trimmed)
		}
	}
	return stmts
}

// runStatementLocked executes one statement. SELECT-prefixed statements
// return columns and rows; anything else runs for effect and reports a
// generic success row. Callers hold s.mu.
func (s *Session) runStatementLocked(sql string) StatementResult {
	start := time.Now()
	res := StatementResult{Statement: sql}

	if s.conn == nil {
		res.Error = "database session is closed"
		res.DurationMs = time.Since(start).Milliseconds()
		return res
	}

	if strings.HasPrefix(strings.ToUpper(sql), "SELECT") {
		s.runQueryLocked(sql, &res)
	} else {
		if err := s.conn.Exec(sql); err != nil {
			res.Error = err.Error()
		} else {
			res.Success = true
			res.Columns = []string{"status"}
			res.Rows = [][]any{{"success"}}
		}
	}

	res.DurationMs = time.Since(start).Milliseconds()
	return res
}

func (s *Session) runQueryLocked(sql string, res *StatementResult) {
	stmt, _, err := s.conn.Prepare(sql)
	if err != nil {
		res.Error = err.Error()
		return
	}
	defer stmt.Close()

	n := stmt.ColumnCount()
	res.Columns = make([]string, n)
	for i := 0; i < n; i++ {
		res.Columns[i] = stmt.ColumnName(i)
	}

	res.Rows = [][]any{}
	for stmt.Step() {
		if len(res.Rows) >= s.maxRows {
			res.Truncated = true
			break
		}
		row := make([]any, n)
		for i := 0; i < n; i++ {
			row[i] = columnValue(stmt, i)
		}
		res.Rows = append(res.Rows, row)
	}
	if err := stmt.Err(); err != nil {
		res.Error = err.Error()
		return
	}
	res.Success = true
}

// columnValue extracts one column as a plain Go value.
func columnValue(stmt *sqlite3.Stmt, i int) any {
	switch stmt.ColumnType(i) {
	case sqlite3.INTEGER:
		return stmt.ColumnInt64(i)
	case sqlite3.FLOAT:
		return stmt.ColumnFloat(i)
	case sqlite3.TEXT:
		return stmt.ColumnText(i)
	case sqlite3.BLOB:
		return stmt.ColumnBlob(i, nil)
	default:
		return nil
	}
}

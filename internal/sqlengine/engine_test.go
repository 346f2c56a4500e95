package sqlengine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	e := NewEngine(DefaultConfig(), nil)
	t.Cleanup(e.Close)
	return e
}

func TestSessionCreateAndQuery(t *testing.T) {
	e := testEngine(t)

	session, err := e.Session("inst_1", "CREATE TABLE users (id INTEGER, name TEXT)", "INSERT INTO users VALUES (1, 'ada'), (2, 'grace')")
	require.NoError(t, err)

	batch := session.Execute("SELECT id, name FROM users ORDER BY id")
	require.Len(t, batch.Statements, 1)

	stmt := batch.Statements[0]
	assert.True(t, stmt.Success)
	assert.Empty(t, stmt.Error)
	assert.Equal(t, []string{"id", "name"}, stmt.Columns)
	require.Len(t, stmt.Rows, 2)
	assert.Equal(t, int64(1), stmt.Rows[0][0])
	assert.Equal(t, "ada", stmt.Rows[0][1])
	assert.Equal(t, int64(2), stmt.Rows[1][0])

	assert.Equal(t, []string{"users"}, batch.Tables)
}

func TestStatePersistsAcrossExecutes(t *testing.T) {
	e := testEngine(t)

	session, err := e.Session("inst_1", "CREATE TABLE t (v INTEGER)", "")
	require.NoError(t, err)

	session.Execute("INSERT INTO t VALUES (1)")
	session.Execute("INSERT INTO t VALUES (2)")

	batch := session.Execute("SELECT COUNT(*) AS n FROM t")
	require.Len(t, batch.Statements, 1)
	require.Len(t, batch.Statements[0].Rows, 1)
	assert.Equal(t, int64(2), batch.Statements[0].Rows[0][0])
}

func TestSessionReusedForInstance(t *testing.T) {
	e := testEngine(t)

	first, err := e.Session("inst_1", "CREATE TABLE t (v INTEGER)", "")
	require.NoError(t, err)

	// Second call ignores schema/seed and returns the live session.
	second, err := e.Session("inst_1", "CREATE TABLE other (v INTEGER)", "")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, []string{"t"}, second.Tables())
}

func TestBatchPartialFailure(t *testing.T) {
	e := testEngine(t)

	session, err := e.Session("inst_1", "CREATE TABLE t (v INTEGER)", "")
	require.NoError(t, err)

	batch := session.Execute(`
		INSERT INTO t VALUES (1);
		INSERT INTO nonexistent VALUES (2);
		SELECT v FROM t;
	`)
	require.Len(t, batch.Statements, 3)

	assert.True(t, batch.Statements[0].Success)
	assert.False(t, batch.Statements[1].Success)
	assert.NotEmpty(t, batch.Statements[1].Error)
	assert.True(t, batch.Statements[2].Success, "statement after a failure must still run")
	require.Len(t, batch.Statements[2].Rows, 1)
	assert.Equal(t, int64(1), batch.Statements[2].Rows[0][0])
}

func TestNonSelectReportsGenericSuccess(t *testing.T) {
	e := testEngine(t)

	session, err := e.Session("inst_1", "", "")
	require.NoError(t, err)

	batch := session.Execute("CREATE TABLE made (v INTEGER)")
	require.Len(t, batch.Statements, 1)
	stmt := batch.Statements[0]
	assert.True(t, stmt.Success)
	assert.Equal(t, []string{"status"}, stmt.Columns)
	assert.Equal(t, [][]any{{"success"}}, stmt.Rows)
	assert.Equal(t, []string{"made"}, batch.Tables)
}

func TestSelectTruncation(t *testing.T) {
	e := NewEngine(Config{MaxRows: 3}, nil)
	t.Cleanup(e.Close)

	session, err := e.Session("inst_1", "CREATE TABLE t (v INTEGER)", "")
	require.NoError(t, err)

	session.Execute("INSERT INTO t VALUES (1), (2), (3), (4), (5)")
	batch := session.Execute("SELECT v FROM t")
	require.Len(t, batch.Statements, 1)

	stmt := batch.Statements[0]
	assert.True(t, stmt.Success)
	assert.True(t, stmt.Truncated)
	assert.Len(t, stmt.Rows, 3)
}

func TestReset(t *testing.T) {
	e := testEngine(t)

	_, err := e.Session("inst_1", "CREATE TABLE t (v INTEGER)", "INSERT INTO t VALUES (10)")
	require.NoError(t, err)

	session, ok := e.Get("inst_1")
	require.True(t, ok)
	session.Execute("INSERT INTO t VALUES (20)")

	require.NoError(t, e.Reset("inst_1"))

	batch := session.Execute("SELECT COUNT(*) AS n FROM t")
	require.Len(t, batch.Statements, 1)
	require.Len(t, batch.Statements[0].Rows, 1)
	assert.Equal(t, int64(1), batch.Statements[0].Rows[0][0], "reset must reload only the seed row")
}

func TestResetUnknownInstance(t *testing.T) {
	e := testEngine(t)
	assert.ErrorIs(t, e.Reset("missing"), ErrNoSession)
}

func TestRelease(t *testing.T) {
	e := testEngine(t)

	_, err := e.Session("inst_1", "", "")
	require.NoError(t, err)

	require.NoError(t, e.Release("inst_1"))
	_, ok := e.Get("inst_1")
	assert.False(t, ok)

	assert.ErrorIs(t, e.Release("inst_1"), ErrNoSession)
}

func TestBrokenSchemaStillOpensSession(t *testing.T) {
	e := testEngine(t)

	session, err := e.Session("inst_1", "CREATE BOGUS SYNTAX", "")
	require.NoError(t, err, "a broken schema must not prevent the session from opening")

	batch := session.Execute("SELECT 1 AS one")
	require.Len(t, batch.Statements, 1)
	assert.True(t, batch.Statements[0].Success)
}

func TestSessionObserverTracksOpenCount(t *testing.T) {
	open := 0
	e := NewEngine(DefaultConfig(), nil).WithObserver(func(delta int) {
		open += delta
	})
	t.Cleanup(e.Close)

	_, err := e.Session("inst_a", "", "")
	require.NoError(t, err)
	_, err = e.Session("inst_b", "", "")
	require.NoError(t, err)
	assert.Equal(t, 2, open)

	_, err = e.Session("inst_a", "", "")
	require.NoError(t, err)
	assert.Equal(t, 2, open, "reusing a session must not count as an open")

	require.NoError(t, e.Release("inst_a"))
	assert.Equal(t, 1, open)
	assert.ErrorIs(t, e.Release("inst_a"), ErrNoSession)
	assert.Equal(t, 1, open, "a failed release must not move the count")

	e.Close()
	assert.Equal(t, 0, open)
}

func TestReapIdle(t *testing.T) {
	e := NewEngine(Config{MaxRows: 100, MaxIdle: time.Nanosecond}, nil)
	t.Cleanup(e.Close)

	_, err := e.Session("inst_1", "", "")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 1, e.ReapIdle())
	_, ok := e.Get("inst_1")
	assert.False(t, ok)
}

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   []string
	}{
		{name: "single", script: "SELECT 1", want: []string{"SELECT 1"}},
		{name: "trailing semicolon", script: "SELECT 1;", want: []string{"SELECT 1"}},
		{name: "multiple", script: "A; B;  C", want: []string{"A", "B", "C"}},
		{name: "blank segments", script: " ;; A ; ", want: []string{"A"}},
		{name: "empty", script: "  ", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitStatements(tt.script))
		})
	}
}

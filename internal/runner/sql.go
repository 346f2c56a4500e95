package runner

import (
	"context"

	"github.com/threadline/artifactd/internal/artifact"
	"github.com/threadline/artifactd/internal/infrastructure/monitoring"
	"github.com/threadline/artifactd/internal/service"
	"github.com/threadline/artifactd/internal/sqlengine"
)

// SqlRunner executes SQL artifacts against per-instance databases.
type SqlRunner struct {
	engine  *sqlengine.Engine
	metrics *monitoring.Metrics
	stats   *monitoring.Aggregator
}

// NewSqlRunner creates the SQL artifact runner.
func NewSqlRunner(engine *sqlengine.Engine, metrics *monitoring.Metrics, stats *monitoring.Aggregator) *SqlRunner {
	return &SqlRunner{engine: engine, metrics: metrics, stats: stats}
}

// Definition implements service.Runner.
func (r *SqlRunner) Definition() service.Info {
	return service.Info{
		ID:          "sql",
		Name:        "SQL Engine",
		Description: "Executes SQL against a per-artifact WASM SQLite database",
		Types:       []artifact.Type{artifact.TypeSql},
		Capabilities: []string{
			"sqlite", "schema", "seed", "batch", "introspection", "reset",
		},
	}
}

// Run executes the artifact's query against its session, creating and
// seeding the database on first use.
func (r *SqlRunner) Run(ctx context.Context, instanceID string, art *artifact.Parsed) (*service.Result, error) {
	payload := art.Sql
	if payload == nil {
		return service.Failure("artifact carries no sql payload"), nil
	}

	session, err := r.engine.Session(instanceID, payload.Schema, payload.SeedData)
	if err != nil {
		return service.Failure("failed to open database: " + err.Error()), nil
	}

	batch := session.Execute(payload.Query)
	r.observe(batch)

	return service.Success(map[string]any{
		"batch": batch,
	}), nil
}

// Reset reloads the instance's database from schema and seed.
func (r *SqlRunner) Reset(instanceID string) error {
	if r.metrics != nil {
		r.metrics.SqlResets.Inc()
	}
	return r.engine.Reset(instanceID)
}

// Tables returns the instance's cached table list.
func (r *SqlRunner) Tables(instanceID string) ([]string, error) {
	session, ok := r.engine.Get(instanceID)
	if !ok {
		return nil, sqlengine.ErrNoSession
	}
	return session.Tables(), nil
}

func (r *SqlRunner) observe(batch *sqlengine.BatchResult) {
	succeeded, failed := 0, 0
	for _, s := range batch.Statements {
		if s.Error != "" {
			failed++
		} else {
			succeeded++
		}
	}
	if r.metrics != nil {
		r.metrics.RecordSqlBatch(succeeded, failed)
	}
	if r.stats != nil {
		r.stats.Record("sql", float64(batch.DurationMs))
	}
}

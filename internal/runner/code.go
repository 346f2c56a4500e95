package runner

import (
	"context"
	"errors"
	"time"

	"github.com/threadline/artifactd/internal/artifact"
	"github.com/threadline/artifactd/internal/infrastructure/monitoring"
	"github.com/threadline/artifactd/internal/runtime"
	"github.com/threadline/artifactd/internal/service"
)

// CodeRunner executes code artifacts inside sandbox realms.
type CodeRunner struct {
	execs   *runtime.Manager
	metrics *monitoring.Metrics
	stats   *monitoring.Aggregator
}

// NewCodeRunner creates the code artifact runner.
func NewCodeRunner(execs *runtime.Manager, metrics *monitoring.Metrics, stats *monitoring.Aggregator) *CodeRunner {
	return &CodeRunner{execs: execs, metrics: metrics, stats: stats}
}

// Definition implements service.Runner.
func (r *CodeRunner) Definition() service.Info {
	return service.Info{
		ID:          "code",
		Name:        "Code Sandbox",
		Description: "Executes JavaScript and TypeScript snippets in an isolated realm",
		Types:       []artifact.Type{artifact.TypeCode},
		Capabilities: []string{
			"javascript", "typescript", "console-capture", "deadline-kill", "stop",
		},
	}
}

// Run executes one code artifact and blocks until it reaches a terminal
// state; the hard deadline bounds the wait.
func (r *CodeRunner) Run(ctx context.Context, instanceID string, art *artifact.Parsed) (*service.Result, error) {
	payload := art.Code
	if payload == nil {
		return service.Failure("artifact carries no code payload"), nil
	}
	if !payload.Executable {
		return service.Failure("artifact is not executable"), nil
	}

	source, err := runtime.Downlevel(payload.Language, payload.Code)
	if err != nil {
		if errors.Is(err, runtime.ErrUnsupportedLanguage) {
			return service.Failure("language is not executable in the sandbox: " + payload.Language), nil
		}
		return service.Failure(err.Error()), nil
	}

	handle, err := r.execs.Controller(instanceID).Run(runtime.Program{Source: source})
	if err != nil {
		return service.Failure(err.Error()), nil
	}

	result := handle.Wait()
	r.observe("code", result)

	return service.Success(map[string]any{
		"result": result,
	}), nil
}

// Stop aborts the instance's active run.
func (r *CodeRunner) Stop(instanceID string) error {
	return r.execs.Stop(instanceID)
}

func (r *CodeRunner) observe(kind string, result *runtime.ExecutionResult) {
	if r.metrics != nil {
		r.metrics.RecordExecution(kind, string(result.State),
			time.Duration(result.DurationMs)*time.Millisecond)
	}
	if r.stats != nil {
		r.stats.Record(kind, float64(result.DurationMs))
	}
}

package runner

import (
	"context"
	"time"

	"github.com/threadline/artifactd/internal/artifact"
	"github.com/threadline/artifactd/internal/infrastructure/monitoring"
	"github.com/threadline/artifactd/internal/probe"
	"github.com/threadline/artifactd/internal/service"
)

// ApiRunner fires API probe artifacts from the host.
type ApiRunner struct {
	prober  *probe.Prober
	metrics *monitoring.Metrics
	stats   *monitoring.Aggregator
}

// NewApiRunner creates the API probe runner.
func NewApiRunner(prober *probe.Prober, metrics *monitoring.Metrics, stats *monitoring.Aggregator) *ApiRunner {
	return &ApiRunner{prober: prober, metrics: metrics, stats: stats}
}

// Definition implements service.Runner.
func (r *ApiRunner) Definition() service.Info {
	return service.Info{
		ID:          "api",
		Name:        "API Probe",
		Description: "Issues direct outbound HTTP requests with timing",
		Types:       []artifact.Type{artifact.TypeApi},
		Capabilities: []string{
			"http", "timing", "json", "charset-detection",
		},
	}
}

// Run issues the probe. The result is always a success envelope; transport
// failures live inside the response object.
func (r *ApiRunner) Run(ctx context.Context, instanceID string, art *artifact.Parsed) (*service.Result, error) {
	payload := art.Api
	if payload == nil {
		return service.Failure("artifact carries no api payload"), nil
	}

	resp := r.prober.Do(ctx, probe.Request{
		URL:     payload.URL,
		Method:  payload.Method,
		Headers: payload.Headers,
		Body:    payload.Body,
	})

	if r.metrics != nil {
		r.metrics.RecordProbe(payload.Method, resp.Error != "",
			time.Duration(resp.DurationMs)*time.Millisecond)
	}
	if r.stats != nil {
		r.stats.Record("api", float64(resp.DurationMs))
	}

	return service.Success(map[string]any{
		"response": resp,
	}), nil
}

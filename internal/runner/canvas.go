package runner

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/threadline/artifactd/internal/artifact"
	"github.com/threadline/artifactd/internal/infrastructure/monitoring"
	"github.com/threadline/artifactd/internal/runtime"
	"github.com/threadline/artifactd/internal/runtime/canvas"
	"github.com/threadline/artifactd/internal/service"
)

// CanvasRunner renders visual artifacts inside sandbox realms.
type CanvasRunner struct {
	execs     *runtime.Manager
	maxFrames int
	metrics   *monitoring.Metrics
	stats     *monitoring.Aggregator
}

// NewCanvasRunner creates the canvas artifact runner.
func NewCanvasRunner(execs *runtime.Manager, maxFrames int, metrics *monitoring.Metrics, stats *monitoring.Aggregator) *CanvasRunner {
	return &CanvasRunner{execs: execs, maxFrames: maxFrames, metrics: metrics, stats: stats}
}

// Definition implements service.Runner.
func (r *CanvasRunner) Definition() service.Info {
	return service.Info{
		ID:          "canvas",
		Name:        "Canvas Sandbox",
		Description: "Renders p5-style sketches and raw canvas drawings",
		Types:       []artifact.Type{artifact.TypeCanvas},
		Capabilities: []string{
			"p5", "raw-canvas", "png-export", "frame-loop", "deadline-kill",
		},
	}
}

// Run renders one canvas artifact and returns the PNG alongside the
// execution result. An export failure surfaces as a render error while the
// console output is preserved.
func (r *CanvasRunner) Run(ctx context.Context, instanceID string, art *artifact.Parsed) (*service.Result, error) {
	payload := art.Canvas
	if payload == nil {
		return service.Failure("artifact carries no canvas payload"), nil
	}

	mode := canvas.DetectMode(payload.Mode, payload.Code)
	prog, export := canvas.NewProgram(payload.Code, mode, payload.Width, payload.Height, r.maxFrames)

	handle, err := r.execs.Controller(instanceID).Run(prog)
	if err != nil {
		return service.Failure(err.Error()), nil
	}

	result := handle.Wait()
	r.observe(result)

	data := map[string]any{
		"result": result,
		"mode":   string(mode),
		"frames": export.Frames(),
	}
	if png, err := export.PNG(); err != nil {
		data["render_error"] = "canvas export failed: " + err.Error()
	} else if len(png) > 0 {
		data["image_png"] = base64.StdEncoding.EncodeToString(png)
	}

	return service.Success(data), nil
}

// Stop aborts the instance's active run.
func (r *CanvasRunner) Stop(instanceID string) error {
	return r.execs.Stop(instanceID)
}

func (r *CanvasRunner) observe(result *runtime.ExecutionResult) {
	if r.metrics != nil {
		r.metrics.RecordExecution("canvas", string(result.State),
			time.Duration(result.DurationMs)*time.Millisecond)
	}
	if r.stats != nil {
		r.stats.Record("canvas", float64(result.DurationMs))
	}
}

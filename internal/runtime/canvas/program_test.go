package canvas

import (
	"bytes"
	"image/png"
	"testing"
	"time"

	"github.com/threadline/artifactd/internal/runtime"
)

func testConfig() runtime.Config {
	return runtime.Config{
		Timeout:        5 * time.Second,
		MaxSourceBytes: 64 * 1024,
		MaxLogEntries:  100,
	}
}

func runProgram(t *testing.T, prog runtime.Program) *runtime.ExecutionResult {
	t.Helper()
	c := runtime.NewController(testConfig(), nil)
	defer c.Close()

	handle, err := c.Run(prog)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return handle.Wait()
}

func TestDetectMode(t *testing.T) {
	tests := []struct {
		name   string
		mode   string
		source string
		want   Mode
	}{
		{name: "explicit p5", mode: "p5", source: "rect(0, 0, 10, 10)", want: ModeP5},
		{name: "explicit raw", mode: "canvas", source: "function setup() {}", want: ModeRaw},
		{name: "auto with setup", mode: "", source: "function setup() { createCanvas(200, 200); }", want: ModeP5},
		{name: "auto with draw", mode: "", source: "function draw() { background(220); }", want: ModeP5},
		{name: "auto with draw expression", mode: "", source: "draw = function() { circle(10, 10, 5); }", want: ModeP5},
		{name: "auto with arrow draw", mode: "", source: "draw = () => { circle(10, 10, 5); }", want: ModeP5},
		{name: "auto plain drawing", mode: "", source: "clear('white'); rect(0, 0, 10, 10);", want: ModeRaw},
		{name: "unknown mode falls back to heuristic", mode: "webgl", source: "function setup() {}", want: ModeP5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectMode(tt.mode, tt.source); got != tt.want {
				t.Errorf("DetectMode(%q) = %q, want %q", tt.mode, got, tt.want)
			}
		})
	}
}

func TestRawModeRendersPNG(t *testing.T) {
	source := `
		clear('white');
		fill('red');
		rect(10, 10, 50, 50);
		circle(width / 2, height / 2, 20);
		line(0, 0, width, height);
	`
	prog, export := NewProgram(source, ModeRaw, 200, 100, 60)

	result := runProgram(t, prog)
	if result.State != runtime.StateCompleted {
		t.Fatalf("State = %s (error %q), want completed", result.State, result.Error)
	}

	data, err := export.PNG()
	if err != nil {
		t.Fatalf("PNG() error = %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode() error = %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != 200 || bounds.Dy() != 100 {
		t.Errorf("image = %dx%d, want 200x100", bounds.Dx(), bounds.Dy())
	}
	if export.Frames() != 1 {
		t.Errorf("Frames() = %d, want 1", export.Frames())
	}
}

func TestP5SketchLifecycle(t *testing.T) {
	source := `
		let setupRan = false;
		function setup() {
			createCanvas(120, 80);
			background(220);
			setupRan = true;
		}
		function draw() {
			if (!setupRan) {
				throw new Error('draw before setup');
			}
			ellipse(width / 2, height / 2, 40, 40);
		}
	`
	prog, export := NewProgram(source, ModeP5, 400, 400, 5)

	result := runProgram(t, prog)
	if result.State != runtime.StateCompleted {
		t.Fatalf("State = %s (error %q), want completed", result.State, result.Error)
	}
	if export.Frames() != 5 {
		t.Errorf("Frames() = %d, want frame budget 5", export.Frames())
	}

	data, err := export.PNG()
	if err != nil {
		t.Fatalf("PNG() error = %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode() error = %v", err)
	}
	if img.Bounds().Dx() != 120 || img.Bounds().Dy() != 80 {
		t.Errorf("image = %dx%d, want createCanvas size 120x80",
			img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestP5NoLoopStopsAfterOneFrame(t *testing.T) {
	source := `
		function setup() {
			createCanvas(50, 50);
		}
		function draw() {
			rect(0, 0, 10, 10);
			noLoop();
		}
	`
	prog, export := NewProgram(source, ModeP5, 400, 400, 60)

	result := runProgram(t, prog)
	if result.State != runtime.StateCompleted {
		t.Fatalf("State = %s (error %q), want completed", result.State, result.Error)
	}
	if export.Frames() != 1 {
		t.Errorf("Frames() = %d, want 1 after noLoop", export.Frames())
	}
}

func TestP5DrawErrorSurfaces(t *testing.T) {
	source := `
		function draw() {
			throw new Error('sketch exploded');
		}
	`
	prog, _ := NewProgram(source, ModeP5, 100, 100, 10)

	result := runProgram(t, prog)
	if result.State != runtime.StateErrored {
		t.Fatalf("State = %s, want errored", result.State)
	}
	if result.Error == "" {
		t.Error("Error is empty, want the draw exception")
	}
}

func TestStatusMessageEmitted(t *testing.T) {
	prog, _ := NewProgram("rect(0, 0, 5, 5)", ModeRaw, 50, 50, 10)

	c := runtime.NewController(testConfig(), nil)
	defer c.Close()
	handle, err := c.Run(prog)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	handle.Wait()

	var sawStatus bool
	for m := range handle.Messages {
		if s, ok := m.(runtime.StatusMessage); ok && s.Status == "running" {
			sawStatus = true
		}
	}
	if !sawStatus {
		t.Error("no running status message observed")
	}
}

func TestConsoleWorksInSketch(t *testing.T) {
	source := `
		function setup() {
			console.log('sketch says hi');
			noLoop();
		}
	`
	prog, _ := NewProgram(source, ModeP5, 100, 100, 10)

	result := runProgram(t, prog)
	if result.State != runtime.StateCompleted {
		t.Fatalf("State = %s (error %q), want completed", result.State, result.Error)
	}
	if len(result.Logs) != 1 || result.Logs[0].Args[0] != "sketch says hi" {
		t.Errorf("Logs = %+v, want sketch says hi", result.Logs)
	}
}

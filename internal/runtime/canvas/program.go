package canvas

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/dop251/goja"

	"github.com/threadline/artifactd/internal/runtime"
)

// Mode selects which drawing API the program is given.
type Mode string

const (
	// ModeAuto picks p5 when the source defines setup/draw.
	ModeAuto Mode = ""

	// ModeP5 exposes the p5-style global sketch API.
	ModeP5 Mode = "p5"

	// ModeRaw exposes minimal drawing primitives over the 2D surface.
	ModeRaw Mode = "canvas"
)

// reSketchAPI detects the p5 entry points in user source.
var reSketchAPI = regexp.MustCompile(`\bfunction\s+(setup|draw)\s*\(|\b(setup|draw)\s*=\s*(function\b|\()`)

// DetectMode resolves an explicit mode, falling back to a heuristic scan of
// the source for setup/draw definitions.
func DetectMode(mode string, source string) Mode {
	switch Mode(mode) {
	case ModeP5, ModeRaw:
		return Mode(mode)
	}
	if reSketchAPI.MatchString(source) {
		return ModeP5
	}
	return ModeRaw
}

// Export collects the rendered output of one canvas run. PNG encoding
// failures are recorded here rather than failing the run: a sketch that
// drew successfully but cannot export still reports its console output.
type Export struct {
	mu     sync.Mutex
	png    []byte
	err    error
	frames int
}

// PNG returns the encoded image, or the export error.
func (e *Export) PNG() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.png, e.err
}

// Frames returns how many draw frames ran.
func (e *Export) Frames() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frames
}

// NewProgram assembles a sandbox program for a canvas artifact. The returned
// Export resolves once the program's run ends.
func NewProgram(source string, mode Mode, width, height, maxFrames int) (runtime.Program, *Export) {
	if maxFrames <= 0 {
		maxFrames = 60
	}
	surface := NewSurface(width, height)
	export := &Export{}

	prog := runtime.Program{
		Source: source,
	}

	switch mode {
	case ModeP5:
		sketch := &sketchState{surface: surface, maxFrames: maxFrames}
		prog.Setup = sketch.install
		prog.After = func(vm *goja.Runtime, post func(runtime.Message) bool) error {
			post(runtime.StatusMessage{Status: "running"})
			if err := sketch.play(vm); err != nil {
				return err
			}
			export.finish(surface, sketch.frames)
			return nil
		}
	default:
		prog.Setup = installRawAPI(surface)
		prog.After = func(vm *goja.Runtime, post func(runtime.Message) bool) error {
			post(runtime.StatusMessage{Status: "running"})
			export.finish(surface, 1)
			return nil
		}
	}
	return prog, export
}

func (e *Export) finish(surface *Surface, frames int) {
	png, err := surface.EncodePNG()
	e.mu.Lock()
	e.png = png
	e.err = err
	e.frames = frames
	e.mu.Unlock()
}

// installRawAPI provisions the minimal primitive set: clear, fill, stroke,
// rect, circle, line.
func installRawAPI(s *Surface) func(vm *goja.Runtime, post func(runtime.Message) bool) error {
	return func(vm *goja.Runtime, post func(runtime.Message) bool) error {
		w, h := s.Size()
		vm.Set("width", w)
		vm.Set("height", h)

		vm.Set("clear", func(call goja.FunctionCall) goja.Value {
			c, ok := parseColor(exportArgs(call))
			if !ok {
				c = rgba{1, 1, 1, 1}
			}
			s.Clear(c)
			return goja.Undefined()
		})
		vm.Set("fill", colorSetter(s.SetFill))
		vm.Set("stroke", colorSetter(s.SetStroke))
		vm.Set("rect", func(call goja.FunctionCall) goja.Value {
			x, y, rw, rh := floatArg(call, 0), floatArg(call, 1), floatArg(call, 2), floatArg(call, 3)
			s.Rect(x, y, rw, rh)
			return goja.Undefined()
		})
		vm.Set("circle", func(call goja.FunctionCall) goja.Value {
			s.Circle(floatArg(call, 0), floatArg(call, 1), floatArg(call, 2))
			return goja.Undefined()
		})
		vm.Set("line", func(call goja.FunctionCall) goja.Value {
			s.Line(floatArg(call, 0), floatArg(call, 1), floatArg(call, 2), floatArg(call, 3))
			return goja.Undefined()
		})
		return nil
	}
}

func colorSetter(set func(rgba)) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		if c, ok := parseColor(exportArgs(call)); ok {
			set(c)
		}
		return goja.Undefined()
	}
}

func exportArgs(call goja.FunctionCall) []any {
	args := make([]any, 0, len(call.Arguments))
	for _, a := range call.Arguments {
		args = append(args, a.Export())
	}
	return args
}

func floatArg(call goja.FunctionCall, i int) float64 {
	if i >= len(call.Arguments) {
		return 0
	}
	return call.Argument(i).ToFloat()
}

// callSketchFunc invokes a global sketch function if it is defined.
func callSketchFunc(vm *goja.Runtime, name string) (bool, error) {
	v := vm.Get(name)
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return false, nil
	}
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return false, nil
	}
	if _, err := fn(goja.Undefined()); err != nil {
		return true, fmt.Errorf("%s(): %w", name, err)
	}
	return true, nil
}

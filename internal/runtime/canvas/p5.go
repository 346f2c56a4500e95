package canvas

import (
	"math"
	"math/rand"

	"github.com/dop251/goja"

	"github.com/threadline/artifactd/internal/runtime"
)

// sketchState drives a p5-style sketch: user code defines global setup/draw
// functions against an injected drawing API, then the host calls setup once
// and draw for a bounded number of frames.
type sketchState struct {
	surface   *Surface
	maxFrames int
	frames    int
	looping   bool
}

// install provisions the p5 global API on the realm VM.
func (st *sketchState) install(vm *goja.Runtime, post func(runtime.Message) bool) error {
	return st.installAPI(vm)
}

func (st *sketchState) installAPI(vm *goja.Runtime) error {
	s := st.surface
	st.looping = true

	w, h := s.Size()
	vm.Set("width", w)
	vm.Set("height", h)
	vm.Set("frameCount", 0)
	vm.Set("PI", math.Pi)
	vm.Set("TWO_PI", 2*math.Pi)
	vm.Set("HALF_PI", math.Pi/2)

	vm.Set("createCanvas", func(call goja.FunctionCall) goja.Value {
		nw, nh := s.Resize(int(floatArg(call, 0)), int(floatArg(call, 1)))
		vm.Set("width", nw)
		vm.Set("height", nh)
		return goja.Undefined()
	})
	vm.Set("background", func(call goja.FunctionCall) goja.Value {
		if c, ok := parseColor(exportArgs(call)); ok {
			s.Clear(c)
		}
		return goja.Undefined()
	})
	vm.Set("fill", colorSetter(s.SetFill))
	vm.Set("stroke", colorSetter(s.SetStroke))
	vm.Set("noFill", func(call goja.FunctionCall) goja.Value {
		s.NoFill()
		return goja.Undefined()
	})
	vm.Set("noStroke", func(call goja.FunctionCall) goja.Value {
		s.NoStroke()
		return goja.Undefined()
	})
	vm.Set("strokeWeight", func(call goja.FunctionCall) goja.Value {
		s.SetWeight(floatArg(call, 0))
		return goja.Undefined()
	})
	vm.Set("noLoop", func(call goja.FunctionCall) goja.Value {
		st.looping = false
		return goja.Undefined()
	})

	vm.Set("rect", func(call goja.FunctionCall) goja.Value {
		s.Rect(floatArg(call, 0), floatArg(call, 1), floatArg(call, 2), floatArg(call, 3))
		return goja.Undefined()
	})
	vm.Set("square", func(call goja.FunctionCall) goja.Value {
		side := floatArg(call, 2)
		s.Rect(floatArg(call, 0), floatArg(call, 1), side, side)
		return goja.Undefined()
	})
	vm.Set("ellipse", func(call goja.FunctionCall) goja.Value {
		// p5 ellipse takes diameters, not radii.
		s.Ellipse(floatArg(call, 0), floatArg(call, 1), floatArg(call, 2)/2, floatArg(call, 3)/2)
		return goja.Undefined()
	})
	vm.Set("circle", func(call goja.FunctionCall) goja.Value {
		s.Circle(floatArg(call, 0), floatArg(call, 1), floatArg(call, 2)/2)
		return goja.Undefined()
	})
	vm.Set("line", func(call goja.FunctionCall) goja.Value {
		s.Line(floatArg(call, 0), floatArg(call, 1), floatArg(call, 2), floatArg(call, 3))
		return goja.Undefined()
	})
	vm.Set("triangle", func(call goja.FunctionCall) goja.Value {
		s.Triangle(
			floatArg(call, 0), floatArg(call, 1),
			floatArg(call, 2), floatArg(call, 3),
			floatArg(call, 4), floatArg(call, 5),
		)
		return goja.Undefined()
	})
	vm.Set("point", func(call goja.FunctionCall) goja.Value {
		s.Point(floatArg(call, 0), floatArg(call, 1))
		return goja.Undefined()
	})

	vm.Set("random", func(call goja.FunctionCall) goja.Value {
		switch len(call.Arguments) {
		case 0:
			return vm.ToValue(rand.Float64())
		case 1:
			return vm.ToValue(rand.Float64() * floatArg(call, 0))
		default:
			lo, hi := floatArg(call, 0), floatArg(call, 1)
			return vm.ToValue(lo + rand.Float64()*(hi-lo))
		}
	})
	return nil
}

// play runs the sketch lifecycle: setup once, then draw for up to maxFrames
// frames. A sketch with neither entry point already ran its top-level code,
// which is enough for static drawings.
func (st *sketchState) play(vm *goja.Runtime) error {
	if _, err := callSketchFunc(vm, "setup"); err != nil {
		return err
	}

	for st.frames = 0; st.frames < st.maxFrames && st.looping; {
		st.frames++
		vm.Set("frameCount", st.frames)
		ran, err := callSketchFunc(vm, "draw")
		if err != nil {
			return err
		}
		if !ran {
			break
		}
	}
	return nil
}

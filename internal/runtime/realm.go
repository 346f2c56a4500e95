package runtime

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/dop251/goja"
)

// realm is one isolated JavaScript execution context. It owns a private VM,
// posts structured messages to the host over a channel, and is destroyed by
// a non-cooperative kill: once killed, pending posts abort and the VM is
// interrupted regardless of what the guest script is doing.
type realm struct {
	vm       *goja.Runtime
	out      chan Message
	killed   chan struct{}
	killOnce sync.Once

	maxLog int
	logged int // console entries posted; VM goroutine only
}

// newRealm creates a realm with its globals locked down and the console
// bridge installed.
func newRealm(prog Program, maxLog int) (*realm, error) {
	r := &realm{
		vm:     goja.New(),
		out:    make(chan Message, maxLog+16),
		killed: make(chan struct{}),
		maxLog: maxLog,
	}
	r.vm.SetMaxCallStackSize(1024)

	if err := r.setupGlobals(); err != nil {
		return nil, err
	}
	if prog.Setup != nil {
		if err := prog.Setup(r.vm, r.post); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// setupGlobals strips host-reaching globals and installs the console bridge.
func (r *realm) setupGlobals() error {
	r.vm.Set("require", goja.Undefined())
	r.vm.Set("process", goja.Undefined())
	r.vm.Set("module", goja.Undefined())
	r.vm.Set("exports", goja.Undefined())

	// Timers are stubs: the realm has no event loop, so deferred work
	// would outlive the run.
	noop := func(call goja.FunctionCall) goja.Value { return goja.Undefined() }
	r.vm.Set("setTimeout", noop)
	r.vm.Set("setInterval", noop)
	r.vm.Set("clearTimeout", noop)
	r.vm.Set("clearInterval", noop)

	console := r.vm.NewObject()
	for _, kind := range []Kind{KindLog, KindWarn, KindError, KindInfo} {
		if err := console.Set(string(kind), r.makeConsoleFunc(kind)); err != nil {
			return err
		}
	}
	return r.vm.Set("console", console)
}

// makeConsoleFunc builds one console.* override that serializes each argument
// and posts a structured message to the host.
func (r *realm) makeConsoleFunc(kind Kind) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		if r.logged >= r.maxLog {
			return goja.Undefined()
		}
		r.logged++

		args := make([]string, 0, len(call.Arguments))
		for _, arg := range call.Arguments {
			args = append(args, serializeArg(arg))
		}
		r.post(LogMessage{Kind: kind, Args: args})
		return goja.Undefined()
	}
}

// serializeArg renders one console argument: objects as JSON, everything
// else via string coercion. Serialization failures fall back to coercion.
func serializeArg(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if goja.IsNull(v) {
		return "null"
	}

	switch v.Export().(type) {
	case map[string]any, []any:
		if s, err := sonic.MarshalString(v.Export()); err == nil {
			return s
		}
	}
	return v.String()
}

// post delivers a message to the host. It returns false once the realm has
// been killed, so a guest blocked on a full channel cannot outlive the run.
func (r *realm) post(m Message) bool {
	select {
	case r.out <- m:
		return true
	case <-r.killed:
		return false
	}
}

// run evaluates the program on the calling goroutine. Exactly one terminal
// message is posted: done on success, error on an uncaught exception. An
// interrupted run posts nothing; the controller owns that outcome.
func (r *realm) run(prog Program) {
	_, err := r.vm.RunString(prog.Source)
	if err == nil && prog.After != nil {
		err = prog.After(r.vm, r.post)
	}

	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return
		}
		r.post(ErrorMessage{Err: formatException(err)})
		return
	}
	r.post(DoneMessage{})
}

// kill destroys the realm: pending posts abort and the VM interpreter loop
// is interrupted at its next check. Safe to call more than once.
func (r *realm) kill() {
	r.killOnce.Do(func() {
		close(r.killed)
		r.vm.Interrupt("execution aborted")
	})
}

// formatException extracts a user-facing message from a goja error, keeping
// the thrown value and position context where available.
func formatException(err error) string {
	var exc *goja.Exception
	if errors.As(err, &exc) {
		return exc.String()
	}
	return fmt.Sprintf("%v", err)
}

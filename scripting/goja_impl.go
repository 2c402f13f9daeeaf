package scripting

import (
	"context"

	"github.com/dop251/goja"
)

type GojaEngine struct {
	vm *goja.Runtime
}

func NewEngine() *GojaEngine {
	vm := goja.New()
	return &GojaEngine{vm: vm}
}

func (e *GojaEngine) Execute(ctx context.Context, script string) (interface{}, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	defer close(done)
	defer e.vm.ClearInterrupt()

	go func() {
		select {
		case <-ctx.Done():
			e.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	val, err := e.vm.RunString(script)
	if err != nil {
		if interruptedErr, ok := err.(*goja.InterruptedError); ok {
			if cause := interruptedErr.Unwrap(); cause != nil {
				return nil, cause
			}
			return nil, context.Canceled
		}
		return nil, err
	}
	if val == nil {
		return nil, nil
	}
	return val.Export(), nil
}

// SetGlobal exposes a Go value to scripts under name.
func (e *GojaEngine) SetGlobal(name string, value interface{}) error {
	return e.vm.Set(name, value)
}

// intervalRecorder is implemented by DOMs that want to see app.setInterval calls.
type intervalRecorder interface {
	addInterval(expr string)
}

func (e *GojaEngine) RegisterDOM(dom PDFDOM) error {
	appObj := e.vm.NewObject()
	err := appObj.Set("alert", func(call goja.FunctionCall) goja.Value {
		msg := ""
		if len(call.Arguments) > 0 {
			msg = call.Arguments[0].String()
		}
		dom.Alert(msg)
		return goja.Undefined()
	})
	if err != nil {
		return err
	}

	// Timers are recorded, never fired: a dry run executes the open script once.
	timer := func(call goja.FunctionCall) goja.Value {
		if rec, ok := dom.(intervalRecorder); ok && len(call.Arguments) > 0 {
			rec.addInterval(call.Arguments[0].String())
		}
		return e.vm.NewObject()
	}
	for _, name := range []string{"setInterval", "setTimeOut"} {
		if err := appObj.Set(name, timer); err != nil {
			return err
		}
	}
	for _, name := range []string{"clearInterval", "clearTimeOut"} {
		if err := appObj.Set(name, func(goja.FunctionCall) goja.Value { return goja.Undefined() }); err != nil {
			return err
		}
	}
	if err := e.vm.Set("app", appObj); err != nil {
		return err
	}

	// Doc methods are global, as if 'this' is the Doc.
	err = e.vm.Set("getField", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 1 {
			return goja.Undefined()
		}
		name := call.Arguments[0].String()
		field, err := dom.GetField(name)
		if err != nil || field == nil {
			return goja.Null()
		}

		obj := e.vm.NewObject()
		obj.DefineAccessorProperty("value",
			e.vm.ToValue(func(call goja.FunctionCall) goja.Value {
				return e.vm.ToValue(field.GetValue())
			}),
			e.vm.ToValue(func(call goja.FunctionCall) goja.Value {
				if len(call.Arguments) > 0 {
					field.SetValue(call.Arguments[0].Export())
				}
				return goja.Undefined()
			}),
			goja.FLAG_TRUE, // Configurable
			goja.FLAG_TRUE, // Enumerable
		)
		return obj
	})
	if err != nil {
		return err
	}

	return e.vm.Set("getPage", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 1 {
			return goja.Undefined()
		}
		idx := int(call.Arguments[0].ToInteger())
		page, err := dom.GetPage(idx)
		if err != nil || page == nil {
			return goja.Null()
		}
		return e.vm.ToValue(map[string]interface{}{"index": page.GetIndex()})
	})
}

// DryRun executes script once against dom in a fresh runtime. It returns
// the script's uncaught error, if any; errors caught by Guard surface as
// alerts on dom instead.
func DryRun(ctx context.Context, script string, dom PDFDOM) error {
	e := NewEngine()
	if err := e.RegisterDOM(dom); err != nil {
		return err
	}
	_, err := e.Execute(ctx, script)
	return err
}

// DryRunKeystroke executes a keystroke script with event.change set to change.
func DryRunKeystroke(ctx context.Context, script, change string, dom PDFDOM) error {
	e := NewEngine()
	if err := e.RegisterDOM(dom); err != nil {
		return err
	}
	if err := e.SetGlobal("event", map[string]interface{}{"change": change, "rc": true}); err != nil {
		return err
	}
	_, err := e.Execute(ctx, script)
	return err
}

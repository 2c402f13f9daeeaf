package scripting

import (
	"fmt"
	"strings"

	"github.com/dop251/goja"

	"github.com/wudi/pdfconsole/ir/raw"
	"github.com/wudi/pdfconsole/observability"
)

// Trigger is a key of an additional-actions (AA) dictionary.
type Trigger string

const (
	// TriggerOpen runs when the page is opened (page AA /O).
	TriggerOpen Trigger = "O"
	// TriggerKeystroke runs when the user types into a field (field AA /K).
	TriggerKeystroke Trigger = "K"
)

// DefaultKeystrokeScript forwards each typed character to the payload's key handler.
const DefaultKeystrokeScript = "key_pressed(event.change);"

// Guard wraps script so that an exception surfaces through app.alert instead
// of aborting the document load.
func Guard(script string) string {
	var b strings.Builder
	b.Grow(len(script) + 64)
	b.WriteString("try {\n")
	b.WriteString(script)
	b.WriteString("\n} catch (e) {\n  app.alert(e.stack || e);\n}\n")
	return b.String()
}

// ScriptError reports a script that failed the bind-time syntax check.
type ScriptError struct {
	Trigger Trigger
	Err     error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("script for trigger %s: %v", e.Trigger, e.Err)
}

func (e *ScriptError) Unwrap() error { return e.Err }

// BinderOption configures a Binder.
type BinderOption func(*Binder)

// WithSyntaxCheck compiles every script with goja before binding it.
func WithSyntaxCheck(on bool) BinderOption {
	return func(b *Binder) { b.checkSyntax = on }
}

// WithBinderLogger sets the binder's logger.
func WithBinderLogger(l observability.Logger) BinderOption {
	return func(b *Binder) {
		if l != nil {
			b.log = l
		}
	}
}

// Binder splices JavaScript actions into page and field dictionaries of doc.
// Each script is stored once, as an indirect stream referenced from /JS.
type Binder struct {
	doc         *raw.Document
	log         observability.Logger
	checkSyntax bool
}

// NewBinder returns a binder that allocates its script streams in doc.
func NewBinder(doc *raw.Document, opts ...BinderOption) *Binder {
	b := &Binder{doc: doc, log: observability.NopLogger{}}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BindOpen guards script and installs it as the page's open action.
func (b *Binder) BindOpen(page *raw.DictObj, script string) (raw.ObjectRef, error) {
	return b.Bind(page, TriggerOpen, Guard(script))
}

// BindKeystroke installs script, unguarded, as the field's keystroke action.
func (b *Binder) BindKeystroke(field *raw.DictObj, script string) (raw.ObjectRef, error) {
	return b.Bind(field, TriggerKeystroke, script)
}

// Bind installs script verbatim under target's AA dictionary at trigger,
// replacing any action already bound there. It returns the script stream.
func (b *Binder) Bind(target *raw.DictObj, trigger Trigger, script string) (raw.ObjectRef, error) {
	if target == nil {
		return raw.ObjectRef{}, fmt.Errorf("bind %s: nil target dictionary", trigger)
	}
	if b.checkSyntax {
		if _, err := goja.Compile(string(trigger), script, false); err != nil {
			return raw.ObjectRef{}, &ScriptError{Trigger: trigger, Err: err}
		}
	}

	ref, err := b.doc.Add(raw.NewStream(raw.Dict(), []byte(script)))
	if err != nil {
		return raw.ObjectRef{}, err
	}

	action := raw.Dict()
	action.Set("Type", raw.NameLiteral("Action"))
	action.Set("S", raw.NameLiteral("JavaScript"))
	action.Set("JS", raw.RefTo(ref))

	aa, ok := additionalActions(target)
	if !ok {
		aa = raw.Dict()
		target.Set("AA", aa)
	}
	aa.Set(string(trigger), action)

	b.log.Debug("script bound",
		observability.String("trigger", string(trigger)),
		observability.Int("obj", ref.Num),
		observability.Int("bytes", len(script)))
	return ref, nil
}

func additionalActions(target *raw.DictObj) (*raw.DictObj, bool) {
	obj, ok := target.Get("AA")
	if !ok {
		return nil, false
	}
	aa, ok := obj.(*raw.DictObj)
	return aa, ok
}

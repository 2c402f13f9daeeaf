package builder

import (
	"fmt"

	"github.com/wudi/pdfconsole/ir/raw"
	"github.com/wudi/pdfconsole/layout"
	"github.com/wudi/pdfconsole/observability"
)

// Field flag bits (Ff).
const (
	// FlagReadOnly is bit 2 of Ff; display fields carry it so only scripts
	// change their values.
	FlagReadOnly = 1 << 1

	// Annotation flag "Print".
	annotPrint = 1 << 2
)

// FontResourceName is the resource name of the built-in font used by text fields.
const FontResourceName = "F1"

// Widget is one merged text field / widget annotation.
type Widget struct {
	Name       string
	Kind       layout.Kind
	Ref        raw.ObjectRef
	Dict       *raw.DictObj
	Appearance raw.ObjectRef
}

// DuplicateFieldNameError is returned when two widgets share a field name.
type DuplicateFieldNameError struct {
	Name string
}

func (e *DuplicateFieldNameError) Error() string {
	return fmt.Sprintf("duplicate field name %q", e.Name)
}

// AddWidget allocates the appearance stream and widget annotation for e and
// appends the widget to the page's Annots and the form's Fields.
func (b *Builder) AddWidget(e layout.Entry) (*Widget, error) {
	if b.finished {
		return nil, ErrFinished
	}
	if _, ok := b.widgets[e.Name]; ok {
		return nil, &DuplicateFieldNameError{Name: e.Name}
	}

	apRef, err := b.doc.Add(newAppearance(e))
	if err != nil {
		return nil, err
	}

	dict := raw.Dict()
	dict.Set("Type", raw.NameLiteral("Annot"))
	dict.Set("Subtype", raw.NameLiteral("Widget"))
	dict.Set("FT", raw.NameLiteral("Tx"))
	dict.Set("T", raw.Str([]byte(e.Name)))
	dict.Set("Rect", rectArray(e.Rect))
	dict.Set("F", raw.NumberInt(annotPrint))
	if e.Kind == layout.Display {
		dict.Set("Ff", raw.NumberInt(FlagReadOnly))
	}
	dict.Set("V", raw.Str([]byte(e.Value)))
	if e.FontSize > 0 {
		dict.Set("DA", raw.Str([]byte(fmt.Sprintf("/%s %s Tf 0 g", FontResourceName, formatNumber(e.FontSize)))))
		b.needsFont = true
	}
	if e.MaxLen > 0 {
		dict.Set("MaxLen", raw.NumberInt(int64(e.MaxLen)))
	}
	dict.Set("P", raw.RefTo(b.pageRef))
	ap := raw.Dict()
	ap.Set("N", raw.RefTo(apRef))
	dict.Set("AP", ap)

	ref, err := b.doc.Add(dict)
	if err != nil {
		return nil, err
	}

	w := &Widget{Name: e.Name, Kind: e.Kind, Ref: ref, Dict: dict, Appearance: apRef}
	b.widgets[e.Name] = w
	b.order = append(b.order, w)
	b.annots.Append(raw.RefTo(ref))
	b.fields.Append(raw.RefTo(ref))
	b.log.Debug("widget added",
		observability.String("name", e.Name),
		observability.String("kind", e.Kind.String()),
		observability.Int("obj", ref.Num))
	return w, nil
}

package builder

import (
	"errors"

	"github.com/wudi/pdfconsole/ir/raw"
	"github.com/wudi/pdfconsole/layout"
	"github.com/wudi/pdfconsole/observability"
)

// ErrFinished is returned when widgets are added after Finish.
var ErrFinished = errors.New("builder already finished")

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger used for per-object debug output.
func WithLogger(l observability.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.log = l
		}
	}
}

// WithVersion sets the PDF header version of the produced document.
func WithVersion(v string) Option {
	return func(b *Builder) {
		if v != "" {
			b.doc.Version = v
		}
	}
}

// Builder assembles a one-page document whose page carries interactive text
// fields. Catalog, page tree node and page are allocated up front so widgets
// can reference the page before it is complete.
type Builder struct {
	doc *raw.Document
	log observability.Logger

	catalogRef raw.ObjectRef
	pagesRef   raw.ObjectRef
	pageRef    raw.ObjectRef
	page       *raw.DictObj
	annots     *raw.ArrayObj
	fields     *raw.ArrayObj

	widgets   map[string]*Widget
	order     []*Widget
	needsFont bool
	finished  bool
}

// New allocates the catalog, page tree node and page for a page of the given size.
func New(mediaBox layout.Rect, opts ...Option) (*Builder, error) {
	b := &Builder{
		doc:     raw.NewDocument(),
		log:     observability.NopLogger{},
		annots:  raw.NewArray(),
		fields:  raw.NewArray(),
		widgets: make(map[string]*Widget),
	}
	for _, opt := range opts {
		opt(b)
	}

	var err error
	if b.catalogRef, err = b.doc.Allocate(); err != nil {
		return nil, err
	}
	if b.pagesRef, err = b.doc.Allocate(); err != nil {
		return nil, err
	}
	if b.pageRef, err = b.doc.Allocate(); err != nil {
		return nil, err
	}
	b.doc.SetRoot(b.catalogRef)

	b.page = raw.Dict()
	b.page.Set("Type", raw.NameLiteral("Page"))
	b.page.Set("Parent", raw.RefTo(b.pagesRef))
	b.page.Set("MediaBox", rectArray(pageBox(mediaBox)))
	b.page.Set("Annots", b.annots)
	if err := b.doc.Define(b.pageRef, b.page); err != nil {
		return nil, err
	}
	return b, nil
}

// pageBox keeps the media box at least one unit in each direction so that
// empty layouts still produce a loadable page.
func pageBox(r layout.Rect) layout.Rect {
	if r.URX-r.LLX < 1 {
		r.URX = r.LLX + 1
	}
	if r.URY-r.LLY < 1 {
		r.URY = r.LLY + 1
	}
	return r
}

// Finish closes the object graph: it defines the font, page tree and catalog
// so that every object the page reaches is defined.
func (b *Builder) Finish() (*Display, error) {
	if b.finished {
		return nil, ErrFinished
	}

	acroForm := raw.Dict()
	acroForm.Set("Fields", b.fields)
	if b.needsFont {
		fontRef, err := b.doc.Add(helvetica())
		if err != nil {
			return nil, err
		}
		b.page.Set("Resources", fontResources(fontRef))
		acroForm.Set("DR", fontResources(fontRef))
		acroForm.Set("DA", raw.Str([]byte("/"+FontResourceName+" 0 Tf 0 g")))
	}

	pages := raw.Dict()
	pages.Set("Type", raw.NameLiteral("Pages"))
	pages.Set("Kids", raw.NewArray(raw.RefTo(b.pageRef)))
	pages.Set("Count", raw.NumberInt(1))
	if err := b.doc.Define(b.pagesRef, pages); err != nil {
		return nil, err
	}

	catalog := raw.Dict()
	catalog.Set("Type", raw.NameLiteral("Catalog"))
	catalog.Set("Pages", raw.RefTo(b.pagesRef))
	catalog.Set("AcroForm", acroForm)
	if err := b.doc.Define(b.catalogRef, catalog); err != nil {
		return nil, err
	}

	b.finished = true
	b.log.Info("document built",
		observability.Int(observability.MetricObjectCount, b.doc.Count()),
		observability.Int(observability.MetricWidgetCount, len(b.order)))

	byName := make(map[string]*Widget, len(b.widgets))
	for k, v := range b.widgets {
		byName[k] = v
	}
	return &Display{
		Doc:     b.doc,
		Page:    b.page,
		PageRef: b.pageRef,
		widgets: append([]*Widget(nil), b.order...),
		byName:  byName,
	}, nil
}

// Build lays out every entry of l on one page and closes the graph.
func Build(l *layout.Layout, opts ...Option) (*Display, error) {
	if l == nil {
		return nil, errors.New("nil layout")
	}
	b, err := New(l.MediaBox, opts...)
	if err != nil {
		return nil, err
	}
	for _, e := range l.Entries {
		if _, err := b.AddWidget(e); err != nil {
			return nil, err
		}
	}
	return b.Finish()
}

func helvetica() *raw.DictObj {
	font := raw.Dict()
	font.Set("Type", raw.NameLiteral("Font"))
	font.Set("Subtype", raw.NameLiteral("Type1"))
	font.Set("BaseFont", raw.NameLiteral("Helvetica"))
	font.Set("Encoding", raw.NameLiteral("WinAnsiEncoding"))
	return font
}

func fontResources(fontRef raw.ObjectRef) *raw.DictObj {
	fonts := raw.Dict()
	fonts.Set(FontResourceName, raw.RefTo(fontRef))
	res := raw.Dict()
	res.Set("Font", fonts)
	return res
}

// Display is a built document together with handles on its page and fields,
// ready for script binding and serialization.
type Display struct {
	Doc     *raw.Document
	Page    *raw.DictObj
	PageRef raw.ObjectRef

	widgets []*Widget
	byName  map[string]*Widget
}

// Field returns the widget named name.
func (d *Display) Field(name string) (*Widget, bool) {
	w, ok := d.byName[name]
	return w, ok
}

// Widgets returns the widgets in creation order.
func (d *Display) Widgets() []*Widget { return d.widgets }

// Annotations returns the page's Annots array.
func (d *Display) Annotations() *raw.ArrayObj {
	if obj, ok := d.Page.Get("Annots"); ok {
		if arr, ok := obj.(*raw.ArrayObj); ok {
			return arr
		}
	}
	return raw.NewArray()
}

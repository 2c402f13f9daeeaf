package writer

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/wudi/pdfconsole/ir/raw"
	"github.com/wudi/pdfconsole/xref"
)

type staticCtx struct{}

func (staticCtx) Done() <-chan struct{} { return nil }

// buildDoc returns a minimal one-page document with a forward-referenced
// content stream.
func buildDoc(t *testing.T) *raw.Document {
	t.Helper()
	doc := raw.NewDocument()
	catalogRef, _ := doc.Allocate()
	pagesRef, _ := doc.Allocate()
	pageRef, _ := doc.Allocate()
	contentRef, _ := doc.Allocate()

	catalog := raw.Dict()
	catalog.Set("Type", raw.NameLiteral("Catalog"))
	catalog.Set("Pages", raw.RefTo(pagesRef))
	pages := raw.Dict()
	pages.Set("Type", raw.NameLiteral("Pages"))
	pages.Set("Kids", raw.NewArray(raw.RefTo(pageRef)))
	pages.Set("Count", raw.NumberInt(1))
	page := raw.Dict()
	page.Set("Type", raw.NameLiteral("Page"))
	page.Set("Parent", raw.RefTo(pagesRef))
	page.Set("MediaBox", raw.NewArray(raw.NumberInt(0), raw.NumberInt(0), raw.NumberInt(720), raw.NumberFloat(20.5)))
	page.Set("Contents", raw.RefTo(contentRef))

	for ref, obj := range map[raw.ObjectRef]raw.Object{
		catalogRef: catalog,
		pagesRef:   pages,
		pageRef:    page,
		contentRef: raw.NewStream(nil, []byte("0 0 1 rg\n0 0 720 2 re\nf")),
	} {
		if err := doc.Define(ref, obj); err != nil {
			t.Fatalf("define %v: %v", ref, err)
		}
	}
	doc.SetRoot(catalogRef)
	return doc
}

func TestWriter_RoundTripVerify(t *testing.T) {
	doc := buildDoc(t)
	var buf bytes.Buffer
	if err := (&WriterBuilder{}).Build().Write(staticCtx{}, doc, &buf, Config{}); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.Bytes()
	if !bytes.HasPrefix(out, []byte("%PDF-1.7\n")) {
		t.Fatalf("missing header: %q", out[:16])
	}
	if !bytes.HasSuffix(out, []byte("%%EOF\n")) {
		t.Fatalf("missing EOF marker")
	}

	rep, err := xref.Verify(context.Background(), out)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if rep.Objects != 4 || rep.Streams != 1 {
		t.Fatalf("unexpected report %+v", rep)
	}
	if !bytes.Contains(out, []byte("/MediaBox [0 0 720 20.5]")) {
		t.Fatalf("media box not serialized as expected:\n%s", out)
	}
	if !bytes.Contains(out, []byte("<</Length 23>>\nstream\n0 0 1 rg\n0 0 720 2 re\nf\nendstream")) {
		t.Fatalf("stream not serialized as expected:\n%s", out)
	}
	if !bytes.Contains(out, []byte("trailer\n<</Size 5 /Root 1 0 R>>")) {
		t.Fatalf("unexpected trailer:\n%s", out)
	}
}

func TestWriter_XRefEntriesAreFixedWidth(t *testing.T) {
	var buf bytes.Buffer
	if err := (&WriterBuilder{}).Build().Write(staticCtx{}, buildDoc(t), &buf, Config{}); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	section := out[strings.Index(out, "xref\n"):strings.Index(out, "trailer")]
	lines := strings.Split(strings.TrimSuffix(section, "\n"), "\n")[2:]
	if len(lines) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(lines))
	}
	entry := regexp.MustCompile(`^\d{10} \d{5} [fn] $`)
	for _, l := range lines {
		if !entry.MatchString(l) {
			t.Fatalf("malformed xref entry %q", l)
		}
	}
	if lines[0] != "0000000000 65535 f " {
		t.Fatalf("object 0 must be the free-list head, got %q", lines[0])
	}
}

func TestWriter_Idempotent(t *testing.T) {
	doc := buildDoc(t)
	w := (&WriterBuilder{}).Build()
	var a, b bytes.Buffer
	if err := w.Write(staticCtx{}, doc, &a, Config{FileID: true}); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := w.Write(staticCtx{}, doc, &b, Config{FileID: true}); err != nil {
		t.Fatalf("second write: %v", err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Fatalf("serializing twice must be byte-identical")
	}
	if !regexp.MustCompile(`/ID \[<[0-9A-F]{32}> <[0-9A-F]{32}>\]`).Match(a.Bytes()) {
		t.Fatalf("expected hex /ID in trailer")
	}
	if _, ok := mustStream(t, doc, 4).Dict.Get("Length"); ok {
		t.Fatalf("Length must not be stored back into the stream dictionary")
	}
}

func mustStream(t *testing.T, doc *raw.Document, num int) *raw.StreamObj {
	t.Helper()
	obj, err := doc.Resolve(raw.ObjectRef{Num: num})
	if err != nil {
		t.Fatal(err)
	}
	return obj.(*raw.StreamObj)
}

func TestWriter_DanglingObject(t *testing.T) {
	doc := buildDoc(t)
	doc.Allocate()

	var buf bytes.Buffer
	err := (&WriterBuilder{}).Build().Write(staticCtx{}, doc, &buf, Config{})
	var dangling *raw.DanglingObjectError
	if !errors.As(err, &dangling) {
		t.Fatalf("expected DanglingObjectError, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("no bytes may be written on failure, got %d", buf.Len())
	}
}

func TestWriter_UndefinedReference(t *testing.T) {
	doc := buildDoc(t)
	root, _ := doc.Resolve(doc.Root())
	root.(*raw.DictObj).Set("Outlines", raw.Ref(42, 0))

	var buf bytes.Buffer
	err := (&WriterBuilder{}).Build().Write(staticCtx{}, doc, &buf, Config{})
	var refErr *raw.ReferenceError
	if !errors.As(err, &refErr) || refErr.Ref.Num != 42 {
		t.Fatalf("expected ReferenceError for 42, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("no bytes may be written on failure")
	}
}

func TestWriter_FreezesDocument(t *testing.T) {
	doc := buildDoc(t)
	var buf bytes.Buffer
	if err := (&WriterBuilder{}).Build().Write(staticCtx{}, doc, &buf, Config{}); err != nil {
		t.Fatal(err)
	}
	if _, err := doc.Allocate(); !errors.Is(err, raw.ErrFrozen) {
		t.Fatalf("expected ErrFrozen after serialization, got %v", err)
	}
}

type failingSink struct{}

func (failingSink) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriter_IOError(t *testing.T) {
	err := (&WriterBuilder{}).Build().Write(staticCtx{}, buildDoc(t), failingSink{}, Config{})
	var ioErr *IOError
	if !errors.As(err, &ioErr) || !strings.Contains(ioErr.Error(), "disk full") {
		t.Fatalf("expected IOError, got %v", err)
	}
}

type countingInterceptor struct {
	before, after int
	bytes         int64
}

func (c *countingInterceptor) BeforeWrite(Context, raw.ObjectRef, raw.Object) error {
	c.before++
	return nil
}

func (c *countingInterceptor) AfterWrite(_ Context, _ raw.ObjectRef, _ raw.Object, n int64) error {
	c.after++
	c.bytes += n
	return nil
}

func TestWriter_Interceptor(t *testing.T) {
	ic := &countingInterceptor{}
	var buf bytes.Buffer
	if err := (&WriterBuilder{}).WithInterceptor(ic).Build().Write(staticCtx{}, buildDoc(t), &buf, Config{}); err != nil {
		t.Fatal(err)
	}
	if ic.before != 4 || ic.after != 4 || ic.bytes <= 0 {
		t.Fatalf("unexpected interceptor counts %+v", ic)
	}
}

func TestWriter_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var buf bytes.Buffer
	if err := (&WriterBuilder{}).Build().Write(ctx, buildDoc(t), &buf, Config{}); err == nil {
		t.Fatalf("expected cancellation error")
	}
	if buf.Len() != 0 {
		t.Fatalf("no bytes may be written on cancellation")
	}
}

func TestSerializePrimitive(t *testing.T) {
	d := raw.Dict()
	d.Set("T", raw.Str([]byte("a(b)\\c\n")))
	d.Set("A B", raw.NameLiteral("x#y"))
	d.Set("N", raw.NullObj{})
	d.Set("On", raw.Bool(true))
	d.Set("Real", raw.NumberFloat(0.25))

	got := string(serializePrimitive(d))
	want := `<</T (a\(b\)\\c\n) /A#20B /x#23y /N null /On true /Real 0.25>>`
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestSerializeObject(t *testing.T) {
	w := (&WriterBuilder{}).Build()
	got, err := w.SerializeObject(raw.ObjectRef{Num: 7}, raw.NewArray(raw.Ref(1, 0), raw.NumberInt(-3)))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "7 0 obj\n[1 0 R -3]\nendobj\n" {
		t.Fatalf("unexpected record %q", got)
	}
}

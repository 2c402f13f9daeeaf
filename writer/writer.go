package writer

import (
	"fmt"
	"io"

	"github.com/wudi/pdfconsole/ir/raw"
	"github.com/wudi/pdfconsole/observability"
)

type PDFVersion string

const (
	PDF14 PDFVersion = "1.4"
	PDF17 PDFVersion = "1.7"
)

type Config struct {
	// Version overrides the document's header version when set.
	Version PDFVersion
	// FileID adds a deterministic /ID to the trailer, derived from the body bytes.
	FileID bool
}

// Writer serializes a raw document as a classic (table xref) PDF file.
type Writer interface {
	Write(ctx Context, doc *raw.Document, w io.Writer, cfg Config) error
	SerializeObject(ref raw.ObjectRef, obj raw.Object) ([]byte, error)
}

// Interceptor observes each indirect object as it is written.
type Interceptor interface {
	BeforeWrite(ctx Context, ref raw.ObjectRef, obj raw.Object) error
	AfterWrite(ctx Context, ref raw.ObjectRef, obj raw.Object, bytesWritten int64) error
}

type WriterBuilder struct {
	interceptors []Interceptor
	log          observability.Logger
}

func (b *WriterBuilder) WithInterceptor(i Interceptor) *WriterBuilder {
	b.interceptors = append(b.interceptors, i)
	return b
}

func (b *WriterBuilder) WithLogger(l observability.Logger) *WriterBuilder {
	b.log = l
	return b
}

func (b *WriterBuilder) Build() Writer {
	log := b.log
	if log == nil {
		log = observability.NopLogger{}
	}
	return &impl{interceptors: b.interceptors, log: log}
}

type Context interface{ Done() <-chan struct{} }

// IOError reports a failure of the destination sink.
type IOError struct {
	Err error
}

func (e *IOError) Error() string { return fmt.Sprintf("write pdf: %v", e.Err) }
func (e *IOError) Unwrap() error { return e.Err }

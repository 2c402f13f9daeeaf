package writer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/wudi/pdfconsole/ir/raw"
	"github.com/wudi/pdfconsole/observability"
)

// errCancelled is returned when the write context is done before output starts.
var errCancelled = errors.New("write cancelled")

type impl struct {
	interceptors []Interceptor
	log          observability.Logger
}

func (w *impl) SerializeObject(ref raw.ObjectRef, obj raw.Object) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d %d obj\n", ref.Num, ref.Gen)
	buf.Write(serializePrimitive(obj))
	buf.WriteString("\nendobj\n")
	return buf.Bytes(), nil
}

// Write freezes doc, checks that its object graph is closed and emits the
// whole file with a single call to out.Write. Nothing is written on error.
func (w *impl) Write(ctx Context, doc *raw.Document, out io.Writer, cfg Config) error {
	if doc == nil {
		return errors.New("nil document")
	}
	if cancelled(ctx) {
		return errCancelled
	}
	start := time.Now()

	doc.Freeze()
	if err := doc.Check(); err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-" + pdfVersion(doc, cfg) + "\n%\xE2\xE3\xCF\xD3\n")

	count := doc.Count()
	offsets := make([]int64, count+1)
	for num := 1; num <= count; num++ {
		if cancelled(ctx) {
			return errCancelled
		}
		ref := raw.ObjectRef{Num: num}
		obj, err := doc.Resolve(ref)
		if err != nil {
			return err
		}
		for _, ic := range w.interceptors {
			if err := ic.BeforeWrite(ctx, ref, obj); err != nil {
				return err
			}
		}
		offsets[num] = int64(buf.Len())
		serialized, err := w.SerializeObject(ref, obj)
		if err != nil {
			return err
		}
		buf.Write(serialized)
		for _, ic := range w.interceptors {
			if err := ic.AfterWrite(ctx, ref, obj, int64(len(serialized))); err != nil {
				return err
			}
		}
	}

	var ids [2][]byte
	if cfg.FileID {
		ids = fileID(buf.Bytes())
	}

	// XRef
	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", count+1)
	buf.WriteString("0000000000 65535 f \n")
	for num := 1; num <= count; num++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[num])
	}

	// Trailer
	buf.WriteString("trailer\n")
	buf.Write(serializePrimitive(buildTrailer(count+1, doc.Root(), ids)))
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)

	n, err := out.Write(buf.Bytes())
	if err != nil {
		return &IOError{Err: err}
	}
	if n != buf.Len() {
		return &IOError{Err: io.ErrShortWrite}
	}
	w.log.Info("pdf written",
		observability.Int(observability.MetricObjectCount, count),
		observability.Int64(observability.MetricBytesWritten, int64(n)),
		observability.Int64(observability.MetricWriteTime, time.Since(start).Microseconds()))
	return nil
}

func cancelled(ctx Context) bool {
	if ctx == nil {
		return false
	}
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

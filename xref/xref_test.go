package xref_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/wudi/pdfconsole/xref"
)

func buildSimplePDF(extra string) ([]byte, map[int]int64) {
	buf := &bytes.Buffer{}
	buf.WriteString("%PDF-1.7\n")

	offsets := make(map[int]int64)

	offsets[1] = int64(buf.Len())
	buf.WriteString("1 0 obj\n<</Type /Catalog /Pages 2 0 R" + extra + ">>\nendobj\n")

	offsets[2] = int64(buf.Len())
	buf.WriteString("2 0 obj\n<</Type /Pages /Count 0 /Kids []>>\nendobj\n")

	offsets[3] = int64(buf.Len())
	buf.WriteString("3 0 obj\n<</Length 13>>\nstream\nfoo(9 0 R);\nx\nendstream\nendobj\n")

	xrefOffset := buf.Len()
	buf.WriteString("xref\n0 4\n")
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i <= 3; i++ {
		buf.WriteString(fmt.Sprintf("%010d 00000 n \n", offsets[i]))
	}
	buf.WriteString("trailer\n<</Size 4 /Root 1 0 R>>\n")
	buf.WriteString("startxref\n")
	buf.WriteString(fmt.Sprintf("%d\n", xrefOffset))
	buf.WriteString("%%EOF\n")

	return buf.Bytes(), offsets
}

type readerAt struct {
	data []byte
}

func (r *readerAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(r.data)) {
		return 0, io.EOF
	}
	n := copy(p, r.data[off:])
	if off+int64(n) >= int64(len(r.data)) {
		return n, io.EOF
	}
	return n, nil
}

func TestResolverParsesXRefTable(t *testing.T) {
	pdf, offsets := buildSimplePDF("")

	table, err := xref.NewResolver().Resolve(context.Background(), &readerAt{data: pdf})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got := table.Objects(); len(got) != 3 {
		t.Fatalf("expected 3 in-use objects, got %v", got)
	}
	for num, want := range offsets {
		off, gen, ok := table.Lookup(num)
		if !ok || off != want || gen != 0 {
			t.Fatalf("object %d: got (%d,%d,%v) want offset %d", num, off, gen, ok, want)
		}
	}
	if _, _, ok := table.Lookup(0); ok {
		t.Fatalf("object 0 is the free-list head")
	}
	if tr := table.Trailer(); tr.Size != 4 || tr.Root != 1 {
		t.Fatalf("unexpected trailer %+v", tr)
	}
}

func TestVerify(t *testing.T) {
	pdf, offsets := buildSimplePDF("")
	rep, err := xref.Verify(context.Background(), pdf)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if rep.Objects != 3 || rep.Streams != 1 {
		t.Fatalf("unexpected report %+v", rep)
	}
	// Only the catalog's /Pages reference counts; "9 0 R" lives inside stream data.
	if rep.References != 1 {
		t.Fatalf("expected 1 reference, got %d", rep.References)
	}
	for num, off := range offsets {
		if rep.Headers[num] != off {
			t.Fatalf("object %d: header at %d, want %d", num, rep.Headers[num], off)
		}
	}
}

func TestVerify_MissingReference(t *testing.T) {
	pdf, _ := buildSimplePDF(" /Extra 7 0 R")
	_, err := xref.Verify(context.Background(), pdf)
	var verr *xref.VerifyError
	if !errors.As(err, &verr) || verr.Obj != 1 {
		t.Fatalf("expected VerifyError on object 1, got %v", err)
	}
}

func TestVerify_BadOffset(t *testing.T) {
	pdf, offsets := buildSimplePDF("")
	good := fmt.Sprintf("%010d 00000 n", offsets[2])
	bad := fmt.Sprintf("%010d 00000 n", offsets[2]+1)
	corrupted := []byte(strings.Replace(string(pdf), good, bad, 1))

	_, err := xref.Verify(context.Background(), corrupted)
	var verr *xref.VerifyError
	if !errors.As(err, &verr) || verr.Obj != 2 {
		t.Fatalf("expected VerifyError on object 2, got %v", err)
	}
}

func TestVerify_BadStreamLength(t *testing.T) {
	pdf, _ := buildSimplePDF("")
	corrupted := []byte(strings.Replace(string(pdf), "/Length 13", "/Length 12", 1))
	if _, err := xref.Verify(context.Background(), corrupted); err == nil {
		t.Fatalf("expected stream length mismatch")
	}
}

func TestResolver_NoStartXRef(t *testing.T) {
	if _, err := xref.NewResolver().Resolve(context.Background(), bytes.NewReader([]byte("%PDF-1.7\n"))); err == nil {
		t.Fatalf("expected error without startxref")
	}
}

func TestVerify_IgnoresReferencesInStrings(t *testing.T) {
	pdf, _ := buildSimplePDF(` /V (see 9 0 R \) (nested 8 0 R) 7 0 R) /H <3920302052>`)
	rep, err := xref.Verify(context.Background(), pdf)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if rep.References != 1 {
		t.Fatalf("expected only the /Pages reference, got %d", rep.References)
	}

	// A real reference after a string is still checked.
	pdf, _ = buildSimplePDF(` /V (a\\) 9 0 R`)
	_, err = xref.Verify(context.Background(), pdf)
	var verr *xref.VerifyError
	if !errors.As(err, &verr) || verr.Obj != 1 {
		t.Fatalf("expected VerifyError on object 1, got %v", err)
	}
}

func TestResolver_MalformedEntry(t *testing.T) {
	pdf, offsets := buildSimplePDF("")
	good := fmt.Sprintf("%010d 00000 n \n", offsets[3])
	bad := fmt.Sprintf("%010d 00000 x \n", offsets[3])
	corrupted := []byte(strings.Replace(string(pdf), good, bad, 1))
	if _, err := xref.NewResolver().Resolve(context.Background(), bytes.NewReader(corrupted)); err == nil {
		t.Fatalf("expected error for unknown entry type")
	}

	short := []byte(strings.Replace(string(pdf), good, fmt.Sprintf("%010d 0 n\n", offsets[3]), 1))
	if _, err := xref.NewResolver().Resolve(context.Background(), bytes.NewReader(short)); err == nil {
		t.Fatalf("expected error for short entry")
	}
}

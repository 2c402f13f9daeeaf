package xref

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
)

// VerifyError describes the first structural problem found by Verify.
type VerifyError struct {
	Obj    int
	Reason string
}

func (e *VerifyError) Error() string {
	if e.Obj == 0 {
		return "verify: " + e.Reason
	}
	return fmt.Sprintf("verify: object %d: %s", e.Obj, e.Reason)
}

// Report summarizes a successful verification.
type Report struct {
	Objects    int
	References int
	Streams    int
	// Headers maps each object number to the byte offset of its "N G obj" line.
	Headers map[int]int64
}

var (
	refRe    = regexp.MustCompile(`(\d+) (\d+) R\b`)
	lengthRe = regexp.MustCompile(`/Length (\d+)`)
)

// Verify checks a serialized file: every object number below /Size has an
// in-use xref entry whose offset is the start of its "N G obj" record, every
// indirect reference names such an object, stream lengths match their data
// and the trailer's /Root exists.
func Verify(ctx context.Context, data []byte) (*Report, error) {
	t, err := NewResolver().Resolve(ctx, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	tr := t.Trailer()
	if _, _, ok := t.Lookup(tr.Root); !ok {
		return nil, &VerifyError{Reason: fmt.Sprintf("trailer /Root %d has no xref entry", tr.Root)}
	}

	rep := &Report{Headers: make(map[int]int64)}
	for num := 1; num < tr.Size; num++ {
		off, gen, ok := t.Lookup(num)
		if !ok {
			return nil, &VerifyError{Obj: num, Reason: "no in-use xref entry"}
		}
		header := []byte(fmt.Sprintf("%d %d obj\n", num, gen))
		if off < 0 || off+int64(len(header)) > int64(len(data)) || !bytes.Equal(data[off:off+int64(len(header))], header) {
			return nil, &VerifyError{Obj: num, Reason: fmt.Sprintf("offset %d does not start its record", off)}
		}
		body, isStream, err := objectDict(data[off+int64(len(header)):])
		if err != nil {
			return nil, &VerifyError{Obj: num, Reason: err.Error()}
		}
		for _, m := range refRe.FindAllSubmatch(blankStrings(body), -1) {
			target, _ := strconv.Atoi(string(m[1]))
			if _, _, ok := t.Lookup(target); !ok || target >= tr.Size {
				return nil, &VerifyError{Obj: num, Reason: fmt.Sprintf("reference to missing object %d", target)}
			}
			rep.References++
		}
		if isStream {
			rep.Streams++
		}
		rep.Headers[num] = off
		rep.Objects++
	}
	return rep, nil
}

// objectDict returns the non-stream part of an object record and skips over
// stream data using its /Length, so script bytes are never scanned for
// references.
func objectDict(rec []byte) ([]byte, bool, error) {
	streamAt := bytes.Index(rec, []byte("\nstream\n"))
	endobjAt := bytes.Index(rec, []byte("\nendobj"))
	if streamAt < 0 || (endobjAt >= 0 && endobjAt < streamAt) {
		if endobjAt < 0 {
			return nil, false, fmt.Errorf("endobj not found")
		}
		return rec[:endobjAt], false, nil
	}

	dict := rec[:streamAt]
	m := lengthRe.FindSubmatch(dict)
	if m == nil {
		return nil, true, fmt.Errorf("stream without /Length")
	}
	length, _ := strconv.Atoi(string(m[1]))
	dataStart := streamAt + len("\nstream\n")
	tail := []byte("\nendstream\nendobj")
	end := dataStart + length
	if end+len(tail) > len(rec) || !bytes.Equal(rec[end:end+len(tail)], tail) {
		return nil, true, fmt.Errorf("stream /Length %d does not match data", length)
	}
	return dict, true, nil
}

// blankStrings returns a copy of body with the contents of literal and hex
// strings replaced by spaces, so field values never read as references.
func blankStrings(body []byte) []byte {
	out := append([]byte(nil), body...)
	for i := 0; i < len(out); i++ {
		switch {
		case out[i] == '(':
			i = blankLiteral(out, i+1)
		case out[i] == '<' && i+1 < len(out) && out[i+1] == '<':
			i++
		case out[i] == '<':
			for i++; i < len(out) && out[i] != '>'; i++ {
				out[i] = ' '
			}
		}
	}
	return out
}

// blankLiteral blanks a literal string from just after its opening
// parenthesis and returns the index of the balancing close.
func blankLiteral(out []byte, i int) int {
	depth := 1
	for ; i < len(out); i++ {
		switch out[i] {
		case '\\':
			out[i] = ' '
			if i+1 < len(out) {
				i++
				out[i] = ' '
			}
			continue
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
		out[i] = ' '
	}
	return i
}

package xref

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"sort"
	"strconv"
)

// Table holds object offsets for a classic xref table.
type Table interface {
	Lookup(objNum int) (offset int64, gen int, found bool)
	Objects() []int
	Trailer() Trailer
	Type() string
}

// Trailer carries the trailer keys the verifier needs.
type Trailer struct {
	Size int
	Root int
}

// Resolver locates and parses xref information in a PDF.
type Resolver interface {
	Resolve(ctx context.Context, r io.ReaderAt) (Table, error)
}

// NewResolver returns a classic-table resolver.
func NewResolver() Resolver {
	return &tableResolver{}
}

// tableResolver reads the single classic xref section of a file written in
// one pass: subsections of fixed 20-byte entries followed by the trailer.
type tableResolver struct{}

// entryWidth is the size of one xref entry including its two-byte EOL.
const entryWidth = 20

var (
	sizeRe = regexp.MustCompile(`/Size\s+(\d+)`)
	rootRe = regexp.MustCompile(`/Root\s+(\d+)\s+(\d+)\s+R`)
)

func (t *tableResolver) Resolve(ctx context.Context, r io.ReaderAt) (Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.NewSectionReader(r, 0, math.MaxInt64))
	if err != nil {
		return nil, err
	}
	offset, err := startXRef(data)
	if err != nil {
		return nil, err
	}

	p, ok := bytes.CutPrefix(data[offset:], []byte("xref"))
	if !ok {
		return nil, errors.New("xref keyword not found at offset")
	}
	p = bytes.TrimLeft(p, "\r\n")

	entries := make(map[int]entry)
	for !bytes.HasPrefix(p, []byte("trailer")) {
		header, rest, found := bytes.Cut(p, []byte("\n"))
		if !found {
			return nil, errors.New("trailer not found")
		}
		var first, count int
		if _, err := fmt.Sscanf(string(header), "%d %d", &first, &count); err != nil {
			return nil, fmt.Errorf("invalid xref subsection header %q", header)
		}
		p = rest
		for i := 0; i < count; i++ {
			if len(p) < entryWidth {
				return nil, errors.New("unexpected end of xref section")
			}
			e, inUse, err := parseEntry(p[:entryWidth])
			if err != nil {
				return nil, fmt.Errorf("xref entry %d: %w", first+i, err)
			}
			if inUse {
				entries[first+i] = e
			}
			p = p[entryWidth:]
		}
	}

	trailer := p[len("trailer"):]
	if end := bytes.Index(trailer, []byte("startxref")); end >= 0 {
		trailer = trailer[:end]
	}
	tr := Trailer{}
	m := sizeRe.FindSubmatch(trailer)
	if m == nil {
		return nil, errors.New("trailer has no /Size")
	}
	tr.Size, _ = strconv.Atoi(string(m[1]))
	if m = rootRe.FindSubmatch(trailer); m == nil {
		return nil, errors.New("trailer has no /Root")
	}
	tr.Root, _ = strconv.Atoi(string(m[1]))

	return &table{entries: entries, trailer: tr}, nil
}

func startXRef(data []byte) (int64, error) {
	at := bytes.LastIndex(data, []byte("startxref"))
	if at < 0 {
		return 0, errors.New("startxref not found")
	}
	fields := bytes.Fields(data[at+len("startxref"):])
	if len(fields) == 0 {
		return 0, errors.New("startxref has no offset")
	}
	offset, err := strconv.ParseInt(string(fields[0]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse startxref: %w", err)
	}
	if offset <= 0 || offset >= int64(len(data)) {
		return 0, fmt.Errorf("xref offset out of range: %d", offset)
	}
	return offset, nil
}

// parseEntry decodes "oooooooooo ggggg k" plus a two-byte EOL.
func parseEntry(rec []byte) (entry, bool, error) {
	eol := string(rec[18:])
	if rec[10] != ' ' || rec[16] != ' ' || (eol != " \n" && eol != " \r" && eol != "\r\n") {
		return entry{}, false, fmt.Errorf("malformed entry %q", rec)
	}
	off, err := strconv.ParseInt(string(rec[:10]), 10, 64)
	if err != nil {
		return entry{}, false, fmt.Errorf("parse offset: %w", err)
	}
	gen, err := strconv.Atoi(string(rec[11:16]))
	if err != nil {
		return entry{}, false, fmt.Errorf("parse generation: %w", err)
	}
	switch rec[17] {
	case 'n':
		return entry{offset: off, gen: gen}, true, nil
	case 'f':
		return entry{}, false, nil
	default:
		return entry{}, false, fmt.Errorf("unknown entry type %q", rec[17])
	}
}

type entry struct {
	offset int64
	gen    int
}

type table struct {
	entries map[int]entry
	trailer Trailer
}

func (t *table) Lookup(objNum int) (int64, int, bool) {
	e, ok := t.entries[objNum]
	if !ok {
		return 0, 0, false
	}
	return e.offset, e.gen, true
}

func (t *table) Objects() []int {
	out := make([]int, 0, len(t.entries))
	for k := range t.entries {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

func (t *table) Trailer() Trailer { return t.trailer }

func (t *table) Type() string { return "table" }

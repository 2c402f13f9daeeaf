package writer

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"golang.org/x/crypto/blake2b"

	"github.com/wudi/pdfconsole/ir/raw"
)

func pdfVersion(doc *raw.Document, cfg Config) string {
	if cfg.Version != "" {
		return string(cfg.Version)
	}
	if doc.Version != "" {
		return doc.Version
	}
	return string(PDF17)
}

// fileID derives both trailer ID halves from the serialized body, so the same
// document always gets the same ID.
func fileID(body []byte) [2][]byte {
	sum := blake2b.Sum256(body)
	id := make([]byte, 16)
	copy(id, sum[:16])
	idB := make([]byte, len(id))
	copy(idB, id)
	return [2][]byte{id, idB}
}

func buildTrailer(size int, catalogRef raw.ObjectRef, ids [2][]byte) *raw.DictObj {
	trailer := raw.Dict()
	trailer.Set("Size", raw.NumberInt(int64(size)))
	trailer.Set("Root", raw.RefTo(catalogRef))
	if len(ids[0]) > 0 {
		trailer.Set("ID", raw.NewArray(raw.HexStr(ids[0]), raw.HexStr(ids[1])))
	}
	return trailer
}

func escapeLiteralString(rawBytes []byte) []byte {
	var b bytes.Buffer
	b.WriteByte('(')
	for _, ch := range rawBytes {
		switch ch {
		case '\\', '(', ')':
			b.WriteByte('\\')
			b.WriteByte(ch)
		case '\n':
			b.WriteString("\\n")
		case '\r':
			b.WriteString("\\r")
		case '\t':
			b.WriteString("\\t")
		case '\b':
			b.WriteString("\\b")
		case '\f':
			b.WriteString("\\f")
		default:
			if ch < 0x20 || ch >= 0x80 {
				fmt.Fprintf(&b, "\\%03o", ch)
			} else {
				b.WriteByte(ch)
			}
		}
	}
	b.WriteByte(')')
	return b.Bytes()
}

func formatReal(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "0"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func serializePrimitive(o raw.Object) []byte {
	var b bytes.Buffer
	writePrimitive(&b, o)
	return b.Bytes()
}

func writePrimitive(b *bytes.Buffer, o raw.Object) {
	switch v := o.(type) {
	case raw.NameObj:
		b.WriteString("/" + pdfNameLiteral(v.Value()))
	case raw.NumberObj:
		if v.IsInteger() {
			b.WriteString(strconv.FormatInt(v.Int(), 10))
		} else {
			b.WriteString(formatReal(v.Float()))
		}
	case raw.BoolObj:
		if v.Value() {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case raw.NullObj:
		b.WriteString("null")
	case raw.StringObj:
		if v.IsHex() {
			fmt.Fprintf(b, "<%X>", v.Value())
		} else {
			b.Write(escapeLiteralString(v.Value()))
		}
	case *raw.ArrayObj:
		b.WriteByte('[')
		for i, it := range v.Items {
			if i > 0 {
				b.WriteByte(' ')
			}
			writePrimitive(b, it)
		}
		b.WriteByte(']')
	case *raw.DictObj:
		writeDict(b, v, -1)
	case *raw.StreamObj:
		writeDict(b, v.Dict, v.Length())
		b.WriteString("\nstream\n")
		b.Write(v.Data)
		b.WriteString("\nendstream")
	case raw.RefObj:
		fmt.Fprintf(b, "%d %d R", v.Ref().Num, v.Ref().Gen)
	default:
		b.WriteString("null")
	}
}

// writeDict writes d in insertion order. A non-negative length replaces any
// stored /Length and is written last.
func writeDict(b *bytes.Buffer, d *raw.DictObj, length int64) {
	b.WriteString("<<")
	first := true
	sep := func() {
		if !first {
			b.WriteByte(' ')
		}
		first = false
	}
	if d != nil {
		for _, k := range d.Keys() {
			if length >= 0 && k == "Length" {
				continue
			}
			val, _ := d.Get(k)
			sep()
			b.WriteString("/" + pdfNameLiteral(k) + " ")
			writePrimitive(b, val)
		}
	}
	if length >= 0 {
		sep()
		fmt.Fprintf(b, "/Length %d", length)
	}
	b.WriteString(">>")
}

// pdfNameLiteral escapes every byte outside the regular name characters as #XX.
func pdfNameLiteral(value string) string {
	var b bytes.Buffer
	for i := 0; i < len(value); i++ {
		ch := value[i]
		if (ch >= 'A' && ch <= 'Z') || (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9') || ch == '-' || ch == '_' || ch == '.' {
			b.WriteByte(ch)
			continue
		}
		fmt.Fprintf(&b, "#%02X", ch)
	}
	return b.String()
}

package builder

import (
	"bytes"
	"fmt"
	"image/color"
	"strconv"

	"github.com/wudi/pdfconsole/ir/raw"
	"github.com/wudi/pdfconsole/layout"
)

// FillProgram returns the content stream that paints a w×h rectangle in c,
// in the stream's own coordinate space (origin at the lower-left corner).
func FillProgram(c color.RGBA, width, height float64) []byte {
	var buf bytes.Buffer
	writeColor(&buf, c)
	fmt.Fprintf(&buf, "0 0 %s %s re\n", formatNumber(width), formatNumber(height))
	buf.WriteString("f\n")
	return buf.Bytes()
}

// newAppearance builds the normal appearance form XObject for e. Its BBox is
// local to the stream; the annotation's Rect places it on the page.
func newAppearance(e layout.Entry) *raw.StreamObj {
	w, h := e.Rect.Width(), e.Rect.Height()
	dict := raw.Dict()
	dict.Set("Type", raw.NameLiteral("XObject"))
	dict.Set("Subtype", raw.NameLiteral("Form"))
	dict.Set("BBox", raw.NewArray(raw.NumberInt(0), raw.NumberInt(0), raw.Number(w), raw.Number(h)))
	dict.Set("Matrix", identityMatrix())
	return raw.NewStream(dict, FillProgram(e.Fill, w, h))
}

func identityMatrix() *raw.ArrayObj {
	return raw.NewArray(raw.NumberInt(1), raw.NumberInt(0), raw.NumberInt(0), raw.NumberInt(1), raw.NumberInt(0), raw.NumberInt(0))
}

func writeColor(buf *bytes.Buffer, c color.RGBA) {
	fmt.Fprintf(buf, "%s %s %s rg\n", component(c.R), component(c.G), component(c.B))
}

func component(v uint8) string {
	return strconv.FormatFloat(float64(v)/255, 'f', -1, 32)
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func rectArray(r layout.Rect) *raw.ArrayObj {
	return raw.NewArray(raw.Number(r.LLX), raw.Number(r.LLY), raw.Number(r.URX), raw.Number(r.URY))
}

package builder

import (
	"image/color"
	"testing"

	"github.com/wudi/pdfconsole/ir/raw"
	"github.com/wudi/pdfconsole/layout"
)

func TestFillProgram(t *testing.T) {
	got := string(FillProgram(color.RGBA{R: 255, G: 0, B: 0, A: 255}, 720, 2))
	want := "1 0 0 rg\n0 0 720 2 re\nf\n"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestNewAppearance_LocalBBox(t *testing.T) {
	e := layout.Entry{
		Name: "field_3",
		Rect: layout.Rect{LLX: 0, LLY: 6, URX: 720, URY: 8},
		Fill: color.RGBA{A: 255},
	}
	s := newAppearance(e)

	bbox, ok := s.Dict.Get("BBox")
	if !ok {
		t.Fatalf("BBox missing")
	}
	items := bbox.(*raw.ArrayObj).Items
	// The stream's box starts at the origin regardless of the page position.
	if items[1].(raw.NumberObj).Int() != 0 || items[3].(raw.NumberObj).Int() != 2 {
		t.Fatalf("unexpected bbox %+v", items)
	}
	if _, ok := s.Dict.Get("Matrix"); !ok {
		t.Fatalf("Matrix missing")
	}
	if _, ok := s.Dict.Get("Length"); ok {
		t.Fatalf("Length is written by the serializer, not stored")
	}
	if string(s.Data) != "0 0 0 rg\n0 0 720 2 re\nf\n" {
		t.Fatalf("unexpected program %q", s.Data)
	}
}

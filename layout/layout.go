package layout

import (
	"fmt"
	"image/color"
)

// Geometry of the console grid, in default user-space units.
const (
	ConsoleLineHeight = 8
	ConsoleMargin     = 8
	ConsoleColumns    = 80
	InputHeight       = 16
	InputGap          = 8
	InputFontSize     = 10

	DefaultInputPlaceholder = "Type here for keyboard controls."
	InputFieldName          = "key_input"
)

// Kind distinguishes display-only fields from the keyboard input field.
type Kind int

const (
	Display Kind = iota
	Input
)

func (k Kind) String() string {
	if k == Input {
		return "input"
	}
	return "display"
}

// Rect is a rectangle in page space, y increasing upward.
type Rect struct {
	LLX, LLY, URX, URY float64
}

func (r Rect) Width() float64  { return r.URX - r.LLX }
func (r Rect) Height() float64 { return r.URY - r.LLY }

// Entry describes one widget field without any PDF syntax.
type Entry struct {
	Name     string
	Rect     Rect
	Fill     color.RGBA
	Value    string
	Kind     Kind
	FontSize float64
	MaxLen   int
}

// Layout is the output of Generate: the page box and its fields in creation order.
type Layout struct {
	MediaBox Rect
	Entries  []Entry
}

// Count returns the number of entries of kind k.
func (l *Layout) Count(k Kind) int {
	n := 0
	for _, e := range l.Entries {
		if e.Kind == k {
			n++
		}
	}
	return n
}

// Generate validates cfg and lays out the fields for its policy.
func Generate(cfg *Config) (*Layout, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	width := float64(cfg.Width) * float64(cfg.Scale)
	screen := float64(cfg.Height) * float64(cfg.Scale)

	out := &Layout{}
	switch cfg.Policy {
	case RowStrip:
		out.Entries = rowStrip(cfg)
		out.MediaBox = Rect{URX: width, URY: screen}
	case ConsoleGrid:
		pageHeight := screen
		if need := consoleHeight(cfg); need > pageHeight {
			pageHeight = need
		}
		out.Entries = consoleGrid(cfg, width, pageHeight)
		out.MediaBox = Rect{URX: width, URY: pageHeight}
	case Composite:
		pageHeight := screen + consoleHeight(cfg)
		out.Entries = append(rowStrip(cfg), consoleGrid(cfg, width, pageHeight)...)
		out.MediaBox = Rect{URX: width, URY: pageHeight}
	default:
		return nil, &ConfigurationError{Field: "Config.Policy", Reason: fmt.Sprintf("unknown policy %q", cfg.Policy)}
	}
	return out, nil
}

// rowStrip produces field_0..field_{height-1}, each scale units tall and
// width*scale wide, with row 0 at the bottom of the page.
func rowStrip(cfg *Config) []Entry {
	if cfg.Height == 0 {
		return nil
	}
	s := float64(cfg.Scale)
	w := float64(cfg.Width) * s
	fontSize := cfg.FontSize
	if fontSize == 0 {
		fontSize = s
	}
	fill := namedColor(cfg.PixelColor, "white")

	entries := make([]Entry, 0, cfg.Height)
	for row := 0; row < cfg.Height; row++ {
		y := float64(row) * s
		entries = append(entries, Entry{
			Name:     fmt.Sprintf("field_%d", row),
			Rect:     Rect{LLX: 0, LLY: y, URX: w, URY: y + s},
			Fill:     fill,
			Kind:     Display,
			FontSize: fontSize,
			MaxLen:   cfg.Width,
		})
	}
	return entries
}

// consoleHeight is the vertical space the console stack and input field need,
// margins included. It is zero when neither is requested.
func consoleHeight(cfg *Config) float64 {
	if cfg.Policy == RowStrip || (cfg.ConsoleLines == 0 && !cfg.IncludeInputField) {
		return 0
	}
	h := float64(2*ConsoleMargin + cfg.ConsoleLines*ConsoleLineHeight)
	if cfg.IncludeInputField {
		h += InputGap + InputHeight
	}
	return h
}

// consoleGrid stacks console_0..console_{n-1} below the top margin, the
// highest index topmost, followed by the input field.
func consoleGrid(cfg *Config, width, pageHeight float64) []Entry {
	n := cfg.ConsoleLines
	top := pageHeight - ConsoleMargin
	fill := namedColor(cfg.ConsoleColor, "whitesmoke")

	entries := make([]Entry, 0, n+1)
	for i := 0; i < n; i++ {
		y := top - float64(ConsoleLineHeight*(n-i))
		entries = append(entries, Entry{
			Name:     fmt.Sprintf("console_%d", i),
			Rect:     Rect{LLX: 0, LLY: y, URX: width, URY: y + ConsoleLineHeight},
			Fill:     fill,
			Kind:     Display,
			FontSize: ConsoleLineHeight - 2,
			MaxLen:   ConsoleColumns,
		})
	}
	if cfg.IncludeInputField {
		placeholder := cfg.InputPlaceholder
		if placeholder == "" {
			placeholder = DefaultInputPlaceholder
		}
		ury := top - float64(ConsoleLineHeight*n) - InputGap
		entries = append(entries, Entry{
			Name:     InputFieldName,
			Rect:     Rect{LLX: 0, LLY: ury - InputHeight, URX: width, URY: ury},
			Fill:     namedColor(cfg.InputColor, "lightyellow"),
			Value:    placeholder,
			Kind:     Input,
			FontSize: InputFontSize,
		})
	}
	return entries
}

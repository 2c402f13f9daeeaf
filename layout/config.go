package layout

import (
	"errors"
	"fmt"
	"image/color"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/image/colornames"
)

// Policy selects how display fields are arranged on the page.
type Policy string

const (
	// RowStrip is one field per display row, row 0 at the bottom.
	RowStrip Policy = "rows"
	// ConsoleGrid is a stack of console lines near the top of the page plus
	// an optional input field.
	ConsoleGrid Policy = "console"
	// Composite places the row strip at the bottom and the console grid above it.
	Composite Policy = "composite"
)

// Config describes the requested display geometry. Upper bounds follow the
// 14400 unit page size limit of PDF 1.7 viewers.
type Config struct {
	Policy            Policy `validate:"oneof=rows console composite"`
	Width             int    `validate:"min=0,max=14400"`
	Height            int    `validate:"min=0,max=14400"`
	Scale             int    `validate:"min=1,max=14400"`
	ConsoleLines      int    `validate:"min=0,max=1800"`
	IncludeInputField bool

	// Fill colours of the field appearance streams, by SVG colour name.
	PixelColor   string `validate:"omitempty,colorname"`
	ConsoleColor string `validate:"omitempty,colorname"`
	InputColor   string `validate:"omitempty,colorname"`

	InputPlaceholder string
	// FontSize overrides the derived text size of display rows; 0 derives it
	// from Scale.
	FontSize float64 `validate:"min=0"`
}

// NewDefaultConfig returns the geometry of the ASCII game screen: 160 columns,
// 100 rows, console and input field enabled.
func NewDefaultConfig() *Config {
	return &Config{
		Policy:            Composite,
		Width:             160,
		Height:            100,
		Scale:             4,
		ConsoleLines:      25,
		IncludeInputField: true,
		PixelColor:        "white",
		ConsoleColor:      "whitesmoke",
		InputColor:        "lightyellow",
		InputPlaceholder:  DefaultInputPlaceholder,
	}
}

// ConfigurationError reports invalid geometry. It is returned before any
// object is allocated.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

var validate = newValidator()

// Validator returns the shared validator, with the colorname tag registered,
// for configs that embed a layout Config.
func Validator() *validator.Validate { return validate }

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("colorname", func(fl validator.FieldLevel) bool {
		_, ok := colornames.Map[strings.ToLower(fl.Field().String())]
		return ok
	})
	return v
}

// Validate checks the configuration and returns a *ConfigurationError on the
// first violation.
func (cfg *Config) Validate() error {
	if cfg == nil {
		return &ConfigurationError{Field: "Config", Reason: "missing"}
	}
	return AsConfigurationError(validate.Struct(cfg))
}

// AsConfigurationError converts validator output into a *ConfigurationError.
// Other errors are returned unchanged.
func AsConfigurationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		reason := fe.Tag()
		if fe.Param() != "" {
			reason += "=" + fe.Param()
		}
		return &ConfigurationError{Field: fe.Namespace(), Reason: fmt.Sprintf("%v violates %s", fe.Value(), reason)}
	}
	return err
}

func namedColor(name, fallback string) color.RGBA {
	if c, ok := colornames.Map[strings.ToLower(name)]; ok {
		return c
	}
	return colornames.Map[fallback]
}

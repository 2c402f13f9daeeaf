package display

import (
	"github.com/wudi/pdfconsole/layout"
	"github.com/wudi/pdfconsole/observability"
	"github.com/wudi/pdfconsole/scripting"
	"github.com/wudi/pdfconsole/writer"
)

// Config drives one document generation.
type Config struct {
	Layout *layout.Config `validate:"required"`

	// KeystrokeScript is bound to the input field's keystroke trigger when
	// the layout includes one.
	KeystrokeScript string
	// CheckSyntax compiles every script before it is bound.
	CheckSyntax bool

	Version writer.PDFVersion `validate:"omitempty,oneof=1.4 1.7"`
	FileID  bool

	Logger observability.Logger
	Tracer observability.Tracer
}

// NewDefaultConfig returns the configuration of the full game build.
func NewDefaultConfig() *Config {
	return &Config{
		Layout:          layout.NewDefaultConfig(),
		KeystrokeScript: scripting.DefaultKeystrokeScript,
		Version:         writer.PDF17,
		FileID:          true,
	}
}

// Validate checks cfg, including its layout; failures are
// *layout.ConfigurationError.
func (cfg *Config) Validate() error {
	if cfg == nil {
		return &layout.ConfigurationError{Field: "Config", Reason: "missing"}
	}
	return layout.AsConfigurationError(layout.Validator().Struct(cfg))
}

func (cfg *Config) logger() observability.Logger {
	if cfg.Logger == nil {
		return observability.NopLogger{}
	}
	return cfg.Logger
}

func (cfg *Config) tracer() observability.Tracer {
	if cfg.Tracer == nil {
		return observability.NopTracer()
	}
	return cfg.Tracer
}

package display

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/wudi/pdfconsole/builder"
	"github.com/wudi/pdfconsole/ir/raw"
	"github.com/wudi/pdfconsole/layout"
	"github.com/wudi/pdfconsole/observability"
	"github.com/wudi/pdfconsole/scripting"
	"github.com/wudi/pdfconsole/writer"
)

// ErrNoInputField is returned when the layout asked for an input field but
// the built page has none to bind a keystroke script to.
var ErrNoInputField = errors.New("layout has no input field")

// ErrDuplicatePath is returned by GenerateAll when two jobs name the same output file.
var ErrDuplicatePath = errors.New("duplicate output path")

// fileMode is the mode of newly created documents.
const fileMode os.FileMode = 0o644

// Result summarizes one generated document. Bytes is the full file size.
type Result struct {
	Objects int
	Widgets int
	Bytes   int64
}

// Build runs the layout, build and bind stages and returns the bound,
// not yet serialized, document.
func Build(ctx context.Context, cfg *Config, script string) (*builder.Display, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := cfg.logger()
	tracer := cfg.tracer()

	_, span := tracer.StartSpan(ctx, observability.SpanLayout)
	l, err := layout.Generate(cfg.Layout)
	finish(span, err)
	if err != nil {
		return nil, err
	}

	_, span = tracer.StartSpan(ctx, observability.SpanBuild)
	d, err := builder.Build(l, builder.WithLogger(log), builder.WithVersion(string(cfg.Version)))
	finish(span, err)
	if err != nil {
		return nil, err
	}

	_, span = tracer.StartSpan(ctx, observability.SpanBind)
	err = bind(d, cfg, script, log)
	finish(span, err)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func bind(d *builder.Display, cfg *Config, script string, log observability.Logger) error {
	binder := scripting.NewBinder(d.Doc,
		scripting.WithSyntaxCheck(cfg.CheckSyntax),
		scripting.WithBinderLogger(log))

	if _, err := binder.BindOpen(d.Page, script); err != nil {
		return fmt.Errorf("bind open action: %w", err)
	}
	if !cfg.Layout.IncludeInputField || cfg.Layout.Policy == layout.RowStrip {
		return nil
	}
	input, ok := d.Field(layout.InputFieldName)
	if !ok {
		return ErrNoInputField
	}
	ks := cfg.KeystrokeScript
	if ks == "" {
		ks = scripting.DefaultKeystrokeScript
	}
	if _, err := binder.BindKeystroke(input.Dict, ks); err != nil {
		return fmt.Errorf("bind keystroke action: %w", err)
	}
	return nil
}

// Generate builds the document for cfg with script as its open action and
// writes it to w in one call. Nothing is written if any stage fails.
func Generate(ctx context.Context, cfg *Config, script string, w io.Writer) (*Result, error) {
	d, err := Build(ctx, cfg, script)
	if err != nil {
		return nil, err
	}
	return Write(ctx, cfg, d, w)
}

// Write serializes an already built display.
func Write(ctx context.Context, cfg *Config, d *builder.Display, w io.Writer) (*Result, error) {
	stats := &statsInterceptor{}
	cw := &countingWriter{w: w}
	wr := (&writer.WriterBuilder{}).
		WithInterceptor(stats).
		WithLogger(cfg.logger()).
		Build()

	_, span := cfg.tracer().StartSpan(ctx, observability.SpanWrite)
	err := wr.Write(ctx, d.Doc, cw, writer.Config{Version: cfg.Version, FileID: cfg.FileID})
	span.SetTag(observability.MetricObjectCount, stats.objects)
	finish(span, err)
	if err != nil {
		return nil, err
	}
	return &Result{Objects: stats.objects, Widgets: len(d.Widgets()), Bytes: cw.n}, nil
}

// WriteFile generates into a temporary file next to path and renames it over
// path on success, so a failed run leaves any existing file untouched. A
// replaced file keeps its mode; new files get 0644.
func WriteFile(ctx context.Context, cfg *Config, script, path string) (*Result, error) {
	d, err := Build(ctx, cfg, script)
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, &writer.IOError{Err: err}
	}
	defer os.Remove(tmp.Name())

	mode := fileMode
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return nil, &writer.IOError{Err: err}
	}

	res, err := Write(ctx, cfg, d, tmp)
	if err != nil {
		tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, &writer.IOError{Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return nil, &writer.IOError{Err: err}
	}
	cfg.logger().Info("document saved",
		observability.String("path", path),
		observability.Int64(observability.MetricBytesWritten, res.Bytes))
	return res, nil
}

// Job is one document of a batch.
type Job struct {
	Config *Config
	Script string
	Path   string
}

// GenerateAll writes every job with WriteFile, at most limit at a time
// (all at once if limit <= 0). Each job owns its own document. It returns the
// first error; jobs already written stay on disk. Jobs sharing an output
// path are rejected before anything is generated.
func GenerateAll(ctx context.Context, jobs []Job, limit int) ([]*Result, error) {
	seen := make(map[string]bool, len(jobs))
	for _, job := range jobs {
		p, err := filepath.Abs(job.Path)
		if err != nil {
			return nil, err
		}
		if seen[p] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePath, job.Path)
		}
		seen[p] = true
	}

	if limit <= 0 || limit > len(jobs) {
		limit = len(jobs)
	}
	sem := semaphore.NewWeighted(int64(limit))
	results := make([]*Result, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	for i, job := range jobs {
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)
			res, err := WriteFile(gctx, job.Config, job.Script, job.Path)
			if err != nil {
				return fmt.Errorf("%s: %w", job.Path, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Preview builds the document for cfg and runs the guarded open script once
// against an in-memory copy of its fields.
func Preview(ctx context.Context, cfg *Config, script string) (*scripting.FieldStore, error) {
	d, err := Build(ctx, cfg, script)
	if err != nil {
		return nil, err
	}
	initial := make(map[string]string, len(d.Widgets()))
	for _, w := range d.Widgets() {
		v := ""
		if obj, ok := w.Dict.Get("V"); ok {
			if s, ok := obj.(raw.StringObj); ok {
				v = string(s.Value())
			}
		}
		initial[w.Name] = v
	}
	store := scripting.NewFieldStore(initial)
	if err := scripting.DryRun(ctx, scripting.Guard(script), store); err != nil {
		return store, err
	}
	return store, nil
}

type statsInterceptor struct {
	objects int
}

func (s *statsInterceptor) BeforeWrite(writer.Context, raw.ObjectRef, raw.Object) error {
	return nil
}

func (s *statsInterceptor) AfterWrite(writer.Context, raw.ObjectRef, raw.Object, int64) error {
	s.objects++
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func finish(span observability.Span, err error) {
	if err != nil {
		span.SetError(err)
	}
	span.Finish()
}

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/juju/errgo"

	"github.com/wudi/pdfconsole/display"
	"github.com/wudi/pdfconsole/embed"
	"github.com/wudi/pdfconsole/layout"
	"github.com/wudi/pdfconsole/observability"
	"github.com/wudi/pdfconsole/xref"
)

const usage = `Usage: pdfconsole <command> [flags]

Commands:
  generate  build a PDF display around one or more scripts
  embed     base64-embed a file into a script template
  verify    check the structure of a generated PDF
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if err == flag.ErrHelp {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "pdfconsole: %v\n", err)
		if os.Getenv("PDFCONSOLE_DEBUG") != "" {
			fmt.Fprintln(os.Stderr, errgo.Details(err))
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return flag.ErrHelp
	}
	switch args[0] {
	case "generate":
		return runGenerate(ctx, args[1:], stdin, stdout, stderr)
	case "embed":
		return runEmbed(args[1:], stderr)
	case "verify":
		return runVerify(ctx, args[1:], stdout, stderr)
	case "help", "-h", "-help", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func newLogger(w io.Writer, verbose bool) observability.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return observability.NewSlogLogger(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

func runGenerate(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	def := display.NewDefaultConfig()
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: pdfconsole generate [flags] <script.js|-> [script.js...]\n")
		fs.PrintDefaults()
	}
	out := fs.String("out", "out.pdf", "Output file, or directory when several scripts are given")
	policy := fs.String("layout", string(def.Layout.Policy), "Field layout: rows, console or composite")
	width := fs.Int("width", def.Layout.Width, "Display width in pixels")
	height := fs.Int("height", def.Layout.Height, "Display height in rows")
	scale := fs.Int("scale", def.Layout.Scale, "Page units per pixel")
	lines := fs.Int("console-lines", def.Layout.ConsoleLines, "Number of console lines")
	input := fs.Bool("input", def.Layout.IncludeInputField, "Add the keyboard input field")
	keystroke := fs.String("keystroke", def.KeystrokeScript, "Script bound to the input field's keystroke trigger")
	check := fs.Bool("check", false, "Compile scripts before binding them")
	dryRun := fs.Bool("dry-run", false, "Run the open script once against the fields instead of writing")
	jobs := fs.Int("jobs", 0, "Maximum documents generated at once (0 = unlimited)")
	verbose := fs.Bool("v", false, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return fmt.Errorf("missing script")
	}

	cfg := def
	cfg.Layout.Policy = layout.Policy(*policy)
	cfg.Layout.Width = *width
	cfg.Layout.Height = *height
	cfg.Layout.Scale = *scale
	cfg.Layout.ConsoleLines = *lines
	cfg.Layout.IncludeInputField = *input
	cfg.KeystrokeScript = *keystroke
	cfg.CheckSyntax = *check
	cfg.Logger = newLogger(stderr, *verbose)

	scripts := make([]string, fs.NArg())
	for i, path := range fs.Args() {
		s, err := readScript(path, stdin)
		if err != nil {
			return err
		}
		scripts[i] = s
	}

	if *dryRun {
		for i, s := range scripts {
			if err := preview(ctx, cfg, fs.Arg(i), s, stdout); err != nil {
				return err
			}
		}
		return nil
	}

	if len(scripts) == 1 {
		res, err := display.WriteFile(ctx, cfg, scripts[0], *out)
		if err != nil {
			return errgo.Notef(err, "generate %s", *out)
		}
		fmt.Fprintf(stdout, "%s: %d objects, %d fields\n", *out, res.Objects, res.Widgets)
		return nil
	}

	if err := os.MkdirAll(*out, 0o755); err != nil {
		return errgo.Notef(err, "create output directory")
	}
	batch := make([]display.Job, len(scripts))
	for i, s := range scripts {
		c := *cfg
		layoutCfg := *cfg.Layout
		c.Layout = &layoutCfg
		name := strings.TrimSuffix(filepath.Base(fs.Arg(i)), filepath.Ext(fs.Arg(i))) + ".pdf"
		batch[i] = display.Job{Config: &c, Script: s, Path: filepath.Join(*out, name)}
	}
	results, err := display.GenerateAll(ctx, batch, *jobs)
	if err != nil {
		return errgo.Notef(err, "generate batch")
	}
	for i, res := range results {
		fmt.Fprintf(stdout, "%s: %d objects, %d fields\n", batch[i].Path, res.Objects, res.Widgets)
	}
	return nil
}

func readScript(path string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", errgo.Notef(err, "read script %s", path)
	}
	return string(data), nil
}

func preview(ctx context.Context, cfg *display.Config, name, script string, stdout io.Writer) error {
	store, err := display.Preview(ctx, cfg, script)
	if err != nil {
		return errgo.Notef(err, "dry run %s", name)
	}
	fmt.Fprintf(stdout, "%s:\n", name)
	for _, msg := range store.Alerts() {
		fmt.Fprintf(stdout, "  alert: %s\n", msg)
	}
	for _, expr := range store.Intervals() {
		fmt.Fprintf(stdout, "  timer: %s\n", expr)
	}
	for _, field := range store.Names() {
		v, _ := store.Value(field)
		if s := fmt.Sprint(v); s != "" {
			fmt.Fprintf(stdout, "  %s = %q\n", field, s)
		}
	}
	return nil
}

func runEmbed(args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("embed", flag.ContinueOnError)
	fs.SetOutput(stderr)
	tmplPath := fs.String("template", "", "Script template containing the token")
	payloadPath := fs.String("payload", "", "File to embed")
	outPath := fs.String("out", "", "Output script")
	token := fs.String("token", embed.DefaultToken, "Placeholder replaced by the base64 payload")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *tmplPath == "" || *payloadPath == "" || *outPath == "" {
		fs.Usage()
		return fmt.Errorf("-template, -payload and -out are required")
	}

	tmpl, err := os.ReadFile(*tmplPath)
	if err != nil {
		return errgo.Notef(err, "read template")
	}
	payload, err := os.ReadFile(*payloadPath)
	if err != nil {
		return errgo.Notef(err, "read payload")
	}
	out, err := embed.Replace(tmpl, *token, payload)
	if err != nil {
		return errgo.Notef(err, "%s", *tmplPath)
	}
	if err := os.WriteFile(*outPath, out, 0o644); err != nil {
		return errgo.Notef(err, "write %s", *outPath)
	}
	return nil
}

func runVerify(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("missing pdf path")
	}
	for _, path := range fs.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			return errgo.Notef(err, "read %s", path)
		}
		rep, err := xref.Verify(ctx, data)
		if err != nil {
			return errgo.Notef(err, "verify %s", path)
		}
		fmt.Fprintf(stdout, "%s: ok, %d objects, %d references, %d streams\n",
			path, rep.Objects, rep.References, rep.Streams)
	}
	return nil
}

// Command kvfmt formats, checks and exports KeyValue files.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"github.com/goccy/go-yaml"
	"github.com/mattn/go-isatty"

	"github.com/ConradIrwin/keyvalues-go"
)

// CLI defines the command-line interface using Kong
type CLI struct {
	Verbose bool `name:"verbose" short:"v" help:"Log import resolution to stderr"`

	Fmt    FmtCmd    `cmd:"" help:"Re-indent files by brace depth"`
	Check  CheckCmd  `cmd:"" help:"Report files that fail to parse"`
	Export ExportCmd `cmd:"" help:"Print the merged tree of a file as YAML or JSON"`
}

// env is bound into every command's Run method.
type env struct {
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger
	// failure colors stderr; the others color diffs on stdout.
	failure *color.Color
	removed *color.Color
	added   *color.Color
	header  *color.Color
}

func newEnv(verbose bool, stdout, stderr io.Writer) *env {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	e := &env{
		stdout:  stdout,
		stderr:  stderr,
		logger:  slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})),
		failure: color.New(color.FgRed),
		removed: color.New(color.FgRed),
		added:   color.New(color.FgGreen),
		header:  color.New(color.Bold),
	}
	setColor(isTerminal(stdout), e.removed, e.added, e.header)
	setColor(isTerminal(stderr), e.failure)
	return e
}

func setColor(enabled bool, colors ...*color.Color) {
	for _, c := range colors {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// FmtCmd re-indents files that parse, keeping their comments and layout.
type FmtCmd struct {
	Write  bool     `name:"write" short:"w" help:"Write the result back to each file instead of stdout"`
	Diff   bool     `name:"diff" short:"d" help:"Print a line diff instead of the result"`
	Indent string   `name:"indent" help:"Indent unit (default two spaces)"`
	Files  []string `arg:"" type:"existingfile" help:"Files to format"`
}

func (c *FmtCmd) Run(e *env) error {
	for _, path := range c.Files {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if _, err := keyvalues.Parse(data); err != nil {
			return describe(path, err)
		}
		var opts []keyvalues.Option
		if c.Indent != "" {
			opts = append(opts, keyvalues.IndentWith(c.Indent))
		}
		out := keyvalues.Format(data, opts...)

		switch {
		case c.Diff:
			printDiff(e, path, string(data), string(out))
		case c.Write:
			if string(out) == string(data) {
				continue
			}
			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			if err := os.WriteFile(path, out, info.Mode().Perm()); err != nil {
				return err
			}
			e.logger.Debug("formatted file", "path", path)
		default:
			if _, err := e.stdout.Write(out); err != nil {
				return err
			}
		}
	}
	return nil
}

// CheckCmd parses files and reports every failure.
type CheckCmd struct {
	Imports bool     `name:"imports" help:"Also resolve and check #base imports"`
	Files   []string `arg:"" type:"existingfile" help:"Files to check"`
}

var errCheckFailed = errors.New("check failed")

func (c *CheckCmd) Run(e *env) error {
	failed := 0
	for _, path := range c.Files {
		var err error
		if c.Imports {
			_, err = keyvalues.ParseFile(path, keyvalues.WithLogger(e.logger))
		} else {
			var data []byte
			if data, err = os.ReadFile(path); err == nil {
				_, err = keyvalues.Parse(data)
			}
		}
		if err != nil {
			failed++
			fmt.Fprintln(e.stderr, e.failure.Sprint(describe(path, err)))
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d files", errCheckFailed, failed, len(c.Files))
	}
	return nil
}

// describe names path in err when err does not already say which file it
// came from.
func describe(path string, err error) error {
	var serr *keyvalues.SyntaxError
	var eerr *keyvalues.EncodingError
	switch {
	case errors.As(err, &serr):
		if serr.Filename == "" {
			serr.Filename = path
		}
	case errors.As(err, &eerr):
		if eerr.Path == "" {
			eerr.Path = path
		}
	case errors.As(err, new(*keyvalues.IOError)), errors.As(err, new(*keyvalues.CyclicImportError)):
	default:
		return fmt.Errorf("%s: %w", path, err)
	}
	return err
}

// ExportCmd prints the tree of a file, merged with its imports.
type ExportCmd struct {
	Format string `name:"format" short:"f" enum:"yaml,json" default:"yaml" help:"Output format (yaml, json)"`
	File   string `arg:"" type:"existingfile" help:"File to export"`
}

func (c *ExportCmd) Run(e *env) error {
	root, err := keyvalues.ParseFile(c.File, keyvalues.WithLogger(e.logger))
	if err != nil {
		return describe(c.File, err)
	}
	var opts []yaml.EncodeOption
	if c.Format == "json" {
		opts = append(opts, yaml.JSON())
	}
	out, err := yaml.MarshalWithOptions(toMapSlice(root), opts...)
	if err != nil {
		return err
	}
	_, err = e.stdout.Write(out)
	return err
}

// toMapSlice converts a section to an ordered YAML mapping, keeping repeated
// keys.
func toMapSlice(s keyvalues.Section) yaml.MapSlice {
	out := make(yaml.MapSlice, 0, len(s))
	for _, kv := range s {
		item := yaml.MapItem{Key: kv.Key}
		switch v := kv.Value.(type) {
		case keyvalues.Section:
			item.Value = toMapSlice(v)
		case keyvalues.Scalar:
			item.Value = string(v)
		}
		out = append(out, item)
	}
	return out
}

func run(args []string, stdout, stderr io.Writer) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("kvfmt"),
		kong.Description("Format, check and export KeyValue files"),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
	)
	if err != nil {
		return err
	}
	ctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	return ctx.Run(newEnv(cli.Verbose, stdout, stderr))
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "kvfmt: %v\n", err)
		os.Exit(1)
	}
}

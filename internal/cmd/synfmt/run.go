// Package synfmt implements the synfmt command: the Synth formatter run
// from the command line.
package synfmt

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/synthlang/synkit/internal/synkitconfig"
	"github.com/synthlang/synkit/internal/synth/analysis"
	"github.com/synthlang/synkit/internal/synth/format"
	"github.com/synthlang/synkit/internal/version"
)

const (
	exitOK    = 0
	exitError = 1
)

// Run executes the synfmt command with the given arguments and returns an
// exit code.
func Run(args []string) int {
	return RunWithIO(context.Background(), args, os.Stdin, os.Stdout, os.Stderr)
}

// RunWithIO executes the synfmt command with the given arguments and IO
// streams, and returns an exit code.
func RunWithIO(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("synfmt", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		writeFlag   = fs.Bool("w", false, "write result back to the source file instead of stdout")
		diffFlag    = fs.Bool("d", false, "display diffs instead of rewriting files")
		listFlag    = fs.Bool("l", false, "list files whose formatting differs")
		checkFlag   = fs.Bool("check", false, "exit non-zero if any file is not formatted")
		configFlag  = fs.String("config", "", "path to synth.toml (default: discover from the working directory)")
		versionFlag = fs.Bool("version", false, "print version and exit")
	)

	fs.Usage = func() {
		writeln(stderr, "synfmt formats Synth source files.")
		writeln(stderr, "")
		writeln(stderr, "Usage:")
		writeln(stderr, "  synfmt [flags] [path ...]")
		writeln(stderr, "")
		writeln(stderr, "With no paths, synfmt reads from standard input and writes to standard output.")
		writeln(stderr, "Directory arguments are walked for .syn files.")
		writeln(stderr, "")
		writeln(stderr, "Flags:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return exitOK
		}
		return exitError
	}

	if *versionFlag {
		writef(stdout, "synfmt %s\n", version.String())
		return exitOK
	}

	cfg, err := loadConfig(*configFlag)
	if err != nil {
		writef(stderr, "synfmt: %v\n", err)
		return exitError
	}
	opts := format.Options{
		Indent:        cfg.Fmt.IndentUnit(),
		MaxBlankLines: cfg.Fmt.MaxBlankLines,
	}

	if fs.NArg() == 0 {
		if *writeFlag {
			writeln(stderr, "synfmt: cannot use -w with standard input")
			return exitError
		}
		return formatStdin(stdin, stdout, stderr, opts, *diffFlag, *checkFlag)
	}

	files, err := analysis.ExpandPaths(fs.Args())
	if err != nil {
		writef(stderr, "synfmt: %v\n", err)
		return exitError
	}

	code := exitOK
	for _, path := range files {
		r := format.FormatFile(path, opts)
		if r.Err != nil {
			writef(stderr, "synfmt: %v\n", r.Err)
			code = exitError
			continue
		}

		if r.Changed() {
			if *listFlag || *checkFlag {
				writef(stdout, "%s\n", r.Path)
			}
			if *diffFlag {
				if err := writeDiff(stdout, r); err != nil {
					writef(stderr, "synfmt: diffing %s: %v\n", r.Path, err)
					code = exitError
				}
			}
			if *writeFlag {
				if err := os.WriteFile(r.Path, r.Formatted, 0o644); err != nil {
					writef(stderr, "synfmt: writing %s: %v\n", r.Path, err)
					code = exitError
				}
			}
			if *checkFlag {
				code = exitError
			}
		}

		if !*writeFlag && !*diffFlag && !*listFlag && !*checkFlag {
			if _, err := stdout.Write(r.Formatted); err != nil {
				writef(stderr, "synfmt: %v\n", err)
				return exitError
			}
		}
	}
	return code
}

// formatStdin formats standard input. In diff and check modes nothing is
// rewritten; the default mode writes the formatted text to stdout.
func formatStdin(stdin io.Reader, stdout, stderr io.Writer, opts format.Options, diff, check bool) int {
	src, err := io.ReadAll(stdin)
	if err != nil {
		writef(stderr, "synfmt: reading standard input: %v\n", err)
		return exitError
	}
	formatted := format.Format(src, opts)

	switch {
	case diff:
		if !bytes.Equal(src, formatted) {
			r := &format.Result{Path: "<stdin>", Original: src, Formatted: formatted}
			if err := writeDiff(stdout, r); err != nil {
				writef(stderr, "synfmt: %v\n", err)
				return exitError
			}
		}
		return exitOK
	case check:
		if !bytes.Equal(src, formatted) {
			return exitError
		}
		return exitOK
	default:
		if _, err := stdout.Write(formatted); err != nil {
			writef(stderr, "synfmt: %v\n", err)
			return exitError
		}
		return exitOK
	}
}

func writeDiff(w io.Writer, r *format.Result) error {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(r.Original)),
		B:        difflib.SplitLines(string(r.Formatted)),
		FromFile: r.Path,
		ToFile:   r.Path,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, text)
	return err
}

// loadConfig loads an explicit config file, or discovers one from the
// working directory when no path is given.
func loadConfig(path string) (*synkitconfig.Config, error) {
	if path != "" {
		return synkitconfig.LoadConfig(path)
	}
	cfg, _, err := synkitconfig.DiscoverConfig("")
	return cfg, err
}

func writef(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

func writeln(w io.Writer, args ...any) {
	_, _ = fmt.Fprintln(w, args...)
}

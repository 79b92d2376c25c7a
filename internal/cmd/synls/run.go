// Package synls implements the synls command: the Synth language server.
package synls

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/synthlang/synkit/internal/lsp"
	"github.com/synthlang/synkit/internal/synkitconfig"
	"github.com/synthlang/synkit/internal/version"
)

// Exit codes
const (
	exitOK    = 0
	exitError = 1
)

// Run executes synls with the given arguments.
func Run(args []string) int {
	return RunWithIO(context.Background(), args, os.Stdin, os.Stdout, os.Stderr)
}

// RunWithIO allows custom IO for testing.
func RunWithIO(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var (
		versionFlag bool
		verboseFlag bool
		configFlag  string
	)

	fs := flag.NewFlagSet("synls", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&versionFlag, "version", false, "print version and exit")
	fs.BoolVar(&verboseFlag, "v", false, "verbose logging to stderr")
	fs.StringVar(&configFlag, "config", "", "path to synth.toml (default: discover from the working directory)")

	fs.Usage = func() {
		writeln(stderr, "Usage: synls [flags]")
		writeln(stderr)
		writeln(stderr, "Synth Language Server Protocol (LSP) implementation.")
		writeln(stderr)
		writeln(stderr, "The server communicates over stdio using JSON-RPC 2.0.")
		writeln(stderr, "Configure your editor to launch this binary as an LSP server.")
		writeln(stderr)
		writeln(stderr, "Features:")
		writeln(stderr, "  - Hover documentation for gates and keywords")
		writeln(stderr, "  - Go to definition and find references")
		writeln(stderr, "  - Document symbols")
		writeln(stderr, "  - Code completion")
		writeln(stderr, "  - Signature help for gate applications")
		writeln(stderr, "  - Rename")
		writeln(stderr, "  - Formatting (via synfmt)")
		writeln(stderr, "  - Diagnostics with quick fixes (via synlint)")
		writeln(stderr)
		writeln(stderr, "Flags:")
		fs.PrintDefaults()
		writeln(stderr)
		writeln(stderr, "Editor Configuration:")
		writeln(stderr, "  VS Code:  point a generic LSP client at the synls binary")
		writeln(stderr, "  Neovim:   use nvim-lspconfig with a custom server config")
		writeln(stderr, "  Helix:    add synls to languages.toml")
	}

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return exitOK
		}
		return exitError
	}

	if versionFlag {
		writef(stdout, "synls %s\n", version.String())
		return exitOK
	}

	// Setup logging
	if verboseFlag {
		log.SetOutput(stderr)
		log.SetFlags(log.Ltime | log.Lshortfile)
	} else {
		log.SetOutput(io.Discard)
	}

	cfg, err := loadConfig(configFlag)
	if err != nil {
		writef(stderr, "synls: %v\n", err)
		return exitError
	}
	opts := lsp.Options{
		Debounce:           cfg.Server.DebounceInterval(),
		MaxDiagnostics:     cfg.Server.MaxDiagnostics,
		Indent:             cfg.Fmt.IndentUnit(),
		MaxBlankLines:      cfg.Fmt.MaxBlankLines,
		UncertaintyPercent: cfg.Debug.UncertaintyPercent,
	}

	// Create context with cancellation for clean shutdown
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	server := lsp.NewServerWithOptions(opts, cancel)

	// Create stdio connection
	rwc := &stdioConn{
		Reader: stdin,
		Writer: stdout,
	}

	conn := lsp.NewConn(rwc, server)
	server.SetConn(conn)

	log.Printf("synls: starting server")

	// Run the server
	if err := conn.Run(ctx); err != nil && ctx.Err() == nil {
		writef(stderr, "synls: %v\n", err)
		return exitError
	}

	log.Printf("synls: server stopped")
	return exitOK
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

// stdioConn wraps stdin/stdout as an io.ReadWriteCloser.
type stdioConn struct {
	io.Reader
	io.Writer
}

func (s *stdioConn) Close() error {
	return nil
}

func writef(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

func writeln(w io.Writer, args ...any) {
	_, _ = fmt.Fprintln(w, args...)
}

// Package syndbg implements the syndbg command: the Synth debug adapter.
package syndbg

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"

	"github.com/synthlang/synkit/internal/dap"
	"github.com/synthlang/synkit/internal/debug"
	"github.com/synthlang/synkit/internal/synkitconfig"
	"github.com/synthlang/synkit/internal/version"
)

// Exit codes
const (
	exitOK    = 0
	exitError = 1
)

// Run executes syndbg with the given arguments.
func Run(args []string) int {
	return RunWithIO(context.Background(), args, os.Stdin, os.Stdout, os.Stderr)
}

// RunWithIO allows custom IO for testing.
func RunWithIO(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var (
		versionFlag bool
		verboseFlag bool
		configFlag  string
		listenFlag  string
		wsFlag      string
	)

	fs := flag.NewFlagSet("syndbg", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&versionFlag, "version", false, "print version and exit")
	fs.BoolVar(&verboseFlag, "v", false, "verbose logging to stderr")
	fs.StringVar(&configFlag, "config", "", "path to synth.toml (default: discover from the working directory)")
	fs.StringVar(&listenFlag, "listen", "", "serve DAP over TCP on this address instead of stdio")
	fs.StringVar(&wsFlag, "ws", "", "serve DAP over websocket on this address instead of stdio")

	fs.Usage = func() {
		writeln(stderr, "Usage: syndbg [flags]")
		writeln(stderr)
		writeln(stderr, "Synth Debug Adapter Protocol (DAP) implementation.")
		writeln(stderr)
		writeln(stderr, "By default the adapter communicates over stdio. Configure your")
		writeln(stderr, "editor to launch this binary as a DAP server, or use -listen to")
		writeln(stderr, "serve TCP clients and -ws to serve browser clients.")
		writeln(stderr)
		writeln(stderr, "Features:")
		writeln(stderr, "  - Launch .syn programs in the virtual debug engine")
		writeln(stderr, "  - Breakpoints, including conditional breakpoints")
		writeln(stderr, "  - Step, next, step in/out, continue, pause")
		writeln(stderr, "  - Stack traces, scopes, and quantum state variables")
		writeln(stderr, "  - Expression evaluation in the paused program")
		writeln(stderr)
		writeln(stderr, "Flags:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return exitOK
		}
		return exitError
	}

	if versionFlag {
		writef(stdout, "syndbg %s\n", version.String())
		return exitOK
	}

	// Setup logging
	if verboseFlag {
		log.SetOutput(stderr)
		log.SetFlags(log.Ltime | log.Lshortfile)
	} else {
		log.SetOutput(io.Discard)
	}

	if listenFlag != "" && wsFlag != "" {
		writeln(stderr, "syndbg: cannot use -listen and -ws together")
		return exitError
	}

	cfg, err := loadConfig(configFlag)
	if err != nil {
		writef(stderr, "syndbg: %v\n", err)
		return exitError
	}
	registry := debug.NewRegistry(debug.Options{
		TickInterval: cfg.Debug.TickInterval(),
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	switch {
	case wsFlag != "":
		ws := dap.NewWebsocketServer(wsFlag, registry)
		writef(stderr, "syndbg: websocket server listening at ws://%s\n", wsFlag)
		if err := ws.Run(); err != nil {
			writef(stderr, "syndbg: %v\n", err)
			return exitError
		}
		return exitOK

	case listenFlag != "":
		return serveTCP(ctx, listenFlag, registry, stderr)

	default:
		t := dap.NewStdioTransport(stdin, stdout)
		server := dap.NewServer(registry)
		log.Printf("syndbg: serving DAP over stdio")
		if err := server.Serve(ctx, t); err != nil && ctx.Err() == nil {
			writef(stderr, "syndbg: %v\n", err)
			return exitError
		}
		return exitOK
	}
}

// serveTCP accepts DAP clients on addr until the context is canceled.
// Connections share one registry, so a launch on a new connection
// supersedes the active session.
func serveTCP(ctx context.Context, addr string, registry *debug.Registry, stderr io.Writer) int {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		writef(stderr, "syndbg: %v\n", err)
		return exitError
	}
	defer ln.Close()

	writef(stderr, "syndbg: listening at %s\n", ln.Addr())

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return exitOK
			}
			writef(stderr, "syndbg: accept: %v\n", err)
			return exitError
		}

		go func(c net.Conn) {
			t := dap.NewRawTransport(c)
			server := dap.NewServer(registry)
			log.Printf("syndbg: client connected: %s", c.RemoteAddr())
			if err := server.Serve(ctx, t); err != nil {
				log.Printf("syndbg: serve: %v", err)
			}
			_ = t.Close()
			log.Printf("syndbg: client disconnected: %s", c.RemoteAddr())
		}(conn)
	}
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

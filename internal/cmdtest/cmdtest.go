// Package cmdtest provides a testscript-based test harness for the synkit
// CLI tools.
//
// It uses txtar format test files to specify input files and expected
// outputs, making it easy to write end-to-end CLI tests.
//
// Example test file (testdata/synlint/findings.txtar):
//
//	# Unbalanced braces are reported with positions
//	! exec synlint main.syn
//	stdout 'unmatched-brackets'
//
//	-- main.syn --
//	experiment bell {
package cmdtest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"github.com/synthlang/synkit/internal/cmd/syndbg"
	"github.com/synthlang/synkit/internal/cmd/synfmt"
	"github.com/synthlang/synkit/internal/cmd/synlint"
	"github.com/synthlang/synkit/internal/cmd/synls"
)

// Run executes the testscript tests in the given directory.
func Run(t *testing.T, dir string) {
	testscript.Run(t, testscript.Params{
		Dir: dir,
		Setup: func(env *testscript.Env) error {
			// Pin config discovery inside the sandbox. A script that
			// ships its own synth.toml keeps it.
			cfg := filepath.Join(env.WorkDir, "synth.toml")
			if _, err := os.Stat(cfg); os.IsNotExist(err) {
				return os.WriteFile(cfg, nil, 0o644)
			}
			return nil
		},
	})
}

// Main is the TestMain function that should be called from test files.
// It sets up the CLI tools as testscript commands.
func Main(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"synls":   wrapRun(synls.Run),
		"syndbg":  wrapRun(syndbg.Run),
		"synlint": wrapRun(synlint.Run),
		"synfmt":  wrapRun(synfmt.Run),
	}))
}

// wrapRun wraps a Run(args []string) int function to func() int for
// testscript. The args are taken from os.Args[1:].
func wrapRun(run func(args []string) int) func() int {
	return func() int {
		return run(os.Args[1:])
	}
}

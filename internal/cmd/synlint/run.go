// Package synlint implements the synlint command: the Synth diagnostics
// engine run from the command line.
package synlint

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/synthlang/synkit/internal/synkitconfig"
	"github.com/synthlang/synkit/internal/synth/analysis"
	"github.com/synthlang/synkit/internal/version"
)

// Exit codes
const (
	exitOK    = 0
	exitError = 1
)

// Run executes synlint with the given arguments.
func Run(args []string) int {
	return RunWithIO(context.Background(), args, os.Stdin, os.Stdout, os.Stderr)
}

// RunWithIO allows custom IO for testing.
func RunWithIO(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var (
		enableFlag    string
		disableFlag   string
		formatFlag    string
		configFlag    string
		fixFlag       bool
		diffFlag      bool
		listRulesFlag bool
		explainFlag   string
		versionFlag   bool
	)

	fs := flag.NewFlagSet("synlint", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&enableFlag, "enable", "", "enable rules (comma-separated names, categories, or 'all')")
	fs.StringVar(&disableFlag, "disable", "", "disable rules (comma-separated, supports patterns like 'un*')")
	fs.StringVar(&formatFlag, "format", "text", "output format: text, json")
	fs.StringVar(&configFlag, "config", "", "config file (default: discover synth.toml)")
	fs.BoolVar(&fixFlag, "fix", false, "apply suggested fixes")
	fs.BoolVar(&diffFlag, "diff", false, "with -fix, print diffs instead of writing files")
	fs.BoolVar(&listRulesFlag, "list-rules", false, "list all available rules")
	fs.StringVar(&explainFlag, "explain", "", "show detailed explanation for a rule")
	fs.BoolVar(&versionFlag, "version", false, "print version and exit")

	fs.Usage = func() {
		writeln(stderr, "Usage: synlint [flags] [path ...]")
		writeln(stderr)
		writeln(stderr, "Analyzes Synth files. Paths may be files or directories;")
		writeln(stderr, "directories are walked for .syn sources.")
		writeln(stderr)
		writeln(stderr, "Flags:")
		fs.PrintDefaults()
		writeln(stderr)
		writeln(stderr, "Examples:")
		writeln(stderr, "  synlint experiment.syn           # Analyze a single file")
		writeln(stderr, "  synlint .                        # Analyze the tree recursively")
		writeln(stderr, "  synlint -disable=empty-block .   # Skip a rule")
		writeln(stderr, "  synlint -fix .                   # Apply suggested fixes")
		writeln(stderr, "  synlint -list-rules              # List all available rules")
	}

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return exitOK
		}
		return exitError
	}

	if versionFlag {
		writef(stdout, "synlint %s\n", version.String())
		return exitOK
	}

	registry := analysis.NewRegistry()
	if err := registry.Register(analysis.DefaultRules()...); err != nil {
		writef(stderr, "synlint: failed to register rules: %v\n", err)
		return exitError
	}

	if listRulesFlag {
		return listRules(stdout, registry)
	}
	if explainFlag != "" {
		return explainRule(stdout, stderr, registry, explainFlag)
	}

	cfg, err := loadConfig(configFlag)
	if err != nil {
		writef(stderr, "synlint: %v\n", err)
		return exitError
	}

	// Config selection first, flags override
	registry.Enable(cfg.Analysis.Enable...)
	registry.Disable(cfg.Analysis.Disable...)
	if enableFlag != "" {
		registry.Enable(parseCommaSeparated(enableFlag)...)
	}
	if disableFlag != "" {
		registry.Disable(parseCommaSeparated(disableFlag)...)
	}

	paths := fs.Args()
	if len(paths) == 0 {
		writeln(stderr, "synlint: no files specified")
		fs.Usage()
		return exitError
	}

	driver := analysis.NewDriver(registry)
	result, err := driver.Run(ctx, paths)
	if err != nil {
		writef(stderr, "synlint: %v\n", err)
		return exitError
	}

	if fixFlag {
		code, rerun := applyFixes(ctx, driver, result, paths, diffFlag, stdout, stderr)
		if code != exitOK {
			return code
		}
		if rerun != nil {
			result = rerun
		}
	}

	var reporter analysis.Reporter
	switch formatFlag {
	case "text":
		reporter = analysis.NewTextReporter()
	case "json":
		reporter = analysis.NewJSONReporter()
	default:
		writef(stderr, "synlint: unknown format: %s\n", formatFlag)
		return exitError
	}

	if err := reporter.Report(stdout, result); err != nil {
		writef(stderr, "synlint: failed to report results: %v\n", err)
		return exitError
	}

	if len(result.Findings) > 0 || len(result.Errors) > 0 {
		return exitError
	}
	return exitOK
}

// loadConfig resolves the tool configuration: an explicit -config path, or
// discovery from the working directory.
func loadConfig(path string) (*synkitconfig.Config, error) {
	if path != "" {
		return synkitconfig.LoadConfig(path)
	}
	cfg, _, err := synkitconfig.DiscoverConfig("")
	return cfg, err
}

// applyFixes applies (or previews) the suggested fixes, then re-analyzes so
// the report reflects what remains. Returns a non-OK code on failure.
func applyFixes(ctx context.Context, driver *analysis.Driver, result *analysis.Result, paths []string, diffOnly bool, stdout, stderr io.Writer) (int, *analysis.Result) {
	fixResults, err := analysis.FixFiles(result.Findings)
	if err != nil {
		writef(stderr, "synlint: %v\n", err)
		return exitError, nil
	}

	if diffOnly {
		for _, r := range fixResults {
			if r.HasChanges() {
				writef(stdout, "%s", r.Diff())
			}
		}
		return exitOK, nil
	}

	if err := analysis.WriteFixResults(fixResults); err != nil {
		writef(stderr, "synlint: %v\n", err)
		return exitError, nil
	}

	for _, r := range fixResults {
		if r.AppliedFixes > 0 {
			writef(stdout, "%s: applied %d fix(es)\n", r.Path, r.AppliedFixes)
		}
		if r.SkippedFixes > 0 {
			writef(stderr, "%s: skipped %d overlapping fix(es)\n", r.Path, r.SkippedFixes)
		}
	}

	// Re-analyze: fixes shift positions and may clear findings
	rerun, err := driver.Run(ctx, paths)
	if err != nil {
		writef(stderr, "synlint: %v\n", err)
		return exitError, nil
	}
	return exitOK, rerun
}

// listRules outputs all available rules grouped by category.
func listRules(w io.Writer, registry *analysis.Registry) int {
	rules := registry.AllRules()
	if len(rules) == 0 {
		writeln(w, "No rules registered")
		return exitOK
	}

	writef(w, "Available rules (%d total):\n\n", len(rules))

	for _, cat := range registry.Categories() {
		var catRules []*analysis.Rule
		for _, rule := range rules {
			if rule.Category == cat {
				catRules = append(catRules, rule)
			}
		}
		if len(catRules) == 0 {
			continue
		}

		writef(w, "%s (%d rules):\n", cat, len(catRules))
		for _, rule := range catRules {
			writef(w, "  %-24s  %s\n", rule.Name, rule.Doc)
		}
		writeln(w)
	}

	return exitOK
}

// explainRule shows detailed information about a specific rule.
func explainRule(stdout, stderr io.Writer, registry *analysis.Registry, ruleName string) int {
	var found *analysis.Rule
	for _, rule := range registry.AllRules() {
		if rule.Name == ruleName {
			found = rule
			break
		}
	}

	if found == nil {
		writef(stderr, "synlint: unknown rule: %s\n", ruleName)
		writeln(stderr, "\nUse -list-rules to see all available rules")
		return exitError
	}

	writef(stdout, "Rule: %s\n", found.Name)
	writef(stdout, "Category: %s\n", found.Category)
	writef(stdout, "Severity: %s\n", found.Severity)
	writef(stdout, "Auto-fix: %v\n", found.AutoFix)
	writeln(stdout)
	writef(stdout, "Description:\n  %s\n", found.Doc)

	return exitOK
}

// parseCommaSeparated parses a comma-separated string into a slice.
func parseCommaSeparated(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// Helper functions for writing output without error checking.
func writef(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

func writeln(w io.Writer, args ...any) {
	_, _ = fmt.Fprintln(w, args...)
}

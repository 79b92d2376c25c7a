package synkitconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		check   func(t *testing.T, cfg *Config)
		wantErr bool
	}{
		{
			name: "server section",
			content: `
[server]
debounce_ms = 500
max_diagnostics = 20
`,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Server.DebounceMS != 500 {
					t.Errorf("debounce_ms = %d, want 500", cfg.Server.DebounceMS)
				}
				if cfg.Server.DebounceInterval() != 500*time.Millisecond {
					t.Errorf("DebounceInterval() = %v, want 500ms", cfg.Server.DebounceInterval())
				}
				if cfg.Server.MaxDiagnostics != 20 {
					t.Errorf("max_diagnostics = %d, want 20", cfg.Server.MaxDiagnostics)
				}
			},
		},
		{
			name: "debug section",
			content: `
[debug]
tick_interval_ms = 50
uncertainty_percent = 10.5
`,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Debug.TickInterval() != 50*time.Millisecond {
					t.Errorf("TickInterval() = %v, want 50ms", cfg.Debug.TickInterval())
				}
				if cfg.Debug.UncertaintyPercent != 10.5 {
					t.Errorf("uncertainty_percent = %v, want 10.5", cfg.Debug.UncertaintyPercent)
				}
			},
		},
		{
			name: "fmt section",
			content: `
[fmt]
indent = 2
max_blank_lines = 2
`,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Fmt.Indent != 2 {
					t.Errorf("indent = %d, want 2", cfg.Fmt.Indent)
				}
				if cfg.Fmt.IndentUnit() != "  " {
					t.Errorf("IndentUnit() = %q, want two spaces", cfg.Fmt.IndentUnit())
				}
				if cfg.Fmt.MaxBlankLines != 2 {
					t.Errorf("max_blank_lines = %d, want 2", cfg.Fmt.MaxBlankLines)
				}
			},
		},
		{
			name: "tabs win over indent",
			content: `
[fmt]
indent = 8
tabs = true
`,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Fmt.IndentUnit() != "\t" {
					t.Errorf("IndentUnit() = %q, want tab", cfg.Fmt.IndentUnit())
				}
			},
		},
		{
			name: "analysis section",
			content: `
[analysis]
enable = ["all"]
disable = ["lowercase-gate"]
`,
			check: func(t *testing.T, cfg *Config) {
				if len(cfg.Analysis.Enable) != 1 || cfg.Analysis.Enable[0] != "all" {
					t.Errorf("analysis.enable = %v, want [all]", cfg.Analysis.Enable)
				}
				if len(cfg.Analysis.Disable) != 1 || cfg.Analysis.Disable[0] != "lowercase-gate" {
					t.Errorf("analysis.disable = %v, want [lowercase-gate]", cfg.Analysis.Disable)
				}
			},
		},
		{
			name:    "empty config",
			content: "",
			check: func(t *testing.T, cfg *Config) {
				// Zero values: section defaults apply in the consumers.
				if cfg.Server.DebounceMS != 0 {
					t.Errorf("debounce_ms = %d, want 0", cfg.Server.DebounceMS)
				}
				if cfg.Fmt.IndentUnit() != "" {
					t.Errorf("IndentUnit() = %q, want empty", cfg.Fmt.IndentUnit())
				}
			},
		},
		{
			name:    "invalid toml",
			content: "this is not valid toml [[[",
			wantErr: true,
		},
		{
			name: "wrong value type",
			content: `
[server]
debounce_ms = "fast"
`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			configPath := filepath.Join(tmpDir, ConfigTOML)
			if err := os.WriteFile(configPath, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("failed to write test config: %v", err)
			}

			cfg, err := LoadConfig(configPath)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoadConfigUnsupportedExtension(t *testing.T) {
	tmpDir := t.TempDir()
	jsonPath := filepath.Join(tmpDir, "synth.json")
	if err := os.WriteFile(jsonPath, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadConfig(jsonPath); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestDiscoverConfig(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(t *testing.T, dir string) (startDir string)
		wantFile string
		wantErr  bool
	}{
		{
			name: "finds synth.toml",
			setup: func(t *testing.T, dir string) string {
				content := `[server]
debounce_ms = 300
`
				if err := os.WriteFile(filepath.Join(dir, ConfigTOML), []byte(content), 0o644); err != nil {
					t.Fatal(err)
				}
				return dir
			},
			wantFile: ConfigTOML,
		},
		{
			name: "finds config in parent",
			setup: func(t *testing.T, dir string) string {
				subdir := filepath.Join(dir, "experiments", "bell")
				if err := os.MkdirAll(subdir, 0o755); err != nil {
					t.Fatal(err)
				}
				content := `[fmt]
indent = 2
`
				if err := os.WriteFile(filepath.Join(dir, ConfigTOML), []byte(content), 0o644); err != nil {
					t.Fatal(err)
				}
				return subdir
			},
			wantFile: ConfigTOML,
		},
		{
			name: "stops at git root",
			setup: func(t *testing.T, dir string) string {
				// Config above the repository root must not be found.
				content := `[server]
debounce_ms = 300
`
				if err := os.WriteFile(filepath.Join(dir, ConfigTOML), []byte(content), 0o644); err != nil {
					t.Fatal(err)
				}
				repo := filepath.Join(dir, "repo")
				if err := os.MkdirAll(filepath.Join(repo, ".git"), 0o755); err != nil {
					t.Fatal(err)
				}
				sub := filepath.Join(repo, "src")
				if err := os.MkdirAll(sub, 0o755); err != nil {
					t.Fatal(err)
				}
				return sub
			},
			wantFile: "",
		},
		{
			name: "unparseable config surfaces the error",
			setup: func(t *testing.T, dir string) string {
				if err := os.WriteFile(filepath.Join(dir, ConfigTOML), []byte("[[["), 0o644); err != nil {
					t.Fatal(err)
				}
				return dir
			},
			wantErr: true,
		},
		{
			name: "no config returns defaults",
			setup: func(t *testing.T, dir string) string {
				return dir
			},
			wantFile: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()

			// Clear any ambient override
			t.Setenv(EnvConfig, "")

			// Create a .git directory so discovery never escapes tmpDir
			if err := os.MkdirAll(filepath.Join(tmpDir, ".git"), 0o755); err != nil {
				t.Fatal(err)
			}

			startDir := tt.setup(t, tmpDir)

			cfg, configPath, err := DiscoverConfig(startDir)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DiscoverConfig() error = %v, wantErr %v", err, tt.wantErr)
			}

			if tt.wantErr {
				return
			}

			if tt.wantFile == "" {
				if configPath != "" {
					t.Errorf("expected no config file, got %q", configPath)
				}
				if cfg.Server.DebounceMS != 200 {
					t.Errorf("default debounce_ms = %d, want 200", cfg.Server.DebounceMS)
				}
			} else {
				if filepath.Base(configPath) != tt.wantFile {
					t.Errorf("configPath = %q, want %q", filepath.Base(configPath), tt.wantFile)
				}
			}

			if cfg == nil {
				t.Error("cfg should not be nil")
			}
		})
	}
}

func TestDiscoverConfigEnvVar(t *testing.T) {
	tmpDir := t.TempDir()

	configPath := filepath.Join(tmpDir, "custom.toml")
	content := `[server]
debounce_ms = 999
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv(EnvConfig, configPath)

	// Should use env var path even when there's another config
	anotherDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(anotherDir, ConfigTOML), []byte("[server]\ndebounce_ms = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, foundPath, err := DiscoverConfig(anotherDir)
	if err != nil {
		t.Fatalf("DiscoverConfig() error = %v", err)
	}

	if foundPath != configPath {
		t.Errorf("foundPath = %q, want %q", foundPath, configPath)
	}
	if cfg.Server.DebounceMS != 999 {
		t.Errorf("debounce_ms = %d, want 999", cfg.Server.DebounceMS)
	}
}

func TestDiscoverConfigEnvVarMissingFile(t *testing.T) {
	t.Setenv(EnvConfig, filepath.Join(t.TempDir(), "nope.toml"))

	if _, _, err := DiscoverConfig(t.TempDir()); err == nil {
		t.Error("expected error for missing SYNKIT_CONFIG file")
	}
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()

	other := &Config{
		Server: ServerConfig{DebounceMS: 500},
		Fmt:    FmtConfig{Tabs: true},
		Analysis: AnalysisConfig{
			Enable: []string{"quantum"},
		},
	}

	base.Merge(other)

	if base.Server.DebounceMS != 500 {
		t.Errorf("debounce_ms = %d, want 500", base.Server.DebounceMS)
	}
	if base.Debug.UncertaintyPercent != 5 {
		t.Errorf("uncertainty_percent = %v, want 5 (should keep original)", base.Debug.UncertaintyPercent)
	}
	if !base.Fmt.Tabs {
		t.Error("fmt.tabs = false, want true")
	}
	if base.Fmt.Indent != 4 {
		t.Errorf("fmt.indent = %d, want 4 (should keep original)", base.Fmt.Indent)
	}
	if len(base.Analysis.Enable) != 1 || base.Analysis.Enable[0] != "quantum" {
		t.Errorf("analysis.enable = %v, want [quantum]", base.Analysis.Enable)
	}

	// Merging nil is a no-op
	base.Merge(nil)
	if base.Server.DebounceMS != 500 {
		t.Error("Merge(nil) changed the config")
	}
}

func TestIndentUnit(t *testing.T) {
	tests := []struct {
		indent int
		tabs   bool
		want   string
	}{
		{0, false, ""},
		{2, false, "  "},
		{4, false, "    "},
		{3, true, "\t"},
	}

	for _, tt := range tests {
		f := FmtConfig{Indent: tt.indent, Tabs: tt.tabs}
		if got := f.IndentUnit(); got != tt.want {
			t.Errorf("IndentUnit(indent=%d, tabs=%v) = %q, want %q", tt.indent, tt.tabs, got, tt.want)
		}
	}
}

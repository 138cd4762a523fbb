package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// Writes a .caisson.yml with the given content into a fresh directory and
// parses it.
func loadString(t *testing.T, content string) (*Config, error) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return Load(path)
}

func mustLoad(t *testing.T, content string) *Config {
	t.Helper()
	cfg, err := loadString(t, content)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return cfg
}

func TestLoadMinimal(t *testing.T) {
	cfg := mustLoad(t, "image: alpine:3.20\n")
	if cfg.Image != "alpine:3.20" {
		t.Fatalf("Image = %q, want %q", cfg.Image, "alpine:3.20")
	}
	if cfg.Shell != DefaultShell {
		t.Fatalf("Shell = %q, want %q", cfg.Shell, DefaultShell)
	}
	if cfg.Entrypoint != nil {
		t.Fatalf("Entrypoint = %q, want nil", *cfg.Entrypoint)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	cfg := mustLoad(t, "")
	if cfg.Image != "" {
		t.Fatalf("Image = %q, want empty", cfg.Image)
	}
}

func TestLoadUnknownNode(t *testing.T) {
	_, err := loadString(t, "image: alpine\nunexpected: thing\n")
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("err = %v, want ErrConfig", err)
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	_, err := loadString(t, "image: alpine\n  badindent: yes\n")
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("err = %v, want ErrConfig", err)
	}
}

func TestLoadTopLevelList(t *testing.T) {
	_, err := loadString(t, "- one\n- two\n")
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("err = %v, want ErrConfig", err)
	}
}

func TestEntrypointStates(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want *string // nil means the key is absent
	}{
		{"absent", "image: alpine\n", nil},
		{"null", "image: alpine\nentrypoint:\n", ptr("")},
		{"empty string", "image: alpine\nentrypoint: \"\"\n", ptr("")},
		{"set", "image: alpine\nentrypoint: /bin/bash\n", ptr("/bin/bash")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := mustLoad(t, tt.yaml)
			switch {
			case tt.want == nil && cfg.Entrypoint != nil:
				t.Fatalf("Entrypoint = %q, want nil", *cfg.Entrypoint)
			case tt.want != nil && cfg.Entrypoint == nil:
				t.Fatalf("Entrypoint = nil, want %q", *tt.want)
			case tt.want != nil && *cfg.Entrypoint != *tt.want:
				t.Fatalf("Entrypoint = %q, want %q", *cfg.Entrypoint, *tt.want)
			}
		})
	}
}

func TestEnvironmentMapping(t *testing.T) {
	t.Setenv("CAISSON_TEST_INHERITED", "from-host")
	cfg := mustLoad(t, `
image: alpine
environment:
  FOO: bar
  NUMERIC: 42
  CAISSON_TEST_INHERITED:
`)
	want := map[string]string{
		"FOO":                    "bar",
		"NUMERIC":                "42",
		"CAISSON_TEST_INHERITED": "from-host",
	}
	assertEnv(t, cfg.Environment, want)
}

func TestEnvironmentList(t *testing.T) {
	t.Setenv("CAISSON_TEST_INHERITED", "from-host")
	cfg := mustLoad(t, `
image: alpine
environment:
  - FOO=bar
  - WITH_EQUALS=a=b
  - CAISSON_TEST_INHERITED
`)
	want := map[string]string{
		"FOO":                    "bar",
		"WITH_EQUALS":            "a=b",
		"CAISSON_TEST_INHERITED": "from-host",
	}
	assertEnv(t, cfg.Environment, want)
}

func TestEnvironmentInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"scalar", "image: alpine\nenvironment: FOO=bar\n"},
		{"empty name in list", "image: alpine\nenvironment:\n  - =bar\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadString(t, tt.yaml)
			if !errors.Is(err, ErrConfig) {
				t.Fatalf("err = %v, want ErrConfig", err)
			}
		})
	}
}

func TestHooks(t *testing.T) {
	cfg := mustLoad(t, `
image: alpine
hooks:
  root:
    script:
      - echo one
      - echo two
  user: echo hello
`)
	if got, want := len(cfg.Hooks.Root), 2; got != want {
		t.Fatalf("len(Hooks.Root) = %d, want %d", got, want)
	}
	if cfg.Hooks.Root[1] != "echo two" {
		t.Fatalf("Hooks.Root[1] = %q, want %q", cfg.Hooks.Root[1], "echo two")
	}
	if len(cfg.Hooks.User) != 1 || cfg.Hooks.User[0] != "echo hello" {
		t.Fatalf("Hooks.User = %v, want [echo hello]", cfg.Hooks.User)
	}
}

func TestHooksInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing script subkey", "image: alpine\nhooks:\n  root:\n    image: other\n"},
		{"null script", "image: alpine\nhooks:\n  root:\n    script:\n"},
		{"empty script list", "image: alpine\nhooks:\n  user:\n    script: []\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadString(t, tt.yaml)
			if !errors.Is(err, ErrConfig) {
				t.Fatalf("err = %v, want ErrConfig", err)
			}
		})
	}
}

func TestAliasSimple(t *testing.T) {
	cfg := mustLoad(t, `
image: alpine
aliases:
  build: make -j4
`)
	alias, ok := cfg.Aliases["build"]
	if !ok {
		t.Fatal("alias build not found")
	}
	if len(alias.Script) != 1 || alias.Script[0] != "make -j4" {
		t.Fatalf("Script = %v, want [make -j4]", alias.Script)
	}
}

func TestAliasRich(t *testing.T) {
	cfg := mustLoad(t, `
image: alpine
aliases:
  release:
    script:
      - make clean
      - make release
    image: builder:latest
    entrypoint:
    shell: /bin/bash
    root: true
    environment:
      MODE: release
`)
	alias := cfg.Aliases["release"]
	if len(alias.Script) != 2 {
		t.Fatalf("len(Script) = %d, want 2", len(alias.Script))
	}
	if alias.Image != "builder:latest" {
		t.Fatalf("Image = %q, want %q", alias.Image, "builder:latest")
	}
	if alias.Entrypoint == nil || *alias.Entrypoint != "" {
		t.Fatalf("Entrypoint = %v, want empty string", alias.Entrypoint)
	}
	if alias.Shell != "/bin/bash" {
		t.Fatalf("Shell = %q, want %q", alias.Shell, "/bin/bash")
	}
	if !alias.Root {
		t.Fatal("Root = false, want true")
	}
	if alias.Environment["MODE"] != "release" {
		t.Fatalf("Environment[MODE] = %q, want %q", alias.Environment["MODE"], "release")
	}
}

func TestAliasNameWithSpaces(t *testing.T) {
	_, err := loadString(t, "image: alpine\naliases:\n  bad name: echo hi\n")
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("err = %v, want ErrConfig", err)
	}
}

func assertEnv(t *testing.T, got, want map[string]string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("environment = %v, want %v", got, want)
	}
	for key, value := range want {
		if got[key] != value {
			t.Fatalf("environment[%s] = %q, want %q", key, got[key], value)
		}
	}
}

func ptr(s string) *string { return &s }

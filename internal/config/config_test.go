package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gitlab.com/fcv-grader.net/internal/domain"
)

func TestLoadRuntimeProfilesDefaults(t *testing.T) {
	profiles, err := LoadRuntimeProfiles("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	py := profiles[domain.LanguagePython]
	if py == nil || py.Binary != "python3" || py.DisplayName != "Python" {
		t.Errorf("unexpected python profile: %+v", py)
	}
	js := profiles[domain.LanguageJavaScript]
	if js == nil || js.Binary != "node" || js.DisplayName != "Node.js" {
		t.Errorf("unexpected javascript profile: %+v", js)
	}
}

func TestLoadRuntimeProfilesOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runtimes.yaml")
	content := `
runtimes:
  - language: py
    binary: /opt/python/bin/python3.12
    image: python:3.12-slim
  - language: node
    args: ["--max-old-space-size=128"]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	profiles, err := LoadRuntimeProfiles(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	py := profiles[domain.LanguagePython]
	if py.Binary != "/opt/python/bin/python3.12" || py.Image != "python:3.12-slim" {
		t.Errorf("python overlay not applied: %+v", py)
	}
	if len(py.Args) != 1 || py.Args[0] != "-B" {
		t.Errorf("python args should keep defaults, got %v", py.Args)
	}
	js := profiles[domain.LanguageJavaScript]
	if js.Binary != "node" || len(js.Args) != 1 {
		t.Errorf("node overlay not applied: %+v", js)
	}
}

func TestLoadRuntimeProfilesRejectsUnknownLanguage(t *testing.T) {
	_, err := parseRuntimeProfiles([]byte("runtimes:\n  - language: cobol\n"), domain.DefaultRuntimeProfiles())
	if err == nil {
		t.Fatal("expected error for unknown language")
	}
}

func TestEngineConfigFromEnv(t *testing.T) {
	t.Setenv("DEFAULT_TIMEOUT_SEC", "3")
	t.Setenv("MAX_TIMEOUT_SEC", "10")
	t.Setenv("MAX_PARALLEL", "0")

	cfg := NewEngineConfig()
	if cfg.DefaultTimeout != 3*time.Second || cfg.MaxTimeout != 10*time.Second {
		t.Errorf("unexpected timeouts: %+v", cfg)
	}
	if cfg.MaxParallel != 1 {
		t.Errorf("non-positive parallelism should fall back to 1, got %d", cfg.MaxParallel)
	}

	if got := cfg.ClampTimeout(0); got != 3*time.Second {
		t.Errorf("ClampTimeout(0) = %v", got)
	}
	if got := cfg.ClampTimeout(time.Minute); got != 10*time.Second {
		t.Errorf("ClampTimeout(1m) = %v", got)
	}
	if got := cfg.ClampTimeout(7 * time.Second); got != 7*time.Second {
		t.Errorf("ClampTimeout(7s) = %v", got)
	}
}

func TestSandboxConfigRejectsUnknownKind(t *testing.T) {
	t.Setenv("SANDBOX", "vm")
	if _, err := NewSandboxConfig(); err == nil {
		t.Fatal("expected error for unknown sandbox kind")
	}
}

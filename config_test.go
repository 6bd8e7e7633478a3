package buildinfo

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadProjectConfig(t *testing.T) {
	dir := t.TempDir()
	content := `build_dir: build
ignore_prefixes:
  - extern/
  - tests/data/
jobs: 8
make_program: /usr/bin/ninja
`
	if err := os.WriteFile(filepath.Join(dir, ProjectConfigName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadProjectConfig(dir)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.BuildDir != "build" {
		t.Errorf("BuildDir = %q, want %q", cfg.BuildDir, "build")
	}
	if !reflect.DeepEqual(cfg.IgnorePrefixes, []string{"extern/", "tests/data/"}) {
		t.Errorf("IgnorePrefixes = %v", cfg.IgnorePrefixes)
	}
	if cfg.Jobs != 8 {
		t.Errorf("Jobs = %d, want 8", cfg.Jobs)
	}
	if cfg.MakeProgram != "/usr/bin/ninja" {
		t.Errorf("MakeProgram = %q", cfg.MakeProgram)
	}
}

func TestLoadProjectConfigAbsentFile(t *testing.T) {
	cfg, err := LoadProjectConfig(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(cfg, DefaultProjectConfig()) {
		t.Errorf("absent file must yield the defaults, got %+v", cfg)
	}
}

func TestLoadProjectConfigInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ProjectConfigName), []byte("jobs: [broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadProjectConfig(dir)
	var confErr *ConfigurationError
	if !errors.As(err, &confErr) {
		t.Fatalf("expected *ConfigurationError, got %T: %v", err, err)
	}
}

func TestLoadProjectConfigNegativeJobs(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ProjectConfigName), []byte("jobs: -2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadProjectConfig(dir)
	var confErr *ConfigurationError
	if !errors.As(err, &confErr) {
		t.Fatalf("expected *ConfigurationError, got %T: %v", err, err)
	}
}

package buildinfo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ProjectConfigName is the optional per-project configuration file the
// CLI reads from the source directory.
const ProjectConfigName = ".buildinfo.yaml"

// ProjectConfig is the CLI-level configuration.
//
//	# .buildinfo.yaml
//	build_dir: build
//	ignore_prefixes:
//	  - extern/
//	  - tests/data/
//	jobs: 8
type ProjectConfig struct {
	// BuildDir is the CMake build directory, absolute or relative to the
	// project root.
	BuildDir string `yaml:"build_dir,omitempty"`

	// IgnorePrefixes lists project-relative path prefixes whose source
	// files are left out of the compilation database.
	IgnorePrefixes []string `yaml:"ignore_prefixes,omitempty"`

	// Jobs caps scheduled process concurrency. Zero means host
	// parallelism.
	Jobs int `yaml:"jobs,omitempty"`

	// MakeProgram overrides the build tool from the CMake cache.
	MakeProgram string `yaml:"make_program,omitempty"`
}

// DefaultProjectConfig returns the configuration used when no
// .buildinfo.yaml exists: everything discovered from the build tree.
func DefaultProjectConfig() *ProjectConfig {
	return &ProjectConfig{}
}

// LoadProjectConfig reads dir's .buildinfo.yaml. An absent file is not an
// error and yields the defaults; a present but invalid one is a
// *ConfigurationError naming the file.
func LoadProjectConfig(dir string) (*ProjectConfig, error) {
	path := filepath.Join(dir, ProjectConfigName)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultProjectConfig(), nil
	}
	if err != nil {
		return nil, &ConfigurationError{
			Name:   ProjectConfigName,
			Path:   path,
			Reason: fmt.Sprintf("cannot read: %v", err),
		}
	}

	cfg := DefaultProjectConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &ConfigurationError{
			Name:   ProjectConfigName,
			Path:   path,
			Reason: fmt.Sprintf("invalid YAML: %v", err),
		}
	}

	if cfg.Jobs < 0 {
		return nil, &ConfigurationError{
			Name:   "jobs",
			Path:   path,
			Reason: fmt.Sprintf("must not be negative, got %d", cfg.Jobs),
		}
	}

	return cfg, nil
}

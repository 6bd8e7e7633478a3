package buildinfo

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Cache variables consulted for the compiler set and the build tool.
const (
	cacheVarCCompiler   = "CMAKE_C_COMPILER"
	cacheVarCXXCompiler = "CMAKE_CXX_COMPILER"
	cacheVarMakeProgram = "CMAKE_MAKE_PROGRAM"
)

// Compilers returns the absolute compiler paths the build is configured
// with: the C compiler, the C++ compiler, or both. The result is the
// recognized-compiler set for ParseTrace. Requesting no compiler at all,
// or a cache that names neither, is a *ConfigurationError.
func Compilers(buildDir string, useC, useCXX bool) ([]string, error) {
	var compilers []string

	if useC {
		c, err := CacheVar(buildDir, cacheVarCCompiler)
		if err != nil {
			return nil, err
		}
		compilers = append(compilers, c)
	}
	if useCXX {
		cxx, err := CacheVar(buildDir, cacheVarCXXCompiler)
		if err != nil {
			return nil, err
		}
		compilers = append(compilers, cxx)
	}

	if len(compilers) == 0 {
		return nil, &ConfigurationError{
			Name:   "compilers",
			Reason: "neither the C nor the C++ compiler was requested",
		}
	}
	return compilers, nil
}

// MakeProgram returns the build tool configured for the build dir
// (typically make or ninja). The MAKE environment variable, when set,
// overrides the cache.
func MakeProgram(buildDir string) (string, error) {
	if makeEnv := os.Getenv("MAKE"); makeEnv != "" {
		return makeEnv, nil
	}
	return CacheVar(buildDir, cacheVarMakeProgram)
}

// defaultMakeProgram is the platform fallback when no build dir is
// available to consult.
func defaultMakeProgram() string {
	if runtime.GOOS == "windows" {
		return "nmake"
	}
	return "make"
}

// ToolRequirement describes an external tool a capture run depends on.
//
// Alternatives handle platform differences: gmake for make on the BSDs,
// clang for gcc on macOS. If any alternative is found the requirement is
// satisfied. Optional tools are checked but never fail the run.
type ToolRequirement struct {
	// Name is the primary tool binary name or path.
	Name string

	// Alternatives are other binaries that satisfy this requirement.
	Alternatives []string

	// Optional tools don't cause an error when missing.
	Optional bool

	// Purpose is a human-readable description used in error messages.
	Purpose string
}

// TraceToolRequirements returns the tools a trace capture needs for the
// given build tool.
func TraceToolRequirements(makeProgram string) []ToolRequirement {
	if makeProgram == "" {
		makeProgram = defaultMakeProgram()
	}
	return []ToolRequirement{
		{
			Name:         makeProgram,
			Alternatives: []string{"gmake", "ninja"},
			Purpose:      "build tool for trace capture",
		},
	}
}

// CheckToolAvailable checks if a tool is available in the system PATH.
// Absolute paths are accepted as-is when they point at an executable.
func CheckToolAvailable(tool string) error {
	_, err := exec.LookPath(tool)
	if err != nil {
		return fmt.Errorf("%s not found in PATH", filepath.Base(tool))
	}
	return nil
}

// CheckRequiredTools verifies all required tools are available, trying
// each requirement's alternatives before giving up on it. All missing
// required tools are reported in a single error.
func CheckRequiredTools(requirements []ToolRequirement) error {
	var missing []string

	for _, req := range requirements {
		found := CheckToolAvailable(req.Name) == nil

		if !found {
			for _, alt := range req.Alternatives {
				if CheckToolAvailable(alt) == nil {
					found = true
					break
				}
			}
		}

		if !found && !req.Optional {
			if req.Purpose != "" {
				missing = append(missing, fmt.Sprintf("%s (%s)", req.Name, req.Purpose))
			} else {
				missing = append(missing, req.Name)
			}
		}
	}

	if len(missing) == 0 {
		return nil
	}
	if len(missing) == 1 {
		return fmt.Errorf("%s not found in PATH", missing[0])
	}
	return fmt.Errorf("missing required tools: %s", strings.Join(missing, ", "))
}

package buildinfo

import "log/slog"

// CompileRecord describes one translation unit recovered from the build
// trace.
//
// IncludeDirs and Defines keep the order in which the flags appeared on the
// compiler command line; duplicates are preserved. Records emitted for the
// same trace line never share backing storage, so mutating one record's
// slices cannot affect a sibling.
type CompileRecord struct {
	FilePath    string   `json:"file"`
	IncludeDirs []string `json:"include_dirs"`
	Defines     []string `json:"defines"`
}

// TraceConfig carries everything ParseTrace needs. A zero SourceDir
// disables ignore-prefix filtering relative to the project root; a zero
// BuildDir resolves relative include directories against the working
// directory.
type TraceConfig struct {
	// SourceDir is the project root. Source paths are made relative to it
	// before ignore-prefix matching.
	SourceDir string

	// BuildDir is the CMake build directory. Relative include directories
	// on compiler command lines resolve against it.
	BuildDir string

	// Compilers holds the recognized compiler path spellings. A trace line
	// mentioning none of them is not a compiler invocation and is skipped.
	// Must not be empty.
	Compilers []string

	// IgnorePrefixes drops source files whose project-relative path starts
	// with any of the given prefixes.
	IgnorePrefixes []string

	// Logger receives progress output. Nil means slog.Default().
	Logger *slog.Logger
}

func (c *TraceConfig) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

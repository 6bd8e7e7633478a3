package buildinfo

import (
	"path/filepath"
	"strings"
)

// Extension sets for the native-language sources a CMake build compiles.
var (
	sourceExtensions = []string{".c", ".cpp", ".cxx", ".m", ".mm", ".rc", ".cc", ".inl", ".osl"}
	headerExtensions = []string{".h", ".hpp", ".hxx", ".hh"}
)

// MatchesExtension checks if a filename has any of the given extensions.
//
// The check is case-insensitive and works with or without a leading dot:
//
//	MatchesExtension("ghost.CC", ".cc")  // true
//	MatchesExtension("ghost.cc", "cc")   // true
func MatchesExtension(filename string, extensions ...string) bool {
	for _, ext := range extensions {
		if strings.HasSuffix(strings.ToLower(filename), strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// IsSource reports whether filename is a compilable source file.
func IsSource(filename string) bool {
	return hasExtensionIn(filename, sourceExtensions)
}

// IsHeader reports whether filename is a header file.
func IsHeader(filename string) bool {
	return hasExtensionIn(filename, headerExtensions)
}

// IsSourceOrHeader reports whether filename is either a source or a header
// file.
func IsSourceOrHeader(filename string) bool {
	return IsSource(filename) || IsHeader(filename)
}

// hasExtensionIn matches the file's extension exactly against a set, so
// "foo.cc" matches ".cc" but "foo.xcc" does not.
func hasExtensionIn(filename string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// shouldIgnore reports whether the source file's path, made relative to
// sourceDir, starts with any of the configured ignore prefixes.
func shouldIgnore(path, sourceDir string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return false
	}

	rel := path
	if sourceDir != "" {
		if r, err := filepath.Rel(sourceDir, path); err == nil {
			rel = r
		}
	}

	for _, prefix := range prefixes {
		if strings.HasPrefix(rel, prefix) {
			return true
		}
	}
	return false
}

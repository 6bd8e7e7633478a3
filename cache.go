package buildinfo

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// CacheFileName is the CMake cache file looked up inside a build directory.
const CacheFileName = "CMakeCache.txt"

// cacheEntryPattern matches NAME:TYPE=VALUE cache lines. Both the name and
// the type are optional in malformed lines; the value may be empty.
var cacheEntryPattern = regexp.MustCompile(`^([A-Za-z0-9_\-]+)?:?([A-Za-z0-9_\-]+)?=(.*)$`)

// CacheEntry is one variable from CMakeCache.txt.
type CacheEntry struct {
	Name  string
	Type  string
	Value string
}

// CacheEntries parses every variable out of the build directory's
// CMakeCache.txt, skipping blank lines and // and # comments. An
// unreadable cache file is a *ConfigurationError naming the path.
func CacheEntries(buildDir string) ([]CacheEntry, error) {
	path := filepath.Join(buildDir, CacheFileName)

	f, err := os.Open(path)
	if err != nil {
		return nil, &ConfigurationError{
			Name:   CacheFileName,
			Path:   path,
			Reason: fmt.Sprintf("cannot read cache file: %v", err),
		}
	}
	defer f.Close()

	var entries []CacheEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") || strings.HasPrefix(line, "#") {
			continue
		}
		m := cacheEntryPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		entries = append(entries, CacheEntry{Name: m[1], Type: m[2], Value: m[3]})
	}
	if err := scanner.Err(); err != nil {
		return nil, &ConfigurationError{
			Name:   CacheFileName,
			Path:   path,
			Reason: fmt.Sprintf("cannot read cache file: %v", err),
		}
	}

	return entries, nil
}

// CacheVar returns the value of one CMake cache variable. A variable that
// is not in the cache is a *ConfigurationError naming it, since a missing
// variable means the build was never configured for what the caller needs.
func CacheVar(buildDir, name string) (string, error) {
	entries, err := CacheEntries(buildDir)
	if err != nil {
		return "", err
	}

	for _, e := range entries {
		if e.Name == name {
			return e.Value, nil
		}
	}

	return "", &ConfigurationError{
		Name:   name,
		Path:   filepath.Join(buildDir, CacheFileName),
		Reason: "variable not found in cache",
	}
}

// FindBuildDir locates the CMake build directory: the candidate if it
// holds a CMakeCache.txt, otherwise the working directory. Neither having
// a cache file is a *ConfigurationError naming both places tried.
func FindBuildDir(candidate string) (string, error) {
	if candidate != "" && cacheFileExists(candidate) {
		return candidate, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	if cacheFileExists(cwd) {
		return cwd, nil
	}

	return "", &ConfigurationError{
		Name:   CacheFileName,
		Path:   cwd,
		Reason: fmt.Sprintf("not found in %q or the working directory; pass the CMake build dir or run from it", candidate),
	}
}

func cacheFileExists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, CacheFileName))
	return err == nil
}

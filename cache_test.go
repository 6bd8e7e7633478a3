package buildinfo

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const testCache = `# This is the CMakeCache file.
// For build in directory: /build

CMAKE_BUILD_TYPE:STRING=Release
CMAKE_C_COMPILER:FILEPATH=/usr/bin/cc
CMAKE_CXX_COMPILER:FILEPATH=/usr/bin/c++
CMAKE_MAKE_PROGRAM:FILEPATH=/usr/bin/ninja

//Value Computed by CMake
PROJECT_NAME:STATIC=demo

WITH_TESTS:BOOL=ON
EMPTY_VALUE:STRING=
`

func writeCache(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, CacheFileName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestCacheVar(t *testing.T) {
	dir := writeCache(t, testCache)

	testCases := []struct {
		name     string
		expected string
	}{
		{"CMAKE_C_COMPILER", "/usr/bin/cc"},
		{"CMAKE_CXX_COMPILER", "/usr/bin/c++"},
		{"CMAKE_MAKE_PROGRAM", "/usr/bin/ninja"},
		{"PROJECT_NAME", "demo"},
		{"WITH_TESTS", "ON"},
		{"EMPTY_VALUE", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CacheVar(dir, tc.name)
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.expected {
				t.Errorf("CacheVar(%q) = %q, want %q", tc.name, got, tc.expected)
			}
		})
	}
}

func TestCacheVarMissing(t *testing.T) {
	dir := writeCache(t, testCache)

	_, err := CacheVar(dir, "NO_SUCH_VARIABLE")
	var confErr *ConfigurationError
	if !errors.As(err, &confErr) {
		t.Fatalf("expected *ConfigurationError, got %T: %v", err, err)
	}
	if confErr.Name != "NO_SUCH_VARIABLE" {
		t.Errorf("error must name the variable, got %q", confErr.Name)
	}
}

func TestCacheEntriesSkipsComments(t *testing.T) {
	dir := writeCache(t, testCache)

	entries, err := CacheEntries(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name == "" {
			continue
		}
		if e.Name == "This" || e.Name == "For" || e.Name == "Value" {
			t.Errorf("comment line leaked into entries: %+v", e)
		}
	}
}

func TestCacheEntriesUnreadable(t *testing.T) {
	_, err := CacheEntries(filepath.Join(t.TempDir(), "nope"))
	var confErr *ConfigurationError
	if !errors.As(err, &confErr) {
		t.Fatalf("expected *ConfigurationError, got %T: %v", err, err)
	}
}

func TestFindBuildDir(t *testing.T) {
	dir := writeCache(t, testCache)

	got, err := FindBuildDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got != dir {
		t.Errorf("FindBuildDir = %q, want %q", got, dir)
	}
}

func TestFindBuildDirRejectsDirWithoutCache(t *testing.T) {
	empty := t.TempDir()

	// The fallback working directory has no cache file either in a test
	// run, so this must fail.
	_, err := FindBuildDir(empty)
	var confErr *ConfigurationError
	if !errors.As(err, &confErr) {
		t.Fatalf("expected *ConfigurationError, got %T: %v", err, err)
	}
}

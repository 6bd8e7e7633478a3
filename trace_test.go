package buildinfo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceSourceFor(t *testing.T) {
	testCases := []struct {
		program  string
		expected string
	}{
		{"/usr/bin/make", "Make"},
		{"/usr/local/bin/gmake", "Make"},
		{"make", "Make"},
		{"/usr/bin/ninja", "Ninja"},
		{"ninja-build", "Ninja"},
	}

	for _, tc := range testCases {
		t.Run(tc.program, func(t *testing.T) {
			src, err := TraceSourceFor(tc.program)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, src.Name())
		})
	}
}

func TestTraceSourceForUnknownTool(t *testing.T) {
	_, err := TraceSourceFor("/usr/bin/msbuild")

	var confErr *ConfigurationError
	require.ErrorAs(t, err, &confErr)
	assert.Equal(t, "CMAKE_MAKE_PROGRAM", confErr.Name)
}

func TestCaptureLinesMissingProgram(t *testing.T) {
	_, err := captureLines(context.Background(), "Make", t.TempDir(),
		"definitely-not-a-real-tool-xyzzy")

	var procErr *ProcessError
	require.ErrorAs(t, err, &procErr)
	assert.Contains(t, procErr.Error(), "Make trace")
}

func TestCaptureLines(t *testing.T) {
	// echo stands in for a build tool: its arguments come back as the
	// single trace line.
	lines, err := captureLines(context.Background(), "echo", t.TempDir(),
		"echo", "-t", "commands")
	require.NoError(t, err)
	require.NotEmpty(t, lines)
	assert.Equal(t, "-t commands", lines[0])
}

func TestCaptureDatabaseRejectsUnconfiguredDir(t *testing.T) {
	_, err := CaptureDatabase(context.Background(), &CaptureOptions{
		BuildDir: t.TempDir(),
		UseC:     true,
	})

	var confErr *ConfigurationError
	require.ErrorAs(t, err, &confErr, "a dir without CMakeCache.txt must fail fast")
}

func TestCaptureLinesToleratesNonZeroExitWithOutput(t *testing.T) {
	// sh prints a line and exits 2: the partial trace must survive, the
	// way make --keep-going produces usable output from a broken tree.
	lines, err := captureLines(context.Background(), "sh", t.TempDir(),
		"sh", "-c", "echo partial; exit 2")
	require.NoError(t, err)
	require.NotEmpty(t, lines)
	assert.Equal(t, "partial", lines[0])

	// A failure with nothing on stdout stays an error.
	_, err = captureLines(context.Background(), "sh", t.TempDir(),
		"sh", "-c", "exit 2")
	var procErr *ProcessError
	require.ErrorAs(t, err, &procErr)
}

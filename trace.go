package buildinfo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
)

// TraceSource captures a build tool's planned commands without running the
// build. Each implementation handles one build tool family and reports
// through CanHandle whether a given make program belongs to it.
//
// Implementations should be stateless apart from the program path; the
// same source may be used for several capture runs.
type TraceSource interface {
	// Name returns the human-readable source name, used in errors and logs.
	Name() string

	// CanHandle checks if this source drives the given make program.
	CanHandle(makeProgram string) bool

	// Capture runs the build tool in show-commands mode inside buildDir and
	// returns its output split into lines.
	Capture(ctx context.Context, buildDir string) ([]string, error)
}

// TraceSourceFor picks the trace source for the configured make program.
// Sources are consulted in order: make-family first, then ninja. An
// unknown build tool is a *ConfigurationError naming the cache variable.
func TraceSourceFor(makeProgram string) (TraceSource, error) {
	sources := []TraceSource{
		&MakeTraceSource{Program: makeProgram},
		&NinjaTraceSource{Program: makeProgram},
	}

	for _, s := range sources {
		if s.CanHandle(makeProgram) {
			return s, nil
		}
	}

	return nil, &ConfigurationError{
		Name:   cacheVarMakeProgram,
		Reason: fmt.Sprintf("unsupported build tool %q", makeProgram),
	}
}

// MakeTraceSource captures planned commands from make and gmake via a
// verbose dry run.
type MakeTraceSource struct {
	// Program is the make binary to run.
	Program string
}

// Name returns the source name.
func (s *MakeTraceSource) Name() string { return "Make" }

// CanHandle matches make and gmake binaries by basename.
func (s *MakeTraceSource) CanHandle(makeProgram string) bool {
	base := strings.ToLower(filepath.Base(makeProgram))
	return strings.HasPrefix(base, "make") || strings.HasPrefix(base, "gmake")
}

// Capture runs a full verbose dry run. --keep-going means a broken target
// still yields the commands for everything else, so partial output with a
// non-zero exit is accepted.
func (s *MakeTraceSource) Capture(ctx context.Context, buildDir string) ([]string, error) {
	return captureLines(ctx, s.Name(), buildDir, s.Program,
		"--always-make", "--dry-run", "--keep-going", "VERBOSE=1")
}

// NinjaTraceSource captures planned commands from ninja's commands tool.
type NinjaTraceSource struct {
	// Program is the ninja binary to run.
	Program string
}

// Name returns the source name.
func (s *NinjaTraceSource) Name() string { return "Ninja" }

// CanHandle matches ninja binaries by basename.
func (s *NinjaTraceSource) CanHandle(makeProgram string) bool {
	return strings.HasPrefix(strings.ToLower(filepath.Base(makeProgram)), "ninja")
}

// Capture lists every build statement's command.
func (s *NinjaTraceSource) Capture(ctx context.Context, buildDir string) ([]string, error) {
	return captureLines(ctx, s.Name(), buildDir, s.Program, "-t", "commands")
}

// captureLines runs one show-commands invocation and splits its stdout
// into lines. A non-zero exit with usable stdout is tolerated; a failure
// with nothing on stdout is a *ProcessError carrying stderr for context.
func captureLines(ctx context.Context, tool, dir, program string, args ...string) ([]string, error) {
	cmd := exec.CommandContext(ctx, program, args...)
	cmd.Dir = dir

	var stderr strings.Builder
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) || len(out) == 0 {
			return nil, &ProcessError{
				Tool:   tool + " trace",
				Output: strings.Split(stderr.String(), "\n"),
				Err:    err,
			}
		}
	}

	return strings.Split(string(out), "\n"), nil
}

// CaptureOptions controls a full capture run: trace the build, read the
// compiler set, parse. BuildDir falls back to the working directory via
// FindBuildDir; SourceDir defaults to the build dir's parent, matching
// the usual <root>/build layout.
type CaptureOptions struct {
	BuildDir       string
	SourceDir      string
	UseC           bool
	UseCXX         bool
	IgnorePrefixes []string

	// MakeProgram overrides the build tool from the CMake cache (and the
	// MAKE environment variable).
	MakeProgram string

	Logger *slog.Logger
}

func (o *CaptureOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// CaptureDatabase runs the whole pipeline and returns the compilation
// database:
//
//  1. Locate the build dir and its build tool.
//  2. Capture the build tool's planned commands.
//  3. Read the configured compiler paths from the CMake cache.
//  4. Parse the trace into CompileRecords.
//
// Any fatal condition from the steps above (missing cache variables, an
// unknown build tool, a missing include directory) aborts with the
// step's typed error.
func CaptureDatabase(ctx context.Context, opts *CaptureOptions) ([]CompileRecord, error) {
	logger := opts.logger()

	buildDir, err := FindBuildDir(opts.BuildDir)
	if err != nil {
		return nil, err
	}

	makeProgram := opts.MakeProgram
	if makeProgram == "" {
		makeProgram, err = MakeProgram(buildDir)
		if err != nil {
			return nil, err
		}
	}
	if err := CheckRequiredTools(TraceToolRequirements(makeProgram)); err != nil {
		return nil, err
	}

	src, err := TraceSourceFor(makeProgram)
	if err != nil {
		return nil, err
	}

	logger.Info("capturing build trace",
		slog.String("source", src.Name()),
		slog.String("build_dir", buildDir))

	lines, err := src.Capture(ctx, buildDir)
	if err != nil {
		return nil, err
	}

	compilers, err := Compilers(buildDir, opts.UseC, opts.UseCXX)
	if err != nil {
		return nil, err
	}

	sourceDir := opts.SourceDir
	if sourceDir == "" {
		sourceDir = filepath.Dir(buildDir)
	}

	return ParseTrace(lines, &TraceConfig{
		SourceDir:      sourceDir,
		BuildDir:       buildDir,
		Compilers:      compilers,
		IgnorePrefixes: opts.IgnorePrefixes,
		Logger:         opts.Logger,
	})
}

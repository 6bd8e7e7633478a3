package buildinfo

import (
	"fmt"
	"strings"
)

// ConfigurationError reports required build metadata that is absent or
// unusable: a missing cache variable, an empty compiler set, a bad
// scheduling limit. It is fatal and surfaced before any parsing or
// scheduling work happens.
type ConfigurationError struct {
	// Name is the variable, option, or tool the problem is about.
	Name string

	// Path is the file or directory that was consulted, when relevant.
	Path string

	// Reason explains what was wrong.
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("configuration: %s: %s (%s)", e.Name, e.Reason, e.Path)
	}
	return fmt.Sprintf("configuration: %s: %s", e.Name, e.Reason)
}

// IncludeMissingError reports a resolved include directory that does not
// exist on disk. It fails the whole parse: an include directory named by
// the build but absent from the filesystem means the build configuration
// is stale.
type IncludeMissingError struct {
	// Dir is the absolute include directory that was not found.
	Dir string
}

func (e *IncludeMissingError) Error() string {
	return fmt.Sprintf("include directory missing: %s", e.Dir)
}

// ProcessError reports a child process run by one of the collaborators
// (trace capture, define dump) that could not be started or exited
// non-zero. Scheduled jobs never produce it; their exit statuses flow
// through JobOutcome instead.
type ProcessError struct {
	// Tool names what was being run, e.g. "make trace" or "define dump".
	Tool string

	// Output holds the captured output lines, for diagnostics.
	Output []string

	// Err is the underlying error, usually an *exec.ExitError.
	Err error
}

func (e *ProcessError) Error() string {
	var prefix string
	if e.Err != nil {
		prefix = fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
	} else {
		prefix = fmt.Sprintf("%s failed", e.Tool)
	}

	if out := strings.TrimSpace(strings.Join(e.Output, "\n")); out != "" {
		return fmt.Sprintf("%s\n\nCommand output:\n%s", prefix, out)
	}
	return prefix
}

func (e *ProcessError) Unwrap() error { return e.Err }

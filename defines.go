package buildinfo

import (
	"context"
	"os/exec"
	"strings"
)

// CompilerDefines returns the compiler's built-in preprocessor defines as
// preprocessor source, one "#define NAME VALUE" per line. Works for both
// gcc and clang. The compiler reads from the null device, so nothing but
// the built-ins is expanded.
func CompilerDefines(ctx context.Context, compiler string) (string, error) {
	cmd := exec.CommandContext(ctx, compiler, "-dM", "-E", "-")

	var stderr strings.Builder
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return "", &ProcessError{
			Tool:   "define dump",
			Output: strings.Split(stderr.String(), "\n"),
			Err:    err,
		}
	}

	return strings.TrimSpace(string(out)), nil
}

// CompilerDefinesAsFlags returns the built-in defines reformatted as -D
// command-line flags: "#define NAME VALUE" becomes "-DNAME=VALUE" and a
// bare "#define NAME" becomes "-DNAME".
func CompilerDefinesAsFlags(ctx context.Context, compiler string) ([]string, error) {
	src, err := CompilerDefines(ctx, compiler)
	if err != nil {
		return nil, err
	}
	return DefineFlags(src), nil
}

// DefineFlags reformats "#define NAME VALUE" lines as -D command-line
// flags. Callers that capture the define dump themselves (for example
// through a scheduled process) use it to get the same reformatting as
// CompilerDefinesAsFlags.
func DefineFlags(src string) []string {
	var flags []string
	for _, line := range strings.Split(src, "\n") {
		if !strings.HasPrefix(line, "#define") {
			continue
		}
		rest := strings.TrimSpace(strings.TrimPrefix(line, "#define"))
		if rest == "" {
			continue
		}
		name, value, hasValue := strings.Cut(rest, " ")
		if hasValue {
			flags = append(flags, "-D"+name+"="+value)
		} else {
			flags = append(flags, "-D"+name)
		}
	}

	return flags
}

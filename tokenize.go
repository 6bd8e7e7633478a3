package buildinfo

import (
	"strings"

	"github.com/google/shlex"
)

// compilerSentinel replaces every recognized compiler path on a trace line,
// unifying differing path spellings and marking where compiler-specific
// arguments begin.
const compilerSentinel = "%COMPILER%"

// SubstituteCompilers replaces any field matching one of the recognized
// compiler paths with the sentinel token. The second return value reports
// whether at least one substitution happened; a line without one is not a
// compiler invocation.
func SubstituteCompilers(fields []string, compilers []string) ([]string, bool) {
	out := make([]string, len(fields))
	substituted := false

	for i, f := range fields {
		out[i] = f
		for _, c := range compilers {
			if f == c {
				out[i] = compilerSentinel
				substituted = true
				break
			}
		}
	}

	return out, substituted
}

// JoinSplitFlags rewrites a space-joined command line so that two-token
// flag forms become single joined tokens:
//
//	" -isystem dir" -> " -Idir"
//	" -D NAME"      -> " -DNAME"
//	" -I dir"       -> " -Idir"
//
// The rewrite is purely textual and happens before re-tokenizing with
// shell quoting rules, so quoted arguments containing spaces survive as
// single tokens. Applying it to an already-joined flag is a no-op.
func JoinSplitFlags(line string) string {
	line = strings.ReplaceAll(line, " -isystem ", " -I")
	line = strings.ReplaceAll(line, " -D ", " -D")
	line = strings.ReplaceAll(line, " -I ", " -I")
	return line
}

// SplitCommandLine tokenizes a command line with shell quoting rules, so
// quoted arguments containing whitespace come back as single tokens.
func SplitCommandLine(line string) ([]string, error) {
	return shlex.Split(line)
}

// normalizeLine runs the full per-line normalization: whitespace split,
// compiler substitution, split-flag joining, quote-aware re-tokenizing.
// ok is false when the line mentions no recognized compiler.
func normalizeLine(line string, compilers []string) (tokens []string, ok bool, err error) {
	fields, substituted := SubstituteCompilers(strings.Fields(line), compilers)
	if !substituted {
		return nil, false, nil
	}

	joined := JoinSplitFlags(strings.Join(fields, " "))

	tokens, err = SplitCommandLine(joined)
	if err != nil {
		return nil, true, err
	}
	return tokens, true, nil
}

package buildinfo

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ParseTrace turns build-tool trace lines into an ordered compilation
// database.
//
// Per line, it normalizes split flags and compiler spellings, drops
// everything up to and including the compiler token (which also removes
// driver wrappers such as ccache or distcc prefixes), then classifies the
// remaining tokens into source files, -I include directories, and -D
// defines. One CompileRecord is emitted per recognized source file; files
// on the same line are emitted in sorted order so output is deterministic
// regardless of token order, while line order is preserved across lines.
// Duplicate records from multiple lines are kept verbatim; deduplication
// belongs to consumers.
//
// Relative include directories resolve against cfg.BuildDir. After all
// lines are processed, every resolved include directory must exist on
// disk; the first missing one fails the whole parse with
// *IncludeMissingError and no records are returned. An empty
// cfg.Compilers set is a *ConfigurationError.
//
// Lines that mention no recognized compiler, or that cannot be tokenized
// with shell quoting rules, are skipped silently: trace output
// legitimately contains linking, archiving, and echo lines.
func ParseTrace(lines []string, cfg *TraceConfig) ([]CompileRecord, error) {
	if len(cfg.Compilers) == 0 {
		return nil, &ConfigurationError{
			Name:   "compilers",
			Reason: "no recognized compiler paths configured",
		}
	}

	logger := cfg.logger()
	logger.Info("parsing build trace", slog.Int("lines", len(lines)))

	var records []CompileRecord

	// Include dirs pending the existence check, in first-seen order.
	var pending []string
	seen := make(map[string]struct{})

	for i, line := range lines {
		tokens, ok, err := normalizeLine(line, cfg.Compilers)
		if !ok {
			continue
		}
		if err != nil {
			logger.Debug("skipping unparseable trace line",
				slog.Int("line", i+1),
				slog.Any("error", err))
			continue
		}

		sentinel := -1
		for j, tok := range tokens {
			if tok == compilerSentinel {
				sentinel = j
				break
			}
		}
		if sentinel < 0 {
			continue
		}
		args := tokens[sentinel+1:]

		var files, incDirs, defines []string
		for _, arg := range args {
			switch {
			case strings.HasPrefix(arg, "-I"):
				incDirs = append(incDirs, strings.TrimSpace(arg[2:]))
			case strings.HasPrefix(arg, "-D"):
				defines = append(defines, strings.TrimSpace(arg[2:]))
			case IsSource(arg):
				files = append(files, arg)
			}
		}
		resolved, err := resolveIncludeDirs(incDirs, cfg.BuildDir)
		if err != nil {
			return nil, err
		}
		for _, dir := range resolved {
			if _, dup := seen[dir]; !dup {
				seen[dir] = struct{}{}
				pending = append(pending, dir)
			}
		}

		sort.Strings(files)
		for _, f := range files {
			if shouldIgnore(f, cfg.SourceDir, cfg.IgnorePrefixes) {
				continue
			}
			records = append(records, CompileRecord{
				FilePath:    f,
				IncludeDirs: append([]string(nil), resolved...),
				Defines:     append([]string(nil), defines...),
			})
		}
	}

	// Safety check that the includes the build names actually exist.
	for _, dir := range pending {
		if _, err := os.Stat(dir); err != nil {
			return nil, &IncludeMissingError{Dir: dir}
		}
	}

	logger.Info("parsed build trace",
		slog.Int("records", len(records)),
		slog.Int("include_dirs", len(pending)))

	return records, nil
}

// resolveIncludeDirs makes every non-absolute include directory absolute
// relative to the build dir.
func resolveIncludeDirs(dirs []string, buildDir string) ([]string, error) {
	resolved := make([]string, len(dirs))
	for i, dir := range dirs {
		if filepath.IsAbs(dir) {
			resolved[i] = dir
			continue
		}
		abs, err := filepath.Abs(filepath.Join(buildDir, dir))
		if err != nil {
			return nil, err
		}
		resolved[i] = abs
	}
	return resolved, nil
}

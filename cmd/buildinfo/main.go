package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	buildinfo "github.com/contriboss/buildinfo-go"
)

var (
	flagBuildDir   string
	flagSourceDir  string
	flagIgnore     []string
	flagExtensions []string
	flagNoC        bool
	flagNoCXX      bool
	flagCompiler   string
	flagVerbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "buildinfo",
	Short: "Inspect a CMake build: compilation database, compiler defines, source lists",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if flagVerbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})))
	},
}

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the compilation database as JSON",
	Long: `Dump captures the build tool's planned commands (make --dry-run or
ninja -t commands), parses the compiler invocations out of them, and
prints one entry per source file with its include directories and
preprocessor defines.`,
	RunE: runDump,
}

var definesCmd = &cobra.Command{
	Use:   "defines",
	Short: "Print the configured compilers' built-in preprocessor defines as -D flags",
	Long: `Defines queries every configured compiler (or the one given with
--compiler) for its built-in preprocessor defines. The per-compiler
dumps run as scheduled processes, capped at the jobs value from
.buildinfo.yaml.`,
	RunE: runDefines,
}

var sourcesCmd = &cobra.Command{
	Use:   "sources [dir]",
	Short: "List the source and header files under a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSources,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagBuildDir, "build-dir", "", "CMake build directory (default: working directory)")
	rootCmd.PersistentFlags().StringVar(&flagSourceDir, "source-dir", "", "project root (default: parent of the build directory)")

	dumpCmd.Flags().StringSliceVar(&flagIgnore, "ignore", nil, "project-relative prefixes to leave out")
	dumpCmd.Flags().BoolVar(&flagNoC, "no-c", false, "skip the C compiler")
	dumpCmd.Flags().BoolVar(&flagNoCXX, "no-cxx", false, "skip the C++ compiler")

	definesCmd.Flags().StringVar(&flagCompiler, "compiler", "", "compiler to query (default: every compiler in the cache)")
	definesCmd.Flags().BoolVar(&flagNoC, "no-c", false, "skip the C compiler")
	definesCmd.Flags().BoolVar(&flagNoCXX, "no-cxx", false, "skip the C++ compiler")

	sourcesCmd.Flags().StringSliceVar(&flagExtensions, "ext", nil, "restrict to files with these extensions (default: known source and header extensions)")

	rootCmd.AddCommand(dumpCmd, definesCmd, sourcesCmd)
}

func runDump(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ignore := cfg.IgnorePrefixes
	ignore = append(ignore, flagIgnore...)

	records, err := buildinfo.CaptureDatabase(cmd.Context(), &buildinfo.CaptureOptions{
		BuildDir:       buildDirFrom(cfg),
		SourceDir:      flagSourceDir,
		UseC:           !flagNoC,
		UseCXX:         !flagNoCXX,
		IgnorePrefixes: ignore,
		MakeProgram:    cfg.MakeProgram,
	})
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runDefines(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	compilers := []string{flagCompiler}
	if flagCompiler == "" {
		buildDir, err := buildinfo.FindBuildDir(buildDirFrom(cfg))
		if err != nil {
			return err
		}
		compilers, err = buildinfo.Compilers(buildDir, !flagNoC, !flagNoCXX)
		if err != nil {
			return err
		}
	}

	lines, err := collectDefines(cmd.Context(), compilers, cfg.Jobs)
	if err != nil {
		return err
	}
	for _, l := range lines {
		fmt.Println(l)
	}
	return nil
}

// collectDefines queries each compiler's built-in defines, running the
// dumps as scheduled processes capped at jobs concurrent children (zero
// means host parallelism). When more than one compiler is queried, each
// group of flags is preceded by a comment line naming its compiler;
// groups appear in completion order.
func collectDefines(ctx context.Context, compilers []string, jobs int) ([]string, error) {
	batch := make([]buildinfo.Job, 0, len(compilers))
	for _, compiler := range compilers {
		compiler := compiler // per-iteration copy: language version here is pre-1.22
		batch = append(batch, buildinfo.Job{
			Name: compiler,
			Start: func(ctx context.Context) (buildinfo.ProcessHandle, error) {
				return buildinfo.StartProcess(ctx, compiler, "-dM", "-E", "-")
			},
		})
	}

	outcomes, err := buildinfo.QueueProcesses(ctx, batch, &buildinfo.ScheduleOptions{
		Limit:        jobs,
		PollInterval: 10 * time.Millisecond,
	})
	if err != nil {
		return nil, err
	}

	var lines []string
	for i := range outcomes {
		o := &outcomes[i]
		if o.Status() != 0 {
			return nil, &buildinfo.ProcessError{
				Tool:   "define dump (" + o.Job.Name + ")",
				Output: strings.Split(string(o.Stderr), "\n"),
			}
		}
		if len(compilers) > 1 {
			lines = append(lines, "# "+o.Job.Name)
		}
		lines = append(lines, buildinfo.DefineFlags(string(o.Stdout))...)
	}
	return lines, nil
}

func runSources(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}

	keep := buildinfo.IsSourceOrHeader
	if len(flagExtensions) > 0 {
		keep = func(path string) bool {
			return buildinfo.MatchesExtension(path, flagExtensions...)
		}
	}

	files, err := buildinfo.SourceList(root, keep)
	if err != nil {
		return err
	}
	for _, f := range files {
		fmt.Println(f)
	}
	return nil
}

// loadConfig reads the optional .buildinfo.yaml from the source dir (or
// the working directory when none is given).
func loadConfig() (*buildinfo.ProjectConfig, error) {
	dir := flagSourceDir
	if dir == "" {
		dir = "."
	}
	return buildinfo.LoadProjectConfig(dir)
}

// buildDirFrom merges the --build-dir flag over the config file value.
func buildDirFrom(cfg *buildinfo.ProjectConfig) string {
	if flagBuildDir != "" {
		return flagBuildDir
	}
	return cfg.BuildDir
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

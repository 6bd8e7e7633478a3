// Package buildinfo turns a CMake-driven native build into a structured
// compilation database and schedules batches of build-related child
// processes under a concurrency cap.
//
// # Compilation Database
//
// The parser consumes the verbose "show commands" output of the build tool
// (make --dry-run or ninja -t commands) and recovers one CompileRecord per
// source file found on a compiler invocation line:
//
//	buildDir, err := buildinfo.FindBuildDir("")
//	compilers, err := buildinfo.Compilers(buildDir, true, true)
//
//	src, err := buildinfo.TraceSourceFor(makeProgram)
//	lines, err := src.Capture(ctx, buildDir)
//
//	records, err := buildinfo.ParseTrace(lines, &buildinfo.TraceConfig{
//	    SourceDir: sourceDir,
//	    BuildDir:  buildDir,
//	    Compilers: compilers,
//	})
//
// Or in one call:
//
//	records, err := buildinfo.CaptureDatabase(ctx, &buildinfo.CaptureOptions{
//	    BuildDir:  buildDir,
//	    SourceDir: sourceDir,
//	    UseC:      true,
//	    UseCXX:    true,
//	})
//
// Each record carries the source file path plus its include directories and
// preprocessor defines in command-line order. Include directories are
// resolved to absolute paths and verified to exist; a missing directory
// fails the whole parse, since a stale build tree would otherwise produce a
// silently incomplete database.
//
// # Process Scheduling
//
// QueueProcesses runs an ordered batch of jobs, each of which starts one
// child process, with at most Limit processes alive at a time. Output is
// drained continuously through non-blocking reads and every job's finalize
// callback fires exactly once, after its process has exited, with the
// complete captured stdout and stderr:
//
//	jobs := []buildinfo.Job{{
//	    Name: "regen",
//	    Start: func(ctx context.Context) (buildinfo.ProcessHandle, error) {
//	        return buildinfo.StartProcess(ctx, "make", "-C", dir, "regen")
//	    },
//	}}
//
//	outcomes, err := buildinfo.QueueProcesses(ctx, jobs, &buildinfo.ScheduleOptions{
//	    Limit:    4,
//	    Finalize: report,
//	})
//
// A non-zero exit status does not stop the batch; it is reported through
// the job's outcome, and the finalize callback may override it.
//
// # Platform Support
//
// Parsing and scheduling are portable. StartProcess, the production
// ProcessHandle, relies on non-blocking pipe reads and is Unix-only.
package buildinfo

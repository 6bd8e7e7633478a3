package buildinfo

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"
)

// ProcessHandle is an opaque handle to a started child process. The
// production implementation is OSProcess (see StartProcess); tests use
// scripted fakes.
//
// Read semantics: the TryRead methods never block and return a nil slice
// when nothing is ready, which is not an error. The Drain methods block
// until the stream is closed and return everything still buffered. Each
// output byte is returned exactly once across all reads of a stream.
type ProcessHandle interface {
	// TryReadStdout returns whatever stdout bytes are currently available
	// without blocking.
	TryReadStdout() ([]byte, error)

	// TryReadStderr returns whatever stderr bytes are currently available
	// without blocking.
	TryReadStderr() ([]byte, error)

	// DrainStdout blocks until stdout is closed and returns the rest of it.
	DrainStdout() ([]byte, error)

	// DrainStderr blocks until stderr is closed and returns the rest of it.
	DrainStderr() ([]byte, error)

	// Poll reports whether the process has exited, without blocking.
	Poll() (bool, error)

	// Wait blocks until the process exits. A non-zero exit status is not a
	// Wait error; it is reported through ExitStatus.
	Wait() error

	// ExitStatus returns the process exit status. Valid only once Poll has
	// reported true or Wait has returned; -1 before that.
	ExitStatus() int

	// Kill terminates the process. The scheduler never calls it; it exists
	// so callers holding a handle can enforce deadlines of their own.
	Kill() error
}

// Job describes one schedulable unit of work: a function that starts a
// child process and returns its handle. Jobs are immutable once submitted.
type Job struct {
	// Name identifies the job in logs and error messages.
	Name string

	// Start launches the job's process. Called exactly once, in submission
	// order. The context is the one given to QueueProcesses, so handles
	// created through exec.CommandContext die when the caller cancels it.
	Start func(ctx context.Context) (ProcessHandle, error)
}

// Finalize receives one completed job's full captured output, strictly
// after its process has exited. Returning a non-nil pointer overrides the
// exit status recorded in the job's outcome, letting callers reclassify a
// failure (or a success) without being able to affect sibling jobs.
type Finalize func(h ProcessHandle, stdout, stderr []byte) *int

// JobOutcome is the final record for one job.
type JobOutcome struct {
	Job            Job
	Handle         ProcessHandle
	Stdout         []byte
	Stderr         []byte
	ExitStatus     int
	OverrideStatus *int
}

// Status returns the override status when finalize set one, otherwise the
// process exit status.
func (o *JobOutcome) Status() int {
	if o.OverrideStatus != nil {
		return *o.OverrideStatus
	}
	return o.ExitStatus
}

// ScheduleOptions configures QueueProcesses. The zero value runs with
// host parallelism, a 100ms poll interval, and no finalize callback.
type ScheduleOptions struct {
	// Limit caps how many processes are alive at once. Zero means the
	// host's logical CPU count; a negative value is a *ConfigurationError.
	Limit int

	// PollInterval is how long the scheduling loop sleeps between sweeps
	// of the active set. Zero means 100ms.
	PollInterval time.Duration

	// Finalize, when non-nil, is invoked exactly once per job.
	Finalize Finalize

	// Logger receives per-job progress output. Nil means slog.Default().
	Logger *slog.Logger
}

const defaultPollInterval = 100 * time.Millisecond

// activeProcess is one running job with its output accumulators. The
// active set is owned exclusively by the scheduling loop; nothing else
// ever sees or mutates it, which is why no locking is involved.
type activeProcess struct {
	job    Job
	handle ProcessHandle
	stdout []byte
	stderr []byte
}

// QueueProcesses runs an ordered batch of jobs with at most limit
// processes alive concurrently and returns one outcome per job, in
// completion order.
//
// With limit 1 every job runs to completion before the next starts, and
// outcomes follow submission order exactly. With a larger limit, jobs are
// started in submission order as capacity frees up, output is drained
// continuously with non-blocking reads, and each job is finalized in
// actual exit order with its complete stdout and stderr: no byte a child
// wrote is dropped or duplicated.
//
// A job exiting non-zero does not stop the batch; the status lands in the
// job's outcome (possibly overridden by finalize). A job whose Start
// fails is fatal: QueueProcesses returns the error along with the
// outcomes collected so far, and already-running siblings are only
// reachable through the caller's context.
//
// The orchestration itself is single-threaded and cooperative. It blocks
// only in Start, in the sequential mode's drain-and-wait, and in the one
// post-exit drain per job; everything else is sleep-then-repoll. There is no
// internal timeout or cancellation: once submitted, a job runs until it
// exits or the caller terminates its handle.
func QueueProcesses(ctx context.Context, jobs []Job, opts *ScheduleOptions) ([]JobOutcome, error) {
	if opts == nil {
		opts = &ScheduleOptions{}
	}

	limit := opts.Limit
	switch {
	case limit == 0:
		limit = runtime.NumCPU()
	case limit < 0:
		return nil, &ConfigurationError{
			Name:   "Limit",
			Reason: fmt.Sprintf("must be positive, got %d", opts.Limit),
		}
	}

	interval := opts.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &scheduler{
		finalize: opts.Finalize,
		logger:   logger,
	}

	if limit == 1 {
		return s.runSequential(ctx, jobs)
	}
	return s.runConcurrent(ctx, jobs, limit, interval)
}

type scheduler struct {
	finalize Finalize
	logger   *slog.Logger
	outcomes []JobOutcome
}

// runSequential starts each job in order, drains both streams to EOF,
// waits for the exit status, and finalizes before touching the next job.
func (s *scheduler) runSequential(ctx context.Context, jobs []Job) ([]JobOutcome, error) {
	for _, job := range jobs {
		handle, err := job.Start(ctx)
		if err != nil {
			return s.outcomes, fmt.Errorf("start job %q: %w", job.Name, err)
		}

		p := &activeProcess{job: job, handle: handle}
		if err := s.drainLive(p); err != nil {
			return s.outcomes, err
		}
		if err := handle.Wait(); err != nil {
			return s.outcomes, fmt.Errorf("wait for job %q: %w", job.Name, err)
		}

		s.complete(p)
	}
	return s.outcomes, nil
}

// runConcurrent admits jobs in submission order whenever the active set
// is below the limit, sweeping the set between admissions and after the
// last one until it empties.
func (s *scheduler) runConcurrent(ctx context.Context, jobs []Job, limit int, interval time.Duration) ([]JobOutcome, error) {
	var active []*activeProcess

	for _, job := range jobs {
		for len(active) >= limit {
			var err error
			active, err = s.sweep(active)
			if err != nil {
				return s.outcomes, err
			}
			if len(active) >= limit {
				time.Sleep(interval)
			}
		}

		handle, err := job.Start(ctx)
		if err != nil {
			return s.outcomes, fmt.Errorf("start job %q: %w", job.Name, err)
		}
		active = append(active, &activeProcess{job: job, handle: handle})
	}

	for len(active) > 0 {
		var err error
		active, err = s.sweep(active)
		if err != nil {
			return s.outcomes, err
		}
		if len(active) > 0 {
			time.Sleep(interval)
		}
	}

	return s.outcomes, nil
}

// sweep makes one pass over the active set: collect whatever output each
// process has ready, and retire the ones that have exited.
func (s *scheduler) sweep(active []*activeProcess) ([]*activeProcess, error) {
	remaining := active[:0]

	for _, p := range active {
		if err := s.drainAvailable(p); err != nil {
			return active, err
		}

		exited, err := p.handle.Poll()
		if err != nil {
			return active, fmt.Errorf("poll job %q: %w", p.job.Name, err)
		}
		if !exited {
			remaining = append(remaining, p)
			continue
		}

		// One blocking drain catches anything written between the last
		// poll and process death.
		if err := s.drainClosed(p); err != nil {
			return active, err
		}
		s.complete(p)
	}

	return remaining, nil
}

// drainAvailable appends whatever bytes are ready right now. A read that
// yields nothing is normal.
func (s *scheduler) drainAvailable(p *activeProcess) error {
	chunk, err := p.handle.TryReadStdout()
	if err != nil {
		return fmt.Errorf("read stdout of job %q: %w", p.job.Name, err)
	}
	p.stdout = append(p.stdout, chunk...)

	chunk, err = p.handle.TryReadStderr()
	if err != nil {
		return fmt.Errorf("read stderr of job %q: %w", p.job.Name, err)
	}
	p.stderr = append(p.stderr, chunk...)
	return nil
}

// drainLive collects both streams to EOF while the process may still be
// running. The streams are read in parallel: a child blocked writing a
// full pipe on one stream would otherwise never let the other reach EOF.
func (s *scheduler) drainLive(p *activeProcess) error {
	stderrDone := make(chan error, 1)
	go func() {
		rest, err := p.handle.DrainStderr()
		if err != nil {
			stderrDone <- fmt.Errorf("drain stderr of job %q: %w", p.job.Name, err)
			return
		}
		p.stderr = append(p.stderr, rest...)
		stderrDone <- nil
	}()

	rest, err := p.handle.DrainStdout()
	if err != nil {
		<-stderrDone
		return fmt.Errorf("drain stdout of job %q: %w", p.job.Name, err)
	}
	p.stdout = append(p.stdout, rest...)

	return <-stderrDone
}

// drainClosed appends everything left on both streams after the process
// has exited. With no writer left, at most one pipe buffer remains per
// stream, so the streams can be read one after the other.
func (s *scheduler) drainClosed(p *activeProcess) error {
	rest, err := p.handle.DrainStdout()
	if err != nil {
		return fmt.Errorf("drain stdout of job %q: %w", p.job.Name, err)
	}
	p.stdout = append(p.stdout, rest...)

	rest, err = p.handle.DrainStderr()
	if err != nil {
		return fmt.Errorf("drain stderr of job %q: %w", p.job.Name, err)
	}
	p.stderr = append(p.stderr, rest...)
	return nil
}

// complete finalizes one exited job. Reached exactly once per job: the
// sequential loop calls it after Wait, and sweep removes the process from
// the active set in the same step.
func (s *scheduler) complete(p *activeProcess) {
	outcome := JobOutcome{
		Job:        p.job,
		Handle:     p.handle,
		Stdout:     p.stdout,
		Stderr:     p.stderr,
		ExitStatus: p.handle.ExitStatus(),
	}

	if s.finalize != nil {
		outcome.OverrideStatus = s.finalize(p.handle, p.stdout, p.stderr)
	}

	s.logger.Debug("job finished",
		slog.String("job", p.job.Name),
		slog.Int("exit_status", outcome.ExitStatus),
		slog.Int("stdout_bytes", len(p.stdout)),
		slog.Int("stderr_bytes", len(p.stderr)))

	s.outcomes = append(s.outcomes, outcome)
}
